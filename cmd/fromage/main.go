// ABOUTME: Operator CLI for the fromage conversation-state engine
// ABOUTME: Inspects and administers conversation history and prompt overrides

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/fromagebot/fromage/internal/config"
	"github.com/fromagebot/fromage/internal/history"
	"github.com/fromagebot/fromage/internal/prompt"
	"github.com/fromagebot/fromage/internal/session"
	"github.com/fromagebot/fromage/internal/store"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
   __
  / _|_ __ ___  _ __ ___   __ _  __ _  ___
 | |_| '__/ _ \| '_ ` + "`" + ` _ \ / _' |/ _' |/ _ \
 |  _| | | (_) | | | | | | (_| | (_| |  __/
 |_| |_|  \___/|_| |_| |_|\__,_|\__, |\___|
                                |___/
`

// getConfigPath returns the path to the fromage config file.
// Priority: FROMAGE_CONFIG env var > XDG_CONFIG_HOME/fromage/fromage.yaml > ~/.config/fromage/fromage.yaml
func getConfigPath() string {
	if envPath := os.Getenv("FROMAGE_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "fromage.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "fromage", "fromage.yaml")
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// .env first, so ${VAR} expansion in the config file sees it
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "init-db":
		err = cmdInitDB()
	case "history":
		err = cmdHistory(ctx, args)
	case "purge":
		err = cmdPurge(ctx, args)
	case "set-prompt":
		err = cmdSetPrompt(ctx, args)
	case "show-prompt":
		err = cmdShowPrompt(ctx, args)
	case "reset-prompt":
		err = cmdResetPrompt(ctx, args)
	case "help", "-h", "--help":
		printUsage()
	case "version":
		fmt.Println(version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	cyan.Print(banner)
	fmt.Println()
	fmt.Println("Usage: fromage <command> [args]")
	fmt.Println()
	yellow.Println("Commands:")
	fmt.Println("  init-db                        Create the database schema (safe to repeat)")
	fmt.Println("  history <conversation> [n]     Show the newest n turns (default 10)")
	fmt.Println("  purge <conversation>           Delete all turns for a conversation")
	fmt.Println("  set-prompt <conversation> <text>   Install a prompt override (clears history)")
	fmt.Println("  show-prompt <conversation>     Show the prompt governing a conversation")
	fmt.Println("  reset-prompt <conversation>    Return to the default prompt")
	fmt.Println()
	yellow.Println("Environment:")
	fmt.Println("  FROMAGE_CONFIG                 Config file path (default: ~/.config/fromage/fromage.yaml)")
	fmt.Println("  Variables referenced as ${VAR} in the config file; .env is loaded first")
}

// loadConfig reads the config file, falling back to built-in defaults when
// no file exists at the resolved path.
func loadConfig() (*config.Config, error) {
	configPath := getConfigPath()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// openService builds the session facade over the configured database.
// The CLI never runs completions, so no completer is wired.
func openService() (*session.Service, *store.SQLiteStore, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := setupLogger(cfg.Logging)

	s, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening store: %w", err)
	}

	hist := history.New(s, logger)
	prompts := prompt.New(s, cfg.Prompt.Default, logger)
	svc := session.New(hist, prompts, nil, cfg.History.Limit, logger)
	return svc, s, nil
}

func cmdInitDB() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setupLogger(cfg.Logging)

	s, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer s.Close()

	color.Green("Database ready at %s\n", cfg.Database.Path)
	return nil
}

func cmdHistory(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: fromage history <conversation> [n]")
	}
	conversationID := args[0]

	limit := 0
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid limit %q: %w", args[1], err)
		}
		limit = n
	}

	svc, s, err := openService()
	if err != nil {
		return err
	}
	defer s.Close()

	turns, err := svc.History(ctx, conversationID, limit)
	if err != nil {
		return err
	}
	if len(turns) == 0 {
		fmt.Println("No history for this conversation.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tROLE\tAUTHOR\tCONTENT")
	for _, turn := range turns {
		content := turn.Content
		if len(content) > 80 {
			content = content[:77] + "..."
		}
		content = strings.ReplaceAll(content, "\n", " ")
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			turn.ID,
			turn.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			turn.Role,
			turn.DisplayName,
			content,
		)
	}
	return w.Flush()
}

func cmdPurge(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: fromage purge <conversation>")
	}

	svc, s, err := openService()
	if err != nil {
		return err
	}
	defer s.Close()

	purged, err := svc.ClearHistory(ctx, args[0])
	if err != nil {
		return err
	}
	color.Green("Purged %d turn(s).\n", purged)
	return nil
}

func cmdSetPrompt(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: fromage set-prompt <conversation> <text>")
	}
	conversationID := args[0]
	promptText := strings.Join(args[1:], " ")
	if strings.TrimSpace(promptText) == "" {
		return fmt.Errorf("prompt text must not be empty")
	}

	svc, s, err := openService()
	if err != nil {
		return err
	}
	defer s.Close()

	purged, err := svc.SetPrompt(ctx, conversationID, promptText)
	if err != nil {
		return err
	}
	color.Green("Prompt override installed; cleared %d turn(s) of history.\n", purged)
	return nil
}

func cmdShowPrompt(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: fromage show-prompt <conversation>")
	}

	svc, s, err := openService()
	if err != nil {
		return err
	}
	defer s.Close()

	promptText, custom, err := svc.CurrentPrompt(ctx, args[0])
	if err != nil {
		return err
	}

	if custom {
		color.Yellow("Mode: custom override\n")
	} else {
		color.Cyan("Mode: default\n")
	}
	fmt.Println(promptText)
	return nil
}

func cmdResetPrompt(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: fromage reset-prompt <conversation>")
	}

	svc, s, err := openService()
	if err != nil {
		return err
	}
	defer s.Close()

	hadOverride, purged, err := svc.ResetPrompt(ctx, args[0])
	if err != nil {
		return err
	}
	if !hadOverride {
		fmt.Println("Conversation was already using the default prompt; history untouched.")
		return nil
	}
	color.Green("Override removed; cleared %d turn(s) of history.\n", purged)
	return nil
}
