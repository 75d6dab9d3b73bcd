package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/workflow-go/workflow/nodes"
)

// globalFlags holds the persistent flags shared by every command.
type globalFlags struct {
	DB        string
	MySQLDSN  string
	NoHistory bool
	LogLevel  string
	LogFormat string
	Events    string

	ScreenshotCmd string

	AnthropicModel string
	OpenAIModel    string
	GoogleModel    string

	logger *slog.Logger
}

func registerGlobalFlags(cmd *cobra.Command, f *globalFlags) {
	pf := cmd.PersistentFlags()
	pf.StringVar(&f.DB, "db", os.Getenv("WORKFLOW_DB"), "SQLite run history database (default: $WORKFLOW_DB or the user config dir)")
	pf.StringVar(&f.MySQLDSN, "mysql-dsn", os.Getenv("WORKFLOW_MYSQL_DSN"), "MySQL DSN for run history; overrides --db")
	pf.BoolVar(&f.NoHistory, "no-history", false, "Do not record run history")
	pf.StringVar(&f.LogLevel, "log-level", "warn", "Log level (debug|info|warn|error)")
	pf.StringVar(&f.LogFormat, "log-format", "text", "Log format (text|json)")
	pf.StringVar(&f.Events, "events", "none", "Print engine events to stderr (none|text|json)")
	pf.StringVar(&f.ScreenshotCmd, "screenshot-cmd", nodes.DefaultScreenshotCommand(), "Command that writes a screen capture to stdout for Screenshot nodes; {quality} is substituted (empty disables capture)")
	pf.StringVar(&f.AnthropicModel, "anthropic-model", "", "Anthropic model for AskAI nodes")
	pf.StringVar(&f.OpenAIModel, "openai-model", "", "OpenAI model for AskAI nodes")
	pf.StringVar(&f.GoogleModel, "google-model", "", "Gemini model for AskAI nodes")
}

// resolve validates the flags and builds the logger.
func (f *globalFlags) resolve() error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(f.LogLevel)); err != nil {
		return fmt.Errorf("invalid --log-level %q", f.LogLevel)
	}
	switch f.Events {
	case "none", "text", "json":
	default:
		return fmt.Errorf("invalid --events %q (none|text|json)", f.Events)
	}

	logger, err := newLogger(os.Stderr, f.LogFormat, level)
	if err != nil {
		return err
	}
	f.logger = logger
	return nil
}

func newLogger(w io.Writer, format string, level slog.Level) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(format) {
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("invalid --log-format %q (text|json)", format)
}

// historyPath returns the SQLite path, falling back to the user config dir.
func (f *globalFlags) historyPath() (string, error) {
	if f.DB != "" {
		return f.DB, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	dir = filepath.Join(dir, "workflow-go")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}
