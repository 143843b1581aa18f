package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"romforge/internal/config"
	"romforge/internal/dispatch"
	"romforge/internal/editor"
	"romforge/internal/games"
	"romforge/internal/history"
	"romforge/internal/logging"
	"romforge/internal/ripper"
	"romforge/internal/session"
)

var (
	configPath string
	logLevel   string
)

// app is the state shared by every command after PersistentPreRunE.
type app struct {
	cfg        *config.Config
	configPath string
	logger     *slog.Logger
}

var current app

var rootCmd = &cobra.Command{
	Use:           "romforge",
	Short:         "romforge - identify, open and rip Pokémon game dumps",
	Long:          "romforge recognizes extracted 3DS and Switch Pokémon game folders, opens them for editing, and rips sub-resources out of single files.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, _, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			if !logging.ValidLevel(logLevel) {
				return fmt.Errorf("--log-level: unsupported value %q", logLevel)
			}
			cfg.Logging.Level = logLevel
		}
		logger, err := logging.New(logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
		if err != nil {
			return err
		}
		current = app{cfg: cfg, configPath: path, logger: logger}
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		printError(err)
		os.Exit(1)
	}
}

// printError shows editor failures as message and detail on separate lines.
func printError(err error) {
	var e *editor.Error
	if errors.As(err, &e) {
		fmt.Fprintln(os.Stderr, errorStyle.Render(e.Message))
		if e.Detail != "" {
			fmt.Fprintln(os.Stderr, dimStyle.Render(e.Detail))
		}
		return
	}
	fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
}

// newSession wires the dispatcher, ripper and history store from config.
// The returned cleanup closes the history store.
func newSession(a app) (*session.Session, func(), error) {
	reg, err := games.Registry()
	if err != nil {
		return nil, nil, fmt.Errorf("game catalog: %w", err)
	}

	var store *history.Store
	if a.cfg.Paths.HistoryDB != "" {
		store, err = history.Open(a.cfg.Paths.HistoryDB)
		if err != nil {
			a.logger.Warn("history disabled", slog.String("path", a.cfg.Paths.HistoryDB), slog.Any("error", err))
			store = nil
		}
	}

	sess, err := session.New(session.Options{
		Dispatcher: dispatch.New(reg, a.logger),
		Ripper:     ripper.New(ripper.Options{OutputDir: a.cfg.Paths.RipDir, Logger: a.logger}),
		History:    store,
		Logger:     a.logger,
		Language:   a.cfg.Language(),
		LastPath:   a.cfg.Session.LastPath,
	})
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return sess, func() { _ = store.Close() }, nil
}

func init() {
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/romforge/config.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")
}
