package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pointer-app/pointer/internal/backend"
	"github.com/pointer-app/pointer/internal/channel"
	"github.com/pointer-app/pointer/internal/config"
	"github.com/pointer-app/pointer/internal/controller"
	"github.com/pointer-app/pointer/internal/handoff"
	"github.com/pointer-app/pointer/internal/history"
	"github.com/pointer-app/pointer/internal/host"
	"github.com/pointer-app/pointer/internal/logging"
	"github.com/pointer-app/pointer/internal/toast"
	"github.com/pointer-app/pointer/internal/tui"
)

var (
	configPath string
	logLevel   string
	backendURL string
	hostFlag   string
)

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pointer",
		Short: "Desktop assistant shell for the local Pointer backend",
		Long: `pointer connects to the local Pointer backend, waits for the global hotkey
and opens a small overlay to ask the assistant about the current selection.
The subcommands manage the backend's settings, agents, calendar and knowledge base.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runMainWindow,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.config/pointer/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&backendURL, "backend-url", "", "Backend base URL")
	rootCmd.Flags().StringVar(&hostFlag, "host", "", "Overlay host: auto, tmux or inline")

	rootCmd.AddCommand(NewOverlayCommand())
	rootCmd.AddCommand(NewAskCommand())
	rootCmd.AddCommand(NewHotkeyCommand())
	rootCmd.AddCommand(NewSettingsCommand())
	rootCmd.AddCommand(NewAgentsCommand())
	rootCmd.AddCommand(NewCalendarCommand())
	rootCmd.AddCommand(NewRAGCommand())
	rootCmd.AddCommand(NewStorageCommand())
	rootCmd.AddCommand(NewHistoryCommand())
	rootCmd.AddCommand(NewEventsCommand())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies the persistent flags on top.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if backendURL != "" {
		cfg.BackendURL = backendURL
	}
	if hostFlag != "" {
		cfg.Host = hostFlag
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupLogger logs to stderr for plain commands and to the log file for
// commands that own the terminal.
func setupLogger(cfg *config.Config, toFile bool) (*slog.Logger, io.Closer, error) {
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	if toFile {
		return logging.SetupFile(cfg.LogPath(), level)
	}
	return logging.Setup(os.Stderr, level), io.NopCloser(nil), nil
}

func newClient(cfg *config.Config, logger *slog.Logger) *backend.Client {
	return backend.New(cfg.BackendURL,
		backend.WithTimeout(cfg.RequestTimeout),
		backend.WithRateLimit(cfg.RequestsPerSecond),
		backend.WithLogger(logger),
	)
}

// commandContext is cancelled on SIGINT or SIGTERM.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

// clientFor loads config, sets up stderr logging and builds a backend client.
func clientFor(cmd *cobra.Command) (*backend.Client, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, _, err := setupLogger(cfg, false)
	if err != nil {
		return nil, nil, err
	}
	return newClient(cfg, logger), cfg, nil
}

// startRecorder starts a history recorder. The file is opened per write so
// the popup process, `pointer history` and `pointer ask` can use it while
// the main window runs.
func startRecorder(cfg *config.Config, logger *slog.Logger) *history.Recorder {
	rec := history.NewRecorder(cfg.HistoryPath(), logger)
	rec.Start()
	return rec
}

func runMainWindow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, closer, err := setupLogger(cfg, true)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	client := newClient(cfg, logger)
	overlayOpts := tui.OverlayOptions{
		Agent:          client,
		Logger:         logger,
		PhraseInterval: cfg.Overlay.PhraseInterval,
		AutoDismiss:    cfg.Overlay.AutoDismiss,
	}

	opts := tui.MainWindowOptions{
		Controller: controller.Options{
			Channel: channel.Options{
				URL:            cfg.EventURL,
				InitialDelay:   cfg.Channel.InitialDelay,
				ReconnectDelay: cfg.Channel.ReconnectDelay,
				MaxAttempts:    cfg.Channel.MaxAttempts,
				Logger:         logger,
			},
			Toasts: toast.NewQueue(cfg.Toast.TTL),
			Logger: logger,
		},
		Overlay: overlayOpts,
	}

	bridge, inline, err := selectHost(cfg, logger)
	if err != nil {
		return err
	}
	opts.Controller.Bridge = bridge
	opts.Inline = inline
	opts.Overlay.Bridge = bridge
	// the tmux popup process records its own sessions
	if inline != nil {
		rec := startRecorder(cfg, logger)
		defer rec.Close()
		opts.Overlay.Recorder = rec
	}

	logger.Info("starting main window", "host", fmt.Sprintf("%T", bridge), "backend", cfg.BackendURL)
	return tui.RunMainWindow(ctx, opts)
}

// selectHost picks the overlay host. "auto" uses a tmux popup inside tmux
// and the inline overlay otherwise.
func selectHost(cfg *config.Config, logger *slog.Logger) (host.Bridge, *host.Inline, error) {
	useTmux := cfg.Host == "tmux" || (cfg.Host == "auto" && host.InTmux())
	if !useTmux {
		inline := host.NewInline()
		return inline, inline, nil
	}

	exe, err := os.Executable()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to locate executable: %w", err)
	}
	command := []string{exe, "overlay"}
	if configPath != "" {
		command = append(command, "--config", configPath)
	}
	return &host.Tmux{
		Store:   handoff.NewFileStore(cfg.HandoffPath()),
		Command: command,
		Width:   cfg.Overlay.PopupWidth,
		Height:  cfg.Overlay.PopupHeight,
		Logger:  logger,
	}, nil, nil
}
