package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pointer-app/pointer/internal/channel"
	"github.com/pointer-app/pointer/pkg/models"
)

// NewEventsCommand creates the events command
func NewEventsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "Print raw events from the backend channel",
		Long: `Connect to the backend event channel and print every envelope as it arrives.
Reconnects follow the same policy as the main window. Stop with Ctrl+C.`,
		Args: cobra.NoArgs,
		RunE: runEvents,
	}
}

type printNotifier struct{}

func (printNotifier) Notify(t models.Toast) {
	fmt.Printf("[%s] %s\n", t.Kind, t.Message)
}

func runEvents(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, _, err := setupLogger(cfg, false)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	m := channel.New(channel.Options{
		URL:            cfg.EventURL,
		InitialDelay:   cfg.Channel.InitialDelay,
		ReconnectDelay: cfg.Channel.ReconnectDelay,
		MaxAttempts:    cfg.Channel.MaxAttempts,
		Logger:         logger,
		Notifier:       printNotifier{},
		OnEvent: func(env models.Envelope) {
			fmt.Printf("%s %s %s\n", time.Now().Format("15:04:05.000"), env.Type, string(env.Data))
		},
		OnHotkey: func(hc models.HotkeyContext) {
			fmt.Printf("   hotkey at (%.0f, %.0f), %d chars selected\n", hc.Position.X, hc.Position.Y, len(hc.SelectedText))
		},
		OnStateChange: func(s channel.State) {
			logger.Debug("channel state", "status", s.Status, "attempts", s.ReconnectAttempts)
		},
	})

	fmt.Printf("Listening on %s\n", cfg.EventURL)
	m.Start(ctx)
	<-ctx.Done()
	m.Close()
	return nil
}
