package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pointer-app/pointer/internal/handoff"
	"github.com/pointer-app/pointer/internal/history"
	"github.com/pointer-app/pointer/internal/host"
	"github.com/pointer-app/pointer/internal/overlay"
	"github.com/pointer-app/pointer/internal/tui"
	"github.com/pointer-app/pointer/pkg/models"
)

// NewOverlayCommand creates the overlay command
func NewOverlayCommand() *cobra.Command {
	var selected string
	cmd := &cobra.Command{
		Use:   "overlay",
		Short: "Run the overlay window",
		Long: `Run the overlay window on its own. The tmux host opens this command in a popup
after leaving the hotkey context in the handoff file. Use --selected to seed
the context by hand.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOverlay(cmd, selected)
		},
	}
	cmd.Flags().StringVar(&selected, "selected", "", "Selected text to send as context")
	return cmd
}

func runOverlay(cmd *cobra.Command, selected string) error {
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

	store := handoff.NewFileStore(cfg.HandoffPath())
	bridge := &host.Tmux{Store: store, Logger: logger}

	opts := tui.OverlayOptions{
		Agent:          newClient(cfg, logger),
		Bridge:         bridge,
		Logger:         logger,
		PhraseInterval: cfg.Overlay.PhraseInterval,
		AutoDismiss:    cfg.Overlay.AutoDismiss,
		Width:          cfg.Overlay.PopupWidth - 4,
	}
	if selected != "" {
		opts.Context = &models.HotkeyContext{SelectedText: selected}
	}

	rec := startRecorder(cfg, logger)
	defer rec.Close()
	opts.Recorder = rec

	session, err := tui.RunOverlay(ctx, opts)
	if err != nil {
		return fmt.Errorf("overlay error: %w", err)
	}
	// a killed popup never reaches HideOverlay
	if err := store.Clear(); err != nil {
		logger.Warn("failed to clear overlay context", "error", err)
	}
	if session != nil {
		logger.Info("overlay closed", "phase", session.Phase)
	}
	return nil
}

// NewAskCommand creates the ask command
func NewAskCommand() *cobra.Command {
	var (
		selected string
		legacy   bool
		mode     string
	)
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask the assistant one question without opening the overlay",
		Long: `Ask the assistant one question without opening the overlay.
With --legacy the question goes to the older process-query endpoint, which
also accepts --mode "Add to knowledge".`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")
			if legacy {
				return runLegacyAsk(cmd, question, selected, mode)
			}
			return runAsk(cmd, question, selected)
		},
	}
	cmd.Flags().StringVar(&selected, "selected", "", "Selected text to send as context")
	cmd.Flags().BoolVar(&legacy, "legacy", false, "Use the process-query endpoint")
	cmd.Flags().StringVar(&mode, "mode", models.QueryModeExecute, `Legacy mode: "execute" or "Add to knowledge"`)
	return cmd
}

// legacyRequest builds the process-query body the way the old overlay sent it.
func legacyRequest(question, selected, mode string) (models.ProcessQueryRequest, error) {
	if strings.TrimSpace(question) == "" {
		return models.ProcessQueryRequest{}, overlay.ErrEmptyQuery
	}
	switch mode {
	case models.QueryModeExecute, models.QueryModeKnowledge:
	default:
		return models.ProcessQueryRequest{}, fmt.Errorf("unknown mode %q", mode)
	}
	return models.ProcessQueryRequest{
		Query:    question,
		Mode:     mode,
		Settings: map[string]any{},
		Context:  models.QueryContext{SelectedText: selected},
	}, nil
}

func runLegacyAsk(cmd *cobra.Command, question, selected, mode string) error {
	req, err := legacyRequest(question, selected, mode)
	if err != nil {
		return err
	}
	client, _, err := clientFor(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	resp, err := client.ProcessQuery(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to process query: %w", err)
	}
	fmt.Println(resp.Response)
	return nil
}

func runAsk(cmd *cobra.Command, question, selected string) error {
	if strings.TrimSpace(question) == "" {
		return overlay.ErrEmptyQuery
	}
	client, cfg, err := clientFor(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	var hc *models.HotkeyContext
	if selected != "" {
		hc = &models.HotkeyContext{SelectedText: selected}
	}
	session := overlay.NewSession(hc)
	session.SetQuery(question)
	if err := session.Submit(ctx, client); err != nil {
		return err
	}

	if _, err := history.Append(ctx, cfg.HistoryPath(), session.Entry()); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to record history: %v\n", err)
	}

	if session.Phase == overlay.PhaseErrored {
		return errors.New(session.Result)
	}
	fmt.Println(session.Result)
	return nil
}
