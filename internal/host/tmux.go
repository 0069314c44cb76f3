package host

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/pointer-app/pointer/internal/handoff"
	"github.com/pointer-app/pointer/pkg/models"
)

// Tmux shows the overlay as a `pointer overlay` process inside a tmux popup.
// Context is pulled by the overlay from the handoff file.
type Tmux struct {
	Store *handoff.FileStore
	// Command is the overlay invocation, e.g. {"/usr/bin/pointer", "overlay"}.
	Command []string
	Width   int
	Height  int
	Launch  Launcher
	Logger  *slog.Logger
	// Available overrides the TMUX environment check.
	Available func() bool
}

func (t *Tmux) launcher() Launcher {
	if t.Launch == nil {
		return StartDetached
	}
	return t.Launch
}

// ShowOverlay writes the context and opens the popup. Pixel positions do not
// map onto terminal cells, so the popup is centered.
func (t *Tmux) ShowOverlay(ctx context.Context, hc models.HotkeyContext) error {
	available := InTmux
	if t.Available != nil {
		available = t.Available
	}
	if !available() {
		return ErrNoLauncher
	}
	if len(t.Command) == 0 {
		return fmt.Errorf("tmux host: %w: no overlay command", ErrNoLauncher)
	}
	if err := t.Store.Write(hc); err != nil {
		return err
	}

	args := []string{"display-popup", "-E", "-x", "C", "-y", "C"}
	if t.Width > 0 {
		args = append(args, "-w", strconv.Itoa(t.Width))
	}
	if t.Height > 0 {
		args = append(args, "-h", strconv.Itoa(t.Height))
	}
	args = append(args, shellJoin(t.Command))

	if t.Logger != nil {
		t.Logger.Debug("opening overlay popup", "x", hc.Position.X, "y", hc.Position.Y)
	}
	if err := t.launcher()("tmux", args...); err != nil {
		return fmt.Errorf("failed to open tmux popup: %w", err)
	}
	return nil
}

// HideOverlay drops the pending context. The popup itself closes when the
// overlay process exits.
func (t *Tmux) HideOverlay(ctx context.Context) error {
	return t.Store.Clear()
}

// GetOverlayContext reads the context left by ShowOverlay.
func (t *Tmux) GetOverlayContext(ctx context.Context) (models.HotkeyContext, error) {
	return t.Store.Read()
}

// OpenURL opens rawURL in the system browser.
func (t *Tmux) OpenURL(ctx context.Context, rawURL string) error {
	return OpenBrowser(t.launcher(), rawURL)
}

// shellJoin quotes argv for the shell command tmux runs in the popup.
func shellJoin(argv []string) string {
	quoted := make([]string, len(argv))
	for i, a := range argv {
		if a != "" && !strings.ContainsAny(a, " \t\n'\"\\$`|&;<>()*?[]#~!") {
			quoted[i] = a
			continue
		}
		quoted[i] = "'" + strings.ReplaceAll(a, "'", `'\''`) + "'"
	}
	return strings.Join(quoted, " ")
}
