// Package host is the boundary to whatever shows windows: tmux popups or the
// running main-window program itself.
package host

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"runtime"

	"github.com/pointer-app/pointer/pkg/models"
)

var (
	// ErrNoLauncher is returned when the host cannot open windows here.
	ErrNoLauncher = errors.New("no overlay launcher available")
	// ErrNotAttached is returned by an Inline host with no program attached.
	ErrNotAttached = errors.New("inline host is not attached to a program")
)

// Bridge is everything the controllers need from the host shell.
type Bridge interface {
	ShowOverlay(ctx context.Context, hc models.HotkeyContext) error
	HideOverlay(ctx context.Context) error
	// GetOverlayContext returns handoff.ErrNoContext when nothing is pending.
	GetOverlayContext(ctx context.Context) (models.HotkeyContext, error)
	OpenURL(ctx context.Context, rawURL string) error
}

// Dismisser is implemented by hosts that show several overlay instances over
// time. Dismiss closes instance id only.
type Dismisser interface {
	Dismiss(ctx context.Context, id int) error
}

// Launcher starts a detached process.
type Launcher func(name string, args ...string) error

// StartDetached runs name without waiting for it.
func StartDetached(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", name, err)
	}
	go cmd.Wait()
	return nil
}

// BrowserCommand returns the system command that opens a URL on goos.
func BrowserCommand(goos string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler"}
	default:
		return "xdg-open", nil
	}
}

// OpenBrowser opens an http(s) URL in the default browser.
func OpenBrowser(launch Launcher, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("refusing to open %q: not an http(s) URL", rawURL)
	}
	if launch == nil {
		launch = StartDetached
	}
	name, args := BrowserCommand(runtime.GOOS)
	return launch(name, append(args, u.String())...)
}

// InTmux reports whether this process runs inside a tmux client.
func InTmux() bool {
	return os.Getenv("TMUX") != ""
}
