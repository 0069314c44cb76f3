package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pointer-app/pointer/pkg/models"
)

var validModifiers = map[string]bool{"cmd": true, "ctrl": true, "alt": true, "shift": true}

// parseHotkey turns "ctrl+shift+k" into a binding. At least one modifier and
// exactly one letter key are required.
func parseHotkey(s string) (models.HotkeyConfig, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "+")
	if len(parts) < 2 {
		return models.HotkeyConfig{}, errors.New("hotkey needs at least one modifier and a key, e.g. cmd+shift+k")
	}
	hk := models.HotkeyConfig{Key: strings.TrimSpace(parts[len(parts)-1])}
	seen := map[string]bool{}
	for _, p := range parts[:len(parts)-1] {
		p = strings.TrimSpace(p)
		if seen[p] {
			continue
		}
		seen[p] = true
		hk.Modifiers = append(hk.Modifiers, p)
	}
	return hk, validateHotkey(hk)
}

func validateHotkey(hk models.HotkeyConfig) error {
	if len(hk.Modifiers) == 0 {
		return errors.New("at least one modifier is required")
	}
	for _, m := range hk.Modifiers {
		if !validModifiers[m] {
			return fmt.Errorf("unknown modifier %q (want cmd, ctrl, alt or shift)", m)
		}
	}
	if len(hk.Key) != 1 || hk.Key[0] < 'a' || hk.Key[0] > 'z' {
		return fmt.Errorf("key must be a single letter a-z, got %q", hk.Key)
	}
	return nil
}

func formatHotkey(hk models.HotkeyConfig) string {
	return strings.Join(append(append([]string{}, hk.Modifiers...), hk.Key), "+")
}

// NewHotkeyCommand creates the hotkey command
func NewHotkeyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hotkey",
		Short: "Show or change the global hotkey",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Show the current hotkey",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := clientFor(cmd)
			if err != nil {
				return err
			}
			hk, err := client.GetHotkey(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get hotkey: %w", err)
			}
			fmt.Println(formatHotkey(hk))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <modifiers+key>",
		Short: "Change the hotkey, e.g. cmd+shift+k",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hk, err := parseHotkey(args[0])
			if err != nil {
				return err
			}
			client, _, err := clientFor(cmd)
			if err != nil {
				return err
			}
			if err := client.SetHotkey(cmd.Context(), hk); err != nil {
				return fmt.Errorf("failed to save hotkey: %w", err)
			}
			fmt.Printf("Hotkey set to %s\n", formatHotkey(hk))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Restore the default hotkey",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := clientFor(cmd)
			if err != nil {
				return err
			}
			hk, err := client.ResetHotkey(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to reset hotkey: %w", err)
			}
			fmt.Printf("Hotkey reset to %s\n", formatHotkey(hk))
			return nil
		},
	})

	return cmd
}
