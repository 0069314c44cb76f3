package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pointer-app/pointer/internal/calendar"
	"github.com/pointer-app/pointer/internal/host"
)

// NewCalendarCommand creates the calendar command
func NewCalendarCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Link a calendar account to the backend",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show whether a calendar account is linked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := clientFor(cmd)
			if err != nil {
				return err
			}
			st, err := client.CalendarStatus(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get calendar status: %w", err)
			}
			if !st.Connected {
				fmt.Println("Not connected")
				return nil
			}
			if st.Email != nil {
				fmt.Printf("Connected as %s\n", *st.Email)
			} else {
				fmt.Println("Connected")
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "credentials <file|->",
		Short: "Upload the OAuth client credentials JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			if err := validateCredentials(content); err != nil {
				return err
			}
			client, _, err := clientFor(cmd)
			if err != nil {
				return err
			}
			if err := client.SaveCalendarCredentials(cmd.Context(), content); err != nil {
				return fmt.Errorf("failed to save credentials: %w", err)
			}
			fmt.Println("Credentials saved. Run 'pointer calendar connect' to link your account.")
			return nil
		},
	})

	cmd.AddCommand(newCalendarConnectCommand())

	cmd.AddCommand(&cobra.Command{
		Use:   "disconnect",
		Short: "Unlink the calendar account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := clientFor(cmd)
			if err != nil {
				return err
			}
			if err := client.DisconnectCalendar(cmd.Context()); err != nil {
				return fmt.Errorf("failed to disconnect calendar: %w", err)
			}
			fmt.Println("Calendar disconnected")
			return nil
		},
	})

	return cmd
}

// validateCredentials checks the file is a JSON object before it is sent.
func validateCredentials(content string) error {
	var obj map[string]any
	if err := json.Unmarshal([]byte(content), &obj); err != nil {
		return fmt.Errorf("credentials are not valid JSON: %w", err)
	}
	if len(obj) == 0 {
		return errors.New("credentials JSON is empty")
	}
	return nil
}

func newCalendarConnectCommand() *cobra.Command {
	var noBrowser bool
	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Authorize the calendar in the browser and wait for the link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := clientFor(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()

			connector := &calendar.Connector{
				API: client,
				OpenURL: func(ctx context.Context, rawURL string) error {
					fmt.Printf("Authorize at: %s\n", rawURL)
					if noBrowser {
						return nil
					}
					return host.OpenBrowser(host.StartDetached, rawURL)
				},
			}
			task, err := connector.Connect(ctx)
			if err != nil {
				if errors.Is(err, calendar.ErrNoCredentials) {
					return fmt.Errorf("%w; upload them with 'pointer calendar credentials'", err)
				}
				return err
			}

			fmt.Print("Waiting for authorization (Ctrl+C to cancel)")
			ticker := time.NewTicker(time.Second)
		wait:
			for {
				select {
				case <-task.Done():
					break wait
				case <-ticker.C:
					fmt.Print(".")
				}
			}
			ticker.Stop()
			fmt.Println()

			st, err := task.Wait()
			if err != nil {
				return err
			}
			if st.Email != nil {
				fmt.Printf("Connected as %s\n", *st.Email)
			} else {
				fmt.Println("Connected")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Print the authorization URL without opening a browser")
	return cmd
}
