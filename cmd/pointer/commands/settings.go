package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pointer-app/pointer/pkg/models"
)

// NewSettingsCommand creates the settings command
func NewSettingsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Manage backend environment settings",
		Long: `Manage the backend's category-scoped settings. Secret values are masked
unless --show-secrets is given.`,
	}
	cmd.AddCommand(newSettingsCategoriesCommand())
	cmd.AddCommand(newSettingsGetCommand())
	cmd.AddCommand(newSettingsSetCommand())
	cmd.AddCommand(newSettingsDeleteCommand())
	cmd.AddCommand(newSettingsImportCommand())
	cmd.AddCommand(newSettingsExportCommand())
	return cmd
}

func newSettingsCategoriesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List setting categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := clientFor(cmd)
			if err != nil {
				return err
			}
			categories, err := client.SettingCategories(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list categories: %w", err)
			}
			for _, c := range categories {
				fmt.Println(c)
			}
			return nil
		},
	}
}

func newSettingsGetCommand() *cobra.Command {
	var showSecrets bool
	cmd := &cobra.Command{
		Use:   "get <category> [key]",
		Short: "Show the settings of a category, or one key",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := clientFor(cmd)
			if err != nil {
				return err
			}
			if len(args) == 2 {
				s, err := client.Setting(cmd.Context(), args[0], args[1])
				if err != nil {
					return fmt.Errorf("failed to get setting: %w", err)
				}
				printSetting(s)
				return nil
			}

			settings, err := client.Settings(cmd.Context(), args[0], showSecrets)
			if err != nil {
				return fmt.Errorf("failed to get settings: %w", err)
			}
			if len(settings) == 0 {
				fmt.Printf("No settings in category '%s'\n", args[0])
				return nil
			}
			for _, s := range settings {
				printSetting(s)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "Show secret values instead of the mask")
	return cmd
}

func printSetting(s models.Setting) {
	value := s.Value
	if s.IsSecret && value == "" {
		value = models.SecretMask
	}
	fmt.Printf("%s=%s\n", s.Key, value)
	if s.Description != "" {
		fmt.Printf("   %s\n", s.Description)
	}
}

// parseAssignment splits KEY=VALUE. Keys are upper-case env names.
func parseAssignment(s string) (string, string, error) {
	key, value, ok := strings.Cut(s, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", "", fmt.Errorf("expected KEY=VALUE, got %q", s)
	}
	if strings.ContainsAny(key, " \t") {
		return "", "", fmt.Errorf("key %q must not contain whitespace", key)
	}
	return key, value, nil
}

func newSettingsSetCommand() *cobra.Command {
	var (
		secret      bool
		description string
	)
	cmd := &cobra.Command{
		Use:   "set <category> <KEY=VALUE>",
		Short: "Create or update a setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value, err := parseAssignment(args[1])
			if err != nil {
				return err
			}
			if value == models.SecretMask {
				return errors.New("refusing to store the secret mask as a value")
			}
			client, _, err := clientFor(cmd)
			if err != nil {
				return err
			}
			s := models.Setting{Category: args[0], Key: key, Value: value, IsSecret: secret, Description: description}
			if err := client.SetSetting(cmd.Context(), s); err != nil {
				return fmt.Errorf("failed to save setting: %w", err)
			}
			fmt.Printf("Saved %s in '%s'\n", key, args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&secret, "secret", false, "Mark the value as secret")
	cmd.Flags().StringVar(&description, "description", "", "Description shown next to the value")
	return cmd
}

func newSettingsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <category> <key>",
		Short: "Delete a setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := clientFor(cmd)
			if err != nil {
				return err
			}
			if err := client.DeleteSetting(cmd.Context(), args[0], args[1]); err != nil {
				return fmt.Errorf("failed to delete setting: %w", err)
			}
			fmt.Printf("Deleted %s from '%s'\n", args[1], args[0])
			return nil
		},
	}
}

func newSettingsImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <category> <file|->",
		Short: "Import KEY=VALUE lines from an .env file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readInput(cmd, args[1])
			if err != nil {
				return err
			}
			if strings.TrimSpace(content) == "" {
				return errors.New("nothing to import")
			}
			client, _, err := clientFor(cmd)
			if err != nil {
				return err
			}
			n, err := client.ImportSettings(cmd.Context(), args[0], content)
			if err != nil {
				return fmt.Errorf("failed to import settings: %w", err)
			}
			fmt.Printf("Imported %d settings into '%s'\n", n, args[0])
			return nil
		},
	}
}

func newSettingsExportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export <category>",
		Short: "Print a category as .env text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := clientFor(cmd)
			if err != nil {
				return err
			}
			text, err := client.ExportSettings(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to export settings: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), text)
			if text != "" && !strings.HasSuffix(text, "\n") {
				fmt.Fprintln(cmd.OutOrStdout())
			}
			return nil
		},
	}
}

// readInput reads a file, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) (string, error) {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(cmd.InOrStdin())
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(raw), nil
}
