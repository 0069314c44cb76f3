package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pointer-app/pointer/pkg/models"
)

// NewAgentsCommand creates the agents command
func NewAgentsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agents",
		Short: "Manage marketplace agents and API keys",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List registered agents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := clientFor(cmd)
			if err != nil {
				return err
			}
			agents, err := client.Agents(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list agents: %w", err)
			}
			if len(agents) == 0 {
				fmt.Println("No agents registered")
				return nil
			}
			fmt.Println("Agents:")
			fmt.Println("=======")
			for i, a := range agents {
				fmt.Printf("%d. %s (%s)\n", i+1, a.Name, a.ID)
				fmt.Printf("   Address: %s\n", a.Address)
				if a.Description != "" {
					fmt.Printf("   %s\n", truncateString(a.Description, 70))
				}
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Show one agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := clientFor(cmd)
			if err != nil {
				return err
			}
			a, err := client.AgentByID(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to get agent: %w", err)
			}
			fmt.Printf("ID:          %s\n", a.ID)
			fmt.Printf("Name:        %s\n", a.Name)
			fmt.Printf("Address:     %s\n", a.Address)
			fmt.Printf("Description: %s\n", a.Description)
			return nil
		},
	})

	cmd.AddCommand(newAgentsAddCommand())

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <id>",
		Short: "Remove an agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := clientFor(cmd)
			if err != nil {
				return err
			}
			if err := client.RemoveAgent(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to remove agent: %w", err)
			}
			fmt.Printf("Removed agent %s\n", args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "keys",
		Short: "Show the configured API keys (masked)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := clientFor(cmd)
			if err != nil {
				return err
			}
			keys, err := client.APIKeys(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get API keys: %w", err)
			}
			fmt.Printf("ASI:One:    %s\n", maskKey(keys.ASIOneKey))
			fmt.Printf("Agentverse: %s\n", maskKey(keys.AgentverseKey))
			return nil
		},
	})

	cmd.AddCommand(newAgentsSetKeysCommand())
	return cmd
}

func validateAgent(a models.Agent) error {
	if strings.TrimSpace(a.Name) == "" {
		return errors.New("agent name is required")
	}
	if strings.TrimSpace(a.Address) == "" {
		return errors.New("agent address is required")
	}
	return nil
}

func newAgentsAddCommand() *cobra.Command {
	var a models.Agent
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register an agent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateAgent(a); err != nil {
				return err
			}
			client, _, err := clientFor(cmd)
			if err != nil {
				return err
			}
			added, err := client.AddAgent(cmd.Context(), a)
			if err != nil {
				return fmt.Errorf("failed to add agent: %w", err)
			}
			fmt.Printf("Added agent %s (%s)\n", added.Name, added.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&a.Name, "name", "", "Agent name")
	cmd.Flags().StringVar(&a.Address, "address", "", "Agent address")
	cmd.Flags().StringVar(&a.Description, "description", "", "What the agent does")
	return cmd
}

func newAgentsSetKeysCommand() *cobra.Command {
	var keys models.APIKeys
	cmd := &cobra.Command{
		Use:   "set-keys",
		Short: "Save marketplace API keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if keys.ASIOneKey == "" && keys.AgentverseKey == "" {
				return errors.New("pass --asi-one-key and/or --agentverse-key")
			}
			client, _, err := clientFor(cmd)
			if err != nil {
				return err
			}
			if err := client.SetAPIKeys(cmd.Context(), keys); err != nil {
				return fmt.Errorf("failed to save API keys: %w", err)
			}
			fmt.Println("API keys saved")
			return nil
		},
	}
	cmd.Flags().StringVar(&keys.ASIOneKey, "asi-one-key", "", "ASI:One API key")
	cmd.Flags().StringVar(&keys.AgentverseKey, "agentverse-key", "", "Agentverse API key")
	return cmd
}

// maskKey keeps the last four characters of a key.
func maskKey(k string) string {
	switch {
	case k == "":
		return "(not set)"
	case k == models.SecretMask || len(k) <= 4:
		return models.SecretMask
	default:
		return models.SecretMask + k[len(k)-4:]
	}
}
