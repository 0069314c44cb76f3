package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewStorageCommand creates the storage command
func NewStorageCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "storage",
		Short: "Show where the backend keeps its data",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "paths",
		Short: "List the backend's storage locations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := clientFor(cmd)
			if err != nil {
				return err
			}
			locations, dataDir, err := client.StoragePaths(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get storage paths: %w", err)
			}

			fmt.Printf("Data directory: %s\n", dataDir)
			fmt.Println("=========")
			for i, loc := range locations {
				fmt.Printf("%d. %s\n", i+1, loc.Title)
				fmt.Printf("   Path: %s\n", loc.Path)
				if loc.Exists {
					fmt.Printf("   Size: %s\n", loc.Size)
				} else {
					fmt.Println("   (not created yet)")
				}
				if loc.Description != "" {
					fmt.Printf("   %s\n", loc.Description)
				}
				fmt.Println()
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show total size and file count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := clientFor(cmd)
			if err != nil {
				return err
			}
			st, err := client.StorageStats(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get storage stats: %w", err)
			}
			fmt.Printf("Directory:  %s\n", st.DataDirectory)
			fmt.Printf("Total size: %s\n", st.TotalSize)
			fmt.Printf("Files:      %d\n", st.TotalFiles)
			return nil
		},
	})

	return cmd
}
