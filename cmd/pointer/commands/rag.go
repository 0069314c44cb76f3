package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pointer-app/pointer/internal/backend"
)

// NewRAGCommand creates the rag command
func NewRAGCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rag",
		Short: "Manage the assistant's knowledge base",
	}
	cmd.AddCommand(newRAGAddCommand())
	cmd.AddCommand(newRAGUploadCommand())
	cmd.AddCommand(newRAGSearchCommand())
	cmd.AddCommand(newRAGListCommand())

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := clientFor(cmd)
			if err != nil {
				return err
			}
			if err := client.DeleteDocument(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to delete document: %w", err)
			}
			fmt.Printf("Deleted document %s\n", args[0])
			return nil
		},
	})

	cmd.AddCommand(newRAGClearCommand())

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show knowledge base statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := clientFor(cmd)
			if err != nil {
				return err
			}
			st, err := client.RAGStats(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get stats: %w", err)
			}
			fmt.Printf("Documents: %d\n", st.TotalDocuments)
			for source, n := range st.BySource {
				fmt.Printf("   %s: %d\n", source, n)
			}
			if st.DatabasePath != "" {
				fmt.Printf("Database: %s\n", st.DatabasePath)
			}
			return nil
		},
	})
	return cmd
}

func newRAGAddCommand() *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:   "add <text>",
		Short: "Add a text snippet",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if strings.TrimSpace(text) == "" {
				return errors.New("text must not be empty")
			}
			client, _, err := clientFor(cmd)
			if err != nil {
				return err
			}
			id, err := client.AddDocument(cmd.Context(), text, source)
			if err != nil {
				return fmt.Errorf("failed to add document: %w", err)
			}
			fmt.Printf("Added document %s\n", id)
			return nil
		},
	}
	cmd.Flags().StringVar(&source, "source", "manual", "Source label")
	return cmd
}

func newRAGUploadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a file into the knowledge base",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[0], err)
			}
			defer f.Close()

			client, _, err := clientFor(cmd)
			if err != nil {
				return err
			}
			id, err := client.UploadDocument(cmd.Context(), args[0], f)
			if err != nil {
				return fmt.Errorf("failed to upload document: %w", err)
			}
			fmt.Printf("Uploaded %s as %s\n", args[0], id)
			return nil
		},
	}
}

func newRAGSearchCommand() *cobra.Command {
	var k int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the knowledge base",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			client, _, err := clientFor(cmd)
			if err != nil {
				return err
			}
			matches, err := client.SearchDocuments(cmd.Context(), query, k)
			if err != nil {
				return fmt.Errorf("failed to search: %w", err)
			}
			if len(matches) == 0 {
				fmt.Println("No matches")
				return nil
			}
			for i, m := range matches {
				fmt.Printf("%d. [%.3f] %s (%s)\n", i+1, m.Score, m.ID, m.Source)
				fmt.Printf("   %s\n", truncateString(oneLine(m.Text), 70))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&k, "limit", "k", backend.DefaultSearchLimit, "Maximum number of matches")
	return cmd
}

func newRAGListCommand() *cobra.Command {
	var skip, limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := clientFor(cmd)
			if err != nil {
				return err
			}
			docs, total, err := client.Documents(cmd.Context(), skip, limit)
			if err != nil {
				return fmt.Errorf("failed to list documents: %w", err)
			}
			fmt.Printf("Documents %d-%d of %d:\n", min(skip+1, total), skip+len(docs), total)
			for _, d := range docs {
				label := d.Source
				if d.Filename != nil {
					label = *d.Filename
				}
				preview := d.Preview
				if preview == "" {
					preview = d.Text
				}
				fmt.Printf("- %s (%s)\n", d.ID, label)
				fmt.Printf("   %s\n", truncateString(oneLine(preview), 70))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&skip, "skip", 0, "Documents to skip")
	cmd.Flags().IntVar(&limit, "limit", 20, "Documents to show")
	return cmd
}

func newRAGClearCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to clear the knowledge base without --yes")
			}
			client, _, err := clientFor(cmd)
			if err != nil {
				return err
			}
			if err := client.ClearDocuments(cmd.Context()); err != nil {
				return fmt.Errorf("failed to clear documents: %w", err)
			}
			fmt.Println("Knowledge base cleared")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deleting all documents")
	return cmd
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
