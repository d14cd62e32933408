package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docqa/docqa/internal/docstore"
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "List the indexed documents",
	RunE:  runDocsList,
}

var docsRemoveCmd = &cobra.Command{
	Use:   "remove [name]",
	Short: "Remove a document from the collection",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocsRemove,
}

func init() {
	docsCmd.AddCommand(docsRemoveCmd)
	rootCmd.AddCommand(docsCmd)
}

func runDocsList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, cleanup, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	docs, err := store.List(ctx)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		fmt.Println("No documents indexed. Add some with `docqa index <path>`.")
		return nil
	}

	for _, doc := range docs {
		fmt.Println(formatDocumentLine(doc))
	}
	return nil
}

func runDocsRemove(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	name := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, cleanup, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	removed, err := store.Remove(ctx, name)
	if err != nil {
		return err
	}
	if removed {
		fmt.Printf("Removed %s.\n", name)
	} else {
		fmt.Printf("No document named %s.\n", name)
	}
	return nil
}

func formatDocumentLine(doc docstore.Document) string {
	switch doc.Status {
	case docstore.StatusIndexed:
		return fmt.Sprintf("  %-32s %d pages, %d chunks", doc.Name, doc.Pages, doc.Chunks)
	case docstore.StatusError:
		return fmt.Sprintf("  %-32s error: %s", doc.Name, doc.ErrorMessage)
	default:
		return fmt.Sprintf("  %-32s %s", doc.Name, doc.Status)
	}
}
