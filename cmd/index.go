package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docqa/docqa/internal/docstore"
	"github.com/docqa/docqa/internal/progress"
	"github.com/docqa/docqa/internal/walker"
)

var indexCmd = &cobra.Command{
	Use:   "index [path|dir|glob]...",
	Short: "Add documents to the collection",
	Long: `Discovers document files from the given paths, directories and glob
patterns, then chunks, embeds and indexes them locally. Supported
formats: pdf, docx, md, txt. Unchanged files are skipped; changed
files with the same name replace the previous version.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	files, err := walker.Discover(args, walker.Config{
		Exclude:     cfg.Ingest.Exclude,
		MaxFileSize: cfg.Ingest.MaxFileSize,
	})
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Println("No document files found.")
		return nil
	}

	store, cleanup, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}

	reporter := progress.NewReporter()
	reporter.Start(len(paths))
	done := 0
	onDocument := func(doc docstore.Document) {
		done++
		reporter.Update(done, doc.Name)
	}

	docs, batchErr := store.AddFiles(ctx, paths, nil, onDocument)
	reporter.Finish()

	indexed, failed := 0, 0
	for _, doc := range docs {
		switch doc.Status {
		case docstore.StatusIndexed:
			indexed++
		case docstore.StatusError:
			failed++
			fmt.Printf("  %s: %s\n", doc.Name, doc.ErrorMessage)
		}
	}
	fmt.Printf("Indexed %d document(s), %d failed.\n", indexed, failed)

	if batchErr != nil {
		return fmt.Errorf("indexing aborted: %w", batchErr)
	}
	return nil
}
