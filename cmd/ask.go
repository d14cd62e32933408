package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/docqa/docqa/internal/rag"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about your documents",
	Long:  `Retrieves the passages most relevant to the question and generates a grounded answer with source citations and a confidence score.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().Bool("json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, cleanup, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	engine, err := newEngine(cfg, store)
	if err != nil {
		return err
	}

	answer, err := engine.Answer(ctx, args[0])
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(answer)
	}

	printAnswer(answer)
	return nil
}

func printAnswer(answer *rag.Answer) {
	fmt.Println(answer.Text)
	fmt.Printf("\nConfidence: %.0f%%\n", answer.Confidence*100)

	if len(answer.Sources) > 0 {
		fmt.Println("\nSources:")
		for i, src := range answer.Sources {
			fmt.Printf("  %d. [%.1f%%] %s, page %d\n", i+1, src.Score*100, src.Document, src.Page)
		}
	}
}
