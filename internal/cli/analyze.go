package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"docport/internal/adapter/extract"
	"docport/internal/usecase"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <path>",
	Short: "Extract structured metadata from a document",
	Long: `Run the analysis workflow against a single document and print the
extracted metadata (title, summary, key topics, document type) as JSON.

Example:
  docport analyze quarterly_report.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	doc, err := extract.New().Extract(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	generator, err := newGenerator()
	if err != nil {
		return err
	}

	insights, err := usecase.NewAnalyzeUseCase(generator).Analyze(cmd.Context(), doc)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(insights, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
