package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"docport/internal/adapter/extract"
	"docport/internal/compare"
	"docport/internal/domain"
	"docport/internal/usecase"
)

var (
	compareSummarize bool
	compareJSON      bool
	compareThreshold float64
)

var compareCmd = &cobra.Command{
	Use:   "compare <reference> <candidate>",
	Short: "Compare two document versions passage by passage",
	Long: `Chunk both document versions with identical parameters, align the
passages, and report what was added, removed or modified.

Examples:
  docport compare contract_v1.pdf contract_v2.pdf
  docport compare old.md new.md --summarize`,
	Args: cobra.ExactArgs(2),
	RunE: runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)
	compareCmd.Flags().BoolVar(&compareSummarize, "summarize", false, "narrate the diff through the generation backend")
	compareCmd.Flags().BoolVar(&compareJSON, "json", false, "output the full diff as JSON")
	compareCmd.Flags().Float64Var(&compareThreshold, "threshold", 0, "modified-vs-replaced similarity cutoff (default from config)")
}

func runCompare(cmd *cobra.Command, args []string) error {
	extractor := extract.New()
	reference, err := extractor.Extract(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	candidate, err := extractor.Extract(cmd.Context(), args[1])
	if err != nil {
		return err
	}

	ch, err := newChunker()
	if err != nil {
		return err
	}
	threshold := cfg.Compare.ModifiedThreshold
	if compareThreshold > 0 {
		threshold = compareThreshold
	}
	compareUC := usecase.NewCompareUseCase(ch, compare.NewDiffer(threshold), nil)

	result, err := compareUC.Compare(reference, candidate)
	if err != nil {
		return err
	}

	if compareJSON {
		out, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(out))
		return nil
	}

	fmt.Printf("Comparing %s -> %s\n", reference.Name, candidate.Name)
	fmt.Printf("%d unchanged, %d modified, %d added, %d removed\n\n",
		result.Unchanged, result.Modified, result.Added, result.Removed)

	for _, d := range result.Diffs {
		switch d.Kind {
		case domain.DiffModified:
			fmt.Printf("~ %s\n  was: %s\n  now: %s\n", passageLoc(d.Old), clipText(d.Old.Text), clipText(d.New.Text))
		case domain.DiffAdded:
			fmt.Printf("+ %s %s\n", passageLoc(d.New), clipText(d.New.Text))
		case domain.DiffRemoved:
			fmt.Printf("- %s %s\n", passageLoc(d.Old), clipText(d.Old.Text))
		}
	}

	if compareSummarize {
		generator, err := newGenerator()
		if err != nil {
			return err
		}
		summaryUC := usecase.NewCompareUseCase(ch, compare.NewDiffer(threshold), generator)
		summary, err := summaryUC.Summarize(cmd.Context(), result)
		if err != nil {
			return err
		}
		fmt.Printf("\nSummary:\n%s\n", summary)
	}
	return nil
}

func passageLoc(p *domain.Passage) string {
	if p == nil {
		return ""
	}
	if p.Page > 0 {
		return fmt.Sprintf("[p.%d #%d]", p.Page, p.Seq)
	}
	return fmt.Sprintf("[#%d]", p.Seq)
}

func clipText(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > 100 {
		return s[:100] + "..."
	}
	return s
}
