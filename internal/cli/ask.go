package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"docport/internal/domain"
	"docport/internal/usecase"
)

var (
	askQuestion string
	askSession  string
	askWorkflow string
	askTopK     int
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Ask a question grounded in a session's documents",
	Long: `Answer a natural-language question from the session's indexed documents.
The answer cites the passages it was grounded on.

Examples:
  docport ask -s session_... -q "What are the payment terms?"
  docport ask -s session_... -q "Who signed it?" --top-k 8`,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askQuestion, "question", "q", "", "question to answer (required)")
	askCmd.Flags().StringVarP(&askSession, "session", "s", "", "session id (required)")
	askCmd.Flags().StringVar(&askWorkflow, "workflow", "", "index workflow: single or multi (default by document count)")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "passages to retrieve (default from config)")
	askCmd.MarkFlagRequired("question")
	askCmd.MarkFlagRequired("session")
}

func runAsk(cmd *cobra.Command, args []string) error {
	deps, err := openWorkspace()
	if err != nil {
		return err
	}
	defer deps.Close()

	if _, err := deps.manager.Get(askSession); err != nil {
		return err
	}
	docs, err := deps.manager.Documents(askSession)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("session %s holds no documents, run 'docport ingest' first", askSession)
	}

	workflow := domain.Workflow(askWorkflow)
	if askWorkflow == "" {
		workflow = domain.WorkflowMulti
		if len(docs) == 1 {
			workflow = domain.WorkflowSingle
		}
	}
	if workflow == domain.WorkflowSingle {
		sort.Slice(docs, func(i, j int) bool { return docs[i].AddedAt.Before(docs[j].AddedAt) })
		docs = docs[len(docs)-1:]
	}

	ix, _, err := deps.manager.GetOrCreateIndex(cmd.Context(), askSession, workflow, docs)
	if err != nil {
		return err
	}

	generator, err := newGenerator()
	if err != nil {
		return err
	}

	topK := cfg.Query.TopK
	if askTopK > 0 {
		topK = askTopK
	}
	queryUC := usecase.NewQueryUseCase(deps.embedder, generator, topK, cfg.Query.MaxHistoryTurns, cfg.Query.ContextCharBudget)

	answer, err := queryUC.Answer(cmd.Context(), ix, askQuestion, nil)
	if err != nil {
		return err
	}

	fmt.Println(answer.Text)
	if len(answer.Citations) > 0 {
		fmt.Println("\nSources:")
		for _, c := range answer.Citations {
			loc := ""
			if c.Passage.Page > 0 {
				loc = fmt.Sprintf(" p.%d", c.Passage.Page)
			}
			fmt.Printf("  [%d]%s doc %.12s (score %.3f)\n", c.Ref, loc, c.Passage.DocChecksum, c.Score)
		}
	}
	return nil
}
