package cli

import (
	"github.com/spf13/cobra"

	"docport/internal/adapter/extract"
	"docport/internal/api"
	"docport/internal/compare"
	"docport/internal/usecase"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Serve the document portal over HTTP: session lifecycle, document
upload, index construction, question answering, comparison and analysis.

Example:
  docport serve
  docport serve --workspace /var/lib/docport`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	deps, err := openWorkspace()
	if err != nil {
		return err
	}
	defer deps.Close()

	generator, err := newGenerator()
	if err != nil {
		return err
	}
	ch, err := newChunker()
	if err != nil {
		return err
	}

	query := usecase.NewQueryUseCase(deps.embedder, generator,
		cfg.Query.TopK, cfg.Query.MaxHistoryTurns, cfg.Query.ContextCharBudget)
	comparer := usecase.NewCompareUseCase(ch, compare.NewDiffer(cfg.Compare.ModifiedThreshold), generator)
	analyzer := usecase.NewAnalyzeUseCase(generator)

	srv := api.New(cfg, deps.manager, extract.New(), query, comparer, analyzer)
	return srv.Start()
}
