package cli

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"docport/internal/adapter/extract"
	"docport/internal/adapter/fs"
	"docport/internal/domain"
	"docport/internal/usecase"
)

var (
	ingestSession  string
	ingestWorkflow string
	ingestInclude  []string
	ingestExclude  []string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [paths...]",
	Short: "Extract, embed and index documents into a session",
	Long: `Ingest files or directories into a session-scoped vector index.
Directories are scanned for PDF, text and markdown files. Unchanged
documents reuse the persisted index instead of re-embedding.

Examples:
  docport ingest report.pdf                  # New session, single document
  docport ingest ./contracts                 # New session, every document found
  docport ingest -s session_... extra.pdf    # Add to an existing session`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringVarP(&ingestSession, "session", "s", "", "existing session id (default creates a new session)")
	ingestCmd.Flags().StringVar(&ingestWorkflow, "workflow", "", "index workflow: single or multi (default by document count)")
	ingestCmd.Flags().StringSliceVar(&ingestInclude, "include", nil, "glob patterns to include when scanning directories")
	ingestCmd.Flags().StringSliceVar(&ingestExclude, "exclude", nil, "glob patterns to exclude when scanning directories")
}

func runIngest(cmd *cobra.Command, args []string) error {
	walker := fs.NewWalker(ingestInclude, ingestExclude)
	var paths []string
	for _, arg := range args {
		files, err := walker.Walk(arg)
		if err != nil {
			return fmt.Errorf("scan %s: %w", arg, err)
		}
		for _, f := range files {
			paths = append(paths, f.Path)
		}
	}
	if len(paths) == 0 {
		return fmt.Errorf("no ingestable documents found under %v", args)
	}

	workflow := domain.Workflow(ingestWorkflow)
	if ingestWorkflow == "" {
		workflow = domain.WorkflowMulti
		if len(paths) == 1 {
			workflow = domain.WorkflowSingle
		}
	}

	deps, err := openWorkspace()
	if err != nil {
		return err
	}
	defer deps.Close()

	sessionID := ingestSession
	if sessionID == "" {
		sess, err := deps.manager.Create()
		if err != nil {
			return err
		}
		sessionID = sess.ID
	}

	bar := progressbar.NewOptions(len(paths),
		progressbar.OptionSetDescription("Extracting"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() { fmt.Println() }),
	)

	ingestUC := usecase.NewIngestUseCase(extract.New(), deps.manager)
	result, err := ingestUC.Ingest(cmd.Context(), sessionID, workflow, paths, func(done, total int, name string) {
		bar.Set(done)
	})
	if err != nil {
		return err
	}

	fmt.Printf("Session:   %s\n", result.SessionID)
	fmt.Printf("Workflow:  %s\n", result.Workflow)
	fmt.Printf("Documents: %d\n", len(result.Documents))
	if result.Reused {
		fmt.Printf("Index:     reused (%d passages, fingerprint %s)\n", result.Index.Meta.Count, result.Index.Meta.Fingerprint)
	} else {
		fmt.Printf("Index:     built (%d passages, fingerprint %s)\n", result.Index.Meta.Count, result.Index.Meta.Fingerprint)
	}
	return nil
}
