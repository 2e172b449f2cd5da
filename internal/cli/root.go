package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"docport/config"
	"docport/internal/logger"
)

var (
	cfgFile   string
	workspace string
	cfg       *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "docport",
	Short: "Document portal - ingest documents, ask questions, compare versions",
	Long: `docport ingests PDF and plaintext documents into session-scoped vector
indexes, answers natural-language questions grounded in document content,
extracts structured metadata, and compares two document versions.

Example usage:
  docport ingest report.pdf               # Extract, embed and index a document
  docport ask -s <session> -q "topic?"    # Ask a question against a session
  docport compare v1.pdf v2.pdf           # Diff two document versions
  docport serve                           # Start the HTTP API`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// API keys commonly live in a .env next to the binary.
		_ = godotenv.Load()

		var err error
		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(".")
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if workspace != "" {
			cfg.Session.WorkspaceDir = workspace
		}
		logger.SetLevel(cfg.Logging.Level)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./docport.yaml)")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "workspace directory (default from config)")
}

func GetConfig() *config.Config {
	return cfg
}
