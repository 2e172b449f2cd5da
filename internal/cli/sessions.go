package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List and manage sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := openWorkspace()
		if err != nil {
			return err
		}
		defer deps.Close()

		sessions, err := deps.manager.List()
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Println("No sessions.")
			return nil
		}
		for _, s := range sessions {
			docs, err := deps.manager.Documents(s.ID)
			if err != nil {
				return err
			}
			fmt.Printf("%s  %s  %d document(s)\n", s.ID, s.CreatedAt.Format("2006-01-02 15:04:05"), len(docs))
		}
		return nil
	},
}

var sessionsDestroyCmd = &cobra.Command{
	Use:   "destroy <session-id>",
	Short: "Delete a session and its index artifacts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := openWorkspace()
		if err != nil {
			return err
		}
		defer deps.Close()

		if err := deps.manager.Destroy(args[0]); err != nil {
			return err
		}
		fmt.Printf("Destroyed %s\n", args[0])
		return nil
	},
}

var sessionsKeep int

var sessionsCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Destroy all but the most recent sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := openWorkspace()
		if err != nil {
			return err
		}
		defer deps.Close()

		keep := sessionsKeep
		if !cmd.Flags().Changed("keep") {
			keep = cfg.Session.KeepLatest
		}
		removed, err := deps.manager.CleanOld(keep)
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d session(s), kept the %d most recent\n", removed, keep)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsDestroyCmd)
	sessionsCmd.AddCommand(sessionsCleanCmd)
	sessionsCleanCmd.Flags().IntVar(&sessionsKeep, "keep", 0, "sessions to keep (default from config)")
}
