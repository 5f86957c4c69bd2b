package cmd

import (
	"github.com/spf13/cobra"
)

var branchName string

var branchCmd = &cobra.Command{
	Use:   "branch",
	Short: "Manage branches on the configured repository",
}

var branchListCmd = &cobra.Command{
	Use:   "list",
	Short: "List remote branches",
	RunE: func(cmd *cobra.Command, _ []string) error {
		session, cleanup, err := newSession(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		branches, err := session.ListBranches(cmd.Context())
		if err != nil {
			return err
		}
		for _, branch := range branches {
			cmd.Println(branch.Name)
		}
		return nil
	},
}

var branchDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a remote branch",
	RunE: func(cmd *cobra.Command, _ []string) error {
		session, cleanup, err := newSession(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		return session.DeleteBranch(cmd.Context(), branchName)
	},
}

func init() {
	branchDeleteCmd.Flags().StringVar(&branchName, "name", "", "Name of the branch to delete")
	_ = branchDeleteCmd.MarkFlagRequired("name")

	branchCmd.AddCommand(branchListCmd, branchDeleteCmd)
	root.AddCommand(branchCmd)
}
