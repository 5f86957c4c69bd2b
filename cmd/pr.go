package cmd

import (
	"github.com/spf13/cobra"
)

var (
	prTitle  string
	prBranch string
	prBody   string
	prLabels []string
)

var prCmd = &cobra.Command{
	Use:   "pr",
	Short: "Manage pull and merge requests on the configured repository",
}

var prOpenCmd = &cobra.Command{
	Use:   "open",
	Short: "Open a pull/merge request from a branch into the base branch",
	RunE: func(cmd *cobra.Command, _ []string) error {
		session, cleanup, err := newSession(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		pr, err := session.OpenMergeRequest(cmd.Context(), prTitle, prBranch, prBody, prLabels)
		if err != nil {
			return err
		}
		cmd.Printf("#%d %s\n", pr.Number, pr.URL)
		return nil
	},
}

var prListCmd = &cobra.Command{
	Use:   "list",
	Short: "List open pull/merge requests",
	RunE: func(cmd *cobra.Command, _ []string) error {
		session, cleanup, err := newSession(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		prs, err := session.GetPRs(cmd.Context())
		if err != nil {
			return err
		}
		for _, pr := range prs {
			cmd.Printf("#%d\t%s\t%s\t%s\n", pr.Number, pr.SourceBranch, pr.Title, pr.URL)
		}
		return nil
	},
}

func init() {
	prOpenCmd.Flags().StringVar(&prTitle, "title", "", "Title of the pull/merge request")
	prOpenCmd.Flags().StringVar(&prBranch, "branch", "", "Source branch of the pull/merge request")
	prOpenCmd.Flags().StringVar(&prBody, "body", "", "Description body")
	prOpenCmd.Flags().StringSliceVar(&prLabels, "label", nil, "Labels to attach, repeatable")
	_ = prOpenCmd.MarkFlagRequired("title")
	_ = prOpenCmd.MarkFlagRequired("branch")

	prCmd.AddCommand(prOpenCmd, prListCmd)
	root.AddCommand(prCmd)
}
