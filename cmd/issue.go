package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	issueTitle     string
	issueBody      string
	issueComment   string
	issueLabels    []string
	issueAssignees []string
)

var issueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Manage issues on the configured repository",
}

var issueOpenCmd = &cobra.Command{
	Use:   "open",
	Short: "Open an issue unless one with the same title is already open",
	RunE: func(cmd *cobra.Command, _ []string) error {
		session, cleanup, err := newSession(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		issue, err := session.OpenIssueIfNotExists(
			cmd.Context(),
			issueTitle,
			func() string { return issueBody },
			nil,
			issueLabels,
		)
		if err != nil {
			return err
		}

		if len(issueAssignees) > 0 {
			if err := session.Assign(cmd.Context(), issue, issueAssignees); err != nil {
				return err
			}
		}

		cmd.Printf("#%d %s\n", issue.Number, issue.URL)
		return nil
	},
}

var issueCloseCmd = &cobra.Command{
	Use:   "close",
	Short: "Close the open issue with the given title, if it exists",
	RunE: func(cmd *cobra.Command, _ []string) error {
		session, cleanup, err := newSession(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		return session.CloseIssueIfExists(cmd.Context(), issueTitle, issueComment)
	},
}

var issueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List open issues, or look up one by title",
	RunE: func(cmd *cobra.Command, _ []string) error {
		session, cleanup, err := newSession(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		if issueTitle != "" {
			issue, err := session.GetIssue(cmd.Context(), issueTitle)
			if err != nil {
				return err
			}
			if issue == nil {
				return fmt.Errorf("no open issue titled %q", issueTitle)
			}
			cmd.Printf("#%d\t%s\t%s\n", issue.Number, issue.Title, issue.URL)
			return nil
		}

		issues, err := session.ListOpenIssues(cmd.Context())
		if err != nil {
			return err
		}
		for _, issue := range issues {
			cmd.Printf("#%d\t%s\t%s\n", issue.Number, issue.Title, issue.URL)
		}
		return nil
	},
}

func init() {
	issueOpenCmd.Flags().StringVar(&issueTitle, "title", "", "Issue title, also the deduplication key")
	issueOpenCmd.Flags().StringVar(&issueBody, "body", "", "Issue body for a newly created issue")
	issueOpenCmd.Flags().StringSliceVar(&issueLabels, "label", nil, "Labels to attach, repeatable")
	issueOpenCmd.Flags().StringSliceVar(&issueAssignees, "assignee", nil, "Users to assign, repeatable")
	_ = issueOpenCmd.MarkFlagRequired("title")

	issueCloseCmd.Flags().StringVar(&issueTitle, "title", "", "Title of the issue to close")
	issueCloseCmd.Flags().StringVar(&issueComment, "comment", "", "Comment to post before closing")
	_ = issueCloseCmd.MarkFlagRequired("title")

	issueListCmd.Flags().StringVar(&issueTitle, "title", "", "Look up a single issue by exact title")

	issueCmd.AddCommand(issueOpenCmd, issueCloseCmd, issueListCmd)
	root.AddCommand(issueCmd)
}
