package cmd

import (
	"time"

	"github.com/spf13/cobra"
)

// tokenCmd verifies credentials without printing the token itself.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Check forge credentials and show the access token lifetime",
	RunE: func(cmd *cobra.Command, _ []string) error {
		session, cleanup, err := newSession(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		token, deadline, err := session.Token(cmd.Context())
		if err != nil {
			return err
		}

		if deadline.IsZero() {
			cmd.Println("static token, no managed expiry")
			return nil
		}
		cmd.Printf("installation token issued at %s, next refresh at %s\n",
			token.IssuedAt.Format(time.RFC3339),
			deadline.Format(time.RFC3339),
		)
		return nil
	},
}

func init() {
	root.AddCommand(tokenCmd)
}
