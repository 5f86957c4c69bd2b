package cmd

import (
	"github.com/spf13/cobra"
)

// configCmd prints the resolved configuration with secrets masked.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the resolved configuration, secrets masked",
	RunE: func(cmd *cobra.Command, _ []string) error {
		marshaled, err := appConfig.MarshalJSON()
		if err != nil {
			return err
		}
		cmd.Println(string(marshaled))
		return nil
	},
}

func init() {
	root.AddCommand(configCmd)
}
