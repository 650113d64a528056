package main

import (
	"carebot/internal/app"
	"fmt"

	"github.com/spf13/cobra"
)

var workflowsCmd = &cobra.Command{
	Use:   "workflows",
	Short: "Print the business module workflows",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), app.WorkflowsText())
	},
}

func init() {
	rootCmd.AddCommand(workflowsCmd)
}
