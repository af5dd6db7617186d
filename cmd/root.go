package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/worklane/portal-realtime/internal/app"
)

var rootCmd = &cobra.Command{
	Use:           "portald",
	Short:         "Headless realtime session daemon for the employee portal",
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		app.New().Run()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
