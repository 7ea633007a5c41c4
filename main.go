package main

import (
	"os"

	"github.com/mattsolo1/grove-assets/cmd"
	"github.com/mattsolo1/grove-core/cli"
)

func main() {
	rootCmd := cli.NewStandardCommand(
		"assets",
		"Static asset pipeline and visual regression runner",
	)
	cmd.RegisterGlobalFlags(rootCmd)

	rootCmd.AddCommand(cmd.NewRunCmd())
	rootCmd.AddCommand(cmd.NewBuildCmd())
	rootCmd.AddCommand(cmd.NewWatchCmd())
	rootCmd.AddCommand(cmd.NewTasksCmd())
	rootCmd.AddCommand(cmd.NewGraphCmd())
	rootCmd.AddCommand(cmd.NewVRCmd())
	rootCmd.AddCommand(cmd.NewConfigCmd())
	rootCmd.AddCommand(cmd.NewVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
