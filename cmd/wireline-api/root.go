package main

import "github.com/spf13/cobra"

var rootCmd = &cobra.Command{
	Use:   "wireline-api",
	Short: "Wireline device automation API server",
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(runCmd)
}
