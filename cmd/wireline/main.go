package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/wireline-net/wireline/internal/cli"
)

func main() {
	command := NewWirelineCommand()
	if err := command.Execute(); err != nil {
		os.Exit(1)
	}
}

func NewWirelineCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wireline [flags] [options]",
		Short: "wireline controls the device automation job engine.",
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
			os.Exit(1)
		},
	}
	cmd.AddCommand(cli.NewCmdGet())
	cmd.AddCommand(cli.NewCmdSubmit())
	cmd.AddCommand(cli.NewCmdCancel())
	cmd.AddCommand(cli.NewCmdLogs())
	cmd.AddCommand(cli.NewCmdImport())
	cmd.AddCommand(cli.NewCmdVersion())

	return cmd
}
