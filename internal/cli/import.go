package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type ImportOptions struct {
	GlobalOptions
}

func DefaultImportOptions() *ImportOptions {
	return &ImportOptions{
		GlobalOptions: DefaultGlobalOptions(),
	}
}

func NewCmdImport() *cobra.Command {
	o := DefaultImportOptions()
	cmd := &cobra.Command{
		Use:     "import FILE",
		Short:   "Import a device inventory spreadsheet (.xlsx).",
		Example: "  import inventory.xlsx",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(args); err != nil {
				return err
			}
			return o.Run(cmd.Context(), args)
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *ImportOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)
}

func (o *ImportOptions) Complete(cmd *cobra.Command, args []string) error {
	return o.GlobalOptions.Complete(cmd, args)
}

func (o *ImportOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	info, err := os.Stat(args[0])
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", args[0])
	}
	return nil
}

func (o *ImportOptions) Run(ctx context.Context, args []string) error {
	file, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer file.Close()

	c := o.Client()
	report, err := c.ImportDevices(ctx, filepath.Base(args[0]), file)
	if err != nil {
		return fmt.Errorf("importing devices: %w", err)
	}

	fmt.Printf("created: %d, updated: %d, skipped: %d\n", report.Created, report.Updated, report.Skipped)
	for _, line := range report.Errors {
		fmt.Printf("  %s\n", line)
	}
	return nil
}
