package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type LogsOptions struct {
	GlobalOptions
}

func DefaultLogsOptions() *LogsOptions {
	return &LogsOptions{
		GlobalOptions: DefaultGlobalOptions(),
	}
}

func NewCmdLogs() *cobra.Command {
	o := DefaultLogsOptions()
	cmd := &cobra.Command{
		Use:   "logs JOB_ID",
		Short: "Print the audit trail of a job.",
		Args:  cobra.ExactArgs(1),
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

func (o *LogsOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)
}

func (o *LogsOptions) Complete(cmd *cobra.Command, args []string) error {
	return o.GlobalOptions.Complete(cmd, args)
}

func (o *LogsOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	if _, err := uuid.Parse(args[0]); err != nil {
		return fmt.Errorf("invalid job id %q: %w", args[0], err)
	}
	return nil
}

func (o *LogsOptions) Run(ctx context.Context, args []string) error {
	c := o.Client()

	entries, err := c.GetJobLogs(ctx, uuid.MustParse(args[0]))
	if err != nil {
		return fmt.Errorf("reading job logs: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 1, '\t', 0)
	for _, entry := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\n", entry.CreatedAt.Format("2006-01-02 15:04:05"), entry.Level, entry.Message)
	}
	w.Flush()
	return nil
}
