package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	api "github.com/wireline-net/wireline/api/v1"
)

const waitPollInterval = 2 * time.Second

type SubmitOptions struct {
	GlobalOptions

	Type        string
	Commands    []string
	SnippetFile string
	Mode        string
	Devices     []string
	Site        string
	Role        string
	Vendor      string
	Platform    string
	EnabledOnly bool
	Confirm     bool
	Preview     string
	Wait        bool
}

func DefaultSubmitOptions() *SubmitOptions {
	return &SubmitOptions{
		GlobalOptions: DefaultGlobalOptions(),
	}
}

func NewCmdSubmit() *cobra.Command {
	o := DefaultSubmitOptions()
	cmd := &cobra.Command{
		Use:     "submit --type TYPE [flags]",
		Short:   "Submit a job against the device inventory.",
		Example: "  submit --type run_commands --command 'show version' --site fra1\n  submit --type deploy_commit --preview 4bb0… --confirm",
		Args:    cobra.NoArgs,
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

	if err := cmd.MarkFlagRequired("type"); err != nil {
		panic(err)
	}

	return cmd
}

func (o *SubmitOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.StringVar(&o.Type, "type", o.Type, "Job type: run_commands, backup, deploy_preview or deploy_commit")
	fs.StringArrayVar(&o.Commands, "command", o.Commands, "Command to run. May be repeated.")
	fs.StringVar(&o.SnippetFile, "snippet-file", o.SnippetFile, "Path to a config snippet for deploy_preview")
	fs.StringVar(&o.Mode, "mode", o.Mode, "Deploy mode: merge or replace")
	fs.StringArrayVar(&o.Devices, "device", o.Devices, "Target device id. May be repeated.")
	fs.StringVar(&o.Site, "site", o.Site, "Target devices by site")
	fs.StringVar(&o.Role, "role", o.Role, "Target devices by role")
	fs.StringVar(&o.Vendor, "vendor", o.Vendor, "Target devices by vendor")
	fs.StringVar(&o.Platform, "platform", o.Platform, "Target devices by platform")
	fs.BoolVar(&o.EnabledOnly, "enabled-only", o.EnabledOnly, "Target enabled devices only")
	fs.BoolVar(&o.Confirm, "confirm", o.Confirm, "Confirm dangerous commands or a config commit")
	fs.StringVar(&o.Preview, "preview", o.Preview, "Preview job id to commit (deploy_commit)")
	fs.BoolVar(&o.Wait, "wait", o.Wait, "Block until the job reaches a terminal state")
}

func (o *SubmitOptions) Complete(cmd *cobra.Command, args []string) error {
	return o.GlobalOptions.Complete(cmd, args)
}

func (o *SubmitOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}

	for _, raw := range o.Devices {
		if _, err := uuid.Parse(raw); err != nil {
			return fmt.Errorf("invalid device id %q: %w", raw, err)
		}
	}
	if o.Preview != "" {
		if _, err := uuid.Parse(o.Preview); err != nil {
			return fmt.Errorf("invalid preview id %q: %w", o.Preview, err)
		}
	}
	return nil
}

func (o *SubmitOptions) Run(ctx context.Context, args []string) error {
	submission, err := o.buildSubmission()
	if err != nil {
		return err
	}

	c := o.Client()
	job, err := c.SubmitJob(ctx, *submission)
	if err != nil {
		return fmt.Errorf("submitting job: %w", err)
	}

	fmt.Printf("job %s submitted (%s)\n", job.ID, job.State)

	if !o.Wait {
		return nil
	}
	return o.wait(ctx, job.ID)
}

func (o *SubmitOptions) buildSubmission() (*api.JobSubmission, error) {
	submission := &api.JobSubmission{
		Type:    api.JobType(o.Type),
		Confirm: o.Confirm,
		Target: api.TargetSpec{
			Site:        o.Site,
			Role:        o.Role,
			Vendor:      o.Vendor,
			Platform:    o.Platform,
			EnabledOnly: o.EnabledOnly,
		},
	}

	for _, raw := range o.Devices {
		submission.Target.DeviceIDs = append(submission.Target.DeviceIDs, uuid.MustParse(raw))
	}

	submission.Payload.Commands = o.Commands
	if o.SnippetFile != "" {
		content, err := os.ReadFile(o.SnippetFile)
		if err != nil {
			return nil, fmt.Errorf("reading snippet file: %w", err)
		}
		submission.Payload.Snippet = string(content)
	}
	if o.Mode != "" {
		submission.Payload.Mode = api.DeployMode(o.Mode)
	}
	if o.Preview != "" {
		id := uuid.MustParse(o.Preview)
		submission.PreviewID = &id
	}

	return submission, nil
}

func (o *SubmitOptions) wait(ctx context.Context, id uuid.UUID) error {
	c := o.Client()
	ticker := time.NewTicker(waitPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			job, err := c.GetJob(ctx, id)
			if err != nil {
				return fmt.Errorf("polling job: %w", err)
			}
			if !job.State.Terminal() {
				continue
			}

			fmt.Printf("job %s finished: %s (%d/%d succeeded)\n",
				job.ID, job.State, job.TargetsSucceeded, job.TargetsTotal)
			if job.State == api.JobStateFailed {
				return fmt.Errorf("job %s failed", job.ID)
			}
			return nil
		}
	}
}
