package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/thoas/go-funk"
	"sigs.k8s.io/yaml"

	api "github.com/wireline-net/wireline/api/v1"
)

const (
	jsonFormat = "json"
	yamlFormat = "yaml"
)

var (
	legalOutputTypes = []string{jsonFormat, yamlFormat}
)

type GetOptions struct {
	GlobalOptions

	Output string
	States []string
	Type   string
}

func DefaultGetOptions() *GetOptions {
	return &GetOptions{
		GlobalOptions: DefaultGlobalOptions(),
	}
}

func NewCmdGet() *cobra.Command {
	o := DefaultGetOptions()
	cmd := &cobra.Command{
		Use:   "get (TYPE | TYPE/ID)",
		Short: "Display one or many resources.",
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

func (o *GetOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.StringVarP(&o.Output, "output", "o", o.Output, fmt.Sprintf("Output format. One of: (%s).", strings.Join(legalOutputTypes, ", ")))
	fs.StringArrayVar(&o.States, "state", o.States, "Filter jobs by state. May be repeated.")
	fs.StringVar(&o.Type, "type", o.Type, "Filter jobs by type.")
}

func (o *GetOptions) Complete(cmd *cobra.Command, args []string) error {
	return o.GlobalOptions.Complete(cmd, args)
}

func (o *GetOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}

	if _, _, err := parseAndValidateKindId(args[0]); err != nil {
		return err
	}

	if len(o.Output) > 0 && !funk.Contains(legalOutputTypes, o.Output) {
		return fmt.Errorf("output format must be one of %s", strings.Join(legalOutputTypes, ", "))
	}

	return nil
}

func (o *GetOptions) Run(ctx context.Context, args []string) error {
	c := o.Client()

	kind, id, err := parseAndValidateKindId(args[0])
	if err != nil {
		return err
	}

	var response interface{}
	switch {
	case kind == JobKind && id != nil:
		response, err = c.GetJob(ctx, *id)
	case kind == JobKind && id == nil:
		response, err = c.ListJobs(ctx, o.States, o.Type)
	case kind == DeviceKind && id != nil:
		response, err = c.GetDevice(ctx, *id)
	case kind == DeviceKind && id == nil:
		response, err = c.ListDevices(ctx)
	default:
		return fmt.Errorf("unsupported resource kind: %s", kind)
	}
	if err != nil {
		if id == nil {
			return fmt.Errorf("listing %s: %w", plural(kind), err)
		}
		return fmt.Errorf("reading %s/%s: %w", kind, id, err)
	}

	switch o.Output {
	case jsonFormat:
		marshalled, err := json.Marshal(response)
		if err != nil {
			return fmt.Errorf("marshalling resource: %w", err)
		}
		fmt.Printf("%s\n", string(marshalled))
		return nil
	case yamlFormat:
		marshalled, err := yaml.Marshal(response)
		if err != nil {
			return fmt.Errorf("marshalling resource: %w", err)
		}
		fmt.Printf("%s\n", string(marshalled))
		return nil
	default:
		return printTable(response)
	}
}

func printTable(response interface{}) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 8, 1, '\t', 0)
	switch value := response.(type) {
	case *api.Job:
		printJobsTable(w, *value)
		w.Flush()
		if len(value.Results) > 0 {
			fmt.Println()
			printResultsTable(w, value.Results...)
			w.Flush()
		}
	case api.JobList:
		printJobsTable(w, value...)
		w.Flush()
	case *api.Device:
		printDevicesTable(w, *value)
		w.Flush()
	case api.DeviceList:
		printDevicesTable(w, value...)
		w.Flush()
	default:
		return fmt.Errorf("unknown response type %T", value)
	}
	return nil
}

func printJobsTable(w *tabwriter.Writer, jobs ...api.Job) {
	fmt.Fprintln(w, "ID\tTYPE\tSTATE\tTARGETS\tOK\tFAILED\tCREATED")
	for _, j := range jobs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			j.ID, j.Type, j.State, j.TargetsTotal, j.TargetsSucceeded, j.TargetsFailed,
			j.CreatedAt.Format("2006-01-02 15:04:05"))
	}
}

func printResultsTable(w *tabwriter.Writer, results ...api.DeviceResult) {
	fmt.Fprintln(w, "DEVICE\tHOSTNAME\tSTATUS\tERROR")
	for _, r := range results {
		errText := r.Error
		if r.ErrorKind != "" {
			errText = fmt.Sprintf("[%s] %s", r.ErrorKind, r.Error)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.DeviceID, r.Hostname, r.Status, errText)
	}
}

func printDevicesTable(w *tabwriter.Writer, devices ...api.Device) {
	fmt.Fprintln(w, "ID\tHOSTNAME\tADDRESS\tVENDOR\tPLATFORM\tSITE\tROLE\tENABLED")
	for _, d := range devices {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%t\n",
			d.ID, d.Hostname, d.Address, d.Vendor, d.Platform, d.Site, d.Role, d.Enabled)
	}
}
