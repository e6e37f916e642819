package transport

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// LabDriver is the development driver. It answers every call from a
// deterministic in-memory model of the device, so jobs can be exercised end
// to end without touching hardware.
type LabDriver struct {
	latency time.Duration
}

func NewLabDriver() *LabDriver {
	return &LabDriver{latency: 10 * time.Millisecond}
}

func (d *LabDriver) RunCommands(ctx context.Context, ep Endpoint, commands []string) (string, error) {
	if err := d.connect(ctx, ep); err != nil {
		return "", err
	}

	var out strings.Builder
	for _, cmd := range commands {
		fmt.Fprintf(&out, "%s# %s\n", ep.Hostname, cmd)
		out.WriteString(d.respond(ep, cmd))
		out.WriteString("\n")
	}
	return out.String(), nil
}

func (d *LabDriver) FetchConfig(ctx context.Context, ep Endpoint) (string, error) {
	if err := d.connect(ctx, ep); err != nil {
		return "", err
	}
	return d.runningConfig(ep), nil
}

func (d *LabDriver) DiffConfig(ctx context.Context, ep Endpoint, snippet, mode string) (string, error) {
	if err := d.connect(ctx, ep); err != nil {
		return "", err
	}

	running := d.runningConfig(ep)
	var diff strings.Builder

	if mode == "replace" {
		for _, line := range strings.Split(running, "\n") {
			if line == "" {
				continue
			}
			fmt.Fprintf(&diff, "- %s\n", line)
		}
	}
	for _, line := range strings.Split(snippet, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if mode != "replace" && strings.Contains(running, trimmed) {
			continue
		}
		fmt.Fprintf(&diff, "+ %s\n", line)
	}
	return diff.String(), nil
}

func (d *LabDriver) ApplyConfig(ctx context.Context, ep Endpoint, snippet, mode string) (string, error) {
	if err := d.connect(ctx, ep); err != nil {
		return "", err
	}

	lines := 0
	for _, line := range strings.Split(snippet, "\n") {
		if strings.TrimSpace(line) != "" {
			lines++
		}
	}
	return fmt.Sprintf("applied %d configuration lines (mode %s)", lines, mode), nil
}

// connect simulates session setup. An endpoint without a management address
// is unreachable, everything else answers after a fixed latency.
func (d *LabDriver) connect(ctx context.Context, ep Endpoint) error {
	if ep.Address == "" {
		return NewError(Unreachable, "device %s has no management address", ep.Hostname)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d.latency):
		return nil
	}
}

func (d *LabDriver) respond(ep Endpoint, cmd string) string {
	switch {
	case strings.HasPrefix(cmd, "show version"):
		return fmt.Sprintf("%s %s, lab image", ep.Vendor, ep.Platform)
	case strings.HasPrefix(cmd, "show running-config"):
		return d.runningConfig(ep)
	case strings.HasPrefix(cmd, "show"):
		return "ok"
	default:
		return "%% applied"
	}
}

func (d *LabDriver) runningConfig(ep Endpoint) string {
	return fmt.Sprintf(`hostname %s
!
interface Loopback0
 description management
 ip address %s 255.255.255.255
!
line vty 0 4
 transport input ssh
!
end`, ep.Hostname, ep.Address)
}
