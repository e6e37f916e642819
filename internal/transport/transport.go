// Package transport defines the contract between the job engine and the
// device drivers. The engine never speaks SSH or NETCONF itself; it hands a
// uniform Driver an endpoint and a payload and gets back raw output or a
// classified error.
package transport

import (
	"context"
	"fmt"
)

// Endpoint identifies one reachable device.
type Endpoint struct {
	Hostname string
	Address  string
	Vendor   string
	Platform string
}

// Driver is implemented per transport backend. All calls block until done or
// ctx expires; implementations must honor ctx cancellation.
type Driver interface {
	// RunCommands executes a command batch and returns the combined output.
	RunCommands(ctx context.Context, ep Endpoint, commands []string) (string, error)
	// FetchConfig returns the device running configuration.
	FetchConfig(ctx context.Context, ep Endpoint) (string, error)
	// DiffConfig computes the delta a snippet would cause without applying
	// it. mode is "merge" or "replace".
	DiffConfig(ctx context.Context, ep Endpoint, snippet, mode string) (string, error)
	// ApplyConfig applies a snippet to the device configuration.
	ApplyConfig(ctx context.Context, ep Endpoint, snippet, mode string) (string, error)
}

// NewDriver builds the driver selected by name.
func NewDriver(name string) (Driver, error) {
	switch name {
	case "lab", "":
		return NewLabDriver(), nil
	default:
		return nil, fmt.Errorf("unknown transport driver %q", name)
	}
}
