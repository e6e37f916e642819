package engine

import (
	"fmt"

	"github.com/google/uuid"
	api "github.com/wireline-net/wireline/api/v1"
	"github.com/wireline-net/wireline/internal/store/model"
)

type workKind int

const (
	workCommands workKind = iota
	workBackup
	workPreview
	workApply
)

// workUnit is the type-specific payload a job dispatches to each device. For
// apply units, allowed holds the device set the originating preview reviewed;
// a device outside it fails without a transport call.
type workUnit struct {
	kind     workKind
	commands []string
	snippet  string
	mode     string
	allowed  map[uuid.UUID]struct{}
}

func buildWorkUnit(job *model.Job) (*workUnit, error) {
	var payload api.JobPayload
	if job.Payload != nil {
		payload = job.Payload.Data
	}

	switch job.Type {
	case model.JobTypeRunCommands:
		return &workUnit{kind: workCommands, commands: payload.Commands}, nil
	case model.JobTypeBackup:
		return &workUnit{kind: workBackup}, nil
	case model.JobTypeDeployPreview:
		return &workUnit{kind: workPreview, snippet: payload.Snippet, mode: string(payload.Mode)}, nil
	case model.JobTypeDeployCommit:
		return &workUnit{kind: workApply, snippet: payload.Snippet, mode: string(payload.Mode)}, nil
	default:
		return nil, fmt.Errorf("unknown job type %q", job.Type)
	}
}
