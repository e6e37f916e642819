package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrQueueFull is returned by Enqueue when the job queue is at capacity.
	// Submissions are rejected synchronously rather than blocked.
	ErrQueueFull = errors.New("job queue is full")
	// ErrStopped is returned by Enqueue after the engine began shutting down.
	ErrStopped = errors.New("engine is stopped")
)

// InvalidTargetError reports explicit device ids that are not visible in the
// caller's inventory. Naming the ids matters: a cross-tenant id must be
// rejected loudly, never silently dropped.
type InvalidTargetError struct {
	IDs []uuid.UUID
}

func (e *InvalidTargetError) Error() string {
	ids := make([]string, 0, len(e.IDs))
	for _, id := range e.IDs {
		ids = append(ids, id.String())
	}
	return fmt.Sprintf("devices not found in inventory: %s", strings.Join(ids, ", "))
}
