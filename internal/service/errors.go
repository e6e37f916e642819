package service

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type ErrResourceNotFound struct {
	error
}

func NewErrResourceNotFound(id uuid.UUID, resourceType string) *ErrResourceNotFound {
	return &ErrResourceNotFound{fmt.Errorf("%s %s not found", resourceType, id)}
}

func NewErrJobNotFound(id uuid.UUID) *ErrResourceNotFound {
	return NewErrResourceNotFound(id, "job")
}

func NewErrDeviceNotFound(id uuid.UUID) *ErrResourceNotFound {
	return NewErrResourceNotFound(id, "device")
}

type ErrInvalidTarget struct {
	error
}

func NewErrInvalidTarget(ids []uuid.UUID) *ErrInvalidTarget {
	idStrings := make([]string, 0, len(ids))
	for _, id := range ids {
		idStrings = append(idStrings, id.String())
	}
	return &ErrInvalidTarget{fmt.Errorf("devices not found in inventory: %s", strings.Join(idStrings, ", "))}
}

type ErrConfirmationRequired struct {
	error
}

func NewErrConfirmationRequired(commands []string) *ErrConfirmationRequired {
	return &ErrConfirmationRequired{fmt.Errorf("dangerous command(s) require confirmation: %s", strings.Join(commands, "; "))}
}

func NewErrConfirmationRequiredForCommit() *ErrConfirmationRequired {
	return &ErrConfirmationRequired{fmt.Errorf("config commit requires confirmation")}
}

type ErrStalePreview struct {
	error
}

func NewErrStalePreview(previewID uuid.UUID, reason string) *ErrStalePreview {
	return &ErrStalePreview{fmt.Errorf("preview %s cannot be committed: %s", previewID, reason)}
}

type ErrStateConflict struct {
	error
}

func NewErrStateConflict(id uuid.UUID, state string) *ErrStateConflict {
	return &ErrStateConflict{fmt.Errorf("job %s is %s and admits no further transitions", id, state)}
}

type ErrQueueFull struct {
	error
}

func NewErrQueueFull() *ErrQueueFull {
	return &ErrQueueFull{fmt.Errorf("job queue is full, retry later")}
}

type ErrInvalidForm struct {
	error
}

func NewErrInvalidForm(message string) *ErrInvalidForm {
	return &ErrInvalidForm{fmt.Errorf("bad request: %s", message)}
}

type ErrDuplicateHostname struct {
	error
}

func NewErrDuplicateHostname(hostname string) *ErrDuplicateHostname {
	return &ErrDuplicateHostname{fmt.Errorf("a device named %s already exists", hostname)}
}
