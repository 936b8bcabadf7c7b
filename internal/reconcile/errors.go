package reconcile

import (
	"errors"
	"fmt"
	"strings"
)

// ErrConfirmationRequired is returned by Discard when unsaved changes exist
// and the caller did not confirm dropping them.
var ErrConfirmationRequired = errors.New("discard requires confirmation: there are unsaved changes")

// ConflictError reports an edit the current slot state does not allow, such as
// writing to a disabled level or marking a level Not Applicable while a
// dependent level holds data.
type ConflictError struct {
	Section string
	Slot    string
	Reason  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Section, e.Slot, e.Reason)
}

// NotFoundError reports an operation on a slot that shows no record.
type NotFoundError struct {
	Section string
	Slot    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s: no record", e.Section, e.Slot)
}

// Operation names used in SlotFailure.
const (
	OpDefine = "define"
	OpDelete = "delete"
	OpList   = "list"
)

// SlotFailure is one failed call of a batch save.
type SlotFailure struct {
	Slot string `json:"slot"`
	ID   string `json:"id,omitempty"`
	Op   string `json:"op"`
	Err  error  `json:"-"`
}

// BatchError reports that some calls of a batch save failed. Every draft is
// kept so the batch can be retried; calls that succeeded are not rolled back.
type BatchError struct {
	Section   string
	Failures  []SlotFailure
	Succeeded int
}

func (e *BatchError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("some %s changes did not save: %d of %d calls failed",
		e.Section, len(e.Failures), len(e.Failures)+e.Succeeded))
	for _, f := range e.Failures {
		sb.WriteString(fmt.Sprintf("; %s %s: %v", f.Op, f.Slot, f.Err))
	}
	return sb.String()
}

// Unwrap exposes the individual call errors to errors.Is and errors.As.
func (e *BatchError) Unwrap() []error {
	out := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		out = append(out, f.Err)
	}
	return out
}

// FailedSlots returns the slots with at least one failed call.
func (e *BatchError) FailedSlots() []string {
	seen := make(map[string]bool, len(e.Failures))
	var out []string
	for _, f := range e.Failures {
		if !seen[f.Slot] {
			seen[f.Slot] = true
			out = append(out, f.Slot)
		}
	}
	return out
}
