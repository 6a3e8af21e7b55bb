package pixelize

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfMemory is returned by allocators that cannot back a target.
	ErrOutOfMemory = errors.New("pixelize: out of target memory")

	// ErrUnknownTarget is returned by hosts asked to operate on an id they
	// do not hold.
	ErrUnknownTarget = errors.New("pixelize: unknown target")
)

// ConfigurationError reports a setting or per-frame input that makes the
// effect impossible to run.
type ConfigurationError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("pixelize: invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

// ResourceAcquisitionError reports that a transient target could not be
// allocated. The frame's effect is skipped.
type ResourceAcquisitionError struct {
	ID   TargetID
	Desc TargetDesc
	Err  error
}

func (e *ResourceAcquisitionError) Error() string {
	return fmt.Sprintf("pixelize: acquire %s (%s): %v", e.ID, e.Desc, e.Err)
}

func (e *ResourceAcquisitionError) Unwrap() error {
	return e.Err
}

// PreconditionViolation is the panic value raised on programming errors:
// double acquire, release of a target that is not live, or a frame
// callback invoked out of order.
type PreconditionViolation struct {
	Op     string
	ID     TargetID
	Reason string
}

func (e *PreconditionViolation) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("pixelize: %s: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("pixelize: %s %s: %s", e.Op, e.ID, e.Reason)
}

func violate(op string, id TargetID, reason string) {
	panic(&PreconditionViolation{Op: op, ID: id, Reason: reason})
}
