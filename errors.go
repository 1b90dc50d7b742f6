package framegraph

import (
	"errors"
	"fmt"

	"github.com/gogpu/framegraph/resource"
)

// Errors returned while building or executing a graph. Descriptor, access
// and device failures wrap the resource package sentinels, re-exported here.
var (
	// ErrInvalidDescriptor reports a malformed image or buffer descriptor.
	ErrInvalidDescriptor = resource.ErrInvalidDescriptor

	// ErrResourceAccess reports an access the handle does not permit.
	ErrResourceAccess = resource.ErrResourceAccess

	// ErrDevice reports a failure of the device collaborator.
	ErrDevice = resource.ErrDevice

	// ErrGraphConsumed is returned when a graph is modified or executed
	// after Execute.
	ErrGraphConsumed = errors.New("framegraph: graph already executed")

	// ErrPassFinalized is returned when a pass builder is used after Build.
	ErrPassFinalized = errors.New("framegraph: pass already built")

	// ErrForeignGraph is returned when a graph is executed by an executor
	// other than the one that began it.
	ErrForeignGraph = errors.New("framegraph: graph belongs to another executor")

	// ErrNilRecorder is returned by Build and Execute on a nil recorder.
	ErrNilRecorder = errors.New("framegraph: nil recorder")
)

// DeviceError describes a device failure during graph execution with the
// pass and resource that triggered it.
type DeviceError struct {
	Op       string // "create image", "create buffer"
	Pass     string // pass being realized, empty outside passes
	Resource string // resource label
	Err      error  // backend error
}

func (e *DeviceError) Error() string {
	if e.Pass == "" {
		return fmt.Sprintf("framegraph: %s %s: %v", e.Op, e.Resource, e.Err)
	}
	return fmt.Sprintf("framegraph: pass %q: %s %s: %v", e.Pass, e.Op, e.Resource, e.Err)
}

// Unwrap returns ErrDevice and the backend error, so errors.Is matches both.
func (e *DeviceError) Unwrap() []error {
	return []error{ErrDevice, e.Err}
}

// PassError wraps an error returned by a pass recorder.
type PassError struct {
	Pass  string
	Index int
	Err   error
}

func (e *PassError) Error() string {
	return fmt.Sprintf("framegraph: pass %d %q: %v", e.Index, e.Pass, e.Err)
}

func (e *PassError) Unwrap() error { return e.Err }
