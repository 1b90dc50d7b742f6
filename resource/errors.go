package resource

import "errors"

// Error taxonomy shared by every framegraph package.
var (
	// ErrInvalidDescriptor is returned for malformed resource shapes.
	// The caller can reject the graph before any GPU work is issued.
	ErrInvalidDescriptor = errors.New("framegraph: invalid resource descriptor")

	// ErrResourceAccess is returned when a pass declares an access that the
	// resource does not permit, or names a resource the graph does not own.
	ErrResourceAccess = errors.New("framegraph: resource access error")

	// ErrDevice is wrapped by every failure reported by a Device.
	ErrDevice = errors.New("framegraph: device error")
)
