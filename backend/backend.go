package backend

import (
	"errors"

	"github.com/gogpu/framegraph/resource"
)

// Backend name constants.
const (
	// BackendTrace is the name of the in-memory recording backend.
	BackendTrace = "trace"
	// BackendWGPU is the name of the Pure Go GPU backend (gogpu/wgpu HAL).
	BackendWGPU = "wgpu"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not available.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrNotInitialized is returned when operations are called before Init.
	ErrNotInitialized = errors.New("backend: not initialized")

	// ErrForeignCommands is returned by Submit for a recorder created by
	// another backend.
	ErrForeignCommands = errors.New("backend: commands not created by this backend")
)

// Backend is the device collaborator of the frame graph: it creates and
// destroys physical objects and records and submits barriers and pass
// commands.
//
// Backends must be registered via Register() and are selected via
// Get() or Default().
type Backend interface {
	// Name returns the backend identifier (e.g., "trace", "wgpu").
	Name() string

	// Init initializes the backend.
	// This should be called before any other operation.
	Init() error

	// Close releases all backend resources.
	// The backend should not be used after Close is called.
	Close()

	// Device returns the device that creates physical images and buffers.
	Device() resource.Device

	// BeginCommands starts recording a frame's commands.
	BeginCommands(label string) (resource.CommandRecorder, error)

	// Submit ends recording and submits the commands to the GPU.
	Submit(cmds resource.CommandRecorder) error
}
