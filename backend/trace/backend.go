package trace

import (
	"fmt"
	"sync"

	"github.com/gogpu/framegraph/backend"
	"github.com/gogpu/framegraph/resource"
)

// init registers the trace backend on package import.
func init() {
	backend.Register(backend.BackendTrace, func() backend.Backend {
		return New(Config{})
	})
}

// Backend is the trace implementation of backend.Backend.
type Backend struct {
	mu          sync.Mutex
	config      Config
	device      *Device
	initialized bool
	submitted   int
}

// New creates a trace backend. Call Init before use.
func New(config Config) *Backend {
	return &Backend{config: config}
}

// Name returns the backend identifier.
func (b *Backend) Name() string { return backend.BackendTrace }

// Init creates the trace device.
func (b *Backend) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.initialized {
		return nil
	}
	b.device = NewDevice(b.config)
	b.initialized = true
	return nil
}

// Close drops the device. Objects still live are reported in the log.
func (b *Backend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.initialized {
		return
	}
	if n := b.device.Live(); n > 0 {
		b.device.logger.Warn("trace: closing with live objects", "count", n)
	}
	b.initialized = false
}

// Device returns the trace device, nil before Init.
func (b *Backend) Device() resource.Device {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.device == nil {
		return nil
	}
	return b.device
}

// TraceDevice returns the concrete device for inspection.
func (b *Backend) TraceDevice() *Device {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.device
}

// BeginCommands returns a new Recorder.
func (b *Backend) BeginCommands(label string) (resource.CommandRecorder, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.initialized {
		return nil, backend.ErrNotInitialized
	}
	return NewRecorder(label), nil
}

// Submit appends the recorder's events and a submit marker to the device
// log.
func (b *Backend) Submit(cmds resource.CommandRecorder) error {
	rec, ok := cmds.(*Recorder)
	if !ok {
		return fmt.Errorf("%w: %T", backend.ErrForeignCommands, cmds)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.initialized {
		return backend.ErrNotInitialized
	}
	if len(rec.open) > 0 {
		return fmt.Errorf("trace: submit with open pass %q", rec.open[len(rec.open)-1])
	}
	b.device.appendEvents(rec.events)
	b.device.appendEvents([]Event{{Kind: EventSubmit, Label: rec.label}})
	b.submitted++
	return nil
}

// Submitted returns the number of successful submissions.
func (b *Backend) Submitted() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.submitted
}
