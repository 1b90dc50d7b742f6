package trace

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gogpu/framegraph/resource"
)

// ErrOutOfMemory is returned when a creation would exceed the memory budget.
var ErrOutOfMemory = errors.New("trace: out of device memory")

// Config configures a trace Device.
type Config struct {
	// MemoryBudget caps the total size of live objects in bytes. Zero means
	// unlimited.
	MemoryBudget uint64

	// Logger receives debug output. Nil discards it.
	Logger *slog.Logger
}

// Image is a recorded image.
type Image struct {
	id    int
	label string
	desc  resource.ImageDesc
}

// ImageDesc returns the creation descriptor.
func (i *Image) ImageDesc() resource.ImageDesc { return i.desc }

// ID returns the device-unique object id.
func (i *Image) ID() int { return i.id }

// Label returns the creation label.
func (i *Image) Label() string { return i.label }

func (i *Image) String() string { return fmt.Sprintf("image#%d(%s)", i.id, i.label) }

// Buffer is a recorded buffer.
type Buffer struct {
	id    int
	label string
	desc  resource.BufferDesc
}

// BufferDesc returns the creation descriptor.
func (b *Buffer) BufferDesc() resource.BufferDesc { return b.desc }

// ID returns the device-unique object id.
func (b *Buffer) ID() int { return b.id }

// Label returns the creation label.
func (b *Buffer) Label() string { return b.label }

func (b *Buffer) String() string { return fmt.Sprintf("buffer#%d(%s)", b.id, b.label) }

// Device is a resource.Device that tracks live objects and logs events.
// It is safe for concurrent use.
type Device struct {
	mu     sync.Mutex
	budget uint64
	used   uint64
	next   int
	live   map[int]uint64 // id -> size
	events []Event
	logger *slog.Logger
}

// NewDevice creates an empty trace device.
func NewDevice(config Config) *Device {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Device{
		budget: config.MemoryBudget,
		live:   make(map[int]uint64),
		logger: logger,
	}
}

// SetLogger replaces the device logger. Nil discards output.
func (d *Device) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	d.mu.Lock()
	d.logger = l
	d.mu.Unlock()
}

func (d *Device) allocLocked(size uint64, what string) (int, error) {
	if d.budget > 0 && d.used+size > d.budget {
		return 0, fmt.Errorf("%w: %s needs %d bytes, %d of %d in use", ErrOutOfMemory, what, size, d.used, d.budget)
	}
	d.next++
	d.used += size
	d.live[d.next] = size
	return d.next, nil
}

// CreateImage records and returns a new image.
func (d *Device) CreateImage(desc resource.ImageDesc, label string) (resource.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id, err := d.allocLocked(desc.SizeBytes(), label)
	if err != nil {
		return nil, err
	}
	img := &Image{id: id, label: label, desc: desc}
	d.events = append(d.events, Event{Kind: EventCreateImage, Object: id, Label: label})
	d.logger.Debug("trace: create image", "id", id, "label", label, "desc", desc)
	return img, nil
}

// CreateBuffer records and returns a new buffer.
func (d *Device) CreateBuffer(desc resource.BufferDesc, label string) (resource.Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id, err := d.allocLocked(desc.SizeBytes(), label)
	if err != nil {
		return nil, err
	}
	buf := &Buffer{id: id, label: label, desc: desc}
	d.events = append(d.events, Event{Kind: EventCreateBuffer, Object: id, Label: label})
	d.logger.Debug("trace: create buffer", "id", id, "label", label, "desc", desc)
	return buf, nil
}

// DestroyImage records the destruction of img. Destroying an object twice
// or one from another device panics.
func (d *Device) DestroyImage(img resource.Image) {
	ti, ok := img.(*Image)
	if !ok {
		panic(fmt.Sprintf("trace: DestroyImage(%T) is not a trace image", img))
	}
	d.destroy(ti.id, ti.label, EventDestroyImage)
}

// DestroyBuffer records the destruction of buf. See DestroyImage.
func (d *Device) DestroyBuffer(buf resource.Buffer) {
	tb, ok := buf.(*Buffer)
	if !ok {
		panic(fmt.Sprintf("trace: DestroyBuffer(%T) is not a trace buffer", buf))
	}
	d.destroy(tb.id, tb.label, EventDestroyBuffer)
}

func (d *Device) destroy(id int, label string, kind EventKind) {
	d.mu.Lock()
	defer d.mu.Unlock()

	size, ok := d.live[id]
	if !ok {
		panic(fmt.Sprintf("trace: object %d (%s) destroyed twice", id, label))
	}
	delete(d.live, id)
	d.used -= size
	d.events = append(d.events, Event{Kind: kind, Object: id, Label: label})
}

// Live returns the number of live objects.
func (d *Device) Live() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.live)
}

// UsedBytes returns the total size of live objects.
func (d *Device) UsedBytes() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.used
}

// Events returns a copy of the device event log: creations, destructions
// and submitted command streams.
func (d *Device) Events() []Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Event, len(d.events))
	copy(out, d.events)
	return out
}

// ResetEvents clears the event log. Live objects are kept.
func (d *Device) ResetEvents() {
	d.mu.Lock()
	d.events = nil
	d.mu.Unlock()
}

func (d *Device) appendEvents(evs []Event) {
	d.mu.Lock()
	d.events = append(d.events, evs...)
	d.mu.Unlock()
}
