package cache

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gogpu/framegraph/resource"
)

// Frame bracketing errors.
var (
	// ErrFrameInProgress is returned by BeginFrame when the previous frame
	// was not ended.
	ErrFrameInProgress = errors.New("cache: frame already in progress")

	// ErrNoFrame is returned by EndFrame outside BeginFrame/EndFrame.
	ErrNoFrame = errors.New("cache: no frame in progress")

	// ErrFrameOrder is returned by BeginFrame when frame ids go backwards.
	ErrFrameOrder = errors.New("cache: frame id is older than the current frame")
)

// Default configuration values.
const (
	// DefaultFramesInFlight makes objects released in frame f reusable from
	// frame f+1.
	DefaultFramesInFlight = 1

	// DefaultRetention is how many frames an object may stay idle before
	// Maintain destroys it.
	DefaultRetention = 2
)

// Config holds configuration for a Transient cache.
type Config struct {
	// FramesInFlight is the number of frames after its release frame during
	// which an idle object must not be handed out again, because the GPU may
	// still be consuming it. It should match the backend's frame-in-flight
	// count. Zero allows reuse within the frame that released the object.
	// Negative values select DefaultFramesInFlight.
	FramesInFlight int

	// Retention is the idle age, in frames, beyond which Maintain destroys
	// pooled objects. Negative values select DefaultRetention.
	Retention int

	// Logger receives debug output. Nil discards it.
	Logger *slog.Logger
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() Config {
	return Config{FramesInFlight: DefaultFramesInFlight, Retention: DefaultRetention}
}

// Stats contains transient cache statistics.
type Stats struct {
	// Idle is the number of pooled objects available for reuse.
	Idle int

	// Pending is the number of objects released during the current frame,
	// published on EndFrame.
	Pending int

	// PeakIdle is the highest Idle value observed.
	PeakIdle int

	// Live is the number of objects created or adopted by the cache and not
	// yet destroyed by it, whether pooled or lent out.
	Live int

	// Created, Reused and Evicted count acquire misses, acquire hits and
	// objects destroyed by Maintain or Clear.
	Created uint64
	Reused  uint64
	Evicted uint64

	// Frame is the id passed to the most recent BeginFrame.
	Frame uint64
}

// String returns a human-readable summary.
func (s Stats) String() string {
	return fmt.Sprintf("Transient[frame %d, %d idle (peak %d), %d pending, %d live, %d created, %d reused, %d evicted]",
		s.Frame, s.Idle, s.PeakIdle, s.Pending, s.Live, s.Created, s.Reused, s.Evicted)
}

type pendingRelease struct {
	image    resource.Image
	buffer   resource.Buffer
	released uint64
}

// Transient is a frame-indexed pool that lends physical images and buffers
// matching a descriptor exactly and takes them back across frame boundaries.
//
// Matching is exact descriptor equality; a larger or differently-flagged
// object is never returned. Among matching idle objects the most recently
// released eligible one is returned first.
//
// Transient is safe for concurrent use, so Maintain and Clear may be called
// from a goroutine other than the one executing frames.
type Transient struct {
	mu sync.Mutex

	device resource.Device
	logger *slog.Logger

	framesInFlight uint64
	retention      uint64

	images  *idlePool[resource.ImageDesc, resource.Image]
	buffers *idlePool[resource.BufferDesc, resource.Buffer]
	pending []pendingRelease

	// pooled holds every idle or pending object, to catch double release.
	pooled map[any]struct{}
	// known holds every live object the cache created or adopted.
	known map[any]struct{}

	frame   uint64
	inFrame bool

	peakIdle int
	created  uint64
	reused   uint64
	evicted  uint64
}

// NewTransient creates a transient cache that creates and destroys objects
// through device.
func NewTransient(device resource.Device, config Config) *Transient {
	fif := config.FramesInFlight
	if fif < 0 {
		fif = DefaultFramesInFlight
	}
	ret := config.Retention
	if ret < 0 {
		ret = DefaultRetention
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	//nolint:gosec // G115: both values are checked non-negative above
	return &Transient{
		device:         device,
		logger:         logger,
		framesInFlight: uint64(fif),
		retention:      uint64(ret),
		images:         newIdlePool[resource.ImageDesc, resource.Image](),
		buffers:        newIdlePool[resource.BufferDesc, resource.Buffer](),
		pooled:         make(map[any]struct{}),
		known:          make(map[any]struct{}),
	}
}

// SetLogger replaces the cache logger. Nil discards output.
func (c *Transient) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	c.mu.Lock()
	c.logger = l
	c.mu.Unlock()
}

// BeginFrame opens frame id for acquire/release bookkeeping.
func (c *Transient) BeginFrame(id uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inFrame {
		return fmt.Errorf("%w: frame %d", ErrFrameInProgress, c.frame)
	}
	if id < c.frame {
		return fmt.Errorf("%w: %d < %d", ErrFrameOrder, id, c.frame)
	}
	c.frame = id
	c.inFrame = true
	return nil
}

// EndFrame closes the current frame and publishes every object released
// during it to the idle pool.
func (c *Transient) EndFrame() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.inFrame {
		return ErrNoFrame
	}
	for _, p := range c.pending {
		if p.image != nil {
			c.images.push(p.image.ImageDesc(), p.image, p.released)
		} else {
			c.buffers.push(p.buffer.BufferDesc(), p.buffer, p.released)
		}
	}
	if len(c.pending) > 0 {
		c.logger.Debug("transient cache: published releases", "frame", c.frame, "count", len(c.pending))
	}
	c.pending = c.pending[:0]
	c.inFrame = false
	c.notePeakLocked()
	return nil
}

// InFrame reports whether a frame is open.
func (c *Transient) InFrame() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFrame
}

// Frame returns the id of the most recent BeginFrame.
func (c *Transient) Frame() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frame
}

// latestEligibleLocked returns the newest release frame that may be reused
// now, or false if none may.
func (c *Transient) latestEligibleLocked() (uint64, bool) {
	if c.frame < c.framesInFlight {
		return 0, false
	}
	return c.frame - c.framesInFlight, true
}

// AcquireImage returns an idle image whose descriptor equals desc, or
// creates a new one through the device.
func (c *Transient) AcquireImage(desc resource.ImageDesc, label string) (resource.Image, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if latest, ok := c.latestEligibleLocked(); ok {
		if img, ok := c.images.pop(desc, latest); ok {
			delete(c.pooled, any(img))
			c.reused++
			return img, nil
		}
	}

	img, err := c.device.CreateImage(desc, label)
	if err != nil {
		return nil, deviceError("create image", desc, err)
	}
	c.created++
	c.known[img] = struct{}{}
	c.logger.Debug("transient cache: created image", "label", label, "desc", desc)
	return img, nil
}

// AcquireBuffer returns an idle buffer whose descriptor equals desc, or
// creates a new one through the device.
func (c *Transient) AcquireBuffer(desc resource.BufferDesc, label string) (resource.Buffer, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if latest, ok := c.latestEligibleLocked(); ok {
		if buf, ok := c.buffers.pop(desc, latest); ok {
			delete(c.pooled, any(buf))
			c.reused++
			return buf, nil
		}
	}

	buf, err := c.device.CreateBuffer(desc, label)
	if err != nil {
		return nil, deviceError("create buffer", desc, err)
	}
	c.created++
	c.known[buf] = struct{}{}
	c.logger.Debug("transient cache: created buffer", "label", label, "desc", desc)
	return buf, nil
}

// ReleaseImage returns img to the pool, tagged with the frame at which it
// became idle. Inside a frame the return is deferred until EndFrame.
//
// Releasing an object that is already pooled is a contract violation and
// panics.
func (c *Transient) ReleaseImage(img resource.Image, frame uint64) {
	if img == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.takeOwnershipLocked(img)
	if c.inFrame {
		c.pending = append(c.pending, pendingRelease{image: img, released: frame})
		return
	}
	c.images.push(img.ImageDesc(), img, frame)
	c.notePeakLocked()
}

// ReleaseBuffer returns buf to the pool. See ReleaseImage.
func (c *Transient) ReleaseBuffer(buf resource.Buffer, frame uint64) {
	if buf == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.takeOwnershipLocked(buf)
	if c.inFrame {
		c.pending = append(c.pending, pendingRelease{buffer: buf, released: frame})
		return
	}
	c.buffers.push(buf.BufferDesc(), buf, frame)
	c.notePeakLocked()
}

func (c *Transient) takeOwnershipLocked(obj any) {
	if _, dup := c.pooled[obj]; dup {
		panic(fmt.Sprintf("cache: %v released twice", obj))
	}
	c.pooled[obj] = struct{}{}
	// Objects created elsewhere are adopted.
	c.known[obj] = struct{}{}
}

// Maintain destroys idle objects that have been idle for more than the
// retention window. It returns the number of destroyed objects.
func (c *Transient) Maintain() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.frame <= c.retention {
		return 0
	}
	cutoff := c.frame - c.retention
	n := c.images.evict(cutoff, c.destroyImageLocked)
	n += c.buffers.evict(cutoff, c.destroyBufferLocked)
	if n > 0 {
		c.evicted += uint64(n)
		c.logger.Debug("transient cache: evicted idle objects", "frame", c.frame, "count", n)
	}
	return n
}

// Clear destroys every pooled object, including pending releases. Objects
// currently lent out are not affected. It returns the number of destroyed
// objects.
func (c *Transient) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.images.drain(c.destroyImageLocked)
	n += c.buffers.drain(c.destroyBufferLocked)
	for _, p := range c.pending {
		if p.image != nil {
			c.destroyImageLocked(p.image)
		} else {
			c.destroyBufferLocked(p.buffer)
		}
	}
	n += len(c.pending)
	c.pending = c.pending[:0]
	c.evicted += uint64(n)
	if n > 0 {
		c.logger.Info("transient cache: cleared", "count", n)
	}
	return n
}

func (c *Transient) destroyImageLocked(img resource.Image) {
	delete(c.pooled, any(img))
	delete(c.known, any(img))
	c.device.DestroyImage(img)
}

func (c *Transient) destroyBufferLocked(buf resource.Buffer) {
	delete(c.pooled, any(buf))
	delete(c.known, any(buf))
	c.device.DestroyBuffer(buf)
}

func (c *Transient) notePeakLocked() {
	if idle := c.images.len() + c.buffers.len(); idle > c.peakIdle {
		c.peakIdle = idle
	}
}

// IdleImages returns the number of idle images of shape desc.
func (c *Transient) IdleImages(desc resource.ImageDesc) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.images.bucketLen(desc)
}

// IdleBuffers returns the number of idle buffers of shape desc.
func (c *Transient) IdleBuffers(desc resource.BufferDesc) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buffers.bucketLen(desc)
}

// Stats returns current cache statistics.
func (c *Transient) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Idle:     c.images.len() + c.buffers.len(),
		Pending:  len(c.pending),
		PeakIdle: c.peakIdle,
		Live:     len(c.known),
		Created:  c.created,
		Reused:   c.reused,
		Evicted:  c.evicted,
		Frame:    c.frame,
	}
}

func deviceError(op string, desc fmt.Stringer, err error) error {
	if errors.Is(err, resource.ErrDevice) {
		return fmt.Errorf("cache: %s %v: %w", op, desc, err)
	}
	return fmt.Errorf("cache: %s %v: %w: %w", op, desc, resource.ErrDevice, err)
}
