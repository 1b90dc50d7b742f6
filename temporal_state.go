package framegraph

import (
	"fmt"
	"maps"
	"slices"

	"github.com/gogpu/framegraph/cache"
	"github.com/gogpu/framegraph/resource"
)

// TemporalState is a named store of persistent resources that live outside
// the transient cache, such as history buffers addressed by a stable key.
// Each frame the caller asks for a key; the resource is created on first
// request and imported into the graph in the state the previous frame left
// it. Asking with a different descriptor, for example after a resolution
// change, recreates the resource. A replaced or removed resource that a
// frame still in flight may use is kept until Collect sees that frame
// complete.
//
//	state := framegraph.NewTemporalState(device, framegraph.TemporalFramesInFlight(2))
//	...
//	hist, err := state.GetOrCreateImage(g, "taa.history", desc)
//	...
//	state.Collect(frame)
type TemporalState struct {
	device         resource.Device
	framesInFlight uint64
	images         map[string]*ExportedImage
	buffers        map[string]*ExportedBuffer
	retired        []retiredObject
}

// retiredObject is a replaced resource and the last frame that used it.
type retiredObject struct {
	image  resource.Image
	buffer resource.Buffer
	frame  uint64
}

// TemporalOption configures a TemporalState.
type TemporalOption func(*TemporalState)

// TemporalFramesInFlight sets how many frames the GPU may lag behind the
// CPU. A resource last used in frame f is destroyed by Collect no earlier
// than frame f+n. Negative values select cache.DefaultFramesInFlight.
func TemporalFramesInFlight(n int) TemporalOption {
	return func(s *TemporalState) {
		if n < 0 {
			n = cache.DefaultFramesInFlight
		}
		s.framesInFlight = uint64(n)
	}
}

// NewTemporalState creates an empty store that creates resources on device.
func NewTemporalState(device resource.Device, opts ...TemporalOption) *TemporalState {
	s := &TemporalState{
		device:         device,
		framesInFlight: cache.DefaultFramesInFlight,
		images:         make(map[string]*ExportedImage),
		buffers:        make(map[string]*ExportedBuffer),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetOrCreateImage returns the image stored under key, imported into g.
func (s *TemporalState) GetOrCreateImage(g *Graph, key string, desc resource.ImageDesc) (resource.Handle[resource.ImageResource], error) {
	invalid := resource.Invalid[resource.ImageResource]()
	if err := desc.Validate(); err != nil {
		return invalid, g.fail(fmt.Errorf("framegraph: temporal %q: %w", key, err))
	}
	if _, taken := s.buffers[key]; taken {
		return invalid, g.fail(fmt.Errorf("%w: temporal key %q holds a buffer", ErrResourceAccess, key))
	}

	x, ok := s.images[key]
	if ok && x.desc != desc {
		Logger().Warn("framegraph: temporal image recreated", "key", key, "old", x.desc, "new", desc)
		s.removeImage(key, x)
		ok = false
	}
	if !ok {
		img, err := s.device.CreateImage(desc, key)
		if err != nil {
			return invalid, g.fail(&DeviceError{Op: "create image", Resource: key, Err: err})
		}
		x = &ExportedImage{name: key, desc: desc, image: img}
		s.images[key] = x
	}

	h := g.ImportExportedImage(x)
	if h.IsInvalid() {
		return invalid, g.Err()
	}
	return h, nil
}

// GetOrCreateBuffer returns the buffer stored under key, imported into g.
func (s *TemporalState) GetOrCreateBuffer(g *Graph, key string, desc resource.BufferDesc) (resource.Handle[resource.BufferResource], error) {
	invalid := resource.Invalid[resource.BufferResource]()
	if err := desc.Validate(); err != nil {
		return invalid, g.fail(fmt.Errorf("framegraph: temporal %q: %w", key, err))
	}
	if _, taken := s.images[key]; taken {
		return invalid, g.fail(fmt.Errorf("%w: temporal key %q holds an image", ErrResourceAccess, key))
	}

	x, ok := s.buffers[key]
	if ok && x.desc != desc {
		Logger().Warn("framegraph: temporal buffer recreated", "key", key, "old", x.desc, "new", desc)
		s.removeBuffer(key, x)
		ok = false
	}
	if !ok {
		buf, err := s.device.CreateBuffer(desc, key)
		if err != nil {
			return invalid, g.fail(&DeviceError{Op: "create buffer", Resource: key, Err: err})
		}
		x = &ExportedBuffer{name: key, desc: desc, buffer: buf}
		s.buffers[key] = x
	}

	h := g.ImportExportedBuffer(x)
	if h.IsInvalid() {
		return invalid, g.Err()
	}
	return h, nil
}

func (s *TemporalState) removeImage(key string, x *ExportedImage) {
	x.released = true
	delete(s.images, key)
	s.retire(retiredObject{image: x.image, frame: x.frame})
}

func (s *TemporalState) removeBuffer(key string, x *ExportedBuffer) {
	x.released = true
	delete(s.buffers, key)
	s.retire(retiredObject{buffer: x.buffer, frame: x.frame})
}

// retire queues o for destruction. A resource no executed graph has used
// is destroyed at once.
func (s *TemporalState) retire(o retiredObject) {
	if o.frame == 0 || s.framesInFlight == 0 {
		s.destroy(o)
		return
	}
	s.retired = append(s.retired, o)
}

func (s *TemporalState) destroy(o retiredObject) {
	if o.image != nil {
		s.device.DestroyImage(o.image)
	} else {
		s.device.DestroyBuffer(o.buffer)
	}
}

// Collect destroys replaced or removed resources whose last frame is at
// least the frames-in-flight window before frame, and returns how many it
// destroyed. Call it once per frame with the frame being recorded.
func (s *TemporalState) Collect(frame uint64) int {
	kept := s.retired[:0]
	n := 0
	for _, o := range s.retired {
		if o.frame+s.framesInFlight > frame {
			kept = append(kept, o)
			continue
		}
		s.destroy(o)
		n++
	}
	clear(s.retired[len(kept):])
	s.retired = kept
	if n > 0 {
		Logger().Debug("framegraph: temporal resources collected", "frame", frame, "count", n)
	}
	return n
}

// Retired returns the number of replaced resources waiting for Collect.
func (s *TemporalState) Retired() int { return len(s.retired) }

// Image returns the record stored under key, or nil.
func (s *TemporalState) Image(key string) *ExportedImage { return s.images[key] }

// Buffer returns the record stored under key, or nil.
func (s *TemporalState) Buffer(key string) *ExportedBuffer { return s.buffers[key] }

// Remove drops the resource stored under key. It is destroyed once Collect
// sees its last frame complete. Remove reports whether the key existed.
func (s *TemporalState) Remove(key string) bool {
	if x, ok := s.images[key]; ok {
		s.removeImage(key, x)
		return true
	}
	if x, ok := s.buffers[key]; ok {
		s.removeBuffer(key, x)
		return true
	}
	return false
}

// Clear destroys every stored and retired resource. The GPU must be idle.
func (s *TemporalState) Clear() {
	for key, x := range s.images {
		s.removeImage(key, x)
	}
	for key, x := range s.buffers {
		s.removeBuffer(key, x)
	}
	for _, o := range s.retired {
		s.destroy(o)
	}
	s.retired = nil
}

// Keys returns the stored keys in sorted order.
func (s *TemporalState) Keys() []string {
	keys := slices.Collect(maps.Keys(s.images))
	keys = slices.AppendSeq(keys, maps.Keys(s.buffers))
	slices.Sort(keys)
	return keys
}
