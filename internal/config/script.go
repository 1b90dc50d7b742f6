package config

import (
	"fmt"
	"strings"

	"github.com/gogpu/framegraph/resource"
)

// DefaultFrames is the number of frames run when a script sets none.
const DefaultFrames = 8

// Screen is the output resolution scripts see as the screen object.
type Screen struct {
	Width  int
	Height int
}

// Script is a decoded frame script.
type Script struct {
	Frames  int
	Backend string

	// FramesInFlight and Retention are -1 when the script leaves them to
	// the cache defaults.
	FramesInFlight int
	Retention      int

	Images    []Image
	Buffers   []Buffer
	Temporals []Temporal
	Passes    []Pass
}

// Image is a transient image created every frame.
type Image struct {
	Name string
	Desc resource.ImageDesc
}

// Buffer is a transient buffer created every frame.
type Buffer struct {
	Name string
	Desc resource.BufferDesc
}

// Temporal is an image carried across frames. History is the number of
// previous frames kept: 1 for a ping-pong pair, more for a ring.
type Temporal struct {
	Name    string
	History int
	Desc    resource.ImageDesc
}

// Part selects which side of a temporal slot a reference names.
type Part uint8

const (
	// PartResource names a plain image or buffer.
	PartResource Part = iota
	// PartCurrent names the image written this frame.
	PartCurrent
	// PartHistory names an image from a previous frame.
	PartHistory
)

// Ref is a resource reference in a pass list, such as "hdr",
// "accum.current" or "accum.history.1".
type Ref struct {
	Name string
	Part Part
	// History is the age index for PartHistory, 0 for the previous frame.
	History int
}

// String returns the reference in script syntax.
func (r Ref) String() string {
	switch r.Part {
	case PartCurrent:
		return r.Name + ".current"
	case PartHistory:
		if r.History == 0 {
			return r.Name + ".history"
		}
		return fmt.Sprintf("%s.history.%d", r.Name, r.History)
	}
	return r.Name
}

// parseRef splits a reference. It does not check that the name exists.
func parseRef(s string) (Ref, error) {
	name, rest, found := strings.Cut(s, ".")
	if name == "" {
		return Ref{}, fmt.Errorf("empty resource name in %q", s)
	}
	if !found {
		return Ref{Name: name}, nil
	}
	switch {
	case rest == "current":
		return Ref{Name: name, Part: PartCurrent}, nil
	case rest == "history":
		return Ref{Name: name, Part: PartHistory}, nil
	case strings.HasPrefix(rest, "history."):
		var n int
		if _, err := fmt.Sscanf(rest, "history.%d", &n); err != nil || n < 0 ||
			fmt.Sprintf("history.%d", n) != rest {
			return Ref{}, fmt.Errorf("bad history index in %q", s)
		}
		return Ref{Name: name, Part: PartHistory, History: n}, nil
	}
	return Ref{}, fmt.Errorf("unknown slot part %q in %q", rest, s)
}

// Use is one access of a pass.
type Use struct {
	Ref    Ref
	Access resource.Access
	Sync   resource.SyncType
}

// Pass is a pass with its accesses in declaration order: read, read_storage,
// write, write_no_sync, raster, raster_read.
type Pass struct {
	Name string
	Uses []Use
}

// Image returns the image named name.
func (s *Script) Image(name string) (Image, bool) {
	for _, img := range s.Images {
		if img.Name == name {
			return img, true
		}
	}
	return Image{}, false
}

// Buffer returns the buffer named name.
func (s *Script) Buffer(name string) (Buffer, bool) {
	for _, buf := range s.Buffers {
		if buf.Name == name {
			return buf, true
		}
	}
	return Buffer{}, false
}

// Temporal returns the temporal slot named name.
func (s *Script) Temporal(name string) (Temporal, bool) {
	for _, t := range s.Temporals {
		if t.Name == name {
			return t, true
		}
	}
	return Temporal{}, false
}
