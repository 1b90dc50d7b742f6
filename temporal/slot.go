// Package temporal holds logical resources across frame boundaries.
//
// A PingPong slot keeps the resource produced this frame (current) and the
// one produced last frame (history). A Ring keeps the last N outgoing
// currents for algorithms that need deeper history. Both are generic over
// the handle type they store, so they work with resource.Handle values and
// with exported handles from the frame graph alike:
//
//	var accum temporal.PingPong[*framegraph.ExportedImage]
//	...
//	hist := g.ImportExportedImage(accum.History())
//	out := g.CreateImage(desc)
//	accum.SetCurrent(g.ExportImage(out))
//	...
//	accum.Advance()
//
// Slots are not safe for concurrent use; they are driven by the frame loop.
package temporal

import "fmt"

// Handle is the constraint on values stored in a slot. The zero value of H
// must be invalid.
type Handle interface {
	comparable
	IsInvalid() bool
}

// State is the occupancy of a PingPong slot.
type State uint8

const (
	// Empty means both current and history are invalid.
	Empty State = iota
	// CurrentSet means current is valid and there is no history yet.
	CurrentSet
	// Steady means history is valid.
	Steady
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Empty:
		return "Empty"
	case CurrentSet:
		return "CurrentSet"
	case Steady:
		return "Steady"
	default:
		return fmt.Sprintf("State(%d)", s)
	}
}

// Option configures a slot.
type Option[H Handle] func(*options[H])

type options[H Handle] struct {
	drop func(H)
}

// WithDrop sets a function called with every valid handle the slot stops
// referencing: history pushed out by Advance, a current replaced before
// Advance, and everything on Reset. Use it to return physical objects
// behind exported handles.
func WithDrop[H Handle](fn func(H)) Option[H] {
	return func(o *options[H]) {
		o.drop = fn
	}
}

func applyOptions[H Handle](opts []Option[H]) options[H] {
	var o options[H]
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func valid[H Handle](h H) bool {
	var zero H
	return h != zero && !h.IsInvalid()
}

func (o *options[H]) dropHandle(h H) {
	if o.drop != nil && valid(h) {
		o.drop(h)
	}
}

// doubleAdvance reports a contract violation: Advance was called twice
// without SetCurrent in between while history was held.
func doubleAdvance(kind string) {
	panic("temporal: " + kind + " advanced twice without SetCurrent")
}
