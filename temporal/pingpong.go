package temporal

// PingPong is a two-slot temporal resource with a current and a history
// entry. The zero value is an empty slot without a drop hook.
type PingPong[H Handle] struct {
	current H
	history H
	opts    options[H]
}

// NewPingPong creates an empty ping-pong slot.
func NewPingPong[H Handle](opts ...Option[H]) *PingPong[H] {
	return &PingPong[H]{opts: applyOptions(opts)}
}

// SetCurrent stores h as the current entry. It is valid in every state. A
// different valid current that was never advanced is dropped.
func (p *PingPong[H]) SetCurrent(h H) {
	if p.current != h {
		p.opts.dropHandle(p.current)
	}
	p.current = h
}

// Advance moves current into history and leaves current invalid. The old
// history is dropped. Advance on an empty slot is a no-op.
//
// Advance panics when current is invalid but history is held, because the
// caller skipped SetCurrent and would otherwise silently lose its history.
func (p *PingPong[H]) Advance() {
	var zero H
	if !valid(p.current) {
		if valid(p.history) {
			doubleAdvance("ping-pong slot")
		}
		return
	}
	if p.history != p.current {
		p.opts.dropHandle(p.history)
	}
	p.history = p.current
	p.current = zero
}

// Current returns the current entry, invalid until SetCurrent.
func (p *PingPong[H]) Current() H { return p.current }

// History returns the entry that was current before the last Advance.
func (p *PingPong[H]) History() H { return p.history }

// State returns the slot occupancy.
func (p *PingPong[H]) State() State {
	switch {
	case valid(p.history):
		return Steady
	case valid(p.current):
		return CurrentSet
	default:
		return Empty
	}
}

// Reset drops both entries and returns the slot to Empty.
func (p *PingPong[H]) Reset() {
	var zero H
	p.opts.dropHandle(p.current)
	if p.history != p.current {
		p.opts.dropHandle(p.history)
	}
	p.current, p.history = zero, zero
}
