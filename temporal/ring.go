package temporal

import "fmt"

// Ring is a temporal resource with a current entry and a fixed-size history.
// History(0) is the most recent outgoing current, History(Cap()-1) the
// oldest one kept.
type Ring[H Handle] struct {
	current H
	// hist is a circular buffer; head indexes History(0).
	hist []H
	head int
	n    int
	opts options[H]
}

// NewRing creates a ring keeping size frames of history. It panics if size
// is less than 1.
func NewRing[H Handle](size int, opts ...Option[H]) *Ring[H] {
	if size < 1 {
		panic(fmt.Sprintf("temporal: ring size %d < 1", size))
	}
	return &Ring[H]{hist: make([]H, size), opts: applyOptions(opts)}
}

// SetCurrent stores h as the current entry. A different valid current that
// was never advanced is dropped.
func (r *Ring[H]) SetCurrent(h H) {
	if r.current != h {
		r.opts.dropHandle(r.current)
	}
	r.current = h
}

// Advance pushes current onto the front of the history and leaves current
// invalid. When the history is full the oldest entry is dropped. Advance
// before any SetCurrent is a no-op; a second Advance without SetCurrent
// panics, as for PingPong.
func (r *Ring[H]) Advance() {
	var zero H
	if !valid(r.current) {
		if r.n > 0 {
			doubleAdvance("history ring")
		}
		return
	}
	size := len(r.hist)
	r.head = (r.head + size - 1) % size
	if r.n == size {
		// r.head now indexes the oldest entry.
		if old := r.hist[r.head]; !r.holds(old, r.head) {
			r.opts.dropHandle(old)
		}
	} else {
		r.n++
	}
	r.hist[r.head] = r.current
	r.current = zero
}

// holds reports whether h is still referenced by a history entry other than
// index skip.
func (r *Ring[H]) holds(h H, skip int) bool {
	for i := 0; i < r.n; i++ {
		j := (r.head + i) % len(r.hist)
		if j != skip && r.hist[j] == h {
			return true
		}
	}
	return r.current == h
}

// Current returns the current entry.
func (r *Ring[H]) Current() H { return r.current }

// History returns the entry that was current i advances ago, counting from
// zero. It returns the invalid handle when i is out of range.
func (r *Ring[H]) History(i int) H {
	if i < 0 || i >= r.n {
		var zero H
		return zero
	}
	return r.hist[(r.head+i)%len(r.hist)]
}

// Len returns the number of valid history entries.
func (r *Ring[H]) Len() int { return r.n }

// Cap returns the history size.
func (r *Ring[H]) Cap() int { return len(r.hist) }

// Reset drops the current entry and the whole history.
func (r *Ring[H]) Reset() {
	var zero H
	seen := make(map[H]struct{}, r.n+1)
	drop := func(h H) {
		if _, ok := seen[h]; ok {
			return
		}
		seen[h] = struct{}{}
		r.opts.dropHandle(h)
	}
	drop(r.current)
	for i := 0; i < r.n; i++ {
		drop(r.History(i))
	}
	for i := range r.hist {
		r.hist[i] = zero
	}
	r.current = zero
	r.head, r.n = 0, 0
}
