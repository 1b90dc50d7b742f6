package trace

import (
	"fmt"

	"github.com/gogpu/framegraph/resource"
)

// Recorder is a command recorder that logs barriers, pass markers and
// commands. It implements resource.CommandRecorder and resource.PassMarker.
type Recorder struct {
	label  string
	events []Event
	open   []string
}

// NewRecorder creates an empty recorder.
func NewRecorder(label string) *Recorder {
	return &Recorder{label: label}
}

// Label returns the recorder label.
func (r *Recorder) Label() string { return r.label }

// RecordBarriers logs one event per barrier.
func (r *Recorder) RecordBarriers(barriers []resource.Barrier) {
	for _, b := range barriers {
		e := Event{Kind: EventBarrier, From: b.From, To: b.To}
		switch {
		case b.Image != nil:
			e.Object, e.Label = objectOf(b.Image)
		case b.Buffer != nil:
			e.Object, e.Label = objectOf(b.Buffer)
		}
		r.events = append(r.events, e)
	}
}

func objectOf(v any) (int, string) {
	switch o := v.(type) {
	case *Image:
		return o.id, o.label
	case *Buffer:
		return o.id, o.label
	default:
		return 0, fmt.Sprint(v)
	}
}

// BeginPass opens a pass scope.
func (r *Recorder) BeginPass(name string) {
	r.open = append(r.open, name)
	r.events = append(r.events, Event{Kind: EventBeginPass, Label: name})
}

// EndPass closes the innermost pass scope. An unmatched EndPass panics.
func (r *Recorder) EndPass() {
	if len(r.open) == 0 {
		panic("trace: EndPass without BeginPass")
	}
	r.open = r.open[:len(r.open)-1]
	r.events = append(r.events, Event{Kind: EventEndPass})
}

// Command logs a named piece of work, such as a dispatch or a draw. obj may
// be nil or a trace object the command touches.
func (r *Recorder) Command(name string, obj any) {
	e := Event{Kind: EventCommand, Label: name}
	if obj != nil {
		e.Object, _ = objectOf(obj)
	}
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Barriers returns the recorded barrier events.
func (r *Recorder) Barriers() []Event {
	var out []Event
	for _, e := range r.events {
		if e.Kind == EventBarrier {
			out = append(out, e)
		}
	}
	return out
}
