package trace

import (
	"fmt"

	"github.com/gogpu/framegraph/resource"
)

// EventKind identifies a recorded event.
type EventKind uint8

const (
	EventCreateImage EventKind = iota + 1
	EventCreateBuffer
	EventDestroyImage
	EventDestroyBuffer
	EventBarrier
	EventBeginPass
	EventEndPass
	EventCommand
	EventSubmit
)

var eventNames = [...]string{
	EventCreateImage:   "create-image",
	EventCreateBuffer:  "create-buffer",
	EventDestroyImage:  "destroy-image",
	EventDestroyBuffer: "destroy-buffer",
	EventBarrier:       "barrier",
	EventBeginPass:     "begin-pass",
	EventEndPass:       "end-pass",
	EventCommand:       "command",
	EventSubmit:        "submit",
}

// String returns the event kind name.
func (k EventKind) String() string {
	if int(k) < len(eventNames) && eventNames[k] != "" {
		return eventNames[k]
	}
	return fmt.Sprintf("EventKind(%d)", k)
}

// Event is one entry of a trace log.
type Event struct {
	Kind EventKind
	// Object is the id of the image or buffer involved, 0 if none.
	Object int
	// Label is the object label, pass name or command name.
	Label string
	// From and To are set for barriers.
	From resource.Access
	To   resource.Access
}

// String formats the event for logs and test failures.
func (e Event) String() string {
	switch e.Kind {
	case EventBarrier:
		return fmt.Sprintf("barrier %s#%d %v->%v", e.Label, e.Object, e.From, e.To)
	case EventEndPass:
		return "end-pass"
	default:
		return e.Kind.String() + " " + e.Label
	}
}
