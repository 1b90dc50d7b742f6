package framegraph

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/gogpu/framegraph/resource"
)

// =============================================================================
// Test doubles
// =============================================================================

type fakeImage struct {
	id    int
	label string
	desc  resource.ImageDesc
}

func (i *fakeImage) ImageDesc() resource.ImageDesc { return i.desc }
func (i *fakeImage) String() string                { return fmt.Sprintf("img%d(%s)", i.id, i.label) }

type fakeBuffer struct {
	id    int
	label string
	desc  resource.BufferDesc
}

func (b *fakeBuffer) BufferDesc() resource.BufferDesc { return b.desc }
func (b *fakeBuffer) String() string                  { return fmt.Sprintf("buf%d(%s)", b.id, b.label) }

// fakeDevice creates fake objects and fails creations whose label is listed
// in fail.
type fakeDevice struct {
	mu        sync.Mutex
	next      int
	created   int
	destroyed int
	fail      map[string]error
	logger    *slog.Logger
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{fail: make(map[string]error)}
}

func (d *fakeDevice) CreateImage(desc resource.ImageDesc, label string) (resource.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail[label]; err != nil {
		return nil, err
	}
	d.next++
	d.created++
	return &fakeImage{id: d.next, label: label, desc: desc}, nil
}

func (d *fakeDevice) CreateBuffer(desc resource.BufferDesc, label string) (resource.Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail[label]; err != nil {
		return nil, err
	}
	d.next++
	d.created++
	return &fakeBuffer{id: d.next, label: label, desc: desc}, nil
}

func (d *fakeDevice) DestroyImage(resource.Image) {
	d.mu.Lock()
	d.destroyed++
	d.mu.Unlock()
}

func (d *fakeDevice) DestroyBuffer(resource.Buffer) {
	d.mu.Lock()
	d.destroyed++
	d.mu.Unlock()
}

func (d *fakeDevice) SetLogger(l *slog.Logger) { d.logger = l }

// fakeRecorder logs barriers and pass markers as strings.
type fakeRecorder struct {
	events   []string
	barriers []resource.Barrier
}

func (r *fakeRecorder) RecordBarriers(bs []resource.Barrier) {
	for _, b := range bs {
		r.barriers = append(r.barriers, b)
		r.events = append(r.events, fmt.Sprintf("barrier %v->%v", b.From, b.To))
	}
}

func (r *fakeRecorder) BeginPass(name string) { r.events = append(r.events, "begin "+name) }
func (r *fakeRecorder) EndPass()              { r.events = append(r.events, "end") }

func (r *fakeRecorder) count(prefix string) int {
	n := 0
	for _, e := range r.events {
		if strings.HasPrefix(e, prefix) {
			n++
		}
	}
	return n
}

// nopPass is a recorder that does nothing.
var nopPass = RecordFunc(func(*PassContext) error { return nil })
