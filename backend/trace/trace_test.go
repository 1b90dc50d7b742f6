package trace_test

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/google/go-cmp/cmp"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/backend"
	"github.com/gogpu/framegraph/backend/trace"
	"github.com/gogpu/framegraph/resource"
)

func eventStrings(evs []trace.Event) []string {
	out := make([]string, len(evs))
	for i, e := range evs {
		out[i] = e.String()
	}
	return out
}

func TestRegistered(t *testing.T) {
	b, err := backend.Open(backend.BackendTrace)
	if err != nil {
		t.Fatalf("Open(trace) = %v", err)
	}
	defer b.Close()
	if b.Name() != backend.BackendTrace {
		t.Errorf("Name() = %q", b.Name())
	}
}

func TestDeviceLifecycle(t *testing.T) {
	dev := trace.NewDevice(trace.Config{})
	img, err := dev.CreateImage(resource.NewImage2D(4, 4, gputypes.TextureFormatRGBA8Unorm), "a")
	if err != nil {
		t.Fatal(err)
	}
	buf, err := dev.CreateBuffer(resource.NewBuffer(16), "b")
	if err != nil {
		t.Fatal(err)
	}
	if dev.Live() != 2 || dev.UsedBytes() != 4*4*4+16 {
		t.Errorf("Live %d UsedBytes %d", dev.Live(), dev.UsedBytes())
	}

	dev.DestroyImage(img)
	dev.DestroyBuffer(buf)
	if dev.Live() != 0 || dev.UsedBytes() != 0 {
		t.Errorf("after destroy: Live %d UsedBytes %d", dev.Live(), dev.UsedBytes())
	}

	want := []string{"create-image a", "create-buffer b", "destroy-image a", "destroy-buffer b"}
	if diff := cmp.Diff(want, eventStrings(dev.Events())); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}

	defer func() {
		if recover() == nil {
			t.Error("double destroy did not panic")
		}
	}()
	dev.DestroyImage(img)
}

func TestMemoryBudget(t *testing.T) {
	dev := trace.NewDevice(trace.Config{MemoryBudget: 1024})
	if _, err := dev.CreateBuffer(resource.NewBuffer(1000), "fits"); err != nil {
		t.Fatalf("CreateBuffer() = %v", err)
	}
	if _, err := dev.CreateBuffer(resource.NewBuffer(100), "spills"); !errors.Is(err, trace.ErrOutOfMemory) {
		t.Errorf("CreateBuffer() over budget = %v, want ErrOutOfMemory", err)
	}
}

func TestSubmitRejectsOpenPassAndForeignCommands(t *testing.T) {
	b := trace.New(trace.Config{})
	if _, err := b.BeginCommands("early"); !errors.Is(err, backend.ErrNotInitialized) {
		t.Errorf("BeginCommands before Init = %v", err)
	}
	if err := b.Init(); err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	cmds, _ := b.BeginCommands("frame")
	rec := cmds.(*trace.Recorder)
	rec.BeginPass("dangling")
	if err := b.Submit(rec); err == nil {
		t.Error("Submit with an open pass succeeded")
	}
	rec.EndPass()
	if err := b.Submit(rec); err != nil {
		t.Errorf("Submit() = %v", err)
	}
	if b.Submitted() != 1 {
		t.Errorf("Submitted() = %d, want 1", b.Submitted())
	}
	if err := b.Submit(nil); !errors.Is(err, backend.ErrForeignCommands) {
		t.Errorf("Submit(nil) = %v, want ErrForeignCommands", err)
	}
}

// A compute pass writes a 256x256 image and a second pass samples it: one
// barrier between the passes, none before the first.
func TestExecutorOnTraceBackend(t *testing.T) {
	b := trace.New(trace.Config{})
	if err := b.Init(); err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	exec := framegraph.New(b.Device())
	g := exec.BeginGraph()
	img, err := g.CreateImage(resource.NewImage2D(256, 256, gputypes.TextureFormatRGBA8Unorm), "target")
	if err != nil {
		t.Fatal(err)
	}

	p := g.AddPass("A")
	w := framegraph.Write(p, img)
	if _, err := p.Build(framegraph.RecordFunc(func(ctx *framegraph.PassContext) error {
		ctx.Commands().(*trace.Recorder).Command("dispatch", ctx.Image(w))
		return nil
	})); err != nil {
		t.Fatal(err)
	}
	p = g.AddPass("B")
	r := framegraph.Read(p, img)
	if _, err := p.Build(framegraph.RecordFunc(func(ctx *framegraph.PassContext) error {
		ctx.Commands().(*trace.Recorder).Command("draw", ctx.Image(r))
		return nil
	})); err != nil {
		t.Fatal(err)
	}

	cmds, err := b.BeginCommands("frame-1")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := exec.Execute(g, cmds, 1); err != nil {
		t.Fatalf("Execute() = %v", err)
	}
	if err := b.Submit(cmds); err != nil {
		t.Fatal(err)
	}

	want := []string{
		"create-image target",
		"begin-pass A", "command dispatch", "end-pass",
		"barrier target#1 write/uav->read/srv",
		"begin-pass B", "command draw", "end-pass",
		"submit frame-1",
	}
	if diff := cmp.Diff(want, eventStrings(b.TraceDevice().Events())); diff != "" {
		t.Errorf("device log mismatch (-want +got):\n%s", diff)
	}

	exec.Close()
	if live := b.TraceDevice().Live(); live != 0 {
		t.Errorf("live objects after Close = %d", live)
	}
}
