package framegraph

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gogpu/framegraph/resource"
)

func TestTemporalStateKeepsResourceAcrossFrames(t *testing.T) {
	dev := newFakeDevice()
	exec := New(dev)
	state := NewTemporalState(dev)
	desc := rgba(320, 180)

	var images []resource.Image
	var lastBarriers []BarrierRecord
	for frame := uint64(1); frame <= 3; frame++ {
		g := exec.BeginGraph()
		h, err := state.GetOrCreateImage(g, "taa.history", desc)
		if err != nil {
			t.Fatalf("frame %d: GetOrCreateImage() = %v", frame, err)
		}
		if again, _ := state.GetOrCreateImage(g, "taa.history", desc); again != h {
			t.Errorf("frame %d: second lookup in one graph = %v, want %v", frame, again, h)
		}

		p := g.AddPass("resolve")
		r := Read(p, h)
		mustBuild(t, p, RecordFunc(func(ctx *PassContext) error {
			images = append(images, ctx.Image(r))
			return nil
		}))
		p = g.AddPass("store")
		Write(p, h)
		mustBuild(t, p, nopPass)

		retired := mustExecute(t, exec, g, &fakeRecorder{}, frame)
		lastBarriers = retired.BarriersFor(h)
	}

	if images[0] != images[1] || images[1] != images[2] {
		t.Errorf("frames saw %v, want one persistent image", images)
	}
	// From frame 2 on the image enters in write/uav left by the previous frame.
	want := []resource.Access{resource.AccessStorageWrite, resource.AccessShaderRead}
	got := []resource.Access{lastBarriers[0].From, lastBarriers[1].From}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("barrier sources mismatch (-want +got):\n%s", diff)
	}
	if dev.created != 1 {
		t.Errorf("device created %d, want 1", dev.created)
	}
	if exec.Cache().Stats().Idle != 0 {
		t.Error("temporal image leaked into the transient cache")
	}
}

func TestTemporalStateRecreatesOnDescriptorChange(t *testing.T) {
	dev := newFakeDevice()
	exec := New(dev)
	state := NewTemporalState(dev)

	g := exec.BeginGraph()
	if _, err := state.GetOrCreateImage(g, "hist", rgba(640, 360)); err != nil {
		t.Fatal(err)
	}
	old := state.Image("hist")

	g = exec.BeginGraph()
	if _, err := state.GetOrCreateImage(g, "hist", rgba(1280, 720)); err != nil {
		t.Fatal(err)
	}
	if dev.created != 2 || dev.destroyed != 1 {
		t.Errorf("created %d destroyed %d, want 2 and 1", dev.created, dev.destroyed)
	}
	if !old.IsInvalid() {
		t.Error("replaced record is still valid")
	}
	if got := state.Image("hist").Desc().Width; got != 1280 {
		t.Errorf("Width = %d, want 1280", got)
	}
}

func TestTemporalStateKeys(t *testing.T) {
	dev := newFakeDevice()
	exec := New(dev)
	state := NewTemporalState(dev)
	g := exec.BeginGraph()

	_, _ = state.GetOrCreateImage(g, "b", rgba(4, 4))
	_, _ = state.GetOrCreateBuffer(g, "a", resource.NewBuffer(64))
	_, _ = state.GetOrCreateImage(g, "c", rgba(4, 4))

	if diff := cmp.Diff([]string{"a", "b", "c"}, state.Keys()); diff != "" {
		t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
	}
	if _, err := state.GetOrCreateBuffer(g, "b", resource.NewBuffer(4)); !errors.Is(err, ErrResourceAccess) {
		t.Errorf("buffer under image key = %v, want ErrResourceAccess", err)
	}

	if !state.Remove("a") || state.Remove("a") {
		t.Error("Remove() did not report existence correctly")
	}
	state.Clear()
	if len(state.Keys()) != 0 {
		t.Errorf("Keys() after Clear = %v", state.Keys())
	}
	if dev.destroyed != 3 {
		t.Errorf("destroyed %d, want 3", dev.destroyed)
	}
}

func TestTemporalStateDeviceError(t *testing.T) {
	dev := newFakeDevice()
	lost := errors.New("device lost")
	dev.fail["hist"] = lost
	dev.fail["counts"] = lost
	exec := New(dev)
	state := NewTemporalState(dev)

	g := exec.BeginGraph()
	_, err := state.GetOrCreateImage(g, "hist", rgba(4, 4))
	var de *DeviceError
	if !errors.As(err, &de) || de.Resource != "hist" || !errors.Is(err, lost) {
		t.Errorf("GetOrCreateImage() = %v, want DeviceError for hist", err)
	}
	if g.Err() != err {
		t.Errorf("graph Err() = %v, want %v", g.Err(), err)
	}
	if _, err := exec.Execute(g, &fakeRecorder{}, 1); !errors.Is(err, lost) {
		t.Errorf("Execute() = %v, want the temporal device error", err)
	}

	g = exec.BeginGraph()
	if _, err := state.GetOrCreateBuffer(g, "counts", resource.NewBuffer(64)); !errors.Is(g.Err(), ErrDevice) || err != g.Err() {
		t.Errorf("GetOrCreateBuffer() = %v, graph Err() = %v", err, g.Err())
	}
}

func TestTemporalStateDefersDestruction(t *testing.T) {
	dev := newFakeDevice()
	exec := New(dev)
	state := NewTemporalState(dev, TemporalFramesInFlight(2))

	frame := func(id uint64, desc resource.ImageDesc) {
		t.Helper()
		g := exec.BeginGraph()
		h, err := state.GetOrCreateImage(g, "hist", desc)
		if err != nil {
			t.Fatalf("frame %d: GetOrCreateImage() = %v", id, err)
		}
		p := g.AddPass("taa")
		Write(p, h)
		mustBuild(t, p, nopPass)
		mustExecute(t, exec, g, &fakeRecorder{}, id)
	}

	frame(1, rgba(640, 360))
	frame(2, rgba(640, 360))
	// Frame 3 resizes; frame 2's image may still be in flight.
	frame(3, rgba(1280, 720))
	if dev.destroyed != 0 || state.Retired() != 1 {
		t.Fatalf("after resize destroyed %d retired %d, want 0 and 1", dev.destroyed, state.Retired())
	}
	if n := state.Collect(3); n != 0 {
		t.Errorf("Collect(3) = %d, want 0", n)
	}
	if n := state.Collect(4); n != 1 || dev.destroyed != 1 || state.Retired() != 0 {
		t.Errorf("Collect(4) = %d, destroyed %d retired %d", n, dev.destroyed, state.Retired())
	}

	if !state.Remove("hist") || state.Retired() != 1 || dev.destroyed != 1 {
		t.Errorf("Remove() retired %d destroyed %d, want 1 and 1", state.Retired(), dev.destroyed)
	}
	state.Clear()
	if state.Retired() != 0 || dev.destroyed != dev.created {
		t.Errorf("after Clear created %d destroyed %d", dev.created, dev.destroyed)
	}
}
