package framegraph

import (
	"fmt"

	"github.com/gogpu/framegraph/resource"
)

// PassAccess is one declared access of a pass.
type PassAccess struct {
	Resource resource.RawHandle
	Access   resource.Access
	Sync     resource.SyncType
}

// Pass is a built unit of GPU work with its declared accesses.
type Pass struct {
	index    int
	name     string
	accesses []PassAccess
	recorder PassRecorder
}

// Name returns the pass name.
func (p *Pass) Name() string { return p.name }

// Index returns the position of the pass in its graph.
func (p *Pass) Index() int { return p.index }

// Accesses returns the declared accesses in declaration order.
func (p *Pass) Accesses() []PassAccess {
	out := make([]PassAccess, len(p.accesses))
	copy(out, p.accesses)
	return out
}

func (p *Pass) declares(h resource.RawHandle) bool {
	for _, a := range p.accesses {
		if a.Resource == h {
			return true
		}
	}
	return false
}

// PassRecorder records the commands of a pass. Record runs during Execute,
// after the barriers for the pass's declared accesses have been recorded.
type PassRecorder interface {
	Record(ctx *PassContext) error
}

// RecordFunc adapts a function to PassRecorder.
type RecordFunc func(ctx *PassContext) error

// Record calls f(ctx).
func (f RecordFunc) Record(ctx *PassContext) error { return f(ctx) }

// PassBuilder accumulates the accesses of one pass. The first failed
// declaration is kept and returned by Build; it also fails the graph.
type PassBuilder struct {
	g        *Graph
	name     string
	accesses []PassAccess
	err      error
	built    bool
}

// Err returns the first declaration error.
func (b *PassBuilder) Err() error { return b.err }

func (b *PassBuilder) fail(err error) error {
	err = fmt.Errorf("framegraph: pass %q: %w", b.name, err)
	if b.err == nil {
		b.err = err
	}
	return b.g.fail(err)
}

// Declare adds an access of h to the pass. Writes to read-only imports and
// views the resource's usage flags do not allow fail with ErrResourceAccess.
// Most callers use the typed helpers Read, Write and friends instead.
func (b *PassBuilder) Declare(h resource.RawHandle, access resource.Access, sync resource.SyncType) error {
	if b.built {
		return ErrPassFinalized
	}
	if b.g.consumed {
		return ErrGraphConsumed
	}
	info, err := b.g.info(h)
	if err != nil {
		return b.fail(err)
	}
	if !access.Valid() {
		return b.fail(fmt.Errorf("%w: invalid access %v on %s", ErrResourceAccess, access, info.label(h)))
	}
	if access.IsWrite() && info.readOnly {
		return b.fail(fmt.Errorf("%w: write to read-only import %s", ErrResourceAccess, info.label(h)))
	}
	if err := info.allowsView(access.View); err != nil {
		return b.fail(fmt.Errorf("%s: %w", info.label(h), err))
	}
	b.accesses = append(b.accesses, PassAccess{Resource: h, Access: access, Sync: sync})
	return nil
}

// Build finalizes the pass with rec and appends it to the graph.
func (b *PassBuilder) Build(rec PassRecorder) (*Pass, error) {
	if b.built {
		return nil, ErrPassFinalized
	}
	b.built = true
	if b.err != nil {
		return nil, b.err
	}
	if b.g.consumed {
		return nil, ErrGraphConsumed
	}
	if rec == nil {
		return nil, b.fail(ErrNilRecorder)
	}
	p := &Pass{
		index:    len(b.g.passes),
		name:     b.name,
		accesses: b.accesses,
		recorder: rec,
	}
	b.g.passes = append(b.g.passes, p)
	return p, nil
}

// Read declares a shader-resource read of h.
func Read[K resource.Kind](b *PassBuilder, h resource.Handle[K]) resource.Ref[K, resource.SRV] {
	_ = b.Declare(h.Raw(), resource.AccessShaderRead, resource.AlwaysSync)
	return resource.NewRef[K, resource.SRV](h)
}

// ReadStorage declares an unordered-access read of h.
func ReadStorage[K resource.Kind](b *PassBuilder, h resource.Handle[K]) resource.Ref[K, resource.UAV] {
	_ = b.Declare(h.Raw(), resource.AccessStorageRead, resource.AlwaysSync)
	return resource.NewRef[K, resource.UAV](h)
}

// Write declares an unordered-access write of h.
func Write[K resource.Kind](b *PassBuilder, h resource.Handle[K]) resource.Ref[K, resource.UAV] {
	_ = b.Declare(h.Raw(), resource.AccessStorageWrite, resource.AlwaysSync)
	return resource.NewRef[K, resource.UAV](h)
}

// WriteNoSync declares an unordered-access write of h that needs no barrier
// after an identical write, for passes that touch disjoint regions.
func WriteNoSync[K resource.Kind](b *PassBuilder, h resource.Handle[K]) resource.Ref[K, resource.UAV] {
	_ = b.Declare(h.Raw(), resource.AccessStorageWrite, resource.SkipSyncIfSame)
	return resource.NewRef[K, resource.UAV](h)
}

// Raster declares h as a render target written by the pass.
func Raster(b *PassBuilder, h resource.Handle[resource.ImageResource]) resource.Ref[resource.ImageResource, resource.RT] {
	_ = b.Declare(h.Raw(), resource.AccessTargetWrite, resource.AlwaysSync)
	return resource.NewRef[resource.ImageResource, resource.RT](h)
}

// RasterRead declares h as a read-only attachment, such as a depth buffer
// with depth writes disabled.
func RasterRead(b *PassBuilder, h resource.Handle[resource.ImageResource]) resource.Ref[resource.ImageResource, resource.RT] {
	_ = b.Declare(h.Raw(), resource.AccessTargetRead, resource.AlwaysSync)
	return resource.NewRef[resource.ImageResource, resource.RT](h)
}

// PassContext is handed to a PassRecorder. It resolves the pass's declared
// references to physical objects.
type PassContext struct {
	pass     *Pass
	frame    uint64
	commands resource.CommandRecorder
	run      *frameRun
}

// Pass returns the pass being recorded.
func (c *PassContext) Pass() *Pass { return c.pass }

// Frame returns the id of the executing frame.
func (c *PassContext) Frame() uint64 { return c.frame }

// Commands returns the command recorder of the frame.
func (c *PassContext) Commands() resource.CommandRecorder { return c.commands }

// Image returns the physical image behind r. Using a reference the pass did
// not declare is a programming error and panics.
func (c *PassContext) Image(r resource.Referent) resource.Image {
	st := c.resolve(r.Raw(), resource.KindImage)
	return st.image
}

// Buffer returns the physical buffer behind r. See Image.
func (c *PassContext) Buffer(r resource.Referent) resource.Buffer {
	st := c.resolve(r.Raw(), resource.KindBuffer)
	return st.buffer
}

func (c *PassContext) resolve(h resource.RawHandle, kind resource.ResourceKind) *realized {
	if h.Kind != kind {
		panic(fmt.Sprintf("framegraph: pass %q resolves %v as %v", c.pass.name, h, kind))
	}
	if !c.pass.declares(h) {
		panic(fmt.Sprintf("framegraph: pass %q uses undeclared resource %v", c.pass.name, h))
	}
	return c.run.state(h)
}
