package framegraph

import (
	"fmt"

	"github.com/gogpu/framegraph/resource"
)

type origin uint8

const (
	originCreated origin = iota
	originImported
)

// resourceInfo is the pending state of one logical resource: everything the
// registry needs to realize it at execution.
type resourceInfo struct {
	kind     resource.ResourceKind
	name     string
	origin   origin
	readOnly bool

	imageDesc  resource.ImageDesc
	bufferDesc resource.BufferDesc

	// Physical object and its state on entry, for imported resources.
	image   resource.Image
	buffer  resource.Buffer
	initial resource.Access

	// Export records filled after execution, and the access the resource
	// is left in. AccessNone keeps the last pass's access.
	exportImage  *ExportedImage
	exportBuffer *ExportedBuffer
	exportAccess resource.Access

	// Export records this resource was imported from.
	sourceImage  *ExportedImage
	sourceBuffer *ExportedBuffer
}

func (r *resourceInfo) label(h resource.RawHandle) string {
	if r.name != "" {
		return r.name
	}
	return h.String()
}

func (r *resourceInfo) allowsView(v resource.View) error {
	if r.kind == resource.KindImage {
		return r.imageDesc.AllowsView(v)
	}
	return r.bufferDesc.AllowsView(v)
}

// exported reports whether an export record still wants the resource after
// the graph. A record dropped before execution no longer does, and the
// resource goes back to the cache like any other transient.
func (r *resourceInfo) exported() bool {
	return (r.exportImage != nil && !r.exportImage.released) ||
		(r.exportBuffer != nil && !r.exportBuffer.released)
}

// exportTarget returns the access the resource must end the graph in.
func (r *resourceInfo) exportTarget() (resource.Access, bool) {
	if !r.exportAccess.Valid() {
		return resource.AccessNone, false
	}
	switch {
	case r.exportImage != nil || r.exportBuffer != nil:
		return r.exportAccess, r.exported()
	case r.sourceImage != nil:
		return r.exportAccess, !r.sourceImage.released
	case r.sourceBuffer != nil:
		return r.exportAccess, !r.sourceBuffer.released
	}
	return resource.AccessNone, false
}

// Graph is the declaration of one frame: logical resources plus an ordered
// list of passes. Passes run in the order they were built.
//
// A Graph is built by a single goroutine and executed once.
type Graph struct {
	exec      *Executor
	resources []resourceInfo
	passes    []*Pass

	// imports maps export records to their handle in this graph.
	imports map[any]resource.RawHandle

	err      error
	consumed bool
}

func newGraph(exec *Executor) *Graph {
	return &Graph{
		exec:    exec,
		imports: make(map[any]resource.RawHandle),
	}
}

// Err returns the first build error, if any. A graph with a build error
// cannot be executed.
func (g *Graph) Err() error { return g.err }

// Passes returns the built passes in execution order.
func (g *Graph) Passes() []*Pass {
	out := make([]*Pass, len(g.passes))
	copy(out, g.passes)
	return out
}

// NumResources returns the number of logical resources declared so far.
func (g *Graph) NumResources() int { return len(g.resources) }

// fail records err as the graph's build error unless one is already set.
func (g *Graph) fail(err error) error {
	if g.err == nil {
		g.err = err
	}
	return err
}

func (g *Graph) add(info resourceInfo) resource.RawHandle {
	//nolint:gosec // G115: resource count is far below 2^32
	h := resource.NewRawHandle(info.kind, uint32(len(g.resources)))
	g.resources = append(g.resources, info)
	return h
}

func (g *Graph) info(h resource.RawHandle) (*resourceInfo, error) {
	if h.IsInvalid() || int(h.Index()) >= len(g.resources) {
		return nil, fmt.Errorf("%w: unknown handle %v", ErrResourceAccess, h)
	}
	info := &g.resources[h.Index()]
	if info.kind != h.Kind {
		return nil, fmt.Errorf("%w: handle %v refers to a %v", ErrResourceAccess, h, info.kind)
	}
	return info, nil
}

// CreateImage declares a transient image. Its physical backing is taken
// from the transient cache on first use and returned after the last use.
func (g *Graph) CreateImage(desc resource.ImageDesc, name string) (resource.Handle[resource.ImageResource], error) {
	if g.consumed {
		return resource.Invalid[resource.ImageResource](), ErrGraphConsumed
	}
	if err := desc.Validate(); err != nil {
		return resource.Invalid[resource.ImageResource](), g.fail(fmt.Errorf("framegraph: create image %q: %w", name, err))
	}
	raw := g.add(resourceInfo{kind: resource.KindImage, name: name, imageDesc: desc})
	h, _ := resource.ImageFromRaw(raw)
	return h, nil
}

// CreateBuffer declares a transient buffer.
func (g *Graph) CreateBuffer(desc resource.BufferDesc, name string) (resource.Handle[resource.BufferResource], error) {
	if g.consumed {
		return resource.Invalid[resource.BufferResource](), ErrGraphConsumed
	}
	if err := desc.Validate(); err != nil {
		return resource.Invalid[resource.BufferResource](), g.fail(fmt.Errorf("framegraph: create buffer %q: %w", name, err))
	}
	raw := g.add(resourceInfo{kind: resource.KindBuffer, name: name, bufferDesc: desc})
	h, _ := resource.BufferFromRaw(raw)
	return h, nil
}

// ImportImage wraps an externally owned image for this graph. current is
// the access the image was last used with outside the graph, or
// resource.AccessNone if its contents are undefined. The image is never
// returned to the transient cache.
func (g *Graph) ImportImage(img resource.Image, current resource.Access, name string) resource.Handle[resource.ImageResource] {
	return g.importImage(img, current, name, false)
}

// ImportImageReadOnly is like ImportImage but rejects write declarations.
func (g *Graph) ImportImageReadOnly(img resource.Image, current resource.Access, name string) resource.Handle[resource.ImageResource] {
	return g.importImage(img, current, name, true)
}

func (g *Graph) importImage(img resource.Image, current resource.Access, name string, readOnly bool) resource.Handle[resource.ImageResource] {
	if g.consumed {
		_ = g.fail(ErrGraphConsumed)
		return resource.Invalid[resource.ImageResource]()
	}
	if img == nil {
		_ = g.fail(fmt.Errorf("%w: import of nil image %q", ErrResourceAccess, name))
		return resource.Invalid[resource.ImageResource]()
	}
	raw := g.add(resourceInfo{
		kind:      resource.KindImage,
		name:      name,
		origin:    originImported,
		readOnly:  readOnly,
		imageDesc: img.ImageDesc(),
		image:     img,
		initial:   current,
	})
	h, _ := resource.ImageFromRaw(raw)
	return h
}

// ImportBuffer wraps an externally owned buffer for this graph.
func (g *Graph) ImportBuffer(buf resource.Buffer, current resource.Access, name string) resource.Handle[resource.BufferResource] {
	return g.importBuffer(buf, current, name, false)
}

// ImportBufferReadOnly is like ImportBuffer but rejects write declarations.
func (g *Graph) ImportBufferReadOnly(buf resource.Buffer, current resource.Access, name string) resource.Handle[resource.BufferResource] {
	return g.importBuffer(buf, current, name, true)
}

func (g *Graph) importBuffer(buf resource.Buffer, current resource.Access, name string, readOnly bool) resource.Handle[resource.BufferResource] {
	if g.consumed {
		_ = g.fail(ErrGraphConsumed)
		return resource.Invalid[resource.BufferResource]()
	}
	if buf == nil {
		_ = g.fail(fmt.Errorf("%w: import of nil buffer %q", ErrResourceAccess, name))
		return resource.Invalid[resource.BufferResource]()
	}
	raw := g.add(resourceInfo{
		kind:       resource.KindBuffer,
		name:       name,
		origin:     originImported,
		readOnly:   readOnly,
		bufferDesc: buf.BufferDesc(),
		buffer:     buf,
		initial:    current,
	})
	h, _ := resource.BufferFromRaw(raw)
	return h
}

// ExportImage marks h to outlive this graph. The returned record resolves
// to the physical image after Execute. A transient image that is exported
// is not returned to the cache; release it with
// Executor.ReleaseExportedImage once no later frame needs it.
//
// Exporting a handle that was imported from an export returns that export.
func (g *Graph) ExportImage(h resource.Handle[resource.ImageResource]) *ExportedImage {
	if g.consumed {
		_ = g.fail(ErrGraphConsumed)
		return nil
	}
	info, err := g.info(h.Raw())
	if err != nil {
		_ = g.fail(fmt.Errorf("framegraph: export: %w", err))
		return nil
	}
	if info.sourceImage != nil {
		return info.sourceImage
	}
	if info.exportImage == nil || info.exportImage.released {
		info.exportImage = &ExportedImage{
			name:  info.label(h.Raw()),
			desc:  info.imageDesc,
			owned: info.origin == originCreated,
		}
	}
	return info.exportImage
}

// ExportBuffer marks h to outlive this graph. See ExportImage.
func (g *Graph) ExportBuffer(h resource.Handle[resource.BufferResource]) *ExportedBuffer {
	if g.consumed {
		_ = g.fail(ErrGraphConsumed)
		return nil
	}
	info, err := g.info(h.Raw())
	if err != nil {
		_ = g.fail(fmt.Errorf("framegraph: export: %w", err))
		return nil
	}
	if info.sourceBuffer != nil {
		return info.sourceBuffer
	}
	if info.exportBuffer == nil || info.exportBuffer.released {
		info.exportBuffer = &ExportedBuffer{
			name:  info.label(h.Raw()),
			desc:  info.bufferDesc,
			owned: info.origin == originCreated,
		}
	}
	return info.exportBuffer
}

// ExportImageAs exports h like ExportImage and leaves it in access when
// the graph ends, for consumers outside the graph such as presentation. If
// the last pass left h in another access a transition is recorded after
// it. Exporting again with another access replaces the target.
func (g *Graph) ExportImageAs(h resource.Handle[resource.ImageResource], access resource.Access) *ExportedImage {
	x := g.ExportImage(h)
	if x == nil || g.setExportAccess(h.Raw(), access) != nil {
		return nil
	}
	return x
}

// ExportBufferAs exports h like ExportBuffer and leaves it in access. See
// ExportImageAs.
func (g *Graph) ExportBufferAs(h resource.Handle[resource.BufferResource], access resource.Access) *ExportedBuffer {
	x := g.ExportBuffer(h)
	if x == nil || g.setExportAccess(h.Raw(), access) != nil {
		return nil
	}
	return x
}

func (g *Graph) setExportAccess(h resource.RawHandle, access resource.Access) error {
	info, err := g.info(h)
	if err != nil {
		return g.fail(fmt.Errorf("framegraph: export: %w", err))
	}
	if !access.Valid() {
		return g.fail(fmt.Errorf("%w: invalid export access %v on %s", ErrResourceAccess, access, info.label(h)))
	}
	if access.IsWrite() && info.readOnly {
		return g.fail(fmt.Errorf("%w: export of read-only import %s as %v", ErrResourceAccess, info.label(h), access))
	}
	if err := info.allowsView(access.View); err != nil {
		return g.fail(fmt.Errorf("%s: %w", info.label(h), err))
	}
	info.exportAccess = access
	return nil
}

// ImportExportedImage brings an image exported by an earlier graph into
// this one, in the state its last use left it. A nil export yields the
// invalid handle without error, so an empty temporal slot can be imported
// unconditionally. Importing the same export twice returns the same handle.
func (g *Graph) ImportExportedImage(e *ExportedImage) resource.Handle[resource.ImageResource] {
	invalid := resource.Invalid[resource.ImageResource]()
	switch {
	case e == nil:
		return invalid
	case g.consumed:
		_ = g.fail(ErrGraphConsumed)
		return invalid
	case e.released:
		_ = g.fail(fmt.Errorf("%w: import of released export %q", ErrResourceAccess, e.name))
		return invalid
	case !e.Resolved():
		_ = g.fail(fmt.Errorf("%w: export %q has not been executed", ErrResourceAccess, e.name))
		return invalid
	}
	if raw, ok := g.imports[e]; ok {
		h, _ := resource.ImageFromRaw(raw)
		return h
	}
	raw := g.add(resourceInfo{
		kind:        resource.KindImage,
		name:        e.name,
		origin:      originImported,
		imageDesc:   e.desc,
		image:       e.image,
		initial:     e.access,
		sourceImage: e,
	})
	g.imports[e] = raw
	h, _ := resource.ImageFromRaw(raw)
	return h
}

// ImportExportedBuffer brings a buffer exported by an earlier graph into
// this one. See ImportExportedImage.
func (g *Graph) ImportExportedBuffer(e *ExportedBuffer) resource.Handle[resource.BufferResource] {
	invalid := resource.Invalid[resource.BufferResource]()
	switch {
	case e == nil:
		return invalid
	case g.consumed:
		_ = g.fail(ErrGraphConsumed)
		return invalid
	case e.released:
		_ = g.fail(fmt.Errorf("%w: import of released export %q", ErrResourceAccess, e.name))
		return invalid
	case !e.Resolved():
		_ = g.fail(fmt.Errorf("%w: export %q has not been executed", ErrResourceAccess, e.name))
		return invalid
	}
	if raw, ok := g.imports[e]; ok {
		h, _ := resource.BufferFromRaw(raw)
		return h
	}
	raw := g.add(resourceInfo{
		kind:         resource.KindBuffer,
		name:         e.name,
		origin:       originImported,
		bufferDesc:   e.desc,
		buffer:       e.buffer,
		initial:      e.access,
		sourceBuffer: e,
	})
	g.imports[e] = raw
	h, _ := resource.BufferFromRaw(raw)
	return h
}

// AddPass begins a pass named name. The pass joins the graph when its
// builder's Build succeeds.
func (g *Graph) AddPass(name string) *PassBuilder {
	return &PassBuilder{g: g, name: name}
}
