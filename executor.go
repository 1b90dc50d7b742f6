package framegraph

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/framegraph/cache"
	"github.com/gogpu/framegraph/resource"
)

// Executor builds and executes frame graphs on one device. It owns the
// transient cache that backs created resources across frames.
//
// An Executor is driven by the frame loop and is not safe for concurrent
// use; its cache may be maintained from other goroutines.
type Executor struct {
	device       resource.Device
	cache        *cache.Transient
	logger       *slog.Logger
	autoMaintain bool

	lastFrame uint64
	frames    uint64
}

// New creates an executor that creates physical objects on device.
func New(device resource.Device, opts ...Option) *Executor {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	e := &Executor{
		device:       device,
		cache:        o.cache,
		logger:       o.logger,
		autoMaintain: o.autoMaintain,
	}
	if e.cache == nil {
		cfg := o.cacheConfig
		cfg.Logger = e.log()
		e.cache = cache.NewTransient(device, cfg)
	}
	if o.logger != nil {
		propagateLogger(device, o.logger)
	}
	e.log().Info("framegraph: executor created", "autoMaintain", e.autoMaintain)
	return e
}

func (e *Executor) log() *slog.Logger {
	if e.logger != nil {
		return e.logger
	}
	return Logger()
}

// Device returns the executor's device.
func (e *Executor) Device() resource.Device { return e.device }

// Cache returns the transient cache.
func (e *Executor) Cache() *cache.Transient { return e.cache }

// BeginGraph starts the declaration of a new frame.
func (e *Executor) BeginGraph() *Graph { return newGraph(e) }

// realized is the execution state of one logical resource.
type realized struct {
	image  resource.Image
	buffer resource.Buffer
	access resource.Access
	ok     bool

	// lastUse is the index of the last pass declaring the resource, -1 if
	// no pass does.
	lastUse int
	queued  bool
}

// frameRun is the registry for one Execute call.
type frameRun struct {
	g      *Graph
	frame  uint64
	states []realized

	releases []resource.RawHandle
	acquired int
}

func newFrameRun(g *Graph, frame uint64) *frameRun {
	r := &frameRun{g: g, frame: frame, states: make([]realized, len(g.resources))}
	for i := range r.states {
		r.states[i].lastUse = -1
	}
	for _, p := range g.passes {
		for _, a := range p.accesses {
			r.states[a.Resource.Index()].lastUse = p.index
		}
	}
	return r
}

// state returns the realized state of h. Touching a handle that was never
// realized means the registry walk is broken, so it panics.
func (r *frameRun) state(h resource.RawHandle) *realized {
	if h.IsInvalid() || int(h.Index()) >= len(r.states) {
		panic(fmt.Sprintf("framegraph: unregistered resource %v", h))
	}
	st := &r.states[h.Index()]
	if !st.ok {
		panic(fmt.Sprintf("framegraph: resource %v used before realization", h))
	}
	return st
}

// Execute runs g: passes are recorded in build order into rec, with the
// barriers each access needs recorded before the pass. Created resources
// are realized from the transient cache on first use and returned to it
// after their last use; the cache sees the returns at the end of the frame.
//
// Exports no pass used are realized after the last pass, and exports with
// a target access are transitioned into it.
//
// On error the frame is abandoned: no transient object acquired by it is
// returned to the cache, and no export is resolved.
func (e *Executor) Execute(g *Graph, rec resource.CommandRecorder, frameID uint64) (*Retired, error) {
	if g == nil || g.exec != e {
		return nil, ErrForeignGraph
	}
	if g.consumed {
		return nil, ErrGraphConsumed
	}
	g.consumed = true
	if g.err != nil {
		return nil, g.err
	}
	if rec == nil {
		return nil, ErrNilRecorder
	}
	if err := e.cache.BeginFrame(frameID); err != nil {
		return nil, fmt.Errorf("framegraph: %w", err)
	}

	run := newFrameRun(g, frameID)
	retired, err := e.walk(run, rec)
	if err != nil {
		if run.acquired > 0 {
			e.log().Warn("framegraph: frame aborted, transient objects not returned",
				"frame", frameID, "objects", run.acquired, "err", err)
		}
		if endErr := e.cache.EndFrame(); endErr != nil {
			e.log().Warn("framegraph: end frame", "err", endErr)
		}
		return nil, err
	}

	e.resolveExports(run, retired)
	for _, h := range run.releases {
		st := &run.states[h.Index()]
		if st.image != nil {
			e.cache.ReleaseImage(st.image, frameID)
		} else {
			e.cache.ReleaseBuffer(st.buffer, frameID)
		}
	}
	retired.Stats.Released = len(run.releases)
	if err := e.cache.EndFrame(); err != nil {
		return nil, fmt.Errorf("framegraph: %w", err)
	}
	if e.autoMaintain {
		e.cache.Maintain()
	}

	e.lastFrame = frameID
	e.frames++
	e.log().Debug("framegraph: frame executed", "frame", frameID, "stats", retired.Stats)
	return retired, nil
}

// walk visits every pass in order: realize, barrier, record.
func (e *Executor) walk(run *frameRun, rec resource.CommandRecorder) (*Retired, error) {
	g := run.g
	retired := newRetired(g, run.frame)
	marker, _ := rec.(resource.PassMarker)

	for _, p := range g.passes {
		var barriers []resource.Barrier
		for _, a := range p.accesses {
			st := &run.states[a.Resource.Index()]
			if !st.ok {
				if err := e.realize(run, p, a.Resource); err != nil {
					return nil, err
				}
			}
			if resource.NeedsBarrier(st.access, a.Access, a.Sync) {
				barriers = append(barriers, resource.Barrier{
					Image:  st.image,
					Buffer: st.buffer,
					From:   st.access,
					To:     a.Access,
				})
				retired.Barriers = append(retired.Barriers, BarrierRecord{
					Pass:     p.index,
					PassName: p.name,
					Resource: a.Resource,
					From:     st.access,
					To:       a.Access,
				})
				e.log().Debug("framegraph: barrier", "pass", p.name,
					"resource", g.resources[a.Resource.Index()].label(a.Resource),
					"from", st.access, "to", a.Access)
			}
			st.access = a.Access
			retired.noteAccess(a.Resource, p.index, a.Access)
		}
		if len(barriers) > 0 {
			rec.RecordBarriers(barriers)
		}

		if marker != nil {
			marker.BeginPass(p.name)
		}
		err := p.recorder.Record(&PassContext{pass: p, frame: run.frame, commands: rec, run: run})
		if marker != nil {
			marker.EndPass()
		}
		if err != nil {
			return nil, &PassError{Pass: p.name, Index: p.index, Err: err}
		}

		for _, a := range p.accesses {
			st := &run.states[a.Resource.Index()]
			info := &g.resources[a.Resource.Index()]
			if st.lastUse != p.index || st.queued || info.origin != originCreated || info.exported() {
				continue
			}
			st.queued = true
			run.releases = append(run.releases, a.Resource)
		}
	}

	if err := e.finishExports(run, rec, retired); err != nil {
		return nil, err
	}

	retired.Stats.Passes = len(g.passes)
	retired.Stats.Resources = len(g.resources)
	retired.Stats.Barriers = len(retired.Barriers)
	return retired, nil
}

// exportPass is the pass name of transitions recorded after the last pass.
const exportPass = "export"

// finishExports realizes exports no pass used and moves exports with a
// target access into it. The transitions are recorded as one batch after
// the last pass.
func (e *Executor) finishExports(run *frameRun, rec resource.CommandRecorder, retired *Retired) error {
	g := run.g
	var barriers []resource.Barrier
	for i := range g.resources {
		info := &g.resources[i]
		//nolint:gosec // G115: index bounded by resource count
		h := resource.NewRawHandle(info.kind, uint32(i))
		st := &run.states[i]
		target, hasTarget := info.exportTarget()
		if !info.exported() && !hasTarget {
			continue
		}
		if !st.ok {
			if err := e.realize(run, nil, h); err != nil {
				return err
			}
		}
		if !hasTarget || st.access == target {
			continue
		}
		if resource.NeedsBarrier(st.access, target, resource.AlwaysSync) {
			barriers = append(barriers, resource.Barrier{
				Image:  st.image,
				Buffer: st.buffer,
				From:   st.access,
				To:     target,
			})
			retired.Barriers = append(retired.Barriers, BarrierRecord{
				Pass:     len(g.passes),
				PassName: exportPass,
				Resource: h,
				From:     st.access,
				To:       target,
			})
			e.log().Debug("framegraph: export transition", "resource", info.label(h),
				"from", st.access, "to", target)
		}
		st.access = target
	}
	if len(barriers) > 0 {
		rec.RecordBarriers(barriers)
	}
	return nil
}

// realize binds h to a physical object. p is nil for exports that no pass
// used.
func (e *Executor) realize(run *frameRun, p *Pass, h resource.RawHandle) error {
	if h.IsInvalid() || int(h.Index()) >= len(run.g.resources) {
		panic(fmt.Sprintf("framegraph: realizing unregistered resource %v", h))
	}
	info := &run.g.resources[h.Index()]
	st := &run.states[h.Index()]

	switch info.origin {
	case originImported:
		st.image, st.buffer = info.image, info.buffer
		st.access = info.initial
	case originCreated:
		var err error
		op := "create image"
		if info.kind == resource.KindImage {
			st.image, err = e.cache.AcquireImage(info.imageDesc, info.label(h))
		} else {
			op = "create buffer"
			st.buffer, err = e.cache.AcquireBuffer(info.bufferDesc, info.label(h))
		}
		if err != nil {
			de := &DeviceError{Op: op, Resource: info.label(h), Err: err}
			if p != nil {
				de.Pass = p.name
			}
			return de
		}
		run.acquired++
		st.access = resource.AccessNone
	}
	st.ok = true
	e.log().Debug("framegraph: realized", "resource", info.label(h), "frame", run.frame)
	return nil
}

// resolveExports fills export records and writes final states back to the
// records imported resources came from. Records released before execution
// stay empty; their objects were queued for release by walk.
func (e *Executor) resolveExports(run *frameRun, retired *Retired) {
	for i := range run.g.resources {
		info := &run.g.resources[i]
		st := &run.states[i]
		if !st.ok {
			continue
		}

		switch {
		case info.exportImage != nil:
			if x := info.exportImage; !x.released {
				x.image, x.access, x.frame = st.image, st.access, run.frame
				retired.Stats.Exported++
			}
		case info.exportBuffer != nil:
			if x := info.exportBuffer; !x.released {
				x.buffer, x.access, x.frame = st.buffer, st.access, run.frame
				retired.Stats.Exported++
			}
		case info.sourceImage != nil:
			info.sourceImage.access, info.sourceImage.frame = st.access, run.frame
		case info.sourceBuffer != nil:
			info.sourceBuffer.access, info.sourceBuffer.frame = st.access, run.frame
		}
	}
}

// ReleaseExportedImage gives up x. If x holds a transient object it goes
// back to the cache, reusable once the frames in flight after x's last use
// have passed. x is invalid afterwards. Suitable as a temporal slot drop
// hook.
func (e *Executor) ReleaseExportedImage(x *ExportedImage) {
	if x.IsInvalid() {
		return
	}
	x.released = true
	if x.owned && x.image != nil {
		e.cache.ReleaseImage(x.image, x.frame)
		e.log().Debug("framegraph: released export", "resource", x.name, "frame", x.frame)
	}
}

// ReleaseExportedBuffer gives up x. See ReleaseExportedImage.
func (e *Executor) ReleaseExportedBuffer(x *ExportedBuffer) {
	if x.IsInvalid() {
		return
	}
	x.released = true
	if x.owned && x.buffer != nil {
		e.cache.ReleaseBuffer(x.buffer, x.frame)
		e.log().Debug("framegraph: released export", "resource", x.name, "frame", x.frame)
	}
}

// Close destroys every pooled transient object. Objects held by unreleased
// exports are not affected.
func (e *Executor) Close() {
	n := e.cache.Clear()
	e.log().Info("framegraph: executor closed", "frames", e.frames, "destroyed", n)
}
