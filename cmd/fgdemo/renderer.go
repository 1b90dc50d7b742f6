package main

import (
	"fmt"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/internal/config"
	"github.com/gogpu/framegraph/resource"
	"github.com/gogpu/framegraph/temporal"
)

// historySlot is the part of a temporal slot the renderer drives.
type historySlot interface {
	SetCurrent(*framegraph.ExportedImage)
	Advance()
	Reset()
	at(i int) *framegraph.ExportedImage
}

type pingPongSlot struct {
	*temporal.PingPong[*framegraph.ExportedImage]
}

func (s pingPongSlot) at(i int) *framegraph.ExportedImage {
	if i != 0 {
		return nil
	}
	return s.History()
}

type ringSlot struct {
	*temporal.Ring[*framegraph.ExportedImage]
}

func (s ringSlot) at(i int) *framegraph.ExportedImage { return s.History(i) }

// renderer turns a script into one graph per frame.
type renderer struct {
	script *config.Script
	exec   *framegraph.Executor
	slots  map[string]historySlot
}

func newRenderer(s *config.Script, exec *framegraph.Executor) *renderer {
	r := &renderer{script: s, exec: exec, slots: make(map[string]historySlot, len(s.Temporals))}
	drop := temporal.WithDrop(exec.ReleaseExportedImage)
	for _, t := range s.Temporals {
		if t.History == 1 {
			r.slots[t.Name] = pingPongSlot{temporal.NewPingPong(drop)}
		} else {
			r.slots[t.Name] = ringSlot{temporal.NewRing(t.History, drop)}
		}
	}
	return r
}

// commander is implemented by recorders that log named commands.
type commander interface {
	Command(name string, obj any)
}

func passRecorder(name string, declared []resource.RawHandle) framegraph.PassRecorder {
	return framegraph.RecordFunc(func(ctx *framegraph.PassContext) error {
		c, ok := ctx.Commands().(commander)
		if !ok {
			return nil
		}
		for _, h := range declared {
			if h.Kind == resource.KindImage {
				c.Command(name, ctx.Image(h))
			} else {
				c.Command(name, ctx.Buffer(h))
			}
		}
		return nil
	})
}

// frame builds and executes the graph for one frame, then advances every
// temporal slot. History that does not exist yet is left out of the passes
// that read it. Temporal images are named after the frame that wrote them.
func (r *renderer) frame(cmds resource.CommandRecorder, frame uint64) (*framegraph.Retired, error) {
	g := r.exec.BeginGraph()
	handles := make(map[config.Ref]resource.RawHandle)

	for _, img := range r.script.Images {
		h, err := g.CreateImage(img.Desc, img.Name)
		if err != nil {
			return nil, err
		}
		handles[config.Ref{Name: img.Name}] = h.Raw()
	}
	for _, buf := range r.script.Buffers {
		h, err := g.CreateBuffer(buf.Desc, buf.Name)
		if err != nil {
			return nil, err
		}
		handles[config.Ref{Name: buf.Name}] = h.Raw()
	}
	for _, t := range r.script.Temporals {
		slot := r.slots[t.Name]
		for i := 0; i < t.History; i++ {
			x := slot.at(i)
			if !x.Resolved() {
				continue
			}
			h := g.ImportExportedImage(x)
			handles[config.Ref{Name: t.Name, Part: config.PartHistory, History: i}] = h.Raw()
		}
		cur, err := g.CreateImage(t.Desc, fmt.Sprintf("%s@%d", t.Name, frame))
		if err != nil {
			return nil, err
		}
		slot.SetCurrent(g.ExportImage(cur))
		handles[config.Ref{Name: t.Name, Part: config.PartCurrent}] = cur.Raw()
	}

	for _, p := range r.script.Passes {
		pb := g.AddPass(p.Name)
		declared := make([]resource.RawHandle, 0, len(p.Uses))
		for _, u := range p.Uses {
			h, ok := handles[u.Ref]
			if !ok {
				continue
			}
			if err := pb.Declare(h, u.Access, u.Sync); err != nil {
				return nil, err
			}
			declared = append(declared, h)
		}
		if _, err := pb.Build(passRecorder(p.Name, declared)); err != nil {
			return nil, err
		}
	}

	retired, err := r.exec.Execute(g, cmds, frame)
	if err != nil {
		return nil, err
	}
	for _, slot := range r.slots {
		slot.Advance()
	}
	return retired, nil
}

// close drops all temporal history and the executor's pooled objects.
func (r *renderer) close() {
	for _, slot := range r.slots {
		slot.Reset()
	}
	r.exec.Close()
}
