package config

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"

	"github.com/gogpu/framegraph/resource"
)

// fileRoot decodes the top level of a frame script.
type fileRoot struct {
	Frames    *int             `hcl:"frames,optional"`
	Backend   string           `hcl:"backend,optional"`
	Cache     *cacheBlock      `hcl:"cache,block"`
	Images    []*imageBlock    `hcl:"image,block"`
	Buffers   []*bufferBlock   `hcl:"buffer,block"`
	Temporals []*temporalBlock `hcl:"temporal,block"`
	Passes    []*passBlock     `hcl:"pass,block"`
}

type cacheBlock struct {
	FramesInFlight *int `hcl:"frames_in_flight,optional"`
	Retention      *int `hcl:"retention,optional"`
}

type imageBlock struct {
	Name      string         `hcl:"name,label"`
	Width     int            `hcl:"width"`
	Height    int            `hcl:"height"`
	Depth     int            `hcl:"depth,optional"`
	MipLevels int            `hcl:"mip_levels,optional"`
	Layers    int            `hcl:"layers,optional"`
	Format    hcl.Expression `hcl:"format"`
	Usage     hcl.Expression `hcl:"usage"`
}

type bufferBlock struct {
	Name  string         `hcl:"name,label"`
	Size  int            `hcl:"size"`
	Usage hcl.Expression `hcl:"usage,optional"`
}

type temporalBlock struct {
	Name      string         `hcl:"name,label"`
	Kind      string         `hcl:"kind,optional"`
	History   int            `hcl:"history,optional"`
	Width     int            `hcl:"width"`
	Height    int            `hcl:"height"`
	Depth     int            `hcl:"depth,optional"`
	MipLevels int            `hcl:"mip_levels,optional"`
	Layers    int            `hcl:"layers,optional"`
	Format    hcl.Expression `hcl:"format"`
	Usage     hcl.Expression `hcl:"usage"`
}

type passBlock struct {
	Name        string         `hcl:"name,label"`
	Read        hcl.Expression `hcl:"read,optional"`
	ReadStorage hcl.Expression `hcl:"read_storage,optional"`
	Write       hcl.Expression `hcl:"write,optional"`
	WriteNoSync hcl.Expression `hcl:"write_no_sync,optional"`
	Raster      hcl.Expression `hcl:"raster,optional"`
	RasterRead  hcl.Expression `hcl:"raster_read,optional"`
}

var textureFormats = map[string]gputypes.TextureFormat{
	"r8unorm":              gputypes.TextureFormatR8Unorm,
	"rgba8unorm":           gputypes.TextureFormatRGBA8Unorm,
	"bgra8unorm":           gputypes.TextureFormatBGRA8Unorm,
	"rgba16float":          gputypes.TextureFormatRGBA16Float,
	"rgba32float":          gputypes.TextureFormatRGBA32Float,
	"depth24plus-stencil8": gputypes.TextureFormatDepth24PlusStencil8,
}

var textureUsages = map[string]gputypes.TextureUsage{
	"copy_src": gputypes.TextureUsageCopySrc,
	"copy_dst": gputypes.TextureUsageCopyDst,
	"texture":  gputypes.TextureUsageTextureBinding,
	"storage":  gputypes.TextureUsageStorageBinding,
	"render":   gputypes.TextureUsageRenderAttachment,
}

var bufferUsages = map[string]gputypes.BufferUsage{
	"map_read":  gputypes.BufferUsageMapRead,
	"map_write": gputypes.BufferUsageMapWrite,
	"copy_src":  gputypes.BufferUsageCopySrc,
	"copy_dst":  gputypes.BufferUsageCopyDst,
	"vertex":    gputypes.BufferUsageVertex,
	"uniform":   gputypes.BufferUsageUniform,
	"storage":   gputypes.BufferUsageStorage,
}

// EvalContext returns the expression context scripts are evaluated in.
func EvalContext(screen Screen) *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"screen": cty.ObjectVal(map[string]cty.Value{
				"width":  cty.NumberIntVal(int64(screen.Width)),
				"height": cty.NumberIntVal(int64(screen.Height)),
			}),
		},
		Functions: map[string]function.Function{
			"min":   stdlib.MinFunc,
			"max":   stdlib.MaxFunc,
			"floor": stdlib.FloorFunc,
			"ceil":  stdlib.CeilFunc,
		},
	}
}

// Load reads and decodes the frame script at path.
func Load(path string, screen Screen) (*Script, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse frame script %s: %w", path, diags)
	}
	return decode(file.Body, path, screen)
}

// Parse decodes a frame script held in memory. filename is used in
// diagnostics only.
func Parse(src []byte, filename string, screen Screen) (*Script, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse frame script %s: %w", filename, diags)
	}
	return decode(file.Body, filename, screen)
}

func decode(body hcl.Body, filename string, screen Screen) (*Script, error) {
	if screen.Width <= 0 || screen.Height <= 0 {
		return nil, fmt.Errorf("config: invalid screen %dx%d", screen.Width, screen.Height)
	}
	ctx := EvalContext(screen)

	var root fileRoot
	if diags := gohcl.DecodeBody(body, ctx, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode frame script %s: %w", filename, diags)
	}

	d := &decoder{ctx: ctx, names: make(map[string]string)}
	s := d.script(&root)
	if d.diags.HasErrors() {
		return nil, fmt.Errorf("invalid frame script %s: %w", filename, d.diags)
	}
	return s, nil
}

// decoder translates decoded blocks into a Script, collecting diagnostics.
type decoder struct {
	ctx   *hcl.EvalContext
	diags hcl.Diagnostics
	// names maps every declared name to its block type.
	names map[string]string
}

func (d *decoder) errorf(rng hcl.Range, summary, format string, args ...any) {
	d.diags = append(d.diags, &hcl.Diagnostic{
		Severity: hcl.DiagError,
		Summary:  summary,
		Detail:   fmt.Sprintf(format, args...),
		Subject:  rng.Ptr(),
	})
}

func (d *decoder) script(root *fileRoot) *Script {
	s := &Script{
		Frames:         DefaultFrames,
		Backend:        root.Backend,
		FramesInFlight: -1,
		Retention:      -1,
	}
	if root.Frames != nil {
		s.Frames = *root.Frames
		if s.Frames < 1 {
			d.diags = append(d.diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Invalid frame count",
				Detail:   fmt.Sprintf("frames must be at least 1, got %d.", s.Frames),
			})
		}
	}
	if c := root.Cache; c != nil {
		if c.FramesInFlight != nil {
			s.FramesInFlight = *c.FramesInFlight
		}
		if c.Retention != nil {
			s.Retention = *c.Retention
		}
		if s.FramesInFlight < -1 || s.Retention < -1 {
			d.diags = append(d.diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Invalid cache settings",
				Detail:   "frames_in_flight and retention must not be negative.",
			})
		}
	}

	for _, b := range root.Images {
		desc, ok := d.imageDesc(b.Width, b.Height, b.Depth, b.MipLevels, b.Layers, b.Format, b.Usage)
		if d.declare(b.Name, "image", b.Format.Range()) && ok {
			s.Images = append(s.Images, Image{Name: b.Name, Desc: desc})
		}
	}
	for _, b := range root.Buffers {
		desc, ok := d.bufferDesc(b)
		if d.declare(b.Name, "buffer", b.Usage.Range()) && ok {
			s.Buffers = append(s.Buffers, Buffer{Name: b.Name, Desc: desc})
		}
	}
	for _, b := range root.Temporals {
		t, ok := d.temporal(b)
		if d.declare(b.Name, "temporal", b.Format.Range()) && ok {
			s.Temporals = append(s.Temporals, t)
		}
	}

	seen := make(map[string]bool)
	for _, b := range root.Passes {
		if seen[b.Name] {
			d.errorf(b.Read.Range(), "Duplicate pass", "A pass named %q has already been declared.", b.Name)
			continue
		}
		seen[b.Name] = true
		s.Passes = append(s.Passes, d.pass(s, b))
	}
	return s
}

// declare records name and reports whether it was new.
func (d *decoder) declare(name, kind string, rng hcl.Range) bool {
	if prev, ok := d.names[name]; ok {
		d.errorf(rng, "Duplicate resource name",
			"A %s named %q conflicts with the %s of the same name.", kind, name, prev)
		return false
	}
	d.names[name] = kind
	return true
}

// stringList evaluates an optional list of strings. Absent attributes
// evaluate to null and yield nil.
func (d *decoder) stringList(expr hcl.Expression) []string {
	val, diags := expr.Value(d.ctx)
	if diags.HasErrors() {
		d.diags = append(d.diags, diags...)
		return nil
	}
	if val.IsNull() {
		return nil
	}
	var out []string
	d.diags = append(d.diags, gohcl.DecodeExpression(expr, d.ctx, &out)...)
	return out
}

func (d *decoder) imageDesc(width, height, depth, mips, layers int, format, usage hcl.Expression) (resource.ImageDesc, bool) {
	var name string
	if diags := gohcl.DecodeExpression(format, d.ctx, &name); diags.HasErrors() {
		d.diags = append(d.diags, diags...)
		return resource.ImageDesc{}, false
	}
	f, ok := textureFormats[name]
	if !ok {
		d.errorf(format.Range(), "Unknown texture format", "%q is not a supported format.", name)
		return resource.ImageDesc{}, false
	}

	var flags gputypes.TextureUsage
	for _, u := range d.stringList(usage) {
		bit, ok := textureUsages[u]
		if !ok {
			d.errorf(usage.Range(), "Unknown texture usage", "%q is not a texture usage.", u)
			return resource.ImageDesc{}, false
		}
		flags |= bit
	}

	if width <= 0 || height <= 0 || depth < 0 || mips < 0 || layers < 0 {
		d.errorf(format.Range(), "Invalid image extent",
			"Extent %dx%dx%d with %d mips and %d layers is not valid.", width, height, depth, mips, layers)
		return resource.ImageDesc{}, false
	}
	//nolint:gosec // G115: checked non-negative above
	desc := resource.NewImage2D(uint32(width), uint32(height), f).WithUsage(flags)
	if depth > 0 {
		desc.Depth = uint32(depth) //nolint:gosec // G115: checked above
	}
	if layers > 0 {
		desc = desc.WithArrayLayers(uint32(layers)) //nolint:gosec // G115: checked above
	}
	if mips > 0 {
		desc = desc.WithMipLevels(uint32(mips)) //nolint:gosec // G115: checked above
	}
	if err := desc.Validate(); err != nil {
		d.errorf(format.Range(), "Invalid image", "%v.", err)
		return resource.ImageDesc{}, false
	}
	return desc, true
}

func (d *decoder) bufferDesc(b *bufferBlock) (resource.BufferDesc, bool) {
	if b.Size <= 0 {
		d.errorf(b.Usage.Range(), "Invalid buffer size", "Buffer %q needs a positive size, got %d.", b.Name, b.Size)
		return resource.BufferDesc{}, false
	}
	desc := resource.NewBuffer(uint64(b.Size))
	if names := d.stringList(b.Usage); names != nil {
		var flags gputypes.BufferUsage
		for _, u := range names {
			bit, ok := bufferUsages[u]
			if !ok {
				d.errorf(b.Usage.Range(), "Unknown buffer usage", "%q is not a buffer usage.", u)
				return resource.BufferDesc{}, false
			}
			flags |= bit
		}
		desc = desc.WithUsage(flags)
	}
	if err := desc.Validate(); err != nil {
		d.errorf(b.Usage.Range(), "Invalid buffer", "%v.", err)
		return resource.BufferDesc{}, false
	}
	return desc, true
}

func (d *decoder) temporal(b *temporalBlock) (Temporal, bool) {
	t := Temporal{Name: b.Name}
	switch b.Kind {
	case "", "pingpong":
		t.History = 1
		if b.History > 1 {
			d.errorf(b.Format.Range(), "Invalid history depth",
				"A pingpong slot keeps one history image; use kind = \"ring\" for %d.", b.History)
			return t, false
		}
	case "ring":
		t.History = b.History
		if t.History < 1 {
			d.errorf(b.Format.Range(), "Invalid history depth",
				"A ring slot needs history >= 1, got %d.", b.History)
			return t, false
		}
	default:
		d.errorf(b.Format.Range(), "Unknown temporal kind",
			"%q is not a temporal kind; use \"pingpong\" or \"ring\".", b.Kind)
		return t, false
	}

	desc, ok := d.imageDesc(b.Width, b.Height, b.Depth, b.MipLevels, b.Layers, b.Format, b.Usage)
	t.Desc = desc
	return t, ok
}

func (d *decoder) pass(s *Script, b *passBlock) Pass {
	p := Pass{Name: b.Name}
	lists := []struct {
		expr   hcl.Expression
		access resource.Access
		sync   resource.SyncType
	}{
		{b.Read, resource.AccessShaderRead, resource.AlwaysSync},
		{b.ReadStorage, resource.AccessStorageRead, resource.AlwaysSync},
		{b.Write, resource.AccessStorageWrite, resource.AlwaysSync},
		{b.WriteNoSync, resource.AccessStorageWrite, resource.SkipSyncIfSame},
		{b.Raster, resource.AccessTargetWrite, resource.AlwaysSync},
		{b.RasterRead, resource.AccessTargetRead, resource.AlwaysSync},
	}
	for _, l := range lists {
		for _, name := range d.stringList(l.expr) {
			ref, ok := d.ref(s, name, l.expr.Range())
			if ok {
				p.Uses = append(p.Uses, Use{Ref: ref, Access: l.access, Sync: l.sync})
			}
		}
	}
	return p
}

// ref resolves a reference against the declared resources.
func (d *decoder) ref(s *Script, name string, rng hcl.Range) (Ref, bool) {
	ref, err := parseRef(name)
	if err != nil {
		d.errorf(rng, "Invalid resource reference", "%v.", err)
		return Ref{}, false
	}

	kind, ok := d.names[ref.Name]
	if !ok {
		d.errorf(rng, "Reference to undeclared resource", "No image, buffer or temporal named %q.", ref.Name)
		return Ref{}, false
	}
	switch {
	case kind == "temporal" && ref.Part == PartResource:
		d.errorf(rng, "Invalid resource reference",
			"Temporal %q must be referenced as %q or %q.", ref.Name, ref.Name+".current", ref.Name+".history")
		return Ref{}, false
	case kind != "temporal" && ref.Part != PartResource:
		d.errorf(rng, "Invalid resource reference", "The %s %q has no %s part.", kind, ref.Name, ref)
		return Ref{}, false
	case ref.Part == PartHistory:
		if t, _ := s.Temporal(ref.Name); ref.History >= t.History {
			d.errorf(rng, "History out of range",
				"Temporal %q keeps %d history images; %q is out of range.", ref.Name, t.History, name)
			return Ref{}, false
		}
	}
	return ref, true
}
