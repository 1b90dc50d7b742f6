package timeline

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/google/go-cmp/cmp"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/backend/trace"
	"github.com/gogpu/framegraph/resource"
)

func nopRecord(*framegraph.PassContext) error { return nil }

// executeBloom runs lighting -> bloom -> taa with one unused image and the
// bloom image exported.
func executeBloom(t *testing.T) *framegraph.Retired {
	t.Helper()
	exec := framegraph.New(trace.NewDevice(trace.Config{}))
	g := exec.BeginGraph()
	desc := resource.NewImage2D(64, 64, gputypes.TextureFormatRGBA16Float)
	hdr, _ := g.CreateImage(desc, "hdr")
	bloom, _ := g.CreateImage(desc.HalfRes(), "bloom")
	if _, err := g.CreateImage(desc, "spare"); err != nil {
		t.Fatal(err)
	}
	g.ExportImage(bloom)

	pb := g.AddPass("lighting")
	framegraph.Write(pb, hdr)
	if _, err := pb.Build(framegraph.RecordFunc(nopRecord)); err != nil {
		t.Fatal(err)
	}
	pb = g.AddPass("bloom")
	framegraph.Read(pb, hdr)
	framegraph.Write(pb, bloom)
	if _, err := pb.Build(framegraph.RecordFunc(nopRecord)); err != nil {
		t.Fatal(err)
	}
	pb = g.AddPass("taa")
	framegraph.Read(pb, hdr)
	framegraph.Read(pb, bloom)
	if _, err := pb.Build(framegraph.RecordFunc(nopRecord)); err != nil {
		t.Fatal(err)
	}

	retired, err := exec.Execute(g, trace.NewRecorder("frame"), 7)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	return retired
}

func TestFromRetired(t *testing.T) {
	c := FromRetired(executeBloom(t))

	if diff := cmp.Diff([]string{"lighting", "bloom", "taa"}, c.Passes); diff != "" {
		t.Errorf("Passes mismatch (-want +got):\n%s", diff)
	}
	want := []Row{
		{Name: "hdr", Transient: true, First: 0, Last: 2, Uses: []int{0, 1, 2}, Barriers: []int{1}},
		{Name: "bloom", Transient: true, Exported: true, First: 1, Last: 2, Uses: []int{1, 2}, Barriers: []int{2}},
		{Name: "spare", Transient: true, First: -1, Last: -1},
	}
	if diff := cmp.Diff(want, c.Rows); diff != "" {
		t.Errorf("Rows mismatch (-want +got):\n%s", diff)
	}
}

func TestFromRetiredSkipsExportTransitions(t *testing.T) {
	exec := framegraph.New(trace.NewDevice(trace.Config{}))
	g := exec.BeginGraph()
	h, _ := g.CreateImage(resource.NewImage2D(8, 8, gputypes.TextureFormatRGBA8Unorm), "out")
	pb := g.AddPass("compose")
	framegraph.Write(pb, h)
	if _, err := pb.Build(framegraph.RecordFunc(nopRecord)); err != nil {
		t.Fatal(err)
	}
	g.ExportImageAs(h, resource.AccessShaderRead)
	retired, err := exec.Execute(g, trace.NewRecorder("frame"), 1)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(retired.Barriers) != 1 {
		t.Fatalf("Barriers = %v, want the export transition", retired.Barriers)
	}

	c := FromRetired(retired)
	if len(c.Rows) != 1 || len(c.Rows[0].Barriers) != 0 {
		t.Errorf("Rows = %+v, want no barrier column", c.Rows)
	}
	if got, want := c.String(), "frame 1: compose\nout |#|\n"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestString(t *testing.T) {
	got := FromRetired(executeBloom(t)).String()
	want := "frame 7: lighting bloom taa\n" +
		"hdr   |#!#|\n" +
		"bloom |.#!|\n" +
		"spare |...|\n"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("String() mismatch (-want +got):\n%s", diff)
	}
}

func TestStringGap(t *testing.T) {
	c := &Chart{
		Frame:  1,
		Passes: []string{"a", "b", "c", "d"},
		Rows:   []Row{{Name: "x", First: 0, Last: 3, Uses: []int{0, 3}}},
	}
	if got, want := c.String(), "frame 1: a b c d\nx |#--#|\n"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func hasColor(img image.Image, c color.Color) bool {
	r0, g0, b0, a0 := c.RGBA()
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := img.At(x, y).RGBA()
			if r == r0 && g == g0 && bl == b0 && a == a0 {
				return true
			}
		}
	}
	return false
}

func TestRender(t *testing.T) {
	c := FromRetired(executeBloom(t))
	img, err := c.Render(Options{})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	b := img.Bounds()
	if b.Dx() <= 3*72 || b.Dy() <= 3*18 {
		t.Errorf("image %v too small for 3 passes and 3 rows", b)
	}
	for name, col := range map[string]color.Color{
		"transient": colorTransient,
		"exported":  colorExported,
		"barrier":   colorBarrier,
	} {
		if !hasColor(img, col) {
			t.Errorf("no %s pixels", name)
		}
	}
}

func TestWritePNG(t *testing.T) {
	c := FromRetired(executeBloom(t))
	var buf bytes.Buffer
	if err := c.WritePNG(&buf, Options{CellWidth: 40, RowHeight: 12, FontSize: 9}); err != nil {
		t.Fatalf("WritePNG() error = %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("png.Decode() error = %v", err)
	}
	if got := img.Bounds().Dy(); got < 3*12 {
		t.Errorf("height = %d, want at least %d", got, 3*12)
	}
}
