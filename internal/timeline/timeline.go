// Package timeline draws resource lifetime charts of executed frames.
//
// Rows are resources and columns are passes. Each row has a bar spanning
// the passes that touched the resource, colored by origin, and a tick in
// every column where the resource needed a barrier.
package timeline

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/resource"
)

// Row is one resource of the chart.
type Row struct {
	Name      string
	Transient bool
	Exported  bool
	// First and Last are pass columns, both -1 for an unused resource.
	First int
	Last  int
	// Uses lists the columns of the passes that declared the resource.
	Uses []int
	// Barriers lists the columns where the resource needed a barrier.
	Barriers []int
}

// Chart is the lifetime chart of one frame.
type Chart struct {
	Frame  uint64
	Passes []string
	Rows   []Row
}

// FromRetired builds the chart of an executed frame.
func FromRetired(r *framegraph.Retired) *Chart {
	c := &Chart{Frame: r.Frame, Passes: r.PassNames()}
	lifetimes := r.Lifetimes()
	index := make(map[resource.RawHandle]int, len(lifetimes))
	for _, lt := range lifetimes {
		index[lt.Resource] = len(c.Rows)
		row := Row{
			Name:      lt.Name,
			Transient: lt.Transient,
			Exported:  lt.Exported,
			First:     lt.First,
			Last:      lt.Last,
		}
		for _, a := range r.Accesses(lt.Resource) {
			if n := len(row.Uses); n == 0 || row.Uses[n-1] != a.Pass {
				row.Uses = append(row.Uses, a.Pass)
			}
		}
		c.Rows = append(c.Rows, row)
	}
	for _, b := range r.Barriers {
		if b.Pass < 0 || b.Pass >= len(c.Passes) {
			// Export transitions run after the last pass.
			continue
		}
		if i, ok := index[b.Resource]; ok {
			c.Rows[i].Barriers = append(c.Rows[i].Barriers, b.Pass)
		}
	}
	return c
}

// Options controls chart rendering. Zero fields take defaults.
type Options struct {
	// CellWidth is the width of one pass column in pixels.
	CellWidth int
	// RowHeight is the height of one resource row in pixels.
	RowHeight int
	// FontSize is the label size in points at 72 DPI.
	FontSize float64
}

func (o Options) withDefaults() Options {
	if o.CellWidth <= 0 {
		o.CellWidth = 72
	}
	if o.RowHeight <= 0 {
		o.RowHeight = 18
	}
	if o.FontSize <= 0 {
		o.FontSize = 11
	}
	return o
}

// Palette.
var (
	colorBackground = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	colorGrid       = color.RGBA{R: 0xe0, G: 0xe0, B: 0xe0, A: 0xff}
	colorText       = color.RGBA{R: 0x20, G: 0x20, B: 0x20, A: 0xff}
	colorTransient  = color.RGBA{R: 0x3b, G: 0x7d, B: 0xd8, A: 0xff}
	colorImported   = color.RGBA{R: 0x8a, G: 0x8a, B: 0x8a, A: 0xff}
	colorExported   = color.RGBA{R: 0xe0, G: 0x8a, B: 0x1e, A: 0xff}
	colorBarrier    = color.RGBA{R: 0xd0, G: 0x20, B: 0x20, A: 0xff}
)

const margin = 8

var parseFont = sync.OnceValues(func() (*opentype.Font, error) {
	return opentype.Parse(goregular.TTF)
})

func newFace(size float64) (font.Face, error) {
	f, err := parseFont()
	if err != nil {
		return nil, fmt.Errorf("timeline: parse font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("timeline: create face: %w", err)
	}
	return face, nil
}

// Render draws the chart.
func (c *Chart) Render(opts Options) (*image.RGBA, error) {
	opts = opts.withDefaults()
	face, err := newFace(opts.FontSize)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = face.Close()
	}()

	lineHeight := face.Metrics().Height.Ceil()
	labelWidth := 0
	for _, row := range c.Rows {
		labelWidth = max(labelWidth, font.MeasureString(face, row.Name).Ceil())
	}
	labelWidth += 2 * margin
	header := lineHeight + margin

	width := labelWidth + len(c.Passes)*opts.CellWidth + margin
	height := header + len(c.Rows)*opts.RowHeight + margin
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	fill(img, img.Bounds(), colorBackground)

	d := &font.Drawer{Dst: img, Src: image.NewUniform(colorText), Face: face}
	ascent := face.Metrics().Ascent.Ceil()

	for col, name := range c.Passes {
		x := labelWidth + col*opts.CellWidth
		fill(img, image.Rect(x, header, x+1, height-margin), colorGrid)
		d.Dot = fixed.P(x+2, margin/2+ascent)
		d.DrawString(fitString(face, name, opts.CellWidth-4))
	}

	for i, row := range c.Rows {
		y := header + i*opts.RowHeight
		fill(img, image.Rect(margin, y, width-margin, y+1), colorGrid)
		d.Dot = fixed.P(margin, y+(opts.RowHeight+ascent)/2)
		d.DrawString(row.Name)

		if row.First < 0 {
			continue
		}
		bar := image.Rect(
			labelWidth+row.First*opts.CellWidth+2, y+3,
			labelWidth+(row.Last+1)*opts.CellWidth-2, y+opts.RowHeight-3,
		)
		fill(img, bar, rowColor(row))
		for _, col := range row.Barriers {
			x := labelWidth + col*opts.CellWidth + 2
			fill(img, image.Rect(x, y+1, x+3, y+opts.RowHeight-1), colorBarrier)
		}
	}
	return img, nil
}

// WritePNG renders the chart and encodes it to w.
func (c *Chart) WritePNG(w io.Writer, opts Options) error {
	img, err := c.Render(opts)
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("timeline: encode png: %w", err)
	}
	return nil
}

// String renders the chart as text, one column per pass:
//
//	frame 3: lighting bloom taa
//	hdr   |#!#|
//	bloom |.#!|
//
// '#' marks a pass that uses the resource, '!' one where it also needed a
// barrier, '-' a pass inside the lifetime that does not use it.
func (c *Chart) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "frame %d: %s\n", c.Frame, strings.Join(c.Passes, " "))

	width := 0
	for _, row := range c.Rows {
		width = max(width, len(row.Name))
	}
	for _, row := range c.Rows {
		cells := []byte(strings.Repeat(".", len(c.Passes)))
		for col := row.First; row.First >= 0 && col <= row.Last; col++ {
			cells[col] = '-'
		}
		for _, col := range row.Uses {
			cells[col] = '#'
		}
		for _, col := range row.Barriers {
			cells[col] = '!'
		}
		fmt.Fprintf(&sb, "%-*s |%s|\n", width, row.Name, cells)
	}
	return sb.String()
}

func rowColor(row Row) color.RGBA {
	switch {
	case row.Exported:
		return colorExported
	case row.Transient:
		return colorTransient
	}
	return colorImported
}

func fill(dst draw.Image, r image.Rectangle, c color.Color) {
	draw.Draw(dst, r, image.NewUniform(c), image.Point{}, draw.Src)
}

// fitString shortens s with a trailing '~' until it fits in width pixels.
func fitString(face font.Face, s string, width int) string {
	if font.MeasureString(face, s).Ceil() <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		t := string(runes) + "~"
		if font.MeasureString(face, t).Ceil() <= width {
			return t
		}
	}
	return ""
}
