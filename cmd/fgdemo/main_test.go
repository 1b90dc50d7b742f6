package main

import (
	"bytes"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/backend/trace"
)

var discard = slog.New(slog.DiscardHandler)

func importedNames(r *framegraph.Retired) []string {
	var names []string
	for _, lt := range r.Lifetimes() {
		if !lt.Transient {
			names = append(names, lt.Name)
		}
	}
	slices.Sort(names)
	return names
}

func TestRendererHistory(t *testing.T) {
	s, err := loadScript(options{width: 64, height: 32})
	if err != nil {
		t.Fatalf("loadScript() error = %v", err)
	}
	dev := trace.NewDevice(trace.Config{})
	exec := framegraph.New(dev,
		framegraph.WithFramesInFlight(s.FramesInFlight),
		framegraph.WithRetention(s.Retention),
		framegraph.WithAutoMaintain(true),
	)
	r := newRenderer(s, exec)

	want := [][]string{
		nil,
		{"accum@1", "luminance@1"},
		{"accum@2", "luminance@1", "luminance@2"},
		{"accum@3", "luminance@1", "luminance@2", "luminance@3"},
		{"accum@4", "luminance@2", "luminance@3", "luminance@4"},
	}
	for i, w := range want {
		frame := uint64(i + 1)
		retired, err := r.frame(trace.NewRecorder("frame"), frame)
		if err != nil {
			t.Fatalf("frame %d: %v", frame, err)
		}
		if diff := cmp.Diff(w, importedNames(retired)); diff != "" {
			t.Errorf("frame %d imports mismatch (-want +got):\n%s", frame, diff)
		}
	}

	if st := exec.Cache().Stats(); st.Reused == 0 {
		t.Errorf("no transient reuse after %d frames: %v", len(want), st)
	}

	r.close()
	if n := dev.Live(); n != 0 {
		t.Errorf("Live() = %d after close, want 0", n)
	}
}

func TestRendererCommands(t *testing.T) {
	s, err := loadScript(options{width: 16, height: 16})
	if err != nil {
		t.Fatal(err)
	}
	exec := framegraph.New(trace.NewDevice(trace.Config{}))
	r := newRenderer(s, exec)
	defer r.close()

	rec := trace.NewRecorder("frame")
	if _, err := r.frame(rec, 1); err != nil {
		t.Fatalf("frame() error = %v", err)
	}
	commands := 0
	for _, e := range rec.Events() {
		if e.Kind == trace.EventCommand {
			commands++
		}
	}
	// geometry 2, lighting 4, bloom 2, exposure 2, taa 4; no history yet
	if commands != 14 {
		t.Errorf("commands = %d, want 14", commands)
	}
}

func TestRun(t *testing.T) {
	pngPath := filepath.Join(t.TempDir(), "timeline.png")
	var out bytes.Buffer
	err := run(options{
		width:    320,
		height:   180,
		backend:  "trace",
		frames:   3,
		chart:    true,
		timeline: pngPath,
	}, discard, &out)
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}

	got := out.String()
	for _, s := range []string{
		"backend    trace\n",
		"frames     3\n",
		"passes     5\n",
		"frame 3: geometry lighting bloom exposure taa\n",
	} {
		if !strings.Contains(got, s) {
			t.Errorf("output lacks %q:\n%s", s, got)
		}
	}
	checkPNG(t, pngPath)
}

func checkPNG(t *testing.T, path string) {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := png.Decode(f); err != nil {
		t.Errorf("png.Decode() error = %v", err)
	}
}

func TestRunErrors(t *testing.T) {
	if err := run(options{script: filepath.Join(t.TempDir(), "missing.hcl"), width: 8, height: 8}, discard, &bytes.Buffer{}); err == nil {
		t.Error("run() with a missing script succeeded")
	}
	if err := run(options{width: 8, height: 8, backend: "vulkan-9000"}, discard, &bytes.Buffer{}); err == nil {
		t.Error("run() with an unknown backend succeeded")
	}
}

func TestRunScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clear.hcl")
	src := `frames  = 2
backend = "trace"

image "target" {
  width  = screen.width
  height = screen.height
  format = "bgra8unorm"
  usage  = ["render"]
}

pass "clear" {
  raster = ["target"]
}
`
	if err := os.WriteFile(path, []byte(src), 0o600); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if err := run(options{script: path, width: 8, height: 8}, discard, &out); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !strings.Contains(out.String(), "transient  1 created, 1 reused") {
		t.Errorf("unexpected report:\n%s", out.String())
	}
}
