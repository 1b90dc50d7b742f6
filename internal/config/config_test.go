package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/google/go-cmp/cmp"
	"github.com/hashicorp/hcl/v2"

	"github.com/gogpu/framegraph/resource"
)

var hd = Screen{Width: 1920, Height: 1080}

const taaScript = `
frames  = 4
backend = "trace"

cache {
  frames_in_flight = 0
  retention        = 3
}

image "hdr" {
  width  = screen.width
  height = screen.height
  format = "rgba16float"
  usage  = ["storage", "texture"]
}

image "bloom" {
  width  = ceil(screen.width / 2)
  height = ceil(screen.height / 2)
  format = "rgba16float"
  usage  = ["storage", "texture"]
}

buffer "tiles" {
  size  = 4096
}

temporal "accum" {
  kind   = "pingpong"
  width  = screen.width
  height = screen.height
  format = "rgba16float"
  usage  = ["storage", "texture"]
}

pass "lighting" {
  read_storage = ["tiles"]
  write        = ["hdr"]
}

pass "bloom" {
  read          = ["hdr"]
  write_no_sync = ["bloom"]
}

pass "taa" {
  read  = ["hdr", "bloom", "accum.history"]
  write = ["accum.current"]
}
`

func TestParseScript(t *testing.T) {
	s, err := Parse([]byte(taaScript), "taa.hcl", hd)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if s.Frames != 4 || s.Backend != "trace" {
		t.Errorf("Frames, Backend = %d, %q", s.Frames, s.Backend)
	}
	if s.FramesInFlight != 0 || s.Retention != 3 {
		t.Errorf("cache = %d, %d; want 0, 3", s.FramesInFlight, s.Retention)
	}

	storageTex := gputypes.TextureUsageStorageBinding | gputypes.TextureUsageTextureBinding
	wantImages := []Image{
		{Name: "hdr", Desc: resource.NewImage2D(1920, 1080, gputypes.TextureFormatRGBA16Float).WithUsage(storageTex)},
		{Name: "bloom", Desc: resource.NewImage2D(960, 540, gputypes.TextureFormatRGBA16Float).WithUsage(storageTex)},
	}
	if diff := cmp.Diff(wantImages, s.Images); diff != "" {
		t.Errorf("Images mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]Buffer{{Name: "tiles", Desc: resource.NewBuffer(4096)}}, s.Buffers); diff != "" {
		t.Errorf("Buffers mismatch (-want +got):\n%s", diff)
	}
	wantTemporal := []Temporal{{Name: "accum", History: 1, Desc: wantImages[0].Desc}}
	if diff := cmp.Diff(wantTemporal, s.Temporals); diff != "" {
		t.Errorf("Temporals mismatch (-want +got):\n%s", diff)
	}

	wantPasses := []Pass{
		{Name: "lighting", Uses: []Use{
			{Ref: Ref{Name: "tiles"}, Access: resource.AccessStorageRead, Sync: resource.AlwaysSync},
			{Ref: Ref{Name: "hdr"}, Access: resource.AccessStorageWrite, Sync: resource.AlwaysSync},
		}},
		{Name: "bloom", Uses: []Use{
			{Ref: Ref{Name: "hdr"}, Access: resource.AccessShaderRead, Sync: resource.AlwaysSync},
			{Ref: Ref{Name: "bloom"}, Access: resource.AccessStorageWrite, Sync: resource.SkipSyncIfSame},
		}},
		{Name: "taa", Uses: []Use{
			{Ref: Ref{Name: "hdr"}, Access: resource.AccessShaderRead, Sync: resource.AlwaysSync},
			{Ref: Ref{Name: "bloom"}, Access: resource.AccessShaderRead, Sync: resource.AlwaysSync},
			{Ref: Ref{Name: "accum", Part: PartHistory}, Access: resource.AccessShaderRead, Sync: resource.AlwaysSync},
			{Ref: Ref{Name: "accum", Part: PartCurrent}, Access: resource.AccessStorageWrite, Sync: resource.AlwaysSync},
		}},
	}
	if diff := cmp.Diff(wantPasses, s.Passes); diff != "" {
		t.Errorf("Passes mismatch (-want +got):\n%s", diff)
	}

	if _, ok := s.Temporal("accum"); !ok {
		t.Error("Temporal(accum) not found")
	}
	if _, ok := s.Image("accum"); ok {
		t.Error("Image(accum) found a temporal")
	}
}

func TestParseDefaults(t *testing.T) {
	s, err := Parse([]byte(`image "a" {
  width  = 8
  height = 8
  format = "rgba8unorm"
  usage  = ["render"]
}
pass "clear" {
  raster = ["a"]
}`), "min.hcl", hd)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if s.Frames != DefaultFrames || s.Backend != "" || s.FramesInFlight != -1 || s.Retention != -1 {
		t.Errorf("defaults = %d %q %d %d", s.Frames, s.Backend, s.FramesInFlight, s.Retention)
	}
	if got := s.Passes[0].Uses[0].Access; got != resource.AccessTargetWrite {
		t.Errorf("raster access = %v", got)
	}
}

func TestParseRing(t *testing.T) {
	s, err := Parse([]byte(`temporal "lum" {
  kind    = "ring"
  history = 3
  width   = 1
  height  = 1
  format  = "r8unorm"
  usage   = ["storage"]
}
pass "adapt" {
  read  = ["lum.history", "lum.history.2"]
  write = ["lum.current"]
}`), "ring.hcl", hd)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := s.Temporals[0].History; got != 3 {
		t.Errorf("History = %d, want 3", got)
	}
	if got := s.Passes[0].Uses[1].Ref; got != (Ref{Name: "lum", Part: PartHistory, History: 2}) {
		t.Errorf("ref = %+v", got)
	}
}

func TestParseErrors(t *testing.T) {
	image := func(name, extra string) string {
		return `image "` + name + `" {
  width  = 8
  height = 8
  format = "rgba8unorm"
  usage  = ["storage"]
  ` + extra + `
}
`
	}
	tests := []struct {
		name    string
		src     string
		summary string
	}{
		{"unknown format", `image "a" {
  width  = 8
  height = 8
  format = "rgb565"
  usage  = ["storage"]
}`, "Unknown texture format"},
		{"unknown usage", `image "a" {
  width  = 8
  height = 8
  format = "rgba8unorm"
  usage  = ["sampled"]
}`, "Unknown texture usage"},
		{"zero extent", `image "a" {
  width  = 0
  height = 8
  format = "rgba8unorm"
  usage  = ["storage"]
}`, "Invalid image extent"},
		{"too many mips", image("a", "mip_levels = 9"), "Invalid image"},
		{"duplicate name", image("a", "") + `buffer "a" {
  size = 16
}`, "Duplicate resource name"},
		{"undeclared", image("a", "") + `pass "p" {
  read = ["b"]
}`, "Reference to undeclared resource"},
		{"slot part on image", image("a", "") + `pass "p" {
  read = ["a.history"]
}`, "Invalid resource reference"},
		{"bad part", image("a", "") + `pass "p" {
  read = ["a.previous"]
}`, "Invalid resource reference"},
		{"bare temporal", `temporal "t" {
  width  = 8
  height = 8
  format = "rgba8unorm"
  usage  = ["storage"]
}
pass "p" {
  read = ["t"]
}`, "Invalid resource reference"},
		{"history out of range", `temporal "t" {
  width  = 8
  height = 8
  format = "rgba8unorm"
  usage  = ["storage"]
}
pass "p" {
  read = ["t.history.1"]
}`, "History out of range"},
		{"pingpong depth", `temporal "t" {
  history = 2
  width   = 8
  height  = 8
  format  = "rgba8unorm"
  usage   = ["storage"]
}`, "Invalid history depth"},
		{"unknown kind", `temporal "t" {
  kind   = "triple"
  width  = 8
  height = 8
  format = "rgba8unorm"
  usage  = ["storage"]
}`, "Unknown temporal kind"},
		{"buffer usage", `buffer "b" {
  size  = 16
  usage = ["index_fancy"]
}`, "Unknown buffer usage"},
		{"map read with storage", `buffer "b" {
  size  = 16
  usage = ["map_read", "storage"]
}`, "Invalid buffer"},
		{"duplicate pass", `pass "p" {}
pass "p" {}`, "Duplicate pass"},
		{"frames", `frames = 0`, "Invalid frame count"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src), "bad.hcl", hd)
			if err == nil {
				t.Fatal("Parse() succeeded")
			}
			var diags hcl.Diagnostics
			if !errors.As(err, &diags) {
				t.Fatalf("error %v is not hcl.Diagnostics", err)
			}
			found := false
			for _, d := range diags {
				if d.Summary == tt.summary {
					found = true
				}
			}
			if !found {
				t.Errorf("diagnostics %v lack %q", diags, tt.summary)
			}
		})
	}
}

func TestParseSyntaxError(t *testing.T) {
	_, err := Parse([]byte(`image "a" {`), "broken.hcl", hd)
	if err == nil || !strings.Contains(err.Error(), "broken.hcl") {
		t.Errorf("Parse() error = %v, want a diagnostic naming the file", err)
	}
}

func TestParseInvalidScreen(t *testing.T) {
	if _, err := Parse([]byte(`frames = 1`), "x.hcl", Screen{}); err == nil {
		t.Error("Parse() with zero screen succeeded")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taa.hcl")
	if err := os.WriteFile(path, []byte(taaScript), 0o600); err != nil {
		t.Fatal(err)
	}
	s, err := Load(path, Screen{Width: 64, Height: 32})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if img, _ := s.Image("bloom"); img.Desc.Width != 32 || img.Desc.Height != 16 {
		t.Errorf("bloom extent = %dx%d, want 32x16", img.Desc.Width, img.Desc.Height)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.hcl"), hd); err == nil {
		t.Error("Load(missing) succeeded")
	}
}

func TestRefString(t *testing.T) {
	for _, s := range []string{"hdr", "accum.current", "accum.history", "accum.history.2"} {
		ref, err := parseRef(s)
		if err != nil {
			t.Fatalf("parseRef(%q) error = %v", s, err)
		}
		if got := ref.String(); got != s {
			t.Errorf("parseRef(%q).String() = %q", s, got)
		}
	}
	for _, s := range []string{"", ".current", "a.history.x", "a.history.01", "a.history.-1", "a.next"} {
		if _, err := parseRef(s); err == nil {
			t.Errorf("parseRef(%q) succeeded", s)
		}
	}
}
