// Command fgdemo runs a frame script through the frame graph and reports
// what the graph did with its resources.
//
// Usage:
//
//	fgdemo [-script frame.hcl] [-backend trace] [-frames 16] [-chart] [-timeline out.png]
//
// Without -script the built-in deferred lighting script is used.
package main

import (
	_ "embed"
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/gogpu/framegraph"

	_ "github.com/gogpu/framegraph/backend/trace"
	_ "github.com/gogpu/framegraph/backend/wgpu"
)

//go:embed default.hcl
var defaultScript []byte

func main() {
	var (
		script   = flag.String("script", "", "frame script (default: built-in)")
		width    = flag.Int("width", 1920, "screen width")
		height   = flag.Int("height", 1080, "screen height")
		backend  = flag.String("backend", "", "backend name, overrides the script")
		frames   = flag.Int("frames", 0, "frame count, overrides the script")
		chart    = flag.Bool("chart", false, "print the last frame's lifetime chart")
		timeline = flag.String("timeline", "", "write the last frame's lifetime chart to a PNG file")
		verbose  = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	framegraph.SetLogger(logger)

	err := run(options{
		script:   *script,
		width:    *width,
		height:   *height,
		backend:  *backend,
		frames:   *frames,
		chart:    *chart,
		timeline: *timeline,
	}, logger, os.Stdout)
	if err != nil {
		log.Fatalf("fgdemo: %v", err)
	}
}
