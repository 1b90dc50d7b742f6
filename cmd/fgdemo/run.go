package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/backend"
	"github.com/gogpu/framegraph/internal/config"
	"github.com/gogpu/framegraph/internal/timeline"
)

type options struct {
	script   string
	width    int
	height   int
	backend  string
	frames   int
	chart    bool
	timeline string
}

type loggerSetter interface {
	SetLogger(*slog.Logger)
}

func loadScript(o options) (*config.Script, error) {
	screen := config.Screen{Width: o.width, Height: o.height}
	if o.script == "" {
		return config.Parse(defaultScript, "default.hcl", screen)
	}
	return config.Load(o.script, screen)
}

func run(o options, logger *slog.Logger, out io.Writer) error {
	s, err := loadScript(o)
	if err != nil {
		return err
	}
	if o.frames > 0 {
		s.Frames = o.frames
	}
	name := s.Backend
	if o.backend != "" {
		name = o.backend
	}

	b, err := backend.Open(name)
	if err != nil {
		return fmt.Errorf("open backend %q: %w", name, err)
	}
	defer b.Close()
	for _, v := range []any{b, b.Device()} {
		if ls, ok := v.(loggerSetter); ok {
			ls.SetLogger(logger)
		}
	}

	exec := framegraph.New(b.Device(),
		framegraph.WithLogger(logger),
		framegraph.WithFramesInFlight(s.FramesInFlight),
		framegraph.WithRetention(s.Retention),
		framegraph.WithAutoMaintain(true),
	)
	r := newRenderer(s, exec)
	defer r.close()

	var last *framegraph.Retired
	for frame := uint64(1); frame <= uint64(s.Frames); frame++ {
		cmds, err := b.BeginCommands(fmt.Sprintf("frame %d", frame))
		if err != nil {
			return err
		}
		retired, err := r.frame(cmds, frame)
		if err != nil {
			return fmt.Errorf("frame %d: %w", frame, err)
		}
		if err := b.Submit(cmds); err != nil {
			return fmt.Errorf("frame %d: submit: %w", frame, err)
		}
		logger.Debug("fgdemo: frame done", "frame", frame, "stats", retired.Stats)
		last = retired
	}

	report(out, b.Name(), s, exec, last)
	if last == nil {
		return nil
	}
	c := timeline.FromRetired(last)
	if o.chart {
		fmt.Fprint(out, c.String())
	}
	if o.timeline != "" {
		if err := writeTimeline(o.timeline, c); err != nil {
			return err
		}
		logger.Info("fgdemo: timeline written", "path", o.timeline)
	}
	return nil
}

func report(out io.Writer, backendName string, s *config.Script, exec *framegraph.Executor, last *framegraph.Retired) {
	p := message.NewPrinter(language.English)
	st := exec.Cache().Stats()
	p.Fprintf(out, "backend    %s\n", backendName)
	p.Fprintf(out, "frames     %d\n", s.Frames)
	p.Fprintf(out, "passes     %d\n", len(s.Passes))
	p.Fprintf(out, "transient  %d created, %d reused, %d evicted\n", st.Created, st.Reused, st.Evicted)
	p.Fprintf(out, "pool       %d live, %d idle, peak %d\n", st.Live, st.Idle, st.PeakIdle)
	if last != nil {
		p.Fprintf(out, "last frame %v\n", last.Stats)
	}
}

func writeTimeline(path string, c *timeline.Chart) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return c.WritePNG(f, timeline.Options{})
}
