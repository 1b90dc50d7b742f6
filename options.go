package framegraph

import (
	"log/slog"

	"github.com/gogpu/framegraph/cache"
)

// Option configures an Executor during creation.
//
// Example:
//
//	exec := framegraph.New(device,
//	    framegraph.WithFramesInFlight(2),
//	    framegraph.WithAutoMaintain(true),
//	)
type Option func(*executorOptions)

// executorOptions holds optional configuration for New.
type executorOptions struct {
	logger       *slog.Logger
	cacheConfig  cache.Config
	cache        *cache.Transient
	autoMaintain bool
}

// defaultOptions returns the default executor options.
func defaultOptions() executorOptions {
	return executorOptions{
		cacheConfig: cache.DefaultConfig(),
	}
}

// WithLogger sets the logger for the executor and its transient cache.
// Without it the executor logs through the package Logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *executorOptions) {
		o.logger = l
	}
}

// WithFramesInFlight sets how many frames the GPU may lag behind the CPU.
// A transient object released in frame f is reused no earlier than frame
// f+n. It should match the backend's swapchain depth.
func WithFramesInFlight(n int) Option {
	return func(o *executorOptions) {
		o.cacheConfig.FramesInFlight = n
	}
}

// WithRetention sets how many frames an idle transient object may stay
// pooled before Maintain destroys it.
func WithRetention(frames int) Option {
	return func(o *executorOptions) {
		o.cacheConfig.Retention = frames
	}
}

// WithAutoMaintain makes Execute call the cache's Maintain after every
// successful frame.
func WithAutoMaintain(enabled bool) Option {
	return func(o *executorOptions) {
		o.autoMaintain = enabled
	}
}

// WithCache shares an existing transient cache instead of creating one.
// WithFramesInFlight and WithRetention are ignored when it is set. The cache
// must create objects on the executor's device.
//
// Example:
//
//	shared := cache.NewTransient(device, cache.DefaultConfig())
//	main := framegraph.New(device, framegraph.WithCache(shared))
//	shadow := framegraph.New(device, framegraph.WithCache(shared))
func WithCache(c *cache.Transient) Option {
	return func(o *executorOptions) {
		o.cache = c
	}
}
