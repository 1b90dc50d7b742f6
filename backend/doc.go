// Package backend provides the pluggable device collaborator of the frame
// graph.
//
// A backend creates and destroys the physical images and buffers that the
// frame graph realizes logical resources with, records barriers and pass
// markers, and submits a frame's commands.
//
// # Backend Registration
//
// Backends are registered via init() functions and selected at runtime.
// Import a backend package for its side effect:
//
//	import _ "github.com/gogpu/framegraph/backend/trace"
//	import _ "github.com/gogpu/framegraph/backend/wgpu"
//
// # Backend Selection
//
// Use Default() to get the best available backend, or Get() to request
// a specific backend by name:
//
//	b, err := backend.Open("")       // best available, initialized
//	b, err := backend.Open("trace")  // a specific one
//
// # Usage with the Executor
//
//	exec := framegraph.New(b.Device())
//	cmds, err := b.BeginCommands("frame")
//	...
//	retired, err := exec.Execute(g, cmds, frame)
//	...
//	err = b.Submit(cmds)
//
// # Available Backends
//
// - "trace": in-memory recording device for tests and headless runs
// - "wgpu": GPU device via the gogpu/wgpu HAL (noop or Vulkan)
package backend
