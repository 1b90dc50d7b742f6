// Package trace provides an in-memory backend that records what the frame
// graph asks of a device instead of talking to a GPU.
//
// Every creation, destruction, barrier, pass marker and command is appended
// to an event log, which makes the backend useful for tests, for headless
// runs of frame scripts and for inspecting barrier placement. An optional
// memory budget makes creations fail with ErrOutOfMemory, to exercise
// device error paths.
//
// The backend registers itself as "trace" on import:
//
//	import _ "github.com/gogpu/framegraph/backend/trace"
package trace
