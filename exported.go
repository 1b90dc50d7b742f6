package framegraph

import "github.com/gogpu/framegraph/resource"

// ExportedImage carries an image out of the graph that produced it so a
// later frame can import it again. It resolves to a physical image once the
// producing graph has executed.
//
// A nil *ExportedImage is invalid, which lets exports be stored directly in
// temporal slots.
type ExportedImage struct {
	name  string
	desc  resource.ImageDesc
	image resource.Image

	// access is the state the image was left in by its last use.
	access resource.Access

	// owned exports hold a transient cache object that must be returned
	// through Executor.ReleaseExportedImage.
	owned    bool
	released bool
	frame    uint64
}

// IsInvalid reports whether e is nil or has been released.
func (e *ExportedImage) IsInvalid() bool { return e == nil || e.released }

// Resolved reports whether the producing graph has executed.
func (e *ExportedImage) Resolved() bool { return e != nil && e.image != nil }

// Name returns the label of the exported resource.
func (e *ExportedImage) Name() string { return e.name }

// Desc returns the image descriptor.
func (e *ExportedImage) Desc() resource.ImageDesc { return e.desc }

// Image returns the physical image, nil before execution.
func (e *ExportedImage) Image() resource.Image { return e.image }

// Access returns the access the image was last used with.
func (e *ExportedImage) Access() resource.Access { return e.access }

// Frame returns the id of the frame that last touched the image.
func (e *ExportedImage) Frame() uint64 { return e.frame }

// ExportedBuffer is the buffer counterpart of ExportedImage.
type ExportedBuffer struct {
	name   string
	desc   resource.BufferDesc
	buffer resource.Buffer
	access resource.Access

	owned    bool
	released bool
	frame    uint64
}

// IsInvalid reports whether e is nil or has been released.
func (e *ExportedBuffer) IsInvalid() bool { return e == nil || e.released }

// Resolved reports whether the producing graph has executed.
func (e *ExportedBuffer) Resolved() bool { return e != nil && e.buffer != nil }

// Name returns the label of the exported resource.
func (e *ExportedBuffer) Name() string { return e.name }

// Desc returns the buffer descriptor.
func (e *ExportedBuffer) Desc() resource.BufferDesc { return e.desc }

// Buffer returns the physical buffer, nil before execution.
func (e *ExportedBuffer) Buffer() resource.Buffer { return e.buffer }

// Access returns the access the buffer was last used with.
func (e *ExportedBuffer) Access() resource.Access { return e.access }

// Frame returns the id of the frame that last touched the buffer.
func (e *ExportedBuffer) Frame() uint64 { return e.frame }
