// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package resource

// Image is a physical GPU image created by a Device.
type Image interface {
	// ImageDesc returns the descriptor the image was created with.
	ImageDesc() ImageDesc
}

// Buffer is a physical GPU buffer created by a Device.
type Buffer interface {
	// BufferDesc returns the descriptor the buffer was created with.
	BufferDesc() BufferDesc
}

// Device is the GPU device collaborator. It creates and destroys physical
// objects; memory allocation happens behind it.
//
// Implementations report failures wrapped with ErrDevice.
type Device interface {
	CreateImage(desc ImageDesc, label string) (Image, error)
	CreateBuffer(desc BufferDesc, label string) (Buffer, error)
	DestroyImage(img Image)
	DestroyBuffer(buf Buffer)
}

// Barrier is one synchronization point between two accesses of a physical
// resource. Exactly one of Image and Buffer is set.
type Barrier struct {
	Image  Image
	Buffer Buffer
	From   Access
	To     Access
}

// CommandRecorder is the recording context a frame is executed into.
// Pass callbacks reach it through PassContext and record their own commands;
// the executor only records barriers.
type CommandRecorder interface {
	// RecordBarriers records the given barriers before the next pass.
	RecordBarriers(barriers []Barrier)
}

// PassMarker is optionally implemented by recorders that want debug markers
// around each pass.
type PassMarker interface {
	BeginPass(name string)
	EndPass()
}
