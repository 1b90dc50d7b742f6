// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package resource

import "fmt"

// ResourceKind identifies the class of a logical resource.
type ResourceKind uint8

const (
	// KindImage is a texture or render target.
	KindImage ResourceKind = iota + 1

	// KindBuffer is a linear GPU buffer.
	KindBuffer
)

// String returns a short name for the kind.
func (k ResourceKind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindBuffer:
		return "buffer"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(k))
	}
}

// Kind is the type-level tag carried by Handle and Ref. It keeps the
// handle system decoupled from physical resource types.
type Kind interface {
	Kind() ResourceKind
}

// ImageResource tags handles that refer to images.
type ImageResource struct{}

// Kind implements Kind.
func (ImageResource) Kind() ResourceKind { return KindImage }

// BufferResource tags handles that refer to buffers.
type BufferResource struct{}

// Kind implements Kind.
func (BufferResource) Kind() ResourceKind { return KindBuffer }

// Handle is an opaque per-graph identifier for a logical resource of kind K.
//
// The zero value is the INVALID sentinel for every kind. Two handles are equal
// iff they have the same kind and the same index, so Handle can be used with
// == and as a map key.
type Handle[K Kind] struct {
	// id is index+1 so that the zero value stays invalid.
	id uint32
}

// NewHandle returns the handle for the given arena index.
func NewHandle[K Kind](index uint32) Handle[K] {
	return Handle[K]{id: index + 1}
}

// Invalid returns the INVALID sentinel for kind K.
func Invalid[K Kind]() Handle[K] {
	return Handle[K]{}
}

// IsInvalid reports whether h is the INVALID sentinel.
func (h Handle[K]) IsInvalid() bool { return h.id == 0 }

// Index returns the arena index of h. It panics on the INVALID sentinel.
func (h Handle[K]) Index() uint32 {
	if h.id == 0 {
		panic("resource: Index called on invalid handle")
	}
	return h.id - 1
}

// Kind returns the resource kind of h.
func (h Handle[K]) Kind() ResourceKind {
	var k K
	return k.Kind()
}

// Less orders handles of the same kind by index. INVALID sorts first.
func (h Handle[K]) Less(other Handle[K]) bool { return h.id < other.id }

// Raw returns the untyped form of h.
func (h Handle[K]) Raw() RawHandle {
	return RawHandle{Kind: h.Kind(), id: h.id}
}

// String implements fmt.Stringer.
func (h Handle[K]) String() string {
	return h.Raw().String()
}

// RawHandle is the untyped form of a Handle. It is used by bookkeeping that
// must treat images and buffers uniformly and by dynamic callers (scripts).
type RawHandle struct {
	Kind ResourceKind
	id   uint32
}

// NewRawHandle returns the raw handle for the given kind and arena index.
func NewRawHandle(kind ResourceKind, index uint32) RawHandle {
	return RawHandle{Kind: kind, id: index + 1}
}

// IsInvalid reports whether r is an INVALID handle of any kind.
func (r RawHandle) IsInvalid() bool { return r.id == 0 }

// Index returns the arena index of r. It panics on an invalid handle.
func (r RawHandle) Index() uint32 {
	if r.id == 0 {
		panic("resource: Index called on invalid raw handle")
	}
	return r.id - 1
}

// Raw returns r itself so RawHandle satisfies Referent.
func (r RawHandle) Raw() RawHandle { return r }

// String implements fmt.Stringer.
func (r RawHandle) String() string {
	if r.id == 0 {
		return fmt.Sprintf("%s#invalid", r.Kind)
	}
	return fmt.Sprintf("%s#%d", r.Kind, r.id-1)
}

// Referent is anything that names a logical resource: handles, refs and raw
// handles.
type Referent interface {
	Raw() RawHandle
}

// ImageFromRaw converts a raw handle back into a typed image handle.
// The second result is false if r is not an image handle.
func ImageFromRaw(r RawHandle) (Handle[ImageResource], bool) {
	if r.Kind != KindImage {
		return Handle[ImageResource]{}, false
	}
	return Handle[ImageResource]{id: r.id}, true
}

// BufferFromRaw converts a raw handle back into a typed buffer handle.
// The second result is false if r is not a buffer handle.
func BufferFromRaw(r RawHandle) (Handle[BufferResource], bool) {
	if r.Kind != KindBuffer {
		return Handle[BufferResource]{}, false
	}
	return Handle[BufferResource]{id: r.id}, true
}
