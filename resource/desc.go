// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package resource

import (
	"fmt"
	"math/bits"

	"github.com/gogpu/gputypes"
)

// ImageDesc fully describes the shape of a physical image.
//
// ImageDesc is comparable. Two descriptors are equal iff every field matches,
// and that exact equality is what drives transient reuse.
type ImageDesc struct {
	Width  uint32
	Height uint32
	// Depth is 1 for 1D/2D images.
	Depth       uint32
	MipLevels   uint32
	ArrayLayers uint32
	Format      gputypes.TextureFormat
	Usage       gputypes.TextureUsage
}

// NewImage2D returns a single-mip, single-layer 2D image descriptor.
// Usage defaults to sampling plus storage access.
func NewImage2D(width, height uint32, format gputypes.TextureFormat) ImageDesc {
	return ImageDesc{
		Width:       width,
		Height:      height,
		Depth:       1,
		MipLevels:   1,
		ArrayLayers: 1,
		Format:      format,
		Usage:       gputypes.TextureUsageTextureBinding | gputypes.TextureUsageStorageBinding,
	}
}

// NewImage3D returns a single-mip volume descriptor.
func NewImage3D(width, height, depth uint32, format gputypes.TextureFormat) ImageDesc {
	d := NewImage2D(width, height, format)
	d.Depth = depth
	return d
}

// WithUsage returns a copy of d with the given usage flags.
func (d ImageDesc) WithUsage(usage gputypes.TextureUsage) ImageDesc {
	d.Usage = usage
	return d
}

// WithMipLevels returns a copy of d with the given mip count.
// Zero selects the full chain.
func (d ImageDesc) WithMipLevels(levels uint32) ImageDesc {
	if levels == 0 {
		levels = d.MaxMipLevels()
	}
	d.MipLevels = levels
	return d
}

// WithArrayLayers returns a copy of d with the given layer count.
func (d ImageDesc) WithArrayLayers(layers uint32) ImageDesc {
	d.ArrayLayers = layers
	return d
}

// HalfRes returns a copy of d with each extent halved, rounding up.
func (d ImageDesc) HalfRes() ImageDesc {
	return d.DivUpExtent(2, 2, 1)
}

// DivUpExtent divides the extent by the given factors, rounding up.
// Zero factors are treated as 1.
func (d ImageDesc) DivUpExtent(x, y, z uint32) ImageDesc {
	d.Width = divUp(d.Width, x)
	d.Height = divUp(d.Height, y)
	d.Depth = divUp(d.Depth, z)
	return d
}

func divUp(v, by uint32) uint32 {
	if by <= 1 {
		return v
	}
	return (v + by - 1) / by
}

// MaxMipLevels returns the length of the full mip chain for the extent.
func (d ImageDesc) MaxMipLevels() uint32 {
	m := max(d.Width, d.Height, d.Depth)
	if m == 0 {
		return 0
	}
	return uint32(bits.Len32(m))
}

// Kind implements Desc.
func (ImageDesc) Kind() ResourceKind { return KindImage }

// Validate checks that d describes an image a device could create.
func (d ImageDesc) Validate() error {
	switch {
	case d.Width == 0 || d.Height == 0 || d.Depth == 0:
		return fmt.Errorf("%w: zero extent %dx%dx%d", ErrInvalidDescriptor, d.Width, d.Height, d.Depth)
	case d.Format == gputypes.TextureFormatUndefined:
		return fmt.Errorf("%w: undefined format", ErrInvalidDescriptor)
	case d.Usage == 0:
		return fmt.Errorf("%w: empty image usage", ErrInvalidDescriptor)
	case d.MipLevels == 0 || d.MipLevels > d.MaxMipLevels():
		return fmt.Errorf("%w: mip levels %d outside [1, %d]", ErrInvalidDescriptor, d.MipLevels, d.MaxMipLevels())
	case d.ArrayLayers == 0:
		return fmt.Errorf("%w: zero array layers", ErrInvalidDescriptor)
	case d.Depth > 1 && d.ArrayLayers > 1:
		return fmt.Errorf("%w: 3D images cannot have array layers", ErrInvalidDescriptor)
	}
	return nil
}

// SizeBytes estimates the memory footprint of the base mip level of d.
// It is used for statistics only.
func (d ImageDesc) SizeBytes() uint64 {
	bpp := uint64(4)
	switch d.Format {
	case gputypes.TextureFormatR8Unorm:
		bpp = 1
	case gputypes.TextureFormatRGBA16Float:
		bpp = 8
	case gputypes.TextureFormatRGBA32Float:
		bpp = 16
	}
	return uint64(d.Width) * uint64(d.Height) * uint64(d.Depth) * uint64(d.ArrayLayers) * bpp
}

// String implements fmt.Stringer.
func (d ImageDesc) String() string {
	return fmt.Sprintf("Image[%dx%dx%d mips=%d layers=%d fmt=%v usage=%#x]",
		d.Width, d.Height, d.Depth, d.MipLevels, d.ArrayLayers, d.Format, uint32(d.Usage))
}

// BufferDesc fully describes the shape of a physical buffer.
type BufferDesc struct {
	Size  uint64
	Usage gputypes.BufferUsage
}

// NewBuffer returns a storage buffer descriptor of the given size.
func NewBuffer(size uint64) BufferDesc {
	return BufferDesc{Size: size, Usage: gputypes.BufferUsageStorage}
}

// WithUsage returns a copy of d with the given usage flags.
func (d BufferDesc) WithUsage(usage gputypes.BufferUsage) BufferDesc {
	d.Usage = usage
	return d
}

// Kind implements Desc.
func (BufferDesc) Kind() ResourceKind { return KindBuffer }

// Validate checks that d describes a buffer a device could create.
func (d BufferDesc) Validate() error {
	switch {
	case d.Size == 0:
		return fmt.Errorf("%w: zero buffer size", ErrInvalidDescriptor)
	case d.Usage == 0:
		return fmt.Errorf("%w: empty buffer usage", ErrInvalidDescriptor)
	}

	// Mappable buffers may only be copy endpoints.
	if d.Usage&gputypes.BufferUsageMapRead != 0 &&
		d.Usage&^(gputypes.BufferUsageMapRead|gputypes.BufferUsageCopyDst) != 0 {
		return fmt.Errorf("%w: map-read buffers may only be combined with copy-dst", ErrInvalidDescriptor)
	}
	if d.Usage&gputypes.BufferUsageMapWrite != 0 &&
		d.Usage&^(gputypes.BufferUsageMapWrite|gputypes.BufferUsageCopySrc) != 0 {
		return fmt.Errorf("%w: map-write buffers may only be combined with copy-src", ErrInvalidDescriptor)
	}
	return nil
}

// SizeBytes returns d.Size.
func (d BufferDesc) SizeBytes() uint64 { return d.Size }

// String implements fmt.Stringer.
func (d BufferDesc) String() string {
	return fmt.Sprintf("Buffer[%d bytes usage=%#x]", d.Size, uint32(d.Usage))
}

// Desc is implemented by ImageDesc and BufferDesc.
type Desc interface {
	Kind() ResourceKind
	Validate() error
	SizeBytes() uint64
}

// AllowsView reports whether a resource with descriptor d may be accessed
// through view v. It returns a wrapped ErrResourceAccess describing the
// missing usage flag otherwise.
func (d ImageDesc) AllowsView(v View) error {
	var need gputypes.TextureUsage
	switch v {
	case ViewSRV:
		need = gputypes.TextureUsageTextureBinding
	case ViewUAV:
		need = gputypes.TextureUsageStorageBinding
	case ViewRT:
		need = gputypes.TextureUsageRenderAttachment
	default:
		return fmt.Errorf("%w: invalid view %v", ErrResourceAccess, v)
	}
	if d.Usage&need == 0 {
		return fmt.Errorf("%w: image usage %#x lacks %#x for %v view", ErrResourceAccess, uint32(d.Usage), uint32(need), v)
	}
	return nil
}

// AllowsView reports whether a buffer with descriptor d may be accessed
// through view v. Buffers have no render-target view.
func (d BufferDesc) AllowsView(v View) error {
	switch v {
	case ViewSRV:
		if d.Usage&(gputypes.BufferUsageUniform|gputypes.BufferUsageStorage) == 0 {
			return fmt.Errorf("%w: buffer usage %#x lacks uniform or storage for srv view", ErrResourceAccess, uint32(d.Usage))
		}
	case ViewUAV:
		if d.Usage&gputypes.BufferUsageStorage == 0 {
			return fmt.Errorf("%w: buffer usage %#x lacks storage for uav view", ErrResourceAccess, uint32(d.Usage))
		}
	default:
		return fmt.Errorf("%w: buffers have no %v view", ErrResourceAccess, v)
	}
	return nil
}
