// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/framegraph/resource"
)

// GPUInfo describes the adapter behind a Device.
type GPUInfo struct {
	Name       string
	DeviceType gputypes.DeviceType
	// Backend is the HAL the device was opened on: "noop", "vulkan" or
	// "provider".
	Backend string
}

// String returns a human-readable description of the GPU.
func (i GPUInfo) String() string {
	return fmt.Sprintf("%s (%v, %s)", i.Name, i.DeviceType, i.Backend)
}

// Image is a hal texture created by a Device.
type Image struct {
	texture hal.Texture
	desc    resource.ImageDesc
	label   string
}

// ImageDesc implements resource.Image.
func (i *Image) ImageDesc() resource.ImageDesc { return i.desc }

// Texture returns the hal texture.
func (i *Image) Texture() hal.Texture { return i.texture }

// Label returns the debug label.
func (i *Image) Label() string { return i.label }

// Buffer is a hal buffer created by a Device.
type Buffer struct {
	buffer hal.Buffer
	desc   resource.BufferDesc
	label  string
}

// BufferDesc implements resource.Buffer.
func (b *Buffer) BufferDesc() resource.BufferDesc { return b.desc }

// HalBuffer returns the hal buffer.
func (b *Buffer) HalBuffer() hal.Buffer { return b.buffer }

// Label returns the debug label.
func (b *Buffer) Label() string { return b.label }

// Device implements resource.Device on a hal device.
//
// Device is safe for concurrent use.
type Device struct {
	device hal.Device
	queue  hal.Queue

	mu      sync.Mutex
	logger  *slog.Logger
	images  map[*Image]struct{}
	buffers map[*Buffer]struct{}
}

// NewDevice wraps a hal device and its queue.
func NewDevice(device hal.Device, queue hal.Queue) *Device {
	return &Device{
		device:  device,
		queue:   queue,
		logger:  slog.New(slog.DiscardHandler),
		images:  make(map[*Image]struct{}),
		buffers: make(map[*Buffer]struct{}),
	}
}

// HalDevice returns the wrapped hal device.
func (d *Device) HalDevice() hal.Device { return d.device }

// HalQueue returns the wrapped hal queue.
func (d *Device) HalQueue() hal.Queue { return d.queue }

// SetLogger sets the logger for device events. Nil restores the silent
// default.
func (d *Device) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	d.mu.Lock()
	d.logger = l
	d.mu.Unlock()
}

func (d *Device) log() *slog.Logger {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.logger
}

// textureDescriptor converts desc to the hal form. 3D images use the depth
// as the third extent; everything else is a 2D texture array.
func textureDescriptor(desc resource.ImageDesc, label string) *hal.TextureDescriptor {
	td := &hal.TextureDescriptor{
		Label: label,
		Size: hal.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: desc.ArrayLayers,
		},
		MipLevelCount: desc.MipLevels,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        desc.Format,
		Usage:         desc.Usage,
	}
	if desc.Depth > 1 {
		td.Size.DepthOrArrayLayers = desc.Depth
		td.Dimension = gputypes.TextureDimension3D
	}
	return td
}

// CreateImage creates a hal texture for desc.
func (d *Device) CreateImage(desc resource.ImageDesc, label string) (resource.Image, error) {
	if err := desc.Validate(); err != nil {
		return nil, fmt.Errorf("wgpu: image %q: %w", label, err)
	}
	tex, err := d.device.CreateTexture(textureDescriptor(desc, label))
	if err != nil {
		return nil, fmt.Errorf("%w: wgpu: create texture %q: %w", resource.ErrDevice, label, err)
	}
	img := &Image{texture: tex, desc: desc, label: label}

	d.mu.Lock()
	d.images[img] = struct{}{}
	logger := d.logger
	d.mu.Unlock()
	logger.Debug("wgpu: texture created", "label", label, "desc", desc)
	return img, nil
}

// CreateBuffer creates a hal buffer for desc.
func (d *Device) CreateBuffer(desc resource.BufferDesc, label string) (resource.Buffer, error) {
	if err := desc.Validate(); err != nil {
		return nil, fmt.Errorf("wgpu: buffer %q: %w", label, err)
	}
	hb, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  desc.Size,
		Usage: desc.Usage,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: wgpu: create buffer %q: %w", resource.ErrDevice, label, err)
	}
	buf := &Buffer{buffer: hb, desc: desc, label: label}

	d.mu.Lock()
	d.buffers[buf] = struct{}{}
	logger := d.logger
	d.mu.Unlock()
	logger.Debug("wgpu: buffer created", "label", label, "desc", desc)
	return buf, nil
}

// DestroyImage destroys an image created by d. Destroying a foreign or
// already destroyed image panics.
func (d *Device) DestroyImage(img resource.Image) {
	i, ok := img.(*Image)
	d.mu.Lock()
	if ok {
		_, ok = d.images[i]
		delete(d.images, i)
	}
	d.mu.Unlock()
	if !ok {
		panic(fmt.Sprintf("wgpu: destroying unknown image %v", img))
	}
	d.device.DestroyTexture(i.texture)
	d.log().Debug("wgpu: texture destroyed", "label", i.label)
}

// DestroyBuffer destroys a buffer created by d. See DestroyImage.
func (d *Device) DestroyBuffer(buf resource.Buffer) {
	b, ok := buf.(*Buffer)
	d.mu.Lock()
	if ok {
		_, ok = d.buffers[b]
		delete(d.buffers, b)
	}
	d.mu.Unlock()
	if !ok {
		panic(fmt.Sprintf("wgpu: destroying unknown buffer %v", buf))
	}
	d.device.DestroyBuffer(b.buffer)
	d.log().Debug("wgpu: buffer destroyed", "label", b.label)
}

// Live returns the number of images and buffers not yet destroyed.
func (d *Device) Live() (images, buffers int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.images), len(d.buffers)
}

// destroyAll destroys every live object and returns how many there were.
func (d *Device) destroyAll() int {
	d.mu.Lock()
	images, buffers := d.images, d.buffers
	d.images = make(map[*Image]struct{})
	d.buffers = make(map[*Buffer]struct{})
	d.mu.Unlock()

	for img := range images {
		d.device.DestroyTexture(img.texture)
	}
	for buf := range buffers {
		d.device.DestroyBuffer(buf.buffer)
	}
	return len(images) + len(buffers)
}

// owns reports whether obj is a live image or buffer of d.
func (d *Device) owns(obj any) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch o := obj.(type) {
	case *Image:
		_, ok := d.images[o]
		return ok
	case *Buffer:
		_, ok := d.buffers[o]
		return ok
	}
	return false
}
