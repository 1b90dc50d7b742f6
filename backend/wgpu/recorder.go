// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"fmt"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/framegraph/resource"
)

// Recorder records frame graph barriers into a hal command encoder. Pass
// callbacks reach the encoder through Encoder to record their own work.
type Recorder struct {
	device  *Device
	encoder hal.CommandEncoder
	label   string

	open     []string
	passes   int
	barriers int
	ended    bool
}

func newRecorder(device *Device, label string) (*Recorder, error) {
	enc, err := device.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, fmt.Errorf("%w: wgpu: create command encoder: %w", resource.ErrDevice, err)
	}
	if err := enc.BeginEncoding(label); err != nil {
		return nil, fmt.Errorf("%w: wgpu: begin encoding: %w", resource.ErrDevice, err)
	}
	return &Recorder{device: device, encoder: enc, label: label}, nil
}

// Encoder returns the hal command encoder.
func (r *Recorder) Encoder() hal.CommandEncoder { return r.encoder }

// Label returns the label the recorder was created with.
func (r *Recorder) Label() string { return r.label }

// Barriers returns the number of barriers recorded so far.
func (r *Recorder) Barriers() int { return r.barriers }

// Passes returns the number of passes recorded so far.
func (r *Recorder) Passes() int { return r.passes }

// RecordBarriers implements resource.CommandRecorder. Image barriers go to
// one TransitionTextures call and buffer barriers to one TransitionBuffers
// call. Objects that were not created by the recorder's device panic.
func (r *Recorder) RecordBarriers(barriers []resource.Barrier) {
	if r.ended {
		panic("wgpu: barriers recorded after submit")
	}
	var textures []hal.TextureBarrier
	var buffers []hal.BufferBarrier
	for _, b := range barriers {
		switch {
		case b.Image != nil:
			img, ok := b.Image.(*Image)
			if !ok || !r.device.owns(img) {
				panic(fmt.Sprintf("wgpu: barrier on foreign image %v", b.Image))
			}
			textures = append(textures, hal.TextureBarrier{
				Texture: img.texture,
				Usage: hal.TextureUsageTransition{
					OldUsage: textureUsage(b.From),
					NewUsage: textureUsage(b.To),
				},
			})
		case b.Buffer != nil:
			buf, ok := b.Buffer.(*Buffer)
			if !ok || !r.device.owns(buf) {
				panic(fmt.Sprintf("wgpu: barrier on foreign buffer %v", b.Buffer))
			}
			buffers = append(buffers, hal.BufferBarrier{
				Buffer: buf.buffer,
				Usage: hal.BufferUsageTransition{
					OldUsage: bufferUsage(b.From, buf.desc),
					NewUsage: bufferUsage(b.To, buf.desc),
				},
			})
		}
	}
	if len(textures) > 0 {
		r.encoder.TransitionTextures(textures)
	}
	if len(buffers) > 0 {
		r.encoder.TransitionBuffers(buffers)
	}
	r.barriers += len(textures) + len(buffers)
}

// BeginPass implements resource.PassMarker.
func (r *Recorder) BeginPass(name string) {
	r.open = append(r.open, name)
	r.passes++
	r.device.log().Debug("wgpu: pass", "name", name, "commands", r.label)
}

// EndPass implements resource.PassMarker.
func (r *Recorder) EndPass() {
	if len(r.open) == 0 {
		panic("wgpu: EndPass without BeginPass")
	}
	r.open = r.open[:len(r.open)-1]
}

// finish ends encoding. The recorder cannot be used afterwards.
func (r *Recorder) finish() (hal.CommandBuffer, error) {
	if r.ended {
		return nil, fmt.Errorf("wgpu: commands %q already submitted", r.label)
	}
	if len(r.open) > 0 {
		return nil, fmt.Errorf("wgpu: submit with open pass %q", r.open[len(r.open)-1])
	}
	r.ended = true
	cb, err := r.encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("%w: wgpu: end encoding: %w", resource.ErrDevice, err)
	}
	return cb, nil
}
