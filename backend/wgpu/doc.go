// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package wgpu runs frame graphs on the Pure Go WebGPU HAL (gogpu/wgpu).
//
// Images and buffers are hal textures and buffers; barriers become
// TransitionTextures and TransitionBuffers calls on a hal command encoder.
// Accesses map to usages as follows:
//
//	read/srv, image   TextureUsageTextureBinding
//	*/uav, image      TextureUsageStorageBinding
//	*/rt, image       TextureUsageRenderAttachment
//	read/srv, buffer  BufferUsageUniform or BufferUsageStorage
//	*/uav, buffer     BufferUsageStorage
//
// The backend opens the noop HAL device by default, which is useful for
// headless runs. OpenVulkan opens real hardware, and NewFromProvider shares
// the device of a host application such as gogpu:
//
//	b, err := wgpu.NewFromProvider(app)
//	if err != nil {
//	    return err
//	}
//	exec := framegraph.New(b.Device())
//
// Importing the package registers the backend under backend.BackendWGPU.
package wgpu
