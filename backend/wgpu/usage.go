// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/framegraph/resource"
)

// textureUsage returns the hal texture state for an access. The mode does
// not matter: HAL usages carry no read/write distinction.
func textureUsage(a resource.Access) gputypes.TextureUsage {
	switch a.View {
	case resource.ViewSRV:
		return gputypes.TextureUsageTextureBinding
	case resource.ViewUAV:
		return gputypes.TextureUsageStorageBinding
	case resource.ViewRT:
		return gputypes.TextureUsageRenderAttachment
	}
	return 0
}

// bufferUsage returns the hal buffer state for an access of a buffer
// created with desc. Shader reads bind as storage when the buffer allows it
// and as uniform otherwise.
func bufferUsage(a resource.Access, desc resource.BufferDesc) gputypes.BufferUsage {
	switch a.View {
	case resource.ViewSRV:
		if desc.Usage&gputypes.BufferUsageStorage != 0 {
			return gputypes.BufferUsageStorage
		}
		return gputypes.BufferUsageUniform
	case resource.ViewUAV:
		return gputypes.BufferUsageStorage
	}
	return 0
}
