// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/framegraph/cache"
)

// ErrShaderCompile is returned when WGSL source does not compile.
var ErrShaderCompile = errors.New("wgpu: shader compilation failed")

// compileSPIRV compiles WGSL source to SPIR-V words.
func compileSPIRV(wgsl string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgsl)
	if err != nil {
		return nil, err
	}
	if len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("SPIR-V size %d is not a multiple of 4", len(spirvBytes))
	}

	// SPIR-V is little-endian 32-bit words.
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}

// shaderCache holds compiled shader modules keyed by WGSL source. Evicted
// modules are destroyed.
type shaderCache struct {
	device  hal.Device
	modules *cache.Keyed[string, hal.ShaderModule]
}

func newShaderCache(device hal.Device, capacity int) *shaderCache {
	s := &shaderCache{device: device}
	s.modules = cache.NewKeyed(capacity, cache.StringHash, func(_ string, m hal.ShaderModule) {
		device.DestroyShaderModule(m)
	})
	return s
}

// get returns the module for wgsl, compiling it on a miss. Failed
// compilations are not cached.
func (s *shaderCache) get(label, wgsl string) (hal.ShaderModule, error) {
	return s.modules.GetOrCreate(wgsl, func() (hal.ShaderModule, error) {
		words, err := compileSPIRV(wgsl)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrShaderCompile, label, err)
		}
		m, err := s.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
			Label:  label,
			Source: hal.ShaderSource{SPIRV: words},
		})
		if err != nil {
			return nil, fmt.Errorf("wgpu: create shader module %q: %w", label, err)
		}
		return m, nil
	})
}

// close destroys every cached module.
func (s *shaderCache) close() {
	s.modules.Clear()
}
