// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
	_ "github.com/gogpu/wgpu/hal/vulkan" // register the Vulkan HAL

	"github.com/gogpu/framegraph/backend"
	"github.com/gogpu/framegraph/resource"
)

// ErrNoAdapter is returned when a HAL exposes no adapter.
var ErrNoAdapter = errors.New("wgpu: no GPU adapter found")

// ErrProvider is returned by NewFromProvider when the provider does not
// expose hal types.
var ErrProvider = errors.New("wgpu: provider does not expose a hal device")

// init registers the wgpu backend on package import.
func init() {
	backend.Register(backend.BackendWGPU, func() backend.Backend {
		return New()
	})
}

// opener returns an opened device. instance is nil when the device is
// borrowed from a provider and must not be destroyed.
type opener func() (instance hal.Instance, device hal.Device, queue hal.Queue, info GPUInfo, err error)

// Backend is the wgpu implementation of backend.Backend.
type Backend struct {
	mu   sync.Mutex
	open opener

	instance hal.Instance
	device   *Device
	info     GPUInfo
	shaders  *shaderCache
	logger   *slog.Logger

	lastIndex uint64
	submitted int
}

// New returns a backend on the noop HAL. Call Init before use.
func New() *Backend {
	return &Backend{open: openHAL(&noop.API{}, "noop")}
}

// Open returns an initialized backend on the noop HAL.
func Open() (*Backend, error) {
	b := New()
	if err := b.Init(); err != nil {
		return nil, err
	}
	return b, nil
}

// OpenVulkan returns an initialized backend on the first discrete or
// integrated Vulkan adapter.
func OpenVulkan() (*Backend, error) {
	api, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("%w: vulkan", backend.ErrBackendNotAvailable)
	}
	b := &Backend{open: openHAL(api, "vulkan")}
	if err := b.Init(); err != nil {
		return nil, err
	}
	return b, nil
}

// NewFromProvider returns an initialized backend sharing the device of a
// host application. The provider must implement HalDevice() any and
// HalQueue() any returning hal.Device and hal.Queue. Close does not
// destroy the shared device.
func NewFromProvider(provider gpucontext.DeviceProvider) (*Backend, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	if provider == nil {
		return nil, ErrProvider
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrProvider, provider)
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrProvider)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrProvider)
	}

	info := GPUInfo{Name: "shared", Backend: "provider"}
	b := &Backend{
		open: func() (hal.Instance, hal.Device, hal.Queue, GPUInfo, error) {
			return nil, device, queue, info, nil
		},
	}
	if err := b.Init(); err != nil {
		return nil, err
	}
	return b, nil
}

// openHAL opens the preferred adapter of api.
func openHAL(api hal.Backend, name string) opener {
	return func() (hal.Instance, hal.Device, hal.Queue, GPUInfo, error) {
		instance, err := api.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
		if err != nil {
			return nil, nil, nil, GPUInfo{}, fmt.Errorf("wgpu: create %s instance: %w", name, err)
		}
		adapters := instance.EnumerateAdapters(nil)
		if len(adapters) == 0 {
			instance.Destroy()
			return nil, nil, nil, GPUInfo{}, fmt.Errorf("%w (%s)", ErrNoAdapter, name)
		}

		selected := &adapters[0]
		for i := range adapters {
			if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
				adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
				selected = &adapters[i]
				break
			}
		}

		openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
		if err != nil {
			instance.Destroy()
			return nil, nil, nil, GPUInfo{}, fmt.Errorf("wgpu: open %s device: %w", name, err)
		}
		info := GPUInfo{Name: selected.Info.Name, DeviceType: selected.Info.DeviceType, Backend: name}
		return instance, openDev.Device, openDev.Queue, info, nil
	}
}

// Name returns the backend identifier.
func (b *Backend) Name() string { return backend.BackendWGPU }

// Init opens the device. Calling Init on an initialized backend is a no-op.
func (b *Backend) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.device != nil {
		return nil
	}

	instance, device, queue, info, err := b.open()
	if err != nil {
		return err
	}
	b.instance = instance
	b.device = NewDevice(device, queue)
	if b.logger != nil {
		b.device.SetLogger(b.logger)
	}
	b.info = info
	b.lastIndex = 0
	b.shaders = newShaderCache(device, 0)
	b.log().Info("wgpu: backend initialized", "gpu", info)
	return nil
}

func (b *Backend) log() *slog.Logger {
	if b.logger != nil {
		return b.logger
	}
	return slog.New(slog.DiscardHandler)
}

// SetLogger sets the logger for the backend and its device.
func (b *Backend) SetLogger(l *slog.Logger) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logger = l
	if b.device != nil {
		b.device.SetLogger(l)
	}
}

// Close destroys shader modules and any objects still live, then the
// device if the backend opened it.
func (b *Backend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.device == nil {
		return
	}

	b.shaders.close()
	if n := b.device.destroyAll(); n > 0 {
		b.log().Warn("wgpu: closing with live objects", "count", n)
	}
	hd := b.device.HalDevice()
	if b.instance != nil {
		hd.Destroy()
		b.instance.Destroy()
		b.instance = nil
	}
	b.device = nil
	b.shaders = nil
}

// Device returns the resource device, nil before Init.
func (b *Backend) Device() resource.Device {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.device == nil {
		return nil
	}
	return b.device
}

// WGPUDevice returns the concrete device, nil before Init.
func (b *Backend) WGPUDevice() *Device {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.device
}

// Info returns the adapter description.
func (b *Backend) Info() GPUInfo {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.info
}

// BeginCommands returns a Recorder with an encoder that has begun encoding.
func (b *Backend) BeginCommands(label string) (resource.CommandRecorder, error) {
	b.mu.Lock()
	device := b.device
	b.mu.Unlock()
	if device == nil {
		return nil, backend.ErrNotInitialized
	}
	rec, err := newRecorder(device, label)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Submit ends the recorder's encoding, submits it and waits for the queue
// to finish.
func (b *Backend) Submit(cmds resource.CommandRecorder) error {
	rec, ok := cmds.(*Recorder)
	if !ok {
		return fmt.Errorf("%w: %T", backend.ErrForeignCommands, cmds)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.device == nil {
		return backend.ErrNotInitialized
	}
	if rec.device != b.device {
		return fmt.Errorf("%w: recorder %q belongs to another device", backend.ErrForeignCommands, rec.label)
	}

	cb, err := rec.finish()
	if err != nil {
		return err
	}
	hd := b.device.HalDevice()
	defer hd.FreeCommandBuffer(cb)

	queue := b.device.HalQueue()
	idx, err := queue.Submit([]hal.CommandBuffer{cb})
	if err != nil {
		return fmt.Errorf("%w: wgpu: submit: %w", resource.ErrDevice, err)
	}
	if queue.PollCompleted() < idx {
		if err := hd.WaitIdle(); err != nil {
			return fmt.Errorf("%w: wgpu: wait for GPU: %w", resource.ErrDevice, err)
		}
	}
	b.lastIndex = idx
	b.submitted++
	b.log().Debug("wgpu: submitted", "commands", rec.label, "passes", rec.passes, "barriers", rec.barriers)
	return nil
}

// LastSubmission returns the queue's submission index of the most recent
// successful Submit, zero before the first one.
func (b *Backend) LastSubmission() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastIndex
}

// Submitted returns the number of successful submissions.
func (b *Backend) Submitted() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.submitted
}

// CompileShader compiles WGSL to a shader module on the backend's device.
// Modules are cached by source; the backend owns them and destroys them on
// Close.
func (b *Backend) CompileShader(label, wgsl string) (hal.ShaderModule, error) {
	b.mu.Lock()
	shaders := b.shaders
	b.mu.Unlock()
	if shaders == nil {
		return nil, backend.ErrNotInitialized
	}
	return shaders.get(label, wgsl)
}

// ShaderStats returns hit and miss counts of the shader module cache.
func (b *Backend) ShaderStats() (hits, misses uint64) {
	b.mu.Lock()
	shaders := b.shaders
	b.mu.Unlock()
	if shaders == nil {
		return 0, 0
	}
	st := shaders.modules.Stats()
	return st.Hits, st.Misses
}
