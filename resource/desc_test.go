package resource

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
)

func TestImageDescValidate(t *testing.T) {
	base := NewImage2D(256, 256, gputypes.TextureFormatRGBA8Unorm)

	tests := []struct {
		name    string
		desc    ImageDesc
		wantErr bool
	}{
		{"valid 2d", base, false},
		{"valid full mips", base.WithMipLevels(0), false},
		{"valid array", base.WithArrayLayers(6), false},
		{"valid 3d", NewImage3D(32, 32, 32, gputypes.TextureFormatRGBA8Unorm), false},
		{"zero width", ImageDesc{Height: 1, Depth: 1, MipLevels: 1, ArrayLayers: 1, Format: base.Format, Usage: base.Usage}, true},
		{"zero depth", func() ImageDesc { d := base; d.Depth = 0; return d }(), true},
		{"undefined format", func() ImageDesc { d := base; d.Format = gputypes.TextureFormatUndefined; return d }(), true},
		{"no usage", base.WithUsage(0), true},
		{"zero mips", func() ImageDesc { d := base; d.MipLevels = 0; return d }(), true},
		{"too many mips", func() ImageDesc { d := base; d.MipLevels = 10; return d }(), true},
		{"zero layers", base.WithArrayLayers(0), true},
		{"3d array", NewImage3D(8, 8, 8, gputypes.TextureFormatRGBA8Unorm).WithArrayLayers(2), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.desc.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidDescriptor) {
				t.Errorf("Validate() error %v does not wrap ErrInvalidDescriptor", err)
			}
		})
	}
}

func TestBufferDescValidate(t *testing.T) {
	tests := []struct {
		name    string
		desc    BufferDesc
		wantErr bool
	}{
		{"storage", NewBuffer(1024), false},
		{"readback", BufferDesc{Size: 64, Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst}, false},
		{"upload", BufferDesc{Size: 64, Usage: gputypes.BufferUsageMapWrite | gputypes.BufferUsageCopySrc}, false},
		{"zero size", BufferDesc{Usage: gputypes.BufferUsageStorage}, true},
		{"no usage", BufferDesc{Size: 4}, true},
		{"map read with storage", BufferDesc{Size: 64, Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageStorage}, true},
		{"map write with copy dst", BufferDesc{Size: 64, Usage: gputypes.BufferUsageMapWrite | gputypes.BufferUsageCopyDst}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.desc.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidDescriptor) {
				t.Errorf("Validate() error %v does not wrap ErrInvalidDescriptor", err)
			}
		})
	}
}

func TestImageDescExtentHelpers(t *testing.T) {
	d := NewImage2D(1919, 1081, gputypes.TextureFormatRGBA8Unorm)
	half := d.HalfRes()
	if half.Width != 960 || half.Height != 541 || half.Depth != 1 {
		t.Errorf("HalfRes() = %dx%dx%d, want 960x541x1", half.Width, half.Height, half.Depth)
	}
	if got := NewImage2D(256, 128, gputypes.TextureFormatRGBA8Unorm).MaxMipLevels(); got != 9 {
		t.Errorf("MaxMipLevels() = %d, want 9", got)
	}
	if got := d.DivUpExtent(0, 0, 0); got != d {
		t.Errorf("DivUpExtent(0,0,0) changed the descriptor: %v", got)
	}
}

func TestImageDescEqualityIsExact(t *testing.T) {
	a := NewImage2D(256, 256, gputypes.TextureFormatRGBA8Unorm)
	b := NewImage2D(256, 256, gputypes.TextureFormatRGBA8Unorm)
	if a != b {
		t.Fatal("identical descriptors compare unequal")
	}
	bigger := NewImage2D(512, 512, gputypes.TextureFormatRGBA8Unorm)
	if a == bigger {
		t.Error("descriptors with different extents compare equal")
	}
	if a == a.WithUsage(a.Usage|gputypes.TextureUsageCopySrc) {
		t.Error("descriptors with different usage compare equal")
	}
}

func TestAllowsView(t *testing.T) {
	sampled := NewImage2D(4, 4, gputypes.TextureFormatRGBA8Unorm).WithUsage(gputypes.TextureUsageTextureBinding)
	if err := sampled.AllowsView(ViewSRV); err != nil {
		t.Errorf("AllowsView(SRV) = %v", err)
	}
	if err := sampled.AllowsView(ViewUAV); !errors.Is(err, ErrResourceAccess) {
		t.Errorf("AllowsView(UAV) = %v, want ErrResourceAccess", err)
	}
	if err := sampled.AllowsView(ViewRT); !errors.Is(err, ErrResourceAccess) {
		t.Errorf("AllowsView(RT) = %v, want ErrResourceAccess", err)
	}

	uniform := BufferDesc{Size: 256, Usage: gputypes.BufferUsageUniform}
	if err := uniform.AllowsView(ViewSRV); err != nil {
		t.Errorf("uniform AllowsView(SRV) = %v", err)
	}
	if err := uniform.AllowsView(ViewUAV); !errors.Is(err, ErrResourceAccess) {
		t.Errorf("uniform AllowsView(UAV) = %v, want ErrResourceAccess", err)
	}
	if err := NewBuffer(16).AllowsView(ViewRT); !errors.Is(err, ErrResourceAccess) {
		t.Errorf("buffer AllowsView(RT) = %v, want ErrResourceAccess", err)
	}
}
