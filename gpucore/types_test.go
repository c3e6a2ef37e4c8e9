package gpucore

import (
	"testing"

	"github.com/gogpu/gputypes"
)

func TestCalcSubresource(t *testing.T) {
	tests := []struct {
		mip, array, mipCount int
		want                 int
	}{
		{0, 0, 1, 0},
		{0, 0, 5, 0},
		{3, 0, 5, 3},
		{0, 1, 5, 5},
		{2, 3, 4, 14},
	}
	for _, tt := range tests {
		if got := CalcSubresource(tt.mip, tt.array, tt.mipCount); got != tt.want {
			t.Errorf("CalcSubresource(%d, %d, %d) = %d, want %d", tt.mip, tt.array, tt.mipCount, got, tt.want)
		}
	}
}

func TestMipSize(t *testing.T) {
	if got := MipSize(256, 0); got != 256 {
		t.Errorf("MipSize(256, 0) = %d, want 256", got)
	}
	if got := MipSize(256, 3); got != 32 {
		t.Errorf("MipSize(256, 3) = %d, want 32", got)
	}
	if got := MipSize(3, 4); got != 1 {
		t.Errorf("MipSize(3, 4) = %d, want 1", got)
	}
}

func TestPitch(t *testing.T) {
	row, slice := Pitch(gputypes.TextureFormatRGBA8Unorm, 64, 32)
	if row != 256 {
		t.Errorf("row pitch = %d, want 256", row)
	}
	if slice != 256*32 {
		t.Errorf("slice pitch = %d, want %d", slice, 256*32)
	}

	if got := BytesPerPixel(gputypes.TextureFormatBC1RGBAUnorm); got != 0 {
		t.Errorf("BytesPerPixel(BC1) = %d, want 0", got)
	}
	if got := BytesPerPixel(gputypes.TextureFormatRGBA32Float); got != 16 {
		t.Errorf("BytesPerPixel(RGBA32Float) = %d, want 16", got)
	}
}

func TestMapModeReads(t *testing.T) {
	for _, m := range []MapMode{MapRead, MapReadWrite} {
		if !m.Reads() {
			t.Errorf("%v.Reads() = false, want true", m)
		}
	}
	for _, m := range []MapMode{MapWrite, MapWriteDiscard, MapWriteNoOverwrite} {
		if m.Reads() {
			t.Errorf("%v.Reads() = true, want false", m)
		}
	}
}

func TestBindFlagsHas(t *testing.T) {
	f := BindShaderResource | BindRenderTarget
	if !f.Has(BindRenderTarget) {
		t.Error("expected BindRenderTarget to be set")
	}
	if f.Has(BindDepthStencil) {
		t.Error("expected BindDepthStencil to be clear")
	}
}
