// Command gpustate-demo blits a procedurally generated texture through the
// native backend on the HAL noop device and reports cache statistics.
//
// With -output it reads the render target back and writes it as a PNG,
// scaled by -scale. The noop device does not rasterize, so the image shows
// what the HAL returned rather than the blits.
package main

import (
	"flag"
	"image"
	"image/png"
	"log"
	"log/slog"
	"os"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal/noop"
	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/gpustate"
	"github.com/gogpu/gpustate/backend/native"
	"github.com/gogpu/gpustate/blit"
	"github.com/gogpu/gpustate/draw"
	"github.com/gogpu/gpustate/gpucore"
	"github.com/gogpu/gpustate/state"
	"github.com/gogpu/gpustate/texture"
)

func main() {
	var (
		width   = flag.Int("width", 256, "render target width")
		height  = flag.Int("height", 256, "render target height")
		blits   = flag.Int("blits", 64, "number of blits")
		output  = flag.String("output", "", "optional PNG of the read-back target")
		scale   = flag.Int("scale", 2, "preview scale factor")
		verbose = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	if *verbose {
		gpustate.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	dev, err := openDevice()
	if err != nil {
		log.Fatalf("Failed to open device: %v", err)
	}
	defer dev.Close()

	src, err := newCheckerTexture(dev, 32)
	if err != nil {
		log.Fatalf("Failed to create source: %v", err)
	}
	defer src.Close()
	srcView, err := src.DefaultView()
	if err != nil {
		log.Fatalf("Failed to create source view: %v", err)
	}

	w, h := uint32(*width), uint32(*height) //nolint:gosec // flag values
	dst, err := texture.New(dev, texture.Info{
		Label:   "demo target",
		Width:   w,
		Height:  h,
		Format:  gputypes.TextureFormatRGBA8Unorm,
		Usage:   gpucore.UsageStaging,
		Binding: gpucore.BindRenderTarget | gpucore.BindShaderResource,
	})
	if err != nil {
		log.Fatalf("Failed to create target: %v", err)
	}
	defer dst.Close()
	dstView, err := dst.DefaultView()
	if err != nil {
		log.Fatalf("Failed to create target view: %v", err)
	}
	target := draw.Target{View: dstView, Width: w, Height: h, Format: gputypes.TextureFormatRGBA8Unorm}

	blitter, err := blit.NewTextureBlitter(dev, blit.Options{})
	if err != nil {
		log.Fatalf("Failed to create blitter: %v", err)
	}
	defer blitter.Close()

	blends := []*state.BlendStateDesc{&state.BlendModulated, &state.BlendPremultiplied, &state.BlendAdditive}
	for i := range *blits {
		x := float32(i*13%int(w)) * 0.75
		y := float32(i*29%int(h)) * 0.75
		op := blit.Op{
			View:  srcView,
			Dst:   blit.Rect{X: x, Y: y, Width: 32, Height: 32},
			Color: gputypes.Color{R: 1, G: float64(i%4) / 3, B: 1, A: 1},
			Blend: blends[i%len(blends)],
		}
		if err := blitter.Blit(target, op); err != nil {
			log.Fatalf("Blit %d failed: %v", i, err)
		}
	}

	stats := dev.PipelineStats()
	log.Printf("%d blits: %d pipelines built, %d reused, %d cached",
		*blits, stats.Misses, stats.Hits, stats.Cached)

	if *output != "" {
		if err := writePreview(dst, *output, *scale); err != nil {
			log.Fatalf("Failed to write preview: %v", err)
		}
		log.Printf("Preview saved to %s", *output)
	}
}

func openDevice() (*native.Device, error) {
	instance, err := noop.API{}.CreateInstance(nil)
	if err != nil {
		return nil, err
	}
	adapters := instance.EnumerateAdapters(nil)
	open, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		return nil, err
	}
	return native.New(open.Device, open.Queue, native.Config{Label: "demo"})
}

// newCheckerTexture uploads a size x size checkerboard through a write lock.
func newCheckerTexture(dev *native.Device, size uint32) (*texture.Texture, error) {
	tex, err := texture.New(dev, texture.Info{
		Label:   "checker",
		Width:   size,
		Height:  size,
		Format:  gputypes.TextureFormatRGBA8Unorm,
		Usage:   gpucore.UsageDynamic,
		Binding: gpucore.BindShaderResource,
	})
	if err != nil {
		return nil, err
	}

	ld, err := tex.Lock(gpucore.MapWriteDiscard, 0, 0)
	if err != nil {
		tex.Close()
		return nil, err
	}
	for y := range ld.Height {
		row := ld.Data[y*ld.RowPitch:]
		for x := range ld.Width {
			v := byte(0x30)
			if (x/4+y/4)%2 == 0 {
				v = 0xe0
			}
			p := row[x*4 : x*4+4]
			p[0], p[1], p[2], p[3] = v, v, v, 0xff
		}
	}
	tex.Unlock(ld)
	return tex, nil
}

// writePreview reads the texture back and writes it scaled to path.
func writePreview(tex *texture.Texture, path string, scale int) error {
	ld, err := tex.Lock(gpucore.MapRead, 0, 0)
	if err != nil {
		return err
	}
	img := image.NewRGBA(image.Rect(0, 0, int(ld.Width), int(ld.Height)))
	for y := range int(ld.Height) {
		copy(img.Pix[y*img.Stride:y*img.Stride+int(ld.Width)*4], ld.Data[y*int(ld.RowPitch):])
	}
	tex.Unlock(ld)

	scale = max(scale, 1)
	out := image.NewRGBA(image.Rect(0, 0, img.Bounds().Dx()*scale, img.Bounds().Dy()*scale))
	xdraw.NearestNeighbor.Scale(out, out.Bounds(), img, img.Bounds(), xdraw.Src, nil)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, out); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
