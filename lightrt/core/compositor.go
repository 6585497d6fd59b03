package core

import (
	"errors"
	"image"
	"image/color"
	"math"
	"runtime"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/draw"
)

// MaxHDRValue is the largest finite value of a 16-bit float target.
const MaxHDRValue = 65504

var ErrViewSizeMismatch = errors.New("core: scene color size does not match view")

// ColorBuffer is a linear-space RGBA image, row-major, y pointing down.
type ColorBuffer struct {
	Width  int
	Height int
	Pix    []LinearRgba
}

func NewColorBuffer(width, height int) *ColorBuffer {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &ColorBuffer{
		Width:  width,
		Height: height,
		Pix:    make([]LinearRgba, width*height),
	}
}

func (b *ColorBuffer) At(x, y int) LinearRgba {
	return b.Pix[y*b.Width+x]
}

func (b *ColorBuffer) Set(x, y int, c LinearRgba) {
	b.Pix[y*b.Width+x] = c
}

func (b *ColorBuffer) Fill(c LinearRgba) {
	for i := range b.Pix {
		b.Pix[i] = c
	}
}

// ColorBufferFromImage converts an sRGB image into a linear buffer of the requested size,
// resampling bilinearly when the sizes differ.
func ColorBufferFromImage(src image.Image, width, height int) *ColorBuffer {
	dst := image.NewNRGBA64(image.Rect(0, 0, width, height))
	if src.Bounds().Dx() == width && src.Bounds().Dy() == height {
		draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)
	} else {
		draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	}

	buf := NewColorBuffer(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := dst.NRGBA64At(x, y)
			buf.Set(x, y, Color{
				R: float32(c.R) / 0xffff,
				G: float32(c.G) / 0xffff,
				B: float32(c.B) / 0xffff,
				A: float32(c.A) / 0xffff,
			}.ToLinear())
		}
	}
	return buf
}

// ToImage encodes the buffer as an 8-bit sRGB image, clamping to the displayable range.
func (b *ColorBuffer) ToImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, b.Width, b.Height))
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			c := b.At(x, y).ToSrgb()
			img.SetNRGBA(x, y, color.NRGBA{
				R: unorm8(c.R),
				G: unorm8(c.G),
				B: unorm8(c.B),
				A: unorm8(c.A),
			})
		}
	}
	return img
}

func unorm8(v float32) uint8 {
	if !(v > 0) {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}

// LightAt returns the linear RGB multiplier applied to the scene color at world position p:
// the ambient term plus every light that reaches p unoccluded.
func LightAt(p mgl32.Vec2, ambient ExtractedAmbient, frame *Frame, occlusion Occlusion) mgl32.Vec3 {
	total := ambient.Color.RGB()

	for i := range frame.PointLights {
		l := &frame.PointLights[i]
		c := PointLightContribution(l, p)
		if c == (mgl32.Vec3{}) {
			continue
		}
		if l.CastShadows != 0 && occlusion != nil && occlusion.Blocked(l.Center, p) {
			continue
		}
		total = total.Add(c)
	}

	for i := range frame.SpotLights {
		l := &frame.SpotLights[i]
		c := SpotLightContribution(l, p)
		if c == (mgl32.Vec3{}) {
			continue
		}
		if l.CastShadows != 0 && occlusion != nil && occlusion.Blocked(l.Center, p) {
			continue
		}
		total = total.Add(c)
	}
	return total
}

// Shade applies a light multiplier to a scene color, adds the unlit emissive term and
// clamps for the target range.
func Shade(scene LinearRgba, light, emissive mgl32.Vec3, hdr bool) LinearRgba {
	hi := float32(1)
	if hdr {
		hi = MaxHDRValue
	}
	return LinearRgba{
		R: clampChannel(scene.R*light.X()+emissive.X(), hi),
		G: clampChannel(scene.G*light.Y()+emissive.Y(), hi),
		B: clampChannel(scene.B*light.Z()+emissive.Z(), hi),
		A: clampChannel(scene.A, 1),
	}
}

func clampChannel(v, hi float32) float32 {
	if !(v > 0) {
		return 0
	}
	if v > hi {
		return hi
	}
	return v
}

// CompositeOptions tunes the CPU compositor.
type CompositeOptions struct {
	// Workers is the number of row bands shaded concurrently, GOMAXPROCS when <= 0.
	Workers int
	// Occlusion overrides the shadow query. When nil an OccluderGrid is built from the frame.
	Occlusion Occlusion
	// GridCellSize is the cell size of the grid built when Occlusion is nil.
	GridCellSize float32
	// Emissive is added unlit after lighting. Optional, must match the scene size.
	Emissive *ColorBuffer
}

// Composite evaluates the lighting of one view on the CPU. Every pixel is independent, so
// rows are split across workers with no shared mutable state besides the output slice.
func Composite(scene *ColorBuffer, view ExtractedView, frame *Frame, opts CompositeOptions) (*ColorBuffer, error) {
	if scene.Width != int(view.Width) || scene.Height != int(view.Height) {
		return nil, ErrViewSizeMismatch
	}
	if opts.Emissive != nil && (opts.Emissive.Width != scene.Width || opts.Emissive.Height != scene.Height) {
		return nil, ErrViewSizeMismatch
	}
	if frame == nil {
		frame = &Frame{}
	}

	occlusion := opts.Occlusion
	if occlusion == nil && len(frame.Occluders) > 0 {
		grid := NewOccluderGrid(opts.GridCellSize)
		grid.Build(frame.Occluders)
		occlusion = grid
	}

	out := NewColorBuffer(scene.Width, scene.Height)

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > scene.Height {
		workers = scene.Height
	}
	if workers < 1 {
		return out, nil
	}

	rowsPerBand := int(math.Ceil(float64(scene.Height) / float64(workers)))
	var wg sync.WaitGroup
	for start := 0; start < scene.Height; start += rowsPerBand {
		end := start + rowsPerBand
		if end > scene.Height {
			end = scene.Height
		}
		wg.Add(1)
		go func(y0, y1 int) {
			defer wg.Done()
			for y := y0; y < y1; y++ {
				for x := 0; x < scene.Width; x++ {
					light := LightAt(view.PixelToWorld(x, y), view.Ambient, frame, occlusion)
					var emissive mgl32.Vec3
					if opts.Emissive != nil {
						emissive = opts.Emissive.At(x, y).RGB()
					}
					out.Set(x, y, Shade(scene.At(x, y), light, emissive, view.HDR))
				}
			}
		}(start, end)
	}
	wg.Wait()
	return out, nil
}
