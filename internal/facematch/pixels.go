package facematch

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
)

// PixelType is the element type reported by the engine for a face array.
type PixelType string

const (
	PixelUint8   PixelType = "uint8"
	PixelFloat32 PixelType = "float32"
	PixelFloat64 PixelType = "float64"
)

// ChannelOrder is the color channel order of a 3 or 4 channel array.
type ChannelOrder string

const (
	OrderRGB ChannelOrder = "RGB"
	OrderBGR ChannelOrder = "BGR"
)

// ErrInvalidPixels is returned for arrays whose shape does not match their data.
var ErrInvalidPixels = errors.New("invalid pixel array")

// Pixels is a row-major height x width x channels array as returned by an engine.
// Values are kept as float64 regardless of Type so both encodings share one layout.
type Pixels struct {
	Width    int
	Height   int
	Channels int
	Type     PixelType
	Order    ChannelOrder
	Data     []float64
}

// Validate checks the shape against the data length.
func (p Pixels) Validate() error {
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("%w: empty shape %dx%d", ErrInvalidPixels, p.Width, p.Height)
	}
	if p.Channels != 1 && p.Channels != 3 && p.Channels != 4 {
		return fmt.Errorf("%w: unsupported channel count %d", ErrInvalidPixels, p.Channels)
	}
	if want := p.Width * p.Height * p.Channels; len(p.Data) != want {
		return fmt.Errorf("%w: expected %d values for %dx%dx%d, got %d",
			ErrInvalidPixels, want, p.Height, p.Width, p.Channels, len(p.Data))
	}
	return nil
}

// Max returns the largest value in the array, or 0 for an empty array.
func (p Pixels) Max() float64 {
	if len(p.Data) == 0 {
		return 0
	}
	m := math.Inf(-1)
	for _, v := range p.Data {
		if v > m {
			m = v
		}
	}
	return m
}

// Normalize converts the array to 8-bit values.
// uint8 arrays are returned unchanged. Float arrays whose maximum is at most 1.0 are
// scaled by 255 first, anything else is cast directly.
func (p Pixels) Normalize() Pixels {
	if p.Type == PixelUint8 {
		return p
	}

	scale := 1.0
	if p.Max() <= 1.0 {
		scale = 255
	}

	data := make([]float64, len(p.Data))
	for i, v := range p.Data {
		data[i] = float64(castUint8(v * scale))
	}

	out := p
	out.Type = PixelUint8
	out.Data = data
	return out
}

// castUint8 truncates toward zero and clamps to the uint8 range.
func castUint8(v float64) uint8 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(math.Trunc(v))
}

// Image normalizes the array and converts it to an RGBA image, swapping channels
// when the array is in BGR order.
func (p Pixels) Image() (*image.RGBA, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	n := p.Normalize()
	img := image.NewRGBA(image.Rect(0, 0, n.Width, n.Height))

	for y := range n.Height {
		for x := range n.Width {
			base := (y*n.Width + x) * n.Channels
			c := color.RGBA{A: 255}
			switch n.Channels {
			case 1:
				v := uint8(n.Data[base])
				c.R, c.G, c.B = v, v, v
			default:
				c.R, c.G, c.B = uint8(n.Data[base]), uint8(n.Data[base+1]), uint8(n.Data[base+2])
				if n.Order == OrderBGR {
					c.R, c.B = c.B, c.R
				}
				if n.Channels == 4 {
					c.A = uint8(n.Data[base+3])
				}
			}
			img.SetRGBA(x, y, c)
		}
	}

	return img, nil
}

// PixelsFromImage converts an image into a uint8 RGB array. Local engines use this to
// hand their crops to the pipeline in the same form as remote ones.
func PixelsFromImage(img image.Image) Pixels {
	b := img.Bounds()
	p := Pixels{
		Width:    b.Dx(),
		Height:   b.Dy(),
		Channels: 3,
		Type:     PixelUint8,
		Order:    OrderRGB,
		Data:     make([]float64, 0, b.Dx()*b.Dy()*3),
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
			p.Data = append(p.Data, float64(c.R), float64(c.G), float64(c.B))
		}
	}
	return p
}
