package facematch

import (
	"errors"
	"image/color"
	"testing"
)

func TestNormalize_FloatUnitRangeIsScaled(t *testing.T) {
	p := Pixels{Width: 2, Height: 1, Channels: 1, Type: PixelFloat64, Data: []float64{0.5, 1.0}}

	n := p.Normalize()

	if n.Type != PixelUint8 {
		t.Errorf("expected type uint8, got %s", n.Type)
	}
	// 0.5 * 255 = 127.5 truncates to 127
	if n.Data[0] != 127 || n.Data[1] != 255 {
		t.Errorf("expected [127 255], got %v", n.Data)
	}
}

func TestNormalize_FloatAboveOneIsCastDirectly(t *testing.T) {
	p := Pixels{Width: 3, Height: 1, Channels: 1, Type: PixelFloat32, Data: []float64{0.5, 1.5, 200.9}}

	n := p.Normalize()

	want := []float64{0, 1, 200}
	for i := range want {
		if n.Data[i] != want[i] {
			t.Errorf("value %d: expected %v, got %v", i, want[i], n.Data[i])
		}
	}
}

func TestNormalize_Uint8PassesThrough(t *testing.T) {
	data := []float64{0, 1, 0.5, 255}
	p := Pixels{Width: 4, Height: 1, Channels: 1, Type: PixelUint8, Data: data}

	n := p.Normalize()

	for i := range data {
		if n.Data[i] != data[i] {
			t.Errorf("value %d changed: %v -> %v", i, data[i], n.Data[i])
		}
	}
	if &n.Data[0] != &data[0] {
		t.Error("expected uint8 data to be returned without copying")
	}
}

func TestNormalize_DoesNotModifyInput(t *testing.T) {
	p := Pixels{Width: 1, Height: 1, Channels: 1, Type: PixelFloat64, Data: []float64{0.2}}

	p.Normalize()

	if p.Data[0] != 0.2 {
		t.Errorf("input modified: %v", p.Data[0])
	}
}

func TestNormalize_ClampsOutOfRange(t *testing.T) {
	p := Pixels{Width: 3, Height: 1, Channels: 1, Type: PixelFloat64, Data: []float64{-4, 300, 12}}

	n := p.Normalize()

	want := []float64{0, 255, 12}
	for i := range want {
		if n.Data[i] != want[i] {
			t.Errorf("value %d: expected %v, got %v", i, want[i], n.Data[i])
		}
	}
}

func TestPixelsValidate(t *testing.T) {
	tests := []struct {
		name    string
		pixels  Pixels
		wantErr bool
	}{
		{"valid rgb", Pixels{Width: 2, Height: 2, Channels: 3, Data: make([]float64, 12)}, false},
		{"valid gray", Pixels{Width: 2, Height: 1, Channels: 1, Data: make([]float64, 2)}, false},
		{"short data", Pixels{Width: 2, Height: 2, Channels: 3, Data: make([]float64, 11)}, true},
		{"zero width", Pixels{Width: 0, Height: 2, Channels: 3}, true},
		{"two channels", Pixels{Width: 1, Height: 1, Channels: 2, Data: make([]float64, 2)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.pixels.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidPixels) {
				t.Errorf("expected ErrInvalidPixels, got %v", err)
			}
		})
	}
}

func TestPixelsImage_ChannelOrder(t *testing.T) {
	// One pixel with distinct channel values.
	data := []float64{10, 20, 30}

	rgb, err := Pixels{Width: 1, Height: 1, Channels: 3, Type: PixelUint8, Order: OrderRGB, Data: data}.Image()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := rgb.RGBAAt(0, 0); got != (color.RGBA{R: 10, G: 20, B: 30, A: 255}) {
		t.Errorf("RGB order: got %v", got)
	}

	bgr, err := Pixels{Width: 1, Height: 1, Channels: 3, Type: PixelUint8, Order: OrderBGR, Data: data}.Image()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := bgr.RGBAAt(0, 0); got != (color.RGBA{R: 30, G: 20, B: 10, A: 255}) {
		t.Errorf("BGR order: got %v", got)
	}
}

func TestPixelsImage_NormalizesFloat(t *testing.T) {
	p := Pixels{Width: 1, Height: 1, Channels: 3, Type: PixelFloat64, Order: OrderRGB, Data: []float64{1, 0, 0.5}}

	img, err := p.Image()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := img.RGBAAt(0, 0); got != (color.RGBA{R: 255, G: 0, B: 127, A: 255}) {
		t.Errorf("got %v", got)
	}
}

func TestPixelsImage_Grayscale(t *testing.T) {
	p := Pixels{Width: 1, Height: 1, Channels: 1, Type: PixelUint8, Data: []float64{42}}

	img, err := p.Image()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := img.RGBAAt(0, 0); got != (color.RGBA{R: 42, G: 42, B: 42, A: 255}) {
		t.Errorf("got %v", got)
	}
}

func TestPixelsFromImage(t *testing.T) {
	p := Pixels{Width: 2, Height: 1, Channels: 3, Type: PixelUint8, Order: OrderBGR, Data: []float64{1, 2, 3, 4, 5, 6}}
	img, err := p.Image()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	back := PixelsFromImage(img)

	if back.Order != OrderRGB || back.Type != PixelUint8 {
		t.Errorf("expected uint8 RGB, got %s %s", back.Type, back.Order)
	}
	want := []float64{3, 2, 1, 6, 5, 4}
	for i := range want {
		if back.Data[i] != want[i] {
			t.Errorf("value %d: expected %v, got %v", i, want[i], back.Data[i])
		}
	}
}
