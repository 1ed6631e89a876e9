package facematch

import (
	"image"
	"image/draw"
)

// ClampArea limits a facial area to the image bounds. Detectors may report boxes that
// extend past the edges for faces cut off by the frame.
func ClampArea(area Area, bounds image.Rectangle) Area {
	r := area.Rect().Add(bounds.Min).Intersect(bounds)
	if r.Empty() {
		return Area{}
	}
	r = r.Sub(bounds.Min)
	return Area{X: r.Min.X, Y: r.Min.Y, W: r.Dx(), H: r.Dy()}
}

// CropArea copies the facial area out of img into a new RGBA image.
// It returns nil when the area lies entirely outside the image.
func CropArea(img image.Image, area Area) *image.RGBA {
	b := img.Bounds()
	clamped := ClampArea(area, b)
	if clamped.W == 0 || clamped.H == 0 {
		return nil
	}

	dst := image.NewRGBA(image.Rect(0, 0, clamped.W, clamped.H))
	draw.Draw(dst, dst.Bounds(), img, b.Min.Add(image.Pt(clamped.X, clamped.Y)), draw.Src)
	return dst
}
