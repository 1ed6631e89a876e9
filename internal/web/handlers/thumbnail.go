package handlers

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/jpeg"

	"github.com/kozaktomas/face-matcher/internal/constants"
	"golang.org/x/image/draw"
)

// thumbnailDataURL scales img so its longest edge is at most ThumbnailSize and returns
// it as a base64 JPEG data URL. Smaller images are not enlarged.
func thumbnailDataURL(img image.Image) string {
	if img == nil {
		return ""
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return ""
	}
	if longest := max(w, h); longest > constants.ThumbnailSize {
		w = max(1, w*constants.ThumbnailSize/longest)
		h = max(1, h*constants.ThumbnailSize/longest)
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: constants.JPEGQuality}); err != nil {
		return ""
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}
