package deepface

import (
	"fmt"

	"github.com/kozaktomas/face-matcher/internal/facematch"
)

// faceArray is a numpy array serialized as shape, dtype and flattened row-major data.
type faceArray struct {
	Shape []int     `json:"shape"`
	DType string    `json:"dtype"`
	Data  []float64 `json:"data"`
}

type facialArea struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

type extractedFace struct {
	Face         faceArray  `json:"face"`
	ChannelOrder string     `json:"channel_order"`
	FacialArea   facialArea `json:"facial_area"`
	Confidence   float64    `json:"confidence"`
}

// extractFacesResponse represents the response from /extract_faces
type extractFacesResponse struct {
	Faces []extractedFace `json:"faces"`
}

type findMatch struct {
	Identity string  `json:"identity"`
	Distance float64 `json:"distance"`
}

// findResponse represents the response from /find. There is one result list per
// face the service detected in the query image.
type findResponse struct {
	Results [][]findMatch `json:"results"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// toFace converts a wire face into the pipeline representation.
func (f extractedFace) toFace() (facematch.Face, error) {
	var h, w, c int
	switch len(f.Face.Shape) {
	case 2:
		h, w, c = f.Face.Shape[0], f.Face.Shape[1], 1
	case 3:
		h, w, c = f.Face.Shape[0], f.Face.Shape[1], f.Face.Shape[2]
	default:
		return facematch.Face{}, fmt.Errorf("unexpected face shape %v", f.Face.Shape)
	}

	var pt facematch.PixelType
	switch f.Face.DType {
	case "uint8":
		pt = facematch.PixelUint8
	case "float32":
		pt = facematch.PixelFloat32
	case "float64", "":
		pt = facematch.PixelFloat64
	default:
		return facematch.Face{}, fmt.Errorf("unsupported face dtype %q", f.Face.DType)
	}

	order := facematch.OrderRGB
	if f.ChannelOrder == string(facematch.OrderBGR) {
		order = facematch.OrderBGR
	}

	pixels := facematch.Pixels{
		Width:    w,
		Height:   h,
		Channels: c,
		Type:     pt,
		Order:    order,
		Data:     f.Face.Data,
	}
	if err := pixels.Validate(); err != nil {
		return facematch.Face{}, err
	}

	return facematch.Face{
		Pixels:     pixels,
		Area:       facematch.Area{X: f.FacialArea.X, Y: f.FacialArea.Y, W: f.FacialArea.W, H: f.FacialArea.H},
		Confidence: f.Confidence,
	}, nil
}
