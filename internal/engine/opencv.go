//go:build gocv

package engine

import (
	"time"

	"github.com/kozaktomas/face-matcher/internal/config"
	"github.com/kozaktomas/face-matcher/internal/constants"
	"github.com/kozaktomas/face-matcher/internal/deepface"
	"github.com/kozaktomas/face-matcher/internal/opencv"
)

func init() {
	Register(constants.EngineOpenCV, openOpenCV)
}

// openOpenCV detects locally and leaves the reference search to the DeepFace service.
func openOpenCV(cfg config.EngineConfig) (*Engine, error) {
	detector, err := opencv.NewDetector(cfg.CascadePath)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		Name:     constants.EngineOpenCV,
		Detector: detector,
		Searcher: deepface.NewClient(cfg.DeepFaceURL, time.Duration(cfg.DeepFaceTimeout)*time.Second),
	}
	e.OnClose(func() error {
		detector.Close()
		return nil
	})
	return e, nil
}
