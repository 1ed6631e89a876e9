package engine

import (
	"time"

	"github.com/kozaktomas/face-matcher/internal/config"
	"github.com/kozaktomas/face-matcher/internal/constants"
	"github.com/kozaktomas/face-matcher/internal/deepface"
)

func init() {
	Register(constants.EngineDeepFace, openDeepFace)
}

func openDeepFace(cfg config.EngineConfig) (*Engine, error) {
	client := deepface.NewClient(cfg.DeepFaceURL, time.Duration(cfg.DeepFaceTimeout)*time.Second)
	return &Engine{
		Name:     constants.EngineDeepFace,
		Detector: client,
		Searcher: client,
	}, nil
}
