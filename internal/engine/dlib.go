//go:build dlib

package engine

import (
	"github.com/kozaktomas/face-matcher/internal/config"
	"github.com/kozaktomas/face-matcher/internal/constants"
	"github.com/kozaktomas/face-matcher/internal/dlib"
)

func init() {
	Register(constants.EngineDlib, openDlib)
}

func openDlib(cfg config.EngineConfig) (*Engine, error) {
	rec, err := dlib.NewRecognizer(cfg.DlibModelsDir)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		Name:     constants.EngineDlib,
		Detector: rec,
		Searcher: rec,
	}
	e.OnClose(func() error {
		rec.Close()
		return nil
	})
	return e, nil
}
