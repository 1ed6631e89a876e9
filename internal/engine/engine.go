// Package engine maps engine names to the Detector and Searcher implementations the
// pipeline runs against. Engines that need cgo libraries register themselves from
// build-tagged files, so a default build only carries the DeepFace client.
package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/kozaktomas/face-matcher/internal/config"
	"github.com/kozaktomas/face-matcher/internal/facematch"
)

// ErrUnknownEngine is returned by Open for names nothing registered.
var ErrUnknownEngine = errors.New("unknown face engine")

// Engine bundles a detector and a searcher with their shared resources.
type Engine struct {
	Name     string
	Detector facematch.Detector
	Searcher facematch.Searcher

	closers []func() error
}

// HealthChecker is implemented by engines backed by a remote service.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Factory builds an engine from configuration.
type Factory func(cfg config.EngineConfig) (*Engine, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes an engine available under name. Registering the same name twice
// replaces the earlier factory.
func Register(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[strings.ToLower(name)] = factory
}

// Names returns the registered engine names in sorted order.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Open builds the engine named in cfg.
func Open(cfg config.EngineConfig) (*Engine, error) {
	mu.RLock()
	factory, ok := factories[strings.ToLower(cfg.Name)]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q (available: %s)", ErrUnknownEngine, cfg.Name, strings.Join(Names(), ", "))
	}

	e, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening %s engine: %w", cfg.Name, err)
	}
	if e.Name == "" {
		e.Name = strings.ToLower(cfg.Name)
	}
	return e, nil
}

// OnClose registers fn to run when the engine is closed.
func (e *Engine) OnClose(fn func() error) {
	e.closers = append(e.closers, fn)
}

// Close releases engine resources in reverse registration order.
func (e *Engine) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	e.closers = nil
	return errors.Join(errs...)
}

// Health checks whichever parts of the engine support it. Local engines are always
// healthy once opened.
func (e *Engine) Health(ctx context.Context) error {
	checked := map[any]bool{}
	for _, part := range []any{e.Detector, e.Searcher} {
		hc, ok := part.(HealthChecker)
		if !ok || checked[part] {
			continue
		}
		checked[part] = true
		if err := hc.Health(ctx); err != nil {
			return err
		}
	}
	return nil
}
