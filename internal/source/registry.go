// Package source builds the configured platform adapters. All per-platform
// fetch logic lives behind the service.SourceAdapter contract; adding a
// platform means registering one factory here, not duplicating any
// decision or dedup logic.
package source

import (
	"fmt"
	"log/slog"
	"sort"

	"content_scanner/internal/config"
	"content_scanner/internal/service"
)

// Factory constructs an adapter from one source config entry.
type Factory func(cfg config.SourceConfig, logger *slog.Logger) (service.SourceAdapter, error)

type Registry struct {
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

func (r *Registry) Register(kind string, f Factory) {
	r.factories[kind] = f
}

// Kinds lists the registered adapter kinds, sorted for stable error text.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Build instantiates an adapter per config entry, preserving order.
func (r *Registry) Build(cfgs []config.SourceConfig, logger *slog.Logger) ([]service.SourceAdapter, error) {
	adapters := make([]service.SourceAdapter, 0, len(cfgs))
	for _, cfg := range cfgs {
		f, ok := r.factories[cfg.Kind]
		if !ok {
			return nil, fmt.Errorf("unknown source kind %q for source %q (registered: %v)",
				cfg.Kind, cfg.ID, r.Kinds())
		}
		adapter, err := f(cfg, logger.With("source", cfg.ID))
		if err != nil {
			return nil, fmt.Errorf("build source %q: %w", cfg.ID, err)
		}
		adapters = append(adapters, adapter)
	}
	return adapters, nil
}
