// Package models manages the registered scoring models and their backends.
package models

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/AjayAlluri/realtime-fraud-detection/internal/domain"
)

// Registry holds the configured models and their scorer backends.
// Enable/disable and weight changes are safe under concurrent scoring.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	logger  *slog.Logger
}

type entry struct {
	cfg      domain.ModelConfig
	scorer   domain.Scorer
	loaded   bool
	loadedAt time.Time
}

// NewRegistry builds scorer backends for each configured model. A model
// whose backend cannot be constructed is registered unloaded rather than
// failing startup.
func NewRegistry(cfgs []domain.ModelConfig, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		entries: make(map[string]*entry, len(cfgs)),
		logger:  logger,
	}
	for _, cfg := range cfgs {
		e := &entry{cfg: cfg}
		scorer, err := newScorer(cfg)
		if err != nil {
			logger.Warn("model backend unavailable", "modelId", cfg.ID, "type", cfg.Type, "error", err)
		} else {
			e.scorer = scorer
			e.loaded = true
			e.loadedAt = time.Now().UTC()
			logger.Info("model loaded", "modelId", cfg.ID, "type", cfg.Type, "weight", cfg.Weight)
		}
		r.entries[cfg.ID] = e
	}
	return r
}

// EnabledModels returns a snapshot of every enabled, loaded model, sorted by
// ID for deterministic fan-out.
func (r *Registry) EnabledModels() []domain.ModelHandle {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handles := make([]domain.ModelHandle, 0, len(r.entries))
	for id, e := range r.entries {
		if !e.cfg.Enabled || !e.loaded {
			continue
		}
		timeout := e.cfg.Timeout
		if timeout <= 0 {
			timeout = domain.DefaultModelTimeout
		}
		mult := e.cfg.ConfidenceMultiplier
		if mult <= 0 {
			mult = domain.DefaultConfidenceMultiplier
		}
		handles = append(handles, domain.ModelHandle{
			ID:                   id,
			Weight:               e.cfg.Weight,
			ConfidenceMultiplier: mult,
			Timeout:              timeout,
			Scorer:               e.scorer,
		})
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i].ID < handles[j].ID })
	return handles
}

// Models lists every registered model, including disabled and unloaded ones.
func (r *Registry) Models() []domain.ModelInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]domain.ModelInfo, 0, len(r.entries))
	for id, e := range r.entries {
		infos = append(infos, domain.ModelInfo{
			ID:       id,
			Type:     e.cfg.Type,
			Weight:   e.cfg.Weight,
			Enabled:  e.cfg.Enabled,
			Loaded:   e.loaded,
			LoadedAt: e.loadedAt,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// SetEnabled toggles a model at runtime.
func (r *Registry) SetEnabled(modelID string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[modelID]
	if !ok {
		return fmt.Errorf("model not found: %s", modelID)
	}
	e.cfg.Enabled = enabled
	r.logger.Info("model toggled", "modelId", modelID, "enabled", enabled)
	return nil
}
