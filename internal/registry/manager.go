package registry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"signalist/internal/logger"
	"signalist/internal/mlerr"
	"signalist/internal/model"
	"signalist/internal/pkg/cache"
)

const secondaryTTL = 24 * time.Hour

// Manager keeps the active classifier of each kind in memory for the
// inference path. A cache.Service, when wired, acts as a secondary tier
// between memory and disk so a restarted process can skip the gob read.
type Manager struct {
	store     *Store
	secondary cache.Service

	mu     sync.RWMutex
	loaded map[model.Kind]*loadedModel
}

type loadedModel struct {
	classifier model.Classifier
	meta       Metadata
}

// LoadStatus reports the outcome of loading one model kind.
type LoadStatus struct {
	Kind    model.Kind `json:"kind"`
	Loaded  bool       `json:"loaded"`
	Version string     `json:"version,omitempty"`
	Error   string     `json:"error,omitempty"`
	Metrics *Metrics   `json:"metrics,omitempty"`
}

func NewManager(store *Store, secondary cache.Service) *Manager {
	return &Manager{
		store:     store,
		secondary: secondary,
		loaded:    make(map[model.Kind]*loadedModel),
	}
}

// Init loads the latest version of each model kind. A missing or broken
// model is recorded, not fatal: inference degrades to single-model or
// reports unavailable.
func (m *Manager) Init(ctx context.Context) []LoadStatus {
	statuses := make([]LoadStatus, 0, 2)
	for _, kind := range []model.Kind{model.KindNeuralNetwork, model.KindRandomForest} {
		status := LoadStatus{Kind: kind}
		if err := m.Reload(ctx, kind, ""); err != nil {
			status.Error = err.Error()
			logger.Warnf("startup load of %s failed: %v", kind, err)
		} else {
			_, meta, _ := m.Get(kind)
			status.Loaded = true
			status.Version = meta.Version
			metrics := meta.Metrics
			status.Metrics = &metrics
		}
		statuses = append(statuses, status)
	}
	return statuses
}

// Reload loads the given version (latest when empty) into memory,
// consulting the secondary cache before disk and repopulating it after
// a disk read.
func (m *Manager) Reload(ctx context.Context, kind model.Kind, version string) error {
	if version == "" {
		latest, err := m.store.LatestVersion(kind)
		if err != nil {
			return err
		}
		version = latest
	}

	c, meta, err := m.fromSecondary(ctx, kind, version)
	if err != nil {
		c, meta, err = m.store.Load(kind, version)
		if err != nil {
			return err
		}
		m.toSecondary(ctx, kind, version, c, meta)
	}

	m.mu.Lock()
	m.loaded[kind] = &loadedModel{classifier: c, meta: meta}
	m.mu.Unlock()
	return nil
}

// Get returns the in-memory classifier for a kind.
func (m *Manager) Get(kind model.Kind) (model.Classifier, Metadata, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lm, ok := m.loaded[kind]
	if !ok {
		return nil, Metadata{}, false
	}
	return lm.classifier, lm.meta, true
}

// Loaded reports whether at least one model is available for inference.
func (m *Manager) Loaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.loaded) > 0
}

// Status describes what is currently loaded, for the status endpoint.
func (m *Manager) Status() []LoadStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	statuses := make([]LoadStatus, 0, 2)
	for _, kind := range []model.Kind{model.KindNeuralNetwork, model.KindRandomForest} {
		status := LoadStatus{Kind: kind}
		if lm, ok := m.loaded[kind]; ok {
			status.Loaded = true
			status.Version = lm.meta.Version
			metrics := lm.meta.Metrics
			status.Metrics = &metrics
		}
		statuses = append(statuses, status)
	}
	return statuses
}

// Store exposes the backing artifact store for the trainer.
func (m *Manager) Store() *Store {
	return m.store
}

func secondaryKey(kind model.Kind, version, part string) string {
	return fmt.Sprintf("model:%s:%s:%s", kind, version, part)
}

func (m *Manager) fromSecondary(ctx context.Context, kind model.Kind, version string) (model.Classifier, Metadata, error) {
	if m.secondary == nil {
		return nil, Metadata{}, mlerr.ErrArtifactNotFound
	}
	rawModel, err := m.secondary.Get(ctx, secondaryKey(kind, version, "artifact"))
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			logger.Warnf("secondary cache read failed for %s/%s: %v", kind, version, err)
		}
		return nil, Metadata{}, mlerr.ErrArtifactNotFound
	}
	rawMeta, err := m.secondary.Get(ctx, secondaryKey(kind, version, "metadata"))
	if err != nil {
		return nil, Metadata{}, mlerr.ErrArtifactNotFound
	}

	c, err := model.Decode(bytes.NewReader(rawModel))
	if err != nil {
		logger.Warnf("secondary cache holds corrupt %s/%s artifact, evicting: %v", kind, version, err)
		m.evictSecondary(ctx, kind, version)
		return nil, Metadata{}, mlerr.ErrArtifactNotFound
	}
	meta, err := parseMetadata(rawMeta)
	if err != nil || meta.Version != version {
		m.evictSecondary(ctx, kind, version)
		return nil, Metadata{}, mlerr.ErrArtifactNotFound
	}
	logger.Debugf("loaded %s version %s from secondary cache", kind, version)
	return c, meta, nil
}

func (m *Manager) toSecondary(ctx context.Context, kind model.Kind, version string, c model.Classifier, meta Metadata) {
	if m.secondary == nil {
		return
	}
	var buf bytes.Buffer
	if err := model.Encode(&buf, c); err != nil {
		logger.Warnf("secondary cache encode failed for %s/%s: %v", kind, version, err)
		return
	}
	rawMeta, err := encodeMetadata(meta)
	if err != nil {
		return
	}
	if err := m.secondary.Set(ctx, secondaryKey(kind, version, "artifact"), buf.Bytes(), secondaryTTL); err != nil {
		logger.Warnf("secondary cache write failed for %s/%s: %v", kind, version, err)
		return
	}
	if err := m.secondary.Set(ctx, secondaryKey(kind, version, "metadata"), rawMeta, secondaryTTL); err != nil {
		logger.Warnf("secondary cache write failed for %s/%s: %v", kind, version, err)
	}
}

func (m *Manager) evictSecondary(ctx context.Context, kind model.Kind, version string) {
	_ = m.secondary.Delete(ctx,
		secondaryKey(kind, version, "artifact"),
		secondaryKey(kind, version, "metadata"))
}
