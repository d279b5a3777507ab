// Package universe decides which symbols are eligible for scoring: the
// symbol table in the store, optionally restricted by a hot-reloaded
// watchlist file.
package universe

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"signalist/internal/logger"
)

// watchlistFile maps the YAML document.
type watchlistFile struct {
	Symbols []string `yaml:"symbols"`
}

// Snapshot is the restriction set at one point in time. An empty
// Symbols map means no restriction.
type Snapshot struct {
	Version  int64
	LoadedAt time.Time
	Symbols  map[string]struct{}
}

// Allows reports whether a symbol passes the restriction. An empty
// snapshot allows everything.
func (s Snapshot) Allows(symbol string) bool {
	if len(s.Symbols) == 0 {
		return true
	}
	_, ok := s.Symbols[strings.ToUpper(strings.TrimSpace(symbol))]
	return ok
}

// Watchlist watches a YAML symbol list and keeps the current snapshot
// in memory. Edits to the file take effect without restart.
type Watchlist struct {
	path string
	v    *viper.Viper

	mu       sync.RWMutex
	snapshot Snapshot
}

// NewWatchlist reads the file and starts watching it for changes. An
// empty path disables the restriction entirely and returns nil.
func NewWatchlist(path string) (*Watchlist, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read watchlist failed: %w", err)
	}
	w := &Watchlist{path: path, v: v}
	if err := w.reload(); err != nil {
		return nil, err
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := w.reload(); err != nil {
			logger.Errorf("watchlist reload failed: %v", err)
		}
	})
	v.WatchConfig()
	return w, nil
}

// Snapshot returns the current restriction set.
func (w *Watchlist) Snapshot() Snapshot {
	if w == nil {
		return Snapshot{}
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.snapshot
}

func (w *Watchlist) reload() error {
	cfg, err := readWatchlistFile(w.path)
	if err != nil {
		return err
	}
	symbols := make(map[string]struct{}, len(cfg.Symbols))
	for _, raw := range cfg.Symbols {
		sym := strings.ToUpper(strings.TrimSpace(raw))
		if sym == "" {
			continue
		}
		symbols[sym] = struct{}{}
	}
	w.mu.Lock()
	w.snapshot = Snapshot{
		Version:  w.snapshot.Version + 1,
		LoadedAt: time.Now(),
		Symbols:  symbols,
	}
	w.mu.Unlock()
	logger.Infof("watchlist loaded %d symbols from %s", len(symbols), filepath.Base(w.path))
	return nil
}

func readWatchlistFile(path string) (watchlistFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return watchlistFile{}, fmt.Errorf("read watchlist failed: %w", err)
	}
	var cfg watchlistFile
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return watchlistFile{}, fmt.Errorf("parse watchlist failed: %w", err)
	}
	return cfg, nil
}
