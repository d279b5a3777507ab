// Package registry persists trained model artifacts and serves them to
// the inference path. Artifacts live on disk as a gob binary plus a
// schema-validated metadata document; the manager layers an in-process
// cache and an optional secondary cache tier on top.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"signalist/internal/logger"
	"signalist/internal/mlerr"
	"signalist/internal/model"
)

// NewVersion returns a timestamp-based version string. Versions sort
// lexicographically, so the latest version is simply the largest one.
func NewVersion() string {
	return time.Now().UTC().Format("20060102_150405")
}

// Store reads and writes artifacts under one base directory.
type Store struct {
	baseDir string
}

func NewStore(baseDir string) (*Store, error) {
	if strings.TrimSpace(baseDir) == "" {
		return nil, fmt.Errorf("model store requires a base directory")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create model dir: %w", err)
	}
	return &Store{baseDir: baseDir}, nil
}

func (s *Store) artifactPath(kind model.Kind, version string) string {
	return filepath.Join(s.baseDir, fmt.Sprintf("%s_%s.gob", kind, version))
}

func (s *Store) metadataPath(kind model.Kind, version string) string {
	return filepath.Join(s.baseDir, fmt.Sprintf("%s_%s_metadata.json", kind, version))
}

// Save writes the artifact and its metadata. The metadata file lands
// last so a version without metadata can be detected as incomplete.
func (s *Store) Save(c model.Classifier, meta Metadata) error {
	if meta.Version == "" {
		return fmt.Errorf("%w: metadata has no version", mlerr.ErrInvalidInput)
	}
	meta.ModelType = c.Kind()

	f, err := os.Create(s.artifactPath(c.Kind(), meta.Version))
	if err != nil {
		return fmt.Errorf("create artifact: %w", err)
	}
	if err := model.Encode(f, c); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close artifact: %w", err)
	}

	raw, err := encodeMetadata(meta)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := os.WriteFile(s.metadataPath(c.Kind(), meta.Version), raw, 0o644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	logger.Infof("saved %s artifact version %s to %s", c.Kind(), meta.Version, s.baseDir)
	return nil
}

// Load reads one artifact. An empty version means the latest one.
func (s *Store) Load(kind model.Kind, version string) (model.Classifier, Metadata, error) {
	if !kind.Valid() {
		return nil, Metadata{}, fmt.Errorf("%w: unknown model kind %q", mlerr.ErrInvalidInput, kind)
	}
	if version == "" {
		latest, err := s.LatestVersion(kind)
		if err != nil {
			return nil, Metadata{}, err
		}
		version = latest
	}

	rawMeta, err := os.ReadFile(s.metadataPath(kind, version))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, Metadata{}, fmt.Errorf("%w: %s version %s has no metadata", mlerr.ErrArtifactNotFound, kind, version)
		}
		return nil, Metadata{}, fmt.Errorf("read metadata: %w", err)
	}
	meta, err := parseMetadata(rawMeta)
	if err != nil {
		return nil, Metadata{}, err
	}
	if meta.ModelType != kind || meta.Version != version {
		return nil, Metadata{}, fmt.Errorf("%w: metadata identifies %s/%s, expected %s/%s",
			mlerr.ErrArtifactCorrupt, meta.ModelType, meta.Version, kind, version)
	}

	f, err := os.Open(s.artifactPath(kind, version))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, Metadata{}, fmt.Errorf("%w: %s version %s", mlerr.ErrArtifactNotFound, kind, version)
		}
		return nil, Metadata{}, fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	c, err := model.Decode(f)
	if err != nil {
		return nil, Metadata{}, err
	}
	if c.Kind() != kind {
		return nil, Metadata{}, fmt.Errorf("%w: artifact is %s, expected %s", mlerr.ErrArtifactCorrupt, c.Kind(), kind)
	}
	logger.Infof("loaded %s version %s from %s", kind, version, s.baseDir)
	return c, meta, nil
}

// Versions lists stored versions for a kind, newest first.
func (s *Store) Versions(kind model.Kind) ([]string, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("read model dir: %w", err)
	}
	prefix := string(kind) + "_"
	var versions []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".gob") {
			continue
		}
		versions = append(versions, strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".gob"))
	}
	sort.Sort(sort.Reverse(sort.StringSlice(versions)))
	return versions, nil
}

// LatestVersion returns the newest stored version for a kind.
func (s *Store) LatestVersion(kind model.Kind) (string, error) {
	versions, err := s.Versions(kind)
	if err != nil {
		return "", err
	}
	if len(versions) == 0 {
		return "", fmt.Errorf("%w: no %s versions in %s", mlerr.ErrArtifactNotFound, kind, s.baseDir)
	}
	return versions[0], nil
}
