package manifest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/pkgr-labs/pkgr/internal/branding"
	"github.com/pkgr-labs/pkgr/internal/fetch"
	"github.com/pkgr-labs/pkgr/internal/logging"
)

// Load reads the manifest file at path. Its origin is the directory holding
// the file, which is also where the listed archives are expected.
// A missing file yields ErrNotAvailable.
func Load(fsys afero.Fs, path string) (*Manifest, error) {
	return Read(fsys, path, filepath.Dir(path))
}

// Read reads the manifest file at path and records origin on it, for copies
// of a manifest kept away from its archives such as a mirror cache.
func Read(fsys afero.Fs, path, origin string) (*Manifest, error) {
	data, err := afero.ReadFile(fsys, path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotAvailable)
	}
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}
	return Deserialize(data, origin)
}

// Save writes m to path, creating parent directories. The file is written
// next to path and renamed into place.
func Save(fsys afero.Fs, path string, m *Manifest) error {
	dir := filepath.Dir(path)
	if err := fsys.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	tmp := path + ".tmp"
	if err := afero.WriteFile(fsys, tmp, Serialize(m), 0644); err != nil {
		return fmt.Errorf("writing manifest %s: %w", tmp, err)
	}
	if err := fsys.Rename(tmp, path); err != nil {
		_ = fsys.Remove(tmp)
		return fmt.Errorf("saving manifest %s: %w", path, err)
	}
	return nil
}

// Fetch downloads the manifest published at baseURL. A missing manifest
// yields ErrNotAvailable.
func Fetch(ctx context.Context, f fetch.Interface, baseURL string) (*Manifest, error) {
	logger := logging.Get("manifest")
	manifestURL := fetch.JoinURL(baseURL, branding.ManifestName())

	artifact, err := f.Fetch(ctx, manifestURL)
	if errors.Is(err, fetch.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", manifestURL, ErrNotAvailable)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching manifest %s: %w", manifestURL, err)
	}
	defer func() { _ = artifact.Body.Close() }()

	data, err := io.ReadAll(artifact.Body)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", manifestURL, err)
	}

	m, err := Deserialize(data, baseURL)
	if err != nil {
		return nil, err
	}
	logger.Debug().Str("url", manifestURL).Int("packages", m.Len()).Msg("Fetched manifest")
	return m, nil
}
