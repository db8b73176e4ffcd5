package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/pkgr-labs/pkgr/internal/fetch"
	"github.com/pkgr-labs/pkgr/internal/logging"
	"github.com/pkgr-labs/pkgr/internal/manifest"
)

const (
	// DefaultMaxAge is how long a cached mirror manifest is used without
	// refetching.
	DefaultMaxAge = time.Hour

	cacheExt      = ".pkgr"
	freshnessExt  = ".updated"
	slugMaxLength = 96
)

// Loader assembles a Catalog from the local manifest and a list of mirrors.
type Loader struct {
	// FS holds the local manifest and the mirror cache. Defaults to the OS.
	FS afero.Fs
	// Fetcher downloads mirror manifests.
	Fetcher fetch.Interface
	// LocalManifest is read first; a missing file is tolerated.
	LocalManifest string
	// Mirrors are base URLs in priority order, lowest first.
	Mirrors []string
	// CacheDir keeps a copy of every mirror manifest.
	CacheDir string
	// MaxAge bounds how old a cached copy may be before it is refetched.
	MaxAge time.Duration
	// Offline uses cached copies only, whatever their age.
	Offline bool

	now func() time.Time
}

// Load reads every source and returns the catalog. Unavailable sources are
// skipped with a warning; a malformed manifest fails the load.
func (l *Loader) Load(ctx context.Context) (*Catalog, error) {
	logger := logging.Get("catalog")
	done := logging.Operation(logger, "load catalog")
	defer done()

	if l.FS == nil {
		l.FS = afero.NewOsFs()
	}
	if l.MaxAge == 0 {
		l.MaxAge = DefaultMaxAge
	}

	c := New()
	if l.LocalManifest != "" {
		m, err := manifest.Load(l.FS, l.LocalManifest)
		switch {
		case errors.Is(err, manifest.ErrNotAvailable):
			logger.Debug().Str("path", l.LocalManifest).Msg("No local manifest")
		case err != nil:
			return nil, err
		default:
			c.Add(m)
		}
	}

	for _, mirror := range l.Mirrors {
		m, err := l.loadMirror(ctx, mirror)
		if err != nil {
			return nil, err
		}
		c.Add(m)
	}

	logger.Debug().Int("manifests", len(c.Manifests)).Int("packages", c.Len()).Msg("Catalog loaded")
	return c, nil
}

// loadMirror returns the manifest of one mirror, or nil when it cannot be
// reached and nothing is cached.
func (l *Loader) loadMirror(ctx context.Context, mirror string) (*manifest.Manifest, error) {
	logger := logging.Get("catalog").With().Str("mirror", mirror).Logger()
	cachePath := l.cachePath(mirror)

	if l.Offline || !l.isStale(cachePath) {
		m, err := manifest.Read(l.FS, cachePath, mirror)
		if err == nil {
			logger.Debug().Msg("Using cached mirror manifest")
			return m, nil
		}
		if l.Offline {
			logger.Warn().Err(err).Msg("Skipping mirror, no usable cache while offline")
			return nil, nil
		}
		logger.Debug().Err(err).Msg("Cached mirror manifest unusable, refetching")
	}

	if l.Fetcher == nil {
		return nil, fmt.Errorf("loading mirror %s: no fetcher configured", mirror)
	}

	m, err := manifest.Fetch(ctx, l.Fetcher, mirror)
	switch {
	case err == nil:
		if err := l.store(cachePath, m); err != nil {
			logger.Warn().Err(err).Msg("Could not cache mirror manifest")
		}
		return m, nil
	case errors.Is(err, manifest.ErrMalformed):
		return nil, err
	case errors.Is(err, manifest.ErrNotAvailable):
		logger.Warn().Msg("Mirror publishes no manifest, skipping")
		return nil, nil
	}

	stale, cacheErr := manifest.Read(l.FS, cachePath, mirror)
	if cacheErr == nil {
		logger.Warn().Err(err).Msg("Mirror unreachable, using stale cache")
		return stale, nil
	}
	logger.Warn().Err(err).Msg("Mirror unreachable, skipping")
	return nil, nil
}

// store writes m to the cache followed by its freshness marker.
func (l *Loader) store(cachePath string, m *manifest.Manifest) error {
	if err := manifest.Save(l.FS, cachePath, m); err != nil {
		return err
	}
	ts := strconv.FormatInt(l.clock().Unix(), 10)
	return afero.WriteFile(l.FS, cachePath+freshnessExt, []byte(ts), 0644)
}

// updatedAt reads the freshness marker next to a cached manifest.
// Returns zero time if the marker doesn't exist or can't be parsed.
func (l *Loader) updatedAt(cachePath string) time.Time {
	data, err := afero.ReadFile(l.FS, cachePath+freshnessExt)
	if err != nil {
		return time.Time{}
	}
	ts, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(ts, 0)
}

func (l *Loader) isStale(cachePath string) bool {
	updated := l.updatedAt(cachePath)
	if updated.IsZero() {
		return true
	}
	return l.clock().Sub(updated) > l.MaxAge
}

func (l *Loader) clock() time.Time {
	if l.now != nil {
		return l.now()
	}
	return time.Now()
}

func (l *Loader) cachePath(mirror string) string {
	return filepath.Join(l.CacheDir, MirrorSlug(mirror)+cacheExt)
}

// MirrorSlug turns a mirror URL into a file name, e.g.
// "https://pkgs.example.com/linux/x86_64" becomes
// "pkgs.example.com_linux_x86_64".
func MirrorSlug(mirror string) string {
	s := mirror
	if u, err := url.Parse(mirror); err == nil && u.Scheme != "" {
		s = u.Host + u.Path
	}
	s = strings.Trim(s, "/")

	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	slug := b.String()
	if slug == "" {
		slug = "mirror"
	}
	if len(slug) > slugMaxLength {
		slug = slug[:slugMaxLength]
	}
	return slug
}
