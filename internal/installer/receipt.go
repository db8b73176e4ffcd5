package installer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pkgr-labs/pkgr/internal/manifest"
	"github.com/pkgr-labs/pkgr/internal/paths"
)

const receiptExt = ".yaml"

// ErrNotInstalled is returned when a package has no receipt.
var ErrNotInstalled = errors.New("package is not installed")

// Receipt records an installed package.
type Receipt struct {
	Name         string    `yaml:"name"`
	Version      string    `yaml:"version"`
	Revision     string    `yaml:"revision"`
	Archive      string    `yaml:"archive"`
	Origin       string    `yaml:"origin,omitempty"`
	Checksum     string    `yaml:"checksum,omitempty"`
	PURL         string    `yaml:"purl,omitempty"`
	Requirements []string  `yaml:"requirements,omitempty"`
	InstalledAt  time.Time `yaml:"installed_at"`
	// Files are slash-separated paths relative to the root.
	Files []string `yaml:"files"`
}

// String renders the receipt as name-version-revision.
func (r *Receipt) String() string {
	return manifest.Key{Name: r.Name, Version: r.Version, Revision: r.Revision}.String()
}

func newReceipt(p *manifest.Package, files []string, now time.Time) *Receipt {
	return &Receipt{
		Name:         p.Name,
		Version:      p.Version,
		Revision:     p.Revision,
		Archive:      p.Archive,
		Origin:       p.Origin,
		Checksum:     p.Checksum,
		PURL:         p.PURL(),
		Requirements: append([]string(nil), p.Requirements...),
		InstalledAt:  now.UTC(),
		Files:        files,
	}
}

func receiptPath(root, name string) string {
	return filepath.Join(paths.ReceiptsDir(root), name+receiptExt)
}

// LoadReceipt reads the receipt of the package called name.
func LoadReceipt(root, name string) (*Receipt, error) {
	data, err := os.ReadFile(receiptPath(root, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", name, ErrNotInstalled)
	}
	if err != nil {
		return nil, fmt.Errorf("reading receipt: %w", err)
	}

	var r Receipt
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing receipt of %s: %w", name, err)
	}
	return &r, nil
}

// SaveReceipt writes r below root, replacing any receipt for the same name.
func SaveReceipt(root string, r *Receipt) error {
	dir := paths.ReceiptsDir(root)
	if err := paths.EnsureDir(dir); err != nil {
		return fmt.Errorf("creating receipts directory: %w", err)
	}

	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding receipt of %s: %w", r.Name, err)
	}
	target := receiptPath(root, r.Name)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, paths.FilePerm); err != nil {
		return fmt.Errorf("writing receipt: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("writing receipt: %w", err)
	}
	return nil
}

// ListReceipts returns every receipt below root sorted by name.
func ListReceipts(root string) ([]*Receipt, error) {
	entries, err := os.ReadDir(paths.ReceiptsDir(root))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}

	var receipts []*Receipt
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), receiptExt)
		if e.IsDir() || !ok {
			continue
		}
		r, err := LoadReceipt(root, name)
		if err != nil {
			return nil, err
		}
		receipts = append(receipts, r)
	}
	sort.Slice(receipts, func(i, j int) bool { return receipts[i].Name < receipts[j].Name })
	return receipts, nil
}
