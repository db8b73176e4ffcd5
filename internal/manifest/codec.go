package manifest

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Header is the first line of every serialized manifest.
const Header = "# pkgr manifest v1"

const (
	fieldSep   = "|"
	reqSep     = ","
	none       = "*"
	fieldCount = 8
)

// Serialize renders m in the manifest file format.
func Serialize(m *Manifest) []byte {
	var buf bytes.Buffer
	_, _ = m.WriteTo(&buf)
	return buf.Bytes()
}

// WriteTo writes the header and one record per package to w.
func (m *Manifest) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var n int64

	write := func(s string) error {
		c, err := bw.WriteString(s)
		n += int64(c)
		return err
	}

	if err := write(Header + "\n"); err != nil {
		return n, err
	}
	for _, p := range m.Packages {
		if err := write(formatRecord(p) + "\n"); err != nil {
			return n, err
		}
	}
	return n, bw.Flush()
}

func formatRecord(p Package) string {
	reqs := none
	if len(p.Requirements) > 0 {
		reqs = strings.Join(p.Requirements, reqSep)
	}
	checksum := none
	if p.Checksum != "" {
		checksum = p.Checksum
	}
	return strings.Join([]string{
		p.Archive,
		strconv.FormatInt(p.Size, 10),
		p.Name,
		p.Version,
		p.Revision,
		strconv.Itoa(len(p.Requirements)),
		reqs,
		checksum,
	}, fieldSep)
}

// Deserialize parses a serialized manifest. The header is checked first,
// then every record is checked for exactly seven separators before any
// field is parsed. Any violation fails the whole read with ErrMalformed.
func Deserialize(data []byte, origin string) (*Manifest, error) {
	lines := strings.Split(string(data), "\n")
	if strings.TrimRight(lines[0], "\r") != Header {
		return nil, fmt.Errorf("%s: missing header %q: %w", origin, Header, ErrMalformed)
	}

	type record struct {
		line   int
		fields []string
	}
	var records []record
	for i, line := range lines[1:] {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if c := strings.Count(line, fieldSep); c != fieldCount-1 {
			return nil, fmt.Errorf("%s line %d: %d separators, want %d: %w", origin, i+2, c, fieldCount-1, ErrMalformed)
		}
		records = append(records, record{line: i + 2, fields: strings.Split(line, fieldSep)})
	}

	m := New(origin)
	for _, r := range records {
		p, err := parseRecord(r.fields)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %v: %w", origin, r.line, err, ErrMalformed)
		}
		if err := m.Append(p); err != nil {
			return nil, fmt.Errorf("%s line %d: %v: %w", origin, r.line, err, ErrMalformed)
		}
	}
	return m, nil
}

func parseRecord(f []string) (Package, error) {
	size, err := strconv.ParseInt(f[1], 10, 64)
	if err != nil {
		return Package{}, fmt.Errorf("invalid size %q", f[1])
	}
	count, err := strconv.Atoi(f[5])
	if err != nil || count < 0 {
		return Package{}, fmt.Errorf("invalid requirement count %q", f[5])
	}

	var reqs []string
	if f[6] != none {
		reqs = strings.Split(f[6], reqSep)
	}
	if len(reqs) != count {
		return Package{}, fmt.Errorf("requirement count %d does not match %d listed", count, len(reqs))
	}

	checksum := f[7]
	if checksum == none {
		checksum = ""
	}

	return Package{
		Archive:      f[0],
		Size:         size,
		Name:         f[2],
		Version:      f[3],
		Revision:     f[4],
		Requirements: reqs,
		Checksum:     checksum,
	}, nil
}
