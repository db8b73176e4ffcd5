package relocate

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// ErrReplacementTooLong is returned when a binary rewrite would need more
// room than the prefix it replaces.
var ErrReplacementTooLong = errors.New("replacement longer than prefix")

// ErrNulInPrefix is returned when a binary rewrite prefix contains a NUL
// byte and so cannot be part of a C string.
var ErrNulInPrefix = errors.New("prefix contains NUL byte")

// ReplaceBytes returns buf with every occurrence of old replaced by repl,
// scanning left to right, and the number of replacements. buf may contain
// NUL bytes; the result is a new slice.
func ReplaceBytes(buf, old, repl []byte) ([]byte, int) {
	if len(old) == 0 {
		return append([]byte(nil), buf...), 0
	}
	n := bytes.Count(buf, old)
	if n == 0 {
		return append([]byte(nil), buf...), 0
	}
	return bytes.Replace(buf, old, repl, -1), n
}

// RewriteBinary replaces old with repl inside the file at path without
// changing its size. Each occurrence lives in a NUL-terminated string; the
// string is rewritten, its tail shifted left and the freed bytes set to NUL,
// so offsets of everything outside the string are preserved.
//
// A replacement longer than old, or either prefix containing a NUL byte, is
// rejected before the file is opened.
// It returns the number of occurrences replaced; a file that no longer
// contains old is left untouched.
func RewriteBinary(fsys afero.Fs, path, old, repl string) (int, error) {
	if len(repl) > len(old) {
		return 0, fmt.Errorf("rewriting %s: %q -> %q: %w", path, old, repl, ErrReplacementTooLong)
	}
	if strings.IndexByte(old, 0) >= 0 || strings.IndexByte(repl, 0) >= 0 {
		return 0, fmt.Errorf("rewriting %s: %q -> %q: %w", path, old, repl, ErrNulInPrefix)
	}
	if old == "" || old == repl {
		return 0, nil
	}

	buf, err := afero.ReadFile(fsys, path)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}

	count := rewriteCStrings(buf, []byte(old), []byte(repl))
	if count == 0 {
		return 0, nil
	}

	f, err := fsys.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return 0, fmt.Errorf("opening %s for rewrite: %w", path, err)
	}
	if _, err := f.WriteAt(buf, 0); err != nil {
		f.Close()
		return 0, fmt.Errorf("rewriting %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("rewriting %s: %w", path, err)
	}
	return count, nil
}

// rewriteCStrings edits buf in place and returns the number of
// replacements.
func rewriteCStrings(buf, old, repl []byte) int {
	count := 0
	pos := 0
	for {
		i := bytes.Index(buf[pos:], old)
		if i < 0 {
			return count
		}
		start := pos + i
		end := bytes.IndexByte(buf[start:], 0)
		if end < 0 {
			end = len(buf)
		} else {
			end += start
		}

		replaced, n := ReplaceBytes(buf[start:end], old, repl)
		copy(buf[start:end], replaced)
		for j := start + len(replaced); j < end; j++ {
			buf[j] = 0
		}
		count += n
		pos = end
	}
}

// RewriteText replaces old with repl on every line of the file at path.
// The result is written to a temporary file in the same directory and
// renamed over the original, keeping its mode. Text that already reads repl
// is not rewritten again, so repeating a rewrite changes nothing.
func RewriteText(fsys afero.Fs, path, old, repl string) (int, error) {
	if old == "" || old == repl {
		return 0, nil
	}

	info, err := fsys.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}
	src, err := fsys.Open(path)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}
	defer src.Close()

	tmp, err := afero.TempFile(fsys, filepath.Dir(path), "."+filepath.Base(path)+".pkgr-*")
	if err != nil {
		return 0, fmt.Errorf("creating temporary file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		_ = fsys.Remove(tmpName)
	}

	count := 0
	r := bufio.NewReader(src)
	w := bufio.NewWriter(tmp)
	for {
		line, readErr := r.ReadString('\n')
		if line != "" {
			out, n := replaceOutside(line, old, repl)
			count += n
			if _, err := w.WriteString(out); err != nil {
				cleanup()
				return 0, fmt.Errorf("writing %s: %w", tmpName, err)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			cleanup()
			return 0, fmt.Errorf("reading %s: %w", path, readErr)
		}
	}
	if err := w.Flush(); err != nil {
		cleanup()
		return 0, fmt.Errorf("writing %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		_ = fsys.Remove(tmpName)
		return 0, fmt.Errorf("writing %s: %w", tmpName, err)
	}

	if count == 0 {
		_ = fsys.Remove(tmpName)
		return 0, nil
	}
	if err := fsys.Chmod(tmpName, info.Mode().Perm()); err != nil {
		_ = fsys.Remove(tmpName)
		return 0, fmt.Errorf("setting mode of %s: %w", tmpName, err)
	}
	if err := fsys.Rename(tmpName, path); err != nil {
		_ = fsys.Remove(tmpName)
		return 0, fmt.Errorf("replacing %s: %w", path, err)
	}
	return count, nil
}

// replaceOutside replaces occurrences of old in s that are not part of an
// existing occurrence of repl.
func replaceOutside(s, old, repl string) (string, int) {
	if !strings.Contains(s, old) {
		return s, 0
	}

	var covered [][2]int
	if strings.Contains(repl, old) {
		for i := 0; ; {
			j := strings.Index(s[i:], repl)
			if j < 0 {
				break
			}
			covered = append(covered, [2]int{i + j, i + j + len(repl)})
			i += j + len(repl)
		}
	}
	inside := func(start int) bool {
		for _, c := range covered {
			if start >= c[0] && start+len(old) <= c[1] {
				return true
			}
		}
		return false
	}

	var b strings.Builder
	count := 0
	last := 0
	for i := 0; i <= len(s)-len(old); {
		j := strings.Index(s[i:], old)
		if j < 0 {
			break
		}
		start := i + j
		if inside(start) {
			i = start + 1
			continue
		}
		b.WriteString(s[last:start])
		b.WriteString(repl)
		last = start + len(old)
		i = last
		count++
	}
	b.WriteString(s[last:])
	return b.String(), count
}
