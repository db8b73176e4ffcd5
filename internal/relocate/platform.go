package relocate

import (
	"context"
	"debug/elf"
	"debug/macho"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/spf13/afero"
)

// ErrUnsupportedPlatform is returned by platforms without runtime search
// path support.
var ErrUnsupportedPlatform = errors.New("runtime search paths are not supported on this platform")

// Supported platform identifiers.
const (
	PlatformELF   = "elf"
	PlatformMachO = "macho"
)

// Platform inspects and patches the shared-library search path of binaries
// in one object format.
type Platform interface {
	// Name is one of the Platform* identifiers.
	Name() string
	// OriginToken expands to the directory of the binary at load time.
	OriginToken() string
	// IsBinary reports whether path is an executable or shared object in
	// this format.
	IsBinary(path string) bool
	// NeededLibraries lists the shared libraries path links against.
	NeededLibraries(path string) ([]string, error)
	// SetSearchPath stores value, a ':' separated directory list, as the
	// runtime search path of path.
	SetSearchPath(ctx context.Context, path, value string) error
}

// Tools names the external programs the platforms run.
type Tools struct {
	Patchelf        string
	InstallNameTool string
}

func (t Tools) withDefaults() Tools {
	if t.Patchelf == "" {
		t.Patchelf = "patchelf"
	}
	if t.InstallNameTool == "" {
		t.InstallNameTool = "install_name_tool"
	}
	return t
}

// DispatchPlatform returns the Platform for a platform identifier. Unknown
// identifiers yield a Platform whose operations fail.
func DispatchPlatform(name string, fsys afero.Fs, runner Runner, tools Tools) Platform {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	tools = tools.withDefaults()

	switch name {
	case PlatformELF:
		return &ELF{FS: fsys, Runner: runner, Tool: tools.Patchelf}
	case PlatformMachO:
		return &MachO{FS: fsys, Runner: runner, Tool: tools.InstallNameTool}
	default:
		return &unknownPlatform{name: name}
	}
}

// DetectPlatform returns the Platform for the running operating system.
func DetectPlatform(fsys afero.Fs, runner Runner, tools Tools) Platform {
	return DispatchPlatform(PlatformFor(runtime.GOOS), fsys, runner, tools)
}

// PlatformFor maps a GOOS value to a platform identifier.
func PlatformFor(goos string) string {
	switch goos {
	case "darwin", "ios":
		return PlatformMachO
	case "linux", "freebsd", "netbsd", "openbsd", "dragonfly", "solaris", "illumos", "android":
		return PlatformELF
	default:
		return goos
	}
}

// ELF handles Linux and BSD binaries. Needed libraries come from the
// DT_NEEDED entries; the search path is set with patchelf --set-rpath.
type ELF struct {
	FS     afero.Fs
	Runner Runner
	Tool   string
}

func (p *ELF) Name() string        { return PlatformELF }
func (p *ELF) OriginToken() string { return "$ORIGIN" }

func (p *ELF) IsBinary(path string) bool {
	f, closer, err := p.open(path)
	if err != nil {
		return false
	}
	defer closer.Close()
	return f.Type == elf.ET_EXEC || f.Type == elf.ET_DYN
}

func (p *ELF) NeededLibraries(path string) ([]string, error) {
	f, closer, err := p.open(path)
	if err != nil {
		return nil, fmt.Errorf("reading ELF file %s: %w", path, err)
	}
	defer closer.Close()

	libs, err := f.ImportedLibraries()
	if err != nil {
		return nil, fmt.Errorf("reading dynamic section of %s: %w", path, err)
	}
	return libs, nil
}

func (p *ELF) SetSearchPath(ctx context.Context, path, value string) error {
	_, err := p.Runner.Run(ctx, "", p.Tool, "--set-rpath", value, path)
	return err
}

func (p *ELF) open(path string) (*elf.File, io.Closer, error) {
	r, err := p.FS.Open(path)
	if err != nil {
		return nil, nil, err
	}
	f, err := elf.NewFile(r)
	if err != nil {
		r.Close()
		return nil, nil, err
	}
	return f, r, nil
}

// MachO handles macOS binaries, including universal files (the first
// architecture is inspected). Search path entries are added with
// install_name_tool -add_rpath; entries already present are left alone and
// entries no longer wanted are removed with -delete_rpath.
type MachO struct {
	FS     afero.Fs
	Runner Runner
	Tool   string
}

func (p *MachO) Name() string        { return PlatformMachO }
func (p *MachO) OriginToken() string { return "@loader_path" }

func (p *MachO) IsBinary(path string) bool {
	f, closer, err := p.open(path)
	if err != nil {
		return false
	}
	defer closer.Close()
	switch f.Type {
	case macho.TypeExec, macho.TypeDylib, macho.TypeBundle:
		return true
	}
	return false
}

func (p *MachO) NeededLibraries(path string) ([]string, error) {
	f, closer, err := p.open(path)
	if err != nil {
		return nil, fmt.Errorf("reading Mach-O file %s: %w", path, err)
	}
	defer closer.Close()

	libs, err := f.ImportedLibraries()
	if err != nil {
		return nil, fmt.Errorf("reading load commands of %s: %w", path, err)
	}
	return libs, nil
}

func (p *MachO) SetSearchPath(ctx context.Context, path, value string) error {
	existing := p.searchPaths(path)
	want := make(map[string]bool)
	for _, dir := range strings.Split(value, ":") {
		if dir != "" {
			want[dir] = true
		}
	}

	var args []string
	have := make(map[string]bool)
	for _, dir := range existing {
		have[dir] = true
		if !want[dir] {
			args = append(args, "-delete_rpath", dir)
		}
	}
	for _, dir := range strings.Split(value, ":") {
		if dir != "" && !have[dir] {
			have[dir] = true
			args = append(args, "-add_rpath", dir)
		}
	}
	if len(args) == 0 {
		return nil
	}
	_, err := p.Runner.Run(ctx, "", p.Tool, append(args, path)...)
	return err
}

// searchPaths returns the LC_RPATH entries already recorded in path.
func (p *MachO) searchPaths(path string) []string {
	f, closer, err := p.open(path)
	if err != nil {
		return nil
	}
	defer closer.Close()

	var dirs []string
	for _, l := range f.Loads {
		if rpath, ok := l.(*macho.Rpath); ok {
			dirs = append(dirs, rpath.Path)
		}
	}
	return dirs
}

func (p *MachO) open(path string) (*macho.File, io.Closer, error) {
	r, err := p.FS.Open(path)
	if err != nil {
		return nil, nil, err
	}
	if f, err := macho.NewFile(r); err == nil {
		return f, r, nil
	}
	fat, err := macho.NewFatFile(r)
	if err != nil {
		r.Close()
		return nil, nil, err
	}
	if len(fat.Arches) == 0 {
		r.Close()
		return nil, nil, fmt.Errorf("%s: universal file without architectures", path)
	}
	return fat.Arches[0].File, r, nil
}

// unknownPlatform is returned when the platform identifier is not
// recognized.
type unknownPlatform struct {
	name string
}

func (u *unknownPlatform) Name() string              { return u.name }
func (u *unknownPlatform) OriginToken() string       { return "" }
func (u *unknownPlatform) IsBinary(path string) bool { return false }

func (u *unknownPlatform) NeededLibraries(path string) ([]string, error) {
	return nil, fmt.Errorf("%s: %w (%q)", path, ErrUnsupportedPlatform, u.name)
}

func (u *unknownPlatform) SetSearchPath(_ context.Context, path, _ string) error {
	return fmt.Errorf("%s: %w (%q)", path, ErrUnsupportedPlatform, u.name)
}
