// Package branding provides compile-time identity values for the CLI.
//
// The values live in branding.yaml next to this file and are baked into the
// binary with //go:embed. Everything that prints the program name, picks the
// home directory or reads environment overrides goes through here.
package branding

import (
	_ "embed"
	"strings"
	"sync"

	"go.yaml.in/yaml/v3"
)

//go:embed branding.yaml
var rawBranding []byte

var (
	once     sync.Once
	defaults brand
)

type brand struct {
	CLIName      string `yaml:"cli_name"`
	DisplayName  string `yaml:"display_name"`
	Description  string `yaml:"description"`
	HomeDir      string `yaml:"home_dir"`
	EnvPrefix    string `yaml:"env_prefix"`
	ManifestName string `yaml:"manifest_name"`
}

func load() {
	once.Do(func() {
		// Hard defaults in case the embedded file is empty.
		defaults = brand{
			CLIName:      "pkgr",
			DisplayName:  "pkgr",
			Description:  "Source and binary package manager",
			HomeDir:      ".pkgr",
			EnvPrefix:    "PKGR",
			ManifestName: "manifest.pkgr",
		}
		_ = yaml.Unmarshal(rawBranding, &defaults)
	})
}

// CLIName returns the root command name (e.g., "pkgr").
func CLIName() string { load(); return defaults.CLIName }

// DisplayName returns the human-readable product name.
func DisplayName() string { load(); return defaults.DisplayName }

// Description returns the short product description.
func Description() string { load(); return defaults.Description }

// HomeDir returns the dot-directory name under $HOME (e.g., ".pkgr").
func HomeDir() string { load(); return defaults.HomeDir }

// EnvPrefix returns the environment variable prefix (e.g., "PKGR").
func EnvPrefix() string { load(); return defaults.EnvPrefix }

// ManifestName returns the file name of a serialized manifest inside a
// package directory or at a mirror's base URL.
func ManifestName() string { load(); return defaults.ManifestName }

// UserAgent returns the HTTP user agent for the given build version.
func UserAgent(version string) string { return CLIName() + "/" + version }

// EnvVar returns a fully qualified env var name, e.g., EnvVar("cache") → "PKGR_CACHE".
func EnvVar(suffix string) string {
	load()
	return defaults.EnvPrefix + "_" + strings.ToUpper(suffix)
}
