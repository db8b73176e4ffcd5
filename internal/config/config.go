package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pkgr-labs/pkgr/internal/branding"
	"github.com/pkgr-labs/pkgr/internal/paths"
)

const (
	fileName = "config"
	fileType = "yaml"
)

// Configuration keys.
const (
	KeyRoot            = "root"
	KeyPackages        = "packages"
	KeyMirrors         = "mirrors"
	KeyArchiveExt      = "archive_ext"
	KeyWatchedPrefixes = "watched_prefixes"
	KeyCacheMaxAge     = "cache_max_age"
	KeyRPathAuto       = "rpath.auto"
	KeyRPathRelative   = "rpath.relative"
	KeyFetchRetries    = "fetch.retries"
	KeyFetchUserAgent  = "fetch.user_agent"
	KeyToolPatchelf    = "tools.patchelf"
	KeyToolInstallName = "tools.install_name_tool"
	KeyToolFile        = "tools.file"
)

// listKeys hold string lists; Set splits their value on commas.
var listKeys = map[string]bool{
	KeyMirrors:         true,
	KeyWatchedPrefixes: true,
}

// BuildVersion is embedded in the default HTTP user agent.
// The CLI sets it from the version injected at link time.
var BuildVersion = "dev"

// configFile overrides FilePath when set through SetFile.
var configFile string

// Settings is a typed snapshot of the configuration.
type Settings struct {
	Root            string        `mapstructure:"root"`
	Packages        string        `mapstructure:"packages"`
	Mirrors         []string      `mapstructure:"mirrors"`
	ArchiveExt      string        `mapstructure:"archive_ext"`
	WatchedPrefixes []string      `mapstructure:"watched_prefixes"`
	CacheMaxAge     time.Duration `mapstructure:"cache_max_age"`
	RPath           RPathSettings `mapstructure:"rpath"`
	Fetch           FetchSettings `mapstructure:"fetch"`
	Tools           ToolSettings  `mapstructure:"tools"`
}

// RPathSettings controls runtime search path handling during relocation.
type RPathSettings struct {
	Auto     bool `mapstructure:"auto"`
	Relative bool `mapstructure:"relative"`
}

// FetchSettings configures the HTTP client used for mirrors.
type FetchSettings struct {
	Retries   int    `mapstructure:"retries"`
	UserAgent string `mapstructure:"user_agent"`
}

// ToolSettings names the external programs pkgr shells out to.
type ToolSettings struct {
	Patchelf        string `mapstructure:"patchelf"`
	InstallNameTool string `mapstructure:"install_name_tool"`
	File            string `mapstructure:"file"`
}

// Dir returns the path to the config directory (~/.pkgr/).
func Dir() string {
	return paths.Home()
}

// FilePath returns the full path to the config file (~/.pkgr/config.yaml),
// or the file passed to SetFile.
func FilePath() string {
	if configFile != "" {
		return configFile
	}
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// SetFile points Load and Set at an explicit config file.
func SetFile(path string) {
	configFile = path
}

// EnsureDir creates the directory holding the config file.
func EnsureDir() error {
	dir := filepath.Dir(FilePath())
	if err := os.MkdirAll(dir, paths.DirPerm); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return nil
}

func setDefaults() {
	viper.SetDefault(KeyRoot, paths.InstallRoot())
	viper.SetDefault(KeyPackages, paths.PackagesDir())
	viper.SetDefault(KeyMirrors, []string{})
	viper.SetDefault(KeyArchiveExt, ".tar.gz")
	viper.SetDefault(KeyWatchedPrefixes, []string{})
	viper.SetDefault(KeyCacheMaxAge, 24*time.Hour)
	viper.SetDefault(KeyRPathAuto, true)
	viper.SetDefault(KeyRPathRelative, true)
	viper.SetDefault(KeyFetchRetries, 3)
	viper.SetDefault(KeyFetchUserAgent, branding.UserAgent(BuildVersion))
	viper.SetDefault(KeyToolPatchelf, "patchelf")
	viper.SetDefault(KeyToolInstallName, "install_name_tool")
	viper.SetDefault(KeyToolFile, "file")
}

// Load initializes Viper to read from the config file and environment.
// A missing config file is not an error; a malformed one is.
func Load() error {
	setDefaults()
	viper.SetConfigFile(FilePath())
	viper.SetConfigType(fileType)
	viper.SetEnvPrefix(branding.EnvPrefix())
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(FilePath()); os.IsNotExist(statErr) {
			return nil
		}
		return fmt.Errorf("reading config file %s: %w", FilePath(), err)
	}
	return nil
}

// Get returns a config value by key rendered as a string. List values are
// joined with commas. Returns an empty string if not set.
func Get(key string) string {
	if listKeys[key] {
		return strings.Join(viper.GetStringSlice(key), ",")
	}
	return viper.GetString(key)
}

// Set writes a config key-value pair and saves the config file.
// List keys take a comma-separated value.
func Set(key, value string) error {
	if err := EnsureDir(); err != nil {
		return err
	}

	if listKeys[key] {
		viper.Set(key, splitList(value))
	} else {
		viper.Set(key, value)
	}

	path := FilePath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating config file %s: %w", path, err)
		}
		f.Close()
	}

	if err := viper.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Current returns the effective configuration.
func Current() (Settings, error) {
	var s Settings
	if err := viper.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decoding configuration: %w", err)
	}
	return s, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
