// Package config reads pigeon.toml project files.
//
//	copyright_header = ["Copyright 2026 The Authors."]
//
//	[input]
//	dir = "pigeons"
//
//	[channel]
//	prefix = "dev.flutter.pigeon"
//
//	[store]
//	db = ".pigeon/ledger.db"
//
//	[dart]
//	out = "lib/src/messages.g.dart"
//
//	[kotlin]
//	out = "android/src/main/kotlin/com/example/Messages.g.kt"
//	package = "com.example"
//
//	[go]
//	out = "internal/messages/messages.g.go"
//	package = "messages"
//
// Relative paths are resolved against the directory holding the file.
// Only backends with a section are generated; a file without any backend
// section generates all of them.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/xiaowei-guan/pigeon/internal/backend"
)

// FileName is the project file looked up by Find.
const FileName = "pigeon.toml"

// DefaultInputDir holds the API descriptions when [input].dir is unset.
const DefaultInputDir = "pigeons"

// BackendNames lists the backend sections in generation order.
var BackendNames = []string{"dart", "kotlin", "go"}

// Config is a decoded project file.
type Config struct {
	// Path is the file the config was read from, empty for Default.
	Path string `toml:"-"`
	// Root is the directory relative paths are resolved against.
	Root string `toml:"-"`

	CopyrightHeader []string      `toml:"copyright_header"`
	Input           InputConfig   `toml:"input"`
	Channel         ChannelConfig `toml:"channel"`
	Store           StoreConfig   `toml:"store"`
	Dart            BackendConfig `toml:"dart"`
	Kotlin          BackendConfig `toml:"kotlin"`
	Go              BackendConfig `toml:"go"`

	backends []string
}

// InputConfig locates the API descriptions.
type InputConfig struct {
	Dir string `toml:"dir"`
}

// ChannelConfig holds wire-level settings.
type ChannelConfig struct {
	Prefix string `toml:"prefix"`
}

// StoreConfig locates the generation ledger. Empty disables it.
type StoreConfig struct {
	DB string `toml:"db"`
}

// BackendConfig holds one backend's output settings.
type BackendConfig struct {
	Out     string `toml:"out"`
	Package string `toml:"package"`
}

// Default returns the configuration used when no project file exists.
func Default(root string) *Config {
	return &Config{Root: root, backends: slices.Clone(BackendNames)}
}

// Find walks up from startDir looking for FileName.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load decodes the project file at path. Unknown keys are errors.
func Load(path string) (*Config, error) {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	cfg.Path = abs
	cfg.Root = filepath.Dir(abs)

	for _, name := range BackendNames {
		if meta.IsDefined(name) {
			cfg.backends = append(cfg.backends, name)
		}
	}
	if len(cfg.backends) == 0 {
		cfg.backends = slices.Clone(BackendNames)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if p := c.Channel.Prefix; p != "" {
		for _, seg := range strings.Split(p, ".") {
			if seg == "" {
				return fmt.Errorf("[channel].prefix %q has an empty segment", p)
			}
		}
	}
	for _, name := range c.backends {
		if out := c.Backend(name).Out; out != "" && strings.HasSuffix(out, "/") {
			return fmt.Errorf("[%s].out must be a file path, got %q", name, out)
		}
	}
	return nil
}

// Backends returns the backend names this project generates.
func (c *Config) Backends() []string {
	return slices.Clone(c.backends)
}

// Backend returns the section of the named backend.
func (c *Config) Backend(name string) BackendConfig {
	switch name {
	case "dart":
		return c.Dart
	case "kotlin":
		return c.Kotlin
	case "go":
		return c.Go
	default:
		return BackendConfig{}
	}
}

// InputDir returns the absolute input directory.
func (c *Config) InputDir() string {
	dir := c.Input.Dir
	if dir == "" {
		dir = DefaultInputDir
	}
	return c.Resolve(dir)
}

// DBPath returns the absolute ledger path, or "" when the ledger is off.
func (c *Config) DBPath() string {
	if c.Store.DB == "" {
		return ""
	}
	return c.Resolve(c.Store.DB)
}

// Resolve makes a relative path absolute against Root.
func (c *Config) Resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Root, path)
}

// PlanOptions returns the language-independent generation settings.
func (c *Config) PlanOptions() backend.PlanOptions {
	return backend.PlanOptions{Prefix: c.Channel.Prefix}
}

// Options returns the output settings of the named backend.
func (c *Config) Options(name string) backend.Options {
	b := c.Backend(name)
	return backend.Options{
		Package:         b.Package,
		Out:             b.Out,
		CopyrightHeader: c.CopyrightHeader,
	}
}
