// Package config loads the mount configuration and wires it into a resolver.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"libfs/internal/fs"
	"libfs/internal/logging"

	"gopkg.in/yaml.v3"
)

var (
	logger = logging.GetLogger().WithPrefix("config")
)

// ErrConfigNotFound is returned when the config file does not exist.
// Callers can check for this with errors.Is(err, config.ErrConfigNotFound).
var ErrConfigNotFound = errors.New("config file not found")

// ErrInvalidConfig is returned by Validate for any rejected setting
var ErrInvalidConfig = errors.New("invalid config")

// EnvConfigPath names the environment variable holding the config path
const EnvConfigPath = "LIBFS_CONFIG"

// CurrentVersion is the config format version written by this package
const CurrentVersion = 1

// Provider types
const (
	TypeNative = "native"
	TypeMirror = "mirror"
	TypeMemory = "memory"
)

// ProviderConfig selects and configures a provider
type ProviderConfig struct {
	Type string `yaml:"type"`
	// Source is the host directory of a mirror. Relative sources are
	// resolved against the directory holding the config file.
	Source string `yaml:"source,omitempty"`
	// Entries seed a memory provider; names ending in "/" are directories.
	Entries []string `yaml:"entries,omitempty"`
}

// MountConfig binds a virtual prefix to a provider
type MountConfig struct {
	Prefix         string `yaml:"prefix"`
	ProviderConfig `yaml:",inline"`
}

// Config is the on-disk configuration
type Config struct {
	Version int            `yaml:"version"`
	Root    ProviderConfig `yaml:"root"`
	Mounts  []MountConfig  `yaml:"mounts"`

	// baseDir anchors relative mirror sources
	baseDir string
}

// Default returns a config with a native root and no mounts
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		Root:    ProviderConfig{Type: TypeNative},
	}
}

// Load reads and validates the config file at path
func Load(path string) (*Config, error) {
	logger.Debug("Loading config from: %s", path)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}
	cfg.baseDir = filepath.Dir(absPath)

	logger.Info("Config loaded: %d mounts", len(cfg.Mounts))
	return cfg, nil
}

// Parse decodes and validates YAML config data. Relative mirror sources
// are resolved against the working directory.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if cfg.Root.Type == "" {
		cfg.Root.Type = TypeNative
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks provider types, prefixes and sources
func (c *Config) Validate() error {
	if c.Version > CurrentVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrInvalidConfig, c.Version)
	}
	if err := c.Root.validate("root"); err != nil {
		return err
	}

	seen := make(map[string]bool, len(c.Mounts))
	for i, m := range c.Mounts {
		where := fmt.Sprintf("mounts[%d]", i)
		p, err := fs.Normalize(m.Prefix)
		if err != nil || !p.IsAbs() {
			return fmt.Errorf("%w: %s: prefix %q must be a non-empty absolute path", ErrInvalidConfig, where, m.Prefix)
		}
		if seen[p.String()] {
			return fmt.Errorf("%w: %s: duplicate prefix %q", ErrInvalidConfig, where, p.String())
		}
		seen[p.String()] = true

		if err := m.ProviderConfig.validate(where); err != nil {
			return err
		}
	}
	return nil
}

func (pc ProviderConfig) validate(where string) error {
	switch pc.Type {
	case TypeNative:
	case TypeMirror:
		if pc.Source == "" {
			return fmt.Errorf("%w: %s: mirror needs a source directory", ErrInvalidConfig, where)
		}
	case TypeMemory:
	default:
		return fmt.Errorf("%w: %s: unknown provider type %q", ErrInvalidConfig, where, pc.Type)
	}
	if pc.Type != TypeMemory && len(pc.Entries) > 0 {
		return fmt.Errorf("%w: %s: entries are only valid for memory providers", ErrInvalidConfig, where)
	}
	return nil
}

// AddMirror appends a mirror mount. Used for mounts given on the command
// line, which are relative to the working directory.
func (c *Config) AddMirror(prefix, source string) error {
	absSource, err := filepath.Abs(source)
	if err != nil {
		return fmt.Errorf("failed to resolve mirror source: %w", err)
	}
	c.Mounts = append(c.Mounts, MountConfig{
		Prefix:         prefix,
		ProviderConfig: ProviderConfig{Type: TypeMirror, Source: absSource},
	})
	return c.Validate()
}

// SetRootMirror replaces the root provider by a mirror of source
func (c *Config) SetRootMirror(source string) error {
	absSource, err := filepath.Abs(source)
	if err != nil {
		return fmt.Errorf("failed to resolve root source: %w", err)
	}
	c.Root = ProviderConfig{Type: TypeMirror, Source: absSource}
	return c.Validate()
}

// Build creates the providers and registers every mount, in file order
func Build(c *Config) (*fs.Resolver, error) {
	root, err := c.newProvider(c.Root)
	if err != nil {
		return nil, fmt.Errorf("root provider: %w", err)
	}

	resolver := fs.NewResolver(fs.NewMountTable(), fs.Options{RootProvider: root})
	for _, m := range c.Mounts {
		provider, err := c.newProvider(m.ProviderConfig)
		if err != nil {
			return nil, fmt.Errorf("mount %s: %w", m.Prefix, err)
		}
		if err := resolver.Mount(m.Prefix, provider); err != nil {
			return nil, err
		}
	}
	return resolver, nil
}

func (c *Config) newProvider(pc ProviderConfig) (fs.Provider, error) {
	switch pc.Type {
	case TypeNative:
		return fs.NewNativeProvider(), nil
	case TypeMirror:
		return fs.NewDirectoryMirrorProvider(c.resolveSource(pc.Source))
	case TypeMemory:
		mem := fs.NewMemoryProvider()
		for _, entry := range pc.Entries {
			var err error
			if strings.HasSuffix(entry, "/") {
				err = mem.AddDir(entry)
			} else {
				err = mem.AddFile(entry)
			}
			if err != nil {
				return nil, err
			}
		}
		return mem, nil
	default:
		return nil, fmt.Errorf("%w: unknown provider type %q", ErrInvalidConfig, pc.Type)
	}
}

func (c *Config) resolveSource(source string) string {
	if filepath.IsAbs(source) || c.baseDir == "" {
		return source
	}
	return filepath.Join(c.baseDir, source)
}
