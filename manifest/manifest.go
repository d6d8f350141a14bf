// Package manifest handles stackfx.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the name of the project configuration file.
const FileName = "stackfx.toml"

// Manifest represents a stackfx.toml project configuration.
type Manifest struct {
	Project      Project               `toml:"project"`
	Namespace    NamespaceConfig       `toml:"namespace"`
	Dependencies map[string]Dependency `toml:"dependencies"`
	Cache        CacheConfig           `toml:"cache"`
	Server       ServerConfig          `toml:"server"`
	Log          LogConfig             `toml:"log"`

	// Dir is the directory containing the stackfx.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// NamespaceConfig lists the namespace files to load, in order.
type NamespaceConfig struct {
	Files []string `toml:"files"`
}

// Dependency is another project whose namespace files are loaded before
// this one's.
type Dependency struct {
	Git  string `toml:"git"`
	Tag  string `toml:"tag"`
	Path string `toml:"path"`
}

// CacheConfig configures the signature cache.
type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// ServerConfig configures the eval service listeners.
type ServerConfig struct {
	HTTP string `toml:"http"`
	GRPC string `toml:"grpc"`
}

// LogConfig configures logging.
type LogConfig struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Default returns the configuration used when no stackfx.toml exists.
func Default(dir string) *Manifest {
	m := &Manifest{Dir: dir}
	m.applyDefaults(toml.MetaData{})
	return m
}

func (m *Manifest) applyDefaults(md toml.MetaData) {
	if !md.IsDefined("cache", "enabled") {
		m.Cache.Enabled = true
	}
	if m.Server.HTTP == "" {
		m.Server.HTTP = "localhost:8417"
	}
	if m.Server.GRPC == "" {
		m.Server.GRPC = "localhost:8418"
	}
}

// Load parses a stackfx.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("parse error in %s: unknown key %s", path, undecoded[0])
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	m.applyDefaults(md)

	return &m, nil
}

// FindAndLoad walks up from startDir to find a stackfx.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// resolve makes p absolute relative to the manifest directory.
func (m *Manifest) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}

// NamespacePaths returns absolute paths for the configured namespace files.
func (m *Manifest) NamespacePaths() []string {
	paths := make([]string, 0, len(m.Namespace.Files))
	for _, f := range m.Namespace.Files {
		paths = append(paths, m.resolve(f))
	}
	return paths
}

// CachePath returns the signature cache database path.
func (m *Manifest) CachePath() string {
	if m.Cache.Path != "" {
		return m.resolve(m.Cache.Path)
	}
	return filepath.Join(m.Dir, ".stackfx", "cache.db")
}

// DepsDir returns the path to the .stackfx/deps directory.
func (m *Manifest) DepsDir() string {
	return filepath.Join(m.Dir, ".stackfx", "deps")
}

// LockFilePath returns the path to .stackfx/lock.toml.
func (m *Manifest) LockFilePath() string {
	return filepath.Join(m.Dir, ".stackfx", "lock.toml")
}
