package warden

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/tetratelabs/wazero"
	"github.com/wardenrun/warden/internal/human"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is where warden looks for its configuration unless
	// told otherwise.
	DefaultConfigPath = "~/.warden/config.yaml"

	defaultStorePath = "~/.warden/store"
)

// Config is the warden host configuration.
type Config struct {
	Store struct {
		Location Nullable[human.Path] `json:"location"`
	} `json:"store"`
	Cache struct {
		Location Nullable[human.Path] `json:"location"`
	} `json:"cache"`
}

// DefaultConfig is the configuration used when no file overrides it.
func DefaultConfig() *Config {
	c := new(Config)
	c.Store.Location = NullableValue[human.Path](defaultStorePath)
	return c
}

// LoadConfig opens and reads the configuration file at path.
func LoadConfig(path human.Path) (*Config, error) {
	r, _, err := OpenConfig(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return ReadConfig(r)
}

// OpenConfig opens the configuration file at path, returning its resolved
// location. A missing file yields the default configuration.
func OpenConfig(path human.Path) (io.ReadCloser, string, error) {
	resolved, err := path.Resolve()
	if err != nil {
		return nil, resolved, err
	}
	f, err := os.Open(resolved)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, resolved, err
		}
		b, _ := yaml.Marshal(DefaultConfig())
		return io.NopCloser(bytes.NewReader(b)), resolved, nil
	}
	return f, resolved, nil
}

// ReadConfig reads and parses a configuration document.
func ReadConfig(r io.Reader) (*Config, error) {
	c := DefaultConfig()
	d := yaml.NewDecoder(r)
	d.KnownFields(true)
	if err := d.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return c, nil
}

// OpenCache opens the configured compilation cache, or returns nil when
// caching is not configured.
func (c *Config) OpenCache() (wazero.CompilationCache, error) {
	location, ok := c.Cache.Location.Value()
	if !ok {
		return nil, nil
	}
	path, err := location.Resolve()
	if err != nil {
		return nil, fmt.Errorf("resolving cache location: %w", err)
	}
	if err := createDirectory(path); err != nil {
		return nil, err
	}
	return wazero.NewCompilationCacheWithDir(path)
}

// StorePath resolves the location of the bundle store.
func (c *Config) StorePath() (string, error) {
	location, ok := c.Store.Location.Value()
	if !ok {
		return "", errors.New("no bundle store location configured")
	}
	return location.Resolve()
}

func createDirectory(path string) error {
	if err := os.MkdirAll(path, 0777); err != nil {
		if !errors.Is(err, fs.ErrExist) {
			return err
		}
	}
	return nil
}
