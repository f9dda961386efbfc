// Package config loads stampid settings from a YAML file and STAMPID_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ilocn/stampid/internal/idgen"
)

// ErrInvalidConfig wraps every value the loader cannot interpret.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the top-level configuration.
type Config struct {
	// Epoch is an RFC 3339 instant. Empty selects the Unix epoch.
	Epoch   string `yaml:"epoch"`
	ZeroPad bool   `yaml:"zero_pad"`
	Log     Log    `yaml:"log"`
	Server  Server `yaml:"server"`
}

// Log selects the slog level and output format.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // pretty, text or json
}

// Server configures the HTTP service.
type Server struct {
	Addr     string `yaml:"addr"`
	MaxBatch int    `yaml:"max_batch"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		Log: Log{
			Level:  "info",
			Format: "pretty",
		},
		Server: Server{
			Addr:     "127.0.0.1:7070",
			MaxBatch: 1000,
		},
	}
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	return cfg, nil
}

// Validate checks the values that can be checked without a clock. An epoch
// in the future is accepted here; the generator reports it on first use.
func (c Config) Validate() error {
	if _, err := c.ParseEpoch(); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "pretty", "text", "json":
	default:
		return fmt.Errorf("%w: log.format %q (want pretty, text or json)", ErrInvalidConfig, c.Log.Format)
	}
	if c.Server.MaxBatch < 1 {
		return fmt.Errorf("%w: server.max_batch must be at least 1, got %d", ErrInvalidConfig, c.Server.MaxBatch)
	}
	return nil
}

// ParseEpoch returns the configured epoch, or the zero time when unset.
func (c Config) ParseEpoch() (time.Time, error) {
	s := strings.TrimSpace(c.Epoch)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: epoch %q: %v", ErrInvalidConfig, c.Epoch, err)
	}
	return t.UTC(), nil
}

// Generator returns the idgen settings described by c.
func (c Config) Generator() (idgen.Config, error) {
	epoch, err := c.ParseEpoch()
	if err != nil {
		return idgen.Config{}, err
	}
	return idgen.Config{Epoch: epoch, ZeroPad: c.ZeroPad}, nil
}

// Marshal renders c as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
