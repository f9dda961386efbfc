package config

import (
	"fmt"
	"os"
	"strconv"
)

// FromEnv overlays STAMPID_* and LOG_* environment variables onto cfg.
// Unparsable booleans and integers are reported rather than skipped.
func FromEnv(cfg *Config) error {
	if v := os.Getenv("STAMPID_EPOCH"); v != "" {
		cfg.Epoch = v
	}
	if v := os.Getenv("STAMPID_ZERO_PAD"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: STAMPID_ZERO_PAD=%q", ErrInvalidConfig, v)
		}
		cfg.ZeroPad = b
	}
	if v := os.Getenv("STAMPID_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("STAMPID_MAX_BATCH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: STAMPID_MAX_BATCH=%q", ErrInvalidConfig, v)
		}
		cfg.Server.MaxBatch = n
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	return nil
}
