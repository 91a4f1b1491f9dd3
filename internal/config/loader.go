package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Load reads configuration from environment variables.
// It applies defaults for unset values and validates the result.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// LoadWithDotenv loads the given .env files into the environment, without
// overriding variables that are already set, then calls Load. Missing
// files are ignored.
func LoadWithDotenv(files ...string) (*Config, error) {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config load %s: %w", f, err)
		}
	}
	return Load()
}

var durationType = reflect.TypeOf(time.Duration(0))

// loadStruct fills v from the environment. Nested structs are walked; a
// leaf field is read from its env tag, falling back to its default tag.
func loadStruct(v reflect.Value) error {
	t := v.Type()
	for i := range t.NumField() {
		sf, fv := t.Field(i), v.Field(i)
		if sf.Type.Kind() == reflect.Struct {
			if err := loadStruct(fv); err != nil {
				return err
			}
			continue
		}

		name, ok := sf.Tag.Lookup("env")
		if !ok {
			continue
		}
		raw := os.Getenv(name)
		if raw == "" {
			raw = sf.Tag.Get("default")
		}
		if raw == "" {
			continue
		}
		if err := setField(fv, raw); err != nil {
			return fmt.Errorf("%s=%q: %w", name, raw, err)
		}
	}
	return nil
}

// setField parses raw into a string, int or time.Duration field.
func setField(fv reflect.Value, raw string) error {
	switch {
	case fv.Type() == durationType:
		d, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		fv.SetInt(int64(d))
	case fv.Kind() == reflect.Int:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return err
		}
		fv.SetInt(int64(n))
	case fv.Kind() == reflect.String:
		fv.SetString(raw)
	default:
		return fmt.Errorf("unsupported config field type %s", fv.Type())
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []string

	if c.Store.MaxReaders < 1 {
		errs = append(errs, fmt.Sprintf("MANIFESTDB_MAX_READERS (%d) must be at least 1", c.Store.MaxReaders))
	}
	if c.Store.TempDir != "" {
		if info, err := os.Stat(c.Store.TempDir); err != nil || !info.IsDir() {
			errs = append(errs, fmt.Sprintf("MANIFESTDB_TEMP_DIR (%q) must be an existing directory", c.Store.TempDir))
		}
	}
	if c.Watch.PollInterval <= 0 {
		errs = append(errs, "MANIFESTDB_POLL_INTERVAL must be positive")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
