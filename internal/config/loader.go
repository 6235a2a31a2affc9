package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// An empty document yields the zero config. Useful in tests where configs
// are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if addr := cfg.Server.ListenAddr; addr != "" {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			errs = append(errs, fmt.Errorf("server.listen_addr %q is invalid: %w", addr, err))
		}
	}
	if tls := cfg.Server.TLS; tls != nil {
		if tls.CertFile == "" {
			errs = append(errs, errors.New("server.tls.cert_file is required when server.tls is set"))
		}
		if tls.KeyFile == "" {
			errs = append(errs, errors.New("server.tls.key_file is required when server.tls is set"))
		}
	}

	// Canonicalizer
	c := cfg.Canonicalizer
	if c.PhoneticThreshold < 0 || c.PhoneticThreshold > 1 {
		errs = append(errs, fmt.Errorf("canonicalizer.phonetic_threshold %.2f is out of range [0, 1]", c.PhoneticThreshold))
	}
	if c.FuzzyThreshold < 0 || c.FuzzyThreshold > 1 {
		errs = append(errs, fmt.Errorf("canonicalizer.fuzzy_threshold %.2f is out of range [0, 1]", c.FuzzyThreshold))
	}
	if c.FuzzyBooks && c.DisableNumeric {
		slog.Warn("canonicalizer.fuzzy_books has no effect while canonicalizer.disable_numeric is set")
	}

	// Archive
	a := cfg.Archive
	if a.MaxFailures < 0 {
		errs = append(errs, fmt.Errorf("archive.max_failures %d must not be negative", a.MaxFailures))
	}
	if a.ResetTimeout < 0 {
		errs = append(errs, fmt.Errorf("archive.reset_timeout %s must not be negative", a.ResetTimeout))
	}
	if a.QueueSize < 0 {
		errs = append(errs, fmt.Errorf("archive.queue_size %d must not be negative", a.QueueSize))
	}
	if a.PostgresDSN == "" && a.FallbackPath == "" && (a.MaxFailures != 0 || a.ResetTimeout != 0 || a.QueueSize != 0) {
		slog.Warn("archive settings are ignored because neither archive.postgres_dsn nor archive.fallback_path is set")
	}

	return errors.Join(errs...)
}
