package config

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/zeebo/xxh3"
	"gopkg.in/yaml.v3"

	"github.com/DeusData/schemamemo/internal/schemawrap"
)

// FileName is the per-project configuration file, read from the project root.
const FileName = ".schemamemo.yaml"

// Config holds user-overridable transform settings.
type Config struct {
	// Namespace is the builder namespace identifier (default "z").
	Namespace string `yaml:"namespace"`
	// Method is the object-schema factory method (default "object").
	Method string `yaml:"method"`

	Registration RegistrationConfig `yaml:"registration"`

	// Strict refuses to wrap definitions that reference external bindings.
	Strict bool `yaml:"strict"`
	// KeyMode is "digest" (default) or "raw".
	KeyMode string `yaml:"key_mode"`

	// Exclude are extra glob patterns (matched against names and rel paths)
	// skipped during discovery.
	Exclude []string `yaml:"exclude"`
}

// RegistrationConfig describes the emitted registration call.
type RegistrationConfig struct {
	Name string `yaml:"name"`
	// Target is "bare" (default) or "global".
	Target       string `yaml:"target"`
	GlobalObject string `yaml:"global_object"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	d := schemawrap.DefaultOptions()
	return &Config{
		Namespace: d.Namespace,
		Method:    d.Method,
		Registration: RegistrationConfig{
			Name:         d.Registration,
			Target:       string(d.Target),
			GlobalObject: d.GlobalObject,
		},
		KeyMode: string(d.KeyMode),
	}
}

// Load reads .schemamemo.yaml from dir.
// Returns the default config if the file doesn't exist or is invalid.
func Load(dir string) *Config {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultConfig()
	}

	cfg, err := Parse(data)
	if err != nil {
		slog.Warn("config.invalid", "path", path, "err", err)
		return DefaultConfig()
	}
	return cfg
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := cfg.Options().Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Options converts the config into transform options.
func (c *Config) Options() schemawrap.Options {
	return schemawrap.Options{
		Namespace:             c.Namespace,
		Method:                c.Method,
		Registration:          c.Registration.Name,
		Target:                schemawrap.Target(strings.ToLower(c.Registration.Target)),
		GlobalObject:          c.Registration.GlobalObject,
		StrictSelfContainment: c.Strict,
		KeyMode:               schemawrap.KeyMode(strings.ToLower(c.KeyMode)),
	}
}

// Fingerprint identifies the effective options. Output produced under one
// fingerprint is stale under another.
func (c *Config) Fingerprint() string {
	o := c.Options()
	h := xxh3.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00%s\x00%s\x00%t\x00%s",
		o.Namespace, o.Method, o.Registration, o.Target, o.GlobalObject, o.StrictSelfContainment, o.KeyMode)
	return hex.EncodeToString(h.Sum(nil))
}
