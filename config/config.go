// Package config holds runtime settings shared by the scan and serve commands.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"sigs.k8s.io/yaml"

	"netmap/port"
	"netmap/scanner"
	"netmap/target"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid config")

// Config is loaded from YAML, e.g.
//
//	listen: ":8080"
//	timeout: 150ms
//	workers: 1
//	strict: false
//	ports: "22,80,443"
//	allow: ["192.168.0.0/24"]
type Config struct {
	Listen  string   `json:"listen"`
	Timeout Duration `json:"timeout"`
	Workers int      `json:"workers"`
	// Strict rejects unparseable targets instead of scanning them as a
	// single literal host.
	Strict bool `json:"strict"`
	// Ports overrides the built-in catalog. Order is kept.
	Ports string   `json:"ports,omitempty"`
	Allow []string `json:"allow,omitempty"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Listen:  ":8080",
		Timeout: Duration(scanner.DefaultTimeout),
		Workers: 1,
	}
}

// Load reads path over the defaults. An empty path returns Default().
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: %s: %v", ErrInvalid, path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks ranges and that Ports and Allow parse.
func (c Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalid)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("%w: workers must be positive", ErrInvalid)
	}
	if c.Listen == "" {
		return fmt.Errorf("%w: listen address is empty", ErrInvalid)
	}
	if _, err := c.Catalog(); err != nil {
		return err
	}
	if _, err := c.Scope(); err != nil {
		return err
	}
	return nil
}

// Catalog is the port catalog to probe: Ports when set, else the default.
func (c Config) Catalog() (port.Catalog, error) {
	if c.Ports == "" {
		return port.Default(), nil
	}
	ports, err := port.ParsePortSpec(c.Ports)
	if err != nil {
		return port.Catalog{}, fmt.Errorf("%w: ports: %v", ErrInvalid, err)
	}
	return port.FromPorts(ports), nil
}

// Scope builds the allow list. It is nil when Allow is empty.
func (c Config) Scope() (*target.Scope, error) {
	s, err := target.NewScope(c.Allow)
	if err != nil {
		return nil, fmt.Errorf("%w: allow: %v", ErrInvalid, err)
	}
	return s, nil
}

// Duration is a time.Duration written with a unit, e.g. "150ms". Bare
// numbers are rejected so a missing unit cannot mean nanoseconds.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v string
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("duration %s needs a unit, e.g. \"150ms\"", string(b))
	}
	p, err := time.ParseDuration(v)
	if err != nil {
		return err
	}
	*d = Duration(p)
	return nil
}
