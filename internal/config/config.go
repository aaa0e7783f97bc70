// Package config loads and validates the run configuration.
package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/yuriy-kovalchuk/yk-virt-dns/internal/cidr"
)

// Config holds every recognized option for one run. A config file is
// optional; flags override whatever it sets.
type Config struct {
	Server       string `yaml:"server"`        // target DNS server
	Port         int    `yaml:"port"`          // target DNS port
	Zone         string `yaml:"zone"`          // managed zone name
	KeyName      string `yaml:"key_name"`      // TSIG key name
	KeySecret    string `yaml:"key_secret"`    // base64-encoded TSIG secret, ${ENV} expanded
	KeyAlgorithm string `yaml:"key_algorithm"` // TSIG algorithm
	CIDR         string `yaml:"cidr"`          // target address range
	TTL          int    `yaml:"ttl"`           // record TTL in seconds
	Timeout      int    `yaml:"timeout"`       // DNS exchange timeout in seconds
	UseTCP       bool   `yaml:"use_tcp"`

	DryRun        bool `yaml:"dry_run"`
	DeleteStopped bool `yaml:"delete_stopped"`
	Verbosity     int  `yaml:"verbosity"`

	LibvirtSocket string `yaml:"libvirt_socket"`
	LockFile      string `yaml:"lock_file"`
}

// Default returns a Config with every defaultable field filled in.
func Default() *Config {
	return &Config{
		Port:          53,
		KeyAlgorithm:  "hmac-sha256",
		TTL:           300,
		Timeout:       5,
		LibvirtSocket: "/var/run/libvirt/libvirt-sock",
		LockFile:      "/run/lock/yk-virt-dns.lock",
	}
}

// Load reads the YAML config file at path on top of the defaults. An
// empty path returns just the defaults. ${ENV_VAR} references in the
// credential are expanded so secrets can stay out of the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}
	cfg.KeySecret = os.ExpandEnv(cfg.KeySecret)
	return cfg, nil
}

// Validate checks everything that must be fatal before any guest is
// processed.
func (c *Config) Validate() error {
	if c.Server == "" {
		return fmt.Errorf("config: missing required field 'server'")
	}
	if c.Zone == "" {
		return fmt.Errorf("config: missing required field 'zone'")
	}
	if c.KeyName == "" || c.KeySecret == "" {
		return fmt.Errorf("config: missing TSIG credential ('key_name' and 'key_secret')")
	}
	if c.CIDR == "" {
		return fmt.Errorf("config: missing required field 'cidr'")
	}
	if _, err := cidr.Parse(c.CIDR); err != nil {
		return fmt.Errorf("config: invalid 'cidr': %w", err)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: invalid 'port' %d", c.Port)
	}
	if c.TTL <= 0 {
		return fmt.Errorf("config: invalid 'ttl' %d", c.TTL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("config: invalid 'timeout' %d", c.Timeout)
	}
	return nil
}
