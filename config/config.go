package config

import (
	"errors"
	"fmt"
	"net"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	ModeTun = "tun"
	ModeTap = "tap"
)

var ErrInvalid = errors.New("invalid config")

type Config struct {
	Interface Interface `yaml:"interface"`
	Log       Log       `yaml:"log"`
	Metrics   Metrics   `yaml:"metrics"`
}

type Interface struct {
	Name string `yaml:"name"`
	Mode string `yaml:"mode"` // tun, tap
	// Address and MAC are only used in tap mode, to answer ARP.
	Address string `yaml:"address"`
	MAC     string `yaml:"mac"`
	// Persist keeps the device around after the process exits.
	Persist bool `yaml:"persist"`
	// CIDR, when set, is assigned to the kernel side of the device and the
	// link is brought up before serving.
	CIDR string `yaml:"cidr"`
}

type Log struct {
	Level  string `yaml:"level"`  // trace, debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

type Metrics struct {
	// Address to serve /metrics on. Empty disables the endpoint.
	Address string `yaml:"address"`
}

func Default() *Config {
	return &Config{
		Interface: Interface{
			Name: "tun0",
			Mode: ModeTun,
			MAC:  "02:00:00:00:00:01",
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a YAML config file on top of the defaults. An empty path
// returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := Parse(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Parse decodes YAML into cfg and validates the result.
func Parse(data []byte, cfg *Config) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	return cfg.Validate()
}

func (c *Config) Validate() error {
	if c.Interface.Name == "" {
		return fmt.Errorf("%w: interface.name is required", ErrInvalid)
	}

	switch c.Interface.Mode {
	case ModeTun:
	case ModeTap:
		if net.ParseIP(c.Interface.Address).To4() == nil {
			return fmt.Errorf("%w: interface.address must be an IPv4 address in tap mode", ErrInvalid)
		}
		if _, err := c.Interface.HardwareAddr(); err != nil {
			return fmt.Errorf("%w: interface.mac: %v", ErrInvalid, err)
		}
	default:
		return fmt.Errorf("%w: interface.mode %q", ErrInvalid, c.Interface.Mode)
	}

	if c.Interface.CIDR != "" {
		if _, _, err := net.ParseCIDR(c.Interface.CIDR); err != nil {
			return fmt.Errorf("%w: interface.cidr: %v", ErrInvalid, err)
		}
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log.format %q", ErrInvalid, c.Log.Format)
	}

	return nil
}

func (i Interface) HardwareAddr() (net.HardwareAddr, error) {
	mac, err := net.ParseMAC(i.MAC)
	if err != nil {
		return nil, err
	}
	if len(mac) != 6 {
		return nil, fmt.Errorf("%s is not an ethernet address", i.MAC)
	}
	return mac, nil
}

func (i Interface) IP() net.IP {
	return net.ParseIP(i.Address).To4()
}
