package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent patchbay configuration stored as
// config.toml in the .patchbay/ directory. The TOML layout uses sections
// for logical grouping.
type Config struct {
	Version int          `toml:"version"`
	Proxy   ProxyConfig  `toml:"proxy"`
	Claude  ClaudeConfig `toml:"claude"`
}

// ProxyConfig holds the relay server's settings, including the static
// routing table rendered as [[proxy.routes]] tables.
type ProxyConfig struct {
	Listen  string        `toml:"listen,omitempty"`
	Workers uint          `toml:"workers,omitempty"`
	Routes  []RouteConfig `toml:"routes,omitempty"`
}

// RouteConfig is one entry of the static routing table: requests under
// /{name}/ (or whose Host header equals host) relay to target.
type RouteConfig struct {
	Name   string `toml:"name"`
	Target string `toml:"target"`
	Host   string `toml:"host,omitempty"`
}

// ClaudeConfig holds settings for the managed authenticated upstream.
type ClaudeConfig struct {
	Upstream string `toml:"upstream,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
// Routes are not addressable here; edit the [[proxy.routes]] tables directly.
var configKeys = map[string]configKeyInfo{
	"proxy.listen": {
		get: func(c *Config) string { return c.Proxy.Listen },
		set: func(c *Config, v string) error { c.Proxy.Listen = v; return nil },
	},
	"proxy.workers": {
		get: func(c *Config) string {
			if c.Proxy.Workers == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Proxy.Workers), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for proxy.workers: %w", err)
			}
			c.Proxy.Workers = uint(n)
			return nil
		},
	},
	"claude.upstream": {
		get: func(c *Config) string { return c.Claude.Upstream },
		set: func(c *Config, v string) error { c.Claude.Upstream = v; return nil },
	},
}
