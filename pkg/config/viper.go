package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/patchbay/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the PATCHBAY_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (PATCHBAY_PROXY_LISTEN, PATCHBAY_CLAUDE_UPSTREAM, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: PATCHBAY_PROXY_LISTEN, PATCHBAY_PROXY_WORKERS, etc.
	v.SetEnvPrefix("PATCHBAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source
// of truth. Routes are array-of-table values with no env/flag form, so
// they are read from the parsed config file only.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Proxy
	v.SetDefault("proxy.listen", d.Proxy.Listen)
	v.SetDefault("proxy.workers", d.Proxy.Workers)

	// Claude
	v.SetDefault("claude.upstream", d.Claude.Upstream)
}

// Routes returns the routing table from the given viper, falling back to
// the shipped defaults when the config file declares none.
func Routes(v *viper.Viper) ([]RouteConfig, error) {
	if !v.IsSet("proxy.routes") {
		return NewDefaultConfig().Proxy.Routes, nil
	}

	var routes []RouteConfig
	if err := v.UnmarshalKey("proxy.routes", &routes); err != nil {
		return nil, fmt.Errorf("parsing proxy.routes: %w", err)
	}
	if len(routes) == 0 {
		return NewDefaultConfig().Proxy.Routes, nil
	}

	return routes, nil
}
