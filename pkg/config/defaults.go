package config

const (
	defaultProxyListen    = ":8080"
	defaultProxyWorkers   = 3
	defaultClaudeUpstream = "https://api.anthropic.com"
)

// defaultRoutes is the routing table shipped out of the box. Requests under
// /groq/ and /openrouter/ relay to the matching provider with the prefix
// stripped; anything else is left to the user's own [[proxy.routes]] tables.
var defaultRoutes = []RouteConfig{
	{Name: "groq", Target: "https://api.groq.com"},
	{Name: "openrouter", Target: "https://openrouter.ai/api"},
}

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Proxy: ProxyConfig{
			Listen:  defaultProxyListen,
			Workers: defaultProxyWorkers,
			Routes:  append([]RouteConfig(nil), defaultRoutes...),
		},
		Claude: ClaudeConfig{
			Upstream: defaultClaudeUpstream,
		},
	}
}
