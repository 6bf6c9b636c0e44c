package proxy

import (
	"time"

	"github.com/papercomputeco/patchbay/proxy/route"
)

// DefaultUpstreamTimeout bounds a single routed upstream call, including the
// time spent relaying the response body to the client.
const DefaultUpstreamTimeout = 60 * time.Second

// Config is the proxy server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8080")
	ListenAddr string

	// Routes are the named upstream routes, resolved first match wins.
	Routes []route.Entry

	// ClaudeUpstream is the Anthropic API base URL the credential gate
	// forwards to. Empty means https://api.anthropic.com.
	ClaudeUpstream string

	// UpstreamTimeout bounds routed and gated upstream calls. Zero means
	// DefaultUpstreamTimeout. The custom model proxy is never bounded.
	UpstreamTimeout time.Duration

	// Workers is the number of accounting workers (0 uses the pool default).
	Workers uint
}
