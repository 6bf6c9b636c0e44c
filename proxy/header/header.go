// Package header provides header filtering for the patchbay proxy.
//
// The proxy sits between a client and an upstream inference provider like so:
//
//	Client <--> Proxy <--> Upstream Provider
//
// and headers are handled accordingly as each leg negotiates compression, hops,
// encoding, etc. independently. On top of the transport concerns, requests are
// sanitized: infrastructure headers injected by CDNs and intermediate proxies
// are dropped so the upstream sees a request indistinguishable from one sent
// by a first-party client.
package header

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Handler manages headers between proxy connections.
type Handler struct{}

// NewHandler creates a new header Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// anthropicBetaFlag marks the outbound request as an OAuth-authenticated
// client of the Anthropic API.
const anthropicBetaFlag = "oauth-2025-04-20"

// strippedPrefixes are lowercased name prefixes of infrastructure headers
// injected by CDNs and reverse proxies sitting in front of patchbay.
var strippedPrefixes = []string{"cf-", "x-forwarded-", "cdn-"}

// strippedNames are exact lowercased names of headers that leak deployment
// details to the upstream.
var strippedNames = map[string]struct{}{
	"x-real-ip": {},
	"host":      {},
}

// skipRequest is the set of request headers (client --> proxy --> upstream)
// that are not forwarded to the upstream provider.
var skipRequest = map[string]struct{}{
	// Hop-by-hop headers: only meaningful for a single transport-level connection.
	"Connection": {},

	// The Host header is rewritten by Go's http.Transport to match the
	// upstream URL. Forwarding the client's Host would confuse virtual-hosted
	// upstreams.
	"Host": {},

	// Accept-Encoding is stripped so that Go's http.Transport adds its own
	// "Accept-Encoding: gzip" and transparently decompresses the upstream
	// response.
	"Accept-Encoding": {},
}

// skipResponse is the set of upstream response headers (client <-- proxy <-- upstream)
// that are not copied back to the downstream client.
var skipResponse = map[string]struct{}{
	// Hop-by-hop headers: only meaningful for a single transport-level connection.
	"Connection": {},

	// Hop-by-hop headers: fasthttp manages chunked transfer encoding for the
	// client-facing response independently.
	"Transfer-Encoding": {},

	// The proxy always reads a decompressed body (Go's http.Transport strips
	// Content-Encoding after auto-decompression). Forwarding a stale
	// Content-Encoding would claim an encoding the body no longer has.
	// Fiber's compress middleware sets the correct Content-Encoding when it
	// re-compresses the response back down to the client.
	"Content-Encoding": {},

	// The upstream Content-Length reflects the (possibly compressed) upstream
	// body size. After decompression the length changes, and Fiber's compress
	// middleware may re-compress to a different size. Letting Fiber compute
	// the final Content-Length avoids sending an incorrect value.
	"Content-Length": {},
}

// ShouldStrip reports whether a request header must not reach the upstream
// provider. Matching is case-insensitive on the header name only; values are
// never inspected.
func ShouldStrip(name string) bool {
	lower := strings.ToLower(name)
	for _, prefix := range strippedPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}

	_, ok := strippedNames[lower]
	return ok
}

// SetUpstreamRequestHeaders copies request headers from the Fiber context to
// the outgoing http.Request, dropping transport headers each leg manages
// itself and sanitizing infrastructure headers per ShouldStrip.
func (h *Handler) SetUpstreamRequestHeaders(c *fiber.Ctx, req *http.Request) {
	c.Request().Header.VisitAll(func(key, value []byte) {
		k := string(key)
		if _, skip := skipRequest[k]; skip {
			return
		}
		if ShouldStrip(k) {
			return
		}
		req.Header.Set(k, string(value))
	})
}

// SetRawUpstreamRequestHeaders copies request headers to the outgoing
// http.Request without sanitization. The custom model proxy uses this path:
// its callers own the full header set, so even CDN headers pass through.
// Transport headers are still dropped since each leg negotiates its own.
func (h *Handler) SetRawUpstreamRequestHeaders(c *fiber.Ctx, req *http.Request) {
	c.Request().Header.VisitAll(func(key, value []byte) {
		k := string(key)
		if _, skip := skipRequest[k]; !skip {
			req.Header.Set(k, string(value))
		}
	})
}

// SetUpstreamAuthHeaders decorates an outbound request with the stored OAuth
// access token and the flags Anthropic requires from OAuth clients. Any
// client-supplied API key is removed so it cannot shadow the token.
func (h *Handler) SetUpstreamAuthHeaders(req *http.Request, accessToken string) {
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("anthropic-dangerous-direct-browser-access", "true")

	if beta := req.Header.Get("anthropic-beta"); beta != "" {
		req.Header.Set("anthropic-beta", beta+","+anthropicBetaFlag)
	} else {
		req.Header.Set("anthropic-beta", anthropicBetaFlag)
	}

	req.Header.Del("X-Api-Key")
}

// SetClientResponseHeaders copies response headers from the upstream API
// http.Response to the Fiber context, filtering headers that the proxy should
// not forward back down to the client.
func (h *Handler) SetClientResponseHeaders(c *fiber.Ctx, resp *http.Response) {
	for k, v := range resp.Header {
		if _, skip := skipResponse[k]; !skip {
			c.Set(k, strings.Join(v, ", "))
		}
	}
}
