// Package proxy provides an authenticated reverse proxy for inference APIs.
package proxy

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"go.uber.org/zap"

	"github.com/papercomputeco/patchbay/pkg/oauth"
	"github.com/papercomputeco/patchbay/proxy/header"
	"github.com/papercomputeco/patchbay/proxy/route"
	"github.com/papercomputeco/patchbay/proxy/worker"
)

const (
	claudeProxyPrefix = "/claude-code/proxy"
	claudeRouteName   = "claude-code"
	customRouteName   = "custom-model-proxy"
	defaultClaudeBase = "https://api.anthropic.com"
)

// Proxy is an HTTP reverse proxy for inference APIs. Requests under
// /claude-code/proxy cross the credential gate and are sent to the Anthropic
// API with the stored OAuth token; named routes forward to their configured
// upstreams; the custom model proxy forwards to a caller-chosen URL.
type Proxy struct {
	config        Config
	manager       *oauth.Manager
	table         *route.Table
	workerPool    *worker.Pool
	logger        *zap.Logger
	httpClient    *http.Client
	server        *fiber.App
	headerHandler *header.Handler
}

// New creates a new Proxy. The manager handles the OAuth lifecycle behind
// the credential gate. Returns an error if the route table fails validation.
func New(config Config, manager *oauth.Manager, logger *zap.Logger) (*Proxy, error) {
	table, err := route.NewTable(config.Routes)
	if err != nil {
		return nil, fmt.Errorf("invalid routes: %w", err)
	}

	if config.ClaudeUpstream == "" {
		config.ClaudeUpstream = defaultClaudeBase
	}
	if config.UpstreamTimeout == 0 {
		config.UpstreamTimeout = DefaultUpstreamTimeout
	}

	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
		// Enable streaming
		StreamRequestBody: true,
	})

	// Add compression middleware to handle responses
	app.Use(compress.New())

	wp, err := worker.NewPool(&worker.Config{
		NumWorkers: config.Workers,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create worker pool: %w", err)
	}

	p := &Proxy{
		config:        config,
		manager:       manager,
		table:         table,
		workerPool:    wp,
		logger:        logger,
		server:        app,
		headerHandler: header.NewHandler(),
		// No client-level timeout: routed calls are bounded per request,
		// and the custom model proxy may stream indefinitely.
		httpClient: &http.Client{},
	}

	app.Get("/ping", p.handlePing)
	app.Get("/stats", p.handleStats)
	app.Get("/claude-code/authorize", p.handleAuthorize)
	app.Post("/claude-code/exchange", p.handleExchange)
	app.All(claudeProxyPrefix, p.handleClaudeProxy)
	app.All(claudeProxyPrefix+"/*", p.handleClaudeProxy)
	app.Post("/custom-model-proxy", p.handleCustomProxy)

	// Everything else resolves against the route table.
	app.All("/*", p.handleRouteProxy)

	return p, nil
}

// Run starts the proxy server on the configured listening address
func (p *Proxy) Run() error {
	p.logger.Info("starting proxy server",
		zap.String("listen", p.config.ListenAddr),
		zap.String("claude_upstream", p.config.ClaudeUpstream),
		zap.Int("routes", len(p.config.Routes)),
	)

	return p.server.Listen(p.config.ListenAddr)
}

// RunWithListener starts the proxy server using the provided listener.
func (p *Proxy) RunWithListener(listener net.Listener) error {
	p.logger.Info("starting proxy server",
		zap.String("listen", listener.Addr().String()),
		zap.String("claude_upstream", p.config.ClaudeUpstream),
		zap.Int("routes", len(p.config.Routes)),
	)

	return p.server.Listener(listener)
}

// Close gracefully shuts down the proxy and waits for the worker pool to drain
func (p *Proxy) Close() error {
	err := p.server.Shutdown()
	p.workerPool.Close()
	return err
}

type errorResponse struct {
	Error string `json:"error"`
}

type exchangeRequest struct {
	Code     string `json:"code"`
	Verifier string `json:"verifier"`
}

type exchangeResponse struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

type statsResponse struct {
	Routes map[string]worker.Stats `json:"routes"`
}

// handlePing answers liveness probes.
func (p *Proxy) handlePing(c *fiber.Ctx) error {
	return c.SendString("pong")
}

// handleStats reports the per-route accounting snapshot.
func (p *Proxy) handleStats(c *fiber.Ctx) error {
	return c.JSON(statsResponse{Routes: p.workerPool.Snapshot()})
}

// handleAuthorize starts a fresh PKCE authorization session. The caller opens
// the returned URL in a browser and posts the pasted code back to
// /claude-code/exchange together with the verifier.
func (p *Proxy) handleAuthorize(c *fiber.Ctx) error {
	session, err := p.manager.BeginAuthorization()
	if err != nil {
		return fmt.Errorf("could not begin authorization: %w", err)
	}

	return c.JSON(session)
}

// handleExchange redeems a pasted authorization code for tokens and persists
// them. A provider rejection is reported as {"type":"failed"} rather than an
// HTTP error so CLI callers can distinguish a bad code from a broken proxy.
func (p *Proxy) handleExchange(c *fiber.Ctx) error {
	var req exchangeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "invalid request body"})
	}

	if req.Code == "" || req.Verifier == "" {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "code and verifier are required"})
	}

	if _, err := p.manager.Exchange(c.Context(), req.Code, req.Verifier); err != nil {
		p.logger.Warn("code exchange failed", zap.Error(err))
		return c.JSON(exchangeResponse{Type: "failed"})
	}

	return c.JSON(exchangeResponse{Type: "success", Message: "Login successful"})
}

// handleClaudeProxy is the credential gate: it resolves a usable access
// token (refreshing if expired), then forwards to the Anthropic API with the
// OAuth headers set.
func (p *Proxy) handleClaudeProxy(c *fiber.Ctx) error {
	token, err := p.manager.AccessToken(c.Context())
	if err != nil {
		if errors.Is(err, oauth.ErrNoCredential) {
			return c.Status(fiber.StatusUnauthorized).JSON(errorResponse{
				Error: "not authenticated: complete the OAuth flow via GET /claude-code/authorize or `patchbay auth login`",
			})
		}

		p.logger.Warn("token refresh failed", zap.Error(err))
		return c.Status(fiber.StatusUnauthorized).JSON(errorResponse{
			Error: "token refresh failed: re-run the authorization flow to obtain fresh credentials",
		})
	}

	path := strings.TrimPrefix(c.Path(), claudeProxyPrefix)
	if path == "" {
		path = "/"
	}

	return p.forward(c, forwardOptions{
		routeName:     claudeRouteName,
		target:        p.config.ClaudeUpstream,
		path:          path,
		preserveQuery: true,
		sanitize:      true,
		timeout:       p.config.UpstreamTimeout,
		decorate: func(req *http.Request) {
			p.headerHandler.SetUpstreamAuthHeaders(req, token)
		},
	})
}

// handleCustomProxy forwards to a caller-chosen absolute URL. Headers pass
// through unsanitized and the call is not bounded by the upstream timeout.
func (p *Proxy) handleCustomProxy(c *fiber.Ctx) error {
	raw := c.Query("url")
	if raw == "" {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "url query parameter is required"})
	}

	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "url must be an absolute URL"})
	}

	return p.forward(c, forwardOptions{
		routeName: customRouteName,
		target:    raw,
		sanitize:  false,
	})
}

// handleRouteProxy resolves the request against the route table and forwards
// to the matched upstream. Unmatched requests fall through to the framework
// 404.
func (p *Proxy) handleRouteProxy(c *fiber.Ctx) error {
	match, ok := p.table.Resolve(c.Path(), c.Hostname())
	if !ok {
		return fiber.ErrNotFound
	}

	return p.forward(c, forwardOptions{
		routeName:     match.Entry.Name,
		target:        match.Entry.Target,
		path:          match.Path,
		preserveQuery: true,
		sanitize:      true,
		timeout:       p.config.UpstreamTimeout,
	})
}
