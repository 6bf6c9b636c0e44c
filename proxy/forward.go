package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papercomputeco/patchbay/pkg/sse"
	"github.com/papercomputeco/patchbay/proxy/worker"
)

// forwardOptions describes a single upstream dispatch.
type forwardOptions struct {
	// routeName labels the request in logs and accounting.
	routeName string

	// target is the upstream base URL; path is appended to it as-is.
	target string
	path   string

	// preserveQuery forwards the client's query string unchanged.
	preserveQuery bool

	// sanitize applies the infrastructure-header filter on top of the
	// transport skip set.
	sanitize bool

	// timeout bounds the whole upstream call including body relay.
	// Zero means unbounded.
	timeout time.Duration

	// decorate runs against the outbound request after header copying.
	decorate func(req *http.Request)
}

// forward dispatches the request upstream and relays the response back
// through an io.Pipe. The request is sent exactly once: failures are never
// retried.
func (p *Proxy) forward(c *fiber.Ctx, opts forwardOptions) error {
	start := time.Now()
	requestID := uuid.NewString()
	method := c.Method()

	upstreamURL := opts.target + opts.path
	if opts.preserveQuery {
		if qs := c.Request().URI().QueryString(); len(qs) > 0 {
			upstreamURL += "?" + string(qs)
		}
	}

	// Use context.Background() instead of c.Context() because fasthttp
	// recycles its RequestCtx after the handler returns, but the relay
	// goroutine needs the upstream connection to remain open past that
	// point. The cancel func is the relay goroutine's to call.
	ctx := context.Background()
	var cancel context.CancelFunc
	if opts.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}

	// StreamRequestBody is enabled on the app, so large uploads pass
	// through without buffering. ContentLength is -1 for chunked uploads.
	var body io.Reader
	contentLength := c.Request().Header.ContentLength()
	if contentLength != 0 {
		body = c.Request().BodyStream()
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, upstreamURL, body)
	if err != nil {
		cancel()
		return fmt.Errorf("could not create upstream request: %w", err)
	}
	if contentLength > 0 {
		httpReq.ContentLength = int64(contentLength)
	}

	if opts.sanitize {
		p.headerHandler.SetUpstreamRequestHeaders(c, httpReq)
	} else {
		p.headerHandler.SetRawUpstreamRequestHeaders(c, httpReq)
	}

	if opts.decorate != nil {
		opts.decorate(httpReq)
	}

	p.logger.Debug("forwarding request to upstream",
		zap.String("request_id", requestID),
		zap.String("route", opts.routeName),
		zap.String("method", method),
		zap.String("url", upstreamURL),
	)

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		cancel()
		if isTimeout(err) {
			p.logger.Warn("upstream request timed out",
				zap.String("request_id", requestID),
				zap.String("route", opts.routeName),
				zap.Duration("timeout", opts.timeout),
			)
			return c.Status(fiber.StatusGatewayTimeout).SendString("Request timeout")
		}
		return fmt.Errorf("upstream request failed: %w", err)
	}

	p.headerHandler.SetClientResponseHeaders(c, httpResp)
	c.Status(httpResp.StatusCode)

	// Use io.Pipe + SetBodyStream instead of SetBodyStreamWriter.
	// SetBodyStreamWriter uses an internal PipeConns with a buffered channel
	// (capacity 4) and two bufio.Writers, which means Flush() in the callback
	// only pushes data into the pipe — NOT to the TCP socket. This causes all
	// chunks to buffer in memory before being sent to the client.
	//
	// With io.Pipe, pw.Write blocks until the reader consumes the data, and
	// the reader is fasthttp's writeBodyChunked which flushes to TCP after
	// every chunk. This gives direct backpressure and true per-chunk
	// streaming. When the client disconnects, fasthttp closes the pipe
	// reader, the next relay write fails, and cancel aborts the upstream
	// call.
	pr, pw := io.Pipe()
	go p.relay(httpResp, pw, cancel, relayInfo{
		requestID: requestID,
		route:     opts.routeName,
		method:    method,
		path:      c.Path(),
		status:    httpResp.StatusCode,
		start:     start,
	})

	// Set the pipe reader as the body stream with unknown size (-1),
	// which triggers chunked transfer encoding in fasthttp.
	c.Context().Response.SetBodyStream(pr, -1)

	return nil
}

// relayInfo carries per-request labels from the handler into the relay
// goroutine and its accounting job.
type relayInfo struct {
	requestID string
	route     string
	method    string
	path      string
	status    int
	start     time.Time
}

// relay copies the upstream response body into the pipe feeding the client
// response, then records the request with the worker pool. SSE responses are
// teed through the event parser so stream progress shows up in debug logs.
func (p *Proxy) relay(httpResp *http.Response, pw *io.PipeWriter, cancel context.CancelFunc, info relayInfo) {
	defer cancel()
	defer httpResp.Body.Close()

	var bytesOut int64
	var err error

	if strings.HasPrefix(httpResp.Header.Get("Content-Type"), "text/event-stream") {
		bytesOut, err = p.relaySSE(httpResp.Body, pw, info)
	} else {
		bytesOut, err = io.Copy(pw, httpResp.Body)
	}

	// Enqueue before closing the pipe so the job is already queued when the
	// client sees the end of the body.
	p.workerPool.Enqueue(worker.Job{
		RequestID: info.requestID,
		Route:     info.route,
		Method:    info.method,
		Path:      info.path,
		Status:    info.status,
		BytesOut:  bytesOut,
		Duration:  time.Since(info.start),
	})

	if err != nil {
		p.logger.Warn("relay interrupted",
			zap.String("request_id", info.requestID),
			zap.String("route", info.route),
			zap.Int64("bytes_out", bytesOut),
			zap.Error(err),
		)
		pw.CloseWithError(err)
	} else {
		pw.Close()
	}
}

// relaySSE forwards an SSE body verbatim while parsing events for
// observability.
func (p *Proxy) relaySSE(body io.Reader, pw *io.PipeWriter, info relayInfo) (int64, error) {
	cw := &countingWriter{w: pw}
	tr := sse.NewTeeReader(body, cw)

	events := 0
	for {
		ev, err := tr.Next()
		if err != nil {
			return cw.n, err
		}
		if ev == nil {
			break
		}

		events++
		if ev.IsDone() {
			p.logger.Debug("stream finished",
				zap.String("request_id", info.requestID),
				zap.String("route", info.route),
				zap.Int("events", events),
			)
		}
	}

	return cw.n, nil
}

// countingWriter tracks bytes written through to the pipe.
type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(b []byte) (int, error) {
	n, err := cw.w.Write(b)
	cw.n += int64(n)
	return n, err
}

// isTimeout reports whether the upstream call failed on the configured
// deadline rather than a transport error.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
