// Package worker provides an asynchronous worker pool for per-request
// accounting in the patchbay proxy.
//
// The pool decouples bookkeeping from the proxy's HTTP hot path so that the
// client-proxy-upstream interaction is fully transparent. Workers fold
// completed requests into per-route counters which back the /stats endpoint.
package worker

import (
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
)

// Job is a completed proxied request for the worker pool to record.
type Job struct {
	// RequestID is the proxy-assigned identifier for the request.
	RequestID string

	// Route is the route name the request resolved to (e.g. "groq",
	// "claude-code", "custom").
	Route string

	Method string
	Path   string

	// Status is the HTTP status relayed to the client.
	Status int

	// BytesOut is the number of response body bytes relayed downstream.
	BytesOut int64

	// Duration covers the full upstream call including body relay.
	Duration time.Duration
}

// Stats is the accumulated accounting for a single route.
type Stats struct {
	Requests uint64 `json:"requests"`
	BytesOut int64  `json:"bytesOut"`
}

// Config is the configuration options for the worker pool.
type Config struct {
	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// Logger is the provided zap logger
	Logger *zap.Logger
}

// Pool records request accounting asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *zap.Logger

	mu    sync.Mutex
	tally map[string]Stats
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
		tally:  make(map[string]Stats),
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full, resulting in the job being dropped
func (p *Pool) Enqueue(job Job) bool {
	select {
	case p.queue <- job:
		return true
	default:
		p.logger.Error("job not queued, queue full, job dropped",
			zap.String("request_id", job.RequestID),
			zap.String("route", job.Route),
		)
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Call this during graceful shutdown after the proxy HTTP server has stopped.
func (p *Pool) Close() {
	close(p.queue)
	p.wg.Wait()
}

// Snapshot returns a copy of the per-route accounting accumulated so far.
func (p *Pool) Snapshot() map[string]Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[string]Stats, len(p.tally))
	for route, stats := range p.tally {
		out[route] = stats
	}
	return out
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", zap.Uint("worker_id", id))

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("accounting worker stopped", zap.Uint("worker_id", id))
}

// processJob folds a completed request into the per-route tally and emits
// the access log line.
func (p *Pool) processJob(job Job) {
	p.mu.Lock()
	stats := p.tally[job.Route]
	stats.Requests++
	stats.BytesOut += job.BytesOut
	p.tally[job.Route] = stats
	p.mu.Unlock()

	p.logger.Info("request complete",
		zap.String("request_id", job.RequestID),
		zap.String("route", job.Route),
		zap.String("method", job.Method),
		zap.String("path", job.Path),
		zap.Int("status", job.Status),
		zap.Int64("bytes_out", job.BytesOut),
		zap.Duration("duration", job.Duration),
	)
}
