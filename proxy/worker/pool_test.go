package worker

import (
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
)

// newTestPool creates a worker pool with default sizing.
// Callers should "wp.Close()" to drain enqueued jobs before asserting tallies.
func newTestPool() *Pool {
	wp, err := NewPool(&Config{
		Logger: zap.NewNop(),
	})
	Expect(err).NotTo(HaveOccurred())

	return wp
}

var _ = Describe("Worker Pool", func() {
	var wp *Pool

	BeforeEach(func() {
		wp = newTestPool()
	})

	Describe("Enqueue", func() {
		It("returns true when the queue has capacity", func() {
			ok := wp.Enqueue(Job{
				RequestID: "req-1",
				Route:     "groq",
				Method:    "POST",
				Path:      "/v1/chat/completions",
				Status:    200,
				BytesOut:  128,
				Duration:  40 * time.Millisecond,
			})
			Expect(ok).To(BeTrue())
			wp.Close()
		})
	})

	Describe("Snapshot", func() {
		// These tests enqueue jobs and drain via wp.Close() before asserting
		// tallies, so no Eventually polling is needed.

		It("folds a single request into its route tally", func() {
			wp.Enqueue(Job{
				RequestID: "req-1",
				Route:     "groq",
				Method:    "POST",
				Path:      "/v1/chat/completions",
				Status:    200,
				BytesOut:  512,
				Duration:  10 * time.Millisecond,
			})
			wp.Close()

			snap := wp.Snapshot()
			Expect(snap).To(HaveKey("groq"))
			Expect(snap["groq"].Requests).To(Equal(uint64(1)))
			Expect(snap["groq"].BytesOut).To(Equal(int64(512)))
		})

		It("accumulates requests and bytes per route", func() {
			for i := range 4 {
				wp.Enqueue(Job{
					RequestID: fmt.Sprintf("req-%d", i),
					Route:     "claude-code",
					Method:    "POST",
					Path:      "/v1/messages",
					Status:    200,
					BytesOut:  100,
					Duration:  5 * time.Millisecond,
				})
			}
			wp.Close()

			snap := wp.Snapshot()
			Expect(snap["claude-code"].Requests).To(Equal(uint64(4)))
			Expect(snap["claude-code"].BytesOut).To(Equal(int64(400)))
		})

		It("keeps separate tallies for separate routes", func() {
			wp.Enqueue(Job{RequestID: "a", Route: "groq", Status: 200, BytesOut: 10})
			wp.Enqueue(Job{RequestID: "b", Route: "openrouter", Status: 200, BytesOut: 20})
			wp.Enqueue(Job{RequestID: "c", Route: "openrouter", Status: 200, BytesOut: 30})
			wp.Close()

			snap := wp.Snapshot()
			Expect(snap).To(HaveLen(2))
			Expect(snap["groq"].Requests).To(Equal(uint64(1)))
			Expect(snap["groq"].BytesOut).To(Equal(int64(10)))
			Expect(snap["openrouter"].Requests).To(Equal(uint64(2)))
			Expect(snap["openrouter"].BytesOut).To(Equal(int64(50)))
		})

		It("returns a copy that does not alias the internal tally", func() {
			wp.Enqueue(Job{RequestID: "a", Route: "groq", Status: 200, BytesOut: 10})
			wp.Close()

			snap := wp.Snapshot()
			snap["groq"] = Stats{Requests: 999, BytesOut: 999}
			snap["bogus"] = Stats{Requests: 1}

			again := wp.Snapshot()
			Expect(again["groq"].Requests).To(Equal(uint64(1)))
			Expect(again).NotTo(HaveKey("bogus"))
		})

		It("is empty before any requests complete", func() {
			snap := wp.Snapshot()
			Expect(snap).To(BeEmpty())
			wp.Close()
		})
	})
})
