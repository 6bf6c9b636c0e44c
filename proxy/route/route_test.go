package route

import (
	ginkgo "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = ginkgo.Describe("NewTable", func() {
	ginkgo.It("accepts a valid set of entries", func() {
		table, err := NewTable([]Entry{
			{Name: "groq", Target: "https://api.groq.com"},
			{Name: "openrouter", Target: "https://openrouter.ai/api"},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(table).NotTo(BeNil())
	})

	ginkgo.It("accepts an empty table", func() {
		table, err := NewTable(nil)
		Expect(err).NotTo(HaveOccurred())

		_, ok := table.Resolve("/anything", "")
		Expect(ok).To(BeFalse())
	})

	ginkgo.It("accepts an entry with a host match", func() {
		_, err := NewTable([]Entry{
			{Name: "internal", Target: "https://llm.corp.example", HostMatch: "llm.internal"},
		})
		Expect(err).NotTo(HaveOccurred())
	})

	ginkgo.It("rejects an entry with no name", func() {
		_, err := NewTable([]Entry{
			{Name: "", Target: "https://api.groq.com"},
		})
		Expect(err).To(MatchError(ContainSubstring("no name")))
	})

	ginkgo.It("rejects a name containing a slash", func() {
		_, err := NewTable([]Entry{
			{Name: "groq/v1", Target: "https://api.groq.com"},
		})
		Expect(err).To(MatchError(ContainSubstring("slash")))
	})

	ginkgo.DescribeTable("rejects reserved names",
		func(name string) {
			_, err := NewTable([]Entry{
				{Name: name, Target: "https://example.com"},
			})
			Expect(err).To(MatchError(ContainSubstring("reserved")))
		},
		ginkgo.Entry("claude-code", "claude-code"),
		ginkgo.Entry("custom-model-proxy", "custom-model-proxy"),
		ginkgo.Entry("ping", "ping"),
		ginkgo.Entry("stats", "stats"),
	)

	ginkgo.It("rejects duplicate names", func() {
		_, err := NewTable([]Entry{
			{Name: "groq", Target: "https://api.groq.com"},
			{Name: "groq", Target: "https://api.groq.com/v2"},
		})
		Expect(err).To(MatchError(ContainSubstring("duplicate")))
	})

	ginkgo.It("rejects a relative target", func() {
		_, err := NewTable([]Entry{
			{Name: "groq", Target: "/v1"},
		})
		Expect(err).To(MatchError(ContainSubstring("absolute")))
	})

	ginkgo.It("rejects a target with no host", func() {
		_, err := NewTable([]Entry{
			{Name: "groq", Target: "https://"},
		})
		Expect(err).To(MatchError(ContainSubstring("absolute")))
	})
})

var _ = ginkgo.Describe("Resolve", func() {
	var table *Table

	ginkgo.BeforeEach(func() {
		var err error
		table, err = NewTable([]Entry{
			{Name: "internal", Target: "https://llm.corp.example", HostMatch: "llm.internal"},
			{Name: "groq", Target: "https://api.groq.com"},
			{Name: "openrouter", Target: "https://openrouter.ai/api"},
		})
		Expect(err).NotTo(HaveOccurred())
	})

	ginkgo.It("strips the name prefix on a prefix match", func() {
		m, ok := table.Resolve("/groq/v1/chat/completions", "localhost")
		Expect(ok).To(BeTrue())
		Expect(m.Entry.Name).To(Equal("groq"))
		Expect(m.Entry.Target).To(Equal("https://api.groq.com"))
		Expect(m.Path).To(Equal("/v1/chat/completions"))
	})

	ginkgo.It("resolves a bare prefix to the root path", func() {
		m, ok := table.Resolve("/groq", "localhost")
		Expect(ok).To(BeTrue())
		Expect(m.Path).To(Equal("/"))
	})

	ginkgo.It("resolves a trailing-slash prefix to the root path", func() {
		m, ok := table.Resolve("/groq/", "localhost")
		Expect(ok).To(BeTrue())
		Expect(m.Path).To(Equal("/"))
	})

	ginkgo.It("does not match a longer first segment sharing the prefix", func() {
		_, ok := table.Resolve("/groqfoo/v1/chat", "localhost")
		Expect(ok).To(BeFalse())
	})

	ginkgo.It("keeps the path unchanged on a host match", func() {
		m, ok := table.Resolve("/v1/messages", "llm.internal")
		Expect(ok).To(BeTrue())
		Expect(m.Entry.Name).To(Equal("internal"))
		Expect(m.Path).To(Equal("/v1/messages"))
	})

	ginkgo.It("matches hosts case-insensitively", func() {
		m, ok := table.Resolve("/v1/messages", "LLM.Internal")
		Expect(ok).To(BeTrue())
		Expect(m.Entry.Name).To(Equal("internal"))
	})

	ginkgo.It("prefers the first matching entry in configuration order", func() {
		// The host-matched entry comes first, so it wins even when the path
		// would also prefix-match a later entry.
		m, ok := table.Resolve("/groq/v1/chat", "llm.internal")
		Expect(ok).To(BeTrue())
		Expect(m.Entry.Name).To(Equal("internal"))
		Expect(m.Path).To(Equal("/groq/v1/chat"))
	})

	ginkgo.It("returns no match for an unknown path", func() {
		_, ok := table.Resolve("/unknown/v1/chat", "localhost")
		Expect(ok).To(BeFalse())
	})
})
