package credentials_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/patchbay/pkg/credentials"
)

var _ = Describe("ParseOpenCodeRecord", func() {
	It("converts an anthropic oauth entry into a record", func() {
		data := []byte(`{
  "anthropic": {
    "type": "oauth",
    "refresh": "rt-opencode",
    "access": "at-opencode",
    "expires": 1700000000000
  }
}`)
		rec, ok := credentials.ParseOpenCodeRecord(data)
		Expect(ok).To(BeTrue())
		Expect(rec.RefreshToken).To(Equal("rt-opencode"))
		Expect(rec.AccessToken).To(Equal("at-opencode"))
		Expect(rec.ExpiresAtEpochMs).To(Equal(int64(1700000000000)))
		Expect(rec.UpdatedAt.IsZero()).To(BeFalse())
	})

	It("ignores other providers", func() {
		data := []byte(`{
  "openai": {"type": "oauth", "refresh": "rt", "access": "at", "expires": 1}
}`)
		rec, ok := credentials.ParseOpenCodeRecord(data)
		Expect(ok).To(BeFalse())
		Expect(rec).To(BeNil())
	})

	It("rejects an api-key entry", func() {
		data := []byte(`{
  "anthropic": {"type": "api", "key": "sk-ant-123"}
}`)
		rec, ok := credentials.ParseOpenCodeRecord(data)
		Expect(ok).To(BeFalse())
		Expect(rec).To(BeNil())
	})

	It("rejects an oauth entry without a refresh token", func() {
		data := []byte(`{
  "anthropic": {"type": "oauth", "access": "at", "expires": 1}
}`)
		rec, ok := credentials.ParseOpenCodeRecord(data)
		Expect(ok).To(BeFalse())
		Expect(rec).To(BeNil())
	})

	It("rejects malformed JSON", func() {
		rec, ok := credentials.ParseOpenCodeRecord([]byte("nope"))
		Expect(ok).To(BeFalse())
		Expect(rec).To(BeNil())
	})
})
