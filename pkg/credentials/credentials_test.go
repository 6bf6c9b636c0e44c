package credentials_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/patchbay/pkg/credentials"
	"github.com/papercomputeco/patchbay/pkg/logger"
)

var _ = Describe("Store", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "credentials-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("NewStore", func() {
		It("creates a store with an override directory", func() {
			store, err := credentials.NewStore(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(store).NotTo(BeNil())
			Expect(store.GetTarget()).To(Equal(filepath.Join(tmpDir, "credentials.json")))
		})
	})

	Describe("Load", func() {
		It("returns nil when no record has been saved", func() {
			store, err := credentials.NewStore(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			rec, err := store.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(rec).To(BeNil())
		})

		It("loads an existing record", func() {
			data := `{
  "refreshToken": "rt-123",
  "accessToken": "at-456",
  "expiresAtEpochMs": 1700000000000,
  "updatedAt": "2023-11-14T22:13:20Z"
}`
			err := os.WriteFile(filepath.Join(tmpDir, "credentials.json"), []byte(data), 0o600)
			Expect(err).NotTo(HaveOccurred())

			store, err := credentials.NewStore(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			rec, err := store.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(rec).NotTo(BeNil())
			Expect(rec.RefreshToken).To(Equal("rt-123"))
			Expect(rec.AccessToken).To(Equal("at-456"))
			Expect(rec.ExpiresAtEpochMs).To(Equal(int64(1700000000000)))
		})

		It("returns an error for malformed JSON", func() {
			err := os.WriteFile(filepath.Join(tmpDir, "credentials.json"), []byte("not json {{{"), 0o600)
			Expect(err).NotTo(HaveOccurred())

			store, err := credentials.NewStore(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			rec, err := store.Load()
			Expect(err).To(HaveOccurred())
			Expect(rec).To(BeNil())
		})

		It("does not let callers mutate the cached record", func() {
			store, err := credentials.NewStore(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			saved := &credentials.Record{RefreshToken: "rt", AccessToken: "at", ExpiresAtEpochMs: 1}
			Expect(store.Save(saved)).To(Succeed())

			first, err := store.Load()
			Expect(err).NotTo(HaveOccurred())
			first.AccessToken = "tampered"

			second, err := store.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(second.AccessToken).To(Equal("at"))
		})
	})

	Describe("Save", func() {
		It("round-trips a record through disk", func() {
			store, err := credentials.NewStore(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			saved := &credentials.Record{
				RefreshToken:     "rt-abc",
				AccessToken:      "at-def",
				ExpiresAtEpochMs: time.Now().Add(time.Hour).UnixMilli(),
				UpdatedAt:        time.Now().UTC().Truncate(time.Second),
			}
			Expect(store.Save(saved)).To(Succeed())

			// A fresh store must read the same record straight off disk.
			reopened, err := credentials.NewStore(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			loaded, err := reopened.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.RefreshToken).To(Equal(saved.RefreshToken))
			Expect(loaded.AccessToken).To(Equal(saved.AccessToken))
			Expect(loaded.ExpiresAtEpochMs).To(Equal(saved.ExpiresAtEpochMs))
			Expect(loaded.UpdatedAt.Equal(saved.UpdatedAt)).To(BeTrue())
		})

		It("persists with restricted permissions", func() {
			store, err := credentials.NewStore(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(store.Save(&credentials.Record{RefreshToken: "rt"})).To(Succeed())

			info, err := os.Stat(store.GetTarget())
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o600)))
		})

		It("overwrites the previous record wholesale", func() {
			store, err := credentials.NewStore(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(store.Save(&credentials.Record{RefreshToken: "old", AccessToken: "old-at"})).To(Succeed())
			Expect(store.Save(&credentials.Record{RefreshToken: "new"})).To(Succeed())

			rec, err := store.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.RefreshToken).To(Equal("new"))
			Expect(rec.AccessToken).To(BeEmpty())
		})

		It("rejects a nil record", func() {
			store, err := credentials.NewStore(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(store.Save(nil)).To(HaveOccurred())
		})

		It("uses the on-disk field names", func() {
			store, err := credentials.NewStore(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(store.Save(&credentials.Record{
				RefreshToken:     "rt",
				AccessToken:      "at",
				ExpiresAtEpochMs: 42,
			})).To(Succeed())

			data, err := os.ReadFile(store.GetTarget())
			Expect(err).NotTo(HaveOccurred())

			var raw map[string]any
			Expect(json.Unmarshal(data, &raw)).To(Succeed())
			Expect(raw).To(HaveKey("refreshToken"))
			Expect(raw).To(HaveKey("accessToken"))
			Expect(raw).To(HaveKey("expiresAtEpochMs"))
			Expect(raw).To(HaveKey("updatedAt"))
		})
	})

	Describe("Clear", func() {
		It("removes the stored record", func() {
			store, err := credentials.NewStore(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(store.Save(&credentials.Record{RefreshToken: "rt"})).To(Succeed())
			Expect(store.Clear()).To(Succeed())

			rec, err := store.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(rec).To(BeNil())

			_, err = os.Stat(store.GetTarget())
			Expect(os.IsNotExist(err)).To(BeTrue())
		})

		It("is a no-op when nothing is stored", func() {
			store, err := credentials.NewStore(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(store.Clear()).To(Succeed())
		})
	})

	Describe("Watch", func() {
		It("picks up an external rewrite of the credentials file", func() {
			store, err := credentials.NewStore(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(store.Save(&credentials.Record{RefreshToken: "before"})).To(Succeed())

			ctx, cancel := context.WithCancel(context.Background())
			DeferCleanup(cancel)

			done := make(chan struct{})
			go func() {
				defer close(done)
				store.Watch(ctx, logger.Nop())
			}()

			// Write the file behind the store's back, as a second process
			// running "patchbay auth login" would.
			external := `{"refreshToken":"after","accessToken":"at","expiresAtEpochMs":99,"updatedAt":"2023-11-14T22:13:20Z"}`
			Expect(os.WriteFile(store.GetTarget(), []byte(external), 0o600)).To(Succeed())

			Eventually(func() string {
				rec, err := store.Load()
				if err != nil || rec == nil {
					return ""
				}
				return rec.RefreshToken
			}).WithTimeout(2 * time.Second).WithPolling(20 * time.Millisecond).Should(Equal("after"))

			cancel()
			Eventually(done).WithTimeout(time.Second).Should(BeClosed())
		})
	})
})

var _ = Describe("Record", func() {
	Describe("Expired", func() {
		now := time.Now()

		It("reports a future expiry as valid", func() {
			rec := &credentials.Record{AccessToken: "at", ExpiresAtEpochMs: now.Add(time.Hour).UnixMilli()}
			Expect(rec.Expired(now)).To(BeFalse())
		})

		It("reports a past expiry as expired", func() {
			rec := &credentials.Record{AccessToken: "at", ExpiresAtEpochMs: now.Add(-time.Hour).UnixMilli()}
			Expect(rec.Expired(now)).To(BeTrue())
		})

		It("treats an expiry equal to now as expired", func() {
			rec := &credentials.Record{AccessToken: "at", ExpiresAtEpochMs: now.UnixMilli()}
			Expect(rec.Expired(now)).To(BeTrue())
		})

		It("treats a missing access token as expired", func() {
			rec := &credentials.Record{RefreshToken: "rt", ExpiresAtEpochMs: now.Add(time.Hour).UnixMilli()}
			Expect(rec.Expired(now)).To(BeTrue())
		})
	})
})
