package authcmder_test

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	authcmder "github.com/papercomputeco/patchbay/cmd/patchbay/auth"
	"github.com/papercomputeco/patchbay/pkg/credentials"
)

var _ = Describe("Auth Command", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "auth-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	seedRecord := func() {
		store, err := credentials.NewStore(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		err = store.Save(&credentials.Record{
			RefreshToken:     "refresh-token",
			AccessToken:      "access-token",
			ExpiresAtEpochMs: time.Now().Add(time.Hour).UnixMilli(),
			UpdatedAt:        time.Now(),
		})
		Expect(err).NotTo(HaveOccurred())
	}

	Describe("NewAuthCmd", func() {
		It("creates a command with expected properties", func() {
			cmd := authcmder.NewAuthCmd()
			Expect(cmd.Use).To(Equal("auth"))
			Expect(cmd.Short).NotTo(BeEmpty())
		})

		It("has login, status, logout, and import subcommands", func() {
			cmd := authcmder.NewAuthCmd()
			cmds := cmd.Commands()
			subcommands := make([]string, 0, len(cmds))
			for _, sub := range cmds {
				subcommands = append(subcommands, sub.Name())
			}
			Expect(subcommands).To(ContainElements("login", "status", "logout", "import"))
		})
	})

	Describe("status subcommand", func() {
		It("runs without error when not logged in", func() {
			cmd := authcmder.NewAuthCmd()
			cmd.PersistentFlags().String("config-dir", "", "Override path to .patchbay/ config directory")
			cmd.SetArgs([]string{"status", "--config-dir", tmpDir})

			err := cmd.Execute()
			Expect(err).NotTo(HaveOccurred())
		})

		It("reports stored credentials", func() {
			seedRecord()

			cmd := authcmder.NewAuthCmd()
			cmd.PersistentFlags().String("config-dir", "", "Override path to .patchbay/ config directory")
			cmd.SetArgs([]string{"status", "--config-dir", tmpDir})

			err := cmd.Execute()
			Expect(err).NotTo(HaveOccurred())
		})

		It("reports an expired access token without error", func() {
			store, err := credentials.NewStore(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			err = store.Save(&credentials.Record{
				RefreshToken:     "refresh-token",
				AccessToken:      "stale-access",
				ExpiresAtEpochMs: time.Now().Add(-time.Hour).UnixMilli(),
				UpdatedAt:        time.Now(),
			})
			Expect(err).NotTo(HaveOccurred())

			cmd := authcmder.NewAuthCmd()
			cmd.PersistentFlags().String("config-dir", "", "Override path to .patchbay/ config directory")
			cmd.SetArgs([]string{"status", "--config-dir", tmpDir})

			err = cmd.Execute()
			Expect(err).NotTo(HaveOccurred())
		})

		It("rejects extra arguments", func() {
			cmd := authcmder.NewAuthCmd()
			cmd.SetArgs([]string{"status", "extra"})
			err := cmd.Execute()
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("logout subcommand", func() {
		It("removes stored credentials", func() {
			seedRecord()

			cmd := authcmder.NewAuthCmd()
			cmd.PersistentFlags().String("config-dir", "", "Override path to .patchbay/ config directory")
			cmd.SetArgs([]string{"logout", "--config-dir", tmpDir})

			err := cmd.Execute()
			Expect(err).NotTo(HaveOccurred())

			_, err = os.Stat(filepath.Join(tmpDir, "credentials.json"))
			Expect(os.IsNotExist(err)).To(BeTrue())

			// A fresh store sees the cleared state.
			fresh, err := credentials.NewStore(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			rec, err := fresh.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(rec).To(BeNil())
		})

		It("succeeds when nothing is stored", func() {
			cmd := authcmder.NewAuthCmd()
			cmd.PersistentFlags().String("config-dir", "", "Override path to .patchbay/ config directory")
			cmd.SetArgs([]string{"logout", "--config-dir", tmpDir})

			err := cmd.Execute()
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("import subcommand", func() {
		It("imports an opencode OAuth grant", func() {
			dataDir := filepath.Join(tmpDir, "xdg-data")
			err := os.MkdirAll(filepath.Join(dataDir, "opencode"), 0o755)
			Expect(err).NotTo(HaveOccurred())

			expires := time.Now().Add(time.Hour).UnixMilli()
			authJSON := fmt.Sprintf(
				`{"anthropic":{"type":"oauth","refresh":"opencode-refresh","access":"opencode-access","expires":%d}}`,
				expires,
			)
			err = os.WriteFile(filepath.Join(dataDir, "opencode", "auth.json"), []byte(authJSON), 0o600)
			Expect(err).NotTo(HaveOccurred())

			GinkgoT().Setenv("XDG_DATA_HOME", dataDir)

			cmd := authcmder.NewAuthCmd()
			cmd.PersistentFlags().String("config-dir", "", "Override path to .patchbay/ config directory")
			cmd.SetArgs([]string{"import", "--config-dir", tmpDir})

			err = cmd.Execute()
			Expect(err).NotTo(HaveOccurred())

			store, err := credentials.NewStore(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			rec, err := store.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(rec).NotTo(BeNil())
			Expect(rec.RefreshToken).To(Equal("opencode-refresh"))
			Expect(rec.AccessToken).To(Equal("opencode-access"))
			Expect(rec.ExpiresAtEpochMs).To(Equal(expires))
		})

		It("fails when no opencode auth file exists", func() {
			GinkgoT().Setenv("XDG_DATA_HOME", filepath.Join(tmpDir, "nonexistent"))

			cmd := authcmder.NewAuthCmd()
			cmd.PersistentFlags().String("config-dir", "", "Override path to .patchbay/ config directory")
			cmd.SetArgs([]string{"import", "--config-dir", tmpDir})

			err := cmd.Execute()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("no opencode auth.json"))
		})

		It("fails when the grant is an API key rather than OAuth", func() {
			dataDir := filepath.Join(tmpDir, "xdg-data")
			err := os.MkdirAll(filepath.Join(dataDir, "opencode"), 0o755)
			Expect(err).NotTo(HaveOccurred())

			authJSON := `{"anthropic":{"type":"api","key":"sk-ant-something"}}`
			err = os.WriteFile(filepath.Join(dataDir, "opencode", "auth.json"), []byte(authJSON), 0o600)
			Expect(err).NotTo(HaveOccurred())

			GinkgoT().Setenv("XDG_DATA_HOME", dataDir)

			cmd := authcmder.NewAuthCmd()
			cmd.PersistentFlags().String("config-dir", "", "Override path to .patchbay/ config directory")
			cmd.SetArgs([]string{"import", "--config-dir", tmpDir})

			err = cmd.Execute()
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("login subcommand", func() {
		It("rejects extra arguments", func() {
			cmd := authcmder.NewAuthCmd()
			cmd.SetArgs([]string{"login", "extra"})
			err := cmd.Execute()
			Expect(err).To(HaveOccurred())
		})
	})
})
