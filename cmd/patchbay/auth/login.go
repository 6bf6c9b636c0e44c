package authcmder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/patchbay/pkg/cliui"
	"github.com/papercomputeco/patchbay/pkg/credentials"
	"github.com/papercomputeco/patchbay/pkg/logger"
	"github.com/papercomputeco/patchbay/pkg/oauth"
)

const loginLongDesc string = `Authorize patchbay with your Claude account.

Prints an authorization URL to open in a browser. After granting access
the provider displays a code; paste it back here to finish. The code can
also be piped on stdin for non-interactive use.

Examples:
  patchbay auth login
  echo "$CODE" | patchbay auth login`

const loginShortDesc string = "Authorize with your Claude account"

func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: loginShortDesc,
		Long:  loginLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runLogin(configDir)
		},
	}

	return cmd
}

func runLogin(configDir string) error {
	store, err := credentials.NewStore(configDir)
	if err != nil {
		return fmt.Errorf("opening credential store: %w", err)
	}

	manager := oauth.NewManager(oauth.NewClient(oauth.DefaultConfig()), store, logger.Nop())

	session, err := manager.BeginAuthorization()
	if err != nil {
		return fmt.Errorf("building authorization URL: %w", err)
	}

	fmt.Printf("\n  %s\n\n", cliui.HeaderStyle.Render("Open this URL in your browser and grant access:"))
	fmt.Printf("  %s\n\n", cliui.ValueStyle.Render(session.URL))

	code, err := readAuthCode()
	if err != nil {
		return err
	}

	code = strings.TrimSpace(code)
	if code == "" {
		return errors.New("authorization code cannot be empty")
	}

	err = cliui.Step(os.Stdout, "Exchanging authorization code", func() error {
		_, err := manager.Exchange(context.Background(), code, session.Verifier)
		return err
	})
	if err != nil {
		return fmt.Errorf("exchanging authorization code: %w", err)
	}

	fmt.Printf("\n  %s Logged in. Credentials saved to %s\n\n",
		cliui.SuccessMark,
		cliui.DimStyle.Render(store.GetTarget()),
	)

	return nil
}

// readAuthCode reads the pasted authorization code from stdin. If stdin is
// a pipe it reads the first line. Otherwise it prompts with hidden input so
// the code never lands in scrollback or shell history.
func readAuthCode() (string, error) {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return "", fmt.Errorf("checking stdin: %w", err)
	}

	// Piped input
	if (fi.Mode() & os.ModeCharDevice) == 0 {
		scanner := bufio.NewScanner(os.Stdin)
		if scanner.Scan() {
			return scanner.Text(), nil
		}
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return "", errors.New("no input received on stdin")
	}

	// Interactive terminal
	fmt.Print("Paste the authorization code: ")

	codeBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println() // newline after hidden input
	if err != nil {
		return "", fmt.Errorf("reading authorization code: %w", err)
	}

	return string(codeBytes), nil
}
