package credentials

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// ReadOpenCodeAuthFile reads opencode's auth.json and returns its contents
// and path. Returns nil, "" if the file cannot be read.
func ReadOpenCodeAuthFile() ([]byte, string) {
	// OpenCode stores auth at $XDG_DATA_HOME/opencode/auth.json,
	// defaulting to ~/.local/share/opencode/auth.json.
	var dataDir string
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		dataDir = xdg
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, ""
		}
		dataDir = filepath.Join(home, ".local", "share")
	}

	authPath := filepath.Join(dataDir, "opencode", "auth.json")
	data, err := os.ReadFile(authPath)
	if err != nil {
		return nil, ""
	}

	return data, authPath
}

// ParseOpenCodeRecord extracts the Anthropic OAuth entry from opencode auth
// JSON and converts it into a Record. Returns nil, false when the entry is
// missing, is an API key rather than an OAuth grant, or cannot be parsed.
// OpenCode stores expiry as epoch milliseconds, matching Record directly.
func ParseOpenCodeRecord(data []byte) (*Record, bool) {
	var auth map[string]struct {
		Type    string `json:"type"`
		Refresh string `json:"refresh"`
		Access  string `json:"access"`
		Expires int64  `json:"expires"`
	}
	if err := json.Unmarshal(data, &auth); err != nil {
		return nil, false
	}

	entry, ok := auth["anthropic"]
	if !ok || entry.Type != "oauth" || entry.Refresh == "" {
		return nil, false
	}

	return &Record{
		RefreshToken:     entry.Refresh,
		AccessToken:      entry.Access,
		ExpiresAtEpochMs: entry.Expires,
		UpdatedAt:        time.Now(),
	}, true
}
