// Package route resolves incoming request paths and hosts to configured
// upstream targets for the patchbay proxy.
package route

import (
	"fmt"
	"net/url"
	"strings"
)

// Entry is a single named route to an upstream base URL.
type Entry struct {
	// Name is the path prefix the route matches on, without slashes.
	// A request to /{name}/rest forwards to Target with /rest as the path.
	Name string

	// Target is the absolute upstream base URL (e.g. "https://api.groq.com").
	Target string

	// HostMatch optionally matches on the request Host instead of the path
	// prefix. Host-matched requests keep their path unchanged.
	HostMatch string
}

// Match is a resolved route for a single request.
type Match struct {
	Entry Entry

	// Path is the upstream path: the request path with its "/{name}" prefix
	// stripped for prefix matches, or unchanged for host matches.
	Path string
}

// reserved are path segments claimed by patchbay's own endpoints. Routes may
// not shadow them.
var reserved = map[string]struct{}{
	"claude-code":        {},
	"custom-model-proxy": {},
	"ping":               {},
	"stats":              {},
}

// Table holds the ordered routing entries. Resolution is first match wins in
// configuration order.
type Table struct {
	entries []Entry
}

// NewTable validates the entries and builds a Table. Validation runs at
// startup so a bad routes section fails the server before it listens.
func NewTable(entries []Entry) (*Table, error) {
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e.Name == "" {
			return nil, fmt.Errorf("route with target %q has no name", e.Target)
		}
		if strings.Contains(e.Name, "/") {
			return nil, fmt.Errorf("route name %q must not contain a slash", e.Name)
		}
		if _, ok := reserved[e.Name]; ok {
			return nil, fmt.Errorf("route name %q is reserved", e.Name)
		}
		if _, dup := seen[e.Name]; dup {
			return nil, fmt.Errorf("duplicate route name %q", e.Name)
		}
		seen[e.Name] = struct{}{}

		u, err := url.Parse(e.Target)
		if err != nil {
			return nil, fmt.Errorf("route %q target: %w", e.Name, err)
		}
		if !u.IsAbs() || u.Host == "" {
			return nil, fmt.Errorf("route %q target %q must be an absolute URL", e.Name, e.Target)
		}
	}

	return &Table{entries: entries}, nil
}

// Resolve returns the first entry matching the request path or host.
// Prefix matches strip "/{name}" from the path, with a bare "/{name}"
// resolving to "/". Host matches keep the path unchanged. The second return
// is false when no entry matches.
func (t *Table) Resolve(path, host string) (Match, bool) {
	for _, e := range t.entries {
		if e.HostMatch != "" && strings.EqualFold(host, e.HostMatch) {
			return Match{Entry: e, Path: path}, true
		}

		prefix := "/" + e.Name
		if path == prefix {
			return Match{Entry: e, Path: "/"}, true
		}
		if strings.HasPrefix(path, prefix+"/") {
			return Match{Entry: e, Path: strings.TrimPrefix(path, prefix)}, true
		}
	}

	return Match{}, false
}
