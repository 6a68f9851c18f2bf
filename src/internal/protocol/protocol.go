// Package protocol handles the gielenor:// URL scheme the launcher can be
// opened with.
package protocol

import (
	"fmt"
	"net/url"
	"strings"
)

// Scheme is the URL scheme registered for the launcher
const Scheme = "gielenor"

// IsLink reports whether arg looks like a gielenor:// link
func IsLink(arg string) bool {
	return strings.HasPrefix(strings.ToLower(arg), Scheme+"://")
}

// Parse validates a gielenor:// link. The launcher does not act on its
// contents; links only bring it up.
func Parse(arg string) (*url.URL, error) {
	u, err := url.Parse(arg)
	if err != nil {
		return nil, fmt.Errorf("invalid %s link: %w", Scheme, err)
	}
	if !strings.EqualFold(u.Scheme, Scheme) {
		return nil, fmt.Errorf("invalid %s link: unexpected scheme %q", Scheme, u.Scheme)
	}
	return u, nil
}

// openCommand is the shell command the OS runs for a link
func openCommand(exe string) string {
	return fmt.Sprintf(`"%s" "%%1"`, exe)
}
