//go:build !windows

package protocol

// Register is a no-op outside Windows; macOS bundles and Linux desktop
// entries declare the scheme at install time.
func Register(string) error {
	return nil
}
