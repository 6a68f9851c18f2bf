package protocol

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/windows/registry"
)

// classesPath is the per-user class root; writing here needs no elevation
var classesPath = `Software\Classes`

// Register makes exe the handler for gielenor:// links for the current user.
// Existing values are overwritten so a moved launcher takes over the scheme.
func Register(exe string) error {
	root := classesPath + `\` + Scheme

	key, _, err := registry.CreateKey(registry.CURRENT_USER, root, registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("failed to create %s key: %w", Scheme, err)
	}
	defer key.Close()

	if err := key.SetStringValue("", "URL:Gielenor"); err != nil {
		return fmt.Errorf("failed to set %s description: %w", Scheme, err)
	}
	if err := key.SetStringValue("URL Protocol", ""); err != nil {
		return fmt.Errorf("failed to mark %s as a URL protocol: %w", Scheme, err)
	}

	cmdKey, _, err := registry.CreateKey(registry.CURRENT_USER, root+`\shell\open\command`, registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("failed to create %s command key: %w", Scheme, err)
	}
	defer cmdKey.Close()

	if err := cmdKey.SetStringValue("", openCommand(exe)); err != nil {
		return fmt.Errorf("failed to set %s command: %w", Scheme, err)
	}

	log.Debugf("Registered %s:// for %s", Scheme, exe)
	return nil
}
