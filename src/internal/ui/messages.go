package ui

import (
	"fmt"
	"strings"
)

// Phase labels
const (
	PhaseStarting        = "Starting"
	PhaseLauncherUpdate  = "Launcher update"
	PhaseJavaRuntime     = "Java runtime"
	PhaseClientUpdate    = "Client update"
	PhaseLaunchingClient = "Launching client"
)

// Status messages. Placeholders in braces are filled by Format.
const (
	StatusOpeningLauncher           = "Opening launcher..."
	StatusCheckingLauncherUpdates   = "Checking for launcher updates..."
	StatusDownloadingLauncherUpdate = "Downloading launcher update..."
	StatusLauncherUpToDate          = "Launcher is up to date."
	StatusLauncherUpdateDownloaded  = "Launcher update downloaded. Restarting..."
	StatusLauncherUpdateError       = "Launcher update error. See logs."

	StatusCheckingJavaRuntime    = "Checking Java runtime for {platform}..."
	StatusJavaRuntimeFound       = "Java runtime found for {platform}."
	StatusDownloadingJavaRuntime = "Downloading Java runtime for {platform}..."
	StatusInstallingJavaRuntime  = "Extracting Java runtime..."
	StatusJavaRuntimeInstalled   = "Java runtime installed."
	StatusJavaRuntimeError       = "Java runtime could not be installed. See logs."

	StatusCheckingGameUpdates   = "Checking for game updates..."
	StatusDownloadingGameClient = "Downloading game client..."
	StatusVerifyingGameClient   = "Verifying game client..."
	StatusGameUpToDate          = "Game client is up to date."
	StatusGameUpdated           = "Game client updated to {version}."
	StatusUsingCachedVersion    = "Update failed, using cached version {version}."
	StatusGameUpdateError       = "Game client could not be updated. See logs."
	StatusStartingClient        = "Starting client..."
	StatusStartingCoreClasses   = "Starting core classes..."

	StatusRateLimitRetry = "GitHub rate limit. Retrying in {seconds}s..."
	StatusCancelled      = "Cancelled."
)

// Format replaces the first {key} placeholder for every key in params
func Format(template string, params map[string]any) string {
	text := template
	for key, value := range params {
		text = strings.Replace(text, "{"+key+"}", fmt.Sprint(value), 1)
	}
	return text
}
