package update

import "github.com/gielenor/launcher/src/internal/ui"

// LauncherLabels are shown while checking for a launcher update
var LauncherLabels = Labels{
	Phase:       ui.PhaseLauncherUpdate,
	Checking:    ui.StatusCheckingLauncherUpdates,
	Downloading: ui.StatusDownloadingLauncherUpdate,
	UpToDate:    ui.StatusLauncherUpToDate,
	Updated:     ui.StatusLauncherUpdateDownloaded,
	Fallback:    ui.StatusLauncherUpdateDownloaded,
	Failed:      ui.StatusLauncherUpdateError,
}

// RuntimeLabels are shown while provisioning the Java runtime
var RuntimeLabels = Labels{
	Phase:       ui.PhaseJavaRuntime,
	Checking:    ui.StatusCheckingJavaRuntime,
	Downloading: ui.StatusDownloadingJavaRuntime,
	Installing:  ui.StatusInstallingJavaRuntime,
	UpToDate:    ui.StatusJavaRuntimeFound,
	Updated:     ui.StatusJavaRuntimeInstalled,
	Fallback:    ui.StatusJavaRuntimeFound,
	Failed:      ui.StatusJavaRuntimeError,
}

// ClientLabels are shown while updating and launching the game client
var ClientLabels = Labels{
	Phase:       ui.PhaseClientUpdate,
	Checking:    ui.StatusCheckingGameUpdates,
	Downloading: ui.StatusDownloadingGameClient,
	Installing:  ui.StatusVerifyingGameClient,
	UpToDate:    ui.StatusGameUpToDate,
	Updated:     ui.StatusGameUpdated,
	Fallback:    ui.StatusUsingCachedVersion,
	Failed:      ui.StatusGameUpdateError,
	LaunchPhase: ui.PhaseLaunchingClient,
	Launching:   ui.StatusStartingClient,
}
