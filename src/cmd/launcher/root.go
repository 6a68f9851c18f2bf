package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gielenor/launcher/src/internal/config"
	"github.com/gielenor/launcher/src/internal/instance"
	"github.com/gielenor/launcher/src/internal/logging"
	"github.com/gielenor/launcher/src/internal/orchestrator"
	"github.com/gielenor/launcher/src/internal/protocol"
	"github.com/gielenor/launcher/src/internal/selfupdate"
	"github.com/gielenor/launcher/src/internal/ui"
	"github.com/gielenor/launcher/src/internal/ui/tray"
	"github.com/gielenor/launcher/src/internal/version"
	"github.com/gielenor/launcher/src/pkg/models"
)

const (
	lockFileName = "launcher.lock"

	// failureLinger keeps a fatal error visible in the tray before exiting
	failureLinger = 10 * time.Second
)

var (
	configPath   string
	dataDir      string
	logLevel     string
	offline      bool
	noSelfUpdate bool
	trayEnabled  bool

	rootCmd = &cobra.Command{
		Use:          "gielenor-launcher [gielenor://link]",
		Short:        "Updates and launches the Gielenor client",
		Args:         cobra.MaximumNArgs(1),
		RunE:         runLauncher,
		SilenceUsage: true,
	}
)

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", fmt.Sprintf("Config file location (default <data-dir>/%s)", config.FileName))
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Directory for cached artifacts, the Java runtime and logs")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "", "Log level (panic, fatal, error, warn, info, debug, trace)")
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false, "Skip all remote checks and use cached artifacts")
	rootCmd.Flags().BoolVar(&noSelfUpdate, "no-self-update", false, "Do not check for launcher updates")
	rootCmd.Flags().BoolVar(&trayEnabled, "tray", true, "Show progress in the system tray")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the config file and applies command line overrides
func loadConfig(cmd *cobra.Command) (*models.Config, error) {
	config.LoadEnv()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("data-dir") {
		cfg.DataDir = dataDir
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("offline") {
		cfg.Offline = offline
	}
	if flags.Changed("no-self-update") && noSelfUpdate {
		cfg.SelfUpdate.Enabled = false
	}
	if flags.Changed("tray") {
		cfg.UI.Tray = trayEnabled
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openedLink validates the optional gielenor:// argument the OS passes when
// the launcher is opened from a link
func openedLink(args []string) (*url.URL, error) {
	if len(args) == 0 {
		return nil, nil
	}
	if !protocol.IsLink(args[0]) {
		return nil, fmt.Errorf("unexpected argument %q", args[0])
	}
	return protocol.Parse(args[0])
}

func runLauncher(cmd *cobra.Command, args []string) error {
	link, err := openedLink(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := logging.Init(cfg.Log, cfg.DataDir); err != nil {
		return err
	}

	log.Infof("Gielenor launcher %s starting, data dir %s", version.Current(), cfg.DataDir)
	if link != nil {
		log.Infof("Opened from %s", link.Redacted())
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lock := instance.NewLock(filepath.Join(cfg.DataDir, lockFileName))
	if err := lock.Acquire(); err != nil {
		if errors.Is(err, instance.ErrAlreadyRunning) {
			log.Warn(err)
			return nil
		}
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			log.Warn(err)
		}
	}()

	if !cfg.DevMode {
		registerProtocol()
	}

	components := orchestrator.NewComponents(cfg)
	applier := selfupdate.NewApplier(os.Args[1:], lock.Release)

	session := func(sinks ui.Multi) error {
		sink := ui.NewAsync(sinks, cfg.UI.BufferSize)
		result, err := components.Orchestrator(sink, applier).Run(ctx)
		sink.Close()

		log.Infof("Launcher finished: %s", result)
		if err != nil {
			cmd.PrintErrln(err)
		}
		return err
	}

	sinks := ui.Multi{ui.NewLogSink()}
	if !cfg.UI.Tray {
		return session(sinks)
	}

	// The tray event loop takes over this goroutine; the session runs beside it
	t := tray.New(cancel)
	var sessionErr error
	t.Run(func() {
		sessionErr = session(append(sinks, t))
		if sessionErr == nil {
			return
		}
		t.Fail(sessionErr.Error())
		select {
		case <-ctx.Done():
		case <-time.After(failureLinger):
		}
	})
	return sessionErr
}

func registerProtocol() {
	exe, err := os.Executable()
	if err != nil {
		log.Warnf("Failed to locate launcher executable: %v", err)
		return
	}
	if err := protocol.Register(exe); err != nil {
		log.Warnf("Failed to register %s:// links: %v", protocol.Scheme, err)
	}
}
