// Package cli provides the goras command-line interface.
// It lists the active remote access connections of the host, shows their
// status and statistics, hangs them up, and runs the live monitor and the
// Prometheus exporter.
package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/yllada/goras/backend"
	"github.com/yllada/goras/common"
	"github.com/yllada/goras/config"
	"github.com/yllada/goras/ras"
)

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// Installer opens the named backend and makes it the default locator.
type Installer func(name string, logger common.Logger) (*ras.Locator, io.Closer, error)

// App holds the state shared by the commands of one invocation.
type App struct {
	build   BuildInfo
	install Installer
	logger  common.Logger

	// Persistent flags.
	configPath string
	backend    string
	output     string
	logLevel   string

	config *config.Config
	closer io.Closer
}

// New creates the CLI application.
func New(build BuildInfo) *App {
	return &App{
		build:   build,
		install: backend.Install,
	}
}

// Execute runs the command line with args and releases the backend.
func (a *App) Execute(ctx context.Context, args []string) error {
	root := a.RootCmd()
	root.SetArgs(args)
	defer a.Close()
	return root.ExecuteContext(ctx)
}

// Close releases the backend, if one was opened.
func (a *App) Close() error {
	if a.closer == nil {
		return nil
	}
	err := a.closer.Close()
	a.closer = nil
	return err
}

// RootCmd builds the command tree.
func (a *App) RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   common.AppName,
		Short: "Inspect and control remote access connections",
		Long: `goras lists the active dial-up, VPN and broadband connections of this
host, reports their status and link statistics, and hangs them up.

On Windows it talks to the Remote Access Service. On Linux it uses
NetworkManager over the system D-Bus.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (default is the user config directory)")
	root.PersistentFlags().StringVar(&a.backend, "backend", "", "Backend: auto, rasapi or networkmanager")
	root.PersistentFlags().StringVarP(&a.output, "output", "o", "", "Output format: table or json")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn or error")

	_ = root.RegisterFlagCompletionFunc("backend", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{common.BackendAuto, common.BackendRasAPI, common.BackendNetworkManager}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = root.RegisterFlagCompletionFunc("output", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{common.OutputTable, common.OutputJSON}, cobra.ShellCompDirectiveNoFileComp
	})

	root.AddCommand(
		a.newListCmd(),
		a.newStatusCmd(),
		a.newStatsCmd(),
		a.newClearCmd(),
		a.newHangUpCmd(),
		a.newWatchCmd(),
		a.newHistoryCmd(),
		a.newExporterCmd(),
		a.newVersionCmd(),
	)
	return root
}

// setup loads the configuration, applies flag overrides and initializes
// logging.
func (a *App) setup(cmd *cobra.Command, _ []string) error {
	var (
		cfg *config.Config
		err error
	)
	if a.configPath != "" {
		cfg, err = config.LoadFrom(a.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	if a.backend != "" {
		if !common.StringInSlice(a.backend, []string{common.BackendAuto, common.BackendRasAPI, common.BackendNetworkManager}) {
			return fmt.Errorf("%w: unknown backend %q", common.ErrInvalidArgument, a.backend)
		}
		cfg.Backend = a.backend
	}
	if a.output != "" {
		if !common.StringInSlice(a.output, []string{common.OutputTable, common.OutputJSON}) {
			return fmt.Errorf("%w: unsupported output format %q, must be one of: table, json", common.ErrInvalidArgument, a.output)
		}
		cfg.Output = a.output
	}
	if a.logLevel != "" {
		if _, err := common.ParseLogLevel(a.logLevel); err != nil {
			return fmt.Errorf("%w: %w", common.ErrInvalidArgument, err)
		}
		cfg.LogLevel = a.logLevel
	}
	a.config = cfg

	if a.logger == nil {
		if err := common.InitLogger(cfg.LogConfig()); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: Could not initialize file logging: %v\n", err)
		}
		a.logger = common.GetLogger()
	}
	a.logger.Debug("Configuration loaded (backend: %s, output: %s)", cfg.Backend, cfg.Output)
	return nil
}

// enumerator opens the backend on first use and returns an enumerator bound
// to the default locator.
func (a *App) enumerator() (*ras.Enumerator, error) {
	if a.closer == nil {
		_, closer, err := a.install(a.config.Backend, a.logger)
		if err != nil {
			if backend.IsUnsupported(err) {
				return nil, fmt.Errorf("no remote access backend is available on this host: %w", err)
			}
			return nil, err
		}
		a.closer = closer
	}
	return ras.DefaultEnumerator()
}

// find resolves a connection by entry name or handle.
func (a *App) find(key string) (*ras.Connection, error) {
	e, err := a.enumerator()
	if err != nil {
		return nil, err
	}
	return e.FindConnection(key)
}

// keepRotatingLogs checks the log file size every minute until ctx is done.
func (a *App) keepRotatingLogs(ctx context.Context) {
	l, ok := a.logger.(*common.AppLogger)
	if !ok {
		return
	}
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.CheckRotation()
			}
		}
	}()
}

func (a *App) jsonOutput() bool {
	return a.config.Output == common.OutputJSON
}

func (a *App) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("%s v%s\n", common.AppName, a.build.Version)
			if a.build.BuildTime != "" && a.build.BuildTime != "unknown" {
				cmd.Printf("  Build:  %s\n", a.build.BuildTime)
				cmd.Printf("  Commit: %s\n", a.build.Commit)
			}
		},
	}
}
