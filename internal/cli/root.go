// Package cli provides the command-line interface for portside.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/portside-app/portside/internal/app"
	"github.com/portside-app/portside/internal/config"
	"github.com/portside-app/portside/internal/logging"
	"github.com/portside-app/portside/internal/models"
	"github.com/portside-app/portside/internal/remote"
	"github.com/portside-app/portside/internal/version"
)

var (
	// Global flags
	cfgFile string
	verbose bool

	// Global logger
	logger *logging.Logger

	// Global context for signal handling
	rootContext context.Context
	cancelFunc  context.CancelFunc

	// dialer supplies protocol clients. main.go installs the real one via
	// SetDialer; the default refuses to connect so commands that never
	// touch the network still work in builds without a driver.
	dialer remote.Dialer = remote.DialerFunc(func(ctx context.Context, host models.Host) (remote.Client, error) {
		return nil, fmt.Errorf("no %s driver installed in this build", host.Protocol)
	})
)

// SetDialer installs the protocol driver used for all remote connections.
// Must be called before Execute.
func SetDialer(d remote.Dialer) {
	if d != nil {
		dialer = d
	}
}

// NewRootCmd creates the root command for CLI mode.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "portside",
		Short: "Portside - dual-pane FTP/SFTP transfer client",
		Long: `Portside ` + version.Version + ` - Built: ` + version.BuildTime + `
Dual-pane file transfer client for FTP and SFTP servers.

Manage saved hosts, browse local and remote directories, and run
resumable uploads and downloads with conflict handling and history.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Initialize logger
			logger = logging.NewDefaultCLILogger()
			if verbose {
				logging.SetGlobalLevel(-1) // Debug level (zerolog.DebugLevel)
			}
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (shows debug messages)")

	rootCmd.Version = version.Version + " (" + version.BuildTime + ")"

	return rootCmd
}

// Execute runs the CLI.
func Execute() error {
	// Create a context that can be cancelled by signals
	rootContext, cancelFunc = context.WithCancel(context.Background())

	// Set up signal handling for graceful cancellation
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		for sig := range sigChan {
			if sig != nil {
				fmt.Fprintf(os.Stderr, "\nReceived signal %v, cancelling operations...\n", sig)
				cancelFunc()
			}
		}
	}()

	rootCmd := NewRootCmd()
	AddCommands(rootCmd)
	err := rootCmd.Execute()

	// Clean up signal handler
	signal.Stop(sigChan)
	close(sigChan)

	return err
}

// AddCommands adds all subcommands to the root command.
func AddCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newHostsCmd())
	rootCmd.AddCommand(newBookmarksCmd())
	rootCmd.AddCommand(newLsCmd())
	rootCmd.AddCommand(newLlsCmd())
	rootCmd.AddCommand(newUploadCmd())
	rootCmd.AddCommand(newDownloadCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newCancelCmd())
	rootCmd.AddCommand(newConfigCmd())
}

// GetLogger returns the global CLI logger.
func GetLogger() *logging.Logger {
	if logger == nil {
		logger = logging.NewDefaultCLILogger()
	}
	return logger
}

// GetContext returns the global CLI context with signal handling.
// This context will be cancelled when the user presses Ctrl+C.
func GetContext() context.Context {
	if rootContext == nil {
		return context.Background()
	}
	return rootContext
}

// buildApp loads configuration and wires the application for one command
// invocation. Callers must defer a.Shutdown().
func buildApp() (*app.App, error) {
	cfg, err := config.LoadOrDefault(cfgFile)
	if err != nil {
		return nil, err
	}
	// --verbose wins over the configured level.
	if !verbose {
		logging.SetLevelFromString(cfg.Logging.Level)
	}
	a, err := app.New(cfg, dialer, GetLogger())
	if err != nil {
		return nil, err
	}
	if err := a.Startup(); err != nil {
		a.Shutdown()
		return nil, err
	}
	return a, nil
}
