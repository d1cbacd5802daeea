package cli

import (
	"context"
	"errors"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"mclaunch/internal/runner"
)

// Version is stamped at build time.
var Version = "dev"

var (
	rootDir      string
	configPath   string
	platformName string
	outputJSON   bool
	noProgress   bool
	verbose      bool

	// catalogURL overrides the version catalog location; tests point it at
	// an httptest server.
	catalogURL string
)

// Execute runs the root cobra command.
func Execute() {
	if err := fang.Execute(
		context.Background(),
		newRootCmd(),
		fang.WithVersion(Version),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *runner.ExitError
		if errors.As(err, &exitErr) && exitErr.Code > 0 {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "mclaunch",
		Short:         "Install and launch Minecraft versions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&rootDir, "root", "", "Launcher root directory (default ./.minecraft)")
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to launcher config (default <root>/launcher.yaml)")
	cmd.PersistentFlags().StringVar(&platformName, "platform", "", "Override the detected platform (linux, windows-x64, mac-os-arm64, ...)")
	cmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output machine-readable JSON")
	cmd.PersistentFlags().BoolVar(&noProgress, "no-progress", false, "Disable interactive progress rendering")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Write debug-level logs")

	cmd.AddCommand(newInstallCmd())
	cmd.AddCommand(newLaunchCmd())
	cmd.AddCommand(newForgeCmd())
	cmd.AddCommand(newFabricCmd())
	cmd.AddCommand(newVersionsCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}
