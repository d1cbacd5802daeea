package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"mclaunch/internal/modloader"
	"mclaunch/internal/runner"
)

// toolRunner executes installer jars and processors.
var toolRunner runner.Runner = runner.CmdRunner{}

type loaderResult struct {
	Loader    string `json:"loader"`
	MCVersion string `json:"mc_version"`
	ID        string `json:"id"`
}

func newForgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forge <mc-version> [forge-version]",
		Short: "Install Forge (newest build for the game version when none is given)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoaderInstall(cmd, "forge", args)
		},
	}
}

func newFabricCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fabric <mc-version> [loader-version]",
		Short: "Install the Fabric loader (newest loader when none is given)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoaderInstall(cmd, "fabric", args)
		},
	}
}

func runLoaderInstall(cmd *cobra.Command, loader string, args []string) error {
	s, err := openSession(loader)
	if err != nil {
		return err
	}
	defer s.Close()

	mc := args[0]
	loaderVersion := ""
	if len(args) > 1 {
		loaderVersion = args[1]
	}

	p := s.pipeline()
	java := s.cfg.Game.JavaPath
	var id string
	err = s.runWithProgress(cmd, loader+" "+mc, func(ctx context.Context, hooks progressHooks) error {
		observe := func(n, total int, step modloader.Step) {
			hooks.step(loader, n, total, step.Name)
		}
		var err error
		switch loader {
		case "forge":
			f := modloader.NewForge(p, toolRunner, java, s.logger)
			f.OnStep = observe
			id, err = f.Install(ctx, mc, loaderVersion)
		default:
			f := modloader.NewFabric(p, toolRunner, java, s.logger)
			f.OnStep = observe
			id, err = f.Install(ctx, mc, loaderVersion)
		}
		return err
	})
	if err != nil {
		return err
	}

	if outputJSON {
		return writeJSON(cmd.OutOrStdout(), loaderResult{Loader: loader, MCVersion: mc, ID: id})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Installed %s for %s as %s\n", loader, mc, id)
	fmt.Fprintf(cmd.OutOrStdout(), "Launch it with: mclaunch launch %s\n", id)
	return nil
}
