package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mclaunch/internal/launch"
	"mclaunch/internal/runner"
)

var (
	launchDryRun   bool
	launchUsername string
	launchRunner   runner.Runner = runner.CmdRunner{}
)

type launchResult struct {
	Executable string   `json:"executable"`
	Args       []string `json:"args"`
	Dir        string   `json:"dir"`
}

func newLaunchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "launch <version>",
		Short: "Assemble the invocation for an installed version and run it",
		Args:  cobra.ExactArgs(1),
		RunE:  runLaunch,
	}
	cmd.Flags().BoolVar(&launchDryRun, "dry-run", false, "Print the command instead of running it")
	cmd.Flags().StringVar(&launchUsername, "username", "", "Override the configured player name")
	return cmd
}

func runLaunch(cmd *cobra.Command, args []string) error {
	s, err := openSession("launch")
	if err != nil {
		return err
	}
	defer s.Close()

	id := args[0]
	p := s.pipeline()
	if !p.Installed(id) {
		return fmt.Errorf("version %s is not installed; run `mclaunch install %s` first", id, id)
	}
	v, err := p.Resolver().Resolve(id)
	if err != nil {
		return err
	}

	game := s.cfg.Game
	if launchUsername != "" {
		game.Username = launchUsername
	}
	inv, err := launch.NewAssembler(s.layout, s.cfg, s.logger).Assemble(v, game)
	if err != nil {
		return err
	}

	if launchDryRun {
		if outputJSON {
			return writeJSON(cmd.OutOrStdout(), launchResult{Executable: inv.Executable, Args: inv.Args, Dir: inv.Dir})
		}
		fmt.Fprintln(cmd.OutOrStdout(), inv.String())
		return nil
	}

	s.logger.Info("launching", "version", id, "dir", inv.Dir)
	_, err = launchRunner.Run(cmd.Context(), inv.Executable, inv.Args, runner.RunOptions{
		Dir:    inv.Dir,
		Stdin:  os.Stdin,
		Stdout: cmd.OutOrStdout(),
		Stderr: cmd.ErrOrStderr(),

		Passthrough: true,
	})
	if err != nil {
		s.logger.Error("game exited", "version", id, "err", err)
		return err
	}
	return nil
}
