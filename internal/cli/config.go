package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"mclaunch/internal/config"
	"mclaunch/internal/paths"
)

var configInitForce bool

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the launcher configuration",
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigInitCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE:  runConfigShow,
	}
}

func newConfigInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		RunE:  runConfigInit,
	}
	cmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing configuration")
	return cmd
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	layout, err := paths.Resolve(rootDir, "")
	if err != nil {
		return err
	}
	path := effectiveConfigPath(layout)

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if platformName != "" {
		cfg.Platform = platformName
	}

	data, err := cfg.Marshal(path)
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), string(data))
	if len(data) == 0 || data[len(data)-1] != '\n' {
		fmt.Fprintln(cmd.OutOrStdout())
	}
	return nil
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	layout, err := paths.Resolve(rootDir, "")
	if err != nil {
		return err
	}
	if err := layout.EnsureRoot(); err != nil {
		return err
	}
	path := effectiveConfigPath(layout)

	exists, err := paths.FileExists(path)
	if err != nil {
		return err
	}
	if exists && !configInitForce {
		return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
	}

	cfg := config.Default()
	if platformName != "" {
		cfg.Platform = platformName
	}
	if err := cfg.Save(path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}
