package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"mclaunch/internal/version"
)

type installResult struct {
	ID        string   `json:"id"`
	Type      string   `json:"type,omitempty"`
	Chain     []string `json:"chain"`
	MainClass string   `json:"main_class"`
	Runtime   string   `json:"runtime"`
	Libraries int      `json:"libraries"`
	Natives   int      `json:"natives"`
	Client    string   `json:"client"`
}

func newInstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install <version>",
		Short: "Install a version from the catalog (latest-release and latest-snapshot accepted)",
		Args:  cobra.ExactArgs(1),
		RunE:  runInstall,
	}
}

func runInstall(cmd *cobra.Command, args []string) error {
	s, err := openSession("install")
	if err != nil {
		return err
	}
	defer s.Close()

	p := s.pipeline()
	var installed *version.Version
	err = s.runWithProgress(cmd, "install "+args[0], func(ctx context.Context, _ progressHooks) error {
		v, err := p.Install(ctx, args[0])
		installed = v
		return err
	})
	if err != nil {
		return err
	}

	res := installResult{
		ID:        installed.ID,
		Type:      installed.Type,
		Chain:     installed.Chain,
		MainClass: installed.MainClass,
		Runtime:   installed.JavaComponent,
		Libraries: len(installed.Libraries),
		Natives:   len(installed.Natives),
		Client:    s.layout.ClientJar(installed.ID),
	}
	if outputJSON {
		return writeJSON(cmd.OutOrStdout(), res)
	}
	writeInstallResult(cmd.OutOrStdout(), res)
	return nil
}

func writeInstallResult(w io.Writer, res installResult) {
	fmt.Fprintf(w, "Installed %s", res.ID)
	if len(res.Chain) > 1 {
		fmt.Fprintf(w, " (%s)", strings.Join(res.Chain, " -> "))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  runtime:   %s\n", res.Runtime)
	fmt.Fprintf(w, "  libraries: %d\n", res.Libraries)
	fmt.Fprintf(w, "  natives:   %d\n", res.Natives)
	fmt.Fprintf(w, "  client:    %s\n", res.Client)
}
