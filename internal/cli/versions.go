package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"mclaunch/internal/catalog"
	"mclaunch/internal/tui"
)

var (
	versionsType  string
	versionsLimit int
)

type versionRow struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	ReleaseTime string `json:"release_time"`
	Installed   bool   `json:"installed"`
}

func newVersionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "versions [query]",
		Short: "List catalog versions, optionally fuzzy-filtered by query",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runVersions,
	}
	cmd.Flags().StringVar(&versionsType, "type", "", "Only show this type (release, snapshot, old_beta, old_alpha)")
	cmd.Flags().IntVar(&versionsLimit, "limit", 0, "Show at most this many versions (0 for all)")
	return cmd
}

func runVersions(cmd *cobra.Command, args []string) error {
	s, err := openSession("versions")
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var status *tui.StatusWriter
	if tui.DetectMode(cmd.ErrOrStderr(), noProgress, outputJSON) == tui.ModeTUI {
		status = tui.NewStatusWriter(cmd.ErrOrStderr())
		status.Update("Loading version catalog")
		s.downloads.Reporter = status
	}
	p := s.pipeline()
	c, err := p.Catalog(ctx)
	if status != nil {
		status.Stop()
		s.downloads.Reporter = nil
	}
	if err != nil {
		return err
	}

	query := ""
	if len(args) == 1 {
		query = args[0]
	}
	matches := c.Search(query, versionsType)
	if versionsLimit > 0 && len(matches) > versionsLimit {
		matches = matches[:versionsLimit]
	}

	rows := make([]versionRow, len(matches))
	for i, v := range matches {
		rows[i] = versionRow{
			ID:          v.ID,
			Type:        v.Type,
			ReleaseTime: v.ReleaseTime,
			Installed:   p.Installed(v.ID),
		}
	}

	if outputJSON {
		return writeJSON(cmd.OutOrStdout(), rows)
	}
	writeVersionsTable(cmd.OutOrStdout(), c, rows)
	return nil
}

func writeVersionsTable(out io.Writer, c *catalog.Catalog, rows []versionRow) {
	fmt.Fprintf(out, "Latest release: %s  snapshot: %s\n", tui.NonEmptyOrDash(c.LatestRelease), tui.NonEmptyOrDash(c.LatestSnapshot))

	w := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tRELEASED\tINSTALLED")
	for _, row := range rows {
		installed := ""
		if row.Installed {
			installed = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", row.ID, row.Type, tui.NonEmptyOrDash(row.ReleaseTime), tui.NonEmptyOrDash(installed))
	}
	w.Flush()
}
