package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"mclaunch/internal/config"
	"mclaunch/internal/download"
	"mclaunch/internal/install"
	"mclaunch/internal/logx"
	"mclaunch/internal/paths"
	"mclaunch/internal/tui"
)

// session is the state every command shares: the resolved layout, the
// effective configuration, a log file and the download manager.
type session struct {
	layout    paths.Layout
	cfg       config.Config
	logger    *log.Logger
	closer    io.Closer
	downloads *download.Manager
}

func openSession(logPrefix string) (*session, error) {
	base, err := paths.Resolve(rootDir, "")
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(effectiveConfigPath(base))
	if err != nil {
		return nil, err
	}
	if platformName != "" {
		cfg.Platform = platformName
	}
	layout := base.WithPlatform(cfg.PlatformContext().Name)
	if err := layout.EnsureRoot(); err != nil {
		return nil, err
	}

	logger, closer, err := logx.New(layout.LogsDir, logPrefix, verbose)
	if err != nil {
		return nil, err
	}
	logger.Info("session", "root", layout.Root, "platform", layout.Platform)

	return &session{
		layout:    layout,
		cfg:       cfg,
		logger:    logger,
		closer:    closer,
		downloads: download.NewManager(cfg.Downloads.UserAgent, cfg.Downloads.Concurrency, nil, logger),
	}, nil
}

func (s *session) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

func (s *session) pipeline() *install.Pipeline {
	p := install.New(s.layout, s.cfg, s.downloads, s.logger)
	p.CatalogURL = catalogURL
	return p
}

func effectiveConfigPath(layout paths.Layout) string {
	if configPath != "" {
		return configPath
	}
	return layout.ConfigFile
}

// progressHooks lets long-running work publish step names next to the
// download batches.
type progressHooks struct {
	step func(loader string, n, total int, name string)
}

// runWithProgress runs work with the download reporter that matches the
// output mode: a live table on terminals, one line per batch otherwise and
// nothing at all in JSON mode.
func (s *session) runWithProgress(cmd *cobra.Command, title string, work func(ctx context.Context, hooks progressHooks) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	switch tui.DetectMode(cmd.OutOrStdout(), noProgress, outputJSON) {
	case tui.ModeTUI:
		model := tui.NewProgressModel(title, tui.InstallColumns)
		return tui.RunWithWork(cmd.OutOrStdout(), model, func(send func(tea.Msg)) error {
			s.downloads.Reporter = tui.NewBatchReporter(send)
			defer func() { s.downloads.Reporter = nil }()
			return work(ctx, progressHooks{step: func(loader string, n, total int, name string) {
				send(tui.StepRow(loader, n, total, name))
			}})
		})
	case tui.ModePlain:
		errOut := cmd.ErrOrStderr()
		s.downloads.Reporter = tui.NewLineReporter(errOut)
		defer func() { s.downloads.Reporter = nil }()
		return work(ctx, progressHooks{step: func(loader string, n, total int, name string) {
			fmt.Fprintf(errOut, "%s: step %d/%d %s\n", loader, n, total, name)
		}})
	default:
		return work(ctx, progressHooks{step: func(string, int, int, string) {}})
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
