package download

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"mclaunch/internal/logx"
	"mclaunch/internal/paths"
)

// DefaultConcurrency bounds parallel fetches when the caller does not.
const DefaultConcurrency = 5

// Task is one artifact to materialise at Dest.
type Task struct {
	URL  string
	Dest string
}

// Progress is a snapshot of a batch. Reporting never affects correctness.
type Progress struct {
	Label    string
	Done     int
	Total    int
	URL      string
	Skipped  bool
	Finished bool
	Err      error
}

// Reporter receives progress for every task and once more when the batch ends.
type Reporter interface {
	Report(Progress)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(Progress)

func (f ReporterFunc) Report(p Progress) { f(p) }

// Manager fetches batches of tasks through a bounded worker pool.
type Manager struct {
	Fetcher     Fetcher
	Concurrency int
	Reporter    Reporter
	Logger      *log.Logger
}

// NewManager builds a manager over an HTTP fetcher.
func NewManager(userAgent string, concurrency int, reporter Reporter, logger *log.Logger) *Manager {
	return &Manager{
		Fetcher:     HTTPFetcher{UserAgent: userAgent},
		Concurrency: concurrency,
		Reporter:    reporter,
		Logger:      logger,
	}
}

// FetchAll materialises every task. Destinations that already exist are
// skipped and reported complete without a request. The first failure cancels
// the remaining tasks and is returned; completed files stay in place so a
// retry resumes where this run stopped.
func (m *Manager) FetchAll(ctx context.Context, label string, tasks []Task) error {
	logger := logx.OrDiscard(m.Logger)
	tasks = dedupe(tasks)
	total := len(tasks)

	var (
		mu   sync.Mutex
		done int
	)
	report := func(p Progress) {
		if m.Reporter != nil {
			m.Reporter.Report(p)
		}
	}
	complete := func(task Task, skipped bool) {
		mu.Lock()
		defer mu.Unlock()
		done++
		report(Progress{Label: label, Done: done, Total: total, URL: task.URL, Skipped: skipped})
	}

	logger.Info("fetch batch", "label", label, "tasks", total)
	report(Progress{Label: label, Total: total})

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency())
	for _, task := range tasks {
		if exists, _ := paths.FileExists(task.Dest); exists {
			logger.Debug("skip existing", "dest", task.Dest)
			complete(task, true)
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := m.fetchToFile(gctx, task.URL, task.Dest); err != nil {
				return err
			}
			logger.Debug("fetched", "url", task.URL, "dest", task.Dest)
			complete(task, false)
			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		logger.Error("fetch batch failed", "label", label, "err", err)
	}
	mu.Lock()
	report(Progress{Label: label, Done: done, Total: total, Finished: true, Err: err})
	mu.Unlock()
	return err
}

// Fetch materialises a single artifact.
func (m *Manager) Fetch(ctx context.Context, url, dest string) error {
	return m.FetchAll(ctx, filepath.Base(dest), []Task{{URL: url, Dest: dest}})
}

// Get returns the body at url without touching disk. Used for small metadata
// documents that are never cached.
func (m *Manager) Get(ctx context.Context, url string) ([]byte, error) {
	var buf bytes.Buffer
	if err := m.fetcher().Fetch(ctx, url, &buf); err != nil {
		return nil, asFailed(url, err)
	}
	return buf.Bytes(), nil
}

func (m *Manager) fetchToFile(ctx context.Context, url, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("prepare download destination: %w", err)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(dest), ".download-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if err := m.fetcher().Fetch(ctx, url, tmpFile); err != nil {
		tmpFile.Close()
		if errors.Is(err, context.Canceled) {
			return err
		}
		return asFailed(url, err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("finalize download: %w", err)
	}
	return nil
}

func (m *Manager) fetcher() Fetcher {
	if m.Fetcher == nil {
		return HTTPFetcher{}
	}
	return m.Fetcher
}

func (m *Manager) concurrency() int {
	if m.Concurrency <= 0 {
		return DefaultConcurrency
	}
	return m.Concurrency
}

// dedupe drops tasks whose destination already appears earlier in the batch.
func dedupe(tasks []Task) []Task {
	seen := make(map[string]struct{}, len(tasks))
	out := make([]Task, 0, len(tasks))
	for _, task := range tasks {
		if _, ok := seen[task.Dest]; ok {
			continue
		}
		seen[task.Dest] = struct{}{}
		out = append(out, task)
	}
	return out
}
