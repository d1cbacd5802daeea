package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// FailedError reports a transport failure or a non-success response.
type FailedError struct {
	URL    string
	Status int
	Err    error
}

func (e *FailedError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("download %s: unexpected status %d %s", e.URL, e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("download %s: %v", e.URL, e.Err)
}

func (e *FailedError) Unwrap() error { return e.Err }

// Fetcher streams the body at url into w.
type Fetcher interface {
	Fetch(ctx context.Context, url string, w io.Writer) error
}

// HTTPFetcher is the default Fetcher.
type HTTPFetcher struct {
	Client    *http.Client
	UserAgent string
}

func (f HTTPFetcher) Fetch(ctx context.Context, url string, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &FailedError{URL: url, Err: fmt.Errorf("create request: %w", err)}
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return &FailedError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &FailedError{URL: url, Status: resp.StatusCode}
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return &FailedError{URL: url, Err: fmt.Errorf("read body: %w", err)}
	}
	return nil
}

var _ Fetcher = HTTPFetcher{}

func asFailed(url string, err error) error {
	var failed *FailedError
	if errors.As(err, &failed) {
		return err
	}
	return &FailedError{URL: url, Err: err}
}
