package contentpipe

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// newFetchClient builds the HTTP client for manuscript downloads, with a
// redirect cap and SSRF validation on every hop.
func newFetchClient(cfg *Config) *http.Client {
	return &http.Client{
		Timeout: cfg.FetchTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("too many redirects (%d)", len(via))
			}
			if err := cfg.URLValidator(req.URL.String()); err != nil {
				return fmt.Errorf("redirect blocked: %w", err)
			}
			return nil
		},
	}
}

// fetchManuscript downloads the manuscript bytes. Non-2xx responses and
// oversized bodies are errors.
func (p *Pipeline) fetchManuscript(ctx context.Context, rawURL string) ([]byte, error) {
	if err := p.cfg.URLValidator(rawURL); err != nil {
		return nil, fmt.Errorf("manuscript url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch manuscript: %w", err)
	}
	req.Header.Set("User-Agent", p.cfg.UserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch manuscript: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch manuscript: http %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, p.cfg.MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("fetch manuscript: read body: %w", err)
	}
	if int64(len(body)) > p.cfg.MaxFileSize {
		return nil, fmt.Errorf("manuscript too large: exceeds %d bytes", p.cfg.MaxFileSize)
	}
	return body, nil
}
