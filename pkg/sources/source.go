// Package sources contains one adapter per job board. Every adapter
// normalizes its feed into models.JobPosting and applies the shared
// entry-level filter before handing results to the scrape engine.
package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"jobtrack/pkg/models"
)

// Source is a single job board adapter.
type Source interface {
	// Name identifies the adapter in logs and in the source column.
	Name() string

	// IsConfigured reports whether required credentials are present.
	// Unconfigured sources are skipped, not treated as errors.
	IsConfigured() bool

	// Fetch pulls and normalizes the board's current postings.
	Fetch(ctx context.Context) ([]models.JobPosting, error)
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// getJSON performs a GET and decodes the JSON body into dest. Callers pass
// extra headers through hdr.
func getJSON(ctx context.Context, client *http.Client, url string, hdr map[string]string, dest any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range hdr {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return resp.StatusCode, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp.StatusCode, nil
}
