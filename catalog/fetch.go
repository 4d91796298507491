package catalog

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"
)

// Fetcher downloads the ATT&CK STIX bundle over HTTP and caches it on disk
// so repeat runs do not re-download the ~40MB bundle.
type Fetcher struct {
	// URL is the bundle location. Defaults to DefaultSTIXURL.
	URL string

	// CachePath is the local file the bundle is cached at. Empty disables
	// caching.
	CachePath string

	// Timeout bounds the HTTP request. Defaults to 60s.
	Timeout time.Duration

	// Client is the HTTP client to use. Defaults to http.DefaultClient.
	Client *http.Client
}

// Fetch returns a Catalog for the given framework version, reading the
// on-disk cache when present (unless force is set) and downloading the STIX
// bundle otherwise.
func (f *Fetcher) Fetch(ctx context.Context, version string, force bool) (*Catalog, error) {
	if f.CachePath != "" && !force {
		if file, err := os.Open(f.CachePath); err == nil {
			defer file.Close()
			return LoadSTIX(file, version)
		}
	}

	url := f.URL
	if url == "" {
		url = DefaultSTIXURL
	}
	timeout := f.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("catalog: build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog: download STIX bundle: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog: download STIX bundle: status %d", resp.StatusCode)
	}

	if f.CachePath == "" {
		return LoadSTIX(resp.Body, version)
	}

	// Write through the cache, then parse the cached copy so the file and
	// the loaded catalog always agree.
	tmp, err := os.CreateTemp("", "attackmap-stix-*.json")
	if err != nil {
		return nil, fmt.Errorf("catalog: cache bundle: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.ReadFrom(resp.Body); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("catalog: cache bundle: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("catalog: cache bundle: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.CachePath); err != nil {
		return nil, fmt.Errorf("catalog: cache bundle: %w", err)
	}

	file, err := os.Open(f.CachePath)
	if err != nil {
		return nil, fmt.Errorf("catalog: open cached bundle: %w", err)
	}
	defer file.Close()
	return LoadSTIX(file, version)
}
