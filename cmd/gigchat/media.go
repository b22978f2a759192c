package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"gigchat/internal/constants"
)

// mediaFetcher retrieves uploaded media by URL, capped at the document
// size limit so a bad link cannot balloon memory.
type mediaFetcher struct {
	client *http.Client
}

func newMediaFetcher() *mediaFetcher {
	return &mediaFetcher{
		client: &http.Client{Timeout: constants.DefaultHTTPTimeoutSec * time.Second},
	}
}

func (f *mediaFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create media request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("media request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("media fetch failed with status %d", resp.StatusCode)
	}

	limit := int64(constants.DefaultMaxDocumentSizeMB) * 1024 * 1024
	return io.ReadAll(io.LimitReader(resp.Body, limit))
}
