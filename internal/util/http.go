package util

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const maxDownload = 8 << 20

var client = &http.Client{Timeout: 12 * time.Second}

// GetBytes downloads url and fails on any non-200 status.
func GetBytes(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get %s: status %d", url, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxDownload))
}
