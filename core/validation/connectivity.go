package validation

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// ConnectivityResult is the outcome of a reachability probe.
type ConnectivityResult struct {
	Reachable  bool
	StatusCode int
	Latency    time.Duration
	Error      error
}

// CheckReachable sends a GET to rawURL. Any HTTP response counts as
// reachable; only transport failures do not.
func CheckReachable(ctx context.Context, client *http.Client, rawURL string) ConnectivityResult {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ConnectivityResult{Error: fmt.Errorf("invalid URL %q", rawURL)}
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return ConnectivityResult{Error: err}
	}

	start := time.Now()
	resp, err := client.Do(req)
	latency := time.Since(start)
	if err != nil {
		return ConnectivityResult{Latency: latency, Error: fmt.Errorf("%s unreachable: %w", u.Host, err)}
	}
	resp.Body.Close()

	return ConnectivityResult{Reachable: true, StatusCode: resp.StatusCode, Latency: latency}
}
