package health

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

var httpClient = &http.Client{Timeout: 2 * time.Second}

// CheckHTTPServer returns a Check that GETs address+healthPath and passes on
// any 2xx answer.
func CheckHTTPServer(address string, healthPath string) func(context.Context, bool) (int, string, error) {
	url := strings.TrimSuffix(address, "/") + "/" + strings.TrimPrefix(healthPath, "/")

	return func(ctx context.Context, _ bool) (int, string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return http.StatusServiceUnavailable, fmt.Sprintf("HTTP server at %s failed to create request", address), err
		}

		resp, err := httpClient.Do(req)
		if err != nil {
			return http.StatusServiceUnavailable, fmt.Sprintf("HTTP server at %s not accepting connections", address), err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return http.StatusServiceUnavailable, fmt.Sprintf("HTTP server at %s returned status %d", address, resp.StatusCode), nil
		}

		return http.StatusOK, fmt.Sprintf("HTTP server at %s is listening and accepting requests", address), nil
	}
}

// CheckListener returns a Check that passes when a TCP connection to addr can
// be opened.
func CheckListener(addr string) func(context.Context, bool) (int, string, error) {
	return func(ctx context.Context, _ bool) (int, string, error) {
		d := net.Dialer{Timeout: 2 * time.Second}

		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return http.StatusServiceUnavailable, fmt.Sprintf("nothing listening on %s", addr), err
		}

		_ = conn.Close()

		return http.StatusOK, fmt.Sprintf("listening on %s", addr), nil
	}
}
