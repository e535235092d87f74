// Package sources provides the event source adapters the aggregator queries.
package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"bist-takvim/internal/calendar"
	"bist-takvim/internal/config"
)

// userAgent is sent with every source request.
const userAgent = "Mozilla/5.0 (X11; Linux x86_64) bist-takvim/1.0"

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 4 << 20

// FromConfig builds the enabled sources in configured order. Order is the
// merge priority used by the aggregator.
func FromConfig(cfgs []config.SourceConfig, client *http.Client) ([]calendar.Source, error) {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	var out []calendar.Source
	for _, c := range cfgs {
		if !c.Enabled {
			continue
		}
		switch c.Kind {
		case "html":
			out = append(out, NewHTMLSource(c, client))
		case "feed":
			out = append(out, NewFeedSource(c, client))
		default:
			return nil, fmt.Errorf("source %q: unknown kind %q", c.Name, c.Kind)
		}
	}
	return out, nil
}

// newLimiter allows one request per interval, or unlimited when interval is 0.
func newLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// symbolURL substitutes the symbol into a URL template.
func symbolURL(template, symbol string) string {
	if !strings.Contains(template, "%s") {
		return template
	}
	return fmt.Sprintf(template, url.PathEscape(symbol))
}

// get performs a GET and returns the body of a 2xx response. The caller closes it.
func get(ctx context.Context, client *http.Client, limiter *rate.Limiter, target, accept string) (io.ReadCloser, error) {
	if err := limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Language", "tr-TR,tr;q=0.9,en;q=0.5")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: status %d", target, resp.StatusCode)
	}

	return struct {
		io.Reader
		io.Closer
	}{io.LimitReader(resp.Body, maxBodyBytes), resp.Body}, nil
}
