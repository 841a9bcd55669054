// Package crtsh fetches the current hostname set for a domain from the
// crt.sh certificate-transparency aggregator.
package crtsh

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/subwatch/subwatch/internal/domain"
	"github.com/subwatch/subwatch/internal/logger"
)

// DefaultBaseURL is the public crt.sh endpoint.
const DefaultBaseURL = "https://crt.sh"

// entry mirrors one element of the crt.sh JSON response. name_value carries
// one or more newline-separated names; entry_timestamp is preferred over
// not_before when both are present.
type entry struct {
	NameValue      string `json:"name_value"`
	EntryTimestamp string `json:"entry_timestamp"`
	NotBefore      string `json:"not_before"`
}

// crt.sh reports timestamps without a zone, with or without fractional
// seconds.
var timeLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	log     logger.Logger
}

// New builds a crt.sh client. minGap spaces successive requests so N
// concurrent domain cycles do not hammer the aggregator; timeout bounds each
// fetch end to end.
func New(baseURL string, timeout, minGap time.Duration, log logger.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if minGap <= 0 {
		minGap = time.Second
	}
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Every(minGap), 1),
		log:     log,
	}
}

// Fetch returns the normalized hostname set currently visible in the
// certificate logs for domainName, mapped to the earliest log timestamp seen
// per hostname (nil when the log carried none). The caller treats any error
// as "zero hostnames found".
func (c *Client) Fetch(ctx context.Context, domainName string) (map[string]*time.Time, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	q := url.Values{}
	q.Set("q", "%."+domainName)
	q.Set("output", "json")
	reqURL := c.baseURL + "/?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", domainName, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("fetch %s: unexpected status %d", domainName, resp.StatusCode)
	}

	var entries []entry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode response for %s: %w", domainName, err)
	}

	hostnames := collect(entries, domainName)
	c.log.Info("fetched hostnames from crt.sh",
		logger.String("domain", domainName),
		logger.Int("count", len(hostnames)))
	return hostnames, nil
}

// collect normalizes every candidate name and keeps, per hostname, the
// earliest non-empty timestamp across all log entries that mention it.
func collect(entries []entry, domainName string) map[string]*time.Time {
	out := make(map[string]*time.Time)
	for _, e := range entries {
		ts := entryTime(e)
		for _, raw := range strings.Split(e.NameValue, "\n") {
			hostname, ok := domain.NormalizeCandidate(raw, domainName)
			if !ok {
				continue
			}
			existing, seen := out[hostname]
			switch {
			case !seen:
				out[hostname] = ts
			case ts != nil && (existing == nil || ts.Before(*existing)):
				out[hostname] = ts
			}
		}
	}
	return out
}

func entryTime(e entry) *time.Time {
	if t := parseTime(e.EntryTimestamp); t != nil {
		return t
	}
	return parseTime(e.NotBefore)
}

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
