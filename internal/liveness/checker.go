// Package liveness answers "does this domain still resolve and respond".
// Used when an operator adds a domain and to annotate the domain list.
package liveness

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/miekg/dns"

	"github.com/subwatch/subwatch/internal/logger"
	redisstore "github.com/subwatch/subwatch/internal/store/redis"
)

type Checker struct {
	resolver string // ex: "8.8.8.8:53"
	dns      *dns.Client
	http     *http.Client
	cache    *redisstore.Cache // nil = uncached
	cacheTTL time.Duration
	log      logger.Logger

	// probe is swappable in tests.
	probe func(ctx context.Context, domainName string) bool
}

// New builds a Checker. cache may be nil; every check then hits the network.
func New(resolver string, probeTimeout time.Duration, cache *redisstore.Cache, cacheTTL time.Duration, log logger.Logger) *Checker {
	if probeTimeout <= 0 {
		probeTimeout = 5 * time.Second
	}
	c := &Checker{
		resolver: resolver,
		dns:      &dns.Client{Timeout: probeTimeout},
		http: &http.Client{
			Timeout: probeTimeout,
		},
		cache:    cache,
		cacheTTL: cacheTTL,
		log:      log,
	}
	c.probe = c.httpProbe
	return c
}

// IsActive reports whether the domain resolves and answers HTTP(S). Results
// are cached best effort; cache errors fall through to a live check.
func (c *Checker) IsActive(ctx context.Context, domainName string) bool {
	if c.cache != nil {
		if alive, found, err := c.cache.GetLiveness(ctx, domainName); err != nil {
			c.log.Warn("liveness cache read failed", logger.Error(err))
		} else if found {
			return alive
		}
	}

	alive := c.resolves(domainName) && c.probe(ctx, domainName)

	if c.cache != nil {
		if err := c.cache.SetLiveness(ctx, domainName, alive, c.cacheTTL); err != nil {
			c.log.Warn("liveness cache write failed", logger.Error(err))
		}
	}
	return alive
}

// resolves queries the configured resolver for an A record, falling back to
// AAAA for v6-only domains.
func (c *Checker) resolves(domainName string) bool {
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		m := new(dns.Msg)
		m.SetQuestion(dns.Fqdn(domainName), qtype)
		r, _, err := c.dns.Exchange(m, c.resolver)
		if err != nil {
			continue
		}
		if r.Rcode == dns.RcodeSuccess && len(r.Answer) > 0 {
			return true
		}
	}
	return false
}

// httpProbe tries HTTPS then HTTP; any response below 500 counts as alive.
func (c *Checker) httpProbe(ctx context.Context, domainName string) bool {
	for _, scheme := range []string{"https", "http"} {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet,
			fmt.Sprintf("%s://%s", scheme, domainName), http.NoBody)
		if err != nil {
			continue
		}
		resp, err := c.http.Do(req)
		if err != nil {
			continue
		}
		_ = resp.Body.Close()
		if resp.StatusCode < http.StatusInternalServerError {
			return true
		}
	}
	return false
}
