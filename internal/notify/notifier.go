// Package notify renders newly observed hostnames into a human-readable
// alert and fans it out to the configured sinks.
package notify

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/subwatch/subwatch/internal/logger"
	"github.com/subwatch/subwatch/internal/metrics"
)

// Sink delivers one rendered message to an external endpoint.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, message string) error
}

type Notifier struct {
	sinks []Sink
	log   logger.Logger
	now   func() time.Time
}

func New(log logger.Logger, sinks ...Sink) *Notifier {
	return &Notifier{
		sinks: sinks,
		log:   log,
		now:   time.Now,
	}
}

// Notify renders the new hostnames for a domain and attempts delivery on
// every sink. A failing sink is logged and never blocks the others; the
// cycle does not see delivery errors.
func (n *Notifier) Notify(ctx context.Context, domainName string, newHostnames map[string]*time.Time) {
	if len(newHostnames) == 0 {
		return
	}
	message := renderMessage(domainName, newHostnames, n.now())

	for _, sink := range n.sinks {
		if err := sink.Deliver(ctx, message); err != nil {
			metrics.IncDeliveryFailure(sink.Name())
			n.log.Error("notification delivery failed",
				logger.String("sink", sink.Name()),
				logger.String("domain", domainName),
				logger.Error(err))
			continue
		}
		n.log.Info("notification delivered",
			logger.String("sink", sink.Name()),
			logger.String("domain", domainName),
			logger.Int("hostnames", len(newHostnames)))
	}
}

// renderMessage builds the alert text: header with domain and count, then a
// numbered list ordered by earliest log date (unknown dates last, ties broken
// by hostname), then the capture timestamp.
func renderMessage(domainName string, hostnames map[string]*time.Time, now time.Time) string {
	ordered := sortedHostnames(hostnames)

	var b strings.Builder
	fmt.Fprintf(&b, "🚨 **New subdomains detected for %s**\n\n", domainName)
	fmt.Fprintf(&b, "Found %d new subdomain(s):\n\n", len(ordered))
	for i, h := range ordered {
		fmt.Fprintf(&b, "%d. `%s`\n", i+1, h)
	}
	fmt.Fprintf(&b, "\n⏰ Detected at: %s", now.Format("2006-01-02 15:04:05"))
	return b.String()
}

func sortedHostnames(hostnames map[string]*time.Time) []string {
	out := make([]string, 0, len(hostnames))
	for h := range hostnames {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := hostnames[out[i]], hostnames[out[j]]
		switch {
		case ti == nil && tj == nil:
			return out[i] < out[j]
		case ti == nil:
			return false
		case tj == nil:
			return true
		case ti.Equal(*tj):
			return out[i] < out[j]
		default:
			return ti.Before(*tj)
		}
	})
	return out
}
