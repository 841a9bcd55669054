// Package monitor runs the fetch-diff-persist-notify cycle for each watched
// domain and schedules the cycles on a shared interval.
package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/subwatch/subwatch/internal/logger"
	"github.com/subwatch/subwatch/internal/metrics"
)

// Source fetches the current certificate-log view of a domain: every
// hostname seen in certificates for it, with the earliest log date when one
// was reported.
type Source interface {
	Fetch(ctx context.Context, domainName string) (map[string]*time.Time, error)
}

// Store is the persistence surface a cycle needs.
type Store interface {
	KnownHostnames(ctx context.Context, domainName string) (map[string]struct{}, error)
	RecordNew(ctx context.Context, domainName, hostname string, earliestLogDate *time.Time) error
	EarliestDates(ctx context.Context, domainName string, hostnames []string) (map[string]time.Time, error)
}

// Notifier fans a set of new hostnames out to the configured sinks.
type Notifier interface {
	Notify(ctx context.Context, domainName string, newHostnames map[string]*time.Time)
}

type Monitor struct {
	source   Source
	store    Store
	notifier Notifier
	log      logger.Logger
}

func New(source Source, store Store, notifier Notifier, log logger.Logger) *Monitor {
	return &Monitor{
		source:   source,
		store:    store,
		notifier: notifier,
		log:      log,
	}
}

// RunCycle executes one cycle for a single domain: fetch the log view, diff
// it against the known set, persist anything new, then notify once with the
// full batch. A fetch failure skips the cycle entirely so a flaky upstream
// never produces a false "everything is new" alert on recovery.
func (m *Monitor) RunCycle(ctx context.Context, domainName string) error {
	start := time.Now()

	observed, err := m.source.Fetch(ctx, domainName)
	if err != nil {
		metrics.RecordCycle(domainName, "fetch_error", time.Since(start).Seconds())
		m.log.Warn("certificate log fetch failed, skipping cycle",
			logger.String("domain", domainName),
			logger.Error(err))
		return fmt.Errorf("fetch %s: %w", domainName, err)
	}

	known, err := m.store.KnownHostnames(ctx, domainName)
	if err != nil {
		metrics.RecordCycle(domainName, "store_error", time.Since(start).Seconds())
		return fmt.Errorf("load known hostnames for %s: %w", domainName, err)
	}

	newHostnames := make(map[string]*time.Time)
	for hostname, earliest := range observed {
		if _, ok := known[hostname]; ok {
			continue
		}
		newHostnames[hostname] = earliest
	}

	outcome := "ok"
	recorded := make(map[string]*time.Time, len(newHostnames))
	for hostname, earliest := range newHostnames {
		if err := m.store.RecordNew(ctx, domainName, hostname, earliest); err != nil {
			outcome = "store_error"
			m.log.Error("failed to persist hostname",
				logger.String("domain", domainName),
				logger.String("hostname", hostname),
				logger.Error(err))
			continue
		}
		recorded[hostname] = earliest
	}

	if len(recorded) > 0 {
		m.fillDateHints(ctx, domainName, recorded)
		metrics.AddNewHostnames(domainName, len(recorded))
		m.log.Info("new hostnames discovered",
			logger.String("domain", domainName),
			logger.Int("count", len(recorded)))
		m.notifier.Notify(ctx, domainName, recorded)
	} else {
		m.log.Debug("no new hostnames",
			logger.String("domain", domainName),
			logger.Int("observed", len(observed)))
	}

	metrics.RecordCycle(domainName, outcome, time.Since(start).Seconds())
	if outcome != "ok" {
		return fmt.Errorf("cycle for %s finished with persistence errors", domainName)
	}
	return nil
}

// fillDateHints backfills hostnames the log reported without a timestamp
// with their stored first_seen so the alert can still order them. Best
// effort; on error the hostnames simply stay undated.
func (m *Monitor) fillDateHints(ctx context.Context, domainName string, hostnames map[string]*time.Time) {
	var undated []string
	for hostname, earliest := range hostnames {
		if earliest == nil {
			undated = append(undated, hostname)
		}
	}
	if len(undated) == 0 {
		return
	}

	hints, err := m.store.EarliestDates(ctx, domainName, undated)
	if err != nil {
		m.log.Warn("failed to load date hints",
			logger.String("domain", domainName),
			logger.Error(err))
		return
	}
	for hostname, firstSeen := range hints {
		t := firstSeen
		hostnames[hostname] = &t
	}
}
