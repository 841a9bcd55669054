package monitor

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/subwatch/subwatch/internal/domain"
	"github.com/subwatch/subwatch/internal/logger"
	"github.com/subwatch/subwatch/internal/metrics"
)

var (
	ErrInvalidDomain   = errors.New("domain name is empty or malformed")
	ErrDomainExists    = errors.New("domain is already monitored")
	ErrDomainNotFound  = errors.New("domain is not monitored")
	ErrLastDomain      = errors.New("cannot remove the last monitored domain")
	ErrInvalidInterval = errors.New("interval must be at least one second")
)

// CycleRunner runs one monitoring cycle for a domain.
type CycleRunner interface {
	RunCycle(ctx context.Context, domainName string) error
}

// Scheduler owns the monitored domain list and the shared polling interval,
// both mutable at runtime. Each round it snapshots the list, fans a cycle out
// per domain, waits for all of them, then sleeps in one-second ticks so
// interval changes, manual triggers and shutdown are picked up promptly.
type Scheduler struct {
	runner CycleRunner
	log    logger.Logger

	mu       sync.Mutex
	domains  []string
	interval time.Duration
	running  bool

	trigger  chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once
	onChange func(domains []string, interval time.Duration)

	// tick is the sleep granularity, shortened in tests.
	tick time.Duration
}

func NewScheduler(runner CycleRunner, domains []string, interval time.Duration, log logger.Logger) *Scheduler {
	s := &Scheduler{
		runner:   runner,
		log:      log,
		domains:  append([]string(nil), domains...),
		interval: interval,
		trigger:  make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
		tick:     time.Second,
	}
	metrics.SetMonitoredDomains(len(s.domains))
	return s
}

// OnChange registers a hook invoked after every successful mutation of the
// domain list or interval, with the new values. Used to persist state across
// restarts. Must be set before Run.
func (s *Scheduler) OnChange(fn func(domains []string, interval time.Duration)) {
	s.onChange = fn
}

// Run blocks, executing rounds until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	s.log.Info("scheduler started",
		logger.Strings("domains", s.Domains()),
		logger.Duration("interval", s.Interval()))

	for {
		s.runRound(ctx)
		if !s.sleep(ctx) {
			s.log.Info("scheduler stopped")
			return
		}
	}
}

// TriggerNow requests an immediate round, cutting the current sleep short.
// No-op if a trigger is already pending.
func (s *Scheduler) TriggerNow() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Stop ends the loop after the in-flight round, independent of the context.
// Safe to call more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// runRound runs one cycle per monitored domain concurrently and waits for
// all of them. The snapshot means domains added mid-round join the next one.
func (s *Scheduler) runRound(ctx context.Context) {
	domains := s.Domains()

	var wg sync.WaitGroup
	for _, name := range domains {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					s.log.Error("cycle panicked",
						logger.String("domain", name),
						logger.String("panic", toString(r)))
				}
			}()
			if err := s.runner.RunCycle(ctx, name); err != nil {
				s.log.Warn("cycle finished with errors",
					logger.String("domain", name),
					logger.Error(err))
			}
		}(name)
	}
	wg.Wait()
}

// sleep waits out the configured interval in small ticks, re-reading the
// interval each tick so a runtime change takes effect before the next round.
// Returns false when the context is cancelled.
func (s *Scheduler) sleep(ctx context.Context) bool {
	elapsed := time.Duration(0)
	for {
		s.mu.Lock()
		interval := s.interval
		s.mu.Unlock()
		if elapsed >= interval {
			return true
		}

		select {
		case <-ctx.Done():
			return false
		case <-s.stopCh:
			return false
		case <-s.trigger:
			return true
		case <-time.After(s.tick):
			elapsed += s.tick
		}
	}
}

// AddDomain normalizes and adds a domain to the monitored list. The new
// domain is picked up on the next round.
func (s *Scheduler) AddDomain(raw string) (string, error) {
	name := domain.NormalizeDomain(raw)
	if name == "" || !strings.Contains(name, ".") {
		return "", ErrInvalidDomain
	}

	s.mu.Lock()
	for _, existing := range s.domains {
		if existing == name {
			s.mu.Unlock()
			return "", ErrDomainExists
		}
	}
	s.domains = append(s.domains, name)
	snapshot := append([]string(nil), s.domains...)
	interval := s.interval
	s.mu.Unlock()

	metrics.SetMonitoredDomains(len(snapshot))
	s.log.Info("domain added", logger.String("domain", name))
	s.notifyChange(snapshot, interval)
	return name, nil
}

// RemoveDomain drops a domain from the monitored list. Recorded hostnames
// are kept; re-adding the domain later resumes diffing against them instead
// of re-alerting the whole history.
func (s *Scheduler) RemoveDomain(raw string) error {
	name := domain.NormalizeDomain(raw)

	s.mu.Lock()
	idx := -1
	for i, existing := range s.domains {
		if existing == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return ErrDomainNotFound
	}
	if len(s.domains) == 1 {
		s.mu.Unlock()
		return ErrLastDomain
	}
	s.domains = append(s.domains[:idx], s.domains[idx+1:]...)
	snapshot := append([]string(nil), s.domains...)
	interval := s.interval
	s.mu.Unlock()

	metrics.SetMonitoredDomains(len(snapshot))
	s.log.Info("domain removed", logger.String("domain", name))
	s.notifyChange(snapshot, interval)
	return nil
}

// SetInterval changes the polling interval. An in-progress sleep re-reads
// the interval on its next tick, so the change applies without restarting.
func (s *Scheduler) SetInterval(interval time.Duration) error {
	if interval < time.Second {
		return ErrInvalidInterval
	}

	s.mu.Lock()
	s.interval = interval
	snapshot := append([]string(nil), s.domains...)
	s.mu.Unlock()

	s.log.Info("interval changed", logger.Duration("interval", interval))
	s.notifyChange(snapshot, interval)
	return nil
}

// Domains returns a sorted copy of the monitored domain list.
func (s *Scheduler) Domains() []string {
	s.mu.Lock()
	out := append([]string(nil), s.domains...)
	s.mu.Unlock()
	sort.Strings(out)
	return out
}

func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Monitors reports whether a domain is currently on the monitored list.
func (s *Scheduler) Monitors(raw string) bool {
	name := domain.NormalizeDomain(raw)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.domains {
		if existing == name {
			return true
		}
	}
	return false
}

func (s *Scheduler) notifyChange(domains []string, interval time.Duration) {
	if s.onChange != nil {
		s.onChange(domains, interval)
	}
}

func toString(v any) string {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	if str, ok := v.(string); ok {
		return str
	}
	return "unknown panic"
}
