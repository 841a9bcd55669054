package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type countingRunner struct {
	mu    sync.Mutex
	calls map[string]int
	block chan struct{}
}

func newCountingRunner() *countingRunner {
	return &countingRunner{calls: make(map[string]int)}
}

func (r *countingRunner) RunCycle(_ context.Context, domainName string) error {
	r.mu.Lock()
	r.calls[domainName]++
	r.mu.Unlock()
	if r.block != nil {
		<-r.block
	}
	return nil
}

func (r *countingRunner) count(domainName string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[domainName]
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestSchedulerRunsAllDomainsEachRound(t *testing.T) {
	runner := newCountingRunner()
	s := NewScheduler(runner, []string{"a.com", "b.com"}, time.Hour, testLogger())
	s.tick = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	waitFor(t, time.Second, func() bool {
		return runner.count("a.com") >= 1 && runner.count("b.com") >= 1
	})

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop on context cancel")
	}
}

func TestSchedulerTriggerCutsSleepShort(t *testing.T) {
	runner := newCountingRunner()
	s := NewScheduler(runner, []string{"a.com"}, time.Hour, testLogger())
	s.tick = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	waitFor(t, time.Second, func() bool { return runner.count("a.com") == 1 })

	s.TriggerNow()
	waitFor(t, time.Second, func() bool { return runner.count("a.com") >= 2 })
}

func TestSchedulerDomainAddedJoinsNextRound(t *testing.T) {
	runner := newCountingRunner()
	runner.block = make(chan struct{})
	s := NewScheduler(runner, []string{"a.com"}, time.Hour, testLogger())
	s.tick = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	waitFor(t, time.Second, func() bool { return runner.count("a.com") == 1 })

	// first round is still in flight; the add must not join it
	if _, err := s.AddDomain("B.com"); err != nil {
		t.Fatalf("AddDomain: %v", err)
	}
	if runner.count("b.com") != 0 {
		t.Fatal("domain added mid-round must not run in that round")
	}

	close(runner.block)
	s.TriggerNow()
	waitFor(t, time.Second, func() bool { return runner.count("b.com") >= 1 })
}

func TestSchedulerMutations(t *testing.T) {
	s := NewScheduler(newCountingRunner(), []string{"b.com", "a.com"}, time.Hour, testLogger())

	if _, err := s.AddDomain("a.com"); !errors.Is(err, ErrDomainExists) {
		t.Errorf("duplicate add: got %v, want ErrDomainExists", err)
	}
	if _, err := s.AddDomain("   "); !errors.Is(err, ErrInvalidDomain) {
		t.Errorf("blank add: got %v, want ErrInvalidDomain", err)
	}
	if _, err := s.AddDomain("localhost"); !errors.Is(err, ErrInvalidDomain) {
		t.Errorf("dotless add: got %v, want ErrInvalidDomain", err)
	}

	name, err := s.AddDomain("New.Example.COM.")
	if err != nil {
		t.Fatalf("AddDomain: %v", err)
	}
	if name != "new.example.com" {
		t.Errorf("added name = %q, want normalized form", name)
	}

	if err := s.RemoveDomain("missing.com"); !errors.Is(err, ErrDomainNotFound) {
		t.Errorf("remove missing: got %v, want ErrDomainNotFound", err)
	}
	if err := s.RemoveDomain("new.example.com"); err != nil {
		t.Fatalf("RemoveDomain: %v", err)
	}
	if err := s.RemoveDomain("a.com"); err != nil {
		t.Fatalf("RemoveDomain: %v", err)
	}
	if err := s.RemoveDomain("b.com"); !errors.Is(err, ErrLastDomain) {
		t.Errorf("remove last: got %v, want ErrLastDomain", err)
	}

	got := s.Domains()
	if len(got) != 1 || got[0] != "b.com" {
		t.Errorf("Domains = %v, want [b.com]", got)
	}

	if err := s.SetInterval(0); !errors.Is(err, ErrInvalidInterval) {
		t.Errorf("zero interval: got %v, want ErrInvalidInterval", err)
	}
	if err := s.SetInterval(30 * time.Second); err != nil {
		t.Fatalf("SetInterval: %v", err)
	}
	if s.Interval() != 30*time.Second {
		t.Errorf("Interval = %v, want 30s", s.Interval())
	}
}

func TestSchedulerOnChangeFiresOnMutation(t *testing.T) {
	s := NewScheduler(newCountingRunner(), []string{"a.com"}, time.Hour, testLogger())

	var mu sync.Mutex
	var gotDomains []string
	var gotInterval time.Duration
	s.OnChange(func(domains []string, interval time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		gotDomains = domains
		gotInterval = interval
	})

	if _, err := s.AddDomain("b.com"); err != nil {
		t.Fatalf("AddDomain: %v", err)
	}
	mu.Lock()
	if len(gotDomains) != 2 {
		t.Errorf("hook domains = %v, want two entries", gotDomains)
	}
	if gotInterval != time.Hour {
		t.Errorf("hook interval = %v, want 1h", gotInterval)
	}
	mu.Unlock()

	if err := s.SetInterval(2 * time.Minute); err != nil {
		t.Fatalf("SetInterval: %v", err)
	}
	mu.Lock()
	if gotInterval != 2*time.Minute {
		t.Errorf("hook interval = %v, want 2m", gotInterval)
	}
	mu.Unlock()
}

func TestSchedulerIntervalChangeAppliesToCurrentSleep(t *testing.T) {
	runner := newCountingRunner()
	s := NewScheduler(runner, []string{"a.com"}, time.Hour, testLogger())
	s.tick = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	waitFor(t, time.Second, func() bool { return runner.count("a.com") == 1 })

	// the loop is asleep for an hour; shrinking the interval wakes it on
	// the next tick
	if err := s.SetInterval(5 * time.Millisecond); err != nil {
		t.Fatalf("SetInterval: %v", err)
	}
	waitFor(t, time.Second, func() bool { return runner.count("a.com") >= 2 })
}

func TestSchedulerStop(t *testing.T) {
	runner := newCountingRunner()
	s := NewScheduler(runner, []string{"a.com"}, time.Hour, testLogger())
	s.tick = time.Millisecond

	done := make(chan struct{})
	go func() {
		s.Run(context.Background())
		close(done)
	}()

	waitFor(t, time.Second, func() bool { return s.Running() })

	s.Stop()
	s.Stop() // idempotent
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
	if s.Running() {
		t.Error("Running should report false after stop")
	}
}

func TestSchedulerSurvivesPanickingCycle(t *testing.T) {
	runner := &panicRunner{}
	s := NewScheduler(runner, []string{"a.com"}, time.Hour, testLogger())
	s.tick = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	waitFor(t, time.Second, func() bool { return runner.count() >= 1 })
	s.TriggerNow()
	waitFor(t, time.Second, func() bool { return runner.count() >= 2 })
}

type panicRunner struct {
	mu    sync.Mutex
	calls int
}

func (r *panicRunner) RunCycle(context.Context, string) error {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	panic("boom")
}

func (r *panicRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}
