package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/subwatch/subwatch/internal/logger"
)

type fakeSource struct {
	mu      sync.Mutex
	results map[string]map[string]*time.Time
	err     error
	calls   int
}

func (f *fakeSource) Fetch(_ context.Context, domainName string) (map[string]*time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]*time.Time, len(f.results[domainName]))
	for h, t := range f.results[domainName] {
		out[h] = t
	}
	return out, nil
}

type fakeStore struct {
	mu        sync.Mutex
	known     map[string]map[string]struct{}
	recordErr error
	recorded  []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{known: make(map[string]map[string]struct{})}
}

func (f *fakeStore) KnownHostnames(_ context.Context, domainName string) (map[string]struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]struct{}, len(f.known[domainName]))
	for h := range f.known[domainName] {
		out[h] = struct{}{}
	}
	return out, nil
}

func (f *fakeStore) RecordNew(_ context.Context, domainName, hostname string, _ *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recordErr != nil {
		return f.recordErr
	}
	if f.known[domainName] == nil {
		f.known[domainName] = make(map[string]struct{})
	}
	f.known[domainName][hostname] = struct{}{}
	f.recorded = append(f.recorded, hostname)
	return nil
}

func (f *fakeStore) EarliestDates(_ context.Context, _ string, _ []string) (map[string]time.Time, error) {
	return map[string]time.Time{}, nil
}

type fakeNotifier struct {
	mu      sync.Mutex
	batches []map[string]*time.Time
}

func (f *fakeNotifier) Notify(_ context.Context, _ string, newHostnames map[string]*time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	batch := make(map[string]*time.Time, len(newHostnames))
	for h, t := range newHostnames {
		batch[h] = t
	}
	f.batches = append(f.batches, batch)
}

func testLogger() logger.Logger {
	return logger.New("error", false)
}

func TestRunCycleOnlyNotifiesNewHostnames(t *testing.T) {
	source := &fakeSource{results: map[string]map[string]*time.Time{
		"example.com": {
			"api.example.com": nil,
			"www.example.com": nil,
		},
	}}
	store := newFakeStore()
	notifier := &fakeNotifier{}
	m := New(source, store, notifier, testLogger())

	if err := m.RunCycle(context.Background(), "example.com"); err != nil {
		t.Fatalf("first cycle: %v", err)
	}
	if len(notifier.batches) != 1 || len(notifier.batches[0]) != 2 {
		t.Fatalf("first cycle should notify both hostnames, got %v", notifier.batches)
	}

	source.results["example.com"]["new.example.com"] = nil
	if err := m.RunCycle(context.Background(), "example.com"); err != nil {
		t.Fatalf("second cycle: %v", err)
	}
	if len(notifier.batches) != 2 {
		t.Fatalf("second cycle should notify once, got %d batches", len(notifier.batches))
	}
	batch := notifier.batches[1]
	if len(batch) != 1 {
		t.Fatalf("second cycle should only carry the new hostname, got %v", batch)
	}
	if _, ok := batch["new.example.com"]; !ok {
		t.Errorf("expected new.example.com in batch, got %v", batch)
	}
}

func TestRunCycleIsIdempotent(t *testing.T) {
	source := &fakeSource{results: map[string]map[string]*time.Time{
		"example.com": {"api.example.com": nil},
	}}
	store := newFakeStore()
	notifier := &fakeNotifier{}
	m := New(source, store, notifier, testLogger())

	for i := 0; i < 3; i++ {
		if err := m.RunCycle(context.Background(), "example.com"); err != nil {
			t.Fatalf("cycle %d: %v", i, err)
		}
	}
	if len(notifier.batches) != 1 {
		t.Errorf("identical log views should notify exactly once, got %d batches",
			len(notifier.batches))
	}
	if len(store.recorded) != 1 {
		t.Errorf("identical log views should record exactly once, got %v", store.recorded)
	}
}

func TestRunCycleFetchErrorSkipsEverything(t *testing.T) {
	source := &fakeSource{err: errors.New("upstream down")}
	store := newFakeStore()
	store.known["example.com"] = map[string]struct{}{"api.example.com": {}}
	notifier := &fakeNotifier{}
	m := New(source, store, notifier, testLogger())

	if err := m.RunCycle(context.Background(), "example.com"); err == nil {
		t.Fatal("cycle should report the fetch error")
	}
	if len(notifier.batches) != 0 {
		t.Errorf("failed fetch must not notify, got %v", notifier.batches)
	}
	if len(store.recorded) != 0 {
		t.Errorf("failed fetch must not record, got %v", store.recorded)
	}
}

func TestRunCycleStoreErrorExcludesHostnameFromAlert(t *testing.T) {
	source := &fakeSource{results: map[string]map[string]*time.Time{
		"example.com": {"api.example.com": nil},
	}}
	store := newFakeStore()
	store.recordErr = errors.New("db gone")
	notifier := &fakeNotifier{}
	m := New(source, store, notifier, testLogger())

	if err := m.RunCycle(context.Background(), "example.com"); err == nil {
		t.Fatal("cycle should report the persistence error")
	}
	if len(notifier.batches) != 0 {
		t.Errorf("unpersisted hostnames must not be alerted, got %v", notifier.batches)
	}
}
