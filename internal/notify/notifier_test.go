package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type fakeSink struct {
	name     string
	err      error
	messages []string
}

func (f *fakeSink) Name() string { return f.name }

func (f *fakeSink) Deliver(_ context.Context, message string) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, message)
	return nil
}

func ts(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestSortedHostnamesDateOrderNullsLast(t *testing.T) {
	hostnames := map[string]*time.Time{
		"b.example.com": ts("2024-02-01"),
		"a.example.com": ts("2024-01-01"),
		"c.example.com": nil,
	}

	got := sortedHostnames(hostnames)
	want := []string{"a.example.com", "b.example.com", "c.example.com"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sortedHostnames = %v, want %v", got, want)
		}
	}
}

func TestSortedHostnamesLexicalTiebreak(t *testing.T) {
	same := ts("2024-01-01")
	hostnames := map[string]*time.Time{
		"z.example.com": same,
		"a.example.com": same,
		"m.example.com": nil,
		"b.example.com": nil,
	}

	got := sortedHostnames(hostnames)
	want := []string{"a.example.com", "z.example.com", "b.example.com", "m.example.com"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sortedHostnames = %v, want %v", got, want)
		}
	}
}

func TestRenderMessage(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	msg := renderMessage("example.com", map[string]*time.Time{
		"api.example.com": ts("2024-01-01"),
		"www.example.com": nil,
	}, now)

	if !strings.Contains(msg, "example.com") {
		t.Error("message should name the domain")
	}
	if !strings.Contains(msg, "Found 2 new subdomain(s)") {
		t.Errorf("message should carry the count, got:\n%s", msg)
	}
	if !strings.Contains(msg, "1. `api.example.com`") || !strings.Contains(msg, "2. `www.example.com`") {
		t.Errorf("message should number hostnames in date order, got:\n%s", msg)
	}
	if !strings.Contains(msg, "2024-06-01 12:00:00") {
		t.Errorf("message should carry the capture timestamp, got:\n%s", msg)
	}
}

func TestNotifyFansOutToAllSinks(t *testing.T) {
	first := &fakeSink{name: "first"}
	second := &fakeSink{name: "second"}
	n := New(testLogger(), first, second)

	n.Notify(context.Background(), "example.com", map[string]*time.Time{
		"new.example.com": nil,
	})

	if len(first.messages) != 1 || len(second.messages) != 1 {
		t.Errorf("both sinks should receive the message, got %d/%d",
			len(first.messages), len(second.messages))
	}
	if first.messages[0] != second.messages[0] {
		t.Error("sinks should receive identical messages")
	}
}

func TestNotifyOneFailingSinkDoesNotBlockOthers(t *testing.T) {
	failing := &fakeSink{name: "failing", err: errors.New("endpoint down")}
	healthy := &fakeSink{name: "healthy"}
	n := New(testLogger(), failing, healthy)

	n.Notify(context.Background(), "example.com", map[string]*time.Time{
		"new.example.com": nil,
	})

	if len(healthy.messages) != 1 {
		t.Errorf("healthy sink should still deliver, got %d messages", len(healthy.messages))
	}
}

func TestNotifyEmptySetIsNoop(t *testing.T) {
	sink := &fakeSink{name: "sink"}
	n := New(testLogger(), sink)

	n.Notify(context.Background(), "example.com", nil)

	if len(sink.messages) != 0 {
		t.Errorf("empty set should not notify, got %d messages", len(sink.messages))
	}
}
