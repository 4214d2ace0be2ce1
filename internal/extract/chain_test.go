package extract

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/teemow/inboxplan/internal/mail"
)

// fakeProvider returns canned items or a canned error and records calls.
type fakeProvider struct {
	name  string
	items []Item
	err   error
	delay time.Duration
	calls int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Extract(ctx context.Context, msg mail.Message) ([]Item, error) {
	f.calls++
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.items, nil
}

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func testMessage() mail.Message {
	return mail.Message{
		ID:       "m1",
		Sender:   "Jane Doe <jane@example.com>",
		Subject:  "Renew passport",
		Body:     "This is due Friday.",
		Received: time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC),
	}
}

func TestChainFirstProviderWins(t *testing.T) {
	primary := &fakeProvider{name: "anthropic", items: []Item{{Provider: "anthropic", Title: "Renew passport"}}}
	secondary := &fakeProvider{name: "gemini"}
	chain := NewChain([]Provider{primary, secondary}, discard())

	res := chain.Extract(context.Background(), testMessage())

	if res.Method != "anthropic" {
		t.Errorf("Method = %q, want anthropic", res.Method)
	}
	if len(res.Items) != 1 {
		t.Fatalf("got %d items, want 1", len(res.Items))
	}
	if secondary.calls != 0 {
		t.Error("secondary provider should not have been called")
	}
}

func TestChainAdvancesOnFailure(t *testing.T) {
	primary := &fakeProvider{
		name: "anthropic",
		err:  &ProviderError{Provider: "anthropic", Class: RateLimited},
	}
	secondary := &fakeProvider{
		name:  "gemini",
		items: []Item{{Provider: "gemini", Title: "Renew passport", Due: "2026-02-06"}},
	}
	chain := NewChain([]Provider{primary, secondary}, discard())

	res := chain.Extract(context.Background(), testMessage())

	if res.Method != "gemini" {
		t.Errorf("Method = %q, want gemini", res.Method)
	}
	if primary.calls != 1 {
		t.Errorf("primary calls = %d, want exactly 1 (no chain-level retry)", primary.calls)
	}
	if len(res.Attempts) != 2 {
		t.Fatalf("got %d attempts, want 2", len(res.Attempts))
	}
	if !res.Attempts[0].Failed || res.Attempts[0].Class != RateLimited {
		t.Errorf("first attempt = %+v, want failed rate_limited", res.Attempts[0])
	}
}

func TestChainEmptyResultIsSuccess(t *testing.T) {
	primary := &fakeProvider{name: "anthropic", items: []Item{}}
	secondary := &fakeProvider{name: "gemini"}
	chain := NewChain([]Provider{primary, secondary}, discard())

	res := chain.Extract(context.Background(), testMessage())

	if res.Method != "anthropic" {
		t.Errorf("Method = %q, want anthropic: an empty item list is a success", res.Method)
	}
	if len(res.Items) != 0 {
		t.Errorf("got %d items, want 0", len(res.Items))
	}
	if secondary.calls != 0 {
		t.Error("chain advanced past a successful empty result")
	}
}

func TestChainFallsBackToHeuristic(t *testing.T) {
	providers := []Provider{
		&fakeProvider{name: "anthropic", err: &ProviderError{Provider: "anthropic", Class: Unavailable}},
		&fakeProvider{name: "gemini", err: &ProviderError{Provider: "gemini", Class: Timeout}},
	}
	chain := NewChain(providers, discard())

	res := chain.Extract(context.Background(), testMessage())

	if res.Method != MethodHeuristic {
		t.Fatalf("Method = %q, want %q", res.Method, MethodHeuristic)
	}
	if len(res.Items) != 1 {
		t.Fatalf("heuristic must produce exactly one item, got %d", len(res.Items))
	}
	item := res.Items[0]
	if item.Title != "Renew passport" {
		t.Errorf("Title = %q, want subject line", item.Title)
	}
	if item.Due != "" {
		t.Errorf("Due = %q, want absent", item.Due)
	}
	if item.Provider != MethodHeuristic {
		t.Errorf("Provider = %q, want %q", item.Provider, MethodHeuristic)
	}
}

func TestChainNoProvidersUsesHeuristic(t *testing.T) {
	chain := NewChain(nil, discard())
	res := chain.Extract(context.Background(), testMessage())
	if res.Method != MethodHeuristic {
		t.Errorf("Method = %q, want %q", res.Method, MethodHeuristic)
	}
}

func TestChainRecordsAttemptDurations(t *testing.T) {
	providers := []Provider{
		&fakeProvider{name: "anthropic", delay: time.Millisecond, err: &ProviderError{Provider: "anthropic", Class: Timeout}},
		&fakeProvider{name: "gemini", delay: time.Millisecond, items: []Item{{Provider: "gemini", Title: "Renew passport"}}},
	}
	chain := NewChain(providers, discard())

	res := chain.Extract(context.Background(), testMessage())

	if len(res.Attempts) != 2 {
		t.Fatalf("got %d attempts, want 2", len(res.Attempts))
	}
	for i, a := range res.Attempts {
		if a.Duration < time.Millisecond {
			t.Errorf("attempt %d duration = %v, want at least 1ms", i, a.Duration)
		}
	}
}

func TestHeuristicItemTruncatesLongSubjects(t *testing.T) {
	msg := testMessage()
	msg.Subject = strings.Repeat("x", 200)

	item := heuristicItem(msg)
	if len(item.Title) != heuristicTitleLimit {
		t.Errorf("title length = %d, want %d", len(item.Title), heuristicTitleLimit)
	}
}

func TestHeuristicItemTruncatesOnRuneBoundary(t *testing.T) {
	msg := testMessage()
	msg.Subject = strings.Repeat("ü", 200)

	item := heuristicItem(msg)
	if !utf8.ValidString(item.Title) {
		t.Fatalf("truncated title is not valid UTF-8: %q", item.Title)
	}
	if got := utf8.RuneCountInString(item.Title); got != heuristicTitleLimit {
		t.Errorf("title rune count = %d, want %d", got, heuristicTitleLimit)
	}
}

func TestHeuristicItemEmptySubject(t *testing.T) {
	msg := testMessage()
	msg.Subject = ""

	item := heuristicItem(msg)
	if item.Title != "Email from Jane Doe" {
		t.Errorf("Title = %q, want sender-derived fallback", item.Title)
	}
}

func TestChainCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	primary := &fakeProvider{name: "anthropic", items: []Item{{Title: "x"}}}
	chain := NewChain([]Provider{primary}, discard())

	res := chain.Extract(ctx, testMessage())

	if primary.calls != 0 {
		t.Error("provider called after cancellation")
	}
	if res.Method != MethodHeuristic {
		t.Errorf("Method = %q, want heuristic for cancelled run", res.Method)
	}
}
