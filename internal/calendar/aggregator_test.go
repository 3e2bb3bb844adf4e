package calendar

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/qprogramming/daily/backend/internal/adapter"
	"github.com/qprogramming/daily/backend/internal/model"
)

// fakeSource scripts per-calendar pages and records every call.
type fakeSource struct {
	pages     map[string][]adapter.EventPage // calendarID -> scripted pages
	fail      map[string]error               // calendarID -> error to return
	calls     []adapter.EventsQuery
	infos     []adapter.CalendarInfo
	listCalls int
}

func (f *fakeSource) ListCalendars(ctx context.Context) ([]adapter.CalendarInfo, error) {
	f.listCalls++
	return f.infos, nil
}

func (f *fakeSource) ListEvents(ctx context.Context, q adapter.EventsQuery) (*adapter.EventPage, error) {
	f.calls = append(f.calls, q)
	if err := f.fail[q.CalendarID]; err != nil {
		return nil, err
	}
	pages := f.pages[q.CalendarID]
	idx := 0
	if q.PageToken != "" {
		fmt.Sscanf(q.PageToken, "p%d", &idx)
	}
	if idx >= len(pages) {
		return &adapter.EventPage{}, nil
	}
	page := pages[idx]
	return &page, nil
}

func pageOf(next string, ids ...string) adapter.EventPage {
	events := make([]model.Event, len(ids))
	for i, id := range ids {
		events[i] = model.Event{ID: id}
	}
	return adapter.EventPage{Events: events, NextPageToken: next}
}

func fixedAggregator(now time.Time) *Aggregator {
	a := NewAggregator(nil)
	a.now = func() time.Time { return now }
	return a
}

func TestAggregate_PaginationCompleteness(t *testing.T) {
	src := &fakeSource{pages: map[string][]adapter.EventPage{
		"primary": {
			pageOf("p1", "e1", "e2"),
			pageOf("p2", "e3", "e4"),
			pageOf("", "e5", "e6"),
		},
	}}

	agg := NewAggregator(nil)
	events, err := agg.Aggregate(context.Background(), src, []string{"primary"}, 7)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	if len(events) != 6 {
		t.Errorf("Expected 6 events across 3 pages, got %d", len(events))
	}
	if len(src.calls) != 3 {
		t.Errorf("Expected exactly 3 client calls, got %d", len(src.calls))
	}
	// Page N+1 must carry the token from page N.
	wantTokens := []string{"", "p1", "p2"}
	for i, q := range src.calls {
		if q.PageToken != wantTokens[i] {
			t.Errorf("Call %d: expected page token %q, got %q", i, wantTokens[i], q.PageToken)
		}
	}
}

func TestAggregate_MultiSourceConcatenationOrder(t *testing.T) {
	// Events without start info: the stable sort preserves the
	// concatenation order, exposing it in the result.
	src := &fakeSource{pages: map[string][]adapter.EventPage{
		"cal-a": {pageOf("", "E1", "E2")},
		"cal-b": {pageOf("", "E3")},
	}}

	agg := NewAggregator(nil)
	events, err := agg.Aggregate(context.Background(), src, []string{"cal-a", "cal-b"}, 1)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	want := []string{"E1", "E2", "E3"}
	if len(events) != len(want) {
		t.Fatalf("Expected %d events, got %d", len(want), len(events))
	}
	for i, id := range want {
		if events[i].ID != id {
			t.Errorf("Position %d: expected %q, got %q", i, id, events[i].ID)
		}
	}

	// cal-a's pages must be drained before cal-b is touched.
	if src.calls[0].CalendarID != "cal-a" || src.calls[1].CalendarID != "cal-b" {
		t.Errorf("Expected fetch order [cal-a cal-b], got [%s %s]",
			src.calls[0].CalendarID, src.calls[1].CalendarID)
	}
}

func TestAggregate_FailFast(t *testing.T) {
	upstreamErr := fmt.Errorf("%w: boom", adapter.ErrUpstream)
	src := &fakeSource{
		pages: map[string][]adapter.EventPage{
			"cal-a": {pageOf("", "E1", "E2")},
		},
		fail: map[string]error{"cal-b": upstreamErr},
	}

	agg := NewAggregator(nil)
	events, err := agg.Aggregate(context.Background(), src, []string{"cal-a", "cal-b"}, 1)
	if err == nil {
		t.Fatal("Expected error when one source fails, got nil")
	}
	if !errors.Is(err, adapter.ErrUpstream) {
		t.Errorf("Expected wrapped ErrUpstream, got %v", err)
	}
	// cal-a's partial results must not leak out.
	if events != nil {
		t.Errorf("Expected nil events on failure, got %d", len(events))
	}
}

func TestAggregate_EmptyCalendarSet(t *testing.T) {
	src := &fakeSource{}

	agg := NewAggregator(nil)
	events, err := agg.Aggregate(context.Background(), src, nil, 7)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("Expected empty result, got %d events", len(events))
	}
	if len(src.calls) != 0 {
		t.Errorf("Expected no client calls for empty calendar set, got %d", len(src.calls))
	}
}

func TestAggregate_DuplicateIDsFetchedTwice(t *testing.T) {
	src := &fakeSource{pages: map[string][]adapter.EventPage{
		"primary": {pageOf("", "E1")},
	}}

	agg := NewAggregator(nil)
	events, err := agg.Aggregate(context.Background(), src, []string{"primary", "primary"}, 1)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("Expected both copies in output, got %d events", len(events))
	}
	if len(src.calls) != 2 {
		t.Errorf("Expected 2 fetches for duplicated id, got %d", len(src.calls))
	}
}

func TestAggregate_WindowCoversWholeDays(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	now := time.Date(2026, 8, 28, 14, 45, 12, 0, loc)

	src := &fakeSource{pages: map[string][]adapter.EventPage{
		"primary": {pageOf("")},
	}}
	agg := fixedAggregator(now)

	if _, err := agg.Aggregate(context.Background(), src, []string{"primary"}, 1); err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	q := src.calls[0]
	wantMin := time.Date(2026, 8, 28, 0, 0, 0, 0, loc)
	if !q.TimeMin.Equal(wantMin) {
		t.Errorf("Expected window start %v, got %v", wantMin, q.TimeMin)
	}
	// A 1-day query includes today's last instant.
	wantMax := time.Date(2026, 8, 29, 0, 0, 0, 0, loc).Add(-time.Nanosecond)
	if !q.TimeMax.Equal(wantMax) {
		t.Errorf("Expected window end %v, got %v", wantMax, q.TimeMax)
	}
}

func TestAggregate_SortsMergedEvents(t *testing.T) {
	t9 := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	t8 := time.Date(2026, 8, 28, 8, 0, 0, 0, time.UTC)

	src := &fakeSource{pages: map[string][]adapter.EventPage{
		"cal-a": {{Events: []model.Event{{ID: "later", Start: model.InstantStart(t9)}}}},
		"cal-b": {{Events: []model.Event{{ID: "earlier", Start: model.InstantStart(t8)}}}},
	}}

	agg := NewAggregator(nil)
	events, err := agg.Aggregate(context.Background(), src, []string{"cal-a", "cal-b"}, 1)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if events[0].ID != "earlier" || events[1].ID != "later" {
		t.Errorf("Expected merged events sorted by start, got [%s %s]", events[0].ID, events[1].ID)
	}
}
