package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/qprogramming/daily/backend/internal/adapter"
	"github.com/qprogramming/daily/backend/internal/model"
)

func dayWindow(now time.Time, days int) (time.Time, time.Time) {
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return start, start.AddDate(0, 0, days).Add(-time.Nanosecond)
}

func TestListEvents_Pagination(t *testing.T) {
	now := time.Now()
	a := NewAdapter(2)
	a.AddCalendar(adapter.CalendarInfo{ID: "cal"})
	for _, id := range []string{"e1", "e2", "e3", "e4", "e5"} {
		a.AddEvents("cal", model.Event{ID: id, Start: model.InstantStart(now)})
	}

	timeMin, timeMax := dayWindow(now, 1)
	ctx := context.Background()

	var collected []model.Event
	token := ""
	pages := 0
	for {
		page, err := a.ListEvents(ctx, adapter.EventsQuery{
			CalendarID: "cal",
			TimeMin:    timeMin,
			TimeMax:    timeMax,
			PageToken:  token,
		})
		if err != nil {
			t.Fatalf("ListEvents failed: %v", err)
		}
		collected = append(collected, page.Events...)
		pages++
		if page.NextPageToken == "" {
			break
		}
		token = page.NextPageToken
	}

	if len(collected) != 5 {
		t.Errorf("Expected 5 events total, got %d", len(collected))
	}
	if pages != 3 {
		t.Errorf("Expected 3 pages with page size 2, got %d", pages)
	}
}

func TestListEvents_WindowFiltering(t *testing.T) {
	now := time.Now()
	a := NewAdapter(50)
	a.AddCalendar(adapter.CalendarInfo{ID: "cal"})
	a.AddEvents("cal",
		model.Event{ID: "today", Start: model.InstantStart(now)},
		model.Event{ID: "next-week", Start: model.InstantStart(now.AddDate(0, 0, 8))},
		model.Event{ID: "yesterday", Start: model.InstantStart(now.AddDate(0, 0, -1))},
		model.Event{ID: "all-day-tomorrow", Start: model.DateStart(now.AddDate(0, 0, 1).Format("2006-01-02"))},
	)

	timeMin, timeMax := dayWindow(now, 2)
	page, err := a.ListEvents(context.Background(), adapter.EventsQuery{
		CalendarID: "cal",
		TimeMin:    timeMin,
		TimeMax:    timeMax,
	})
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}

	got := map[string]bool{}
	for _, e := range page.Events {
		got[e.ID] = true
	}
	if !got["today"] || !got["all-day-tomorrow"] {
		t.Errorf("Expected in-window events, got %v", got)
	}
	if got["next-week"] || got["yesterday"] {
		t.Errorf("Expected out-of-window events filtered, got %v", got)
	}
}

func TestListEvents_UnknownCalendar(t *testing.T) {
	a := NewAdapter(2)
	a.AddCalendar(adapter.CalendarInfo{ID: "cal"})

	_, err := a.ListEvents(context.Background(), adapter.EventsQuery{CalendarID: "missing"})
	if !errors.Is(err, adapter.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestProvider_IsolatesPrincipals(t *testing.T) {
	p := NewProvider()
	ctx := context.Background()

	a1, err := p.GetAdapter(ctx, "demo-user-1", "")
	if err != nil {
		t.Fatalf("GetAdapter failed: %v", err)
	}
	a2, err := p.GetAdapter(ctx, "demo-user-2", "")
	if err != nil {
		t.Fatalf("GetAdapter failed: %v", err)
	}
	if a1 == a2 {
		t.Error("Expected distinct adapters per principal")
	}

	again, err := p.GetAdapter(ctx, "demo-user-1", "")
	if err != nil {
		t.Fatalf("GetAdapter failed: %v", err)
	}
	if a1 != again {
		t.Error("Expected the same adapter on repeat access")
	}
}

func TestSeedDemoData(t *testing.T) {
	a := NewAdapter(50)
	a.SeedDemoData(time.Now())

	infos, err := a.ListCalendars(context.Background())
	if err != nil {
		t.Fatalf("ListCalendars failed: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("Expected 2 seeded calendars, got %d", len(infos))
	}
	if !infos[0].Primary {
		t.Error("Expected first seeded calendar to be primary")
	}

	now := time.Now()
	timeMin, timeMax := dayWindow(now, 7)
	page, err := a.ListEvents(context.Background(), adapter.EventsQuery{
		CalendarID: "primary",
		TimeMin:    timeMin,
		TimeMax:    timeMax,
	})
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(page.Events) == 0 {
		t.Error("Expected seeded events in the coming week")
	}
}
