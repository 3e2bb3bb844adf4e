// Package memory provides an in-memory calendar source used for demo
// logins and tests. Each principal gets an isolated, seeded set of
// calendars; pagination is emulated so the aggregation path behaves
// like it does against the real provider.
package memory

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/qprogramming/daily/backend/internal/adapter"
	"github.com/qprogramming/daily/backend/internal/model"
)

// DefaultPageSize keeps demo responses multi-page so the pagination
// loop is exercised outside tests too.
const DefaultPageSize = 2

// Provider implements adapter.CalendarProvider with one seeded Adapter
// per principal, created on first use.
type Provider struct {
	mu       sync.Mutex
	adapters map[string]*Adapter
	pageSize int
}

// NewProvider creates a new Provider.
func NewProvider() *Provider {
	return &Provider{
		adapters: make(map[string]*Adapter),
		pageSize: DefaultPageSize,
	}
}

// GetAdapter returns the principal's calendar source, seeding demo data
// on first access. The access token is ignored.
func (p *Provider) GetAdapter(ctx context.Context, principal, _ string) (adapter.CalendarAdapter, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	a, ok := p.adapters[principal]
	if !ok {
		a = NewAdapter(p.pageSize)
		a.SeedDemoData(time.Now())
		p.adapters[principal] = a
	}
	return a, nil
}

// Adapter is one principal's in-memory calendar set.
type Adapter struct {
	mu        sync.Mutex
	calendars []adapter.CalendarInfo
	events    map[string][]model.Event
	pageSize  int
}

// NewAdapter creates an empty Adapter with the given page size.
func NewAdapter(pageSize int) *Adapter {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Adapter{
		events:   make(map[string][]model.Event),
		pageSize: pageSize,
	}
}

// AddCalendar registers a calendar descriptor.
func (a *Adapter) AddCalendar(info adapter.CalendarInfo) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.calendars = append(a.calendars, info)
	if _, ok := a.events[info.ID]; !ok {
		a.events[info.ID] = nil
	}
}

// AddEvents appends events to a calendar.
func (a *Adapter) AddEvents(calendarID string, events ...model.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i := range events {
		events[i].CalendarID = calendarID
	}
	a.events[calendarID] = append(a.events[calendarID], events...)
}

// ListCalendars returns the registered descriptors.
func (a *Adapter) ListCalendars(ctx context.Context) ([]adapter.CalendarInfo, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]adapter.CalendarInfo, len(a.calendars))
	copy(out, a.calendars)
	return out, nil
}

// ListEvents returns one page of the calendar's events that fall inside
// the query window. Page tokens are numeric offsets into the filtered
// list, mirroring how an opaque provider cursor behaves.
func (a *Adapter) ListEvents(ctx context.Context, q adapter.EventsQuery) (*adapter.EventPage, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	events, ok := a.events[q.CalendarID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", adapter.ErrNotFound, q.CalendarID)
	}

	var matched []model.Event
	for _, e := range events {
		if inWindow(e.Start, q.TimeMin, q.TimeMax) {
			matched = append(matched, e)
		}
	}

	offset := 0
	if q.PageToken != "" {
		n, err := strconv.Atoi(q.PageToken)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: bad page token %q", adapter.ErrUpstream, q.PageToken)
		}
		offset = n
	}
	if offset >= len(matched) {
		return &adapter.EventPage{}, nil
	}

	end := offset + a.pageSize
	next := ""
	if end >= len(matched) {
		end = len(matched)
	} else {
		next = strconv.Itoa(end)
	}

	page := make([]model.Event, end-offset)
	copy(page, matched[offset:end])
	return &adapter.EventPage{Events: page, NextPageToken: next}, nil
}

// inWindow reports whether a start falls inside the inclusive window.
// Date-only starts are compared at day granularity; events without
// start information are always included.
func inWindow(start model.EventStart, timeMin, timeMax time.Time) bool {
	switch start.Kind {
	case model.StartInstant:
		return !start.Instant.Before(timeMin) && !start.Instant.After(timeMax)
	case model.StartDate:
		return start.Date >= timeMin.Format("2006-01-02") && start.Date <= timeMax.Format("2006-01-02")
	default:
		return true
	}
}

// SeedDemoData fills the adapter with a small, plausible week: timed
// events today and in the coming days, an all-day entry, and a second
// holidays calendar.
func (a *Adapter) SeedDemoData(now time.Time) {
	a.AddCalendar(adapter.CalendarInfo{ID: "primary", Summary: "Demo Calendar", Color: "#4285f4", Primary: true})
	a.AddCalendar(adapter.CalendarInfo{ID: "holidays", Summary: "Holidays", Color: "#0b8043"})

	day := func(offset int, hour, min int) time.Time {
		d := now.AddDate(0, 0, offset)
		return time.Date(d.Year(), d.Month(), d.Day(), hour, min, 0, 0, now.Location())
	}
	date := func(offset int) string {
		return now.AddDate(0, 0, offset).Format("2006-01-02")
	}

	a.AddEvents("primary",
		model.Event{
			ID:      "demo-standup",
			Summary: "Morning standup",
			Start:   model.InstantStart(day(0, 9, 30)),
			End:     model.InstantStart(day(0, 9, 45)),
			Status:  "confirmed",
		},
		model.Event{
			ID:       "demo-lunch",
			Summary:  "Lunch with Alex",
			Location: "Cafe Mozaika",
			Start:    model.InstantStart(day(0, 12, 30)),
			End:      model.InstantStart(day(0, 13, 30)),
			Status:   "confirmed",
		},
		model.Event{
			ID:      "demo-offsite",
			Summary: "Team offsite",
			Start:   model.DateStart(date(1)),
			End:     model.DateStart(date(2)),
			Status:  "confirmed",
		},
		model.Event{
			ID:      "demo-dentist",
			Summary: "Dentist",
			Start:   model.InstantStart(day(2, 16, 0)),
			End:     model.InstantStart(day(2, 16, 45)),
			Status:  "tentative",
		},
		model.Event{
			ID:      "demo-review",
			Summary: "Quarterly review",
			Start:   model.InstantStart(day(4, 11, 0)),
			End:     model.InstantStart(day(4, 12, 0)),
			Status:  "confirmed",
		},
	)
	a.AddEvents("holidays",
		model.Event{
			ID:      "demo-holiday",
			Summary: "Bank holiday",
			Start:   model.DateStart(date(3)),
			End:     model.DateStart(date(4)),
			Status:  "confirmed",
		},
	)
}
