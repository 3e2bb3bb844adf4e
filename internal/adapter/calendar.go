package adapter

import (
	"context"
	"time"

	"github.com/qprogramming/daily/backend/internal/model"
)

// CalendarInfo describes one calendar the principal can read.
type CalendarInfo struct {
	ID      string `json:"id"`
	Summary string `json:"summary"`
	Color   string `json:"color,omitempty"`
	Primary bool   `json:"primary,omitempty"`
}

// EventsQuery selects one page of events from a single calendar.
// TimeMin and TimeMax are both inclusive; TimeMax covers the final
// moment of the last requested day.
type EventsQuery struct {
	CalendarID string
	TimeMin    time.Time
	TimeMax    time.Time
	PageToken  string
}

// EventPage is one provider page. A non-empty NextPageToken means more
// pages remain for the same query.
type EventPage struct {
	Events        []model.Event
	NextPageToken string
}

// CalendarAdapter performs one authenticated provider call per method
// invocation. Recurring events are expanded into instances and pages
// are ordered by start time on the provider side.
//
// This abstraction allows switching between providers (Google Calendar,
// the in-memory demo source) without changing the aggregation logic.
type CalendarAdapter interface {
	// ListCalendars returns the calendar descriptors for the credential's
	// principal. A single page is assumed.
	ListCalendars(ctx context.Context) ([]CalendarInfo, error)

	// ListEvents returns one page of events for the query.
	ListEvents(ctx context.Context, q EventsQuery) (*EventPage, error)
}
