package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/qprogramming/daily/backend/internal/adapter"
	"github.com/qprogramming/daily/backend/internal/model"
	"go.uber.org/zap"
)

// Aggregator fans a time-window query out across calendar sources,
// drains each source's pagination, and returns the merged, ordered
// event list.
type Aggregator struct {
	now    func() time.Time
	logger *zap.Logger
}

// NewAggregator creates an Aggregator.
func NewAggregator(logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{now: time.Now, logger: logger}
}

// window computes the query window in local time: from the start of
// today through the last instant of day days-1. A 1-day query thus
// covers all of today, not a raw 24h duration from now.
func (a *Aggregator) window(days int) (time.Time, time.Time) {
	now := a.now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	end := start.AddDate(0, 0, days).Add(-time.Nanosecond)
	return start, end
}

// Aggregate fetches every page of every calendar in calendarIDs for a
// window of days days, concatenates the per-calendar results in the
// order the ids were supplied, and sorts the merged list.
//
// Any single source failing aborts the whole aggregation; partial
// results are discarded rather than returned as if complete. Duplicate
// ids are fetched twice and both copies appear in the output.
func (a *Aggregator) Aggregate(ctx context.Context, src adapter.CalendarAdapter, calendarIDs []string, days int) ([]model.Event, error) {
	all := []model.Event{}
	if len(calendarIDs) == 0 {
		return all, nil
	}

	timeMin, timeMax := a.window(days)
	for _, calendarID := range calendarIDs {
		events, err := a.fetchAllPages(ctx, src, calendarID, timeMin, timeMax)
		if err != nil {
			return nil, fmt.Errorf("calendar %q: %w", calendarID, err)
		}
		all = append(all, events...)
	}

	SortEvents(all)
	a.logger.Debug("aggregated events",
		zap.Int("calendars", len(calendarIDs)),
		zap.Int("days", days),
		zap.Int("events", len(all)),
	)
	return all, nil
}

// fetchAllPages drains one calendar's pagination sequentially: page N+1
// is not requested until page N has been consumed.
func (a *Aggregator) fetchAllPages(ctx context.Context, src adapter.CalendarAdapter, calendarID string, timeMin, timeMax time.Time) ([]model.Event, error) {
	var events []model.Event
	pageToken := ""

	for {
		page, err := src.ListEvents(ctx, adapter.EventsQuery{
			CalendarID: calendarID,
			TimeMin:    timeMin,
			TimeMax:    timeMax,
			PageToken:  pageToken,
		})
		if err != nil {
			return nil, err
		}
		events = append(events, page.Events...)
		if page.NextPageToken == "" {
			return events, nil
		}
		pageToken = page.NextPageToken
	}
}
