package googlecal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/qprogramming/daily/backend/internal/adapter"
	"github.com/qprogramming/daily/backend/internal/model"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Adapter implements adapter.CalendarAdapter for Google Calendar. One
// Adapter is built per access token; the token is never persisted here.
type Adapter struct {
	service *calendar.Service
}

// NewAdapter creates an Adapter authenticated with the given access token.
func NewAdapter(ctx context.Context, accessToken string) (*Adapter, error) {
	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	srv, err := calendar.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("unable to create Calendar client: %w", err)
	}
	return &Adapter{service: srv}, nil
}

// ListCalendars returns the descriptors from the user's calendar list.
// Google serves the whole list in one page for any realistic account.
func (g *Adapter) ListCalendars(ctx context.Context) ([]adapter.CalendarInfo, error) {
	list, err := g.service.CalendarList.List().Context(ctx).Do()
	if err != nil {
		return nil, mapError(err)
	}

	infos := make([]adapter.CalendarInfo, 0, len(list.Items))
	for _, item := range list.Items {
		infos = append(infos, adapter.CalendarInfo{
			ID:      item.Id,
			Summary: item.Summary,
			Color:   item.BackgroundColor,
			Primary: item.Primary,
		})
	}
	return infos, nil
}

// ListEvents fetches one page of events for the query. Recurring events
// are expanded into single instances and the page is ordered by start
// time on the provider side.
func (g *Adapter) ListEvents(ctx context.Context, q adapter.EventsQuery) (*adapter.EventPage, error) {
	call := g.service.Events.List(q.CalendarID).
		TimeMin(q.TimeMin.Format(time.RFC3339)).
		TimeMax(q.TimeMax.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		ShowDeleted(false).
		Context(ctx)
	if q.PageToken != "" {
		call = call.PageToken(q.PageToken)
	}

	res, err := call.Do()
	if err != nil {
		return nil, mapError(err)
	}

	events := make([]model.Event, 0, len(res.Items))
	for _, item := range res.Items {
		events = append(events, toEvent(q.CalendarID, item))
	}
	return &adapter.EventPage{
		Events:        events,
		NextPageToken: res.NextPageToken,
	}, nil
}

func toEvent(calendarID string, item *calendar.Event) model.Event {
	return model.Event{
		ID:          item.Id,
		CalendarID:  calendarID,
		Summary:     item.Summary,
		Description: item.Description,
		Location:    item.Location,
		Status:      item.Status,
		HTMLLink:    item.HtmlLink,
		Start:       toStart(item.Start),
		End:         toStart(item.End),
	}
}

// toStart converts the Google wire shape into the tagged variant. A
// dateTime wins over a date; an unparseable or missing value is absent.
func toStart(dt *calendar.EventDateTime) model.EventStart {
	if dt == nil {
		return model.EventStart{}
	}
	if dt.DateTime != "" {
		t, err := time.Parse(time.RFC3339, dt.DateTime)
		if err == nil {
			return model.InstantStart(t)
		}
	}
	if dt.Date != "" {
		return model.DateStart(dt.Date)
	}
	return model.EventStart{}
}

// mapError folds provider errors into the adapter sentinels: a rejected
// credential is distinguishable so the caller can surface 401, anything
// else is a generic upstream failure.
func mapError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %v", adapter.ErrUnauthorized, err)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %v", adapter.ErrNotFound, err)
		}
	}
	return fmt.Errorf("%w: %v", adapter.ErrUpstream, err)
}
