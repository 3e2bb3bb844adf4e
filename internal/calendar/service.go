// Package calendar implements the event aggregation pipeline between
// the authenticated session and the calendar provider: credential
// resolution, fan-out over calendar ids with provider-side pagination,
// total ordering of the merged events, and short-lived result caching.
package calendar

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/qprogramming/daily/backend/internal/adapter"
	"github.com/qprogramming/daily/backend/internal/auth"
	"github.com/qprogramming/daily/backend/internal/cache"
	"github.com/qprogramming/daily/backend/internal/model"
	"go.uber.org/zap"
)

const (
	// DefaultCalendarID is used when a request names no calendars.
	DefaultCalendarID = "primary"
	// DefaultWindowDays is used when a request carries no day count.
	DefaultWindowDays = 7

	// Event lists change within a session, so calendar results are
	// cached deliberately short.
	calendarTTL = 5 * time.Minute
)

// Service exposes the calendar operations consumed by the request
// handlers. It owns the credential flow (load, refresh-once) and the
// result caches; the provider performs the actual network calls.
type Service struct {
	auth       *auth.Service
	provider   adapter.CalendarProvider
	aggregator *Aggregator

	listCache  *cache.Cache[[]adapter.CalendarInfo]
	eventCache *cache.Cache[[]model.Event]

	logger *zap.Logger
}

// NewService creates a calendar Service.
func NewService(authService *auth.Service, provider adapter.CalendarProvider, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		auth:       authService,
		provider:   provider,
		aggregator: NewAggregator(logger),
		listCache:  cache.New[[]adapter.CalendarInfo](),
		eventCache: cache.New[[]model.Event](),
		logger:     logger,
	}
}

// Calendars returns the calendar descriptors for the principal.
func (s *Service) Calendars(ctx context.Context, principal string) ([]adapter.CalendarInfo, error) {
	token, err := s.auth.AccessToken(ctx, principal)
	if err != nil {
		return nil, err
	}
	src, err := s.provider.GetAdapter(ctx, principal, token)
	if err != nil {
		return nil, fmt.Errorf("failed to get calendar adapter: %w", err)
	}

	return s.listCache.GetOrCompute(token, calendarTTL, func() ([]adapter.CalendarInfo, error) {
		return src.ListCalendars(ctx)
	})
}

// Events returns the ordered events for the principal's calendars over
// a window of days days. Defaults: the primary calendar, 7 days.
// Results are memoized per (access token, calendar ids, window).
func (s *Service) Events(ctx context.Context, principal string, calendarIDs []string, days int) ([]model.Event, error) {
	if len(calendarIDs) == 0 {
		calendarIDs = []string{DefaultCalendarID}
	}
	if days <= 0 {
		days = DefaultWindowDays
	}

	token, err := s.auth.AccessToken(ctx, principal)
	if err != nil {
		return nil, err
	}
	src, err := s.provider.GetAdapter(ctx, principal, token)
	if err != nil {
		return nil, fmt.Errorf("failed to get calendar adapter: %w", err)
	}

	key := eventsCacheKey(token, calendarIDs, days)
	return s.eventCache.GetOrCompute(key, calendarTTL, func() ([]model.Event, error) {
		return s.aggregator.Aggregate(ctx, src, calendarIDs, days)
	})
}

// eventsCacheKey serializes the query identity. The access token keys
// the cache to the credential, so a refreshed token naturally starts a
// fresh slot; calendar ids keep their caller-supplied order.
func eventsCacheKey(token string, calendarIDs []string, days int) string {
	return fmt.Sprintf("%s|%s|%d", token, strings.Join(calendarIDs, ","), days)
}
