package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/qprogramming/daily/backend/internal/adapter"
	"github.com/qprogramming/daily/backend/internal/auth"
	"github.com/qprogramming/daily/backend/internal/calendar"
)

// CalendarHandler handles calendar listing and event aggregation.
type CalendarHandler struct {
	calendarService *calendar.Service
	jwtSecret       string
	logger          *zap.Logger
}

// NewCalendarHandler creates a new CalendarHandler.
func NewCalendarHandler(s *calendar.Service, jwtSecret string, logger *zap.Logger) *CalendarHandler {
	return &CalendarHandler{calendarService: s, jwtSecret: jwtSecret, logger: logger}
}

// GetCalendars lists the calendars visible to the current user.
func (h *CalendarHandler) GetCalendars(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	session, err := SessionFromRequest(req, h.jwtSecret)
	if err != nil {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusUnauthorized, Body: "Unauthorized"}, nil
	}

	calendars, err := h.calendarService.Calendars(ctx, session.UserID)
	if err != nil {
		return h.errorResponse(session.UserID, "list calendars", err), nil
	}

	return jsonResponse(calendars), nil
}

// GetEvents returns the merged, ordered events for the requested
// calendars. Query parameters: calendarIds (comma-separated, default
// "primary") and days (default 7).
func (h *CalendarHandler) GetEvents(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	session, err := SessionFromRequest(req, h.jwtSecret)
	if err != nil {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusUnauthorized, Body: "Unauthorized"}, nil
	}

	var calendarIDs []string
	if raw := req.QueryStringParameters["calendarIds"]; raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				calendarIDs = append(calendarIDs, id)
			}
		}
	}

	days := 0
	if raw := req.QueryStringParameters["days"]; raw != "" {
		days, err = strconv.Atoi(raw)
		if err != nil || days < 0 {
			return events.APIGatewayProxyResponse{StatusCode: http.StatusBadRequest, Body: "Invalid days parameter"}, nil
		}
	}

	eventsList, err := h.calendarService.Events(ctx, session.UserID, calendarIDs, days)
	if err != nil {
		return h.errorResponse(session.UserID, "aggregate events", err), nil
	}

	return jsonResponse(eventsList), nil
}

// errorResponse maps service errors to proxy responses. A rejected or
// missing credential means the user must re-authenticate; anything
// else is an upstream failure.
func (h *CalendarHandler) errorResponse(principal, op string, err error) events.APIGatewayProxyResponse {
	if errors.Is(err, auth.ErrUnauthenticated) || errors.Is(err, adapter.ErrUnauthorized) {
		h.logger.Info("calendar access requires login",
			zap.String("principal", principal), zap.String("op", op))
		return events.APIGatewayProxyResponse{StatusCode: http.StatusUnauthorized, Body: "Unauthorized"}
	}
	h.logger.Error("calendar request failed",
		zap.String("principal", principal), zap.String("op", op), zap.Error(err))
	return events.APIGatewayProxyResponse{StatusCode: http.StatusBadGateway, Body: "Calendar source unavailable"}
}

func jsonResponse(v any) events.APIGatewayProxyResponse {
	body, _ := json.Marshal(v)
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Body:       string(body),
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}
}
