package googlecal

import (
	"errors"
	"testing"
	"time"

	"github.com/qprogramming/daily/backend/internal/adapter"
	"github.com/qprogramming/daily/backend/internal/model"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
)

func TestToStart_DateTime(t *testing.T) {
	s := toStart(&calendar.EventDateTime{DateTime: "2026-08-28T09:30:00+02:00"})
	if s.Kind != model.StartInstant {
		t.Fatalf("Expected StartInstant, got %v", s.Kind)
	}
	want := time.Date(2026, 8, 28, 9, 30, 0, 0, time.FixedZone("", 2*60*60))
	if !s.Instant.Equal(want) {
		t.Errorf("Expected %v, got %v", want, s.Instant)
	}
}

func TestToStart_DateOnly(t *testing.T) {
	s := toStart(&calendar.EventDateTime{Date: "2026-08-28"})
	if s.Kind != model.StartDate || s.Date != "2026-08-28" {
		t.Errorf("Expected date start '2026-08-28', got kind=%v date=%q", s.Kind, s.Date)
	}
}

func TestToStart_Absent(t *testing.T) {
	if s := toStart(nil); s.Kind != model.StartAbsent {
		t.Errorf("Expected absent for nil, got %v", s.Kind)
	}
	if s := toStart(&calendar.EventDateTime{}); s.Kind != model.StartAbsent {
		t.Errorf("Expected absent for empty, got %v", s.Kind)
	}
}

func TestToStart_MalformedDateTimeFallsBackToDate(t *testing.T) {
	s := toStart(&calendar.EventDateTime{DateTime: "not-a-time", Date: "2026-08-28"})
	if s.Kind != model.StartDate {
		t.Errorf("Expected fallback to date, got %v", s.Kind)
	}
}

func TestMapError(t *testing.T) {
	tests := []struct {
		code int
		want error
	}{
		{401, adapter.ErrUnauthorized},
		{404, adapter.ErrNotFound},
		{500, adapter.ErrUpstream},
		{403, adapter.ErrUpstream},
	}
	for _, tt := range tests {
		err := mapError(&googleapi.Error{Code: tt.code})
		if !errors.Is(err, tt.want) {
			t.Errorf("Code %d: expected %v, got %v", tt.code, tt.want, err)
		}
	}
}

func TestMapError_PlainNetworkError(t *testing.T) {
	err := mapError(errors.New("connection refused"))
	if !errors.Is(err, adapter.ErrUpstream) {
		t.Errorf("Expected ErrUpstream for network error, got %v", err)
	}
}
