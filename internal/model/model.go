package model

import (
	"encoding/json"
	"time"
)

// StartKind tags which representation an EventStart carries.
type StartKind int

const (
	// StartAbsent means the provider reported no start information.
	StartAbsent StartKind = iota
	// StartInstant is a timezone-aware point in time (timed event).
	StartInstant
	// StartDate is a date with no time-of-day (all-day event).
	StartDate
)

// EventStart is the start (or end) of a calendar event. Exactly one
// representation is populated, selected by Kind; the zero value is absent.
type EventStart struct {
	Kind    StartKind
	Instant time.Time // set when Kind == StartInstant
	Date    string    // "2006-01-02", set when Kind == StartDate
}

// InstantStart returns an EventStart for a timed event.
func InstantStart(t time.Time) EventStart {
	return EventStart{Kind: StartInstant, Instant: t}
}

// DateStart returns an EventStart for an all-day event.
// The date is kept in the provider's "2006-01-02" form.
func DateStart(date string) EventStart {
	return EventStart{Kind: StartDate, Date: date}
}

// eventStartJSON mirrors the Google Calendar wire shape for start/end.
type eventStartJSON struct {
	DateTime string `json:"dateTime,omitempty"`
	Date     string `json:"date,omitempty"`
}

// MarshalJSON renders the start in the provider's wire shape:
// {"dateTime": ...} for timed events, {"date": ...} for all-day events,
// null when absent.
func (s EventStart) MarshalJSON() ([]byte, error) {
	switch s.Kind {
	case StartInstant:
		return json.Marshal(eventStartJSON{DateTime: s.Instant.Format(time.RFC3339)})
	case StartDate:
		return json.Marshal(eventStartJSON{Date: s.Date})
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts the wire shape produced by MarshalJSON.
// A dateTime wins over a date when both are present in malformed input.
func (s *EventStart) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = EventStart{}
		return nil
	}
	var raw eventStartJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.DateTime != "" {
		t, err := time.Parse(time.RFC3339, raw.DateTime)
		if err != nil {
			return err
		}
		*s = InstantStart(t)
		return nil
	}
	if raw.Date != "" {
		*s = DateStart(raw.Date)
		return nil
	}
	*s = EventStart{}
	return nil
}

// Event is a single calendar entry as returned to the frontend.
// Payload fields are passed through from the provider unchanged.
type Event struct {
	ID          string     `json:"id"`
	CalendarID  string     `json:"calendarId"`
	Summary     string     `json:"summary,omitempty"`
	Description string     `json:"description,omitempty"`
	Location    string     `json:"location,omitempty"`
	Status      string     `json:"status,omitempty"`
	HTMLLink    string     `json:"htmlLink,omitempty"`
	Start       EventStart `json:"start"`
	End         EventStart `json:"end"`
}

// Credential is a delegated provider credential held for one principal.
// The refresh token is stored encrypted; the store never sees plaintext.
type Credential struct {
	AccessToken  string
	Expiry       time.Time // zero when the provider did not report one
	RefreshToken string    // encrypted at rest, empty when not granted
}

// UserInfo describes the signed-in user for the frontend.
type UserInfo struct {
	Authenticated bool   `json:"authenticated"`
	Name          string `json:"name,omitempty"`
	Email         string `json:"email,omitempty"`
}
