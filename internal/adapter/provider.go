package adapter

import (
	"context"
)

// CalendarProvider defines how to get a CalendarAdapter for a specific
// principal and access token.
type CalendarProvider interface {
	// GetAdapter returns a CalendarAdapter authenticated as the given
	// principal. Implementations may ignore either argument: the Google
	// provider only needs the access token, the in-memory provider only
	// the principal.
	GetAdapter(ctx context.Context, principal, accessToken string) (CalendarAdapter, error)
}
