package googlecal

import (
	"context"

	"github.com/qprogramming/daily/backend/internal/adapter"
)

// Provider implements adapter.CalendarProvider for Google Calendar.
type Provider struct{}

// NewProvider creates a new Provider.
func NewProvider() *Provider {
	return &Provider{}
}

// GetAdapter builds a per-token Google Calendar adapter. The principal
// is not needed; the access token alone scopes the client.
func (p *Provider) GetAdapter(ctx context.Context, principal, accessToken string) (adapter.CalendarAdapter, error) {
	if accessToken == "" {
		return nil, adapter.ErrUnauthorized
	}
	return NewAdapter(ctx, accessToken)
}
