package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/qprogramming/daily/backend/internal/crypto"
	"github.com/qprogramming/daily/backend/internal/model"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// ErrUnauthenticated is returned when no usable credential exists for a
// principal and no refresh exchange can produce one. Handlers map it to
// an explicit "not logged in" response.
var ErrUnauthenticated = errors.New("not authenticated")

// Service handles the OAuth2 flows around the CredentialStore: the
// authorization-code exchange on login and the refresh-token exchange
// when Load reports NeedsRefresh. The store itself never touches the
// network.
type Service struct {
	oauthConfig *oauth2.Config
	store       *CredentialStore
	encryptor   crypto.Encryptor
	logger      *zap.Logger
}

// NewService creates a new Service.
// The oauthConfig should be constructed by the caller (e.g., from
// environment variables and the secret resolver).
func NewService(oauthConfig *oauth2.Config, store *CredentialStore, encryptor crypto.Encryptor, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		oauthConfig: oauthConfig,
		store:       store,
		encryptor:   encryptor,
		logger:      logger,
	}
}

// Config returns the OAuth2 config.
func (s *Service) Config() *oauth2.Config {
	return s.oauthConfig
}

// Store returns the underlying credential store.
func (s *Service) Store() *CredentialStore {
	return s.store
}

// AuthCodeURL returns the URL to redirect the user to for Google login.
// Offline access with forced approval makes Google return a refresh
// token even on repeat consent.
func (s *Service) AuthCodeURL(state string) string {
	return s.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange exchanges the authorization code for an access token.
func (s *Service) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return s.oauthConfig.Exchange(ctx, code)
}

// SaveCredential stores the token for the principal, encrypting the
// refresh token before it enters the store.
func (s *Service) SaveCredential(ctx context.Context, principal string, token *oauth2.Token) error {
	cred := model.Credential{
		AccessToken: token.AccessToken,
		Expiry:      token.Expiry,
	}
	if token.RefreshToken != "" {
		encrypted, err := s.encryptor.Encrypt(ctx, token.RefreshToken)
		if err != nil {
			return fmt.Errorf("failed to encrypt refresh token: %w", err)
		}
		cred.RefreshToken = encrypted
	}
	s.store.Save(principal, cred)
	return nil
}

// RemoveCredential drops the principal's credential and refresh record.
func (s *Service) RemoveCredential(principal string) {
	s.store.Remove(principal)
}

// AccessToken returns a usable access token for the principal. When the
// store reports NeedsRefresh, one refresh-token exchange is attempted
// before giving up; any remaining failure surfaces as ErrUnauthenticated.
func (s *Service) AccessToken(ctx context.Context, principal string) (string, error) {
	cred, state := s.store.Load(principal)
	switch state {
	case LoadValid:
		return cred.AccessToken, nil
	case LoadAbsent:
		return "", ErrUnauthenticated
	}

	s.logger.Debug("credential needs refresh", zap.String("principal", principal))
	token, err := s.refresh(ctx, principal)
	if err != nil {
		s.logger.Warn("refresh exchange failed",
			zap.String("principal", principal),
			zap.Error(err),
		)
		return "", fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	return token, nil
}

// refresh runs the provider's refresh-token exchange and stores the
// resulting credential. Google may omit the refresh token from the
// response; the retained one is carried forward in that case.
func (s *Service) refresh(ctx context.Context, principal string) (string, error) {
	encrypted, ok := s.store.retainedRefreshToken(principal)
	if !ok {
		return "", errors.New("no refresh token retained")
	}

	refreshToken, err := s.encryptor.Decrypt(ctx, encrypted)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt refresh token: %w", err)
	}

	tokenSource := s.oauthConfig.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := tokenSource.Token()
	if err != nil {
		return "", fmt.Errorf("refresh token exchange: %w", err)
	}
	if token.RefreshToken == "" {
		token.RefreshToken = refreshToken
	}

	if err := s.SaveCredential(ctx, principal, token); err != nil {
		return "", err
	}
	s.logger.Info("refreshed access token", zap.String("principal", principal))
	return token.AccessToken, nil
}
