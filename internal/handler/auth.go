package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	xoauth2 "golang.org/x/oauth2"
	"go.uber.org/zap"
	"google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"github.com/qprogramming/daily/backend/internal/auth"
	"github.com/qprogramming/daily/backend/internal/model"
)

// AuthHandler handles authentication requests.
type AuthHandler struct {
	authService *auth.Service
	jwtSecret   string
	logger      *zap.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(s *auth.Service, jwtSecret string, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{authService: s, jwtSecret: jwtSecret, logger: logger}
}

// Login initiates the Google OAuth2 flow. A random state value is set in
// a short-lived cookie and verified in Callback.
func (h *AuthHandler) Login(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	state := uuid.New().String()
	url := h.authService.AuthCodeURL(state)

	stateCookie := fmt.Sprintf("oauth_state=%s; HttpOnly; Path=/; Max-Age=600; SameSite=Lax; Secure", state)

	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusFound,
		Headers: map[string]string{
			"Location": url,
		},
		MultiValueHeaders: map[string][]string{
			"Set-Cookie": {stateCookie},
		},
	}, nil
}

// Callback handles the OAuth2 callback from Google.
func (h *AuthHandler) Callback(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	code := req.QueryStringParameters["code"]
	if code == "" {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusBadRequest, Body: "Missing code"}, nil
	}

	state := req.QueryStringParameters["state"]
	if state == "" || state != cookieValue(req, "oauth_state") {
		h.logger.Warn("oauth state mismatch")
		return events.APIGatewayProxyResponse{StatusCode: http.StatusBadRequest, Body: "Invalid state"}, nil
	}

	token, err := h.authService.Exchange(ctx, code)
	if err != nil {
		h.logger.Error("code exchange failed", zap.Error(err))
		return events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError, Body: "Failed to exchange code"}, nil
	}

	// Get user info from Google; the subject ID becomes our principal.
	oauth2Service, err := oauth2.NewService(ctx, option.WithTokenSource(h.authService.Config().TokenSource(ctx, token)))
	if err != nil {
		h.logger.Error("oauth2 service init failed", zap.Error(err))
		return events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError, Body: "Failed to create oauth2 service"}, nil
	}

	userinfo, err := oauth2Service.Userinfo.Get().Do()
	if err != nil {
		h.logger.Error("userinfo fetch failed", zap.Error(err))
		return events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError, Body: "Failed to get user info"}, nil
	}
	userID := userinfo.Id

	if err := h.authService.SaveCredential(ctx, userID, token); err != nil {
		// Subsequent logins may not return a refresh token; keep going.
		h.logger.Warn("credential save failed", zap.String("principal", userID), zap.Error(err))
	}

	signedToken, err := h.signSession(userID, userinfo.Email, userinfo.Name, 24*time.Hour)
	if err != nil {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError, Body: "Failed to sign token"}, nil
	}

	sameSite := "Lax"
	if os.Getenv("DEV_MODE") != "true" {
		sameSite = "None"
	}
	cookie := fmt.Sprintf("session_token=%s; HttpOnly; Path=/; Max-Age=86400; SameSite=%s; Secure", signedToken, sameSite)
	clearState := "oauth_state=; HttpOnly; Path=/; Max-Age=0; SameSite=Lax; Secure"

	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusFound,
		Headers: map[string]string{
			"Location": fmt.Sprintf("%s/?success=true", frontendURL()),
		},
		MultiValueHeaders: map[string][]string{
			"Set-Cookie": {cookie, clearState},
		},
	}, nil
}

// DemoLogin issues a temporary session without Google OAuth. The demo
// principal is served from the in-memory calendar source.
func (h *AuthHandler) DemoLogin(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	userID := fmt.Sprintf("demo-user-%s", uuid.New().String())

	dummyToken := &xoauth2.Token{
		AccessToken:  "dummy-access-token",
		RefreshToken: "dummy-refresh-token",
		Expiry:       time.Now().Add(1 * time.Hour),
		TokenType:    "Bearer",
	}
	if err := h.authService.SaveCredential(ctx, userID, dummyToken); err != nil {
		h.logger.Error("demo credential save failed", zap.Error(err))
		return events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError, Body: "Failed to save demo credential"}, nil
	}

	// 1 hour session for demo
	signedToken, err := h.signSession(userID, "demo@daily.local", "Demo User", 1*time.Hour)
	if err != nil {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError, Body: "Failed to sign token"}, nil
	}

	cookie := fmt.Sprintf("session_token=%s; HttpOnly; Path=/; Max-Age=86400; SameSite=Lax; Secure", signedToken)

	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusFound,
		Headers: map[string]string{
			"Location": fmt.Sprintf("%s/?token=%s", frontendURL(), signedToken),
		},
		MultiValueHeaders: map[string][]string{
			"Set-Cookie": {cookie},
		},
	}, nil
}

// GetUser returns the current user's profile. An absent or invalid
// session is not an error; the profile just reports unauthenticated.
func (h *AuthHandler) GetUser(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	session, err := SessionFromRequest(req, h.jwtSecret)
	info := model.UserInfo{}
	if err == nil {
		info = model.UserInfo{
			Authenticated: true,
			Name:          session.Name,
			Email:         session.Email,
		}
	}

	body, _ := json.Marshal(info)
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Body:       string(body),
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}, nil
}

// Logout drops the stored credential and clears the session cookie.
func (h *AuthHandler) Logout(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if session, err := SessionFromRequest(req, h.jwtSecret); err == nil {
		h.authService.RemoveCredential(session.UserID)
	}

	sameSite := "Lax"
	if os.Getenv("DEV_MODE") != "true" {
		sameSite = "None"
	}
	cookie := fmt.Sprintf("session_token=; HttpOnly; Path=/; Max-Age=0; SameSite=%s; Secure", sameSite)

	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Body:       `{"success":true}`,
		MultiValueHeaders: map[string][]string{
			"Set-Cookie": {cookie},
		},
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}, nil
}

func (h *AuthHandler) signSession(userID, email, name string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":   userID,
		"email": email,
		"name":  name,
		"exp":   time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.jwtSecret))
}

func frontendURL() string {
	if url := os.Getenv("FRONTEND_URL"); url != "" {
		return url
	}
	return "http://localhost:3000"
}
