// Package app wires the application together and routes API Gateway
// requests.
package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"

	"github.com/qprogramming/daily/backend/internal/adapter"
	"github.com/qprogramming/daily/backend/internal/adapter/googlecal"
	"github.com/qprogramming/daily/backend/internal/adapter/memory"
	"github.com/qprogramming/daily/backend/internal/auth"
	"github.com/qprogramming/daily/backend/internal/calendar"
	"github.com/qprogramming/daily/backend/internal/crypto"
	"github.com/qprogramming/daily/backend/internal/handler"
	"github.com/qprogramming/daily/backend/internal/secret"
	"github.com/qprogramming/daily/backend/internal/weather"
)

// HybridProvider routes demo principals to the in-memory calendar
// source and everyone else to Google Calendar.
type HybridProvider struct {
	googleProvider adapter.CalendarProvider
	memoryProvider adapter.CalendarProvider
}

func (h *HybridProvider) GetAdapter(ctx context.Context, principal, accessToken string) (adapter.CalendarAdapter, error) {
	if strings.HasPrefix(principal, "demo-user-") {
		return h.memoryProvider.GetAdapter(ctx, principal, accessToken)
	}
	return h.googleProvider.GetAdapter(ctx, principal, accessToken)
}

// App holds the dependencies for the Lambda function.
type App struct {
	authHandler      *handler.AuthHandler
	calendarHandler  *handler.CalendarHandler
	weatherHandler   *handler.WeatherHandler
	apiGatewaySecret string
	logger           *zap.Logger
}

// NewApp initializes the application dependencies.
func NewApp(ctx context.Context) *App {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("unable to init logger, %v", err))
	}
	devMode := os.Getenv("DEV_MODE") == "true"

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil && !devMode {
		panic(fmt.Sprintf("unable to load SDK config, %v", err))
	}

	var encryptor crypto.Encryptor
	if devMode {
		encryptor = crypto.NewMockEncryptor()
		logger.Info("using mock encryptor (DEV_MODE=true)")
	} else {
		kmsKeyID := os.Getenv("KMS_KEY_ID")
		if kmsKeyID == "" {
			kmsKeyID = "alias/daily-token-key"
		}
		encryptor = crypto.NewKMSService(kms.NewFromConfig(cfg), kmsKeyID)
	}

	var resolver secret.Resolver
	if devMode {
		resolver = secret.NewEnvResolver()
		logger.Info("using env secret resolver (DEV_MODE=true)")
	} else {
		resolver = secret.NewSSMResolver(ssm.NewFromConfig(cfg))
	}

	googleClientSecret := resolveSecret(ctx, resolver, logger,
		"GOOGLE_CLIENT_SECRET_PARAM", "/daily/google-client-secret", "")
	jwtSecret := resolveSecret(ctx, resolver, logger,
		"JWT_SECRET_PARAM", "/daily/jwt-secret", "default-dev-secret")
	apiGatewaySecret := resolveSecret(ctx, resolver, logger,
		"API_GATEWAY_SECRET_PARAM", "/daily/api-gateway-secret", "")

	redirectURL := os.Getenv("GOOGLE_REDIRECT_URL")
	if redirectURL == "" {
		if devMode {
			redirectURL = "http://localhost:8080/auth/callback"
		} else {
			redirectURL = frontendURL() + "/api/auth/callback"
		}
	}

	oauthConfig := &oauth2.Config{
		ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		ClientSecret: googleClientSecret,
		RedirectURL:  redirectURL,
		Scopes: []string{
			gcal.CalendarReadonlyScope,
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}

	store := auth.NewCredentialStore(logger)
	authService := auth.NewService(oauthConfig, store, encryptor, logger)

	var calendarProvider adapter.CalendarProvider
	if devMode {
		calendarProvider = memory.NewProvider()
		logger.Info("using in-memory calendar provider (DEV_MODE=true)")
	} else {
		calendarProvider = &HybridProvider{
			googleProvider: googlecal.NewProvider(),
			memoryProvider: memory.NewProvider(),
		}
	}

	calendarService := calendar.NewService(authService, calendarProvider, logger)
	weatherService := weather.NewService(logger)

	return &App{
		authHandler:      handler.NewAuthHandler(authService, jwtSecret, logger),
		calendarHandler:  handler.NewCalendarHandler(calendarService, jwtSecret, logger),
		weatherHandler:   handler.NewWeatherHandler(weatherService, jwtSecret, logger),
		apiGatewaySecret: apiGatewaySecret,
		logger:           logger,
	}
}

func resolveSecret(ctx context.Context, resolver secret.Resolver, logger *zap.Logger, envName, defaultParam, fallback string) string {
	param := os.Getenv(envName)
	if param == "" {
		param = defaultParam
	}
	value, err := resolver.GetSecret(ctx, param)
	if err != nil {
		logger.Warn("failed to resolve secret", zap.String("param", param), zap.Error(err))
		return fallback
	}
	return value
}

// HandleRequest routes API Gateway requests to the appropriate handler.
func (app *App) HandleRequest(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	path := req.Path
	method := req.HTTPMethod

	app.logger.Info("request", zap.String("method", method), zap.String("path", path))

	// CORS preflight
	if method == "OPTIONS" {
		return corsResponse(events.APIGatewayProxyResponse{StatusCode: 204}), nil
	}

	// Only CloudFront carries the origin verification header; skip the
	// check in local development.
	if os.Getenv("DEV_MODE") != "true" {
		if req.Headers["X-Origin-Verify"] != app.apiGatewaySecret && req.Headers["x-origin-verify"] != app.apiGatewaySecret {
			app.logger.Warn("request blocked: missing or invalid X-Origin-Verify header")
			return events.APIGatewayProxyResponse{
				StatusCode: http.StatusForbidden,
				Body:       "Forbidden: Access denied",
			}, nil
		}
	}

	// Strip /api prefix if present (for CloudFront proxying)
	if strings.HasPrefix(path, "/api") {
		path = strings.TrimPrefix(path, "/api")
	}

	if path == "/healthz" && method == "GET" {
		return corsResponse(events.APIGatewayProxyResponse{StatusCode: http.StatusOK, Body: `{"status":"ok"}`}), nil
	}

	if strings.HasPrefix(path, "/auth") {
		if path == "/auth/login" && method == "GET" {
			return corsResponse(app.must(app.authHandler.Login(ctx, req))), nil
		}
		if path == "/auth/callback" && method == "GET" {
			return corsResponse(app.must(app.authHandler.Callback(ctx, req))), nil
		}
		if path == "/auth/demo-login" && method == "GET" {
			return corsResponse(app.must(app.authHandler.DemoLogin(ctx, req))), nil
		}
		if path == "/auth/logout" && method == "POST" {
			return corsResponse(app.must(app.authHandler.Logout(ctx, req))), nil
		}
		if path == "/auth/user" && method == "GET" {
			return corsResponse(app.must(app.authHandler.GetUser(ctx, req))), nil
		}
	}

	if path == "/calendars" && method == "GET" {
		return corsResponse(app.must(app.calendarHandler.GetCalendars(ctx, req))), nil
	}
	if path == "/events" && method == "GET" {
		return corsResponse(app.must(app.calendarHandler.GetEvents(ctx, req))), nil
	}

	if path == "/weather" && method == "GET" {
		return corsResponse(app.must(app.weatherHandler.GetWeather(ctx, req))), nil
	}
	if path == "/weather/air-quality" && method == "GET" {
		return corsResponse(app.must(app.weatherHandler.GetAirQuality(ctx, req))), nil
	}

	return corsResponse(events.APIGatewayProxyResponse{
		StatusCode: http.StatusNotFound,
		Body:       fmt.Sprintf("Not Found: %s %s", method, path),
	}), nil
}

// corsResponse adds CORS headers to an API Gateway response.
func corsResponse(resp events.APIGatewayProxyResponse) events.APIGatewayProxyResponse {
	if resp.Headers == nil {
		resp.Headers = make(map[string]string)
	}
	resp.Headers["Access-Control-Allow-Origin"] = frontendURL()
	resp.Headers["Access-Control-Allow-Credentials"] = "true"
	resp.Headers["Access-Control-Allow-Methods"] = "GET,POST,OPTIONS"
	resp.Headers["Access-Control-Allow-Headers"] = "Content-Type,Authorization"
	return resp
}

// must unwraps a handler response, ignoring the error.
func (app *App) must(resp events.APIGatewayProxyResponse, err error) events.APIGatewayProxyResponse {
	if err != nil {
		app.logger.Error("handler error", zap.Error(err))
		return events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError, Body: "Internal Server Error"}
	}
	return resp
}

func frontendURL() string {
	if url := os.Getenv("FRONTEND_URL"); url != "" {
		return url
	}
	return "http://localhost:3000"
}
