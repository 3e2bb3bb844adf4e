package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/qprogramming/daily/backend/internal/weather"
)

const (
	defaultForecastDays  = 5
	defaultForecastHours = 12
)

// WeatherHandler handles weather and air quality requests.
type WeatherHandler struct {
	weatherService *weather.Service
	jwtSecret      string
	logger         *zap.Logger
}

// NewWeatherHandler creates a new WeatherHandler.
func NewWeatherHandler(s *weather.Service, jwtSecret string, logger *zap.Logger) *WeatherHandler {
	return &WeatherHandler{weatherService: s, jwtSecret: jwtSecret, logger: logger}
}

// GetWeather geocodes the location query parameter and returns the
// forecast. Optional parameters: days (default 5), hours (default 12).
func (h *WeatherHandler) GetWeather(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if _, err := SessionFromRequest(req, h.jwtSecret); err != nil {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusUnauthorized, Body: "Unauthorized"}, nil
	}

	location := req.QueryStringParameters["location"]
	if location == "" {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusBadRequest, Body: "Missing location parameter"}, nil
	}

	days := intParam(req, "days", defaultForecastDays)
	hours := intParam(req, "hours", defaultForecastHours)

	loc, err := h.weatherService.Geocode(ctx, location)
	if err != nil {
		return h.errorResponse(location, err), nil
	}

	forecast, err := h.weatherService.GetForecast(ctx, loc.Latitude, loc.Longitude, days, hours)
	if err != nil {
		return h.errorResponse(location, err), nil
	}

	return jsonResponse(forecast), nil
}

// GetAirQuality geocodes the location query parameter and returns the
// current air quality readings.
func (h *WeatherHandler) GetAirQuality(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if _, err := SessionFromRequest(req, h.jwtSecret); err != nil {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusUnauthorized, Body: "Unauthorized"}, nil
	}

	location := req.QueryStringParameters["location"]
	if location == "" {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusBadRequest, Body: "Missing location parameter"}, nil
	}

	loc, err := h.weatherService.Geocode(ctx, location)
	if err != nil {
		return h.errorResponse(location, err), nil
	}

	airQuality, err := h.weatherService.GetAirQuality(ctx, loc.Latitude, loc.Longitude)
	if err != nil {
		return h.errorResponse(location, err), nil
	}

	return jsonResponse(airQuality), nil
}

func (h *WeatherHandler) errorResponse(location string, err error) events.APIGatewayProxyResponse {
	if errors.Is(err, weather.ErrLocationNotFound) {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusNotFound, Body: "Location not found"}
	}
	h.logger.Error("weather request failed", zap.String("location", location), zap.Error(err))
	return events.APIGatewayProxyResponse{StatusCode: http.StatusBadGateway, Body: "Weather service unavailable"}
}

func intParam(req events.APIGatewayProxyRequest, name string, fallback int) int {
	raw := req.QueryStringParameters[name]
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
