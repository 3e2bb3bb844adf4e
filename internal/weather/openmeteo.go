// Package weather fetches current conditions, forecasts and air quality
// from the Open-Meteo APIs.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/qprogramming/daily/backend/internal/cache"
)

const (
	geocodingURL   = "https://geocoding-api.open-meteo.com/v1/search"
	forecastURL    = "https://api.open-meteo.com/v1/forecast"
	airQualityURL  = "https://air-quality-api.open-meteo.com/v1/air-quality"
	requestTimeout = 10 * time.Second

	currentParams    = "temperature_2m,weather_code,wind_speed_10m,relative_humidity_2m"
	dailyParams      = "weather_code,temperature_2m_max,temperature_2m_min"
	hourlyParams     = "weather_code,temperature_2m,wind_speed_10m,relative_humidity_2m"
	airQualityParams = "pm10,pm2_5,european_aqi"

	weatherTTL = time.Hour
)

var (
	// ErrLocationNotFound is returned when geocoding yields no match.
	ErrLocationNotFound = errors.New("location not found")
	// ErrUpstream is returned when an Open-Meteo endpoint fails.
	ErrUpstream = errors.New("weather service unavailable")
)

// Location is a geocoded place.
type Location struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Country   string  `json:"country"`
}

// CurrentConditions holds the instantaneous readings for a location.
type CurrentConditions struct {
	Time        string  `json:"time"`
	Temperature float64 `json:"temperature_2m"`
	WeatherCode int     `json:"weather_code"`
	WindSpeed   float64 `json:"wind_speed_10m"`
	Humidity    int     `json:"relative_humidity_2m"`
}

// DailyForecast holds per-day aggregates.
type DailyForecast struct {
	Time           []string  `json:"time"`
	WeatherCode    []int     `json:"weather_code"`
	TemperatureMax []float64 `json:"temperature_2m_max"`
	TemperatureMin []float64 `json:"temperature_2m_min"`
}

// HourlyForecast holds per-hour readings.
type HourlyForecast struct {
	Time        []string  `json:"time"`
	WeatherCode []int     `json:"weather_code"`
	Temperature []float64 `json:"temperature_2m"`
	WindSpeed   []float64 `json:"wind_speed_10m"`
	Humidity    []int     `json:"relative_humidity_2m"`
}

// Forecast is the combined response for a location.
type Forecast struct {
	Latitude  float64           `json:"latitude"`
	Longitude float64           `json:"longitude"`
	Timezone  string            `json:"timezone"`
	Current   CurrentConditions `json:"current"`
	Daily     DailyForecast     `json:"daily"`
	Hourly    HourlyForecast    `json:"hourly"`
}

// AirQuality holds the current particulate readings for a location.
type AirQuality struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Current   struct {
		Time        string  `json:"time"`
		PM10        float64 `json:"pm10"`
		PM25        float64 `json:"pm2_5"`
		EuropeanAQI int     `json:"european_aqi"`
	} `json:"current"`
}

// Service is an Open-Meteo client with hourly result caching.
type Service struct {
	client        *http.Client
	geocodingURL  string
	forecastURL   string
	airQualityURL string

	locationCache   *cache.Cache[Location]
	forecastCache   *cache.Cache[*Forecast]
	airQualityCache *cache.Cache[*AirQuality]

	logger *zap.Logger
}

// NewService returns a Service with the production endpoints.
func NewService(logger *zap.Logger) *Service {
	return NewServiceWithEndpoints(geocodingURL, forecastURL, airQualityURL, logger)
}

// NewServiceWithEndpoints returns a Service targeting the given base
// URLs. Used by tests to point at a local server.
func NewServiceWithEndpoints(geo, forecast, airQuality string, logger *zap.Logger) *Service {
	return &Service{
		client:          &http.Client{Timeout: requestTimeout},
		geocodingURL:    geo,
		forecastURL:     forecast,
		airQualityURL:   airQuality,
		locationCache:   cache.New[Location](),
		forecastCache:   cache.New[*Forecast](),
		airQualityCache: cache.New[*AirQuality](),
		logger:          logger,
	}
}

// Geocode resolves a place name to coordinates, taking the first match.
func (s *Service) Geocode(ctx context.Context, name string) (Location, error) {
	return s.locationCache.GetOrCompute("geo|"+name, weatherTTL, func() (Location, error) {
		q := url.Values{}
		q.Set("name", name)
		q.Set("count", "1")
		q.Set("language", "en")

		var resp struct {
			Results []Location `json:"results"`
		}
		if err := s.getJSON(ctx, s.geocodingURL, q, &resp); err != nil {
			return Location{}, err
		}
		if len(resp.Results) == 0 {
			return Location{}, fmt.Errorf("%w: %q", ErrLocationNotFound, name)
		}
		return resp.Results[0], nil
	})
}

// GetForecast fetches current conditions plus daily and hourly forecasts.
func (s *Service) GetForecast(ctx context.Context, lat, lon float64, days, hours int) (*Forecast, error) {
	key := fmt.Sprintf("forecast|%.4f|%.4f|%d|%d", lat, lon, days, hours)
	return s.forecastCache.GetOrCompute(key, weatherTTL, func() (*Forecast, error) {
		q := coordParams(lat, lon)
		q.Set("current", currentParams)
		q.Set("daily", dailyParams)
		q.Set("hourly", hourlyParams)
		q.Set("forecast_days", strconv.Itoa(days))
		q.Set("forecast_hours", strconv.Itoa(hours))
		q.Set("timezone", "auto")

		var fc Forecast
		if err := s.getJSON(ctx, s.forecastURL, q, &fc); err != nil {
			return nil, err
		}
		return &fc, nil
	})
}

// GetAirQuality fetches the current particulate readings.
func (s *Service) GetAirQuality(ctx context.Context, lat, lon float64) (*AirQuality, error) {
	key := fmt.Sprintf("air|%.4f|%.4f", lat, lon)
	return s.airQualityCache.GetOrCompute(key, weatherTTL, func() (*AirQuality, error) {
		q := coordParams(lat, lon)
		q.Set("current", airQualityParams)

		var aq AirQuality
		if err := s.getJSON(ctx, s.airQualityURL, q, &aq); err != nil {
			return nil, err
		}
		return &aq, nil
	})
}

func coordParams(lat, lon float64) url.Values {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	return q
}

func (s *Service) getJSON(ctx context.Context, base string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("weather request failed", zap.String("url", base), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.logger.Warn("weather request rejected",
			zap.String("url", base), zap.Int("status", resp.StatusCode))
		return fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", ErrUpstream, err)
	}
	return nil
}
