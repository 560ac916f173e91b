package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/paulmach/orb"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"homezoo/partner-portal/onboarding-service/internal/wizard"
	"homezoo/partner-portal/onboarding-service/pkg/geospatial"
)

// LocationClient implements wizard.LocationService. Calls share one rate
// limiter because the geocoding provider behind the backend is metered.
type LocationClient struct {
	client  *Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewLocationClient allows rps requests per second with the given burst.
// A non-positive rps disables throttling.
func NewLocationClient(client *Client, rps float64, burst int, logger *zap.Logger) *LocationClient {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if burst < 1 {
		burst = 1
	}
	return &LocationClient{
		client:  client,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}
}

var _ wizard.LocationService = (*LocationClient)(nil)

func formatCoord(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func (l *LocationClient) wait(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("location rate limit: %w", err)
	}
	return nil
}

func (l *LocationClient) SearchLocation(ctx context.Context, query string) ([]wizard.PlaceResult, error) {
	if err := l.wait(ctx); err != nil {
		return nil, err
	}
	var out struct {
		Results []wizard.PlaceResult `json:"results"`
	}
	q := url.Values{"q": {query}}
	if err := l.client.do(ctx, http.MethodGet, "/location/search", q, nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

func (l *LocationClient) GetAddressFromCoordinates(ctx context.Context, lat, lng float64) (*wizard.Address, error) {
	if err := l.wait(ctx); err != nil {
		return nil, err
	}
	var out wizard.Address
	q := url.Values{"lat": {formatCoord(lat)}, "lng": {formatCoord(lng)}}
	if err := l.client.do(ctx, http.MethodGet, "/location/address", q, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CalculateDistance asks the backend for the travel distance. When the
// backend cannot answer, the great-circle distance is used instead.
func (l *LocationClient) CalculateDistance(ctx context.Context, lat1, lng1, lat2, lng2 float64) (float64, error) {
	a, b := orb.Point{lng1, lat1}, orb.Point{lng2, lat2}
	if err := geospatial.ValidatePoint(a); err != nil {
		return 0, err
	}
	if err := geospatial.ValidatePoint(b); err != nil {
		return 0, err
	}

	km, err := l.remoteDistance(ctx, lat1, lng1, lat2, lng2)
	if err == nil {
		return km, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, err
	}
	l.logger.Info("Distance endpoint failed, using great-circle distance", zap.Error(err))
	return geospatial.DistanceKm(a, b), nil
}

func (l *LocationClient) remoteDistance(ctx context.Context, lat1, lng1, lat2, lng2 float64) (float64, error) {
	if err := l.wait(ctx); err != nil {
		return 0, err
	}
	var out struct {
		DistanceKm *float64 `json:"distanceKm"`
	}
	q := url.Values{
		"lat1": {formatCoord(lat1)}, "lng1": {formatCoord(lng1)},
		"lat2": {formatCoord(lat2)}, "lng2": {formatCoord(lng2)},
	}
	if err := l.client.do(ctx, http.MethodGet, "/location/distance", q, nil, nil, &out); err != nil {
		return 0, err
	}
	if out.DistanceKm == nil {
		return 0, errors.New("distance response carried no distanceKm")
	}
	return *out.DistanceKm, nil
}
