// Package query answers bounded wind requests: it validates the request,
// fetches one forecast hour from the store, and extracts the window.
package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/wind-stream-service/internal/domain"
	"github.com/couchcryptid/wind-stream-service/internal/observability"
	"github.com/couchcryptid/wind-stream-service/internal/subset"
)

// GridFetcher loads the materialized grid for one forecast hour.
type GridFetcher interface {
	FetchGrid(ctx context.Context, forecastTime int) (domain.Snapshot, error)
}

// Request is a validated /wind query.
type Request struct {
	Bounds       domain.BoundsQuery
	ForecastTime int
	Zoom         int
}

// Response is the /wind payload. WindU and WindV each hold Header.Nx*Header.Ny values.
type Response struct {
	Header domain.GridHeader `json:"header"`
	WindU  []float64         `json:"wind_u"`
	WindV  []float64         `json:"wind_v"`
}

// ParseRequest reads bounds, forecastTime, and zoom from query parameters.
// forecastTime defaults to 0 and zoom to 9; values outside their ranges are
// rejected.
func ParseRequest(v url.Values) (Request, error) {
	raw := v.Get("bounds")
	if raw == "" {
		return Request{}, &domain.ValidationError{Field: "bounds", Reason: "required"}
	}
	b, err := domain.ParseBounds(raw)
	if err != nil {
		return Request{}, err
	}

	ft, err := intParam(v, "forecastTime", domain.MinForecastTime)
	if err != nil {
		return Request{}, err
	}
	zoom, err := intParam(v, "zoom", domain.DefaultZoom)
	if err != nil {
		return Request{}, err
	}

	req := Request{Bounds: b, ForecastTime: ft, Zoom: zoom}
	if err := req.Validate(); err != nil {
		return Request{}, err
	}
	return req, nil
}

func intParam(v url.Values, name string, def int) (int, error) {
	s := v.Get(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, &domain.ValidationError{Field: name, Reason: "not an integer: " + s}
	}
	return n, nil
}

// Validate checks forecast time and zoom ranges.
func (r Request) Validate() error {
	if err := domain.ValidateForecastTime(r.ForecastTime); err != nil {
		return err
	}
	return domain.ValidateZoom(r.Zoom)
}

// Values encodes the request as query parameters.
func (r Request) Values() url.Values {
	return url.Values{
		"bounds":       {r.Bounds.String()},
		"forecastTime": {strconv.Itoa(r.ForecastTime)},
		"zoom":         {strconv.Itoa(r.Zoom)},
	}
}

// Service serves wind queries from a grid store.
type Service struct {
	store   GridFetcher
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewService creates a query service over store.
func NewService(store GridFetcher, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{store: store, logger: logger, metrics: metrics}
}

// Wind validates req, fetches its forecast hour, and extracts the window.
// Invalid requests fail before the store is touched.
func (s *Service) Wind(ctx context.Context, req Request) (Response, error) {
	start := time.Now()
	defer func() { s.metrics.WindRequestDuration.Observe(time.Since(start).Seconds()) }()

	if err := req.Validate(); err != nil {
		s.metrics.WindRequests.WithLabelValues("invalid").Inc()
		return Response{}, err
	}

	snap, err := s.store.FetchGrid(ctx, req.ForecastTime)
	if err != nil {
		if errors.Is(err, domain.ErrDataUnavailable) {
			s.metrics.WindRequests.WithLabelValues("unavailable").Inc()
		} else {
			s.metrics.WindRequests.WithLabelValues("error").Inc()
		}
		return Response{}, fmt.Errorf("fetch forecast %d: %w", req.ForecastTime, err)
	}

	res := subset.Extract(snap, req.Bounds, req.Zoom)
	if res.Degenerate {
		s.metrics.DegenerateBounds.Inc()
		s.logger.Warn("degenerate bounds",
			"bounds", req.Bounds.String(),
			"forecast_time", req.ForecastTime,
			"zoom", req.Zoom,
			"nx", res.Header.Nx,
			"ny", res.Header.Ny,
		)
	}

	s.metrics.WindRequests.WithLabelValues("ok").Inc()
	s.logger.Debug("wind query served",
		"forecast_time", req.ForecastTime,
		"zoom", req.Zoom,
		"stride", res.Stride,
		"points", len(res.U),
	)
	return Response{Header: res.Header, WindU: res.U, WindV: res.V}, nil
}
