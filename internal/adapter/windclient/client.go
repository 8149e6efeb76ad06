// Package windclient fetches wind windows from a running /wind endpoint.
package windclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/wind-stream-service/internal/domain"
	"github.com/couchcryptid/wind-stream-service/internal/query"
)

// Client calls the wind API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// Wind fetches the window of forecastTime inside bounds at zoom. A 404 maps
// to domain.ErrDataUnavailable. The returned snapshot may be empty when the
// bounds were degenerate.
func (c *Client) Wind(ctx context.Context, bounds domain.BoundsQuery, forecastTime, zoom int) (domain.Snapshot, error) {
	q := query.Request{Bounds: bounds, ForecastTime: forecastTime, Zoom: zoom}
	fullURL := c.baseURL + "/wind?" + q.Values().Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("wind request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return domain.Snapshot{}, fmt.Errorf("forecast %d: %w", forecastTime, domain.ErrDataUnavailable)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return domain.Snapshot{}, fmt.Errorf("wind API error: status %d: %s", resp.StatusCode, body)
	}

	var payload query.Response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.Snapshot{}, fmt.Errorf("decode response: %w", err)
	}
	h := payload.Header
	if len(payload.WindU) != h.Nx*h.Ny || len(payload.WindV) != h.Nx*h.Ny {
		return domain.Snapshot{}, fmt.Errorf("%w: header %dx%d with u=%d v=%d values",
			domain.ErrMalformedSnapshot, h.Nx, h.Ny, len(payload.WindU), len(payload.WindV))
	}

	c.logger.Debug("wind window fetched",
		"bounds", bounds.String(),
		"forecast_time", forecastTime,
		"zoom", zoom,
		"nx", h.Nx,
		"ny", h.Ny,
		"duration", time.Since(start),
	)
	return domain.Snapshot{ForecastTime: forecastTime, Header: h, U: payload.WindU, V: payload.WindV}, nil
}
