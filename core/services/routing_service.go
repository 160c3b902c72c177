package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/resqnow/dispatch-core/core/config"
	"github.com/resqnow/dispatch-core/core/logger"
)

// RoutingETARequest is the payload sent to the external routing service to
// enrich a Haversine-ranked candidate with real travel time.
type RoutingETARequest struct {
	OriginLat float64 `json:"origin_lat"`
	OriginLng float64 `json:"origin_lng"`
	DestLat   float64 `json:"dest_lat"`
	DestLng   float64 `json:"dest_lng"`
}

// RoutingETAResponse is the routing service's distance/duration estimate.
type RoutingETAResponse struct {
	DistanceKm float64 `json:"distance_km"`
	DurationS  float64 `json:"duration_seconds"`
}

// IRoutingService enriches a technician-to-job leg with a real ETA. Callers
// must treat any error as transient and fall back to the Haversine
// estimate; the routing service is never load-bearing for correctness.
type IRoutingService interface {
	GetETA(ctx context.Context, req RoutingETARequest) (*RoutingETAResponse, error)
}

// RoutingService calls an external routing/maps provider over HTTP with a
// bounded ~3s timeout.
type RoutingService struct {
	baseURL string
	logger  logger.Logger
	client  *http.Client
}

// NewRoutingService builds a RoutingService from env configuration.
func NewRoutingService(cfg *config.AppConfig, logger logger.Logger) IRoutingService {
	return &RoutingService{
		baseURL: cfg.RoutingServiceURL,
		logger:  logger,
		client:  &http.Client{Timeout: 3 * time.Second},
	}
}

// GetETA requests a distance/duration estimate for one origin-destination
// leg. An empty baseURL (routing service not configured) is treated as a
// fast transient failure so callers fall back immediately.
func (s *RoutingService) GetETA(ctx context.Context, req RoutingETARequest) (*RoutingETAResponse, error) {
	if s.baseURL == "" {
		return nil, fmt.Errorf("routing service not configured")
	}

	url := fmt.Sprintf("%s/eta", s.baseURL)

	body, err := json.Marshal(req)
	if err != nil {
		s.logger.Error(ctx, "failed to marshal routing ETA request", logger.Fields{"error": err.Error()})
		return nil, err
	}

	resp, err := s.doRequest(ctx, http.MethodPost, url, body)
	if err != nil {
		s.logger.Warning(ctx, "routing service call failed, falling back to haversine ETA", logger.Fields{"error": err.Error()})
		return nil, err
	}

	var eta RoutingETAResponse
	if err := json.Unmarshal(resp, &eta); err != nil {
		s.logger.Error(ctx, "failed to unmarshal routing ETA response", logger.Fields{"error": err.Error()})
		return nil, err
	}

	return &eta, nil
}

func (s *RoutingService) doRequest(ctx context.Context, method, url string, body []byte) ([]byte, error) {
	var req *http.Request
	var err error

	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, url, bytes.NewBuffer(body))
	} else {
		req, err = http.NewRequestWithContext(ctx, method, url, nil)
	}
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("routing service returned status %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}
