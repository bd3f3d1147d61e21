package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"time"
)

// MLBridge handles communication with the Python vehicle detection service
type MLBridge struct {
	serviceURL string
	httpClient *http.Client
}

// NewMLBridge creates a new ML bridge
func NewMLBridge(serviceURL string) *MLBridge {
	return &MLBridge{
		serviceURL: serviceURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// countResponse is the detection service reply
type countResponse struct {
	Count int `json:"count"`
}

// CountVehicles sends a lane region to the detection service and returns the
// number of vehicle-class objects it found
func (b *MLBridge) CountVehicles(ctx context.Context, region image.Image) (int, error) {
	var body bytes.Buffer
	if err := jpeg.Encode(&body, region, &jpeg.Options{Quality: 85}); err != nil {
		return 0, fmt.Errorf("ml_bridge: failed to encode region: %w", err)
	}

	url := fmt.Sprintf("%s/count", b.serviceURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return 0, fmt.Errorf("ml_bridge: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "image/jpeg")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("ml_bridge: count request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("ml_bridge: count returned status %d", resp.StatusCode)
	}

	var out countResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("ml_bridge: failed to decode response: %w", err)
	}
	if out.Count < 0 {
		return 0, fmt.Errorf("ml_bridge: negative count %d", out.Count)
	}

	return out.Count, nil
}

// Health checks ML service connectivity
func (b *MLBridge) Health(ctx context.Context) error {
	url := fmt.Sprintf("%s/health", b.serviceURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("ml_bridge: failed to create health request: %w", err)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ml_bridge: health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ml_bridge: health check returned status %d", resp.StatusCode)
	}

	return nil
}
