package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"servicelist-service/internal/domain/entity"
	"servicelist-service/internal/domain/repository"
	"servicelist-service/pkg/logger"
)

// ScraperClient fetches service days from the scrape API
type ScraperClient struct {
	logger  logger.Logger
	baseURL string
	client  *http.Client
}

// NewScraperClient creates a new scrape API client
func NewScraperClient(baseURL string, logger logger.Logger) repository.ScrapeClient {
	return &ScraperClient{
		logger:  logger,
		baseURL: baseURL,
		// Forced fetches trigger a live scrape upstream, which is slow
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

// FetchDay requests one date from the scrape API. The PIN travels in the
// X-PIN header; an upstream error body becomes the returned error message.
func (c *ScraperClient) FetchDay(ctx context.Context, date, pin string, forceRefresh bool) (*entity.ServiceDay, error) {
	params := url.Values{}
	params.Set("date", date)
	if forceRefresh {
		params.Set("forceRefresh", "true")
	}

	endpoint := fmt.Sprintf("%s/getjson?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if pin != "" {
		req.Header.Set("X-PIN", pin)
	}

	c.logger.Info("Fetching service day from scrape API",
		"date", date,
		"forceRefresh", forceRefresh)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach scrape API: %w", err)
	}
	defer resp.Body.Close()

	var payload struct {
		Data struct {
			Pickups []entity.ServiceItem `json:"pickups"`
			Returns []entity.ServiceItem `json:"returns"`
		} `json:"data"`
		Error string `json:"error"`
	}
	decodeErr := json.NewDecoder(resp.Body).Decode(&payload)

	if resp.StatusCode != http.StatusOK {
		if payload.Error != "" {
			return nil, fmt.Errorf("%s", payload.Error)
		}
		return nil, fmt.Errorf("API error (%d)", resp.StatusCode)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to decode scrape response: %w", decodeErr)
	}

	now := time.Now()
	return entity.NormalizeServiceDay(date, &now, payload.Data.Pickups, payload.Data.Returns), nil
}
