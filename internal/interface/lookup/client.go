package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"dispatchboard-service/internal/domain/entity"
	"dispatchboard-service/internal/domain/repository"
	"dispatchboard-service/pkg/logger"
	"dispatchboard-service/pkg/metrics"

	"golang.org/x/oauth2/clientcredentials"
)

// Config holds the lookup provider settings. When ClientID and TokenURL are
// set the client authenticates with OAuth2 client credentials, otherwise the
// API key is sent as a query parameter.
type Config struct {
	BaseURL      string
	APIKey       string
	ClientID     string
	ClientSecret string
	TokenURL     string
	Timeout      time.Duration
}

// Client implements the LookupRepository interface against an HTTP
// flight-status API
type Client struct {
	config     Config
	httpClient *http.Client
	logger     logger.Logger
	metrics    *metrics.Metrics
}

// NewClient creates a new lookup client
func NewClient(ctx context.Context, config Config, logger logger.Logger, m *metrics.Metrics) repository.LookupRepository {
	var httpClient *http.Client
	if config.ClientID != "" && config.TokenURL != "" {
		cc := clientcredentials.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			TokenURL:     config.TokenURL,
		}
		httpClient = cc.Client(ctx)
		httpClient.Timeout = config.Timeout
	} else {
		httpClient = &http.Client{Timeout: config.Timeout}
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
		logger:     logger,
		metrics:    m,
	}
}

// statusResponse is the provider's wire format
type statusResponse struct {
	Status  string `json:"status"`
	Arrival struct {
		Actual    string `json:"actual,omitempty"`
		Estimated string `json:"estimated,omitempty"`
	} `json:"arrival"`
}

// Status looks up the current arrival time and status for a flight
func (c *Client) Status(ctx context.Context, carrierCode, flightNumber string) (*entity.LookupResult, error) {
	start := time.Now()
	defer func() {
		c.metrics.LookupDuration.Observe(time.Since(start).Seconds())
	}()

	url := fmt.Sprintf("%s/v1/flights/%s/%s", c.config.BaseURL, carrierCode, flightNumber)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.config.APIKey != "" {
		q := req.URL.Query()
		q.Set("access_key", c.config.APIKey)
		req.URL.RawQuery = q.Encode()
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, repository.ErrFlightNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lookup service returned status %d", resp.StatusCode)
	}

	var body statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	result := &entity.LookupResult{Status: body.Status}
	if result.Status == "" {
		result.Status = entity.StatusNA
	}

	// Prefer the actual arrival over the estimate
	arrival := body.Arrival.Actual
	if arrival == "" {
		arrival = body.Arrival.Estimated
	}
	if arrival != "" {
		t, err := time.Parse(time.RFC3339, arrival)
		if err != nil {
			c.logger.Warn("Unparseable arrival from lookup", "flight", carrierCode+flightNumber, "arrival", arrival)
		} else {
			result.Arriving = t
		}
	}

	c.logger.Debug("Lookup completed",
		"carrier", carrierCode,
		"flight", flightNumber,
		"status", result.Status)

	return result, nil
}
