// Package client talks to the StarSeeker HTTP API and validates every response.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/harrylevesque/starseeker/internal/models"
	"github.com/harrylevesque/starseeker/internal/utils"
)

const (
	apiKeyHeader    = "x-api-key"
	requestIDHeader = "X-Request-ID"

	maxErrorBody = 1024
)

// HTTPError is returned for any non-2xx response.
type HTTPError struct {
	Path   string
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	msg := e.Body
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Status, msg)
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	log        *utils.Logger
}

// New creates a client for baseURL. A nil httpClient gets a 15s timeout.
func New(httpClient *http.Client, baseURL, apiKey string, log *utils.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:     apiKey,
		log:        log,
	}
}

// BaseURL returns the API root the client was built with.
func (c *Client) BaseURL() string { return c.baseURL }

// ListGates returns every gate, sorted by name.
func (c *Client) ListGates(ctx context.Context) ([]models.Gate, error) {
	body, err := c.get(ctx, "/gates")
	if err != nil {
		return nil, err
	}
	return models.DecodeGates(body)
}

// GetGate returns the gate with the given code.
func (c *Client) GetGate(ctx context.Context, code string) (models.Gate, error) {
	if code == "" {
		return models.Gate{}, errors.New("gate code is required")
	}
	body, err := c.get(ctx, "/gates/"+url.PathEscape(code))
	if err != nil {
		return models.Gate{}, err
	}
	return models.DecodeGate(body)
}

// CheapestRoute asks the service for the cheapest journey between two gates.
func (c *Client) CheapestRoute(ctx context.Context, from, to string) (models.Journey, error) {
	if from == "" || to == "" {
		return models.Journey{}, errors.New("both gate codes are required")
	}
	body, err := c.get(ctx, "/gates/"+url.PathEscape(from)+"/to/"+url.PathEscape(to))
	if err != nil {
		return models.Journey{}, err
	}
	return models.DecodeJourney(body)
}

// TransportCost quotes moving passengers distance AU with parking days of parking.
func (c *Client) TransportCost(ctx context.Context, distance float64, passengers, parking int) (models.TransportCost, error) {
	q := url.Values{}
	q.Set("passengers", strconv.Itoa(passengers))
	q.Set("parking", strconv.Itoa(parking))
	path := "/transport/" + strconv.FormatFloat(distance, 'f', -1, 64) + "?" + q.Encode()
	body, err := c.get(ctx, path)
	if err != nil {
		return models.TransportCost{}, err
	}
	return models.DecodeTransportCost(body)
}

// Status returns the service health report.
func (c *Client) Status(ctx context.Context) (models.Status, error) {
	body, err := c.get(ctx, "/status")
	if err != nil {
		return models.Status{}, err
	}
	return models.DecodeStatus(body)
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set(requestIDHeader, requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warnf("GET %s [%s] failed: %v", path, requestID, err)
		return nil, err
	}
	defer resp.Body.Close()
	c.log.Infof("GET %s [%s] %d in %s", path, requestID, resp.StatusCode, time.Since(start).Round(time.Millisecond))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &HTTPError{Path: path, Status: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	return io.ReadAll(resp.Body)
}
