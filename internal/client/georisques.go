package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultGeorisquesBaseURL is the public Géorisques API host.
const DefaultGeorisquesBaseURL = "https://georisques.gouv.fr"

const georisquesUpstream = "georisques"

// GeorisquesClient fetches risk reports for a coordinate pair.
type GeorisquesClient struct {
	baseURL    string
	httpClient *http.Client
	observer   Observer
}

// NewGeorisquesClient creates a risk client. Every request is bounded by timeout.
func NewGeorisquesClient(baseURL string, timeout time.Duration, opts ...Option) *GeorisquesClient {
	o := buildOptions(timeout, opts)
	return &GeorisquesClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: o.httpClient,
		observer:   o.observer,
	}
}

// RiskReport returns the risk report for (lon, lat) exactly as the upstream sent it.
func (c *GeorisquesClient) RiskReport(ctx context.Context, lon, lat float64) (json.RawMessage, error) {
	start := time.Now()
	payload, err := c.riskReport(ctx, lon, lat)

	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	c.observer.ObserveUpstream(georisquesUpstream, outcome, time.Since(start))

	return payload, err
}

func (c *GeorisquesClient) riskReport(ctx context.Context, lon, lat float64) (json.RawMessage, error) {
	latlon := strconv.FormatFloat(lon, 'f', -1, 64) + "," + strconv.FormatFloat(lat, 'f', -1, 64)
	reqURL := c.baseURL + "/api/v1/resultats_rapport_risque?latlon=" + latlon

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: georisques: build request: %v", ErrUpstreamUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: georisques: request: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: georisques: returned status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: georisques: read body: %v", ErrUpstreamUnavailable, err)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: georisques: response is not JSON", ErrUpstreamUnavailable)
	}

	return json.RawMessage(body), nil
}
