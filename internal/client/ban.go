package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBANBaseURL is the public address search API of the Base Adresse Nationale.
const DefaultBANBaseURL = "https://api-adresse.data.gouv.fr"

const banUpstream = "ban"

// GeocodeResult is the first feature of an address search.
type GeocodeResult struct {
	Label       string
	HouseNumber *string
	Street      *string
	Postcode    string
	CityCode    string
	Latitude    float64
	Longitude   float64
}

// banResponse mirrors the parts of the GeoJSON FeatureCollection we read.
// Features stays raw so a missing field can be told apart from null or [].
type banResponse struct {
	Features json.RawMessage `json:"features"`
}

type banFeature struct {
	Properties struct {
		Label       string  `json:"label"`
		HouseNumber *string `json:"housenumber"`
		Street      *string `json:"street"`
		Postcode    string  `json:"postcode"`
		CityCode    string  `json:"citycode"`
	} `json:"properties"`
	Geometry struct {
		Coordinates []float64 `json:"coordinates"`
	} `json:"geometry"`
}

// BANClient resolves free-text queries through the BAN search endpoint.
type BANClient struct {
	baseURL    string
	httpClient *http.Client
	observer   Observer
}

// NewBANClient creates a geocoding client. Every request is bounded by timeout.
func NewBANClient(baseURL string, timeout time.Duration, opts ...Option) *BANClient {
	o := buildOptions(timeout, opts)
	return &BANClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: o.httpClient,
		observer:   o.observer,
	}
}

// Search returns the best match for query. It fails with ErrNoMatchFound when
// the search has no result and ErrUpstreamUnavailable for anything else.
func (c *BANClient) Search(ctx context.Context, query string) (*GeocodeResult, error) {
	start := time.Now()
	result, err := c.search(ctx, query)

	outcome := OutcomeOK
	switch {
	case errors.Is(err, ErrNoMatchFound):
		outcome = OutcomeNoMatch
	case err != nil:
		outcome = OutcomeError
	}
	c.observer.ObserveUpstream(banUpstream, outcome, time.Since(start))

	return result, err
}

func (c *BANClient) search(ctx context.Context, query string) (*GeocodeResult, error) {
	params := url.Values{
		"q":     {query},
		"limit": {"1"},
	}
	reqURL := c.baseURL + "/search/?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: ban: build request: %v", ErrUpstreamUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: ban: request: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: ban: returned status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}

	var body banResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: ban: parse response: %v", ErrUpstreamUnavailable, err)
	}

	if body.Features == nil {
		return nil, fmt.Errorf("%w: ban: response has no features field", ErrUpstreamUnavailable)
	}

	// null decodes to an empty slice and counts as no match
	var features []banFeature
	if err := json.Unmarshal(body.Features, &features); err != nil {
		return nil, fmt.Errorf("%w: ban: parse features: %v", ErrUpstreamUnavailable, err)
	}
	if len(features) == 0 {
		return nil, ErrNoMatchFound
	}

	first := features[0]
	// GeoJSON order is [lon, lat]
	if len(first.Geometry.Coordinates) < 2 {
		return nil, fmt.Errorf("%w: ban: feature has %d coordinates", ErrUpstreamUnavailable, len(first.Geometry.Coordinates))
	}

	return &GeocodeResult{
		Label:       first.Properties.Label,
		HouseNumber: first.Properties.HouseNumber,
		Street:      first.Properties.Street,
		Postcode:    first.Properties.Postcode,
		CityCode:    first.Properties.CityCode,
		Longitude:   first.Geometry.Coordinates[0],
		Latitude:    first.Geometry.Coordinates[1],
	}, nil
}
