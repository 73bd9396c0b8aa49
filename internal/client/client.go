// Package client talks to the two upstream APIs the service depends on: the
// BAN address search and the Géorisques risk report.
package client

import (
	"errors"
	"net/http"
	"time"
)

var (
	// ErrUpstreamUnavailable covers transport failures, non-200 statuses and
	// bodies that do not have the expected shape.
	ErrUpstreamUnavailable = errors.New("client: upstream unavailable")

	// ErrNoMatchFound is returned when the address search yields no feature.
	ErrNoMatchFound = errors.New("client: no match found")
)

// Outcomes reported to an Observer.
const (
	OutcomeOK      = "ok"
	OutcomeNoMatch = "no_match"
	OutcomeError   = "error"
)

// Observer is notified once per upstream call.
type Observer interface {
	ObserveUpstream(upstream, outcome string, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveUpstream(string, string, time.Duration) {}

// Option configures a client.
type Option func(*options)

type options struct {
	httpClient *http.Client
	observer   Observer
}

// WithHTTPClient replaces the default HTTP client. Its Timeout is overridden
// by the timeout given to the client constructor. A nil client is ignored.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		if hc != nil {
			o.httpClient = hc
		}
	}
}

// WithObserver reports each upstream call to obs.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

func buildOptions(timeout time.Duration, opts []Option) options {
	o := options{
		httpClient: &http.Client{},
		observer:   nopObserver{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	hc := *o.httpClient
	hc.Timeout = timeout
	o.httpClient = &hc
	return o
}
