package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"address-risk-api/internal/client"
	"address-risk-api/internal/models"
	"address-risk-api/internal/repository"

	"github.com/rs/zerolog/log"
)

var (
	// ErrInvalidInput is returned when the search query is empty after trimming.
	ErrInvalidInput = errors.New("service: query cannot be empty")

	// ErrAddressNotFound is returned when no stored address has the requested id.
	ErrAddressNotFound = errors.New("service: address not found")
)

// AddressService resolves free-text queries into stored addresses
type AddressService struct {
	geocoder Geocoder
	repo     AddressRepository
}

// Geocoder interface for dependency injection
type Geocoder interface {
	Search(ctx context.Context, query string) (*client.GeocodeResult, error)
}

// AddressRepository interface for dependency injection
type AddressRepository interface {
	FindByCoordinates(ctx context.Context, lat, lon float64) (*models.Address, error)
	Create(ctx context.Context, addr *models.Address) (*models.Address, error)
}

// NewAddressService creates a new address service
func NewAddressService(geocoder Geocoder, repo AddressRepository) *AddressService {
	return &AddressService{geocoder: geocoder, repo: repo}
}

// ResolveAddress geocodes query and returns the matching stored address,
// creating it the first time its coordinates are seen.
func (s *AddressService) ResolveAddress(ctx context.Context, query string) (*models.Address, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrInvalidInput
	}

	result, err := s.geocoder.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("service: failed to geocode %q: %w", query, err)
	}

	existing, err := s.repo.FindByCoordinates(ctx, result.Latitude, result.Longitude)
	if err != nil {
		return nil, fmt.Errorf("service: failed to look up address: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	created, err := s.repo.Create(ctx, &models.Address{
		Label:       result.Label,
		HouseNumber: result.HouseNumber,
		Street:      result.Street,
		Postcode:    result.Postcode,
		CityCode:    result.CityCode,
		Latitude:    result.Latitude,
		Longitude:   result.Longitude,
	})
	if err == nil {
		return created, nil
	}
	if !errors.Is(err, repository.ErrDuplicateCoordinates) {
		return nil, fmt.Errorf("service: failed to create address: %w", err)
	}

	// Lost a race with a concurrent identical query: the row exists now.
	log.Ctx(ctx).Debug().
		Float64("latitude", result.Latitude).
		Float64("longitude", result.Longitude).
		Msg("address inserted concurrently, re-fetching")

	existing, err = s.repo.FindByCoordinates(ctx, result.Latitude, result.Longitude)
	if err != nil {
		return nil, fmt.Errorf("service: failed to re-fetch address: %w", err)
	}
	if existing == nil {
		return nil, fmt.Errorf("service: address vanished after conflict: %w", repository.ErrDuplicateCoordinates)
	}

	return existing, nil
}
