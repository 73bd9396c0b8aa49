package service

import (
	"context"
	"encoding/json"
	"fmt"

	"address-risk-api/internal/models"
)

// RiskService fetches the risk report of a stored address
type RiskService struct {
	repo  RiskRepository
	risks RiskReporter
}

// RiskRepository interface for dependency injection
type RiskRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Address, error)
}

// RiskReporter interface for dependency injection
type RiskReporter interface {
	RiskReport(ctx context.Context, lon, lat float64) (json.RawMessage, error)
}

// NewRiskService creates a new risk service
func NewRiskService(repo RiskRepository, risks RiskReporter) *RiskService {
	return &RiskService{repo: repo, risks: risks}
}

// GetRisks returns the upstream risk report for the address with the given id, unmodified.
func (s *RiskService) GetRisks(ctx context.Context, id int64) (json.RawMessage, error) {
	addr, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service: failed to find address %d: %w", id, err)
	}
	if addr == nil {
		return nil, ErrAddressNotFound
	}

	payload, err := s.risks.RiskReport(ctx, addr.Longitude, addr.Latitude)
	if err != nil {
		return nil, fmt.Errorf("service: failed to fetch risks for address %d: %w", id, err)
	}

	return payload, nil
}
