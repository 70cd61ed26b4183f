package service

import (
	"context"

	"github.com/alexivanou/georef/internal/config"
	"github.com/alexivanou/georef/internal/model"
	"github.com/alexivanou/georef/internal/repository"
	"github.com/alexivanou/georef/internal/search"
)

// Service provides business logic for the API and the maintenance commands
type Service struct {
	repo      repository.Repository
	strategy  search.Strategy
	searchCfg config.SearchConfig
	// postcodes of these countries are stored without spaces
	spaceless []string
}

// NewService creates a new service instance
func NewService(
	repo repository.Repository,
	strategy search.Strategy,
	searchCfg config.SearchConfig,
	spacelessCountries []string,
) *Service {
	return &Service{
		repo:      repo,
		strategy:  strategy,
		searchCfg: searchCfg,
		spaceless: spacelessCountries,
	}
}

// LatestUpdate returns the last committed load, or nil before the first one
func (s *Service) LatestUpdate(ctx context.Context) (*model.GeonamesUpdate, error) {
	return s.repo.LatestUpdate(ctx)
}
