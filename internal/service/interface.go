package service

import (
	"context"

	"github.com/alexivanou/georef/internal/model"
)

// ServiceInterface defines the service interface for testing
type ServiceInterface interface {
	Nearby(ctx context.Context, req model.NearbyRequest) (*model.NearbyResponse, error)
	FindLocalities(ctx context.Context, countryCode, name string) (*model.LocalitiesResponse, error)
	ListAdmin1(ctx context.Context, countryCode string) (*model.Admin1Response, error)
	ListAdmin2(ctx context.Context, admin1ID int64) (*model.Admin2Response, error)
	FindPostcodes(ctx context.Context, countryCode, postalCode string) (*model.PostcodesResponse, error)
}
