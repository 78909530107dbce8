package smm

import (
	"context"
	"errors"
	"fmt"

	"autoorderbot/internal/config"
)

var (
	// ErrServiceUnavailable means a configured service id is missing from
	// the fetched catalog.
	ErrServiceUnavailable = errors.New("configured service missing from catalog")
	// ErrPriceExceeded means the panel's quoted price is above the
	// configured ceiling for a service.
	ErrPriceExceeded = errors.New("service price exceeds configured maximum")
)

// CatalogAPI is the catalog slice of the panel client.
type CatalogAPI interface {
	Services(ctx context.Context) ([]Service, error)
}

// Validator gates batch execution on the live catalog. The panel can
// reprice or remove a service at any time, while the bot charges a fixed
// one-limit-per-link rate; the validator fails closed before any money
// is spent on a stale assumption.
type Validator struct {
	api      CatalogAPI
	services []config.SMMServiceConfig
}

// NewValidator builds a validator for the fixed service set of a batch.
func NewValidator(api CatalogAPI, services ...config.SMMServiceConfig) *Validator {
	return &Validator{api: api, services: services}
}

// Validate fetches the catalog fresh and checks every configured service
// by exact id match against its price ceiling. Results are never cached:
// prices move between batches.
func (v *Validator) Validate(ctx context.Context) error {
	catalog, err := v.api.Services(ctx)
	if err != nil {
		return fmt.Errorf("fetch catalog: %w", err)
	}

	byID := make(map[string]Service, len(catalog))
	for _, s := range catalog {
		byID[s.ID] = s
	}

	for _, want := range v.services {
		got, ok := byID[want.ID]
		if !ok {
			return fmt.Errorf("%w: service %s", ErrServiceUnavailable, want.ID)
		}
		if want.MaxPrice > 0 && got.Price > want.MaxPrice {
			return fmt.Errorf("%w: service %s priced %.2f, ceiling %.2f",
				ErrPriceExceeded, want.ID, got.Price, want.MaxPrice)
		}
	}
	return nil
}
