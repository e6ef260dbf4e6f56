// Package records defines the read-only ports the insights service uses to
// fetch user-scoped finance records, plus the YAML seed format shared by the
// local backends.
package records

import (
	"context"

	"sfms/internal/core"
)

// Ports for outbound adapters.
type (
	TaxReader interface {
		// ListReliefCategories returns every relief category ordered by code.
		ListReliefCategories(ctx context.Context) ([]core.TaxReliefCategory, error)
		// GetTaxProfile returns core.ErrNotFound when the user has no profile
		// for the assessment year.
		GetTaxProfile(ctx context.Context, userID string, year int) (core.TaxProfile, error)
	}

	DebtReader interface {
		ListDebts(ctx context.Context, userID string) ([]core.Debt, error)
	}

	ProfileReader interface {
		GetUserProfile(ctx context.Context, userID string) (core.UserProfile, error)
		ListUserProfiles(ctx context.Context) ([]core.UserProfile, error)
	}

	// Store is implemented by every backend.
	Store interface {
		TaxReader
		DebtReader
		ProfileReader
		Ping(ctx context.Context) error
	}
)
