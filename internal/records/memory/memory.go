package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"sfms/internal/core"
	"sfms/internal/records"
)

// Store keeps records in process memory. It backs local development and
// tests.
type Store struct {
	mu         sync.RWMutex
	categories []core.TaxReliefCategory
	debts      map[string][]core.Debt
	profiles   map[profileKey]core.TaxProfile
	users      []core.UserProfile
}

type profileKey struct {
	userID string
	year   int
}

func New(ds *records.Dataset) *Store {
	s := &Store{
		debts:    make(map[string][]core.Debt),
		profiles: make(map[profileKey]core.TaxProfile),
	}
	if ds == nil {
		return s
	}
	s.categories = append(s.categories, ds.Categories...)
	records.SortCategories(s.categories)
	for _, d := range ds.Debts {
		s.debts[d.UserID] = append(s.debts[d.UserID], d)
	}
	for _, p := range ds.Profiles {
		s.profiles[profileKey{p.UserID, p.AssessmentYear}] = p
	}
	s.users = append(s.users, ds.Users...)
	return s
}

// NewFromFile seeds the store from a YAML file. A missing or empty path
// falls back to the default relief categories with no user data.
func NewFromFile(path string) (*Store, error) {
	if path == "" {
		return New(&records.Dataset{Categories: DefaultCategories()}), nil
	}
	ds, err := records.LoadSeed(path)
	if err != nil {
		return nil, err
	}
	if len(ds.Categories) == 0 {
		slog.Warn("Seed file has no relief categories, using defaults", "path", path)
		ds.Categories = DefaultCategories()
	}
	return New(ds), nil
}

// DefaultCategories is a small set of common personal relief categories.
func DefaultCategories() []core.TaxReliefCategory {
	def := func(code, label string, limit int64) core.TaxReliefCategory {
		return core.TaxReliefCategory{ID: code, Code: code, Label: label, AnnualLimit: decimal.NewFromInt(limit)}
	}
	return []core.TaxReliefCategory{
		def("G1", "Individual and dependent relatives", 9000),
		def("G10", "Lifestyle", 2500),
		def("G12", "Sports activities", 1000),
		def("G14", "Education fees (self)", 7000),
		def("G17", "Life insurance and EPF", 7000),
		def("G6", "Medical expenses", 10000),
	}
}

func (s *Store) ListReliefCategories(_ context.Context) ([]core.TaxReliefCategory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.TaxReliefCategory(nil), s.categories...), nil
}

func (s *Store) GetTaxProfile(_ context.Context, userID string, year int) (core.TaxProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[profileKey{userID, year}]
	if !ok {
		return core.TaxProfile{}, fmt.Errorf("tax profile %s/%d: %w", userID, year, core.ErrNotFound)
	}
	p.Claims = append([]core.TaxClaim(nil), p.Claims...)
	return p, nil
}

func (s *Store) ListDebts(_ context.Context, userID string) ([]core.Debt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Debt(nil), s.debts[userID]...), nil
}

func (s *Store) GetUserProfile(_ context.Context, userID string) (core.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.ID == userID {
			return u, nil
		}
	}
	return core.UserProfile{}, fmt.Errorf("user profile %s: %w", userID, core.ErrNotFound)
}

func (s *Store) ListUserProfiles(_ context.Context) ([]core.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.UserProfile(nil), s.users...), nil
}

func (s *Store) Ping(context.Context) error { return nil }

// Put replaces the records for one user. Used by tests and local tooling.
func (s *Store) Put(user core.UserProfile, debts []core.Debt, profiles ...core.TaxProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	replaced := false
	for i := range s.users {
		if s.users[i].ID == user.ID {
			s.users[i] = user
			replaced = true
		}
	}
	if !replaced {
		s.users = append(s.users, user)
	}
	s.debts[user.ID] = append([]core.Debt(nil), debts...)
	for _, p := range profiles {
		s.profiles[profileKey{p.UserID, p.AssessmentYear}] = p
	}
}
