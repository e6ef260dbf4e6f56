package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"sfms/internal/amqp"
	"sfms/internal/core"
)

type fakeStore struct {
	categories    []core.TaxReliefCategory
	profiles      map[int]core.TaxProfile
	debts         []core.Debt
	categoriesErr error
	profileErr    error
	debtsErr      error

	mu            sync.Mutex
	requestedYear int
}

func (f *fakeStore) ListReliefCategories(context.Context) ([]core.TaxReliefCategory, error) {
	return f.categories, f.categoriesErr
}

func (f *fakeStore) GetTaxProfile(_ context.Context, userID string, year int) (core.TaxProfile, error) {
	f.mu.Lock()
	f.requestedYear = year
	f.mu.Unlock()
	if f.profileErr != nil {
		return core.TaxProfile{}, f.profileErr
	}
	p, ok := f.profiles[year]
	if !ok {
		return core.TaxProfile{}, core.ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) ListDebts(context.Context, string) ([]core.Debt, error) {
	return f.debts, f.debtsErr
}

func (f *fakeStore) GetUserProfile(context.Context, string) (core.UserProfile, error) {
	return core.UserProfile{}, core.ErrNotFound
}

func (f *fakeStore) ListUserProfiles(context.Context) ([]core.UserProfile, error) {
	return nil, nil
}

func (f *fakeStore) Ping(context.Context) error { return nil }

type fakePublisher struct {
	alerts []*amqp.AffordabilityAlert
	err    error
}

func (p *fakePublisher) PublishAlert(_ context.Context, a *amqp.AffordabilityAlert) error {
	p.alerts = append(p.alerts, a)
	return p.err
}

func fixedClock() time.Time { return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC) }

func TestInsightsService_TaxTips(t *testing.T) {
	store := &fakeStore{
		categories: []core.TaxReliefCategory{category("c1", "G9", "Lifestyle", "2500")},
		profiles: map[int]core.TaxProfile{
			2024: {UserID: "u1", AssessmentYear: 2024, Claims: []core.TaxClaim{{CategoryID: "c1", Amount: dec("500")}}},
		},
	}
	svc := NewInsightsService(store, WithClock(fixedClock))
	ctx := context.Background()

	year := 2024
	report, err := svc.TaxTips(ctx, "u1", &year)
	if err != nil {
		t.Fatalf("TaxTips: %v", err)
	}
	if report.AssessmentYear != 2024 || !report.Suggestions[0].CurrentClaimed.Equal(dec("500")) {
		t.Fatalf("unexpected report %+v", report)
	}

	// Default year comes from the clock; 2025 has no profile.
	report, err = svc.TaxTips(ctx, "u1", nil)
	if err != nil {
		t.Fatalf("TaxTips without profile: %v", err)
	}
	if report.AssessmentYear != 2025 || store.requestedYear != 2025 {
		t.Fatalf("expected default year 2025, got %d", report.AssessmentYear)
	}
	if !report.Suggestions[0].CurrentClaimed.IsZero() || !report.TotalRemainingQuota.Equal(dec("2500")) {
		t.Fatalf("expected zero claims, got %+v", report)
	}
}

func TestInsightsService_TaxTipsErrors(t *testing.T) {
	ctx := context.Background()

	svc := NewInsightsService(&fakeStore{})
	if _, err := svc.TaxTips(ctx, "", nil); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	svc = NewInsightsService(&fakeStore{categoriesErr: errors.New("db down")})
	if _, err := svc.TaxTips(ctx, "u1", nil); !errors.Is(err, core.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}

	svc = NewInsightsService(&fakeStore{profileErr: errors.New("timeout")})
	if _, err := svc.TaxTips(ctx, "u1", nil); !errors.Is(err, core.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestInsightsService_DebtAffordability(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{debts: []core.Debt{{Principal: dec("4500"), TermMonths: 1}}}
	pub := &fakePublisher{}
	svc := NewInsightsService(store, WithAlertPublisher(pub))

	analysis, err := svc.DebtAffordability(ctx, "u1", dec("10000"))
	if err != nil {
		t.Fatalf("DebtAffordability: %v", err)
	}
	if analysis.Label != core.LabelRisky {
		t.Fatalf("expected risky, got %s", analysis.Label)
	}
	if len(pub.alerts) != 1 || pub.alerts[0].UserID != "u1" || pub.alerts[0].Label != core.LabelRisky {
		t.Fatalf("expected one risky alert, got %+v", pub.alerts)
	}

	// Safe results are not published.
	if _, err := svc.DebtAffordability(ctx, "u1", dec("100000")); err != nil {
		t.Fatal(err)
	}
	if len(pub.alerts) != 1 {
		t.Fatalf("expected no alert for safe result, got %d", len(pub.alerts))
	}

	// Publish failures do not fail the request.
	pub.err = errors.New("broker down")
	if _, err := svc.DebtAffordability(ctx, "u1", dec("10000")); err != nil {
		t.Fatalf("expected publish error to be swallowed, got %v", err)
	}
}

func TestInsightsService_DebtAffordabilityErrors(t *testing.T) {
	ctx := context.Background()
	svc := NewInsightsService(&fakeStore{debtsErr: errors.New("connection reset")})
	if _, err := svc.DebtAffordability(ctx, "u1", dec("1000")); !errors.Is(err, core.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if _, err := svc.DebtAffordability(ctx, "", dec("1000")); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestInsightsService_DebtAffordabilityRejectsInvalidDebts(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		debt core.Debt
		want error
	}{
		{"zero term", core.Debt{ID: "d1", Principal: dec("1000"), TermMonths: 0}, core.ErrInvalidTerm},
		{"zero principal", core.Debt{ID: "d1", Principal: dec("0"), TermMonths: 12}, core.ErrInvalidPrincipal},
		{"negative extra payment", core.Debt{ID: "d1", Principal: dec("1000"), TermMonths: 12, ExtraMonthlyPayment: dec("-1")}, core.ErrInvalidExtra},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &fakePublisher{}
			svc := NewInsightsService(&fakeStore{debts: []core.Debt{tt.debt}}, WithAlertPublisher(pub))

			_, err := svc.DebtAffordability(ctx, "u1", dec("5000"))
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if len(pub.alerts) != 0 {
				t.Fatalf("expected no alert for rejected debts, got %d", len(pub.alerts))
			}
		})
	}
}
