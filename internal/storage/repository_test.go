package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"sfms/internal/core"
	"sfms/internal/records"
)

var _ records.Store = (*SQLiteRepository)(nil)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "sfms.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testDataset() *records.Dataset {
	return &records.Dataset{
		Categories: []core.TaxReliefCategory{
			{ID: "c-life", Code: "G9", Label: "Lifestyle", AnnualLimit: decimal.NewFromInt(2500)},
			{ID: "c-med", Code: "G6", Label: "Medical", AnnualLimit: decimal.NewFromInt(10000)},
		},
		Users: []core.UserProfile{{ID: "u1", Email: "u1@example.com", FullName: "User One", WeeklyReports: true}},
		Debts: []core.Debt{{
			ID: "d1", UserID: "u1", Name: "Car", Principal: decimal.NewFromInt(12000),
			APR: decimal.RequireFromString("3.5"), TermMonths: 60, ExtraMonthlyPayment: decimal.NewFromInt(20),
		}},
		Profiles: []core.TaxProfile{{
			UserID: "u1", AssessmentYear: 2024,
			Claims: []core.TaxClaim{
				{CategoryID: "c-life", Amount: decimal.RequireFromString("1200.50")},
				{CategoryID: "c-life", Amount: decimal.NewFromInt(300)},
			},
		}},
	}
}

func TestSQLiteRepository_ImportAndRead(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	if err := repo.Import(ctx, testDataset()); err != nil {
		t.Fatalf("Import: %v", err)
	}
	// Importing twice must not duplicate claims.
	if err := repo.Import(ctx, testDataset()); err != nil {
		t.Fatalf("second Import: %v", err)
	}

	cats, err := repo.ListReliefCategories(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(cats) != 2 || cats[0].Code != "G6" || !cats[1].AnnualLimit.Equal(decimal.NewFromInt(2500)) {
		t.Fatalf("unexpected categories: %+v", cats)
	}

	profile, err := repo.GetTaxProfile(ctx, "u1", 2024)
	if err != nil {
		t.Fatal(err)
	}
	if len(profile.Claims) != 2 || !profile.Claims[0].Amount.Equal(decimal.RequireFromString("1200.5")) {
		t.Fatalf("unexpected claims: %+v", profile.Claims)
	}

	debts, err := repo.ListDebts(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(debts) != 1 || debts[0].TermMonths != 60 || !debts[0].APR.Equal(decimal.RequireFromString("3.5")) {
		t.Fatalf("unexpected debts: %+v", debts)
	}

	user, err := repo.GetUserProfile(ctx, "u1")
	if err != nil || !user.WeeklyReports || user.Email != "u1@example.com" {
		t.Fatalf("unexpected user %+v err=%v", user, err)
	}
	users, err := repo.ListUserProfiles(ctx)
	if err != nil || len(users) != 1 {
		t.Fatalf("unexpected users %+v err=%v", users, err)
	}
}

func TestSQLiteRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	if _, err := repo.GetTaxProfile(ctx, "ghost", 2024); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := repo.GetUserProfile(ctx, "ghost"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	debts, err := repo.ListDebts(ctx, "ghost")
	if err != nil || len(debts) != 0 {
		t.Fatalf("expected no debts, got %v err=%v", debts, err)
	}
	if err := repo.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestSQLiteRepository_ListDebtsRejectsInvalidRows(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	// The schema checks the term but not the principal.
	if _, err := repo.db.ExecContext(ctx,
		`INSERT INTO debt (id, user_id, name, principal, term_months) VALUES ('d9', 'u9', 'Broken', '0', 12)`); err != nil {
		t.Fatalf("insert debt: %v", err)
	}

	_, err := repo.ListDebts(ctx, "u9")
	if !errors.Is(err, core.ErrInvalidPrincipal) {
		t.Fatalf("expected invalid principal error, got %v", err)
	}
}
