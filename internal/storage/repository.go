package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"sfms/internal/core"
	"sfms/internal/records"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is a local, file-backed record store.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteRepository{db: db, queries: New(db)}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) ListReliefCategories(ctx context.Context) ([]core.TaxReliefCategory, error) {
	rows, err := r.queries.ListReliefCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list relief categories: %w", err)
	}
	cats := make([]core.TaxReliefCategory, 0, len(rows))
	for _, row := range rows {
		cats = append(cats, core.TaxReliefCategory{
			ID:          row.ID,
			Code:        row.Code,
			Label:       row.Label,
			AnnualLimit: row.AnnualLimit,
		})
	}
	return cats, nil
}

func (r *SQLiteRepository) GetTaxProfile(ctx context.Context, userID string, year int) (core.TaxProfile, error) {
	id, err := r.queries.GetTaxProfileID(ctx, userID, int64(year))
	if errors.Is(err, sql.ErrNoRows) {
		return core.TaxProfile{}, fmt.Errorf("tax profile %s/%d: %w", userID, year, core.ErrNotFound)
	}
	if err != nil {
		return core.TaxProfile{}, fmt.Errorf("get tax profile: %w", err)
	}

	rows, err := r.queries.ListTaxClaims(ctx, id)
	if err != nil {
		return core.TaxProfile{}, fmt.Errorf("list tax claims: %w", err)
	}
	profile := core.TaxProfile{UserID: userID, AssessmentYear: year}
	for _, row := range rows {
		profile.Claims = append(profile.Claims, core.TaxClaim{CategoryID: row.CategoryID, Amount: row.Amount})
	}
	return profile, nil
}

func (r *SQLiteRepository) ListDebts(ctx context.Context, userID string) ([]core.Debt, error) {
	rows, err := r.queries.ListDebtsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list debts: %w", err)
	}
	debts := make([]core.Debt, 0, len(rows))
	for _, row := range rows {
		d := core.Debt{
			ID:                  row.ID,
			UserID:              row.UserID,
			Name:                row.Name,
			Principal:           row.Principal,
			APR:                 row.APR,
			TermMonths:          int(row.TermMonths),
			ExtraMonthlyPayment: row.ExtraMonthlyPayment,
		}
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("debt %s: %w", d.ID, err)
		}
		debts = append(debts, d)
	}
	return debts, nil
}

func (r *SQLiteRepository) GetUserProfile(ctx context.Context, userID string) (core.UserProfile, error) {
	row, err := r.queries.GetUserProfile(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.UserProfile{}, fmt.Errorf("user profile %s: %w", userID, core.ErrNotFound)
	}
	if err != nil {
		return core.UserProfile{}, fmt.Errorf("get user profile: %w", err)
	}
	return core.UserProfile(row), nil
}

func (r *SQLiteRepository) ListUserProfiles(ctx context.Context) ([]core.UserProfile, error) {
	rows, err := r.queries.ListUserProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list user profiles: %w", err)
	}
	users := make([]core.UserProfile, 0, len(rows))
	for _, row := range rows {
		users = append(users, core.UserProfile(row))
	}
	return users, nil
}

// Import upserts a dataset in one transaction. Claims of every imported
// tax profile are replaced.
func (r *SQLiteRepository) Import(ctx context.Context, ds *records.Dataset) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()
	q := r.queries.WithTx(tx)

	for _, c := range ds.Categories {
		if err := q.UpsertReliefCategory(ctx, ReliefCategoryRow(c)); err != nil {
			return fmt.Errorf("import category %s: %w", c.Code, err)
		}
	}
	for _, u := range ds.Users {
		if err := q.UpsertUserProfile(ctx, UserProfileRow(u)); err != nil {
			return fmt.Errorf("import user %s: %w", u.ID, err)
		}
	}
	for _, d := range ds.Debts {
		row := DebtRow{
			ID:                  d.ID,
			UserID:              d.UserID,
			Name:                d.Name,
			Principal:           d.Principal,
			APR:                 d.APR,
			TermMonths:          int64(d.TermMonths),
			ExtraMonthlyPayment: d.ExtraMonthlyPayment,
		}
		if err := q.UpsertDebt(ctx, row); err != nil {
			return fmt.Errorf("import debt %s: %w", d.ID, err)
		}
	}
	for _, p := range ds.Profiles {
		id, err := q.UpsertTaxProfile(ctx, p.UserID, int64(p.AssessmentYear))
		if err != nil {
			return fmt.Errorf("import tax profile %s/%d: %w", p.UserID, p.AssessmentYear, err)
		}
		if err := q.DeleteTaxClaims(ctx, id); err != nil {
			return fmt.Errorf("reset tax claims: %w", err)
		}
		for _, c := range p.Claims {
			if err := q.CreateTaxClaim(ctx, id, TaxClaimRow(c)); err != nil {
				return fmt.Errorf("import tax claim: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}

	slog.InfoContext(ctx, "Records imported into SQLite",
		"categories", len(ds.Categories),
		"users", len(ds.Users),
		"debts", len(ds.Debts),
		"tax_profiles", len(ds.Profiles))
	return nil
}
