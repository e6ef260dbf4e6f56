// Package postgres reads records straight from the hosted Supabase Postgres
// database. The schema is owned by the app; this package only selects.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"sfms/internal/core"
)

// Store implements records.Store on top of database/sql with lib/pq.
type Store struct {
	db *sql.DB
}

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return New(db), nil
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) ListReliefCategories(ctx context.Context) ([]core.TaxReliefCategory, error) {
	query := `
		SELECT id::text, code, label, annual_limit
		FROM tax_relief_category
		ORDER BY code`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, wrap("list relief categories", err)
	}
	defer rows.Close()

	var cats []core.TaxReliefCategory
	for rows.Next() {
		var c core.TaxReliefCategory
		if err := rows.Scan(&c.ID, &c.Code, &c.Label, &c.AnnualLimit); err != nil {
			return nil, wrap("scan relief category", err)
		}
		cats = append(cats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list relief categories", err)
	}
	return cats, nil
}

func (s *Store) GetTaxProfile(ctx context.Context, userID string, year int) (core.TaxProfile, error) {
	var profileID string
	query := `
		SELECT id::text
		FROM tax_profile
		WHERE user_id = $1 AND assessment_year = $2`
	err := s.db.QueryRowContext(ctx, query, userID, year).Scan(&profileID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.TaxProfile{}, fmt.Errorf("tax profile %s/%d: %w", userID, year, core.ErrNotFound)
	}
	if err != nil {
		return core.TaxProfile{}, wrap("get tax profile", err)
	}

	query = `
		SELECT category_id::text, amount
		FROM tax_claim
		WHERE tax_profile_id = $1`
	rows, err := s.db.QueryContext(ctx, query, profileID)
	if err != nil {
		return core.TaxProfile{}, wrap("list tax claims", err)
	}
	defer rows.Close()

	profile := core.TaxProfile{UserID: userID, AssessmentYear: year}
	for rows.Next() {
		var c core.TaxClaim
		var amount decimal.NullDecimal
		if err := rows.Scan(&c.CategoryID, &amount); err != nil {
			return core.TaxProfile{}, wrap("scan tax claim", err)
		}
		c.Amount = amount.Decimal
		profile.Claims = append(profile.Claims, c)
	}
	if err := rows.Err(); err != nil {
		return core.TaxProfile{}, wrap("list tax claims", err)
	}
	return profile, nil
}

func (s *Store) ListDebts(ctx context.Context, userID string) ([]core.Debt, error) {
	query := `
		SELECT id::text, user_id::text, COALESCE(name, ''), principal, COALESCE(apr, 0),
		       term_months, COALESCE(extra_monthly_payment, 0)
		FROM debt
		WHERE user_id = $1`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, wrap("list debts", err)
	}
	defer rows.Close()

	var debts []core.Debt
	for rows.Next() {
		d, err := scanDebt(rows.Scan)
		if err != nil {
			return nil, err
		}
		debts = append(debts, d)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list debts", err)
	}
	return debts, nil
}

func (s *Store) GetUserProfile(ctx context.Context, userID string) (core.UserProfile, error) {
	var u core.UserProfile
	query := `
		SELECT id::text, COALESCE(email, ''), COALESCE(full_name, '')
		FROM user_profiles
		WHERE id = $1`
	err := s.db.QueryRowContext(ctx, query, userID).Scan(&u.ID, &u.Email, &u.FullName)
	if errors.Is(err, sql.ErrNoRows) {
		return core.UserProfile{}, fmt.Errorf("user profile %s: %w", userID, core.ErrNotFound)
	}
	if err != nil {
		return core.UserProfile{}, wrap("get user profile", err)
	}
	u.WeeklyReports = weeklyReportsEnabled(u.Email)
	return u, nil
}

func (s *Store) ListUserProfiles(ctx context.Context) ([]core.UserProfile, error) {
	query := `
		SELECT id::text, COALESCE(email, ''), COALESCE(full_name, '')
		FROM user_profiles
		ORDER BY created_at`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, wrap("list user profiles", err)
	}
	defer rows.Close()

	var users []core.UserProfile
	for rows.Next() {
		var u core.UserProfile
		if err := rows.Scan(&u.ID, &u.Email, &u.FullName); err != nil {
			return nil, wrap("scan user profile", err)
		}
		u.WeeklyReports = weeklyReportsEnabled(u.Email)
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list user profiles", err)
	}
	return users, nil
}

// scanDebt reads one debt row and rejects rows that violate the debt
// invariants, such as a zero term.
func scanDebt(scan func(dest ...any) error) (core.Debt, error) {
	var d core.Debt
	if err := scan(&d.ID, &d.UserID, &d.Name, &d.Principal, &d.APR, &d.TermMonths, &d.ExtraMonthlyPayment); err != nil {
		return core.Debt{}, wrap("scan debt", err)
	}
	if err := d.Validate(); err != nil {
		return core.Debt{}, fmt.Errorf("debt %s: %w", d.ID, err)
	}
	return d, nil
}

// weeklyReportsEnabled applies the profile default of weeklyReports: true.
// user_profiles has no preferences column, so only the email decides.
func weeklyReportsEnabled(email string) bool {
	return email != ""
}

// wrap tags database failures as upstream errors and keeps the Postgres
// error code in the message.
func wrap(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return fmt.Errorf("%s: %w: %s (%s)", op, core.ErrUpstream, pqErr.Message, pqErr.Code)
	}
	return fmt.Errorf("%s: %w: %v", op, core.ErrUpstream, err)
}
