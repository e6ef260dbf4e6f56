package storage

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type ReliefCategoryRow struct {
	ID          string
	Code        string
	Label       string
	AnnualLimit decimal.Decimal
}

const listReliefCategories = `SELECT id, code, label, annual_limit FROM tax_relief_category ORDER BY code`

func (q *Queries) ListReliefCategories(ctx context.Context) ([]ReliefCategoryRow, error) {
	rows, err := q.db.QueryContext(ctx, listReliefCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ReliefCategoryRow
	for rows.Next() {
		var i ReliefCategoryRow
		if err := rows.Scan(&i.ID, &i.Code, &i.Label, &i.AnnualLimit); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getTaxProfileID = `SELECT id FROM tax_profile WHERE user_id = ? AND assessment_year = ?`

func (q *Queries) GetTaxProfileID(ctx context.Context, userID string, year int64) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, getTaxProfileID, userID, year).Scan(&id)
	return id, err
}

type TaxClaimRow struct {
	CategoryID string
	Amount     decimal.Decimal
}

const listTaxClaims = `SELECT category_id, amount FROM tax_claim WHERE tax_profile_id = ? ORDER BY id`

func (q *Queries) ListTaxClaims(ctx context.Context, profileID int64) ([]TaxClaimRow, error) {
	rows, err := q.db.QueryContext(ctx, listTaxClaims, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TaxClaimRow
	for rows.Next() {
		var i TaxClaimRow
		if err := rows.Scan(&i.CategoryID, &i.Amount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

type DebtRow struct {
	ID                  string
	UserID              string
	Name                string
	Principal           decimal.Decimal
	APR                 decimal.Decimal
	TermMonths          int64
	ExtraMonthlyPayment decimal.Decimal
}

const listDebtsByUser = `SELECT id, user_id, name, principal, apr, term_months, extra_monthly_payment
FROM debt WHERE user_id = ? ORDER BY id`

func (q *Queries) ListDebtsByUser(ctx context.Context, userID string) ([]DebtRow, error) {
	rows, err := q.db.QueryContext(ctx, listDebtsByUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []DebtRow
	for rows.Next() {
		var i DebtRow
		if err := rows.Scan(&i.ID, &i.UserID, &i.Name, &i.Principal, &i.APR, &i.TermMonths, &i.ExtraMonthlyPayment); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

type UserProfileRow struct {
	ID            string
	Email         string
	FullName      string
	WeeklyReports bool
}

const getUserProfile = `SELECT id, email, full_name, weekly_reports FROM user_profiles WHERE id = ?`

func (q *Queries) GetUserProfile(ctx context.Context, id string) (UserProfileRow, error) {
	var i UserProfileRow
	err := q.db.QueryRowContext(ctx, getUserProfile, id).Scan(&i.ID, &i.Email, &i.FullName, &i.WeeklyReports)
	return i, err
}

const listUserProfiles = `SELECT id, email, full_name, weekly_reports FROM user_profiles ORDER BY id`

func (q *Queries) ListUserProfiles(ctx context.Context) ([]UserProfileRow, error) {
	rows, err := q.db.QueryContext(ctx, listUserProfiles)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []UserProfileRow
	for rows.Next() {
		var i UserProfileRow
		if err := rows.Scan(&i.ID, &i.Email, &i.FullName, &i.WeeklyReports); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const upsertReliefCategory = `INSERT INTO tax_relief_category (id, code, label, annual_limit) VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET code = excluded.code, label = excluded.label, annual_limit = excluded.annual_limit`

func (q *Queries) UpsertReliefCategory(ctx context.Context, arg ReliefCategoryRow) error {
	_, err := q.db.ExecContext(ctx, upsertReliefCategory, arg.ID, arg.Code, arg.Label, arg.AnnualLimit.String())
	return err
}

const upsertUserProfile = `INSERT INTO user_profiles (id, email, full_name, weekly_reports) VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET email = excluded.email, full_name = excluded.full_name, weekly_reports = excluded.weekly_reports`

func (q *Queries) UpsertUserProfile(ctx context.Context, arg UserProfileRow) error {
	_, err := q.db.ExecContext(ctx, upsertUserProfile, arg.ID, arg.Email, arg.FullName, arg.WeeklyReports)
	return err
}

const upsertDebt = `INSERT INTO debt (id, user_id, name, principal, apr, term_months, extra_monthly_payment)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET user_id = excluded.user_id, name = excluded.name, principal = excluded.principal,
    apr = excluded.apr, term_months = excluded.term_months, extra_monthly_payment = excluded.extra_monthly_payment`

func (q *Queries) UpsertDebt(ctx context.Context, arg DebtRow) error {
	_, err := q.db.ExecContext(ctx, upsertDebt, arg.ID, arg.UserID, arg.Name,
		arg.Principal.String(), arg.APR.String(), arg.TermMonths, arg.ExtraMonthlyPayment.String())
	return err
}

const upsertTaxProfile = `INSERT INTO tax_profile (user_id, assessment_year) VALUES (?, ?)
ON CONFLICT(user_id, assessment_year) DO UPDATE SET user_id = excluded.user_id
RETURNING id`

func (q *Queries) UpsertTaxProfile(ctx context.Context, userID string, year int64) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, upsertTaxProfile, userID, year).Scan(&id)
	return id, err
}

const deleteTaxClaims = `DELETE FROM tax_claim WHERE tax_profile_id = ?`

func (q *Queries) DeleteTaxClaims(ctx context.Context, profileID int64) error {
	_, err := q.db.ExecContext(ctx, deleteTaxClaims, profileID)
	return err
}

const createTaxClaim = `INSERT INTO tax_claim (tax_profile_id, category_id, amount) VALUES (?, ?, ?)`

func (q *Queries) CreateTaxClaim(ctx context.Context, profileID int64, arg TaxClaimRow) error {
	_, err := q.db.ExecContext(ctx, createTaxClaim, profileID, arg.CategoryID, arg.Amount.String())
	return err
}
