package google

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"sfms/internal/core"
)

// table is a values matrix with a header row resolved to column indexes.
type table struct {
	cols map[string]int
	rows [][]string
}

func newTable(values [][]interface{}, required ...string) (*table, error) {
	t := &table{cols: map[string]int{}}
	if len(values) == 0 {
		return t, nil
	}
	for i, h := range toStrings(values[0]) {
		t.cols[normalizeHeader(h)] = i
	}
	var missing []string
	for _, r := range required {
		if _, ok := t.cols[normalizeHeader(r)]; !ok {
			missing = append(missing, r)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: unexpected sheet header: missing %s", core.ErrValidation, strings.Join(missing, ","))
	}
	for _, row := range values[1:] {
		t.rows = append(t.rows, toStrings(row))
	}
	return t, nil
}

func (t *table) get(row []string, col string) string {
	i, ok := t.cols[normalizeHeader(col)]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (t *table) amount(row []string, col string) (decimal.Decimal, error) {
	v := t.get(row, col)
	if v == "" {
		return decimal.Zero, nil
	}
	return core.ParseAmount(v)
}

func parseCategories(values [][]interface{}) ([]core.TaxReliefCategory, error) {
	t, err := newTable(values, "Code", "Label", "Annual Limit")
	if err != nil {
		return nil, err
	}
	var cats []core.TaxReliefCategory
	for i, row := range t.rows {
		if isBlank(row) {
			continue
		}
		limit, err := t.amount(row, "Annual Limit")
		if err != nil {
			return nil, fmt.Errorf("%w: category row %d: %v", core.ErrValidation, i+2, err)
		}
		c := core.TaxReliefCategory{
			ID:          t.get(row, "ID"),
			Code:        t.get(row, "Code"),
			Label:       t.get(row, "Label"),
			AnnualLimit: limit,
		}
		if c.ID == "" {
			c.ID = c.Code
		}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("category row %d: %w", i+2, err)
		}
		cats = append(cats, c)
	}
	return cats, nil
}

func parseDebts(values [][]interface{}, userID string) ([]core.Debt, error) {
	t, err := newTable(values, "User ID", "Principal", "Term Months")
	if err != nil {
		return nil, err
	}
	var debts []core.Debt
	for i, row := range t.rows {
		if isBlank(row) || t.get(row, "User ID") != userID {
			continue
		}
		d := core.Debt{
			ID:     t.get(row, "ID"),
			UserID: userID,
			Name:   t.get(row, "Name"),
		}
		if d.Principal, err = t.amount(row, "Principal"); err != nil {
			return nil, fmt.Errorf("%w: debt row %d principal: %v", core.ErrValidation, i+2, err)
		}
		if d.APR, err = t.amount(row, "APR"); err != nil {
			return nil, fmt.Errorf("%w: debt row %d apr: %v", core.ErrValidation, i+2, err)
		}
		if d.ExtraMonthlyPayment, err = t.amount(row, "Extra Monthly Payment"); err != nil {
			return nil, fmt.Errorf("%w: debt row %d extra payment: %v", core.ErrValidation, i+2, err)
		}
		if d.TermMonths, err = strconv.Atoi(t.get(row, "Term Months")); err != nil {
			return nil, fmt.Errorf("%w: debt row %d term months: %v", core.ErrValidation, i+2, err)
		}
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("debt row %d: %w", i+2, err)
		}
		debts = append(debts, d)
	}
	return debts, nil
}

// parseTaxProfile collects the claim rows of one user and year. A user with
// no rows for the year has no profile.
func parseTaxProfile(values [][]interface{}, userID string, year int) (core.TaxProfile, error) {
	t, err := newTable(values, "User ID", "Year", "Category ID", "Amount")
	if err != nil {
		return core.TaxProfile{}, err
	}
	profile := core.TaxProfile{UserID: userID, AssessmentYear: year}
	found := false
	for i, row := range t.rows {
		if isBlank(row) || t.get(row, "User ID") != userID {
			continue
		}
		y, err := strconv.Atoi(t.get(row, "Year"))
		if err != nil {
			return core.TaxProfile{}, fmt.Errorf("%w: claim row %d year: %v", core.ErrValidation, i+2, err)
		}
		if y != year {
			continue
		}
		found = true
		amount, err := t.amount(row, "Amount")
		if err != nil {
			return core.TaxProfile{}, fmt.Errorf("%w: claim row %d amount: %v", core.ErrValidation, i+2, err)
		}
		profile.Claims = append(profile.Claims, core.TaxClaim{CategoryID: t.get(row, "Category ID"), Amount: amount})
	}
	if !found {
		return core.TaxProfile{}, fmt.Errorf("tax profile %s/%d: %w", userID, year, core.ErrNotFound)
	}
	if err := profile.Validate(); err != nil {
		return core.TaxProfile{}, err
	}
	return profile, nil
}

func parseUsers(values [][]interface{}) ([]core.UserProfile, error) {
	t, err := newTable(values, "ID", "Email")
	if err != nil {
		return nil, err
	}
	var users []core.UserProfile
	for _, row := range t.rows {
		if isBlank(row) {
			continue
		}
		weekly := strings.ToLower(t.get(row, "Weekly Reports"))
		users = append(users, core.UserProfile{
			ID:            t.get(row, "ID"),
			Email:         t.get(row, "Email"),
			FullName:      t.get(row, "Full Name"),
			WeeklyReports: weekly == "true" || weekly == "yes" || weekly == "1",
		})
	}
	return users, nil
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = fmt.Sprint(v)
	}
	return out
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.Join(strings.Fields(h), " "))
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
