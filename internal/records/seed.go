package records

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"sfms/internal/core"
)

// Dataset is a fully parsed and validated set of records.
type Dataset struct {
	Categories []core.TaxReliefCategory
	Debts      []core.Debt
	Profiles   []core.TaxProfile
	Users      []core.UserProfile
}

type seedFile struct {
	Categories []struct {
		ID          string `yaml:"id"`
		Code        string `yaml:"code"`
		Label       string `yaml:"label"`
		AnnualLimit string `yaml:"annual_limit"`
	} `yaml:"categories"`
	Users []struct {
		ID            string `yaml:"id"`
		Email         string `yaml:"email"`
		FullName      string `yaml:"full_name"`
		WeeklyReports bool   `yaml:"weekly_reports"`
	} `yaml:"users"`
	Debts []struct {
		ID                  string `yaml:"id"`
		UserID              string `yaml:"user_id"`
		Name                string `yaml:"name"`
		Principal           string `yaml:"principal"`
		APR                 string `yaml:"apr"`
		TermMonths          int    `yaml:"term_months"`
		ExtraMonthlyPayment string `yaml:"extra_monthly_payment"`
	} `yaml:"debts"`
	TaxProfiles []struct {
		UserID         string `yaml:"user_id"`
		AssessmentYear int    `yaml:"assessment_year"`
		Claims         []struct {
			CategoryID string `yaml:"category_id"`
			Amount     string `yaml:"amount"`
		} `yaml:"claims"`
	} `yaml:"tax_profiles"`
}

// LoadSeed reads a YAML seed file from disk.
func LoadSeed(path string) (*Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return ParseSeed(raw)
}

// ParseSeed decodes and validates YAML seed data. Categories come back
// ordered by code.
func ParseSeed(raw []byte) (*Dataset, error) {
	var f seedFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%w: decode seed: %v", core.ErrValidation, err)
	}

	ds := &Dataset{}
	var errs []error

	for i, c := range f.Categories {
		limit, err := core.ParseAmount(c.AnnualLimit)
		if err != nil {
			errs = append(errs, fmt.Errorf("category %d annual_limit: %w", i, err))
			continue
		}
		cat := core.TaxReliefCategory{ID: c.ID, Code: c.Code, Label: c.Label, AnnualLimit: limit}
		if cat.ID == "" {
			cat.ID = cat.Code
		}
		if err := cat.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("category %d: %w", i, err))
			continue
		}
		ds.Categories = append(ds.Categories, cat)
	}
	SortCategories(ds.Categories)

	for _, u := range f.Users {
		ds.Users = append(ds.Users, core.UserProfile{
			ID:            u.ID,
			Email:         u.Email,
			FullName:      u.FullName,
			WeeklyReports: u.WeeklyReports,
		})
	}

	for i, d := range f.Debts {
		debt := core.Debt{ID: d.ID, UserID: d.UserID, Name: d.Name, TermMonths: d.TermMonths}
		var perr error
		if debt.Principal, perr = core.ParseAmount(d.Principal); perr != nil {
			errs = append(errs, fmt.Errorf("debt %d principal: %w", i, perr))
			continue
		}
		if debt.APR, perr = parseOptional(d.APR); perr != nil {
			errs = append(errs, fmt.Errorf("debt %d apr: %w", i, perr))
			continue
		}
		if debt.ExtraMonthlyPayment, perr = parseOptional(d.ExtraMonthlyPayment); perr != nil {
			errs = append(errs, fmt.Errorf("debt %d extra_monthly_payment: %w", i, perr))
			continue
		}
		if err := debt.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("debt %d: %w", i, err))
			continue
		}
		ds.Debts = append(ds.Debts, debt)
	}

	for i, p := range f.TaxProfiles {
		profile := core.TaxProfile{UserID: p.UserID, AssessmentYear: p.AssessmentYear}
		for j, c := range p.Claims {
			amount, err := core.ParseAmount(c.Amount)
			if err != nil {
				errs = append(errs, fmt.Errorf("tax profile %d claim %d: %w", i, j, err))
				continue
			}
			profile.Claims = append(profile.Claims, core.TaxClaim{CategoryID: c.CategoryID, Amount: amount})
		}
		if err := profile.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("tax profile %d: %w", i, err))
			continue
		}
		ds.Profiles = append(ds.Profiles, profile)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: invalid seed: %w", core.ErrValidation, errors.Join(errs...))
	}
	return ds, nil
}

// SortCategories orders categories by code in place.
func SortCategories(cats []core.TaxReliefCategory) {
	sort.SliceStable(cats, func(i, j int) bool { return cats[i].Code < cats[j].Code })
}

func parseOptional(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return core.ParseAmount(s)
}
