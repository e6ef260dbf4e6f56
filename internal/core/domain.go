package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	LabelSafe       DTILabel = "safe"
	LabelBorderline DTILabel = "borderline"
	LabelRisky      DTILabel = "risky"
)

type (
	// DTILabel classifies a debt-to-income ratio.
	DTILabel string

	Debt struct {
		ID                  string
		UserID              string
		Name                string
		Principal           decimal.Decimal
		APR                 decimal.Decimal // annual percentage, 5.5 means 5.5%
		TermMonths          int
		ExtraMonthlyPayment decimal.Decimal
	}

	TaxReliefCategory struct {
		ID          string // store key referenced by claims
		Code        string
		Label       string
		AnnualLimit decimal.Decimal
	}

	TaxClaim struct {
		CategoryID string
		Amount     decimal.Decimal
	}

	// TaxProfile holds the claims a user filed for one assessment year.
	TaxProfile struct {
		UserID         string
		AssessmentYear int
		Claims         []TaxClaim
	}

	UserProfile struct {
		ID            string
		Email         string
		FullName      string
		WeeklyReports bool
	}
)

// Error taxonomy. Callers wrap these with fmt.Errorf("...: %w") and
// classify with errors.Is.
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrUpstream   = errors.New("upstream error")
)

var (
	ErrInvalidPrincipal = fmt.Errorf("%w: principal must be positive", ErrValidation)
	ErrInvalidAPR       = fmt.Errorf("%w: apr cannot be negative", ErrValidation)
	ErrInvalidTerm      = fmt.Errorf("%w: term months must be positive", ErrValidation)
	ErrInvalidExtra     = fmt.Errorf("%w: extra monthly payment cannot be negative", ErrValidation)
	ErrEmptyCode        = fmt.Errorf("%w: empty category code", ErrValidation)
	ErrEmptyLabel       = fmt.Errorf("%w: empty category label", ErrValidation)
	ErrInvalidLimit     = fmt.Errorf("%w: annual limit cannot be negative", ErrValidation)
	ErrInvalidClaim     = fmt.Errorf("%w: claim amount cannot be negative", ErrValidation)
	ErrEmptyUserID      = fmt.Errorf("%w: userId is required", ErrValidation)
)

func (l DTILabel) Valid() bool {
	switch l {
	case LabelSafe, LabelBorderline, LabelRisky:
		return true
	}
	return false
}

func (d Debt) Validate() error {
	if !d.Principal.IsPositive() {
		return ErrInvalidPrincipal
	}
	if d.APR.IsNegative() {
		return ErrInvalidAPR
	}
	if d.TermMonths <= 0 {
		return ErrInvalidTerm
	}
	if d.ExtraMonthlyPayment.IsNegative() {
		return ErrInvalidExtra
	}
	return nil
}

func (c TaxReliefCategory) Validate() error {
	if strings.TrimSpace(c.Code) == "" {
		return ErrEmptyCode
	}
	if strings.TrimSpace(c.Label) == "" {
		return ErrEmptyLabel
	}
	if c.AnnualLimit.IsNegative() {
		return ErrInvalidLimit
	}
	return nil
}

func (c TaxClaim) Validate() error {
	if c.Amount.IsNegative() {
		return ErrInvalidClaim
	}
	return nil
}

func (p TaxProfile) Validate() error {
	if strings.TrimSpace(p.UserID) == "" {
		return ErrEmptyUserID
	}
	for i, c := range p.Claims {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("claim %d: %w", i, err)
		}
	}
	return nil
}
