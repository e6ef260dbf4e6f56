package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestDebtValidate(t *testing.T) {
	good := Debt{Principal: d("12000"), APR: d("5.5"), TermMonths: 60}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name string
		debt Debt
		want error
	}{
		{"zero principal", Debt{Principal: d("0"), APR: d("1"), TermMonths: 12}, ErrInvalidPrincipal},
		{"negative apr", Debt{Principal: d("1"), APR: d("-0.1"), TermMonths: 12}, ErrInvalidAPR},
		{"zero term", Debt{Principal: d("1"), APR: d("0"), TermMonths: 0}, ErrInvalidTerm},
		{"negative extra", Debt{Principal: d("1"), TermMonths: 1, ExtraMonthlyPayment: d("-5")}, ErrInvalidExtra},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.debt.Validate()
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestTaxReliefCategoryValidate(t *testing.T) {
	if err := (TaxReliefCategory{Code: "G1", Label: "Lifestyle", AnnualLimit: d("2500")}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bads := []TaxReliefCategory{
		{Code: "", Label: "x", AnnualLimit: d("1")},
		{Code: "G1", Label: " ", AnnualLimit: d("1")},
		{Code: "G1", Label: "x", AnnualLimit: d("-1")},
	}
	for i, c := range bads {
		if err := c.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestTaxProfileValidate(t *testing.T) {
	p := TaxProfile{UserID: "u1", AssessmentYear: 2024, Claims: []TaxClaim{{CategoryID: "c1", Amount: d("10")}}}
	if err := p.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	p.Claims = append(p.Claims, TaxClaim{CategoryID: "c2", Amount: d("-1")})
	if err := p.Validate(); !errors.Is(err, ErrInvalidClaim) {
		t.Fatalf("expected ErrInvalidClaim, got %v", err)
	}
	if err := (TaxProfile{}).Validate(); !errors.Is(err, ErrEmptyUserID) {
		t.Fatalf("expected ErrEmptyUserID, got %v", err)
	}
}

func TestDTILabelValid(t *testing.T) {
	for _, l := range []DTILabel{LabelSafe, LabelBorderline, LabelRisky} {
		if !l.Valid() {
			t.Fatalf("%q should be valid", l)
		}
	}
	if DTILabel("unknown").Valid() {
		t.Fatalf("unknown label should be invalid")
	}
}
