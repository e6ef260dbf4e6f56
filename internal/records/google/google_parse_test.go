package google

import (
	"errors"
	"testing"

	"sfms/internal/core"
)

func TestParseCategories(t *testing.T) {
	values := [][]interface{}{
		{"ID", "Code", "Label", "Annual Limit"},
		{"c1", "G9", "Lifestyle", "2,500.00"},
		{"", "G6", "Medical", 10000.0},
		{},
	}
	cats, err := parseCategories(values)
	if err != nil {
		t.Fatalf("parse err: %v", err)
	}
	if len(cats) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(cats))
	}
	if cats[0].AnnualLimit.String() != "2500" {
		t.Fatalf("unexpected limit %s", cats[0].AnnualLimit)
	}
	if cats[1].ID != "G6" || cats[1].AnnualLimit.String() != "10000" {
		t.Fatalf("expected id to default to code, got %+v", cats[1])
	}
}

func TestParseCategories_MissingHeader(t *testing.T) {
	_, err := parseCategories([][]interface{}{{"Code", "Label"}})
	if !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseDebts(t *testing.T) {
	values := [][]interface{}{
		{"ID", "User ID", "Name", "Principal", "APR", "Term Months", "Extra Monthly Payment"},
		{"d1", "u1", "Car", "12000", "12", "12", ""},
		{"d2", "u2", "Other", "500", "0", "5", "0"},
		{"d3", "u1", "PTPTN", "RM 6000", "", "60", "50"},
	}
	debts, err := parseDebts(values, "u1")
	if err != nil {
		t.Fatalf("parse err: %v", err)
	}
	if len(debts) != 2 || debts[1].Name != "PTPTN" || debts[1].TermMonths != 60 {
		t.Fatalf("unexpected debts: %+v", debts)
	}
	if !debts[1].APR.IsZero() || debts[1].ExtraMonthlyPayment.String() != "50" {
		t.Fatalf("unexpected optional values: %+v", debts[1])
	}

	bad := [][]interface{}{
		{"User ID", "Principal", "Term Months"},
		{"u1", "100", "zero"},
	}
	if _, err := parseDebts(bad, "u1"); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseTaxProfile(t *testing.T) {
	values := [][]interface{}{
		{"User ID", "Year", "Category ID", "Amount"},
		{"u1", "2024", "c1", "1000"},
		{"u1", "2024", "c1", "500.50"},
		{"u1", "2023", "c1", "9999"},
		{"u2", "2024", "c1", "1"},
	}
	p, err := parseTaxProfile(values, "u1", 2024)
	if err != nil {
		t.Fatalf("parse err: %v", err)
	}
	if len(p.Claims) != 2 || p.Claims[1].Amount.String() != "500.5" {
		t.Fatalf("unexpected claims: %+v", p.Claims)
	}

	if _, err := parseTaxProfile(values, "u1", 2022); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestParseUsers(t *testing.T) {
	values := [][]interface{}{
		{"ID", "Email", "Full Name", "Weekly Reports"},
		{"u1", "a@example.com", "Aina", "TRUE"},
		{"u2", "b@example.com", "", "no"},
	}
	users, err := parseUsers(values)
	if err != nil {
		t.Fatalf("parse err: %v", err)
	}
	if len(users) != 2 || !users[0].WeeklyReports || users[1].WeeklyReports {
		t.Fatalf("unexpected users: %+v", users)
	}
}
