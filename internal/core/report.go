package core

import "github.com/shopspring/decimal"

// DTIAnalysis is the debt-to-income result for one request.
type DTIAnalysis struct {
	MonthlyIncome            decimal.Decimal
	TotalMonthlyDebtPayments decimal.Decimal
	DTIRatio                 decimal.Decimal
	Label                    DTILabel
	Recommendation           string
}

type TaxReliefSuggestion struct {
	CategoryCode     string
	CategoryLabel    string
	AnnualLimit      decimal.Decimal
	CurrentClaimed   decimal.Decimal
	RemainingQuota   decimal.Decimal
	EstimatedSavings decimal.Decimal
	Suggestion       string
}

// TaxTips carries the top suggestions together with totals computed over
// every category, including those left out of Suggestions.
type TaxTips struct {
	Suggestions           []TaxReliefSuggestion
	TotalRemainingQuota   decimal.Decimal
	TotalEstimatedSavings decimal.Decimal
}

// TaxTipsReport is TaxTips resolved for a concrete assessment year.
type TaxTipsReport struct {
	AssessmentYear int
	TaxTips
}
