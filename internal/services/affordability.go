package services

import (
	"github.com/shopspring/decimal"

	"sfms/internal/core"
)

const (
	RecommendationSafe       = "Your debt-to-income ratio is healthy. You have good financial flexibility for savings and investments."
	RecommendationBorderline = "Your debt-to-income ratio is borderline. Consider paying down debts or increasing income before taking on additional debt."
	RecommendationRisky      = "Your debt-to-income ratio is high. Focus on debt reduction and avoid new debt. Consider debt consolidation or financial counseling."
)

// growthPrecision bounds the digits kept while compounding (1+r)^n.
const growthPrecision = 24

var (
	safeThreshold       = decimal.RequireFromString("0.36")
	borderlineThreshold = decimal.RequireFromString("0.43")
	monthsTimesPercent  = decimal.NewFromInt(12 * 100)
)

// MonthlyPayment returns the amortized payment for a debt plus its extra
// voluntary payment. Zero-APR debts are repaid linearly. The debt must pass
// Debt.Validate.
func MonthlyPayment(debt core.Debt) decimal.Decimal {
	n := debt.TermMonths
	var payment decimal.Decimal
	if debt.APR.IsZero() {
		payment = debt.Principal.Div(decimal.NewFromInt(int64(n)))
	} else {
		rate := debt.APR.Div(monthsTimesPercent)
		growth := compound(rate, n)
		payment = debt.Principal.Mul(rate.Mul(growth)).Div(growth.Sub(decimal.NewFromInt(1)))
	}
	return payment.Add(debt.ExtraMonthlyPayment)
}

// Analyze computes total monthly debt service and classifies the ratio to
// income. Income is not validated: a non-positive income yields a zero ratio.
func Analyze(monthlyIncome decimal.Decimal, debts []core.Debt) core.DTIAnalysis {
	total := decimal.Zero
	for _, debt := range debts {
		total = total.Add(MonthlyPayment(debt))
	}

	ratio := decimal.Zero
	if monthlyIncome.IsPositive() {
		ratio = total.Div(monthlyIncome)
	}

	label, recommendation := classify(ratio)
	return core.DTIAnalysis{
		MonthlyIncome:            monthlyIncome,
		TotalMonthlyDebtPayments: total,
		DTIRatio:                 ratio,
		Label:                    label,
		Recommendation:           recommendation,
	}
}

func classify(ratio decimal.Decimal) (core.DTILabel, string) {
	switch {
	case ratio.LessThan(safeThreshold):
		return core.LabelSafe, RecommendationSafe
	case ratio.LessThan(borderlineThreshold):
		return core.LabelBorderline, RecommendationBorderline
	default:
		return core.LabelRisky, RecommendationRisky
	}
}

// compound returns (1+rate)^n by squaring.
func compound(rate decimal.Decimal, n int) decimal.Decimal {
	base := decimal.NewFromInt(1).Add(rate)
	result := decimal.NewFromInt(1)
	for n > 0 {
		if n&1 == 1 {
			result = result.Mul(base).Round(growthPrecision)
		}
		base = base.Mul(base).Round(growthPrecision)
		n >>= 1
	}
	return result
}
