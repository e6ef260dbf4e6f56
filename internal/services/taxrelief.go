package services

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"sfms/internal/core"
)

const (
	// MaxSuggestions caps how many categories are returned as suggestions.
	MaxSuggestions = 5

	SuggestionMaximized = "You've maximized this relief category."
	SuggestionGeneric   = "Consider utilizing this relief to reduce your tax liability."
)

// savingsRate is a flat assumed marginal rate, not a bracket computation.
var savingsRate = decimal.RequireFromString("0.10")

// Suggest ranks relief categories by unused quota. Totals cover every
// category while Suggestions holds at most MaxSuggestions entries with
// quota left.
func Suggest(categories []core.TaxReliefCategory, claims []core.TaxClaim) core.TaxTips {
	claimed := make(map[string]decimal.Decimal, len(claims))
	for _, c := range claims {
		claimed[c.CategoryID] = claimed[c.CategoryID].Add(c.Amount)
	}

	all := make([]core.TaxReliefSuggestion, 0, len(categories))
	totalRemaining := decimal.Zero
	totalSavings := decimal.Zero
	for _, cat := range categories {
		s := suggestFor(cat, claimed[cat.ID])
		totalRemaining = totalRemaining.Add(s.RemainingQuota)
		totalSavings = totalSavings.Add(s.EstimatedSavings)
		all = append(all, s)
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].RemainingQuota.GreaterThan(all[j].RemainingQuota)
	})

	top := make([]core.TaxReliefSuggestion, 0, MaxSuggestions)
	for _, s := range all {
		if !s.RemainingQuota.IsPositive() {
			continue
		}
		top = append(top, s)
		if len(top) == MaxSuggestions {
			break
		}
	}

	return core.TaxTips{
		Suggestions:           top,
		TotalRemainingQuota:   totalRemaining,
		TotalEstimatedSavings: totalSavings,
	}
}

func suggestFor(cat core.TaxReliefCategory, claimed decimal.Decimal) core.TaxReliefSuggestion {
	remaining := decimal.Max(decimal.Zero, cat.AnnualLimit.Sub(claimed))
	savings := remaining.Mul(savingsRate)

	var text string
	switch {
	case remaining.IsPositive():
		text = fmt.Sprintf("You can still claim RM %s under %s. Estimated tax savings: RM %s.",
			core.FormatRM(remaining), cat.Label, core.FormatRM(savings))
	case claimed.GreaterThanOrEqual(cat.AnnualLimit):
		text = SuggestionMaximized
	default:
		text = SuggestionGeneric
	}

	return core.TaxReliefSuggestion{
		CategoryCode:     cat.Code,
		CategoryLabel:    cat.Label,
		AnnualLimit:      cat.AnnualLimit,
		CurrentClaimed:   claimed,
		RemainingQuota:   remaining,
		EstimatedSavings: savings,
		Suggestion:       text,
	}
}
