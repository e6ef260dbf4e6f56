package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"sfms/internal/core"
)

// Envelope is the body of every endpoint response.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// DTIAnalysisResponse is the wire form of core.DTIAnalysis. Amounts are
// emitted as JSON numbers.
type DTIAnalysisResponse struct {
	MonthlyIncome            float64 `json:"monthlyIncome"`
	TotalMonthlyDebtPayments float64 `json:"totalMonthlyDebtPayments"`
	DTIRatio                 float64 `json:"dtiRatio"`
	Label                    string  `json:"label"`
	Recommendation           string  `json:"recommendation"`
}

type TaxReliefSuggestionResponse struct {
	CategoryCode     string  `json:"categoryCode"`
	CategoryLabel    string  `json:"categoryLabel"`
	AnnualLimit      float64 `json:"annualLimit"`
	CurrentClaimed   float64 `json:"currentClaimed"`
	RemainingQuota   float64 `json:"remainingQuota"`
	EstimatedSavings float64 `json:"estimatedSavings"`
	Suggestion       string  `json:"suggestion"`
}

type TaxTipsResponse struct {
	AssessmentYear        int                           `json:"assessmentYear"`
	Suggestions           []TaxReliefSuggestionResponse `json:"suggestions"`
	TotalRemainingQuota   float64                       `json:"totalRemainingQuota"`
	TotalEstimatedSavings float64                       `json:"totalEstimatedSavings"`
}

func NewDTIAnalysisResponse(a core.DTIAnalysis) DTIAnalysisResponse {
	return DTIAnalysisResponse{
		MonthlyIncome:            a.MonthlyIncome.InexactFloat64(),
		TotalMonthlyDebtPayments: a.TotalMonthlyDebtPayments.InexactFloat64(),
		DTIRatio:                 a.DTIRatio.InexactFloat64(),
		Label:                    string(a.Label),
		Recommendation:           a.Recommendation,
	}
}

// NewTaxTipsResponse converts a report. Suggestions is never null.
func NewTaxTipsResponse(r core.TaxTipsReport) TaxTipsResponse {
	out := TaxTipsResponse{
		AssessmentYear:        r.AssessmentYear,
		Suggestions:           make([]TaxReliefSuggestionResponse, 0, len(r.Suggestions)),
		TotalRemainingQuota:   r.TotalRemainingQuota.InexactFloat64(),
		TotalEstimatedSavings: r.TotalEstimatedSavings.InexactFloat64(),
	}
	for _, s := range r.Suggestions {
		out.Suggestions = append(out.Suggestions, TaxReliefSuggestionResponse{
			CategoryCode:     s.CategoryCode,
			CategoryLabel:    s.CategoryLabel,
			AnnualLimit:      s.AnnualLimit.InexactFloat64(),
			CurrentClaimed:   s.CurrentClaimed.InexactFloat64(),
			RemainingQuota:   s.RemainingQuota.InexactFloat64(),
			EstimatedSavings: s.EstimatedSavings.InexactFloat64(),
			Suggestion:       s.Suggestion,
		})
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeSuccess(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Envelope{Success: false, Error: message})
}

// errorMessage returns the client-facing text for err. Validation and
// not-found messages drop the sentinel text, upstream errors pass through
// unchanged, and anything else is reported generically.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrValidation):
		return strings.Replace(err.Error(), core.ErrValidation.Error()+": ", "", 1)
	case errors.Is(err, core.ErrNotFound):
		return strings.Replace(err.Error(), core.ErrNotFound.Error()+": ", "", 1)
	case errors.Is(err, core.ErrUpstream):
		return err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return "request timed out"
	default:
		return "request failed"
	}
}

// errorType classifies err for the error_type log field.
func errorType(err error) string {
	switch {
	case errors.Is(err, core.ErrValidation):
		return "validation_error"
	case errors.Is(err, core.ErrNotFound):
		return "not_found_error"
	case errors.Is(err, core.ErrUpstream):
		return "upstream_error"
	default:
		return "internal_error"
	}
}
