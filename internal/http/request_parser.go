// Package http exposes the insights operations over a single JSON endpoint.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"sfms/internal/core"
)

// RequestType selects the operation behind the insights endpoint.
type RequestType string

const (
	RequestTaxTips           RequestType = "tax_tips"
	RequestDebtAffordability RequestType = "debt_affordability"
)

// DefaultMaxBodyBytes caps request bodies.
const DefaultMaxBodyBytes int64 = 64 << 10

var (
	ErrMissingIncome = fmt.Errorf("%w: monthlyIncome is required for debt affordability analysis", core.ErrValidation)
	ErrInvalidBody   = fmt.Errorf("%w: invalid JSON body", core.ErrValidation)
	ErrBodyTooLarge  = fmt.Errorf("%w: request body too large", core.ErrValidation)
)

// InsightsRequest is the JSON body accepted by the endpoint. monthlyIncome
// may be a JSON number or a numeric string.
type InsightsRequest struct {
	Type           RequestType      `json:"type"`
	UserID         string           `json:"userId"`
	AssessmentYear *int             `json:"assessmentYear,omitempty"`
	MonthlyIncome  *decimal.Decimal `json:"monthlyIncome,omitempty"`
}

// ParseInsightsRequest decodes and validates the request body. Every error
// it returns wraps core.ErrValidation.
func ParseInsightsRequest(w http.ResponseWriter, r *http.Request, maxBytes int64) (InsightsRequest, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}

	var req InsightsRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBytes))
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return InsightsRequest{}, ErrBodyTooLarge
		case errors.Is(err, io.EOF):
			return InsightsRequest{}, fmt.Errorf("%w: empty body", ErrInvalidBody)
		default:
			return InsightsRequest{}, fmt.Errorf("%w: %v", ErrInvalidBody, err)
		}
	}

	req.UserID = strings.TrimSpace(req.UserID)
	if err := req.Validate(); err != nil {
		return InsightsRequest{}, err
	}
	return req, nil
}

// Validate checks the request independently of transport. Unknown types are
// reported before missing fields.
func (req InsightsRequest) Validate() error {
	switch req.Type {
	case RequestTaxTips:
	case RequestDebtAffordability:
		if req.MonthlyIncome == nil || req.MonthlyIncome.IsZero() {
			return ErrMissingIncome
		}
	default:
		return fmt.Errorf("%w: Unknown request type: %s", core.ErrValidation, req.Type)
	}

	if req.UserID == "" {
		return core.ErrEmptyUserID
	}
	return nil
}
