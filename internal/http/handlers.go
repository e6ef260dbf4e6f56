package http

import (
	"context"
	"errors"
	"net/http"

	"sfms/internal/core"
	"sfms/internal/log"
	"sfms/internal/middleware/auth"
)

// handleInsights dispatches a validated request to the matching operation.
func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	logger := log.NewStructuredLogger(log.FromContext(r.Context()))

	req, err := ParseInsightsRequest(w, r, s.maxBodyBytes)
	if err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Rejected insights request",
			log.FieldError, err.Error(), "error_type", errorType(err))
		writeError(w, http.StatusBadRequest, errorMessage(err))
		return
	}

	if subject, ok := auth.SubjectFromContext(r.Context()); ok && subject != req.UserID {
		writeError(w, http.StatusForbidden, "userId does not match the authenticated user")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	switch req.Type {
	case RequestTaxTips:
		report, err := s.insights.TaxTips(ctx, req.UserID, req.AssessmentYear)
		if err != nil {
			s.fail(ctx, w, logger, err, log.OpTaxTips, req.UserID)
			return
		}
		logger.LogTaxTips(ctx, req.UserID, report.AssessmentYear, len(report.Suggestions))
		writeSuccess(w, NewTaxTipsResponse(report))

	case RequestDebtAffordability:
		analysis, err := s.insights.DebtAffordability(ctx, req.UserID, *req.MonthlyIncome)
		if err != nil {
			s.fail(ctx, w, logger, err, log.OpDebtAffordability, req.UserID)
			return
		}
		logger.LogAffordability(ctx, req.UserID, analysis.DTIRatio.InexactFloat64(), string(analysis.Label))
		writeSuccess(w, NewDTIAnalysisResponse(analysis))
	}
}

// fail logs an operation error and writes the 400 envelope.
func (s *Server) fail(ctx context.Context, w http.ResponseWriter, logger *log.StructuredLogger, err error, op, userID string) {
	fields := log.NewFields().WithUser(userID)
	fields["error_type"] = errorType(err)

	component := log.ComponentInsights
	if errors.Is(err, core.ErrUpstream) {
		component = log.ComponentStorage
	}
	logger.LogError(ctx, "Insights request failed", err, component, op, fields)
	writeError(w, http.StatusBadRequest, errorMessage(err))
}
