package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"sfms/internal/amqp"
	"sfms/internal/core"
	"sfms/internal/records"
)

// AlertPublisher is satisfied by *amqp.Client.
type AlertPublisher interface {
	PublishAlert(ctx context.Context, alert *amqp.AffordabilityAlert) error
}

// InsightsService fetches a user's records and runs the analyzers over
// them. It never writes to the store.
type InsightsService struct {
	store     records.Store
	publisher AlertPublisher
	now       func() time.Time
}

type Option func(*InsightsService)

// WithAlertPublisher enables alerts for non-safe affordability results.
func WithAlertPublisher(p AlertPublisher) Option {
	return func(s *InsightsService) { s.publisher = p }
}

// WithClock overrides the clock used to resolve the default assessment year.
func WithClock(now func() time.Time) Option {
	return func(s *InsightsService) { s.now = now }
}

func NewInsightsService(store records.Store, opts ...Option) *InsightsService {
	s := &InsightsService{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TaxTips returns relief suggestions for the assessment year, defaulting to
// the current calendar year. A missing tax profile means nothing was claimed.
func (s *InsightsService) TaxTips(ctx context.Context, userID string, year *int) (core.TaxTipsReport, error) {
	if userID == "" {
		return core.TaxTipsReport{}, core.ErrEmptyUserID
	}
	y := s.now().Year()
	if year != nil {
		y = *year
	}

	var (
		categories []core.TaxReliefCategory
		claims     []core.TaxClaim
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cats, err := s.store.ListReliefCategories(gctx)
		if err != nil {
			return fmt.Errorf("fetch relief categories: %w", upstream(err))
		}
		categories = cats
		return nil
	})
	g.Go(func() error {
		profile, err := s.store.GetTaxProfile(gctx, userID, y)
		if errors.Is(err, core.ErrNotFound) {
			slog.DebugContext(ctx, "No tax profile for year, assuming no claims", "user_id", userID, "year", y)
			return nil
		}
		if err != nil {
			return fmt.Errorf("fetch tax profile: %w", upstream(err))
		}
		claims = profile.Claims
		return nil
	})
	if err := g.Wait(); err != nil {
		return core.TaxTipsReport{}, err
	}

	return core.TaxTipsReport{AssessmentYear: y, TaxTips: Suggest(categories, claims)}, nil
}

// DebtAffordability analyzes the user's debts against monthlyIncome.
// Borderline and risky results are published as alerts; a publish failure
// is logged and does not fail the call.
func (s *InsightsService) DebtAffordability(ctx context.Context, userID string, monthlyIncome decimal.Decimal) (core.DTIAnalysis, error) {
	if userID == "" {
		return core.DTIAnalysis{}, core.ErrEmptyUserID
	}

	debts, err := s.store.ListDebts(ctx, userID)
	if err != nil {
		return core.DTIAnalysis{}, fmt.Errorf("fetch debts: %w", upstream(err))
	}
	for _, d := range debts {
		if err := d.Validate(); err != nil {
			return core.DTIAnalysis{}, fmt.Errorf("debt %s: %w", d.ID, err)
		}
	}

	analysis := Analyze(monthlyIncome, debts)

	if analysis.Label != core.LabelSafe {
		if err := s.publishAlert(ctx, userID, analysis); err != nil {
			slog.ErrorContext(ctx, "Failed to publish affordability alert",
				"user_id", userID, "label", analysis.Label, "error", err)
		}
	}
	return analysis, nil
}

func (s *InsightsService) publishAlert(ctx context.Context, userID string, analysis core.DTIAnalysis) error {
	if s.publisher == nil {
		slog.DebugContext(ctx, "Alert publisher not configured, skipping alert")
		return nil
	}
	return s.publisher.PublishAlert(ctx, amqp.NewAffordabilityAlert(userID, analysis))
}

// Ready reports whether the record store is reachable.
func (s *InsightsService) Ready(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// upstream tags store failures that are not already classified.
func upstream(err error) error {
	if errors.Is(err, core.ErrUpstream) || errors.Is(err, core.ErrValidation) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", core.ErrUpstream, err)
}
