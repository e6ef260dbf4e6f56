package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"sfms/internal/amqp"
	"sfms/internal/core"
	"sfms/internal/notifier"
	"sfms/internal/records"
)

// AlertHandler emails users about borderline or risky affordability results.
type AlertHandler struct {
	profiles records.ProfileReader
	notifier notifier.Notifier
}

func NewAlertHandler(profiles records.ProfileReader, n notifier.Notifier) *AlertHandler {
	return &AlertHandler{profiles: profiles, notifier: n}
}

// HandleAlert processes one alert from the queue. Only transient failures
// are returned, since a returned error schedules a retry.
func (h *AlertHandler) HandleAlert(ctx context.Context, alert *amqp.AffordabilityAlert) error {
	slog.InfoContext(ctx, "Processing affordability alert",
		"id", alert.ID,
		"user_id", alert.UserID,
		"label", alert.Label)

	if alert.Label == core.LabelSafe {
		return nil
	}

	user, err := h.profiles.GetUserProfile(ctx, alert.UserID)
	if errors.Is(err, core.ErrNotFound) {
		slog.WarnContext(ctx, "No user profile for alert, dropping", "id", alert.ID, "user_id", alert.UserID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get user profile: %w", err)
	}
	if user.Email == "" {
		slog.DebugContext(ctx, "User has no email address, skipping alert", "user_id", alert.UserID)
		return nil
	}

	if err := h.notifier.Notify(ctx, notifier.FormatAffordabilityAlert(user, alert)); err != nil {
		if errors.Is(err, core.ErrValidation) {
			slog.WarnContext(ctx, "Alert notification rejected", "id", alert.ID, "error", err)
			return nil
		}
		return fmt.Errorf("notify user: %w", err)
	}
	return nil
}
