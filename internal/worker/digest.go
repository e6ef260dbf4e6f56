package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"sfms/internal/core"
	"sfms/internal/notifier"
	"sfms/internal/records"
)

// TaxTipsProvider computes a user's tax relief report for the current year.
type TaxTipsProvider interface {
	TaxTips(ctx context.Context, userID string, year *int) (core.TaxTipsReport, error)
}

// DigestScheduler sends the weekly tax relief digest to users who opted in.
type DigestScheduler struct {
	cron     *cron.Cron
	spec     string
	profiles records.ProfileReader
	tips     TaxTipsProvider
	notifier notifier.Notifier
	timeout  time.Duration

	mu      sync.Mutex
	baseCtx context.Context
}

func NewDigestScheduler(spec string, profiles records.ProfileReader, tips TaxTipsProvider, n notifier.Notifier) *DigestScheduler {
	return &DigestScheduler{
		cron:     cron.New(cron.WithSeconds()),
		spec:     spec,
		profiles: profiles,
		tips:     tips,
		notifier: n,
		timeout:  5 * time.Minute,
		baseCtx:  context.Background(),
	}
}

// Start registers the digest job and starts the scheduler. Jobs run with a
// context derived from ctx.
func (s *DigestScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.baseCtx = ctx
	s.mu.Unlock()

	if _, err := s.cron.AddFunc(s.spec, s.runScheduled); err != nil {
		return fmt.Errorf("register weekly digest: %w", err)
	}
	s.cron.Start()
	slog.InfoContext(ctx, "Digest scheduler started", "spec", s.spec)
	return nil
}

// Stop stops the scheduler and waits for a running digest to finish.
func (s *DigestScheduler) Stop() {
	<-s.cron.Stop().Done()
	slog.Info("Digest scheduler stopped")
}

func (s *DigestScheduler) runScheduled() {
	s.mu.Lock()
	base := s.baseCtx
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(base, s.timeout)
	defer cancel()

	sent, err := s.RunDigest(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Weekly digest failed", "error", err, "sent", sent)
		return
	}
	slog.InfoContext(ctx, "Weekly digest completed", "sent", sent)
}

// RunDigest sends one digest to every opted-in user with an email address.
// Failures for one user are logged and do not stop the run.
func (s *DigestScheduler) RunDigest(ctx context.Context) (int, error) {
	users, err := s.profiles.ListUserProfiles(ctx)
	if err != nil {
		return 0, fmt.Errorf("list user profiles: %w", err)
	}

	sent := 0
	for _, user := range users {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		if !user.WeeklyReports || user.Email == "" {
			continue
		}

		report, err := s.tips.TaxTips(ctx, user.ID, nil)
		if err != nil {
			slog.WarnContext(ctx, "Failed to compute digest", "user_id", user.ID, "error", err)
			continue
		}
		if err := s.notifier.Notify(ctx, notifier.FormatWeeklyDigest(user, report)); err != nil {
			slog.WarnContext(ctx, "Failed to send digest", "user_id", user.ID, "error", err)
			continue
		}
		sent++
	}
	return sent, nil
}
