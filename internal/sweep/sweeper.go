// Package sweep runs the periodic trial-expiry scan over the ledger.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agiletools/billingsync/internal/clock"
	ledgerdomain "github.com/agiletools/billingsync/internal/ledger/domain"
	"github.com/agiletools/billingsync/internal/observability/metrics"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Notification copy matches what the direct trial_will_end event writes.
const (
	trialEndingTitle = "Il tuo periodo di prova sta per terminare"
	trialEndingBody  = "Il tuo periodo di prova terminerà tra 3 giorni. Aggiorna il metodo di pagamento per continuare."
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Clock   clock.Clock
	GenID   *snowflake.Node
	Ledger  ledgerdomain.Repository
	Metrics *metrics.Metrics `optional:"true"`
	Config  Config           `optional:"true"`
}

type Sweeper struct {
	db      *gorm.DB
	log     *zap.Logger
	cfg     Config
	clock   clock.Clock
	genID   *snowflake.Node
	ledger  ledgerdomain.Repository
	metrics *metrics.Metrics
}

func New(p Params) *Sweeper {
	return &Sweeper{
		db:      p.DB,
		log:     p.Log.Named("sweep"),
		cfg:     p.Config.withDefaults(),
		clock:   p.Clock,
		genID:   p.GenID,
		ledger:  p.Ledger,
		metrics: p.Metrics,
	}
}

func (s *Sweeper) runJob(parent context.Context, fn func(ctx context.Context) error) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	s.metrics.RecordSweepRun()
	err := fn(ctx)

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.log.Warn("trial sweep timed out",
			zap.Duration("timeout", s.cfg.JobTimeout),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("trial_sweep: %w", err)
	}
	return nil
}

// RunOnce performs one sweep: find active records whose trial ends inside
// [now, now+horizon] and notify each user at most once per dedup window. A run
// that fails partway leaves already-written notifications intact; the next run
// picks up the rest.
func (s *Sweeper) RunOnce(parent context.Context) error {
	return s.runJob(parent, s.sweepTrials)
}

func (s *Sweeper) sweepTrials(ctx context.Context) error {
	now := s.clock.Now()
	from := now
	to := now.Add(s.cfg.Horizon)

	records, err := s.ledger.ListActiveTrialsEnding(ctx, s.db, from, to)
	if err != nil {
		return err
	}

	s.log.Info("checking trial expirations",
		zap.Int("matches", len(records)),
		zap.Time("window_start", from),
		zap.Time("window_end", to),
	)

	var jobErr error
	notified := 0
	for _, rec := range records {
		if ctx.Err() != nil {
			jobErr = errors.Join(jobErr, ctx.Err())
			break
		}

		recent, err := s.ledger.HasRecentNotification(ctx, s.db, rec.UserID, ledgerdomain.NotificationTypeTrialEnding, now.Add(-s.cfg.DedupWindow))
		if err != nil {
			jobErr = errors.Join(jobErr, err)
			continue
		}
		if recent {
			continue
		}

		notification := &ledgerdomain.NotificationRecord{
			ID:             s.genID.Generate(),
			UserID:         rec.UserID,
			Type:           ledgerdomain.NotificationTypeTrialEnding,
			Title:          trialEndingTitle,
			Body:           trialEndingBody,
			SubscriptionID: rec.ExternalSubscriptionID,
			TrialEndsAt:    rec.TrialEndsAt,
			CreatedAt:      now,
		}
		if err := s.ledger.AppendNotification(ctx, s.db, notification); err != nil {
			jobErr = errors.Join(jobErr, err)
			continue
		}
		notified++
		s.metrics.RecordSweepNotification()
		s.log.Info("trial ending notification created", zap.String("user_id", rec.UserID))
	}

	if notified > 0 {
		s.log.Info("trial sweep finished", zap.Int("notified", notified))
	}
	return jobErr
}

// RunForever runs the sweep on its interval until the context is canceled.
func (s *Sweeper) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("trial sweep failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
