package scheduler

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/loyaltyworks/points-platform/internal/ledger_service/domain"
)

// ReservationSweeper releases pending redemption holds past their expiry.
type ReservationSweeper interface {
	ExpireReservations(ctx context.Context) (int, error)
}

// ConsistencyAuditor checks cached balances against the transaction log and
// optionally repairs drift.
type ConsistencyAuditor interface {
	CheckConsistency(ctx context.Context) (*domain.ConsistencyReport, error)
	FixInconsistentBalances(ctx context.Context) (*domain.ReconciliationReport, error)
}

// Scheduler runs the periodic maintenance jobs: the reservation expiry sweep
// and the consistency audit.
type Scheduler struct {
	cron    *cron.Cron
	sweeper ReservationSweeper
	auditor ConsistencyAuditor
	logger  *slog.Logger

	sweepCron string
	auditCron string
	autoFix   bool
}

func New(
	sweeper ReservationSweeper,
	auditor ConsistencyAuditor,
	sweepCron, auditCron string,
	autoFix bool,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		sweeper:   sweeper,
		auditor:   auditor,
		logger:    logger.With("component", "scheduler"),
		sweepCron: sweepCron,
		auditCron: auditCron,
		autoFix:   autoFix,
	}
}

// Start registers the jobs and starts the cron loop. An empty cron expression
// disables the corresponding job.
func (s *Scheduler) Start() error {
	if s.sweepCron != "" {
		if _, err := s.cron.AddFunc(s.sweepCron, s.runExpirySweep); err != nil {
			return err
		}
	}
	if s.auditCron != "" {
		if _, err := s.cron.AddFunc(s.auditCron, s.runConsistencyAudit); err != nil {
			return err
		}
	}

	s.cron.Start()
	s.logger.Info("Scheduler started",
		"sweep_cron", s.sweepCron, "audit_cron", s.auditCron, "auto_fix", s.autoFix,
	)
	return nil
}

// Stop halts the cron loop and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) runExpirySweep() {
	ctx := context.Background()
	released, err := s.sweeper.ExpireReservations(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Expiry sweep failed", "released_before_error", released, "error", err)
		return
	}
	if released > 0 {
		s.logger.InfoContext(ctx, "Expiry sweep finished", "released", released)
	}
}

func (s *Scheduler) runConsistencyAudit() {
	ctx := context.Background()

	if s.autoFix {
		report, err := s.auditor.FixInconsistentBalances(ctx)
		if err != nil {
			s.logger.ErrorContext(ctx, "Consistency repair failed", "error", err)
			return
		}
		s.logger.InfoContext(ctx, "Consistency repair finished",
			"corrections", len(report.Corrections), "skipped", report.Skipped,
		)
		return
	}

	report, err := s.auditor.CheckConsistency(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Consistency check failed", "error", err)
		return
	}
	if len(report.Mismatches) > 0 {
		s.logger.WarnContext(ctx, "Consistency check found drift",
			"users_checked", report.UsersChecked, "mismatches", len(report.Mismatches),
		)
	}
}
