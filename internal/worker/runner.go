package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Jimmeey2323/referrals/internal/alert"
	"github.com/Jimmeey2323/referrals/internal/bookingapi"
	"github.com/Jimmeey2323/referrals/internal/config"
	"github.com/Jimmeey2323/referrals/internal/models"
	"github.com/Jimmeey2323/referrals/internal/monitoring"
	"github.com/Jimmeey2323/referrals/internal/reconcile"
	"github.com/Jimmeey2323/referrals/internal/runlock"
)

// Run outcomes recorded in summaries and metrics.
const (
	OutcomeCompleted = "completed"
	OutcomeNoOp      = "no_op"
	OutcomeFailed    = "failed"
	OutcomeLocked    = "locked"
)

type CandidateSource interface {
	OneVisitCandidates(ctx context.Context) ([]bookingapi.Candidate, error)
}

type ReportSource interface {
	ReferralReport(ctx context.Context) ([]bookingapi.ReferralRecord, error)
}

type Ledger interface {
	Lookup(ctx context.Context, givingMemberID, receivingMemberID int64) (*models.ReferralReward, error)
	Commit(ctx context.Context, row *models.ReferralReward) error
	RecordRun(ctx context.Context, summary *models.RunSummary) error
}

type Issuer interface {
	Issue(ctx context.Context, record bookingapi.ReferralRecord) bool
}

// Summary aggregates one run's counters.
type Summary struct {
	RunID   string
	Outcome string

	Candidates          int
	ReportRows          int
	RowsProcessed       int
	RewardsIssued       int
	RowsSkipped         int
	RowsUnmatched       int
	RowsNotQualified    int
	IssueFailures       int
	LedgerWriteFailures int
	UnrecordedRewards   int

	StartedAt  time.Time
	FinishedAt time.Time
}

// Runner drives one reconciliation pass: collect candidates and the referral
// report concurrently, then walk the report rows strictly one at a time so
// per-pair side effects stay ordered and the reward endpoint sees a bounded
// request rate.
type Runner struct {
	cfg        *config.Config
	log        *zap.Logger
	candidates CandidateSource
	reports    ReportSource
	ledger     Ledger
	issuer     Issuer
	alerts     *alert.Notifier // nil disables alerting
	lock       *runlock.Lock   // nil disables cross-run exclusion
}

func NewRunner(
	cfg *config.Config,
	log *zap.Logger,
	candidates CandidateSource,
	reports ReportSource,
	ledger Ledger,
	issuer Issuer,
	alerts *alert.Notifier,
	lock *runlock.Lock,
) *Runner {
	return &Runner{
		cfg:        cfg,
		log:        log,
		candidates: candidates,
		reports:    reports,
		ledger:     ledger,
		issuer:     issuer,
		alerts:     alerts,
		lock:       lock,
	}
}

// RunOnce executes a single reconciliation pass. The returned error is
// run-fatal; recoverable per-row failures are absorbed into the summary.
// Re-running with identical upstream data leaves the ledger unchanged.
func (r *Runner) RunOnce(ctx context.Context) (*Summary, error) {
	sum := &Summary{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
	log := r.log.With(zap.String("runId", sum.RunID))

	if !r.lock.Acquire(ctx) {
		log.Info("another run holds the lock, skipping")
		sum.Outcome = OutcomeLocked
		sum.FinishedAt = time.Now()
		monitoring.RunsTotal.WithLabelValues(OutcomeLocked).Inc()
		return sum, nil
	}
	defer r.lock.Release(ctx)

	log.Info("reconciliation run started")

	var (
		candidates []bookingapi.Candidate
		records    []bookingapi.ReferralRecord
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		candidates, err = r.candidates.OneVisitCandidates(gCtx)
		return err
	})
	g.Go(func() error {
		var err error
		records, err = r.reports.ReferralReport(gCtx)
		return err
	})
	if err := g.Wait(); err != nil {
		r.finish(ctx, log, sum, OutcomeFailed)
		r.alerts.NotifyFailure(ctx, sum.RunID, err)
		return sum, err
	}

	sum.Candidates = len(candidates)
	sum.ReportRows = len(records)

	if sum.Candidates == 0 || sum.ReportRows == 0 {
		log.Info("nothing to reconcile",
			zap.Int("candidates", sum.Candidates),
			zap.Int("reportRows", sum.ReportRows))
		r.finish(ctx, log, sum, OutcomeNoOp)
		return sum, nil
	}

	idx := reconcile.Index(candidates)

	for i, record := range records {
		if i > 0 && r.cfg.PairDelay > 0 {
			select {
			case <-time.After(r.cfg.PairDelay):
			case <-ctx.Done():
				r.finish(ctx, log, sum, OutcomeFailed)
				r.alerts.NotifyFailure(ctx, sum.RunID, ctx.Err())
				return sum, ctx.Err()
			}
		}
		r.processRecord(ctx, log, sum, idx, record)
	}

	r.finish(ctx, log, sum, OutcomeCompleted)
	return sum, nil
}

// processRecord takes one report row through match, ledger gate, issuance and
// commit. Failures here degrade and count; they never abort the run.
func (r *Runner) processRecord(ctx context.Context, log *zap.Logger, sum *Summary, idx map[int64]bookingapi.Candidate, record bookingapi.ReferralRecord) {
	decision, ok := reconcile.Match(idx, record)
	if !ok {
		sum.RowsUnmatched++
		log.Debug("receiving member not in candidate set",
			zap.Int64("givingMemberId", record.GivingMemberID),
			zap.Int64("receivingMemberId", record.ReceivingMemberID))
		return
	}

	sum.RowsProcessed++

	existing, err := r.ledger.Lookup(ctx, record.GivingMemberID, record.ReceivingMemberID)
	if err != nil {
		// Conservative policy: an unreadable ledger means "not processed",
		// so an outage re-attempts issuance instead of silently skipping.
		log.Warn("ledger lookup failed, treating pair as unprocessed",
			zap.Int64("givingMemberId", record.GivingMemberID),
			zap.Int64("receivingMemberId", record.ReceivingMemberID),
			zap.Error(err))
		existing = nil
	}

	rewarded := false
	switch {
	case existing != nil:
		// Any existing row, rewarded or not, is already processed. With
		// GivingMemberRewarded true this is the lifetime-uniqueness skip;
		// with false it also skips, so a previously failed issuance is not
		// retried on later runs.
		sum.RowsSkipped++
		log.Debug("pair already processed, skipping issuance",
			zap.Int64("givingMemberId", record.GivingMemberID),
			zap.Int64("receivingMemberId", record.ReceivingMemberID),
			zap.Bool("rewarded", existing.GivingMemberRewarded))
	case decision.Qualified:
		if r.issuer.Issue(ctx, record) {
			rewarded = true
			sum.RewardsIssued++
		} else {
			sum.IssueFailures++
		}
	default:
		sum.RowsNotQualified++
	}

	status := models.StatusNotQualified
	if decision.Qualified {
		status = models.StatusQualified
	}

	row := &models.ReferralReward{
		GivingMemberID:            record.GivingMemberID,
		ReceivingMemberID:         record.ReceivingMemberID,
		GivingMemberFirstName:     record.GivingMemberFirstName,
		GivingMemberLastName:      record.GivingMemberLastName,
		ReceivingMemberEmail:      record.ReceivingMemberEmail,
		ReceivingMemberFirstName:  record.ReceivingMemberFirstName,
		ReceivingMemberLastName:   record.ReceivingMemberLastName,
		ReceivingMemberVisits:     record.ReceivingMemberVisits,
		ReceivingMemberTotalSpend: record.ReceivingMemberTotalSpend,
		HomeLocation:              record.HomeLocation,
		GivingMemberRewarded:      rewarded,
		ProcessingStatus:          status,
	}

	if err := r.ledger.Commit(ctx, row); err != nil {
		sum.LedgerWriteFailures++
		if rewarded {
			// The reward went out but the proof did not land: this pair can
			// be rewarded again on a later run. Surfaced, not compensated.
			sum.UnrecordedRewards++
			log.Error("reward issued but not recorded in ledger",
				zap.Int64("givingMemberId", record.GivingMemberID),
				zap.Int64("receivingMemberId", record.ReceivingMemberID),
				zap.Error(err))
		} else {
			log.Error("ledger commit failed",
				zap.Int64("givingMemberId", record.GivingMemberID),
				zap.Int64("receivingMemberId", record.ReceivingMemberID),
				zap.Error(err))
		}
	}
}

// finish closes out the run: summary log line, metrics, durable run record.
func (r *Runner) finish(ctx context.Context, log *zap.Logger, sum *Summary, outcome string) {
	sum.Outcome = outcome
	sum.FinishedAt = time.Now()

	log.Info("reconciliation run finished",
		zap.String("outcome", outcome),
		zap.Int("candidates", sum.Candidates),
		zap.Int("reportRows", sum.ReportRows),
		zap.Int("rowsProcessed", sum.RowsProcessed),
		zap.Int("rewardsIssued", sum.RewardsIssued),
		zap.Int("rowsSkipped", sum.RowsSkipped),
		zap.Int("rowsUnmatched", sum.RowsUnmatched),
		zap.Int("rowsNotQualified", sum.RowsNotQualified),
		zap.Int("issueFailures", sum.IssueFailures),
		zap.Int("ledgerWriteFailures", sum.LedgerWriteFailures),
		zap.Int("unrecordedRewards", sum.UnrecordedRewards),
		zap.Duration("elapsed", sum.FinishedAt.Sub(sum.StartedAt)))

	monitoring.RunsTotal.WithLabelValues(outcome).Inc()
	monitoring.RewardsIssuedTotal.Add(float64(sum.RewardsIssued))
	monitoring.RowsSkippedTotal.Add(float64(sum.RowsSkipped))
	monitoring.LedgerWriteFailuresTotal.Add(float64(sum.LedgerWriteFailures))
	monitoring.UnrecordedRewardsTotal.Add(float64(sum.UnrecordedRewards))

	record := &models.RunSummary{
		RunID:               sum.RunID,
		Candidates:          sum.Candidates,
		ReportRows:          sum.ReportRows,
		RowsProcessed:       sum.RowsProcessed,
		RewardsIssued:       sum.RewardsIssued,
		RowsSkipped:         sum.RowsSkipped,
		RowsUnmatched:       sum.RowsUnmatched,
		RowsNotQualified:    sum.RowsNotQualified,
		IssueFailures:       sum.IssueFailures,
		LedgerWriteFailures: sum.LedgerWriteFailures,
		UnrecordedRewards:   sum.UnrecordedRewards,
		Outcome:             outcome,
		StartedAt:           sum.StartedAt,
		FinishedAt:          sum.FinishedAt,
	}
	if err := r.ledger.RecordRun(ctx, record); err != nil {
		log.Warn("run summary not persisted", zap.Error(err))
	}
}

// Start runs immediately, then on every RunInterval tick until the context
// ends. Individual run failures are logged and alerted but do not stop the
// loop.
func (r *Runner) Start(ctx context.Context) {
	r.log.Info("background reconciliation worker started",
		zap.Duration("interval", r.cfg.RunInterval))

	if _, err := r.RunOnce(ctx); err != nil {
		r.log.Error("reconciliation run failed", zap.Error(err))
	}

	ticker := time.NewTicker(r.cfg.RunInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil {
				r.log.Error("reconciliation run failed", zap.Error(err))
			}
		case <-ctx.Done():
			r.log.Info("background reconciliation worker stopped")
			return
		}
	}
}
