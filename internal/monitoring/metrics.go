package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "referral_runs_total",
			Help: "Reconciliation runs by outcome",
		},
		[]string{"outcome"},
	)

	RewardsIssuedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "referral_rewards_issued_total",
			Help: "Rewards granted to giving members",
		},
	)

	RowsSkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "referral_rows_skipped_total",
			Help: "Report rows skipped because the pair was already processed",
		},
	)

	LedgerWriteFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "referral_ledger_write_failures_total",
			Help: "Ledger commits that failed",
		},
	)

	// UnrecordedRewardsTotal counts rewards that were granted upstream but
	// whose ledger commit failed: pairs at risk of a second reward.
	UnrecordedRewardsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "referral_unrecorded_rewards_total",
			Help: "Rewards issued whose ledger row could not be written",
		},
	)
)
