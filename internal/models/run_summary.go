package models

import (
	"time"
)

// RunSummary records the outcome of one reconciliation pass. Rows are
// append-only; a failed summary write never fails the run itself.
type RunSummary struct {
	ID    uint   `gorm:"primaryKey"`
	RunID string `gorm:"size:36;uniqueIndex;not null"`

	Candidates          int `gorm:"not null;default:0"`
	ReportRows          int `gorm:"not null;default:0"`
	RowsProcessed       int `gorm:"not null;default:0"`
	RewardsIssued       int `gorm:"not null;default:0"`
	RowsSkipped         int `gorm:"not null;default:0"`
	RowsUnmatched       int `gorm:"not null;default:0"`
	RowsNotQualified    int `gorm:"not null;default:0"`
	IssueFailures       int `gorm:"not null;default:0"`
	LedgerWriteFailures int `gorm:"not null;default:0"`
	UnrecordedRewards   int `gorm:"not null;default:0"`

	Outcome    string `gorm:"size:32;not null"`
	StartedAt  time.Time
	FinishedAt time.Time
	CreatedAt  time.Time
}
