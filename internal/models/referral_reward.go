package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProcessingStatus tracks how far a referral pair got through reconciliation.
type ProcessingStatus string

const (
	StatusPending      ProcessingStatus = "pending"
	StatusQualified    ProcessingStatus = "qualified"
	StatusNotQualified ProcessingStatus = "not_qualified"
)

func (s ProcessingStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusQualified, StatusNotQualified:
		return true
	default:
		return false
	}
}

// ReferralReward is the ledger row for one referral relationship. The
// composite unique index on (giving, receiving) is the system's core
// invariant: at most one row per pair, ever. Once GivingMemberRewarded is
// true it must never flip back; snapshot fields may still refresh on later
// sightings of the pair.
type ReferralReward struct {
	ID                uint  `gorm:"primaryKey"`
	GivingMemberID    int64 `gorm:"not null;uniqueIndex:idx_referral_pair"`
	ReceivingMemberID int64 `gorm:"not null;uniqueIndex:idx_referral_pair"`

	GivingMemberFirstName string `gorm:"size:255"`
	GivingMemberLastName  string `gorm:"size:255"`

	ReceivingMemberEmail     string `gorm:"size:255"`
	ReceivingMemberFirstName string `gorm:"size:255"`
	ReceivingMemberLastName  string `gorm:"size:255"`

	ReceivingMemberVisits     int             `gorm:"not null;default:0"`
	ReceivingMemberTotalSpend decimal.Decimal `gorm:"type:numeric(12,2)"`
	HomeLocation              string          `gorm:"size:255"`

	GivingMemberRewarded bool             `gorm:"not null;default:false"`
	ProcessingStatus     ProcessingStatus `gorm:"size:16;not null;default:'pending'"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
