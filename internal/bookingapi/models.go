package bookingapi

import (
	"github.com/shopspring/decimal"
)

// Candidate is one member returned by the one-visit client search. Candidates
// live only for the duration of a run.
type Candidate struct {
	MemberID  int64  `json:"memberId"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// candidatePage is one page of the paginated client search.
type candidatePage struct {
	Items []Candidate `json:"items"`
}

// ReferralRecord is one row of the upstream referral report: a detected
// referral relationship with the receiving member's activity to date. The
// same pair may reappear in later reports with updated visits and spend.
type ReferralRecord struct {
	GivingMemberID        int64  `json:"givingMemberId"`
	GivingMemberFirstName string `json:"givingMemberFirstName"`
	GivingMemberLastName  string `json:"givingMemberLastName"`

	ReceivingMemberID        int64  `json:"receivingMemberId"`
	ReceivingMemberEmail     string `json:"receivingMemberEmail"`
	ReceivingMemberFirstName string `json:"receivingMemberFirstName"`
	ReceivingMemberLastName  string `json:"receivingMemberLastName"`

	ReceivingMemberVisits     int             `json:"receivingMemberVisits"`
	ReceivingMemberTotalSpend decimal.Decimal `json:"receivingMemberTotalSpend"`
	HomeLocation              string          `json:"homeLocation"`
}

type reportRunRequest struct {
	StartDate      string `json:"startDate"`
	EndDate        string `json:"endDate"`
	IdempotencyKey string `json:"idempotencyKey"`
}

type reportRunResponse struct {
	ReportRunID string `json:"reportRunId"`
}

// Report run statuses as reported by the upstream.
const (
	reportStatusPending   = "pending"
	reportStatusCompleted = "completed"
	reportStatusFailed    = "failed"
)

type reportData struct {
	Items []ReferralRecord `json:"items"`
}

type reportStatusResponse struct {
	Status     string           `json:"status"`
	ReportData *reportData      `json:"reportData"`
	Items      []ReferralRecord `json:"items"`
}

// items extracts the report rows. The upstream has shipped two payload
// shapes; the nested reportData.items form is preferred and the top-level
// items field is the fallback, in that fixed order.
func (r *reportStatusResponse) items() []ReferralRecord {
	if r.ReportData != nil && r.ReportData.Items != nil {
		return r.ReportData.Items
	}
	return r.Items
}

type purchaseRequest struct {
	MemberID       int64  `json:"memberId"`
	LocationID     int64  `json:"locationId"`
	ProductID      int64  `json:"productId"`
	UnitPrice      string `json:"unitPrice"`
	Quantity       int    `json:"quantity"`
	IdempotencyKey string `json:"idempotencyKey"`
}

type purchaseResponse struct {
	PurchaseID int64  `json:"purchaseId"`
	Status     string `json:"status"`
}
