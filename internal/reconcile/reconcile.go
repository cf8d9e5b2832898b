// Package reconcile joins the one-visit candidate set against the referral
// report and decides qualification. It is pure: no I/O, no clock.
package reconcile

import (
	"github.com/Jimmeey2323/referrals/internal/bookingapi"
)

// QualifyingVisits is the minimum visit count the receiving member needs
// before the giver qualifies for a reward.
const QualifyingVisits = 1

// Decision is one reconciled referral pair: the report row, the matched
// candidate, and whether the receiving member's visits qualify the giver.
type Decision struct {
	Record    bookingapi.ReferralRecord
	Candidate bookingapi.Candidate
	Qualified bool
}

// Index keys candidates by member ID. Duplicate sightings of a member across
// pages collapse to the last one seen.
func Index(candidates []bookingapi.Candidate) map[int64]bookingapi.Candidate {
	idx := make(map[int64]bookingapi.Candidate, len(candidates))
	for _, c := range candidates {
		idx[c.MemberID] = c
	}
	return idx
}

// Match looks the record's receiving member up in the candidate index.
// ok is false when the member is absent: the record is ignored for this run,
// with no negative caching; a later run whose candidate set includes the
// member will see the pair again.
func Match(idx map[int64]bookingapi.Candidate, record bookingapi.ReferralRecord) (Decision, bool) {
	candidate, ok := idx[record.ReceivingMemberID]
	if !ok {
		return Decision{}, false
	}
	return Decision{
		Record:    record,
		Candidate: candidate,
		Qualified: record.ReceivingMemberVisits >= QualifyingVisits,
	}, true
}
