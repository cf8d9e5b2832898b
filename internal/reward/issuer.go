package reward

import (
	"context"

	"go.uber.org/zap"

	"github.com/Jimmeey2323/referrals/internal/bookingapi"
	"github.com/Jimmeey2323/referrals/internal/config"
)

// PurchaseClient is the slice of the booking API the issuer needs.
type PurchaseClient interface {
	CreateRewardPurchase(ctx context.Context, memberID, locationID int64) error
}

// Issuer grants the referral reward: a zero-cost purchase of the reward
// membership product for the giving member. Issue never returns an error;
// a failed grant degrades to false and is recorded as such in the ledger.
type Issuer struct {
	api PurchaseClient
	cfg *config.Config
	log *zap.Logger
}

func NewIssuer(api PurchaseClient, cfg *config.Config, log *zap.Logger) *Issuer {
	return &Issuer{api: api, cfg: cfg, log: log}
}

// Issue grants the reward to the record's giving member at the location
// resolved from the record's home location. Returns true only when the
// upstream accepted the purchase.
func (i *Issuer) Issue(ctx context.Context, record bookingapi.ReferralRecord) bool {
	locationID := i.resolveLocation(record.HomeLocation)

	if err := i.api.CreateRewardPurchase(ctx, record.GivingMemberID, locationID); err != nil {
		i.log.Error("reward issuance failed",
			zap.Int64("givingMemberId", record.GivingMemberID),
			zap.Int64("receivingMemberId", record.ReceivingMemberID),
			zap.Error(err))
		return false
	}

	i.log.Info("reward issued",
		zap.Int64("givingMemberId", record.GivingMemberID),
		zap.Int64("receivingMemberId", record.ReceivingMemberID),
		zap.String("homeLocation", record.HomeLocation))
	return true
}

func (i *Issuer) resolveLocation(name string) int64 {
	if id, ok := i.cfg.LocationMap[name]; ok {
		return id
	}
	if name != "" {
		i.log.Warn("unknown home location, using default",
			zap.String("homeLocation", name),
			zap.Int64("defaultLocationId", i.cfg.DefaultLocationID))
	}
	return i.cfg.DefaultLocationID
}
