package bookingapi

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateRewardPurchase books a zero-cost purchase of the reward membership
// product for the given member at the resolved location. The fresh
// idempotency token makes the call safe under executor retries: the upstream
// recognizes a re-transmitted token and does not grant twice.
func (c *Client) CreateRewardPurchase(ctx context.Context, memberID, locationID int64) error {
	req := purchaseRequest{
		MemberID:       memberID,
		LocationID:     locationID,
		ProductID:      c.cfg.RewardProductID,
		UnitPrice:      "0.00",
		Quantity:       1,
		IdempotencyKey: uuid.NewString(),
	}

	var resp purchaseResponse
	if err := c.do(ctx, classPurchase, "reward purchase", http.MethodPost, "/api/v1/purchases", nil, req, &resp); err != nil {
		return err
	}

	c.log.Info("reward purchase created",
		zap.Int64("memberId", memberID),
		zap.Int64("locationId", locationID),
		zap.Int64("purchaseId", resp.PurchaseID),
		zap.String("status", resp.Status))
	return nil
}
