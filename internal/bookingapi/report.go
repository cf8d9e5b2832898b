package bookingapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrReportFailed means the upstream marked the report run failed.
	ErrReportFailed = errors.New("referral report failed upstream")
	// ErrReportTimeout means the run never reached a terminal state within
	// the polling budget.
	ErrReportTimeout = errors.New("referral report polling budget exhausted")
)

// ReferralReport requests a referral report for the trailing lookback window
// and polls it to completion.
//
// The initiation call carries a fresh idempotency token so an executor-level
// retry cannot spawn duplicate report jobs upstream. Polls repeat every
// PollInterval up to PollMaxAttempts; pending and unrecognized statuses keep
// polling, failed and an exhausted budget are terminal. Neither terminal
// error re-initiates the report; only a fresh run does that.
func (c *Client) ReferralReport(ctx context.Context) ([]ReferralRecord, error) {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -c.cfg.ReportLookbackDays)

	initReq := reportRunRequest{
		StartDate:      start.Format("2006-01-02"),
		EndDate:        end.Format("2006-01-02"),
		IdempotencyKey: uuid.NewString(),
	}

	var initResp reportRunResponse
	if err := c.do(ctx, classReport, "report initiation", http.MethodPost, "/api/v1/reports/referrals", nil, initReq, &initResp); err != nil {
		return nil, err
	}
	if initResp.ReportRunID == "" {
		return nil, fmt.Errorf("report initiation returned no run id")
	}

	c.log.Info("referral report requested",
		zap.String("runId", initResp.ReportRunID),
		zap.String("startDate", initReq.StartDate),
		zap.String("endDate", initReq.EndDate))

	statusPath := "/api/v1/reports/referrals/runs/" + initResp.ReportRunID

	for attempt := 1; attempt <= c.cfg.PollMaxAttempts; attempt++ {
		var status reportStatusResponse
		if err := c.do(ctx, classQuery, "report status", http.MethodGet, statusPath, nil, nil, &status); err != nil {
			return nil, err
		}

		switch strings.ToLower(status.Status) {
		case reportStatusCompleted:
			items := status.items()
			c.log.Info("referral report completed",
				zap.String("runId", initResp.ReportRunID),
				zap.Int("polls", attempt),
				zap.Int("rows", len(items)))
			return items, nil
		case reportStatusFailed:
			return nil, fmt.Errorf("report run %s: %w", initResp.ReportRunID, ErrReportFailed)
		default:
			// pending, or a status this client does not know; poll again
			c.log.Debug("referral report pending",
				zap.String("runId", initResp.ReportRunID),
				zap.String("status", status.Status),
				zap.Int("attempt", attempt))
		}

		if attempt < c.cfg.PollMaxAttempts {
			select {
			case <-time.After(c.cfg.PollInterval):
			case <-ctx.Done():
				return nil, fmt.Errorf("report status: %w", ctx.Err())
			}
		}
	}

	return nil, fmt.Errorf("report run %s after %d polls: %w", initResp.ReportRunID, c.cfg.PollMaxAttempts, ErrReportTimeout)
}
