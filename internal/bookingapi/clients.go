package bookingapi

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"
)

// OneVisitCandidates pages through the client search for members holding the
// configured membership with exactly one visit, in server-returned order.
// Pagination stops at the first empty page. A fetch failure on page n
// truncates the result at the pages already collected (best effort, not a
// completeness guarantee) so a bad page never wedges the whole run.
func (c *Client) OneVisitCandidates(ctx context.Context) ([]Candidate, error) {
	var all []Candidate

	for page := 1; ; page++ {
		query := url.Values{}
		query.Set("membershipId", strconv.FormatInt(c.cfg.MembershipID, 10))
		query.Set("minVisits", "1")
		query.Set("maxVisits", "1")
		query.Set("page", strconv.Itoa(page))
		query.Set("pageSize", strconv.Itoa(c.cfg.PageSize))

		var resp candidatePage
		if err := c.do(ctx, classQuery, "client search", http.MethodGet, "/api/v1/clients", query, nil, &resp); err != nil {
			if ctx.Err() != nil {
				return all, ctx.Err()
			}
			c.log.Warn("client search truncated",
				zap.Int("page", page),
				zap.Int("collected", len(all)),
				zap.Error(err))
			return all, nil
		}

		if len(resp.Items) == 0 {
			break
		}
		all = append(all, resp.Items...)
	}

	c.log.Info("client search complete", zap.Int("candidates", len(all)))
	return all, nil
}
