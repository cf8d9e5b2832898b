package bookingapi

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// reportServer scripts the initiation endpoint plus a fixed sequence of
// status responses, one per poll.
type reportServer struct {
	t        *testing.T
	mu       sync.Mutex
	runID    string
	initSeen []reportRunRequest
	statuses []string
	polls    int
	rows     string // raw JSON fragment spliced into completed responses
}

func (s *reportServer) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		if r.Method == http.MethodPost && r.URL.Path == "/api/v1/reports/referrals" {
			var req reportRunRequest
			require.NoError(s.t, json.NewDecoder(r.Body).Decode(&req))
			s.initSeen = append(s.initSeen, req)
			json.NewEncoder(w).Encode(reportRunResponse{ReportRunID: s.runID})
			return
		}

		require.Equal(s.t, "/api/v1/reports/referrals/runs/"+s.runID, r.URL.Path)
		status := s.statuses[len(s.statuses)-1]
		if s.polls < len(s.statuses) {
			status = s.statuses[s.polls]
		}
		s.polls++

		if status == "completed" && s.rows != "" {
			w.Write([]byte(`{"status":"completed",` + s.rows + `}`))
			return
		}
		json.NewEncoder(w).Encode(reportStatusResponse{Status: status})
	})
}

func (s *reportServer) pollCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polls
}

func (s *reportServer) initRequests() []reportRunRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]reportRunRequest(nil), s.initSeen...)
}

func TestReferralReportPendingThenCompleted(t *testing.T) {
	srv := &reportServer{
		t:        t,
		runID:    "run-42",
		statuses: []string{"pending", "pending", "completed"},
		rows:     `"reportData":{"items":[{"givingMemberId":1,"receivingMemberId":102,"receivingMemberVisits":2}]}`,
	}
	client, _ := newTestClient(t, srv.handler())

	rows, err := client.ReferralReport(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].GivingMemberID)
	assert.Equal(t, int64(102), rows[0].ReceivingMemberID)
	assert.Equal(t, 2, rows[0].ReceivingMemberVisits)
	assert.Equal(t, 3, srv.pollCount())

	inits := srv.initRequests()
	require.Len(t, inits, 1)
	assert.NotEmpty(t, inits[0].IdempotencyKey)
	assert.NotEmpty(t, inits[0].StartDate)
	assert.NotEmpty(t, inits[0].EndDate)
	assert.Less(t, inits[0].StartDate, inits[0].EndDate)
}

func TestReferralReportTopLevelItemsFallback(t *testing.T) {
	srv := &reportServer{
		t:        t,
		runID:    "run-legacy",
		statuses: []string{"completed"},
		rows:     `"items":[{"givingMemberId":3,"receivingMemberId":103,"receivingMemberVisits":0}]`,
	}
	client, _ := newTestClient(t, srv.handler())

	rows, err := client.ReferralReport(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(103), rows[0].ReceivingMemberID)
}

func TestReferralReportPrefersNestedItems(t *testing.T) {
	srv := &reportServer{
		t:        t,
		runID:    "run-both",
		statuses: []string{"completed"},
		rows: `"reportData":{"items":[{"givingMemberId":1,"receivingMemberId":102}]},` +
			`"items":[{"givingMemberId":9,"receivingMemberId":901},{"givingMemberId":9,"receivingMemberId":902}]`,
	}
	client, _ := newTestClient(t, srv.handler())

	rows, err := client.ReferralReport(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(102), rows[0].ReceivingMemberID)
}

func TestReferralReportMixedCaseStatus(t *testing.T) {
	srv := &reportServer{
		t:        t,
		runID:    "run-case",
		statuses: []string{"Queued", "PENDING", "Completed"},
		rows:     `"reportData":{"items":[]}`,
	}
	client, _ := newTestClient(t, srv.handler())

	rows, err := client.ReferralReport(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Equal(t, 3, srv.pollCount())
}

func TestReferralReportFailed(t *testing.T) {
	srv := &reportServer{
		t:        t,
		runID:    "run-bad",
		statuses: []string{"pending", "failed"},
	}
	client, _ := newTestClient(t, srv.handler())

	_, err := client.ReferralReport(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReportFailed)
	assert.Contains(t, err.Error(), "run-bad")
}

func TestReferralReportPollBudgetExhausted(t *testing.T) {
	srv := &reportServer{
		t:        t,
		runID:    "run-slow",
		statuses: []string{"pending"},
	}
	client, cfg := newTestClient(t, srv.handler())
	cfg.PollMaxAttempts = 4

	_, err := client.ReferralReport(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReportTimeout)
	assert.Equal(t, 4, srv.pollCount())
}

func TestReferralReportMissingRunID(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))

	_, err := client.ReferralReport(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no run id")
}

func TestReferralReportFreshIdempotencyKeys(t *testing.T) {
	srv := &reportServer{
		t:        t,
		runID:    "run-keys",
		statuses: []string{"completed"},
		rows:     `"reportData":{"items":[]}`,
	}
	client, _ := newTestClient(t, srv.handler())

	_, err := client.ReferralReport(context.Background())
	require.NoError(t, err)
	_, err = client.ReferralReport(context.Background())
	require.NoError(t, err)

	inits := srv.initRequests()
	require.Len(t, inits, 2)
	assert.NotEmpty(t, inits[0].IdempotencyKey)
	assert.NotEqual(t, inits[0].IdempotencyKey, inits[1].IdempotencyKey)
}
