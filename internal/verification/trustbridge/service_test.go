package trustbridge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"trustboard/internal/verification/models"
	"trustboard/internal/verification/ports/mocks"
	dErrors "trustboard/pkg/domain-errors"
	"trustboard/pkg/platform/audit"
)

// fakeVerifier answers by query text. "block" waits for cancellation and
// "fail" returns an error; anything else looks up canned results.
type fakeVerifier struct {
	answers map[string]models.VerificationResult
	cached  map[string]models.VerificationResult
}

func (f *fakeVerifier) Verify(ctx context.Context, q models.VerificationQuery) (*models.VerificationResult, error) {
	switch {
	case strings.HasPrefix(q.Query, "block"):
		<-ctx.Done()
		return nil, ctx.Err()
	case strings.HasPrefix(q.Query, "fail"):
		return nil, errors.New("registry unavailable")
	}
	res, ok := f.answers[q.Query]
	if !ok {
		return nil, errors.New("unexpected query")
	}
	res.QueryID = q.ID
	return &res, nil
}

func (f *fakeVerifier) Lookup(_ context.Context, q models.VerificationQuery) (*models.VerificationResult, bool) {
	res, ok := f.cached[q.Query]
	if !ok {
		return nil, false
	}
	res.QueryID = q.ID
	return &res, true
}

func answer(verified bool, confidence int, org string) models.VerificationResult {
	return models.VerificationResult{
		Verified:     verified,
		Confidence:   confidence,
		ResponseTime: 10 * time.Millisecond,
		Source:       models.SourceDescriptor{OrganizationID: org, OrganizationName: org},
	}
}

func query(id, text string) models.VerificationQuery {
	return models.VerificationQuery{ID: id, Query: text, OrganizationID: "org-medical"}
}

type TrustBridgeSuite struct {
	suite.Suite
	verifier *fakeVerifier
	service  *Service
	ctx      context.Context
}

func TestTrustBridgeSuite(t *testing.T) {
	suite.Run(t, new(TrustBridgeSuite))
}

func (s *TrustBridgeSuite) SetupTest() {
	s.ctx = context.Background()
	s.verifier = &fakeVerifier{
		answers: map[string]models.VerificationResult{
			"is jane licensed":         answer(true, 90, "org-medical"),
			"is jane certified":        answer(true, 80, "org-medical"),
			"is jane in good standing": answer(false, 50, "org-bar"),
		},
		cached: map[string]models.VerificationResult{
			"fail but cached": answer(true, 75, "org-bar"),
		},
	}
	s.service = New(s.verifier, WithDefaultTimeout(2*time.Second), WithMaxTimeout(2*time.Second))
}

func (s *TrustBridgeSuite) mixedRequest(logic models.CombinationLogic) models.CrossVerificationRequest {
	return models.CrossVerificationRequest{
		Queries: []models.VerificationQuery{
			query("q1", "is jane licensed"),
			query("q2", "is jane certified"),
			query("q3", "is jane in good standing"),
		},
		Logic:       logic,
		RequesterID: "employer-1",
	}
}

func (s *TrustBridgeSuite) actions(res *models.CrossVerificationResult) []string {
	out := make([]string, 0, len(res.Audit.Steps))
	for _, step := range res.Audit.Steps {
		out = append(out, step.Action)
	}
	return out
}

func (s *TrustBridgeSuite) TestAllQueriesRespond() {
	s.Run("and logic over three answers", func() {
		res, err := s.service.VerifyAll(s.ctx, s.mixedRequest(models.LogicAnd))
		s.Require().NoError(err)

		s.NotEmpty(res.RequestID)
		s.Equal(models.OverallNotVerified, res.Overall)
		s.InDelta(50, res.Confidence, 0.001)
		s.InDelta(66.67, res.Consensus, 0.001)
		s.Equal(models.StateCompleted, res.State)
		s.Len(res.Responses, 3)

		s.Equal(3, res.Stats.TotalQueries)
		s.Equal(3, res.Stats.Responded)
		s.Equal(3, res.Stats.Settled)
		s.Equal(2, res.Stats.Verified)
		s.Equal(1, res.Stats.NotVerified)
		s.Zero(res.Stats.Failed)
		s.Zero(res.Stats.TimedOut)
		s.InDelta(73.33, res.Stats.AverageConfidence, 0.001)
		s.Equal(10*time.Millisecond, res.Stats.AverageResponseTime)

		s.InDelta(0.03, res.Cost.Total, 1e-9)
		s.InDelta(0.02, res.Cost.BySource["org-medical"], 1e-9)
		s.Equal(models.RiskMedium, res.Risk.Level)
	})

	s.Run("audit trail is bracketed by start and end", func() {
		res, err := s.service.VerifyAll(s.ctx, s.mixedRequest(models.LogicOr))
		s.Require().NoError(err)

		actions := s.actions(res)
		s.Require().NotEmpty(actions)
		s.Equal("start", actions[0])
		s.Equal("end", actions[len(actions)-1])
		s.Contains(actions, "query_responded")
		s.False(res.Audit.CompletedAt.Before(res.Audit.StartedAt))
		s.Equal(res.Audit.CompletedAt.Sub(res.Audit.StartedAt), res.Audit.Duration)
	})

	s.Run("defaults apply when logic and strategy are omitted", func() {
		res, err := s.service.VerifyAll(s.ctx, s.mixedRequest(""))
		s.Require().NoError(err)

		s.Equal(models.OverallVerified, res.Overall)
		s.Contains(res.Audit.Steps[0].Detail, "logic=CUSTOM")
		s.Contains(res.Audit.Steps[0].Detail, "strategy=best-effort")
		s.Contains(res.Audit.Steps[0].Detail, "timeout=2s")
	})

	s.Run("blank query ids are minted and requester is inherited", func() {
		req := s.mixedRequest(models.LogicOr)
		req.Queries[0].ID = ""
		res, err := s.service.VerifyAll(s.ctx, req)
		s.Require().NoError(err)

		for _, r := range res.Responses {
			s.NotEmpty(r.QueryID)
		}
	})
}

func (s *TrustBridgeSuite) TestBestEffort() {
	s.Run("failed queries are excluded", func() {
		req := s.mixedRequest(models.LogicAnd)
		req.Queries[2] = query("q3", "fail hard")
		res, err := s.service.VerifyAll(s.ctx, req)
		s.Require().NoError(err)

		s.Equal(models.OverallVerified, res.Overall)
		s.InDelta(80, res.Confidence, 0.001)
		s.Equal(1, res.Stats.Failed)
		s.Equal(2, res.Stats.Settled)
		s.Len(res.Responses, 2)
		s.Contains(s.actions(res), "query_failed")
	})

	s.Run("unresolved queries are excluded at the timeout", func() {
		req := s.mixedRequest(models.LogicOr)
		req.Queries[1] = query("q2", "block forever")
		req.Timeout = 50 * time.Millisecond
		res, err := s.service.VerifyAll(s.ctx, req)
		s.Require().NoError(err)

		s.Equal(models.StateCompleted, res.State)
		s.Equal(1, res.Stats.TimedOut)
		s.Equal(2, res.Stats.Settled)
		s.Contains(s.actions(res), "query_timed_out")
	})

	s.Run("everything failing is inconclusive", func() {
		req := models.CrossVerificationRequest{
			Queries: []models.VerificationQuery{query("q1", "fail one"), query("q2", "fail two")},
			Logic:   models.LogicAnd,
		}
		res, err := s.service.VerifyAll(s.ctx, req)
		s.Require().NoError(err)

		s.Equal(models.OverallInconclusive, res.Overall)
		s.Equal(2, res.Stats.Failed)
		s.Empty(res.Responses)
		s.Equal([]string{"no settled responses"}, res.Risk.Factors)
	})

	s.Run("minimum sources forces partial", func() {
		req := s.mixedRequest(models.LogicOr)
		req.Queries[2] = query("q3", "fail hard")
		req.MinimumSources = 3
		res, err := s.service.VerifyAll(s.ctx, req)
		s.Require().NoError(err)

		s.Equal(models.OverallPartial, res.Overall)
		s.Contains(res.Risk.Recommendations, "increase sources")
	})
}

func (s *TrustBridgeSuite) TestFailFast() {
	s.Run("a failed query fails the request", func() {
		req := s.mixedRequest(models.LogicAnd)
		req.Queries[1] = query("q2", "fail hard")
		req.FailureStrategy = models.FailFast
		res, err := s.service.VerifyAll(s.ctx, req)

		s.Require().Error(err)
		s.Nil(res)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})

	s.Run("the timeout fails the request", func() {
		req := s.mixedRequest(models.LogicAnd)
		req.Queries[0] = query("q1", "block forever")
		req.FailureStrategy = models.FailFast
		req.Timeout = 50 * time.Millisecond
		res, err := s.service.VerifyAll(s.ctx, req)

		s.Require().Error(err)
		s.Nil(res)
		s.True(dErrors.HasCode(err, dErrors.CodeTimeout))
	})
}

func (s *TrustBridgeSuite) TestFallback() {
	req := models.CrossVerificationRequest{
		Queries: []models.VerificationQuery{
			query("q1", "is jane licensed"),
			query("q2", "fail but cached"),
			query("q3", "block forever"),
		},
		Logic:           models.LogicAnd,
		FailureStrategy: models.Fallback,
		Timeout:         50 * time.Millisecond,
	}
	res, err := s.service.VerifyAll(s.ctx, req)
	s.Require().NoError(err)

	s.Equal(2, res.Stats.Substituted)
	s.Equal(1, res.Stats.Failed)
	s.Equal(1, res.Stats.TimedOut)
	s.Equal(2, res.Stats.Settled)
	s.Len(res.Responses, 3)

	s.Equal(models.OverallVerified, res.Overall)
	s.InDelta(75, res.Confidence, 0.001)

	var placeholder *models.VerificationResult
	for i := range res.Responses {
		if res.Responses[i].QueryID == "q3" {
			placeholder = &res.Responses[i]
		}
	}
	s.Require().NotNil(placeholder)
	s.False(placeholder.Verified)
	s.Zero(placeholder.Confidence)
	s.InDelta(0.03, res.Cost.Total, 1e-9)

	actions := s.actions(res)
	s.Contains(actions, "substituted_cached")
	s.Contains(actions, "substituted_default")
}

func (s *TrustBridgeSuite) TestTimeoutKeepsAnswersAlreadyReceived() {
	const n = 20
	buffered := func(strategy models.FailureStrategy, failAt int) (*run, chan outcome) {
		queries := make([]models.VerificationQuery, n)
		ch := make(chan outcome, n)
		for i := range queries {
			queries[i] = query(fmt.Sprintf("q%d", i), "is jane licensed")
			if i == failAt {
				ch <- outcome{index: i, err: errors.New("registry unavailable")}
				continue
			}
			res := answer(true, 90, "org-medical")
			res.QueryID = queries[i].ID
			ch <- outcome{index: i, result: &res, elapsed: time.Millisecond}
		}
		req := models.CrossVerificationRequest{
			Queries:         queries,
			Logic:           models.LogicAnd,
			FailureStrategy: strategy,
			Timeout:         time.Nanosecond,
		}
		return &run{req: req, start: time.Now(), state: models.StateFanningOut, clock: time.Now, results: map[int]outcome{}}, ch
	}

	s.Run("answers buffered before the deadline settle", func() {
		r, ch := buffered(models.BestEffort, -1)
		s.Require().NoError(s.service.await(s.ctx, r, ch))
		s.Len(r.results, n)
		s.Equal(models.StateAggregating, r.state)

		res := s.service.assemble(s.ctx, r)
		s.Equal(n, res.Stats.Responded)
		s.Zero(res.Stats.TimedOut)
		s.Equal(models.OverallVerified, res.Overall)
		s.NotContains(s.actions(res), "query_timed_out")
	})

	s.Run("a buffered failure still fails a fail-fast request", func() {
		r, ch := buffered(models.FailFast, n-1)
		err := s.service.await(s.ctx, r, ch)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func (s *TrustBridgeSuite) TestCallerCancellation() {
	ctx, cancel := context.WithTimeout(s.ctx, 30*time.Millisecond)
	defer cancel()

	req := s.mixedRequest(models.LogicAnd)
	req.Queries[0] = query("q1", "block forever")
	req.Timeout = time.Second
	_, err := s.service.VerifyAll(ctx, req)

	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeTimeout))
}

func (s *TrustBridgeSuite) TestValidation() {
	tests := []struct {
		name   string
		mutate func(*models.CrossVerificationRequest)
	}{
		{"no queries", func(r *models.CrossVerificationRequest) { r.Queries = nil }},
		{"unknown logic", func(r *models.CrossVerificationRequest) { r.Logic = "XOR" }},
		{"unknown strategy", func(r *models.CrossVerificationRequest) { r.FailureStrategy = "retry" }},
		{"minimum confidence above 100", func(r *models.CrossVerificationRequest) { r.MinimumConfidence = 101 }},
		{"negative minimum sources", func(r *models.CrossVerificationRequest) { r.MinimumSources = -1 }},
		{"negative weight", func(r *models.CrossVerificationRequest) { r.Weights = map[string]float64{"q1": -1} }},
		{"duplicate ids", func(r *models.CrossVerificationRequest) { r.Queries[1].ID = "q1" }},
		{"blank query text", func(r *models.CrossVerificationRequest) { r.Queries[2].Query = "  " }},
		{"timeout above the cap", func(r *models.CrossVerificationRequest) { r.Timeout = 3 * time.Second }},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			req := s.mixedRequest(models.LogicAnd)
			tt.mutate(&req)
			_, err := s.service.VerifyAll(s.ctx, req)
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		})
	}
}

func (s *TrustBridgeSuite) TestAuditEvents() {
	s.Run("completed", func() {
		ctrl := gomock.NewController(s.T())
		auditor := mocks.NewMockAuditPublisher(ctrl)
		svc := New(s.verifier, WithAuditPublisher(auditor))

		auditor.EXPECT().Emit(gomock.Any(), gomock.Cond(func(ev audit.Event) bool {
			return ev.Action == string(audit.EventCrossVerificationCompleted) &&
				ev.RequestID == "req-1" && ev.RequesterID == "employer-1" &&
				ev.Decision == string(models.OverallVerified)
		})).Return(nil)

		req := s.mixedRequest(models.LogicOr)
		req.ID = "req-1"
		_, err := svc.VerifyAll(s.ctx, req)
		s.Require().NoError(err)
	})

	s.Run("failed", func() {
		ctrl := gomock.NewController(s.T())
		auditor := mocks.NewMockAuditPublisher(ctrl)
		svc := New(s.verifier, WithAuditPublisher(auditor))

		auditor.EXPECT().Emit(gomock.Any(), gomock.Cond(func(ev audit.Event) bool {
			return ev.Action == string(audit.EventCrossVerificationFailed) && ev.Reason != ""
		})).Return(errors.New("sink down"))

		req := s.mixedRequest(models.LogicOr)
		req.Queries[0] = query("q1", "fail hard")
		req.FailureStrategy = models.FailFast
		_, err := svc.VerifyAll(s.ctx, req)
		s.Require().Error(err)
	})
}
