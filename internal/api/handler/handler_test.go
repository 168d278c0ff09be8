package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"familyeats/backend/internal/analysis"
	"familyeats/backend/internal/api/handler"
	"familyeats/backend/internal/config"
	"familyeats/backend/internal/localization"
	"familyeats/backend/internal/models"
	"familyeats/backend/internal/moderation"
	"familyeats/backend/internal/report"
	"familyeats/backend/internal/storage"
	"familyeats/backend/internal/storage/storagetest"
	"familyeats/backend/internal/trust"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var authCfg = config.AuthConfig{JWTSecret: "test-secret", Issuer: "familyeats", TokenTTL: time.Hour}

func init() {
	gin.SetMode(gin.TestMode)
}

type fixedAnalyzer struct {
	scores map[string]float64
}

func (a *fixedAnalyzer) Name() string { return "fixed" }

func (a *fixedAnalyzer) Analyze(_ context.Context, _, _, _ string) (*analysis.Result, error) {
	return &analysis.Result{CategoryScores: a.scores, Analyzer: "fixed"}, nil
}

type server struct {
	router   *gin.Engine
	store    *storage.Service
	analyzer *fixedAnalyzer
}

func newServer(t *testing.T) *server {
	t.Helper()
	store := storagetest.New(t)
	loc, err := localization.Default()
	require.NoError(t, err)

	analyzer := &fixedAnalyzer{}
	engine := trust.NewEngine(store, nil, nil)
	queue := moderation.NewQueueManager(store, nil, nil)
	h := handler.NewHandler(handler.Deps{
		Moderation: moderation.NewService(store, analyzer, moderation.NewPolicy(moderation.DefaultThresholds()), queue, engine, nil, nil),
		Queue:      queue,
		Decisions:  moderation.NewDecisionProcessor(store, engine, nil, nil),
		Reports:    report.NewIntake(store, queue, engine, nil, report.RateLimit{}, nil),
		Trust:      engine,
		Localizer:  loc,
		Auth:       authCfg,
	})
	return &server{router: h.Router(), store: store, analyzer: analyzer}
}

func token(t *testing.T, userID, role string) string {
	t.Helper()
	tok, err := handler.IssueToken(authCfg, userID, role, time.Now())
	require.NoError(t, err)
	return tok
}

func (s *server) do(t *testing.T, method, path, tok string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec.Code, out
}

func analyzeBody(id string) map[string]any {
	return map[string]any{
		"content":      "The pancakes were great but the music was far too loud.",
		"content_type": "review",
		"content_id":   id,
		"author_id":    "author",
		"metadata":     map[string]any{"has_rating": true},
	}
}

func TestAnalyze_AutoRemove(t *testing.T) {
	s := newServer(t)
	s.analyzer.scores = map[string]float64{"toxicity": 0.95}

	code, body := s.do(t, http.MethodPost, "/moderation/analyze", token(t, "svc", "service"), analyzeBody("r1"))
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, moderation.ActionAutoRemove, body["action_taken"])
	assert.NotContains(t, body, "queue_id")
	assert.NotNil(t, body["analysis_results"])

	item, err := s.store.GetContentItem(context.Background(), "review", "r1")
	require.NoError(t, err)
	assert.Equal(t, models.ContentRemoved, item.Status)

	mod := token(t, "mod", "moderator")
	code, body = s.do(t, http.MethodGet, "/moderation/queue", mod, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, body["queue_items"])
}

func TestAnalyze_FlagThenResolve(t *testing.T) {
	s := newServer(t)
	s.analyzer.scores = map[string]float64{"toxicity": 0.6}
	mod := token(t, "mod", "moderator")

	code, body := s.do(t, http.MethodPost, "/moderation/analyze", mod, analyzeBody("r1"))
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, moderation.ActionFlag, body["action_taken"])
	queueID, _ := body["queue_id"].(string)
	require.NotEmpty(t, queueID)

	code, body = s.do(t, http.MethodGet, "/moderation/queue", mod, nil)
	require.Equal(t, http.StatusOK, code)
	items, _ := body["queue_items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, float64(4), items[0].(map[string]any)["priority"])

	code, body = s.do(t, http.MethodGet, "/moderation/analyze/results?content_type=review&content_id=r1", mod, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["results"], 1)

	code, body = s.do(t, http.MethodPut, "/moderation/queue", mod, map[string]any{"queue_id": queueID, "decision": "approve", "notes": "fine"})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "Decision recorded", body["message"])

	code, body = s.do(t, http.MethodGet, "/moderation/queue", mod, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, body["queue_items"])

	code, body = s.do(t, http.MethodPut, "/moderation/queue", mod, map[string]any{"queue_id": queueID, "decision": "remove"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "already_resolved", body["code"])

	decisions, err := s.store.ListDecisions(context.Background(), "review", "r1")
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.Equal(t, "mod", decisions[0].ReviewerID)
}

func TestReportFlow(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()
	require.NoError(t, s.store.UpsertContentItem(ctx, &models.ContentItem{ContentType: "review", ContentID: "r1", AuthorID: "author"}))
	member := token(t, "reporter", "member")
	mod := token(t, "mod", "moderator")

	code, body := s.do(t, http.MethodPost, "/moderation/reports", member, map[string]any{
		"content_type": "review", "content_id": "r1", "category": "harassment", "reason": "insults the waiter",
	})
	require.Equal(t, http.StatusOK, code, body)
	assert.NotEmpty(t, body["report_id"])

	code, body = s.do(t, http.MethodPost, "/moderation/reports", member, map[string]any{
		"content_type": "review", "content_id": "r1", "category": "spam",
	})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "conflict", body["code"])

	require.NoError(t, s.store.UpsertContentItem(ctx, &models.ContentItem{ContentType: "review", ContentID: "own", AuthorID: "reporter"}))
	code, body = s.do(t, http.MethodPost, "/moderation/reports", member, map[string]any{
		"content_type": "review", "content_id": "own", "category": "spam",
	})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "forbidden", body["code"])

	code, body = s.do(t, http.MethodGet, "/moderation/queue", mod, nil)
	require.Equal(t, http.StatusOK, code)
	items, _ := body["queue_items"].([]any)
	require.Len(t, items, 1)
	queueID := items[0].(map[string]any)["id"].(string)

	code, _ = s.do(t, http.MethodPost, "/moderation/queue/assign", mod, map[string]any{"queue_id": queueID})
	require.Equal(t, http.StatusOK, code)

	code, body = s.do(t, http.MethodPut, "/moderation/queue", mod, map[string]any{"queue_id": queueID, "decision": "remove", "action_taken": "removed"})
	require.Equal(t, http.StatusOK, code, body)

	code, body = s.do(t, http.MethodGet, "/moderation/reports?status=reviewed", mod, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["reports"], 1)

	// the author sees the breakdown, others only the summary
	code, body = s.do(t, http.MethodGet, "/moderation/trust-score/author", token(t, "author", "member"), nil)
	require.Equal(t, http.StatusOK, code)
	full := body["trust_score"].(map[string]any)
	assert.Contains(t, full, "upheld_reports_against")

	code, body = s.do(t, http.MethodGet, "/moderation/trust-score/author", member, nil)
	require.Equal(t, http.StatusOK, code)
	summary := body["trust_score"].(map[string]any)
	assert.NotContains(t, summary, "upheld_reports_against")
	assert.Equal(t, full["trust_score"], summary["trust_score"])
}

func TestTrustScore(t *testing.T) {
	s := newServer(t)
	member := token(t, "someone", "member")

	code, body := s.do(t, http.MethodGet, "/moderation/trust-score/nobody", member, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", body["code"])

	code, _ = s.do(t, http.MethodPut, "/moderation/trust-score/nobody", member, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, body = s.do(t, http.MethodPut, "/moderation/trust-score/nobody", token(t, "admin", "admin"), nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "Trust score recomputed", body["message"])
	assert.Equal(t, float64(50), body["trust_score"].(map[string]any)["trust_score"])
}

func TestAuthentication(t *testing.T) {
	s := newServer(t)

	expired, err := handler.IssueToken(authCfg, "mod", "moderator", time.Now().Add(-2*time.Hour))
	require.NoError(t, err)
	otherIssuer, err := handler.IssueToken(config.AuthConfig{JWTSecret: authCfg.JWTSecret, Issuer: "elsewhere", TokenTTL: time.Hour}, "mod", "moderator", time.Now())
	require.NoError(t, err)
	wrongSecret, err := handler.IssueToken(config.AuthConfig{JWTSecret: "nope", Issuer: authCfg.Issuer, TokenTTL: time.Hour}, "mod", "moderator", time.Now())
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "mod", "role": "admin", "iss": authCfg.Issuer, "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name string
		tok  string
	}{
		{"missing", ""},
		{"garbage", "not-a-jwt"},
		{"expired", expired},
		{"wrong issuer", otherIssuer},
		{"wrong secret", wrongSecret},
		{"alg none", none},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := s.do(t, http.MethodGet, "/moderation/queue", tt.tok, nil)
			assert.Equal(t, http.StatusUnauthorized, code)
			assert.Equal(t, "authentication", body["code"])
		})
	}
}

func TestAuthorization(t *testing.T) {
	s := newServer(t)
	member := token(t, "m1", "member")

	tests := []struct {
		method, path string
	}{
		{http.MethodPost, "/moderation/analyze"},
		{http.MethodGet, "/moderation/queue"},
		{http.MethodPut, "/moderation/queue"},
		{http.MethodGet, "/moderation/reports"},
		{http.MethodPut, "/moderation/reports"},
		{http.MethodGet, "/moderation/feed"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			code, body := s.do(t, tt.method, tt.path, member, map[string]any{})
			assert.Equal(t, http.StatusForbidden, code)
			assert.Equal(t, "forbidden", body["code"])
		})
	}
}

func TestValidationErrors(t *testing.T) {
	s := newServer(t)
	mod := token(t, "mod", "moderator")

	code, body := s.do(t, http.MethodPut, "/moderation/queue", mod, map[string]any{"queue_id": "q1"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation", body["code"])
	assert.Equal(t, "decision", body["field"])

	code, body = s.do(t, http.MethodPut, "/moderation/queue", mod, map[string]any{"queue_id": "q1", "decision": "ban"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "decision", body["field"])

	code, body = s.do(t, http.MethodPut, "/moderation/queue", mod, map[string]any{"queue_id": "q1", "decision": "approve"})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", body["code"])

	code, body = s.do(t, http.MethodPost, "/moderation/analyze", mod, map[string]any{"content_type": "review", "content_id": "r1"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "content", body["field"])

	code, body = s.do(t, http.MethodGet, "/moderation/queue?limit=500", mod, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "limit", body["field"])

	code, body = s.do(t, http.MethodGet, "/moderation/queue?limit=many", mod, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation", body["code"])

	code, body = s.do(t, http.MethodPost, "/moderation/reports", token(t, "m1", "member"), map[string]any{
		"content_type": "review", "content_id": "ghost", "category": "spam",
	})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", body["code"])
}

func TestHealthAndMetrics(t *testing.T) {
	s := newServer(t)

	code, body := s.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "moderation_http_requests")
}
