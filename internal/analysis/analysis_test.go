package analysis_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"familyeats/backend/internal/analysis"
	"familyeats/backend/internal/apperr"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"the", "creme", "brulee", "was", "idiotic"}, analysis.Tokenize("The crème brûlée was... IDIOTIC!!"))
	assert.Empty(t, analysis.Tokenize("  ?!  "))
}

func TestKeywordAnalyzer(t *testing.T) {
	ctx := context.Background()
	a := analysis.NewKeywordAnalyzer()

	tests := []struct {
		name     string
		content  string
		category string
		want     float64
	}{
		{"clean review", "Lovely family dinner, the kids enjoyed the pasta and skills of the chef. Hello again soon!", analysis.CategoryToxicity, 0},
		{"two insults", "The waiter was an idiot and the manager a moron.", analysis.CategoryToxicity, 0.6},
		{"diacritics folded", "Total ídiot service", analysis.CategoryToxicity, 0.3},
		{"phrase match", "Honestly, shut up about this place", analysis.CategoryHarassment, 0.35},
		{"hate phrase", "Those people are vermin", analysis.CategoryHateSpeech, 1},
		{"links count as spam", "great deals at https://spam.example and www.spam.example", analysis.CategorySpam, 0.6},
		{"spam phrase and link", "Click here https://x.example", analysis.CategorySpam, 0.55},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := a.Analyze(ctx, tt.content, "review", "r1")
			require.NoError(t, err)
			assert.InDelta(t, tt.want, res.CategoryScores[tt.category], 1e-9)
			assert.Equal(t, "keyword", res.Analyzer)
		})
	}
}

func TestKeywordAnalyzer_Shouting(t *testing.T) {
	res, err := analysis.NewKeywordAnalyzer().Analyze(context.Background(), "THIS PLACE IS TERRIBLE", "review", "r1")
	require.NoError(t, err)
	assert.InDelta(t, 0.2, res.CategoryScores[analysis.CategoryToxicity], 1e-9)
	assert.Equal(t, true, res.Details["shouting"])
}

func TestKeywordAnalyzer_Validation(t *testing.T) {
	a := analysis.NewKeywordAnalyzer()
	ctx := context.Background()

	_, err := a.Analyze(ctx, "   ", "review", "r1")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = a.Analyze(ctx, "fine", "", "r1")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = a.Analyze(ctx, "fine", "review", "")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestRemoteAnalyzer_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "r1", body["content_id"])
		assert.Equal(t, "review", body["content_type"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"category_scores":{"toxicity":0.95,"spam":1.7},"details":{"model":"v2"}}`))
	}))
	defer srv.Close()

	a := analysis.NewRemoteAnalyzer(srv.URL, time.Second, nil)
	res, err := a.Analyze(context.Background(), "some text", "review", "r1")

	require.NoError(t, err)
	assert.Equal(t, 0.95, res.CategoryScores["toxicity"])
	assert.Equal(t, 1.0, res.CategoryScores["spam"], "scores are clamped")
	assert.Equal(t, "v2", res.Details["model"])
	assert.Equal(t, "remote", res.Analyzer)
}

func TestRemoteAnalyzer_FailuresOpenBreaker(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	a := analysis.NewRemoteAnalyzer(srv.URL, time.Second, nil)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := a.Analyze(ctx, "text", "review", "r1")
		require.Error(t, err)
	}
	assert.Equal(t, 5, calls, "no retries")

	_, err := a.Analyze(ctx, "text", "review", "r1")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 5, calls, "open breaker fails fast")
}

func TestRemoteAnalyzer_BadPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"details":{}}`))
	}))
	defer srv.Close()

	_, err := analysis.NewRemoteAnalyzer(srv.URL, time.Second, nil).Analyze(context.Background(), "text", "review", "r1")
	assert.Error(t, err)
}

func TestQualityScorer(t *testing.T) {
	q := analysis.NewQualityScorer()
	good := "We came with three kids on a Sunday. The staff brought crayons, the portions were generous and the prices fair. Will return."

	tests := []struct {
		name        string
		contentType string
		content     string
		meta        analysis.Meta
		want        float64
	}{
		{"one word review without rating", "review", "Great", analysis.Meta{}, 0.05},
		{"solid review with rating", "review", good, analysis.Meta{HasRating: true}, 1.0},
		{"solid review without rating", "review", good, analysis.Meta{}, 0.95},
		{"short comment", "comment", "nice place for kids", analysis.Meta{}, 0.4},
		{"no punctuation", "comment", "we went there and it was fine the food came late but ok", analysis.Meta{}, 0.9},
		{"elongated words", "comment", "sooooo good and yummmmy and the deserts are reallyyyy big okay", analysis.Meta{}, 0.6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := q.Score(tt.contentType, tt.content, tt.meta)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.Equal(t, got, q.Score(tt.contentType, tt.content, tt.meta), "deterministic")
		})
	}
}

func TestQualityScorer_Shouting(t *testing.T) {
	q := analysis.NewQualityScorer()
	calm := q.Score("comment", "The playground outside was clean and the staff were kind to us.", analysis.Meta{})
	loud := q.Score("comment", "THE PLAYGROUND OUTSIDE WAS CLEAN AND THE STAFF WERE KIND TO US.", analysis.Meta{})

	assert.Greater(t, calm, loud)
	assert.GreaterOrEqual(t, loud, 0.0)
}
