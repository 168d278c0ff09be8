package moderation_test

import (
	"context"
	"errors"
	"testing"

	"familyeats/backend/internal/analysis"
	"familyeats/backend/internal/apperr"
	"familyeats/backend/internal/models"
	"familyeats/backend/internal/moderation"
	"familyeats/backend/internal/storage"
	"familyeats/backend/internal/storage/storagetest"
	"familyeats/backend/internal/trust"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedAnalyzer returns the same scores for every input.
type fixedAnalyzer struct {
	scores map[string]float64
	err    error
}

func (a *fixedAnalyzer) Name() string { return "fixed" }

func (a *fixedAnalyzer) Analyze(_ context.Context, _, _, _ string) (*analysis.Result, error) {
	if a.err != nil {
		return nil, a.err
	}
	return &analysis.Result{CategoryScores: a.scores, Analyzer: "fixed"}, nil
}

type fixture struct {
	store     *storage.Service
	analyzer  *fixedAnalyzer
	trust     *trust.Engine
	queue     *moderation.QueueManager
	decisions *moderation.DecisionProcessor
	service   *moderation.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := storagetest.New(t)
	f := &fixture{store: store, analyzer: &fixedAnalyzer{}}
	f.trust = trust.NewEngine(store, nil, nil)
	f.queue = moderation.NewQueueManager(store, nil, nil)
	f.decisions = moderation.NewDecisionProcessor(store, f.trust, nil, nil)
	f.service = moderation.NewService(store, f.analyzer, moderation.NewPolicy(moderation.DefaultThresholds()), f.queue, f.trust, nil, nil)
	return f
}

func (f *fixture) analyze(t *testing.T, id string, scores map[string]float64) *moderation.Outcome {
	t.Helper()
	f.analyzer.scores = scores
	out, err := f.service.Analyze(context.Background(), moderation.AnalyzeInput{
		Content:     "The soup was cold and the staff ignored us.",
		ContentType: "review",
		ContentID:   id,
		AuthorID:    "author",
	})
	require.NoError(t, err)
	return out
}

func TestAnalyze_AutoRemove(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	out := f.analyze(t, "r1", map[string]float64{"toxicity": 0.95})

	assert.Equal(t, moderation.ActionAutoRemove, out.Action)
	assert.Nil(t, out.QueueEntry)
	assert.True(t, out.Result.Flagged)
	assert.Equal(t, []string{"toxicity"}, []string(out.Result.FlaggedCategories))

	item, err := f.store.GetContentItem(ctx, "review", "r1")
	require.NoError(t, err)
	assert.Equal(t, models.ContentRemoved, item.Status)

	open, err := f.queue.List(ctx, moderation.ListInput{})
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestAnalyze_AutoRemoveLowersAuthorTrust(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.analyze(t, "r1", map[string]float64{"toxicity": 0.1})
	before, err := f.trust.Recompute(ctx, "author")
	require.NoError(t, err)
	require.Equal(t, 50, before.TrustScore)

	f.analyze(t, "r2", map[string]float64{"toxicity": 0.95})
	stored, err := f.store.GetTrustScore(ctx, "author")
	require.NoError(t, err)
	assert.Equal(t, 50-8, stored.TrustScore)
	assert.Equal(t, 1, stored.RemovedContentCount)

	for _, id := range []string{"r3", "r4", "r5", "r6"} {
		f.analyze(t, id, map[string]float64{"toxicity": 0.95})
	}
	stored, err = f.store.GetTrustScore(ctx, "author")
	require.NoError(t, err)
	// six recent items earn one activity point back
	assert.Equal(t, 50-5*8+1, stored.TrustScore)
	assert.Equal(t, models.StatusSuspended, stored.AccountStatus)
}

func TestAnalyze_AutoRemoveSettlesOpenEntry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.store.UpsertContentItem(ctx, &models.ContentItem{ContentType: "review", ContentID: "r1", AuthorID: "author"}))
	entry, _, err := f.queue.Enqueue(ctx, moderation.EnqueueInput{
		ContentType: "review", ContentID: "r1", Reason: "report: spam", Source: models.SourceReport,
	})
	require.NoError(t, err)
	require.NoError(t, f.store.SaveReport(ctx, &models.ContentReport{
		ReporterID: "reporter", ContentType: "review", ContentID: "r1", Category: "spam",
	}))

	out := f.analyze(t, "r1", map[string]float64{"spam": 0.97})
	require.Equal(t, moderation.ActionAutoRemove, out.Action)

	open, err := f.queue.List(ctx, moderation.ListInput{})
	require.NoError(t, err)
	assert.Empty(t, open)

	settled, err := f.store.GetQueueEntry(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, models.QueueResolved, settled.Status)

	decisions, err := f.store.ListDecisions(ctx, "review", "r1")
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.Equal(t, models.SystemReviewer, decisions[0].ReviewerID)
	assert.Equal(t, models.VerdictRemove, decisions[0].Verdict)
	assert.Equal(t, models.ContentRemoved, decisions[0].ActionTaken)

	reports, err := f.store.ListReports(ctx, storage.ReportFilter{})
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, models.ReportReviewed, reports[0].Status)

	reporter, err := f.store.GetTrustScore(ctx, "reporter")
	require.NoError(t, err)
	assert.Equal(t, 1, reporter.ValidReportsFiled)
}

func TestAnalyze_FlagForReview(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	out := f.analyze(t, "r1", map[string]float64{"toxicity": 0.6})

	assert.Equal(t, moderation.ActionFlag, out.Action)
	require.NotNil(t, out.QueueEntry)
	assert.Equal(t, 4, out.QueueEntry.Priority)
	assert.Equal(t, models.SourceAutoModeration, out.QueueEntry.Source)

	item, err := f.store.GetContentItem(ctx, "review", "r1")
	require.NoError(t, err)
	assert.Equal(t, models.ContentOpen, item.Status)

	open, err := f.queue.List(ctx, moderation.ListInput{})
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, out.QueueEntry.ID, open[0].ID)

	// analysing again merges into the same entry
	again := f.analyze(t, "r1", map[string]float64{"toxicity": 0.85})
	assert.Equal(t, out.QueueEntry.ID, again.QueueEntry.ID)
	assert.Equal(t, 1, again.QueueEntry.Priority)

	results, err := f.service.Results(ctx, "review", "r1")
	require.NoError(t, err)
	assert.Len(t, results, 2, "results accumulate")
}

func TestAnalyze_Approve(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	out := f.analyze(t, "r1", map[string]float64{"toxicity": 0.1})

	assert.Equal(t, moderation.ActionApprove, out.Action)
	assert.False(t, out.Result.Flagged)
	assert.Empty(t, out.Result.FlaggedCategories)
	assert.Greater(t, out.QualityScore, 0.0)

	open, err := f.queue.List(ctx, moderation.ListInput{})
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestAnalyze_TrustedAuthorGetsLeniency(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.store.SaveTrustScore(ctx, &models.TrustScore{UserID: "author", TrustScore: 90, AccountStatus: models.StatusGoodStanding}))

	out := f.analyze(t, "r1", map[string]float64{"toxicity": 0.55})
	assert.Equal(t, moderation.ActionApprove, out.Action)
}

func TestAnalyze_Errors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.service.Analyze(ctx, moderation.AnalyzeInput{ContentType: "review", ContentID: "r1"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.service.Analyze(ctx, moderation.AnalyzeInput{Content: "hi", ContentType: "blog", ContentID: "r1"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	f.analyzer.err = errors.New("model unavailable")
	_, err = f.service.Analyze(ctx, moderation.AnalyzeInput{Content: "hi", ContentType: "review", ContentID: "r1"})
	assert.ErrorIs(t, err, apperr.ErrAnalysis)

	results, err := f.service.Results(ctx, "review", "r1")
	require.NoError(t, err)
	assert.Empty(t, results, "failed analyses are not stored")

	_, err = f.service.Results(ctx, "", "r1")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestQueueManager(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	entry, created, err := f.queue.Enqueue(ctx, moderation.EnqueueInput{ContentType: "review", ContentID: "r1", Reason: "looks off"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 3, entry.Priority)
	assert.Equal(t, models.SourceManual, entry.Source)

	_, _, err = f.queue.Enqueue(ctx, moderation.EnqueueInput{ContentType: "review", ContentID: "r2", Reason: "x", Priority: 9})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, _, err = f.queue.Enqueue(ctx, moderation.EnqueueInput{ContentType: "review", ContentID: "r2"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.queue.List(ctx, moderation.ListInput{Limit: 500})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	require.NoError(t, f.queue.Assign(ctx, entry.ID, "mod-1"))
	mine, err := f.queue.List(ctx, moderation.ListInput{AssignedTo: "mod-1"})
	require.NoError(t, err)
	require.Len(t, mine, 1)

	assert.ErrorIs(t, f.queue.Assign(ctx, "missing", "mod-1"), apperr.ErrNotFound)
	assert.ErrorIs(t, f.queue.Assign(ctx, entry.ID, ""), apperr.ErrValidation)
}
