package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

type remoteRequest struct {
	Content     string `json:"content"`
	ContentType string `json:"content_type"`
	ContentID   string `json:"content_id"`
}

type remoteResponse struct {
	CategoryScores map[string]float64 `json:"category_scores"`
	Details        map[string]any     `json:"details"`
}

// RemoteAnalyzer calls an external scoring service. Calls go through a
// circuit breaker: after repeated failures the breaker opens and requests
// fail fast until the cool-down passes. Nothing is retried.
type RemoteAnalyzer struct {
	url     string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	log     *zap.Logger
}

// NewRemoteAnalyzer builds a client for url. timeout bounds each HTTP call.
func NewRemoteAnalyzer(url string, timeout time.Duration, log *zap.Logger) *RemoteAnalyzer {
	if log == nil {
		log = zap.NewNop()
	}
	settings := gobreaker.Settings{
		Name:        "content-analyzer",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state change",
				zap.String("name", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	}
	return &RemoteAnalyzer{
		url:     url,
		client:  &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(settings),
		log:     log,
	}
}

func (r *RemoteAnalyzer) Name() string { return "remote" }

func (r *RemoteAnalyzer) Analyze(ctx context.Context, content, contentType, contentID string) (*Result, error) {
	if err := (Input{Content: content, ContentType: contentType, ContentID: contentID}).Validate(); err != nil {
		return nil, err
	}
	out, err := r.breaker.Execute(func() (interface{}, error) {
		return r.call(ctx, remoteRequest{Content: content, ContentType: contentType, ContentID: contentID})
	})
	if err != nil {
		r.log.Error("remote analyzer failed", zap.String("content_id", contentID), zap.Error(err))
		return nil, err
	}
	resp := out.(*remoteResponse)

	scores := make(map[string]float64, len(resp.CategoryScores))
	for cat, v := range resp.CategoryScores {
		scores[cat] = clamp01(v)
	}
	return &Result{CategoryScores: scores, Details: resp.Details, Analyzer: r.Name()}, nil
}

func (r *RemoteAnalyzer) call(ctx context.Context, body remoteRequest) (*remoteResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, fmt.Errorf("analyzer returned %d: %s", res.StatusCode, bytes.TrimSpace(snippet))
	}
	var out remoteResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode analyzer response: %w", err)
	}
	if out.CategoryScores == nil {
		return nil, fmt.Errorf("analyzer response has no category_scores")
	}
	return &out, nil
}
