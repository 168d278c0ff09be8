// Package metrics holds the Prometheus collectors of the moderation service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var AnalyzeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name: "moderation_analyze_duration_sec",
	Help: "Duration of content analysis including persistence",
}, []string{"analyzer"})

var AnalyzerErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moderation_analyzer_errors",
	Help: "Number of failed analyzer calls",
}, []string{"analyzer"})

var AutoModerationActions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moderation_automod_actions",
	Help: "Auto-moderation outcomes by action",
}, []string{"action"})

var QueueEnqueued = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moderation_queue_enqueued",
	Help: "Queue writes by source, split into new entries and merges",
}, []string{"source", "created"})

var Decisions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moderation_decisions",
	Help: "Reviewer decisions by verdict",
}, []string{"verdict"})

var Reports = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moderation_reports",
	Help: "Accepted content reports by category",
}, []string{"category"})

var TrustRecomputes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moderation_trust_recomputes",
	Help: "Trust score recomputations by resulting account status",
}, []string{"status"})

var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moderation_http_requests",
	Help: "HTTP requests by route and status code",
}, []string{"method", "route", "code"})
