// Package handler exposes the moderation services over HTTP.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"familyeats/backend/internal/apperr"
	"familyeats/backend/internal/authz"
	"familyeats/backend/internal/config"
	"familyeats/backend/internal/feed"
	"familyeats/backend/internal/localization"
	"familyeats/backend/internal/metrics"
	"familyeats/backend/internal/moderation"
	"familyeats/backend/internal/report"
	"familyeats/backend/internal/trust"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Deps are the services the handlers call into.
type Deps struct {
	Moderation *moderation.Service
	Queue      *moderation.QueueManager
	Decisions  *moderation.DecisionProcessor
	Reports    *report.Intake
	Trust      *trust.Engine
	Hub        *feed.Hub
	Authz      *authz.Authorizer
	Localizer  *localization.Localizer
	Auth       config.AuthConfig
	// Health reports whether backing stores are reachable. Optional.
	Health func(ctx context.Context) error
	Log    *zap.Logger
}

// Handler holds the services behind the /moderation routes.
type Handler struct {
	moderation *moderation.Service
	queue      *moderation.QueueManager
	decisions  *moderation.DecisionProcessor
	reports    *report.Intake
	trust      *trust.Engine
	hub        *feed.Hub
	authz      *authz.Authorizer
	loc        *localization.Localizer
	auth       config.AuthConfig
	health     func(ctx context.Context) error
	log        *zap.Logger
}

func NewHandler(d Deps) *Handler {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Authz == nil {
		d.Authz = authz.New()
	}
	return &Handler{
		moderation: d.Moderation,
		queue:      d.Queue,
		decisions:  d.Decisions,
		reports:    d.Reports,
		trust:      d.Trust,
		hub:        d.Hub,
		authz:      d.Authz,
		loc:        d.Localizer,
		auth:       d.Auth,
		health:     d.Health,
		log:        d.Log,
	}
}

var bindingNames sync.Once

// Router builds the gin engine with every route.
func (h *Handler) Router() *gin.Engine {
	// binding errors name fields the way clients send them
	bindingNames.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			v.RegisterTagNameFunc(apperr.WireName)
		}
	})

	r := gin.New()
	r.Use(gin.Recovery(), h.requestLogger())

	r.GET("/healthz", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	m := r.Group("/moderation")
	m.GET("/feed", h.authenticate(true), h.require(authz.FeedSubscribe), h.ServeFeed)

	api := m.Group("", h.authenticate(false))
	api.POST("/analyze", h.require(authz.ContentAnalyze), h.Analyze)
	api.GET("/analyze/results", h.require(authz.AnalysisRead), h.AnalysisResults)

	api.GET("/queue", h.require(authz.QueueRead), h.ListQueue)
	api.POST("/queue", h.require(authz.QueueWrite), h.Enqueue)
	api.PUT("/queue", h.require(authz.QueueResolve), h.Resolve)
	api.POST("/queue/assign", h.require(authz.QueueWrite), h.Assign)

	api.GET("/reports", h.require(authz.ReportRead), h.ListReports)
	api.POST("/reports", h.require(authz.ReportCreate), h.SubmitReport)
	api.PUT("/reports", h.require(authz.ReportUpdate), h.UpdateReport)

	api.GET("/trust-score/:userId", h.require(authz.TrustRead), h.GetTrustScore)
	api.PUT("/trust-score/:userId", h.require(authz.TrustRecompute), h.RecomputeTrustScore)
	return r
}

// Health answers liveness probes.
func (h *Handler) Health(c *gin.Context) {
	if h.health != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.health(ctx); err != nil {
			h.log.Warn("health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		metrics.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		h.log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("user_id", principal(c).UserID),
		)
	}
}

// fail writes err as {"error","code","field"}. Failures the caller cannot
// act on get generic localized copy; their detail only goes to the log.
func (h *Handler) fail(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	body := gin.H{"code": kind}

	var e *apperr.Error
	if apperr.Exposed(kind) && errors.As(err, &e) {
		body["error"] = e.Msg
		if e.Field != "" {
			body["field"] = e.Field
		}
	} else {
		body["error"] = h.msg(c, "error."+string(kind))
		h.log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
	}
	c.AbortWithStatusJSON(apperr.HTTPStatus(kind), body)
}

// msg localizes key for the caller's Accept-Language.
func (h *Handler) msg(c *gin.Context, key string) string {
	if h.loc == nil {
		return key
	}
	return h.loc.GetString(h.loc.Match(c.GetHeader("Accept-Language")), key)
}
