package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/VaishnaviDS/Intern-dashboard-server/internal/donors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	errMissingDonationService = errors.New("donation service dependency required")
	errMissingRealtime        = errors.New("realtime dispatcher dependency required")
)

// DonationService is the donor behavior exposed over HTTP.
type DonationService interface {
	SubmitDonation(ctx context.Context, request donors.DonationRequest) (donors.DonationResult, error)
	History(ctx context.Context, referralCode string) (donors.Donor, error)
	PlatformStats(ctx context.Context) (donors.PlatformStats, error)
	Leaderboard(ctx context.Context) ([]donors.LeaderboardEntry, error)
	AggregatedDonations(ctx context.Context, query donors.AggregateQuery) ([]donors.Bucket, error)
	Ping(ctx context.Context) error
}

// RateLimit configures the per-client limit on donation submissions. A zero PerSecond disables it.
type RateLimit struct {
	PerSecond float64
	Burst     int
}

type Dependencies struct {
	DonationService   DonationService
	Realtime          *RealtimeDispatcher
	Logger            *zap.Logger
	BasePath          string
	CORSOrigins       []string
	RateLimit         RateLimit
	Metrics           http.Handler
	RequestObserver   RequestObserver
	HeartbeatInterval time.Duration
}

func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.DonationService == nil {
		return nil, errMissingDonationService
	}
	if deps.Realtime == nil {
		return nil, errMissingRealtime
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	heartbeatInterval := deps.HeartbeatInterval
	if heartbeatInterval <= 0 {
		heartbeatInterval = defaultHeartbeatInterval
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())
	router.Use(requestLoggingMiddleware(logger, deps.RequestObserver))
	router.Use(corsMiddleware(deps.CORSOrigins))

	handler := &httpHandler{
		donations:         deps.DonationService,
		realtime:          deps.Realtime,
		logger:            logger,
		heartbeatInterval: heartbeatInterval,
	}

	router.GET("/", handler.handleRoot)
	router.GET("/healthz", handler.handleHealth)
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	api := router.Group(deps.BasePath)
	submit := []gin.HandlerFunc{}
	if deps.RateLimit.PerSecond > 0 {
		limiter := newClientRateLimiter(deps.RateLimit.PerSecond, deps.RateLimit.Burst)
		submit = append(submit, rateLimitMiddleware(limiter, logger))
	}
	submit = append(submit, handler.handleSubmitDonation)
	api.POST("/new", submit...)
	api.GET("/history/:referralCode", handler.handleHistory)
	api.GET("/stats", handler.handleStats)
	api.GET("/all", handler.handleLeaderboard)
	api.GET("/donations/aggregated/:range", handler.handleAggregatedDonations)
	api.GET("/stream", handler.handleDonationStream)

	return router, nil
}

type httpHandler struct {
	donations         DonationService
	realtime          *RealtimeDispatcher
	logger            *zap.Logger
	heartbeatInterval time.Duration
}

func (h *httpHandler) handleRoot(c *gin.Context) {
	c.String(http.StatusOK, "API is working!")
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	if err := h.donations.Ping(c.Request.Context()); err != nil {
		h.logger.Error("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
