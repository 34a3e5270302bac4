package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"hort-presence-backend/config"
	"hort-presence-backend/internal/mw"
	"hort-presence-backend/internal/session"
	"hort-presence-backend/internal/store"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg *config.Config, s store.Store, backend *session.Client, webpushOptions *webpush.Options) *gin.Engine {
	r := gin.Default()

	db := s.DB()
	handler := NewHandler(s, backend, webpushOptions)

	limit := cfg.Server.RateLimitPerSec
	if limit <= 0 {
		limit = 10
	}
	rateLimiter := mw.RateLimiter(rate.Limit(limit), 5, cfg.Server.RequestIPHeader)

	ttl := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	cacheStore := cache.New(ttl, 2*ttl)
	caching := mw.Cache(cacheStore, ttl)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		// Roster reads. Cached briefly; the key is the full request URI so
		// every viewer scope gets its own entry.
		api.GET("/groups", caching, GetGroups(db))
		api.GET("/groups/:group_id/students", caching, GetGroupRoster(db))

		api.GET("/attendance/export", handler.ExportAttendance)

		// Session proxy: pass-throughs to the group/session backend.
		api.GET("/sessions", handler.ListSessions)
		api.GET("/sessions/unclaimed", handler.ListUnclaimedSessions)
		api.POST("/sessions/:id/claim", handler.ClaimSession)
		api.POST("/sessions/:id/end", handler.EndSession)
		api.POST("/visits", handler.CreateVisit)
		api.POST("/visits/:id/end", handler.EndVisit)
		api.GET("/analytics/counts", handler.GetAnalyticsCounts)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
