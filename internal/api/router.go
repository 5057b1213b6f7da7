package api

import (
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"pgstay-backend/config"
	"pgstay-backend/internal/engine"
	"pgstay-backend/internal/mw"
	"pgstay-backend/internal/store"
)

// RouterDeps bundles what the router needs from the composition root.
type RouterDeps struct {
	Store    store.Store
	Engine   *engine.Engine
	Auth     *mw.Authenticator
	WebPush  *webpush.Options
	Registry *prometheus.Registry
	Log      *logrus.Logger
	Server   config.ServerConfig
}

// NewRouter creates and configures a new Gin router.
func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.Default()

	db := deps.Store.DB()
	handler := NewHandler(deps.Store, deps.Engine, deps.WebPush, deps.Log)

	rateLimiter := mw.RateLimiter(rate.Limit(deps.Server.RateLimitPerSec), deps.Server.RateLimitBurst)

	cacheTTL := time.Duration(deps.Server.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if deps.Registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api")
	api.Use(rateLimiter)

	// Vacancy alert subscriptions are browser-facing; no bearer token.
	api.GET("/alerts/vapid_public_key", handler.GetVAPIDPublicKey)
	api.GET("/alerts/subscriptions", handler.GetAlertSubscription)
	api.PUT("/alerts/subscriptions", handler.PutAlertSubscription)
	api.DELETE("/alerts/subscriptions", handler.DeleteAlertSubscription)

	authed := api.Group("")
	authed.Use(deps.Auth.RequireAuth())
	{
		manage := authed.Group("")
		manage.Use(mw.RequireRole("admin", "owner"))
		{
			manage.POST("/properties", handler.CreateProperty)
			manage.DELETE("/properties/:property_id", handler.ArchiveProperty)
			manage.POST("/properties/:property_id/room-types", handler.DefineRoomType)

			manage.PATCH("/rooms/:room_id", handler.RenameRoom)
			manage.PUT("/rooms/:room_id/gender", handler.SetRoomGenderRestriction)
			manage.DELETE("/rooms/:room_id", handler.DeleteRoom)

			manage.POST("/tenants", handler.CreateTenant)

			manage.POST("/assignments", handler.Assign)
			manage.POST("/assignments/transfer", handler.Transfer)
			manage.DELETE("/assignments/:tenant_id", handler.Remove)

			manage.POST("/payments", CreatePayment(db))
			manage.PATCH("/payments/:payment_id", MarkPaymentPaid(db))

			manage.PATCH("/complaints/:complaint_id", UpdateComplaintStatus(db))
		}

		authed.GET("/properties", handler.ListProperties)
		authed.GET("/properties/:property_id", handler.GetProperty)
		authed.GET("/properties/:property_id/rooms", caching, GetRoomBoard(db))
		authed.GET("/properties/:property_id/occupancy", caching, GetPropertyOccupancy(deps.Engine))
		authed.GET("/room-types/:room_type_id/occupancy", caching, GetRoomTypeOccupancy(deps.Engine))
		authed.GET("/rooms/:room_id/occupancy", caching, GetRoomOccupancy(deps.Engine))

		authed.GET("/tenants", handler.ListTenants)
		authed.GET("/tenants/:tenant_id", handler.GetTenant)

		authed.GET("/payments", ListPayments(db))

		authed.POST("/complaints", CreateComplaint(db))
		authed.GET("/complaints", ListComplaints(db))
	}

	return r
}
