package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"reservations/internal/infra/config"
	"reservations/internal/infra/obs"
)

type BookingHTTP interface {
	Create(c *gin.Context)
	Get(c *gin.Context)
	Cancel(c *gin.Context)
	Reschedule(c *gin.Context)
	ListByGuest(c *gin.Context)
}

type HostBookingHTTP interface {
	Confirm(c *gin.Context)
	Complete(c *gin.Context)
	Revalidate(c *gin.Context)
}

type AvailabilityHTTP interface {
	Check(c *gin.Context)
	Conflicts(c *gin.Context)
}

type ListingHTTP interface {
	Get(c *gin.Context)
	Price(c *gin.Context)
	Quote(c *gin.Context)
	Bookings(c *gin.Context)
}

type HostListingHTTP interface {
	Create(c *gin.Context)
	Update(c *gin.Context)
	AddPricingOption(c *gin.Context)
	UpsertSpecialPricing(c *gin.Context)
	AddSlot(c *gin.Context)
	RemoveSlot(c *gin.Context)
	BlockDates(c *gin.Context)
	UnblockDates(c *gin.Context)
	SetDayFlags(c *gin.Context)
}

type Handlers struct {
	Booking      BookingHTTP
	HostBooking  HostBookingHTTP
	Availability AvailabilityHTTP
	Listing      ListingHTTP
	HostListing  HostListingHTTP
	// RateLimit guards /api/v1 when set.
	RateLimit gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           otelhttp.NewHandler(NewRouter(cfg, obsMW, health, h), "reservations.http"),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func NewRouter(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Idempotency-Key", hostHeader},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))

	registerDocs(router)

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.RateLimit != nil {
		api.Use(h.RateLimit)
	}
	if h.Booking != nil {
		api.POST("/bookings", h.Booking.Create)
		api.GET("/bookings/:id", h.Booking.Get)
		api.POST("/bookings/:id/cancel", h.Booking.Cancel)
		api.POST("/bookings/:id/reschedule", h.Booking.Reschedule)
		api.GET("/guests/:id/bookings", h.Booking.ListByGuest)
	}
	if h.Availability != nil {
		api.GET("/listings/:id/availability", h.Availability.Check)
		api.GET("/listings/:id/conflicts", h.Availability.Conflicts)
	}
	if h.Listing != nil {
		api.GET("/listings/:id", h.Listing.Get)
		api.GET("/listings/:id/price", h.Listing.Price)
		api.GET("/listings/:id/quote", h.Listing.Quote)
		api.GET("/listings/:id/bookings", h.Listing.Bookings)
	}
	if h.HostListing != nil {
		hostGroup := api.Group("/host/listings")
		hostGroup.POST("", h.HostListing.Create)
		hostGroup.PUT("/:id", h.HostListing.Update)
		hostGroup.POST("/:id/pricing-options", h.HostListing.AddPricingOption)
		hostGroup.PUT("/:id/special-pricing", h.HostListing.UpsertSpecialPricing)
		hostGroup.POST("/:id/slots", h.HostListing.AddSlot)
		hostGroup.DELETE("/:id/slots/:slotId", h.HostListing.RemoveSlot)
		hostGroup.POST("/:id/blocked-dates", h.HostListing.BlockDates)
		hostGroup.DELETE("/:id/blocked-dates/:blockId", h.HostListing.UnblockDates)
		hostGroup.PUT("/:id/day-flags", h.HostListing.SetDayFlags)
	}
	if h.HostBooking != nil {
		api.POST("/host/listings/:id/revalidate", h.HostBooking.Revalidate)
		api.POST("/host/bookings/:id/confirm", h.HostBooking.Confirm)
		api.POST("/host/bookings/:id/complete", h.HostBooking.Complete)
	}
	return router
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug", "dev", "local":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
