package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/venuehunt/venuehunt/internal/config"
	"github.com/venuehunt/venuehunt/internal/handler"
	"github.com/venuehunt/venuehunt/internal/middleware"
)

// Handlers bundles every handler the API serves.
type Handlers struct {
	Health          handler.Health
	Auth            *handler.AuthHandler
	Venues          *handler.VenueHandler
	Bookings        *handler.BookingHandler
	Reviews         *handler.ReviewHandler
	Recommendations *handler.RecommendationHandler
	Analytics       *handler.AnalyticsHandler
}

// Options carries what the middleware chain needs.  Redis may be nil, in
// which case response caching and rate limiting are disabled.
type Options struct {
	JWTSecret string
	Cache     config.CacheConfig
	RateLimit config.RateLimitConfig
	Redis     *redis.Client
	Logger    logrus.FieldLogger
}

// New builds the echo instance with the global middleware and all routes.
func New(h Handlers, opts Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.CORS())
	e.Use(requestLogger(opts.Logger))
	e.Use(middleware.NewTokenBucket(opts.RateLimit, opts.Redis, opts.Logger))

	RegisterRoutes(e, h)
	RegisterAuth(e, h.Auth, opts.JWTSecret)
	RegisterPublic(e, h, opts)
	RegisterOrganizer(e, h, opts.JWTSecret)
	RegisterVendor(e, h, opts.JWTSecret)
	return e
}

// requestLogger logs one structured line per request.
func requestLogger(logger logrus.FieldLogger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			entry := logger.WithFields(logrus.Fields{
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"request_id": v.RequestID,
			})
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("request")
			return nil
		},
	})
}

// RegisterRoutes registers routes that do not touch the API surface, at
// the moment only the health check.
func RegisterRoutes(e *echo.Echo, h Handlers) {
	e.GET("/healthz", h.Health.Check)
}

// RegisterAuth registers the session endpoints under /v1/auth and the
// authenticated /v1/me.  Logout takes the refresh token in the body, so it
// does not require an access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	g.POST("/logout", a.Logout, middleware.OptionalJWT(jwtSecret))

	e.GET("/v1/me", a.Me, signedIn(jwtSecret)...)
}

// RegisterPublic registers the browse endpoints.  Catalog reads go through
// the response cache; the similar venues route does not, since a signed in
// request records a view.
func RegisterPublic(e *echo.Echo, h Handlers, opts Options) {
	cache := middleware.NewRedisCache(opts.Cache, opts.Redis, opts.Logger)

	e.GET("/v1/venues", h.Venues.List, cache)
	e.GET("/v1/venues/:id", h.Venues.Detail, cache)
	e.GET("/v1/venues/:id/reviews", h.Reviews.ForVenue, cache)
	e.GET("/v1/venues/:id/similar", h.Recommendations.Similar, middleware.OptionalJWT(opts.JWTSecret))
	e.POST("/v1/payments/callback", h.Bookings.PaymentCallback)

	auth := signedIn(opts.JWTSecret)
	e.GET("/v1/recommendations", h.Recommendations.Personalized, auth...)
	e.POST("/v1/venues/:id/favorite", h.Recommendations.Favorite, auth...)
}
