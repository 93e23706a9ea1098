package router

import (
	"github.com/labstack/echo/v4"

	"github.com/venuehunt/venuehunt/internal/middleware"
	"github.com/venuehunt/venuehunt/internal/model"
)

// signedIn accepts any role.
func signedIn(jwtSecret string) []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleOrganizer, model.RoleVendor),
	}
}

func only(jwtSecret string, role model.Role) []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{middleware.JWTAuth(jwtSecret), middleware.RequireRole(role)}
}

// RegisterOrganizer registers the organizer endpoints: booking a venue,
// paying for it, cancelling and reviewing.  Ownership of each booking is
// checked by the booking service.
//
// Middleware is attached per route rather than to a /v1 group, because
// the same paths also carry public and vendor methods.
func RegisterOrganizer(e *echo.Echo, h Handlers, jwtSecret string) {
	mw := only(jwtSecret, model.RoleOrganizer)

	e.POST("/v1/venues/:id/bookings", h.Bookings.Create, mw...)
	e.GET("/v1/my-bookings", h.Bookings.MyBookings, mw...)
	e.GET("/v1/bookings/:id", h.Bookings.Get, mw...)
	e.POST("/v1/bookings/:id/cancel", h.Bookings.Cancel, mw...)
	e.POST("/v1/bookings/:id/retry-payment", h.Bookings.RetryPayment, mw...)

	e.POST("/v1/bookings/:id/review", h.Reviews.Create, mw...)
	e.PUT("/v1/reviews/:id", h.Reviews.Update, mw...)
	e.DELETE("/v1/reviews/:id", h.Reviews.Delete, mw...)
}

// RegisterVendor registers venue management and the vendor dashboard.
func RegisterVendor(e *echo.Echo, h Handlers, jwtSecret string) {
	mw := only(jwtSecret, model.RoleVendor)

	e.POST("/v1/venues", h.Venues.Create, mw...)
	e.PUT("/v1/venues/:id", h.Venues.Update, mw...)
	e.PATCH("/v1/venues/:id", h.Venues.Update, mw...)
	e.DELETE("/v1/venues/:id", h.Venues.Delete, mw...)

	g := e.Group("/v1/owner", mw...)
	g.GET("/venues", h.Venues.Mine)
	g.GET("/bookings", h.Bookings.OwnerList)
	g.GET("/bookings/:id", h.Bookings.Get)
	g.POST("/bookings/:id/status", h.Bookings.SetStatus)
	g.POST("/bookings/:id/cancel", h.Bookings.Cancel)
	g.GET("/reviews", h.Reviews.ForOwner)
	g.GET("/analytics", h.Analytics.Dashboard)
	g.POST("/recommendations/refresh", h.Recommendations.Refresh)
}
