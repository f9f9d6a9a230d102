package router // package router defines how HTTP routes are registered for the API

import (
	"net/http"

	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/recykl/fleet-registry/internal/handler"    // import the handlers that implement business logic
	"github.com/recykl/fleet-registry/internal/middleware" // import middleware for session auth and role enforcement
	"github.com/recykl/fleet-registry/internal/model"
	"github.com/recykl/fleet-registry/internal/validate"
)

// RegisterGlobal applies the middleware every route shares: panic
// recovery, security headers, and CORS restricted to the single trusted
// origin with credentials allowed (the dashboard sends the session
// cookie cross-origin).
func RegisterGlobal(e *echo.Echo, corsOrigin string) {
	e.Use(echomw.Recover())
	e.Use(echomw.Secure())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{corsOrigin},
		AllowCredentials: true,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization, echo.HeaderAccept},
	}))

	// Health check for load balancers and monitoring.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the unauthenticated account endpoints.  Each
// endpoint declares its own field rules; validation failures answer 400
// with per-field messages before the handler runs.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler) {
	g := e.Group("/auth")
	g.POST("/register", a.Register, validate.Body(
		validate.Email("email", "Enter a valid email"),
		validate.StrongPassword("password", "Password should contain alphanumeric with special characters"),
		validate.Required("role", "Role is required"),
		validate.OneOf("role", []string{model.RoleAdmin, model.RoleUser}, "Role must be admin or user"),
	))
	g.POST("/login", a.Login, validate.Body(
		validate.Email("email", "Enter a valid email"),
		validate.Required("password", "Password is required"),
	))
}

// RegisterDevices registers the device API.  The gate order per request
// is fixed: rate/throttle first (so unauthenticated abuse is already
// capped), then session auth, then the per-route role allow-list, then
// the per-route field validators, then the handler.
func RegisterDevices(e *echo.Echo, d *handler.DeviceHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group("/devices")
	g.Use(limiter)
	g.Use(middleware.SessionAuth(jwtSecret))

	g.POST("/register", d.Register,
		middleware.RequireRole(model.RoleAdmin),
		validate.Body(
			validate.Required("type", "Device type required"),
			validate.Required("location", "Location is required"),
			validate.OneOf("status", model.DeviceStatuses, "Invalid device status"),
			validate.Required("manufacturer", "Manufacturer is required"),
			validate.Required("macAddress", "MAC Address is required"),
			validate.Required("firmwareVersion", "Firmware Version is required"),
		))

	g.GET("/allDevices", d.All,
		middleware.RequireRole(model.RoleAdmin, model.RoleUser))

	g.POST("/:id/telemetry", d.AddTelemetry,
		middleware.RequireRole(model.RoleAdmin),
		validate.Body(
			validate.Required("cpu", "CPU is required"),
			validate.Numeric("cpu", "CPU must be a number"),
			validate.Required("temperature", "Temperature is required"),
			validate.Numeric("temperature", "Temperature must be a number"),
			validate.Required("status", "Status is required"),
			validate.OneOf("status", model.TelemetryStatuses, "Status must be healthy, unhealthy, warning, or critical"),
		))

	g.GET("/:id/health", d.GetHealth,
		middleware.RequireRole(model.RoleAdmin, model.RoleUser))

	g.PUT("/:id/decommission", d.Decommission,
		middleware.RequireRole(model.RoleAdmin))

	// The summary is visible to any authenticated caller; it carries no
	// role restriction.
	g.GET("/summary", d.GetSummary)
}
