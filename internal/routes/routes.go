package routes

import (
	"github.com/gin-gonic/gin"

	"signage/internal/authz"
	"signage/internal/handlers"
	"signage/internal/middleware"
)

// Handlers groups everything SetupRoutes mounts under /api/v1.
type Handlers struct {
	Auth        *handlers.AuthHandler
	Users       *handlers.UserHandler
	Companies   *handlers.CompanyHandler
	Devices     *handlers.DeviceHandler
	Invitations *handlers.InvitationHandler
	Audit       *handlers.AuditHandler
	Events      *handlers.EventsHandler
	Health      *handlers.HealthHandler
}

func SetupRoutes(r *gin.Engine, h Handlers, auth middleware.Authenticator) *gin.Engine {
	api := r.Group("/api/v1")

	// ---- public
	health := api.Group("/health")
	{
		health.GET("", h.Health.Health)
		health.GET("/detailed", h.Health.Detailed)
		health.GET("/ready", h.Health.Ready)
		health.GET("/live", h.Health.Live)
	}

	api.GET("/auth/google/login", h.Auth.GoogleLogin)
	api.GET("/auth/google/callback", h.Auth.GoogleCallback)
	api.POST("/auth/refresh", h.Auth.Refresh)
	api.POST("/auth/verify-token", h.Auth.VerifyToken)

	// TV endpoints carry no user token.
	api.POST("/devices/generate-code", h.Devices.GenerateCode)
	api.POST("/devices/heartbeat", h.Devices.Heartbeat)

	api.GET("/invitations/token/:token", h.Invitations.Lookup)

	// ---- protected
	api.GET("/devices/events", middleware.QueryToken(), middleware.AuthMiddleware(auth),
		middleware.RequireRole(authz.RoleAdmin), h.Events.Devices)

	protected := api.Group("", middleware.AuthMiddleware(auth))

	authGroup := protected.Group("/auth")
	{
		authGroup.POST("/logout", h.Auth.Logout)
		authGroup.GET("/me", h.Auth.Me)
	}

	// USERS
	users := protected.Group("/users")
	{
		users.GET("/me", h.Users.GetMe)
		users.PUT("/me", h.Users.UpdateMe)
		users.GET("/:id", h.Users.Get)

		admin := users.Group("", middleware.RequireRole(authz.RoleAdmin))
		admin.POST("", h.Users.Create)
		admin.GET("", h.Users.List)
		admin.PUT("/:id", h.Users.Update)
		admin.PUT("/:id/permissions", h.Users.UpdatePermissions)
		admin.POST("/:id/activate", h.Users.Activate)
		admin.POST("/:id/deactivate", h.Users.Deactivate)
		admin.DELETE("/:id", h.Users.Delete)
	}

	// COMPANIES: stats and report are admin+, the rest super admin
	companies := protected.Group("/companies")
	{
		admin := companies.Group("", middleware.RequireRole(authz.RoleAdmin))
		admin.GET("/:id", h.Companies.Get)
		admin.GET("/:id/stats", h.Companies.Stats)
		admin.GET("/:id/report", h.Companies.Report)

		super := companies.Group("", middleware.RequireRole(authz.RoleSuperAdmin))
		super.POST("", h.Companies.Create)
		super.GET("", h.Companies.List)
		super.PUT("/:id", h.Companies.Update)
		super.DELETE("/:id", h.Companies.Delete)
		super.POST("/:id/activate", h.Companies.Activate)
		super.POST("/:id/deactivate", h.Companies.Deactivate)
	}

	// DEVICES
	devices := protected.Group("/devices")
	{
		devices.POST("/link", h.Devices.Link)
		devices.GET("/my-devices", h.Devices.MyDevices)
		devices.GET("", middleware.RequireRole(authz.RoleAdmin), h.Devices.List)
		devices.GET("/:id", h.Devices.Get)
		devices.PUT("/:id", h.Devices.Rename)
		devices.POST("/:id/unlink", h.Devices.Unlink)
		devices.DELETE("/:id", h.Devices.Delete)
	}

	// INVITATIONS
	invitations := protected.Group("/invitations", middleware.RequireRole(authz.RoleAdmin))
	{
		invitations.POST("", h.Invitations.Create)
		invitations.GET("", h.Invitations.List)
		invitations.GET("/:id", h.Invitations.Get)
		invitations.POST("/:id/cancel", h.Invitations.Cancel)
	}

	protected.GET("/audit-logs", middleware.RequireRole(authz.RoleAdmin), h.Audit.List)

	return r
}
