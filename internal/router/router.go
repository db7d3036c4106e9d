package router // package router maps methods and paths to handlers

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/task-tracker/internal/config"
	"github.com/iliyamo/task-tracker/internal/handler"
	"github.com/iliyamo/task-tracker/internal/middleware"
)

// Deps carries everything the route table wires together.
type Deps struct {
	Auth      *handler.AuthHandler
	Tasks     *handler.TaskHandler
	Tokens    middleware.TokenVerifier
	Users     middleware.UserValidator
	Redis     *redis.Client // nil disables the cache and keeps rate limiting in-process
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
}

// RegisterRoutes registers routes that do not require authentication.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth mounts /auth.  Register and login are rate limited; /auth/me
// requires a session.
func RegisterAuth(e *echo.Echo, d Deps) {
	g := e.Group("/auth")
	limited := middleware.NewTokenBucket(d.RateLimit, d.Redis)
	g.POST("/register", d.Auth.Register, limited)
	g.POST("/login", d.Auth.Login, limited)
	g.GET("/me", d.Auth.Me, middleware.JWTAuth(d.Tokens, d.Users))
}

// RegisterTasks mounts the owner-scoped /tasks resource.  The cache runs after
// authentication so entries are keyed by the caller.
func RegisterTasks(e *echo.Echo, d Deps) {
	g := e.Group("/tasks", middleware.JWTAuth(d.Tokens, d.Users), middleware.NewTaskCache(d.Cache, d.Redis))
	g.POST("", d.Tasks.Create)
	g.GET("", d.Tasks.List)
	g.GET("/:id", d.Tasks.Get)
	g.PUT("/:id", d.Tasks.Update)
	g.DELETE("/:id", d.Tasks.Delete)
}

// Register installs the complete route table.
func Register(e *echo.Echo, d Deps) {
	RegisterRoutes(e)
	RegisterAuth(e, d)
	RegisterTasks(e, d)
}
