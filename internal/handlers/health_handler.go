package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	db      Pinger
	name    string
	version string
	env     string
	started time.Time
}

func NewHealthHandler(db Pinger, name, version, env string) *HealthHandler {
	return &HealthHandler{db: db, name: name, version: version, env: env, started: time.Now()}
}

func (h *HealthHandler) ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return h.db.PingContext(ctx)
}

// @Summary  Basic health check
// @Tags     Health
// @Produce  json
// @Success  200  {object}  map[string]string
// @Router   /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   h.name,
		"version":   h.version,
		"timestamp": time.Now().UTC(),
	})
}

func (h *HealthHandler) Detailed(c *gin.Context) {
	db := gin.H{"status": "healthy"}
	status, code := "healthy", http.StatusOK
	if err := h.ping(c.Request.Context()); err != nil {
		db = gin.H{"status": "unhealthy", "error": err.Error()}
		status, code = "degraded", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":      status,
		"service":     h.name,
		"version":     h.version,
		"environment": h.env,
		"uptime_sec":  int(time.Since(h.started).Seconds()),
		"goroutines":  runtime.NumGoroutine(),
		"checks":      gin.H{"database": db},
		"timestamp":   time.Now().UTC(),
	})
}

func (h *HealthHandler) Ready(c *gin.Context) {
	if err := h.ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "detail": "Database unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}
