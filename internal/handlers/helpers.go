package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"signage/internal/apperr"
	"signage/internal/authz"
	"signage/internal/logs"
	"signage/internal/middleware"
)

// respondError writes err as {"detail": ...}. Unmapped errors are logged and
// reported as a generic 500.
func respondError(c *gin.Context, op string, err error) {
	status, detail := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logs.Logger.WithError(err).WithField("request_id", middleware.RequestIDFrom(c)).Errorf("[%s] failed", op)
	}
	if status == http.StatusUnauthorized {
		c.Header("WWW-Authenticate", "Bearer")
	}
	c.JSON(status, gin.H{"detail": detail})
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return false
	}
	return true
}

// caller is only called behind AuthMiddleware, which always sets it.
func caller(c *gin.Context) authz.Caller {
	cl, _ := middleware.CallerFrom(c)
	return cl
}

func queryInt(c *gin.Context, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func queryBool(c *gin.Context, key string) *bool {
	v := c.Query(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil
	}
	return &b
}

func queryString(c *gin.Context, key string) *string {
	v := c.Query(key)
	if v == "" {
		return nil
	}
	return &v
}

func page(c *gin.Context) (offset, limit int) {
	offset = queryInt(c, "skip", 0)
	limit = queryInt(c, "limit", 100)
	if offset < 0 {
		offset = 0
	}
	if limit < 1 || limit > 100 {
		limit = 100
	}
	return offset, limit
}

type message struct {
	Message string `json:"message"`
}
