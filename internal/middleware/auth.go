package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"signage/internal/apperr"
	"signage/internal/authz"
	"signage/internal/models"
)

const (
	ctxUser   = "user"
	ctxCaller = "caller"
)

// Authenticator resolves a bearer access token to an active account.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*models.User, error)
}

func bearerToken(c *gin.Context) string {
	h := strings.TrimSpace(c.GetHeader("Authorization"))
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// Abort writes err as {"detail": ...} with its mapped status.
func Abort(c *gin.Context, err error) {
	status, detail := apperr.HTTPStatus(err)
	if status == http.StatusUnauthorized {
		c.Header("WWW-Authenticate", "Bearer")
	}
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}

// AuthMiddleware requires a valid access token and loads the caller.
func AuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		token := bearerToken(c)
		if token == "" {
			Abort(c, apperr.ErrUnauthorized)
			return
		}
		u, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			Abort(c, err)
			return
		}
		c.Set(ctxUser, u)
		c.Set(ctxCaller, u.Caller())
		c.Next()
	}
}

// QueryToken lets clients that cannot set headers, such as browser
// WebSockets, pass the access token as ?access_token.
func QueryToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			if t := c.Query("access_token"); t != "" {
				c.Request.Header.Set("Authorization", "Bearer "+t)
			}
		}
		c.Next()
	}
}

func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(ctxUser)
	if !ok {
		return nil, false
	}
	u, ok := v.(*models.User)
	return u, ok
}

func CallerFrom(c *gin.Context) (authz.Caller, bool) {
	v, ok := c.Get(ctxCaller)
	if !ok {
		return authz.Caller{}, false
	}
	caller, ok := v.(authz.Caller)
	return caller, ok
}
