package handlers

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"signage/internal/apperr"
	"signage/internal/logs"
	"signage/internal/middleware"
	"signage/internal/models"
	"signage/internal/services"
)

type AuthHandler struct {
	authService services.AuthService
	frontendURL string
}

func NewAuthHandler(authService services.AuthService, frontendURL string) *AuthHandler {
	return &AuthHandler{authService: authService, frontendURL: strings.TrimRight(frontendURL, "/")}
}

// @Summary      Google sign-in URL
// @Description  Returns the provider authorization URL. An invitation token may be passed through.
// @Tags         Auth
// @Produce      json
// @Param        invitation_token  query     string  false  "Invitation token"
// @Success      200  {object}  models.GoogleAuthURL
// @Router       /auth/google/login [get]
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	u, err := h.authService.LoginURL(c.Query("invitation_token"))
	if err != nil {
		respondError(c, "auth.login", err)
		return
	}
	c.JSON(http.StatusOK, models.GoogleAuthURL{AuthURL: u})
}

// @Summary      Google OAuth callback
// @Description  Exchanges the authorization code and issues tokens. Redirects to the frontend when one is configured.
// @Tags         Auth
// @Produce      json
// @Param        code   query     string  true  "Authorization code"
// @Param        state  query     string  true  "OAuth state"
// @Success      200  {object}  models.TokenResponse
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Router       /auth/google/callback [get]
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	if e := c.Query("error"); e != "" {
		logs.Logger.Infof("[auth][callback] provider returned error=%q", e)
		h.callbackFailed(c, apperr.New(apperr.ErrUnauthorized, "Google sign-in was cancelled"))
		return
	}
	code, state := c.Query("code"), c.Query("state")
	if code == "" || state == "" {
		h.callbackFailed(c, apperr.New(apperr.ErrValidation, "Missing code or state"))
		return
	}

	resp, err := h.authService.Callback(c.Request.Context(), code, state)
	if err != nil {
		h.callbackFailed(c, err)
		return
	}
	if h.frontendURL == "" {
		c.JSON(http.StatusOK, resp)
		return
	}
	frag := url.Values{}
	frag.Set("access_token", resp.AccessToken)
	frag.Set("refresh_token", resp.RefreshToken)
	frag.Set("token_type", resp.TokenType)
	frag.Set("expires_in", strconv.Itoa(resp.ExpiresIn))
	c.Redirect(http.StatusFound, h.frontendURL+"/auth/callback#"+frag.Encode())
}

func (h *AuthHandler) callbackFailed(c *gin.Context, err error) {
	if h.frontendURL == "" {
		respondError(c, "auth.callback", err)
		return
	}
	_, detail := apperr.HTTPStatus(err)
	c.Redirect(http.StatusFound, h.frontendURL+"/login?error="+url.QueryEscape(detail))
}

// @Summary      Refresh tokens
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      models.RefreshRequest  true  "Refresh token"
// @Success      200   {object}  models.TokenResponse
// @Failure      401   {object}  map[string]string
// @Router       /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req models.RefreshRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, "auth.refresh", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Logout is informational: tokens are stateless and the client drops them.
func (h *AuthHandler) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, message{Message: "Successfully logged out"})
}

func (h *AuthHandler) Me(c *gin.Context) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, "auth.me", apperr.ErrUnauthorized)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *AuthHandler) VerifyToken(c *gin.Context) {
	var req models.VerifyTokenRequest
	if !bindJSON(c, &req) {
		return
	}
	c.JSON(http.StatusOK, h.authService.VerifyToken(req.Token))
}
