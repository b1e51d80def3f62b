package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"signage/internal/authz"
	"signage/internal/models"
	"signage/internal/services"
)

type UserHandler struct {
	service services.UserService
}

func NewUserHandler(service services.UserService) *UserHandler {
	return &UserHandler{service: service}
}

// @Summary      Create user
// @Description  Super admins create admins or users in any company; admins create users in their own.
// @Tags         Users
// @Accept       json
// @Produce      json
// @Param        body  body      models.CreateUserRequest  true  "User"
// @Success      201   {object}  models.User
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Security     BearerAuth
// @Router       /users [post]
func (h *UserHandler) Create(c *gin.Context) {
	var req models.CreateUserRequest
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.service.Create(c.Request.Context(), caller(c), req)
	if err != nil {
		respondError(c, "user.create", err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

// @Summary      List users
// @Tags         Users
// @Produce      json
// @Param        skip        query  int     false  "Offset"
// @Param        limit       query  int     false  "Page size (max 100)"
// @Param        role        query  string  false  "Role filter"
// @Param        is_active   query  bool    false  "Active filter"
// @Param        company_id  query  string  false  "Company filter (super admin)"
// @Success      200  {array}  models.User
// @Security     BearerAuth
// @Router       /users [get]
func (h *UserHandler) List(c *gin.Context) {
	offset, limit := page(c)
	f := models.UserFilter{
		CompanyID: queryString(c, "company_id"),
		IsActive:  queryBool(c, "is_active"),
		Offset:    offset,
		Limit:     limit,
	}
	if r := c.Query("role"); r != "" {
		role, err := authz.ParseRole(r)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}
		f.Role = &role
	}
	users, err := h.service.List(c.Request.Context(), caller(c), f)
	if err != nil {
		respondError(c, "user.list", err)
		return
	}
	if users == nil {
		users = []*models.User{}
	}
	c.JSON(http.StatusOK, users)
}

func (h *UserHandler) GetMe(c *gin.Context) {
	cl := caller(c)
	u, err := h.service.Get(c.Request.Context(), cl, cl.UserID)
	if err != nil {
		respondError(c, "user.me", err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *UserHandler) UpdateMe(c *gin.Context) {
	var req models.UpdateUserRequest
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.service.UpdateMe(c.Request.Context(), caller(c), req)
	if err != nil {
		respondError(c, "user.update_me", err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *UserHandler) Get(c *gin.Context) {
	u, err := h.service.Get(c.Request.Context(), caller(c), c.Param("id"))
	if err != nil {
		respondError(c, "user.get", err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *UserHandler) Update(c *gin.Context) {
	var req models.UpdateUserRequest
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.service.Update(c.Request.Context(), caller(c), c.Param("id"), req)
	if err != nil {
		respondError(c, "user.update", err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *UserHandler) UpdatePermissions(c *gin.Context) {
	var req models.UpdatePermissionsRequest
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.service.SetPermissions(c.Request.Context(), caller(c), c.Param("id"), *req.CanAddDevices)
	if err != nil {
		respondError(c, "user.permissions", err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *UserHandler) Activate(c *gin.Context)   { h.setActive(c, true) }
func (h *UserHandler) Deactivate(c *gin.Context) { h.setActive(c, false) }

func (h *UserHandler) setActive(c *gin.Context, active bool) {
	u, err := h.service.SetActive(c.Request.Context(), caller(c), c.Param("id"), active)
	if err != nil {
		respondError(c, "user.set_active", err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), caller(c), c.Param("id")); err != nil {
		respondError(c, "user.delete", err)
		return
	}
	c.Status(http.StatusNoContent)
}
