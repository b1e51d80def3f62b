package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"signage/internal/models"
	"signage/internal/services"
)

type InvitationHandler struct {
	service services.InvitationService
}

func NewInvitationHandler(service services.InvitationService) *InvitationHandler {
	return &InvitationHandler{service: service}
}

// @Summary      Invite a user
// @Tags         Invitations
// @Accept       json
// @Produce      json
// @Param        body  body      models.CreateInvitationRequest  true  "Invitation"
// @Success      201   {object}  models.Invitation
// @Failure      409   {object}  map[string]string
// @Security     BearerAuth
// @Router       /invitations [post]
func (h *InvitationHandler) Create(c *gin.Context) {
	var req models.CreateInvitationRequest
	if !bindJSON(c, &req) {
		return
	}
	inv, err := h.service.Create(c.Request.Context(), caller(c), req)
	if err != nil {
		respondError(c, "invitation.create", err)
		return
	}
	c.JSON(http.StatusCreated, inv)
}

func (h *InvitationHandler) List(c *gin.Context) {
	var status *models.InvitationStatus
	if s := c.Query("status"); s != "" {
		st := models.InvitationStatus(s)
		status = &st
	}
	list, err := h.service.List(c.Request.Context(), caller(c), status)
	if err != nil {
		respondError(c, "invitation.list", err)
		return
	}
	if list == nil {
		list = []*models.Invitation{}
	}
	c.JSON(http.StatusOK, list)
}

func (h *InvitationHandler) Get(c *gin.Context) {
	inv, err := h.service.Get(c.Request.Context(), caller(c), c.Param("id"))
	if err != nil {
		respondError(c, "invitation.get", err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (h *InvitationHandler) Cancel(c *gin.Context) {
	if err := h.service.Cancel(c.Request.Context(), caller(c), c.Param("id")); err != nil {
		respondError(c, "invitation.cancel", err)
		return
	}
	c.JSON(http.StatusOK, message{Message: "Invitation cancelled"})
}

// Lookup is public: the accept page shows who invited whom before sign-in.
func (h *InvitationHandler) Lookup(c *gin.Context) {
	info, err := h.service.Lookup(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondError(c, "invitation.lookup", err)
		return
	}
	c.JSON(http.StatusOK, info)
}
