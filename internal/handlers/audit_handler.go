package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"signage/internal/models"
	"signage/internal/services"
)

type AuditHandler struct {
	service services.AuditService
}

func NewAuditHandler(service services.AuditService) *AuditHandler {
	return &AuditHandler{service: service}
}

func (h *AuditHandler) List(c *gin.Context) {
	offset, limit := page(c)
	list, err := h.service.List(c.Request.Context(), caller(c), models.AuditFilter{
		CompanyID: queryString(c, "company_id"),
		UserID:    queryString(c, "user_id"),
		Action:    c.Query("action"),
		Offset:    offset,
		Limit:     limit,
	})
	if err != nil {
		respondError(c, "audit.list", err)
		return
	}
	if list == nil {
		list = []*models.AuditLog{}
	}
	c.JSON(http.StatusOK, list)
}
