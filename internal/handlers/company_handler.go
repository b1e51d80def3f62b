package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"signage/internal/models"
	"signage/internal/services"
)

type CompanyHandler struct {
	service services.CompanyService
}

func NewCompanyHandler(service services.CompanyService) *CompanyHandler {
	return &CompanyHandler{service: service}
}

// @Summary      Create company
// @Tags         Companies
// @Accept       json
// @Produce      json
// @Param        body  body      models.CreateCompanyRequest  true  "Company"
// @Success      201   {object}  models.Company
// @Failure      409   {object}  map[string]string
// @Security     BearerAuth
// @Router       /companies [post]
func (h *CompanyHandler) Create(c *gin.Context) {
	var req models.CreateCompanyRequest
	if !bindJSON(c, &req) {
		return
	}
	company, err := h.service.Create(c.Request.Context(), caller(c), req)
	if err != nil {
		respondError(c, "company.create", err)
		return
	}
	c.JSON(http.StatusCreated, company)
}

// @Summary      List companies with current usage
// @Tags         Companies
// @Produce      json
// @Param        skip   query  int  false  "Offset"
// @Param        limit  query  int  false  "Page size (max 100)"
// @Success      200    {array}  models.CompanyWithCounts
// @Security     BearerAuth
// @Router       /companies [get]
func (h *CompanyHandler) List(c *gin.Context) {
	offset, limit := page(c)
	list, err := h.service.List(c.Request.Context(), caller(c), offset, limit)
	if err != nil {
		respondError(c, "company.list", err)
		return
	}
	if list == nil {
		list = []*models.CompanyWithCounts{}
	}
	c.JSON(http.StatusOK, list)
}

func (h *CompanyHandler) Get(c *gin.Context) {
	company, err := h.service.Get(c.Request.Context(), caller(c), c.Param("id"))
	if err != nil {
		respondError(c, "company.get", err)
		return
	}
	c.JSON(http.StatusOK, company)
}

func (h *CompanyHandler) Update(c *gin.Context) {
	var req models.UpdateCompanyRequest
	if !bindJSON(c, &req) {
		return
	}
	company, err := h.service.Update(c.Request.Context(), caller(c), c.Param("id"), req)
	if err != nil {
		respondError(c, "company.update", err)
		return
	}
	c.JSON(http.StatusOK, company)
}

func (h *CompanyHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), caller(c), c.Param("id")); err != nil {
		respondError(c, "company.delete", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CompanyHandler) Activate(c *gin.Context)   { h.setActive(c, true) }
func (h *CompanyHandler) Deactivate(c *gin.Context) { h.setActive(c, false) }

func (h *CompanyHandler) setActive(c *gin.Context, active bool) {
	id := c.Param("id")
	if err := h.service.SetActive(c.Request.Context(), caller(c), id, active); err != nil {
		respondError(c, "company.set_active", err)
		return
	}
	state := "deactivated"
	if active {
		state = "activated"
	}
	c.JSON(http.StatusOK, message{Message: fmt.Sprintf("Company %s", state)})
}

// @Summary      Company usage statistics
// @Tags         Companies
// @Produce      json
// @Param        id   path      string  true  "Company ID"
// @Success      200  {object}  models.CompanyStats
// @Failure      403  {object}  map[string]string
// @Security     BearerAuth
// @Router       /companies/{id}/stats [get]
func (h *CompanyHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context(), caller(c), c.Param("id"))
	if err != nil {
		respondError(c, "company.stats", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Report streams the usage report as a PDF attachment.
func (h *CompanyHandler) Report(c *gin.Context) {
	id := c.Param("id")
	out, err := h.service.Report(c.Request.Context(), caller(c), id)
	if err != nil {
		respondError(c, "company.report", err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="company_%s_report.pdf"`, id))
	c.Data(http.StatusOK, "application/pdf", out)
}
