package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"signage/internal/apperr"
	"signage/internal/authz"
	"signage/internal/logs"
)

// EventStream is satisfied by *realtime.Hub.
type EventStream interface {
	Serve(w http.ResponseWriter, r *http.Request, companyID string) error
}

type EventsHandler struct {
	stream EventStream
}

func NewEventsHandler(stream EventStream) *EventsHandler {
	return &EventsHandler{stream: stream}
}

// Devices streams device events of the caller's company. A super admin may
// pick a company with ?company_id or watch all of them.
func (h *EventsHandler) Devices(c *gin.Context) {
	cl := caller(c)
	companyID := c.Query("company_id")
	if !cl.IsSuperAdmin() {
		if cl.CompanyID == nil || (companyID != "" && !authz.CanAccessCompany(cl, companyID)) {
			respondError(c, "events.devices", apperr.New(apperr.ErrForbidden, "You don't have access to this company"))
			return
		}
		companyID = *cl.CompanyID
	}
	if err := h.stream.Serve(c.Writer, c.Request, companyID); err != nil {
		// The upgrader has already written the HTTP error.
		logs.Logger.WithError(err).Debug("[events][devices] upgrade")
	}
}
