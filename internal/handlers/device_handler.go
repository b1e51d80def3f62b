package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"signage/internal/models"
	"signage/internal/services"
)

type DeviceHandler struct {
	service services.DeviceService
}

func NewDeviceHandler(service services.DeviceService) *DeviceHandler {
	return &DeviceHandler{service: service}
}

// @Summary      Request a pairing code
// @Description  Called by the TV. Registers the device in the company identified by subdomain, or issues a fresh code for an unlinked one.
// @Tags         Devices
// @Accept       json
// @Produce      json
// @Param        body  body      models.GenerateCodeRequest  true  "Device"
// @Success      200   {object}  models.PairingCode
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /devices/generate-code [post]
func (h *DeviceHandler) GenerateCode(c *gin.Context) {
	var req models.GenerateCodeRequest
	if !bindJSON(c, &req) {
		return
	}
	pc, err := h.service.GenerateCode(c.Request.Context(), req)
	if err != nil {
		respondError(c, "device.generate_code", err)
		return
	}
	c.JSON(http.StatusOK, pc)
}

func (h *DeviceHandler) Heartbeat(c *gin.Context) {
	var req models.HeartbeatRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.service.Heartbeat(c.Request.Context(), req.DeviceUID)
	if err != nil {
		respondError(c, "device.heartbeat", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// @Summary      Link a device with its pairing code
// @Tags         Devices
// @Accept       json
// @Produce      json
// @Param        body  body      models.LinkDeviceRequest  true  "Pairing code"
// @Success      200   {object}  models.Device
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Security     BearerAuth
// @Router       /devices/link [post]
func (h *DeviceHandler) Link(c *gin.Context) {
	var req models.LinkDeviceRequest
	if !bindJSON(c, &req) {
		return
	}
	d, err := h.service.Link(c.Request.Context(), caller(c), req.DeviceCode)
	if err != nil {
		respondError(c, "device.link", err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *DeviceHandler) MyDevices(c *gin.Context) {
	list, err := h.service.MyDevices(c.Request.Context(), caller(c))
	if err != nil {
		respondError(c, "device.mine", err)
		return
	}
	c.JSON(http.StatusOK, nonNilDevices(list))
}

func (h *DeviceHandler) List(c *gin.Context) {
	offset, limit := page(c)
	list, err := h.service.List(c.Request.Context(), caller(c), models.DeviceFilter{
		CompanyID: queryString(c, "company_id"),
		UserID:    queryString(c, "user_id"),
		IsLinked:  queryBool(c, "is_linked"),
		Offset:    offset,
		Limit:     limit,
	})
	if err != nil {
		respondError(c, "device.list", err)
		return
	}
	c.JSON(http.StatusOK, nonNilDevices(list))
}

func nonNilDevices(list []*models.Device) []*models.Device {
	if list == nil {
		return []*models.Device{}
	}
	return list
}

func (h *DeviceHandler) Get(c *gin.Context) {
	d, err := h.service.Get(c.Request.Context(), caller(c), c.Param("id"))
	if err != nil {
		respondError(c, "device.get", err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *DeviceHandler) Rename(c *gin.Context) {
	var req models.RenameDeviceRequest
	if !bindJSON(c, &req) {
		return
	}
	d, err := h.service.Rename(c.Request.Context(), caller(c), c.Param("id"), req.DeviceName)
	if err != nil {
		respondError(c, "device.rename", err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *DeviceHandler) Unlink(c *gin.Context) {
	pc, err := h.service.Unlink(c.Request.Context(), caller(c), c.Param("id"))
	if err != nil {
		respondError(c, "device.unlink", err)
		return
	}
	c.JSON(http.StatusOK, pc)
}

func (h *DeviceHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), caller(c), c.Param("id")); err != nil {
		respondError(c, "device.delete", err)
		return
	}
	c.Status(http.StatusNoContent)
}
