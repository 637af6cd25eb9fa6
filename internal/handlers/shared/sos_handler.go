package handlers

import (
	"errors"
	"net/http"

	"sosline/internal/services"
	"sosline/internal/utils"
	"sosline/pkg/logger"
	"sosline/pkg/websocket"

	"github.com/gin-gonic/gin"
)

// SOSHandler exposes the event records to responder dashboards. Live traffic
// goes over the WebSocket; this is the catch-up and audit surface.
type SOSHandler struct {
	sosService services.SOSService
	logger     *logger.Logger
}

func NewSOSHandler(sosService services.SOSService, log *logger.Logger) *SOSHandler {
	return &SOSHandler{
		sosService: sosService,
		logger:     log.WithField("component", "sos_handler"),
	}
}

// ListActive returns every event that has not been canceled, newest first.
func (h *SOSHandler) ListActive(c *gin.Context) {
	events, err := h.sosService.ListActive(c.Request.Context())
	if err != nil {
		h.serviceError(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, "Active SOS events retrieved successfully", events, &utils.Meta{
		Count: len(events),
	})
}

// ListHistory pages through all events, canceled ones included.
func (h *SOSHandler) ListHistory(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	page, err := h.sosService.ListHistory(c.Request.Context(), params.Page, params.PageSize)
	if err != nil {
		h.serviceError(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, "SOS history retrieved successfully", page.Events, &utils.Meta{
		Pagination: utils.CreatePaginationMeta(params, page.Total),
		Total:      page.Total,
		Count:      len(page.Events),
	})
}

func (h *SOSHandler) GetEvent(c *gin.Context) {
	event, err := h.sosService.GetEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.serviceError(c, err)
		return
	}

	utils.SuccessResponse(c, "SOS event retrieved successfully", event)
}

// CancelEvent is the REST twin of the cancel-sos message. Connected members
// of the event room are told exactly as if the cancel came over a socket.
func (h *SOSHandler) CancelEvent(c *gin.Context) {
	identity := websocket.ContextIdentity(c)
	if identity.UserID == "" {
		utils.UnauthorizedResponse(c)
		return
	}

	event, err := h.sosService.CancelEvent(c.Request.Context(), identity, c.Param("id"))
	if err != nil {
		h.serviceError(c, err)
		return
	}

	utils.SuccessResponse(c, "SOS event canceled successfully", event)
}

func (h *SOSHandler) serviceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		utils.CodedErrorResponse(c, http.StatusNotFound, services.ErrNotFound)
	case errors.Is(err, services.ErrUnauthorized):
		utils.ForbiddenResponse(c)
	case errors.Is(err, services.ErrBadRequest):
		utils.CodedErrorResponse(c, http.StatusBadRequest, services.ErrBadRequest)
	default:
		h.logger.WithContext(c.Request.Context()).WithError(err).Error("SOS request failed")
		utils.InternalServerErrorResponse(c)
	}
}
