package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/eldrgeek/frontrow/internal/domain"
	"github.com/eldrgeek/frontrow/internal/show"
	"github.com/eldrgeek/frontrow/pkg/response"
)

// DebugHandler exposes privileged operational shortcuts: reading the show
// state, forcing a reset or status, and force-assigning seats. These bypass
// the validation applied to client commands and exist for operator and test
// control only.
type DebugHandler struct {
	orchestrator *show.Orchestrator
}

// NewDebugHandler creates a new debug handler.
func NewDebugHandler(o *show.Orchestrator) *DebugHandler {
	return &DebugHandler{orchestrator: o}
}

// GetShow returns a snapshot of the current show state.
func (h *DebugHandler) GetShow(c *gin.Context) {
	response.Success(c, h.orchestrator.Snapshot())
}

// Reset forces the show back to idle, clearing seats and profiles.
func (h *DebugHandler) Reset(c *gin.Context) {
	h.orchestrator.ForceReset()
	response.Success(c, h.orchestrator.Snapshot())
}

type forceStatusRequest struct {
	Status domain.Status `json:"status" binding:"required"`
}

// SetStatus force-sets the show status without transition side effects.
func (h *DebugHandler) SetStatus(c *gin.Context) {
	var req forceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "status is required")
		return
	}
	if err := h.orchestrator.ForceStatus(req.Status); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.Success(c, h.orchestrator.Snapshot())
}

type forceSeatRequest struct {
	SeatID           string                  `json:"seatId" binding:"required"`
	DisplayName      string                  `json:"displayName" binding:"required"`
	AvatarImageRef   string                  `json:"avatarImageRef"`
	ConnectionID     string                  `json:"connectionId"`
	PresentationMode domain.PresentationMode `json:"presentationMode"`
}

// SetSeat force-assigns a seat, overwriting any occupant.
func (h *DebugHandler) SetSeat(c *gin.Context) {
	var req forceSeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "seatId and displayName are required")
		return
	}
	err := h.orchestrator.ForceSeat(req.SeatID, domain.Occupant{
		DisplayName:      req.DisplayName,
		AvatarImageRef:   req.AvatarImageRef,
		ConnectionID:     req.ConnectionID,
		PresentationMode: req.PresentationMode,
	})
	if err != nil {
		response.NotFound(c, err.Error())
		return
	}
	response.Success(c, h.orchestrator.Snapshot())
}

// RegisterRoutes registers the debug routes.
func (h *DebugHandler) RegisterRoutes(router gin.IRouter) {
	debug := router.Group("/api/debug")
	{
		debug.GET("/show", h.GetShow)
		debug.POST("/reset", h.Reset)
		debug.POST("/status", h.SetStatus)
		debug.POST("/seat", h.SetSeat)
	}
}
