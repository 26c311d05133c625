package analytics

import (
	"errors"
	"net/http"

	"cineseat/internal/sessions"
	"cineseat/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

func (c *Controller) GetOverview(ctx *gin.Context) {
	overview, err := c.service.Overview(ctx.Request.Context())
	if err != nil {
		response.RespondError(ctx, http.StatusInternalServerError, "INTERNAL", "Failed to get analytics overview", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Analytics overview retrieved successfully", overview, nil)
}

func (c *Controller) GetSessionOccupancy(ctx *gin.Context) {
	occupancy, err := c.service.SessionOccupancy(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidSessionID):
			response.RespondError(ctx, http.StatusBadRequest, "INVALID_REQUEST", "Invalid session ID", err)
		case errors.Is(err, sessions.ErrSessionNotFound):
			response.RespondError(ctx, http.StatusNotFound, "SESSION_NOT_FOUND", "Session not found", err)
		default:
			response.RespondError(ctx, http.StatusInternalServerError, "INTERNAL", "Failed to get session occupancy", err)
		}
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Session occupancy retrieved successfully", occupancy, nil)
}
