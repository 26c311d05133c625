package sessions

import (
	"errors"
	"net/http"

	"cineseat/internal/layouts"
	"cineseat/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

func (c *Controller) CreateCinema(ctx *gin.Context) {
	var req CreateCinemaRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request data", nil, err.Error())
		return
	}

	cinema, err := c.service.CreateCinema(ctx.Request.Context(), req)
	if err != nil {
		c.respondError(ctx, "Failed to create cinema", err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusCreated, "Cinema created successfully", cinema, nil)
}

func (c *Controller) CreateAuditorium(ctx *gin.Context) {
	var req CreateAuditoriumRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request data", nil, err.Error())
		return
	}

	auditorium, err := c.service.CreateAuditorium(ctx.Request.Context(), req)
	if err != nil {
		c.respondError(ctx, "Failed to create auditorium", err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusCreated, "Auditorium created successfully", auditorium, nil)
}

func (c *Controller) UpdateLayout(ctx *gin.Context) {
	var req UpdateLayoutRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request data", nil, err.Error())
		return
	}

	resp, err := c.service.UpdateLayout(ctx.Request.Context(), ctx.Param("id"), req.Layout)
	if err != nil {
		c.respondError(ctx, "Failed to update layout", err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Layout updated successfully", resp, nil)
}

func (c *Controller) CreateSession(ctx *gin.Context) {
	var req CreateSessionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request data", nil, err.Error())
		return
	}

	session, err := c.service.CreateSession(ctx.Request.Context(), req)
	if err != nil {
		c.respondError(ctx, "Failed to create session", err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusCreated, "Session created successfully", session, nil)
}

func (c *Controller) GetSession(ctx *gin.Context) {
	session, err := c.service.GetSession(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		c.respondError(ctx, "Failed to get session", err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Session retrieved successfully", session, nil)
}

func (c *Controller) DeleteSession(ctx *gin.Context) {
	if err := c.service.DeleteSession(ctx.Request.Context(), ctx.Param("id")); err != nil {
		c.respondError(ctx, "Failed to delete session", err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Session deleted successfully", nil, nil)
}

func (c *Controller) ListSessions(ctx *gin.Context) {
	var query SessionListQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid query parameters", nil, err.Error())
		return
	}

	resp, err := c.service.ListSessions(ctx.Request.Context(), query)
	if err != nil {
		c.respondError(ctx, "Failed to list sessions", err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Sessions retrieved successfully", resp, nil)
}

func (c *Controller) respondError(ctx *gin.Context, message string, err error) {
	switch {
	case errors.Is(err, layouts.ErrInvalidLayout):
		response.RespondError(ctx, http.StatusBadRequest, "INVALID_LAYOUT", message, err)
	case errors.Is(err, ErrInvalidSession):
		response.RespondError(ctx, http.StatusBadRequest, "INVALID_REQUEST", message, err)
	case errors.Is(err, ErrCinemaNotFound), errors.Is(err, ErrAuditoriumNotFound), errors.Is(err, ErrSessionNotFound):
		response.RespondError(ctx, http.StatusNotFound, "NOT_FOUND", message, err)
	case errors.Is(err, ErrSessionHasTickets):
		response.RespondError(ctx, http.StatusConflict, "SESSION_HAS_TICKETS", message, err)
	default:
		response.RespondError(ctx, http.StatusInternalServerError, "INTERNAL", message, err)
	}
}
