package seats

import (
	"errors"
	"net/http"

	"cineseat/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

func (c *Controller) GetSeatMap(ctx *gin.Context) {
	sessionID, ok := parseSessionID(ctx, "id")
	if !ok {
		return
	}

	seatMap, err := c.service.SeatMap(ctx.Request.Context(), sessionID)
	if err != nil {
		RespondError(ctx, "Failed to get seat map", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Seat map retrieved successfully", seatMap, nil)
}

func (c *Controller) GetSeat(ctx *gin.Context) {
	sessionID, ok := parseSessionID(ctx, "id")
	if !ok {
		return
	}

	seat, err := c.service.GetSeat(ctx.Request.Context(), sessionID, ctx.Param("seatCode"))
	if err != nil {
		RespondError(ctx, "Failed to get seat", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Seat retrieved successfully", seat, nil)
}

func (c *Controller) GetAvailability(ctx *gin.Context) {
	sessionID, ok := parseSessionID(ctx, "id")
	if !ok {
		return
	}

	var query AvailabilityQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		response.RespondError(ctx, http.StatusBadRequest, "INVALID_REQUEST", "Invalid query parameters", err)
		return
	}

	availability, err := c.service.Availability(ctx.Request.Context(), sessionID, query)
	if err != nil {
		RespondError(ctx, "Failed to get availability", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Availability retrieved successfully", availability, nil)
}

// ADMIN

func (c *Controller) AdminRelease(ctx *gin.Context) {
	sessionID, ok := parseSessionID(ctx, "sessionId")
	if !ok {
		return
	}

	var req AdminReleaseRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			response.RespondError(ctx, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request data", err)
			return
		}
	}

	result, err := c.service.AdminRelease(ctx.Request.Context(), sessionID, ctx.Param("seatCode"), req.ExpectedVersion)
	if err != nil {
		RespondError(ctx, "Failed to release seat", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Seat release processed", result, nil)
}

func parseSessionID(ctx *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(ctx.Param(param))
	if err != nil {
		response.RespondError(ctx, http.StatusBadRequest, "INVALID_REQUEST", "Invalid session ID", err)
		return uuid.Nil, false
	}
	return id, true
}

// RespondError maps ledger errors onto status codes. Shared by every handler that drives
// seat transitions.
func RespondError(ctx *gin.Context, message string, err error) {
	switch {
	case errors.Is(err, ErrSeatNotFound):
		response.RespondError(ctx, http.StatusNotFound, "SEAT_NOT_FOUND", message, err)
	case errors.Is(err, ErrSeatUnavailable):
		response.RespondError(ctx, http.StatusConflict, "SEAT_UNAVAILABLE", message, err)
	case errors.Is(err, ErrSeatAlreadySold):
		response.RespondError(ctx, http.StatusConflict, "SEAT_ALREADY_SOLD", message, err)
	case errors.Is(err, ErrHoldNotOwned):
		response.RespondError(ctx, http.StatusConflict, "HOLD_NOT_OWNED", message, err)
	case errors.Is(err, ErrVersionMismatch):
		response.RespondError(ctx, http.StatusConflict, "VERSION_MISMATCH", message, err)
	case errors.Is(err, ErrInvalidTTL):
		response.RespondError(ctx, http.StatusBadRequest, "INVALID_TTL", message, err)
	case errors.Is(err, ErrInvalidRequest):
		response.RespondError(ctx, http.StatusBadRequest, "INVALID_REQUEST", message, err)
	default:
		response.RespondError(ctx, http.StatusInternalServerError, "INTERNAL", message, err)
	}
}
