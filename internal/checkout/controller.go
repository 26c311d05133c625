package checkout

import (
	"errors"
	"net/http"

	"cineseat/internal/carts"
	"cineseat/internal/seats"
	"cineseat/internal/sessions"
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

func (c *Controller) CreateCart(ctx *gin.Context) {
	var req CreateCartRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			response.RespondError(ctx, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request data", err)
			return
		}
	}

	cart, err := c.service.CreateCart(ctx.Request.Context(), req)
	if err != nil {
		c.respondError(ctx, "Failed to create cart", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusCreated, "Cart created successfully", cart, nil)
}

func (c *Controller) GetCart(ctx *gin.Context) {
	cartID, ok := parseID(ctx, "id", "Invalid cart ID")
	if !ok {
		return
	}

	cart, err := c.service.GetCart(ctx.Request.Context(), cartID)
	if err != nil {
		c.respondError(ctx, "Failed to get cart", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Cart retrieved successfully", cart, nil)
}

func (c *Controller) ExtendCart(ctx *gin.Context) {
	cartID, ok := parseID(ctx, "id", "Invalid cart ID")
	if !ok {
		return
	}

	var req ExtendCartRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			response.RespondError(ctx, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request data", err)
			return
		}
	}

	cart, err := c.service.ExtendCart(ctx.Request.Context(), cartID, req)
	if err != nil {
		c.respondError(ctx, "Failed to extend cart", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Cart extended successfully", cart, nil)
}

func (c *Controller) HoldSeats(ctx *gin.Context) {
	cartID, ok := parseID(ctx, "id", "Invalid cart ID")
	if !ok {
		return
	}

	var req HoldSeatsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondError(ctx, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request data", err)
		return
	}

	cart, err := c.service.HoldSeats(ctx.Request.Context(), cartID, req)
	if err != nil {
		c.respondError(ctx, "Failed to hold seats", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Seats held successfully", cart, nil)
}

func (c *Controller) ReleaseSeat(ctx *gin.Context) {
	cartID, ok := parseID(ctx, "id", "Invalid cart ID")
	if !ok {
		return
	}
	sessionID, ok := parseID(ctx, "sessionId", "Invalid session ID")
	if !ok {
		return
	}

	released, err := c.service.ReleaseSeat(ctx.Request.Context(), cartID, sessionID, ctx.Param("seatCode"))
	if err != nil {
		c.respondError(ctx, "Failed to release seat", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Seat release processed", gin.H{"released": released}, nil)
}

func (c *Controller) CancelCart(ctx *gin.Context) {
	cartID, ok := parseID(ctx, "id", "Invalid cart ID")
	if !ok {
		return
	}

	released, err := c.service.CancelCart(ctx.Request.Context(), cartID)
	if err != nil {
		c.respondError(ctx, "Failed to cancel cart", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Cart cancelled successfully", gin.H{"released": released}, nil)
}

func (c *Controller) Quote(ctx *gin.Context) {
	cartID, ok := parseID(ctx, "id", "Invalid cart ID")
	if !ok {
		return
	}

	quote, err := c.service.Quote(ctx.Request.Context(), cartID)
	if err != nil {
		c.respondError(ctx, "Failed to quote cart", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Quote computed successfully", quote, nil)
}

func (c *Controller) ConfirmCart(ctx *gin.Context) {
	cartID, ok := parseID(ctx, "id", "Invalid cart ID")
	if !ok {
		return
	}

	var req ConfirmRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			response.RespondError(ctx, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request data", err)
			return
		}
	}

	conf, err := c.service.ConfirmCart(ctx.Request.Context(), cartID, req)
	if err != nil {
		c.respondError(ctx, "Failed to confirm cart", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Cart confirmed successfully", conf, nil)
}

func parseID(ctx *gin.Context, param, message string) (uuid.UUID, bool) {
	id, err := uuid.Parse(ctx.Param(param))
	if err != nil {
		response.RespondError(ctx, http.StatusBadRequest, "INVALID_REQUEST", message, err)
		return uuid.Nil, false
	}
	return id, true
}

func (c *Controller) respondError(ctx *gin.Context, message string, err error) {
	switch {
	case errors.Is(err, carts.ErrCartNotFound):
		response.RespondError(ctx, http.StatusNotFound, "CART_NOT_FOUND", message, err)
	case errors.Is(err, carts.ErrCartExpired):
		response.RespondError(ctx, http.StatusGone, "CART_EXPIRED", message, err)
	case errors.Is(err, carts.ErrInvalidCartTTL):
		response.RespondError(ctx, http.StatusBadRequest, "INVALID_TTL", message, err)
	case errors.Is(err, ErrNothingToConfirm):
		response.RespondError(ctx, http.StatusConflict, "NOTHING_TO_CONFIRM", message, err)
	case errors.Is(err, ErrAmountMismatch):
		response.RespondError(ctx, http.StatusConflict, "AMOUNT_MISMATCH", message, err)
	case errors.Is(err, ErrInvalidRequest):
		response.RespondError(ctx, http.StatusBadRequest, "INVALID_REQUEST", message, err)
	case errors.Is(err, ErrCartChanged):
		response.RespondError(ctx, http.StatusConflict, "CART_CHANGED", message, err)
	case errors.Is(err, sessions.ErrSessionNotFound):
		response.RespondError(ctx, http.StatusNotFound, "SESSION_NOT_FOUND", message, err)
	default:
		seats.RespondError(ctx, message, err)
	}
}
