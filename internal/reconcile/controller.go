package reconcile

import (
	"errors"
	"net/http"

	"cineseat/internal/sessions"
	"cineseat/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller struct {
	engine *Engine
}

func NewController(engine *Engine) *Controller {
	return &Controller{engine: engine}
}

func (c *Controller) ReconcileAll(ctx *gin.Context) {
	req, ok := bindRun(ctx)
	if !ok {
		return
	}

	batch, err := c.engine.ReconcileAll(ctx.Request.Context(), BatchOptions{
		BatchSize: req.BatchSize,
		Limit:     req.Limit,
		DryRun:    req.DryRun,
		TxPolicy:  TxPolicy(req.TxPolicy),
	})
	if err != nil {
		respondError(ctx, "Failed to reconcile sessions", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Reconciliation completed", batch, nil)
}

func (c *Controller) ReconcileSession(ctx *gin.Context) {
	sessionID, err := uuid.Parse(ctx.Param("sessionId"))
	if err != nil {
		response.RespondError(ctx, http.StatusBadRequest, "INVALID_REQUEST", "Invalid session ID", err)
		return
	}
	req, ok := bindRun(ctx)
	if !ok {
		return
	}

	report, err := c.engine.ReconcileSession(ctx.Request.Context(), sessionID, Options{
		DryRun:   req.DryRun,
		TxPolicy: TxPolicy(req.TxPolicy),
	})
	if err != nil {
		respondError(ctx, "Failed to reconcile session", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Session reconciled", report, nil)
}

func bindRun(ctx *gin.Context) (RunRequest, bool) {
	var req RunRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			response.RespondError(ctx, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request data", err)
			return req, false
		}
	}
	return req, true
}

func respondError(ctx *gin.Context, message string, err error) {
	switch {
	case errors.Is(err, sessions.ErrSessionNotFound):
		response.RespondError(ctx, http.StatusNotFound, "SESSION_NOT_FOUND", message, err)
	case errors.Is(err, ErrInvalidPolicy):
		response.RespondError(ctx, http.StatusBadRequest, "INVALID_REQUEST", message, err)
	case errors.Is(err, ErrTransactionsUnsupported):
		response.RespondError(ctx, http.StatusConflict, CodeTransactionsRequired, message, err)
	case IsRetryable(err):
		response.RespondError(ctx, http.StatusServiceUnavailable, CodeSerialization, message, err)
	default:
		response.RespondError(ctx, http.StatusInternalServerError, CodeFailed, message, err)
	}
}
