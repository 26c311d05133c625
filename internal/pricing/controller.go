package pricing

import (
	"errors"
	"net/http"

	"cineseat/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

func (c *Controller) CreateRule(ctx *gin.Context) {
	var req CreateRuleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request data", nil, err.Error())
		return
	}

	rule, err := c.service.CreateRule(ctx.Request.Context(), req)
	if err != nil {
		c.respondError(ctx, "Failed to create price rule", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusCreated, "Price rule created successfully", rule, nil)
}

func (c *Controller) GetRule(ctx *gin.Context) {
	rule, err := c.service.GetRule(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		c.respondError(ctx, "Failed to get price rule", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Price rule retrieved successfully", rule, nil)
}

func (c *Controller) UpdateRule(ctx *gin.Context) {
	var req UpdateRuleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request data", nil, err.Error())
		return
	}

	rule, err := c.service.UpdateRule(ctx.Request.Context(), ctx.Param("id"), req)
	if err != nil {
		c.respondError(ctx, "Failed to update price rule", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Price rule updated successfully", rule, nil)
}

func (c *Controller) DeleteRule(ctx *gin.Context) {
	if err := c.service.DeleteRule(ctx.Request.Context(), ctx.Param("id")); err != nil {
		c.respondError(ctx, "Failed to delete price rule", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Price rule deleted successfully", nil, nil)
}

func (c *Controller) ListRules(ctx *gin.Context) {
	var query RuleListQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid query parameters", nil, err.Error())
		return
	}

	rules, err := c.service.ListRules(ctx.Request.Context(), query)
	if err != nil {
		c.respondError(ctx, "Failed to list price rules", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Price rules retrieved successfully", rules, nil)
}

func (c *Controller) respondError(ctx *gin.Context, message string, err error) {
	switch {
	case errors.Is(err, ErrInvalidRule):
		response.RespondError(ctx, http.StatusBadRequest, "INVALID_PRICE_RULE", message, err)
	case errors.Is(err, ErrRuleNotFound):
		response.RespondError(ctx, http.StatusNotFound, "PRICE_RULE_NOT_FOUND", message, err)
	default:
		response.RespondError(ctx, http.StatusInternalServerError, "INTERNAL", message, err)
	}
}
