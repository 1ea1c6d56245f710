package payment

import (
	"errors"
	"net/http"

	"flatup/internal/api"
	"flatup/internal/auth"
	"flatup/internal/logger"
	"flatup/internal/plan"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	orders *OrderService
}

func NewHandler(orders *OrderService) *Handler {
	return &Handler{orders: orders}
}

// CreateOrder godoc
// @Summary      Create a checkout order
// @Description  Creates a payment provider order priced at the chosen plan
// @Tags         payment
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      CreateOrderRequest  true  "Plan to purchase"
// @Success      200      {object}  Checkout
// @Failure      400      {object}  api.ErrorResponse
// @Failure      401      {object}  api.ErrorResponse
// @Failure      502      {object}  api.ErrorResponse
// @Router       /payment/create-order [post]
func (h *Handler) CreateOrder(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}
	email, _ := auth.GetUserEmail(c)

	var req CreateOrderRequest
	if !api.BindAndValidate(c, &req) {
		return
	}

	checkout, err := h.orders.CreateOrder(c.Request.Context(), Customer{ID: userID, Email: email}, req.Plan)
	switch {
	case errors.Is(err, plan.ErrUnknownPlan):
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid plan"})
		return
	case errors.Is(err, ErrProviderUnavailable):
		c.JSON(http.StatusBadGateway, api.ErrorResponse{Error: "payment provider unavailable, please retry"})
		return
	case err != nil:
		logger.Error("create order failed", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to create order"})
		return
	}

	c.JSON(http.StatusOK, checkout)
}
