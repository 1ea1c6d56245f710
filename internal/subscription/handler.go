package subscription

import (
	"errors"
	"net/http"
	"strconv"

	"flatup/internal/api"
	"flatup/internal/auth"
	"flatup/internal/logger"
	"flatup/internal/plan"
	"flatup/internal/user"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	ledger     *Ledger
	reconciler *Reconciler
}

func NewHandler(ledger *Ledger, reconciler *Reconciler) *Handler {
	return &Handler{ledger: ledger, reconciler: reconciler}
}

// ListPlans godoc
// @Summary      List subscription plans
// @Tags         plans
// @Produce      json
// @Success      200  {array}  plan.Plan
// @Router       /plans [get]
func (h *Handler) ListPlans(c *gin.Context) {
	c.JSON(http.StatusOK, plan.All())
}

// Verify godoc
// @Summary      Confirm a payment
// @Description  Verifies the checkout signature and activates the subscription. Replaying a confirmed payment returns the stored subscription.
// @Tags         payment
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      VerifyRequest  true  "Checkout result"
// @Success      200      {object}  VerifyResponse
// @Failure      400      {object}  api.ErrorResponse
// @Failure      401      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Failure      409      {object}  api.ErrorResponse
// @Failure      500      {object}  api.ErrorResponse
// @Router       /payment/verify [post]
func (h *Handler) Verify(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	var req VerifyRequest
	if !api.BindAndValidate(c, &req) {
		return
	}

	act, err := h.ledger.Activate(c.Request.Context(), ActivateInput{
		UserID:    userID,
		PlanID:    req.Plan,
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
	})
	switch {
	case errors.Is(err, ErrInvalidSignature):
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid payment signature"})
		return
	case errors.Is(err, plan.ErrUnknownPlan):
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid plan"})
		return
	case errors.Is(err, user.ErrUserNotFound):
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "user not found"})
		return
	case errors.Is(err, ErrPaymentConflict):
		c.JSON(http.StatusConflict, api.ErrorResponse{Error: "payment already used by another account"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to verify payment"})
		return
	}

	msg := "Payment verified and subscription activated"
	if act.Replayed {
		msg = "Payment already verified"
	}
	c.JSON(http.StatusOK, VerifyResponse{
		Message:      msg,
		Subscription: act.Subscription,
		Replayed:     act.Replayed,
	})
}

// GetStatus godoc
// @Summary      Current subscription
// @Description  Returns the caller's subscription with expiry evaluated at request time.
// @Tags         subscription
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  AccountStatus
// @Failure      401  {object}  api.ErrorResponse
// @Failure      404  {object}  api.ErrorResponse
// @Router       /subscription [get]
func (h *Handler) GetStatus(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	st, err := h.ledger.Status(c.Request.Context(), userID)
	if errors.Is(err, user.ErrUserNotFound) {
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "user not found"})
		return
	}
	if err != nil {
		logger.Error("load subscription status failed", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load subscription"})
		return
	}

	c.JSON(http.StatusOK, st)
}

// ListHistory godoc
// @Summary      Subscription history
// @Tags         subscription
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   View
// @Failure      401  {object}  api.ErrorResponse
// @Router       /subscriptions [get]
func (h *Handler) ListHistory(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	views, err := h.ledger.History(c.Request.Context(), userID)
	if err != nil {
		logger.Error("load subscription history failed", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load subscriptions"})
		return
	}

	c.JSON(http.StatusOK, views)
}

// AdminList godoc
// @Summary      List all subscriptions
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        status  query     string  false  "pending, active, expired or cancelled"
// @Param        plan    query     string  false  "broker, owner or room_sharer"
// @Param        limit   query     int     false  "page size"  default(50)
// @Param        offset  query     int     false  "page offset"  default(0)
// @Success      200     {object}  ListResult
// @Failure      400     {object}  api.ErrorResponse
// @Failure      403     {object}  api.ErrorResponse
// @Router       /admin/subscriptions [get]
func (h *Handler) AdminList(c *gin.Context) {
	f := ListFilter{
		Status: c.Query("status"),
		Plan:   c.Query("plan"),
	}
	f.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	f.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	switch Status(f.Status) {
	case "", StatusPending, StatusActive, StatusExpired, StatusCancelled:
	default:
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid status filter"})
		return
	}
	if f.Plan != "" && !plan.Valid(f.Plan) {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid plan filter"})
		return
	}

	res, err := h.ledger.List(c.Request.Context(), f)
	if err != nil {
		logger.Error("list subscriptions failed", "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load subscriptions"})
		return
	}

	c.JSON(http.StatusOK, res)
}

// AdminStats godoc
// @Summary      Subscription analytics
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  Stats
// @Failure      403  {object}  api.ErrorResponse
// @Router       /admin/subscriptions/stats [get]
func (h *Handler) AdminStats(c *gin.Context) {
	stats, err := h.ledger.Stats(c.Request.Context())
	if err != nil {
		logger.Error("subscription stats failed", "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load stats"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// AdminReconcile godoc
// @Summary      Run a reconciliation pass
// @Description  Expires lapsed subscriptions and repairs user snapshots.
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  ReconcileResult
// @Failure      403  {object}  api.ErrorResponse
// @Failure      409  {object}  api.ErrorResponse
// @Router       /admin/subscriptions/reconcile [post]
func (h *Handler) AdminReconcile(c *gin.Context) {
	res, err := h.reconciler.RunOnce(c.Request.Context())
	if errors.Is(err, ErrReconcileInProgress) {
		c.JSON(http.StatusConflict, api.ErrorResponse{Error: "reconciliation already running"})
		return
	}
	if err != nil {
		logger.Error("manual reconcile failed", "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "reconciliation failed"})
		return
	}

	c.JSON(http.StatusOK, res)
}
