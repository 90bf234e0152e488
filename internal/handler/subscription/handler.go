package subscription

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hostbay/sitehost-api/internal/handler"
	"github.com/hostbay/sitehost-api/internal/middleware"
	"github.com/hostbay/sitehost-api/internal/model"
	subscriptionService "github.com/hostbay/sitehost-api/internal/service/subscription"
)

type Handler struct {
	svc  *subscriptionService.Service
	auth *middleware.AuthMiddleware
}

func NewHandler(svc *subscriptionService.Service, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{svc: svc, auth: auth}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	group := r.Group("/subscriptions")
	{
		group.GET("/current", h.auth.RequireAuth(), h.Current)
		group.POST("/requests", h.auth.RequireAuth(), h.SubmitRequest)
		group.GET("/requests", h.auth.RequireRole(middleware.RoleOperator), h.ListRequests)
		group.POST("/requests/:id/approve", h.auth.RequireRole(middleware.RoleOperator), h.ApproveRequest)
		group.POST("/requests/:id/reject", h.auth.RequireRole(middleware.RoleOperator), h.RejectRequest)
	}
}

// Current reports the caller's subscription state for the dashboard.
func (h *Handler) Current(c *gin.Context) {
	siteID, err := uuid.Parse(c.Query("site_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid site id"))
		return
	}

	status, err := h.svc.CurrentStatus(c.Request.Context(), siteID, time.Now())
	if err != nil {
		handler.AbortWithError(c, err)
		return
	}

	resp := gin.H{"state": stateName(status.State)}
	if status.Subscription != nil {
		resp["subscription"] = status.Subscription
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(resp))
}

func (h *Handler) SubmitRequest(c *gin.Context) {
	var req model.SubmitRenewalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	ownerID := c.MustGet(middleware.ContextOwnerID).(uuid.UUID)
	created, err := h.svc.SubmitRenewalRequest(c.Request.Context(), ownerID,
		req.Plan, req.Amount, req.PaymentMethod, req.ContactPhone, time.Now())
	if err != nil {
		handler.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(created))
}

func (h *Handler) ListRequests(c *gin.Context) {
	status := c.DefaultQuery("status", model.RequestStatusPending)
	reqs, err := h.svc.ListRequests(c.Request.Context(), status)
	if err != nil {
		handler.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(reqs))
}

func (h *Handler) ApproveRequest(c *gin.Context) {
	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid request id"))
		return
	}

	approverID := c.MustGet(middleware.ContextOwnerID).(uuid.UUID)
	sub, err := h.svc.ApproveRenewalRequest(c.Request.Context(), requestID, approverID, time.Now())
	if err != nil {
		handler.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(sub))
}

func (h *Handler) RejectRequest(c *gin.Context) {
	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid request id"))
		return
	}

	var req model.RejectRenewalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	resolved, err := h.svc.RejectRenewalRequest(c.Request.Context(), requestID, req.Reason, time.Now())
	if err != nil {
		handler.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(resolved))
}

func stateName(s subscriptionService.State) string {
	switch s {
	case subscriptionService.StateActive:
		return "active"
	case subscriptionService.StateExpiredNoActive:
		return "expired"
	default:
		return "never_subscribed"
	}
}
