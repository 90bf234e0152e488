package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hostbay/sitehost-api/internal/handler"
	"github.com/hostbay/sitehost-api/internal/middleware"
	"github.com/hostbay/sitehost-api/internal/model"
	authService "github.com/hostbay/sitehost-api/internal/service/auth"
	"github.com/hostbay/sitehost-api/pkg/auth"
)

type Handler struct {
	svc    *authService.Service
	jwtSvc auth.JWTService
}

func NewHandler(svc *authService.Service, jwtSvc auth.JWTService) *Handler {
	return &Handler{svc: svc, jwtSvc: jwtSvc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	group := r.Group("/auth")
	{
		group.POST("/login", h.Login)
	}
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	identity, err := h.svc.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		handler.AbortWithError(c, err)
		return
	}

	token, err := h.jwtSvc.GenerateToken(identity.ID, identity.Email, middleware.RoleOwner)
	if err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("internal server error"))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(&model.TokenResponse{
		AccessToken: token,
		Identity:    identity,
	}))
}
