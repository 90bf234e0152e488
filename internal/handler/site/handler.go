package site

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hostbay/sitehost-api/internal/handler"
	"github.com/hostbay/sitehost-api/internal/service/access"
	"github.com/hostbay/sitehost-api/internal/service/verification"
)

type Handler struct {
	resolver *access.Resolver
}

func NewHandler(resolver *access.Resolver) *Handler {
	return &Handler{resolver: resolver}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/sites/:slug/access", h.Resolve)
}

// accessResponse is consumed by the render layer to decide what to show.
type accessResponse struct {
	Decision string      `json:"decision"`
	Site     interface{} `json:"site,omitempty"`
	// DaysRemaining is the verification countdown, present only while
	// the owner is still inside the grace period.
	DaysRemaining *int `json:"days_remaining,omitempty"`
}

// Resolve reports whether the slug's site may be served. Absent and
// deactivated sites are indistinguishable to the public caller; policy
// blocks carry full detail since the page is shown to the owner.
func (h *Handler) Resolve(c *gin.Context) {
	now := time.Now()
	decision, err := h.resolver.Resolve(c.Request.Context(), c.Param("slug"), now)
	if err != nil {
		handler.AbortWithError(c, err)
		return
	}

	switch decision.Kind {
	case access.DecisionServe:
		resp := accessResponse{Decision: decision.Kind.String(), Site: decision.Site}
		c.JSON(http.StatusOK, handler.NewSuccessResponse(resp))
	case access.DecisionNotFound:
		c.JSON(http.StatusNotFound, handler.NewErrorResponse("site not found"))
	case access.DecisionBlockedUnverified:
		remaining := verification.DaysRemaining(decision.Owner, now)
		resp := accessResponse{Decision: decision.Kind.String(), DaysRemaining: &remaining}
		c.JSON(http.StatusForbidden, handler.NewSuccessResponse(resp))
	case access.DecisionBlockedExpired:
		resp := accessResponse{Decision: decision.Kind.String()}
		c.JSON(http.StatusForbidden, handler.NewSuccessResponse(resp))
	}
}
