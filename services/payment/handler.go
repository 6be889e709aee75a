package payment

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"flextasker/pkg/errutil"
	"flextasker/pkg/middleware"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(r *gin.Engine) {
	g := r.Group("/v1/payments")
	g.POST("", h.create)
	g.GET("/summary", h.summary)
	g.GET("/statistics", h.statistics)
	g.GET("/:id", h.get)
	g.POST("/:id/refund", h.refund)
}

func (h *Handler) create(c *gin.Context) {
	actor := middleware.ActorFrom(c)
	if actor == "" {
		c.Error(errutil.Unauthorized("missing user identity"))
		return
	}

	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.BadRequest("invalid request body", errutil.WithErr(err)))
		return
	}

	p, err := h.svc.Create(c.Request.Context(), actor, req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) refund(c *gin.Context) {
	actor := middleware.ActorFrom(c)
	if actor == "" {
		c.Error(errutil.Unauthorized("missing user identity"))
		return
	}

	var req RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.BadRequest("invalid request body", errutil.WithErr(err)))
		return
	}

	p, err := h.svc.Refund(c.Request.Context(), c.Param("id"), actor, req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) get(c *gin.Context) {
	actor := middleware.ActorFrom(c)
	if actor == "" {
		c.Error(errutil.Unauthorized("missing user identity"))
		return
	}

	p, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	// Payments are visible to their payer and payee only.
	if p.PayerID != actor && (p.PayeeID == nil || *p.PayeeID != actor) {
		c.Error(errutil.Forbidden("not authorized to view this payment"))
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) summary(c *gin.Context) {
	actor := middleware.ActorFrom(c)
	if actor == "" {
		c.Error(errutil.Unauthorized("missing user identity"))
		return
	}

	summary, err := h.svc.Summary(c.Request.Context(), actor)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) statistics(c *gin.Context) {
	var req StatisticsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.Error(errutil.BadRequest("invalid query", errutil.WithErr(err)))
		return
	}

	stats, err := h.svc.Statistics(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
