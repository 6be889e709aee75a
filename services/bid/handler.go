package bid

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
	g := r.Group("/v1/bids")
	g.POST("", h.create)
	g.GET("", h.search)
	g.GET("/:id", h.get)
	g.PATCH("/:id", h.update)
	g.POST("/:id/accept", h.accept)
	g.POST("/:id/reject", h.reject)
	g.POST("/:id/withdraw", h.withdraw)

	r.GET("/v1/tasks/:id/bids/statistics", h.statistics)
}

func (h *Handler) create(c *gin.Context) {
	actor := middleware.ActorFrom(c)
	if actor == "" {
		c.Error(errutil.Unauthorized("missing user identity"))
		return
	}

	var req CreateBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.BadRequest("invalid request body", errutil.WithErr(err)))
		return
	}

	b, err := h.svc.Create(c.Request.Context(), actor, req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

func (h *Handler) search(c *gin.Context) {
	actor := middleware.ActorFrom(c)
	if actor == "" {
		c.Error(errutil.Unauthorized("missing user identity"))
		return
	}

	var req SearchBidsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.Error(errutil.BadRequest("invalid query", errutil.WithErr(err)))
		return
	}

	resp, err := h.svc.Search(c.Request.Context(), actor, req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) get(c *gin.Context) {
	b, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *Handler) update(c *gin.Context) {
	actor := middleware.ActorFrom(c)
	if actor == "" {
		c.Error(errutil.Unauthorized("missing user identity"))
		return
	}

	var req UpdateBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.BadRequest("invalid request body", errutil.WithErr(err)))
		return
	}

	b, err := h.svc.Update(c.Request.Context(), c.Param("id"), actor, req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *Handler) accept(c *gin.Context) {
	actor := middleware.ActorFrom(c)
	if actor == "" {
		c.Error(errutil.Unauthorized("missing user identity"))
		return
	}

	b, err := h.svc.Accept(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *Handler) reject(c *gin.Context) {
	actor := middleware.ActorFrom(c)
	if actor == "" {
		c.Error(errutil.Unauthorized("missing user identity"))
		return
	}

	b, err := h.svc.Reject(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *Handler) withdraw(c *gin.Context) {
	actor := middleware.ActorFrom(c)
	if actor == "" {
		c.Error(errutil.Unauthorized("missing user identity"))
		return
	}

	b, err := h.svc.Withdraw(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *Handler) statistics(c *gin.Context) {
	actor := middleware.ActorFrom(c)
	if actor == "" {
		c.Error(errutil.Unauthorized("missing user identity"))
		return
	}

	stats, err := h.svc.TaskStatistics(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
