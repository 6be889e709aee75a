package task

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
	g := r.Group("/v1/tasks")
	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.POST("/:id/complete", h.complete)
	g.POST("/:id/cancel", h.cancel)
}

func (h *Handler) create(c *gin.Context) {
	actor := middleware.ActorFrom(c)
	if actor == "" {
		c.Error(errutil.Unauthorized("missing user identity"))
		return
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.BadRequest("invalid request body", errutil.WithErr(err)))
		return
	}

	t, err := h.svc.Create(c.Request.Context(), actor, req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (h *Handler) list(c *gin.Context) {
	var req ListTasksRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.Error(errutil.BadRequest("invalid query", errutil.WithErr(err)))
		return
	}

	tasks, err := h.svc.List(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

func (h *Handler) get(c *gin.Context) {
	t, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handler) complete(c *gin.Context) {
	actor := middleware.ActorFrom(c)
	if actor == "" {
		c.Error(errutil.Unauthorized("missing user identity"))
		return
	}

	t, err := h.svc.Complete(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handler) cancel(c *gin.Context) {
	actor := middleware.ActorFrom(c)
	if actor == "" {
		c.Error(errutil.Unauthorized("missing user identity"))
		return
	}

	t, err := h.svc.Cancel(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, t)
}
