package handler

import (
	"net/http"
	"strconv"

	"github.com/bitfantasy/nimo-mfg/internal/mfg/repository"
	"github.com/bitfantasy/nimo-mfg/internal/mfg/service"
	"github.com/gin-gonic/gin"
)

// RoutingHandler 工艺路线处理器
type RoutingHandler struct {
	svc *service.RoutingService
}

func NewRoutingHandler(svc *service.RoutingService) *RoutingHandler {
	return &RoutingHandler{svc: svc}
}

func (h *RoutingHandler) Create(c *gin.Context) {
	var req service.CreateRoutingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
		return
	}
	routing, err := h.svc.Create(c.Request.Context(), req, userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, routing)
}

func (h *RoutingHandler) Get(c *gin.Context) {
	routing, err := h.svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, routing)
}

func (h *RoutingHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	params := repository.RoutingListParams{
		Status:  c.Query("status"),
		ItemID:  c.Query("item_id"),
		BOMID:   c.Query("bom_id"),
		Keyword: c.Query("keyword"),
		Page:    page,
		Size:    size,
	}
	routings, total, err := h.svc.List(c.Request.Context(), params)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, gin.H{"items": routings, "total": total, "page": page, "size": size})
}

func (h *RoutingHandler) Update(c *gin.Context) {
	var req service.UpdateRoutingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
		return
	}
	routing, err := h.svc.Update(c.Request.Context(), c.Param("id"), req, userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, routing)
}

func (h *RoutingHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), userID(c)); err != nil {
		fail(c, err)
		return
	}
	success(c, nil)
}

func (h *RoutingHandler) Submit(c *gin.Context) {
	routing, err := h.svc.Submit(c.Request.Context(), c.Param("id"), userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, routing)
}

func (h *RoutingHandler) Approve(c *gin.Context) {
	routing, err := h.svc.Approve(c.Request.Context(), c.Param("id"), userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, routing)
}

func (h *RoutingHandler) Deactivate(c *gin.Context) {
	routing, err := h.svc.Deactivate(c.Request.Context(), c.Param("id"), userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, routing)
}
