package handler

import (
	"net/http"
	"strconv"

	"github.com/bitfantasy/nimo-mfg/internal/mfg/repository"
	"github.com/bitfantasy/nimo-mfg/internal/mfg/service"
	"github.com/gin-gonic/gin"
)

// WorkOrderHandler 生产工单处理器
type WorkOrderHandler struct {
	svc *service.WorkOrderService
}

func NewWorkOrderHandler(svc *service.WorkOrderService) *WorkOrderHandler {
	return &WorkOrderHandler{svc: svc}
}

func (h *WorkOrderHandler) Create(c *gin.Context) {
	var req service.CreateWorkOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
		return
	}
	wo, err := h.svc.Create(c.Request.Context(), req, userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, wo)
}

func (h *WorkOrderHandler) Get(c *gin.Context) {
	wo, err := h.svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, wo)
}

func (h *WorkOrderHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	params := repository.WOListParams{
		Status:  c.Query("status"),
		ItemID:  c.Query("item_id"),
		BOMID:   c.Query("bom_id"),
		Keyword: c.Query("keyword"),
		Page:    page,
		Size:    size,
	}
	wos, total, err := h.svc.List(c.Request.Context(), params)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, gin.H{"items": wos, "total": total, "page": page, "size": size})
}

func (h *WorkOrderHandler) Update(c *gin.Context) {
	var req service.UpdateWorkOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
		return
	}
	wo, err := h.svc.Update(c.Request.Context(), c.Param("id"), req, userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, wo)
}

func (h *WorkOrderHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), userID(c)); err != nil {
		fail(c, err)
		return
	}
	success(c, nil)
}

func (h *WorkOrderHandler) Submit(c *gin.Context) {
	wo, err := h.svc.Submit(c.Request.Context(), c.Param("id"), userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, wo)
}

func (h *WorkOrderHandler) Release(c *gin.Context) {
	wo, err := h.svc.Release(c.Request.Context(), c.Param("id"), userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, wo)
}

func (h *WorkOrderHandler) Start(c *gin.Context) {
	wo, err := h.svc.Start(c.Request.Context(), c.Param("id"), userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, wo)
}

func (h *WorkOrderHandler) Hold(c *gin.Context) {
	wo, err := h.svc.Hold(c.Request.Context(), c.Param("id"), userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, wo)
}

func (h *WorkOrderHandler) Resume(c *gin.Context) {
	wo, err := h.svc.Resume(c.Request.Context(), c.Param("id"), userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, wo)
}

func (h *WorkOrderHandler) Complete(c *gin.Context) {
	wo, err := h.svc.Complete(c.Request.Context(), c.Param("id"), userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, wo)
}

func (h *WorkOrderHandler) Close(c *gin.Context) {
	wo, err := h.svc.Close(c.Request.Context(), c.Param("id"), userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, wo)
}

func (h *WorkOrderHandler) Cancel(c *gin.Context) {
	var req struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
		return
	}
	wo, err := h.svc.Cancel(c.Request.Context(), c.Param("id"), userID(c), req.Reason)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, wo)
}

// Progress 按累计产量重算进度
func (h *WorkOrderHandler) Progress(c *gin.Context) {
	var req struct {
		ProducedQuantity float64 `json:"produced_quantity" binding:"gte=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
		return
	}
	wo, err := h.svc.UpdateProgress(c.Request.Context(), c.Param("id"), req.ProducedQuantity, userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, wo)
}
