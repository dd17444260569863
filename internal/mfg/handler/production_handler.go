package handler

import (
	"net/http"
	"strconv"

	"github.com/bitfantasy/nimo-mfg/internal/mfg/repository"
	"github.com/bitfantasy/nimo-mfg/internal/mfg/service"
	"github.com/gin-gonic/gin"
)

// ProductionEntryHandler 生产报工处理器
type ProductionEntryHandler struct {
	svc *service.ProductionEntryService
}

func NewProductionEntryHandler(svc *service.ProductionEntryService) *ProductionEntryHandler {
	return &ProductionEntryHandler{svc: svc}
}

func (h *ProductionEntryHandler) Create(c *gin.Context) {
	var req service.CreateProductionEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
		return
	}
	pe, err := h.svc.Create(c.Request.Context(), req, userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, pe)
}

func (h *ProductionEntryHandler) Get(c *gin.Context) {
	pe, err := h.svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, pe)
}

func (h *ProductionEntryHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	params := repository.PEListParams{
		WorkOrderID: c.Query("work_order_id"),
		Status:      c.Query("status"),
		Keyword:     c.Query("keyword"),
		Page:        page,
		Size:        size,
	}
	entries, total, err := h.svc.List(c.Request.Context(), params)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, gin.H{"items": entries, "total": total, "page": page, "size": size})
}

func (h *ProductionEntryHandler) Update(c *gin.Context) {
	var req service.UpdateProductionEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
		return
	}
	pe, err := h.svc.Update(c.Request.Context(), c.Param("id"), req, userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, pe)
}

func (h *ProductionEntryHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), userID(c)); err != nil {
		fail(c, err)
		return
	}
	success(c, nil)
}

func (h *ProductionEntryHandler) Submit(c *gin.Context) {
	pe, err := h.svc.Submit(c.Request.Context(), c.Param("id"), userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, pe)
}

// ConsumeMaterials 录入消耗物料，整单替换
func (h *ProductionEntryHandler) ConsumeMaterials(c *gin.Context) {
	var req struct {
		Materials []service.ConsumedMaterialInput `json:"materials" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
		return
	}
	pe, err := h.svc.ConsumeMaterials(c.Request.Context(), c.Param("id"), req.Materials, userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, pe)
}

// Post 过账，产量与成本计入工单
func (h *ProductionEntryHandler) Post(c *gin.Context) {
	pe, err := h.svc.Post(c.Request.Context(), c.Param("id"), userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, pe)
}

// Reverse 冲销已过账报工
func (h *ProductionEntryHandler) Reverse(c *gin.Context) {
	var req struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
		return
	}
	pe, err := h.svc.Reverse(c.Request.Context(), c.Param("id"), userID(c), req.Reason)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, pe)
}
