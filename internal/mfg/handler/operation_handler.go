package handler

import (
	"net/http"
	"strconv"

	"github.com/bitfantasy/nimo-mfg/internal/mfg/repository"
	"github.com/bitfantasy/nimo-mfg/internal/mfg/service"
	"github.com/gin-gonic/gin"
)

// OperationHandler 工序主数据处理器
type OperationHandler struct {
	svc *service.OperationService
}

func NewOperationHandler(svc *service.OperationService) *OperationHandler {
	return &OperationHandler{svc: svc}
}

func (h *OperationHandler) Create(c *gin.Context) {
	var req service.CreateOperationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
		return
	}
	op, err := h.svc.Create(c.Request.Context(), req, userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, op)
}

func (h *OperationHandler) Get(c *gin.Context) {
	op, err := h.svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, op)
}

func (h *OperationHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	params := repository.OperationListParams{
		Status:  c.Query("status"),
		Keyword: c.Query("keyword"),
		Page:    page,
		Size:    size,
	}
	ops, total, err := h.svc.List(c.Request.Context(), params)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, gin.H{"items": ops, "total": total, "page": page, "size": size})
}

func (h *OperationHandler) Update(c *gin.Context) {
	var req service.UpdateOperationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
		return
	}
	op, err := h.svc.Update(c.Request.Context(), c.Param("id"), req, userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, op)
}

func (h *OperationHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), userID(c)); err != nil {
		fail(c, err)
		return
	}
	success(c, nil)
}
