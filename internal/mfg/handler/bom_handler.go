package handler

import (
	"net/http"
	"strconv"

	"github.com/bitfantasy/nimo-mfg/internal/mfg/repository"
	"github.com/bitfantasy/nimo-mfg/internal/mfg/service"
	"github.com/gin-gonic/gin"
)

// BOMHandler BOM处理器
type BOMHandler struct {
	svc *service.BOMService
}

func NewBOMHandler(svc *service.BOMService) *BOMHandler {
	return &BOMHandler{svc: svc}
}

func (h *BOMHandler) Create(c *gin.Context) {
	var req service.CreateBOMRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
		return
	}
	bom, err := h.svc.Create(c.Request.Context(), req, userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, bom)
}

func (h *BOMHandler) Get(c *gin.Context) {
	bom, err := h.svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, bom)
}

func (h *BOMHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	params := repository.BOMListParams{
		Status:  c.Query("status"),
		BOMType: c.Query("bom_type"),
		ItemID:  c.Query("item_id"),
		Keyword: c.Query("keyword"),
		Page:    page,
		Size:    size,
	}
	boms, total, err := h.svc.List(c.Request.Context(), params)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, gin.H{"items": boms, "total": total, "page": page, "size": size})
}

func (h *BOMHandler) Update(c *gin.Context) {
	var req service.UpdateBOMRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
		return
	}
	bom, err := h.svc.Update(c.Request.Context(), c.Param("id"), req, userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, bom)
}

func (h *BOMHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), userID(c)); err != nil {
		fail(c, err)
		return
	}
	success(c, nil)
}

func (h *BOMHandler) Submit(c *gin.Context) {
	bom, err := h.svc.Submit(c.Request.Context(), c.Param("id"), userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, bom)
}

func (h *BOMHandler) Approve(c *gin.Context) {
	var req struct {
		Comments string `json:"comments"`
	}
	c.ShouldBindJSON(&req)
	bom, err := h.svc.Approve(c.Request.Context(), c.Param("id"), userID(c), req.Comments)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, bom)
}

func (h *BOMHandler) Deactivate(c *gin.Context) {
	bom, err := h.svc.Deactivate(c.Request.Context(), c.Param("id"), userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, bom)
}

// Explode 多级展开
func (h *BOMHandler) Explode(c *gin.Context) {
	rows, err := h.svc.Explode(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, rows)
}

// CostRollup 成本上卷
func (h *BOMHandler) CostRollup(c *gin.Context) {
	bom, err := h.svc.CostRollup(c.Request.Context(), c.Param("id"), userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, bom)
}

// Requirements 按计划产量计算物料需求
func (h *BOMHandler) Requirements(c *gin.Context) {
	quantity, err := strconv.ParseFloat(c.DefaultQuery("quantity", "1"), 64)
	if err != nil || quantity <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": "quantity 必须为正数"})
		return
	}
	rows, err := h.svc.Requirements(c.Request.Context(), c.Param("id"), quantity)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, rows)
}

// WhereUsed 反查物料被哪些BOM使用
func (h *BOMHandler) WhereUsed(c *gin.Context) {
	rows, err := h.svc.WhereUsed(c.Request.Context(), c.Param("itemId"))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, rows)
}

// Export 导出展开结果为xlsx
func (h *BOMHandler) Export(c *gin.Context) {
	f, filename, err := h.svc.ExportExplosion(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := f.Write(c.Writer); err != nil {
		c.Status(http.StatusInternalServerError)
	}
}
