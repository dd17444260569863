package handler

import (
	"errors"
	"net/http"

	"github.com/bitfantasy/nimo-mfg/internal/mfg/repository"
	"github.com/bitfantasy/nimo-mfg/internal/mfg/service"
	"github.com/gin-gonic/gin"
)

// Handlers 制造模块HTTP处理器集合
type Handlers struct {
	Item            *ItemHandler
	BOM             *BOMHandler
	Routing         *RoutingHandler
	Operation       *OperationHandler
	WorkOrder       *WorkOrderHandler
	ProductionEntry *ProductionEntryHandler
}

func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{
		Item:            NewItemHandler(services.Item),
		BOM:             NewBOMHandler(services.BOM),
		Routing:         NewRoutingHandler(services.Routing),
		Operation:       NewOperationHandler(services.Operation),
		WorkOrder:       NewWorkOrderHandler(services.WorkOrder),
		ProductionEntry: NewProductionEntryHandler(services.ProductionEntry),
	}
}

// fail 按领域错误映射响应码：
// 10002 资源不存在 / 10003 编码冲突 / 10004 状态不允许 / 50001 其他
func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"code": 10002, "message": err.Error()})
	case errors.Is(err, service.ErrDuplicateCode):
		c.JSON(http.StatusConflict, gin.H{"code": 10003, "message": err.Error()})
	case errors.Is(err, service.ErrInvalidTransition), errors.Is(err, service.ErrImmutable), errors.Is(err, service.ErrCircularBOM):
		c.JSON(http.StatusBadRequest, gin.H{"code": 10004, "message": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"code": 50001, "message": err.Error()})
	}
}

func success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": data})
}

func userID(c *gin.Context) string {
	if v, ok := c.Get("user_id"); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
