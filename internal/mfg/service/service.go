package service

import (
	"errors"

	"github.com/bitfantasy/nimo-mfg/internal/mfg/repository"
	"github.com/bitfantasy/nimo-mfg/internal/shared/audit"
	"github.com/bitfantasy/nimo-mfg/internal/shared/eventbus"
	"github.com/minio/minio-go/v7"
	"gorm.io/gorm"
)

// 领域错误定义，处理器据此映射HTTP状态
var (
	ErrDuplicateCode     = errors.New("duplicate code")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrImmutable         = errors.New("record not editable in current status")
	ErrCircularBOM       = errors.New("circular BOM reference")
)

// Services 制造模块服务集合
type Services struct {
	Item            *ItemService
	BOM             *BOMService
	Routing         *RoutingService
	Operation       *OperationService
	WorkOrder       *WorkOrderService
	ProductionEntry *ProductionEntryService
}

// NewServices 创建服务集合
func NewServices(repos *repository.Repositories, db *gorm.DB, bus *eventbus.Bus, sink *audit.Sink, minioClient *minio.Client, exportBucket string) *Services {
	return &Services{
		Item:            NewItemService(repos.Item, sink),
		BOM:             NewBOMService(repos.BOM, repos.Item, db, sink, minioClient, exportBucket),
		Routing:         NewRoutingService(repos.Routing, repos.Operation, repos.Item, repos.BOM, sink),
		Operation:       NewOperationService(repos.Operation, sink),
		WorkOrder:       NewWorkOrderService(repos.WorkOrder, repos.BOM, repos.Routing, repos.Item, db, bus, sink),
		ProductionEntry: NewProductionEntryService(repos.ProductionEntry, repos.WorkOrder, repos.Item, db, sink),
	}
}
