package repository

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 错误定义
var (
	ErrNotFound      = errors.New("record not found")
	ErrTerminalState = errors.New("record in terminal state")
)

// generateID 生成32位ID
func generateID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:32]
}

// NewID 对外暴露的ID生成器
func NewID() string {
	return generateID()
}

// Repositories 制造模块仓库集合
type Repositories struct {
	Item            *ItemRepository
	BOM             *BOMRepository
	Routing         *RoutingRepository
	Operation       *OperationRepository
	WorkOrder       *WorkOrderRepository
	ProductionEntry *ProductionEntryRepository
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Item:            NewItemRepository(db),
		BOM:             NewBOMRepository(db),
		Routing:         NewRoutingRepository(db),
		Operation:       NewOperationRepository(db),
		WorkOrder:       NewWorkOrderRepository(db),
		ProductionEntry: NewProductionEntryRepository(db),
	}
}
