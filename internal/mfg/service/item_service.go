package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-mfg/internal/mfg/entity"
	"github.com/bitfantasy/nimo-mfg/internal/mfg/repository"
	"github.com/bitfantasy/nimo-mfg/internal/shared/audit"
)

// ItemService 物料主数据服务
type ItemService struct {
	itemRepo *repository.ItemRepository
	sink     *audit.Sink
}

func NewItemService(itemRepo *repository.ItemRepository, sink *audit.Sink) *ItemService {
	return &ItemService{itemRepo: itemRepo, sink: sink}
}

// CreateItemRequest 创建物料请求
type CreateItemRequest struct {
	Code         string  `json:"code" binding:"required"`
	Name         string  `json:"name" binding:"required"`
	Type         string  `json:"type"`
	Unit         string  `json:"unit"`
	StandardCost float64 `json:"standard_cost"`
	SafetyStock  float64 `json:"safety_stock"`
	LeadTimeDays int     `json:"lead_time_days"`
	Notes        string  `json:"notes"`
}

func (s *ItemService) Create(ctx context.Context, req CreateItemRequest, userID string) (*entity.Item, error) {
	exists, err := s.itemRepo.ExistsByCode(ctx, req.Code)
	if err != nil {
		return nil, fmt.Errorf("检查物料编码失败: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("物料编码 %s 已存在: %w", req.Code, ErrDuplicateCode)
	}

	itemType := req.Type
	if itemType == "" {
		itemType = entity.ItemTypePurchased
	}
	unit := req.Unit
	if unit == "" {
		unit = "pcs"
	}

	now := time.Now()
	item := &entity.Item{
		ID:           repository.NewID(),
		Code:         req.Code,
		Name:         req.Name,
		Type:         itemType,
		Unit:         unit,
		StandardCost: req.StandardCost,
		SafetyStock:  req.SafetyStock,
		LeadTimeDays: req.LeadTimeDays,
		Status:       "active",
		Notes:        req.Notes,
		CreatedBy:    userID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.itemRepo.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("创建物料失败: %w", err)
	}
	s.sink.Record(userID, "item.create", "item", item.ID, nil, item)
	return item, nil
}

func (s *ItemService) GetByID(ctx context.Context, id string) (*entity.Item, error) {
	return s.itemRepo.GetByID(ctx, id)
}

func (s *ItemService) List(ctx context.Context, params repository.ItemListParams) ([]entity.Item, int64, error) {
	return s.itemRepo.List(ctx, params)
}

// UpdateItemRequest 更新物料请求
type UpdateItemRequest struct {
	Name         string   `json:"name"`
	Unit         string   `json:"unit"`
	StandardCost *float64 `json:"standard_cost"`
	SafetyStock  *float64 `json:"safety_stock"`
	LeadTimeDays *int     `json:"lead_time_days"`
	Status       string   `json:"status"`
	Notes        string   `json:"notes"`
}

func (s *ItemService) Update(ctx context.Context, id string, req UpdateItemRequest, userID string) (*entity.Item, error) {
	item, err := s.itemRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	old := *item

	if req.Name != "" {
		item.Name = req.Name
	}
	if req.Unit != "" {
		item.Unit = req.Unit
	}
	if req.StandardCost != nil {
		item.StandardCost = *req.StandardCost
	}
	if req.SafetyStock != nil {
		item.SafetyStock = *req.SafetyStock
	}
	if req.LeadTimeDays != nil {
		item.LeadTimeDays = *req.LeadTimeDays
	}
	if req.Status != "" {
		item.Status = req.Status
	}
	if req.Notes != "" {
		item.Notes = req.Notes
	}
	item.UpdatedAt = time.Now()

	if err := s.itemRepo.Update(ctx, item); err != nil {
		return nil, fmt.Errorf("更新物料失败: %w", err)
	}
	s.sink.Record(userID, "item.update", "item", item.ID, old, item)
	return item, nil
}

func (s *ItemService) Delete(ctx context.Context, id, userID string) error {
	item, err := s.itemRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.itemRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("删除物料失败: %w", err)
	}
	s.sink.Record(userID, "item.delete", "item", id, item, nil)
	return nil
}
