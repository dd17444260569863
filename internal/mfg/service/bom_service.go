package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-mfg/internal/mfg/entity"
	"github.com/bitfantasy/nimo-mfg/internal/mfg/repository"
	"github.com/bitfantasy/nimo-mfg/internal/shared/audit"
	"github.com/minio/minio-go/v7"
	"gorm.io/gorm"
)

// BOMService 物料清单服务
type BOMService struct {
	bomRepo      *repository.BOMRepository
	itemRepo     *repository.ItemRepository
	db           *gorm.DB
	sink         *audit.Sink
	minioClient  *minio.Client
	exportBucket string
}

func NewBOMService(bomRepo *repository.BOMRepository, itemRepo *repository.ItemRepository, db *gorm.DB, sink *audit.Sink, minioClient *minio.Client, exportBucket string) *BOMService {
	return &BOMService{
		bomRepo:      bomRepo,
		itemRepo:     itemRepo,
		db:           db,
		sink:         sink,
		minioClient:  minioClient,
		exportBucket: exportBucket,
	}
}

// BOMItemInput BOM行项入参
type BOMItemInput struct {
	ItemID          string  `json:"item_id" binding:"required"`
	ItemType        string  `json:"item_type"`
	Quantity        float64 `json:"quantity" binding:"required,gt=0"`
	Unit            string  `json:"unit"`
	ScrapPercentage float64 `json:"scrap_percentage"`
	UnitCost        float64 `json:"unit_cost"`
	Position        string  `json:"position"`
	Notes           string  `json:"notes"`
}

// CreateBOMRequest 创建BOM请求
type CreateBOMRequest struct {
	Code          string         `json:"code" binding:"required"`
	Name          string         `json:"name" binding:"required"`
	Version       string         `json:"version"`
	BOMType       string         `json:"bom_type"`
	ItemID        string         `json:"item_id" binding:"required"`
	Quantity      float64        `json:"quantity" binding:"required,gt=0"`
	Unit          string         `json:"unit"`
	IsDefault     bool           `json:"is_default"`
	OperationCost float64        `json:"operation_cost"`
	OverheadCost  float64        `json:"overhead_cost"`
	Description   string         `json:"description"`
	Items         []BOMItemInput `json:"items"`
}

// buildItems 将入参转换为行项，快照物料编码/名称并按不变式推算净量与成本
func (s *BOMService) buildItems(ctx context.Context, bomID string, inputs []BOMItemInput) ([]entity.BOMItem, error) {
	now := time.Now()
	items := make([]entity.BOMItem, 0, len(inputs))
	for i, in := range inputs {
		item, err := s.itemRepo.GetByID(ctx, in.ItemID)
		if err != nil {
			return nil, fmt.Errorf("行项物料 %s 不存在: %w", in.ItemID, err)
		}
		itemType := in.ItemType
		if itemType == "" {
			itemType = entity.BOMItemTypeComponent
		}
		unit := in.Unit
		if unit == "" {
			unit = item.Unit
		}
		unitCost := in.UnitCost
		if unitCost == 0 {
			unitCost = item.StandardCost
		}
		line := entity.BOMItem{
			ID:              repository.NewID(),
			BOMID:           bomID,
			Sequence:        i + 1,
			ItemID:          item.ID,
			ItemCode:        item.Code,
			ItemName:        item.Name,
			ItemType:        itemType,
			Quantity:        in.Quantity,
			Unit:            unit,
			ScrapPercentage: in.ScrapPercentage,
			UnitCost:        unitCost,
			Position:        in.Position,
			Notes:           in.Notes,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		line.Recalculate()
		items = append(items, line)
	}
	return items, nil
}

// Create 创建BOM（草稿状态）
func (s *BOMService) Create(ctx context.Context, req CreateBOMRequest, userID string) (*entity.BOM, error) {
	exists, err := s.bomRepo.ExistsByCode(ctx, req.Code)
	if err != nil {
		return nil, fmt.Errorf("检查BOM编码失败: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("BOM编码 %s 已存在: %w", req.Code, ErrDuplicateCode)
	}

	item, err := s.itemRepo.GetByID(ctx, req.ItemID)
	if err != nil {
		return nil, fmt.Errorf("产出物料不存在: %w", err)
	}

	bomType := req.BOMType
	if bomType == "" {
		bomType = entity.BOMTypeManufacture
	}
	version := req.Version
	if version == "" {
		version = "1.0"
	}
	unit := req.Unit
	if unit == "" {
		unit = item.Unit
	}

	now := time.Now()
	bom := &entity.BOM{
		ID:            repository.NewID(),
		Code:          req.Code,
		Name:          req.Name,
		Version:       version,
		BOMType:       bomType,
		Status:        entity.BOMStatusDraft,
		ItemID:        item.ID,
		ItemCode:      item.Code,
		ItemName:      item.Name,
		Quantity:      req.Quantity,
		Unit:          unit,
		IsDefault:     req.IsDefault,
		OperationCost: req.OperationCost,
		OverheadCost:  req.OverheadCost,
		Description:   req.Description,
		CreatedBy:     userID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	items, err := s.buildItems(ctx, bom.ID, req.Items)
	if err != nil {
		return nil, err
	}
	bom.Items = items
	bom.ApplyCostRollup(now)

	if err := s.bomRepo.Create(ctx, bom); err != nil {
		return nil, fmt.Errorf("创建BOM失败: %w", err)
	}
	s.sink.Record(userID, "bom.create", "bom", bom.ID, nil, bom)
	return bom, nil
}

func (s *BOMService) GetByID(ctx context.Context, id string) (*entity.BOM, error) {
	return s.bomRepo.GetByID(ctx, id)
}

func (s *BOMService) List(ctx context.Context, params repository.BOMListParams) ([]entity.BOM, int64, error) {
	return s.bomRepo.List(ctx, params)
}

// UpdateBOMRequest 更新BOM请求，仅草稿可改
type UpdateBOMRequest struct {
	Name          string         `json:"name"`
	Version       string         `json:"version"`
	BOMType       string         `json:"bom_type"`
	Quantity      *float64       `json:"quantity"`
	Unit          string         `json:"unit"`
	IsDefault     *bool          `json:"is_default"`
	OperationCost *float64       `json:"operation_cost"`
	OverheadCost  *float64       `json:"overhead_cost"`
	Description   string         `json:"description"`
	Items         []BOMItemInput `json:"items"`
}

// Update 更新BOM。激活后的结构性修改一律拒绝，需先转为停用
// （即"创建新版本"）。
func (s *BOMService) Update(ctx context.Context, id string, req UpdateBOMRequest, userID string) (*entity.BOM, error) {
	bom, err := s.bomRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !bom.Editable() {
		return nil, fmt.Errorf("BOM状态 %s 不允许修改: %w", bom.Status, ErrImmutable)
	}
	old := *bom

	if req.Name != "" {
		bom.Name = req.Name
	}
	if req.Version != "" {
		bom.Version = req.Version
	}
	if req.BOMType != "" {
		bom.BOMType = req.BOMType
	}
	if req.Quantity != nil && *req.Quantity > 0 {
		bom.Quantity = *req.Quantity
	}
	if req.Unit != "" {
		bom.Unit = req.Unit
	}
	if req.IsDefault != nil {
		bom.IsDefault = *req.IsDefault
	}
	if req.OperationCost != nil {
		bom.OperationCost = *req.OperationCost
	}
	if req.OverheadCost != nil {
		bom.OverheadCost = *req.OverheadCost
	}
	if req.Description != "" {
		bom.Description = req.Description
	}

	if req.Items != nil {
		items, err := s.buildItems(ctx, bom.ID, req.Items)
		if err != nil {
			return nil, err
		}
		if err := s.bomRepo.ReplaceItems(ctx, bom.ID, items); err != nil {
			return nil, fmt.Errorf("替换BOM行项失败: %w", err)
		}
		bom.Items = items
	}

	now := time.Now()
	bom.ApplyCostRollup(now)
	bom.UpdatedBy = userID
	bom.UpdatedAt = now

	if err := s.bomRepo.Update(ctx, bom); err != nil {
		return nil, fmt.Errorf("更新BOM失败: %w", err)
	}
	s.sink.Record(userID, "bom.update", "bom", bom.ID, old, bom)
	return bom, nil
}

// Delete 删除BOM，仅草稿允许
func (s *BOMService) Delete(ctx context.Context, id, userID string) error {
	bom, err := s.bomRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if bom.Status != entity.BOMStatusDraft {
		return fmt.Errorf("仅草稿BOM可删除: %w", ErrImmutable)
	}
	if err := s.bomRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("删除BOM失败: %w", err)
	}
	s.sink.Record(userID, "bom.delete", "bom", id, bom, nil)
	return nil
}

// Submit 提交审批 draft → submitted
func (s *BOMService) Submit(ctx context.Context, id, userID string) (*entity.BOM, error) {
	now := time.Now()
	ok, err := s.bomRepo.UpdateStatusCAS(ctx, id, entity.BOMStatusDraft, entity.BOMStatusSubmitted, map[string]interface{}{
		"submitted_by": userID,
		"submitted_at": now,
	})
	if err != nil {
		return nil, fmt.Errorf("提交BOM失败: %w", err)
	}
	if !ok {
		return nil, s.transitionError(ctx, id, "submit")
	}
	bom, err := s.bomRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.sink.Record(userID, "bom.submit", "bom", id, nil, bom)
	return bom, nil
}

// Approve 审批通过 submitted → active。
// 同一物料的激活BOM中至多一个默认，默认标记在同一事务内收敛。
func (s *BOMService) Approve(ctx context.Context, id, userID, comments string) (*entity.BOM, error) {
	now := time.Now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&entity.BOM{}).
			Where("id = ? AND status = ?", id, entity.BOMStatusSubmitted).
			Updates(map[string]interface{}{
				"status":            entity.BOMStatusActive,
				"approved_by":       userID,
				"approved_at":       now,
				"approval_comments": comments,
				"updated_at":        now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return s.transitionError(ctx, id, "approve")
		}

		var bom entity.BOM
		if err := tx.Where("id = ?", id).First(&bom).Error; err != nil {
			return err
		}
		if bom.IsDefault {
			return s.bomRepo.ClearDefaultForItem(ctx, tx, bom.ItemID, bom.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	bom, err := s.bomRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.sink.Record(userID, "bom.approve", "bom", id, nil, bom)
	return bom, nil
}

// Deactivate 停用 active → inactive，停用后才能再编辑出新版本
func (s *BOMService) Deactivate(ctx context.Context, id, userID string) (*entity.BOM, error) {
	ok, err := s.bomRepo.UpdateStatusCAS(ctx, id, entity.BOMStatusActive, entity.BOMStatusInactive, map[string]interface{}{
		"is_default": false,
		"updated_by": userID,
	})
	if err != nil {
		return nil, fmt.Errorf("停用BOM失败: %w", err)
	}
	if !ok {
		return nil, s.transitionError(ctx, id, "deactivate")
	}
	bom, err := s.bomRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.sink.Record(userID, "bom.deactivate", "bom", id, nil, bom)
	return bom, nil
}

// transitionError 区分记录不存在与状态不允许
func (s *BOMService) transitionError(ctx context.Context, id, action string) error {
	bom, err := s.bomRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("BOM状态 %s 不允许 %s: %w", bom.Status, action, ErrInvalidTransition)
}

// CostRollup 单层成本汇总，幂等：行项不变时重复执行结果一致
func (s *BOMService) CostRollup(ctx context.Context, id, userID string) (*entity.BOM, error) {
	bom, err := s.bomRepo.CostRollup(ctx, id, time.Now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("成本汇总失败: %w", err)
	}
	s.sink.Record(userID, "bom.cost_rollup", "bom", id, nil, map[string]interface{}{
		"material_cost": bom.MaterialCost,
		"total_cost":    bom.TotalCost,
		"cost_per_unit": bom.CostPerUnit,
	})
	return bom, nil
}

// WhereUsed 反查直接消耗某物料的全部BOM，不递归
func (s *BOMService) WhereUsed(ctx context.Context, itemID string) ([]repository.WhereUsedRow, error) {
	return s.bomRepo.WhereUsed(ctx, itemID)
}
