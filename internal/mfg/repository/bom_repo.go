package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bitfantasy/nimo-mfg/internal/mfg/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BOMRepository BOM仓库
type BOMRepository struct {
	db *gorm.DB
}

// NewBOMRepository 创建BOM仓库
func NewBOMRepository(db *gorm.DB) *BOMRepository {
	return &BOMRepository{db: db}
}

// Create 创建BOM（含行项）
func (r *BOMRepository) Create(ctx context.Context, bom *entity.BOM) error {
	return r.db.WithContext(ctx).Create(bom).Error
}

// Update 更新BOM头
func (r *BOMRepository) Update(ctx context.Context, bom *entity.BOM) error {
	return r.db.WithContext(ctx).Save(bom).Error
}

// Delete 删除BOM及其行项
func (r *BOMRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("bom_id = ?", id).Delete(&entity.BOMItem{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&entity.BOM{}).Error
	})
}

// GetByID 根据ID获取BOM（含行项，按序号排序）
func (r *BOMRepository) GetByID(ctx context.Context, id string) (*entity.BOM, error) {
	var bom entity.BOM
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		Where("id = ?", id).
		First(&bom).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &bom, nil
}

// GetDefaultActiveByItemID 获取物料的默认激活BOM，
// 展开与反查的默认解析入口。
func (r *BOMRepository) GetDefaultActiveByItemID(ctx context.Context, itemID string) (*entity.BOM, error) {
	var bom entity.BOM
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		Where("item_id = ? AND is_default = ? AND status = ?", itemID, true, entity.BOMStatusActive).
		First(&bom).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &bom, nil
}

// ExistsByCode 检查编码是否已存在
func (r *BOMRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.BOM{}).Where("code = ?", code).Count(&count).Error
	return count > 0, err
}

// BOMListParams BOM列表查询参数
type BOMListParams struct {
	Status  string
	BOMType string
	ItemID  string
	Keyword string
	Page    int
	Size    int
}

// List 分页查询BOM
func (r *BOMRepository) List(ctx context.Context, params BOMListParams) ([]entity.BOM, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.BOM{})
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	if params.BOMType != "" {
		query = query.Where("bom_type = ?", params.BOMType)
	}
	if params.ItemID != "" {
		query = query.Where("item_id = ?", params.ItemID)
	}
	if params.Keyword != "" {
		kw := "%" + params.Keyword + "%"
		query = query.Where("code ILIKE ? OR name ILIKE ? OR item_name ILIKE ?", kw, kw, kw)
	}
	var total int64
	query.Count(&total)
	if params.Page <= 0 {
		params.Page = 1
	}
	if params.Size <= 0 {
		params.Size = 20
	}
	var boms []entity.BOM
	err := query.Order("created_at DESC").Offset((params.Page - 1) * params.Size).Limit(params.Size).Find(&boms).Error
	return boms, total, err
}

// ReplaceItems 替换BOM行项
func (r *BOMRepository) ReplaceItems(ctx context.Context, bomID string, items []entity.BOMItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("bom_id = ?", bomID).Delete(&entity.BOMItem{}).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		return tx.Create(&items).Error
	})
}

// UpdateStatusCAS 条件更新状态：仅当当前状态等于 from 时生效。
// 返回 false 表示状态已被并发修改或不满足前置条件。
func (r *BOMRepository) UpdateStatusCAS(ctx context.Context, id, from, to string, updates map[string]interface{}) (bool, error) {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = to
	updates["updated_at"] = time.Now()
	result := r.db.WithContext(ctx).
		Model(&entity.BOM{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ClearDefaultForItem 取消物料下其他BOM的默认标记，保持
// 激活BOM中至多一个默认的约束。
func (r *BOMRepository) ClearDefaultForItem(ctx context.Context, tx *gorm.DB, itemID, exceptBOMID string) error {
	db := r.db
	if tx != nil {
		db = tx
	}
	return db.WithContext(ctx).
		Model(&entity.BOM{}).
		Where("item_id = ? AND id <> ? AND is_default = ?", itemID, exceptBOMID, true).
		Update("is_default", false).Error
}

// CostRollup 在行锁保护下重算BOM头成本字段，
// 读取方不会观察到部分更新的成本合计。
func (r *BOMRepository) CostRollup(ctx context.Context, id string, now time.Time) (*entity.BOM, error) {
	var bom entity.BOM
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			First(&bom).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if err := tx.Where("bom_id = ?", id).Order("sequence ASC").Find(&bom.Items).Error; err != nil {
			return err
		}
		bom.ApplyCostRollup(now)
		return tx.Model(&entity.BOM{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"material_cost":         bom.MaterialCost,
				"total_cost":            bom.TotalCost,
				"cost_per_unit":         bom.CostPerUnit,
				"last_cost_rollup_date": now,
				"updated_at":            now,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return &bom, nil
}

// WhereUsedRow 反查结果行
type WhereUsedRow struct {
	BOMID          string  `json:"bom_id"`
	BOMCode        string  `json:"bom_code"`
	BOMName        string  `json:"bom_name"`
	ParentItemCode string  `json:"parent_item_code"`
	ParentItemName string  `json:"parent_item_name"`
	Quantity       float64 `json:"quantity"`
	Status         string  `json:"status"`
	IsActive       bool    `json:"is_active"`
}

// WhereUsed 反向查询直接消耗某物料的全部BOM
func (r *BOMRepository) WhereUsed(ctx context.Context, itemID string) ([]WhereUsedRow, error) {
	var rows []WhereUsedRow
	err := r.db.WithContext(ctx).
		Table("mfg_bom_items").
		Select(`mfg_boms.id AS bom_id,
			mfg_boms.code AS bom_code,
			mfg_boms.name AS bom_name,
			mfg_boms.item_code AS parent_item_code,
			mfg_boms.item_name AS parent_item_name,
			mfg_bom_items.quantity AS quantity,
			mfg_boms.status AS status,
			mfg_boms.status = 'active' AS is_active`).
		Joins("JOIN mfg_boms ON mfg_boms.id = mfg_bom_items.bom_id").
		Where("mfg_bom_items.item_id = ?", itemID).
		Order("mfg_boms.code ASC").
		Scan(&rows).Error
	return rows, err
}
