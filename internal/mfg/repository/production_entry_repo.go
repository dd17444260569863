package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bitfantasy/nimo-mfg/internal/mfg/entity"
	"gorm.io/gorm"
)

// ProductionEntryRepository 生产报工单仓库
type ProductionEntryRepository struct {
	db *gorm.DB
}

func NewProductionEntryRepository(db *gorm.DB) *ProductionEntryRepository {
	return &ProductionEntryRepository{db: db}
}

func (r *ProductionEntryRepository) Create(ctx context.Context, pe *entity.ProductionEntry) error {
	return r.db.WithContext(ctx).Create(pe).Error
}

func (r *ProductionEntryRepository) Update(ctx context.Context, pe *entity.ProductionEntry) error {
	return r.db.WithContext(ctx).Save(pe).Error
}

func (r *ProductionEntryRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.ProductionEntry{}).Error
}

func (r *ProductionEntryRepository) GetByID(ctx context.Context, id string) (*entity.ProductionEntry, error) {
	var pe entity.ProductionEntry
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&pe).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &pe, nil
}

func (r *ProductionEntryRepository) ExistsByNumber(ctx context.Context, number string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.ProductionEntry{}).Where("number = ?", number).Count(&count).Error
	return count > 0, err
}

// PEListParams 报工单列表查询参数
type PEListParams struct {
	WorkOrderID string
	Status      string
	Keyword     string
	Page        int
	Size        int
}

func (r *ProductionEntryRepository) List(ctx context.Context, params PEListParams) ([]entity.ProductionEntry, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.ProductionEntry{})
	if params.WorkOrderID != "" {
		query = query.Where("work_order_id = ?", params.WorkOrderID)
	}
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	if params.Keyword != "" {
		kw := "%" + params.Keyword + "%"
		query = query.Where("number ILIKE ? OR work_order_number ILIKE ?", kw, kw)
	}
	var total int64
	query.Count(&total)
	if params.Page <= 0 {
		params.Page = 1
	}
	if params.Size <= 0 {
		params.Size = 20
	}
	var entries []entity.ProductionEntry
	err := query.Order("created_at DESC").Offset((params.Page - 1) * params.Size).Limit(params.Size).Find(&entries).Error
	return entries, total, err
}

// UpdateStatusCAS 条件更新状态，使报工单不可能被重复过账或重复冲销
func (r *ProductionEntryRepository) UpdateStatusCAS(ctx context.Context, tx *gorm.DB, id, from, to string, updates map[string]interface{}) (bool, error) {
	db := r.db
	if tx != nil {
		db = tx
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = to
	updates["updated_at"] = time.Now()
	result := db.WithContext(ctx).
		Model(&entity.ProductionEntry{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// DB 返回底层db用于事务
func (r *ProductionEntryRepository) DB() *gorm.DB {
	return r.db
}
