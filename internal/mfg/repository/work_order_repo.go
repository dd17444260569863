package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bitfantasy/nimo-mfg/internal/mfg/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WorkOrderRepository 工单仓库
type WorkOrderRepository struct {
	db *gorm.DB
}

func NewWorkOrderRepository(db *gorm.DB) *WorkOrderRepository {
	return &WorkOrderRepository{db: db}
}

func (r *WorkOrderRepository) Create(ctx context.Context, wo *entity.WorkOrder) error {
	return r.db.WithContext(ctx).Create(wo).Error
}

func (r *WorkOrderRepository) Update(ctx context.Context, wo *entity.WorkOrder) error {
	return r.db.WithContext(ctx).Save(wo).Error
}

// Delete 删除工单及其物料行
func (r *WorkOrderRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("work_order_id = ?", id).Delete(&entity.WorkOrderItem{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&entity.WorkOrder{}).Error
	})
}

func (r *WorkOrderRepository) GetByID(ctx context.Context, id string) (*entity.WorkOrder, error) {
	var wo entity.WorkOrder
	err := r.db.WithContext(ctx).Preload("Items").Where("id = ?", id).First(&wo).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &wo, nil
}

func (r *WorkOrderRepository) ExistsByNumber(ctx context.Context, number string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.WorkOrder{}).Where("number = ?", number).Count(&count).Error
	return count > 0, err
}

// WOListParams 工单列表查询参数
type WOListParams struct {
	Status  string
	ItemID  string
	BOMID   string
	Keyword string
	Page    int
	Size    int
}

func (r *WorkOrderRepository) List(ctx context.Context, params WOListParams) ([]entity.WorkOrder, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.WorkOrder{})
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	if params.ItemID != "" {
		query = query.Where("item_id = ?", params.ItemID)
	}
	if params.BOMID != "" {
		query = query.Where("bom_id = ?", params.BOMID)
	}
	if params.Keyword != "" {
		kw := "%" + params.Keyword + "%"
		query = query.Where("number ILIKE ? OR item_name ILIKE ?", kw, kw)
	}
	var total int64
	query.Count(&total)
	if params.Page <= 0 {
		params.Page = 1
	}
	if params.Size <= 0 {
		params.Size = 20
	}
	var wos []entity.WorkOrder
	err := query.Order("created_at DESC").Offset((params.Page - 1) * params.Size).Limit(params.Size).Find(&wos).Error
	return wos, total, err
}

// UpdateStatusCAS 状态机转移的原子写：仅当当前状态等于 from 时生效，
// 两个并发请求不可能都观察到同一 from 并各自转移成功。
func (r *WorkOrderRepository) UpdateStatusCAS(ctx context.Context, id, from, to string, updates map[string]interface{}) (bool, error) {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = to
	updates["updated_at"] = time.Now()
	result := r.db.WithContext(ctx).
		Model(&entity.WorkOrder{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ProductionDelta 报工过账/冲销对工单的增量影响，冲销时各量取负
type ProductionDelta struct {
	Produced      float64
	Accepted      float64
	Rejected      float64
	Scrap         float64
	MaterialCost  float64
	OperationCost float64
	OverheadCost  float64
}

// ApplyProductionDelta 在行锁内累计产量与实际成本并重算进度
func (r *WorkOrderRepository) ApplyProductionDelta(ctx context.Context, tx *gorm.DB, id string, delta ProductionDelta) error {
	db := r.db
	if tx != nil {
		db = tx
	}
	var wo entity.WorkOrder
	if err := db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&wo).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	wo.ProducedQuantity += delta.Produced
	wo.AcceptedQuantity += delta.Accepted
	wo.RejectedQuantity += delta.Rejected
	wo.ScrapQuantity += delta.Scrap
	wo.ActualMaterialCost += delta.MaterialCost
	wo.ActualOperationCost += delta.OperationCost
	wo.ActualOverheadCost += delta.OverheadCost
	wo.ActualTotalCost = wo.ActualMaterialCost + wo.ActualOperationCost + wo.ActualOverheadCost
	wo.RecalculateProgress()
	wo.UpdatedAt = time.Now()
	return db.WithContext(ctx).Omit("Items").Save(&wo).Error
}

// UpdateProgress 在行锁内按不变式重设产量与进度
func (r *WorkOrderRepository) UpdateProgress(ctx context.Context, id string, producedQuantity float64) (*entity.WorkOrder, error) {
	var wo entity.WorkOrder
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			First(&wo).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if entity.WorkOrderTerminal(wo.Status) {
			return ErrTerminalState
		}
		wo.ProducedQuantity = producedQuantity
		wo.RecalculateProgress()
		wo.UpdatedAt = time.Now()
		return tx.Omit("Items").Save(&wo).Error
	})
	if err != nil {
		return nil, err
	}
	return &wo, nil
}

// DB 返回底层db用于事务
func (r *WorkOrderRepository) DB() *gorm.DB {
	return r.db
}
