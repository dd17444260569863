package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bitfantasy/nimo-mfg/internal/mfg/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RoutingRepository 工艺路线仓库
type RoutingRepository struct {
	db *gorm.DB
}

func NewRoutingRepository(db *gorm.DB) *RoutingRepository {
	return &RoutingRepository{db: db}
}

func (r *RoutingRepository) Create(ctx context.Context, routing *entity.Routing) error {
	return r.db.WithContext(ctx).Create(routing).Error
}

// Update 在行锁内整行保存，聚合字段与工序序列一并落库
func (r *RoutingRepository) Update(ctx context.Context, routing *entity.Routing) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current entity.Routing
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", routing.ID).
			First(&current).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		return tx.Save(routing).Error
	})
}

func (r *RoutingRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Routing{}).Error
}

func (r *RoutingRepository) GetByID(ctx context.Context, id string) (*entity.Routing, error) {
	var routing entity.Routing
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&routing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &routing, nil
}

func (r *RoutingRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Routing{}).Where("code = ?", code).Count(&count).Error
	return count > 0, err
}

// RoutingListParams 工艺路线列表查询参数
type RoutingListParams struct {
	Status  string
	ItemID  string
	BOMID   string
	Keyword string
	Page    int
	Size    int
}

func (r *RoutingRepository) List(ctx context.Context, params RoutingListParams) ([]entity.Routing, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.Routing{})
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
	var routings []entity.Routing
	err := query.Order("created_at DESC").Offset((params.Page - 1) * params.Size).Limit(params.Size).Find(&routings).Error
	return routings, total, err
}

// UpdateStatusCAS 条件更新状态，仅当当前状态等于 from 时生效
func (r *RoutingRepository) UpdateStatusCAS(ctx context.Context, id, from, to string, updates map[string]interface{}) (bool, error) {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = to
	updates["updated_at"] = time.Now()
	result := r.db.WithContext(ctx).
		Model(&entity.Routing{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
