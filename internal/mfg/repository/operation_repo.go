package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/nimo-mfg/internal/mfg/entity"
	"gorm.io/gorm"
)

// OperationRepository 工序主数据仓库
type OperationRepository struct {
	db *gorm.DB
}

func NewOperationRepository(db *gorm.DB) *OperationRepository {
	return &OperationRepository{db: db}
}

func (r *OperationRepository) Create(ctx context.Context, op *entity.Operation) error {
	return r.db.WithContext(ctx).Create(op).Error
}

func (r *OperationRepository) Update(ctx context.Context, op *entity.Operation) error {
	return r.db.WithContext(ctx).Save(op).Error
}

func (r *OperationRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Operation{}).Error
}

func (r *OperationRepository) GetByID(ctx context.Context, id string) (*entity.Operation, error) {
	var op entity.Operation
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&op).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &op, nil
}

func (r *OperationRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Operation{}).Where("code = ?", code).Count(&count).Error
	return count > 0, err
}

// OperationListParams 工序列表查询参数
type OperationListParams struct {
	Status  string
	Keyword string
	Page    int
	Size    int
}

func (r *OperationRepository) List(ctx context.Context, params OperationListParams) ([]entity.Operation, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.Operation{})
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	if params.Keyword != "" {
		kw := "%" + params.Keyword + "%"
		query = query.Where("code ILIKE ? OR name ILIKE ?", kw, kw)
	}
	var total int64
	query.Count(&total)
	if params.Page <= 0 {
		params.Page = 1
	}
	if params.Size <= 0 {
		params.Size = 20
	}
	var ops []entity.Operation
	err := query.Order("code ASC").Offset((params.Page - 1) * params.Size).Limit(params.Size).Find(&ops).Error
	return ops, total, err
}
