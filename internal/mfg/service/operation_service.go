package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-mfg/internal/mfg/entity"
	"github.com/bitfantasy/nimo-mfg/internal/mfg/repository"
	"github.com/bitfantasy/nimo-mfg/internal/shared/audit"
)

// OperationService 工序主数据服务
type OperationService struct {
	opRepo *repository.OperationRepository
	sink   *audit.Sink
}

func NewOperationService(opRepo *repository.OperationRepository, sink *audit.Sink) *OperationService {
	return &OperationService{opRepo: opRepo, sink: sink}
}

// CreateOperationRequest 创建工序请求
type CreateOperationRequest struct {
	Code           string  `json:"code" binding:"required"`
	Name           string  `json:"name" binding:"required"`
	WorkCenterID   string  `json:"work_center_id"`
	WorkCenterName string  `json:"work_center_name"`
	SetupTime      float64 `json:"setup_time"`
	RunTimePerUnit float64 `json:"run_time_per_unit"`
	TeardownTime   float64 `json:"teardown_time"`
	StandardRate   float64 `json:"standard_rate"`
	Description    string  `json:"description"`
}

func (s *OperationService) Create(ctx context.Context, req CreateOperationRequest, userID string) (*entity.Operation, error) {
	exists, err := s.opRepo.ExistsByCode(ctx, req.Code)
	if err != nil {
		return nil, fmt.Errorf("检查工序编码失败: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("工序编码 %s 已存在: %w", req.Code, ErrDuplicateCode)
	}

	now := time.Now()
	op := &entity.Operation{
		ID:             repository.NewID(),
		Code:           req.Code,
		Name:           req.Name,
		WorkCenterID:   req.WorkCenterID,
		WorkCenterName: req.WorkCenterName,
		SetupTime:      req.SetupTime,
		RunTimePerUnit: req.RunTimePerUnit,
		TeardownTime:   req.TeardownTime,
		StandardRate:   req.StandardRate,
		Status:         entity.OperationStatusActive,
		Description:    req.Description,
		CreatedBy:      userID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.opRepo.Create(ctx, op); err != nil {
		return nil, fmt.Errorf("创建工序失败: %w", err)
	}
	s.sink.Record(userID, "operation.create", "operation", op.ID, nil, op)
	return op, nil
}

func (s *OperationService) GetByID(ctx context.Context, id string) (*entity.Operation, error) {
	return s.opRepo.GetByID(ctx, id)
}

func (s *OperationService) List(ctx context.Context, params repository.OperationListParams) ([]entity.Operation, int64, error) {
	return s.opRepo.List(ctx, params)
}

// UpdateOperationRequest 更新工序请求。
// 已有路线步骤持有的是快照，此处修改不回溯。
type UpdateOperationRequest struct {
	Name           string   `json:"name"`
	WorkCenterID   string   `json:"work_center_id"`
	WorkCenterName string   `json:"work_center_name"`
	SetupTime      *float64 `json:"setup_time"`
	RunTimePerUnit *float64 `json:"run_time_per_unit"`
	TeardownTime   *float64 `json:"teardown_time"`
	StandardRate   *float64 `json:"standard_rate"`
	Status         string   `json:"status"`
	Description    string   `json:"description"`
}

func (s *OperationService) Update(ctx context.Context, id string, req UpdateOperationRequest, userID string) (*entity.Operation, error) {
	op, err := s.opRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	old := *op

	if req.Name != "" {
		op.Name = req.Name
	}
	if req.WorkCenterID != "" {
		op.WorkCenterID = req.WorkCenterID
		op.WorkCenterName = req.WorkCenterName
	}
	if req.SetupTime != nil {
		op.SetupTime = *req.SetupTime
	}
	if req.RunTimePerUnit != nil {
		op.RunTimePerUnit = *req.RunTimePerUnit
	}
	if req.TeardownTime != nil {
		op.TeardownTime = *req.TeardownTime
	}
	if req.StandardRate != nil {
		op.StandardRate = *req.StandardRate
	}
	if req.Status != "" {
		op.Status = req.Status
	}
	if req.Description != "" {
		op.Description = req.Description
	}
	op.UpdatedAt = time.Now()

	if err := s.opRepo.Update(ctx, op); err != nil {
		return nil, fmt.Errorf("更新工序失败: %w", err)
	}
	s.sink.Record(userID, "operation.update", "operation", op.ID, old, op)
	return op, nil
}

func (s *OperationService) Delete(ctx context.Context, id, userID string) error {
	op, err := s.opRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.opRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("删除工序失败: %w", err)
	}
	s.sink.Record(userID, "operation.delete", "operation", id, op, nil)
	return nil
}
