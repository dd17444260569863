package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-mfg/internal/mfg/entity"
	"github.com/bitfantasy/nimo-mfg/internal/mfg/repository"
	"github.com/bitfantasy/nimo-mfg/internal/shared/audit"
)

// RoutingService 工艺路线服务
type RoutingService struct {
	routingRepo *repository.RoutingRepository
	opRepo      *repository.OperationRepository
	itemRepo    *repository.ItemRepository
	bomRepo     *repository.BOMRepository
	sink        *audit.Sink
}

func NewRoutingService(routingRepo *repository.RoutingRepository, opRepo *repository.OperationRepository, itemRepo *repository.ItemRepository, bomRepo *repository.BOMRepository, sink *audit.Sink) *RoutingService {
	return &RoutingService{
		routingRepo: routingRepo,
		opRepo:      opRepo,
		itemRepo:    itemRepo,
		bomRepo:     bomRepo,
		sink:        sink,
	}
}

// RoutingOperationInput 工序步骤入参，引用工序主数据
type RoutingOperationInput struct {
	Sequence           int      `json:"sequence"`
	OperationID        string   `json:"operation_id" binding:"required"`
	WorkCenterID       string   `json:"work_center_id"`
	WorkCenterName     string   `json:"work_center_name"`
	SetupTime          *float64 `json:"setup_time"`
	RunTimePerUnit     *float64 `json:"run_time_per_unit"`
	TeardownTime       *float64 `json:"teardown_time"`
	BatchSize          float64  `json:"batch_size"`
	OperatorCount      int      `json:"operator_count"`
	MachineCount       int      `json:"machine_count"`
	CostPerUnit        *float64 `json:"cost_per_unit"`
	RequiresInspection bool     `json:"requires_inspection"`
	InspectionNotes    string   `json:"inspection_notes"`
}

// buildOperations 将入参转换为嵌入步骤，对工序主数据做字段快照，
// 之后修改主数据不回溯已有路线。
func (s *RoutingService) buildOperations(ctx context.Context, inputs []RoutingOperationInput) ([]entity.RoutingOperation, error) {
	ops := make([]entity.RoutingOperation, 0, len(inputs))
	for i, in := range inputs {
		master, err := s.opRepo.GetByID(ctx, in.OperationID)
		if err != nil {
			return nil, fmt.Errorf("工序 %s 不存在: %w", in.OperationID, err)
		}
		step := entity.RoutingOperation{
			Sequence:           in.Sequence,
			OperationID:        master.ID,
			OperationCode:      master.Code,
			OperationName:      master.Name,
			WorkCenterID:       master.WorkCenterID,
			WorkCenterName:     master.WorkCenterName,
			SetupTime:          master.SetupTime,
			RunTimePerUnit:     master.RunTimePerUnit,
			TeardownTime:       master.TeardownTime,
			BatchSize:          in.BatchSize,
			OperatorCount:      in.OperatorCount,
			MachineCount:       in.MachineCount,
			CostPerUnit:        master.StandardRate,
			RequiresInspection: in.RequiresInspection,
			InspectionNotes:    in.InspectionNotes,
		}
		if step.Sequence == 0 {
			step.Sequence = (i + 1) * 10
		}
		if in.WorkCenterID != "" {
			step.WorkCenterID = in.WorkCenterID
			step.WorkCenterName = in.WorkCenterName
		}
		// 入参显式给定的时间/成本覆盖主数据快照
		if in.SetupTime != nil {
			step.SetupTime = *in.SetupTime
		}
		if in.RunTimePerUnit != nil {
			step.RunTimePerUnit = *in.RunTimePerUnit
		}
		if in.TeardownTime != nil {
			step.TeardownTime = *in.TeardownTime
		}
		if in.CostPerUnit != nil {
			step.CostPerUnit = *in.CostPerUnit
		}
		if step.BatchSize <= 0 {
			step.BatchSize = 1
		}
		ops = append(ops, step)
	}
	return ops, nil
}

// CreateRoutingRequest 创建工艺路线请求
type CreateRoutingRequest struct {
	Code        string                  `json:"code" binding:"required"`
	Name        string                  `json:"name" binding:"required"`
	ItemID      string                  `json:"item_id" binding:"required"`
	BOMID       string                  `json:"bom_id"`
	BatchSize   float64                 `json:"batch_size"`
	Description string                  `json:"description"`
	Operations  []RoutingOperationInput `json:"operations"`
}

// Create 创建工艺路线并计算聚合字段
func (s *RoutingService) Create(ctx context.Context, req CreateRoutingRequest, userID string) (*entity.Routing, error) {
	exists, err := s.routingRepo.ExistsByCode(ctx, req.Code)
	if err != nil {
		return nil, fmt.Errorf("检查路线编码失败: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("路线编码 %s 已存在: %w", req.Code, ErrDuplicateCode)
	}

	item, err := s.itemRepo.GetByID(ctx, req.ItemID)
	if err != nil {
		return nil, fmt.Errorf("产出物料不存在: %w", err)
	}
	if req.BOMID != "" {
		if _, err := s.bomRepo.GetByID(ctx, req.BOMID); err != nil {
			return nil, fmt.Errorf("关联BOM不存在: %w", err)
		}
	}

	ops, err := s.buildOperations(ctx, req.Operations)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	routing := &entity.Routing{
		ID:          repository.NewID(),
		Code:        req.Code,
		Name:        req.Name,
		Status:      entity.RoutingStatusDraft,
		ItemID:      item.ID,
		ItemCode:    item.Code,
		ItemName:    item.Name,
		BOMID:       req.BOMID,
		Operations:  ops,
		BatchSize:   req.BatchSize,
		Description: req.Description,
		CreatedBy:   userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	routing.RecalculateTotals()

	if err := s.routingRepo.Create(ctx, routing); err != nil {
		return nil, fmt.Errorf("创建工艺路线失败: %w", err)
	}
	s.sink.Record(userID, "routing.create", "routing", routing.ID, nil, routing)
	return routing, nil
}

func (s *RoutingService) GetByID(ctx context.Context, id string) (*entity.Routing, error) {
	return s.routingRepo.GetByID(ctx, id)
}

func (s *RoutingService) List(ctx context.Context, params repository.RoutingListParams) ([]entity.Routing, int64, error) {
	return s.routingRepo.List(ctx, params)
}

// UpdateRoutingRequest 更新工艺路线请求
type UpdateRoutingRequest struct {
	Name        string                  `json:"name"`
	BOMID       *string                 `json:"bom_id"`
	BatchSize   *float64                `json:"batch_size"`
	Description string                  `json:"description"`
	Operations  []RoutingOperationInput `json:"operations"`
}

// Update 更新工艺路线，工序序列被替换时重算聚合字段
func (s *RoutingService) Update(ctx context.Context, id string, req UpdateRoutingRequest, userID string) (*entity.Routing, error) {
	routing, err := s.routingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !routing.Editable() {
		return nil, fmt.Errorf("路线状态 %s 不允许修改: %w", routing.Status, ErrImmutable)
	}
	old := *routing

	if req.Name != "" {
		routing.Name = req.Name
	}
	if req.BOMID != nil {
		routing.BOMID = *req.BOMID
	}
	if req.BatchSize != nil && *req.BatchSize > 0 {
		routing.BatchSize = *req.BatchSize
	}
	if req.Description != "" {
		routing.Description = req.Description
	}
	if req.Operations != nil {
		ops, err := s.buildOperations(ctx, req.Operations)
		if err != nil {
			return nil, err
		}
		routing.Operations = ops
	}

	routing.RecalculateTotals()
	routing.UpdatedBy = userID
	routing.UpdatedAt = time.Now()

	if err := s.routingRepo.Update(ctx, routing); err != nil {
		return nil, fmt.Errorf("更新工艺路线失败: %w", err)
	}
	s.sink.Record(userID, "routing.update", "routing", routing.ID, old, routing)
	return routing, nil
}

// Delete 删除工艺路线，仅草稿允许
func (s *RoutingService) Delete(ctx context.Context, id, userID string) error {
	routing, err := s.routingRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if routing.Status != entity.RoutingStatusDraft {
		return fmt.Errorf("仅草稿路线可删除: %w", ErrImmutable)
	}
	if err := s.routingRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("删除工艺路线失败: %w", err)
	}
	s.sink.Record(userID, "routing.delete", "routing", id, routing, nil)
	return nil
}

// Submit 提交审批 draft → submitted
func (s *RoutingService) Submit(ctx context.Context, id, userID string) (*entity.Routing, error) {
	now := time.Now()
	ok, err := s.routingRepo.UpdateStatusCAS(ctx, id, entity.RoutingStatusDraft, entity.RoutingStatusSubmitted, map[string]interface{}{
		"submitted_by": userID,
		"submitted_at": now,
	})
	if err != nil {
		return nil, fmt.Errorf("提交工艺路线失败: %w", err)
	}
	if !ok {
		return nil, s.transitionError(ctx, id, "submit")
	}
	routing, err := s.routingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.sink.Record(userID, "routing.submit", "routing", id, nil, routing)
	return routing, nil
}

// Approve 审批通过 submitted → active
func (s *RoutingService) Approve(ctx context.Context, id, userID string) (*entity.Routing, error) {
	now := time.Now()
	ok, err := s.routingRepo.UpdateStatusCAS(ctx, id, entity.RoutingStatusSubmitted, entity.RoutingStatusActive, map[string]interface{}{
		"approved_by": userID,
		"approved_at": now,
	})
	if err != nil {
		return nil, fmt.Errorf("审批工艺路线失败: %w", err)
	}
	if !ok {
		return nil, s.transitionError(ctx, id, "approve")
	}
	routing, err := s.routingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.sink.Record(userID, "routing.approve", "routing", id, nil, routing)
	return routing, nil
}

// Deactivate 停用 active → inactive
func (s *RoutingService) Deactivate(ctx context.Context, id, userID string) (*entity.Routing, error) {
	ok, err := s.routingRepo.UpdateStatusCAS(ctx, id, entity.RoutingStatusActive, entity.RoutingStatusInactive, map[string]interface{}{
		"updated_by": userID,
	})
	if err != nil {
		return nil, fmt.Errorf("停用工艺路线失败: %w", err)
	}
	if !ok {
		return nil, s.transitionError(ctx, id, "deactivate")
	}
	routing, err := s.routingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.sink.Record(userID, "routing.deactivate", "routing", id, nil, routing)
	return routing, nil
}

func (s *RoutingService) transitionError(ctx context.Context, id, action string) error {
	routing, err := s.routingRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("路线状态 %s 不允许 %s: %w", routing.Status, action, ErrInvalidTransition)
}
