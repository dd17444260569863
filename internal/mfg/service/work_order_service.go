package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-mfg/internal/mfg/entity"
	"github.com/bitfantasy/nimo-mfg/internal/mfg/repository"
	"github.com/bitfantasy/nimo-mfg/internal/shared/audit"
	"github.com/bitfantasy/nimo-mfg/internal/shared/eventbus"
	"gorm.io/gorm"
)

// WorkOrderService 生产工单服务，守卫式状态机
type WorkOrderService struct {
	woRepo      *repository.WorkOrderRepository
	bomRepo     *repository.BOMRepository
	routingRepo *repository.RoutingRepository
	itemRepo    *repository.ItemRepository
	db          *gorm.DB
	bus         *eventbus.Bus
	sink        *audit.Sink
}

func NewWorkOrderService(woRepo *repository.WorkOrderRepository, bomRepo *repository.BOMRepository, routingRepo *repository.RoutingRepository, itemRepo *repository.ItemRepository, db *gorm.DB, bus *eventbus.Bus, sink *audit.Sink) *WorkOrderService {
	return &WorkOrderService{
		woRepo:      woRepo,
		bomRepo:     bomRepo,
		routingRepo: routingRepo,
		itemRepo:    itemRepo,
		db:          db,
		bus:         bus,
		sink:        sink,
	}
}

// CreateWorkOrderRequest 创建工单请求
type CreateWorkOrderRequest struct {
	Number          string  `json:"number"`
	ItemID          string  `json:"item_id" binding:"required"`
	BOMID           string  `json:"bom_id" binding:"required"`
	RoutingID       string  `json:"routing_id"`
	PlannedQuantity float64 `json:"planned_quantity" binding:"required,gt=0"`
	Priority        int     `json:"priority"`
	PlannedStart    string  `json:"planned_start"` // YYYY-MM-DD
	PlannedEnd      string  `json:"planned_end"`
	Notes           string  `json:"notes"`
}

// Create 创建工单：按BOM行项生成物料需求，按BOM/路线估算成本
func (s *WorkOrderService) Create(ctx context.Context, req CreateWorkOrderRequest, userID string) (*entity.WorkOrder, error) {
	item, err := s.itemRepo.GetByID(ctx, req.ItemID)
	if err != nil {
		return nil, fmt.Errorf("产出物料不存在: %w", err)
	}
	bom, err := s.bomRepo.GetByID(ctx, req.BOMID)
	if err != nil {
		return nil, fmt.Errorf("BOM不存在: %w", err)
	}

	var routing *entity.Routing
	if req.RoutingID != "" {
		routing, err = s.routingRepo.GetByID(ctx, req.RoutingID)
		if err != nil {
			return nil, fmt.Errorf("工艺路线不存在: %w", err)
		}
	}

	number := req.Number
	if number == "" {
		number = fmt.Sprintf("WO-%s%04d", time.Now().Format("20060102"), time.Now().UnixNano()%10000)
	}
	exists, err := s.woRepo.ExistsByNumber(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("检查工单号失败: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("工单号 %s 已存在: %w", number, ErrDuplicateCode)
	}

	// BOM配方产出 bom.Quantity 个，按计划量换算需求系数
	factor := req.PlannedQuantity
	if bom.Quantity > 0 {
		factor = req.PlannedQuantity / bom.Quantity
	}

	now := time.Now()
	wo := &entity.WorkOrder{
		ID:              repository.NewID(),
		Number:          number,
		Status:          entity.WOStatusDraft,
		Priority:        req.Priority,
		ItemID:          item.ID,
		ItemCode:        item.Code,
		ItemName:        item.Name,
		BOMID:           bom.ID,
		BOMVersion:      bom.Version,
		PlannedQuantity: req.PlannedQuantity,
		Unit:            bom.Unit,
		Notes:           req.Notes,
		CreatedBy:       userID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if routing != nil {
		wo.RoutingID = routing.ID
	}

	if req.PlannedStart != "" {
		if t, err := time.Parse("2006-01-02", req.PlannedStart); err == nil {
			wo.PlannedStartDate = &t
		}
	}
	if req.PlannedEnd != "" {
		if t, err := time.Parse("2006-01-02", req.PlannedEnd); err == nil {
			wo.PlannedEndDate = &t
		}
	}

	// 物料需求按净需求量乘系数
	items := make([]entity.WorkOrderItem, 0, len(bom.Items))
	for i := range bom.Items {
		line := &bom.Items[i]
		items = append(items, entity.WorkOrderItem{
			ID:               repository.NewID(),
			WorkOrderID:      wo.ID,
			ItemID:           line.ItemID,
			ItemCode:         line.ItemCode,
			ItemName:         line.ItemName,
			RequiredQuantity: line.NetQuantity * factor,
			Unit:             line.Unit,
			UnitCost:         line.UnitCost,
			CreatedAt:        now,
			UpdatedAt:        now,
		})
	}
	wo.Items = items

	// 预估成本：材料/间接费用按BOM、工序按路线单件成本
	wo.EstimatedMaterialCost = bom.MaterialCost * factor
	wo.EstimatedOverheadCost = bom.OverheadCost * factor
	if routing != nil {
		wo.EstimatedOperationCost = routing.TotalCostPerUnit * req.PlannedQuantity
	} else {
		wo.EstimatedOperationCost = bom.OperationCost * factor
	}
	wo.EstimatedTotalCost = wo.EstimatedMaterialCost + wo.EstimatedOperationCost + wo.EstimatedOverheadCost
	wo.RecalculateProgress()

	if err := s.woRepo.Create(ctx, wo); err != nil {
		return nil, fmt.Errorf("创建工单失败: %w", err)
	}

	s.sink.Record(userID, "work_order.create", "work_order", wo.ID, nil, wo)
	s.publish(eventbus.EventWorkOrderCreated, wo, userID)
	return wo, nil
}

func (s *WorkOrderService) GetByID(ctx context.Context, id string) (*entity.WorkOrder, error) {
	return s.woRepo.GetByID(ctx, id)
}

func (s *WorkOrderService) List(ctx context.Context, params repository.WOListParams) ([]entity.WorkOrder, int64, error) {
	return s.woRepo.List(ctx, params)
}

// UpdateWorkOrderRequest 更新工单请求
type UpdateWorkOrderRequest struct {
	Priority     *int   `json:"priority"`
	PlannedStart string `json:"planned_start"`
	PlannedEnd   string `json:"planned_end"`
	Notes        string `json:"notes"`
}

// Update 更新工单字段，完工/关闭后拒绝
func (s *WorkOrderService) Update(ctx context.Context, id string, req UpdateWorkOrderRequest, userID string) (*entity.WorkOrder, error) {
	wo, err := s.woRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !wo.Editable() {
		return nil, fmt.Errorf("工单状态 %s 不允许修改: %w", wo.Status, ErrImmutable)
	}
	old := *wo

	if req.Priority != nil {
		wo.Priority = *req.Priority
	}
	if req.PlannedStart != "" {
		if t, err := time.Parse("2006-01-02", req.PlannedStart); err == nil {
			wo.PlannedStartDate = &t
		}
	}
	if req.PlannedEnd != "" {
		if t, err := time.Parse("2006-01-02", req.PlannedEnd); err == nil {
			wo.PlannedEndDate = &t
		}
	}
	if req.Notes != "" {
		wo.Notes = req.Notes
	}
	wo.UpdatedBy = userID
	wo.UpdatedAt = time.Now()

	if err := s.woRepo.Update(ctx, wo); err != nil {
		return nil, fmt.Errorf("更新工单失败: %w", err)
	}
	s.sink.Record(userID, "work_order.update", "work_order", wo.ID, old, wo)
	return wo, nil
}

// Delete 删除工单，仅草稿允许
func (s *WorkOrderService) Delete(ctx context.Context, id, userID string) error {
	wo, err := s.woRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if wo.Status != entity.WOStatusDraft {
		return fmt.Errorf("仅草稿工单可删除: %w", ErrImmutable)
	}
	if err := s.woRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("删除工单失败: %w", err)
	}
	s.sink.Record(userID, "work_order.delete", "work_order", id, wo, nil)
	return nil
}

// transition 按状态机转移表执行一次CAS转移
func (s *WorkOrderService) transition(ctx context.Context, id, from, to, action, userID string, updates map[string]interface{}) (*entity.WorkOrder, error) {
	ok, err := s.woRepo.UpdateStatusCAS(ctx, id, from, to, updates)
	if err != nil {
		return nil, fmt.Errorf("%s 工单失败: %w", action, err)
	}
	if !ok {
		wo, err := s.woRepo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("工单状态 %s 不允许 %s: %w", wo.Status, action, ErrInvalidTransition)
	}
	wo, err := s.woRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.sink.Record(userID, "work_order."+action, "work_order", id, nil, map[string]interface{}{"status": to})
	return wo, nil
}

// Submit 提交 DRAFT → SUBMITTED
func (s *WorkOrderService) Submit(ctx context.Context, id, userID string) (*entity.WorkOrder, error) {
	now := time.Now()
	return s.transition(ctx, id, entity.WOStatusDraft, entity.WOStatusSubmitted, "submit", userID, map[string]interface{}{
		"submitted_by": userID,
		"submitted_at": now,
	})
}

// Release 下达 SUBMITTED → RELEASED，通知库存协作方按BOM行项备料
func (s *WorkOrderService) Release(ctx context.Context, id, userID string) (*entity.WorkOrder, error) {
	now := time.Now()
	wo, err := s.transition(ctx, id, entity.WOStatusSubmitted, entity.WOStatusReleased, "release", userID, map[string]interface{}{
		"released_by": userID,
		"released_at": now,
	})
	if err != nil {
		return nil, err
	}
	s.publish(eventbus.EventWorkOrderReleased, wo, userID)
	return wo, nil
}

// Start 开工 RELEASED → IN_PROGRESS
func (s *WorkOrderService) Start(ctx context.Context, id, userID string) (*entity.WorkOrder, error) {
	now := time.Now()
	wo, err := s.transition(ctx, id, entity.WOStatusReleased, entity.WOStatusInProgress, "start", userID, map[string]interface{}{
		"started_by":        userID,
		"actual_start_date": now,
	})
	if err != nil {
		return nil, err
	}
	s.publish(eventbus.EventWorkOrderStarted, wo, userID)
	return wo, nil
}

// Hold 挂起 IN_PROGRESS → ON_HOLD
func (s *WorkOrderService) Hold(ctx context.Context, id, userID string) (*entity.WorkOrder, error) {
	return s.transition(ctx, id, entity.WOStatusInProgress, entity.WOStatusOnHold, "hold", userID, map[string]interface{}{
		"updated_by": userID,
	})
}

// Resume 恢复 ON_HOLD → IN_PROGRESS
func (s *WorkOrderService) Resume(ctx context.Context, id, userID string) (*entity.WorkOrder, error) {
	return s.transition(ctx, id, entity.WOStatusOnHold, entity.WOStatusInProgress, "resume", userID, map[string]interface{}{
		"updated_by": userID,
	})
}

// Complete 完工 IN_PROGRESS → COMPLETED，通知质检与成品入库
func (s *WorkOrderService) Complete(ctx context.Context, id, userID string) (*entity.WorkOrder, error) {
	now := time.Now()
	wo, err := s.transition(ctx, id, entity.WOStatusInProgress, entity.WOStatusCompleted, "complete", userID, map[string]interface{}{
		"completed_by":         userID,
		"actual_end_date":      now,
		"production_completed": true,
		"progress_percentage":  100,
	})
	if err != nil {
		return nil, err
	}
	s.publish(eventbus.EventWorkOrderCompleted, wo, userID)
	return wo, nil
}

// Close 关闭 COMPLETED → CLOSED，终态
func (s *WorkOrderService) Close(ctx context.Context, id, userID string) (*entity.WorkOrder, error) {
	now := time.Now()
	return s.transition(ctx, id, entity.WOStatusCompleted, entity.WOStatusClosed, "close", userID, map[string]interface{}{
		"closed_by": userID,
		"closed_at": now,
	})
}

// Cancel 取消，完工/关闭/已取消之外的任意状态可取消，原因必填
func (s *WorkOrderService) Cancel(ctx context.Context, id, userID, reason string) (*entity.WorkOrder, error) {
	if reason == "" {
		return nil, fmt.Errorf("取消工单必须填写原因: %w", ErrInvalidTransition)
	}
	wo, err := s.woRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !entity.CanTransitionWO(wo.Status, entity.WOStatusCancelled) {
		return nil, fmt.Errorf("工单状态 %s 不允许取消: %w", wo.Status, ErrInvalidTransition)
	}
	now := time.Now()
	// CAS以读取到的状态为前置，避免并发下双重转移
	return s.transition(ctx, id, wo.Status, entity.WOStatusCancelled, "cancel", userID, map[string]interface{}{
		"cancelled_by":        userID,
		"cancelled_at":        now,
		"cancellation_reason": reason,
	})
}

// UpdateProgress 按不变式重算待产数量与进度，不改变生命周期状态
func (s *WorkOrderService) UpdateProgress(ctx context.Context, id string, producedQuantity float64, userID string) (*entity.WorkOrder, error) {
	wo, err := s.woRepo.UpdateProgress(ctx, id, producedQuantity)
	if err != nil {
		if errors.Is(err, repository.ErrTerminalState) {
			return nil, fmt.Errorf("终态工单不允许更新进度: %w", ErrInvalidTransition)
		}
		return nil, err
	}
	s.sink.Record(userID, "work_order.update_progress", "work_order", id, nil, map[string]interface{}{
		"produced_quantity":   wo.ProducedQuantity,
		"pending_quantity":    wo.PendingQuantity,
		"progress_percentage": wo.ProgressPercentage,
	})
	return wo, nil
}

func (s *WorkOrderService) publish(event string, wo *entity.WorkOrder, userID string) {
	if s.bus == nil {
		return
	}
	s.bus.PublishWorkOrder(eventbus.WorkOrderEvent{
		Event:           event,
		WorkOrderID:     wo.ID,
		WorkOrderNumber: wo.Number,
		ItemID:          wo.ItemID,
		Quantity:        wo.PlannedQuantity,
		Unit:            wo.Unit,
		Status:          wo.Status,
		Priority:        wo.Priority,
		ActorID:         userID,
	})
}
