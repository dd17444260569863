package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-mfg/internal/mfg/entity"
	"github.com/bitfantasy/nimo-mfg/internal/mfg/repository"
	"github.com/bitfantasy/nimo-mfg/internal/shared/audit"
	"gorm.io/gorm"
)

// ProductionEntryService 生产报工服务。过账与冲销在单事务内完成
// 报工单状态转移和工单量/成本累计，保证两者要么都生效要么都不生效。
type ProductionEntryService struct {
	peRepo   *repository.ProductionEntryRepository
	woRepo   *repository.WorkOrderRepository
	itemRepo *repository.ItemRepository
	db       *gorm.DB
	sink     *audit.Sink
}

func NewProductionEntryService(peRepo *repository.ProductionEntryRepository, woRepo *repository.WorkOrderRepository, itemRepo *repository.ItemRepository, db *gorm.DB, sink *audit.Sink) *ProductionEntryService {
	return &ProductionEntryService{
		peRepo:   peRepo,
		woRepo:   woRepo,
		itemRepo: itemRepo,
		db:       db,
		sink:     sink,
	}
}

// ConsumedMaterialInput 报工消耗物料输入
type ConsumedMaterialInput struct {
	ItemID   string   `json:"item_id" binding:"required"`
	Quantity float64  `json:"quantity" binding:"required,gt=0"`
	UnitCost *float64 `json:"unit_cost"`
}

// LaborEntryInput 报工人工输入
type LaborEntryInput struct {
	WorkerID string  `json:"worker_id"`
	Name     string  `json:"name"`
	Hours    float64 `json:"hours" binding:"required,gt=0"`
	Rate     float64 `json:"rate"`
}

// CreateProductionEntryRequest 创建报工单请求
type CreateProductionEntryRequest struct {
	Number            string                  `json:"number"`
	WorkOrderID       string                  `json:"work_order_id" binding:"required"`
	EntryDate         string                  `json:"entry_date"` // YYYY-MM-DD
	Shift             string                  `json:"shift"`
	Operator          string                  `json:"operator"`
	Quantity          float64                 `json:"quantity" binding:"required,gt=0"`
	AcceptedQuantity  float64                 `json:"accepted_quantity"`
	RejectedQuantity  float64                 `json:"rejected_quantity"`
	ScrapQuantity     float64                 `json:"scrap_quantity"`
	ConsumedMaterials []ConsumedMaterialInput `json:"consumed_materials"`
	LaborEntries      []LaborEntryInput       `json:"labor_entries"`
	OverheadCost      float64                 `json:"overhead_cost"`
	Notes             string                  `json:"notes"`
}

// buildConsumedMaterials 快照物料主数据，单价缺省取物料标准成本
func (s *ProductionEntryService) buildConsumedMaterials(ctx context.Context, inputs []ConsumedMaterialInput) ([]entity.ConsumedMaterial, error) {
	materials := make([]entity.ConsumedMaterial, 0, len(inputs))
	for _, in := range inputs {
		item, err := s.itemRepo.GetByID(ctx, in.ItemID)
		if err != nil {
			return nil, fmt.Errorf("消耗物料 %s 不存在: %w", in.ItemID, err)
		}
		unitCost := item.StandardCost
		if in.UnitCost != nil {
			unitCost = *in.UnitCost
		}
		materials = append(materials, entity.ConsumedMaterial{
			ItemID:   item.ID,
			ItemCode: item.Code,
			ItemName: item.Name,
			Quantity: in.Quantity,
			Unit:     item.Unit,
			UnitCost: unitCost,
		})
	}
	return materials, nil
}

func buildLaborEntries(inputs []LaborEntryInput) []entity.LaborEntry {
	entries := make([]entity.LaborEntry, 0, len(inputs))
	for _, in := range inputs {
		entries = append(entries, entity.LaborEntry{
			WorkerID: in.WorkerID,
			Name:     in.Name,
			Hours:    in.Hours,
			Rate:     in.Rate,
		})
	}
	return entries
}

// Create 创建报工单，工单必须处于在制状态
func (s *ProductionEntryService) Create(ctx context.Context, req CreateProductionEntryRequest, userID string) (*entity.ProductionEntry, error) {
	wo, err := s.woRepo.GetByID(ctx, req.WorkOrderID)
	if err != nil {
		return nil, fmt.Errorf("工单不存在: %w", err)
	}
	if wo.Status != entity.WOStatusInProgress {
		return nil, fmt.Errorf("工单状态 %s 不允许报工: %w", wo.Status, ErrInvalidTransition)
	}

	number := req.Number
	if number == "" {
		number = fmt.Sprintf("PE-%s%04d", time.Now().Format("20060102"), time.Now().UnixNano()%10000)
	}
	exists, err := s.peRepo.ExistsByNumber(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("检查报工单号失败: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("报工单号 %s 已存在: %w", number, ErrDuplicateCode)
	}

	materials, err := s.buildConsumedMaterials(ctx, req.ConsumedMaterials)
	if err != nil {
		return nil, err
	}

	entryDate := time.Now()
	if req.EntryDate != "" {
		if t, err := time.Parse("2006-01-02", req.EntryDate); err == nil {
			entryDate = t
		}
	}

	now := time.Now()
	pe := &entity.ProductionEntry{
		ID:                repository.NewID(),
		Number:            number,
		Status:            entity.PEStatusDraft,
		WorkOrderID:       wo.ID,
		WorkOrderNumber:   wo.Number,
		EntryDate:         entryDate,
		Shift:             req.Shift,
		Operator:          req.Operator,
		Quantity:          req.Quantity,
		AcceptedQuantity:  req.AcceptedQuantity,
		RejectedQuantity:  req.RejectedQuantity,
		ScrapQuantity:     req.ScrapQuantity,
		Unit:              wo.Unit,
		ConsumedMaterials: materials,
		LaborEntries:      buildLaborEntries(req.LaborEntries),
		OverheadCost:      req.OverheadCost,
		Notes:             req.Notes,
		CreatedBy:         userID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	pe.RecalculateCosts()

	if err := s.peRepo.Create(ctx, pe); err != nil {
		return nil, fmt.Errorf("创建报工单失败: %w", err)
	}
	s.sink.Record(userID, "production_entry.create", "production_entry", pe.ID, nil, pe)
	return pe, nil
}

func (s *ProductionEntryService) GetByID(ctx context.Context, id string) (*entity.ProductionEntry, error) {
	return s.peRepo.GetByID(ctx, id)
}

func (s *ProductionEntryService) List(ctx context.Context, params repository.PEListParams) ([]entity.ProductionEntry, int64, error) {
	return s.peRepo.List(ctx, params)
}

// UpdateProductionEntryRequest 更新报工单请求
type UpdateProductionEntryRequest struct {
	Shift             string                   `json:"shift"`
	Operator          string                   `json:"operator"`
	Quantity          *float64                 `json:"quantity"`
	AcceptedQuantity  *float64                 `json:"accepted_quantity"`
	RejectedQuantity  *float64                 `json:"rejected_quantity"`
	ScrapQuantity     *float64                 `json:"scrap_quantity"`
	ConsumedMaterials *[]ConsumedMaterialInput `json:"consumed_materials"`
	LaborEntries      *[]LaborEntryInput       `json:"labor_entries"`
	OverheadCost      *float64                 `json:"overhead_cost"`
	Notes             string                   `json:"notes"`
}

// Update 更新报工单，过账/冲销后拒绝
func (s *ProductionEntryService) Update(ctx context.Context, id string, req UpdateProductionEntryRequest, userID string) (*entity.ProductionEntry, error) {
	pe, err := s.peRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !pe.Editable() {
		return nil, fmt.Errorf("报工单状态 %s 不允许修改: %w", pe.Status, ErrImmutable)
	}
	old := *pe

	if req.Shift != "" {
		pe.Shift = req.Shift
	}
	if req.Operator != "" {
		pe.Operator = req.Operator
	}
	if req.Quantity != nil {
		pe.Quantity = *req.Quantity
	}
	if req.AcceptedQuantity != nil {
		pe.AcceptedQuantity = *req.AcceptedQuantity
	}
	if req.RejectedQuantity != nil {
		pe.RejectedQuantity = *req.RejectedQuantity
	}
	if req.ScrapQuantity != nil {
		pe.ScrapQuantity = *req.ScrapQuantity
	}
	if req.ConsumedMaterials != nil {
		materials, err := s.buildConsumedMaterials(ctx, *req.ConsumedMaterials)
		if err != nil {
			return nil, err
		}
		pe.ConsumedMaterials = materials
	}
	if req.LaborEntries != nil {
		pe.LaborEntries = buildLaborEntries(*req.LaborEntries)
	}
	if req.OverheadCost != nil {
		pe.OverheadCost = *req.OverheadCost
	}
	if req.Notes != "" {
		pe.Notes = req.Notes
	}
	pe.UpdatedBy = userID
	pe.UpdatedAt = time.Now()
	pe.RecalculateCosts()

	if err := s.peRepo.Update(ctx, pe); err != nil {
		return nil, fmt.Errorf("更新报工单失败: %w", err)
	}
	s.sink.Record(userID, "production_entry.update", "production_entry", pe.ID, old, pe)
	return pe, nil
}

// Delete 删除报工单，仅草稿允许
func (s *ProductionEntryService) Delete(ctx context.Context, id, userID string) error {
	pe, err := s.peRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if pe.Status != entity.PEStatusDraft {
		return fmt.Errorf("仅草稿报工单可删除: %w", ErrImmutable)
	}
	if err := s.peRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("删除报工单失败: %w", err)
	}
	s.sink.Record(userID, "production_entry.delete", "production_entry", id, pe, nil)
	return nil
}

// ConsumeMaterials 整单替换消耗物料并重算成本，过账前有效
func (s *ProductionEntryService) ConsumeMaterials(ctx context.Context, id string, inputs []ConsumedMaterialInput, userID string) (*entity.ProductionEntry, error) {
	pe, err := s.peRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !pe.Editable() {
		return nil, fmt.Errorf("报工单状态 %s 不允许录入消耗: %w", pe.Status, ErrImmutable)
	}
	materials, err := s.buildConsumedMaterials(ctx, inputs)
	if err != nil {
		return nil, err
	}
	pe.ReplaceConsumedMaterials(materials)
	pe.UpdatedBy = userID
	pe.UpdatedAt = time.Now()

	if err := s.peRepo.Update(ctx, pe); err != nil {
		return nil, fmt.Errorf("录入消耗失败: %w", err)
	}
	s.sink.Record(userID, "production_entry.consume_materials", "production_entry", pe.ID, nil, pe.ConsumedMaterials)
	return pe, nil
}

// Submit 提交 DRAFT → SUBMITTED
func (s *ProductionEntryService) Submit(ctx context.Context, id, userID string) (*entity.ProductionEntry, error) {
	pe, err := s.peRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !entity.CanTransitionPE(pe.Status, entity.PEStatusSubmitted) {
		return nil, fmt.Errorf("报工单状态 %s 不允许提交: %w", pe.Status, ErrInvalidTransition)
	}
	ok, err := s.peRepo.UpdateStatusCAS(ctx, nil, id, entity.PEStatusDraft, entity.PEStatusSubmitted, map[string]interface{}{
		"updated_by": userID,
	})
	if err != nil {
		return nil, fmt.Errorf("提交报工单失败: %w", err)
	}
	if !ok {
		cur, err := s.peRepo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("报工单状态 %s 不允许提交: %w", cur.Status, ErrInvalidTransition)
	}
	s.sink.Record(userID, "production_entry.submit", "production_entry", id, nil, map[string]interface{}{"status": entity.PEStatusSubmitted})
	return s.peRepo.GetByID(ctx, id)
}

// Post 过账 SUBMITTED → POSTED。同事务内把产量与实际成本累加到工单。
// CAS前置条件保证并发重复过账只有一个成功。
func (s *ProductionEntryService) Post(ctx context.Context, id, userID string) (*entity.ProductionEntry, error) {
	pe, err := s.peRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !entity.CanTransitionPE(pe.Status, entity.PEStatusPosted) {
		return nil, fmt.Errorf("报工单状态 %s 不允许过账: %w", pe.Status, ErrInvalidTransition)
	}

	now := time.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.peRepo.UpdateStatusCAS(ctx, tx, id, entity.PEStatusSubmitted, entity.PEStatusPosted, map[string]interface{}{
			"posted_by":        userID,
			"posted_at":        now,
			"inventory_posted": true,
		})
		if err != nil {
			return fmt.Errorf("过账报工单失败: %w", err)
		}
		if !ok {
			cur, rerr := s.peRepo.GetByID(ctx, id)
			if rerr != nil {
				return rerr
			}
			return fmt.Errorf("报工单状态 %s 不允许过账: %w", cur.Status, ErrInvalidTransition)
		}
		return s.woRepo.ApplyProductionDelta(ctx, tx, pe.WorkOrderID, repository.ProductionDelta{
			Produced:      pe.Quantity,
			Accepted:      pe.AcceptedQuantity,
			Rejected:      pe.RejectedQuantity,
			Scrap:         pe.ScrapQuantity,
			MaterialCost:  pe.TotalMaterialCost,
			OperationCost: pe.TotalLaborCost,
			OverheadCost:  pe.OverheadCost,
		})
	})
	if err != nil {
		return nil, err
	}

	s.sink.Record(userID, "production_entry.post", "production_entry", id, nil, map[string]interface{}{
		"status":        entity.PEStatusPosted,
		"work_order_id": pe.WorkOrderID,
		"quantity":      pe.Quantity,
		"total_cost":    pe.TotalCost,
	})
	return s.peRepo.GetByID(ctx, id)
}

// Reverse 冲销 POSTED → REVERSED。以负增量回退工单产量与成本，
// 原单保留不删，冲销人/时间/原因落在原单上。
func (s *ProductionEntryService) Reverse(ctx context.Context, id, userID, reason string) (*entity.ProductionEntry, error) {
	if reason == "" {
		return nil, fmt.Errorf("冲销必须填写原因: %w", ErrInvalidTransition)
	}
	pe, err := s.peRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !entity.CanTransitionPE(pe.Status, entity.PEStatusReversed) {
		return nil, fmt.Errorf("报工单状态 %s 不允许冲销: %w", pe.Status, ErrInvalidTransition)
	}

	now := time.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.peRepo.UpdateStatusCAS(ctx, tx, id, entity.PEStatusPosted, entity.PEStatusReversed, map[string]interface{}{
			"is_reversed":     true,
			"reversed_by":     userID,
			"reversed_at":     now,
			"reversal_reason": reason,
		})
		if err != nil {
			return fmt.Errorf("冲销报工单失败: %w", err)
		}
		if !ok {
			cur, rerr := s.peRepo.GetByID(ctx, id)
			if rerr != nil {
				return rerr
			}
			return fmt.Errorf("报工单状态 %s 不允许冲销: %w", cur.Status, ErrInvalidTransition)
		}
		return s.woRepo.ApplyProductionDelta(ctx, tx, pe.WorkOrderID, repository.ProductionDelta{
			Produced:      -pe.Quantity,
			Accepted:      -pe.AcceptedQuantity,
			Rejected:      -pe.RejectedQuantity,
			Scrap:         -pe.ScrapQuantity,
			MaterialCost:  -pe.TotalMaterialCost,
			OperationCost: -pe.TotalLaborCost,
			OverheadCost:  -pe.OverheadCost,
		})
	})
	if err != nil {
		return nil, err
	}

	s.sink.Record(userID, "production_entry.reverse", "production_entry", id, nil, map[string]interface{}{
		"status":          entity.PEStatusReversed,
		"work_order_id":   pe.WorkOrderID,
		"reversal_reason": reason,
	})
	return s.peRepo.GetByID(ctx, id)
}
