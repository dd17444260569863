package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bitfantasy/nimo-mfg/internal/mfg/entity"
	"github.com/bitfantasy/nimo-mfg/internal/mfg/repository"
)

// ExplosionRow 多级展开结果行
type ExplosionRow struct {
	Level       int     `json:"level"`
	ItemID      string  `json:"item_id"`
	ItemCode    string  `json:"item_code"`
	ItemName    string  `json:"item_name"`
	ItemType    string  `json:"item_type"`
	Quantity    float64 `json:"quantity"`
	NetQuantity float64 `json:"net_quantity"`
	Unit        string  `json:"unit"`
	UnitCost    float64 `json:"unit_cost"`
	TotalCost   float64 `json:"total_cost"`
	BOMID       string  `json:"bom_id,omitempty"` // 行项展开自的子BOM
}

// bomResolver 按物料解析默认激活BOM；无默认BOM返回 repository.ErrNotFound
type bomResolver func(ctx context.Context, itemID string) (*entity.BOM, error)

// explodeBOM 多级展开。数量沿树逐级相乘：父行需要2个子装配、
// 子装配配方需要3个零件时，孙级零件数量为6。
// 子装配为按物料的弱引用，结构不保证无环，用展开路径上的
// 物料集合快速失败，而不是假设树形。
func explodeBOM(ctx context.Context, bom *entity.BOM, resolve bomResolver) ([]ExplosionRow, error) {
	visiting := map[string]bool{bom.ItemID: true}
	var rows []ExplosionRow
	if err := explodeLines(ctx, bom, 0, 1, visiting, resolve, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func explodeLines(ctx context.Context, bom *entity.BOM, level int, multiplier float64, visiting map[string]bool, resolve bomResolver, out *[]ExplosionRow) error {
	for i := range bom.Items {
		line := &bom.Items[i]

		row := ExplosionRow{
			Level:       level,
			ItemID:      line.ItemID,
			ItemCode:    line.ItemCode,
			ItemName:    line.ItemName,
			ItemType:    line.ItemType,
			Quantity:    line.Quantity * multiplier,
			NetQuantity: line.NetQuantity * multiplier,
			Unit:        line.Unit,
			UnitCost:    line.UnitCost,
		}
		row.TotalCost = row.UnitCost * row.NetQuantity

		if line.ItemType != entity.BOMItemTypeSubAssembly {
			*out = append(*out, row)
			continue
		}

		child, err := resolve(ctx, line.ItemID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				// 无默认BOM的子装配按外购件处理，作为叶子输出
				*out = append(*out, row)
				continue
			}
			return fmt.Errorf("解析子装配 %s 的默认BOM失败: %w", line.ItemCode, err)
		}

		if visiting[line.ItemID] {
			return fmt.Errorf("物料 %s 在展开路径上重复出现: %w", line.ItemCode, ErrCircularBOM)
		}

		row.BOMID = child.ID
		*out = append(*out, row)

		visiting[line.ItemID] = true
		if err := explodeLines(ctx, child, level+1, multiplier*line.Quantity, visiting, resolve, out); err != nil {
			return err
		}
		delete(visiting, line.ItemID)
	}
	return nil
}

// Explode 展开BOM为带层级标记的扁平需求列表，纯读操作
func (s *BOMService) Explode(ctx context.Context, id string) ([]ExplosionRow, error) {
	bom, err := s.bomRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return explodeBOM(ctx, bom, s.bomRepo.GetDefaultActiveByItemID)
}

// RequirementRow 毛需求汇总行（最小化的MRP占位计算）
type RequirementRow struct {
	ItemID           string  `json:"item_id"`
	ItemCode         string  `json:"item_code"`
	ItemName         string  `json:"item_name"`
	GrossRequirement float64 `json:"gross_requirement"`
	Unit             string  `json:"unit"`
	SafetyStock      float64 `json:"safety_stock"`
	LeadTimeDays     int     `json:"lead_time_days"`
	ActionType       string  `json:"action_type"` // PURCHASE, PRODUCE
}

// Requirements 按需求数量展开并汇总各物料毛需求。
// 仅做毛需求汇总，不做净需求与排程。
func (s *BOMService) Requirements(ctx context.Context, id string, quantity float64) ([]RequirementRow, error) {
	bom, err := s.bomRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if quantity <= 0 {
		quantity = bom.Quantity
	}
	factor := 1.0
	if bom.Quantity > 0 {
		factor = quantity / bom.Quantity
	}

	rows, err := explodeBOM(ctx, bom, s.bomRepo.GetDefaultActiveByItemID)
	if err != nil {
		return nil, err
	}

	agg := make(map[string]*RequirementRow)
	var order []string
	for _, row := range rows {
		req, ok := agg[row.ItemID]
		if !ok {
			req = &RequirementRow{
				ItemID:   row.ItemID,
				ItemCode: row.ItemCode,
				ItemName: row.ItemName,
				Unit:     row.Unit,
			}
			agg[row.ItemID] = req
			order = append(order, row.ItemID)
		}
		req.GrossRequirement += row.NetQuantity * factor
	}

	result := make([]RequirementRow, 0, len(order))
	for _, itemID := range order {
		req := agg[itemID]
		if item, err := s.itemRepo.GetByID(ctx, itemID); err == nil {
			req.SafetyStock = item.SafetyStock
			req.LeadTimeDays = item.LeadTimeDays
			if item.Type == entity.ItemTypeManufactured {
				req.ActionType = "PRODUCE"
			} else {
				req.ActionType = "PURCHASE"
			}
		}
		result = append(result, *req)
	}
	return result, nil
}
