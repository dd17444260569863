package entity

import (
	"time"
)

// ProductionEntryStatus 报工单状态
const (
	PEStatusDraft     = "DRAFT"
	PEStatusSubmitted = "SUBMITTED"
	PEStatusPosted    = "POSTED"
	PEStatusReversed  = "REVERSED"
)

// peTransitions 报工单状态机转移表，表外的转移一律拒绝
var peTransitions = map[string][]string{
	PEStatusDraft:     {PEStatusSubmitted},
	PEStatusSubmitted: {PEStatusPosted},
	PEStatusPosted:    {PEStatusReversed},
	PEStatusReversed:  {},
}

// CanTransitionPE 判定报工单状态转移是否在允许表内
func CanTransitionPE(from, to string) bool {
	for _, next := range peTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ConsumedMaterial 报工消耗的物料
type ConsumedMaterial struct {
	ItemID    string  `json:"item_id"`
	ItemCode  string  `json:"item_code"`
	ItemName  string  `json:"item_name"`
	Quantity  float64 `json:"quantity"`
	Unit      string  `json:"unit"`
	UnitCost  float64 `json:"unit_cost"`
	TotalCost float64 `json:"total_cost"`
}

// LaborEntry 报工人工记录
type LaborEntry struct {
	WorkerID  string  `json:"worker_id"`
	Name      string  `json:"name"`
	Hours     float64 `json:"hours"`
	Rate      float64 `json:"rate"`
	TotalCost float64 `json:"total_cost"`
}

// ProductionEntry 生产报工单。过账后不可修改，
// 只能通过冲销（isReversed + 冲销元数据）使其失效。
type ProductionEntry struct {
	ID     string `json:"id" gorm:"primaryKey;size:32"`
	Number string `json:"number" gorm:"size:50;not null;uniqueIndex"`
	Status string `json:"status" gorm:"size:20;not null;default:DRAFT"`

	WorkOrderID     string `json:"work_order_id" gorm:"size:32;not null;index"`
	WorkOrderNumber string `json:"work_order_number" gorm:"size:50"`

	EntryDate time.Time `json:"entry_date"`
	Shift     string    `json:"shift" gorm:"size:16"`
	Operator  string    `json:"operator" gorm:"size:64"`

	Quantity         float64 `json:"quantity" gorm:"type:decimal(15,4);not null"`
	AcceptedQuantity float64 `json:"accepted_quantity" gorm:"type:decimal(15,4);default:0"`
	RejectedQuantity float64 `json:"rejected_quantity" gorm:"type:decimal(15,4);default:0"`
	ScrapQuantity    float64 `json:"scrap_quantity" gorm:"type:decimal(15,4);default:0"`
	Unit             string  `json:"unit" gorm:"size:16;not null;default:pcs"`

	ConsumedMaterials []ConsumedMaterial `json:"consumed_materials" gorm:"serializer:json;type:jsonb"`
	LaborEntries      []LaborEntry       `json:"labor_entries" gorm:"serializer:json;type:jsonb"`

	TotalMaterialCost float64 `json:"total_material_cost" gorm:"type:decimal(15,4);default:0"`
	TotalLaborCost    float64 `json:"total_labor_cost" gorm:"type:decimal(15,4);default:0"`
	OverheadCost      float64 `json:"overhead_cost" gorm:"type:decimal(15,4);default:0"`
	TotalCost         float64 `json:"total_cost" gorm:"type:decimal(15,4);default:0"`
	CostPerUnit       float64 `json:"cost_per_unit" gorm:"type:decimal(15,4);default:0"`

	InventoryPosted bool       `json:"inventory_posted" gorm:"default:false"`
	PostedBy        string     `json:"posted_by" gorm:"size:64"`
	PostedAt        *time.Time `json:"posted_at"`

	IsReversed     bool       `json:"is_reversed" gorm:"default:false"`
	ReversedBy     string     `json:"reversed_by" gorm:"size:64"`
	ReversedAt     *time.Time `json:"reversed_at"`
	ReversalReason string     `json:"reversal_reason" gorm:"type:text"`

	Notes     string    `json:"notes" gorm:"type:text"`
	CreatedBy string    `json:"created_by" gorm:"size:64;not null"`
	UpdatedBy string    `json:"updated_by" gorm:"size:64"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ProductionEntry) TableName() string {
	return "mfg_production_entries"
}

// RecalculateCosts 重算成本不变式：
// totalMaterialCost = Σ consumed.totalCost
// totalCost = material + labor + overhead
// costPerUnit = totalCost / quantity (quantity > 0)
func (p *ProductionEntry) RecalculateCosts() {
	var materialCost float64
	for i := range p.ConsumedMaterials {
		m := &p.ConsumedMaterials[i]
		m.TotalCost = m.UnitCost * m.Quantity
		materialCost += m.TotalCost
	}
	p.TotalMaterialCost = materialCost

	var laborCost float64
	for i := range p.LaborEntries {
		l := &p.LaborEntries[i]
		l.TotalCost = l.Hours * l.Rate
		laborCost += l.TotalCost
	}
	p.TotalLaborCost = laborCost

	p.TotalCost = p.TotalMaterialCost + p.TotalLaborCost + p.OverheadCost
	if p.Quantity > 0 {
		p.CostPerUnit = p.TotalCost / p.Quantity
	} else {
		p.CostPerUnit = 0
	}
}

// ReplaceConsumedMaterials 整单替换消耗物料并重算成本。
// 重复提交同一份清单结果不变。
func (p *ProductionEntry) ReplaceConsumedMaterials(materials []ConsumedMaterial) {
	p.ConsumedMaterials = materials
	p.RecalculateCosts()
}

// Editable 过账或冲销后不可修改
func (p *ProductionEntry) Editable() bool {
	return p.Status == PEStatusDraft || p.Status == PEStatusSubmitted
}
