package entity

import (
	"time"
)

// BOMStatus BOM状态
const (
	BOMStatusDraft     = "draft"
	BOMStatusSubmitted = "submitted"
	BOMStatusActive    = "active"
	BOMStatusInactive  = "inactive"
	BOMStatusObsolete  = "obsolete"
)

// BOMType BOM类型
const (
	BOMTypeManufacture = "manufacture"
	BOMTypeAssembly    = "assembly"
	BOMTypeKit         = "kit"
	BOMTypeDisassembly = "disassembly"
	BOMTypePlanning    = "planning"
)

// BOMItemType BOM行项类型
const (
	BOMItemTypeComponent   = "component"
	BOMItemTypeSubAssembly = "sub_assembly"
	BOMItemTypeConsumable  = "consumable"
	BOMItemTypeScrap       = "scrap"
	BOMItemTypeCoProduct   = "co_product"
	BOMItemTypeByProduct   = "by_product"
)

// BOM 物料清单头表
type BOM struct {
	ID      string `json:"id" gorm:"primaryKey;size:32"`
	Code    string `json:"code" gorm:"size:64;not null;uniqueIndex"`
	Name    string `json:"name" gorm:"size:128;not null"`
	Version string `json:"version" gorm:"size:16;not null;default:1.0"`
	BOMType string `json:"bom_type" gorm:"size:16;not null;default:manufacture"`
	Status  string `json:"status" gorm:"size:16;not null;default:draft"`

	// 产出物料
	ItemID    string  `json:"item_id" gorm:"size:32;not null;index"`
	ItemCode  string  `json:"item_code" gorm:"size:64"`
	ItemName  string  `json:"item_name" gorm:"size:128"`
	Quantity  float64 `json:"quantity" gorm:"type:decimal(15,4);not null;default:1"`
	Unit      string  `json:"unit" gorm:"size:16;not null;default:pcs"`
	IsDefault bool    `json:"is_default" gorm:"default:false"`

	// 成本汇总
	MaterialCost       float64    `json:"material_cost" gorm:"type:decimal(15,4);default:0"`
	OperationCost      float64    `json:"operation_cost" gorm:"type:decimal(15,4);default:0"`
	OverheadCost       float64    `json:"overhead_cost" gorm:"type:decimal(15,4);default:0"`
	TotalCost          float64    `json:"total_cost" gorm:"type:decimal(15,4);default:0"`
	CostPerUnit        float64    `json:"cost_per_unit" gorm:"type:decimal(15,4);default:0"`
	LastCostRollupDate *time.Time `json:"last_cost_rollup_date"`

	Description string `json:"description" gorm:"type:text"`

	SubmittedBy      string     `json:"submitted_by" gorm:"size:64"`
	SubmittedAt      *time.Time `json:"submitted_at"`
	ApprovedBy       string     `json:"approved_by" gorm:"size:64"`
	ApprovedAt       *time.Time `json:"approved_at"`
	ApprovalComments string     `json:"approval_comments" gorm:"type:text"`
	CreatedBy        string     `json:"created_by" gorm:"size:64;not null"`
	UpdatedBy        string     `json:"updated_by" gorm:"size:64"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`

	Items []BOMItem `json:"items,omitempty" gorm:"foreignKey:BOMID;constraint:OnDelete:CASCADE"`
}

func (BOM) TableName() string {
	return "mfg_boms"
}

// BOMItem BOM行项，属于且仅属于一个BOM
type BOMItem struct {
	ID       string `json:"id" gorm:"primaryKey;size:32"`
	BOMID    string `json:"bom_id" gorm:"size:32;not null;index"`
	Sequence int    `json:"sequence" gorm:"not null;default:0"`

	ItemID   string `json:"item_id" gorm:"size:32;not null;index"`
	ItemCode string `json:"item_code" gorm:"size:64"`
	ItemName string `json:"item_name" gorm:"size:128"`
	// 行项类型为 sub_assembly 时按物料弱引用该物料的默认BOM
	ItemType string `json:"item_type" gorm:"size:16;not null;default:component"`

	Quantity        float64 `json:"quantity" gorm:"type:decimal(15,4);not null"`
	Unit            string  `json:"unit" gorm:"size:16;not null;default:pcs"`
	ScrapPercentage float64 `json:"scrap_percentage" gorm:"type:decimal(8,4);default:0"`
	NetQuantity     float64 `json:"net_quantity" gorm:"type:decimal(15,4);default:0"`
	UnitCost        float64 `json:"unit_cost" gorm:"type:decimal(15,4);default:0"`
	TotalCost       float64 `json:"total_cost" gorm:"type:decimal(15,4);default:0"`

	Position  string    `json:"position" gorm:"size:64"`
	Notes     string    `json:"notes" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (BOMItem) TableName() string {
	return "mfg_bom_items"
}

// Recalculate 按损耗率推算净需求量与行成本
// netQuantity = quantity * (1 + scrapPercentage/100)
// totalCost   = unitCost * netQuantity
func (i *BOMItem) Recalculate() {
	i.NetQuantity = i.Quantity * (1 + i.ScrapPercentage/100)
	i.TotalCost = i.UnitCost * i.NetQuantity
}

// ApplyCostRollup 单层成本汇总：材料成本来自直接行项，
// 子装配的成本已在其行项 unitCost 中体现，不再向下递归。
func (b *BOM) ApplyCostRollup(now time.Time) {
	var materialCost float64
	for i := range b.Items {
		materialCost += b.Items[i].TotalCost
	}
	b.MaterialCost = materialCost
	b.TotalCost = b.MaterialCost + b.OperationCost + b.OverheadCost
	if b.Quantity > 0 {
		b.CostPerUnit = b.TotalCost / b.Quantity
	} else {
		b.CostPerUnit = 0
	}
	b.LastCostRollupDate = &now
}

// Editable 仅草稿状态允许结构性修改
func (b *BOM) Editable() bool {
	return b.Status == BOMStatusDraft
}
