package entity

import (
	"time"
)

// WorkOrderStatus 工单状态
const (
	WOStatusDraft      = "DRAFT"
	WOStatusSubmitted  = "SUBMITTED"
	WOStatusReleased   = "RELEASED"
	WOStatusInProgress = "IN_PROGRESS"
	WOStatusOnHold     = "ON_HOLD"
	WOStatusCompleted  = "COMPLETED"
	WOStatusClosed     = "CLOSED"
	WOStatusCancelled  = "CANCELLED"
)

// woTransitions 工单状态机转移表，表外的转移一律拒绝
var woTransitions = map[string][]string{
	WOStatusDraft:      {WOStatusSubmitted, WOStatusCancelled},
	WOStatusSubmitted:  {WOStatusReleased, WOStatusCancelled},
	WOStatusReleased:   {WOStatusInProgress, WOStatusCancelled},
	WOStatusInProgress: {WOStatusOnHold, WOStatusCompleted, WOStatusCancelled},
	WOStatusOnHold:     {WOStatusInProgress, WOStatusCancelled},
	WOStatusCompleted:  {WOStatusClosed},
	WOStatusClosed:     {},
	WOStatusCancelled:  {},
}

// CanTransitionWO 判定工单状态转移是否在允许表内
func CanTransitionWO(from, to string) bool {
	for _, next := range woTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// WorkOrderTerminal 终态工单不再参与任何转移与进度更新
func WorkOrderTerminal(status string) bool {
	return status == WOStatusClosed || status == WOStatusCancelled
}

// WorkOrder 生产工单
type WorkOrder struct {
	ID       string `json:"id" gorm:"primaryKey;size:32"`
	Number   string `json:"number" gorm:"size:50;not null;uniqueIndex"`
	Status   string `json:"status" gorm:"size:20;not null;default:DRAFT"`
	Priority int    `json:"priority" gorm:"default:0"` // 0=普通, 1=紧急, 2=特急

	ItemID   string `json:"item_id" gorm:"size:32;not null;index"`
	ItemCode string `json:"item_code" gorm:"size:64"`
	ItemName string `json:"item_name" gorm:"size:128"`

	BOMID      string `json:"bom_id" gorm:"size:32;not null"`
	BOMVersion string `json:"bom_version" gorm:"size:16"`
	RoutingID  string `json:"routing_id" gorm:"size:32"`

	PlannedQuantity    float64 `json:"planned_quantity" gorm:"type:decimal(15,4);not null"`
	ProducedQuantity   float64 `json:"produced_quantity" gorm:"type:decimal(15,4);default:0"`
	AcceptedQuantity   float64 `json:"accepted_quantity" gorm:"type:decimal(15,4);default:0"`
	RejectedQuantity   float64 `json:"rejected_quantity" gorm:"type:decimal(15,4);default:0"`
	ScrapQuantity      float64 `json:"scrap_quantity" gorm:"type:decimal(15,4);default:0"`
	PendingQuantity    float64 `json:"pending_quantity" gorm:"type:decimal(15,4);default:0"`
	ProgressPercentage float64 `json:"progress_percentage" gorm:"type:decimal(8,4);default:0"`
	Unit               string  `json:"unit" gorm:"size:16;not null;default:pcs"`

	// 预估 vs 实际成本
	EstimatedMaterialCost  float64 `json:"estimated_material_cost" gorm:"type:decimal(15,4);default:0"`
	EstimatedOperationCost float64 `json:"estimated_operation_cost" gorm:"type:decimal(15,4);default:0"`
	EstimatedOverheadCost  float64 `json:"estimated_overhead_cost" gorm:"type:decimal(15,4);default:0"`
	EstimatedTotalCost     float64 `json:"estimated_total_cost" gorm:"type:decimal(15,4);default:0"`
	ActualMaterialCost     float64 `json:"actual_material_cost" gorm:"type:decimal(15,4);default:0"`
	ActualOperationCost    float64 `json:"actual_operation_cost" gorm:"type:decimal(15,4);default:0"`
	ActualOverheadCost     float64 `json:"actual_overhead_cost" gorm:"type:decimal(15,4);default:0"`
	ActualTotalCost        float64 `json:"actual_total_cost" gorm:"type:decimal(15,4);default:0"`

	PlannedStartDate    *time.Time `json:"planned_start_date"`
	PlannedEndDate      *time.Time `json:"planned_end_date"`
	ActualStartDate     *time.Time `json:"actual_start_date"`
	ActualEndDate       *time.Time `json:"actual_end_date"`
	ProductionCompleted bool       `json:"production_completed" gorm:"default:false"`

	SubmittedBy        string     `json:"submitted_by" gorm:"size:64"`
	SubmittedAt        *time.Time `json:"submitted_at"`
	ReleasedBy         string     `json:"released_by" gorm:"size:64"`
	ReleasedAt         *time.Time `json:"released_at"`
	StartedBy          string     `json:"started_by" gorm:"size:64"`
	CompletedBy        string     `json:"completed_by" gorm:"size:64"`
	ClosedBy           string     `json:"closed_by" gorm:"size:64"`
	ClosedAt           *time.Time `json:"closed_at"`
	CancelledBy        string     `json:"cancelled_by" gorm:"size:64"`
	CancelledAt        *time.Time `json:"cancelled_at"`
	CancellationReason string     `json:"cancellation_reason" gorm:"type:text"`

	Notes     string    `json:"notes" gorm:"type:text"`
	CreatedBy string    `json:"created_by" gorm:"size:64;not null"`
	UpdatedBy string    `json:"updated_by" gorm:"size:64"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Items []WorkOrderItem `json:"items,omitempty" gorm:"foreignKey:WorkOrderID;constraint:OnDelete:CASCADE"`
}

func (WorkOrder) TableName() string {
	return "mfg_work_orders"
}

// RecalculateProgress 从不变式重算待产数量与进度百分比，
// 不独立存储于公式之外。
func (w *WorkOrder) RecalculateProgress() {
	w.PendingQuantity = w.PlannedQuantity - w.ProducedQuantity
	if w.PlannedQuantity > 0 {
		w.ProgressPercentage = w.ProducedQuantity / w.PlannedQuantity * 100
	} else {
		w.ProgressPercentage = 0
	}
}

// Editable 完工或关闭后不可再编辑
func (w *WorkOrder) Editable() bool {
	return w.Status != WOStatusCompleted && w.Status != WOStatusClosed
}

// WorkOrderItem 工单物料行，独立跟踪需求/消耗/退回/报废数量
type WorkOrderItem struct {
	ID          string `json:"id" gorm:"primaryKey;size:32"`
	WorkOrderID string `json:"work_order_id" gorm:"size:32;not null;index"`

	ItemID   string `json:"item_id" gorm:"size:32;not null"`
	ItemCode string `json:"item_code" gorm:"size:64"`
	ItemName string `json:"item_name" gorm:"size:128"`

	RequiredQuantity float64 `json:"required_quantity" gorm:"type:decimal(15,4);not null"`
	ConsumedQuantity float64 `json:"consumed_quantity" gorm:"type:decimal(15,4);default:0"`
	ReturnedQuantity float64 `json:"returned_quantity" gorm:"type:decimal(15,4);default:0"`
	ScrapQuantity    float64 `json:"scrap_quantity" gorm:"type:decimal(15,4);default:0"`
	Unit             string  `json:"unit" gorm:"size:16;not null;default:pcs"`
	UnitCost         float64 `json:"unit_cost" gorm:"type:decimal(15,4);default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (WorkOrderItem) TableName() string {
	return "mfg_work_order_items"
}
