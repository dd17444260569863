package entity

import (
	"time"
)

// RoutingStatus 工艺路线状态
const (
	RoutingStatusDraft     = "draft"
	RoutingStatusSubmitted = "submitted"
	RoutingStatusActive    = "active"
	RoutingStatusInactive  = "inactive"
	RoutingStatusObsolete  = "obsolete"
)

// RoutingOperation 工艺路线工序步骤。
// 嵌入路线内的有序值对象，创建时对工序主数据做快照。
type RoutingOperation struct {
	Sequence           int     `json:"sequence"`
	OperationID        string  `json:"operation_id"`
	OperationCode      string  `json:"operation_code"`
	OperationName      string  `json:"operation_name"`
	WorkCenterID       string  `json:"work_center_id"`
	WorkCenterName     string  `json:"work_center_name"`
	SetupTime          float64 `json:"setup_time"`       // 分钟
	RunTimePerUnit     float64 `json:"run_time_per_unit"`
	TeardownTime       float64 `json:"teardown_time"`
	BatchSize          float64 `json:"batch_size"`
	OperatorCount      int     `json:"operator_count"`
	MachineCount       int     `json:"machine_count"`
	CostPerUnit        float64 `json:"cost_per_unit"`
	RequiresInspection bool    `json:"requires_inspection"`
	InspectionNotes    string  `json:"inspection_notes,omitempty"`
}

// Routing 工艺路线头表，工序序列以JSONB嵌入存储而非子表
type Routing struct {
	ID     string `json:"id" gorm:"primaryKey;size:32"`
	Code   string `json:"code" gorm:"size:64;not null;uniqueIndex"`
	Name   string `json:"name" gorm:"size:128;not null"`
	Status string `json:"status" gorm:"size:16;not null;default:draft"`

	ItemID   string `json:"item_id" gorm:"size:32;not null;index"`
	ItemCode string `json:"item_code" gorm:"size:64"`
	ItemName string `json:"item_name" gorm:"size:128"`
	BOMID    string `json:"bom_id" gorm:"size:32;index"`

	Operations []RoutingOperation `json:"operations" gorm:"serializer:json;type:jsonb"`

	// 聚合投影，仅由 RecalculateTotals 从工序序列推导
	BatchSize           float64 `json:"batch_size" gorm:"type:decimal(15,4);default:1"`
	TotalSetupTime      float64 `json:"total_setup_time" gorm:"type:decimal(12,4);default:0"`
	TotalRunTimePerUnit float64 `json:"total_run_time_per_unit" gorm:"type:decimal(12,4);default:0"`
	TotalTeardownTime   float64 `json:"total_teardown_time" gorm:"type:decimal(12,4);default:0"`
	TotalTimePerUnit    float64 `json:"total_time_per_unit" gorm:"type:decimal(12,4);default:0"`
	TotalCostPerUnit    float64 `json:"total_cost_per_unit" gorm:"type:decimal(15,4);default:0"`
	TotalOperations     int     `json:"total_operations" gorm:"default:0"`

	Description string `json:"description" gorm:"type:text"`

	SubmittedBy string     `json:"submitted_by" gorm:"size:64"`
	SubmittedAt *time.Time `json:"submitted_at"`
	ApprovedBy  string     `json:"approved_by" gorm:"size:64"`
	ApprovedAt  *time.Time `json:"approved_at"`
	CreatedBy   string     `json:"created_by" gorm:"size:64;not null"`
	UpdatedBy   string     `json:"updated_by" gorm:"size:64"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (Routing) TableName() string {
	return "mfg_routings"
}

// RecalculateTotals 从工序序列重算聚合字段。
// totalTimePerUnit = totalSetupTime/batchSize + totalRunTimePerUnit + totalTeardownTime/batchSize
// 准备/收尾时间按批量摊销。
func (r *Routing) RecalculateTotals() {
	r.TotalSetupTime = 0
	r.TotalRunTimePerUnit = 0
	r.TotalTeardownTime = 0
	r.TotalCostPerUnit = 0
	for i := range r.Operations {
		op := &r.Operations[i]
		r.TotalSetupTime += op.SetupTime
		r.TotalRunTimePerUnit += op.RunTimePerUnit
		r.TotalTeardownTime += op.TeardownTime
		r.TotalCostPerUnit += op.CostPerUnit
	}
	r.TotalOperations = len(r.Operations)
	if r.BatchSize <= 0 {
		r.BatchSize = 1
	}
	r.TotalTimePerUnit = r.TotalSetupTime/r.BatchSize + r.TotalRunTimePerUnit + r.TotalTeardownTime/r.BatchSize
}

// Editable 仅草稿状态允许修改
func (r *Routing) Editable() bool {
	return r.Status == RoutingStatusDraft
}
