package entity

import (
	"time"
)

// OperationStatus 工序主数据状态
const (
	OperationStatusActive   = "active"
	OperationStatusInactive = "inactive"
	OperationStatusObsolete = "obsolete"
)

// Operation 工序主数据模板，被工艺路线步骤引用时做字段快照，
// 后续修改模板不回溯已有路线。
type Operation struct {
	ID             string    `json:"id" gorm:"primaryKey;size:32"`
	Code           string    `json:"code" gorm:"size:64;not null;uniqueIndex"`
	Name           string    `json:"name" gorm:"size:128;not null"`
	WorkCenterID   string    `json:"work_center_id" gorm:"size:32"`
	WorkCenterName string    `json:"work_center_name" gorm:"size:128"`
	SetupTime      float64   `json:"setup_time" gorm:"type:decimal(12,4);default:0"`    // 分钟
	RunTimePerUnit float64   `json:"run_time_per_unit" gorm:"type:decimal(12,4);default:0"`
	TeardownTime   float64   `json:"teardown_time" gorm:"type:decimal(12,4);default:0"`
	StandardRate   float64   `json:"standard_rate" gorm:"type:decimal(15,4);default:0"` // 单件标准成本
	Status         string    `json:"status" gorm:"size:16;not null;default:active"`
	Description    string    `json:"description" gorm:"type:text"`
	CreatedBy      string    `json:"created_by" gorm:"size:64"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (Operation) TableName() string {
	return "mfg_operations"
}
