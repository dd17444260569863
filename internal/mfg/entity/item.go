package entity

import (
	"time"
)

// ItemType 物料类型
const (
	ItemTypePurchased    = "purchased"
	ItemTypeManufactured = "manufactured"
)

// Item 物料主数据
type Item struct {
	ID           string    `json:"id" gorm:"primaryKey;size:32"`
	Code         string    `json:"code" gorm:"size:64;not null;uniqueIndex"`
	Name         string    `json:"name" gorm:"size:128;not null"`
	Type         string    `json:"type" gorm:"size:16;not null;default:purchased"`
	Unit         string    `json:"unit" gorm:"size:16;not null;default:pcs"`
	StandardCost float64   `json:"standard_cost" gorm:"type:decimal(15,4);default:0"`
	SafetyStock  float64   `json:"safety_stock" gorm:"type:decimal(15,4);default:0"`
	LeadTimeDays int       `json:"lead_time_days" gorm:"default:0"`
	Status       string    `json:"status" gorm:"size:16;not null;default:active"`
	Notes        string    `json:"notes" gorm:"type:text"`
	CreatedBy    string    `json:"created_by" gorm:"size:64"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Item) TableName() string {
	return "mfg_items"
}
