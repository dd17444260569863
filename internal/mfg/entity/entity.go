package entity

import "gorm.io/gorm"

// AutoMigrate 自动迁移制造模块所有表
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		// 主数据
		&Item{},
		&Operation{},

		// 产品结构
		&BOM{},
		&BOMItem{},
		&Routing{},

		// 生产
		&WorkOrder{},
		&WorkOrderItem{},
		&ProductionEntry{},
	)
}
