package audit

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Entry 审计日志记录
type Entry struct {
	ID         uint        `json:"id" gorm:"primaryKey;autoIncrement"`
	Actor      string      `json:"actor" gorm:"size:64;not null"`
	Action     string      `json:"action" gorm:"size:64;not null;index"`
	EntityType string      `json:"entity_type" gorm:"size:32;not null;index"`
	EntityID   string      `json:"entity_id" gorm:"size:32;not null;index"`
	OldValues  interface{} `json:"old_values,omitempty" gorm:"serializer:json;type:jsonb"`
	NewValues  interface{} `json:"new_values,omitempty" gorm:"serializer:json;type:jsonb"`
	CreatedAt  time.Time   `json:"created_at"`
}

func (Entry) TableName() string {
	return "mfg_audit_logs"
}

// Sink 异步审计落库。核心事务提交后调用，写入失败只记日志，
// 不回滚业务操作（至少一次、尽力而为的旁路通道）。
type Sink struct {
	db     *gorm.DB
	logger *zap.Logger
	ch     chan Entry
	done   chan struct{}
}

// NewSink 创建审计通道并启动后台写入
func NewSink(db *gorm.DB, logger *zap.Logger) *Sink {
	s := &Sink{
		db:     db,
		logger: logger,
		ch:     make(chan Entry, 256),
		done:   make(chan struct{}),
	}
	go s.run()
	return s
}

// AutoMigrate 迁移审计表
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Entry{})
}

func (s *Sink) run() {
	defer close(s.done)
	for entry := range s.ch {
		if err := s.db.Create(&entry).Error; err != nil {
			s.logger.Warn("audit write failed",
				zap.String("action", entry.Action),
				zap.String("entity_type", entry.EntityType),
				zap.String("entity_id", entry.EntityID),
				zap.Error(err),
			)
		}
	}
}

// Record 提交一条审计记录，通道满时丢弃并告警
func (s *Sink) Record(actor, action, entityType, entityID string, oldValues, newValues interface{}) {
	if s == nil {
		return
	}
	entry := Entry{
		Actor:      actor,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		OldValues:  oldValues,
		NewValues:  newValues,
		CreatedAt:  time.Now(),
	}
	select {
	case s.ch <- entry:
	default:
		s.logger.Warn("audit channel full, entry dropped",
			zap.String("action", action),
			zap.String("entity_id", entityID),
		)
	}
}

// Close 关闭通道并等待落库完成
func (s *Sink) Close(ctx context.Context) error {
	close(s.ch)
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
