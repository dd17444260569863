package eventbus

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// 工单生命周期事件类型
const (
	EventWorkOrderCreated   = "created"
	EventWorkOrderReleased  = "released"
	EventWorkOrderStarted   = "started"
	EventWorkOrderCompleted = "completed"
)

// Stream 工单事件流
const Stream = "mfg:wo:events"

// WorkOrderEvent 发给下游库存/质检协作方的工单事件
type WorkOrderEvent struct {
	Event           string  `json:"event"`
	WorkOrderID     string  `json:"work_order_id"`
	WorkOrderNumber string  `json:"work_order_number"`
	ItemID          string  `json:"item_id"`
	Quantity        float64 `json:"quantity"`
	Unit            string  `json:"unit"`
	Status          string  `json:"status"`
	Priority        int     `json:"priority"`
	ActorID         string  `json:"actor_id"`
}

// Bus 基于Redis Stream的事件总线。事件在核心事务提交后投递，
// 投递失败只记日志，不影响业务结果。
type Bus struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func NewBus(rdb *redis.Client, logger *zap.Logger) *Bus {
	return &Bus{rdb: rdb, logger: logger}
}

// PublishWorkOrder 投递一条工单生命周期事件
func (b *Bus) PublishWorkOrder(evt WorkOrderEvent) {
	if b == nil || b.rdb == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err := b.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: Stream,
		Values: map[string]interface{}{
			"event":             evt.Event,
			"work_order_id":     evt.WorkOrderID,
			"work_order_number": evt.WorkOrderNumber,
			"item_id":           evt.ItemID,
			"quantity":          evt.Quantity,
			"unit":              evt.Unit,
			"status":            evt.Status,
			"priority":          evt.Priority,
			"actor_id":          evt.ActorID,
		},
	}).Err()
	if err != nil {
		b.logger.Warn("work order event publish failed",
			zap.String("event", evt.Event),
			zap.String("work_order_id", evt.WorkOrderID),
			zap.Error(err),
		)
	}
}
