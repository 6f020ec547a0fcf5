package store

import (
	"context"
	"time"

	"tradesync/internal/alert"
)

// 中文说明：
// 订单记录的领域类型与存储接口。行的所有权归 AlertStore：
// 分发器只产出内存结果，落库与编号由存储层完成。

// Status 订单记录生命周期
type Status string

const (
	StatusPending   Status = "pending"
	StatusSubmitted Status = "submitted"
	StatusFilled    Status = "filled"
	StatusRejected  Status = "rejected"
	StatusError     Status = "error"
	// StatusNoAction 意图合法但不可操作（未识别动作/符号），仅记录不分发
	StatusNoAction Status = "no_action"
)

// DispatchResult 分发阶段的内存结果
type DispatchResult struct {
	Status        Status `json:"status"`
	BrokerOrderID string `json:"broker_order_id,omitempty"`
	ErrorMessage  string `json:"error_message,omitempty"`
}

// OrderRecord 一次告警处理的持久化记录。
// 终态后不再变更，仅允许审计注记（closed 标志）。
// Unparseable 表示库里的意图 JSON 损坏——按类型化条目暴露而不是静默丢弃。
type OrderRecord struct {
	ID            int64             `json:"id"`
	TraceID       string            `json:"trace_id"`
	Intent        alert.TradeIntent `json:"intent"`
	Status        Status            `json:"status"`
	BrokerOrderID string            `json:"broker_order_id,omitempty"`
	ErrorMessage  string            `json:"error_message,omitempty"`
	Closed        bool              `json:"closed"`
	Unparseable   bool              `json:"unparseable,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// MaxListLimit 分页上限，越界输入静默修正
const MaxListLimit = 1000

// AlertStore 告警/订单记录存储
type AlertStore interface {
	Record(ctx context.Context, traceID string, intent alert.TradeIntent, result DispatchResult) (OrderRecord, error)
	List(ctx context.Context, limit, offset int) ([]OrderRecord, error)
	MarkClosed(ctx context.Context, id int64) error
	Ping(ctx context.Context) error
	Close() error
}
