package alert

import "fmt"

// 中文说明：
// 基础意图校验（分发前的完整性检查）：
// - action 已识别
// - symbol 非空且非 Unknown
// - quantity > 0
// 期权字段允许缺失：部分信息不是错误，只是不可分发时由分发器再拒绝。

// RejectionError 表示意图合法但不可操作（对外表现为 no_action）。
type RejectionError struct {
	Reason string
}

func (e *RejectionError) Error() string { return e.Reason }

// Validate 校验 TradeIntent 是否可进入分发
func Validate(intent TradeIntent) error {
	if intent.Action == ActionUnknown || intent.Action == "" {
		return &RejectionError{Reason: "action not recognized"}
	}
	if intent.Symbol == "" || intent.Symbol == Unknown {
		return &RejectionError{Reason: "symbol not recognized"}
	}
	if intent.Quantity <= 0 {
		return &RejectionError{Reason: fmt.Sprintf("quantity must be positive, got %v", intent.Quantity)}
	}
	return nil
}
