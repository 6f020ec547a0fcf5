package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"tradesync/internal/alert"
	"tradesync/internal/logger"
	"tradesync/internal/store"
)

// 中文说明：
// AlertService：webhook 处理主流程。
// 原文 → 抽取 → 校验 → 分发 → 落库 → 广播，每次调用彼此独立、无跨请求状态。
// 错误分层（见各分支）：解析永不失败；校验拒绝 → no_action；
// 分发拒绝/异常 → error（HTTP 仍 200）；落库失败才作为本次请求的致命错误上抛。

// Dispatcher 分发能力
type Dispatcher interface {
	Dispatch(ctx context.Context, intent alert.TradeIntent) store.DispatchResult
}

// Broadcaster 实时推送能力
type Broadcaster interface {
	Broadcast(msg any)
}

// AuditLogger 原始告警审计能力。审计失败只告警不中断处理。
type AuditLogger interface {
	Append(ctx context.Context, traceID, body string) error
}

// WebhookResult webhook 响应体
type WebhookResult struct {
	Status   string `json:"status"` // success | error | no_action
	Action   string `json:"action,omitempty"`
	OrderID  string `json:"order_id,omitempty"`
	Error    string `json:"error,omitempty"`
	TraceID  string `json:"trace_id,omitempty"`
	RecordID int64  `json:"record_id,omitempty"`
}

// AlertService 告警处理服务
type AlertService struct {
	extractor  *alert.Extractor
	dispatcher Dispatcher
	store      store.AlertStore
	hub        Broadcaster
	audit      AuditLogger
}

// ServiceOption 构造选项
type ServiceOption func(*AlertService)

// WithAuditLog 注入原始告警审计日志
func WithAuditLog(audit AuditLogger) ServiceOption {
	return func(s *AlertService) { s.audit = audit }
}

func NewAlertService(extractor *alert.Extractor, dispatcher Dispatcher, st store.AlertStore, hub Broadcaster, opts ...ServiceOption) *AlertService {
	s := &AlertService{extractor: extractor, dispatcher: dispatcher, store: st, hub: hub}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HandleAlert 处理一条告警文本。返回 error 仅当落库失败（对外 500）。
func (s *AlertService) HandleAlert(ctx context.Context, rawText string) (WebhookResult, error) {
	traceID := uuid.NewString()
	if s.audit != nil {
		if err := s.audit.Append(ctx, traceID, rawText); err != nil {
			logger.Warnf("alert trace=%s audit append failed: %v", traceID, err)
		}
	}
	intent := s.extractor.Extract(ctx, rawText)
	logger.Infof("alert trace=%s parsed action=%s symbol=%s qty=%v instrument=%s source=%s raw=%q",
		traceID, intent.Action, intent.Symbol, intent.Quantity, intent.Instrument, intent.Source, rawText)

	if err := alert.Validate(intent); err != nil {
		rec, serr := s.record(ctx, traceID, intent, store.DispatchResult{
			Status:       store.StatusNoAction,
			ErrorMessage: err.Error(),
		})
		if serr != nil {
			return WebhookResult{}, serr
		}
		return WebhookResult{
			Status:   "no_action",
			Error:    err.Error(),
			TraceID:  traceID,
			RecordID: rec.ID,
		}, nil
	}

	result := s.dispatcher.Dispatch(ctx, intent)
	rec, serr := s.record(ctx, traceID, intent, result)
	if serr != nil {
		return WebhookResult{}, serr
	}

	out := WebhookResult{
		Action:   string(intent.Action),
		OrderID:  result.BrokerOrderID,
		TraceID:  traceID,
		RecordID: rec.ID,
	}
	switch result.Status {
	case store.StatusSubmitted, store.StatusFilled:
		out.Status = "success"
	default:
		out.Status = "error"
		out.Error = result.ErrorMessage
	}
	logger.Infof("alert trace=%s outcome status=%s order_id=%s err=%q",
		traceID, result.Status, result.BrokerOrderID, result.ErrorMessage)
	return out, nil
}

// ListRecords 最近记录，倒序
func (s *AlertService) ListRecords(ctx context.Context, limit, offset int) ([]store.OrderRecord, error) {
	return s.store.List(ctx, limit, offset)
}

func (s *AlertService) record(ctx context.Context, traceID string, intent alert.TradeIntent, result store.DispatchResult) (store.OrderRecord, error) {
	rec, err := s.store.Record(ctx, traceID, intent, result)
	if err != nil {
		logger.Errorf("alert trace=%s store failed: %v", traceID, err)
		return store.OrderRecord{}, fmt.Errorf("persisting alert record: %w", err)
	}
	if s.hub != nil {
		s.hub.Broadcast(rec)
	}
	return rec, nil
}
