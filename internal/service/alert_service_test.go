package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradesync/internal/alert"
	"tradesync/internal/store"
)

type fakeStore struct {
	records []store.OrderRecord
	err     error
}

func (f *fakeStore) Record(ctx context.Context, traceID string, intent alert.TradeIntent, result store.DispatchResult) (store.OrderRecord, error) {
	if f.err != nil {
		return store.OrderRecord{}, f.err
	}
	rec := store.OrderRecord{
		ID:            int64(len(f.records) + 1),
		TraceID:       traceID,
		Intent:        intent,
		Status:        result.Status,
		BrokerOrderID: result.BrokerOrderID,
		ErrorMessage:  result.ErrorMessage,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	f.records = append(f.records, rec)
	return rec, nil
}

func (f *fakeStore) List(ctx context.Context, limit, offset int) ([]store.OrderRecord, error) {
	return f.records, nil
}

func (f *fakeStore) MarkClosed(ctx context.Context, id int64) error { return nil }
func (f *fakeStore) Ping(ctx context.Context) error                 { return nil }
func (f *fakeStore) Close() error                                   { return nil }

type fakeDispatcher struct {
	result store.DispatchResult
	called bool
	got    alert.TradeIntent
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, intent alert.TradeIntent) store.DispatchResult {
	f.called = true
	f.got = intent
	return f.result
}

type fakeHub struct {
	messages []any
}

func (f *fakeHub) Broadcast(msg any) { f.messages = append(f.messages, msg) }

func newTestService(d Dispatcher, st store.AlertStore, hub Broadcaster) *AlertService {
	extractor := alert.NewExtractor(alert.WithClock(func() time.Time {
		return time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	}))
	return NewAlertService(extractor, d, st, hub)
}

func TestHandleAlertSuccess(t *testing.T) {
	st := &fakeStore{}
	d := &fakeDispatcher{result: store.DispatchResult{Status: store.StatusSubmitted, BrokerOrderID: "ord-1"}}
	hub := &fakeHub{}
	svc := newTestService(d, st, hub)

	result, err := svc.HandleAlert(context.Background(), "BOUGHT NDX 20700C 3/6 - 1 cont")
	require.NoError(t, err)

	assert.Equal(t, "success", result.Status)
	assert.Equal(t, "buy", result.Action)
	assert.Equal(t, "ord-1", result.OrderID)
	assert.NotEmpty(t, result.TraceID)
	assert.True(t, d.called)
	assert.Equal(t, "NDX", d.got.Symbol)

	require.Len(t, st.records, 1)
	assert.Equal(t, store.StatusSubmitted, st.records[0].Status)
	// 每条处理完成的记录都推给 WebSocket 客户端
	require.Len(t, hub.messages, 1)
}

func TestHandleAlertNonActionable(t *testing.T) {
	st := &fakeStore{}
	d := &fakeDispatcher{}
	svc := newTestService(d, st, &fakeHub{})

	result, err := svc.HandleAlert(context.Background(), "watching the market today")
	require.NoError(t, err)

	assert.Equal(t, "no_action", result.Status)
	assert.NotEmpty(t, result.Error)
	assert.False(t, d.called, "non-actionable alerts must not reach the dispatcher")

	require.Len(t, st.records, 1)
	assert.Equal(t, store.StatusNoAction, st.records[0].Status)
}

func TestHandleAlertDispatchRejection(t *testing.T) {
	st := &fakeStore{}
	d := &fakeDispatcher{result: store.DispatchResult{Status: store.StatusRejected, ErrorMessage: "insufficient funds"}}
	svc := newTestService(d, st, &fakeHub{})

	result, err := svc.HandleAlert(context.Background(), "BOUGHT NVDA 10 shares")
	require.NoError(t, err)

	assert.Equal(t, "error", result.Status)
	assert.Contains(t, result.Error, "insufficient funds")
	require.Len(t, st.records, 1)
	assert.Equal(t, store.StatusRejected, st.records[0].Status)
}

func TestHandleAlertStoreFailurePropagates(t *testing.T) {
	st := &fakeStore{err: errors.New("disk full")}
	d := &fakeDispatcher{result: store.DispatchResult{Status: store.StatusSubmitted}}
	svc := newTestService(d, st, &fakeHub{})

	_, err := svc.HandleAlert(context.Background(), "BOUGHT NVDA 10 shares")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persisting alert record")
}

func TestHandleAlertFilledIsSuccess(t *testing.T) {
	st := &fakeStore{}
	d := &fakeDispatcher{result: store.DispatchResult{Status: store.StatusFilled, BrokerOrderID: "ord-9"}}
	svc := newTestService(d, st, &fakeHub{})

	result, err := svc.HandleAlert(context.Background(), "SOLD AAPL all out")
	require.NoError(t, err)
	assert.Equal(t, "success", result.Status)
	assert.Equal(t, "sell", result.Action)
}
