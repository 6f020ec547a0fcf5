package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tradesync/internal/alert"
	"tradesync/internal/broker"
	"tradesync/internal/store"
)

type MockBroker struct {
	mock.Mock
}

func (m *MockBroker) GetAccount(ctx context.Context) (broker.Account, error) {
	args := m.Called(ctx)
	return args.Get(0).(broker.Account), args.Error(1)
}

func (m *MockBroker) ListPositions(ctx context.Context) ([]broker.Position, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]broker.Position), args.Error(1)
}

func (m *MockBroker) SubmitOrder(ctx context.Context, req broker.OrderRequest) (broker.OrderAck, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(broker.OrderAck), args.Error(1)
}

func (m *MockBroker) ListOptionContracts(ctx context.Context, underlying string) ([]broker.OptionContract, error) {
	args := m.Called(ctx, underlying)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]broker.OptionContract), args.Error(1)
}

func (m *MockBroker) GetLatestQuote(ctx context.Context, symbol string) (broker.Quote, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(broker.Quote), args.Error(1)
}

func richAccount() broker.Account {
	return broker.Account{Cash: decimal.NewFromInt(10000), Currency: "USD"}
}

func stockIntent() alert.TradeIntent {
	return alert.TradeIntent{
		Action:     alert.ActionBuy,
		Symbol:     "NVDA",
		Quantity:   10,
		Instrument: alert.InstrumentStock,
		OptionType: alert.OptionNone,
	}
}

func optionIntent() alert.TradeIntent {
	return alert.TradeIntent{
		Action:     alert.ActionBuy,
		Symbol:     "NDX",
		Quantity:   1,
		Instrument: alert.InstrumentOption,
		Strike:     20700,
		OptionType: alert.OptionCall,
		Expiration: "2025-03-06",
	}
}

func TestDispatchInsufficientFundsShortCircuits(t *testing.T) {
	b := new(MockBroker)
	b.On("GetAccount", mock.Anything).Return(broker.Account{Cash: decimal.NewFromInt(30)}, nil)

	d := NewDispatcher(b)
	result := d.Dispatch(context.Background(), stockIntent())

	assert.Equal(t, store.StatusRejected, result.Status)
	assert.Contains(t, result.ErrorMessage, "insufficient funds")
	b.AssertNotCalled(t, "SubmitOrder", mock.Anything, mock.Anything)
}

func TestDispatchAccountErrorBecomesErrorStatus(t *testing.T) {
	b := new(MockBroker)
	b.On("GetAccount", mock.Anything).Return(broker.Account{}, errors.New("connection refused"))

	d := NewDispatcher(b)
	result := d.Dispatch(context.Background(), stockIntent())

	assert.Equal(t, store.StatusError, result.Status)
	assert.Contains(t, result.ErrorMessage, "checking account")
}

func TestDispatchStockMarketOrder(t *testing.T) {
	b := new(MockBroker)
	b.On("GetAccount", mock.Anything).Return(richAccount(), nil)
	b.On("SubmitOrder", mock.Anything, mock.MatchedBy(func(req broker.OrderRequest) bool {
		return req.Symbol == "NVDA" &&
			req.Qty.Equal(decimal.NewFromInt(10)) &&
			req.Side == alert.ActionBuy &&
			req.Type == broker.OrderTypeMarket &&
			req.LimitPrice == nil
	})).Return(broker.OrderAck{ID: "ord-1", Status: "accepted"}, nil)

	d := NewDispatcher(b)
	result := d.Dispatch(context.Background(), stockIntent())

	assert.Equal(t, store.StatusSubmitted, result.Status)
	assert.Equal(t, "ord-1", result.BrokerOrderID)
	b.AssertExpectations(t)
}

func TestDispatchStockLimitOrderRoundsPrice(t *testing.T) {
	intent := stockIntent()
	intent.Price = 3.456

	b := new(MockBroker)
	b.On("GetAccount", mock.Anything).Return(richAccount(), nil)
	b.On("SubmitOrder", mock.Anything, mock.MatchedBy(func(req broker.OrderRequest) bool {
		return req.Type == broker.OrderTypeLimit &&
			req.LimitPrice != nil &&
			req.LimitPrice.Equal(decimal.NewFromFloat(3.46))
	})).Return(broker.OrderAck{ID: "ord-2", Status: "filled"}, nil)

	d := NewDispatcher(b)
	result := d.Dispatch(context.Background(), intent)

	assert.Equal(t, store.StatusFilled, result.Status)
	b.AssertExpectations(t)
}

func TestDispatchStockZeroQuantityRejected(t *testing.T) {
	intent := stockIntent()
	intent.Quantity = 0.2 // 四舍五入到 0 股

	b := new(MockBroker)
	b.On("GetAccount", mock.Anything).Return(richAccount(), nil)

	d := NewDispatcher(b)
	result := d.Dispatch(context.Background(), intent)

	assert.Equal(t, store.StatusRejected, result.Status)
	assert.Contains(t, result.ErrorMessage, "rounds to zero")
	b.AssertNotCalled(t, "SubmitOrder", mock.Anything, mock.Anything)
}

func TestDispatchOptionResolvesContract(t *testing.T) {
	b := new(MockBroker)
	b.On("GetAccount", mock.Anything).Return(richAccount(), nil)
	b.On("ListOptionContracts", mock.Anything, "NDX").Return([]broker.OptionContract{
		{Symbol: "NDX250306C20600000", Underlying: "NDX", Strike: decimal.NewFromInt(20600), Expiration: "2025-03-06", Type: alert.OptionCall, Tradable: true},
		{Symbol: "NDX250306P20700000", Underlying: "NDX", Strike: decimal.NewFromInt(20700), Expiration: "2025-03-06", Type: alert.OptionPut, Tradable: true},
		{Symbol: "NDX250306C20700000", Underlying: "NDX", Strike: decimal.NewFromInt(20700), Expiration: "2025-03-06", Type: alert.OptionCall, Tradable: true},
	}, nil)
	b.On("SubmitOrder", mock.Anything, mock.MatchedBy(func(req broker.OrderRequest) bool {
		return req.Symbol == "NDX250306C20700000" && req.Qty.Equal(decimal.NewFromInt(1))
	})).Return(broker.OrderAck{ID: "ord-3", Status: "accepted"}, nil)

	d := NewDispatcher(b)
	result := d.Dispatch(context.Background(), optionIntent())

	assert.Equal(t, store.StatusSubmitted, result.Status)
	assert.Equal(t, "ord-3", result.BrokerOrderID)
	b.AssertExpectations(t)
}

func TestDispatchOptionStrikeTolerance(t *testing.T) {
	intent := optionIntent()
	intent.Strike = 20700.005 // 容差 ±0.01 内

	b := new(MockBroker)
	b.On("GetAccount", mock.Anything).Return(richAccount(), nil)
	b.On("ListOptionContracts", mock.Anything, "NDX").Return([]broker.OptionContract{
		{Symbol: "NDX250306C20700000", Strike: decimal.NewFromInt(20700), Expiration: "2025-03-06", Type: alert.OptionCall, Tradable: true},
	}, nil)
	b.On("SubmitOrder", mock.Anything, mock.Anything).Return(broker.OrderAck{ID: "ord-4"}, nil)

	d := NewDispatcher(b)
	result := d.Dispatch(context.Background(), intent)

	assert.Equal(t, store.StatusSubmitted, result.Status)
}

func TestDispatchOptionNoMatchRejected(t *testing.T) {
	b := new(MockBroker)
	b.On("GetAccount", mock.Anything).Return(richAccount(), nil)
	b.On("ListOptionContracts", mock.Anything, "NDX").Return([]broker.OptionContract{
		{Symbol: "NDX250306C20500000", Strike: decimal.NewFromInt(20500), Expiration: "2025-03-06", Type: alert.OptionCall, Tradable: true},
		// 行权价匹配但不可交易
		{Symbol: "NDX250306C20700000", Strike: decimal.NewFromInt(20700), Expiration: "2025-03-06", Type: alert.OptionCall, Tradable: false},
	}, nil)

	d := NewDispatcher(b)
	result := d.Dispatch(context.Background(), optionIntent())

	assert.Equal(t, store.StatusRejected, result.Status)
	assert.Equal(t, "no matching contract", result.ErrorMessage)
	b.AssertNotCalled(t, "SubmitOrder", mock.Anything, mock.Anything)
}

func TestDispatchOptionMissingFieldsRejected(t *testing.T) {
	intent := optionIntent()
	intent.Expiration = ""

	b := new(MockBroker)
	b.On("GetAccount", mock.Anything).Return(richAccount(), nil)

	d := NewDispatcher(b)
	result := d.Dispatch(context.Background(), intent)

	assert.Equal(t, store.StatusRejected, result.Status)
	assert.Equal(t, "no matching contract", result.ErrorMessage)
	b.AssertNotCalled(t, "ListOptionContracts", mock.Anything, mock.Anything)
	b.AssertNotCalled(t, "SubmitOrder", mock.Anything, mock.Anything)
}

func TestDispatchOptionBrokerErrorBecomesErrorStatus(t *testing.T) {
	b := new(MockBroker)
	b.On("GetAccount", mock.Anything).Return(richAccount(), nil)
	b.On("ListOptionContracts", mock.Anything, "NDX").Return(nil, errors.New("rate limited"))

	d := NewDispatcher(b)
	result := d.Dispatch(context.Background(), optionIntent())

	assert.Equal(t, store.StatusError, result.Status)
	assert.Contains(t, result.ErrorMessage, "resolving option contract")
}

func TestDispatchCustomMinCash(t *testing.T) {
	b := new(MockBroker)
	b.On("GetAccount", mock.Anything).Return(broker.Account{Cash: decimal.NewFromInt(30)}, nil)
	b.On("SubmitOrder", mock.Anything, mock.Anything).Return(broker.OrderAck{ID: "ord-5"}, nil)

	d := NewDispatcher(b, WithMinCash(decimal.NewFromInt(10)))
	result := d.Dispatch(context.Background(), stockIntent())

	require.Equal(t, store.StatusSubmitted, result.Status)
}
