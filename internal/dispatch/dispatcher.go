package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"tradesync/internal/alert"
	"tradesync/internal/broker"
	"tradesync/internal/logger"
	"tradesync/internal/store"
)

// 中文说明：
// OrderDispatcher：把校验过的 TradeIntent 映射成券商订单并提交。
// - 先做资金检查：可用现金低于最小阈值直接 REJECTED，不触发下单接口；
// - 股票：市价单，数量取整，TIF 统一 GTC；
// - 期权：先在券商合约列表中解析出具体合约（行权价 ±0.01 容差），
//   找不到就 REJECTED，绝不猜测；
// - 券商异常一律捕获并转成 ERROR，不向 webhook 边界冒泡。

// MinCashUSD 资金下限（美元），低于此值拒绝分发
const MinCashUSD = 50

// strikeTolerance 浮点行权价比较容差
var strikeTolerance = decimal.NewFromFloat(0.01)

// defaultBrokerTimeout 单次券商调用的超时上限
const defaultBrokerTimeout = 10 * time.Second

// Dispatcher 订单分发器
type Dispatcher struct {
	broker  broker.Broker
	minCash decimal.Decimal
	timeout time.Duration
}

// DispatcherOption 构造选项
type DispatcherOption func(*Dispatcher)

// WithMinCash 覆盖资金下限（测试用）
func WithMinCash(min decimal.Decimal) DispatcherOption {
	return func(d *Dispatcher) { d.minCash = min }
}

// WithBrokerTimeout 覆盖券商调用超时
func WithBrokerTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) { d.timeout = timeout }
}

func NewDispatcher(b broker.Broker, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		broker:  b,
		minCash: decimal.NewFromInt(MinCashUSD),
		timeout: defaultBrokerTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch 提交一条校验过的意图。永不 panic/报错，结果都落在 DispatchResult 上。
func (d *Dispatcher) Dispatch(ctx context.Context, intent alert.TradeIntent) store.DispatchResult {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	acct, err := d.broker.GetAccount(ctx)
	if err != nil {
		logger.Errorf("dispatch: account check failed: %v", err)
		return errorResult(fmt.Sprintf("checking account: %v", err))
	}
	if acct.Cash.LessThan(d.minCash) {
		logger.Warnf("dispatch: insufficient funds, cash=%s min=%s", acct.Cash.StringFixed(2), d.minCash.StringFixed(2))
		return rejectedResult(fmt.Sprintf("insufficient funds: cash $%s below $%s minimum", acct.Cash.StringFixed(2), d.minCash.StringFixed(2)))
	}

	if intent.Instrument == alert.InstrumentOption {
		return d.dispatchOption(ctx, intent)
	}
	return d.dispatchStock(ctx, intent)
}

func (d *Dispatcher) dispatchStock(ctx context.Context, intent alert.TradeIntent) store.DispatchResult {
	qty := decimal.NewFromFloat(intent.Quantity).Round(0)
	if qty.LessThanOrEqual(decimal.Zero) {
		return rejectedResult(fmt.Sprintf("quantity %v rounds to zero shares", intent.Quantity))
	}
	return d.submit(ctx, intent, broker.OrderRequest{
		Symbol: intent.Symbol,
		Qty:    qty,
		Side:   intent.Action,
		Type:   orderType(intent),
	}, intent.Price)
}

func (d *Dispatcher) dispatchOption(ctx context.Context, intent alert.TradeIntent) store.DispatchResult {
	contract, err := d.resolveContract(ctx, intent)
	if err != nil {
		return errorResult(fmt.Sprintf("resolving option contract: %v", err))
	}
	if contract == nil {
		logger.Warnf("dispatch: no matching contract for %s strike=%v exp=%s type=%s",
			intent.Symbol, intent.Strike, intent.Expiration, intent.OptionType)
		return rejectedResult("no matching contract")
	}
	qty := decimal.NewFromFloat(intent.Quantity).Round(0)
	if qty.LessThanOrEqual(decimal.Zero) {
		return rejectedResult(fmt.Sprintf("quantity %v rounds to zero contracts", intent.Quantity))
	}
	return d.submit(ctx, intent, broker.OrderRequest{
		Symbol: contract.Symbol,
		Qty:    qty,
		Side:   intent.Action,
		Type:   orderType(intent),
	}, intent.Price)
}

// resolveContract 在合约列表中按 {标的, 行权价±0.01, 到期日, 类型} 精确解析。
// 意图缺任一期权字段就视为不可解析，由调用方转为拒绝。
func (d *Dispatcher) resolveContract(ctx context.Context, intent alert.TradeIntent) (*broker.OptionContract, error) {
	if intent.Strike <= 0 || intent.Expiration == "" || intent.OptionType == alert.OptionNone {
		return nil, nil
	}
	contracts, err := d.broker.ListOptionContracts(ctx, intent.Symbol)
	if err != nil {
		return nil, err
	}
	strike := decimal.NewFromFloat(intent.Strike)
	for i := range contracts {
		c := &contracts[i]
		if !c.Tradable {
			continue
		}
		if c.Type != intent.OptionType || c.Expiration != intent.Expiration {
			continue
		}
		if c.Strike.Sub(strike).Abs().GreaterThan(strikeTolerance) {
			continue
		}
		return c, nil
	}
	return nil, nil
}

func (d *Dispatcher) submit(ctx context.Context, intent alert.TradeIntent, req broker.OrderRequest, price float64) store.DispatchResult {
	if req.Type == broker.OrderTypeLimit {
		limit := decimal.NewFromFloat(price).Round(2)
		req.LimitPrice = &limit
	}
	ack, err := d.broker.SubmitOrder(ctx, req)
	if err != nil {
		logger.Errorf("dispatch: submit failed symbol=%s side=%s: %v", req.Symbol, req.Side, err)
		return errorResult(fmt.Sprintf("submitting order: %v", err))
	}
	logger.Infof("dispatch: order submitted id=%s symbol=%s side=%s qty=%s type=%s",
		ack.ID, req.Symbol, req.Side, req.Qty.String(), req.Type)
	status := store.StatusSubmitted
	if ack.Status == "filled" {
		status = store.StatusFilled
	}
	return store.DispatchResult{Status: status, BrokerOrderID: ack.ID}
}

// orderType 解析出限价时用限价单，否则市价单
func orderType(intent alert.TradeIntent) broker.OrderType {
	if intent.Price > 0 {
		return broker.OrderTypeLimit
	}
	return broker.OrderTypeMarket
}

func rejectedResult(reason string) store.DispatchResult {
	return store.DispatchResult{Status: store.StatusRejected, ErrorMessage: reason}
}

func errorResult(msg string) store.DispatchResult {
	return store.DispatchResult{Status: store.StatusError, ErrorMessage: msg}
}
