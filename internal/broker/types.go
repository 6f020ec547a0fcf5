package broker

import (
	"time"

	"github.com/shopspring/decimal"

	"tradesync/internal/alert"
)

// Account 账户快照
type Account struct {
	Cash        decimal.Decimal `json:"cash"`
	Equity      decimal.Decimal `json:"equity"`
	BuyingPower decimal.Decimal `json:"buying_power"`
	Currency    string          `json:"currency"`
}

// Position 持仓
type Position struct {
	Symbol        string          `json:"symbol"`
	Qty           decimal.Decimal `json:"qty"`
	AvgEntryPrice decimal.Decimal `json:"avg_entry_price"`
	MarketValue   decimal.Decimal `json:"market_value"`
	UnrealizedPL  decimal.Decimal `json:"unrealized_pl"`
}

// OrderType 订单类型
type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

// OrderRequest 提交给券商的订单。TimeInForce 统一默认 GTC。
type OrderRequest struct {
	Symbol     string
	Qty        decimal.Decimal
	Side       alert.Action
	Type       OrderType
	LimitPrice *decimal.Decimal
}

// OrderAck 券商对订单的确认
type OrderAck struct {
	ID        string    `json:"id"`
	Symbol    string    `json:"symbol"`
	Side      string    `json:"side"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// OptionContract 可交易期权合约，已在边界处归一化
type OptionContract struct {
	Symbol     string           `json:"symbol"`
	Underlying string           `json:"underlying"`
	Strike     decimal.Decimal  `json:"strike"`
	Expiration string           `json:"expiration"` // ISO-8601
	Type       alert.OptionType `json:"type"`
	Tradable   bool             `json:"tradable"`
}

// Quote 最新报价
type Quote struct {
	Symbol    string    `json:"symbol"`
	BidPrice  float64   `json:"bid_price"`
	AskPrice  float64   `json:"ask_price"`
	Timestamp time.Time `json:"timestamp"`
}
