package alert

// 中文说明：
// 本文件定义告警解析相关的通用数据结构，供抽取器、校验器与下游分发使用。

// Action 交易方向
type Action string

const (
	ActionBuy     Action = "buy"
	ActionSell    Action = "sell"
	ActionUnknown Action = "unknown"
)

// Instrument 标的类型：股票或期权
type Instrument string

const (
	InstrumentStock  Instrument = "stock"
	InstrumentOption Instrument = "option"
)

// OptionType 期权类型
type OptionType string

const (
	OptionCall OptionType = "call"
	OptionPut  OptionType = "put"
	OptionNone OptionType = "none"
)

// Unknown 字段缺失时的占位标签
const Unknown = "Unknown"

// TradeIntent 单条告警文本的结构化抽取结果。
// 注意 SELL 的 Quantity 语义：可能是待平仓位的比例（如 0.5 = 平一半），
// 而 BUY 的 Quantity 是绝对张数/股数。这一不对称是刻意保留的领域约定。
type TradeIntent struct {
	Trader     string     `json:"trader"`
	Action     Action     `json:"action"`
	Symbol     string     `json:"symbol"`
	Quantity   float64    `json:"quantity"`
	Instrument Instrument `json:"instrument"`
	Strike     float64    `json:"strike,omitempty"`
	OptionType OptionType `json:"option_type"`
	Expiration string     `json:"expiration,omitempty"` // ISO-8601 (YYYY-MM-DD)
	Price      float64    `json:"price,omitempty"`
	RawText    string     `json:"raw_text"`
	Confidence float64    `json:"confidence,omitempty"`
	Source     string     `json:"source,omitempty"` // classifier | heuristic
	Err        string     `json:"error,omitempty"`
}

// emptyIntent 返回全 Unknown 的兜底结果（解析永不抛错）
func emptyIntent(raw string) TradeIntent {
	return TradeIntent{
		Trader:     Unknown,
		Action:     ActionUnknown,
		Symbol:     Unknown,
		Quantity:   1.0,
		Instrument: InstrumentStock,
		OptionType: OptionNone,
		RawText:    raw,
	}
}
