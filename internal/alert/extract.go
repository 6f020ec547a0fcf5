package alert

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"tradesync/internal/logger"
)

// 中文说明：
// IntentExtractor：把非结构化的告警文本转成 TradeIntent。
// 两条路径：
//   1. 配置了 TextClassifier（LLM）时优先走结构化抽取；
//   2. 任何分类器失败都静默回退到确定性的正则/启发式路径。
// Extract 是全函数：对任何输入都不报错，最差返回全 Unknown 的兜底结果。

// Classifier 外部文本分类能力（LLM），返回原始模型输出。
type Classifier interface {
	ExtractStructured(ctx context.Context, text string) (string, error)
}

// Extractor 告警抽取器。无内部状态，Extract 为纯函数（同输入同输出）。
type Extractor struct {
	classifier Classifier
	now        func() time.Time
}

// Option 构造选项
type Option func(*Extractor)

// WithClassifier 注入 LLM 抽取能力
func WithClassifier(c Classifier) Option {
	return func(e *Extractor) { e.classifier = c }
}

// WithClock 注入时钟（测试用，影响 MM/DD 日期的补年）
func WithClock(fn func() time.Time) Option {
	return func(e *Extractor) { e.now = fn }
}

func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// 动作触发词，按序匹配，先买后卖，首个命中生效
var (
	buyTriggers  = []string{"bought", "buying", "roll up"}
	sellTriggers = []string{"sold", "all out", "trimmed", "stc final", "stopped out"}
)

// SELL 的部分平仓短语 → 平仓比例。顺序敏感："all out but runners" 必须先于
// 单独的分数短语检查。
var sellFractions = []struct {
	phrase string
	ratio  float64
}{
	{"all out but runners", 0.8},
	{"1/2", 0.5},
	{"50%", 0.5},
	{"first trim", 0.5},
	{"1/4", 0.25},
	{"25%", 0.25},
	{"trimmed more", 0.25},
}

var (
	strikeRe = regexp.MustCompile(`(\d+(?:\.\d+)?)([cp])\b`)
	expRe    = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{4}|\d{2}))?\b`)
	buyQtyRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s+(?:contracts?|conts?|shares?)\b`)
	priceRe  = regexp.MustCompile(`\$?\d+\.\d+[cp]?`)
	tickerRe = regexp.MustCompile(`^[A-Z]{1,5}$`)
	traderRe = regexp.MustCompile(`(?i)([A-Za-z][A-Za-z0-9_]*)\s+just\s+(?:bought|sold)`)
)

// 触发词与单位词不参与 ticker 匹配。注意大写 "I" 之类的误报是已知限制，
// 不做字典校验。
var tickerStopwords = map[string]bool{
	"sold": true, "bought": true, "buying": true, "buy": true, "sell": true,
	"stc": true, "final": true, "all": true, "out": true, "but": true,
	"runners": true, "trimmed": true, "trim": true, "first": true, "more": true,
	"stopped": true, "roll": true, "up": true,
	"cont": true, "conts": true, "contract": true, "contracts": true,
	"share": true, "shares": true,
	"exp": true, "expiring": true, "expires": true, "expiry": true,
	"call": true, "calls": true, "put": true, "puts": true, "c": true, "p": true,
}

var (
	callTokens = map[string]bool{"call": true, "calls": true, "c": true}
	putTokens  = map[string]bool{"put": true, "puts": true, "p": true}
)

// Extract 抽取入口。分类器可用则先走分类器，失败回退启发式。
func (e *Extractor) Extract(ctx context.Context, raw string) TradeIntent {
	if e.classifier != nil {
		intent, err := e.extractViaClassifier(ctx, raw)
		if err == nil {
			return intent
		}
		logger.Warnf("classifier extraction failed, falling back to heuristics: %v", err)
	}
	return e.extractHeuristic(raw)
}

// extractHeuristic 确定性路径，逐步抽取各字段。
func (e *Extractor) extractHeuristic(raw string) TradeIntent {
	intent := emptyIntent(raw)
	intent.Source = "heuristic"
	text := Normalize(raw)
	if text == "" {
		intent.Err = "empty alert text"
		return intent
	}

	intent.Action = detectAction(text)
	intent.Trader = detectTrader(raw)

	switch intent.Action {
	case ActionSell:
		intent.Quantity = sellCloseRatio(text)
	case ActionBuy:
		if m := buyQtyRe.FindStringSubmatch(text); m != nil {
			if qty, err := strconv.ParseFloat(m[1], 64); err == nil && qty > 0 {
				intent.Quantity = qty
			}
		}
	}

	hasCall, hasPut := detectOptionTokens(text)
	if hasCall || hasPut {
		intent.Instrument = InstrumentOption
		// call 优先于 put，两者同现时取 call
		if hasCall {
			intent.OptionType = OptionCall
		} else {
			intent.OptionType = OptionPut
		}
	}

	if m := strikeRe.FindStringSubmatch(text); m != nil {
		if strike, err := strconv.ParseFloat(m[1], 64); err == nil && strike > 0 {
			intent.Strike = strike
			intent.Instrument = InstrumentOption
			if intent.OptionType == OptionNone {
				if m[2] == "c" {
					intent.OptionType = OptionCall
				} else {
					intent.OptionType = OptionPut
				}
			}
		}
	}

	intent.Symbol = detectTicker(raw)
	if exp, ok := e.detectExpiration(text); ok {
		intent.Expiration = exp
	}
	if price, ok := detectPrice(text); ok {
		intent.Price = price
	}
	return intent
}

func detectAction(text string) Action {
	for _, trig := range buyTriggers {
		if strings.Contains(text, trig) {
			return ActionBuy
		}
	}
	for _, trig := range sellTriggers {
		if strings.Contains(text, trig) {
			return ActionSell
		}
	}
	return ActionUnknown
}

// sellCloseRatio SELL 的数量语义：默认 1.0（清仓），部分平仓短语给出比例。
func sellCloseRatio(text string) float64 {
	for _, f := range sellFractions {
		if strings.Contains(text, f.phrase) {
			return f.ratio
		}
	}
	return 1.0
}

func detectOptionTokens(text string) (hasCall, hasPut bool) {
	for _, tok := range strings.Fields(text) {
		tok = strings.Trim(tok, ".,!?;:()[]{}")
		if callTokens[tok] {
			hasCall = true
		}
		if putTokens[tok] {
			hasPut = true
		}
	}
	if m := strikeRe.FindAllStringSubmatch(text, -1); m != nil {
		for _, sub := range m {
			if sub[2] == "c" {
				hasCall = true
			} else {
				hasPut = true
			}
		}
	}
	return hasCall, hasPut
}

// detectTicker 取原文中首个 1~5 位全大写的独立 token。
// 不做真实代码字典校验，误报（如句首的 "I"）按已知限制保留。
func detectTicker(raw string) string {
	for _, tok := range strings.Fields(raw) {
		tok = strings.Trim(tok, ".,!?;:()[]{}$")
		if tok == "" || tickerStopwords[strings.ToLower(tok)] {
			continue
		}
		if tickerRe.MatchString(tok) {
			return tok
		}
	}
	return Unknown
}

func detectTrader(raw string) string {
	if m := traderRe.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	return Unknown
}

// detectExpiration 解析 MM/DD[/YY[YY]]。只给 MM/DD 时补当前年份；
// 两位年份按 69 为轴：00-68 → 20xx，69-99 → 19xx（与 Go "06" 布局一致）。
func (e *Extractor) detectExpiration(text string) (string, bool) {
	for _, m := range expRe.FindAllStringSubmatch(text, -1) {
		month, err1 := strconv.Atoi(m[1])
		day, err2 := strconv.Atoi(m[2])
		if err1 != nil || err2 != nil || month < 1 || month > 12 || day < 1 || day > 31 {
			continue
		}
		year := e.now().Year()
		if m[3] != "" {
			y, err := strconv.Atoi(m[3])
			if err != nil {
				continue
			}
			if len(m[3]) == 2 {
				if y <= 68 {
					year = 2000 + y
				} else {
					year = 1900 + y
				}
			} else {
				year = y
			}
		}
		t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		if int(t.Month()) != month || t.Day() != day {
			continue
		}
		return t.Format("2006-01-02"), true
	}
	return "", false
}

// detectPrice 取首个自由浮动的小数 token（可带 $ 前缀），跳过行权价模式。
func detectPrice(text string) (float64, bool) {
	for _, m := range priceRe.FindAllString(text, -1) {
		if strings.HasSuffix(m, "c") || strings.HasSuffix(m, "p") {
			continue
		}
		price, err := strconv.ParseFloat(strings.TrimPrefix(m, "$"), 64)
		if err == nil && price > 0 {
			return price, true
		}
	}
	return 0, false
}
