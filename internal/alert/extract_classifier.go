package alert

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"
	"github.com/tidwall/gjson"
)

// extractViaClassifier 走 LLM 结构化抽取。任何一步失败都返回 error，
// 由调用方回退到启发式路径；失败绝不向上层冒泡。
func (e *Extractor) extractViaClassifier(ctx context.Context, raw string) (TradeIntent, error) {
	out, err := e.classifier.ExtractStructured(ctx, raw)
	if err != nil {
		return TradeIntent{}, fmt.Errorf("classifier call: %w", err)
	}
	return e.parseClassifierPayload(out, raw)
}

func (e *Extractor) parseClassifierPayload(out, raw string) (TradeIntent, error) {
	payload := StripCodeFence(out)
	if obj, ok := ExtractJSONObject(payload); ok {
		payload = obj
	}
	repaired, err := jsonrepair.JSONRepair(payload)
	if err != nil {
		return TradeIntent{}, fmt.Errorf("repairing classifier json: %w", err)
	}
	if err := ValidateExtractionJSON(repaired); err != nil {
		return TradeIntent{}, err
	}

	r := gjson.Parse(repaired)
	intent := emptyIntent(raw)
	intent.Source = "classifier"

	if trader := strings.TrimSpace(r.Get("trader").String()); trader != "" {
		intent.Trader = trader
	}
	intent.Action = normalizeAction(r.Get("action").String())

	if qty := r.Get("quantity").Float(); qty > 0 {
		intent.Quantity = qty
	}
	symbol := strings.ToUpper(strings.TrimSpace(r.Get("symbol").String()))
	if tickerRe.MatchString(symbol) {
		intent.Symbol = symbol
	}
	if strike := r.Get("strike").Float(); strike > 0 {
		intent.Strike = strike
		intent.Instrument = InstrumentOption
	}
	switch strings.ToLower(strings.TrimSpace(r.Get("option_type").String())) {
	case "call", "c":
		intent.OptionType = OptionCall
		intent.Instrument = InstrumentOption
	case "put", "p":
		intent.OptionType = OptionPut
		intent.Instrument = InstrumentOption
	}
	if exp := strings.TrimSpace(r.Get("expiration").String()); exp != "" {
		if iso, ok := e.normalizeExpiration(exp); ok {
			intent.Expiration = iso
		}
	}
	if price := r.Get("price").Float(); price > 0 {
		intent.Price = price
	}
	if conf := r.Get("confidence").Float(); conf > 0 {
		intent.Confidence = conf
	}
	return intent, nil
}

// normalizeAction 统一动作名称，大小写不敏感
func normalizeAction(a string) Action {
	switch strings.ToLower(strings.TrimSpace(a)) {
	case "buy", "bought", "buying", "long":
		return ActionBuy
	case "sell", "sold", "selling", "close":
		return ActionSell
	}
	return ActionUnknown
}

// normalizeExpiration 把分类器给的日期规整成 ISO-8601
func (e *Extractor) normalizeExpiration(exp string) (string, bool) {
	for _, layout := range []string{"2006-01-02", "01/02/2006", "01/02/06"} {
		if t, err := time.Parse(layout, exp); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	// MM/DD 补当前年
	return e.detectExpiration(strings.ToLower(exp))
}
