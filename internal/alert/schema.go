package alert

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// 中文说明：
// 分类器返回的 JSON 在映射成 TradeIntent 之前必须先过 schema 校验，
// 不合规的输出视为分类器失败并回退启发式路径。

const extractionSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["action", "symbol"],
  "properties": {
    "trader": {"type": ["string", "null"]},
    "action": {"type": "string"},
    "quantity": {"type": ["number", "string", "null"]},
    "symbol": {"type": ["string", "null"]},
    "strike": {"type": ["number", "string", "null"]},
    "option_type": {"type": ["string", "null"]},
    "expiration": {"type": ["string", "null"]},
    "price": {"type": ["number", "string", "null"]},
    "confidence": {"type": ["number", "null"]}
  }
}`

var extractionSchema = jsonschema.MustCompileString("extraction.json", extractionSchemaJSON)

// ValidateExtractionJSON 校验分类器输出是否符合抽取 schema
func ValidateExtractionJSON(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("classifier returned empty payload")
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return fmt.Errorf("classifier payload is not valid json: %w", err)
	}
	if err := extractionSchema.Validate(v); err != nil {
		return fmt.Errorf("classifier payload rejected by schema: %w", err)
	}
	return nil
}
