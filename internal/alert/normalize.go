package alert

import "strings"

// Normalize 仅用于匹配：小写 + 去首尾空白。原文保留在 RawText 中。
func Normalize(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
