package alert

import "strings"

// StripCodeFence 去掉 Markdown 代码围栏（``` 或 ```json）包装
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		// 首行可能是语言标记（json 等）
		first := strings.TrimSpace(s[:idx])
		if first == "" || isFenceLang(first) {
			s = s[idx+1:]
		}
	}
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

func isFenceLang(s string) bool {
	switch strings.ToLower(s) {
	case "json", "json5", "javascript", "js":
		return true
	}
	return false
}

// ExtractJSONObject 提取首个完整 JSON 对象，返回对象文本与是否成功
func ExtractJSONObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	if start == -1 {
		return "", false
	}
	depth := 0
	inStr := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return strings.TrimSpace(s[start : i+1]), true
			}
		}
	}
	return "", false
}
