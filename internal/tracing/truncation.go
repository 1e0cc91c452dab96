package tracing

import "strings"

const (
	// DefaultMaxLength 属性值默认最大长度
	DefaultMaxLength = 200

	// MaxSQLLength SQL语句最大长度
	MaxSQLLength = 500

	// MaxTextLength 简历/JD文本片段最大长度
	MaxTextLength = 150
)

// MaskPII 掩码个人敏感信息，保留首尾字符
func MaskPII(value string) string {
	if value == "" {
		return ""
	}

	runes := []rune(value)
	n := len(runes)
	switch {
	case n <= 1:
		return "*"
	case n <= 4:
		return string(runes[:1]) + strings.Repeat("*", n-1)
	default:
		return string(runes[:2]) + strings.Repeat("*", n-4) + string(runes[n-2:])
	}
}

// TruncateString 截断字符串，保留首尾并以省略号连接
func TruncateString(s string, maxLength int) string {
	runes := []rune(s)
	if len(runes) <= maxLength {
		return s
	}
	if maxLength <= 3 {
		return string(runes[:maxLength])
	}

	half := (maxLength - 3) / 2
	if half < 1 {
		half = 1
	}
	return string(runes[:half]) + "..." + string(runes[len(runes)-half:])
}

// SafeSQL 截断SQL语句用于span属性
func SafeSQL(sql string) string {
	return TruncateString(sql, MaxSQLLength)
}

// SafeText 截断文本片段用于span属性
func SafeText(text string) string {
	return TruncateString(text, MaxTextLength)
}
