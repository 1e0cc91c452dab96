package parser

import (
	"regexp"
	"strings"
)

var (
	emailPattern = regexp.MustCompile(`(?i)[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	// 首字母大写的两段式姓名，如 "Jane Doe"
	namePattern  = regexp.MustCompile(`^[A-Z][A-Za-z'-]+\s+[A-Z][A-Za-z'-]+$`)
	digitPattern = regexp.MustCompile(`^\d+$`)
)

// ExtractIdentity 从简历文本中猜测姓名和邮箱
// 纯启发式，任何一项猜不出来就返回空串，绝不让摄取流程失败。
// 姓名在前几个非空行中找首字母大写的两段式模式，找不到时从邮箱
// 本地部分推导一个展示名。
func ExtractIdentity(text string) (name, email string) {
	email = emailPattern.FindString(text)

	lines := strings.Split(text, "\n")
	seen := 0
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		seen++
		if seen > 5 {
			break
		}
		if strings.Contains(line, "@") {
			continue
		}
		if namePattern.MatchString(line) {
			name = line
			break
		}
	}

	if name == "" && email != "" {
		name = displayNameFromEmail(email)
	}

	return name, email
}

// displayNameFromEmail 从邮箱本地部分推导展示名
// "jane.doe99@x.com" -> "Jane Doe"
func displayNameFromEmail(email string) string {
	at := strings.Index(email, "@")
	if at <= 0 {
		return ""
	}
	local := email[:at]

	parts := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-'
	})

	words := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(p, "0123456789")
		if p == "" || digitPattern.MatchString(p) {
			continue
		}
		words = append(words, strings.ToUpper(p[:1])+strings.ToLower(p[1:]))
	}

	return strings.Join(words, " ")
}
