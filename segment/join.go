package segment

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// IsIdentifierChar 判断字符是否属于标识符类（字母、数字、_、$）。
func IsIdentifierChar(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// NeedsSpace 判断两个相邻片段直接拼接是否会融合成不同的词法单元。
func NeedsSpace(prev, next string) bool {
	if prev == "" || next == "" {
		return false
	}
	last, _ := utf8.DecodeLastRuneInString(prev)
	first, _ := utf8.DecodeRuneInString(next)
	if IsIdentifierChar(last) && IsIdentifierChar(first) {
		return true
	}
	switch last {
	case '+', '-':
		return first == last
	case '/':
		return first == '/' || first == '*'
	}
	return false
}

// Join 以最少的空格拼接片段：仅在会发生融合的位置插入一个空格。
func Join(parts []string) string {
	var b strings.Builder
	for i, p := range parts {
		if i > 0 && NeedsSpace(parts[i-1], p) {
			b.WriteByte(' ')
		}
		b.WriteString(p)
	}
	return b.String()
}
