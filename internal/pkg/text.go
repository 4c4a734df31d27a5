package pkg

import (
	"strings"
	"unicode/utf8"
)

// CleanText 只去掉首尾空白，内容按原样保存；输出时由 JSON 编码负责转义
// 非法 UTF-8 字节替换为 U+FFFD
func CleanText(s string) string {
	return strings.TrimSpace(strings.ToValidUTF8(s, "�"))
}

// RuneLen 按字符计长度
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}
