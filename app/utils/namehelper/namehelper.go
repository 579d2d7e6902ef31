package namehelper

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// 导出文件名里不允许出现的字符
var invalidChars = "\\/:*?\"<>|"

// Sanitize 把任意项目名转成可以安全用作导出文件名的形式
// 去掉音调符号和文件系统保留字符，空白折叠为下划线
func Sanitize(name string) string {
	// 去掉组合音调符号
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	cleaned, _, err := transform.String(t, name)
	if err != nil {
		cleaned = name
	}

	var b strings.Builder
	for _, r := range cleaned {
		switch {
		case strings.ContainsRune(invalidChars, r):
			// 跳过保留字符
		case unicode.IsSpace(r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}

	result := strings.Trim(b.String(), "._")
	if result == "" {
		return "untitled"
	}
	return result
}
