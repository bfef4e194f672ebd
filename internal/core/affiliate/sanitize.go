package affiliate

import (
	"regexp"
	"strings"
	"unicode"
)

// maxIngredientLength 清理後食材名稱的最大長度
const maxIngredientLength = 100

var (
	// RE2 的 \w 與 \s 僅涵蓋 ASCII；其他空白先由 normalizeSpace 轉為空格
	disallowedChars = regexp.MustCompile(`[^\w\s-]`)
	whitespaceRuns  = regexp.MustCompile(`\s+`)
)

// normalizeSpace 將 Unicode 空白（含 \v、NBSP、U+2000 至 U+200A、U+3000、BOM）轉為空格
func normalizeSpace(r rune) rune {
	if unicode.IsSpace(r) || r == '\uFEFF' {
		return ' '
	}
	return r
}

// SanitizeIngredientName 將食材名稱正規化以便嵌入 URL
func SanitizeIngredientName(raw string) string {
	name := strings.Map(normalizeSpace, raw)
	name = strings.ToLower(strings.TrimSpace(name))
	name = disallowedChars.ReplaceAllString(name, "")
	name = whitespaceRuns.ReplaceAllString(name, " ")

	// 此時只剩 ASCII，可直接按位元組截斷
	if len(name) > maxIngredientLength {
		name = name[:maxIngredientLength]
	}

	// 移除字元或截斷後可能留下的首尾空白，保持冪等
	return strings.TrimSpace(name)
}
