package affiliate

import (
	"fmt"
	"net/url"
	"strings"
)

// IssueInvalidURL 無法解析的連結
const IssueInvalidURL = "Invalid URL format"

// ValidationResult 連結驗證結果
type ValidationResult struct {
	IsValid         bool     `json:"is_valid"`
	HasCorrectTag   bool     `json:"has_correct_tag"`
	HasRefParameter bool     `json:"has_ref_parameter"`
	Issues          []string `json:"issues"`
}

// ValidateAffiliateLink 檢查連結是否帶有正確的追蹤參數並指向合作網域
// 驗證失敗以資料表示，不會返回錯誤
func (l *Linker) ValidateAffiliateLink(rawURL string) ValidationResult {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ValidationResult{Issues: []string{IssueInvalidURL}}
	}

	result := ValidationResult{Issues: []string{}}
	query := lenientQuery(u.RawQuery)

	switch tag := query.Get("tag"); {
	case tag == "":
		result.Issues = append(result.Issues, "Missing affiliate tag parameter")
	case tag != l.cfg.Tag:
		result.Issues = append(result.Issues,
			fmt.Sprintf("Incorrect affiliate tag: expected %q, got %q", l.cfg.Tag, tag))
	default:
		result.HasCorrectTag = true
	}

	if query.Get("ref") != "" {
		result.HasRefParameter = true
	} else {
		result.Issues = append(result.Issues, "Missing ref parameter")
	}

	if !strings.Contains(strings.ToLower(u.Hostname()), strings.ToLower(l.cfg.VendorDomain)) {
		result.Issues = append(result.Issues,
			fmt.Sprintf("URL host %q is not on %s", u.Hostname(), l.cfg.VendorDomain))
	}

	result.IsValid = len(result.Issues) == 0
	return result
}

// lenientQuery 解析查詢字串，無法解碼的值保留原文而不丟棄
func lenientQuery(rawQuery string) url.Values {
	values := url.Values{}
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		values.Add(unescapeOrRaw(key), unescapeOrRaw(value))
	}
	return values
}

func unescapeOrRaw(s string) string {
	if decoded, err := url.QueryUnescape(s); err == nil {
		return decoded
	}
	return s
}
