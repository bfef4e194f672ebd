package affiliate

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"freshsense/internal/pkg/common"
)

// freshCategoryNode Amazon Fresh 的分類節點
const freshCategoryNode = "n%3A16318821%2Ck%3A"

// asinLength ASIN 固定長度
const asinLength = 10

// ErrInvalidASIN ASIN 格式錯誤
var ErrInvalidASIN = common.NewError(common.ErrCodeInvalidArgument, "ASIN 必須為 10 個英數字元", http.StatusBadRequest, nil)

// Linker 聯盟連結產生器
type Linker struct {
	cfg Config
}

// NewLinker 以設定建立連結產生器
func NewLinker(cfg Config) (*Linker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid affiliate config: %w", err)
	}
	return &Linker{cfg: cfg}, nil
}

// MustNewLinker 建立連結產生器，設定錯誤時 panic
func MustNewLinker(cfg Config) *Linker {
	l, err := NewLinker(cfg)
	if err != nil {
		panic(err)
	}
	return l
}

// Config 返回目前設定的副本
func (l *Linker) Config() Config {
	return l.cfg
}

// uriComponentUnescapes QueryEscape 會轉義但 encodeURIComponent 保留的字元
var uriComponentUnescapes = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// encodeComponent 與 encodeURIComponent 相同：空白編碼為 %20，保留 !'()*
func encodeComponent(s string) string {
	return uriComponentUnescapes.Replace(url.QueryEscape(s))
}

// searchTerm 轉小寫、去除首尾空白後編碼
func searchTerm(ingredient string) string {
	return encodeComponent(strings.ToLower(strings.TrimSpace(ingredient)))
}

// searchURL 組合搜尋連結，k、ref、tag 依序排列
func (l *Linker) searchURL(base, encodedTerm string) *strings.Builder {
	var b strings.Builder
	b.WriteString(base)
	b.WriteString("?k=")
	b.WriteString(encodedTerm)
	b.WriteString("&ref=")
	b.WriteString(encodeComponent(l.cfg.RefParam))
	b.WriteString("&tag=")
	b.WriteString(encodeComponent(l.cfg.Tag))
	return &b
}

// FreshLink 產生 Amazon Fresh 搜尋連結，category 非空時附加分類篩選
func (l *Linker) FreshLink(ingredient, category string) string {
	b := l.searchURL(l.cfg.FreshBaseURL, searchTerm(ingredient))
	if category != "" {
		b.WriteString("&rh=")
		b.WriteString(freshCategoryNode)
		b.WriteString(encodeComponent(category))
	}
	return b.String()
}

// GeneralLink 產生一般 Amazon 搜尋連結，department 為空時使用 grocery
func (l *Linker) GeneralLink(ingredient, department string) string {
	if department == "" {
		department = string(DepartmentGrocery)
	}
	b := l.searchURL(l.cfg.BaseURL, searchTerm(ingredient))
	b.WriteString("&i=")
	b.WriteString(encodeComponent(department))
	return b.String()
}

// ValidASIN 檢查 ASIN 是否為 10 個 ASCII 英數字元
func ValidASIN(asin string) bool {
	if len(asin) != asinLength {
		return false
	}
	for i := 0; i < len(asin); i++ {
		c := asin[i]
		if !(c >= '0' && c <= '9' || c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z') {
			return false
		}
	}
	return true
}

// ProductLink 產生商品頁連結，ASIN 不合法時返回 ErrInvalidASIN
func (l *Linker) ProductLink(asin string) (string, error) {
	if !ValidASIN(asin) {
		return "", fmt.Errorf("%w: got %q (%d bytes)", ErrInvalidASIN, asin, len(asin))
	}
	return fmt.Sprintf("%s/%s/ref=nosim?tag=%s&ref=%s",
		l.cfg.ProductBaseURL, asin,
		encodeComponent(l.cfg.Tag), encodeComponent(l.cfg.RefParam),
	), nil
}

// ShoppingCartLink 將多個食材合併成一個 Amazon Fresh 搜尋連結
// 去除空白後為空的食材會被略過
func (l *Linker) ShoppingCartLink(ingredients []string) string {
	terms := make([]string, 0, len(ingredients))
	for _, ingredient := range ingredients {
		if strings.TrimSpace(ingredient) == "" {
			continue
		}
		terms = append(terms, searchTerm(ingredient))
	}
	return l.searchURL(l.cfg.FreshBaseURL, strings.Join(terms, "%20")).String()
}

// OptimizedLink 依食材分類選擇 Fresh 或一般連結
func (l *Linker) OptimizedLink(ingredient string) string {
	category := CategorizeIngredient(ingredient)
	if !category.IsFresh {
		return l.GeneralLink(ingredient, string(category.Department))
	}

	term := ingredient
	if category.SearchModifier != "" {
		term = category.SearchModifier + " " + ingredient
	}
	return l.FreshLink(term, string(category.Category))
}

// IngredientLink 單一食材的聯盟連結
type IngredientLink struct {
	Name          string   `json:"name"`
	AffiliateLink string   `json:"affiliate_link"`
	Category      Category `json:"category"`
	IsFresh       bool     `json:"is_fresh"`
}

// IngredientLinks 為食材列表逐一產生最佳化連結
func (l *Linker) IngredientLinks(ingredients []string) []IngredientLink {
	links := make([]IngredientLink, 0, len(ingredients))
	for _, ingredient := range ingredients {
		category := CategorizeIngredient(ingredient)
		links = append(links, IngredientLink{
			Name:          ingredient,
			AffiliateLink: l.OptimizedLink(ingredient),
			Category:      category.Category,
			IsFresh:       category.IsFresh,
		})
	}
	return links
}
