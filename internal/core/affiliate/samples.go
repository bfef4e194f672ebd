package affiliate

import (
	"fmt"
	"strings"
)

// SampleProduct 固定 ASIN 的示範商品
type SampleProduct struct {
	Keyword  string `json:"keyword"`
	ASIN     string `json:"asin"`
	Category string `json:"category"`
}

// sampleProducts 依比對順序排列，第一筆為找不到時的預設商品
var sampleProducts = []SampleProduct{
	{Keyword: "rice", ASIN: "B00I8GXBVE", Category: "pantry"},
	{Keyword: "pasta", ASIN: "B077H8P6V3", Category: "pantry"},
	{Keyword: "scale", ASIN: "B004164SRA", Category: "kitchen"},
	{Keyword: "storage", ASIN: "B00LN810PM", Category: "kitchen"},
}

// SampleProducts 返回示範商品清單的副本
func SampleProducts() []SampleProduct {
	out := make([]SampleProduct, len(sampleProducts))
	copy(out, sampleProducts)
	return out
}

// SampleProductFor 以名稱中的關鍵字挑選示範商品，無命中時返回預設商品
func SampleProductFor(productName string) SampleProduct {
	name := strings.ToLower(productName)
	for _, product := range sampleProducts {
		if strings.Contains(name, product.Keyword) {
			return product
		}
	}
	return sampleProducts[0]
}

// SampleProductLink 產生示範商品的商品頁連結
func (l *Linker) SampleProductLink(productName string) (string, error) {
	product := SampleProductFor(productName)
	link, err := l.ProductLink(product.ASIN)
	if err != nil {
		return "", fmt.Errorf("sample product %s: %w", product.Keyword, err)
	}
	return link, nil
}

// QuickTrackingCheck 只確認第一個示範商品連結帶有聯盟標籤
func (l *Linker) QuickTrackingCheck() bool {
	link, err := l.SampleProductLink(sampleProducts[0].Keyword)
	if err != nil {
		return false
	}
	return l.cfg.Tag != "" && strings.Contains(link, "tag="+encodeComponent(l.cfg.Tag))
}
