package affiliate

import (
	"fmt"

	"freshsense/internal/pkg/common"

	"go.uber.org/zap"
)

// LinkType 連結類型
type LinkType string

const (
	LinkTypeAmazonFresh LinkType = "amazon-fresh"
	LinkTypeAmazon      LinkType = "amazon"
)

// Valid 檢查連結類型是否已知
func (t LinkType) Valid() bool {
	return t == LinkTypeAmazonFresh || t == LinkTypeAmazon
}

// LinkOptions 產生連結的選項
type LinkOptions struct {
	PreferFresh bool   `json:"prefer_fresh"`
	Department  string `json:"department,omitempty"`
	Category    string `json:"category,omitempty"`
}

// ValidatedLink 已驗證的聯盟連結
type ValidatedLink struct {
	Link       string           `json:"link"`
	IsValid    bool             `json:"is_valid"`
	Ingredient string           `json:"ingredient"`
	LinkType   LinkType         `json:"link_type"`
	Category   CategoryResult   `json:"category"`
	Validation ValidationResult `json:"validation"`
}

// GenerateValidatedAffiliateLink 清理 → 分類 → 產生 → 驗證，UI 呼叫的單一入口
// 驗證失敗的連結仍會返回，並以 warn 記錄
func (l *Linker) GenerateValidatedAffiliateLink(ingredient string, opts LinkOptions) (result ValidatedLink) {
	sanitized := SanitizeIngredientName(ingredient)

	defer func() {
		if r := recover(); r != nil {
			common.LogError("Affiliate link generation panicked",
				zap.Any("error", r),
				zap.String("ingredient", sanitized),
			)
			result = ValidatedLink{
				Ingredient: sanitized,
				Validation: ValidationResult{
					Issues: []string{fmt.Sprintf("link generation failed: %v", r)},
				},
			}
		}
	}()

	category := CategorizeIngredient(sanitized)

	var link string
	var linkType LinkType
	if opts.PreferFresh || category.IsFresh {
		link = l.FreshLink(sanitized, opts.Category)
		linkType = LinkTypeAmazonFresh
	} else {
		department := opts.Department
		if department == "" {
			department = string(category.Department)
		}
		link = l.GeneralLink(sanitized, department)
		linkType = LinkTypeAmazon
	}

	validation := l.ValidateAffiliateLink(link)
	if !validation.IsValid {
		common.LogWarn("affiliate link failed validation",
			zap.String("ingredient", sanitized),
			zap.String("link", link),
			zap.Strings("issues", validation.Issues),
		)
	}

	return ValidatedLink{
		Link:       link,
		IsValid:    validation.IsValid,
		Ingredient: sanitized,
		LinkType:   linkType,
		Category:   category,
		Validation: validation,
	}
}
