package freshness

import (
	"bytes"
	"encoding/json"
	"fmt"

	"freshsense/internal/core/affiliate"
	"freshsense/internal/core/image"
)

// 分析欄位缺漏時的預設值
const (
	DefaultIdentifiedFood      = "Unknown Food"
	DefaultFoodCategory        = "processed"
	DefaultVisualAssessment    = "Unable to determine"
	DefaultKeyVisualIndicators = "No specific indicators observed"
	DefaultFreshnessDays       = "0"
	DefaultConfidence          = "Low"
)

// FlexString 接受 JSON 字串或數字，模型常把天數輸出成數字
type FlexString string

// UnmarshalJSON 實作 json.Unmarshaler
func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = FlexString(v)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*s = FlexString(n.String())
	return nil
}

// RecipeSuggestion 食譜建議
type RecipeSuggestion struct {
	Name             string   `json:"name"`
	CookingMethod    string   `json:"cooking_method"`
	EstimatedTime    string   `json:"estimated_time"`
	Difficulty       string   `json:"difficulty"`
	BriefDescription string   `json:"brief_description"`
	KeyIngredients   []string `json:"key_ingredients"`
}

// Analysis 食物鮮度分析結果
type Analysis struct {
	IdentifiedFood                  string             `json:"identified_food"`
	FoodCategory                    string             `json:"food_category"`
	VisualAssessment                string             `json:"visual_assessment"`
	KeyVisualIndicators             string             `json:"key_visual_indicators"`
	EstimatedRemainingFreshnessDays FlexString         `json:"estimated_remaining_freshness_days"`
	AssessmentConfidence            string             `json:"assessment_confidence"`
	UserVerificationNotes           string             `json:"user_verification_notes"`
	SafetyWarning                   string             `json:"safety_warning"`
	CookingStage                    *string            `json:"cooking_stage"`
	CookingRecommendations          *string            `json:"cooking_recommendations"`
	InternalTemperatureGuidance     *string            `json:"internal_temperature_guidance"`
	RecipeSuggestions               []RecipeSuggestion `json:"recipe_suggestions"`
	PreparationTips                 *string            `json:"preparation_tips"`
}

// applyDefaults 補齊缺漏欄位，空字串的可選欄位視為 null
func (a *Analysis) applyDefaults() {
	setDefault(&a.IdentifiedFood, DefaultIdentifiedFood)
	setDefault(&a.FoodCategory, DefaultFoodCategory)
	setDefault(&a.VisualAssessment, DefaultVisualAssessment)
	setDefault(&a.KeyVisualIndicators, DefaultKeyVisualIndicators)
	setDefault(&a.AssessmentConfidence, DefaultConfidence)
	if a.EstimatedRemainingFreshnessDays == "" {
		a.EstimatedRemainingFreshnessDays = DefaultFreshnessDays
	}
	if a.RecipeSuggestions == nil {
		a.RecipeSuggestions = []RecipeSuggestion{}
	}
	for _, p := range []**string{&a.CookingStage, &a.CookingRecommendations, &a.InternalTemperatureGuidance, &a.PreparationTips} {
		if *p != nil && **p == "" {
			*p = nil
		}
	}
}

func setDefault(field *string, fallback string) {
	if *field == "" {
		*field = fallback
	}
}

// FallbackAnalysis 模型輸出無法解析時返回的結構化結果
func FallbackAnalysis() *Analysis {
	return &Analysis{
		IdentifiedFood:                  DefaultIdentifiedFood,
		FoodCategory:                    DefaultFoodCategory,
		VisualAssessment:                DefaultVisualAssessment,
		KeyVisualIndicators:             "AI analysis failed - unable to parse response",
		EstimatedRemainingFreshnessDays: DefaultFreshnessDays,
		AssessmentConfidence:            DefaultConfidence,
		UserVerificationNotes:           "Please try uploading the image again",
		SafetyWarning:                   "Manual inspection recommended",
		RecipeSuggestions:               []RecipeSuggestion{},
	}
}

// RecipeShopping 單一食譜的購物連結
type RecipeShopping struct {
	Recipe      string                     `json:"recipe"`
	Ingredients []affiliate.IngredientLink `json:"ingredients"`
	CartLink    string                     `json:"cart_link,omitempty"`
}

// Shopping 分析結果附帶的聯盟購物連結
type Shopping struct {
	Primary *affiliate.ValidatedLink `json:"primary,omitempty"`
	Recipes []RecipeShopping         `json:"recipes"`
}

// Result 分析 API 的完整回應
type Result struct {
	Analysis *Analysis  `json:"analysis"`
	Image    image.Info `json:"image"`
	// Analyzed 壓縮後實際送往分析器的圖片
	Analyzed image.Info `json:"analyzed_image"`
	Shopping *Shopping  `json:"shopping,omitempty"`
	Cached   bool       `json:"cached"`
}
