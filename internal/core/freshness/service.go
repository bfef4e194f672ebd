package freshness

import (
	"context"
	"encoding/json"
	"errors"

	"freshsense/internal/core/affiliate"
	"freshsense/internal/core/cache"
	"freshsense/internal/core/image"
	"freshsense/internal/pkg/common"

	"go.uber.org/zap"
)

// Service 鮮度分析服務：驗證並壓縮圖片、查詢緩存、呼叫分析器並附上購物連結
type Service struct {
	validator *image.Validator
	processor *image.Processor
	cache     *cache.Manager
	analyzer  Analyzer
	linker    *affiliate.Linker
}

// NewService 創建鮮度分析服務，cache 可為 nil
func NewService(validator *image.Validator, processor *image.Processor, cacheManager *cache.Manager, analyzer Analyzer, linker *affiliate.Linker) *Service {
	return &Service{
		validator: validator,
		processor: processor,
		cache:     cacheManager,
		analyzer:  analyzer,
		linker:    linker,
	}
}

// Analyze 分析食物圖片
func (s *Service) Analyze(ctx context.Context, imageDataURI string) (*Result, error) {
	info, err := s.validator.Validate(imageDataURI)
	if err != nil {
		return nil, err
	}

	processed, err := s.processor.ProcessImage(imageDataURI)
	if err != nil {
		return nil, err
	}

	key := cache.Key("analysis", processed.DataURI)
	analysis, cached := s.lookup(ctx, key)
	if !cached {
		if analysis, err = s.analyzer.Analyze(ctx, processed.DataURI); err != nil {
			return nil, err
		}
		s.store(ctx, key, analysis)
	}

	return &Result{
		Analysis: analysis,
		Image:    *info,
		Analyzed: processed.Info,
		Shopping: s.shoppingFor(analysis),
		Cached:   cached,
	}, nil
}

func (s *Service) lookup(ctx context.Context, key string) (*Analysis, bool) {
	if s.cache == nil {
		return nil, false
	}

	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, common.ErrCacheMiss) && !errors.Is(err, common.ErrCacheDisabled) {
			common.LogWarn("Cache lookup failed", zap.Error(err))
		}
		return nil, false
	}

	var analysis Analysis
	if err := common.ParseJSONBytes(raw, &analysis); err != nil {
		common.LogWarn("Discarding corrupt cache entry", zap.Error(err))
		return nil, false
	}
	return &analysis, true
}

func (s *Service) store(ctx context.Context, key string, analysis *Analysis) {
	if s.cache == nil {
		return
	}

	raw, err := json.Marshal(analysis)
	if err != nil {
		common.LogWarn("Failed to encode analysis for cache", zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, key, raw); err != nil {
		common.LogWarn("Failed to cache analysis", zap.Error(err))
	}
}

// shoppingFor 為辨識出的食物與食譜食材產生聯盟連結
func (s *Service) shoppingFor(analysis *Analysis) *Shopping {
	if s.linker == nil {
		return nil
	}

	shopping := &Shopping{Recipes: []RecipeShopping{}}
	if analysis.IdentifiedFood != DefaultIdentifiedFood {
		primary := s.linker.GenerateValidatedAffiliateLink(analysis.IdentifiedFood, affiliate.LinkOptions{})
		shopping.Primary = &primary
	}

	for _, recipe := range analysis.RecipeSuggestions {
		if len(recipe.KeyIngredients) == 0 {
			continue
		}
		shopping.Recipes = append(shopping.Recipes, RecipeShopping{
			Recipe:      recipe.Name,
			Ingredients: s.linker.IngredientLinks(recipe.KeyIngredients),
			CartLink:    s.linker.ShoppingCartLink(recipe.KeyIngredients),
		})
	}
	return shopping
}
