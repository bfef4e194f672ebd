package affiliate

import (
	"errors"
	"net/http"

	"freshsense/internal/core/affiliate"
	"freshsense/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LinkRequest 產生單一食材連結
type LinkRequest struct {
	Ingredient  string `json:"ingredient"`
	PreferFresh bool   `json:"prefer_fresh"`
	Department  string `json:"department,omitempty"`
	Category    string `json:"category,omitempty"`
}

// IngredientsRequest 多食材請求
type IngredientsRequest struct {
	Ingredients []string `json:"ingredients" binding:"required"`
}

// ValidateRequest 驗證連結
type ValidateRequest struct {
	URL string `json:"url" binding:"required"`
}

// ClickRequest 點擊追蹤
type ClickRequest struct {
	Ingredient string             `json:"ingredient" binding:"required"`
	LinkType   affiliate.LinkType `json:"link_type" binding:"required"`
}

// LinkResponse 連結與其驗證結果
type LinkResponse struct {
	Link       string                     `json:"link"`
	ASIN       string                     `json:"asin,omitempty"`
	Validation affiliate.ValidationResult `json:"validation"`
}

// CategorizeResponse 分類結果
type CategorizeResponse struct {
	Ingredient string                   `json:"ingredient"`
	Result     affiliate.CategoryResult `json:"result"`
}

// StatsResponse 點擊統計與隊列狀態
type StatsResponse struct {
	Clicks  *affiliate.ClickStats   `json:"clicks"`
	Tracker affiliate.TrackerStatus `json:"tracker"`
}

// Handler 聯盟連結處理程序
type Handler struct {
	linker  *affiliate.Linker
	tracker *affiliate.Tracker
	debug   bool
}

// NewHandler 創建新的聯盟連結處理程序
func NewHandler(linker *affiliate.Linker, tracker *affiliate.Tracker, debug bool) *Handler {
	return &Handler{
		linker:  linker,
		tracker: tracker,
		debug:   debug,
	}
}

// Register 註冊路由
func (h *Handler) Register(group *gin.RouterGroup) {
	group.POST("/link", h.HandleLink)
	group.POST("/links", h.HandleIngredientLinks)
	group.POST("/cart", h.HandleCart)
	group.GET("/product/:asin", h.HandleProduct)
	group.POST("/validate", h.HandleValidate)
	group.GET("/categorize", h.HandleCategorize)
	group.POST("/click", h.HandleClick)
	group.GET("/stats", h.HandleStats)
	group.GET("/selftest", h.HandleSelfTest)
}

func (h *Handler) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			common.WriteErrorResponse(c, common.ErrPayloadTooLarge.WithDetail(err), h.debug)
			return false
		}
		common.LogWarn("請求格式無效", zap.Error(err), zap.String("path", c.Request.URL.Path))
		common.WriteErrorResponse(c, common.ErrInvalidRequest.WithDetail(err), h.debug)
		return false
	}
	return true
}

// HandleLink 產生經驗證的聯盟連結
func (h *Handler) HandleLink(c *gin.Context) {
	var req LinkRequest
	if !h.bind(c, &req) {
		return
	}

	result := h.linker.GenerateValidatedAffiliateLink(req.Ingredient, affiliate.LinkOptions{
		PreferFresh: req.PreferFresh,
		Department:  req.Department,
		Category:    req.Category,
	})
	c.JSON(http.StatusOK, result)
}

// HandleIngredientLinks 為多個食材產生最佳化連結
func (h *Handler) HandleIngredientLinks(c *gin.Context) {
	var req IngredientsRequest
	if !h.bind(c, &req) {
		return
	}

	c.JSON(http.StatusOK, gin.H{"links": h.linker.IngredientLinks(req.Ingredients)})
}

// HandleCart 產生購物清單搜尋連結
func (h *Handler) HandleCart(c *gin.Context) {
	var req IngredientsRequest
	if !h.bind(c, &req) {
		return
	}

	link := h.linker.ShoppingCartLink(req.Ingredients)
	c.JSON(http.StatusOK, LinkResponse{
		Link:       link,
		Validation: h.linker.ValidateAffiliateLink(link),
	})
}

// HandleProduct 產生商品頁連結
func (h *Handler) HandleProduct(c *gin.Context) {
	asin := c.Param("asin")
	link, err := h.linker.ProductLink(asin)
	if err != nil {
		common.LogWarn("無效的 ASIN", zap.String("asin", asin))
		common.WriteErrorResponse(c, err, h.debug)
		return
	}

	c.JSON(http.StatusOK, LinkResponse{
		Link:       link,
		ASIN:       asin,
		Validation: h.linker.ValidateAffiliateLink(link),
	})
}

// HandleValidate 驗證任意連結
func (h *Handler) HandleValidate(c *gin.Context) {
	var req ValidateRequest
	if !h.bind(c, &req) {
		return
	}

	c.JSON(http.StatusOK, h.linker.ValidateAffiliateLink(req.URL))
}

// HandleCategorize 分類食材
func (h *Handler) HandleCategorize(c *gin.Context) {
	name := affiliate.SanitizeIngredientName(c.Query("name"))
	c.JSON(http.StatusOK, CategorizeResponse{
		Ingredient: name,
		Result:     affiliate.CategorizeIngredient(name),
	})
}

// HandleClick 非同步記錄點擊
func (h *Handler) HandleClick(c *gin.Context) {
	var req ClickRequest
	if !h.bind(c, &req) {
		return
	}
	if !req.LinkType.Valid() {
		common.WriteErrorResponse(c, common.ErrInvalidArgument.WithDetail(
			errors.New("link_type must be amazon-fresh or amazon")), h.debug)
		return
	}

	h.tracker.TrackAffiliateClick(req.Ingredient, req.LinkType)
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

// HandleStats 點擊統計
func (h *Handler) HandleStats(c *gin.Context) {
	stats, err := h.tracker.Stats(c.Request.Context())
	if err != nil {
		common.LogError("Failed to read click stats", zap.Error(err))
		common.WriteErrorResponse(c, common.ErrServiceUnavailable.WithDetail(err), h.debug)
		return
	}

	c.JSON(http.StatusOK, StatsResponse{
		Clicks:  stats,
		Tracker: h.tracker.Status(),
	})
}

// HandleSelfTest 執行自我測試，有失敗項目時返回 500
func (h *Handler) HandleSelfTest(c *gin.Context) {
	suite := h.linker.RunTests()

	status := http.StatusOK
	if !suite.Passed() {
		status = http.StatusInternalServerError
		common.LogError("Affiliate self-test failed",
			zap.Int("failed", suite.FailedTests),
			zap.Int("total", suite.TotalTests),
		)
	}
	c.JSON(status, suite)
}
