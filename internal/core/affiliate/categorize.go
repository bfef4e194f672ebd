package affiliate

import "strings"

// Category 食材分類
type Category string

const (
	CategoryFreshProduce Category = "fresh-produce"
	CategoryFreshMeat    Category = "fresh-meat"
	CategoryDairy        Category = "dairy"
	CategoryPantry       Category = "pantry"
	CategoryGrocery      Category = "grocery"
)

// Department 商店部門
type Department string

const (
	DepartmentFresh   Department = "fresh"
	DepartmentGrocery Department = "grocery"
)

// CategoryResult 食材分類結果
type CategoryResult struct {
	IsFresh        bool       `json:"is_fresh"`
	Category       Category   `json:"category"`
	Department     Department `json:"department"`
	SearchModifier string     `json:"search_modifier,omitempty"`
}

// categoryRule 關鍵字規則，命中任一關鍵字即套用 result
type categoryRule struct {
	result   CategoryResult
	keywords []string
}

func (r categoryRule) matches(name string) bool {
	for _, keyword := range r.keywords {
		if strings.Contains(name, keyword) {
			return true
		}
	}
	return false
}

// categoryRules 依優先順序排列：生鮮蔬果 → 肉類海鮮 → 乳製品 → 乾貨
// 第一個命中的規則勝出，例如 "basil chicken stock" 會歸為生鮮蔬果。
// 子字串比對的已知限制："mushroom soup base" 同樣會被歸為生鮮蔬果。
var categoryRules = []categoryRule{
	{
		result: CategoryResult{
			IsFresh:        true,
			Category:       CategoryFreshProduce,
			Department:     DepartmentFresh,
			SearchModifier: "fresh",
		},
		keywords: []string{
			"lettuce", "spinach", "arugula", "kale", "cabbage", "broccoli", "cauliflower",
			"carrot", "celery", "onion", "garlic", "tomato", "cucumber", "bell pepper",
			"jalapeño", "jalapeno", "mushroom", "avocado", "lime", "lemon", "orange", "apple",
			"banana", "strawberry", "strawberries", "blueberry", "blueberries",
			"raspberry", "raspberries", "herbs", "cilantro",
			"parsley", "basil", "mint", "rosemary", "thyme",
		},
	},
	{
		result: CategoryResult{
			IsFresh:        true,
			Category:       CategoryFreshMeat,
			Department:     DepartmentFresh,
			SearchModifier: "fresh",
		},
		keywords: []string{
			"chicken", "beef", "pork", "turkey", "lamb", "salmon", "tuna", "shrimp",
			"crab", "lobster", "fish", "steak", "ground beef", "ground turkey",
			"bacon", "sausage", "ham",
		},
	},
	{
		result: CategoryResult{
			IsFresh:    true,
			Category:   CategoryDairy,
			Department: DepartmentFresh,
		},
		keywords: []string{
			"milk", "cheese", "butter", "cream", "yogurt", "sour cream", "cream cheese",
			"mozzarella", "cheddar", "parmesan", "eggs",
		},
	},
	{
		result: CategoryResult{
			IsFresh:    false,
			Category:   CategoryPantry,
			Department: DepartmentGrocery,
		},
		keywords: []string{
			"flour", "sugar", "salt", "pepper", "olive oil", "vegetable oil", "vinegar",
			"soy sauce", "pasta", "rice", "quinoa", "beans", "lentils", "oats",
			"baking powder", "baking soda", "vanilla", "cinnamon", "paprika",
		},
	},
}

// defaultCategory 未命中任何規則時的分類
var defaultCategory = CategoryResult{
	IsFresh:    false,
	Category:   CategoryGrocery,
	Department: DepartmentGrocery,
}

// CategorizeIngredient 依關鍵字判斷食材分類，任何輸入都會得到一個分類
func CategorizeIngredient(ingredient string) CategoryResult {
	name := strings.ToLower(strings.TrimSpace(ingredient))
	if name == "" {
		return defaultCategory
	}

	for _, rule := range categoryRules {
		if rule.matches(name) {
			return rule.result
		}
	}
	return defaultCategory
}

// Categories 返回所有可能的分類，依優先順序排列，預設分類在最後
func Categories() []Category {
	categories := make([]Category, 0, len(categoryRules)+1)
	for _, rule := range categoryRules {
		categories = append(categories, rule.result.Category)
	}
	return append(categories, defaultCategory.Category)
}
