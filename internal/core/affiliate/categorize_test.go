package affiliate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategorizeIngredient(t *testing.T) {
	tests := []struct {
		ingredient string
		want       CategoryResult
	}{
		{"fresh strawberries", CategoryResult{IsFresh: true, Category: CategoryFreshProduce, Department: DepartmentFresh, SearchModifier: "fresh"}},
		{"Baby Spinach", CategoryResult{IsFresh: true, Category: CategoryFreshProduce, Department: DepartmentFresh, SearchModifier: "fresh"}},
		{"chicken breast", CategoryResult{IsFresh: true, Category: CategoryFreshMeat, Department: DepartmentFresh, SearchModifier: "fresh"}},
		{"ground beef", CategoryResult{IsFresh: true, Category: CategoryFreshMeat, Department: DepartmentFresh, SearchModifier: "fresh"}},
		{"whole milk", CategoryResult{IsFresh: true, Category: CategoryDairy, Department: DepartmentFresh}},
		{"large eggs", CategoryResult{IsFresh: true, Category: CategoryDairy, Department: DepartmentFresh}},
		{"olive oil", CategoryResult{IsFresh: false, Category: CategoryPantry, Department: DepartmentGrocery}},
		{"all-purpose flour", CategoryResult{IsFresh: false, Category: CategoryPantry, Department: DepartmentGrocery}},
		{"paper towels", CategoryResult{IsFresh: false, Category: CategoryGrocery, Department: DepartmentGrocery}},
		{"", CategoryResult{IsFresh: false, Category: CategoryGrocery, Department: DepartmentGrocery}},
		{"   ", CategoryResult{IsFresh: false, Category: CategoryGrocery, Department: DepartmentGrocery}},
	}

	for _, tt := range tests {
		t.Run(tt.ingredient, func(t *testing.T) {
			assert.Equal(t, tt.want, CategorizeIngredient(tt.ingredient))
		})
	}
}

func TestCategorizeIngredient_PriorityOrder(t *testing.T) {
	tests := []struct {
		name       string
		ingredient string
		want       Category
	}{
		// 生鮮蔬果優先於肉類
		{"produce beats meat", "basil chicken stock", CategoryFreshProduce},
		// 蔬果中的 bell pepper 優先於乾貨的 pepper
		{"produce beats pantry", "red bell pepper", CategoryFreshProduce},
		{"plain pepper is pantry", "black pepper", CategoryPantry},
		// 肉類優先於乳製品
		{"meat beats dairy", "ham and cheese", CategoryFreshMeat},
		// 乳製品優先於乾貨
		{"dairy beats pantry", "butter and sugar", CategoryDairy},
		// 子字串比對的已知限制
		{"substring match misclassifies soup base", "mushroom soup base", CategoryFreshProduce},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CategorizeIngredient(tt.ingredient).Category)
		})
	}
}

func TestCategorizeIngredient_Total(t *testing.T) {
	known := map[Category]bool{}
	for _, c := range Categories() {
		known[c] = true
	}
	assert.Len(t, known, 5)

	inputs := []string{"", " ", "???", "xyz", "jalapeño", "jalapeno", "ÄÖÜ", "a very long unknown ingredient name"}
	for _, input := range inputs {
		got := CategorizeIngredient(input)
		assert.True(t, known[got.Category], "input %q returned unknown category %q", input, got.Category)
		assert.Equal(t, got.IsFresh, got.Department == DepartmentFresh, "input %q", input)
	}
}

func TestCategorizeIngredient_SanitizedJalapeno(t *testing.T) {
	// 清理後 ñ 會被移除，ASCII 拼法仍能命中
	assert.Equal(t, CategoryFreshProduce, CategorizeIngredient("jalapeno peppers").Category)
	assert.Equal(t, CategoryFreshProduce, CategorizeIngredient("Jalapeño").Category)
}

func TestCategorizeIngredient_SanitizedUnicodeSpace(t *testing.T) {
	// 清理後 NBSP 與 em space 成為一般空格，仍歸為乾貨
	for _, raw := range []string{"olive\u00a0oil", "Olive\u2003Oil", "olive\voil"} {
		name := SanitizeIngredientName(raw)
		assert.Equal(t, "olive oil", name)
		assert.Equal(t, CategoryPantry, CategorizeIngredient(name).Category, "input %q", raw)
	}
}
