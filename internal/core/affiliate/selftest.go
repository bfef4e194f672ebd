package affiliate

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// TestStatus 自我測試結果狀態
type TestStatus string

const (
	StatusPass TestStatus = "pass"
	StatusFail TestStatus = "fail"
)

// TestResult 單項測試結果
type TestResult struct {
	TestName string     `json:"test"`
	Status   TestStatus `json:"status"`
	Details  string     `json:"details"`
	Link     string     `json:"link,omitempty"`
}

// TestSuite 自我測試彙總
type TestSuite struct {
	TotalTests  int          `json:"total_tests"`
	PassedTests int          `json:"passed_tests"`
	FailedTests int          `json:"failed_tests"`
	Results     []TestResult `json:"results"`
}

// Passed 全部通過
func (s TestSuite) Passed() bool {
	return s.FailedTests == 0
}

// 固定樣本資料
var (
	asinSamples = []struct {
		asin  string
		valid bool
	}{
		{"B000123456", true},
		{"B00I8GXBVE", true},
		{"123", false},
		{"", false},
		{"B00012345", false},
		{"B0001234567", false},
		{"B00012345!", false},
	}

	categorySamples = []struct {
		ingredient string
		isFresh    bool
	}{
		{"fresh strawberries", true},
		{"spinach", true},
		{"chicken breast", true},
		{"whole milk", true},
		{"olive oil", false},
		{"all-purpose flour", false},
		{"paper towels", false},
		{"", false},
	}

	sanitizeSamples = []struct {
		input string
		want  string
	}{
		{"  Special Ingredient!@#  ", "special ingredient"},
		{"Fresh   Basil", "fresh basil"},
		{"ALL-PURPOSE FLOUR", "all-purpose flour"},
		{"salt & pepper", "salt pepper"},
		{"", ""},
	}

	cartSample         = []string{"strawberries", "spinach", "chicken breast"}
	orchestratorSample = []string{"Fresh Strawberries", "olive oil", "Chicken Breast", "whole milk", ""}
)

// selfCheck 一組自我測試
type selfCheck struct {
	name string
	run  func() []TestResult
}

// RunTests 以固定樣本驗證整個連結流程
// 每組測試獨立 recover，任何異常都記為失敗而不中斷
func (l *Linker) RunTests() TestSuite {
	var links []string
	collect := func(link string) string {
		links = append(links, link)
		return link
	}

	checks := []selfCheck{
		{"fresh link generation", func() []TestResult {
			link := collect(l.FreshLink("organic apples", string(CategoryFreshProduce)))
			return []TestResult{l.expectValid("fresh link generation", link, l.cfg.FreshBaseURL)}
		}},
		{"general link generation", func() []TestResult {
			link := collect(l.GeneralLink("jasmine rice", string(DepartmentGrocery)))
			return []TestResult{l.expectValid("general link generation", link, l.cfg.BaseURL)}
		}},
		{"asin validation", func() []TestResult {
			results := make([]TestResult, 0, len(asinSamples))
			for _, sample := range asinSamples {
				name := fmt.Sprintf("asin validation %q", sample.asin)
				link, err := l.ProductLink(sample.asin)
				switch {
				case sample.valid && err != nil:
					results = append(results, fail(name, fmt.Sprintf("valid ASIN rejected: %v", err), ""))
				case sample.valid:
					results = append(results, l.expectValid(name, collect(link), l.cfg.ProductBaseURL))
				case err == nil:
					results = append(results, fail(name, "invalid ASIN accepted", link))
				case !errors.Is(err, ErrInvalidASIN):
					results = append(results, fail(name, fmt.Sprintf("unexpected error kind: %v", err), ""))
				default:
					results = append(results, pass(name, "invalid ASIN rejected", ""))
				}
			}
			return results
		}},
		{"sample product links", func() []TestResult {
			results := make([]TestResult, 0, len(sampleProducts))
			for _, product := range sampleProducts {
				name := fmt.Sprintf("sample %s product %q", product.Category, product.Keyword)
				link, err := l.SampleProductLink(product.Keyword)
				if err != nil {
					results = append(results, fail(name, err.Error(), ""))
					continue
				}
				results = append(results, l.expectValid(name, collect(link), l.cfg.ProductBaseURL+"/"+product.ASIN))
			}
			return results
		}},
		{"categorization", func() []TestResult {
			results := make([]TestResult, 0, len(categorySamples))
			for _, sample := range categorySamples {
				name := fmt.Sprintf("categorization %q", sample.ingredient)
				got := CategorizeIngredient(sample.ingredient)
				if got.IsFresh != sample.isFresh {
					results = append(results, fail(name,
						fmt.Sprintf("expected is_fresh=%t, got %t (%s)", sample.isFresh, got.IsFresh, got.Category), ""))
					continue
				}
				results = append(results, pass(name, fmt.Sprintf("categorized as %s", got.Category), ""))
			}
			return results
		}},
		{"sanitization", func() []TestResult {
			results := make([]TestResult, 0, len(sanitizeSamples))
			for _, sample := range sanitizeSamples {
				name := fmt.Sprintf("sanitization %q", sample.input)
				got := SanitizeIngredientName(sample.input)
				if got != sample.want {
					results = append(results, fail(name, fmt.Sprintf("expected %q, got %q", sample.want, got), ""))
					continue
				}
				results = append(results, pass(name, fmt.Sprintf("sanitized to %q", got), ""))
			}
			return results
		}},
		{"shopping cart link", func() []TestResult {
			link := collect(l.ShoppingCartLink(cartSample))
			result := l.expectValid("shopping cart link", link, l.cfg.FreshBaseURL)
			if result.Status == StatusPass {
				if missing := missingTerms(link, cartSample); len(missing) > 0 {
					result = fail(result.TestName, fmt.Sprintf("search terms missing: %s", strings.Join(missing, ", ")), link)
				}
			}
			return []TestResult{result}
		}},
		{"validated link", func() []TestResult {
			results := make([]TestResult, 0, len(orchestratorSample))
			for _, ingredient := range orchestratorSample {
				name := fmt.Sprintf("validated link %q", ingredient)
				out := l.GenerateValidatedAffiliateLink(ingredient, LinkOptions{})
				collect(out.Link)
				if !out.IsValid {
					results = append(results, fail(name, strings.Join(out.Validation.Issues, "; "), out.Link))
					continue
				}
				results = append(results, pass(name, fmt.Sprintf("%s link for %s", out.LinkType, out.Category.Category), out.Link))
			}
			return results
		}},
	}

	var results []TestResult
	for _, check := range checks {
		results = append(results, safeRun(check)...)
	}

	// 針對所有已產生的連結做格式與合規檢查
	for _, link := range links {
		results = append(results, checkEncoding(link), l.checkCompliance(link))
	}
	results = append(results, checkHTTPS(links), l.checkTagConsistency(links))

	return summarize(results)
}

// safeRun 執行單組測試，panic 轉為失敗結果
func safeRun(check selfCheck) (results []TestResult) {
	defer func() {
		if r := recover(); r != nil {
			results = []TestResult{fail(check.name, fmt.Sprintf("panic: %v", r), "")}
		}
	}()
	return check.run()
}

func summarize(results []TestResult) TestSuite {
	suite := TestSuite{TotalTests: len(results), Results: results}
	for _, r := range results {
		if r.Status == StatusPass {
			suite.PassedTests++
		} else {
			suite.FailedTests++
		}
	}
	return suite
}

func pass(name, details, link string) TestResult {
	return TestResult{TestName: name, Status: StatusPass, Details: details, Link: link}
}

func fail(name, details, link string) TestResult {
	return TestResult{TestName: name, Status: StatusFail, Details: details, Link: link}
}

// expectValid 驗證連結合法且以指定前綴開頭
func (l *Linker) expectValid(name, link, prefix string) TestResult {
	validation := l.ValidateAffiliateLink(link)
	if !validation.IsValid {
		return fail(name, strings.Join(validation.Issues, "; "), link)
	}
	if !strings.HasPrefix(link, prefix) {
		return fail(name, fmt.Sprintf("expected link under %s", prefix), link)
	}
	return pass(name, "valid affiliate link with correct tag", link)
}

// missingTerms 返回連結 k 參數中缺少的搜尋詞
func missingTerms(link string, terms []string) []string {
	u, err := url.Parse(link)
	if err != nil {
		return terms
	}
	k := u.Query().Get("k")

	var missing []string
	for _, term := range terms {
		if !strings.Contains(k, strings.ToLower(strings.TrimSpace(term))) {
			missing = append(missing, term)
		}
	}
	return missing
}

func checkEncoding(link string) TestResult {
	const name = "URL encoding"
	if _, err := url.QueryUnescape(link); err != nil {
		return fail(name, fmt.Sprintf("URL encoding error: %v", err), link)
	}
	if strings.ContainsAny(link, " \t\n") {
		return fail(name, "URL contains unencoded whitespace", link)
	}
	if strings.Contains(link, "&amp;") {
		return fail(name, "URL contains HTML-encoded ampersands", link)
	}
	return pass(name, "URL is properly encoded", link)
}

func (l *Linker) checkCompliance(link string) TestResult {
	const name = "affiliate compliance"
	if !strings.Contains(link, "tag="+encodeComponent(l.cfg.Tag)) {
		return fail(name, "Missing required affiliate parameters", link)
	}
	lower := strings.ToLower(link)
	if strings.Contains(lower, "redirect") || strings.Contains(lower, "shortener") {
		return fail(name, "URL appears to use a redirect or shortening service", link)
	}
	return pass(name, "Link complies with associate program guidelines", link)
}

func checkHTTPS(links []string) TestResult {
	const name = "link accessibility"
	for _, link := range links {
		if !strings.HasPrefix(link, "https://") {
			return fail(name, "All links should use HTTPS", link)
		}
	}
	return pass(name, fmt.Sprintf("%d links use HTTPS", len(links)), "")
}

func (l *Linker) checkTagConsistency(links []string) TestResult {
	const name = "affiliate tag consistency"
	for _, link := range links {
		if !l.ValidateAffiliateLink(link).HasCorrectTag {
			return fail(name, fmt.Sprintf("All links should carry tag %s", l.cfg.Tag), link)
		}
	}
	return pass(name, fmt.Sprintf("%d links carry tag %s", len(links), l.cfg.Tag), "")
}
