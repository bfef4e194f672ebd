package affiliate

import (
	"errors"
	"net/url"
	"strings"
	"testing"

	"freshsense/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLinker(t *testing.T) *Linker {
	t.Helper()
	l, err := NewLinker(DefaultConfig())
	require.NoError(t, err)
	return l
}

func queryOf(t *testing.T, link string) url.Values {
	t.Helper()
	u, err := url.Parse(link)
	require.NoError(t, err)
	return u.Query()
}

func TestNewLinker_RejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty tag", func(c *Config) { c.Tag = "" }},
		{"empty ref", func(c *Config) { c.RefParam = " " }},
		{"relative base url", func(c *Config) { c.BaseURL = "/s" }},
		{"base url with query", func(c *Config) { c.FreshBaseURL = "https://www.amazon.com/fresh/s?x=1" }},
		{"foreign product domain", func(c *Config) { c.ProductBaseURL = "https://example.com/dp" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := NewLinker(cfg)
			assert.Error(t, err)
		})
	}
}

func TestFreshLink(t *testing.T) {
	l := newTestLinker(t)

	link := l.FreshLink("  Organic Apples ", "")
	assert.Equal(t, "https://www.amazon.com/fresh/s?k=organic%20apples&ref=as_li_ss_tl&tag=freshsense-20", link)

	withCategory := l.FreshLink("apples", "fresh-produce")
	assert.True(t, strings.HasSuffix(withCategory, "&rh=n%3A16318821%2Ck%3Afresh-produce"))
	assert.Equal(t, "n:16318821,k:fresh-produce", queryOf(t, withCategory).Get("rh"))
}

func TestGeneralLink(t *testing.T) {
	l := newTestLinker(t)

	link := l.GeneralLink("Jasmine Rice", "")
	q := queryOf(t, link)
	assert.True(t, strings.HasPrefix(link, DefaultBaseURL+"?"))
	assert.Equal(t, "jasmine rice", q.Get("k"))
	assert.Equal(t, "grocery", q.Get("i"))

	q = queryOf(t, l.GeneralLink("rice", "pantry"))
	assert.Equal(t, "pantry", q.Get("i"))
}

func TestSearchTermEncoding(t *testing.T) {
	l := newTestLinker(t)

	link := l.GeneralLink("salt & pepper+more", "")
	assert.Contains(t, link, "k=salt%20%26%20pepper%2Bmore&")
	assert.Equal(t, "salt & pepper+more", queryOf(t, link).Get("k"))
}

func TestEncodeComponent(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"mom's (best) jam*", "mom's%20(best)%20jam*"},
		{"wow!", "wow!"},
		{"a-b_c.d~e", "a-b_c.d~e"},
		{"50% off", "50%25%20off"},
		{"literal %21", "literal%20%2521"},
		{"a+b&c=d", "a%2Bb%26c%3Dd"},
		{"n:16318821,k:dairy", "n%3A16318821%2Ck%3Adairy"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := encodeComponent(tt.input)
			assert.Equal(t, tt.want, got)

			decoded, err := url.QueryUnescape(got)
			require.NoError(t, err)
			assert.Equal(t, tt.input, decoded)
		})
	}

	l := newTestLinker(t)
	link := l.FreshLink("mom's (best) jam*", "")
	assert.Contains(t, link, "k=mom's%20(best)%20jam*&")
	assert.True(t, l.ValidateAffiliateLink(link).IsValid)
}

func TestProductLink(t *testing.T) {
	l := newTestLinker(t)

	link, err := l.ProductLink("B000123456")
	require.NoError(t, err)
	assert.Contains(t, link, "/dp/B000123456/ref=nosim?tag=freshsense-20")
	assert.True(t, l.ValidateAffiliateLink(link).IsValid)

	invalid := []string{"", "123", "B00012345", "B0001234567", "B00012345!", "B00012345 ", "ÄÖÜ1234"}
	for _, asin := range invalid {
		t.Run("rejects "+asin, func(t *testing.T) {
			link, err := l.ProductLink(asin)
			require.Error(t, err)
			assert.Empty(t, link)
			assert.True(t, errors.Is(err, ErrInvalidASIN))
			assert.True(t, errors.Is(err, common.ErrInvalidArgument))
			assert.Equal(t, 400, common.StatusOf(err))
		})
	}
}

func TestShoppingCartLink(t *testing.T) {
	l := newTestLinker(t)

	link := l.ShoppingCartLink([]string{"strawberries", " Spinach ", ""})
	assert.Equal(t, "https://www.amazon.com/fresh/s?k=strawberries%20spinach&ref=as_li_ss_tl&tag=freshsense-20", link)

	q := queryOf(t, link)
	assert.Equal(t, "strawberries spinach", q.Get("k"))
	assert.Equal(t, "freshsense-20", q.Get("tag"))

	empty := l.ShoppingCartLink(nil)
	assert.True(t, l.ValidateAffiliateLink(empty).IsValid)
}

func TestOptimizedLink(t *testing.T) {
	l := newTestLinker(t)

	fresh := queryOf(t, l.OptimizedLink("strawberries"))
	assert.Equal(t, "fresh strawberries", fresh.Get("k"))
	assert.Equal(t, "n:16318821,k:fresh-produce", fresh.Get("rh"))

	dairy := queryOf(t, l.OptimizedLink("whole milk"))
	assert.Equal(t, "whole milk", dairy.Get("k"))
	assert.Equal(t, "n:16318821,k:dairy", dairy.Get("rh"))

	pantry := l.OptimizedLink("olive oil")
	assert.True(t, strings.HasPrefix(pantry, DefaultBaseURL+"?"))
	assert.Equal(t, "grocery", queryOf(t, pantry).Get("i"))
}

func TestIngredientLinks(t *testing.T) {
	l := newTestLinker(t)

	links := l.IngredientLinks([]string{"salmon", "quinoa"})
	require.Len(t, links, 2)

	assert.Equal(t, "salmon", links[0].Name)
	assert.Equal(t, CategoryFreshMeat, links[0].Category)
	assert.True(t, links[0].IsFresh)
	assert.Equal(t, CategoryPantry, links[1].Category)
	assert.False(t, links[1].IsFresh)
}

func TestGeneratedLinksCarryTrackingParameters(t *testing.T) {
	l := newTestLinker(t)

	product, err := l.ProductLink("B00I8GXBVE")
	require.NoError(t, err)

	inputs := []string{"", "apples", "  Special Ingredient!@#  ", "salt & pepper", "mushroom soup base", "olive oil"}
	links := []string{product, l.ShoppingCartLink(inputs)}
	for _, in := range inputs {
		links = append(links,
			l.FreshLink(in, ""),
			l.FreshLink(in, "dairy"),
			l.GeneralLink(in, ""),
			l.OptimizedLink(in),
		)
	}

	for _, link := range links {
		v := l.ValidateAffiliateLink(link)
		assert.True(t, v.HasCorrectTag, link)
		assert.True(t, v.HasRefParameter, link)
		assert.True(t, v.IsValid, link)
		assert.Equal(t, DefaultTag, queryOf(t, link).Get("tag"), link)
	}
}

func TestLinkerUsesInjectedTag(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tag = "othersite-21"
	l, err := NewLinker(cfg)
	require.NoError(t, err)

	link := l.FreshLink("kale", "")
	assert.Equal(t, "othersite-21", queryOf(t, link).Get("tag"))
	assert.True(t, l.ValidateAffiliateLink(link).IsValid)

	// 預設 tag 的連結在其他設定下不合法
	other := newTestLinker(t).FreshLink("kale", "")
	assert.False(t, l.ValidateAffiliateLink(other).HasCorrectTag)
}
