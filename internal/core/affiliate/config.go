package affiliate

import (
	"fmt"
	"net/url"
	"strings"
)

// 預設聯盟設定
const (
	DefaultTag            = "freshsense-20"
	DefaultRefParam       = "as_li_ss_tl"
	DefaultBaseURL        = "https://www.amazon.com/s"
	DefaultFreshBaseURL   = "https://www.amazon.com/fresh/s"
	DefaultProductBaseURL = "https://www.amazon.com/dp"
	DefaultVendorDomain   = "amazon.com"
)

// Config 聯盟連結設定，啟動時建立一次後不可變
type Config struct {
	Tag            string `json:"tag"`
	RefParam       string `json:"ref_param"`
	BaseURL        string `json:"base_url"`
	FreshBaseURL   string `json:"fresh_base_url"`
	ProductBaseURL string `json:"product_base_url"`
	VendorDomain   string `json:"vendor_domain"`
}

// DefaultConfig 返回預設設定
func DefaultConfig() Config {
	return Config{
		Tag:            DefaultTag,
		RefParam:       DefaultRefParam,
		BaseURL:        DefaultBaseURL,
		FreshBaseURL:   DefaultFreshBaseURL,
		ProductBaseURL: DefaultProductBaseURL,
		VendorDomain:   DefaultVendorDomain,
	}
}

// Validate 驗證設定
func (c Config) Validate() error {
	if strings.TrimSpace(c.Tag) == "" {
		return fmt.Errorf("affiliate tag is required")
	}
	if strings.TrimSpace(c.RefParam) == "" {
		return fmt.Errorf("affiliate ref param is required")
	}
	if strings.TrimSpace(c.VendorDomain) == "" {
		return fmt.Errorf("vendor domain is required")
	}

	for name, raw := range map[string]string{
		"base url":         c.BaseURL,
		"fresh base url":   c.FreshBaseURL,
		"product base url": c.ProductBaseURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid %s: %q", name, raw)
		}
		if u.RawQuery != "" {
			return fmt.Errorf("%s must not carry a query string: %q", name, raw)
		}
		if !strings.Contains(strings.ToLower(u.Hostname()), strings.ToLower(c.VendorDomain)) {
			return fmt.Errorf("%s is not on vendor domain %s: %q", name, c.VendorDomain, raw)
		}
	}

	return nil
}
