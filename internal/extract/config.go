package extract

import (
	"os"
	"strings"
	"time"

	"github.com/law-makers/dealcrawl/internal/engine"
	"gopkg.in/yaml.v3"
)

// SiteConfig describes how to read one marketplace
type SiteConfig struct {
	Name     string        `yaml:"name"`
	Hosts    []string      `yaml:"hosts"`
	StartURL string        `yaml:"start_url"`
	Country  string        `yaml:"country,omitempty"`
	Enabled  bool          `yaml:"enabled"`
	// MinDelay overrides the global spacing between actions on this site
	MinDelay time.Duration `yaml:"min_delay,omitempty"`

	Selectors  Selectors         `yaml:"selectors"`
	AntiBot    []string          `yaml:"anti_bot_indicators,omitempty"`
	JavaScript *JavaScriptConfig `yaml:"javascript,omitempty"`
}

// Selectors are CSS selector lists, tried in order until one matches
type Selectors struct {
	Name          []string `yaml:"name"`
	CurrentPrice  []string `yaml:"current_price"`
	OriginalPrice []string `yaml:"original_price,omitempty"`
	DiscountRate  []string `yaml:"discount_rate,omitempty"`
	ShippingFee   []string `yaml:"shipping_fee,omitempty"`
	FreeShipping  []string `yaml:"free_shipping,omitempty"`
	FastDelivery  []string `yaml:"fast_delivery,omitempty"`
	Seller        []string `yaml:"seller,omitempty"`
	Image         []string `yaml:"image,omitempty"`
	ListItem      []string `yaml:"list_item,omitempty"`
	ItemLink      []string `yaml:"item_link,omitempty"`
	AdBadge       []string `yaml:"ad_badge,omitempty"`
	NextPage      []string `yaml:"next_page,omitempty"`
}

// JavaScriptConfig points at product data assigned by an inline script,
// e.g. window.runParams. Paths are dot-separated and relative to the variable.
type JavaScriptConfig struct {
	MainDataVariable string `yaml:"main_data_variable"`
	NamePath         string `yaml:"name_path,omitempty"`
	PricePath        string `yaml:"price_path,omitempty"`
	OriginalPath     string `yaml:"original_price_path,omitempty"`
	SellerPath       string `yaml:"seller_path,omitempty"`
}

type siteFile struct {
	Sites []SiteConfig `yaml:"sites"`
}

// LoadSiteConfigs reads a YAML file with a top-level "sites" list
func LoadSiteConfigs(path string) ([]SiteConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, engine.ConfigError("load_sites", "cannot read "+path, err)
	}
	return ParseSiteConfigs(data)
}

// ParseSiteConfigs decodes and validates site configs
func ParseSiteConfigs(data []byte) ([]SiteConfig, error) {
	var f siteFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, engine.ConfigError("load_sites", "invalid site config", err)
	}
	for i := range f.Sites {
		if err := f.Sites[i].validate(); err != nil {
			return nil, err
		}
	}
	return f.Sites, nil
}

func (c *SiteConfig) validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return engine.ConfigError("load_sites", "site without a name", nil)
	}
	if len(c.Hosts) == 0 {
		return engine.ConfigError("load_sites", "site "+c.Name+" has no hosts", nil)
	}
	if c.JavaScript != nil && c.JavaScript.MainDataVariable == "" {
		return engine.ConfigError("load_sites", "site "+c.Name+" has javascript without main_data_variable", nil)
	}
	return nil
}

// DefaultSiteConfigs returns the built-in marketplaces. Only Coupang is
// enabled for the crawl command.
func DefaultSiteConfigs() []SiteConfig {
	return []SiteConfig{
		{
			Name:     "coupang",
			Hosts:    []string{"coupang.com"},
			StartURL: "https://www.coupang.com",
			MinDelay: 2 * time.Second,
			Country:  "KR",
			Enabled:  true,
			Selectors: Selectors{
				Name:          coupangNameSelectors,
				CurrentPrice:  coupangPriceSelectors,
				OriginalPrice: []string{".base-price", ".origin-price"},
				DiscountRate:  []string{".discount-percentage"},
				ShippingFee:   []string{".shipping-fee"},
				FreeShipping:  []string{".free-shipping"},
				FastDelivery:  []string{".rocket", ".rocket-fresh"},
				Seller:        []string{".prod-sale-vendor-name"},
				Image:         coupangImageSelectors,
				ListItem:      coupangListSelectors,
				ItemLink:      []string{"a.search-product-link", "a"},
				AdBadge:       []string{".ad-badge"},
				NextPage:      []string{".page-next"},
			},
			AntiBot: []string{"Access Denied", "captcha"},
		},
		{
			Name:     "aliexpress",
			Hosts:    []string{"aliexpress.com"},
			StartURL: "https://www.aliexpress.com",
			Selectors: Selectors{
				Name:          []string{"h1[data-pl='product-title']", ".product-title-text"},
				CurrentPrice:  []string{".product-price-current", ".uniform-banner-box-price"},
				OriginalPrice: []string{".product-price-original"},
				Seller:        []string{".store-header--storeName--vINzvPw", ".shop-name"},
				ListItem:      []string{".search-item-card-wrapper-gallery", ".list--gallery--C2f2tvm > a"},
				ItemLink:      []string{"a[href*='/item/']"},
			},
			AntiBot: []string{"slide to verify", "baxia-punish"},
			JavaScript: &JavaScriptConfig{
				MainDataVariable: "window.runParams",
				NamePath:         "data.titleModule.subject",
				PricePath:        "data.priceModule.minActivityAmount.value",
				OriginalPath:     "data.priceModule.minAmount.value",
				SellerPath:       "data.storeModule.storeName",
			},
		},
		{
			Name:     "amazon",
			Hosts:    []string{"amazon.com", "amazon.co.jp", "amazon.de"},
			StartURL: "https://www.amazon.com",
			Selectors: Selectors{
				Name:          []string{"#productTitle"},
				CurrentPrice:  []string{".a-price .a-offscreen", "#priceblock_ourprice", "#priceblock_dealprice"},
				OriginalPrice: []string{".a-text-price .a-offscreen"},
				Seller:        []string{"#sellerProfileTriggerId", "#bylineInfo"},
				Image:         []string{"#landingImage"},
				ListItem:      []string{"div[data-component-type='s-search-result']"},
				ItemLink:      []string{"h2 a", "a.a-link-normal"},
				AdBadge:       []string{".puis-sponsored-label-text"},
				NextPage:      []string{".s-pagination-next"},
			},
			AntiBot: []string{"Robot Check", "Enter the characters you see below", "api-services-support@amazon.com"},
		},
	}
}
