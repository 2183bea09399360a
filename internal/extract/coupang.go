package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/law-makers/dealcrawl/internal/engine"
	"github.com/law-makers/dealcrawl/pkg/models"
	"github.com/rs/zerolog/log"
)

const coupangOrigin = "https://www.coupang.com"

var (
	coupangNameSelectors  = []string{".prod-buy-header__title", ".name", ".search-product-title", ".baby-product-title"}
	coupangPriceSelectors = []string{".total-price strong", ".price-value", ".sale-price", ".price .total"}
	coupangImageSelectors = []string{".prod-image__item img", ".baby-product-image img", ".search-product-image img"}
	coupangImageAttrs     = []string{"data-img-src", "data-original-src", "data-src", "src"}
	coupangListSelectors  = []string{".search-product", ".baby-product", ".search-product-item", "ul.search-product-list li"}
)

// CoupangPageType is a Coupang page classification
type CoupangPageType string

// Coupang page types
const (
	CoupangMobileMain       CoupangPageType = "mobile_main"
	CoupangMobileSearch     CoupangPageType = "mobile_search"
	CoupangEventPages       CoupangPageType = "event_pages"
	CoupangProductAPI       CoupangPageType = "product_api"
	CoupangSearchSuggestAPI CoupangPageType = "search_suggest_api"
	CoupangProductDetail    CoupangPageType = "product_detail"
	CoupangProductOptions   CoupangPageType = "product_options"
	CoupangSearchResults    CoupangPageType = "search_results"
	CoupangCategory         CoupangPageType = "category"
	CoupangBrand            CoupangPageType = "brand"
	CoupangGoldBox          CoupangPageType = "gold_box"
	CoupangCampaign         CoupangPageType = "campaign"
	CoupangCouponCenter     CoupangPageType = "coupon_center"
	CoupangRocketFresh      CoupangPageType = "rocket_fresh"
	CoupangRocketGlobal     CoupangPageType = "rocket_global"
	CoupangRocketLuxury     CoupangPageType = "rocket_luxury"
	CoupangBiz              CoupangPageType = "coupang_biz"
	CoupangMyCoupang        CoupangPageType = "my_coupang"
	CoupangLogin            CoupangPageType = "login"
	CoupangUnknown          CoupangPageType = "unknown"
)

// ClassifyPage maps a Coupang address to its page type
func ClassifyPage(address string) CoupangPageType {
	u, err := url.Parse(address)
	if err != nil {
		return CoupangUnknown
	}
	host := strings.ToLower(u.Hostname())
	path := strings.ToLower(u.Path)

	if strings.HasPrefix(host, "m.") || strings.HasPrefix(host, "mc.") {
		if strings.Contains(path, "/search") {
			return CoupangMobileSearch
		}
		return CoupangMobileMain
	}
	if host == "pages.coupang.com" {
		return CoupangEventPages
	}
	if strings.HasPrefix(path, "/api/") {
		switch {
		case strings.Contains(path, "/products"):
			return CoupangProductAPI
		case strings.Contains(path, "/suggest"):
			return CoupangSearchSuggestAPI
		}
	}

	segments := strings.FieldsFunc(path, func(r rune) bool { return r == '/' })
	if len(segments) > 0 {
		next := ""
		if len(segments) > 1 {
			next = segments[1]
		}
		switch segments[0] {
		case "vp":
			if next == "products" {
				return CoupangProductDetail
			}
			return CoupangProductOptions
		case "products":
			return CoupangProductDetail
		case "np":
			switch next {
			case "search":
				return CoupangSearchResults
			case "categories":
				return CoupangCategory
			case "brands":
				return CoupangBrand
			case "goldbox":
				return CoupangGoldBox
			case "campaigns":
				return CoupangCampaign
			}
		case "goldbox":
			return CoupangGoldBox
		case "campaign", "campaigns":
			return CoupangCampaign
		case "event", "events":
			return CoupangEventPages
		case "coupon", "coupons":
			return CoupangCouponCenter
		case "fresh", "rocket-fresh":
			return CoupangRocketFresh
		case "global":
			return CoupangRocketGlobal
		case "luxury":
			return CoupangRocketLuxury
		case "biz", "business":
			return CoupangBiz
		case "my", "mycoupang":
			return CoupangMyCoupang
		case "login", "member", "signin":
			return CoupangLogin
		case "search":
			return CoupangSearchResults
		case "category":
			return CoupangCategory
		case "brand":
			return CoupangBrand
		}
	}

	switch {
	case strings.Contains(path, "product"):
		return CoupangProductDetail
	case strings.Contains(path, "search"):
		return CoupangSearchResults
	case strings.Contains(path, "category"):
		return CoupangCategory
	}
	return CoupangUnknown
}

// CoupangExtractor reads Coupang search and product pages
type CoupangExtractor struct {
	cfg SiteConfig
}

// NewCoupangExtractor builds the extractor. Empty selector lists in cfg fall
// back to the built-in Coupang selectors.
func NewCoupangExtractor(cfg SiteConfig) *CoupangExtractor {
	if len(cfg.Selectors.Name) == 0 {
		cfg.Selectors.Name = coupangNameSelectors
	}
	if len(cfg.Selectors.CurrentPrice) == 0 {
		cfg.Selectors.CurrentPrice = coupangPriceSelectors
	}
	if len(cfg.Selectors.Image) == 0 {
		cfg.Selectors.Image = coupangImageSelectors
	}
	if len(cfg.Selectors.ListItem) == 0 {
		cfg.Selectors.ListItem = coupangListSelectors
	}
	if len(cfg.Selectors.ItemLink) == 0 {
		cfg.Selectors.ItemLink = []string{"a"}
	}
	return &CoupangExtractor{cfg: cfg}
}

// Name returns the site name
func (e *CoupangExtractor) Name() string {
	return "coupang"
}

// ExtractListURLs returns product links from search and category listings.
// Ads are skipped.
func (e *CoupangExtractor) ExtractListURLs(html string) ([]string, error) {
	doc, err := parseDocument("list_urls", html)
	if err != nil {
		return nil, err
	}

	var hrefs []string
	for _, container := range e.cfg.Selectors.ListItem {
		doc.Find(container).Each(func(_ int, item *goquery.Selection) {
			for _, ad := range e.cfg.Selectors.AdBadge {
				if item.Find(ad).Length() > 0 {
					return
				}
			}
			for _, linkSel := range e.cfg.Selectors.ItemLink {
				if href, ok := item.Find(linkSel).First().Attr("href"); ok && strings.TrimSpace(href) != "" {
					hrefs = append(hrefs, href)
					return
				}
			}
		})
		if len(hrefs) > 0 {
			break
		}
	}
	return uniqueResolved(coupangOrigin, hrefs), nil
}

// ExtractRecord reads a product detail page
func (e *CoupangExtractor) ExtractRecord(html, address string) (*models.Product, error) {
	doc, err := parseDocument("record", html)
	if err != nil {
		return nil, err
	}
	if indicator := detectAntiBot(html, e.cfg.AntiBot); indicator != "" {
		return nil, engine.ExtractionError("record", "blocked by anti-bot page", nil).
			WithDetail("indicator", indicator).
			WithDetail("address", address)
	}

	s := e.cfg.Selectors
	name := firstText(doc, s.Name)
	if name == "" {
		return nil, engine.ExtractionError("record", "no product name", ErrNoProduct).
			WithDetail("address", address).
			WithDetail("page_type", string(ClassifyPage(address)))
	}

	p := models.NewProduct(name, address, e.Name())
	p.CurrentPrice = pricePtr(firstText(doc, s.CurrentPrice))
	p.OriginalPrice = pricePtr(firstText(doc, s.OriginalPrice))
	p.CalculateDiscountRate()
	p.ImageURL = firstAttr(doc, s.Image, coupangImageAttrs)
	if p.ImageURL != "" && strings.HasPrefix(p.ImageURL, "//") {
		p.ImageURL = "https:" + p.ImageURL
	}
	p.Seller = firstText(doc, s.Seller)
	p.ShippingFee = firstText(doc, s.ShippingFee)
	p.RocketDelivery = anyMatch(doc, s.FastDelivery) || doc.Find("img[alt*='로켓']").Length() > 0
	if anyMatch(doc, s.FreeShipping) {
		p.AddBenefit("free_shipping")
	}
	if p.RocketDelivery {
		p.AddBenefit("rocket_delivery")
	}
	if crumb := strings.TrimSpace(doc.Find("#breadcrumb li a, .prod-breadcrumb a").Last().Text()); crumb != "" {
		p.Category = crumb
	}

	log.Debug().
		Str("name", p.Name).
		Str("address", address).
		Str("page_type", string(ClassifyPage(address))).
		Msg("Coupang product extracted")
	return p, nil
}

// InteractiveElements reports React components and pagination
func (e *CoupangExtractor) InteractiveElements(html string) ([]string, error) {
	doc, err := parseDocument("interactive", html)
	if err != nil {
		return nil, err
	}
	var out []string
	doc.Find("[data-react-class], [data-component-type]").Each(func(_ int, s *goquery.Selection) {
		if v, ok := s.Attr("data-component-type"); ok {
			out = append(out, "Component: "+v)
		}
		if v, ok := s.Attr("data-react-class"); ok {
			out = append(out, "React: "+v)
		}
	})
	if doc.Find(".search-pagination, .pagination").Length() > 0 {
		out = append(out, "Pagination found")
	}
	return out, nil
}
