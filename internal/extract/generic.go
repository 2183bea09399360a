package extract

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/law-makers/dealcrawl/internal/engine"
	"github.com/law-makers/dealcrawl/pkg/models"
	"github.com/rs/zerolog/log"
)

var (
	priceMetaKeys = []string{"product:price:amount", "og:price:amount", "twitter:data1"}
	imageMetaKeys = []string{"og:image", "twitter:image"}
	nameMetaKeys  = []string{"og:title", "twitter:title"}
)

// GenericExtractor reads any marketplace described by a SiteConfig. Missing
// selectors fall back to OpenGraph and product meta tags, then to script data
// when the config names a JavaScript variable.
type GenericExtractor struct {
	cfg SiteConfig
}

// NewGenericExtractor builds an extractor from cfg
func NewGenericExtractor(cfg SiteConfig) *GenericExtractor {
	return &GenericExtractor{cfg: cfg}
}

// Name returns the site name
func (e *GenericExtractor) Name() string {
	return e.cfg.Name
}

// Config returns the site config the extractor was built from
func (e *GenericExtractor) Config() SiteConfig {
	return e.cfg
}

// ExtractListURLs returns links inside list items, or every link that looks
// like a product when the site has no list selectors
func (e *GenericExtractor) ExtractListURLs(html string) ([]string, error) {
	doc, err := parseDocument("list_urls", html)
	if err != nil {
		return nil, err
	}

	var hrefs []string
	s := e.cfg.Selectors
	if len(s.ListItem) > 0 {
		linkSels := s.ItemLink
		if len(linkSels) == 0 {
			linkSels = []string{"a[href]"}
		}
		for _, container := range s.ListItem {
			doc.Find(container).Each(func(_ int, item *goquery.Selection) {
				if anyMatchIn(item, s.AdBadge) {
					return
				}
				for _, ls := range linkSels {
					if href, ok := item.Find(ls).First().Attr("href"); ok {
						hrefs = append(hrefs, href)
						return
					}
				}
				if href, ok := item.Attr("href"); ok {
					hrefs = append(hrefs, href)
				}
			})
		}
	} else {
		doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
			href, _ := a.Attr("href")
			if looksLikeProductLink(href) {
				hrefs = append(hrefs, href)
			}
		})
	}
	return uniqueResolved(e.cfg.StartURL, hrefs), nil
}

// ExtractRecord reads the product on a detail page
func (e *GenericExtractor) ExtractRecord(html, address string) (*models.Product, error) {
	doc, err := parseDocument("record", html)
	if err != nil {
		return nil, err
	}
	if indicator := detectAntiBot(html, e.cfg.AntiBot); indicator != "" {
		return nil, engine.ExtractionError("record", "blocked by anti-bot page", nil).
			WithDetail("indicator", indicator).
			WithDetail("address", address)
	}

	meta := metaTags(doc)
	s := e.cfg.Selectors

	var script map[string]interface{}
	if js := e.cfg.JavaScript; js != nil {
		script = ScriptData(doc, address, js.MainDataVariable)
	}

	name := firstText(doc, s.Name)
	if name == "" {
		name = firstMeta(meta, nameMetaKeys)
	}
	if name == "" && e.cfg.JavaScript != nil {
		name = lookupString(script, e.cfg.JavaScript.NamePath)
	}

	current := pricePtr(firstText(doc, s.CurrentPrice))
	if current == nil {
		current = pricePtr(firstMeta(meta, priceMetaKeys))
	}
	if current == nil {
		current = pricePtr(itemprop(doc, "price"))
	}
	if current == nil && e.cfg.JavaScript != nil {
		current = lookupPrice(script, e.cfg.JavaScript.PricePath)
	}

	if name == "" || (current == nil && !isProductPage(doc, meta)) {
		return nil, engine.ExtractionError("record", "no product on page", ErrNoProduct).WithDetail("address", address)
	}

	site := e.cfg.Name
	if site == "" {
		site = "generic"
	}
	p := models.NewProduct(name, address, site)
	p.CurrentPrice = current
	p.OriginalPrice = pricePtr(firstText(doc, s.OriginalPrice))
	if p.OriginalPrice == nil && e.cfg.JavaScript != nil {
		p.OriginalPrice = lookupPrice(script, e.cfg.JavaScript.OriginalPath)
	}
	p.CalculateDiscountRate()

	p.ImageURL = firstAttr(doc, s.Image, []string{"data-src", "src"})
	if p.ImageURL == "" {
		p.ImageURL = firstMeta(meta, imageMetaKeys)
	}
	p.Seller = firstText(doc, s.Seller)
	if p.Seller == "" && e.cfg.JavaScript != nil {
		p.Seller = lookupString(script, e.cfg.JavaScript.SellerPath)
	}
	p.ShippingFee = firstText(doc, s.ShippingFee)
	p.RocketDelivery = anyMatch(doc, s.FastDelivery)
	if anyMatch(doc, s.FreeShipping) {
		p.AddBenefit("free_shipping")
	}

	log.Debug().
		Str("site", site).
		Str("name", p.Name).
		Bool("script_data", script != nil).
		Msg("Product extracted")
	return p, nil
}

// InteractiveElements reports forms, pagination and buttons
func (e *GenericExtractor) InteractiveElements(html string) ([]string, error) {
	doc, err := parseDocument("interactive", html)
	if err != nil {
		return nil, err
	}
	var out []string
	if n := doc.Find("form").Length(); n > 0 {
		out = append(out, "Forms: "+strconv.Itoa(n))
	}
	if anyMatch(doc, e.cfg.Selectors.NextPage) || doc.Find(".pagination, [rel=next]").Length() > 0 {
		out = append(out, "Pagination found")
	}
	doc.Find("button").Each(func(_ int, b *goquery.Selection) {
		if t := strings.TrimSpace(b.Text()); t != "" && len(out) < 20 {
			out = append(out, "Button: "+t)
		}
	})
	return out, nil
}

// metaTags collects name= and property= meta content, as the page declares it
func metaTags(doc *goquery.Document) map[string]string {
	meta := make(map[string]string)
	doc.Find("meta").Each(func(_ int, sel *goquery.Selection) {
		content, _ := sel.Attr("content")
		if name, ok := sel.Attr("name"); ok {
			meta[strings.ToLower(name)] = content
		}
		if property, ok := sel.Attr("property"); ok {
			meta[strings.ToLower(property)] = content
		}
	})
	return meta
}

func firstMeta(meta map[string]string, keys []string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(meta[k]); v != "" {
			return v
		}
	}
	return ""
}

func itemprop(doc *goquery.Document, prop string) string {
	node := doc.Find("[itemprop='" + prop + "']").First()
	if v, ok := node.Attr("content"); ok {
		return v
	}
	return strings.TrimSpace(node.Text())
}

func isProductPage(doc *goquery.Document, meta map[string]string) bool {
	return strings.EqualFold(meta["og:type"], "product") || doc.Find("[itemtype*='schema.org/Product']").Length() > 0
}

// detectAntiBot returns the first indicator found in the page, ignoring case
func detectAntiBot(html string, indicators []string) string {
	if len(indicators) == 0 {
		return ""
	}
	lower := strings.ToLower(html)
	for _, ind := range indicators {
		if ind != "" && strings.Contains(lower, strings.ToLower(ind)) {
			return ind
		}
	}
	return ""
}

func anyMatchIn(s *goquery.Selection, selectors []string) bool {
	for _, sel := range selectors {
		if s.Find(sel).Length() > 0 {
			return true
		}
	}
	return false
}

func looksLikeProductLink(href string) bool {
	h := strings.ToLower(href)
	for _, marker := range []string{"/product", "/products/", "/item/", "/dp/", "/vp/", "/goods/"} {
		if strings.Contains(h, marker) {
			return true
		}
	}
	return false
}
