package oracle

import (
	"context"
	"fmt"
	"strings"
)

// Page types recognised by ClassifyPage
const (
	PageProductDetail = "product_detail"
	PageProductList   = "product_list"
	PageCart          = "shopping_cart"
	PageCheckout      = "checkout"
	PageMain          = "main_page"
)

// RulesBackend answers from a fixed rule table. It needs no network and is
// used when no API key is configured.
type RulesBackend struct{}

// NewRulesBackend creates a RulesBackend
func NewRulesBackend() *RulesBackend {
	return &RulesBackend{}
}

// Name returns "rules"
func (b *RulesBackend) Name() string { return ProviderRules }

// Generate reads the page address and HTML back out of the prompt and picks
// an action for the page type
func (b *RulesBackend) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	address, html := promptPage(prompt)
	return RecommendAction(address, html), nil
}

// ClassifyPage guesses the page type from its address first, then its HTML
func ClassifyPage(address, html string) string {
	u := strings.ToLower(address)
	h := strings.ToLower(html)

	switch {
	case strings.Contains(u, "product") || strings.Contains(u, "item"):
		return PageProductDetail
	case strings.Contains(u, "search") || strings.Contains(u, "category"):
		return PageProductList
	case strings.Contains(u, "cart"):
		return PageCart
	case strings.Contains(u, "checkout"):
		return PageCheckout
	case strings.Contains(h, "product") && strings.Contains(h, "price"):
		return PageProductDetail
	case strings.Contains(h, "search-result") || strings.Contains(h, "product-list"):
		return PageProductList
	}
	return PageMain
}

// RecommendAction returns an answer in the segment format the decision
// parser reads
func RecommendAction(address, html string) string {
	h := strings.ToLower(html)
	pageType := ClassifyPage(address, html)

	switch pageType {
	case PageProductDetail:
		if containsAny(h, "add to cart", "장바구니", "구매하기") {
			return line("extract", 0, "product detail page with purchase options, extract product info")
		}
		return line("scroll", 500, "product detail page, scroll for price and benefits")
	case PageProductList:
		if containsAny(h, "search-product", "baby-product", "/vp/products/", "product-item") {
			return line("navigate", 1, "product list page, open the first product")
		}
		if containsAny(h, "next", "다음") {
			return line("click", 1, "product list page, go to the next page")
		}
		return line("scroll", 500, "product list page, load more products")
	case PageCart, PageCheckout:
		return line("extract", 0, fmt.Sprintf("%s page, collect listed items", pageType))
	}
	return line("scroll", 500, "main page, look for categories and deals")
}

func line(action string, value int, reason string) string {
	return fmt.Sprintf("action: %s, value: %d, reason: %s", action, value, reason)
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
