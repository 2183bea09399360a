package models

import (
	"math"
	"time"
)

// DefaultCategory is used when a site does not expose one
const DefaultCategory = "uncategorized"

// Product is a discount record extracted from a product page
type Product struct {
	ID             string     `json:"id,omitempty"`
	Name           string     `json:"name"`
	CurrentPrice   *float64   `json:"current_price,omitempty"`
	OriginalPrice  *float64   `json:"original_price,omitempty"`
	DiscountRate   *float64   `json:"discount_rate,omitempty"`
	Site           string     `json:"site"`
	Category       string     `json:"category"`
	URL            string     `json:"url"`
	ImageURL       string     `json:"image_url,omitempty"`
	CouponCode     string     `json:"coupon_code,omitempty"`
	ValidUntil     *time.Time `json:"valid_until,omitempty"`
	Benefits       []string   `json:"benefits,omitempty"`
	RocketDelivery bool       `json:"rocket_delivery"`
	Seller         string     `json:"seller,omitempty"`
	ShippingFee    string     `json:"shipping_fee,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// NewProduct creates a product with timestamps and the default category
func NewProduct(name, url, site string) *Product {
	now := time.Now()
	return &Product{
		Name:      name,
		URL:       url,
		Site:      site,
		Category:  DefaultCategory,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CalculateDiscountRate sets DiscountRate to the rounded percentage off the
// original price. It is left untouched when either price is unknown.
func (p *Product) CalculateDiscountRate() {
	if p.CurrentPrice == nil || p.OriginalPrice == nil || *p.OriginalPrice <= 0 {
		return
	}
	rate := math.Round((*p.OriginalPrice - *p.CurrentPrice) / *p.OriginalPrice * 100)
	p.DiscountRate = &rate
}

// UpdatePrice records a new current price and, optionally, a new original price
func (p *Product) UpdatePrice(current float64, original *float64) {
	p.CurrentPrice = &current
	if original != nil {
		o := *original
		p.OriginalPrice = &o
	}
	p.CalculateDiscountRate()
	p.UpdatedAt = time.Now()
}

// AddBenefit appends b unless it is already present
func (p *Product) AddBenefit(b string) {
	for _, existing := range p.Benefits {
		if existing == b {
			return
		}
	}
	p.Benefits = append(p.Benefits, b)
}

// PriceHistory is one observed price of a product
type PriceHistory struct {
	ProductID  string    `json:"product_id"`
	Price      float64   `json:"price"`
	RecordedAt time.Time `json:"recorded_at"`
}
