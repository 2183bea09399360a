package output

import (
	"encoding/csv"
	"os"
	"strconv"
	"strings"

	"github.com/law-makers/dealcrawl/pkg/models"
)

var productHeaders = []string{
	"name", "site", "category", "current_price", "original_price",
	"discount_rate", "rocket_delivery", "seller", "shipping_fee", "url", "image_url", "benefits",
}

// SaveProductsCSV writes one row per product to filepath
func SaveProductsCSV(products []*models.Product, filepath string) error {
	file, err := os.Create(filepath)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(productHeaders); err != nil {
		return err
	}

	for _, p := range products {
		row := []string{
			p.Name,
			p.Site,
			p.Category,
			formatFloat(p.CurrentPrice),
			formatFloat(p.OriginalPrice),
			formatFloat(p.DiscountRate),
			strconv.FormatBool(p.RocketDelivery),
			p.Seller,
			p.ShippingFee,
			p.URL,
			p.ImageURL,
			strings.Join(p.Benefits, "; "),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	return writer.Error()
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
