package output

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/law-makers/dealcrawl/pkg/models"
)

const page = `<html><head><script>var x = 1;</script><style>.a{}</style></head>
<body><h1 class="title">Samsung TV</h1>
<p>Price <strong>399,000</strong></p>
<a href="/vp/products/42" data-id="x">Details</a>
<form><input name="q"></form></body></html>`

func TestCleanHTML(t *testing.T) {
	cleaned, err := CleanHTML(page)
	if err != nil {
		t.Fatalf("CleanHTML failed: %v", err)
	}
	for _, unwanted := range []string{"<script", "<style", "<form", "class=", "data-id"} {
		if strings.Contains(cleaned, unwanted) {
			t.Errorf("Expected %q to be removed: %s", unwanted, cleaned)
		}
	}
	if !strings.Contains(cleaned, `href="/vp/products/42"`) {
		t.Errorf("Expected href to be kept: %s", cleaned)
	}
}

func TestToMarkdown(t *testing.T) {
	got, err := ToMarkdown(page, "https://www.coupang.com/np/search")
	if err != nil {
		t.Fatalf("ToMarkdown failed: %v", err)
	}
	if !strings.Contains(got, "# Samsung TV") {
		t.Errorf("Expected heading in markdown: %s", got)
	}
	if !strings.Contains(got, "[Details](https://www.coupang.com/vp/products/42)") {
		t.Errorf("Expected resolved link in markdown: %s", got)
	}
	if strings.Contains(got, "var x") {
		t.Errorf("Expected scripts to be dropped: %s", got)
	}
}

func TestVisibleText(t *testing.T) {
	got := VisibleText(page)
	if got != "Samsung TV Price 399,000 Details" {
		t.Errorf("Unexpected text %q", got)
	}
}

func TestSaveProductsCSV(t *testing.T) {
	p := models.NewProduct("TV", "https://www.coupang.com/vp/products/42", "coupang")
	orig := 500000.0
	p.UpdatePrice(399000, &orig)
	p.AddBenefit("free shipping")

	path := filepath.Join(t.TempDir(), "products.csv")
	if err := SaveProductsCSV([]*models.Product{p}, path); err != nil {
		t.Fatalf("SaveProductsCSV failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected header and one row, got %d", len(rows))
	}
	if rows[1][0] != "TV" || rows[1][3] != "399000" || rows[1][5] != "20" {
		t.Errorf("Unexpected row %v", rows[1])
	}
}
