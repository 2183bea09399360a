package models

import "testing"

func TestProduct_CalculateDiscountRate(t *testing.T) {
	p := NewProduct("Kettle", "https://www.coupang.com/vp/products/1", "coupang")
	original := 20000.0
	p.UpdatePrice(15000, &original)

	if p.DiscountRate == nil {
		t.Fatal("Expected discount rate to be set")
	}
	if *p.DiscountRate != 25 {
		t.Errorf("Expected 25%% discount, got %v", *p.DiscountRate)
	}

	// A later price update without an original keeps the old original price
	p.UpdatePrice(10000, nil)
	if *p.DiscountRate != 50 {
		t.Errorf("Expected 50%% discount, got %v", *p.DiscountRate)
	}
}

func TestProduct_CalculateDiscountRate_MissingPrice(t *testing.T) {
	p := NewProduct("Kettle", "https://example.com/p/1", "example")
	current := 100.0
	p.CurrentPrice = &current
	p.CalculateDiscountRate()

	if p.DiscountRate != nil {
		t.Errorf("Expected no discount rate without original price, got %v", *p.DiscountRate)
	}
	if p.Category != DefaultCategory {
		t.Errorf("Expected default category, got %s", p.Category)
	}
}

func TestProduct_AddBenefit(t *testing.T) {
	p := NewProduct("Kettle", "https://example.com/p/1", "example")
	p.AddBenefit("free shipping")
	p.AddBenefit("coupon")
	p.AddBenefit("free shipping")

	if len(p.Benefits) != 2 {
		t.Errorf("Expected 2 benefits, got %d: %v", len(p.Benefits), p.Benefits)
	}
}

func TestValidateAction(t *testing.T) {
	valid := []BrowserAction{
		Navigate{Address: "https://example.com"},
		Click{Selector: "a, button"},
		Scroll{Direction: ScrollDown, Amount: 500},
		ExtractText{},
		Screenshot{},
		WaitForElement{Selector: "body"},
		FillField{Selector: "#q", Value: "kettle"},
		ExecuteScript{Script: "1+1"},
		GetState{},
	}
	for _, a := range valid {
		if err := ValidateAction(a); err != nil {
			t.Errorf("Expected %s to be valid, got %v", a.Kind(), err)
		}
	}

	invalid := []BrowserAction{
		nil,
		Navigate{},
		Click{},
		Scroll{Direction: "sideways"},
		WaitForElement{},
		FillField{Value: "x"},
		ExecuteScript{},
	}
	for _, a := range invalid {
		if err := ValidateAction(a); err == nil {
			t.Errorf("Expected %s to be invalid", DescribeAction(a))
		}
	}
}

func TestMutatesPage(t *testing.T) {
	if !MutatesPage(Click{Selector: "a"}) || !MutatesPage(Scroll{Direction: ScrollDown}) || !MutatesPage(FillField{Selector: "a"}) {
		t.Error("Expected click, scroll and fill to mutate the page")
	}
	if MutatesPage(GetState{}) || MutatesPage(ExtractText{}) || MutatesPage(Screenshot{}) {
		t.Error("Expected get_state, extract_text and screenshot to leave the page alone")
	}
}
