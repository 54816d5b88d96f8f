package taxes

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/souqline/souqline-backend/pkg/db/models"
)

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func TestAccrualPersistedAmountWins(t *testing.T) {
	rate := dec("5")
	order := &models.Order{
		TaxAmount:   dec("42.17"),
		TotalAmount: dec("1000"),
	}
	got := Accrual(order, &rate, CategoryRates{"electronics": dec("14")})
	if !got.Equal(dec("42.17")) {
		t.Fatalf("persisted tax amount must be returned unchanged, got %s", got)
	}
}

func TestAccrualBranchOverride(t *testing.T) {
	// subtotal 200, discount 0, shipping 10, rate 5% → 10.50
	rate := dec("5")
	order := &models.Order{
		TotalAmount:  dec("200"),
		ShippingCost: dec("10"),
	}
	got := Accrual(order, &rate, nil)
	if !got.Equal(dec("10.50")) {
		t.Fatalf("branch override tax = %s, want 10.50", got)
	}
}

func TestAccrualBranchOverrideAppliesDiscount(t *testing.T) {
	rate := dec("10")
	order := &models.Order{
		TotalAmount:    dec("500"),
		DiscountAmount: dec("100"),
		ShippingCost:   dec("20"),
	}
	got := Accrual(order, &rate, nil)
	if !got.Equal(dec("42")) {
		t.Fatalf("tax = %s, want 42", got)
	}
}

func TestAccrualCategoryFallback(t *testing.T) {
	order := &models.Order{
		TotalAmount: dec("350"),
		Items: []models.OrderLineItem{
			{Category: "books", UnitPrice: dec("50"), Quantity: 3},
			{Category: "electronics", UnitPrice: dec("100"), Quantity: 2},
			{Category: "mystery", UnitPrice: dec("10"), Quantity: 1},
		},
	}
	rates := CategoryRates{
		"books":       dec("2"),
		"electronics": dec("14"),
	}
	// 150*2% + 200*14% = 3 + 28 = 31; unknown category contributes 0.
	got := Accrual(order, nil, rates)
	if !got.Equal(dec("31")) {
		t.Fatalf("category tax = %s, want 31", got)
	}
}

func TestAccrualZeroRateOverrideFallsThrough(t *testing.T) {
	zero := decimal.Zero
	order := &models.Order{
		Items: []models.OrderLineItem{
			{Category: "books", UnitPrice: dec("100"), Quantity: 1},
		},
	}
	got := Accrual(order, &zero, CategoryRates{"books": dec("5")})
	if !got.Equal(dec("5")) {
		t.Fatalf("zero override should fall back to categories, got %s", got)
	}
}

func TestAccrualReproducible(t *testing.T) {
	rate := dec("7.5")
	order := &models.Order{
		TotalAmount:    dec("133.33"),
		DiscountAmount: dec("13.33"),
		ShippingCost:   dec("6.66"),
	}
	first := Accrual(order, &rate, nil)
	for i := 0; i < 5; i++ {
		if again := Accrual(order, &rate, nil); !again.Equal(first) {
			t.Fatalf("accrual not reproducible: %s vs %s", again, first)
		}
	}
}

func TestAccrualNilOrder(t *testing.T) {
	if got := Accrual(nil, nil, nil); !got.IsZero() {
		t.Fatalf("nil order should accrue zero, got %s", got)
	}
}
