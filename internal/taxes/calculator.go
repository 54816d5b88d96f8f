package taxes

import (
	"github.com/shopspring/decimal"

	"github.com/souqline/souqline-backend/pkg/db/models"
)

var hundred = decimal.NewFromInt(100)

// CategoryRates maps a product category name to its tax rate in percent.
type CategoryRates map[string]decimal.Decimal

// Accrual computes the tax owed on an order. The three-tier fallback must be
// preserved exactly: a persisted checkout amount wins, then a branch override
// rate, then per-item category rates. Reordering the tiers would silently
// rewrite historical accrual reports.
func Accrual(order *models.Order, branchRate *decimal.Decimal, categoryRates CategoryRates) decimal.Decimal {
	if order == nil {
		return decimal.Zero
	}

	if order.TaxAmount.IsPositive() {
		return order.TaxAmount
	}

	if branchRate != nil && !branchRate.IsZero() {
		base := order.TotalAmount.
			Sub(order.DiscountAmount).
			Add(order.ShippingCost)
		return base.Mul(*branchRate).Div(hundred).Round(2)
	}

	total := decimal.Zero
	for _, item := range order.Items {
		rate, ok := categoryRates[item.Category]
		if !ok || rate.IsZero() {
			continue
		}
		line := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		total = total.Add(line.Mul(rate).Div(hundred))
	}
	return total.Round(2)
}

// EffectiveRate returns the branch override rate when present, zero otherwise.
// Orders persist it so checkout receipts can show the rate that was applied.
func EffectiveRate(branchRate *decimal.Decimal) decimal.Decimal {
	if branchRate == nil {
		return decimal.Zero
	}
	return *branchRate
}
