package report

import (
	"math"

	"bukukas/backend/internal/domain"
)

// RevenueCents sums line revenue (qty * sell price) for an order before any
// order level discount.
func RevenueCents(order domain.OrderAccount) int64 {
	var total int64
	for _, line := range order.Lines {
		total += int64(line.Qty) * line.SellPriceCents
	}
	return total
}

// NetSalesCents is order revenue minus the order level discount. The discount
// applies to the whole order, never per line.
func NetSalesCents(order domain.OrderAccount) int64 {
	return RevenueCents(order) - order.DiscountCents
}

// Valuate prices an order against the given weighted-average cost basis.
// Cost is rounded per line so a three-line order and a one-line order with the
// same quantities agree to the cent.
func Valuate(order domain.OrderAccount, wacByProduct map[string]float64) domain.OrderValuation {
	revenue := RevenueCents(order)
	netSales := revenue - order.DiscountCents

	var cost int64
	for _, line := range order.Lines {
		cost += int64(math.Round(wacByProduct[line.ProductID] * float64(line.Qty)))
	}

	return domain.OrderValuation{
		OrderID:         order.ID,
		RevenueCents:    revenue,
		NetSalesCents:   netSales,
		CostCents:       cost,
		ProfitCents:     netSales - cost,
		BalanceDueCents: netSales - order.AmountReceivedCents,
	}
}

// ReturnAmountCents sums qty * unit price over the return's lines. The unit
// price is the sell price captured at return time, not the current product
// price.
func ReturnAmountCents(ret domain.ReturnAccount) int64 {
	var total int64
	for _, line := range ret.Lines {
		total += int64(line.Qty) * line.SellPriceCents
	}
	return total
}
