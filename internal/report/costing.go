package report

import "bukukas/backend/internal/domain"

// WeightedAverageCost derives the weighted-average unit cost for one product
// from its stock ledger entries: sum(purchasedQty * purchasePrice) /
// sum(purchasedQty) over entries with a positive purchased quantity.
// A product with no qualifying entries costs 0, so a sale of unstocked goods
// shows full revenue as profit.
func WeightedAverageCost(productID string, entries []domain.StockLedgerEntry) float64 {
	totalQty := 0
	totalValue := int64(0)
	for _, entry := range entries {
		if entry.ProductID != productID || entry.PurchasedQty <= 0 {
			continue
		}
		totalQty += entry.PurchasedQty
		totalValue += int64(entry.PurchasedQty) * entry.PurchasePriceCents
	}
	if totalQty == 0 {
		return 0
	}
	return float64(totalValue) / float64(totalQty)
}

// CostBasisByProduct computes the weighted-average cost for every product
// present in the ledger snapshot in a single pass.
func CostBasisByProduct(entries []domain.StockLedgerEntry) map[string]float64 {
	type accum struct {
		qty   int
		value int64
	}

	byProduct := make(map[string]accum, 32)
	for _, entry := range entries {
		if entry.PurchasedQty <= 0 {
			continue
		}
		acc := byProduct[entry.ProductID]
		acc.qty += entry.PurchasedQty
		acc.value += int64(entry.PurchasedQty) * entry.PurchasePriceCents
		byProduct[entry.ProductID] = acc
	}

	result := make(map[string]float64, len(byProduct))
	for productID, acc := range byProduct {
		if acc.qty == 0 {
			continue
		}
		result[productID] = float64(acc.value) / float64(acc.qty)
	}
	return result
}
