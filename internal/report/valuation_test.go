package report

import (
	"testing"

	"bukukas/backend/internal/domain"
)

func TestValuateAppliesDiscountAndCost(t *testing.T) {
	order := domain.OrderAccount{
		ID:            1001,
		DiscountCents: 10,
		Lines: []domain.OrderLine{
			{ProductID: "prd-1", Qty: 2, SellPriceCents: 100},
		},
	}

	valuation := Valuate(order, map[string]float64{"prd-1": 60})
	if valuation.RevenueCents != 200 {
		t.Fatalf("expected revenue 200, got %d", valuation.RevenueCents)
	}
	if valuation.NetSalesCents != 190 {
		t.Fatalf("expected net sales 190, got %d", valuation.NetSalesCents)
	}
	if valuation.CostCents != 120 {
		t.Fatalf("expected cost 120, got %d", valuation.CostCents)
	}
	if valuation.ProfitCents != 70 {
		t.Fatalf("expected profit 70, got %d", valuation.ProfitCents)
	}
}

func TestValuateUnknownProductCostsNothing(t *testing.T) {
	order := domain.OrderAccount{
		ID: 1002,
		Lines: []domain.OrderLine{
			{ProductID: "prd-unstocked", Qty: 3, SellPriceCents: 500},
		},
	}

	valuation := Valuate(order, map[string]float64{})
	if valuation.CostCents != 0 {
		t.Fatalf("expected zero cost for unstocked product, got %d", valuation.CostCents)
	}
	if valuation.ProfitCents != 1500 {
		t.Fatalf("expected full revenue as profit, got %d", valuation.ProfitCents)
	}
}

func TestValuateBalanceDue(t *testing.T) {
	order := domain.OrderAccount{
		ID:                  1003,
		AmountReceivedCents: 150,
		Lines: []domain.OrderLine{
			{ProductID: "prd-1", Qty: 1, SellPriceCents: 400},
		},
	}

	valuation := Valuate(order, nil)
	if valuation.BalanceDueCents != 250 {
		t.Fatalf("expected balance due 250, got %d", valuation.BalanceDueCents)
	}
}

func TestReturnAmountSumsLineRefunds(t *testing.T) {
	ret := domain.ReturnAccount{
		ID: "ret-1",
		Lines: []domain.ReturnLine{
			{ProductID: "prd-1", Qty: 1, SellPriceCents: 1000},
			{ProductID: "prd-2", Qty: 2, SellPriceCents: 500},
		},
	}

	if got := ReturnAmountCents(ret); got != 2000 {
		t.Fatalf("expected return amount 2000, got %d", got)
	}
}
