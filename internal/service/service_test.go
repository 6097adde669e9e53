package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"bukukas/backend/internal/domain"
	"bukukas/backend/internal/report"
	"bukukas/backend/internal/store"
	"bukukas/backend/internal/store/memory"
)

func newTestService(t *testing.T) (*Service, context.Context) {
	t.Helper()
	svc := New(memory.New(), report.NewEngine(nil, time.Second))
	ctx := WithActor(context.Background(), domain.Actor{Username: "admin", Role: domain.RoleAdmin})
	return svc, ctx
}

func createTestProduct(t *testing.T, svc *Service, ctx context.Context, sku string, price int64) domain.Product {
	t.Helper()
	product, err := svc.CreateProduct(ctx, domain.ProductCreateRequest{
		SKU:            sku,
		Name:           "Product " + sku,
		SellPriceCents: price,
	})
	if err != nil {
		t.Fatalf("create product %s failed: %v", sku, err)
	}
	return product
}

func stockProduct(t *testing.T, svc *Service, ctx context.Context, productID string, qty int, price int64) domain.StockLedgerEntry {
	t.Helper()
	entry, err := svc.CreateStockEntry(ctx, domain.StockEntryCreateRequest{
		ProductID:          productID,
		Qty:                qty,
		PurchasePriceCents: price,
	})
	if err != nil {
		t.Fatalf("create stock entry failed: %v", err)
	}
	return entry
}

func TestReconcilePreservesConsumedStock(t *testing.T) {
	svc, ctx := newTestService(t)
	product := createTestProduct(t, svc, ctx, "SKU-A", 1000)
	entry := stockProduct(t, svc, ctx, product.ID, 50, 300)

	_, err := svc.CreateOrder(ctx, domain.OrderCreateRequest{
		Lines: []domain.OrderLineRequest{{ProductID: product.ID, Qty: 8}},
	})
	if err != nil {
		t.Fatalf("order failed: %v", err)
	}

	updated, err := svc.ReconcileStockEntry(ctx, entry.ID, domain.StockReconcileRequest{
		PurchasedQty:       60,
		PurchasePriceCents: 320,
	})
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if updated.PurchasedQty != 60 || updated.AvailableQty != 52 {
		t.Fatalf("expected purchased=60 available=52, got %d/%d", updated.PurchasedQty, updated.AvailableQty)
	}
	if updated.PurchasePriceCents != 320 {
		t.Fatalf("expected price 320, got %d", updated.PurchasePriceCents)
	}
}

func TestReconcileRejectsNegativeAvailability(t *testing.T) {
	svc, ctx := newTestService(t)
	product := createTestProduct(t, svc, ctx, "SKU-A", 1000)
	entry := stockProduct(t, svc, ctx, product.ID, 50, 300)

	_, err := svc.CreateOrder(ctx, domain.OrderCreateRequest{
		Lines: []domain.OrderLineRequest{{ProductID: product.ID, Qty: 8}},
	})
	if err != nil {
		t.Fatalf("order failed: %v", err)
	}

	// 8 consumed, so purchased below 8 would go negative.
	_, err = svc.ReconcileStockEntry(ctx, entry.ID, domain.StockReconcileRequest{
		PurchasedQty:       5,
		PurchasePriceCents: 300,
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	// Entry must be untouched after the rejection.
	entries, err := svc.ListStockEntries(ctx, product.ID)
	if err != nil {
		t.Fatalf("list entries failed: %v", err)
	}
	if entries[0].PurchasedQty != 50 || entries[0].AvailableQty != 42 {
		t.Fatalf("entry mutated by rejected reconcile: %+v", entries[0])
	}
}

func TestCreateOrderConsumesOldestStockFirst(t *testing.T) {
	svc, ctx := newTestService(t)
	product := createTestProduct(t, svc, ctx, "SKU-A", 1000)
	first := stockProduct(t, svc, ctx, product.ID, 3, 100)
	stockProduct(t, svc, ctx, product.ID, 10, 200)

	order, err := svc.CreateOrder(ctx, domain.OrderCreateRequest{
		Lines: []domain.OrderLineRequest{{ProductID: product.ID, Qty: 5}},
	})
	if err != nil {
		t.Fatalf("order failed: %v", err)
	}
	if order.Lines[0].InventoryID != first.ID {
		t.Fatalf("expected line to reference oldest entry %s, got %s", first.ID, order.Lines[0].InventoryID)
	}

	entries, err := svc.ListStockEntries(ctx, product.ID)
	if err != nil {
		t.Fatalf("list entries failed: %v", err)
	}
	if entries[0].AvailableQty != 0 {
		t.Fatalf("expected oldest entry drained, got %d", entries[0].AvailableQty)
	}
	if entries[1].AvailableQty != 8 {
		t.Fatalf("expected 8 left in newer entry, got %d", entries[1].AvailableQty)
	}
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	svc, ctx := newTestService(t)
	product := createTestProduct(t, svc, ctx, "SKU-A", 1000)
	stockProduct(t, svc, ctx, product.ID, 2, 100)

	_, err := svc.CreateOrder(ctx, domain.OrderCreateRequest{
		Lines: []domain.OrderLineRequest{{ProductID: product.ID, Qty: 3}},
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock error, got %v", err)
	}
}

func TestCreateOrderDefaultsSellPrice(t *testing.T) {
	svc, ctx := newTestService(t)
	product := createTestProduct(t, svc, ctx, "SKU-A", 750)
	stockProduct(t, svc, ctx, product.ID, 10, 100)

	order, err := svc.CreateOrder(ctx, domain.OrderCreateRequest{
		Lines: []domain.OrderLineRequest{{ProductID: product.ID, Qty: 2}},
	})
	if err != nil {
		t.Fatalf("order failed: %v", err)
	}
	if order.Lines[0].SellPriceCents != 750 {
		t.Fatalf("expected price to default to 750, got %d", order.Lines[0].SellPriceCents)
	}
	if order.Status != domain.OrderStatusPending {
		t.Fatalf("expected default status pending, got %s", order.Status)
	}
}

func TestCreateOrderRejectsExcessiveDiscount(t *testing.T) {
	svc, ctx := newTestService(t)
	product := createTestProduct(t, svc, ctx, "SKU-A", 100)
	stockProduct(t, svc, ctx, product.ID, 10, 50)

	_, err := svc.CreateOrder(ctx, domain.OrderCreateRequest{
		DiscountCents: 500,
		Lines:         []domain.OrderLineRequest{{ProductID: product.ID, Qty: 2}},
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error for discount above revenue, got %v", err)
	}
}

func TestOrderValuationUsesWeightedCost(t *testing.T) {
	svc, ctx := newTestService(t)
	product := createTestProduct(t, svc, ctx, "SKU-A", 100)
	stockProduct(t, svc, ctx, product.ID, 10, 100)
	stockProduct(t, svc, ctx, product.ID, 10, 200)

	order, err := svc.CreateOrder(ctx, domain.OrderCreateRequest{
		DiscountCents: 10,
		Lines:         []domain.OrderLineRequest{{ProductID: product.ID, Qty: 2}},
	})
	if err != nil {
		t.Fatalf("order failed: %v", err)
	}

	valuation, err := svc.OrderValuation(ctx, order.ID)
	if err != nil {
		t.Fatalf("valuation failed: %v", err)
	}
	if valuation.NetSalesCents != 190 {
		t.Fatalf("expected net sales 190, got %d", valuation.NetSalesCents)
	}
	// WAC = (10*100 + 10*200) / 20 = 150; cost = 300
	if valuation.CostCents != 300 {
		t.Fatalf("expected cost 300, got %d", valuation.CostCents)
	}
	if valuation.ProfitCents != -110 {
		t.Fatalf("expected profit -110, got %d", valuation.ProfitCents)
	}
}

func TestUpdateOrderStatusTransition(t *testing.T) {
	svc, ctx := newTestService(t)
	product := createTestProduct(t, svc, ctx, "SKU-A", 100)
	stockProduct(t, svc, ctx, product.ID, 10, 50)

	order, err := svc.CreateOrder(ctx, domain.OrderCreateRequest{
		Lines: []domain.OrderLineRequest{{ProductID: product.ID, Qty: 1}},
	})
	if err != nil {
		t.Fatalf("order failed: %v", err)
	}

	completed := domain.OrderStatusCompleted
	updated, err := svc.UpdateOrder(ctx, order.ID, domain.OrderUpdateRequest{Status: &completed})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Status != domain.OrderStatusCompleted {
		t.Fatalf("expected completed, got %s", updated.Status)
	}

	pending := domain.OrderStatusPending
	_, err = svc.UpdateOrder(ctx, order.ID, domain.OrderUpdateRequest{Status: &pending})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error reopening a completed order, got %v", err)
	}
}

func TestCreateReturnEnforcesSoldQuantityBound(t *testing.T) {
	svc, ctx := newTestService(t)
	product := createTestProduct(t, svc, ctx, "SKU-A", 100)
	stockProduct(t, svc, ctx, product.ID, 10, 50)

	order, err := svc.CreateOrder(ctx, domain.OrderCreateRequest{
		Lines: []domain.OrderLineRequest{{ProductID: product.ID, Qty: 3}},
	})
	if err != nil {
		t.Fatalf("order failed: %v", err)
	}

	_, err = svc.CreateReturn(ctx, domain.ReturnCreateRequest{
		OrderID: order.ID,
		Lines:   []domain.ReturnLineRequest{{ProductID: product.ID, Qty: 4}},
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error for over-return, got %v", err)
	}

	resp, err := svc.CreateReturn(ctx, domain.ReturnCreateRequest{
		OrderID: order.ID,
		Lines:   []domain.ReturnLineRequest{{ProductID: product.ID, Qty: 2}},
	})
	if err != nil {
		t.Fatalf("return failed: %v", err)
	}
	if resp.AmountCents != 200 {
		t.Fatalf("expected refund 200, got %d", resp.AmountCents)
	}

	// One unit remains returnable; two more exceed the bound.
	_, err = svc.CreateReturn(ctx, domain.ReturnCreateRequest{
		OrderID: order.ID,
		Lines:   []domain.ReturnLineRequest{{ProductID: product.ID, Qty: 2}},
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error for cumulative over-return, got %v", err)
	}
}

func TestCreateReturnRestocksAtWeightedCost(t *testing.T) {
	svc, ctx := newTestService(t)
	product := createTestProduct(t, svc, ctx, "SKU-A", 1000)
	stockProduct(t, svc, ctx, product.ID, 10, 100)
	stockProduct(t, svc, ctx, product.ID, 10, 200)

	order, err := svc.CreateOrder(ctx, domain.OrderCreateRequest{
		Lines: []domain.OrderLineRequest{{ProductID: product.ID, Qty: 2}},
	})
	if err != nil {
		t.Fatalf("order failed: %v", err)
	}

	resp, err := svc.CreateReturn(ctx, domain.ReturnCreateRequest{
		OrderID: order.ID,
		Lines:   []domain.ReturnLineRequest{{ProductID: product.ID, Qty: 2}},
	})
	if err != nil {
		t.Fatalf("return failed: %v", err)
	}

	entries, err := svc.ListStockEntries(ctx, product.ID)
	if err != nil {
		t.Fatalf("list entries failed: %v", err)
	}
	var restock *domain.StockLedgerEntry
	for i := range entries {
		if entries[i].Source == domain.StockSourceReturn {
			restock = &entries[i]
		}
	}
	if restock == nil {
		t.Fatalf("expected a restock entry after return")
	}
	if restock.SourceID != resp.Return.ID {
		t.Fatalf("expected restock linked to return %s, got %s", resp.Return.ID, restock.SourceID)
	}
	if restock.PurchasePriceCents != 150 {
		t.Fatalf("expected restock at weighted cost 150, got %d", restock.PurchasePriceCents)
	}
	if restock.AvailableQty != 2 {
		t.Fatalf("expected 2 units restocked, got %d", restock.AvailableQty)
	}
}

func TestProductCostReportsLedgerState(t *testing.T) {
	svc, ctx := newTestService(t)
	product := createTestProduct(t, svc, ctx, "SKU-A", 1000)
	stockProduct(t, svc, ctx, product.ID, 10, 100)
	stockProduct(t, svc, ctx, product.ID, 10, 200)

	cost, err := svc.ProductCost(ctx, product.ID)
	if err != nil {
		t.Fatalf("product cost failed: %v", err)
	}
	if cost.UnitCost != 150 {
		t.Fatalf("expected unit cost 150, got %v", cost.UnitCost)
	}
	if cost.EntriesUsed != 2 || cost.TotalQty != 20 {
		t.Fatalf("unexpected ledger stats: %+v", cost)
	}
}

func TestDeleteStockEntryRefusesConsumedEntry(t *testing.T) {
	svc, ctx := newTestService(t)
	product := createTestProduct(t, svc, ctx, "SKU-A", 100)
	entry := stockProduct(t, svc, ctx, product.ID, 5, 50)

	_, err := svc.CreateOrder(ctx, domain.OrderCreateRequest{
		Lines: []domain.OrderLineRequest{{ProductID: product.ID, Qty: 1}},
	})
	if err != nil {
		t.Fatalf("order failed: %v", err)
	}

	if err := svc.DeleteStockEntry(ctx, entry.ID); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error deleting consumed entry, got %v", err)
	}
}

func TestAdminOnlyOperationsRejectStaff(t *testing.T) {
	svc, adminCtx := newTestService(t)
	product := createTestProduct(t, svc, adminCtx, "SKU-A", 100)

	staffCtx := WithActor(context.Background(), domain.Actor{Username: "staff", Role: domain.RoleStaff})

	if _, err := svc.CreateProduct(staffCtx, domain.ProductCreateRequest{SKU: "SKU-B", Name: "B", SellPriceCents: 10}); err == nil {
		t.Fatalf("expected staff product create to fail")
	}
	if _, err := svc.CreateCategory(staffCtx, domain.CategoryCreateRequest{Name: "Snack"}); err == nil {
		t.Fatalf("expected staff category create to fail")
	}
	if err := svc.DeleteOrder(staffCtx, 1); err == nil {
		t.Fatalf("expected staff order delete to fail")
	}
	_ = product
}

func TestSummaryWindowEndToEnd(t *testing.T) {
	svc, ctx := newTestService(t)
	product := createTestProduct(t, svc, ctx, "SKU-A", 100)
	stockProduct(t, svc, ctx, product.ID, 20, 60)

	if _, err := svc.CreateOrder(ctx, domain.OrderCreateRequest{
		Lines: []domain.OrderLineRequest{{ProductID: product.ID, Qty: 2}},
	}); err != nil {
		t.Fatalf("order failed: %v", err)
	}
	if _, err := svc.CreateExpense(ctx, domain.ExpenseCreateRequest{Title: "Rent", AmountCents: 50}); err != nil {
		t.Fatalf("expense failed: %v", err)
	}

	summary, err := svc.Summary(ctx, "today", "", "")
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	if summary.Orders != 1 {
		t.Fatalf("expected 1 order in summary, got %d", summary.Orders)
	}
	if summary.GrossSalesCents != 200 {
		t.Fatalf("expected gross 200, got %d", summary.GrossSalesCents)
	}
	if summary.NetRevenueCents != 150 {
		t.Fatalf("expected net revenue 150, got %d", summary.NetRevenueCents)
	}
}

func TestTrendRejectsBadWindow(t *testing.T) {
	svc, ctx := newTestService(t)
	if _, err := svc.Trend(ctx, "day", "", "bad-date", "2026-01-02"); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateOrderRejectsDuplicateProductLines(t *testing.T) {
	svc, ctx := newTestService(t)
	product := createTestProduct(t, svc, ctx, "SKU-A", 1000)
	stockProduct(t, svc, ctx, product.ID, 10, 300)

	_, err := svc.CreateOrder(ctx, domain.OrderCreateRequest{
		Lines: []domain.OrderLineRequest{
			{ProductID: product.ID, Qty: 2},
			{ProductID: product.ID, Qty: 3},
		},
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error for duplicate product lines, got %v", err)
	}

	// The rejected order must not have consumed stock.
	entries, err := svc.ListStockEntries(ctx, product.ID)
	if err != nil {
		t.Fatalf("list entries failed: %v", err)
	}
	if entries[0].AvailableQty != 10 {
		t.Fatalf("expected untouched availability 10, got %d", entries[0].AvailableQty)
	}
}

func TestReconcileMovesEntryToAnotherProduct(t *testing.T) {
	svc, ctx := newTestService(t)
	wrong := createTestProduct(t, svc, ctx, "SKU-A", 1000)
	right := createTestProduct(t, svc, ctx, "SKU-B", 1200)
	entry := stockProduct(t, svc, ctx, wrong.ID, 20, 500)

	updated, err := svc.ReconcileStockEntry(ctx, entry.ID, domain.StockReconcileRequest{
		ProductID:          right.ID,
		PurchasedQty:       20,
		PurchasePriceCents: 500,
	})
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if updated.ProductID != right.ID {
		t.Fatalf("expected entry moved to %s, got %s", right.ID, updated.ProductID)
	}

	// The moved purchase now counts toward the target product's cost basis.
	cost, err := svc.ProductCost(ctx, right.ID)
	if err != nil {
		t.Fatalf("product cost failed: %v", err)
	}
	if cost.UnitCost != 500 || cost.TotalQty != 20 {
		t.Fatalf("expected unit cost 500 over 20 units, got %.2f over %d", cost.UnitCost, cost.TotalQty)
	}
	prev, err := svc.ProductCost(ctx, wrong.ID)
	if err != nil {
		t.Fatalf("product cost failed: %v", err)
	}
	if prev.EntriesUsed != 0 {
		t.Fatalf("expected no entries left on the source product, got %d", prev.EntriesUsed)
	}
}

func TestReconcileRejectsUnknownTargetProduct(t *testing.T) {
	svc, ctx := newTestService(t)
	product := createTestProduct(t, svc, ctx, "SKU-A", 1000)
	entry := stockProduct(t, svc, ctx, product.ID, 20, 500)

	_, err := svc.ReconcileStockEntry(ctx, entry.ID, domain.StockReconcileRequest{
		ProductID:          "prd-missing",
		PurchasedQty:       20,
		PurchasePriceCents: 500,
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found for unknown target product, got %v", err)
	}

	entries, err := svc.ListStockEntries(ctx, product.ID)
	if err != nil {
		t.Fatalf("list entries failed: %v", err)
	}
	if len(entries) != 1 || entries[0].ProductID != product.ID {
		t.Fatalf("entry must stay on the original product after rejection: %+v", entries)
	}
}
