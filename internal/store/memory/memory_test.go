package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"bukukas/backend/internal/domain"
	"bukukas/backend/internal/store"
)

func seedProductWithStock(t *testing.T, s *Store, qty int, price int64) (domain.Product, domain.StockLedgerEntry) {
	t.Helper()
	ctx := context.Background()
	product, err := s.CreateProduct(ctx, domain.Product{
		ID:             "prd-test",
		SKU:            "SKU-TEST",
		Name:           "Test Product",
		SellPriceCents: 1000,
		Active:         true,
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	entry, err := s.CreateStockEntry(ctx, domain.StockLedgerEntry{
		ID:                 "inv-test",
		ProductID:          product.ID,
		PurchasedQty:       qty,
		AvailableQty:       qty,
		PurchasePriceCents: price,
		Source:             domain.StockSourceIntake,
		CreatedAt:          time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create stock entry failed: %v", err)
	}
	return *product, *entry
}

func TestCreateOrderAtomicOnInsufficientStock(t *testing.T) {
	s := New()
	ctx := context.Background()
	product, entry := seedProductWithStock(t, s, 5, 100)

	_, err := s.CreateOrder(ctx, domain.OrderAccount{
		Status:    domain.OrderStatusPending,
		CreatedAt: time.Now().UTC(),
		Lines: []domain.OrderLine{
			{ProductID: product.ID, Qty: 6, SellPriceCents: 1000},
		},
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock for 6 of 5, got %v", err)
	}

	// The failed order must not have consumed anything.
	got, err := s.GetStockEntry(ctx, entry.ID)
	if err != nil {
		t.Fatalf("get entry failed: %v", err)
	}
	if got.AvailableQty != 5 {
		t.Fatalf("expected untouched availability 5, got %d", got.AvailableQty)
	}
}

func TestCreateOrderRejectsDuplicateProductLines(t *testing.T) {
	s := New()
	ctx := context.Background()
	product, entry := seedProductWithStock(t, s, 5, 100)

	// Order lines are keyed by (order, product); two lines for one product
	// would collide.
	_, err := s.CreateOrder(ctx, domain.OrderAccount{
		Status:    domain.OrderStatusPending,
		CreatedAt: time.Now().UTC(),
		Lines: []domain.OrderLine{
			{ProductID: product.ID, Qty: 2, SellPriceCents: 1000},
			{ProductID: product.ID, Qty: 1, SellPriceCents: 1000},
		},
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error for duplicate product lines, got %v", err)
	}

	got, err := s.GetStockEntry(ctx, entry.ID)
	if err != nil {
		t.Fatalf("get entry failed: %v", err)
	}
	if got.AvailableQty != 5 {
		t.Fatalf("expected untouched availability 5, got %d", got.AvailableQty)
	}
}

func TestCreateOrderAssignsSequentialIDs(t *testing.T) {
	s := New()
	ctx := context.Background()
	product, _ := seedProductWithStock(t, s, 10, 100)

	line := []domain.OrderLine{{ProductID: product.ID, Qty: 1, SellPriceCents: 1000}}
	first, err := s.CreateOrder(ctx, domain.OrderAccount{Status: domain.OrderStatusPending, Lines: line})
	if err != nil {
		t.Fatalf("first order failed: %v", err)
	}
	second, err := s.CreateOrder(ctx, domain.OrderAccount{Status: domain.OrderStatusPending, Lines: []domain.OrderLine{{ProductID: product.ID, Qty: 1, SellPriceCents: 1000}}})
	if err != nil {
		t.Fatalf("second order failed: %v", err)
	}
	if second.ID != first.ID+1 {
		t.Fatalf("expected sequential ids, got %d then %d", first.ID, second.ID)
	}
	if second.Lines[0].OrderID != second.ID {
		t.Fatalf("expected line stamped with order id %d, got %d", second.ID, second.Lines[0].OrderID)
	}
}

func TestDeleteStockEntryReferencedByOrder(t *testing.T) {
	s := New()
	ctx := context.Background()
	product, entry := seedProductWithStock(t, s, 5, 100)

	order, err := s.CreateOrder(ctx, domain.OrderAccount{
		Status: domain.OrderStatusPending,
		Lines:  []domain.OrderLine{{ProductID: product.ID, Qty: 2, SellPriceCents: 1000}},
	})
	if err != nil {
		t.Fatalf("order failed: %v", err)
	}
	if order.Lines[0].InventoryID != entry.ID {
		t.Fatalf("expected line to reference entry %s", entry.ID)
	}

	if err := s.DeleteStockEntry(ctx, entry.ID); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error deleting referenced entry, got %v", err)
	}
}

func TestDeleteStockEntryUnreferenced(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, entry := seedProductWithStock(t, s, 5, 100)

	if err := s.DeleteStockEntry(ctx, entry.ID); err != nil {
		t.Fatalf("expected delete to succeed, got %v", err)
	}
	if _, err := s.GetStockEntry(ctx, entry.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected entry gone, got %v", err)
	}
}

func TestGetReturnedQtyByOrderSumsAcrossReturns(t *testing.T) {
	s := New()
	ctx := context.Background()
	product, _ := seedProductWithStock(t, s, 10, 100)

	order, err := s.CreateOrder(ctx, domain.OrderAccount{
		Status: domain.OrderStatusPending,
		Lines:  []domain.OrderLine{{ProductID: product.ID, Qty: 5, SellPriceCents: 1000}},
	})
	if err != nil {
		t.Fatalf("order failed: %v", err)
	}

	for i, qty := range []int{2, 1} {
		_, err := s.CreateReturn(ctx, domain.ReturnAccount{
			ID:        "ret-" + string(rune('a'+i)),
			OrderID:   order.ID,
			CreatedAt: time.Now().UTC(),
			Lines:     []domain.ReturnLine{{ProductID: product.ID, Qty: qty, SellPriceCents: 1000}},
		})
		if err != nil {
			t.Fatalf("return failed: %v", err)
		}
	}

	returned, err := s.GetReturnedQtyByOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("returned qty failed: %v", err)
	}
	if returned[product.ID] != 3 {
		t.Fatalf("expected 3 returned, got %d", returned[product.ID])
	}
}

func TestListOrdersWindowFilter(t *testing.T) {
	s := New()
	ctx := context.Background()
	product, _ := seedProductWithStock(t, s, 10, 100)

	jan := time.Date(2026, time.January, 5, 12, 0, 0, 0, time.UTC)
	feb := time.Date(2026, time.February, 5, 12, 0, 0, 0, time.UTC)
	for _, at := range []time.Time{jan, feb} {
		_, err := s.CreateOrder(ctx, domain.OrderAccount{
			Status:    domain.OrderStatusPending,
			CreatedAt: at,
			Lines:     []domain.OrderLine{{ProductID: product.ID, Qty: 1, SellPriceCents: 1000}},
		})
		if err != nil {
			t.Fatalf("order failed: %v", err)
		}
	}

	from := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)
	orders, err := s.ListOrders(ctx, from, to)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("expected 1 order in january window, got %d", len(orders))
	}
	if !orders[0].CreatedAt.Equal(jan) {
		t.Fatalf("wrong order in window: %v", orders[0].CreatedAt)
	}
}

func TestClonedOrdersAreIsolated(t *testing.T) {
	s := New()
	ctx := context.Background()
	product, _ := seedProductWithStock(t, s, 10, 100)

	order, err := s.CreateOrder(ctx, domain.OrderAccount{
		Status: domain.OrderStatusPending,
		Lines:  []domain.OrderLine{{ProductID: product.ID, Qty: 1, SellPriceCents: 1000}},
	})
	if err != nil {
		t.Fatalf("order failed: %v", err)
	}

	order.Lines[0].Qty = 999
	order.Description = "mutated"

	stored, err := s.GetOrderByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("get order failed: %v", err)
	}
	if stored.Lines[0].Qty != 1 || stored.Description != "" {
		t.Fatalf("store leaked mutable state: %+v", stored)
	}
}

func TestNewSeededProvidesWorkingDataset(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	products, err := s.ListProducts(ctx)
	if err != nil {
		t.Fatalf("list products failed: %v", err)
	}
	if len(products) == 0 {
		t.Fatalf("expected seeded products")
	}

	entries, err := s.ListStockEntries(ctx, products[0].ID)
	if err != nil {
		t.Fatalf("list entries failed: %v", err)
	}
	if len(entries) == 0 || entries[0].AvailableQty == 0 {
		t.Fatalf("expected seeded stock for %s", products[0].ID)
	}

	users, err := s.ListUsers(ctx)
	if err != nil || len(users) == 0 {
		t.Fatalf("expected seeded users, got %d (%v)", len(users), err)
	}
}
