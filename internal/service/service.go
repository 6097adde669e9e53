package service

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"bukukas/backend/internal/domain"
	"bukukas/backend/internal/report"
	"bukukas/backend/internal/store"
	"bukukas/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo    store.Repository
	reports *report.Engine
	now     func() time.Time
}

func New(repo store.Repository, reports *report.Engine) *Service {
	if reports == nil {
		reports = report.NewEngine(nil, 0)
	}
	return &Service{
		repo:    repo,
		reports: reports,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *Service) CreateCategory(ctx context.Context, req domain.CategoryCreateRequest) (domain.Category, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Category{}, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Category{}, store.ErrValidation
	}

	created, err := s.repo.CreateCategory(ctx, domain.Category{
		ID:        xid.New("cat"),
		Name:      name,
		CreatedAt: s.now(),
	})
	if err != nil {
		return domain.Category{}, err
	}

	s.logAction(ctx, "category_create", created.ID, created.Name)
	return *created, nil
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	product, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Product{}, err
	}

	req.SKU = strings.ToUpper(strings.TrimSpace(req.SKU))
	req.Name = strings.TrimSpace(req.Name)
	if req.SKU == "" || req.Name == "" || req.SellPriceCents < 0 {
		return domain.Product{}, store.ErrValidation
	}

	created, err := s.repo.CreateProduct(ctx, domain.Product{
		ID:             xid.New("prd"),
		SKU:            req.SKU,
		Name:           req.Name,
		CategoryID:     strings.TrimSpace(req.CategoryID),
		SellPriceCents: req.SellPriceCents,
		Active:         true,
		CreatedAt:      s.now(),
	})
	if err != nil {
		return domain.Product{}, err
	}

	s.logAction(ctx, "product_create", created.ID, fmt.Sprintf("sku=%s,price=%d", created.SKU, created.SellPriceCents))
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (domain.Product, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Product{}, err
	}

	existing, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, store.ErrValidation
		}
		updated.Name = name
	}
	if req.CategoryID != nil {
		updated.CategoryID = strings.TrimSpace(*req.CategoryID)
	}
	if req.SellPriceCents != nil {
		if *req.SellPriceCents < 0 {
			return domain.Product{}, store.ErrValidation
		}
		updated.SellPriceCents = *req.SellPriceCents
	}
	if req.Active != nil {
		updated.Active = *req.Active
	}

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}

	s.logAction(ctx, "product_update", saved.ID, fmt.Sprintf("active=%t,price=%d", saved.Active, saved.SellPriceCents))
	return *saved, nil
}

func (s *Service) ListStockEntries(ctx context.Context, productID string) ([]domain.StockLedgerEntry, error) {
	return s.repo.ListStockEntries(ctx, productID)
}

func (s *Service) CreateStockEntry(ctx context.Context, req domain.StockEntryCreateRequest) (domain.StockLedgerEntry, error) {
	if req.ProductID == "" || req.Qty < 1 || req.PurchasePriceCents < 0 {
		return domain.StockLedgerEntry{}, store.ErrValidation
	}

	created, err := s.repo.CreateStockEntry(ctx, domain.StockLedgerEntry{
		ID:                 xid.New("inv"),
		ProductID:          req.ProductID,
		Description:        strings.TrimSpace(req.Description),
		PurchasedQty:       req.Qty,
		AvailableQty:       req.Qty,
		PurchasePriceCents: req.PurchasePriceCents,
		Source:             domain.StockSourceIntake,
		CreatedAt:          s.now(),
	})
	if err != nil {
		return domain.StockLedgerEntry{}, err
	}

	s.logAction(ctx, "stock_intake", created.ID, fmt.Sprintf("product=%s,qty=%d,price=%d", created.ProductID, created.PurchasedQty, created.PurchasePriceCents))
	return *created, nil
}

// ReconcileStockEntry replaces an entry's purchase record while preserving
// what sales have already consumed from it. With purchased 50 and available
// 42, eight units are consumed; correcting purchased to 60 leaves 52
// available. A correction that would leave negative availability is rejected
// before anything is written.
func (s *Service) ReconcileStockEntry(ctx context.Context, entryID string, req domain.StockReconcileRequest) (domain.StockLedgerEntry, error) {
	if req.PurchasedQty < 0 || req.PurchasePriceCents < 0 {
		return domain.StockLedgerEntry{}, store.ErrValidation
	}

	entry, err := s.repo.GetStockEntry(ctx, entryID)
	if err != nil {
		return domain.StockLedgerEntry{}, err
	}
	// A purchase booked against the wrong product can be moved to the right
	// one; the target must exist.
	if req.ProductID != "" && req.ProductID != entry.ProductID {
		if _, err := s.repo.GetProductByID(ctx, req.ProductID); err != nil {
			return domain.StockLedgerEntry{}, err
		}
		entry.ProductID = req.ProductID
	}

	consumed := entry.PurchasedQty - entry.AvailableQty
	available := req.PurchasedQty - consumed
	if available < 0 {
		return domain.StockLedgerEntry{}, store.ErrValidation
	}

	entry.PurchasedQty = req.PurchasedQty
	entry.AvailableQty = available
	entry.PurchasePriceCents = req.PurchasePriceCents

	updated, err := s.repo.UpdateStockEntry(ctx, *entry)
	if err != nil {
		return domain.StockLedgerEntry{}, err
	}

	s.logAction(ctx, "stock_reconcile", updated.ID, fmt.Sprintf("product=%s,purchased=%d,available=%d,price=%d", updated.ProductID, updated.PurchasedQty, updated.AvailableQty, updated.PurchasePriceCents))
	return *updated, nil
}

func (s *Service) DeleteStockEntry(ctx context.Context, entryID string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	if err := s.repo.DeleteStockEntry(ctx, entryID); err != nil {
		return err
	}
	s.logAction(ctx, "stock_delete", entryID, "")
	return nil
}

// ProductCost reports the current weighted-average unit cost for a product.
func (s *Service) ProductCost(ctx context.Context, productID string) (domain.ProductCost, error) {
	if _, err := s.repo.GetProductByID(ctx, productID); err != nil {
		return domain.ProductCost{}, err
	}

	entries, err := s.repo.ListStockEntries(ctx, productID)
	if err != nil {
		return domain.ProductCost{}, err
	}

	used := 0
	totalQty := 0
	for _, entry := range entries {
		if entry.PurchasedQty > 0 {
			used++
			totalQty += entry.PurchasedQty
		}
	}

	return domain.ProductCost{
		ProductID:   productID,
		UnitCost:    report.WeightedAverageCost(productID, entries),
		EntriesUsed: used,
		TotalQty:    totalQty,
		ComputedAt:  s.now().Format(time.RFC3339),
	}, nil
}

func (s *Service) CreateOrder(ctx context.Context, req domain.OrderCreateRequest) (domain.OrderAccount, error) {
	if len(req.Lines) == 0 {
		return domain.OrderAccount{}, store.ErrValidation
	}

	status := req.Status
	if status == "" {
		status = domain.OrderStatusPending
	}
	if status != domain.OrderStatusPending && status != domain.OrderStatusCompleted {
		return domain.OrderAccount{}, store.ErrValidation
	}
	if req.AmountReceivedCents < 0 {
		return domain.OrderAccount{}, store.ErrValidation
	}

	productIDs := make([]string, 0, len(req.Lines))
	seen := make(map[string]bool, len(req.Lines))
	for _, line := range req.Lines {
		if line.ProductID == "" || line.Qty < 1 || line.SellPriceCents < 0 {
			return domain.OrderAccount{}, store.ErrValidation
		}
		// One line per product; lines are keyed by (order, product).
		if seen[line.ProductID] {
			return domain.OrderAccount{}, store.ErrValidation
		}
		seen[line.ProductID] = true
		productIDs = append(productIDs, line.ProductID)
	}

	products, err := s.repo.GetProductsByIDs(ctx, productIDs)
	if err != nil {
		return domain.OrderAccount{}, err
	}

	var revenue int64
	lines := make([]domain.OrderLine, 0, len(req.Lines))
	for _, line := range req.Lines {
		product, ok := products[line.ProductID]
		if !ok || !product.Active {
			return domain.OrderAccount{}, store.ErrNotFound
		}
		price := line.SellPriceCents
		if price == 0 {
			price = product.SellPriceCents
		}
		revenue += int64(line.Qty) * price
		lines = append(lines, domain.OrderLine{
			ProductID:      line.ProductID,
			Qty:            line.Qty,
			SellPriceCents: price,
		})
	}

	if req.DiscountCents < 0 || req.DiscountCents > revenue {
		return domain.OrderAccount{}, store.ErrValidation
	}

	created, err := s.repo.CreateOrder(ctx, domain.OrderAccount{
		Description:         strings.TrimSpace(req.Description),
		DiscountCents:       req.DiscountCents,
		AmountReceivedCents: req.AmountReceivedCents,
		Status:              status,
		CreatedAt:           s.now(),
		Lines:               lines,
	})
	if err != nil {
		return domain.OrderAccount{}, err
	}

	s.logAction(ctx, "order_create", fmt.Sprintf("%d", created.ID), fmt.Sprintf("lines=%d,revenue=%d,discount=%d", len(created.Lines), revenue, created.DiscountCents))
	return *created, nil
}

func (s *Service) GetOrder(ctx context.Context, id int64) (domain.OrderAccount, error) {
	order, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		return domain.OrderAccount{}, err
	}
	return *order, nil
}

func (s *Service) ListOrders(ctx context.Context, windowName string, fromStr string, toStr string) ([]domain.OrderAccount, error) {
	if windowName == "" && fromStr == "" && toStr == "" {
		return s.repo.ListOrders(ctx, time.Time{}, time.Time{})
	}
	win, err := report.ResolveWindow(windowName, fromStr, toStr, s.now())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrValidation, err)
	}
	return s.repo.ListOrders(ctx, win.From, win.To)
}

// UpdateOrder mutates an order's description and status. The only legal
// status transition is pending to completed.
func (s *Service) UpdateOrder(ctx context.Context, id int64, req domain.OrderUpdateRequest) (domain.OrderAccount, error) {
	existing, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		return domain.OrderAccount{}, err
	}

	updated := *existing
	if req.Description != nil {
		updated.Description = strings.TrimSpace(*req.Description)
	}
	if req.Status != nil && *req.Status != existing.Status {
		if existing.Status != domain.OrderStatusPending || *req.Status != domain.OrderStatusCompleted {
			return domain.OrderAccount{}, store.ErrValidation
		}
		updated.Status = domain.OrderStatusCompleted
	}

	saved, err := s.repo.UpdateOrder(ctx, updated)
	if err != nil {
		return domain.OrderAccount{}, err
	}

	s.logAction(ctx, "order_update", fmt.Sprintf("%d", saved.ID), fmt.Sprintf("status=%s", saved.Status))
	return *saved, nil
}

// DeleteOrder removes the order permanently. Consumed stock stays consumed;
// a deletion is an erasure of the sale record, not a reversal of it.
func (s *Service) DeleteOrder(ctx context.Context, id int64) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	if err := s.repo.DeleteOrder(ctx, id); err != nil {
		return err
	}
	s.logAction(ctx, "order_delete", fmt.Sprintf("%d", id), "")
	return nil
}

func (s *Service) OrderValuation(ctx context.Context, id int64) (domain.OrderValuation, error) {
	order, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		return domain.OrderValuation{}, err
	}

	wacByProduct, err := s.costBasis(ctx)
	if err != nil {
		return domain.OrderValuation{}, err
	}
	return report.Valuate(*order, wacByProduct), nil
}

func (s *Service) CreateReturn(ctx context.Context, req domain.ReturnCreateRequest) (domain.ReturnResponse, error) {
	if len(req.Lines) == 0 {
		return domain.ReturnResponse{}, store.ErrValidation
	}

	order, err := s.repo.GetOrderByID(ctx, req.OrderID)
	if err != nil {
		return domain.ReturnResponse{}, err
	}

	soldQty := map[string]int{}
	soldPrice := map[string]int64{}
	for _, line := range order.Lines {
		soldQty[line.ProductID] += line.Qty
		soldPrice[line.ProductID] = line.SellPriceCents
	}

	alreadyReturned, err := s.repo.GetReturnedQtyByOrder(ctx, order.ID)
	if err != nil {
		return domain.ReturnResponse{}, err
	}

	lines := make([]domain.ReturnLine, 0, len(req.Lines))
	requested := map[string]int{}
	for _, line := range req.Lines {
		if line.ProductID == "" || line.Qty < 1 {
			return domain.ReturnResponse{}, store.ErrValidation
		}
		sold, ok := soldQty[line.ProductID]
		if !ok {
			return domain.ReturnResponse{}, store.ErrValidation
		}
		requested[line.ProductID] += line.Qty
		if alreadyReturned[line.ProductID]+requested[line.ProductID] > sold {
			return domain.ReturnResponse{}, store.ErrValidation
		}
		price := line.SellPriceCents
		if price == 0 {
			price = soldPrice[line.ProductID]
		}
		lines = append(lines, domain.ReturnLine{
			ProductID:      line.ProductID,
			Qty:            line.Qty,
			SellPriceCents: price,
		})
	}

	wacByProduct, err := s.costBasis(ctx)
	if err != nil {
		return domain.ReturnResponse{}, err
	}

	created, err := s.repo.CreateReturn(ctx, domain.ReturnAccount{
		ID:          xid.New("ret"),
		OrderID:     order.ID,
		Description: strings.TrimSpace(req.Description),
		CreatedAt:   s.now(),
		Lines:       lines,
	})
	if err != nil {
		return domain.ReturnResponse{}, err
	}

	// Returned goods go back on the shelf as fresh ledger entries priced at
	// the product's current weighted-average cost, so the cost basis is not
	// skewed by the refund price.
	for _, line := range created.Lines {
		restockPrice := int64(math.Round(wacByProduct[line.ProductID]))
		_, err := s.repo.CreateStockEntry(ctx, domain.StockLedgerEntry{
			ID:                 xid.New("inv"),
			ProductID:          line.ProductID,
			Description:        fmt.Sprintf("return %s", created.ID),
			PurchasedQty:       line.Qty,
			AvailableQty:       line.Qty,
			PurchasePriceCents: restockPrice,
			Source:             domain.StockSourceReturn,
			SourceID:           created.ID,
			CreatedAt:          s.now(),
		})
		if err != nil {
			log.Printf("[service] WARN: failed to restock return %s product=%s: %v", created.ID, line.ProductID, err)
		}
	}

	amount := report.ReturnAmountCents(*created)
	s.logAction(ctx, "return_create", created.ID, fmt.Sprintf("order=%d,amount=%d", created.OrderID, amount))
	return domain.ReturnResponse{Return: *created, AmountCents: amount}, nil
}

func (s *Service) GetReturn(ctx context.Context, id string) (domain.ReturnResponse, error) {
	ret, err := s.repo.GetReturnByID(ctx, id)
	if err != nil {
		return domain.ReturnResponse{}, err
	}
	return domain.ReturnResponse{Return: *ret, AmountCents: report.ReturnAmountCents(*ret)}, nil
}

func (s *Service) ListReturns(ctx context.Context, windowName string, fromStr string, toStr string) ([]domain.ReturnAccount, error) {
	if windowName == "" && fromStr == "" && toStr == "" {
		return s.repo.ListReturns(ctx, time.Time{}, time.Time{})
	}
	win, err := report.ResolveWindow(windowName, fromStr, toStr, s.now())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrValidation, err)
	}
	return s.repo.ListReturns(ctx, win.From, win.To)
}

func (s *Service) CreateExpense(ctx context.Context, req domain.ExpenseCreateRequest) (domain.Expense, error) {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" || req.AmountCents < 1 {
		return domain.Expense{}, store.ErrValidation
	}

	created, err := s.repo.CreateExpense(ctx, domain.Expense{
		ID:          xid.New("exp"),
		Title:       req.Title,
		Description: strings.TrimSpace(req.Description),
		AmountCents: req.AmountCents,
		CreatedAt:   s.now(),
	})
	if err != nil {
		return domain.Expense{}, err
	}

	s.logAction(ctx, "expense_create", created.ID, fmt.Sprintf("amount=%d", created.AmountCents))
	return *created, nil
}

func (s *Service) ListExpenses(ctx context.Context, windowName string, fromStr string, toStr string) ([]domain.Expense, error) {
	if windowName == "" && fromStr == "" && toStr == "" {
		return s.repo.ListExpenses(ctx, time.Time{}, time.Time{})
	}
	win, err := report.ResolveWindow(windowName, fromStr, toStr, s.now())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrValidation, err)
	}
	return s.repo.ListExpenses(ctx, win.From, win.To)
}

func (s *Service) DeleteExpense(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	if err := s.repo.DeleteExpense(ctx, id); err != nil {
		return err
	}
	s.logAction(ctx, "expense_delete", id, "")
	return nil
}

func (s *Service) Summary(ctx context.Context, windowName string, fromStr string, toStr string) (domain.PeriodSummary, error) {
	win, err := report.ResolveWindow(windowName, fromStr, toStr, s.now())
	if err != nil {
		return domain.PeriodSummary{}, fmt.Errorf("%w: %v", store.ErrValidation, err)
	}

	return s.reports.Summary(ctx, win, func() (domain.PeriodSummary, error) {
		orders, returns, expenses, err := s.windowRecords(ctx, win)
		if err != nil {
			return domain.PeriodSummary{}, err
		}
		wacByProduct, err := s.costBasis(ctx)
		if err != nil {
			return domain.PeriodSummary{}, err
		}
		return report.Summarize(win, orders, returns, expenses, wacByProduct), nil
	})
}

func (s *Service) Trend(ctx context.Context, bucket string, windowName string, fromStr string, toStr string) (domain.TrendResponse, error) {
	win, err := report.ResolveWindow(windowName, fromStr, toStr, s.now())
	if err != nil {
		return domain.TrendResponse{}, fmt.Errorf("%w: %v", store.ErrValidation, err)
	}

	orders, returns, expenses, err := s.windowRecords(ctx, win)
	if err != nil {
		return domain.TrendResponse{}, err
	}

	trend, err := report.Trend(bucket, win, orders, returns, expenses)
	if err != nil {
		return domain.TrendResponse{}, fmt.Errorf("%w: %v", store.ErrValidation, err)
	}
	return trend, nil
}

func (s *Service) CategoryReport(ctx context.Context, windowName string, fromStr string, toStr string) (domain.CategoryReportResponse, error) {
	win, err := report.ResolveWindow(windowName, fromStr, toStr, s.now())
	if err != nil {
		return domain.CategoryReportResponse{}, fmt.Errorf("%w: %v", store.ErrValidation, err)
	}

	orders, err := s.repo.ListOrders(ctx, win.From, win.To)
	if err != nil {
		return domain.CategoryReportResponse{}, err
	}

	productIDs := map[string]bool{}
	ids := make([]string, 0, 32)
	for _, order := range orders {
		for _, line := range order.Lines {
			if !productIDs[line.ProductID] {
				productIDs[line.ProductID] = true
				ids = append(ids, line.ProductID)
			}
		}
	}

	products, err := s.repo.GetProductsByIDs(ctx, ids)
	if err != nil {
		return domain.CategoryReportResponse{}, err
	}

	return domain.CategoryReportResponse{
		Window:     win.Name,
		Categories: report.CategoryRevenue(orders, products),
	}, nil
}

func (s *Service) windowRecords(ctx context.Context, win report.Window) ([]domain.OrderAccount, []domain.ReturnAccount, []domain.Expense, error) {
	orders, err := s.repo.ListOrders(ctx, win.From, win.To)
	if err != nil {
		return nil, nil, nil, err
	}
	returns, err := s.repo.ListReturns(ctx, win.From, win.To)
	if err != nil {
		return nil, nil, nil, err
	}
	expenses, err := s.repo.ListExpenses(ctx, win.From, win.To)
	if err != nil {
		return nil, nil, nil, err
	}
	return orders, returns, expenses, nil
}

func (s *Service) costBasis(ctx context.Context) (map[string]float64, error) {
	entries, err := s.repo.ListStockEntries(ctx, "")
	if err != nil {
		return nil, err
	}
	return report.CostBasisByProduct(entries), nil
}

func requireAdmin(ctx context.Context) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return fmt.Errorf("admin role required")
	}
	return nil
}

func (s *Service) logAction(ctx context.Context, action string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}
	log.Printf("[service] action=%s entity=%s actor=%s detail=%s", action, entityID, actor.Username, detail)
}
