package memory

import (
	"context"
	"log"
	"os"
	"slices"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"bukukas/backend/internal/domain"
	"bukukas/backend/internal/store"
	"bukukas/backend/internal/xid"
)

type Store struct {
	mu              sync.RWMutex
	categories      map[string]domain.Category
	products        map[string]domain.Product
	stockEntries    map[string]domain.StockLedgerEntry
	ordersByID      map[int64]*domain.OrderAccount
	nextOrderID     int64
	returnsByID     map[string]domain.ReturnAccount
	expensesByID    map[string]domain.Expense
	usersByUsername map[string]domain.UserAccount
}

var _ store.Repository = (*Store)(nil)

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials are read from SEED_ADMIN_PASSWORD and SEED_STAFF_PASSWORD
// environment variables. If unset, hardcoded dev defaults are used with a
// warning printed to stdout. These credentials are never used in production
// (the backend uses PostgreSQL when DATABASE_URL is set).
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	staffPwd := envOr("SEED_STAFF_PASSWORD", "staff123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_STAFF_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_STAFF_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, domain.RoleAdmin},
		{"staff", staffPwd, domain.RoleStaff},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// New returns an empty store. Tests build their own fixtures on top of it.
func New() *Store {
	return &Store{
		categories:      map[string]domain.Category{},
		products:        map[string]domain.Product{},
		stockEntries:    map[string]domain.StockLedgerEntry{},
		ordersByID:      map[int64]*domain.OrderAccount{},
		nextOrderID:     1,
		returnsByID:     map[string]domain.ReturnAccount{},
		expensesByID:    map[string]domain.Expense{},
		usersByUsername: map[string]domain.UserAccount{},
	}
}

// NewSeeded returns a store pre-loaded with demo catalog, stock and user
// data for running without a database.
func NewSeeded() *Store {
	s := New()
	s.usersByUsername = seedUsers()

	now := time.Now().UTC()
	categories := []domain.Category{
		{ID: xid.New("cat"), Name: "Beverage", CreatedAt: now},
		{ID: xid.New("cat"), Name: "Grocery", CreatedAt: now},
		{ID: xid.New("cat"), Name: "Snack", CreatedAt: now},
	}
	for _, c := range categories {
		s.categories[c.ID] = c
	}

	products := []domain.Product{
		{ID: xid.New("prd"), SKU: "SKU-KOPI-01", Name: "Kopi Sachet", CategoryID: categories[0].ID, CategoryName: categories[0].Name, SellPriceCents: 2600, Active: true, CreatedAt: now},
		{ID: xid.New("prd"), SKU: "SKU-TEH-01", Name: "Teh Celup", CategoryID: categories[0].ID, CategoryName: categories[0].Name, SellPriceCents: 9800, Active: true, CreatedAt: now},
		{ID: xid.New("prd"), SKU: "SKU-GULA-01", Name: "Gula 1kg", CategoryID: categories[1].ID, CategoryName: categories[1].Name, SellPriceCents: 17400, Active: true, CreatedAt: now},
		{ID: xid.New("prd"), SKU: "SKU-MIE-01", Name: "Mie Goreng Instan", CategoryID: categories[1].ID, CategoryName: categories[1].Name, SellPriceCents: 3500, Active: true, CreatedAt: now},
		{ID: xid.New("prd"), SKU: "SKU-KERIPIK-01", Name: "Keripik Singkong", CategoryID: categories[2].ID, CategoryName: categories[2].Name, SellPriceCents: 12800, Active: true, CreatedAt: now},
	}
	for i, p := range products {
		s.products[p.ID] = p
		entry := domain.StockLedgerEntry{
			ID:                 xid.New("inv"),
			ProductID:          p.ID,
			Description:        "opening stock",
			PurchasedQty:       40,
			AvailableQty:       40,
			PurchasePriceCents: p.SellPriceCents * 7 / 10,
			Source:             domain.StockSourceIntake,
			CreatedAt:          now.Add(time.Duration(i) * time.Second),
		}
		s.stockEntries[entry.ID] = entry
	}

	s.nextOrderID = 1000
	return s
}

func (s *Store) ListCategories(_ context.Context) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	categories := make([]domain.Category, 0, len(s.categories))
	for _, c := range s.categories {
		categories = append(categories, c)
	}
	slices.SortFunc(categories, func(a, b domain.Category) int {
		return cmpString(a.Name, b.Name)
	})
	return categories, nil
}

func (s *Store) CreateCategory(_ context.Context, category domain.Category) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.categories {
		if existing.Name == category.Name {
			return nil, store.ErrValidation
		}
	}
	s.categories[category.ID] = category
	created := category
	return &created, nil
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, p)
	}
	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.CategoryName == b.CategoryName {
			return cmpString(a.Name, b.Name)
		}
		return cmpString(a.CategoryName, b.CategoryName)
	})
	return products, nil
}

func (s *Store) GetProductByID(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	result := p
	return &result, nil
}

func (s *Store) GetProductsByIDs(_ context.Context, ids []string) (map[string]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			result[id] = p
		}
	}
	return result, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.products {
		if existing.SKU == product.SKU {
			return nil, store.ErrValidation
		}
	}
	if product.CategoryID != "" {
		category, ok := s.categories[product.CategoryID]
		if !ok {
			return nil, store.ErrNotFound
		}
		product.CategoryName = category.Name
	}
	s.products[product.ID] = product
	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[product.ID]; !ok {
		return nil, store.ErrNotFound
	}
	if product.CategoryID != "" {
		category, ok := s.categories[product.CategoryID]
		if !ok {
			return nil, store.ErrNotFound
		}
		product.CategoryName = category.Name
	} else {
		product.CategoryName = ""
	}
	s.products[product.ID] = product
	updated := product
	return &updated, nil
}

func (s *Store) ListStockEntries(_ context.Context, productID string) ([]domain.StockLedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]domain.StockLedgerEntry, 0, len(s.stockEntries))
	for _, entry := range s.stockEntries {
		if productID != "" && entry.ProductID != productID {
			continue
		}
		entries = append(entries, entry)
	}
	slices.SortFunc(entries, compareEntryOldestFirst)
	return entries, nil
}

func (s *Store) GetStockEntry(_ context.Context, id string) (*domain.StockLedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.stockEntries[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	result := entry
	return &result, nil
}

func (s *Store) CreateStockEntry(_ context.Context, entry domain.StockLedgerEntry) (*domain.StockLedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[entry.ProductID]; !ok {
		return nil, store.ErrNotFound
	}
	s.stockEntries[entry.ID] = entry
	created := entry
	return &created, nil
}

func (s *Store) UpdateStockEntry(_ context.Context, entry domain.StockLedgerEntry) (*domain.StockLedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.stockEntries[entry.ID]; !ok {
		return nil, store.ErrNotFound
	}
	s.stockEntries[entry.ID] = entry
	updated := entry
	return &updated, nil
}

func (s *Store) DeleteStockEntry(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.stockEntries[id]
	if !ok {
		return store.ErrNotFound
	}
	if entry.AvailableQty != entry.PurchasedQty {
		return store.ErrValidation
	}
	for _, order := range s.ordersByID {
		for _, line := range order.Lines {
			if line.InventoryID == id {
				return store.ErrValidation
			}
		}
	}
	delete(s.stockEntries, id)
	return nil
}

// CreateOrder persists the order and consumes available stock oldest entry
// first. The whole operation is atomic under the store lock: availability is
// verified for every line before any entry is decremented.
func (s *Store) CreateOrder(_ context.Context, order domain.OrderAccount) (*domain.OrderAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(order.Lines) == 0 {
		return nil, store.ErrValidation
	}

	entriesByProduct := map[string][]string{}
	for id := range s.stockEntries {
		entry := s.stockEntries[id]
		entriesByProduct[entry.ProductID] = append(entriesByProduct[entry.ProductID], id)
	}
	for productID := range entriesByProduct {
		slices.SortFunc(entriesByProduct[productID], func(a, b string) int {
			return compareEntryOldestFirst(s.stockEntries[a], s.stockEntries[b])
		})
	}

	needed := map[string]int{}
	for _, line := range order.Lines {
		if line.Qty < 1 {
			return nil, store.ErrValidation
		}
		product, ok := s.products[line.ProductID]
		if !ok || !product.Active {
			return nil, store.ErrNotFound
		}
		// Lines are keyed by (order, product); a second line for the same
		// product would collide.
		if _, dup := needed[line.ProductID]; dup {
			return nil, store.ErrValidation
		}
		needed[line.ProductID] = line.Qty
	}
	for productID, qty := range needed {
		available := 0
		for _, entryID := range entriesByProduct[productID] {
			available += s.stockEntries[entryID].AvailableQty
		}
		if available < qty {
			return nil, store.ErrInsufficientStock
		}
	}

	order.ID = s.nextOrderID
	s.nextOrderID++
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}

	for i := range order.Lines {
		order.Lines[i].OrderID = order.ID
		remaining := order.Lines[i].Qty
		for _, entryID := range entriesByProduct[order.Lines[i].ProductID] {
			if remaining == 0 {
				break
			}
			entry := s.stockEntries[entryID]
			if entry.AvailableQty < 1 {
				continue
			}
			used := remaining
			if used > entry.AvailableQty {
				used = entry.AvailableQty
			}
			entry.AvailableQty -= used
			remaining -= used
			s.stockEntries[entryID] = entry
			if order.Lines[i].InventoryID == "" {
				order.Lines[i].InventoryID = entryID
			}
		}
	}

	s.ordersByID[order.ID] = cloneOrder(&order)
	return cloneOrder(s.ordersByID[order.ID]), nil
}

func (s *Store) GetOrderByID(_ context.Context, id int64) (*domain.OrderAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.ordersByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneOrder(order), nil
}

func (s *Store) ListOrders(_ context.Context, from time.Time, to time.Time) ([]domain.OrderAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders := make([]domain.OrderAccount, 0, len(s.ordersByID))
	for _, order := range s.ordersByID {
		if !inWindow(order.CreatedAt, from, to) {
			continue
		}
		orders = append(orders, *cloneOrder(order))
	}
	slices.SortFunc(orders, func(a, b domain.OrderAccount) int {
		if a.ID == b.ID {
			return 0
		}
		if a.ID > b.ID {
			return -1
		}
		return 1
	})
	return orders, nil
}

func (s *Store) UpdateOrder(_ context.Context, order domain.OrderAccount) (*domain.OrderAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ordersByID[order.ID]; !ok {
		return nil, store.ErrNotFound
	}
	s.ordersByID[order.ID] = cloneOrder(&order)
	return cloneOrder(s.ordersByID[order.ID]), nil
}

func (s *Store) DeleteOrder(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ordersByID[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.ordersByID, id)
	return nil
}

func (s *Store) CreateReturn(_ context.Context, ret domain.ReturnAccount) (*domain.ReturnAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ordersByID[ret.OrderID]; !ok {
		return nil, store.ErrNotFound
	}
	if len(ret.Lines) == 0 {
		return nil, store.ErrValidation
	}
	for i := range ret.Lines {
		ret.Lines[i].ReturnID = ret.ID
	}
	s.returnsByID[ret.ID] = *cloneReturn(&ret)
	created := cloneReturn(&ret)
	return created, nil
}

func (s *Store) GetReturnByID(_ context.Context, id string) (*domain.ReturnAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ret, ok := s.returnsByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneReturn(&ret), nil
}

func (s *Store) ListReturns(_ context.Context, from time.Time, to time.Time) ([]domain.ReturnAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	returns := make([]domain.ReturnAccount, 0, len(s.returnsByID))
	for _, ret := range s.returnsByID {
		if !inWindow(ret.CreatedAt, from, to) {
			continue
		}
		returns = append(returns, *cloneReturn(&ret))
	}
	slices.SortFunc(returns, func(a, b domain.ReturnAccount) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	return returns, nil
}

func (s *Store) GetReturnedQtyByOrder(_ context.Context, orderID int64) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := map[string]int{}
	for _, ret := range s.returnsByID {
		if ret.OrderID != orderID {
			continue
		}
		for _, line := range ret.Lines {
			result[line.ProductID] += line.Qty
		}
	}
	return result, nil
}

func (s *Store) CreateExpense(_ context.Context, expense domain.Expense) (*domain.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expensesByID[expense.ID] = expense
	created := expense
	return &created, nil
}

func (s *Store) ListExpenses(_ context.Context, from time.Time, to time.Time) ([]domain.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expenses := make([]domain.Expense, 0, len(s.expensesByID))
	for _, expense := range s.expensesByID {
		if !inWindow(expense.CreatedAt, from, to) {
			continue
		}
		expenses = append(expenses, expense)
	}
	slices.SortFunc(expenses, func(a, b domain.Expense) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	return expenses, nil
}

func (s *Store) DeleteExpense(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.expensesByID[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.expensesByID, id)
	return nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.usersByUsername[user.Username]; ok {
		return store.ErrValidation
	}
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return cmpString(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.usersByUsername[username]
	if !ok {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

// GetUserByUsername is used by the auth layer; it is not part of the
// Repository surface.
func (s *Store) GetUserByUsername(_ context.Context, username string) (*domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.usersByUsername[username]
	if !ok {
		return nil, store.ErrNotFound
	}
	result := user
	return &result, nil
}

func inWindow(at time.Time, from time.Time, to time.Time) bool {
	if !from.IsZero() && at.Before(from) {
		return false
	}
	if !to.IsZero() && !at.Before(to) {
		return false
	}
	return true
}

func compareEntryOldestFirst(a, b domain.StockLedgerEntry) int {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return cmpString(a.ID, b.ID)
	}
	if a.CreatedAt.Before(b.CreatedAt) {
		return -1
	}
	return 1
}

func cloneOrder(order *domain.OrderAccount) *domain.OrderAccount {
	result := *order
	result.Lines = make([]domain.OrderLine, len(order.Lines))
	copy(result.Lines, order.Lines)
	return &result
}

func cloneReturn(ret *domain.ReturnAccount) *domain.ReturnAccount {
	result := *ret
	result.Lines = make([]domain.ReturnLine, len(ret.Lines))
	copy(result.Lines, ret.Lines)
	return &result
}

func cmpString(a string, b string) int {
	if a == b {
		return 0
	}
	if a < b {
		return -1
	}
	return 1
}
