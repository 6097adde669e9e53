package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"bukukas/backend/internal/domain"
	"bukukas/backend/internal/store"
)

type Store struct {
	db *sql.DB
}

var _ store.Repository = (*Store)(nil)

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, created_at
		FROM categories
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]domain.Category, 0, 16)
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return categories, nil
}

func (s *Store) CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, created_at)
		VALUES ($1, $2, $3)
	`, category.ID, category.Name, category.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrValidation
		}
		return nil, err
	}
	created := category
	return &created, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.sku, p.name, COALESCE(p.category_id, ''), COALESCE(c.name, ''),
		       p.sell_price_cents, p.active, p.created_at
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		ORDER BY c.name NULLS FIRST, p.name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 128)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.CategoryID, &p.CategoryName, &p.SellPriceCents, &p.Active, &p.CreatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT p.id, p.sku, p.name, COALESCE(p.category_id, ''), COALESCE(c.name, ''),
		       p.sell_price_cents, p.active, p.created_at
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE p.id = $1
	`, id).Scan(&p.ID, &p.SKU, &p.Name, &p.CategoryID, &p.CategoryName, &p.SellPriceCents, &p.Active, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) GetProductsByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	if len(ids) == 0 {
		return map[string]domain.Product{}, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.sku, p.name, COALESCE(p.category_id, ''), COALESCE(c.name, ''),
		       p.sell_price_cents, p.active, p.created_at
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE p.id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]domain.Product, len(ids))
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.CategoryID, &p.CategoryName, &p.SellPriceCents, &p.Active, &p.CreatedAt); err != nil {
			return nil, err
		}
		result[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	categoryID := sql.NullString{String: product.CategoryID, Valid: product.CategoryID != ""}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, sku, name, category_id, sell_price_cents, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, product.ID, product.SKU, product.Name, categoryID, product.SellPriceCents, product.Active, product.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrValidation
		}
		if isForeignKeyViolation(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return s.GetProductByID(ctx, product.ID)
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	categoryID := sql.NullString{String: product.CategoryID, Valid: product.CategoryID != ""}
	result, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, category_id = $3, sell_price_cents = $4, active = $5
		WHERE id = $1
	`, product.ID, product.Name, categoryID, product.SellPriceCents, product.Active)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetProductByID(ctx, product.ID)
}

func (s *Store) ListStockEntries(ctx context.Context, productID string) ([]domain.StockLedgerEntry, error) {
	query := `
		SELECT id, product_id, COALESCE(description, ''), purchased_qty, available_qty,
		       purchase_price_cents, source, COALESCE(source_id, ''), created_at
		FROM stock_entries
	`
	args := []any{}
	if productID != "" {
		query += ` WHERE product_id = $1`
		args = append(args, productID)
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.StockLedgerEntry, 0, 64)
	for rows.Next() {
		var e domain.StockLedgerEntry
		if err := rows.Scan(&e.ID, &e.ProductID, &e.Description, &e.PurchasedQty, &e.AvailableQty, &e.PurchasePriceCents, &e.Source, &e.SourceID, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Store) GetStockEntry(ctx context.Context, id string) (*domain.StockLedgerEntry, error) {
	var e domain.StockLedgerEntry
	err := s.db.QueryRowContext(ctx, `
		SELECT id, product_id, COALESCE(description, ''), purchased_qty, available_qty,
		       purchase_price_cents, source, COALESCE(source_id, ''), created_at
		FROM stock_entries
		WHERE id = $1
	`, id).Scan(&e.ID, &e.ProductID, &e.Description, &e.PurchasedQty, &e.AvailableQty, &e.PurchasePriceCents, &e.Source, &e.SourceID, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (s *Store) CreateStockEntry(ctx context.Context, entry domain.StockLedgerEntry) (*domain.StockLedgerEntry, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stock_entries (id, product_id, description, purchased_qty, available_qty,
		                           purchase_price_cents, source, source_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, entry.ID, entry.ProductID, entry.Description, entry.PurchasedQty, entry.AvailableQty,
		entry.PurchasePriceCents, entry.Source, entry.SourceID, entry.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	created := entry
	return &created, nil
}

func (s *Store) UpdateStockEntry(ctx context.Context, entry domain.StockLedgerEntry) (*domain.StockLedgerEntry, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE stock_entries
		SET product_id = $2, description = $3, purchased_qty = $4, available_qty = $5, purchase_price_cents = $6
		WHERE id = $1
	`, entry.ID, entry.ProductID, entry.Description, entry.PurchasedQty, entry.AvailableQty, entry.PurchasePriceCents)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	updated := entry
	return &updated, nil
}

func (s *Store) DeleteStockEntry(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var purchased, available int
	err = tx.QueryRowContext(ctx, `
		SELECT purchased_qty, available_qty
		FROM stock_entries
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&purchased, &available)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		return err
	}
	if available != purchased {
		return store.ErrValidation
	}

	var referenced bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM order_lines WHERE inventory_id = $1)
	`, id).Scan(&referenced)
	if err != nil {
		return err
	}
	if referenced {
		return store.ErrValidation
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM stock_entries WHERE id = $1`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// CreateOrder inserts the order and consumes available stock from the oldest
// entries first, all inside one serializable transaction so concurrent sales
// cannot oversell an entry.
func (s *Store) CreateOrder(ctx context.Context, order domain.OrderAccount) (*domain.OrderAccount, error) {
	if len(order.Lines) == 0 {
		return nil, store.ErrValidation
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (description, discount_cents, amount_received_cents, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, order.Description, order.DiscountCents, order.AmountReceivedCents, order.Status, order.CreatedAt).Scan(&order.ID)
	if err != nil {
		return nil, err
	}

	for i := range order.Lines {
		line := &order.Lines[i]
		if line.Qty < 1 {
			return nil, store.ErrValidation
		}
		line.OrderID = order.ID

		entryRows, err := tx.QueryContext(ctx, `
			SELECT id, available_qty
			FROM stock_entries
			WHERE product_id = $1 AND available_qty > 0
			ORDER BY created_at ASC, id ASC
			FOR UPDATE
		`, line.ProductID)
		if err != nil {
			return nil, err
		}
		type entryState struct {
			id        string
			available int
		}
		entries := make([]entryState, 0, 8)
		for entryRows.Next() {
			var e entryState
			if err := entryRows.Scan(&e.id, &e.available); err != nil {
				_ = entryRows.Close()
				return nil, err
			}
			entries = append(entries, e)
		}
		if err := entryRows.Err(); err != nil {
			_ = entryRows.Close()
			return nil, err
		}
		_ = entryRows.Close()

		remaining := line.Qty
		for _, entry := range entries {
			if remaining == 0 {
				break
			}
			used := remaining
			if used > entry.available {
				used = entry.available
			}
			if _, err := tx.ExecContext(ctx, `
				UPDATE stock_entries SET available_qty = available_qty - $2 WHERE id = $1
			`, entry.id, used); err != nil {
				return nil, err
			}
			remaining -= used
			if line.InventoryID == "" {
				line.InventoryID = entry.id
			}
		}
		if remaining > 0 {
			return nil, store.ErrInsufficientStock
		}

		inventoryID := sql.NullString{String: line.InventoryID, Valid: line.InventoryID != ""}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO order_lines (order_id, product_id, inventory_id, qty, sell_price_cents)
			VALUES ($1, $2, $3, $4, $5)
		`, line.OrderID, line.ProductID, inventoryID, line.Qty, line.SellPriceCents); err != nil {
			if isForeignKeyViolation(err) {
				return nil, store.ErrNotFound
			}
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	created := order
	return &created, nil
}

func (s *Store) GetOrderByID(ctx context.Context, id int64) (*domain.OrderAccount, error) {
	var order domain.OrderAccount
	err := s.db.QueryRowContext(ctx, `
		SELECT id, COALESCE(description, ''), discount_cents, amount_received_cents, status, created_at
		FROM orders
		WHERE id = $1
	`, id).Scan(&order.ID, &order.Description, &order.DiscountCents, &order.AmountReceivedCents, &order.Status, &order.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	lines, err := s.orderLines(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	order.Lines = lines[id]
	if order.Lines == nil {
		order.Lines = []domain.OrderLine{}
	}
	return &order, nil
}

func (s *Store) ListOrders(ctx context.Context, from time.Time, to time.Time) ([]domain.OrderAccount, error) {
	query := `
		SELECT id, COALESCE(description, ''), discount_cents, amount_received_cents, status, created_at
		FROM orders
	`
	args := []any{}
	where := ""
	if !from.IsZero() {
		args = append(args, from)
		where = fmt.Sprintf(" WHERE created_at >= $%d", len(args))
	}
	if !to.IsZero() {
		args = append(args, to)
		if where == "" {
			where = fmt.Sprintf(" WHERE created_at < $%d", len(args))
		} else {
			where += fmt.Sprintf(" AND created_at < $%d", len(args))
		}
	}
	query += where + ` ORDER BY id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]domain.OrderAccount, 0, 64)
	ids := make([]int64, 0, 64)
	for rows.Next() {
		var order domain.OrderAccount
		if err := rows.Scan(&order.ID, &order.Description, &order.DiscountCents, &order.AmountReceivedCents, &order.Status, &order.CreatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, order)
		ids = append(ids, order.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	linesByOrder, err := s.orderLines(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Lines = linesByOrder[orders[i].ID]
		if orders[i].Lines == nil {
			orders[i].Lines = []domain.OrderLine{}
		}
	}
	return orders, nil
}

func (s *Store) orderLines(ctx context.Context, orderIDs []int64) (map[int64][]domain.OrderLine, error) {
	result := map[int64][]domain.OrderLine{}
	if len(orderIDs) == 0 {
		return result, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT order_id, product_id, COALESCE(inventory_id, ''), qty, sell_price_cents
		FROM order_lines
		WHERE order_id = ANY($1)
		ORDER BY order_id, product_id
	`, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var line domain.OrderLine
		if err := rows.Scan(&line.OrderID, &line.ProductID, &line.InventoryID, &line.Qty, &line.SellPriceCents); err != nil {
			return nil, err
		}
		result[line.OrderID] = append(result[line.OrderID], line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) UpdateOrder(ctx context.Context, order domain.OrderAccount) (*domain.OrderAccount, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE orders
		SET description = $2, status = $3
		WHERE id = $1
	`, order.ID, order.Description, order.Status)
	if err != nil {
		return nil, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetOrderByID(ctx, order.ID)
}

func (s *Store) DeleteOrder(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreateReturn(ctx context.Context, ret domain.ReturnAccount) (*domain.ReturnAccount, error) {
	if len(ret.Lines) == 0 {
		return nil, store.ErrValidation
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO returns (id, order_id, description, created_at)
		VALUES ($1, $2, $3, $4)
	`, ret.ID, ret.OrderID, ret.Description, ret.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	for i := range ret.Lines {
		ret.Lines[i].ReturnID = ret.ID
		line := ret.Lines[i]
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO return_lines (return_id, product_id, qty, sell_price_cents)
			VALUES ($1, $2, $3, $4)
		`, line.ReturnID, line.ProductID, line.Qty, line.SellPriceCents); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	created := ret
	return &created, nil
}

func (s *Store) GetReturnByID(ctx context.Context, id string) (*domain.ReturnAccount, error) {
	var ret domain.ReturnAccount
	err := s.db.QueryRowContext(ctx, `
		SELECT id, order_id, COALESCE(description, ''), created_at
		FROM returns
		WHERE id = $1
	`, id).Scan(&ret.ID, &ret.OrderID, &ret.Description, &ret.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	lines, err := s.returnLines(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	ret.Lines = lines[id]
	if ret.Lines == nil {
		ret.Lines = []domain.ReturnLine{}
	}
	return &ret, nil
}

func (s *Store) ListReturns(ctx context.Context, from time.Time, to time.Time) ([]domain.ReturnAccount, error) {
	query := `
		SELECT id, order_id, COALESCE(description, ''), created_at
		FROM returns
	`
	args := []any{}
	where := ""
	if !from.IsZero() {
		args = append(args, from)
		where = fmt.Sprintf(" WHERE created_at >= $%d", len(args))
	}
	if !to.IsZero() {
		args = append(args, to)
		if where == "" {
			where = fmt.Sprintf(" WHERE created_at < $%d", len(args))
		} else {
			where += fmt.Sprintf(" AND created_at < $%d", len(args))
		}
	}
	query += where + ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	returns := make([]domain.ReturnAccount, 0, 32)
	ids := make([]string, 0, 32)
	for rows.Next() {
		var ret domain.ReturnAccount
		if err := rows.Scan(&ret.ID, &ret.OrderID, &ret.Description, &ret.CreatedAt); err != nil {
			return nil, err
		}
		returns = append(returns, ret)
		ids = append(ids, ret.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	linesByReturn, err := s.returnLines(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range returns {
		returns[i].Lines = linesByReturn[returns[i].ID]
		if returns[i].Lines == nil {
			returns[i].Lines = []domain.ReturnLine{}
		}
	}
	return returns, nil
}

func (s *Store) returnLines(ctx context.Context, returnIDs []string) (map[string][]domain.ReturnLine, error) {
	result := map[string][]domain.ReturnLine{}
	if len(returnIDs) == 0 {
		return result, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT return_id, product_id, qty, sell_price_cents
		FROM return_lines
		WHERE return_id = ANY($1)
		ORDER BY return_id, product_id
	`, returnIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var line domain.ReturnLine
		if err := rows.Scan(&line.ReturnID, &line.ProductID, &line.Qty, &line.SellPriceCents); err != nil {
			return nil, err
		}
		result[line.ReturnID] = append(result[line.ReturnID], line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) GetReturnedQtyByOrder(ctx context.Context, orderID int64) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT rl.product_id, SUM(rl.qty)
		FROM return_lines rl
		JOIN returns r ON r.id = rl.return_id
		WHERE r.order_id = $1
		GROUP BY rl.product_id
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := map[string]int{}
	for rows.Next() {
		var productID string
		var qty int
		if err := rows.Scan(&productID, &qty); err != nil {
			return nil, err
		}
		result[productID] = qty
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) CreateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO expenses (id, title, description, amount_cents, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, expense.ID, expense.Title, expense.Description, expense.AmountCents, expense.CreatedAt)
	if err != nil {
		return nil, err
	}
	created := expense
	return &created, nil
}

func (s *Store) ListExpenses(ctx context.Context, from time.Time, to time.Time) ([]domain.Expense, error) {
	query := `
		SELECT id, title, COALESCE(description, ''), amount_cents, created_at
		FROM expenses
	`
	args := []any{}
	where := ""
	if !from.IsZero() {
		args = append(args, from)
		where = fmt.Sprintf(" WHERE created_at >= $%d", len(args))
	}
	if !to.IsZero() {
		args = append(args, to)
		if where == "" {
			where = fmt.Sprintf(" WHERE created_at < $%d", len(args))
		} else {
			where += fmt.Sprintf(" AND created_at < $%d", len(args))
		}
	}
	query += where + ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expenses := make([]domain.Expense, 0, 32)
	for rows.Next() {
		var e domain.Expense
		if err := rows.Scan(&e.ID, &e.Title, &e.Description, &e.AmountCents, &e.CreatedAt); err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return expenses, nil
}

func (s *Store) DeleteExpense(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password, role, active, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrValidation
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var u domain.UserAccount
		if err := rows.Scan(&u.Username, &u.Password, &u.Role, &u.Active, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET password = $2 WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.UserAccount, error) {
	var u domain.UserAccount
	err := s.db.QueryRowContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM users
		WHERE username = $1
	`, username).Scan(&u.Username, &u.Password, &u.Role, &u.Active, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}
