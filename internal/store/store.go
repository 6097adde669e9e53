package store

import (
	"context"
	"errors"
	"time"

	"bukukas/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("invalid input")
	ErrInsufficientStock = errors.New("insufficient stock")
)

type Repository interface {
	ListCategories(ctx context.Context) ([]domain.Category, error)
	CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error)

	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProductByID(ctx context.Context, id string) (*domain.Product, error)
	GetProductsByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)

	ListStockEntries(ctx context.Context, productID string) ([]domain.StockLedgerEntry, error)
	GetStockEntry(ctx context.Context, id string) (*domain.StockLedgerEntry, error)
	CreateStockEntry(ctx context.Context, entry domain.StockLedgerEntry) (*domain.StockLedgerEntry, error)
	UpdateStockEntry(ctx context.Context, entry domain.StockLedgerEntry) (*domain.StockLedgerEntry, error)
	DeleteStockEntry(ctx context.Context, id string) error

	CreateOrder(ctx context.Context, order domain.OrderAccount) (*domain.OrderAccount, error)
	GetOrderByID(ctx context.Context, id int64) (*domain.OrderAccount, error)
	ListOrders(ctx context.Context, from time.Time, to time.Time) ([]domain.OrderAccount, error)
	UpdateOrder(ctx context.Context, order domain.OrderAccount) (*domain.OrderAccount, error)
	DeleteOrder(ctx context.Context, id int64) error

	CreateReturn(ctx context.Context, ret domain.ReturnAccount) (*domain.ReturnAccount, error)
	GetReturnByID(ctx context.Context, id string) (*domain.ReturnAccount, error)
	ListReturns(ctx context.Context, from time.Time, to time.Time) ([]domain.ReturnAccount, error)
	GetReturnedQtyByOrder(ctx context.Context, orderID int64) (map[string]int, error)

	CreateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error)
	ListExpenses(ctx context.Context, from time.Time, to time.Time) ([]domain.Expense, error)
	DeleteExpense(ctx context.Context, id string) error

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
