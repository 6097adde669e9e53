package domain

import "time"

type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type CategoryCreateRequest struct {
	Name string `json:"name"`
}

type Product struct {
	ID             string    `json:"id"`
	SKU            string    `json:"sku"`
	Name           string    `json:"name"`
	CategoryID     string    `json:"category_id,omitempty"`
	CategoryName   string    `json:"category_name,omitempty"`
	SellPriceCents int64     `json:"sell_price_cents"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at"`
}

type ProductCreateRequest struct {
	SKU            string `json:"sku"`
	Name           string `json:"name"`
	CategoryID     string `json:"category_id,omitempty"`
	SellPriceCents int64  `json:"sell_price_cents"`
}

type ProductUpdateRequest struct {
	Name           *string `json:"name,omitempty"`
	CategoryID     *string `json:"category_id,omitempty"`
	SellPriceCents *int64  `json:"sell_price_cents,omitempty"`
	Active         *bool   `json:"active,omitempty"`
}

// StockLedgerEntry is the per-product unit of inventory truth: how much was
// purchased, how much is still available, and at what unit cost.
type StockLedgerEntry struct {
	ID                 string    `json:"id"`
	ProductID          string    `json:"product_id"`
	Description        string    `json:"description,omitempty"`
	PurchasedQty       int       `json:"purchased_qty"`
	AvailableQty       int       `json:"available_qty"`
	PurchasePriceCents int64     `json:"purchase_price_cents"`
	Source             string    `json:"source"`
	SourceID           string    `json:"source_id,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

type StockEntryCreateRequest struct {
	ProductID          string `json:"product_id"`
	Qty                int    `json:"qty"`
	PurchasePriceCents int64  `json:"purchase_price_cents"`
	Description        string `json:"description,omitempty"`
}

// StockReconcileRequest replaces a ledger entry's purchase record while
// preserving the quantity already consumed by sales and returns.
type StockReconcileRequest struct {
	ProductID          string `json:"product_id"`
	PurchasedQty       int    `json:"purchased_qty"`
	PurchasePriceCents int64  `json:"purchase_price_cents"`
}

type StockEntryListResponse struct {
	Entries []StockLedgerEntry `json:"entries"`
}

type ProductCost struct {
	ProductID   string  `json:"product_id"`
	UnitCost    float64 `json:"unit_cost_cents"`
	EntriesUsed int     `json:"entries_used"`
	TotalQty    int     `json:"total_qty"`
	ComputedAt  string  `json:"computed_at"`
}

type OrderLine struct {
	OrderID        int64  `json:"order_id"`
	ProductID      string `json:"product_id"`
	InventoryID    string `json:"inventory_id,omitempty"`
	Qty            int    `json:"qty"`
	SellPriceCents int64  `json:"sell_price_cents"`
}

type OrderAccount struct {
	ID                  int64       `json:"id"`
	Description         string      `json:"description,omitempty"`
	DiscountCents       int64       `json:"discount_cents"`
	AmountReceivedCents int64       `json:"amount_received_cents"`
	Status              string      `json:"status"`
	CreatedAt           time.Time   `json:"created_at"`
	Lines               []OrderLine `json:"lines"`
}

type OrderLineRequest struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
	// SellPriceCents of 0 means "use the product's base sell price".
	SellPriceCents int64 `json:"sell_price_cents,omitempty"`
}

type OrderCreateRequest struct {
	Description         string             `json:"description,omitempty"`
	DiscountCents       int64              `json:"discount_cents"`
	AmountReceivedCents int64              `json:"amount_received_cents"`
	Status              string             `json:"status,omitempty"`
	Lines               []OrderLineRequest `json:"lines"`
}

type OrderUpdateRequest struct {
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty"`
}

type OrderListResponse struct {
	Orders []OrderAccount `json:"orders"`
}

// OrderValuation is the monetary breakdown of a single sale: revenue before
// discount, net sales after the order-level discount, weighted-average cost
// of the goods sold, and the resulting profit.
type OrderValuation struct {
	OrderID         int64 `json:"order_id"`
	RevenueCents    int64 `json:"revenue_cents"`
	NetSalesCents   int64 `json:"net_sales_cents"`
	CostCents       int64 `json:"cost_cents"`
	ProfitCents     int64 `json:"profit_cents"`
	BalanceDueCents int64 `json:"balance_due_cents"`
}

type ReturnLine struct {
	ReturnID       string `json:"return_id"`
	ProductID      string `json:"product_id"`
	Qty            int    `json:"qty"`
	SellPriceCents int64  `json:"sell_price_cents"`
}

type ReturnAccount struct {
	ID          string       `json:"id"`
	OrderID     int64        `json:"order_id"`
	Description string       `json:"description,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	Lines       []ReturnLine `json:"lines"`
}

type ReturnLineRequest struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
	// SellPriceCents of 0 means "refund at the price the line was sold for".
	SellPriceCents int64 `json:"sell_price_cents,omitempty"`
}

type ReturnCreateRequest struct {
	OrderID     int64               `json:"order_id"`
	Description string              `json:"description,omitempty"`
	Lines       []ReturnLineRequest `json:"lines"`
}

type ReturnResponse struct {
	Return      ReturnAccount `json:"return"`
	AmountCents int64         `json:"amount_cents"`
}

type ReturnListResponse struct {
	Returns []ReturnAccount `json:"returns"`
}

type Expense struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	AmountCents int64     `json:"amount_cents"`
	CreatedAt   time.Time `json:"created_at"`
}

type ExpenseCreateRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	AmountCents int64  `json:"amount_cents"`
}

type ExpenseListResponse struct {
	Expenses []Expense `json:"expenses"`
}

// PeriodSummary is the time-bucketed financial rollup for one reporting
// window, net of returns and discounts.
type PeriodSummary struct {
	Window                  string  `json:"window"`
	From                    string  `json:"from"`
	To                      string  `json:"to"`
	Orders                  int64   `json:"orders"`
	Returns                 int64   `json:"returns"`
	GrossSalesCents         int64   `json:"gross_sales_cents"`
	TotalReturnsCents       int64   `json:"total_returns_cents"`
	TotalExpensesCents      int64   `json:"total_expenses_cents"`
	NetRevenueCents         int64   `json:"net_revenue_cents"`
	GrossProfitCents        int64   `json:"gross_profit_cents"`
	NetProfitCents          int64   `json:"net_profit_cents"`
	ReturnRate              float64 `json:"return_rate"`
	AverageTransactionCents int64   `json:"average_transaction_cents"`
}

// TrendPoint is one bucket of a gap-free day/month series.
type TrendPoint struct {
	Period        string `json:"period"`
	Orders        int64  `json:"orders"`
	SalesCents    int64  `json:"sales_cents"`
	ReturnsCents  int64  `json:"returns_cents"`
	ExpensesCents int64  `json:"expenses_cents"`
	NetCents      int64  `json:"net_cents"`
}

type TrendResponse struct {
	Bucket string       `json:"bucket"`
	From   string       `json:"from"`
	To     string       `json:"to"`
	Points []TrendPoint `json:"points"`
}

type CategoryPerformance struct {
	Category     string `json:"category"`
	RevenueCents int64  `json:"revenue_cents"`
	QtySold      int64  `json:"qty_sold"`
}

type CategoryReportResponse struct {
	Window     string                `json:"window"`
	Categories []CategoryPerformance `json:"categories"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type StaffCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type StaffUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

const (
	OrderStatusPending   = "pending"
	OrderStatusCompleted = "completed"
)

const (
	StockSourceIntake = "intake"
	StockSourceReturn = "return"
)

const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// UncategorizedBucket is the category name assigned to order-line revenue
// whose product has no category reference.
const UncategorizedBucket = "Uncategorized"
