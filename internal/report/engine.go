package report

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"bukukas/backend/internal/cache"
	"bukukas/backend/internal/domain"
)

const dateLayout = "2006-01-02"

// Window is a resolved reporting period. From is inclusive, To is exclusive,
// both at midnight UTC.
type Window struct {
	Name string
	From time.Time
	To   time.Time
}

// Label returns the window's From/To as inclusive date strings for responses.
func (w Window) Label() (string, string) {
	return w.From.Format(dateLayout), w.To.AddDate(0, 0, -1).Format(dateLayout)
}

// ResolveWindow turns a named window or an explicit from/to date pair into
// concrete bounds. Named windows are today, this-month, last-month and
// this-year. Explicit dates are inclusive on both ends.
func ResolveWindow(name, fromStr, toStr string, now time.Time) (Window, error) {
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	switch name {
	case "today":
		return Window{Name: name, From: today, To: today.AddDate(0, 0, 1)}, nil
	case "this-month":
		from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return Window{Name: name, From: from, To: from.AddDate(0, 1, 0)}, nil
	case "last-month":
		thisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return Window{Name: name, From: thisMonth.AddDate(0, -1, 0), To: thisMonth}, nil
	case "this-year":
		from := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
		return Window{Name: name, From: from, To: from.AddDate(1, 0, 0)}, nil
	case "":
		if fromStr == "" || toStr == "" {
			return Window{}, fmt.Errorf("window name or from/to dates required")
		}
		from, err := time.ParseInLocation(dateLayout, fromStr, time.UTC)
		if err != nil {
			return Window{}, fmt.Errorf("invalid from date %q", fromStr)
		}
		to, err := time.ParseInLocation(dateLayout, toStr, time.UTC)
		if err != nil {
			return Window{}, fmt.Errorf("invalid to date %q", toStr)
		}
		if to.Before(from) {
			return Window{}, fmt.Errorf("to date precedes from date")
		}
		return Window{Name: "custom", From: from, To: to.AddDate(0, 0, 1)}, nil
	default:
		return Window{}, fmt.Errorf("unknown window %q", name)
	}
}

// Summarize rolls orders, returns and expenses that fall inside the window
// into a single PeriodSummary. Callers pass window-filtered slices; the window
// itself only supplies labels and the day axis.
func Summarize(win Window, orders []domain.OrderAccount, returns []domain.ReturnAccount, expenses []domain.Expense, wacByProduct map[string]float64) domain.PeriodSummary {
	from, to := win.Label()
	summary := domain.PeriodSummary{
		Window: win.Name,
		From:   from,
		To:     to,
	}

	salesDays := make(map[string]bool)
	for _, order := range orders {
		valuation := Valuate(order, wacByProduct)
		summary.Orders++
		summary.GrossSalesCents += valuation.NetSalesCents
		summary.GrossProfitCents += valuation.ProfitCents
		if valuation.NetSalesCents != 0 {
			salesDays[order.CreatedAt.UTC().Format(dateLayout)] = true
		}
	}
	for _, ret := range returns {
		summary.Returns++
		summary.TotalReturnsCents += ReturnAmountCents(ret)
	}
	for _, expense := range expenses {
		summary.TotalExpensesCents += expense.AmountCents
	}

	summary.NetRevenueCents = summary.GrossSalesCents - summary.TotalReturnsCents - summary.TotalExpensesCents
	summary.NetProfitCents = summary.GrossProfitCents - summary.TotalReturnsCents - summary.TotalExpensesCents

	if summary.GrossSalesCents > 0 {
		summary.ReturnRate = float64(summary.TotalReturnsCents) / float64(summary.GrossSalesCents)
	}

	days := len(salesDays)
	if days < 1 {
		days = 1
	}
	summary.AverageTransactionCents = summary.NetRevenueCents / int64(days)

	return summary
}

// Trend buckets window activity into a gap-free day or month series. Every
// bucket between the window bounds is present even when it saw no activity.
func Trend(bucket string, win Window, orders []domain.OrderAccount, returns []domain.ReturnAccount, expenses []domain.Expense) (domain.TrendResponse, error) {
	var layout string
	var step func(time.Time) time.Time
	switch bucket {
	case "day":
		layout = dateLayout
		step = func(t time.Time) time.Time { return t.AddDate(0, 0, 1) }
	case "month":
		layout = "2006-01"
		step = func(t time.Time) time.Time { return t.AddDate(0, 1, 0) }
	default:
		return domain.TrendResponse{}, fmt.Errorf("unknown trend bucket %q", bucket)
	}

	start := win.From
	if bucket == "month" {
		start = time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	}

	index := make(map[string]int)
	points := make([]domain.TrendPoint, 0, 32)
	for t := start; t.Before(win.To); t = step(t) {
		period := t.Format(layout)
		index[period] = len(points)
		points = append(points, domain.TrendPoint{Period: period})
	}

	bucketOf := func(at time.Time) (int, bool) {
		i, ok := index[at.UTC().Format(layout)]
		return i, ok
	}

	for _, order := range orders {
		if i, ok := bucketOf(order.CreatedAt); ok {
			points[i].Orders++
			points[i].SalesCents += NetSalesCents(order)
		}
	}
	for _, ret := range returns {
		if i, ok := bucketOf(ret.CreatedAt); ok {
			points[i].ReturnsCents += ReturnAmountCents(ret)
		}
	}
	for _, expense := range expenses {
		if i, ok := bucketOf(expense.CreatedAt); ok {
			points[i].ExpensesCents += expense.AmountCents
		}
	}
	for i := range points {
		points[i].NetCents = points[i].SalesCents - points[i].ReturnsCents - points[i].ExpensesCents
	}

	from, to := win.Label()
	return domain.TrendResponse{Bucket: bucket, From: from, To: to, Points: points}, nil
}

// CategoryRevenue attributes order-line revenue to product categories, ordered
// by revenue descending. Lines whose product has no category land in the
// Uncategorized bucket.
func CategoryRevenue(orders []domain.OrderAccount, products map[string]domain.Product) []domain.CategoryPerformance {
	type accum struct {
		revenue int64
		qty     int64
	}
	byCategory := make(map[string]accum)

	for _, order := range orders {
		for _, line := range order.Lines {
			name := domain.UncategorizedBucket
			if p, ok := products[line.ProductID]; ok && p.CategoryName != "" {
				name = p.CategoryName
			}
			acc := byCategory[name]
			acc.revenue += int64(line.Qty) * line.SellPriceCents
			acc.qty += int64(line.Qty)
			byCategory[name] = acc
		}
	}

	result := make([]domain.CategoryPerformance, 0, len(byCategory))
	for name, acc := range byCategory {
		result = append(result, domain.CategoryPerformance{
			Category:     name,
			RevenueCents: acc.revenue,
			QtySold:      acc.qty,
		})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].RevenueCents != result[j].RevenueCents {
			return result[i].RevenueCents > result[j].RevenueCents
		}
		return result[i].Category < result[j].Category
	})
	return result
}

// Engine caches computed summaries so repeated dashboard loads do not rescan
// the ledger. It is read-through: cache errors degrade to recomputation.
type Engine struct {
	cache    cache.ReportCache
	cacheTTL time.Duration
}

func NewEngine(cacheStore cache.ReportCache, cacheTTL time.Duration) *Engine {
	if cacheStore == nil {
		cacheStore = cache.NoopReportCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &Engine{cache: cacheStore, cacheTTL: cacheTTL}
}

// Summary returns the cached rollup for the window when present, otherwise
// computes it and stores the result.
func (e *Engine) Summary(ctx context.Context, win Window, compute func() (domain.PeriodSummary, error)) (domain.PeriodSummary, error) {
	key := e.cacheKey(win)
	if cached, ok, err := e.cache.Get(ctx, key); err != nil {
		log.Printf("[report] WARN: cache read failed for %s: %v", key, err)
	} else if ok {
		return *cached, nil
	}

	summary, err := compute()
	if err != nil {
		return domain.PeriodSummary{}, err
	}

	if err := e.cache.Set(ctx, key, &summary, e.cacheTTL); err != nil {
		log.Printf("[report] WARN: cache write failed for %s: %v", key, err)
	}
	return summary, nil
}

func (e *Engine) cacheKey(win Window) string {
	return fmt.Sprintf("report:summary:%s:%s:%s", win.Name, win.From.Format(dateLayout), win.To.Format(dateLayout))
}
