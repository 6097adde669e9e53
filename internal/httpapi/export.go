package httpapi

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"html/template"

	"github.com/xuri/excelize/v2"

	"bukukas/backend/internal/domain"
)

func summaryToCSV(summary domain.PeriodSummary) string {
	records := [][]string{
		{"section", "key", "value"},
		{"summary", "window", summary.Window},
		{"summary", "from", summary.From},
		{"summary", "to", summary.To},
		{"summary", "orders", fmt.Sprintf("%d", summary.Orders)},
		{"summary", "returns", fmt.Sprintf("%d", summary.Returns)},
		{"summary", "gross_sales_cents", fmt.Sprintf("%d", summary.GrossSalesCents)},
		{"summary", "total_returns_cents", fmt.Sprintf("%d", summary.TotalReturnsCents)},
		{"summary", "total_expenses_cents", fmt.Sprintf("%d", summary.TotalExpensesCents)},
		{"summary", "net_revenue_cents", fmt.Sprintf("%d", summary.NetRevenueCents)},
		{"summary", "gross_profit_cents", fmt.Sprintf("%d", summary.GrossProfitCents)},
		{"summary", "net_profit_cents", fmt.Sprintf("%d", summary.NetProfitCents)},
		{"summary", "return_rate", fmt.Sprintf("%.4f", summary.ReturnRate)},
		{"summary", "average_transaction_cents", fmt.Sprintf("%d", summary.AverageTransactionCents)},
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.WriteAll(records)
	return buf.String()
}

func summaryToXLSX(summary domain.PeriodSummary) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())

	header := []interface{}{"key", "value"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}

	rows := [][]interface{}{
		{"window", summary.Window},
		{"from", summary.From},
		{"to", summary.To},
		{"orders", summary.Orders},
		{"returns", summary.Returns},
		{"gross_sales_cents", summary.GrossSalesCents},
		{"total_returns_cents", summary.TotalReturnsCents},
		{"total_expenses_cents", summary.TotalExpensesCents},
		{"net_revenue_cents", summary.NetRevenueCents},
		{"gross_profit_cents", summary.GrossProfitCents},
		{"net_profit_cents", summary.NetProfitCents},
		{"return_rate", summary.ReturnRate},
		{"average_transaction_cents", summary.AverageTransactionCents},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		rowData := row
		if err := f.SetSheetRow(sheet, cell, &rowData); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// summaryHTMLTmpl renders the printable period summary. All user-controlled
// fields are auto-escaped by html/template to prevent XSS.
var summaryHTMLTmpl = template.Must(template.New("period-summary").Parse(`<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>Period Summary {{.From}} to {{.To}}</title>
  <style>
    body { font-family: sans-serif; margin: 24px; }
    table { width: 100%; border-collapse: collapse; margin-top: 8px; }
    th, td { border: 1px solid #ddd; padding: 6px; font-size: 13px; }
    h2 { margin-bottom: 4px; }
  </style>
</head>
<body>
  <h2>Period Summary ({{.Window}})</h2>
  <p>{{.From}} to {{.To}}</p>
  <table>
    <thead><tr><th>Metric</th><th>Value</th></tr></thead>
    <tbody>{{range .Rows}}<tr><td>{{.Key}}</td><td style="text-align:right;">{{.Value}}</td></tr>{{end}}</tbody>
  </table>
</body>
</html>
`))

type summaryHTMLRow struct {
	Key   string
	Value string
}

type summaryHTMLView struct {
	Window string
	From   string
	To     string
	Rows   []summaryHTMLRow
}

func summaryHTMLData(summary domain.PeriodSummary) summaryHTMLView {
	return summaryHTMLView{
		Window: summary.Window,
		From:   summary.From,
		To:     summary.To,
		Rows: []summaryHTMLRow{
			{"Orders", fmt.Sprintf("%d", summary.Orders)},
			{"Returns", fmt.Sprintf("%d", summary.Returns)},
			{"Gross sales (cents)", fmt.Sprintf("%d", summary.GrossSalesCents)},
			{"Total returns (cents)", fmt.Sprintf("%d", summary.TotalReturnsCents)},
			{"Total expenses (cents)", fmt.Sprintf("%d", summary.TotalExpensesCents)},
			{"Net revenue (cents)", fmt.Sprintf("%d", summary.NetRevenueCents)},
			{"Gross profit (cents)", fmt.Sprintf("%d", summary.GrossProfitCents)},
			{"Net profit (cents)", fmt.Sprintf("%d", summary.NetProfitCents)},
			{"Return rate", fmt.Sprintf("%.4f", summary.ReturnRate)},
			{"Average transaction (cents)", fmt.Sprintf("%d", summary.AverageTransactionCents)},
		},
	}
}
