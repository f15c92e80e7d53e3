package reports

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Formatter renders quantities and amounts for a locale.
type Formatter struct {
	printer *message.Printer
	point   string
}

// NewFormatter builds a Formatter for a BCP 47 locale such as "id" or "en-US".
// Unknown locales fall back to English.
func NewFormatter(locale string) *Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	p := message.NewPrinter(tag)
	point := strings.Trim(p.Sprint(number.Decimal(1.5, number.Scale(1))), "0123456789")
	if point == "" {
		point = "."
	}
	return &Formatter{printer: p, point: point}
}

// Amount formats d with two fraction digits and locale grouping. The integer
// part is grouped by the printer and the cents are taken from the decimal
// itself, so no float conversion is involved. Integer parts beyond int64 are
// printed without grouping.
func (f *Formatter) Amount(d decimal.Decimal) string {
	d = d.Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	whole, frac, _ := strings.Cut(d.StringFixed(2), ".")
	if n, err := strconv.ParseInt(whole, 10, 64); err == nil {
		whole = f.printer.Sprint(number.Decimal(n))
	}
	return sign + whole + f.point + frac
}

// Qty formats an integral quantity with locale grouping.
func (f *Formatter) Qty(q int64) string {
	return f.printer.Sprint(number.Decimal(q))
}

// DisplayTotals is Totals rendered for people.
type DisplayTotals struct {
	SalesQty     string `json:"sales_qty"`
	SalesAmount  string `json:"sales_amount"`
	WithdrawQty  string `json:"withdraw_qty"`
	WithdrawCost string `json:"withdraw_cost"`
	StockQty     string `json:"stock_qty"`
	StockCost    string `json:"stock_cost"`
}

// Totals renders t.
func (f *Formatter) Totals(t Totals) DisplayTotals {
	return DisplayTotals{
		SalesQty:     f.Qty(t.SalesQty),
		SalesAmount:  f.Amount(t.SalesAmount),
		WithdrawQty:  f.Qty(t.WithdrawQty),
		WithdrawCost: f.Amount(t.WithdrawCost),
		StockQty:     f.Qty(t.StockQty),
		StockCost:    f.Amount(t.StockCost),
	}
}
