package reports

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/shelfboard/internal/layout"
)

func TestWriteSummaryCSV(t *testing.T) {
	l := layout.Layout{{ProductCode: "A", RowNumber: 1, Position: 1}}
	s := Summarize("S1", march, l, []Movement{
		mv("A", KindRestock, 5, "0", "2", day(1)),
		mv("A", KindSale, 2, "3.5", "0", day(2)),
		mv("Q", KindSale, 1, "1", "0", day(2)),
	}, fixedT)

	var buf bytes.Buffer
	require.NoError(t, WriteSummaryCSV(&buf, s))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\r\n"), "\r\n")
	require.Equal(t, []string{
		"# Shelf: S1",
		"# Period: 2026-03-01 to 2026-04-01",
		"Row,Position,Product,Sales Qty,Sales Amount,Withdraw Qty,Withdraw Cost,Stock Qty,Stock Cost",
		"1,1,A,2,7.00,0,0.00,3,6.00",
		"1,,Subtotal,2,7.00,0,0.00,3,6.00",
		"unplaced,,Q,1,1.00,0,0.00,-1,0.00",
		"unplaced,,Subtotal,1,1.00,0,0.00,-1,0.00",
		",,Total,3,8.00,0,0.00,2,6.00",
	}, lines)
}
