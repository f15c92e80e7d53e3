package reports

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	csvFlushEvery = 200
	csvBufferSize = 32 * 1024
)

type csvStreamer struct {
	buf          *bufio.Writer
	csv          *csv.Writer
	flushEvery   int
	pendingLines int
}

func newCSVStreamer(w io.Writer) *csvStreamer {
	buf := bufio.NewWriterSize(w, csvBufferSize)
	writer := csv.NewWriter(buf)
	writer.UseCRLF = true
	return &csvStreamer{buf: buf, csv: writer, flushEvery: csvFlushEvery}
}

func (s *csvStreamer) writeComment(line string) error {
	if s == nil || s.buf == nil {
		return errors.New("csv streamer not initialised")
	}
	line = strings.TrimRight(line, "\r\n") + "\r\n"
	_, err := s.buf.WriteString(line)
	return err
}

func (s *csvStreamer) writeRow(row []string) error {
	if s == nil || s.csv == nil {
		return errors.New("csv streamer not initialised")
	}
	if err := s.csv.Write(row); err != nil {
		return err
	}
	s.pendingLines++
	if s.flushEvery > 0 && s.pendingLines >= s.flushEvery {
		return s.Flush()
	}
	return nil
}

func (s *csvStreamer) Flush() error {
	if s == nil || s.csv == nil || s.buf == nil {
		return errors.New("csv streamer not initialised")
	}
	s.csv.Flush()
	if err := s.csv.Error(); err != nil {
		return err
	}
	if err := s.buf.Flush(); err != nil {
		return err
	}
	s.pendingLines = 0
	return nil
}

var csvHeader = []string{"Row", "Position", "Product", "Sales Qty", "Sales Amount", "Withdraw Qty", "Withdraw Cost", "Stock Qty", "Stock Cost"}

// WriteSummaryCSV streams summary as CSV with one line per product, a subtotal
// per row and a shelf total.
func WriteSummaryCSV(w io.Writer, summary Summary) error {
	streamer := newCSVStreamer(w)
	if err := streamer.writeComment(fmt.Sprintf("# Shelf: %s", summary.ShelfCode)); err != nil {
		return err
	}
	if err := streamer.writeComment(fmt.Sprintf("# Period: %s to %s",
		summary.Period.From.UTC().Format(time.DateOnly), summary.Period.To.UTC().Format(time.DateOnly))); err != nil {
		return err
	}
	if err := streamer.writeRow(csvHeader); err != nil {
		return err
	}
	for _, row := range summary.Rows {
		rowLabel := strconv.Itoa(row.RowNumber)
		if row.RowNumber == UnplacedRow {
			rowLabel = "unplaced"
		}
		for _, line := range row.Lines {
			position := ""
			if line.Position > 0 {
				position = strconv.Itoa(line.Position)
			}
			if err := streamer.writeRow(totalsRow(rowLabel, position, line.ProductCode, line.Totals)); err != nil {
				return err
			}
		}
		if err := streamer.writeRow(totalsRow(rowLabel, "", "Subtotal", row.Totals)); err != nil {
			return err
		}
	}
	if err := streamer.writeRow(totalsRow("", "", "Total", summary.Totals)); err != nil {
		return err
	}
	return streamer.Flush()
}

func totalsRow(row, position, label string, t Totals) []string {
	return []string{
		row,
		position,
		label,
		strconv.FormatInt(t.SalesQty, 10),
		formatDecimal(t.SalesAmount),
		strconv.FormatInt(t.WithdrawQty, 10),
		formatDecimal(t.WithdrawCost),
		strconv.FormatInt(t.StockQty, 10),
		formatDecimal(t.StockCost),
	}
}

func formatDecimal(d decimal.Decimal) string {
	return d.StringFixed(2)
}
