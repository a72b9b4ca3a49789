// Package export renders ledger projections into downloadable documents.
package export

import (
	"fmt"
	"time"

	"github.com/clutch/ledger/internal/domain/ledger"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	// XLSXContentType is the MIME type of the generated workbooks
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	statementSheet = "Statement"
	headerRow      = 5
	dateLayout     = "2006-01-02"
	moneyFormat    = 4 // #,##0.00
)

var statementColumns = []string{"Date", "Entry", "Sequence", "Description", "Debit", "Credit", "Balance", "Reconciled"}

// StatementWorkbook renders account statements as xlsx workbooks
type StatementWorkbook struct{}

// NewStatementWorkbook creates a new StatementWorkbook
func NewStatementWorkbook() *StatementWorkbook {
	return &StatementWorkbook{}
}

// ContentType returns the xlsx MIME type
func (w *StatementWorkbook) ContentType() string {
	return XLSXContentType
}

// RenderStatement writes a summary block, one row per ledger line and a
// totals row. Amounts are written as numbers rounded to two places.
func (w *StatementWorkbook) RenderStatement(st *ledger.Statement) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", statementSheet); err != nil {
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: moneyFormat})
	if err != nil {
		return nil, err
	}

	summary := [][]any{
		{"Account", fmt.Sprintf("%s %s", st.AccountNumber, st.AccountName)},
		{"Period", period(st.From, st.To)},
		{"Opening balance", amount(st.OpeningBalance)},
	}
	for i, row := range summary {
		if err := setRow(f, 1, i+1, row); err != nil {
			return nil, err
		}
	}

	header := make([]any, len(statementColumns))
	for i, c := range statementColumns {
		header[i] = c
	}
	if err := setRow(f, 1, headerRow, header); err != nil {
		return nil, err
	}
	if err := styleRange(f, bold, 1, headerRow, len(statementColumns), headerRow); err != nil {
		return nil, err
	}

	row := headerRow + 1
	for _, line := range st.Lines {
		values := []any{
			line.EntryDate.Format(dateLayout),
			line.EntryNumber,
			line.Sequence,
			line.Description,
			amount(line.Debit),
			amount(line.Credit),
			amount(line.Balance),
			reconciled(line.Reconciled),
		}
		if err := setRow(f, 1, row, values); err != nil {
			return nil, err
		}
		row++
	}

	totals := []any{"", "", "", "Totals", amount(st.TotalDebit), amount(st.TotalCredit), amount(st.ClosingBalance)}
	if err := setRow(f, 1, row, totals); err != nil {
		return nil, err
	}
	if err := styleRange(f, bold, 4, row, 7, row); err != nil {
		return nil, err
	}
	if err := styleRange(f, money, 5, headerRow+1, 7, row); err != nil {
		return nil, err
	}
	if err := styleRange(f, money, 2, 3, 2, 3); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(statementSheet, "D", "D", 40); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, col, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(statementSheet, cell, &values)
}

func styleRange(f *excelize.File, style, fromCol, fromRow, toCol, toRow int) error {
	from, err := excelize.CoordinatesToCellName(fromCol, fromRow)
	if err != nil {
		return err
	}
	to, err := excelize.CoordinatesToCellName(toCol, toRow)
	if err != nil {
		return err
	}
	return f.SetCellStyle(statementSheet, from, to, style)
}

func amount(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func reconciled(ok bool) string {
	if ok {
		return "yes"
	}
	return ""
}

func period(from, to *time.Time) string {
	start, end := "beginning", "today"
	if from != nil {
		start = from.Format(dateLayout)
	}
	if to != nil {
		end = to.Format(dateLayout)
	}
	return start + " to " + end
}
