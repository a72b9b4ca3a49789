// Package bankfeed reads bank statement files and turns them into
// transaction inputs for the banking import.
package bankfeed

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/clutch/ledger/internal/domain/banking"
	"github.com/clutch/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Parse errors
var (
	ErrEmptyFile       = errors.New("statement file is empty")
	ErrInvalidEncoding = errors.New("statement file is not valid UTF-8")
	ErrMissingHeader   = errors.New("statement file has no header row")
)

// Column names accepted in a statement header, keyed by the field they fill.
var columnAliases = map[string][]string{
	"id":          {"bank_transaction_id", "transaction_id", "id", "reference_no"},
	"date":        {"date", "value_date", "booking_date"},
	"amount":      {"amount"},
	"direction":   {"direction", "type"},
	"description": {"description", "narrative", "details"},
	"reference":   {"reference", "ref"},
	"category":    {"category"},
}

var requiredColumns = []string{"id", "date", "amount"}

var dateLayouts = []string{"2006-01-02", time.RFC3339, "02/01/2006", "2006/01/02"}

// StatementParser reads CSV statements
type StatementParser struct {
	delimiter rune
}

// ParserOption configures a StatementParser
type ParserOption func(*StatementParser)

// WithDelimiter sets the field delimiter (default is comma)
func WithDelimiter(d rune) ParserOption {
	return func(p *StatementParser) {
		p.delimiter = d
	}
}

// NewStatementParser creates a StatementParser
func NewStatementParser(opts ...ParserOption) *StatementParser {
	p := &StatementParser{delimiter: ','}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse reads every data row of the statement. Blank rows are skipped. The
// first invalid row aborts the parse with a validation error naming the line.
func (p *StatementParser) Parse(r io.Reader) ([]banking.TransactionInput, error) {
	br := bufio.NewReader(r)
	if err := checkEncoding(br); err != nil {
		return nil, err
	}

	reader := csv.NewReader(br)
	reader.Comma = p.delimiter
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrMissingHeader
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	columns, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	var out []banking.TransactionInput
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("error reading line %d: %w", line, err)
		}
		if blank(record) {
			continue
		}
		in, err := toInput(record, columns)
		if err != nil {
			if de, ok := shared.AsDomainError(err); ok {
				return nil, de.WithDetail("line", line)
			}
			return nil, err
		}
		out = append(out, in)
	}
	return out, nil
}

// checkEncoding strips a UTF-8 BOM and rejects input that is not UTF-8
func checkEncoding(br *bufio.Reader) error {
	head, err := br.Peek(3)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to read statement: %w", err)
	}
	if len(head) == 0 {
		return ErrEmptyFile
	}
	if len(head) >= 3 && head[0] == 0xEF && head[1] == 0xBB && head[2] == 0xBF {
		_, _ = br.Discard(3)
	}

	sample, err := br.Peek(4096)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return fmt.Errorf("failed to read statement: %w", err)
	}
	if !validPrefix(sample) {
		return ErrInvalidEncoding
	}
	return nil
}

// validPrefix accepts a sample whose only defect is a multi-byte rune cut
// off by the peek window
func validPrefix(b []byte) bool {
	for i := 0; i < utf8.UTFMax && len(b) > 0; i++ {
		if utf8.Valid(b) {
			return true
		}
		b = b[:len(b)-1]
	}
	return utf8.Valid(b)
}

func mapColumns(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	columns := make(map[string]int, len(columnAliases))
	for field, aliases := range columnAliases {
		for _, alias := range aliases {
			if i, ok := index[alias]; ok {
				columns[field] = i
				break
			}
		}
	}
	var missing []string
	for _, field := range requiredColumns {
		if _, ok := columns[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, shared.NewValidationError("header", "missing columns: "+strings.Join(missing, ", "))
	}
	return columns, nil
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func field(record []string, columns map[string]int, name string) string {
	i, ok := columns[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func toInput(record []string, columns map[string]int) (banking.TransactionInput, error) {
	date, err := parseDate(field(record, columns, "date"))
	if err != nil {
		return banking.TransactionInput{}, err
	}
	raw := strings.ReplaceAll(field(record, columns, "amount"), ",", "")
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return banking.TransactionInput{}, shared.NewValidationError("amount", "invalid amount "+raw)
	}
	return banking.TransactionInput{
		ExternalID:  field(record, columns, "id"),
		Date:        date,
		Amount:      amount,
		Direction:   banking.Direction(strings.ToUpper(field(record, columns, "direction"))),
		Description: field(record, columns, "description"),
		Reference:   field(record, columns, "reference"),
		Category:    banking.Category(strings.ToLower(field(record, columns, "category"))),
	}, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, shared.NewValidationError("date", "invalid date "+s)
}
