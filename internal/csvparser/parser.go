// =============================================================================
// EDI Generator - Delimited Import Parser
// =============================================================================
//
// This module reads the delimited text export of the enrollment and claim
// import templates. The templates share one layout:
//
//   Row 1        dotted field addresses ("Name.First", "Dependents[1].SSN")
//   Rows 2-4     guidance for whoever fills the template in (skipped)
//   Row 5 on     one record per row
//   Column A     a row label (skipped)
//
// Row and column positions come from config.ImportSettings so other layouts
// can be read through an import profile.
//
// FEATURES:
//   - Tab, comma, pipe and semicolon delimiters
//   - A blank header row falls through to the next non-blank row
//   - Columns without an address are ignored
//   - Blank records are skipped; a UTF-8 byte order mark is dropped
//
// =============================================================================

package csvparser

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"github.com/ginjaninja78/edi-enrollment/internal/config"
)

// =============================================================================
// TABLE STRUCTURE
// =============================================================================

// Table is an import file reduced to addressed records. Workbooks and
// delimited files produce the same shape.
type Table struct {
	// Headers are the field addresses in column order. An empty string
	// marks a column without an address.
	Headers []string

	// Rows are the non-blank records.
	Rows []Row

	// SourceFile is the path the table was read from.
	SourceFile string
}

// Row is one record of a Table.
type Row struct {
	// Number is the 1-based row in the source file, for error reporting.
	Number int

	// Values maps field address to the trimmed cell text. Empty cells are
	// present with an empty value.
	Values map[string]string
}

// Clone returns a copy of the row whose Values can be modified freely.
func (r Row) Clone() Row {
	values := make(map[string]string, len(r.Values))
	for k, v := range r.Values {
		values[k] = v
	}
	return Row{Number: r.Number, Values: values}
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Parse reads a delimited import file.
//
// PARAMETERS:
//   - filePath: The path to the file.
//   - settings: The import settings of the matching profile.
//
// RETURNS:
//   - The parsed table.
//   - An error if the file cannot be read or has no header row.
func Parse(filePath string, settings config.ImportSettings) (*Table, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	table, err := ParseReader(file, settings)
	if err != nil {
		return nil, err
	}
	table.SourceFile = filePath
	return table, nil
}

// ParseReader reads delimited records from r.
func ParseReader(r io.Reader, settings config.ImportSettings) (*Table, error) {
	reader := bufio.NewReader(r)
	if head, err := reader.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = reader.Discard(len(utf8BOM))
	}

	csvReader := csv.NewReader(reader)
	configureReader(csvReader, settings)

	// encoding/csv skips blank lines; records are re-aligned to source lines
	// so row settings and reported row numbers match what an editor shows.
	var records [][]string
	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read records: %w", err)
		}
		line, _ := csvReader.FieldPos(0)
		for len(records) < line-1 {
			records = append(records, nil)
		}
		records = append(records, record)
	}

	return FromRecords(records, settings)
}

// configureReader configures the CSV reader based on the settings.
func configureReader(reader *csv.Reader, settings config.ImportSettings) {
	switch settings.Delimiter {
	case "\\t", "tab", "TAB", "":
		reader.Comma = '\t'
	case "|", "pipe", "PIPE":
		reader.Comma = '|'
	case ";", "semicolon":
		reader.Comma = ';'
	case ",", "comma":
		reader.Comma = ','
	default:
		reader.Comma = []rune(settings.Delimiter)[0]
	}

	// Template exports have ragged rows and stray quotes in free text.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	// With a whitespace delimiter this would swallow empty cells.
	reader.TrimLeadingSpace = !unicode.IsSpace(reader.Comma)
}

// FromRecords builds a table from raw rows. Both parsers funnel through here
// so the layout rules are applied once.
//
// PARAMETERS:
//   - records: Every row of the file, in order.
//   - settings: Header row, data start row and data start column.
//
// RETURNS:
//   - The table. SourceFile is left for the caller to set.
//   - An error if no header row is found or an address repeats.
func FromRecords(records [][]string, settings config.ImportSettings) (*Table, error) {
	headerRow := settings.HeaderRow
	if headerRow < 1 {
		headerRow = 1
	}
	dataStart := settings.DataStartRow
	if dataStart <= headerRow {
		dataStart = headerRow + 1
	}
	firstColumn := settings.DataStartColumn - 1
	if firstColumn < 0 {
		firstColumn = 0
	}

	headerIndex := -1
	for i := headerRow - 1; i < len(records) && i < dataStart-1; i++ {
		if !isRowEmpty(columnsFrom(records[i], firstColumn)) {
			headerIndex = i
			break
		}
	}
	if headerIndex < 0 {
		return nil, fmt.Errorf("no header row found at or after row %d", headerRow)
	}

	headers, err := extractHeaders(columnsFrom(records[headerIndex], firstColumn))
	if err != nil {
		return nil, err
	}

	table := &Table{Headers: headers}
	for i := dataStart - 1; i < len(records); i++ {
		cells := columnsFrom(records[i], firstColumn)
		if isRowEmpty(cells) {
			continue
		}

		values := make(map[string]string, len(headers))
		for col, header := range headers {
			if header == "" {
				continue
			}
			if col < len(cells) {
				values[header] = strings.TrimSpace(cells[col])
			} else {
				values[header] = ""
			}
		}
		table.Rows = append(table.Rows, Row{Number: i + 1, Values: values})
	}

	return table, nil
}

// extractHeaders trims the header cells and rejects repeated addresses.
func extractHeaders(cells []string) ([]string, error) {
	headers := make([]string, len(cells))
	seen := make(map[string]int, len(cells))

	for i, cell := range cells {
		header := strings.TrimSpace(cell)
		if header == "" {
			continue
		}
		if prev, ok := seen[header]; ok {
			return nil, fmt.Errorf("field %q appears in columns %d and %d", header, prev+1, i+1)
		}
		seen[header] = i
		headers[i] = header
	}

	return headers, nil
}

func columnsFrom(row []string, first int) []string {
	if first >= len(row) {
		return nil
	}
	return row[first:]
}

// isRowEmpty checks if a row contains only empty values.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// GetUniqueValues returns the distinct values of a field in first-seen order.
func GetUniqueValues(table *Table, header string) []string {
	seen := make(map[string]bool)
	var unique []string

	for _, row := range table.Rows {
		value := row.Values[header]
		if !seen[value] {
			seen[value] = true
			unique = append(unique, value)
		}
	}

	return unique
}
