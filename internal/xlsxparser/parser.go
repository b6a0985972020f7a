// =============================================================================
// EDI Generator - XLSX Parser
// =============================================================================
//
// This module reads Excel workbooks in two roles:
//
//   1. Import files. A filled-in enrollment or claim template is read into a
//      csvparser.Table using the same layout rules as delimited exports.
//
//   2. Schema templates. A workbook that overrides field limits per import
//      profile:
//
//   | Column A              | Column B  | Column C   | Column D          |
//   |-----------------------|-----------|------------|-------------------|
//   | Field Address         | Data Type | Max Length | Required/Optional |
//   | Name.First            | string    | 17         | required          |
//   | Dependents[*].DOB     | date      |            | optional          |
//   | Services[*].Amount    | decimal(2)|            | optional          |
//
// It can also write a blank import template, so the people filling in data
// get the exact addresses this release understands.
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/edi-enrollment/internal/config"
	"github.com/ginjaninja78/edi-enrollment/internal/csvparser"
)

// =============================================================================
// IMPORT WORKBOOKS
// =============================================================================

// Parse reads an import workbook into a table.
//
// PARAMETERS:
//   - filePath: The path to the XLSX file.
//   - settings: The import settings. Sheet selects the worksheet; the first
//     sheet is read when it is empty.
//
// RETURNS:
//   - The parsed table.
//   - An error if the workbook or sheet cannot be read.
func Parse(filePath string, settings config.ImportSettings) (*csvparser.Table, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheetName := settings.Sheet
	if sheetName == "" {
		sheetName = f.GetSheetName(0)
	}
	if sheetName == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheetName, err)
	}

	table, err := csvparser.FromRecords(rows, settings)
	if err != nil {
		return nil, err
	}
	table.SourceFile = filePath
	return table, nil
}

// =============================================================================
// SCHEMA TEMPLATES
// =============================================================================

// Schema is the set of field rules read from a schema template.
type Schema struct {
	// TemplateFile is the path to the source template file.
	TemplateFile string

	// Fields maps a field pattern ("Name.First", "Dependents[*].SSN") to its
	// rule.
	Fields map[string]*FieldRule
}

// FieldRule is the validation rule for one field pattern.
type FieldRule struct {
	// Field is the field pattern. Collection indexes are written as [*].
	Field string

	// DataType is one of string, numeric, decimal, decimal(n), date,
	// date(layout), alpha, alphanumeric, boolean.
	DataType string

	// MaxLength is the maximum allowed character length. 0 means no limit.
	MaxLength int

	// RequiredType is "required" or "optional".
	RequiredType string
}

// TemplateColumns defines which columns of a schema template hold which
// data. Indices are 0-based.
type TemplateColumns struct {
	FieldColumn     int
	DataTypeColumn  int
	MaxLengthColumn int
	RequiredColumn  int
	DataStartRow    int
}

// DefaultTemplateColumns returns the default column configuration.
func DefaultTemplateColumns() TemplateColumns {
	return TemplateColumns{
		FieldColumn:     0, // Column A
		DataTypeColumn:  1, // Column B
		MaxLengthColumn: 2, // Column C
		RequiredColumn:  3, // Column D
		DataStartRow:    1, // Row 2
	}
}

// ParseSchema reads a schema template using the default columns.
func ParseSchema(templatePath string) (*Schema, error) {
	return ParseSchemaWithConfig(templatePath, DefaultTemplateColumns())
}

// ParseSchemaWithConfig reads a schema template using a custom column
// configuration.
//
// PARAMETERS:
//   - templatePath: The path to the XLSX template file.
//   - columns: The column configuration for parsing.
//
// RETURNS:
//   - The schema.
//   - An error if the file cannot be read or a max length is not a number.
func ParseSchemaWithConfig(templatePath string, columns TemplateColumns) (*Schema, error) {
	f, err := excelize.OpenFile(templatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open template file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("template file has no sheets")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	schema := &Schema{
		TemplateFile: templatePath,
		Fields:       make(map[string]*FieldRule),
	}

	for i := columns.DataStartRow; i < len(rows); i++ {
		row := rows[i]
		if len(row) == 0 || isRowEmpty(row) {
			continue
		}

		rule, err := parseRow(row, columns)
		if err != nil {
			return nil, fmt.Errorf("error parsing row %d: %w", i+1, err)
		}
		if rule.Field == "" {
			continue
		}
		schema.Fields[rule.Field] = rule
	}

	return schema, nil
}

// parseRow extracts a FieldRule from a single row.
func parseRow(row []string, columns TemplateColumns) (*FieldRule, error) {
	getCell := func(index int) string {
		if index < len(row) {
			return strings.TrimSpace(row[index])
		}
		return ""
	}

	rule := &FieldRule{
		Field:        getCell(columns.FieldColumn),
		DataType:     normalizeDataType(getCell(columns.DataTypeColumn)),
		RequiredType: normalizeRequiredType(getCell(columns.RequiredColumn)),
	}

	if maxLength := getCell(columns.MaxLengthColumn); maxLength != "" {
		n, err := strconv.Atoi(maxLength)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("max length %q is not a non-negative number", maxLength)
		}
		rule.MaxLength = n
	}

	return rule, nil
}

// =============================================================================
// TEMPLATE GENERATION
// =============================================================================

// Guidance describes one column of a generated import template.
type Guidance struct {
	Field     string
	Help      string
	Required  bool
	MaxLength int
}

// WriteTemplate writes a blank import workbook: addresses in row 1, three
// guidance rows, data from row 5, column A reserved for row labels.
//
// PARAMETERS:
//   - path: The workbook to create. An existing file is overwritten.
//   - sheet: The worksheet name.
//   - columns: The fields in column order.
func WriteTemplate(path, sheet string, columns []Guidance) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	labels := []string{"Field", "Description", "Required", "Max Length"}
	for r, label := range labels {
		cell, _ := excelize.CoordinatesToCellName(1, r+1)
		if err := f.SetCellStr(sheet, cell, label); err != nil {
			return fmt.Errorf("failed to write %s: %w", cell, err)
		}
	}

	for c, col := range columns {
		values := []string{col.Field, col.Help, "optional", ""}
		if col.Required {
			values[2] = "required"
		}
		if col.MaxLength > 0 {
			values[3] = strconv.Itoa(col.MaxLength)
		}
		for r, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+2, r+1)
			if err := f.SetCellStr(sheet, cell, v); err != nil {
				return fmt.Errorf("failed to write %s: %w", cell, err)
			}
		}
	}

	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		XSplit:      1,
		YSplit:      4,
		TopLeftCell: "B5",
		ActivePane:  "bottomRight",
	}); err != nil {
		return fmt.Errorf("failed to freeze header rows: %w", err)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save template: %w", err)
	}
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// isRowEmpty checks if a row contains only empty cells.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// normalizeRequiredType normalizes the required type to a standard value.
func normalizeRequiredType(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "required", "req", "r", "yes", "y", "true", "1", "mandatory":
		return "required"
	default:
		return "optional"
	}
}

// normalizeDataType normalizes the data type to a standard value.
func normalizeDataType(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))

	// Keep parameters such as "decimal(2)" or "date(2006-01-02)".
	if strings.HasPrefix(value, "decimal") || strings.HasPrefix(value, "date") {
		return value
	}

	switch value {
	case "numeric", "num", "number", "int", "integer":
		return "numeric"
	case "alphanumeric", "alphanum", "an":
		return "alphanumeric"
	case "alpha", "a", "letters":
		return "alpha"
	case "boolean", "bool", "bit":
		return "boolean"
	default:
		return "string"
	}
}
