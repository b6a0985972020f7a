// =============================================================================
// EDI Generator - Validation Engine
// =============================================================================
//
// This module validates imported records before they are mapped onto the
// enrollment and claim aggregates. Every rule is checked against the raw
// cell text so an error can name the row, the field address and the value
// exactly as the person filling in the template typed them.
//
// RULES:
//   - Required fields (names, group id, claim number)
//   - Character limits (street 40, city 29, state 2, zip 9, first name 17,
//     last name 20, ...)
//   - Data types (dates, whole numbers, money amounts, enum names)
//   - X12 delimiters: a value containing a field, segment, repetition or
//     component separator would corrupt the interchange and is rejected
//
// Rules are keyed by field pattern. A collection index is written as [*], so
// "Dependents[*].Name.First" applies to every dependent column.
//
// ERROR HANDLING:
//   - Errors are collected, not returned on the first failure
//   - Each error carries the source row, field, value and rule
//
// =============================================================================

package validation

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/edi-enrollment/internal/csvparser"
	"github.com/ginjaninja78/edi-enrollment/internal/domain"
	"github.com/ginjaninja78/edi-enrollment/internal/x12"
	"github.com/ginjaninja78/edi-enrollment/internal/xlsxparser"
)

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ValidationError represents a single validation error.
type ValidationError struct {
	// Severity is SeverityError or SeverityWarning.
	Severity string

	// Field is the field address that failed validation.
	Field string

	// Value is the actual value that failed validation.
	Value string

	// Rule is the validation rule that was violated.
	Rule string

	// Message is a human-readable error message.
	Message string

	// RowNumber is the source row (for error reporting).
	RowNumber int
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] Row %d, Field '%s': %s (value: '%s')",
		strings.ToUpper(e.Severity),
		e.RowNumber,
		e.Field,
		e.Message,
		e.Value,
	)
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// ValidationResult contains the results of validation.
type ValidationResult struct {
	// IsValid is true if there are no fatal errors.
	IsValid bool

	// Errors contains all validation errors (including warnings).
	Errors []*ValidationError

	ErrorCount      int
	WarningCount    int
	FieldsValidated int
	RowsValidated   int
}

func (r *ValidationResult) add(err *ValidationError, warningsAsErrors bool) {
	r.Errors = append(r.Errors, err)
	if err.Severity == SeverityError {
		r.ErrorCount++
		r.IsValid = false
		return
	}
	r.WarningCount++
	if warningsAsErrors {
		r.IsValid = false
	}
}

// =============================================================================
// FIELD RULES
// =============================================================================

// Rule is the validation rule for one field pattern.
type Rule struct {
	Field     string
	DataType  string
	MaxLength int
	Required  bool

	// Composite values may contain the component separator.
	Composite bool
}

// Data types understood by the validator in addition to the xlsxparser
// schema types.
const (
	TypeString       = "string"
	TypeNumeric      = "numeric"
	TypeDecimal      = "decimal"
	TypeDate         = "date"
	TypeGender       = "gender"
	TypeRelationship = "relationship"
	TypeStatus       = "relationship_status"
	TypeCoverage     = "coverage_type"
	TypePayroll      = "payroll_type"
	TypeEntity       = "entity_type"
	TypeEmployee     = "employee_status"
)

// Rules is a set of rules keyed by field pattern.
type Rules map[string]Rule

func (rs Rules) put(rules ...Rule) Rules {
	for _, r := range rules {
		rs[r.Field] = r
	}
	return rs
}

func nameRules(prefix string, required bool) []Rule {
	return []Rule{
		{Field: prefix + "Name.First", MaxLength: 17, Required: required},
		{Field: prefix + "Name.Middle", MaxLength: 17},
		{Field: prefix + "Name.Last", MaxLength: 20, Required: required},
	}
}

func addressRules(prefix string) []Rule {
	return []Rule{
		{Field: prefix + "Street", MaxLength: 40},
		{Field: prefix + "City", MaxLength: 29},
		{Field: prefix + "State", MaxLength: 2},
		{Field: prefix + "Zip", MaxLength: 9},
	}
}

func personRules(prefix string, required bool) []Rule {
	rules := nameRules(prefix, required)
	rules = append(rules, addressRules(prefix+"Address.")...)
	return append(rules,
		Rule{Field: prefix + "Gender", DataType: TypeGender},
		Rule{Field: prefix + "DOB", DataType: TypeDate, Required: required},
		Rule{Field: prefix + "SSN", MaxLength: 11},
		Rule{Field: prefix + "Phone", MaxLength: 20},
		Rule{Field: prefix + "AltPhone", MaxLength: 20},
		Rule{Field: prefix + "Email", MaxLength: 80},
	)
}

func employmentRules(groupRequired bool) []Rule {
	return []Rule{
		{Field: "EmploymentInfo.EmployerName", MaxLength: 60},
		{Field: "EmploymentInfo.GroupID", MaxLength: 30, Required: groupRequired},
		{Field: "EmploymentInfo.EmployeeStatus", DataType: TypeEmployee},
		{Field: "SubscriberID", MaxLength: 10},
		{Field: "RelationshipStatus", DataType: TypeStatus},
	}
}

// EnrollmentRules returns the rules for enrollment imports.
func EnrollmentRules() Rules {
	rules := Rules{}
	rules.put(personRules("", true)...)
	rules.put(employmentRules(true)...)
	rules.put(addressRules("MailingAddress.")...)
	rules.put(
		Rule{Field: "AccountNumber", MaxLength: 20},
		Rule{Field: "RoutingNumber", MaxLength: 9},
		Rule{Field: "PayrollType", DataType: TypePayroll},
		Rule{Field: "CoverageType", DataType: TypeCoverage},
		Rule{Field: "ElectedUnits", DataType: TypeNumeric},
		Rule{Field: "EffectiveDate", DataType: TypeDate},
		Rule{Field: "DateSigned", DataType: TypeDate},
		Rule{Field: "TermDate", DataType: TypeDate},
	)
	rules.put(personRules("Dependents[*].", false)...)
	rules.put(Rule{Field: "Dependents[*].Relationship", DataType: TypeRelationship})
	rules.put(nameRules("Beneficiaries[*].", false)...)
	rules.put(
		Rule{Field: "Beneficiaries[*].Relationship", DataType: TypeRelationship},
		Rule{Field: "Beneficiaries[*].Percent", DataType: TypeNumeric, MaxLength: 3},
	)
	return rules
}

// ClaimRules returns the rules for claim imports.
func ClaimRules() Rules {
	rules := Rules{}
	rules.put(personRules("", true)...)
	rules.put(employmentRules(false)...)
	rules.put(personRules("Patient.", false)...)
	rules.put(
		Rule{Field: "Patient.Relationship", DataType: TypeRelationship},
		Rule{Field: "ClaimNumber", MaxLength: 38, Required: true},
		Rule{Field: "Facility", MaxLength: 10, Composite: true},
		Rule{Field: "ICDCode", MaxLength: 30},
		Rule{Field: "Services[*].ProcedureCode", MaxLength: 48},
		Rule{Field: "Services[*].ServiceID", MaxLength: 50},
		Rule{Field: "Services[*].Amount", DataType: TypeDecimal + "(2)"},
		Rule{Field: "Services[*].Units", DataType: TypeNumeric},
		Rule{Field: "Services[*].DateOfService", DataType: TypeDate},
	)
	return rules
}

// Merge overlays the rules of a schema template.
func (rs Rules) Merge(schema *xlsxparser.Schema) Rules {
	if schema == nil {
		return rs
	}
	for field, fr := range schema.Fields {
		r := rs[field]
		r.Field = field
		if fr.DataType != "" && fr.DataType != TypeString {
			r.DataType = fr.DataType
		}
		if fr.MaxLength > 0 {
			r.MaxLength = fr.MaxLength
		}
		r.Required = fr.RequiredType == "required"
		rs[field] = r
	}
	return rs
}

var indexPattern = regexp.MustCompile(`\[\d+\]`)

// Pattern replaces collection indexes in a field address with [*].
func Pattern(field string) string {
	return indexPattern.ReplaceAllString(field, "[*]")
}

// =============================================================================
// VALIDATOR
// =============================================================================

// ValidationOptions contains options for validation.
type ValidationOptions struct {
	// TreatWarningsAsErrors makes warnings invalidate the result.
	TreatWarningsAsErrors bool

	// Delimiters are the separators values may not contain.
	Delimiters x12.Delimiters
}

// DefaultValidationOptions returns the default validation options.
func DefaultValidationOptions() ValidationOptions {
	return ValidationOptions{Delimiters: x12.DefaultDelimiters()}
}

// Validator checks table rows against a rule set.
type Validator struct {
	rules   Rules
	options ValidationOptions
}

// NewValidator creates a new Validator with default options.
func NewValidator(rules Rules) *Validator {
	return NewValidatorWithOptions(rules, DefaultValidationOptions())
}

// NewValidatorWithOptions creates a new Validator with custom options.
func NewValidatorWithOptions(rules Rules, options ValidationOptions) *Validator {
	return &Validator{rules: rules, options: options}
}

// ValidateTable validates every row of a table.
func (v *Validator) ValidateTable(table *csvparser.Table) *ValidationResult {
	result := &ValidationResult{IsValid: true, Errors: make([]*ValidationError, 0)}
	for _, row := range table.Rows {
		v.validateRow(row, result)
		result.RowsValidated++
	}
	return result
}

// ValidateRow validates a single row.
func (v *Validator) ValidateRow(row csvparser.Row) *ValidationResult {
	result := &ValidationResult{IsValid: true, Errors: make([]*ValidationError, 0)}
	v.validateRow(row, result)
	result.RowsValidated = 1
	return result
}

func (v *Validator) validateRow(row csvparser.Row, result *ValidationResult) {
	fields := make([]string, 0, len(row.Values))
	for field := range row.Values {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	// Required fields must be present as columns, not just non-empty.
	required := make([]string, 0)
	for field, rule := range v.rules {
		if rule.Required && !strings.Contains(field, "[*]") {
			if _, ok := row.Values[field]; !ok {
				required = append(required, field)
			}
		}
	}
	sort.Strings(required)
	for _, field := range required {
		result.add(&ValidationError{
			Severity:  SeverityError,
			Field:     field,
			Rule:      "required",
			Message:   fmt.Sprintf("Required field '%s' is missing", field),
			RowNumber: row.Number,
		}, v.options.TreatWarningsAsErrors)
	}

	for _, field := range fields {
		value := row.Values[field]
		result.FieldsValidated++
		for _, err := range v.ValidateField(field, value) {
			err.RowNumber = row.Number
			result.add(err, v.options.TreatWarningsAsErrors)
		}
	}
}

// ValidateField validates one value against the rule for its address.
// Fields without a rule are only checked for delimiters.
func (v *Validator) ValidateField(field, value string) []*ValidationError {
	var errors []*ValidationError
	rule, known := v.rules[Pattern(field)]

	if known && rule.Required && strings.TrimSpace(value) == "" {
		return append(errors, &ValidationError{
			Severity: SeverityError,
			Field:    field,
			Value:    value,
			Rule:     "required",
			Message:  fmt.Sprintf("Required field '%s' is empty", field),
		})
	}

	if value == "" {
		return errors
	}

	delims := v.options.Delimiters
	if known && rule.Composite {
		delims.Component = ""
	}
	if delims.Conflicts(value) {
		errors = append(errors, &ValidationError{
			Severity: SeverityError,
			Field:    field,
			Value:    value,
			Rule:     "delimiter",
			Message:  "Value contains an X12 delimiter character",
		})
	}

	if !known {
		return errors
	}

	if rule.MaxLength > 0 && len([]rune(value)) > rule.MaxLength {
		errors = append(errors, &ValidationError{
			Severity: SeverityError,
			Field:    field,
			Value:    value,
			Rule:     "max_length",
			Message:  fmt.Sprintf("Value exceeds maximum length of %d characters (actual: %d)", rule.MaxLength, len([]rune(value))),
		})
	}

	if msg := validateDataType(value, rule.DataType); msg != "" {
		errors = append(errors, &ValidationError{
			Severity: SeverityError,
			Field:    field,
			Value:    value,
			Rule:     "data_type",
			Message:  msg,
		})
	}

	return errors
}

// =============================================================================
// DATA TYPE VALIDATORS
// =============================================================================

// validateDataType returns an error message if value is not of dataType.
func validateDataType(value, dataType string) string {
	switch {
	case dataType == TypeString || dataType == "":
		return ""
	case dataType == TypeNumeric:
		return validateNumeric(value)
	case strings.HasPrefix(dataType, TypeDecimal):
		return validateDecimal(value, dataType)
	case strings.HasPrefix(dataType, TypeDate):
		return validateDate(value, dataType)
	case dataType == "alphanumeric":
		return validateAlphanumeric(value)
	case dataType == "alpha":
		return validateAlpha(value)
	case dataType == "boolean":
		return validateBoolean(value)
	default:
		if parse, ok := enumParsers[dataType]; ok {
			if err := parse(value); err != nil {
				return err.Error()
			}
		}
		return ""
	}
}

// enumParsers check enum names with the domain parsers.
var enumParsers = map[string]func(string) error{
	TypeGender:       func(s string) error { _, err := domain.ParseGender(s); return err },
	TypeRelationship: func(s string) error { _, err := domain.ParseRelationship(s); return err },
	TypeStatus:       func(s string) error { _, err := domain.ParseRelationshipStatus(s); return err },
	TypeCoverage:     func(s string) error { _, err := domain.ParseCoverageType(s); return err },
	TypePayroll:      func(s string) error { _, err := domain.ParsePayrollType(s); return err },
	TypeEntity:       func(s string) error { _, err := domain.ParseEntityType(s); return err },
	TypeEmployee:     func(s string) error { _, err := domain.ParseEmployeeStatus(s); return err },
}

// validateNumeric validates that a value is a whole number.
func validateNumeric(value string) string {
	if _, err := strconv.Atoi(strings.TrimSpace(value)); err != nil {
		return fmt.Sprintf("Value '%s' is not a valid integer", value)
	}
	return ""
}

// validateDecimal validates a money amount. An optional precision such as
// "decimal(2)" limits the decimal places.
func validateDecimal(value, dataType string) string {
	d, err := ParseAmount(value)
	if err != nil {
		return fmt.Sprintf("Value '%s' is not a valid decimal number", value)
	}

	if precisionStr := extractParenthesesContent(dataType); precisionStr != "" {
		precision, err := strconv.Atoi(precisionStr)
		if err == nil && precision >= 0 && -d.Exponent() > int32(precision) {
			return fmt.Sprintf("Value '%s' has more than %d decimal places", value, precision)
		}
	}

	return ""
}

// validateDate validates a date in one of DateLayouts, or in the layout
// given in parentheses.
func validateDate(value, dataType string) string {
	if layout := extractParenthesesContent(dataType); layout != "" {
		if _, err := time.Parse(layout, strings.TrimSpace(value)); err != nil {
			return fmt.Sprintf("Value '%s' does not match date format '%s'", value, layout)
		}
		return ""
	}
	if _, err := ParseDate(value); err != nil {
		return fmt.Sprintf("Value '%s' is not a valid date", value)
	}
	return ""
}

// validateAlphanumeric validates that a value contains only letters and numbers.
func validateAlphanumeric(value string) string {
	for _, r := range value {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r) {
			return fmt.Sprintf("Value '%s' contains non-alphanumeric characters", value)
		}
	}
	return ""
}

// validateAlpha validates that a value contains only letters.
func validateAlpha(value string) string {
	for _, r := range value {
		if !unicode.IsLetter(r) && !unicode.IsSpace(r) {
			return fmt.Sprintf("Value '%s' contains non-alphabetic characters", value)
		}
	}
	return ""
}

// validateBoolean validates that a value is a valid boolean.
func validateBoolean(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "false", "yes", "no", "1", "0", "y", "n", "t", "f":
		return ""
	}
	return fmt.Sprintf("Value '%s' is not a valid boolean", value)
}

// =============================================================================
// VALUE PARSERS
// =============================================================================

// DateLayouts are the date formats accepted in import files, tried in order.
var DateLayouts = []string{
	"2006-01-02",
	"1/2/2006",
	"20060102",
	"2006/01/02",
	"1/2/06",
	"Jan 2, 2006",
	"January 2, 2006",
	"2006-01-02T15:04:05",
}

// ParseDate parses a date in any of DateLayouts. The result is midnight UTC.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return domain.Date(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not a recognized date", value)
}

// ParseAmount parses a money amount, allowing a leading "$" and thousands
// separators.
func ParseAmount(value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	value = strings.TrimPrefix(value, "$")
	value = strings.ReplaceAll(value, ",", "")
	return decimal.NewFromString(value)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// extractParenthesesContent extracts content between parentheses.
// Example: "decimal(2)" -> "2"
func extractParenthesesContent(s string) string {
	start := strings.Index(s, "(")
	end := strings.LastIndex(s, ")")

	if start != -1 && end != -1 && end > start {
		return s[start+1 : end]
	}

	return ""
}

// =============================================================================
// ERROR FORMATTING
// =============================================================================

// FormatErrors formats validation errors for display or logging.
func FormatErrors(errors []*ValidationError) string {
	if len(errors) == 0 {
		return "No validation errors."
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Validation completed with %d error(s):\n\n", len(errors)))
	for i, err := range errors {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, err.Error()))
	}
	return builder.String()
}
