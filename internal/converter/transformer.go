// =============================================================================
// EDI Generator - Transformation Engine
// =============================================================================
//
// This module rewrites raw import values before validation and mapping.
// Import profiles use it to adapt an HR or billing export to the template
// conventions without editing the export by hand. Common use cases include:
//   - Stripping punctuation from SSNs and phone numbers
//   - Zero-padding subscriber ids
//   - Translating a payroll system's codes to enum names
//   - Reformatting dates
//
// Rules are matched by field address. A rule for "Dependents[*].SSN" applies
// to every dependent's SSN column.
//
// =============================================================================

package converter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ginjaninja78/edi-enrollment/internal/config"
	"github.com/ginjaninja78/edi-enrollment/internal/csvparser"
	"github.com/ginjaninja78/edi-enrollment/internal/validation"
	"github.com/ginjaninja78/edi-enrollment/internal/x12"
)

// =============================================================================
// TRANSFORMER
// =============================================================================

// Transformer handles field value transformations.
type Transformer struct {
	rules []config.TransformationRule
}

// NewTransformer creates a new Transformer with the given rules.
func NewTransformer(rules []config.TransformationRule) *Transformer {
	return &Transformer{rules: rules}
}

// Transform applies every rule matching field to value, in rule order.
//
// PARAMETERS:
//   - field: The field address being transformed.
//   - value: The current value of the field.
//
// RETURNS:
//   - The transformed value.
//   - An error if any transformation fails.
func (t *Transformer) Transform(field, value string) (string, error) {
	pattern := validation.Pattern(field)

	result := value
	for _, rule := range t.rules {
		if rule.Field != field && rule.Field != pattern {
			continue
		}
		for _, action := range rule.Actions {
			var err error
			result, err = ApplyTransformation(result, action)
			if err != nil {
				return "", fmt.Errorf("transformation '%s' failed: %w", action.Type, err)
			}
		}
	}

	return result, nil
}

// TransformRow applies all rules to a row in place.
func (t *Transformer) TransformRow(row *csvparser.Row) error {
	for field, value := range row.Values {
		transformed, err := t.Transform(field, value)
		if err != nil {
			return fmt.Errorf("row %d, field '%s': %w", row.Number, field, err)
		}
		row.Values[field] = transformed
	}
	return nil
}

// ApplyTransformation applies a single transformation action.
//
// SUPPORTED TRANSFORMATIONS:
//   See the switch statement below for all supported transformation types.
func ApplyTransformation(value string, action config.TransformationAction) (string, error) {
	switch action.Type {

	// =========================================================================
	// STRING MANIPULATIONS
	// =========================================================================

	case "prepend_string":
		return action.Value + value, nil

	case "append_string":
		return value + action.Value, nil

	case "trim":
		return strings.TrimSpace(value), nil

	case "uppercase":
		return strings.ToUpper(value), nil

	case "lowercase":
		return strings.ToLower(value), nil

	case "replace":
		if action.Find == "" {
			return value, nil
		}
		return strings.ReplaceAll(value, action.Find, action.Value), nil

	case "regex_replace":
		// EXAMPLE:
		//   Input: "(555) 010-2000"
		//   Action: regex_replace with find "[^0-9]" and value ""
		//   Output: "5550102000"
		if action.Find == "" {
			return value, nil
		}
		re, err := regexp.Compile(action.Find)
		if err != nil {
			return "", fmt.Errorf("invalid regex pattern: %w", err)
		}
		return re.ReplaceAllString(value, action.Value), nil

	// =========================================================================
	// NUMERIC FORMATTING
	// =========================================================================

	case "pad_zeros_to_length":
		// Empty values stay empty so optional fields are not invented.
		targetLength, err := strconv.Atoi(action.Value)
		if err != nil || targetLength <= 0 || value == "" {
			return value, nil
		}
		return x12.PadLeft(value, targetLength, '0'), nil

	case "remove_leading_zeros":
		result := strings.TrimLeft(value, "0")
		if result == "" && value != "" {
			return "0", nil
		}
		return result, nil

	// =========================================================================
	// DATE CONVERSIONS
	// =========================================================================

	case "format_date":
		// VALUE FORMAT: "input_format|output_format" in Go layouts.
		//   "01/02/2006|2006-01-02" turns "01/15/2024" into "2024-01-15".
		// Values that do not match the input layout are left for the
		// validator to report.
		parts := strings.Split(action.Value, "|")
		if len(parts) != 2 || value == "" {
			return value, nil
		}
		t, err := time.Parse(strings.TrimSpace(parts[0]), value)
		if err != nil {
			return value, nil
		}
		return t.Format(strings.TrimSpace(parts[1])), nil

	// =========================================================================
	// LOOKUP TABLE REPLACEMENTS
	// =========================================================================

	case "lookup":
		// EXAMPLE:
		//   Input: "SP"
		//   Action: lookup with lookup_table {"SP": "Spouse", "CH": "Child"}
		//   Output: "Spouse"
		if replacement, exists := action.LookupTable[value]; exists {
			return replacement, nil
		}
		return value, nil

	case "lookup_with_default":
		if replacement, exists := action.LookupTable[value]; exists {
			return replacement, nil
		}
		return action.Value, nil

	// =========================================================================
	// CONDITIONAL TRANSFORMATIONS
	// =========================================================================

	case "if_empty_use_default":
		if strings.TrimSpace(value) == "" {
			return action.Value, nil
		}
		return value, nil

	// =========================================================================
	// SPECIAL TRANSFORMATIONS
	// =========================================================================

	case "extract_digits":
		return digitsOnly.ReplaceAllString(value, ""), nil

	case "remove_special_chars":
		return specialChars.ReplaceAllString(value, ""), nil

	case "normalize_whitespace":
		return strings.TrimSpace(whitespace.ReplaceAllString(value, " ")), nil

	default:
		return "", fmt.Errorf("unknown transformation type: %s", action.Type)
	}
}

var (
	digitsOnly   = regexp.MustCompile(`\D`)
	specialChars = regexp.MustCompile(`[^a-zA-Z0-9]`)
	whitespace   = regexp.MustCompile(`\s+`)
)

// ApplyStaticFields fills empty or missing fields of a row with the
// profile's constant values.
func ApplyStaticFields(row *csvparser.Row, fields []config.StaticField) {
	for _, f := range fields {
		if strings.TrimSpace(row.Values[f.Field]) == "" {
			row.Values[f.Field] = f.Value
		}
	}
}
