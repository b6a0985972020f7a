package converter

import (
	"sort"
	"strconv"
	"strings"

	"github.com/ginjaninja78/edi-enrollment/internal/config"
	"github.com/ginjaninja78/edi-enrollment/internal/validation"
	"github.com/ginjaninja78/edi-enrollment/internal/xlsxparser"
)

// aliases are accepted on import but not offered in templates.
var aliases = map[string]bool{"MiddleInitial": true}

// TemplateGuidance lists the import columns of kind with their limits.
// Collections are expanded to items entries each.
func TemplateGuidance(kind string, items int) []xlsxparser.Guidance {
	if items < 1 {
		items = 1
	}

	rules := validation.EnrollmentRules()
	top := keys(enrolleeFields)
	collections := map[string][]string{
		"Dependents":    keys(dependentFields),
		"Beneficiaries": keys(beneficiaryFields),
	}
	if kind == config.KindClaim {
		rules = validation.ClaimRules()
		top = keys(claimFields)
		collections = map[string][]string{"Services": keys(serviceFields)}
	}

	var columns []xlsxparser.Guidance
	for _, field := range top {
		columns = append(columns, guidance(field, rules))
	}

	names := make([]string, 0, len(collections))
	for name := range collections {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for i := 1; i <= items; i++ {
			for _, field := range collections[name] {
				columns = append(columns, guidance(name+"["+strconv.Itoa(i)+"]."+field, rules))
			}
		}
	}
	return columns
}

func guidance(field string, rules validation.Rules) xlsxparser.Guidance {
	g := xlsxparser.Guidance{Field: field, Help: "Text"}
	rule, ok := rules[validation.Pattern(field)]
	if !ok {
		return g
	}
	g.Required = rule.Required
	g.MaxLength = rule.MaxLength

	switch {
	case rule.DataType == validation.TypeDate:
		g.Help = "Date, e.g. 2024-01-31"
	case rule.DataType == validation.TypeNumeric:
		g.Help = "Whole number"
	case strings.HasPrefix(rule.DataType, validation.TypeDecimal):
		g.Help = "Amount, e.g. 125.00"
	case rule.DataType != "" && rule.DataType != validation.TypeString:
		g.Help = "Name of a " + strings.ReplaceAll(rule.DataType, "_", " ")
	}
	return g
}

func keys[T any](table setters[T]) []string {
	out := make([]string, 0, len(table))
	for field := range table {
		last := field[strings.LastIndex(field, ".")+1:]
		if aliases[last] {
			continue
		}
		out = append(out, field)
	}
	sort.Strings(out)
	return out
}
