package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/edi-enrollment/internal/csvparser"
	"github.com/ginjaninja78/edi-enrollment/internal/xlsxparser"
)

func enrollmentRow(values map[string]string) csvparser.Row {
	base := map[string]string{
		"Name.First":             "Alice",
		"Name.Last":              "Smith",
		"EmploymentInfo.GroupID": "G1",
		"DOB":                    "1980-01-15",
	}
	for k, v := range values {
		base[k] = v
	}
	return csvparser.Row{Number: 5, Values: base}
}

func rulesOf(result *ValidationResult) []string {
	rules := make([]string, 0, len(result.Errors))
	for _, e := range result.Errors {
		rules = append(rules, e.Field+":"+e.Rule)
	}
	return rules
}

func TestValidRow(t *testing.T) {
	v := NewValidator(EnrollmentRules())
	result := v.ValidateRow(enrollmentRow(map[string]string{
		"DOB":                      "1/15/1980",
		"Gender":                   "Female",
		"CoverageType":             "Employee Plus Family",
		"ElectedUnits":             "3",
		"Address.State":            "WA",
		"Dependents[1].Name.First": "",
		"Beneficiaries[2].Percent": "50",
	}))

	assert.True(t, result.IsValid, FormatErrors(result.Errors))
	assert.Equal(t, 10, result.FieldsValidated)
}

func TestRowRules(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
		want   string
	}{
		{"empty required", map[string]string{"Name.First": " "}, "Name.First:required"},
		{"empty date of birth", map[string]string{"DOB": ""}, "DOB:required"},
		{"city too long", map[string]string{"Address.City": "Llanfairpwllgwyngyllgogerychwyrn"}, "Address.City:max_length"},
		{"zip too long", map[string]string{"Address.Zip": "981011234X"}, "Address.Zip:max_length"},
		{"dependent last name too long", map[string]string{"Dependents[3].Name.Last": "Wolfeschlegelsteinhausen"}, "Dependents[3].Name.Last:max_length"},
		{"subscriber id too long", map[string]string{"SubscriberID": "12345678901"}, "SubscriberID:max_length"},
		{"routing too long", map[string]string{"RoutingNumber": "1234567890"}, "RoutingNumber:max_length"},
		{"bad date", map[string]string{"EffectiveDate": "31/31/2024"}, "EffectiveDate:data_type"},
		{"bad units", map[string]string{"ElectedUnits": "two"}, "ElectedUnits:data_type"},
		{"bad gender", map[string]string{"Gender": "X"}, "Gender:data_type"},
		{"bad relationship", map[string]string{"Dependents[1].Relationship": "Cousin"}, "Dependents[1].Relationship:data_type"},
		{"segment terminator", map[string]string{"Address.Street": "1 Main St~"}, "Address.Street:delimiter"},
		{"field separator in unknown field", map[string]string{"Notes": "a*b"}, "Notes:delimiter"},
	}

	v := NewValidator(EnrollmentRules())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := v.ValidateRow(enrollmentRow(tt.values))
			assert.False(t, result.IsValid)
			assert.Equal(t, []string{tt.want}, rulesOf(result))
			assert.Equal(t, 5, result.Errors[0].RowNumber)
		})
	}
}

func TestMissingRequiredColumn(t *testing.T) {
	row := csvparser.Row{Number: 6, Values: map[string]string{"Name.First": "Alice", "Name.Last": "Smith"}}

	result := NewValidator(EnrollmentRules()).ValidateRow(row)
	assert.Equal(t, []string{"DOB:required", "EmploymentInfo.GroupID:required"}, rulesOf(result))
	assert.Contains(t, result.Errors[0].Error(), "Row 6")
}

func TestClaimRules(t *testing.T) {
	v := NewValidator(ClaimRules())
	row := csvparser.Row{Number: 5, Values: map[string]string{
		"Name.First":                "Alice",
		"Name.Last":                 "Smith",
		"DOB":                       "1980-01-15",
		"ClaimNumber":               "C-1",
		"Facility":                  "11:B:1",
		"Services[1].Amount":        "$1,250.50",
		"Services[2].Amount":        "1.005",
		"Services[1].Units":         "2",
		"Services[1].ProcedureCode": "99213",
	}}

	result := v.ValidateRow(row)
	assert.Equal(t, []string{"Services[2].Amount:data_type"}, rulesOf(result))
}

func TestTableCounts(t *testing.T) {
	table := &csvparser.Table{Rows: []csvparser.Row{
		enrollmentRow(nil),
		enrollmentRow(map[string]string{"Address.State": "Washington"}),
	}}

	result := NewValidator(EnrollmentRules()).ValidateTable(table)
	assert.Equal(t, 2, result.RowsValidated)
	assert.Equal(t, 1, result.ErrorCount)
	assert.False(t, result.IsValid)
}

func TestMergeSchema(t *testing.T) {
	rules := EnrollmentRules().Merge(&xlsxparser.Schema{Fields: map[string]*xlsxparser.FieldRule{
		"Name.First": {Field: "Name.First", DataType: "string", MaxLength: 4, RequiredType: "required"},
		"SSN":        {Field: "SSN", DataType: "numeric", RequiredType: "required"},
	}})

	assert.Equal(t, 4, rules["Name.First"].MaxLength)
	assert.Equal(t, 11, rules["SSN"].MaxLength)
	assert.Equal(t, "numeric", rules["SSN"].DataType)
	assert.True(t, rules["SSN"].Required)

	result := NewValidator(rules).ValidateRow(enrollmentRow(map[string]string{"SSN": "123-45-6789"}))
	assert.Equal(t, []string{"Name.First:max_length", "SSN:data_type"}, rulesOf(result))
}

func TestPattern(t *testing.T) {
	assert.Equal(t, "Dependents[*].Name.First", Pattern("Dependents[12].Name.First"))
	assert.Equal(t, "SSN", Pattern("SSN"))
}

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"2024-06-15", "6/15/2024", "06/15/2024", "20240615", "2024/06/15", "6/15/24", "Jun 15, 2024", " 2024-06-15 "} {
		got, err := ParseDate(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), in)
	}

	_, err := ParseDate("15.06.2024")
	assert.Error(t, err)
}

func TestParseAmount(t *testing.T) {
	d, err := ParseAmount("$1,250.50")
	require.NoError(t, err)
	assert.Equal(t, "1250.5", d.String())

	_, err = ParseAmount("ten")
	assert.Error(t, err)
}
