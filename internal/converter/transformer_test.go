package converter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/edi-enrollment/internal/config"
	"github.com/ginjaninja78/edi-enrollment/internal/csvparser"
)

func TestApplyTransformation(t *testing.T) {
	tests := []struct {
		name   string
		value  string
		action config.TransformationAction
		want   string
	}{
		{"prepend", "100", config.TransformationAction{Type: "prepend_string", Value: "S"}, "S100"},
		{"append", "100", config.TransformationAction{Type: "append_string", Value: "A"}, "100A"},
		{"trim", "  Jane ", config.TransformationAction{Type: "trim"}, "Jane"},
		{"uppercase", "wa", config.TransformationAction{Type: "uppercase"}, "WA"},
		{"lowercase", "JANE@EXAMPLE.COM", config.TransformationAction{Type: "lowercase"}, "jane@example.com"},
		{"replace", "1 Main St.", config.TransformationAction{Type: "replace", Find: ".", Value: ""}, "1 Main St"},
		{"regex replace", "(555) 010-2000", config.TransformationAction{Type: "regex_replace", Find: "[^0-9]", Value: ""}, "5550102000"},
		{"pad zeros", "42", config.TransformationAction{Type: "pad_zeros_to_length", Value: "5"}, "00042"},
		{"pad zeros keeps empty", "", config.TransformationAction{Type: "pad_zeros_to_length", Value: "5"}, ""},
		{"remove leading zeros", "000", config.TransformationAction{Type: "remove_leading_zeros"}, "0"},
		{"format date", "01/15/2024", config.TransformationAction{Type: "format_date", Value: "01/02/2006|2006-01-02"}, "2024-01-15"},
		{"format date leaves mismatch", "Jan 15", config.TransformationAction{Type: "format_date", Value: "01/02/2006|2006-01-02"}, "Jan 15"},
		{"lookup", "SP", config.TransformationAction{Type: "lookup", LookupTable: map[string]string{"SP": "Spouse"}}, "Spouse"},
		{"lookup miss", "XX", config.TransformationAction{Type: "lookup", LookupTable: map[string]string{"SP": "Spouse"}}, "XX"},
		{"lookup with default", "XX", config.TransformationAction{Type: "lookup_with_default", Value: "Other", LookupTable: map[string]string{"SP": "Spouse"}}, "Other"},
		{"if empty", " ", config.TransformationAction{Type: "if_empty_use_default", Value: "Single"}, "Single"},
		{"extract digits", "123-45-6789", config.TransformationAction{Type: "extract_digits"}, "123456789"},
		{"remove special chars", "O'Brien-Smith", config.TransformationAction{Type: "remove_special_chars"}, "OBrienSmith"},
		{"normalize whitespace", " 1  Main\tSt ", config.TransformationAction{Type: "normalize_whitespace"}, "1 Main St"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ApplyTransformation(tt.value, tt.action)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApplyTransformationErrors(t *testing.T) {
	_, err := ApplyTransformation("x", config.TransformationAction{Type: "rot13"})
	assert.Error(t, err)

	_, err = ApplyTransformation("x", config.TransformationAction{Type: "regex_replace", Find: "("})
	assert.Error(t, err)
}

func TestTransformRowMatchesIndexPattern(t *testing.T) {
	tr := NewTransformer([]config.TransformationRule{
		{Field: "Dependents[*].SSN", Actions: []config.TransformationAction{{Type: "extract_digits"}}},
		{Field: "SubscriberID", Actions: []config.TransformationAction{
			{Type: "trim"},
			{Type: "pad_zeros_to_length", Value: "6"},
		}},
	})

	r := csvparser.Row{Number: 5, Values: map[string]string{
		"SSN":               "123-45-6789",
		"Dependents[2].SSN": "987-65-4321",
		"SubscriberID":      " 42 ",
	}}
	require.NoError(t, tr.TransformRow(&r))

	assert.Equal(t, "123-45-6789", r.Values["SSN"])
	assert.Equal(t, "987654321", r.Values["Dependents[2].SSN"])
	assert.Equal(t, "000042", r.Values["SubscriberID"])
}

func TestApplyStaticFields(t *testing.T) {
	r := csvparser.Row{Values: map[string]string{"EmploymentInfo.GroupID": "", "Name.First": "Jane"}}
	ApplyStaticFields(&r, []config.StaticField{
		{Field: "EmploymentInfo.GroupID", Value: "G9"},
		{Field: "Name.First", Value: "Nobody"},
		{Field: "EmploymentInfo.EmployerName", Value: "Acme"},
	})

	assert.Equal(t, "G9", r.Values["EmploymentInfo.GroupID"])
	assert.Equal(t, "Jane", r.Values["Name.First"])
	assert.Equal(t, "Acme", r.Values["EmploymentInfo.EmployerName"])
}
