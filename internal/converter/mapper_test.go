package converter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/edi-enrollment/internal/csvparser"
	"github.com/ginjaninja78/edi-enrollment/internal/domain"
)

func row(values map[string]string) csvparser.Row {
	return csvparser.Row{Number: 9, Values: values}
}

func TestMapEnrollee(t *testing.T) {
	e, err := MapEnrollee(row(map[string]string{
		"Name.First":                    "Jane",
		"Name.MiddleInitial":            "Q",
		"Name.Last":                     "Doe",
		"Gender":                        "F",
		"DOB":                           "3/4/1985",
		"EmploymentInfo.GroupID":        "G1",
		"EmploymentInfo.EmployeeStatus": "Owner",
		"SubscriberID":                  "S100",
		"RelationshipStatus":            "Married",
		"CoverageType":                  "Employee Plus Family",
		"PayrollType":                   "Bi-Weekly",
		"ElectedUnits":                  "3",
		"EffectiveDate":                 "2024-01-01",
		"MailingAddress.City":           "Springfield",
		"Dependents[2].Name.First":      "Ann",
		"Dependents[2].Relationship":    "Spouse",
		"Dependents[1].Name.First":      "Tim",
		"Dependents[3].Name.First":      "",
		"Beneficiaries[1].Name.Last":    "Roe",
		"Beneficiaries[1].Percent":      "60",
	}))
	require.NoError(t, err)

	assert.Equal(t, "Jane", e.Name.First)
	assert.Equal(t, "Q", e.Name.MiddleInitial())
	assert.Equal(t, domain.GenderFemale, e.Gender)
	assert.Equal(t, time.Date(1985, 3, 4, 0, 0, 0, 0, time.UTC), e.DOB)
	assert.Equal(t, "G1", e.GroupID())
	assert.Equal(t, domain.EmployeeOwner, e.Employment.EmployeeStatus)
	assert.Equal(t, domain.StatusMarried, e.RelationshipStatus)
	assert.Equal(t, domain.CoverageEmployeePlusFamily, e.CoverageType)
	assert.Equal(t, domain.PayrollBiweekly, e.PayrollType)
	assert.Equal(t, 3, e.ElectedUnits)
	require.NotNil(t, e.MailingAddress)
	assert.Equal(t, "Springfield", e.MailingAddress.City)

	require.Len(t, e.Dependents, 2)
	assert.Equal(t, "Tim", e.Dependents[0].Name.First)
	assert.Equal(t, domain.RelationshipOther, e.Dependents[0].Relationship)
	assert.Equal(t, "Ann", e.Dependents[1].Name.First)
	assert.Equal(t, domain.RelationshipSpouse, e.Dependents[1].Relationship)

	require.Len(t, e.Beneficiaries, 1)
	assert.Equal(t, 60, e.Beneficiaries[0].Percent)
}

func TestMapEnrolleeWithoutMailingAddress(t *testing.T) {
	e, err := MapEnrollee(row(map[string]string{"Name.First": "Jane", "MailingAddress.Street": " "}))
	require.NoError(t, err)
	assert.Nil(t, e.MailingAddress)
	assert.Empty(t, e.Dependents)
}

func TestMapEnrolleeError(t *testing.T) {
	_, err := MapEnrollee(row(map[string]string{"Dependents[1].Relationship": "Cousin"}))
	require.Error(t, err)

	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 9, fe.Row)
	assert.Equal(t, "Dependents[1].Relationship", fe.Field)
	assert.Equal(t, "Cousin", fe.Value)
}

func TestMapClaim(t *testing.T) {
	c, err := MapClaim(row(map[string]string{
		"Name.First":                "Jane",
		"Name.Last":                 "Doe",
		"ClaimNumber":               "C-1",
		"Facility":                  "11:B:1",
		"Services[1].ProcedureCode": "99213",
		"Services[1].Amount":        "$1,250.50",
		"Services[1].Units":         "2",
		"Services[2].ProcedureCode": "36415",
	}))
	require.NoError(t, err)

	assert.Equal(t, "C-1", c.ClaimNumber)
	assert.True(t, c.PatientIsSubscriber())
	require.Len(t, c.Services, 2)
	assert.Equal(t, "1250.5", c.Services[0].Amount.String())
	assert.Equal(t, 2, c.Services[0].Units)
	assert.Equal(t, "1", c.Services[1].Amount.String())
	assert.Equal(t, 1, c.Services[1].Units)
	assert.Equal(t, "1251.5", c.Total().String())
}

func TestMapClaimPatient(t *testing.T) {
	c, err := MapClaim(row(map[string]string{
		"Patient.Name.First":   "Tim",
		"Patient.Relationship": "Child",
	}))
	require.NoError(t, err)
	assert.Equal(t, "Tim", c.Patient.Name.First)
	assert.False(t, c.PatientIsSubscriber())
}

func TestUnknownFields(t *testing.T) {
	headers := []string{"Name.First", "Nickname", "Dependents[4].SSN", "Dependents[1].Percent", "Services[1].Amount", "Beneficiaries[2].Percent"}
	assert.Equal(t, []string{"Nickname", "Dependents[1].Percent", "Services[1].Amount"}, UnknownFields("enrollment", headers))
	assert.Equal(t, []string{"Nickname", "Dependents[4].SSN", "Dependents[1].Percent", "Beneficiaries[2].Percent"}, UnknownFields("claim", headers))
}
