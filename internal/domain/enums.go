// =============================================================================
// EDI Generator - Domain Enumerations
// =============================================================================
//
// Enumerations used by the enrollment and claim aggregates. These carry no
// wire representation of their own; the x12 code table maps every variant to
// the fixed token the transaction sets require.
//
// Each enumeration exposes a Parse function so import sources can fill the
// aggregates from the variant name (e.g. "Spouse", "EmployeePlusFamily").
//
// =============================================================================

package domain

import (
	"fmt"
	"strings"
)

// Gender of a person.
type Gender int

const (
	GenderMale Gender = iota
	GenderFemale
	GenderUnknown
)

// Relationship of a covered person to the subscriber.
type Relationship int

const (
	RelationshipSelf Relationship = iota
	RelationshipSpouse
	RelationshipLifePartner
	RelationshipChild
	RelationshipOther
)

// RelationshipStatus is the marital/partnership status recorded at
// enrollment. Only Married maps to the married code on the wire.
type RelationshipStatus int

const (
	StatusSingle RelationshipStatus = iota
	StatusMarried
	StatusLegallySeparated
	StatusCommonLaw
	StatusDivorced
	StatusCivilUnion
	StatusDomesticPartnership
	StatusWidowed
)

// MaritalStatus is the two-valued status the 834/837 demographics carry.
type MaritalStatus int

const (
	MaritalSingle MaritalStatus = iota
	MaritalMarried
)

// CoverageType is the coverage level elected by the subscriber.
type CoverageType int

const (
	CoverageEmployeeOnly CoverageType = iota
	CoverageEmployeePlusSpouse
	CoverageEmployeePlusChildren
	CoverageEmployeePlusFamily
)

// PayrollType is the subscriber's pay frequency.
type PayrollType int

const (
	PayrollWeekly PayrollType = iota
	PayrollBiweekly
	PayrollSemiMonthly
	PayrollMonthly
)

// EntityType distinguishes a natural person from an organization.
type EntityType int

const (
	EntityPerson EntityType = iota
	EntityNonPerson
)

// EmployeeStatus is the employment arrangement of the subscriber.
type EmployeeStatus int

const (
	EmployeeW2 EmployeeStatus = iota
	EmployeeOwner
)

// =============================================================================
// NAME TABLES
// =============================================================================

var genderNames = map[string]Gender{
	"male":    GenderMale,
	"m":       GenderMale,
	"female":  GenderFemale,
	"f":       GenderFemale,
	"unknown": GenderUnknown,
	"u":       GenderUnknown,
}

var relationshipNames = map[string]Relationship{
	"self":        RelationshipSelf,
	"spouse":      RelationshipSpouse,
	"lifepartner": RelationshipLifePartner,
	"child":       RelationshipChild,
	"other":       RelationshipOther,
}

var relationshipStatusNames = map[string]RelationshipStatus{
	"single":               StatusSingle,
	"married":              StatusMarried,
	"legally_separated":    StatusLegallySeparated,
	"legallyseparated":     StatusLegallySeparated,
	"common_law":           StatusCommonLaw,
	"commonlaw":            StatusCommonLaw,
	"divorced":             StatusDivorced,
	"civil_union":          StatusCivilUnion,
	"civilunion":           StatusCivilUnion,
	"domestic_partnership": StatusDomesticPartnership,
	"domesticpartnership":  StatusDomesticPartnership,
	"widow_or_widower":     StatusWidowed,
	"widowed":              StatusWidowed,
}

var coverageTypeNames = map[string]CoverageType{
	"employeeonly":         CoverageEmployeeOnly,
	"employeeplusspouse":   CoverageEmployeePlusSpouse,
	"employeepluschildren": CoverageEmployeePlusChildren,
	"employeeplusfamily":   CoverageEmployeePlusFamily,
}

var payrollTypeNames = map[string]PayrollType{
	"weekly":      PayrollWeekly,
	"biweekly":    PayrollBiweekly,
	"semimonthly": PayrollSemiMonthly,
	"monthly":     PayrollMonthly,
}

var entityTypeNames = map[string]EntityType{
	"person":     EntityPerson,
	"nonperson":  EntityNonPerson,
	"non_person": EntityNonPerson,
}

var employeeStatusNames = map[string]EmployeeStatus{
	"w2":    EmployeeW2,
	"owner": EmployeeOwner,
}

// normalizeName lowercases a variant name and strips spaces and dashes so
// "Employee Plus Family" and "employee-plus-family" both resolve.
func normalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "")
	return strings.ReplaceAll(s, "-", "")
}

func parseName[T any](kind string, table map[string]T, s string) (T, error) {
	if v, ok := table[normalizeName(s)]; ok {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("unknown %s %q", kind, s)
}

// ParseGender parses a gender variant name or its single-letter form.
func ParseGender(s string) (Gender, error) { return parseName("gender", genderNames, s) }

// ParseRelationship parses a relationship variant name.
func ParseRelationship(s string) (Relationship, error) {
	return parseName("relationship", relationshipNames, s)
}

// ParseRelationshipStatus parses a relationship status variant name.
func ParseRelationshipStatus(s string) (RelationshipStatus, error) {
	return parseName("relationship status", relationshipStatusNames, s)
}

// ParseCoverageType parses a coverage type variant name.
func ParseCoverageType(s string) (CoverageType, error) {
	return parseName("coverage type", coverageTypeNames, s)
}

// ParsePayrollType parses a payroll type variant name.
func ParsePayrollType(s string) (PayrollType, error) {
	return parseName("payroll type", payrollTypeNames, s)
}

// ParseEntityType parses an entity type variant name.
func ParseEntityType(s string) (EntityType, error) {
	return parseName("entity type", entityTypeNames, s)
}

// ParseEmployeeStatus parses an employee status variant name.
func ParseEmployeeStatus(s string) (EmployeeStatus, error) {
	return parseName("employee status", employeeStatusNames, s)
}
