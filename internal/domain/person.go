package domain

import (
	"strings"
	"time"
	"unicode"
)

// Address is a postal address. Field limits (street 40, city 29, state 2,
// zip 9) are enforced by the import source, not here.
type Address struct {
	Street string
	City   string
	State  string
	Zip    string
}

// IsUnset reports whether every part of the address is blank.
func (a Address) IsUnset() bool {
	return strings.TrimSpace(a.Street) == "" &&
		strings.TrimSpace(a.City) == "" &&
		strings.TrimSpace(a.State) == "" &&
		strings.TrimSpace(a.Zip) == ""
}

func (a Address) String() string {
	return a.Street + ", " + a.City + ", " + a.State + " " + a.Zip
}

// PersonName holds the name parts carried by NM1 segments.
type PersonName struct {
	First  string
	Middle string
	Last   string
}

// MiddleInitial returns the first character of the trimmed middle name.
func (n PersonName) MiddleInitial() string {
	m := strings.TrimSpace(n.Middle)
	if m == "" {
		return ""
	}
	return string([]rune(m)[:1])
}

func (n PersonName) String() string {
	if mi := n.MiddleInitial(); mi != "" {
		return strings.TrimSpace(n.First) + " " + mi + " " + strings.TrimSpace(n.Last)
	}
	return strings.TrimSpace(n.First) + " " + strings.TrimSpace(n.Last)
}

// Person is the identity and contact block shared by subscribers,
// dependents, patients and submitters.
type Person struct {
	Name     PersonName
	Gender   Gender
	DOB      time.Time
	SSN      string
	Phone    string
	AltPhone string
	Email    string
	Address  Address
}

// SSNNumeric returns the SSN with every non-digit removed.
func (p Person) SSNNumeric() string { return Numeric(p.SSN) }

// Dependent is a covered person other than the subscriber.
type Dependent struct {
	Person
	Relationship Relationship
}

// NewDependent returns a dependent with the default "other" relationship.
func NewDependent() Dependent {
	return Dependent{Relationship: RelationshipOther}
}

// Beneficiary is a named beneficiary with a percentage share. Shares are not
// required to sum to 100.
type Beneficiary struct {
	Name PersonName

	// Relationship is kept from the import but never sent: a beneficiary
	// loop always reports INS02 as G8 (other).
	Relationship Relationship

	Percent int
}

// Numeric strips every non-digit rune from s.
func Numeric(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
