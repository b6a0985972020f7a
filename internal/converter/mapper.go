package converter

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ginjaninja78/edi-enrollment/internal/csvparser"
	"github.com/ginjaninja78/edi-enrollment/internal/domain"
	"github.com/ginjaninja78/edi-enrollment/internal/validation"
)

// FieldError reports a value that could not be mapped onto an aggregate.
type FieldError struct {
	Row   int
	Field string
	Value string

	// Rule names the failed check in the validation result. Empty means
	// "mapping".
	Rule string

	Err error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("row %d, field '%s' (value: '%s'): %v", e.Row, e.Field, e.Value, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// setter assigns one cell to a field of T.
type setter[T any] func(*T, string) error

type setters[T any] map[string]setter[T]

func text[T any](field func(*T) *string) setter[T] {
	return func(t *T, v string) error {
		*field(t) = v
		return nil
	}
}

func date[T any](field func(*T) *time.Time) setter[T] {
	return func(t *T, v string) error {
		d, err := validation.ParseDate(v)
		if err != nil {
			return err
		}
		*field(t) = d
		return nil
	}
}

func number[T any](field func(*T) *int) setter[T] {
	return func(t *T, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%q is not a whole number", v)
		}
		*field(t) = n
		return nil
	}
}

func enum[T, E any](parse func(string) (E, error), field func(*T) *E) setter[T] {
	return func(t *T, v string) error {
		e, err := parse(v)
		if err != nil {
			return err
		}
		*field(t) = e
		return nil
	}
}

// lift registers every setter of from under prefix, reaching the nested
// value through get.
func lift[T, U any](into setters[T], prefix string, from setters[U], get func(*T) *U) {
	for field, set := range from {
		into[prefix+field] = func(t *T, v string) error { return set(get(t), v) }
	}
}

// =============================================================================
// SETTER TABLES
// =============================================================================

func addressSetters() setters[domain.Address] {
	return setters[domain.Address]{
		"Street": text(func(a *domain.Address) *string { return &a.Street }),
		"City":   text(func(a *domain.Address) *string { return &a.City }),
		"State":  text(func(a *domain.Address) *string { return &a.State }),
		"Zip":    text(func(a *domain.Address) *string { return &a.Zip }),
	}
}

func nameSetters() setters[domain.PersonName] {
	return setters[domain.PersonName]{
		"First":         text(func(n *domain.PersonName) *string { return &n.First }),
		"Middle":        text(func(n *domain.PersonName) *string { return &n.Middle }),
		"MiddleInitial": text(func(n *domain.PersonName) *string { return &n.Middle }),
		"Last":          text(func(n *domain.PersonName) *string { return &n.Last }),
	}
}

func personSetters() setters[domain.Person] {
	s := setters[domain.Person]{
		"Gender":   enum(domain.ParseGender, func(p *domain.Person) *domain.Gender { return &p.Gender }),
		"DOB":      date(func(p *domain.Person) *time.Time { return &p.DOB }),
		"SSN":      text(func(p *domain.Person) *string { return &p.SSN }),
		"Phone":    text(func(p *domain.Person) *string { return &p.Phone }),
		"AltPhone": text(func(p *domain.Person) *string { return &p.AltPhone }),
		"Email":    text(func(p *domain.Person) *string { return &p.Email }),
	}
	lift(s, "Name.", nameSetters(), func(p *domain.Person) *domain.PersonName { return &p.Name })
	lift(s, "Address.", addressSetters(), func(p *domain.Person) *domain.Address { return &p.Address })
	return s
}

func employmentSetters() setters[domain.EmploymentInfo] {
	return setters[domain.EmploymentInfo]{
		"EmployerName": text(func(e *domain.EmploymentInfo) *string { return &e.EmployerName }),
		"GroupID":      text(func(e *domain.EmploymentInfo) *string { return &e.GroupID }),
		"EmployeeStatus": enum(domain.ParseEmployeeStatus,
			func(e *domain.EmploymentInfo) *domain.EmployeeStatus { return &e.EmployeeStatus }),
	}
}

func dependentSetters() setters[domain.Dependent] {
	s := setters[domain.Dependent]{
		"Relationship": enum(domain.ParseRelationship,
			func(d *domain.Dependent) *domain.Relationship { return &d.Relationship }),
	}
	lift(s, "", personSetters(), func(d *domain.Dependent) *domain.Person { return &d.Person })
	return s
}

func beneficiarySetters() setters[domain.Beneficiary] {
	s := setters[domain.Beneficiary]{
		"Relationship": enum(domain.ParseRelationship,
			func(b *domain.Beneficiary) *domain.Relationship { return &b.Relationship }),
		"Percent": number(func(b *domain.Beneficiary) *int { return &b.Percent }),
	}
	lift(s, "Name.", nameSetters(), func(b *domain.Beneficiary) *domain.PersonName { return &b.Name })
	return s
}

func enrolleeSetters() setters[domain.Enrollee] {
	s := setters[domain.Enrollee]{
		"SubscriberID": text(func(e *domain.Enrollee) *string { return &e.SubscriberID }),
		"RelationshipStatus": enum(domain.ParseRelationshipStatus,
			func(e *domain.Enrollee) *domain.RelationshipStatus { return &e.RelationshipStatus }),
		"AccountNumber": text(func(e *domain.Enrollee) *string { return &e.AccountNumber }),
		"RoutingNumber": text(func(e *domain.Enrollee) *string { return &e.RoutingNumber }),
		"PayrollType": enum(domain.ParsePayrollType,
			func(e *domain.Enrollee) *domain.PayrollType { return &e.PayrollType }),
		"CoverageType": enum(domain.ParseCoverageType,
			func(e *domain.Enrollee) *domain.CoverageType { return &e.CoverageType }),
		"ElectedUnits":  number(func(e *domain.Enrollee) *int { return &e.ElectedUnits }),
		"EffectiveDate": date(func(e *domain.Enrollee) *time.Time { return &e.EffectiveDate }),
		"DateSigned":    date(func(e *domain.Enrollee) *time.Time { return &e.DateSigned }),
		"TermDate":      date(func(e *domain.Enrollee) *time.Time { return &e.TermDate }),
	}
	lift(s, "", personSetters(), func(e *domain.Enrollee) *domain.Person { return &e.Person })
	lift(s, "EmploymentInfo.", employmentSetters(),
		func(e *domain.Enrollee) *domain.EmploymentInfo { return &e.Employment })
	lift(s, "MailingAddress.", addressSetters(), func(e *domain.Enrollee) *domain.Address {
		if e.MailingAddress == nil {
			e.MailingAddress = &domain.Address{}
		}
		return e.MailingAddress
	})
	return s
}

func serviceSetters() setters[domain.Service] {
	return setters[domain.Service]{
		"ProcedureCode": text(func(s *domain.Service) *string { return &s.ProcedureCode }),
		"ServiceID":     text(func(s *domain.Service) *string { return &s.ServiceID }),
		"Amount": func(s *domain.Service, v string) error {
			d, err := validation.ParseAmount(v)
			if err != nil {
				return fmt.Errorf("%q is not an amount", v)
			}
			s.Amount = d
			return nil
		},
		"Units":         number(func(s *domain.Service) *int { return &s.Units }),
		"DateOfService": date(func(s *domain.Service) *time.Time { return &s.DateOfService }),
	}
}

func claimSetters() setters[domain.Claim] {
	s := setters[domain.Claim]{
		"SubscriberID": text(func(c *domain.Claim) *string { return &c.SubscriberID }),
		"RelationshipStatus": enum(domain.ParseRelationshipStatus,
			func(c *domain.Claim) *domain.RelationshipStatus { return &c.RelationshipStatus }),
		"ClaimNumber": text(func(c *domain.Claim) *string { return &c.ClaimNumber }),
		"Facility":    text(func(c *domain.Claim) *string { return &c.Facility }),
		"ICDCode":     text(func(c *domain.Claim) *string { return &c.ICDCode }),
	}
	lift(s, "", personSetters(), func(c *domain.Claim) *domain.Person { return &c.Person })
	lift(s, "EmploymentInfo.", employmentSetters(),
		func(c *domain.Claim) *domain.EmploymentInfo { return &c.Employment })
	lift(s, "Patient.", dependentSetters(), func(c *domain.Claim) *domain.Dependent { return &c.Patient.Dependent })
	return s
}

var (
	enrolleeFields    = enrolleeSetters()
	dependentFields   = dependentSetters()
	beneficiaryFields = beneficiarySetters()
	claimFields       = claimSetters()
	serviceFields     = serviceSetters()
)

// =============================================================================
// MAPPING
// =============================================================================

var collectionAddress = regexp.MustCompile(`^(\w+)\[(\d+)\]\.(.+)$`)

// splitCollection splits "Dependents[2].Name.First" into its collection,
// 1-based index and nested field.
func splitCollection(field string) (name string, index int, rest string, ok bool) {
	m := collectionAddress.FindStringSubmatch(field)
	if m == nil {
		return "", 0, "", false
	}
	index, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, "", false
	}
	return m[1], index, m[3], true
}

// items collects collection entries by index. An entry exists only once a
// non-empty value has been assigned to it.
type items[T any] struct {
	fresh func() T
	byIdx map[int]*T
}

func newItems[T any](fresh func() T) *items[T] {
	return &items[T]{fresh: fresh, byIdx: make(map[int]*T)}
}

func (it *items[T]) at(index int) *T {
	if item, ok := it.byIdx[index]; ok {
		return item
	}
	item := it.fresh()
	it.byIdx[index] = &item
	return &item
}

func (it *items[T]) ordered() []T {
	indexes := make([]int, 0, len(it.byIdx))
	for i := range it.byIdx {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)

	out := make([]T, 0, len(indexes))
	for _, i := range indexes {
		out = append(out, *it.byIdx[i])
	}
	return out
}

func apply[T any](table setters[T], target *T, field, value string) error {
	if set, ok := table[field]; ok {
		return set(target, value)
	}
	return nil
}

// sortedValues returns the row's non-empty fields in address order, so
// mapping is deterministic.
func sortedValues(row csvparser.Row) []string {
	fields := make([]string, 0, len(row.Values))
	for field, value := range row.Values {
		if strings.TrimSpace(value) != "" {
			fields = append(fields, field)
		}
	}
	sort.Strings(fields)
	return fields
}

// MapEnrollee builds an enrollee from a row. Unknown addresses are ignored;
// see UnknownFields.
func MapEnrollee(row csvparser.Row) (domain.Enrollee, error) {
	var e domain.Enrollee
	dependents := newItems(domain.NewDependent)
	beneficiaries := newItems(func() domain.Beneficiary { return domain.Beneficiary{} })

	for _, field := range sortedValues(row) {
		value := strings.TrimSpace(row.Values[field])

		var err error
		if name, index, rest, ok := splitCollection(field); ok {
			switch name {
			case "Dependents":
				err = apply(dependentFields, dependents.at(index), rest, value)
			case "Beneficiaries":
				err = apply(beneficiaryFields, beneficiaries.at(index), rest, value)
			}
		} else {
			err = apply(enrolleeFields, &e, field, value)
		}
		if err != nil {
			return domain.Enrollee{}, &FieldError{Row: row.Number, Field: field, Value: value, Err: err}
		}
	}

	e.Dependents = dependents.ordered()
	e.Beneficiaries = beneficiaries.ordered()
	return e, nil
}

// MapClaim builds a claim from a row. The patient defaults to the subscriber
// and every service to one unit at $1.
func MapClaim(row csvparser.Row) (domain.Claim, error) {
	c := domain.Claim{Patient: domain.NewPatient()}
	services := newItems(domain.NewService)

	for _, field := range sortedValues(row) {
		value := strings.TrimSpace(row.Values[field])

		var err error
		if name, index, rest, ok := splitCollection(field); ok {
			if name == "Services" {
				err = apply(serviceFields, services.at(index), rest, value)
			}
		} else {
			err = apply(claimFields, &c, field, value)
		}
		if err != nil {
			return domain.Claim{}, &FieldError{Row: row.Number, Field: field, Value: value, Err: err}
		}
	}

	c.Services = services.ordered()
	return c, nil
}

// UnknownFields returns the headers MapEnrollee (kind "enrollment") or
// MapClaim (kind "claim") would ignore.
func UnknownFields(kind string, headers []string) []string {
	var unknown []string
	for _, field := range headers {
		if field == "" || knownField(kind, field) {
			continue
		}
		unknown = append(unknown, field)
	}
	return unknown
}

func knownField(kind, field string) bool {
	name, _, rest, isItem := splitCollection(field)

	if kind == "claim" {
		if isItem {
			_, ok := serviceFields[rest]
			return name == "Services" && ok
		}
		_, ok := claimFields[field]
		return ok
	}

	if isItem {
		switch name {
		case "Dependents":
			_, ok := dependentFields[rest]
			return ok
		case "Beneficiaries":
			_, ok := beneficiaryFields[rest]
			return ok
		}
		return false
	}
	_, ok := enrolleeFields[field]
	return ok
}
