package domain

import "time"

// DefaultRecentTermDays is how long after a termination an enrollee is still
// sent. 834 files are comprehensive, so a termination must keep appearing for
// a while before the receiver drops the member.
const DefaultRecentTermDays = 30

// EmploymentInfo associates an enrollee with an employer group.
type EmploymentInfo struct {
	EmployerName   string
	GroupID        string
	EmployeeStatus EmployeeStatus
}

// Enrollee is a subscriber with coverage selection, dependents and
// beneficiaries. Temporal state is always derived from the dates and a
// caller-supplied "today"; nothing is cached.
type Enrollee struct {
	Person

	Employment         EmploymentInfo
	SubscriberID       string
	MailingAddress     *Address
	RelationshipStatus RelationshipStatus

	AccountNumber string
	RoutingNumber string
	PayrollType   PayrollType

	CoverageType  CoverageType
	ElectedUnits  int
	Dependents    []Dependent
	Beneficiaries []Beneficiary

	EffectiveDate time.Time
	DateSigned    time.Time
	TermDate      time.Time
}

// GroupID is the employer group the enrollee belongs to.
func (e *Enrollee) GroupID() string { return e.Employment.GroupID }

// MaritalStatus collapses the relationship status to the two wire values.
func (e *Enrollee) MaritalStatus() MaritalStatus {
	if e.RelationshipStatus == StatusMarried {
		return MaritalMarried
	}
	return MaritalSingle
}

// HasMailingAddress reports whether a distinct, non-blank mailing address is
// present.
func (e *Enrollee) HasMailingAddress() bool {
	if e.MailingAddress == nil || e.MailingAddress.IsUnset() {
		return false
	}
	return *e.MailingAddress != e.Address
}

// =============================================================================
// TEMPORAL STATE
// =============================================================================

// Date truncates t to midnight in its own location.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// dayOf re-expresses t's calendar date in loc so comparisons with "today"
// are never skewed by differing locations.
func dayOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// HasTermDate reports whether a termination date is set.
func (e *Enrollee) HasTermDate() bool { return !e.TermDate.IsZero() }

// PreEnrollmentCancellation is a termination on the effective date itself.
func (e *Enrollee) PreEnrollmentCancellation() bool {
	return e.HasTermDate() && sameDay(e.EffectiveDate, e.TermDate)
}

// Termed reports whether the termination date is on or before today.
func (e *Enrollee) Termed(today time.Time) bool {
	if !e.HasTermDate() {
		return false
	}
	today = Date(today)
	return !dayOf(e.TermDate, today.Location()).After(today)
}

// TermedWithin reports whether the enrollee was terminated on or before
// today and no more than days ago.
func (e *Enrollee) TermedWithin(days int, today time.Time) bool {
	if !e.Termed(today) {
		return false
	}
	today = Date(today)
	return !today.After(dayOf(e.TermDate, today.Location()).AddDate(0, 0, days))
}

// ActiveAsOf reports whether coverage is in force on today: no termination,
// or a future termination that is not a pre-enrollment cancellation.
func (e *Enrollee) ActiveAsOf(today time.Time) bool {
	if !e.HasTermDate() {
		return true
	}
	today = Date(today)
	return !e.PreEnrollmentCancellation() && dayOf(e.TermDate, today.Location()).After(today)
}

// FutureEffective reports whether coverage starts after today.
func (e *Enrollee) FutureEffective(today time.Time) bool {
	today = Date(today)
	return dayOf(e.EffectiveDate, today.Location()).After(today)
}

// ActiveOrRecentTerm is the population the receiver must see on a given
// run: active members, members termed within recentTermDays, and members
// whose coverage has not started yet.
func (e *Enrollee) ActiveOrRecentTerm(recentTermDays int, today time.Time) bool {
	return e.ActiveAsOf(today) || e.TermedWithin(recentTermDays, today) || e.FutureEffective(today)
}

// IncludeCoverageEndDate decides whether the benefit-end date is sent:
// never without a termination, always for a pre-enrollment cancellation,
// otherwise only once the termination is on or before today.
func (e *Enrollee) IncludeCoverageEndDate(today time.Time) bool {
	if !e.HasTermDate() {
		return false
	}
	if e.PreEnrollmentCancellation() {
		return true
	}
	return e.Termed(today)
}

// CancellationToggle is the single switch for every status-bearing element
// of the enrollee's loop.
func (e *Enrollee) CancellationToggle(today time.Time) bool {
	return e.Termed(today) || e.PreEnrollmentCancellation()
}
