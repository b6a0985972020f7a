package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultFacility is the place-of-service composite used when a claim names
// none: home (12), professional (B), first submission (1).
const DefaultFacility = "12:B:1"

// Submitter is the billing provider and submitter of a claim batch.
type Submitter struct {
	Person
	Type             EntityType
	OrganizationName string
	NPINumber        string
	EIN              string
}

// SubmitterName is the last name for a person, the organization otherwise.
func (s Submitter) SubmitterName() string {
	if s.Type == EntityPerson {
		return s.Name.Last
	}
	return s.OrganizationName
}

// Patient is a dependent whose relationship defaults to self.
type Patient struct {
	Dependent
}

// NewPatient returns a patient with the self relationship.
func NewPatient() Patient {
	return Patient{Dependent: Dependent{Relationship: RelationshipSelf}}
}

// Service is one professional service line.
type Service struct {
	ProcedureCode string
	ServiceID     string
	Amount        decimal.Decimal
	Units         int
	DateOfService time.Time
}

// NewService returns a service line of one unit billed at $1. These lines
// are usually encounters with no real charge.
func NewService() Service {
	return Service{Amount: decimal.NewFromInt(1), Units: 1}
}

// Claim is a professional claim for one subscriber.
type Claim struct {
	Person

	Employment         EmploymentInfo
	SubscriberID       string
	RelationshipStatus RelationshipStatus

	Patient     Patient
	ClaimNumber string
	Facility    string
	ICDCode     string
	Services    []Service
}

// MaritalStatus collapses the relationship status to the two wire values.
func (c *Claim) MaritalStatus() MaritalStatus {
	if c.RelationshipStatus == StatusMarried {
		return MaritalMarried
	}
	return MaritalSingle
}

// Total is the exact sum of the service amounts.
func (c *Claim) Total() decimal.Decimal {
	total := decimal.Zero
	for _, s := range c.Services {
		total = total.Add(s.Amount)
	}
	return total
}

// PatientIsSubscriber reports whether the claim's patient is the subscriber.
func (c *Claim) PatientIsSubscriber() bool {
	return c.Patient.Relationship == RelationshipSelf
}
