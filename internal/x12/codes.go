// =============================================================================
// EDI Generator - Code Table
// =============================================================================
//
// Static mapping from enumerations to the fixed tokens the 834 and 837
// transaction sets require. Wire-only enumerations are typed string
// constants whose value IS the token. Domain enumerations are mapped through
// total tables below; the tests walk every variant so a missing mapping
// fails the suite.
//
// =============================================================================

package x12

import (
	"fmt"
	"strings"

	"github.com/ginjaninja78/edi-enrollment/internal/domain"
)

// =============================================================================
// SEGMENT IDENTIFIERS
// =============================================================================

// SegmentID is the leading token of a segment.
type SegmentID string

const (
	InterchangeBegin    SegmentID = "ISA"
	InterchangeEnd      SegmentID = "IEA"
	GroupBegin          SegmentID = "GS"
	GroupEnd            SegmentID = "GE"
	TransactionSetBegin SegmentID = "ST"
	TransactionSetEnd   SegmentID = "SE"
	TransactionBegin    SegmentID = "BGN"
	ContactInfo         SegmentID = "PER"
	Insured             SegmentID = "INS"
	Demographics        SegmentID = "DMG"
	Reference           SegmentID = "REF"
	Party               SegmentID = "N1"
	AddressStreet       SegmentID = "N3"
	AddressCityStateZip SegmentID = "N4"
	EntityName          SegmentID = "NM1"
	DateTimePeriod      SegmentID = "DTP"
	Coverage            SegmentID = "HD"
	HierarchyBegin      SegmentID = "BHT"
	HierarchicalLevel   SegmentID = "HL"
	ProviderTaxonomy    SegmentID = "PRV"
	Subscriber          SegmentID = "SBR"
	ClaimInfo           SegmentID = "CLM"
	Diagnosis           SegmentID = "HI"
	ServiceLine         SegmentID = "LX"
	ProfessionalService SegmentID = "SV1"
)

// =============================================================================
// WIRE-ONLY ENUMERATIONS
// =============================================================================

// FunctionalID identifies the functional group in GS01.
type FunctionalID string

const (
	FunctionalHealthcareClaim FunctionalID = "HC"
	FunctionalEnrollment      FunctionalID = "BE"
)

// MaintenanceType is INS03 / HD01.
type MaintenanceType string

const (
	MaintenanceChange       MaintenanceType = "001"
	MaintenanceAdd          MaintenanceType = "021"
	MaintenanceCancellation MaintenanceType = "024"
)

// MaintenanceReason is INS04.
type MaintenanceReason string

const (
	ReasonDivorce  MaintenanceReason = "01"
	ReasonBirth    MaintenanceReason = "02"
	ReasonDeath    MaintenanceReason = "03"
	ReasonAdoption MaintenanceReason = "05"
	ReasonNone     MaintenanceReason = "AL"
)

// EmploymentStatus is INS08.
type EmploymentStatus string

const (
	EmploymentActive     EmploymentStatus = "AC"
	EmploymentTerminated EmploymentStatus = "TE"
)

// DateQualifier is DTP01.
type DateQualifier string

const (
	DateReceived     DateQualifier = "050"
	DateEffective    DateQualifier = "336"
	DateBenefitBegin DateQualifier = "348"
	DateBenefitEnd   DateQualifier = "349"
	DateAdmission    DateQualifier = "435"
	DateDischarge    DateQualifier = "096"
	DateOfService    DateQualifier = "472"
)

// YesNo is the Y/N condition code used by INS01, INS09 and CLM.
type YesNo string

const (
	Yes YesNo = "Y"
	No  YesNo = "N"
)

// EntityIdentifier is NM101 on the enrollment side.
type EntityIdentifier string

const (
	EntityInsured             EntityIdentifier = "IL"
	EntityCorrectedSubscriber EntityIdentifier = "74"
	EntityResponsiblePerson   EntityIdentifier = "QD"
	EntityMailingAddress      EntityIdentifier = "31"
)

// PartyRole is NM101 on the claim side.
type PartyRole string

const (
	PartyReceiver        PartyRole = "40"
	PartySubmitter       PartyRole = "41"
	PartyBillingProvider PartyRole = "85"
	PartyPayer           PartyRole = "PR"
)

// ContactFunction is PER01.
type ContactFunction string

const (
	ContactInformation  ContactFunction = "IC"
	ContactInsuredParty ContactFunction = "IP"
)

// CommunicationQualifier is PER03/05/07.
type CommunicationQualifier string

const (
	CommTelephone CommunicationQualifier = "TE"
	CommAltPhone  CommunicationQualifier = "AP"
	CommEmail     CommunicationQualifier = "EM"
)

// IDQualifier is NM108.
type IDQualifier string

const (
	IDNationalProvider IDQualifier = "XX"
	IDETIN             IDQualifier = "46"
	IDEIN              IDQualifier = "EI"
	IDOther            IDQualifier = "1G"
	IDMember           IDQualifier = "MI"
	IDSSN              IDQualifier = "34"

	// IDPlan is sent on NM1*PR with the receiver TIN. Kept as received from
	// the trading partner sample; confirm against a conformance file before
	// changing.
	IDPlan IDQualifier = "34"
)

// HierarchicalLevelCode is HL03.
type HierarchicalLevelCode string

const (
	LevelInformationSource HierarchicalLevelCode = "20"
	LevelSubscriber        HierarchicalLevelCode = "22"
)

// HierarchicalChildCode is HL04.
type HierarchicalChildCode string

const (
	NoChild  HierarchicalChildCode = "0"
	HasChild HierarchicalChildCode = "1"
)

// ResponsibilitySequence is SBR01.
type ResponsibilitySequence string

const (
	PrimaryPayer   ResponsibilitySequence = "P"
	SecondaryPayer ResponsibilitySequence = "S"
)

// CodeList qualifies the diagnosis composite in HI01.
type CodeList string

const (
	CodeListICD9  CodeList = "BK"
	CodeListICD10 CodeList = "ABK"
)

// =============================================================================
// MODE
// =============================================================================

// Mode selects the usage indicator in ISA15.
type Mode int

const (
	ModeTest Mode = iota
	ModeProduction
)

// Code is the ISA15 usage indicator.
func (m Mode) Code() string {
	if m == ModeProduction {
		return "P"
	}
	return "T"
}

// Keyword is the upper-case word used in export file names.
func (m Mode) Keyword() string {
	if m == ModeProduction {
		return "PROD"
	}
	return "TEST"
}

func (m Mode) String() string { return strings.ToLower(m.Keyword()) }

// ParseMode accepts test/t and prod/production/p, case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "test", "t":
		return ModeTest, nil
	case "prod", "production", "p":
		return ModeProduction, nil
	default:
		return ModeTest, fmt.Errorf("unknown mode %q (want test or prod)", s)
	}
}

// =============================================================================
// DOMAIN ENUMERATION TABLES
// =============================================================================

var genderCodes = map[domain.Gender]string{
	domain.GenderMale:    "M",
	domain.GenderFemale:  "F",
	domain.GenderUnknown: "U",
}

var relationshipCodes = map[domain.Relationship]string{
	domain.RelationshipSelf:        "18",
	domain.RelationshipSpouse:      "01",
	domain.RelationshipLifePartner: "53",
	domain.RelationshipChild:       "19",
	domain.RelationshipOther:       "G8",
}

var maritalStatusCodes = map[domain.MaritalStatus]string{
	domain.MaritalSingle:  "I",
	domain.MaritalMarried: "M",
}

var coverageTypeCodes = map[domain.CoverageType]string{
	domain.CoverageEmployeeOnly:         "EMP",
	domain.CoverageEmployeePlusSpouse:   "ESP",
	domain.CoverageEmployeePlusChildren: "ECH",
	domain.CoverageEmployeePlusFamily:   "FAM",
}

var payrollTypeCodes = map[domain.PayrollType]string{
	domain.PayrollWeekly:      "00001",
	domain.PayrollBiweekly:    "00002",
	domain.PayrollSemiMonthly: "00003",
	domain.PayrollMonthly:     "00004",
}

var entityTypeCodes = map[domain.EntityType]string{
	domain.EntityPerson:    "1",
	domain.EntityNonPerson: "2",
}

// GenderCode maps a gender to DMG03.
func GenderCode(g domain.Gender) string { return genderCodes[g] }

// RelationshipCode maps a relationship to INS02 / SBR02.
func RelationshipCode(r domain.Relationship) string { return relationshipCodes[r] }

// MaritalStatusCode maps a marital status to DMG04.
func MaritalStatusCode(m domain.MaritalStatus) string { return maritalStatusCodes[m] }

// CoverageTypeCode maps a coverage type to HD05.
func CoverageTypeCode(c domain.CoverageType) string { return coverageTypeCodes[c] }

// PayrollTypeCode maps a payroll type to the REF*17 / REF*E8 value.
func PayrollTypeCode(p domain.PayrollType) string { return payrollTypeCodes[p] }

// EntityTypeCode maps an entity type to NM102.
func EntityTypeCode(e domain.EntityType) string { return entityTypeCodes[e] }

// ChildCode derives HL04 for a subscriber level: no child when the patient
// is the subscriber, otherwise a patient level follows.
func ChildCode(patientIsSubscriber bool) HierarchicalChildCode {
	if patientIsSubscriber {
		return NoChild
	}
	return HasChild
}
