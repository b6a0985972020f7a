// =============================================================================
// EDI Generator - 834 Benefit Enrollment Assembler
// =============================================================================
//
// LOOP LAYOUT (per group partition):
//
//   BGN, REF*38, N1*P5 (sponsor), N1*IN (payer)
//   2000  INS ... subscriber, REF, DTP*050
//   2100A NM1*IL, PER, N3, N4, DMG
//   2100C NM1*31, N3, N4                 mailing address, when distinct
//   2300  HD, DTP*348, [DTP*349], REF*CE
//   2000  dependents                      when enabled
//   2000  beneficiaries                   when enabled
//
// INCLUSION:
//   An enrollee is sent when active, termed within the recent-term window,
//   or not yet effective. The decision is made against "today" on every run.
//
// STATUS:
//   Every status-bearing element of an enrollee's loop (INS03, INS08, HD01,
//   and the same elements in dependent and beneficiary loops) reads one
//   value: the enrollee's cancellation toggle.
//
// =============================================================================

package assembler

import (
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ginjaninja78/edi-enrollment/internal/domain"
	"github.com/ginjaninja78/edi-enrollment/internal/ledger"
	"github.com/ginjaninja78/edi-enrollment/internal/x12"
)

const (
	enrollmentTransactionSet = "834"
	electedUnitsWidth        = 5
	insuranceLineHealth      = "HLT"

	// EnrollmentVersion is the 834 implementation guide in GS08/ST03.
	EnrollmentVersion = "005010X220A1"
)

// EnrollmentOptions are the run parameters of an 834.
type EnrollmentOptions struct {
	Mode x12.Mode

	// GroupID, when set, makes the run single-group: every enrollee must
	// belong to this group or the call fails.
	GroupID string

	IncludeDependents    bool
	IncludeBeneficiaries bool

	// RecentTermDays is the trailing window after a termination during which
	// the enrollee is still sent. Zero means domain.DefaultRecentTermDays.
	RecentTermDays int

	// Newline separates segments with "\n" for readability.
	Newline bool
}

// DefaultEnrollmentOptions returns a test-mode, all-groups run with
// dependents and beneficiaries included.
func DefaultEnrollmentOptions() EnrollmentOptions {
	return EnrollmentOptions{
		Mode:                 x12.ModeTest,
		IncludeDependents:    true,
		IncludeBeneficiaries: true,
		RecentTermDays:       domain.DefaultRecentTermDays,
	}
}

// EnrollmentAssembler renders enrollees as an 834 interchange.
type EnrollmentAssembler struct {
	settings
	ledger      ledger.Provider
	interchange Interchange
	opts        EnrollmentOptions
}

// NewEnrollmentAssembler returns an assembler issuing control numbers from l.
func NewEnrollmentAssembler(l ledger.Provider, ic Interchange, opts EnrollmentOptions, options ...Option) *EnrollmentAssembler {
	if opts.RecentTermDays <= 0 {
		opts.RecentTermDays = domain.DefaultRecentTermDays
	}
	a := &EnrollmentAssembler{
		settings:    defaultSettings(),
		ledger:      l,
		interchange: ic,
		opts:        opts,
	}
	for _, o := range options {
		o(&a.settings)
	}
	return a
}

// Assemble renders enrollees and saves the ledger.
func (a *EnrollmentAssembler) Assemble(enrollees []domain.Enrollee) (string, error) {
	res, err := a.Build(enrollees)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// Build is Assemble with run statistics.
func (a *EnrollmentAssembler) Build(enrollees []domain.Enrollee) (*Result, error) {
	if err := a.validate(enrollees); err != nil {
		return nil, err
	}

	now := a.now()
	today := domain.Date(now)
	log := a.logger.WithFields(logrus.Fields{
		"transaction": enrollmentTransactionSet,
		"mode":        a.opts.Mode.String(),
	})

	doc := newDocument(a.delims, a.ledger, now)
	doc.open(a.interchange, a.opts.Mode, x12.FunctionalEnrollment, enrollmentTransactionSet, EnrollmentVersion)

	included, excluded := 0, 0
	for _, group := range partitionByGroup(enrollees) {
		a.writeGroupHeader(doc, group.id)

		for i := range group.members {
			e := group.members[i]
			if !e.ActiveOrRecentTerm(a.opts.RecentTermDays, today) {
				log.WithFields(logrus.Fields{
					"group":         group.id,
					"subscriber_id": e.SubscriberID,
				}).Debug("enrollee outside the active or recent-term window; skipped")
				excluded++
				continue
			}
			a.writeEnrollee(doc, e, today)
			included++
		}
	}

	doc.close()

	res, err := doc.finish(enrollmentTransactionSet, a.opts.Newline)
	if err != nil {
		log.WithError(err).Error("834 discarded")
		return nil, err
	}
	res.Included, res.Excluded = included, excluded

	log.WithFields(logrus.Fields{
		"segments":            len(res.Segments),
		"included":            included,
		"excluded":            excluded,
		"interchange_control": res.InterchangeControl,
	}).Info("834 assembled")
	return res, nil
}

func (a *EnrollmentAssembler) validate(enrollees []domain.Enrollee) error {
	if len(enrollees) == 0 {
		return ErrNoInput
	}
	if a.opts.GroupID == "" {
		return nil
	}
	for i := range enrollees {
		if g := enrollees[i].GroupID(); g != a.opts.GroupID {
			return errors.Wrapf(ErrMultipleGroups, "enrollee %d has group %q, run is for group %q", i+1, g, a.opts.GroupID)
		}
	}
	return nil
}

type partition struct {
	id      string
	members []*domain.Enrollee
}

// partitionByGroup groups enrollees by group id in first-seen order.
func partitionByGroup(enrollees []domain.Enrollee) []partition {
	var parts []partition
	index := map[string]int{}
	for i := range enrollees {
		e := &enrollees[i]
		n, ok := index[e.GroupID()]
		if !ok {
			n = len(parts)
			index[e.GroupID()] = n
			parts = append(parts, partition{id: e.GroupID()})
		}
		parts[n].members = append(parts[n].members, e)
	}
	return parts
}

func (a *EnrollmentAssembler) writeGroupHeader(doc *document, groupID string) {
	ic := a.interchange

	doc.add(x12.TransactionBegin,
		"00", // original
		doc.next(keyTransaction, 0),
		doc.headerDate(),
		doc.headerTime(),
		"UT",
		"", "",
		"2", // change; "4" is verify
	)
	doc.add(x12.Reference, "38", groupID)

	// 1000A sponsor, 1000B payer
	doc.add(x12.Party, "P5", ic.SenderID, "FI", ic.SenderTIN)
	doc.add(x12.Party, "IN", ic.ReceiverID, "FI", ic.ReceiverTIN)
}

// status returns the maintenance type and employment status for the toggle.
func status(cancelled bool) (x12.MaintenanceType, x12.EmploymentStatus) {
	if cancelled {
		return x12.MaintenanceCancellation, x12.EmploymentTerminated
	}
	return x12.MaintenanceAdd, x12.EmploymentActive
}

func (a *EnrollmentAssembler) writeEnrollee(doc *document, e *domain.Enrollee, today time.Time) {
	cancelled := e.CancellationToggle(today)
	maintenance, employment := status(cancelled)
	includeEnd := e.IncludeCoverageEndDate(today)

	a.logger.WithFields(logrus.Fields{
		"subscriber_id": e.SubscriberID,
		"cancelled":     cancelled,
		"coverage_end":  includeEnd,
	}).Debug("encoding enrollee")

	// 2000 subscriber
	doc.add(x12.Insured,
		string(x12.Yes),
		x12.RelationshipCode(domain.RelationshipSelf),
		string(maintenance),
		string(x12.ReasonNone),
		"A", // benefit status: active
		"", "",
		string(employment),
		"",
		string(x12.No), // not a beneficiary
	)
	doc.add(x12.Reference, "0F", e.SubscriberID)
	doc.add(x12.Reference, "17", x12.PayrollTypeCode(e.PayrollType))
	if e.AccountNumber != "" {
		doc.add(x12.Reference, "ZZ", e.AccountNumber)
	}
	if e.RoutingNumber != "" {
		doc.add(x12.Reference, "23", e.RoutingNumber)
	}
	if !e.DateSigned.IsZero() {
		doc.add(x12.DateTimePeriod, string(x12.DateReceived), x12.DateQualifierD8, d8(e.DateSigned))
	}

	// 2100A member name
	writeName(doc, x12.EntityInsured, e.Name, e.SSNNumeric())
	writeContact(doc, &e.Person)
	writeAddress(doc, e.Address)
	doc.add(x12.Demographics,
		x12.DateQualifierD8, d8(e.DOB),
		x12.GenderCode(e.Gender),
		x12.MaritalStatusCode(e.MaritalStatus()),
	)

	// 2100C mailing address
	if e.HasMailingAddress() {
		doc.add(x12.EntityName, string(x12.EntityMailingAddress), x12.EntityTypeCode(domain.EntityPerson))
		writeAddress(doc, *e.MailingAddress)
	}

	// 2300 health coverage
	writeCoverage(doc, e, maintenance, includeEnd)
	doc.add(x12.Reference, "CE", "LM")

	if a.opts.IncludeDependents {
		for i := range e.Dependents {
			a.writeDependent(doc, e, &e.Dependents[i], maintenance, employment, includeEnd)
		}
	}
	if a.opts.IncludeBeneficiaries {
		for i := range e.Beneficiaries {
			a.writeBeneficiary(doc, e, &e.Beneficiaries[i], maintenance, employment)
		}
	}
}

func (a *EnrollmentAssembler) writeDependent(doc *document, e *domain.Enrollee, dep *domain.Dependent, maintenance x12.MaintenanceType, employment x12.EmploymentStatus, includeEnd bool) {
	doc.add(x12.Insured,
		string(x12.No),
		x12.RelationshipCode(dep.Relationship),
		string(maintenance),
		string(x12.ReasonNone),
		"A",
		"", "",
		string(employment),
	)
	doc.add(x12.Reference, "0F", e.SubscriberID)
	if !e.DateSigned.IsZero() {
		doc.add(x12.DateTimePeriod, string(x12.DateReceived), x12.DateQualifierD8, d8(e.DateSigned))
	}

	writeName(doc, x12.EntityInsured, dep.Name, dep.SSNNumeric())
	doc.add(x12.Demographics, x12.DateQualifierD8, d8(dep.DOB), x12.GenderCode(dep.Gender))

	writeCoverage(doc, e, maintenance, includeEnd)
	doc.add(x12.Reference, "CE", "LM")
	doc.add(x12.Reference, "E8", x12.PayrollTypeCode(e.PayrollType))
}

// INS17 carries the beneficiary's share.
func (a *EnrollmentAssembler) writeBeneficiary(doc *document, e *domain.Enrollee, b *domain.Beneficiary, maintenance x12.MaintenanceType, employment x12.EmploymentStatus) {
	doc.add(x12.Insured,
		string(x12.No),
		x12.RelationshipCode(domain.RelationshipOther),
		string(maintenance),
		string(x12.ReasonNone),
		"A",
		"", "",
		string(employment),
		"",
		string(x12.Yes), // beneficiary
		"", "", // death date qualifier, death date
		"", "", "", "",
		strconv.Itoa(b.Percent),
	)
	doc.add(x12.Reference, "0F", e.SubscriberID)
	doc.add(x12.EntityName,
		string(x12.EntityInsured),
		x12.EntityTypeCode(domain.EntityPerson),
		b.Name.Last,
		b.Name.First,
		b.Name.MiddleInitial(),
	)
}

func writeCoverage(doc *document, e *domain.Enrollee, maintenance x12.MaintenanceType, includeEnd bool) {
	doc.add(x12.Coverage,
		string(maintenance),
		"",
		insuranceLineHealth,
		x12.PadLeft(strconv.Itoa(e.ElectedUnits), electedUnitsWidth, '0'),
		x12.CoverageTypeCode(e.CoverageType),
	)
	doc.add(x12.DateTimePeriod, string(x12.DateBenefitBegin), x12.DateQualifierD8, d8(e.EffectiveDate))
	if includeEnd {
		doc.add(x12.DateTimePeriod, string(x12.DateBenefitEnd), x12.DateQualifierD8, d8(e.TermDate))
	}
}

// writeName writes NM1 for a person. The SSN pair is omitted when no SSN is
// on file.
func writeName(doc *document, entity x12.EntityIdentifier, name domain.PersonName, ssn string) {
	fields := []string{
		string(entity),
		x12.EntityTypeCode(domain.EntityPerson),
		name.Last,
		name.First,
		name.MiddleInitial(),
		"", // suffix
	}
	if ssn != "" {
		fields = append(fields, string(x12.IDSSN), ssn)
	}
	doc.add(x12.EntityName, fields...)
}

// writeContact writes PER with only the communication numbers on file.
func writeContact(doc *document, p *domain.Person) {
	fields := []string{string(x12.ContactInsuredParty), ""}
	for _, c := range []struct {
		q     x12.CommunicationQualifier
		value string
	}{
		{x12.CommTelephone, domain.Numeric(p.Phone)},
		{x12.CommAltPhone, domain.Numeric(p.AltPhone)},
		{x12.CommEmail, p.Email},
	} {
		if c.value != "" {
			fields = append(fields, string(c.q), c.value)
		}
	}
	if len(fields) == 2 {
		return
	}
	doc.add(x12.ContactInfo, fields...)
}

func writeAddress(doc *document, addr domain.Address) {
	doc.add(x12.AddressStreet, addr.Street)
	doc.add(x12.AddressCityStateZip, addr.City, addr.State, addr.Zip)
}
