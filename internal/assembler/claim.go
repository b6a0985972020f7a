// =============================================================================
// EDI Generator - 837 Professional Claim Assembler
// =============================================================================
//
// LOOP LAYOUT:
//
//   BHT, NM1*41 submitter, PER*IC, NM1*40 receiver
//   per claim:
//     2000A HL n (information source, has child), PRV, NM1*85, N3, N4, REF*EI
//     2000B HL n+1 (subscriber, parent n), SBR
//     2010BA NM1*IL, N3, N4, DMG
//     2010BB NM1*PR
//     2300  CLM, HI
//     2400  per service: LX, SV1, DTP*472
//
// HL numbers advance by two per claim so every claim carries its own
// provider/subscriber pair (1,2 then 3,4 ...). The subscriber HL04 is "0"
// when the patient is the subscriber and "1" otherwise.
//
// =============================================================================

package assembler

import (
	"strconv"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ginjaninja78/edi-enrollment/internal/domain"
	"github.com/ginjaninja78/edi-enrollment/internal/ledger"
	"github.com/ginjaninja78/edi-enrollment/internal/x12"
)

const (
	claimTransactionSet = "837"

	// ClaimVersion is the 837 professional implementation guide in GS08/ST03.
	ClaimVersion = "005010X222A1"

	// DefaultTaxonomyCode is the billing provider taxonomy sent in PRV03.
	DefaultTaxonomyCode = "193200000X"

	claimFilingIndicator = "15"
	diagnosisPointer     = "1"
	unitsQualifier       = "UN"
	procedureQualifier   = "HC"
)

// CLM elements whose meaning is uncertain. Sent as received in the trading
// partner sample; do not change without a conformance file.
const (
	clmProviderSignature = x12.No // CLM06
	clmAssignment        = "C"    // CLM07
	clmResponseCode      = x12.No // CLM08, purpose unconfirmed
	clmReleaseOfInfo     = "I"    // CLM09
	clmPatientSignature  = "P"    // CLM10
)

// ClaimOptions are the run parameters of an 837.
type ClaimOptions struct {
	Mode x12.Mode

	// TaxonomyCode overrides DefaultTaxonomyCode.
	TaxonomyCode string

	Newline bool
}

// ClaimAssembler renders claims as an 837 professional interchange.
type ClaimAssembler struct {
	settings
	ledger      ledger.Provider
	interchange Interchange
	opts        ClaimOptions
}

// NewClaimAssembler returns an assembler issuing control numbers from l.
func NewClaimAssembler(l ledger.Provider, ic Interchange, opts ClaimOptions, options ...Option) *ClaimAssembler {
	if opts.TaxonomyCode == "" {
		opts.TaxonomyCode = DefaultTaxonomyCode
	}
	a := &ClaimAssembler{
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

// Assemble renders claims billed by submitter and saves the ledger.
func (a *ClaimAssembler) Assemble(claims []domain.Claim, submitter domain.Submitter) (string, error) {
	res, err := a.Build(claims, submitter)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// Build is Assemble with run statistics.
func (a *ClaimAssembler) Build(claims []domain.Claim, submitter domain.Submitter) (*Result, error) {
	if len(claims) == 0 {
		return nil, ErrNoInput
	}
	for i := range claims {
		if len(claims[i].Services) == 0 {
			return nil, errors.Wrapf(ErrNoServices, "claim %d (%s)", i+1, claims[i].ClaimNumber)
		}
	}

	log := a.logger.WithFields(logrus.Fields{
		"transaction": claimTransactionSet,
		"mode":        a.opts.Mode.String(),
	})

	doc := newDocument(a.delims, a.ledger, a.now())
	doc.open(a.interchange, a.opts.Mode, x12.FunctionalHealthcareClaim, claimTransactionSet, ClaimVersion)
	a.writeHeader(doc, &submitter)

	level := 1
	for i := range claims {
		c := &claims[i]
		a.writeProvider(doc, &submitter, level)
		a.writeClaim(doc, c, level)
		level += 2

		log.WithFields(logrus.Fields{
			"claim_number": c.ClaimNumber,
			"services":     len(c.Services),
		}).Debug("encoded claim")
	}

	doc.close()

	res, err := doc.finish(claimTransactionSet, a.opts.Newline)
	if err != nil {
		log.WithError(err).Error("837 discarded")
		return nil, err
	}
	res.Included = len(claims)

	log.WithFields(logrus.Fields{
		"segments":            len(res.Segments),
		"claims":              len(claims),
		"interchange_control": res.InterchangeControl,
	}).Info("837 assembled")
	return res, nil
}

// writeHeader writes BHT and the 1000A/1000B submitter and receiver loops.
func (a *ClaimAssembler) writeHeader(doc *document, s *domain.Submitter) {
	ic := a.interchange

	doc.add(x12.HierarchyBegin,
		"0019", // information source, subscriber, dependent
		"00",   // original
		doc.next(keyHierarchy, 0),
		doc.headerDate(),
		doc.headerTime(),
		"CH", // chargeable
	)

	doc.add(x12.EntityName,
		string(x12.PartySubmitter),
		x12.EntityTypeCode(s.Type),
		s.SubmitterName(),
		personalName(s).First,
		personalName(s).MiddleInitial(),
		"", "", // prefix, suffix
		string(x12.IDETIN),
		ic.SenderTIN,
	)

	contact := []string{string(x12.ContactInformation), s.SubmitterName()}
	if phone := domain.Numeric(s.Phone); phone != "" {
		contact = append(contact, string(x12.CommTelephone), phone)
	}
	if s.Email != "" {
		contact = append(contact, string(x12.CommEmail), s.Email)
	}
	doc.add(x12.ContactInfo, contact...)

	doc.add(x12.EntityName,
		string(x12.PartyReceiver),
		x12.EntityTypeCode(domain.EntityNonPerson),
		ic.ReceiverID,
		"", "", "", "",
		string(x12.IDETIN),
		ic.ReceiverTIN,
	)
}

// personalName is the submitter's name when the submitter is a person and
// blank otherwise, so NM104/NM105 stay empty for organizations.
func personalName(s *domain.Submitter) domain.PersonName {
	if s.Type == domain.EntityPerson {
		return s.Name
	}
	return domain.PersonName{}
}

// writeProvider writes the 2000A billing provider level.
func (a *ClaimAssembler) writeProvider(doc *document, s *domain.Submitter, level int) {
	doc.add(x12.HierarchicalLevel,
		strconv.Itoa(level),
		"",
		string(x12.LevelInformationSource),
		string(x12.HasChild),
	)
	doc.add(x12.ProviderTaxonomy, "BI", "PXC", a.opts.TaxonomyCode)
	doc.add(x12.EntityName,
		string(x12.PartyBillingProvider),
		x12.EntityTypeCode(s.Type),
		s.SubmitterName(),
		personalName(s).First,
		personalName(s).MiddleInitial(),
		"", "",
		string(x12.IDNationalProvider),
		s.NPINumber,
	)
	writeAddress(doc, s.Address)
	doc.add(x12.Reference, string(x12.IDEIN), s.EIN)
}

// writeClaim writes the 2000B subscriber level and its claim.
func (a *ClaimAssembler) writeClaim(doc *document, c *domain.Claim, parent int) {
	ic := a.interchange

	doc.add(x12.HierarchicalLevel,
		strconv.Itoa(parent+1),
		strconv.Itoa(parent),
		string(x12.LevelSubscriber),
		string(x12.ChildCode(c.PatientIsSubscriber())),
	)
	doc.add(x12.Subscriber,
		string(x12.PrimaryPayer),
		x12.RelationshipCode(c.Patient.Relationship),
		c.Employment.GroupID,
		c.Employment.EmployerName,
		"", "", "", "",
		claimFilingIndicator,
	)

	// 2010BA subscriber
	doc.add(x12.EntityName,
		string(x12.EntityInsured),
		x12.EntityTypeCode(domain.EntityPerson),
		c.Name.Last,
		c.Name.First,
		c.Name.MiddleInitial(),
		"", "",
		string(x12.IDMember),
		c.SubscriberID,
	)
	writeAddress(doc, c.Address)
	doc.add(x12.Demographics,
		x12.DateQualifierD8, d8(c.DOB),
		x12.GenderCode(c.Gender),
		x12.MaritalStatusCode(c.MaritalStatus()),
	)

	// 2010BB payer. NM109 carries the receiver TIN under the plan id
	// qualifier, as in the trading partner sample.
	doc.add(x12.EntityName,
		string(x12.PartyPayer),
		x12.EntityTypeCode(domain.EntityNonPerson),
		ic.ReceiverID,
		"", "", "", "",
		string(x12.IDPlan),
		ic.ReceiverTIN,
	)

	// 2300 claim
	facility := c.Facility
	if facility == "" {
		facility = domain.DefaultFacility
	}
	doc.add(x12.ClaimInfo,
		c.ClaimNumber,
		c.Total().String(),
		"", "",
		facility,
		string(clmProviderSignature),
		clmAssignment,
		string(clmResponseCode),
		clmReleaseOfInfo,
		clmPatientSignature,
	)
	doc.add(x12.Diagnosis, doc.b.Composite(string(x12.CodeListICD10), c.ICDCode))

	// 2400 service lines
	for i := range c.Services {
		s := &c.Services[i]
		doc.add(x12.ServiceLine, doc.next(keyServiceLine, 0))
		doc.add(x12.ProfessionalService,
			doc.b.Composite(procedureQualifier, s.ProcedureCode),
			s.Amount.String(),
			unitsQualifier,
			strconv.Itoa(s.Units),
			"", "",
			diagnosisPointer,
			"", "", "", "", "", "", "", "", "", // SV108-SV116
			s.ServiceID,
		)
		doc.add(x12.DateTimePeriod, string(x12.DateOfService), x12.DateQualifierD8, d8(s.DateOfService))
	}
}
