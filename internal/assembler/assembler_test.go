package assembler

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/ginjaninja78/edi-enrollment/internal/domain"
	"github.com/ginjaninja78/edi-enrollment/internal/ledger"
	"github.com/ginjaninja78/edi-enrollment/internal/x12"
)

var runTime = time.Date(2024, time.June, 15, 14, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return runTime }

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// fields splits a rendered default-dialect segment into its id and elements.
func fields(segment string) []string {
	return strings.Split(strings.TrimSuffix(segment, "~"), "*")
}

func withID(segments []string, id x12.SegmentID) [][]string {
	var out [][]string
	for _, s := range segments {
		f := fields(s)
		if f[0] == string(id) {
			out = append(out, f)
		}
	}
	return out
}

func withPrefix(segments []string, prefix string) []string {
	var out []string
	for _, s := range segments {
		if strings.HasPrefix(s, prefix) {
			out = append(out, s)
		}
	}
	return out
}

type failingStore struct {
	ledger.MemoryStore
}

func (f *failingStore) Save(map[string]int) error { return errors.New("read-only volume") }

func activeEnrollee(group string) domain.Enrollee {
	return domain.Enrollee{
		Person: domain.Person{
			Name:    domain.PersonName{First: "Jane", Middle: "Q", Last: "Doe"},
			Gender:  domain.GenderFemale,
			DOB:     day(1985, time.March, 4),
			SSN:     "123-45-6789",
			Phone:   "(555) 010-2000",
			Email:   "jane@example.com",
			Address: domain.Address{Street: "1 Main St", City: "Springfield", State: "IL", Zip: "62701"},
		},
		Employment:         domain.EmploymentInfo{EmployerName: "Acme", GroupID: group},
		SubscriberID:       "S100",
		RelationshipStatus: domain.StatusMarried,
		PayrollType:        domain.PayrollBiweekly,
		CoverageType:       domain.CoverageEmployeeOnly,
		ElectedUnits:       3,
		EffectiveDate:      day(2024, time.January, 1),
		DateSigned:         day(2023, time.December, 1),
	}
}

// =============================================================================
// 834
// =============================================================================

type EnrollmentTestSuite struct {
	suite.Suite
	store  *ledger.MemoryStore
	ledger *ledger.Ledger
}

func (s *EnrollmentTestSuite) SetupTest() {
	s.store = ledger.NewMemoryStore(nil)
	l, err := ledger.New(s.store)
	s.Require().NoError(err)
	s.ledger = l
}

func TestEnrollmentTestSuite(t *testing.T) {
	suite.Run(t, new(EnrollmentTestSuite))
}

func (s *EnrollmentTestSuite) assembler(opts EnrollmentOptions) *EnrollmentAssembler {
	return NewEnrollmentAssembler(s.ledger, DefaultInterchange(), opts, WithClock(fixedClock))
}

func (s *EnrollmentTestSuite) build(opts EnrollmentOptions, enrollees ...domain.Enrollee) *Result {
	res, err := s.assembler(opts).Build(enrollees)
	s.Require().NoError(err)
	return res
}

func (s *EnrollmentTestSuite) TestSingleActiveEnrollee() {
	opts := DefaultEnrollmentOptions()
	opts.GroupID = "G1"
	res := s.build(opts, activeEnrollee("G1"))
	segs := res.Segments

	ins := withID(segs, x12.Insured)
	s.Require().Len(ins, 1)
	s.Equal("Y", ins[0][1])
	s.Equal("18", ins[0][2])
	s.Equal("021", ins[0][3])
	s.Equal("AC", ins[0][8])

	s.Len(withID(segs, x12.Coverage), 1)
	s.Len(withPrefix(segs, "DTP*348*"), 1)
	s.Len(withPrefix(segs, "DTP*349*"), 0)
	s.Contains(segs, "HD*021**HLT*00003*EMP~")
	s.Contains(segs, "REF*38*G1~")
	s.Contains(segs, "NM1*IL*1*Doe*Jane*Q**34*123456789~")
	s.Contains(segs, "DMG*D8*19850304*F*M~")
	s.Contains(segs, "PER*IP**TE*5550102000*EM*jane@example.com~")
	s.Contains(segs, "N3*1 Main St~")

	isa := fields(segs[0])
	iea := fields(segs[len(segs)-1])
	s.Equal("ISA", isa[0])
	s.Equal("000000001", isa[13])
	s.Equal(isa[13], iea[2])
	s.Equal("T", isa[15])
	s.Equal(":", isa[16])
	s.Equal("240615", isa[9])
	s.Equal("1430", isa[10])
	s.Len(isa[6], 15)

	gs := withID(segs, x12.GroupBegin)[0]
	ge := withID(segs, x12.GroupEnd)[0]
	s.Equal("BE", gs[1])
	s.Equal(gs[6], ge[2])

	st := withID(segs, x12.TransactionSetBegin)[0]
	se := withID(segs, x12.TransactionSetEnd)[0]
	s.Equal("834", st[1])
	s.Equal("0001", st[2])
	s.Equal(st[2], se[2])

	s.Equal(1, res.Included)
	s.Equal(1, res.InterchangeControl)
	s.Equal(1, s.store.Saves)
}

func (s *EnrollmentTestSuite) TestTrailerCountMatchesSegmentsBetweenISAAndIEA() {
	e := activeEnrollee("G1")
	e.Dependents = []domain.Dependent{{Person: domain.Person{Name: domain.PersonName{First: "Kid", Last: "Doe"}}, Relationship: domain.RelationshipChild}}
	e.Beneficiaries = []domain.Beneficiary{{Name: domain.PersonName{First: "Sam", Last: "Doe"}, Percent: 100}}

	res := s.build(DefaultEnrollmentOptions(), e, activeEnrollee("G2"))
	segs := res.Segments

	se := withID(segs, x12.TransactionSetEnd)[0]
	s.Equal(strconv.Itoa(len(segs)-2), se[1])
	s.True(strings.HasPrefix(segs[0], "ISA*"))
	s.True(strings.HasPrefix(segs[len(segs)-1], "IEA*"))
}

func (s *EnrollmentTestSuite) TestGroupsPartitionInFirstSeenOrder() {
	res := s.build(DefaultEnrollmentOptions(), activeEnrollee("G2"), activeEnrollee("G1"), activeEnrollee("G2"))
	segs := res.Segments

	refs := withPrefix(segs, "REF*38*")
	s.Equal([]string{"REF*38*G2~", "REF*38*G1~"}, refs)

	bgn := withID(segs, x12.TransactionBegin)
	s.Require().Len(bgn, 2)
	s.Equal("1", bgn[0][2])
	s.Equal("2", bgn[1][2])
	s.Len(withID(segs, x12.TransactionSetBegin), 1)
	s.Len(withID(segs, x12.Insured), 3)
}

func (s *EnrollmentTestSuite) TestCancellationToggleConsistency() {
	tests := []struct {
		name      string
		effective time.Time
		term      time.Time
		cancelled bool
	}{
		{"active", day(2024, time.January, 1), time.Time{}, false},
		{"termed in the past", day(2024, time.January, 1), day(2024, time.June, 1), true},
		{"pre-enrollment cancellation", day(2024, time.August, 1), day(2024, time.August, 1), true},
		{"future termination", day(2024, time.January, 1), day(2024, time.December, 31), false},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			e := activeEnrollee("G1")
			e.EffectiveDate, e.TermDate = tt.effective, tt.term
			e.Dependents = []domain.Dependent{{Relationship: domain.RelationshipSpouse}}
			e.Beneficiaries = []domain.Beneficiary{{Name: domain.PersonName{Last: "Doe"}, Percent: 50}}

			segs := s.build(DefaultEnrollmentOptions(), e).Segments

			wantMaint, wantEmp := "021", "AC"
			if tt.cancelled {
				wantMaint, wantEmp = "024", "TE"
			}
			ins := withID(segs, x12.Insured)
			s.Require().Len(ins, 3)
			for _, f := range ins {
				s.Equal(wantMaint, f[3])
				s.Equal(wantEmp, f[8])
			}
			hd := withID(segs, x12.Coverage)
			s.Require().Len(hd, 2)
			for _, f := range hd {
				s.Equal(wantMaint, f[1])
			}
		})
	}
}

func (s *EnrollmentTestSuite) TestCoverageEndInclusion() {
	termed := activeEnrollee("G1")
	termed.TermDate = day(2024, time.June, 10)
	segs := s.build(DefaultEnrollmentOptions(), termed).Segments
	s.Contains(segs, "DTP*349*D8*20240610~")

	future := activeEnrollee("G1")
	future.TermDate = day(2024, time.July, 1)
	segs = s.build(DefaultEnrollmentOptions(), future).Segments
	s.Empty(withPrefix(segs, "DTP*349*"))
}

func (s *EnrollmentTestSuite) TestInclusionFilter() {
	old := activeEnrollee("G1")
	old.SubscriberID = "OLD"
	old.TermDate = day(2024, time.April, 1)

	recent := activeEnrollee("G1")
	recent.SubscriberID = "RECENT"
	recent.TermDate = day(2024, time.June, 1)

	upcoming := activeEnrollee("G1")
	upcoming.SubscriberID = "UPCOMING"
	upcoming.EffectiveDate = day(2024, time.September, 1)

	res := s.build(DefaultEnrollmentOptions(), old, recent, upcoming)
	s.Equal(2, res.Included)
	s.Equal(1, res.Excluded)
	s.NotContains(res.Segments, "REF*0F*OLD~")
	s.Contains(res.Segments, "REF*0F*RECENT~")
	s.Contains(res.Segments, "REF*0F*UPCOMING~")
}

func (s *EnrollmentTestSuite) TestRecentTermDaysOption() {
	e := activeEnrollee("G1")
	e.TermDate = day(2024, time.June, 1)

	opts := DefaultEnrollmentOptions()
	opts.RecentTermDays = 7
	res := s.build(opts, e)
	s.Equal(0, res.Included)
	s.Empty(withID(res.Segments, x12.Insured))
}

func (s *EnrollmentTestSuite) TestMailingAddressLoop() {
	e := activeEnrollee("G1")
	segs := s.build(DefaultEnrollmentOptions(), e).Segments
	s.Empty(withPrefix(segs, "NM1*31*"))

	e.MailingAddress = &domain.Address{Street: "PO Box 9", City: "Springfield", State: "IL", Zip: "62705"}
	segs = s.build(DefaultEnrollmentOptions(), e).Segments
	s.Contains(segs, "NM1*31*1~")
	s.Contains(segs, "N3*PO Box 9~")
	s.Contains(segs, "N4*Springfield*IL*62705~")
}

func (s *EnrollmentTestSuite) TestDependentAndBeneficiaryToggles() {
	e := activeEnrollee("G1")
	e.Dependents = []domain.Dependent{{
		Person:       domain.Person{Name: domain.PersonName{First: "Kid", Last: "Doe"}, DOB: day(2015, time.May, 5), Gender: domain.GenderMale},
		Relationship: domain.RelationshipChild,
	}}
	e.Beneficiaries = []domain.Beneficiary{{Name: domain.PersonName{First: "Sam", Last: "Doe"}, Percent: 60}}

	segs := s.build(DefaultEnrollmentOptions(), e).Segments
	s.Contains(segs, "INS*N*19*021*AL*A***AC~")
	s.Contains(segs, "DMG*D8*20150505*M~")
	s.Contains(segs, "REF*E8*00002~")
	s.Contains(segs, "INS*N*G8*021*AL*A***AC**Y*******60~")
	s.Contains(segs, "NM1*IL*1*Doe*Sam~")

	opts := DefaultEnrollmentOptions()
	opts.IncludeDependents = false
	opts.IncludeBeneficiaries = false
	segs = s.build(opts, e).Segments
	s.Len(withID(segs, x12.Insured), 1)
}

func (s *EnrollmentTestSuite) TestBeneficiaryRelationshipIsNotSent() {
	e := activeEnrollee("G1")
	e.Beneficiaries = []domain.Beneficiary{{
		Name:         domain.PersonName{First: "Pat", Last: "Doe"},
		Relationship: domain.RelationshipSpouse,
		Percent:      100,
	}}

	segs := s.build(DefaultEnrollmentOptions(), e).Segments
	s.Contains(segs, "INS*N*G8*021*AL*A***AC**Y*******100~")
	s.Empty(withPrefix(segs, "INS*N*01*"))
}

func (s *EnrollmentTestSuite) TestSingleGroupRejectsMixedInputBeforeIssuing() {
	opts := DefaultEnrollmentOptions()
	opts.GroupID = "G1"

	out, err := s.assembler(opts).Assemble([]domain.Enrollee{activeEnrollee("G1"), activeEnrollee("G2")})
	s.Require().Error(err)
	s.True(errors.Is(err, ErrMultipleGroups))
	s.Empty(out)
	s.Empty(s.ledger.Keys())
	s.Equal(0, s.store.Saves)
}

func (s *EnrollmentTestSuite) TestEmptyInput() {
	_, err := s.assembler(DefaultEnrollmentOptions()).Assemble(nil)
	s.True(errors.Is(err, ErrNoInput))
}

func (s *EnrollmentTestSuite) TestControlNumbersAdvanceAcrossRuns() {
	first := s.build(DefaultEnrollmentOptions(), activeEnrollee("G1"))
	second := s.build(DefaultEnrollmentOptions(), activeEnrollee("G1"))

	s.Equal(1, first.InterchangeControl)
	s.Equal(2, second.InterchangeControl)
	s.Equal("0002", withID(second.Segments, x12.TransactionSetBegin)[0][2])
	s.Equal(2, s.store.Values["ISA"])
	s.Equal(2, s.store.Values["BGN"])
}

func (s *EnrollmentTestSuite) TestNewlineJoin() {
	opts := DefaultEnrollmentOptions()
	opts.Newline = true
	out, err := s.assembler(opts).Assemble([]domain.Enrollee{activeEnrollee("G1")})
	s.Require().NoError(err)
	s.True(strings.Contains(out, "~\nGS*"))

	opts.Newline = false
	out, err = s.assembler(opts).Assemble([]domain.Enrollee{activeEnrollee("G1")})
	s.Require().NoError(err)
	s.NotContains(out, "\n")
}

func TestEnrollmentSaveFailure(t *testing.T) {
	store := &failingStore{MemoryStore: ledger.MemoryStore{Values: map[string]int{"ISA": 41}}}
	l, err := ledger.New(store)
	require.NoError(t, err)

	a := NewEnrollmentAssembler(l, DefaultInterchange(), DefaultEnrollmentOptions(), WithClock(fixedClock))
	out, err := a.Assemble([]domain.Enrollee{activeEnrollee("G1")})

	require.Error(t, err)
	assert.Empty(t, out)
	assert.True(t, errors.Is(err, ErrLedgerSave))

	var saveErr *LedgerSaveError
	require.True(t, errors.As(err, &saveErr))
	assert.Equal(t, "834", saveErr.Transaction)

	// nothing from the failed run survives
	assert.Equal(t, 41, l.Peek("ISA"))
	assert.Equal(t, ledger.Uninitialized, l.Peek("ST"))

	reloaded, err := ledger.New(store)
	require.NoError(t, err)
	assert.Equal(t, 41, reloaded.Peek("ISA"))
}

func TestAlternateDialect(t *testing.T) {
	l, err := ledger.New(ledger.NewMemoryStore(nil))
	require.NoError(t, err)

	d := x12.Delimiters{Field: "|", Segment: "!", Repetition: "^", Component: "<"}
	a := NewEnrollmentAssembler(l, DefaultInterchange(), DefaultEnrollmentOptions(), WithClock(fixedClock), WithDelimiters(d))
	out, err := a.Assemble([]domain.Enrollee{activeEnrollee("G1")})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "ISA|00|"))
	assert.Contains(t, out, "|^|00501|")
	assert.Contains(t, out, "|T|<!")
	assert.NotContains(t, out, "*")
	assert.NotContains(t, out, "~")
}

// =============================================================================
// 837
// =============================================================================

func submitter() domain.Submitter {
	return domain.Submitter{
		Person: domain.Person{
			Phone:   "555-010-3000",
			Email:   "billing@clinic.example",
			Address: domain.Address{Street: "9 Clinic Rd", City: "Springfield", State: "IL", Zip: "62702"},
		},
		Type:             domain.EntityNonPerson,
		OrganizationName: "Springfield Clinic",
		NPINumber:        "1234567893",
		EIN:              "991234567",
	}
}

func claim(number string, rel domain.Relationship, amounts ...string) domain.Claim {
	c := domain.Claim{
		Person: domain.Person{
			Name:    domain.PersonName{First: "John", Last: "Roe"},
			Gender:  domain.GenderMale,
			DOB:     day(1980, time.February, 2),
			Address: domain.Address{Street: "5 Elm St", City: "Springfield", State: "IL", Zip: "62703"},
		},
		Employment:   domain.EmploymentInfo{EmployerName: "Acme", GroupID: "G1"},
		SubscriberID: "M500",
		ClaimNumber:  number,
		ICDCode:      "J20.9",
		Patient:      domain.NewPatient(),
	}
	c.Patient.Relationship = rel
	for _, a := range amounts {
		svc := domain.NewService()
		svc.ProcedureCode = "99213"
		svc.Amount = decimal.RequireFromString(a)
		svc.DateOfService = day(2024, time.June, 3)
		c.Services = append(c.Services, svc)
	}
	return c
}

func TestClaimHierarchicalLevels(t *testing.T) {
	store := ledger.NewMemoryStore(nil)
	l, err := ledger.New(store)
	require.NoError(t, err)

	a := NewClaimAssembler(l, DefaultInterchange(), ClaimOptions{Mode: x12.ModeProduction}, WithClock(fixedClock))
	res, err := a.Build([]domain.Claim{
		claim("C1", domain.RelationshipSelf, "10.00"),
		claim("C2", domain.RelationshipSpouse, "20.50", "0.25"),
	}, submitter())
	require.NoError(t, err)
	segs := res.Segments

	hl := withID(segs, x12.HierarchicalLevel)
	require.Len(t, hl, 4)
	assert.Equal(t, []string{"HL", "1", "", "20", "1"}, hl[0])
	assert.Equal(t, []string{"HL", "2", "1", "22", "0"}, hl[1])
	assert.Equal(t, []string{"HL", "3", "", "20", "1"}, hl[2])
	assert.Equal(t, []string{"HL", "4", "3", "22", "1"}, hl[3])

	assert.Contains(t, segs, "LX*1~")
	assert.Contains(t, segs, "LX*2~")
	assert.Contains(t, segs, "LX*3~")
	assert.Contains(t, segs, "CLM*C1*10***12:B:1*N*C*N*I*P~")
	assert.Contains(t, segs, "CLM*C2*20.75***12:B:1*N*C*N*I*P~")
	assert.Contains(t, segs, "HI*ABK:J20.9~")
	assert.Contains(t, segs, "SV1*HC:99213*20.5*UN*1***1~")
	assert.Contains(t, segs, "DTP*472*D8*20240603~")
	assert.Contains(t, segs, "SBR*P*01*G1*Acme*****15~")
	assert.Contains(t, segs, "NM1*85*2*Springfield Clinic*****XX*1234567893~")
	assert.Contains(t, segs, "NM1*PR*2*RCVR_ID*****34*RCVR_TIN~")
	assert.Contains(t, segs, "PRV*BI*PXC*193200000X~")
	assert.Equal(t, 3, store.Values["LX"])

	isa := fields(segs[0])
	assert.Equal(t, "P", isa[15])
	st := withID(segs, x12.TransactionSetBegin)[0]
	se := withID(segs, x12.TransactionSetEnd)[0]
	assert.Equal(t, "837", st[1])
	assert.Equal(t, st[2], se[2])
	assert.Equal(t, strconv.Itoa(len(segs)-2), se[1])
	assert.Equal(t, "HC", withID(segs, x12.GroupBegin)[0][1])
}

func TestClaimHeaderOrdering(t *testing.T) {
	l, err := ledger.New(ledger.NewMemoryStore(nil))
	require.NoError(t, err)

	a := NewClaimAssembler(l, DefaultInterchange(), ClaimOptions{}, WithClock(fixedClock))
	res, err := a.Build([]domain.Claim{claim("C1", domain.RelationshipSelf, "1")}, submitter())
	require.NoError(t, err)

	ids := make([]string, 0, len(res.Segments))
	for _, seg := range res.Segments {
		ids = append(ids, fields(seg)[0])
	}
	assert.Equal(t, []string{
		"ISA", "GS", "ST", "BHT", "NM1", "PER", "NM1",
		"HL", "PRV", "NM1", "N3", "N4", "REF",
		"HL", "SBR", "NM1", "N3", "N4", "DMG", "NM1",
		"CLM", "HI",
		"LX", "SV1", "DTP",
		"SE", "GE", "IEA",
	}, ids)
	assert.Equal(t, "BHT*0019*00*1*20240615*1430*CH~", res.Segments[3])
	assert.Equal(t, "PER*IC*Springfield Clinic*TE*5550103000*EM*billing@clinic.example~", res.Segments[5])
}

func TestClaimValidation(t *testing.T) {
	store := ledger.NewMemoryStore(nil)
	l, err := ledger.New(store)
	require.NoError(t, err)
	a := NewClaimAssembler(l, DefaultInterchange(), ClaimOptions{}, WithClock(fixedClock))

	_, err = a.Assemble(nil, submitter())
	assert.True(t, errors.Is(err, ErrNoInput))

	_, err = a.Assemble([]domain.Claim{claim("C1", domain.RelationshipSelf)}, submitter())
	assert.True(t, errors.Is(err, ErrNoServices))
	assert.Empty(t, l.Keys())
	assert.Equal(t, 0, store.Saves)
}

func TestClaimSaveFailure(t *testing.T) {
	l, err := ledger.New(&failingStore{})
	require.NoError(t, err)

	a := NewClaimAssembler(l, DefaultInterchange(), ClaimOptions{}, WithClock(fixedClock))
	out, err := a.Assemble([]domain.Claim{claim("C1", domain.RelationshipSelf, "5")}, submitter())
	assert.Empty(t, out)
	assert.True(t, errors.Is(err, ErrLedgerSave))
	assert.Equal(t, ledger.Uninitialized, l.Peek("LX"))
}
