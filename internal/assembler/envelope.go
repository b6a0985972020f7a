// =============================================================================
// EDI Generator - Envelope
// =============================================================================
//
// Both transaction sets share one envelope:
//
//   ISA  interchange header    control number issued (9 digits)
//   GS   functional group      control number issued
//   ST   transaction set       control number issued (4 digits)
//   ...  transaction body
//   SE   transaction set end   segment count + ST number re-read
//   GE   group end             "1" + GS number re-read
//   IEA  interchange end       "1" + ISA number re-read
//
// Opening segments call Next on the ledger; closing segments call Peek so the
// trailer always echoes the header. The SE segment count covers every
// segment strictly between ISA and IEA (GS through GE) and is computed from
// the emitted list when the trailer is built.
//
// =============================================================================

package assembler

import (
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ginjaninja78/edi-enrollment/internal/ledger"
	"github.com/ginjaninja78/edi-enrollment/internal/x12"
)

// Ledger keys. Control numbers are tracked per segment identifier.
const (
	keyInterchange    = string(x12.InterchangeBegin)
	keyGroup          = string(x12.GroupBegin)
	keyTransactionSet = string(x12.TransactionSetBegin)
	keyTransaction    = string(x12.TransactionBegin)
	keyHierarchy      = string(x12.HierarchyBegin)
	keyServiceLine    = string(x12.ServiceLine)
)

const (
	interchangeControlWidth    = 9
	transactionSetControlWidth = 4
	interchangeVersion         = "00501"
	defaultIDQualifier         = "ZZ"
)

// Interchange identifies the trading partners in the envelope and in the
// party segments of each transaction.
type Interchange struct {
	SenderID          string
	ReceiverID        string
	SenderQualifier   string
	ReceiverQualifier string
	SenderTIN         string
	ReceiverTIN       string
}

// DefaultInterchange returns placeholder partner identifiers.
func DefaultInterchange() Interchange {
	return Interchange{
		SenderID:          "PARTNER_ID",
		ReceiverID:        "RCVR_ID",
		SenderQualifier:   defaultIDQualifier,
		ReceiverQualifier: defaultIDQualifier,
		SenderTIN:         "SENDER_TIN",
		ReceiverTIN:       "RCVR_TIN",
	}
}

func (ic Interchange) senderQualifier() string {
	if ic.SenderQualifier == "" {
		return defaultIDQualifier
	}
	return ic.SenderQualifier
}

func (ic Interchange) receiverQualifier() string {
	if ic.ReceiverQualifier == "" {
		return defaultIDQualifier
	}
	return ic.ReceiverQualifier
}

// =============================================================================
// SHARED SETTINGS
// =============================================================================

// settings holds what both assemblers share.
type settings struct {
	delims x12.Delimiters
	now    func() time.Time
	logger logrus.FieldLogger
}

func defaultSettings() settings {
	return settings{
		delims: x12.DefaultDelimiters(),
		now:    time.Now,
		logger: discardLogger(),
	}
}

// Option adjusts an assembler.
type Option func(*settings)

// WithDelimiters selects the X12 dialect.
func WithDelimiters(d x12.Delimiters) Option {
	return func(s *settings) { s.delims = d }
}

// WithClock replaces time.Now. Header timestamps and every "today"
// comparison are taken from one call per assembly.
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *settings) { s.logger = logger }
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(nopWriter{})
	return l
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

// =============================================================================
// DOCUMENT
// =============================================================================

// Result is a finished transaction set.
type Result struct {
	// Text is the rendered document.
	Text string

	// Segments is the rendered segment list in output order.
	Segments []string

	// InterchangeControl is the ISA13 value issued for this document.
	InterchangeControl int

	// Included and Excluded count enrollees (834) or claims (837) that were
	// and were not encoded.
	Included int
	Excluded int
}

// document accumulates segments for one interchange.
type document struct {
	b        x12.Builder
	ledger   ledger.Provider
	stamp    time.Time
	segments []string
}

func newDocument(delims x12.Delimiters, l ledger.Provider, stamp time.Time) *document {
	return &document{
		b:      x12.NewBuilder(delims),
		ledger: l,
		stamp:  stamp.UTC(),
	}
}

// add renders a segment. Trailing empty fields are dropped; empty fields
// before a populated one are kept as placeholders.
func (d *document) add(id x12.SegmentID, fields ...string) {
	d.segments = append(d.segments, d.b.Segment(id, trimTrailing(fields)...))
}

func trimTrailing(fields []string) []string {
	n := len(fields)
	for n > 0 && fields[n-1] == "" {
		n--
	}
	return fields[:n]
}

func (d *document) headerDate() string { return d.stamp.Format(x12.DateFormat) }
func (d *document) headerTime() string { return d.stamp.Format(x12.TimeFormat) }

func (d *document) next(key string, width int) string {
	return ledger.Format(key, d.ledger.Next(key), width, false)
}

func (d *document) peek(key string, width int) string {
	return ledger.Format(key, d.ledger.Peek(key), width, false)
}

// open writes ISA, GS and ST.
func (d *document) open(ic Interchange, mode x12.Mode, fid x12.FunctionalID, txSet, version string) {
	blank := x12.PadRight("", 10, ' ')
	delims := d.b.Delimiters()

	d.add(x12.InterchangeBegin,
		"00", blank, // authorization
		"00", blank, // security
		ic.senderQualifier(), x12.PadRight(ic.SenderID, 15, ' '),
		ic.receiverQualifier(), x12.PadRight(ic.ReceiverID, 15, ' '),
		d.stamp.Format(x12.InterchangeDateFormat),
		d.headerTime(),
		delims.Repetition,
		interchangeVersion,
		d.next(keyInterchange, interchangeControlWidth),
		"0", // acknowledgment not requested
		mode.Code(),
		delims.Component,
	)

	d.add(x12.GroupBegin,
		string(fid),
		ic.SenderID,
		ic.ReceiverID,
		d.headerDate(),
		d.headerTime(),
		d.next(keyGroup, 0),
		"X",
		version,
	)

	d.add(x12.TransactionSetBegin,
		txSet,
		d.next(keyTransactionSet, transactionSetControlWidth),
		version,
	)
}

// close writes SE, GE and IEA.
func (d *document) close() {
	// ISA is excluded; SE and GE are about to be added and are counted.
	count := len(d.segments) - 1 + 2

	d.add(x12.TransactionSetEnd,
		strconv.Itoa(count),
		d.peek(keyTransactionSet, transactionSetControlWidth),
	)
	d.add(x12.GroupEnd, "1", d.peek(keyGroup, 0))
	d.add(x12.InterchangeEnd, "1", d.peek(keyInterchange, interchangeControlWidth))
}

// finish saves the ledger and renders the document.
func (d *document) finish(transaction string, newline bool) (*Result, error) {
	if err := d.ledger.Save(); err != nil {
		return nil, &LedgerSaveError{Transaction: transaction, Err: err}
	}
	return &Result{
		Text:               x12.Join(d.segments, newline),
		Segments:           d.segments,
		InterchangeControl: d.ledger.Peek(keyInterchange),
	}, nil
}

func d8(t time.Time) string { return t.Format(x12.DateFormat) }
