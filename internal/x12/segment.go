// =============================================================================
// EDI Generator - Segment Builder
// =============================================================================
//
// The segment builder is the only place that knows the punctuation of the
// X12 dialect. A segment is:
//
//   ID <field> f1 <field> f2 ... <field> fn <segment>
//
// Field meaning is positional. An omitted optional field that precedes a
// populated one MUST still be written as an empty placeholder, so callers
// pass "" for those positions and the builder writes every field it is
// given. Trailing optional fields are omitted by not passing them.
//
// The builder does not escape delimiter characters inside data. Values are
// rejected at import when they contain any delimiter of the dialect in use
// (see internal/validation and internal/config).
//
// =============================================================================

package x12

import "strings"

// =============================================================================
// FORMAT CONSTANTS
// =============================================================================

const (
	// DateFormat is the D8 (CCYYMMDD) date format.
	DateFormat = "20060102"

	// InterchangeDateFormat is the YYMMDD date in the ISA header.
	InterchangeDateFormat = "060102"

	// TimeFormat is the HHMM time used in ISA, GS, BGN and BHT.
	TimeFormat = "1504"

	// DateQualifierD8 tags a DTP/DMG date as CCYYMMDD.
	DateQualifierD8 = "D8"
)

// Delimiters is the punctuation of one X12 dialect. It is passed by value
// into the builder so dialects can coexist.
type Delimiters struct {
	// Field separates elements within a segment.
	Field string

	// Segment terminates a segment.
	Segment string

	// Repetition is advertised in ISA11.
	Repetition string

	// Component separates the parts of a composite element and is
	// advertised in ISA16.
	Component string
}

// DefaultDelimiters returns the dialect expected by the receiving system.
func DefaultDelimiters() Delimiters {
	return Delimiters{
		Field:      "*",
		Segment:    "~",
		Repetition: ">",
		Component:  ":",
	}
}

// Conflicts reports whether value contains any delimiter of the dialect.
func (d Delimiters) Conflicts(value string) bool {
	for _, delim := range []string{d.Field, d.Segment, d.Repetition, d.Component} {
		if delim != "" && strings.Contains(value, delim) {
			return true
		}
	}
	return false
}

// =============================================================================
// BUILDER
// =============================================================================

// Builder renders segments for one dialect.
type Builder struct {
	delims Delimiters
}

// NewBuilder returns a builder for the given dialect.
func NewBuilder(delims Delimiters) Builder {
	return Builder{delims: delims}
}

// Delimiters returns the dialect the builder renders.
func (b Builder) Delimiters() Delimiters { return b.delims }

// Segment renders one terminated segment.
func (b Builder) Segment(id SegmentID, fields ...string) string {
	var sb strings.Builder
	sb.WriteString(string(id))
	for _, f := range fields {
		sb.WriteString(b.delims.Field)
		sb.WriteString(f)
	}
	sb.WriteString(b.delims.Segment)
	return sb.String()
}

// Composite joins the parts of a composite element with the component
// delimiter, e.g. "ABK:J20.9".
func (b Builder) Composite(parts ...string) string {
	return strings.Join(parts, b.delims.Component)
}

// Join concatenates rendered segments, optionally separating them with a
// newline. The newline is cosmetic; the format does not require it.
func Join(segments []string, newline bool) string {
	if newline {
		return strings.Join(segments, "\n")
	}
	return strings.Join(segments, "")
}

// PadLeft left-pads s with pad up to length runes.
func PadLeft(s string, length int, pad rune) string {
	n := len([]rune(s))
	if n >= length {
		return s
	}
	return strings.Repeat(string(pad), length-n) + s
}

// PadRight right-pads s with pad up to length runes.
func PadRight(s string, length int, pad rune) string {
	n := len([]rune(s))
	if n >= length {
		return s
	}
	return s + strings.Repeat(string(pad), length-n)
}
