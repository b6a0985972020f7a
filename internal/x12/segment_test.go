package x12

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSegmentShape(t *testing.T) {
	b := NewBuilder(DefaultDelimiters())

	tests := []struct {
		name   string
		fields []string
		want   string
	}{
		{"no fields", nil, "LX~"},
		{"one field", []string{"1"}, "LX*1~"},
		{"placeholders keep positions", []string{"IL", "1", "DOE", "", "", "", "MI", "123"}, "LX*IL*1*DOE****MI*123~"},
		{"all empty", []string{"", "", ""}, "LX***~"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := b.Segment(ServiceLine, tt.fields...)
			assert.Equal(t, tt.want, got)
			assert.True(t, strings.HasPrefix(got, "LX"))
			assert.Equal(t, len(tt.fields), strings.Count(got, "*"))
			assert.Equal(t, 1, strings.Count(got, "~"))
			assert.True(t, strings.HasSuffix(got, "~"))
		})
	}
}

func TestSegmentAlternateDialect(t *testing.T) {
	d := Delimiters{Field: "|", Segment: "\n", Repetition: "^", Component: ">"}
	b := NewBuilder(d)

	assert.Equal(t, "HI|ABK>J20.9\n", b.Segment(Diagnosis, b.Composite(string(CodeListICD10), "J20.9")))
	assert.Equal(t, d, b.Delimiters())

	// the default dialect is untouched
	def := NewBuilder(DefaultDelimiters())
	assert.Equal(t, "HI*ABK:J20.9~", def.Segment(Diagnosis, def.Composite(string(CodeListICD10), "J20.9")))
}

func TestDelimitersConflicts(t *testing.T) {
	d := DefaultDelimiters()

	assert.False(t, d.Conflicts("123 MAIN ST"))
	assert.False(t, d.Conflicts(""))
	assert.True(t, d.Conflicts("A*B"))
	assert.True(t, d.Conflicts("END~"))
	assert.True(t, d.Conflicts("x>y"))
	assert.True(t, d.Conflicts("10:30"))
}

func TestJoin(t *testing.T) {
	segs := []string{"ST*834*0001~", "SE*2*0001~"}
	assert.Equal(t, "ST*834*0001~SE*2*0001~", Join(segs, false))
	assert.Equal(t, "ST*834*0001~\nSE*2*0001~", Join(segs, true))
}

func TestPad(t *testing.T) {
	assert.Equal(t, "00042", PadLeft("42", 5, '0'))
	assert.Equal(t, "123456", PadLeft("123456", 5, '0'))
	assert.Equal(t, "SENDER         ", PadRight("SENDER", 15, ' '))
	assert.Len(t, PadRight("", 10, ' '), 10)
}
