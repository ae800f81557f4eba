package feed

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sorsync/internal/ir"
)

const studentExtract = `<?xml version="1.0"?>
<reg:Extract xmlns:reg="urn:example:reg" Timestamp="2024-01-15T02:00:00">
  <reg:Student>
    <SFUID>301000001</SFUID>
    <LastName>Smith &amp; Sons</LastName>
    <RegInfo>
      <Program>CMPT</Program>
    </RegInfo>
  </reg:Student>
  <reg:Student>
    <SFUID>301000002</SFUID>
    <LastName>O'Brien & Co</LastName>
    <RegInfo>
      <Program>MATH</Program>
      <Program>STAT</Program>
    </RegInfo>
  </reg:Student>
</reg:Extract>`

func TestParseXML_Students(t *testing.T) {
	f, err := ParseXML(strings.NewReader(studentExtract), DefaultSources())
	require.NoError(t, err)

	assert.Equal(t, KindStudent, f.Kind)
	assert.Equal(t, "SIMS", f.Source)
	assert.Equal(t, "2024-01-15T02:00:00", f.Timestamp)
	require.Len(t, f.Records, 2)

	first := f.Records[0]
	assert.Equal(t, ir.String("301000001"), first["sfuid"], "tags are lower-cased and prefix-stripped")
	assert.Equal(t, ir.String("Smith & Sons"), first["lastname"])
	assert.Equal(t, ir.Object{"program": ir.String("CMPT")}, first["reginfo"], "single child stays scalar")

	second := f.Records[1]
	assert.Equal(t, ir.String("O'Brien & Co"), second["lastname"], "bare ampersand tolerated")
	assert.Equal(t, ir.Object{"program": ir.Array{ir.String("MATH"), ir.String("STAT")}}, second["reginfo"])
}

func TestParseXML_SingleRecordIsStillAList(t *testing.T) {
	doc := `<extract><student><sfuid>301000001</sfuid></student></extract>`
	f, err := ParseXML(strings.NewReader(doc), DefaultSources())
	require.NoError(t, err)
	require.Len(t, f.Records, 1)
	assert.Equal(t, ir.String("301000001"), f.Records[0]["sfuid"])
}

func TestParseXML_DetectsKinds(t *testing.T) {
	tests := []struct {
		doc    string
		kind   Kind
		source string
	}{
		{`<x><department><deptcode>CS</deptcode></department></x>`, KindEmployee, "HAP"},
		{`<x><course><term>1241</term></course></x>`, KindInstructor, "SIMSINSTRUCT"},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			f, err := ParseXML(strings.NewReader(tt.doc), DefaultSources())
			require.NoError(t, err)
			assert.Equal(t, tt.kind, f.Kind)
			assert.Equal(t, tt.source, f.Source)
			assert.Len(t, f.Records, 1)
		})
	}
}

func TestParseXML_Unrecognized(t *testing.T) {
	_, err := ParseXML(strings.NewReader(`<x><widget>1</widget></x>`), DefaultSources())
	assert.ErrorIs(t, err, ErrUnrecognized)
}

func TestParseXML_SkipsEmptyRecords(t *testing.T) {
	doc := `<x><student/><student><sfuid>301000001</sfuid></student></x>`
	f, err := ParseXML(strings.NewReader(doc), DefaultSources())
	require.NoError(t, err)
	assert.Len(t, f.Records, 1)
}

func TestDecodeXML_AttributesAndText(t *testing.T) {
	doc := `<root><component code="D100" xmlns:a="urn:a" a:kind="LEC">Intro<sect>D100</sect></component></root>`
	root, err := DecodeXML(strings.NewReader(doc))
	require.NoError(t, err)

	comp, ok := root.Obj("component")
	require.True(t, ok)
	assert.Equal(t, ir.Object{"code": ir.String("D100"), "kind": ir.String("LEC")}, comp[AttrKey])
	assert.Equal(t, ir.String("D100"), comp["sect"])
	assert.Equal(t, ir.String("Intro"), comp[TextKey])
}

func TestDecodeXML_Errors(t *testing.T) {
	_, err := DecodeXML(strings.NewReader(`<root>text only</root>`))
	assert.Error(t, err, "root without elements is not a feed")

	_, err = DecodeXML(strings.NewReader(`<root><a>`))
	assert.Error(t, err)
}

func TestDecodeXML_Latin1(t *testing.T) {
	// "Ren\xe9" is "René" in ISO-8859-1.
	doc := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?><x><student><lastname>Ren\xe9</lastname></student></x>"
	root, err := DecodeXML(strings.NewReader(doc))
	require.NoError(t, err)
	student, ok := root.Obj("student")
	require.True(t, ok)
	assert.Equal(t, ir.String("René"), student["lastname"])
}
