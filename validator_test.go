package mapxsd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validPolygon = `  <POLYGON id="1">
    <NAME>Lake</NAME>
    <LINECOLOR>FF00AA</LINECOLOR>
    <LINEWIDTH>2</LINEWIDTH>
    <FILL>Green</FILL>
    <POINTS>
      <POINT><X>0</X><Y>0</Y></POINT>
      <POINT><X>1.5</X><Y>0</Y></POINT>
      <POINT><X>1</X><Y>-2.25</Y></POINT>
    </POINTS>
  </POLYGON>
`

func polygonsDoc(polygons ...string) string {
	return "<?xml version=\"1.0\"?>\n<POLYGONS>\n" + strings.Join(polygons, "") + "</POLYGONS>\n"
}

// mutate replaces the first occurrence of old in the polygon template
func mutate(t *testing.T, old, replacement string) string {
	t.Helper()
	require.Contains(t, validPolygon, old)
	return strings.Replace(validPolygon, old, replacement, 1)
}

func paths(diags []Diagnostic) []string {
	result := make([]string, 0, len(diags))
	for _, d := range diags {
		result = append(result, d.Path)
	}
	return result
}

func TestValidateFixtureDocument(t *testing.T) {
	schema := loadFixtureSchema(t)
	data, err := os.ReadFile("testdata/polygons.xml")
	require.NoError(t, err)

	assert.Empty(t, Validate(string(data), schema))
}

func TestValidateStructure(t *testing.T) {
	schema := loadFixtureSchema(t)

	tests := []struct {
		name      string
		doc       string
		wantKinds []Kind
		wantPaths []string
	}{
		{
			name:      "two conformant polygons",
			doc:       polygonsDoc(validPolygon, validPolygon),
			wantKinds: []Kind{},
			wantPaths: []string{},
		},
		{
			name:      "optional elements may be empty or absent",
			doc:       polygonsDoc(mutate(t, "<NAME>Lake</NAME>", "<NAME></NAME>"), mutate(t, "<FILL>Green</FILL>", "")),
			wantKinds: []Kind{},
			wantPaths: []string{},
		},
		{
			name:      "missing required element does not stop sibling checks",
			doc:       polygonsDoc(strings.Replace(mutate(t, "<LINECOLOR>FF00AA</LINECOLOR>", ""), "<LINEWIDTH>2<", "<LINEWIDTH>300<", 1)),
			wantKinds: []Kind{KindMissingRequiredElement, KindOutOfRange},
			wantPaths: []string{"POLYGONS > POLYGON > LINECOLOR", "POLYGONS > POLYGON > LINEWIDTH"},
		},
		{
			name:      "sibling index is one-based",
			doc:       polygonsDoc(validPolygon, mutate(t, "FF00AA", "ZZZZZZ")),
			wantKinds: []Kind{KindInvalidFormat},
			wantPaths: []string{"POLYGONS > POLYGON[2] > LINECOLOR"},
		},
		{
			name:      "required element without a value",
			doc:       polygonsDoc(mutate(t, "<LINECOLOR>FF00AA</LINECOLOR>", "<LINECOLOR>  </LINECOLOR>")),
			wantKinds: []Kind{KindMissingRequiredValue},
			wantPaths: []string{"POLYGONS > POLYGON > LINECOLOR"},
		},
		{
			name:      "enumeration is case sensitive",
			doc:       polygonsDoc(mutate(t, "<FILL>Green</FILL>", "<FILL>green</FILL>")),
			wantKinds: []Kind{KindInvalidValue},
			wantPaths: []string{"POLYGONS > POLYGON > FILL"},
		},
		{
			name:      "value is trimmed before the enumeration check",
			doc:       polygonsDoc(mutate(t, "<FILL>Green</FILL>", "<FILL> Red\n    </FILL>")),
			wantKinds: []Kind{},
			wantPaths: []string{},
		},
		{
			name:      "builtin float inside a named complex type",
			doc:       polygonsDoc(mutate(t, "<X>0</X>", "<X>abc</X>")),
			wantKinds: []Kind{KindInvalidType},
			wantPaths: []string{"POLYGONS > POLYGON > POINTS > POINT[1] > X"},
		},
		{
			name:      "too few occurrences",
			doc:       polygonsDoc(mutate(t, "<POINT><X>1.5</X><Y>0</Y></POINT>", "")),
			wantKinds: []Kind{KindTooFewElements},
			wantPaths: []string{"POLYGONS > POLYGON > POINTS > POINT"},
		},
		{
			name:      "too many occurrences",
			doc:       polygonsDoc(mutate(t, "<NAME>Lake</NAME>", "<NAME>Lake</NAME><NAME>Pond</NAME>")),
			wantKinds: []Kind{KindTooManyElements},
			wantPaths: []string{"POLYGONS > POLYGON > NAME"},
		},
		{
			name:      "missing required attribute",
			doc:       polygonsDoc(mutate(t, ` id="1"`, "")),
			wantKinds: []Kind{KindMissingRequiredAttribute},
			wantPaths: []string{"POLYGONS > POLYGON@id"},
		},
		{
			name:      "attribute value is type checked",
			doc:       polygonsDoc(mutate(t, `id="1"`, `id="one"`)),
			wantKinds: []Kind{KindInvalidType},
			wantPaths: []string{"POLYGONS > POLYGON@id"},
		},
		{
			name:      "unknown element nested at depth",
			doc:       polygonsDoc(mutate(t, "<Y>0</Y></POINT>", "<Y>0</Y><Z>1</Z></POINT>")),
			wantKinds: []Kind{KindUnknownElement},
			wantPaths: []string{"POLYGONS > POLYGON > POINTS > POINT[1] > Z"},
		},
		{
			name:      "root without children",
			doc:       polygonsDoc(),
			wantKinds: []Kind{KindMissingRequiredElement},
			wantPaths: []string{"POLYGONS > POLYGON"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diags := Validate(tt.doc, schema)
			assert.Equal(t, tt.wantKinds, kinds(diags), "diagnostics: %v", diags)
			assert.Equal(t, tt.wantPaths, paths(diags))
			for _, d := range diags {
				assert.Equal(t, SeverityError, d.Severity)
				assert.Contains(t, d.Message, d.Path)
				assert.Positive(t, d.Line)
			}
		})
	}
}

func TestValidateRootMismatch(t *testing.T) {
	schema := loadFixtureSchema(t)

	diags := Validate("<MAP>\n  <POLYGON><CIRCLE/></POLYGON>\n</MAP>", schema)
	require.Len(t, diags, 1)
	assert.Equal(t, KindStructuralMismatch, diags[0].Kind)
	assert.True(t, diags[0].Kind.Fatal())
	assert.Contains(t, diags[0].Message, "<MAP>")
	assert.Contains(t, diags[0].Message, "<POLYGONS>")
}

func TestValidateWellFormednessFirst(t *testing.T) {
	schema := loadFixtureSchema(t)

	// The unclosed CIRCLE would be an unknown element if the tree were validated
	doc := polygonsDoc(validPolygon, "  <CIRCLE>\n")
	diags := Validate(doc, schema)
	require.NotEmpty(t, diags)
	for _, d := range diags {
		assert.Equal(t, KindStructuralMismatch, d.Kind)
	}
}

func TestValidateDocumentSyntax(t *testing.T) {
	schema := loadFixtureSchema(t)

	// Tags balance, so only the parser can reject the bare ampersand
	doc := polygonsDoc(mutate(t, "<NAME>Lake</NAME>", "<NAME>Lake & Pond</NAME>"))
	require.Empty(t, CheckWellFormed(doc))

	diags := Validate(doc, schema)
	require.Len(t, diags, 1)
	assert.Equal(t, KindDocumentSyntax, diags[0].Kind)
	assert.True(t, diags[0].Kind.Fatal())
}

func TestValidateProcessingInstruction(t *testing.T) {
	schema := loadFixtureSchema(t)
	doc := polygonsDoc(mutate(t, "<POINTS>", "<?render hint <POINT> ?>\n    <POINTS>"))

	assert.Empty(t, Validate(doc, schema))
}

func TestValidateUnknownElement(t *testing.T) {
	schema := mustLoad(t, `<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema">
  <xs:element name="POLYGONS">
    <xs:complexType>
      <xs:sequence>
        <xs:element name="POLYGON" type="xs:string"/>
      </xs:sequence>
    </xs:complexType>
  </xs:element>
</xs:schema>`)

	diags := Validate("<POLYGONS><POLYGON>lake</POLYGON><CIRCLE/></POLYGONS>", schema)
	require.Len(t, diags, 1)
	assert.Equal(t, KindUnknownElement, diags[0].Kind)
	assert.Equal(t, "POLYGONS > CIRCLE", diags[0].Path)
	assert.Contains(t, diags[0].Message, "CIRCLE")
}

func TestValidateUnresolvedTypeIsSilent(t *testing.T) {
	schema := mustLoad(t, `<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema">
  <xs:element name="LAYER">
    <xs:complexType>
      <xs:sequence>
        <xs:element name="STYLE" type="MissingType"/>
      </xs:sequence>
    </xs:complexType>
  </xs:element>
</xs:schema>`)

	assert.Empty(t, Validate("<LAYER><STYLE>anything</STYLE></LAYER>", schema))
	assert.Empty(t, Validate("<LAYER><STYLE/></LAYER>", schema))
}

func TestValidateDefaultValue(t *testing.T) {
	schema := mustLoad(t, `<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema">
  <xs:element name="LAYER">
    <xs:complexType>
      <xs:sequence>
        <xs:element name="OPACITY" default="2">
          <xs:simpleType>
            <xs:restriction base="xs:float">
              <xs:maxInclusive value="1"/>
            </xs:restriction>
          </xs:simpleType>
        </xs:element>
        <xs:element name="ZINDEX" type="xs:integer" default="0"/>
      </xs:sequence>
    </xs:complexType>
  </xs:element>
</xs:schema>`)

	diags := Validate("<LAYER><OPACITY/><ZINDEX/></LAYER>", schema)
	assert.Equal(t, []Kind{KindOutOfRange}, kinds(diags))
	assert.Equal(t, []string{"LAYER > OPACITY"}, paths(diags))
}

func TestValidateLocations(t *testing.T) {
	schema := loadFixtureSchema(t)
	doc := polygonsDoc(mutate(t, "<LINEWIDTH>2</LINEWIDTH>", "<LINEWIDTH>999</LINEWIDTH>"))

	diags := Validate(doc, schema)
	require.Len(t, diags, 1)
	// Line 1 is the XML declaration, 2 the root, 3 the polygon
	assert.Equal(t, 6, diags[0].Line)
	assert.Equal(t, "line 6", diags[0].Location)
	assert.Equal(t, "999", diags[0].Value)
}

func TestValidateIsIdempotent(t *testing.T) {
	schema := loadFixtureSchema(t)
	v := NewValidator(schema, WithLogger(quietLogger))
	doc := polygonsDoc(
		mutate(t, "FF00AA", "nothex"),
		mutate(t, "<FILL>Green</FILL>", "<FILL>Blue</FILL><SHADOW/>"),
	)

	first := v.Validate(doc)
	second := v.Validate(doc)
	require.NotEmpty(t, first)
	assert.Equal(t, first, second)
}

func TestValidateDocumentNil(t *testing.T) {
	schema := loadFixtureSchema(t)
	diags := NewValidator(schema).ValidateDocument(nil, "")
	require.Len(t, diags, 1)
	assert.Equal(t, KindDocumentSyntax, diags[0].Kind)
}

func TestValidateBatch(t *testing.T) {
	schema := loadFixtureSchema(t)
	v := NewValidator(schema, WithLogger(quietLogger))

	var docs []Document
	for i := 0; i < 20; i++ {
		text := polygonsDoc(validPolygon)
		if i%2 == 1 {
			text = polygonsDoc(mutate(t, "<FILL>Green</FILL>", "<FILL>red</FILL>"))
		}
		docs = append(docs, Document{Name: fmt.Sprintf("doc-%02d.xml", i), Text: text})
	}

	results, err := v.ValidateBatch(context.Background(), docs, 4)
	require.NoError(t, err)
	require.Len(t, results, len(docs))

	for i, r := range results {
		assert.Equal(t, docs[i].Name, r.Name)
		if i%2 == 1 {
			assert.Equal(t, []Kind{KindInvalidValue}, kinds(r.Diagnostics))
		} else {
			assert.True(t, r.Valid())
		}
	}
}

func TestValidateBatchCanceled(t *testing.T) {
	schema := loadFixtureSchema(t)
	v := NewValidator(schema, WithLogger(quietLogger))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := v.ValidateBatch(ctx, []Document{{Name: "a.xml", Text: polygonsDoc(validPolygon)}}, 1)
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, results, 1)
	assert.Equal(t, "a.xml", results[0].Name)
}
