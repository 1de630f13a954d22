package mapxsd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/agentflare-ai/go-xmldom"
	"github.com/samber/lo"
)

// pathSeparator joins element names in diagnostic paths
const pathSeparator = " > "

// Validator validates map documents against a schema. A Validator holds no
// per-document state and may be used from several goroutines at once.
type Validator struct {
	schema *Schema
	known  map[string]struct{}
	logger *slog.Logger
}

// NewValidator creates a new validator for a schema
func NewValidator(schema *Schema, opts ...Option) *Validator {
	o := buildOptions(opts)
	v := &Validator{
		schema: schema,
		logger: o.logger,
	}
	if schema != nil {
		v.known = schema.KnownElements()
	}
	return v
}

// Validate validates document text against a schema
func Validate(documentText string, schema *Schema) []Diagnostic {
	return NewValidator(schema).Validate(documentText)
}

// Validate checks tag balance, parses the document and validates its tree.
// Tag-balance errors, parse errors and a root mismatch are returned on their
// own; every other problem is accumulated.
func (v *Validator) Validate(documentText string) []Diagnostic {
	if d, ok := v.checkSchema(); !ok {
		return []Diagnostic{d}
	}

	if diags := CheckWellFormed(documentText); len(diags) > 0 {
		return diags
	}

	doc, err := xmldom.Decode(strings.NewReader(documentText))
	if err != nil {
		d := newDiagnostic(KindDocumentSyntax, fmt.Sprintf("document is not well-formed XML: %v", err))
		return []Diagnostic{d}
	}

	return v.ValidateDocument(doc, documentText)
}

// ValidateDocument validates an already parsed document. source is the text
// it was parsed from and is only used to locate diagnostics; it may be empty.
func (v *Validator) ValidateDocument(doc xmldom.Document, source string) []Diagnostic {
	if d, ok := v.checkSchema(); !ok {
		return []Diagnostic{d}
	}
	if doc == nil {
		return []Diagnostic{newDiagnostic(KindDocumentSyntax, "document is nil")}
	}
	root := doc.DocumentElement()
	if root == nil {
		return []Diagnostic{newDiagnostic(KindDocumentSyntax, "document has no root element")}
	}

	r := &run{
		v:          v,
		loc:        NewLocator(source),
		occurrence: make(map[xmldom.Element]int),
	}
	r.indexOccurrences(root, make(map[string]int))

	rootName := string(root.LocalName())
	expected := v.schema.Root.Name
	if rootName != expected {
		d := newDiagnostic(KindStructuralMismatch,
			fmt.Sprintf("root element <%s> does not match schema root <%s>", rootName, expected))
		d.Path = rootName
		return []Diagnostic{d.at(r.elementLine(root))}
	}

	r.validateStructure(root, rootName, v.schema.Root.Structure)
	r.findUnknown(root, rootName)

	v.logger.Debug("document validated", "root", rootName, "diagnostics", len(r.diags))
	return r.diags
}

func (v *Validator) checkSchema() (Diagnostic, bool) {
	if v.schema == nil || v.schema.Root == nil {
		return newDiagnostic(KindSchemaSyntax, "schema declares no root element"), false
	}
	return Diagnostic{}, true
}

// run is the state of a single validation call
type run struct {
	v     *Validator
	loc   *Locator
	diags []Diagnostic
	// occurrence is each element's index among same-named elements in document order
	occurrence map[xmldom.Element]int
}

func (r *run) add(d Diagnostic, line int) {
	r.diags = append(r.diags, d.at(line))
}

func (r *run) indexOccurrences(elem xmldom.Element, counts map[string]int) {
	name := string(elem.LocalName())
	r.occurrence[elem] = counts[name]
	counts[name]++
	for _, child := range elementChildren(elem) {
		r.indexOccurrences(child, counts)
	}
}

// elementLine returns the parser-reported line of an element, falling back to
// a text search for its opening tag.
func (r *run) elementLine(elem xmldom.Element) int {
	if line, _, _ := elem.Position(); line > 0 {
		return line
	}
	// The decoder keeps no prefix; TagLine accepts any prefix on the local name
	return r.loc.TagLine(string(elem.LocalName()), r.occurrence[elem])
}

// validateStructure checks the direct children and attributes of parent
// against a complex structure. Named and inline structures share this path.
func (r *run) validateStructure(parent xmldom.Element, parentPath string, cs *ComplexStructure) {
	if cs == nil {
		return
	}

	r.validateAttributes(parent, parentPath, cs)

	children := elementChildren(parent)
	for _, def := range cs.Elements {
		matches := lo.Filter(children, func(child xmldom.Element, _ int) bool {
			return string(child.LocalName()) == def.Name
		})
		path := parentPath + pathSeparator + def.Name

		if len(matches) == 0 {
			if def.Required {
				d := newDiagnostic(KindMissingRequiredElement,
					fmt.Sprintf("missing required element <%s> at %s", def.Name, path))
				d.Path = path
				r.add(d, r.elementLine(parent))
			}
			continue
		}

		if len(matches) < def.MinOccurs {
			d := newDiagnostic(KindTooFewElements,
				fmt.Sprintf("%s: occurs %d times, at least %d required",
					path, len(matches), def.MinOccurs))
			d.Path = path
			r.add(d, r.elementLine(matches[len(matches)-1]))
		}
		if def.MaxOccurs != Unbounded && len(matches) > def.MaxOccurs {
			d := newDiagnostic(KindTooManyElements,
				fmt.Sprintf("%s: occurs %d times, at most %d allowed",
					path, len(matches), def.MaxOccurs))
			d.Path = path
			r.add(d, r.elementLine(matches[def.MaxOccurs]))
		}

		for i, match := range matches {
			r.validateMatch(match, def, childPath(parentPath, def.Name, i, len(matches)))
		}
	}
}

// validateMatch dispatches on the element's type form
func (r *run) validateMatch(elem xmldom.Element, def *ElementDefinition, path string) {
	switch t := def.Type.(type) {
	case InlineStructure:
		r.validateStructure(elem, path, t.Structure)
	case InlineSimpleType:
		r.validateText(elem, def, path, t.Rule)
	case TypeRef:
		schema := r.v.schema
		if rule, ok := schema.SimpleType(t.Name); ok {
			r.validateText(elem, def, path, rule)
		} else if IsBuiltinType(t.Name) {
			r.validateText(elem, def, path, &SimpleTypeRule{Base: lookupName(t.Name)})
		} else if cs, ok := schema.ComplexType(t.Name); ok {
			r.validateStructure(elem, path, cs)
		} else {
			// Unresolved references are not reported
			r.v.logger.Debug("unresolved type reference", "element", def.Name, "type", t.Name)
		}
	case nil:
	default:
		panic(fmt.Sprintf("mapxsd: unhandled element type %T", def.Type))
	}
}

// validateText checks the trimmed text content of a leaf element
func (r *run) validateText(elem xmldom.Element, def *ElementDefinition, path string, rule *SimpleTypeRule) {
	line := r.elementLine(elem)
	value := strings.TrimSpace(string(elem.TextContent()))
	fromSource := true

	if value == "" && def.Default != nil {
		value = strings.TrimSpace(*def.Default)
		fromSource = false
	}
	if value == "" {
		if def.Required {
			d := newDiagnostic(KindMissingRequiredValue,
				fmt.Sprintf("%s: required element <%s> has no value", path, def.Name))
			d.Path = path
			r.add(d, line)
		}
		return
	}

	valueLine := line
	if fromSource {
		if l := r.loc.ValueLine(value, line); l > 0 {
			valueLine = l
		}
	}
	r.report(Evaluate(value, rule), path, valueLine)
}

// validateAttributes checks declared attributes of an element
func (r *run) validateAttributes(elem xmldom.Element, path string, cs *ComplexStructure) {
	for _, def := range cs.Attributes {
		attrPath := path + "@" + def.Name
		present := elem.HasAttribute(xmldom.DOMString(def.Name))
		value := strings.TrimSpace(string(elem.GetAttribute(xmldom.DOMString(def.Name))))

		if !present {
			if def.Required {
				d := newDiagnostic(KindMissingRequiredAttribute,
					fmt.Sprintf("%s: missing required attribute '%s'", attrPath, def.Name))
				d.Path = attrPath
				r.add(d, r.elementLine(elem))
				continue
			}
			if def.Default == nil {
				continue
			}
			value = strings.TrimSpace(*def.Default)
		}
		if value == "" {
			if def.Required {
				d := newDiagnostic(KindMissingRequiredValue,
					fmt.Sprintf("%s: required attribute '%s' has no value", attrPath, def.Name))
				d.Path = attrPath
				r.add(d, r.elementLine(elem))
			}
			continue
		}

		if rule := r.attributeRule(def); rule != nil {
			r.report(Evaluate(value, rule), attrPath, r.elementLine(elem))
		}
	}
}

func (r *run) attributeRule(def *AttributeDefinition) *SimpleTypeRule {
	if def.Inline != nil {
		return def.Inline
	}
	if def.TypeRef == "" {
		return nil
	}
	if rule, ok := r.v.schema.SimpleType(def.TypeRef); ok {
		return rule
	}
	if IsBuiltinType(def.TypeRef) {
		return &SimpleTypeRule{Base: lookupName(def.TypeRef)}
	}
	return nil
}

// report attaches the path and line to value diagnostics
func (r *run) report(diags []Diagnostic, path string, line int) {
	for _, d := range diags {
		d.Path = path
		d.Message = path + ": " + d.Message
		r.add(d, line)
	}
}

// findUnknown reports every element in the document whose name is declared
// nowhere in the schema.
func (r *run) findUnknown(elem xmldom.Element, path string) {
	children := elementChildren(elem)
	totals := lo.CountValuesBy(children, func(child xmldom.Element) string {
		return string(child.LocalName())
	})
	seen := make(map[string]int, len(totals))

	for _, child := range children {
		name := string(child.LocalName())
		p := childPath(path, name, seen[name], totals[name])
		seen[name]++

		if _, ok := r.v.known[name]; !ok {
			d := newDiagnostic(KindUnknownElement,
				fmt.Sprintf("unknown element <%s> at %s", name, p))
			d.Path = p
			r.add(d, r.elementLine(child))
		}
		r.findUnknown(child, p)
	}
}

// childPath appends a child name to a path. When several siblings share the
// name the 1-based occurrence index is added, e.g. "POLYGONS > POLYGON[2]".
func childPath(parent, name string, index, count int) string {
	if count > 1 {
		return fmt.Sprintf("%s%s%s[%d]", parent, pathSeparator, name, index+1)
	}
	return parent + pathSeparator + name
}

// elementChildren returns the element children of elem in document order
func elementChildren(elem xmldom.Element) []xmldom.Element {
	var result []xmldom.Element
	children := elem.Children()
	for i := uint(0); i < children.Length(); i++ {
		if child := children.Item(i); child != nil {
			result = append(result, child)
		}
	}
	return result
}
