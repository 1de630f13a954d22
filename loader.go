package mapxsd

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/agentflare-ai/go-xmldom"
)

// LoadSchema parses XSD markup into a Schema. It fails with a
// *SchemaSyntaxError only when the markup itself does not parse or is not a
// schema document; unsupported constructs are skipped and recorded in
// Schema.Warnings.
func LoadSchema(xsdText string, opts ...Option) (*Schema, error) {
	doc, err := xmldom.Decode(strings.NewReader(xsdText))
	if err != nil {
		return nil, &SchemaSyntaxError{Msg: "failed to parse XSD markup", Err: err}
	}
	return Parse(doc, opts...)
}

// Parse builds a Schema from an already decoded XSD document
func Parse(doc xmldom.Document, opts ...Option) (*Schema, error) {
	if doc == nil {
		return nil, &SchemaSyntaxError{Msg: "nil document"}
	}

	root := doc.DocumentElement()
	if root == nil {
		return nil, &SchemaSyntaxError{Msg: "no root element"}
	}
	if !isXSD(root) || string(root.LocalName()) != "schema" {
		return nil, &SchemaSyntaxError{Msg: fmt.Sprintf("root element is <%s>, not xs:schema", root.LocalName())}
	}

	b := &schemaBuilder{
		schema: &Schema{
			SimpleTypes:  make(map[string]*SimpleTypeRule),
			ComplexTypes: make(map[string]*ComplexStructure),
		},
		logger: buildOptions(opts).logger,
	}

	top := xsdChildren(root)

	// Simple types first so complex types and the root never depend on order
	for _, child := range top {
		if string(child.LocalName()) == "simpleType" {
			b.parseSimpleType(child)
		}
	}
	for _, child := range top {
		if string(child.LocalName()) == "complexType" {
			b.parseComplexType(child)
		}
	}
	for _, child := range top {
		if string(child.LocalName()) == "element" && child.GetAttribute("name") != "" {
			b.parseRoot(child)
			break
		}
	}

	if b.schema.Root == nil {
		b.warn("schema declares no named top-level element")
	}

	b.logger.Debug("schema loaded",
		"simpleTypes", len(b.schema.SimpleTypes),
		"complexTypes", len(b.schema.ComplexTypes),
		"warnings", len(b.schema.Warnings))

	return b.schema, nil
}

type schemaBuilder struct {
	schema *Schema
	logger *slog.Logger
}

func (b *schemaBuilder) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	b.schema.Warnings = append(b.schema.Warnings, msg)
	b.logger.Warn("schema construct ignored", "detail", msg)
}

// parseSimpleType registers a named top-level simple type
func (b *schemaBuilder) parseSimpleType(elem xmldom.Element) {
	name := string(elem.GetAttribute("name"))
	if name == "" {
		b.warn("top-level simpleType without a name")
		return
	}

	restriction := firstXSDChild(elem, "restriction")
	if restriction == nil {
		b.warn("simpleType '%s' has no restriction and is not registered", name)
		return
	}

	b.schema.SimpleTypes[name] = b.parseRestriction(restriction, name)
}

// parseRestriction collects the supported facets of an xs:restriction
func (b *schemaBuilder) parseRestriction(elem xmldom.Element, name string) *SimpleTypeRule {
	rule := &SimpleTypeRule{
		Name: name,
		Base: lookupName(string(elem.GetAttribute("base"))),
	}

	var patternAlternatives []string
	for _, facet := range xsdChildren(elem) {
		facetName := string(facet.LocalName())
		value := string(facet.GetAttribute("value"))

		switch facetName {
		case "enumeration":
			rule.Restrictions.Enum = append(rule.Restrictions.Enum, value)
		case "minInclusive", "maxInclusive":
			bound, err := parseBound(value, rule.Base)
			if err != nil {
				b.warn("%s of %s: %v", facetName, describeRule(rule), err)
				continue
			}
			if facetName == "minInclusive" {
				rule.Restrictions.MinInclusive = bound
			} else {
				rule.Restrictions.MaxInclusive = bound
			}
		case "pattern":
			patternAlternatives = append(patternAlternatives, value)
		case "annotation":
		default:
			b.warn("facet '%s' of %s is not supported", facetName, describeRule(rule))
		}
	}

	switch len(patternAlternatives) {
	case 0:
	case 1:
		rule.Restrictions.Pattern = patternAlternatives[0]
		rule.Restrictions.HasPattern = true
	default:
		// Sibling patterns are alternatives
		rule.Restrictions.Pattern = "(?:" + strings.Join(patternAlternatives, ")|(?:") + ")"
		rule.Restrictions.HasPattern = true
	}

	if rule.Restrictions.HasPattern {
		if _, err := patterns.compile(rule.Restrictions.Pattern); err != nil {
			b.warn("pattern '%s' of %s does not compile and is not checked: %v",
				rule.Restrictions.Pattern, describeRule(rule), err)
		}
	}

	return rule
}

func describeRule(rule *SimpleTypeRule) string {
	if rule.Name == "" {
		return "anonymous simpleType"
	}
	return "simpleType '" + rule.Name + "'"
}

// parseComplexType registers a named top-level complex type
func (b *schemaBuilder) parseComplexType(elem xmldom.Element) {
	name := string(elem.GetAttribute("name"))
	if name == "" {
		b.warn("top-level complexType without a name")
		return
	}
	b.schema.ComplexTypes[name] = b.parseStructure(elem, name)
}

// parseStructure builds a ComplexStructure from a named or anonymous
// xs:complexType. Only direct element children of all/sequence/choice groups
// are collected; nested groups are not flattened.
func (b *schemaBuilder) parseStructure(elem xmldom.Element, name string) *ComplexStructure {
	cs := NewComplexStructure(name)
	label := name
	if label == "" {
		label = "anonymous complexType"
	}

	for _, child := range xsdChildren(elem) {
		switch kind := string(child.LocalName()); kind {
		case "sequence", "all", "choice":
			for _, particle := range xsdChildren(child) {
				switch particleKind := string(particle.LocalName()); particleKind {
				case "element":
					if def := b.parseElementDef(particle); def != nil {
						cs.AddElement(def)
					}
				case "annotation":
				default:
					b.warn("nested %s inside %s of %s is not flattened", particleKind, kind, label)
				}
			}
		case "attribute":
			if def := b.parseAttributeDef(child); def != nil {
				cs.AddAttribute(def)
			}
		case "annotation":
		default:
			b.warn("%s in %s is not supported", kind, label)
		}
	}

	return cs
}

// parseElementDef builds an element definition with its occurrence bounds and type form
func (b *schemaBuilder) parseElementDef(elem xmldom.Element) *ElementDefinition {
	name := string(elem.GetAttribute("name"))
	if name == "" {
		if ref := string(elem.GetAttribute("ref")); ref != "" {
			b.warn("element reference '%s' is not supported", ref)
		}
		return nil
	}

	def := &ElementDefinition{
		Name:      name,
		MinOccurs: b.parseOccurs(elem, "minOccurs", name),
		MaxOccurs: b.parseOccurs(elem, "maxOccurs", name),
	}
	def.Required = def.MinOccurs != 0

	if def.MaxOccurs != Unbounded && def.MaxOccurs < def.MinOccurs {
		b.warn("element '%s' has maxOccurs %d below minOccurs %d", name, def.MaxOccurs, def.MinOccurs)
	}

	if elem.HasAttribute("default") {
		value := string(elem.GetAttribute("default"))
		def.Default = &value
	}

	if typeName := string(elem.GetAttribute("type")); typeName != "" {
		def.Type = TypeRef{Name: typeName}
	}

	for _, child := range xsdChildren(elem) {
		var inline ElementType
		switch string(child.LocalName()) {
		case "simpleType":
			restriction := firstXSDChild(child, "restriction")
			if restriction == nil {
				b.warn("anonymous simpleType of element '%s' has no restriction", name)
				continue
			}
			inline = InlineSimpleType{Rule: b.parseRestriction(restriction, "")}
		case "complexType":
			inline = InlineStructure{Structure: b.parseStructure(child, "")}
		default:
			continue
		}
		if def.Type != nil {
			b.warn("element '%s' declares more than one type; using %s", name, inline)
		}
		def.Type = inline
	}

	return def
}

// parseAttributeDef builds an attribute definition
func (b *schemaBuilder) parseAttributeDef(elem xmldom.Element) *AttributeDefinition {
	name := string(elem.GetAttribute("name"))
	if name == "" {
		b.warn("attribute without a name is not supported")
		return nil
	}

	def := &AttributeDefinition{
		Name:     name,
		TypeRef:  string(elem.GetAttribute("type")),
		Required: string(elem.GetAttribute("use")) == "required",
	}
	if elem.HasAttribute("default") {
		value := string(elem.GetAttribute("default"))
		def.Default = &value
	}
	if st := firstXSDChild(elem, "simpleType"); st != nil {
		if restriction := firstXSDChild(st, "restriction"); restriction != nil {
			def.Inline = b.parseRestriction(restriction, "")
		}
	}
	return def
}

// parseRoot records the document element and its structure
func (b *schemaBuilder) parseRoot(elem xmldom.Element) {
	name := string(elem.GetAttribute("name"))
	root := &RootElement{Name: name}

	if ct := firstXSDChild(elem, "complexType"); ct != nil {
		root.Structure = b.parseStructure(ct, "")
	} else if typeName := string(elem.GetAttribute("type")); typeName != "" {
		if cs, ok := b.schema.ComplexType(typeName); ok {
			root.Structure = cs
		} else {
			b.warn("root element '%s' type '%s' is not a complex type", name, typeName)
		}
	}

	if root.Structure == nil {
		root.Structure = NewComplexStructure("")
	}
	b.schema.Root = root
}

// parseOccurs reads minOccurs/maxOccurs, defaulting to 1
func (b *schemaBuilder) parseOccurs(elem xmldom.Element, attr, owner string) int {
	raw := strings.TrimSpace(string(elem.GetAttribute(xmldom.DOMString(attr))))
	if raw == "" {
		return 1
	}
	if raw == "unbounded" && attr == "maxOccurs" {
		return Unbounded
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 || (attr == "maxOccurs" && n < 1) {
		b.warn("element '%s' has invalid %s '%s'; using 1", owner, attr, raw)
		return 1
	}
	return n
}

// isXSD accepts elements in the XML Schema namespace, or unqualified ones
func isXSD(elem xmldom.Element) bool {
	ns := string(elem.NamespaceURI())
	return ns == XSDNamespace || ns == ""
}

// xsdChildren returns the schema element children of elem in document order
func xsdChildren(elem xmldom.Element) []xmldom.Element {
	var result []xmldom.Element
	children := elem.Children()
	for i := uint(0); i < children.Length(); i++ {
		child := children.Item(i)
		if child == nil || !isXSD(child) {
			continue
		}
		result = append(result, child)
	}
	return result
}

func firstXSDChild(elem xmldom.Element, localName string) xmldom.Element {
	for _, child := range xsdChildren(elem) {
		if string(child.LocalName()) == localName {
			return child
		}
	}
	return nil
}
