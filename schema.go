package mapxsd

import (
	"fmt"
	"strings"
)

// XSDNamespace is the XML Schema namespace
const XSDNamespace = "http://www.w3.org/2001/XMLSchema"

// Unbounded is the MaxOccurs value for maxOccurs="unbounded"
const Unbounded = -1

// Schema represents a loaded schema. It is built once by LoadSchema and never
// mutated afterwards, so a single instance may be shared by concurrent
// validations.
type Schema struct {
	SimpleTypes  map[string]*SimpleTypeRule
	ComplexTypes map[string]*ComplexStructure
	Root         *RootElement
	// Warnings lists schema constructs that were skipped or ignored while loading
	Warnings []string
}

// RootElement is the document element declared by the schema
type RootElement struct {
	Name      string
	Structure *ComplexStructure
}

// SimpleTypeRule is a leaf value's rule set: a built-in base plus restrictions
type SimpleTypeRule struct {
	Name         string // empty for inline rules
	Base         string // local name of the restriction base, e.g. "integer"
	Restrictions Restrictions
}

// Restrictions holds the supported constraining facets
type Restrictions struct {
	Enum         []string
	MinInclusive *Bound
	MaxInclusive *Bound
	Pattern      string
	HasPattern   bool
}

// Bound is an inclusive numeric limit, coerced using the rule's base type
type Bound struct {
	Raw   string
	Value float64
}

// IsEmpty reports whether no restriction is present
func (r Restrictions) IsEmpty() bool {
	return len(r.Enum) == 0 && r.MinInclusive == nil && r.MaxInclusive == nil && !r.HasPattern
}

// ElementType is the type form of an element definition. Exactly one of
// TypeRef, InlineSimpleType or InlineStructure.
type ElementType interface {
	elementType()
	String() string
}

// TypeRef references a named simple type, named complex type or built-in scalar
type TypeRef struct {
	Name string
}

// InlineSimpleType is an anonymous simpleType restriction on an element
type InlineSimpleType struct {
	Rule *SimpleTypeRule
}

// InlineStructure is an anonymous complexType nested in an element
type InlineStructure struct {
	Structure *ComplexStructure
}

func (TypeRef) elementType()          {}
func (InlineSimpleType) elementType() {}
func (InlineStructure) elementType()  {}

func (t TypeRef) String() string { return t.Name }

func (t InlineSimpleType) String() string {
	return fmt.Sprintf("anonymous simpleType (base %s)", t.Rule.Base)
}

func (t InlineStructure) String() string { return "anonymous complexType" }

// ElementDefinition declares a child element of a complex structure
type ElementDefinition struct {
	Name      string
	Type      ElementType // nil when the declaration carries no type at all
	Required  bool
	MinOccurs int
	MaxOccurs int // Unbounded for maxOccurs="unbounded"
	Default   *string
}

// AttributeDefinition declares an attribute of a complex structure
type AttributeDefinition struct {
	Name     string
	TypeRef  string
	Inline   *SimpleTypeRule
	Required bool
	Default  *string
}

// ComplexStructure is the content of a named or anonymous complex type.
// Elements keep declaration order.
type ComplexStructure struct {
	Name       string // empty for anonymous structures
	Elements   []*ElementDefinition
	Attributes []*AttributeDefinition

	elementIndex   map[string]*ElementDefinition
	attributeIndex map[string]*AttributeDefinition
}

// NewComplexStructure creates an empty structure
func NewComplexStructure(name string) *ComplexStructure {
	return &ComplexStructure{
		Name:           name,
		elementIndex:   make(map[string]*ElementDefinition),
		attributeIndex: make(map[string]*AttributeDefinition),
	}
}

// AddElement appends an element definition. A redeclared name replaces the
// earlier definition in place so declaration order is kept.
func (cs *ComplexStructure) AddElement(def *ElementDefinition) {
	if existing, ok := cs.elementIndex[def.Name]; ok {
		*existing = *def
		return
	}
	cs.elementIndex[def.Name] = def
	cs.Elements = append(cs.Elements, def)
}

// AddAttribute appends an attribute definition
func (cs *ComplexStructure) AddAttribute(def *AttributeDefinition) {
	if existing, ok := cs.attributeIndex[def.Name]; ok {
		*existing = *def
		return
	}
	cs.attributeIndex[def.Name] = def
	cs.Attributes = append(cs.Attributes, def)
}

// Element looks up a child element definition by name
func (cs *ComplexStructure) Element(name string) (*ElementDefinition, bool) {
	def, ok := cs.elementIndex[name]
	return def, ok
}

// Attribute looks up an attribute definition by name
func (cs *ComplexStructure) Attribute(name string) (*AttributeDefinition, bool) {
	def, ok := cs.attributeIndex[name]
	return def, ok
}

// lookupName strips a namespace prefix from a type reference
func lookupName(ref string) string {
	if idx := strings.LastIndex(ref, ":"); idx >= 0 {
		return ref[idx+1:]
	}
	return ref
}

// SimpleType resolves a type reference to a registered simple type
func (s *Schema) SimpleType(ref string) (*SimpleTypeRule, bool) {
	rule, ok := s.SimpleTypes[lookupName(ref)]
	return rule, ok
}

// ComplexType resolves a type reference to a registered complex type
func (s *Schema) ComplexType(ref string) (*ComplexStructure, bool) {
	cs, ok := s.ComplexTypes[lookupName(ref)]
	return cs, ok
}

// KnownElements returns every element name reachable in the schema: the root,
// the elements of every complex type and of their nested inline structures.
func (s *Schema) KnownElements() map[string]struct{} {
	known := make(map[string]struct{})
	visited := make(map[*ComplexStructure]bool)

	var walk func(cs *ComplexStructure)
	walk = func(cs *ComplexStructure) {
		if cs == nil || visited[cs] {
			return
		}
		visited[cs] = true
		for _, def := range cs.Elements {
			known[def.Name] = struct{}{}
			if inline, ok := def.Type.(InlineStructure); ok {
				walk(inline.Structure)
			}
		}
	}

	if s.Root != nil {
		known[s.Root.Name] = struct{}{}
		walk(s.Root.Structure)
	}
	for _, cs := range s.ComplexTypes {
		walk(cs)
	}
	return known
}
