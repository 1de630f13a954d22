package mapxsd

import (
	"fmt"
	"regexp"
	"time"
)

// Family groups built-in scalar types by how their values are coerced
type Family int

const (
	FamilyString Family = iota
	FamilyInteger
	FamilyFloat
	FamilyBoolean
	FamilyDate
	FamilyDateTime
	FamilyTime
)

// IsNumeric reports whether range restrictions apply to the family
func (f Family) IsNumeric() bool {
	return f == FamilyInteger || f == FamilyFloat
}

var builtinFamilies = map[string]Family{
	// Primitive and derived string types
	"string":           FamilyString,
	"normalizedString": FamilyString,
	"token":            FamilyString,
	"language":         FamilyString,
	"Name":             FamilyString,
	"NCName":           FamilyString,
	"ID":               FamilyString,
	"IDREF":            FamilyString,
	"NMTOKEN":          FamilyString,
	"anyURI":           FamilyString,
	"hexBinary":        FamilyString,
	"base64Binary":     FamilyString,

	// Integer family
	"integer":            FamilyInteger,
	"int":                FamilyInteger,
	"long":               FamilyInteger,
	"short":              FamilyInteger,
	"byte":               FamilyInteger,
	"nonNegativeInteger": FamilyInteger,
	"nonPositiveInteger": FamilyInteger,
	"positiveInteger":    FamilyInteger,
	"negativeInteger":    FamilyInteger,
	"unsignedLong":       FamilyInteger,
	"unsignedInt":        FamilyInteger,
	"unsignedShort":      FamilyInteger,
	"unsignedByte":       FamilyInteger,

	// Floating family
	"float":   FamilyFloat,
	"double":  FamilyFloat,
	"decimal": FamilyFloat,

	"boolean":  FamilyBoolean,
	"date":     FamilyDate,
	"dateTime": FamilyDateTime,
	"time":     FamilyTime,
}

// BuiltinFamily returns the family of a built-in scalar tag. The namespace
// prefix, if any, is ignored.
func BuiltinFamily(name string) (Family, bool) {
	f, ok := builtinFamilies[lookupName(name)]
	return f, ok
}

// IsBuiltinType checks if a type reference names a built-in scalar
func IsBuiltinType(name string) bool {
	_, ok := BuiltinFamily(name)
	return ok
}

// familyOf returns the coercion family of a base type; unknown bases coerce as strings
func familyOf(base string) Family {
	if f, ok := BuiltinFamily(base); ok {
		return f
	}
	return FamilyString
}

var (
	integerLexical = regexp.MustCompile(`^-?\d+$`)
	floatLexical   = regexp.MustCompile(`^-?\d*(\.\d+)?$`)
)

// coerce checks a value against the lexical space of a family
func coerce(value string, family Family) error {
	switch family {
	case FamilyInteger:
		if !integerLexical.MatchString(value) {
			return fmt.Errorf("expected an integer")
		}
	case FamilyFloat:
		if value == "" || value == "." || value == "-" || !floatLexical.MatchString(value) {
			return fmt.Errorf("expected a number")
		}
	case FamilyBoolean:
		switch value {
		case "true", "false", "1", "0":
		default:
			return fmt.Errorf("expected a boolean")
		}
	case FamilyDate:
		if _, err := time.Parse("2006-01-02", value); err != nil {
			return fmt.Errorf("expected a date (YYYY-MM-DD)")
		}
	case FamilyDateTime:
		if !parsesAny(value, time.RFC3339Nano, "2006-01-02T15:04:05") {
			return fmt.Errorf("expected a dateTime")
		}
	case FamilyTime:
		if !parsesAny(value, "15:04:05", "15:04:05Z07:00", "15:04:05.999999999") {
			return fmt.Errorf("expected a time")
		}
	}
	return nil
}

func parsesAny(value string, layouts ...string) bool {
	for _, layout := range layouts {
		if _, err := time.Parse(layout, value); err == nil {
			return true
		}
	}
	return false
}
