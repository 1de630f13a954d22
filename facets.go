package mapxsd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// Evaluate checks a non-empty, trimmed value against a simple type rule.
// Base-type coercion runs first and a failure there suppresses the
// enumeration, range and pattern checks; the remaining checks are independent.
// Diagnostics carry the offending value but no path.
func Evaluate(value string, rule *SimpleTypeRule) []Diagnostic {
	if rule == nil {
		return nil
	}

	var diags []Diagnostic
	family := familyOf(rule.Base)

	if err := coerce(value, family); err != nil {
		d := newDiagnostic(KindInvalidType,
			fmt.Sprintf("invalid %s value '%s': %v", lookupName(rule.Base), value, err))
		d.Value = value
		return []Diagnostic{d}
	}

	r := rule.Restrictions

	if len(r.Enum) > 0 && !lo.Contains(r.Enum, value) {
		allowed := lo.Map(r.Enum, func(v string, _ int) string { return "'" + v + "'" })
		d := newDiagnostic(KindInvalidValue,
			fmt.Sprintf("value '%s' is not one of %s", value, strings.Join(allowed, ", ")))
		d.Value = value
		diags = append(diags, d)
	}

	if family.IsNumeric() && (r.MinInclusive != nil || r.MaxInclusive != nil) {
		if n, err := strconv.ParseFloat(value, 64); err == nil {
			if r.MinInclusive != nil && n < r.MinInclusive.Value {
				d := newDiagnostic(KindOutOfRange,
					fmt.Sprintf("value '%s' is less than minimum %s", value, r.MinInclusive.Raw))
				d.Value = value
				diags = append(diags, d)
			}
			if r.MaxInclusive != nil && n > r.MaxInclusive.Value {
				d := newDiagnostic(KindOutOfRange,
					fmt.Sprintf("value '%s' is greater than maximum %s", value, r.MaxInclusive.Raw))
				d.Value = value
				diags = append(diags, d)
			}
		}
	}

	if r.HasPattern {
		// An uncompilable pattern is reported as a schema warning at load time
		if cp, err := patterns.compile(r.Pattern); err == nil && !cp.re.MatchString(value) {
			d := newDiagnostic(KindInvalidFormat,
				fmt.Sprintf("value '%s' does not match pattern '%s'", value, r.Pattern))
			d.Value = value
			diags = append(diags, d)
		}
	}

	return diags
}

// parseBound coerces a minInclusive/maxInclusive facet value using the base type
func parseBound(raw, base string) (*Bound, error) {
	raw = strings.TrimSpace(raw)
	switch familyOf(base) {
	case FamilyInteger:
		if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return &Bound{Raw: raw, Value: float64(i)}, nil
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer bound %q", raw)
		}
		return &Bound{Raw: raw, Value: float64(int64(f))}, nil
	case FamilyFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid numeric bound %q", raw)
		}
		return &Bound{Raw: raw, Value: f}, nil
	default:
		// Kept as text; range checks only apply to numeric bases
		return &Bound{Raw: raw}, nil
	}
}
