package mapxsd

import (
	"fmt"
	"strings"
)

// Kind classifies a diagnostic
type Kind string

const (
	KindSchemaSyntax             Kind = "SchemaSyntaxError"
	KindDocumentSyntax           Kind = "DocumentSyntaxError"
	KindStructuralMismatch       Kind = "StructuralMismatchError"
	KindMissingRequiredElement   Kind = "MissingRequiredElement"
	KindMissingRequiredValue     Kind = "MissingRequiredValue"
	KindMissingRequiredAttribute Kind = "MissingRequiredAttribute"
	KindTooFewElements           Kind = "TooFewElements"
	KindTooManyElements          Kind = "TooManyElements"
	KindUnknownElement           Kind = "UnknownElement"
	KindInvalidType              Kind = "InvalidType"
	KindInvalidValue             Kind = "InvalidValue"
	KindOutOfRange               Kind = "OutOfRange"
	KindInvalidFormat            Kind = "InvalidFormat"
)

// Fatal reports whether a diagnostic of this kind stops validation
func (k Kind) Fatal() bool {
	switch k {
	case KindSchemaSyntax, KindDocumentSyntax, KindStructuralMismatch:
		return true
	}
	return false
}

// Severity represents the severity level of a diagnostic
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Diagnostic is one reported validation problem
type Diagnostic struct {
	Kind     Kind     `json:"kind"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	// Path is the element path, e.g. "POLYGONS > POLYGON[2] > LINECOLOR"
	Path  string `json:"path,omitempty"`
	Value string `json:"value,omitempty"`
	// Location is a human readable hint ("line 12" or the path); Line is 0 when unknown
	Location string `json:"location,omitempty"`
	Line     int    `json:"line,omitempty"`
}

func newDiagnostic(kind Kind, message string) Diagnostic {
	return Diagnostic{Kind: kind, Severity: SeverityError, Message: message}
}

// at sets the line and derives the location hint
func (d Diagnostic) at(line int) Diagnostic {
	d.Line = line
	if line > 0 {
		d.Location = fmt.Sprintf("line %d", line)
	} else if d.Path != "" {
		d.Location = d.Path
	}
	return d
}

// String returns a one-line rendering of the diagnostic
func (d Diagnostic) String() string {
	if d.Location != "" {
		return fmt.Sprintf("[%s] %s (%s)", d.Kind, d.Message, d.Location)
	}
	return fmt.Sprintf("[%s] %s", d.Kind, d.Message)
}

// ErrorFormatter provides rustc-style diagnostic formatting
type ErrorFormatter struct {
	Color bool
	File  string
}

// Format formats a diagnostic in rustc style, quoting the source line when known
func (ef *ErrorFormatter) Format(diag Diagnostic, source string) string {
	var sb strings.Builder

	severity := string(diag.Severity)
	if ef.Color {
		switch diag.Severity {
		case SeverityError:
			severity = "\033[31;1merror\033[0m"
		case SeverityWarning:
			severity = "\033[33;1mwarning\033[0m"
		}
	}

	sb.WriteString(fmt.Sprintf("%s[%s]: %s\n", severity, diag.Kind, diag.Message))

	if diag.Line > 0 {
		sb.WriteString(fmt.Sprintf(" --> %s:%d\n", ef.File, diag.Line))
	} else if diag.Path != "" {
		sb.WriteString(fmt.Sprintf(" --> %s (%s)\n", ef.File, diag.Path))
	}

	if source != "" && diag.Line > 0 {
		lines := strings.Split(source, "\n")
		if diag.Line <= len(lines) {
			sourceLine := strings.TrimRight(lines[diag.Line-1], "\r")
			sb.WriteString(fmt.Sprintf("%4d | %s\n", diag.Line, sourceLine))

			// Underline the offending value when it appears on the line
			if diag.Value != "" {
				if col := strings.Index(sourceLine, diag.Value); col >= 0 {
					marker := strings.Repeat("^", len(diag.Value))
					if ef.Color {
						marker = "\033[31;1m" + marker + "\033[0m"
					}
					sb.WriteString("     | " + strings.Repeat(" ", col) + marker + "\n")
				}
			}
		}
	}

	return sb.String()
}
