package mapxsd

import "fmt"

// SchemaSyntaxError is returned by LoadSchema when the XSD text is not
// well-formed markup or is not a schema document.
type SchemaSyntaxError struct {
	Msg string
	Err error
}

func (e *SchemaSyntaxError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("schema syntax error: %s: %v", e.Msg, e.Err)
	}
	return "schema syntax error: " + e.Msg
}

func (e *SchemaSyntaxError) Unwrap() error {
	return e.Err
}

// Diagnostic converts the error into a fatal diagnostic
func (e *SchemaSyntaxError) Diagnostic() Diagnostic {
	return newDiagnostic(KindSchemaSyntax, e.Error())
}
