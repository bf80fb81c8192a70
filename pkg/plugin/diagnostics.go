package plugin

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Severity grades a plugin diagnostic.
type Severity int

const (
	SeverityDebug Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityWarning:
		return "warning"
	default:
		return "error"
	}
}

// Diagnostic reports a plugin problem that did not stop loading.
type Diagnostic struct {
	Severity Severity
	Archive  string
	Kind     string
	Err      error
}

func (d Diagnostic) Error() string {
	if d.Kind != "" {
		return fmt.Sprintf("%s: %s: %v", d.Archive, d.Kind, d.Err)
	}
	return fmt.Sprintf("%s: %v", d.Archive, d.Err)
}

func (d Diagnostic) Unwrap() error { return d.Err }

// combine aggregates the warnings and errors of diags, or returns nil.
func combine(diags []Diagnostic) error {
	var result *multierror.Error
	for _, d := range diags {
		if d.Severity >= SeverityWarning {
			result = multierror.Append(result, d)
		}
	}
	return result.ErrorOrNil()
}
