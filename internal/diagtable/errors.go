package diagtable

import (
	"fmt"
	"strings"
)

// MissingSpaceHint is attached to YAML syntax errors: the most common cause
// is a "key:value" pair written without the separating space.
const MissingSpaceHint = `verify that the previous entry in the yaml file is entered as "key: value" and not as "key:value"`

// InvalidFieldError reports an unknown key or a value rejected by the field
// validator.
type InvalidFieldError struct {
	Entity  string
	Key     string
	Value   any
	Unknown bool
}

func (e *InvalidFieldError) Error() string {
	if e.Unknown {
		return fmt.Sprintf("%s: invalid key name: %s", e.Entity, e.Key)
	}
	return fmt.Sprintf("%s: invalid value for %s: %v", e.Entity, e.Key, e.Value)
}

// ParseError wraps YAML syntax errors.
type ParseError struct {
	Source string
	Err    error
	Hint   string
}

func (e *ParseError) Error() string {
	var sb strings.Builder
	sb.WriteString("failed to parse ")
	if e.Source != "" {
		sb.WriteString(e.Source)
	} else {
		sb.WriteString("yaml")
	}
	sb.WriteString(": ")
	sb.WriteString(e.Err.Error())
	return sb.String()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// DuplicateKeyError reports two definitions of a file, or of the table
// header, that disagree on a required key.
type DuplicateKeyError struct {
	File        string // empty for table-level keys
	Key         string
	Left, Right any
}

func (e *DuplicateKeyError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("the diag table is defined twice with different %s (%v != %v)", e.Key, display(e.Left), display(e.Right))
	}
	return fmt.Sprintf("the diag_file %q is defined twice with different %s (%v != %v)", e.File, e.Key, display(e.Left), display(e.Right))
}

// DuplicateOptionalKeyError reports two definitions of a file that disagree
// on an optional key. A key present on only one side also counts when
// combining fragments.
type DuplicateOptionalKeyError struct {
	File        string
	Key         string
	Left, Right any
}

func (e *DuplicateOptionalKeyError) Error() string {
	return fmt.Sprintf("the diag_file %q is defined twice with different %s (%v != %v)", e.File, e.Key, display(e.Left), display(e.Right))
}

// DuplicateFieldError reports two variables with the same identity and
// different content.
type DuplicateFieldError struct {
	File        string
	VarName     string
	Module      string
	Key         string
	Left, Right any
}

func (e *DuplicateFieldError) Error() string {
	msg := fmt.Sprintf("the variable %q from module %q", e.VarName, e.Module)
	if e.File != "" {
		msg += fmt.Sprintf(" in diag_file %q", e.File)
	}
	msg += fmt.Sprintf(" is defined twice with different %s (%v != %v)", e.Key, display(e.Left), display(e.Right))
	if e.Key != "output_name" {
		msg += "; set a distinct output_name to keep both"
	}
	return msg
}

// InconsistentKeys reports a file that mixes a plain varlist with module
// groups.
type InconsistentKeys struct {
	File string
}

func (e *InconsistentKeys) Error() string {
	return fmt.Sprintf("the diag_file %q mixes varlist and modules", e.File)
}

// MissingContextError reports a combined table without title or base_date.
type MissingContextError struct {
	Source string
	Key    string
}

func (e *MissingContextError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("%s does not define diag_files, so it must define title and base_date (missing %s)", e.Source, e.Key)
	}
	return fmt.Sprintf("the combined diag table has no %s; define it in one of the input files", e.Key)
}

// FilterSpecError reports a malformed filter expression.
type FilterSpecError struct {
	Spec   string
	Reason string
}

func (e *FilterSpecError) Error() string {
	return fmt.Sprintf("invalid filter %q: %s", e.Spec, e.Reason)
}

func display(v any) any {
	if v == nil {
		return "<unset>"
	}
	return v
}
