package errors

import (
	"fmt"
	"strings"
)

// Violation describes a single problem found while validating input.
type Violation struct {
	Field   string // Path of the offending field, e.g. "flows.paired[3].from"
	Message string
}

func (v Violation) String() string {
	return v.Field + ": " + v.Message
}

// ValidationError aggregates every violation found in one validation pass.
// Validators collect all problems instead of stopping at the first one so a
// user can fix a payload in a single round trip.
type ValidationError struct {
	Subject    string // What was validated, e.g. "dataset" or "config"
	Violations []Violation
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Violations) == 1 {
		return fmt.Sprintf("%s: invalid %s: %s", ErrCodeInvalidData, e.Subject, e.Violations[0])
	}
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return fmt.Sprintf("%s: invalid %s: %d violations: %s",
		ErrCodeInvalidData, e.Subject, len(e.Violations), strings.Join(parts, "; "))
}

// Validator collects violations. The zero value is not usable; create one
// with [NewValidator].
type Validator struct {
	subject    string
	violations []Violation
}

// NewValidator returns a collector for violations about subject.
func NewValidator(subject string) *Validator {
	return &Validator{subject: subject}
}

// Addf records a violation for field.
func (v *Validator) Addf(field, format string, args ...any) {
	v.violations = append(v.violations, Violation{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Check records a violation when ok is false and reports ok.
func (v *Validator) Check(ok bool, field, format string, args ...any) bool {
	if !ok {
		v.Addf(field, format, args...)
	}
	return ok
}

// Len returns the number of violations collected so far.
func (v *Validator) Len() int { return len(v.violations) }

// Err returns a *ValidationError holding every violation, or nil.
func (v *Validator) Err() error {
	if len(v.violations) == 0 {
		return nil
	}
	out := make([]Violation, len(v.violations))
	copy(out, v.violations)
	return &ValidationError{Subject: v.subject, Violations: out}
}
