package form

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var (
	// ErrFormClosed is returned when a field changes while no form is open.
	ErrFormClosed = errors.New("form is closed")
	// ErrUnknownField is returned for a field name absent from the open layout.
	ErrUnknownField = errors.New("unknown form field")
	// ErrValidationFailed is wrapped by every *ValidationError.
	ErrValidationFailed = errors.New("form validation failed")
)

// State is the form lifecycle state.
type State int

const (
	StateClosed State = iota
	StateOpen
)

func (s State) String() string {
	if s == StateOpen {
		return "open"
	}
	return "closed"
}

// Mode tells whether an open form creates a record or edits one.
type Mode int

const (
	ModeCreate Mode = iota
	ModeEdit
)

func (m Mode) String() string {
	if m == ModeEdit {
		return "edit"
	}
	return "create"
}

// ErrorKind classifies a field failure.
type ErrorKind string

const (
	ErrRequired   ErrorKind = "required"
	ErrNotNumeric ErrorKind = "not_numeric"
	ErrInvalid    ErrorKind = "invalid"
)

// Message is the text shown under the field.
func (k ErrorKind) Message() string {
	switch k {
	case ErrRequired:
		return "Campo obrigatório"
	case ErrNotNumeric:
		return "Informe um número válido"
	default:
		return "Campo inválido"
	}
}

// Values maps field names to raw user input.
type Values map[string]string

// Clone returns an independent copy.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// FieldErrors maps field names to their failure.
type FieldErrors map[string]ErrorKind

// Messages renders each error as its display text.
func (e FieldErrors) Messages() map[string]string {
	out := make(map[string]string, len(e))
	for name, kind := range e {
		out[name] = kind.Message()
	}
	return out
}

// ValidationError carries the field errors of a rejected submit.
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, e.Fields[name]))
	}
	return fmt.Sprintf("%s (%s)", ErrValidationFailed, strings.Join(parts, ", "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

var numericPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

// IsNumeric reports whether s parses as a base-10 decimal number.
func IsNumeric(s string) bool {
	return numericPattern.MatchString(strings.TrimSpace(s))
}

// Engine holds the state of one form. It is not safe for concurrent use.
type Engine struct {
	state  State
	mode   Mode
	layout Layout
	values Values
	errors FieldErrors
}

// NewEngine returns a closed engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Open activates the form, pre-filling every layout field from initial ("" when absent).
func (e *Engine) Open(layout Layout, mode Mode, initial Values) {
	e.state = StateOpen
	e.mode = mode
	e.layout = layout
	e.values = make(Values, len(layout.order))
	for _, name := range layout.order {
		e.values[name] = initial[name]
	}
	e.errors = FieldErrors{}
}

// OnFieldChange sets one field value and clears that field's error.
func (e *Engine) OnFieldChange(name, value string) error {
	if e.state != StateOpen {
		return ErrFormClosed
	}
	if _, ok := e.layout.index[name]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	e.values[name] = value
	delete(e.errors, name)
	return nil
}

// Validate checks presence of required fields and the syntax of numeric ones.
// It does not modify the form.
func (e *Engine) Validate() FieldErrors {
	errs := FieldErrors{}
	for _, field := range e.layout.Fields() {
		value := strings.TrimSpace(e.values[field.Name])
		switch {
		case value == "":
			if field.Required {
				errs[field.Name] = ErrRequired
			}
		case field.Kind == KindNumeric && !IsNumeric(value):
			errs[field.Name] = ErrNotNumeric
		}
	}
	return errs
}

// Submit validates and returns a copy of the values. On failure the form stays open with
// the errors attached and a *ValidationError is returned. The caller closes the form.
func (e *Engine) Submit() (Values, error) {
	if e.state != StateOpen {
		return nil, ErrFormClosed
	}
	errs := e.Validate()
	if len(errs) > 0 {
		e.errors = errs
		return nil, &ValidationError{Fields: copyErrors(errs)}
	}
	e.errors = FieldErrors{}
	return e.values.Clone(), nil
}

// Reject attaches a failure found after conversion; the form stays open.
func (e *Engine) Reject(name string, kind ErrorKind) *ValidationError {
	if e.errors == nil {
		e.errors = FieldErrors{}
	}
	e.errors[name] = kind
	return &ValidationError{Fields: copyErrors(e.errors)}
}

// Close discards values and errors.
func (e *Engine) Close() {
	e.state = StateClosed
	e.mode = ModeCreate
	e.values = nil
	e.errors = nil
}

func (e *Engine) State() State { return e.state }

func (e *Engine) Mode() Mode { return e.mode }

func (e *Engine) Layout() Layout { return e.layout }

// Value returns the current raw value of a field.
func (e *Engine) Value(name string) string { return e.values[name] }

// Values returns a copy of every value; nil when closed.
func (e *Engine) Values() Values {
	if e.values == nil {
		return nil
	}
	return e.values.Clone()
}

// Errors returns a copy of the attached errors.
func (e *Engine) Errors() FieldErrors {
	return copyErrors(e.errors)
}

func copyErrors(errs FieldErrors) FieldErrors {
	out := make(FieldErrors, len(errs))
	for k, v := range errs {
		out[k] = v
	}
	return out
}
