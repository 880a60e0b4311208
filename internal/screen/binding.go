// Package screen drives one record screen: the record list, the add/edit form, the edit
// cursor, the delete confirmation and the derived aggregate.
package screen

import (
	"time"

	"example.com/wellness/internal/form"
	"example.com/wellness/internal/records"
)

// Binding adapts one domain's records to the form engine and its aggregate.
type Binding[T records.Record[T], A any] struct {
	// Domain is the short name used in routes, logs and metrics ("workouts").
	Domain string
	Title  string
	Key    string
	Seed   func() []T
	Layout form.Layout

	// Blank returns the initial values of a create form.
	Blank func(now time.Time) form.Values
	// ToValues renders a record into an edit form.
	ToValues func(T) form.Values
	// FromValues converts validated values into a record. existing is nil in create mode.
	// Returned field errors keep the form open.
	FromValues func(values form.Values, existing *T, now time.Time) (T, form.FieldErrors)

	Aggregate    func([]T) A
	Row          func(T) Row
	DeletePrompt func(T) Prompt
}

// Row is the list entry shown for one record.
type Row struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Detail string `json:"detail,omitempty"`
	Badge  string `json:"badge,omitempty"`
}

// DeletePrompt builds the standard confirmation for deleting a named record.
func DeletePrompt(message string) Prompt {
	return Prompt{
		Title:        "Confirmar Exclusão",
		Message:      message,
		ConfirmLabel: "Excluir",
		CancelLabel:  "Cancelar",
	}
}
