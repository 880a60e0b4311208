package screen

import (
	"context"

	"example.com/wellness/internal/form"
	"example.com/wellness/internal/records"
)

// Screen is the type-erased surface of a Controller used by hosts that serve several domains.
type Screen interface {
	Domain() string
	Title() string
	Activate(ctx context.Context) error
	OpenAdd()
	OpenEdit(id int64) error
	ChangeField(name, value string) error
	Submit(ctx context.Context) (int64, *records.PendingWrite, error)
	Close()
	RequestDelete(ctx context.Context, id int64, confirmer Confirmer) error
	Delete(ctx context.Context, id int64) (*records.PendingWrite, error)
	Reset(ctx context.Context) error
	Flush()
	Form() *form.Engine
	Layout() form.Layout
	Editing() (int64, bool)
	Record(id int64) (any, bool)
	View() View
}
