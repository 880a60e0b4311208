package screen

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"example.com/wellness/internal/events"
	"example.com/wellness/internal/form"
	"example.com/wellness/internal/observability"
	"example.com/wellness/internal/records"
)

// Option configures optional behaviour for a Controller.
type Option func(*settings)

type settings struct {
	reporter  Reporter
	publisher events.Publisher
	logger    logrus.FieldLogger
	userID    string
	now       func() time.Time
}

// WithReporter sets where storage warnings go. Defaults to a LogReporter.
func WithReporter(r Reporter) Option {
	return func(s *settings) { s.reporter = r }
}

// WithPublisher sets the record-change publisher. Defaults to events.Noop.
func WithPublisher(p events.Publisher) Option {
	return func(s *settings) { s.publisher = p }
}

// WithLogger overrides the logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *settings) { s.logger = logger }
}

// WithUserID tags published events with the owning user.
func WithUserID(id string) Option {
	return func(s *settings) { s.userID = id }
}

// WithClock overrides time.Now for form defaults and event timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

// Controller owns one screen. It is not safe for concurrent use; callers serialise
// access (the API per user session, the TUI on its update loop).
type Controller[T records.Record[T], A any] struct {
	binding Binding[T, A]
	store   *records.Store[T]
	form    *form.Engine
	settings

	editing   *T
	list      []T
	aggregate A
}

// New builds a controller for binding over store.
func New[T records.Record[T], A any](binding Binding[T, A], store *records.Store[T], opts ...Option) *Controller[T, A] {
	s := settings{
		publisher: events.Noop{},
		logger:    logrus.StandardLogger(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(&s)
	}
	s.logger = s.logger.WithField("domain", binding.Domain)
	if s.reporter == nil {
		s.reporter = LogReporter{Logger: s.logger}
	}
	c := &Controller[T, A]{
		binding:  binding,
		store:    store,
		form:     form.NewEngine(),
		settings: s,
	}
	c.setList(nil)
	return c
}

// Domain is the binding's short name.
func (c *Controller[T, A]) Domain() string { return c.binding.Domain }

// Title is the screen heading.
func (c *Controller[T, A]) Title() string { return c.binding.Title }

// Activate loads the record list. On a load failure the fallback list is still shown,
// the user is warned and the error is returned for logging.
func (c *Controller[T, A]) Activate(ctx context.Context) error {
	list, err := c.store.Load(ctx)
	c.setList(list)
	if err != nil {
		switch {
		case errors.Is(err, records.ErrCorruptState):
			c.reporter.Warn("Dados corrompidos", "Os registros salvos não puderam ser lidos; dados de exemplo foram carregados.")
		case errors.Is(err, records.ErrStorageWrite):
			c.reporter.Warn("Erro ao salvar", "Os dados de exemplo não puderam ser salvos.")
		default:
			c.reporter.Warn("Erro ao carregar", "Não foi possível carregar os registros salvos.")
		}
		return err
	}
	return nil
}

// OpenAdd opens an empty create form.
func (c *Controller[T, A]) OpenAdd() {
	c.editing = nil
	c.form.Open(c.binding.Layout, form.ModeCreate, c.binding.Blank(c.now()))
}

// OpenEdit opens the form pre-filled with the record id.
func (c *Controller[T, A]) OpenEdit(id int64) error {
	rec, ok := c.Find(id)
	if !ok {
		return fmt.Errorf("%w: %d", records.ErrRecordNotFound, id)
	}
	c.editing = &rec
	c.form.Open(c.binding.Layout, form.ModeEdit, c.binding.ToValues(rec))
	return nil
}

// ChangeField forwards one keystroke-level change to the form.
func (c *Controller[T, A]) ChangeField(name, value string) error {
	return c.form.OnFieldChange(name, value)
}

// Submit validates the form and creates or updates the record. On success the form
// closes and the id of the saved record is returned with its pending write.
// Validation failures return a *form.ValidationError and keep the form open.
func (c *Controller[T, A]) Submit(ctx context.Context) (int64, *records.PendingWrite, error) {
	values, err := c.form.Submit()
	if err != nil {
		if errors.Is(err, form.ErrValidationFailed) {
			observability.RecordValidationFailure(c.binding.Domain)
		}
		return 0, nil, err
	}

	record, fieldErrs := c.binding.FromValues(values, c.editing, c.now())
	if len(fieldErrs) > 0 {
		var verr *form.ValidationError
		for name, kind := range fieldErrs {
			verr = c.form.Reject(name, kind)
		}
		observability.RecordValidationFailure(c.binding.Domain)
		return 0, nil, verr
	}

	var (
		pw     *records.PendingWrite
		action events.Action
		id     int64
	)
	if c.editing != nil {
		id = (*c.editing).RecordID()
		var ok bool
		pw, ok = c.store.Update(ctx, id, func(T) T { return record })
		if !ok {
			c.Close()
			c.setList(c.store.Snapshot())
			return 0, nil, fmt.Errorf("%w: %d", records.ErrRecordNotFound, id)
		}
		record = record.WithRecordID(id)
		action = events.ActionUpdated
	} else {
		record, pw = c.store.Add(ctx, record)
		id = record.RecordID()
		action = events.ActionCreated
	}

	c.Close()
	c.setList(c.store.Snapshot())
	c.track(ctx, pw, action, id, record)
	return id, pw, nil
}

// Close dismisses the form without saving.
func (c *Controller[T, A]) Close() {
	c.form.Close()
	c.editing = nil
}

// RequestDelete asks confirmer before removing id. Nothing changes unless the user confirms.
func (c *Controller[T, A]) RequestDelete(ctx context.Context, id int64, confirmer Confirmer) error {
	rec, ok := c.Find(id)
	if !ok {
		return fmt.Errorf("%w: %d", records.ErrRecordNotFound, id)
	}
	confirmer.Confirm(c.binding.DeletePrompt(rec), func() {
		_, _ = c.Delete(ctx, id)
	})
	return nil
}

// Delete removes id without asking. The returned write settles once the backend accepts or
// rejects the new list.
func (c *Controller[T, A]) Delete(ctx context.Context, id int64) (*records.PendingWrite, error) {
	pw, ok := c.store.Remove(ctx, id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", records.ErrRecordNotFound, id)
	}
	if c.editing != nil && (*c.editing).RecordID() == id {
		c.Close()
	}
	c.setList(c.store.Snapshot())
	c.track(ctx, pw, events.ActionDeleted, id, nil)
	return pw, nil
}

// Reset restores the seed list.
func (c *Controller[T, A]) Reset(ctx context.Context) error {
	c.Close()
	list, err := c.store.Reset(ctx)
	c.setList(list)
	if err != nil {
		c.reporter.Warn("Erro ao restaurar", "Não foi possível restaurar os dados de exemplo.")
		return err
	}
	c.publish(ctx, events.ActionReset, 0, nil)
	return nil
}

// Flush waits for every pending write of the screen's store.
func (c *Controller[T, A]) Flush() {
	c.store.Flush()
}

// Find returns the record with id from the current list.
func (c *Controller[T, A]) Find(id int64) (T, bool) {
	for _, rec := range c.list {
		if rec.RecordID() == id {
			return rec, true
		}
	}
	var zero T
	return zero, false
}

// Records returns a copy of the current list.
func (c *Controller[T, A]) Records() []T {
	out := make([]T, len(c.list))
	copy(out, c.list)
	return out
}

// Aggregate returns the derived summary of the current list.
func (c *Controller[T, A]) Aggregate() A { return c.aggregate }

// Form exposes the form engine for rendering.
func (c *Controller[T, A]) Form() *form.Engine { return c.form }

// Layout is the screen's form layout.
func (c *Controller[T, A]) Layout() form.Layout { return c.binding.Layout }

// Editing returns the id under edit, or false in create mode or when closed.
func (c *Controller[T, A]) Editing() (int64, bool) {
	if c.editing == nil {
		return 0, false
	}
	return (*c.editing).RecordID(), true
}

// View is a render-ready snapshot of the screen.
type View struct {
	Domain    string `json:"domain"`
	Title     string `json:"title"`
	Records   any    `json:"records"`
	Aggregate any    `json:"aggregate"`
	Rows      []Row  `json:"rows"`
	EditingID int64  `json:"editingId,omitempty"`
}

// View renders the current state.
func (c *Controller[T, A]) View() View {
	rows := make([]Row, 0, len(c.list))
	for _, rec := range c.list {
		rows = append(rows, c.binding.Row(rec))
	}
	editing, _ := c.Editing()
	return View{
		Domain:    c.binding.Domain,
		Title:     c.binding.Title,
		Records:   c.Records(),
		Aggregate: c.aggregate,
		Rows:      rows,
		EditingID: editing,
	}
}

// Record returns the record with id as an untyped value.
func (c *Controller[T, A]) Record(id int64) (any, bool) {
	rec, ok := c.Find(id)
	if !ok {
		return nil, false
	}
	return rec, true
}

func (c *Controller[T, A]) setList(list []T) {
	if list == nil {
		list = []T{}
	}
	c.list = list
	c.aggregate = c.binding.Aggregate(list)
}

// track reports the outcome of pw once it settles. It runs on the writer goroutine.
func (c *Controller[T, A]) track(ctx context.Context, pw *records.PendingWrite, action events.Action, id int64, record any) {
	ctx = context.WithoutCancel(ctx)
	pw.Then(func(err error) {
		if err != nil {
			c.logger.WithError(err).WithField("record_id", id).Warn("record write failed")
			c.reporter.Warn("Erro ao salvar", "A alteração foi mantida, mas não pôde ser salva.")
			return
		}
		c.publish(ctx, action, id, record)
	})
}

func (c *Controller[T, A]) publish(ctx context.Context, action events.Action, id int64, record any) {
	evt, err := events.NewRecordChanged(c.binding.Domain, c.userID, action, id, record, c.now())
	if err != nil {
		c.logger.WithError(err).Warn("build record event")
		return
	}
	if err := c.publisher.Publish(ctx, evt); err != nil {
		c.logger.WithError(err).WithField("event_id", evt.EventID).Warn("publish record event")
	}
}
