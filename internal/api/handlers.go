// Package api exposes the wellness screens over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"example.com/wellness/internal/auth"
	"example.com/wellness/internal/domain"
	"example.com/wellness/internal/events"
	"example.com/wellness/internal/form"
	"example.com/wellness/internal/kv"
	"example.com/wellness/internal/records"
	"example.com/wellness/internal/screen"
	"example.com/wellness/internal/weather"
)

// WeatherSource returns current conditions or nil when unavailable.
type WeatherSource interface {
	Current(ctx context.Context) *weather.Report
}

// Option configures optional behaviour for the Handler.
type Option func(*Handler)

// WithLogger overrides the logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(h *Handler) { h.logger = logger }
}

// WithPublisher sets the record-change publisher.
func WithPublisher(p events.Publisher) Option {
	return func(h *Handler) { h.publisher = p }
}

// WithWeather enables GET /v1/weather.
func WithWeather(w WeatherSource) Option {
	return func(h *Handler) { h.weather = w }
}

// WithWriteTimeout bounds how long a mutation waits for its storage write before answering.
func WithWriteTimeout(d time.Duration) Option {
	return func(h *Handler) { h.writeTimeout = d }
}

// Handler serves the wellness API. Each user gets an independent set of screens over
// their own slot namespace; requests of one user are serialised.
type Handler struct {
	backend      kv.Store
	publisher    events.Publisher
	weather      WeatherSource
	logger       logrus.FieldLogger
	writeTimeout time.Duration

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	mu      sync.Mutex
	screens map[string]screen.Screen
	active  map[string]bool
}

// NewHandler constructs a Handler storing slots in backend.
func NewHandler(backend kv.Store, opts ...Option) *Handler {
	h := &Handler{
		backend:      backend,
		publisher:    events.Noop{},
		logger:       logrus.StandardLogger(),
		writeTimeout: 5 * time.Second,
		sessions:     make(map[string]*session),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes attaches every route to mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/screens/{domain}", h.getScreen)
	mux.HandleFunc("GET /v1/screens/{domain}/form", h.getForm)
	mux.HandleFunc("POST /v1/screens/{domain}/records", h.createRecord)
	mux.HandleFunc("PUT /v1/screens/{domain}/records/{id}", h.updateRecord)
	mux.HandleFunc("DELETE /v1/screens/{domain}/records/{id}", h.deleteRecord)
	mux.HandleFunc("POST /v1/screens/{domain}/reset", h.resetScreen)
	mux.HandleFunc("GET /v1/tips", h.listTips)
	mux.HandleFunc("GET /v1/wellbeing", h.getWellbeing)
	mux.HandleFunc("GET /v1/weather", h.getWeather)
	mux.HandleFunc("GET /healthz", healthz)
}

// Flush waits for every pending write of every session, or until ctx is done.
func (h *Handler) Flush(ctx context.Context) error {
	h.mu.Lock()
	sessions := make([]*session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.Unlock()

	var wg sync.WaitGroup
	for _, s := range sessions {
		wg.Add(1)
		go func(s *session) {
			defer wg.Done()
			s.mu.Lock()
			defer s.mu.Unlock()
			for _, sc := range s.screens {
				sc.Flush()
			}
		}(s)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// RecordRequest is the body of create and update calls.
type RecordRequest struct {
	Values map[string]string `json:"values"`
}

// RecordResponse is returned after a create or update.
type RecordResponse struct {
	Record    any  `json:"record"`
	Persisted bool `json:"persisted"`
}

// DeleteResponse is returned after a confirmed delete.
type DeleteResponse struct {
	ID        int64 `json:"id"`
	Persisted bool  `json:"persisted"`
}

// FormResponse describes a screen's form layout.
type FormResponse struct {
	Domain string                   `json:"domain"`
	Rows   [][]form.FieldDescriptor `json:"rows"`
	Lines  []form.Line              `json:"lines,omitempty"`
}

func (h *Handler) getScreen(w http.ResponseWriter, r *http.Request) {
	sc, release, ok := h.screenFor(w, r, auth.ScopeRead)
	if !ok {
		return
	}
	defer release()
	writeJSON(w, http.StatusOK, sc.View())
}

func (h *Handler) getForm(w http.ResponseWriter, r *http.Request) {
	sc, release, ok := h.screenFor(w, r, auth.ScopeRead)
	if !ok {
		return
	}
	layout := sc.Layout()
	release()

	resp := FormResponse{Domain: sc.Domain(), Rows: layout.Describe()}
	if raw := r.URL.Query().Get("width"); raw != "" {
		width, err := strconv.Atoi(raw)
		if err != nil || width <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_request", "width must be a positive integer")
			return
		}
		gap := 1
		if rawGap := r.URL.Query().Get("gap"); rawGap != "" {
			if gap, err = strconv.Atoi(rawGap); err != nil || gap < 0 {
				writeError(w, http.StatusBadRequest, "invalid_request", "gap must be a non-negative integer")
				return
			}
		}
		resp.Lines = layout.Arrange(width, gap)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) createRecord(w http.ResponseWriter, r *http.Request) {
	var req RecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	sc, release, ok := h.screenFor(w, r, auth.ScopeWrite)
	if !ok {
		return
	}
	defer release()

	sc.OpenAdd()
	h.submit(w, r, sc, release, req.Values, http.StatusCreated)
}

func (h *Handler) updateRecord(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "record id must be an integer")
		return
	}
	var req RecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	sc, release, ok := h.screenFor(w, r, auth.ScopeWrite)
	if !ok {
		return
	}
	defer release()

	if err := sc.OpenEdit(id); err != nil {
		writeError(w, http.StatusNotFound, "not_found", "record not found")
		return
	}
	h.submit(w, r, sc, release, req.Values, http.StatusOK)
}

// submit applies values to the open form and saves it. The session is released before
// waiting on the storage write.
func (h *Handler) submit(w http.ResponseWriter, r *http.Request, sc screen.Screen, release func(), values map[string]string, status int) {
	for name, value := range values {
		if err := sc.ChangeField(name, value); err != nil {
			sc.Close()
			writeError(w, http.StatusUnprocessableEntity, "unknown_field", err.Error())
			return
		}
	}

	id, pw, err := sc.Submit(r.Context())
	if err != nil {
		var verr *form.ValidationError
		switch {
		case errors.As(err, &verr):
			sc.Close()
			writeValidationError(w, verr)
		case errors.Is(err, records.ErrRecordNotFound):
			writeError(w, http.StatusNotFound, "not_found", "record not found")
		default:
			sc.Close()
			writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		}
		return
	}

	record, _ := sc.Record(id)
	release()
	writeJSON(w, status, RecordResponse{Record: record, Persisted: h.awaitWrite(r.Context(), pw)})
}

func (h *Handler) deleteRecord(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "record id must be an integer")
		return
	}
	confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))

	sc, release, ok := h.screenFor(w, r, auth.ScopeWrite)
	if !ok {
		return
	}
	defer release()

	if !confirmed {
		var prompt screen.Prompt
		capture := screen.ConfirmerFunc(func(p screen.Prompt, _ func()) { prompt = p })
		if err := sc.RequestDelete(r.Context(), id, capture); err != nil {
			writeError(w, http.StatusNotFound, "not_found", "record not found")
			return
		}
		writeJSON(w, http.StatusConflict, map[string]any{
			"type":   "confirmation_required",
			"detail": prompt.Message,
			"prompt": prompt,
		})
		return
	}

	pw, err := sc.Delete(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "record not found")
		return
	}
	release()
	writeJSON(w, http.StatusOK, DeleteResponse{ID: id, Persisted: h.awaitWrite(r.Context(), pw)})
}

func (h *Handler) resetScreen(w http.ResponseWriter, r *http.Request) {
	sc, release, ok := h.screenFor(w, r, auth.ScopeWrite)
	if !ok {
		return
	}
	defer release()

	if err := sc.Reset(r.Context()); err != nil {
		h.logger.WithError(err).WithField("domain", sc.Domain()).Error("reset failed")
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "seed data could not be restored")
		return
	}
	writeJSON(w, http.StatusOK, sc.View())
}

func (h *Handler) listTips(w http.ResponseWriter, r *http.Request) {
	if _, ok := authorize(w, r, auth.ScopeRead); !ok {
		return
	}
	tab := r.URL.Query().Get("tab")
	if tab != "" && !domain.ValidTab(tab) {
		writeError(w, http.StatusBadRequest, "invalid_request", "unknown tab")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tabs": domain.Tabs, "tips": domain.FilterTips(tab)})
}

func (h *Handler) getWellbeing(w http.ResponseWriter, r *http.Request) {
	if _, ok := authorize(w, r, auth.ScopeRead); !ok {
		return
	}
	writeJSON(w, http.StatusOK, domain.Wellbeing())
}

func (h *Handler) getWeather(w http.ResponseWriter, r *http.Request) {
	if _, ok := authorize(w, r, auth.ScopeRead); !ok {
		return
	}
	if h.weather == nil {
		writeError(w, http.StatusServiceUnavailable, "weather_unavailable", "weather lookup disabled")
		return
	}
	report := h.weather.Current(r.Context())
	if report == nil {
		writeError(w, http.StatusServiceUnavailable, "weather_unavailable", "weather lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// screenFor authorizes the request and locks the caller's session. release must be
// called once the screen is no longer used; calling it again is a no-op.
//
// A screen whose slot could not be read serves its fallback list to readers and is loaded
// again on the next request. Writers are refused until the slot has been read, so the
// fallback never overwrites saved records.
func (h *Handler) screenFor(w http.ResponseWriter, r *http.Request, scope string) (screen.Screen, func(), bool) {
	claims, ok := authorize(w, r, scope)
	if !ok {
		return nil, nil, false
	}
	s := h.session(claims.Subject)
	s.mu.Lock()

	name := r.PathValue("domain")
	sc, found := s.screens[name]
	if !found {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "not_found", "unknown screen")
		return nil, nil, false
	}
	if !s.active[name] {
		err := sc.Activate(r.Context())
		if err == nil || !errors.Is(err, records.ErrStorageRead) {
			s.active[name] = true
		}
		if err != nil {
			h.logger.WithError(err).WithFields(logrus.Fields{"domain": name, "user_id": claims.Subject}).Warn("screen activated with fallback data")
		}
		if !s.active[name] && scope == auth.ScopeWrite {
			s.mu.Unlock()
			writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "saved records could not be read")
			return nil, nil, false
		}
	}
	return sc, sync.OnceFunc(s.mu.Unlock), true
}

func (h *Handler) session(userID string) *session {
	h.mu.Lock()
	defer h.mu.Unlock()

	if s, ok := h.sessions[userID]; ok {
		return s
	}
	backend := kv.WithPrefix(h.backend, kv.UserPrefix(userID))
	logger := h.logger.WithField("user_id", userID)
	s := &session{screens: make(map[string]screen.Screen), active: make(map[string]bool)}
	for _, sc := range domain.NewScreens(backend, logger,
		screen.WithUserID(userID),
		screen.WithPublisher(h.publisher),
	) {
		s.screens[sc.Domain()] = sc
	}
	h.sessions[userID] = s
	return s
}

func (h *Handler) awaitWrite(ctx context.Context, pw *records.PendingWrite) bool {
	ctx, cancel := context.WithTimeout(ctx, h.writeTimeout)
	defer cancel()
	if err := pw.Wait(ctx); err != nil {
		h.logger.WithError(err).Warn("record kept in memory but not persisted")
		return false
	}
	return true
}

func authorize(w http.ResponseWriter, r *http.Request, scope string) (*auth.Claims, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return nil, false
	}
	if !claims.HasScope(scope) {
		writeError(w, http.StatusForbidden, "forbidden", "scope "+scope+" required")
		return nil, false
	}
	return claims, true
}

func writeValidationError(w http.ResponseWriter, verr *form.ValidationError) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
		"type":   "validation_failed",
		"detail": verr.Error(),
		"fields": verr.Fields.Messages(),
	})
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
