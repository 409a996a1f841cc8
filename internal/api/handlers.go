// Package api exposes the record store's presentation-facing surface over
// HTTP.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"example.com/fitlog/internal/auth"
	"example.com/fitlog/internal/dateutil"
	"example.com/fitlog/internal/domain"
	"example.com/fitlog/internal/store"
)

// Handler coordinates HTTP requests with per-user record stores.
type Handler struct {
	stores *store.Manager
	now    func() time.Time
}

// NewHandler builds a Handler.
func NewHandler(stores *store.Manager, now func() time.Time) *Handler {
	if now == nil {
		now = time.Now
	}
	return &Handler{stores: stores, now: now}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/records", h.records)
	mux.HandleFunc("/v1/records/", h.recordByID)
	mux.HandleFunc("/v1/stats/week", h.weeklyStats)
	mux.HandleFunc("/v1/stats/month", h.monthlyStats)
	mux.HandleFunc("/v1/stats/streak", h.streak)
	mux.HandleFunc("/v1/types", h.types)
	mux.HandleFunc("/v1/view", h.view)
	mux.HandleFunc("/v1/refresh", h.refresh)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) records(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createRecord(w, r)
	case http.MethodGet:
		h.listRecords(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) createRecord(w http.ResponseWriter, r *http.Request) {
	st, ok := h.storeForWrite(w, r)
	if !ok {
		return
	}

	var draft domain.RecordDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := draft.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	rec, ok := st.Add(r.Context(), draft)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "no authenticated user")
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *Handler) listRecords(w http.ResponseWriter, r *http.Request) {
	st, ok := h.storeForRead(w, r)
	if !ok {
		return
	}

	if date := r.URL.Query().Get("date"); date != "" {
		writeJSON(w, http.StatusOK, recordList(st.RecordsForDate(date)))
		return
	}
	if weekStart := r.URL.Query().Get("week_start"); weekStart != "" {
		start, err := dateutil.ParseDay(weekStart)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", "invalid week_start")
			return
		}
		writeJSON(w, http.StatusOK, recordList(st.RecordsForWeek(start)))
		return
	}
	writeJSON(w, http.StatusOK, recordList(st.Records()))
}

func (h *Handler) recordByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/records/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing record id")
		return
	}

	st, ok := h.storeForWrite(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodPatch:
		var patch domain.RecordPatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
			return
		}
		if err := patch.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}
		st.Update(r.Context(), id, patch)
		// The update is applied only if remote sync succeeded; the caller
		// observes the outcome through the returned record list.
		writeJSON(w, http.StatusOK, recordList(st.Records()))
	case http.MethodDelete:
		st.Delete(r.Context(), id)
		writeJSON(w, http.StatusOK, recordList(st.Records()))
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) weeklyStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	st, ok := h.storeForRead(w, r)
	if !ok {
		return
	}

	start := dateutil.WeekStart(h.now())
	if raw := r.URL.Query().Get("start"); raw != "" {
		parsed, err := dateutil.ParseDay(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", "invalid start date")
			return
		}
		start = dateutil.WeekStart(parsed)
	}
	writeJSON(w, http.StatusOK, st.WeeklyStats(start))
}

func (h *Handler) monthlyStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	st, ok := h.storeForRead(w, r)
	if !ok {
		return
	}

	now := h.now().UTC()
	year, month := now.Year(), int(now.Month())
	if raw := r.URL.Query().Get("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", "invalid year")
			return
		}
		year = parsed
	}
	if raw := r.URL.Query().Get("month"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 12 {
			writeError(w, http.StatusBadRequest, "validation_failed", "invalid month")
			return
		}
		month = parsed
	}
	writeJSON(w, http.StatusOK, st.MonthlyStats(year, month))
}

func (h *Handler) streak(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	st, ok := h.storeForRead(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, st.StreakInfo())
}

func (h *Handler) types(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		st, ok := h.storeForRead(w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, st.Types())
	case http.MethodPost:
		st, ok := h.storeForWrite(w, r)
		if !ok {
			return
		}
		var draft domain.TypeDraft
		if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
			return
		}
		if err := draft.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}
		typ, ok := st.AddType(r.Context(), draft)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "no authenticated user")
			return
		}
		writeJSON(w, http.StatusCreated, typ)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

// ViewState mirrors the session's window selection and displayed date.
type ViewState struct {
	ViewWindow    domain.ViewWindow `json:"view_window"`
	DisplayedDate string            `json:"displayed_date"`
	Loading       bool              `json:"loading"`
}

func (h *Handler) view(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		st, ok := h.storeForRead(w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, ViewState{
			ViewWindow:    st.ViewWindow(),
			DisplayedDate: st.DisplayedDate(),
			Loading:       st.Loading(),
		})
	case http.MethodPut:
		st, ok := h.storeForWrite(w, r)
		if !ok {
			return
		}
		var req ViewState
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
			return
		}
		if req.ViewWindow != "" {
			if !req.ViewWindow.Valid() {
				writeError(w, http.StatusBadRequest, "validation_failed", "view_window must be weekly or monthly")
				return
			}
			st.SetViewWindow(r.Context(), req.ViewWindow)
		}
		if req.DisplayedDate != "" {
			if _, err := dateutil.ParseDay(req.DisplayedDate); err != nil {
				writeError(w, http.StatusBadRequest, "validation_failed", "displayed_date must be YYYY-MM-DD")
				return
			}
			st.SetDisplayedDate(req.DisplayedDate)
		}
		writeJSON(w, http.StatusOK, ViewState{
			ViewWindow:    st.ViewWindow(),
			DisplayedDate: st.DisplayedDate(),
			Loading:       st.Loading(),
		})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	st, ok := h.storeForRead(w, r)
	if !ok {
		return
	}
	st.Load(r.Context())
	writeJSON(w, http.StatusOK, recordList(st.Records()))
}

func (h *Handler) storeForRead(w http.ResponseWriter, r *http.Request) (*store.Store, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return nil, false
	}
	if !claims.HasScope(auth.ScopeRecordsRead) && !claims.HasScope(auth.ScopeRecordsWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope records:read required")
		return nil, false
	}
	st, ok := h.stores.ForUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "no authenticated user")
		return nil, false
	}
	return st, true
}

func (h *Handler) storeForWrite(w http.ResponseWriter, r *http.Request) (*store.Store, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return nil, false
	}
	if !claims.HasScope(auth.ScopeRecordsWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope records:write required")
		return nil, false
	}
	st, ok := h.stores.ForUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "no authenticated user")
		return nil, false
	}
	return st, true
}

func recordList(records []domain.Record) []domain.Record {
	if records == nil {
		return []domain.Record{}
	}
	return records
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
