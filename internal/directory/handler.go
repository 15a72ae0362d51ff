package directory

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gradnet/cmd/identity"
)

// Gate is the auth middleware boundary; satisfied by the auth API handler.
type Gate interface {
	RequireAuth(next http.Handler) http.Handler
	RequireRole(next http.Handler, allowed ...identity.Role) http.Handler
}

// Handler serves directory reads. Every route sits behind the auth gate;
// the overview is admin-only.
type Handler struct {
	log   *slog.Logger
	store Store
}

// NewHandler constructs a directory Handler.
func NewHandler(log *slog.Logger, store Store) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{log: log, store: store}
}

// Register wires directory routes onto the mux behind the gate.
func (h *Handler) Register(mux *http.ServeMux, gate Gate) {
	if h == nil || mux == nil || gate == nil {
		return
	}
	mux.Handle("/directory/profiles", gate.RequireAuth(http.HandlerFunc(h.handleList)))
	mux.Handle("/directory/profiles/", gate.RequireAuth(http.HandlerFunc(h.handleGet)))
	mux.Handle("/directory/admin/overview", gate.RequireAuth(gate.RequireRole(
		http.HandlerFunc(h.handleOverview), identity.RoleAdmin)))
}

type profileItem struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`

	CollegeName    *string `json:"college_name,omitempty"`
	Course         *string `json:"course,omitempty"`
	Specialization *string `json:"specialization,omitempty"`
	YearOfJoining  *int    `json:"year_of_joining,omitempty"`
	YearOfPassing  *int    `json:"year_of_passing,omitempty"`
}

type listResponse struct {
	Profiles []profileItem `json:"profiles"`
	Limit    int           `json:"limit"`
	Offset   int           `json:"offset"`
}

type getResponse struct {
	Profile profileItem `json:"profile"`
}

type overviewResponse struct {
	TotalProfiles    int64 `json:"total_profiles"`
	Students         int64 `json:"students"`
	Alumni           int64 `json:"alumni"`
	Admins           int64 `json:"admins"`
	JoinedLast30Days int64 `json:"joined_last_30_days"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	f := SearchFilter{
		Query:  strings.TrimSpace(q.Get("q")),
		Course: strings.TrimSpace(q.Get("course")),
		Limit:  intParam(q.Get("limit"), 50),
		Offset: intParam(q.Get("offset"), 0),
	}
	if v := strings.TrimSpace(q.Get("year_of_passing")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "year_of_passing must be a number")
			return
		}
		f.YearOfPassing = &y
	}
	if f.Limit <= 0 || f.Limit > maxPageSize {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	profiles, err := h.store.SearchProfiles(r.Context(), f)
	if err != nil {
		h.log.Error("directory.list.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	items := make([]profileItem, 0, len(profiles))
	for _, p := range profiles {
		items = append(items, toProfileItem(p))
	}
	writeJSON(w, http.StatusOK, listResponse{Profiles: items, Limit: f.Limit, Offset: f.Offset})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/directory/profiles/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "not_found", "profile not found")
		return
	}

	p, err := h.store.GetProfile(r.Context(), id)
	if err != nil {
		if identity.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", "profile not found")
			return
		}
		h.log.Error("directory.get.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	writeJSON(w, http.StatusOK, getResponse{Profile: toProfileItem(p)})
}

func (h *Handler) handleOverview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	o, err := h.store.Overview(r.Context(), time.Now().UTC())
	if err != nil {
		h.log.Error("directory.overview.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	writeJSON(w, http.StatusOK, overviewResponse{
		TotalProfiles:    o.TotalProfiles,
		Students:         o.Students,
		Alumni:           o.Alumni,
		Admins:           o.Admins,
		JoinedLast30Days: o.JoinedLast30Days,
	})
}

func toProfileItem(p identity.Principal) profileItem {
	return profileItem{
		ID:             p.ID,
		Name:           p.Name,
		Email:          p.Email,
		Role:           string(p.Role),
		CollegeName:    p.CollegeName,
		Course:         p.Course,
		Specialization: p.Specialization,
		YearOfJoining:  p.YearOfJoining,
		YearOfPassing:  p.YearOfPassing,
	}
}

func intParam(v string, def int) int {
	v = strings.TrimSpace(v)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error apiError `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: apiError{Code: code, Message: msg}})
}
