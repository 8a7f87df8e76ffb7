package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/garnizeh/jobtrack/internal/tracker"
)

type ApplicationsHandler struct {
	svc *tracker.Service
}

func NewApplicationsHandler(svc *tracker.Service) *ApplicationsHandler {
	return &ApplicationsHandler{svc: svc}
}

type createApplicationRequest struct {
	Company     string `json:"company"`
	Role        string `json:"role"`
	DateApplied string `json:"date_applied"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type notesRequest struct {
	Notes string `json:"notes"`
}

type updatesRequest struct {
	Updates string `json:"updates"`
}

// requireUser pulls the acting user from the request context. The JWT
// middleware guarantees it on protected routes.
func requireUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	}
	return id, ok
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return false
	}
	return true
}

// Dashboard lists the user's applications with statistics. reset=1 drops
// the filter, sort and search parameters.
func (h *ApplicationsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var opts tracker.Options
	if q := r.URL.Query(); q.Get("reset") != "1" {
		opts = tracker.Options{
			Status: q.Get("status_filter"),
			Sort:   q.Get("sort"),
			Order:  q.Get("order"),
			Search: q.Get("search"),
		}
	}

	d, err := h.svc.Dashboard(r.Context(), userID, opts, settingsFromRequest(r, h.svc.Defaults()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, d, http.StatusOK)
}

func (h *ApplicationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req createApplicationRequest
	if !decode(w, r, &req) {
		return
	}

	a, err := h.svc.AddApplication(r.Context(), userID, req.Company, req.Role, req.DateApplied)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, a, http.StatusCreated)
}

func (h *ApplicationsHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if !decode(w, r, &req) {
		return
	}

	a, err := h.svc.UpdateStatus(r.Context(), userID, id, req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, a, http.StatusOK)
}

func (h *ApplicationsHandler) UpdateNotes(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req notesRequest
	if !decode(w, r, &req) {
		return
	}

	a, err := h.svc.UpdateNotes(r.Context(), userID, id, req.Notes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, a, http.StatusOK)
}

func (h *ApplicationsHandler) EditUpdates(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req updatesRequest
	if !decode(w, r, &req) {
		return
	}

	a, err := h.svc.EditUpdates(r.Context(), userID, id, req.Updates)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, a, http.StatusOK)
}

func (h *ApplicationsHandler) Duplicate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	a, err := h.svc.Duplicate(r.Context(), userID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, a, http.StatusCreated)
}

func (h *ApplicationsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), userID, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
