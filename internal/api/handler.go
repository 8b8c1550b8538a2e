package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"talentmail/internal/csvparser"
	"talentmail/internal/db"
	"talentmail/internal/dispatch"
	"talentmail/internal/models"
)

const maxImportRows = 1000

// Handler exposes the recruiting mail surface: template and letter
// creation, candidate import, and the dispatch trigger. Dispatch itself is
// fire-and-forget: the request returns once the task is queued, and the
// outcome is read back from the letter record.
type Handler struct {
	Store         *db.Store
	Tasks         *asynq.Client
	Log           *zap.Logger
	RetryAttempts int
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /templates", h.CreateTemplate)
	mux.HandleFunc("POST /letters", h.CreateLetter)
	mux.HandleFunc("GET /letters/{id}", h.GetLetter)
	mux.HandleFunc("POST /letters/{id}/dispatch", h.DispatchLetter)
	mux.HandleFunc("POST /candidates/import", h.ImportCandidates)
	mux.HandleFunc("POST /events/{id}/status", h.UpdateEventStatus)
}

func (h *Handler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var tmpl models.EmailTemplate
	if err := json.NewDecoder(r.Body).Decode(&tmpl); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if tmpl.Name == "" || tmpl.Body == "" {
		http.Error(w, "name and body are required", http.StatusBadRequest)
		return
	}

	if err := h.Store.InsertTemplate(r.Context(), &tmpl); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"id": tmpl.ID})
}

type createLetterRequest struct {
	Name         string  `json:"name"`
	TemplateID   int64   `json:"template_id"`
	RecipientIDs []int64 `json:"recipient_ids"`
	VacancyID    *int64  `json:"vacancy_id,omitempty"`
	EventID      *int64  `json:"event_id,omitempty"`
}

func (h *Handler) CreateLetter(w http.ResponseWriter, r *http.Request) {
	var req createLetterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.TemplateID == 0 {
		http.Error(w, "name and template_id are required", http.StatusBadRequest)
		return
	}

	letter := models.EmailLetter{
		Name:       req.Name,
		TemplateID: req.TemplateID,
		VacancyID:  req.VacancyID,
		EventID:    req.EventID,
	}
	if err := h.Store.InsertLetter(r.Context(), &letter, req.RecipientIDs); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":     letter.ID,
		"status": letter.Status,
	})
}

func (h *Handler) GetLetter(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid letter id", http.StatusBadRequest)
		return
	}

	letter, err := h.Store.GetLetter(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, letter)
}

type dispatchRequest struct {
	ExtraContext map[string]string `json:"extra_context,omitempty"`
}

// DispatchLetter queues the send and replies 202 immediately.
func (h *Handler) DispatchLetter(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid letter id", http.StatusBadRequest)
		return
	}

	var req dispatchRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	if _, err := h.Store.GetLetter(r.Context(), id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	task, err := dispatch.NewDispatchTask(id, req.ExtraContext)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	info, err := h.Tasks.EnqueueContext(r.Context(), task, asynq.MaxRetry(h.RetryAttempts))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.Log.Info("letter dispatch queued",
		zap.Int64("letter_id", id),
		zap.String("task_id", info.ID),
	)

	writeJSON(w, http.StatusAccepted, map[string]any{
		"letter_id": id,
		"task_id":   info.ID,
	})
}

// ImportCandidates bulk-creates candidates from an uploaded CSV.
func (h *Handler) ImportCandidates(w http.ResponseWriter, r *http.Request) {
	candidates, err := csvparser.ParseCandidates(r.Body, maxImportRows)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Store.InsertCandidates(r.Context(), candidates); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	ids := make([]int64, 0, len(candidates))
	for i := range candidates {
		ids = append(ids, candidates[i].ID)
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"imported": len(ids),
		"ids":      ids,
	})
}

type eventStatusRequest struct {
	Status string `json:"status"`
}

// UpdateEventStatus moves an event between active, completed and cancelled.
func (h *Handler) UpdateEventStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid event id", http.StatusBadRequest)
		return
	}

	var req eventStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	event, err := h.Store.GetEvent(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	switch req.Status {
	case "active":
		event.MarkActive()
	case "completed":
		event.MarkCompleted()
	case "cancelled":
		event.MarkCancelled()
	default:
		http.Error(w, "status must be active, completed or cancelled", http.StatusBadRequest)
		return
	}

	if err := h.Store.UpdateEventStatus(r.Context(), event.ID, event.Status); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":     event.ID,
		"status": req.Status,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
