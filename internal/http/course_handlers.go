package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mongoadapter "github.com/teetimex/tee-time-exchange/internal/adapters/mongo"
	"github.com/teetimex/tee-time-exchange/internal/domain"
)

type createCourseRequest struct {
	Name       string `json:"name"`
	Location   string `json:"location"`
	Website    string `json:"website"`
	BookingURL string `json:"booking_url"`
}

func (h *Handlers) CreateCourse(w http.ResponseWriter, r *http.Request) {
	key, done := h.replayStored(w, r)
	if done {
		return
	}
	var req createCourseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Wrap(domain.ErrValidation, "invalid request body"))
		return
	}
	if req.Name == "" {
		writeError(w, errors.Wrap(domain.ErrValidation, "course name is required"))
		return
	}
	course := mongoadapter.CourseDoc{
		ID:         uuid.New(),
		Name:       req.Name,
		Location:   req.Location,
		Website:    req.Website,
		BookingURL: req.BookingURL,
		CreatedAt:  time.Now().UTC(),
	}
	if err := h.registry.CreateCourse(r.Context(), course); err != nil {
		writeError(w, err)
		return
	}
	h.storeResponse(r, key, http.StatusCreated, course)
	writeJSON(w, http.StatusCreated, course)
}

func (h *Handlers) ListCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := h.registry.ListCourses(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, courses)
}

func (h *Handlers) GetCourse(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, errors.Wrap(domain.ErrValidation, "invalid course id"))
		return
	}
	course, err := h.registry.GetCourse(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, course)
}

func (h *Handlers) DeleteCourse(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, errors.Wrap(domain.ErrValidation, "invalid course id"))
		return
	}
	if err := h.registry.DeleteCourse(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
