package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/teetimex/tee-time-exchange/internal/adapters/crdb"
	"github.com/teetimex/tee-time-exchange/internal/domain"
	"github.com/teetimex/tee-time-exchange/internal/ledger"
)

type createTeeTimeRequest struct {
	CourseID uuid.UUID `json:"course_id"`
	Date     string    `json:"date"`
	Time     string    `json:"time"`
	Players  int       `json:"number_of_players"`
}

func (h *Handlers) CreateTeeTime(w http.ResponseWriter, r *http.Request) {
	key, done := h.replayStored(w, r)
	if done {
		return
	}
	var req createTeeTimeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Wrap(domain.ErrValidation, "invalid request body"))
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		writeError(w, errors.Wrap(domain.ErrValidation, "date must be YYYY-MM-DD"))
		return
	}
	t, err := h.ledger.Create(r.Context(), userID(r.Context()), ledger.CreateInput{
		CourseID:  req.CourseID,
		Date:      date,
		TimeOfDay: req.Time,
		Players:   req.Players,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	resp := toTeeTimeResponse(*t)
	h.storeResponse(r, key, http.StatusCreated, resp)
	writeJSON(w, http.StatusCreated, resp)
}

// ListTeeTimes returns the caller's slots by default; holder_id, course_id,
// status, from and to query parameters widen or narrow the view.
func (h *Handlers) ListTeeTimes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f crdb.TeeTimeFilter

	switch holder := q.Get("holder_id"); holder {
	case "":
		if q.Get("course_id") == "" {
			me := userID(r.Context())
			f.HolderID = &me
		}
	case "me":
		me := userID(r.Context())
		f.HolderID = &me
	default:
		id, err := uuid.Parse(holder)
		if err != nil {
			writeError(w, errors.Wrap(domain.ErrValidation, "invalid holder_id"))
			return
		}
		f.HolderID = &id
	}
	if raw := q.Get("course_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, errors.Wrap(domain.ErrValidation, "invalid course_id"))
			return
		}
		f.CourseID = &id
	}
	if raw := q.Get("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			f.Statuses = append(f.Statuses, domain.TeeTimeStatus(s))
		}
	}
	if raw := q.Get("from"); raw != "" {
		from, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(w, errors.Wrap(domain.ErrValidation, "from must be YYYY-MM-DD"))
			return
		}
		f.DateFrom = &from
	}
	if raw := q.Get("to"); raw != "" {
		to, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(w, errors.Wrap(domain.ErrValidation, "to must be YYYY-MM-DD"))
			return
		}
		f.DateTo = &to
	}

	slots, err := h.ledger.List(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]teeTimeResponse, 0, len(slots))
	for _, t := range slots {
		out = append(out, toTeeTimeResponse(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) UpdateTeeTime(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, errors.Wrap(domain.ErrValidation, "invalid tee time id"))
		return
	}
	var req createTeeTimeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Wrap(domain.ErrValidation, "invalid request body"))
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		writeError(w, errors.Wrap(domain.ErrValidation, "date must be YYYY-MM-DD"))
		return
	}
	t, err := h.ledger.Update(r.Context(), id, userID(r.Context()), ledger.CreateInput{
		CourseID:  req.CourseID,
		Date:      date,
		TimeOfDay: req.Time,
		Players:   req.Players,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTeeTimeResponse(*t))
}

func (h *Handlers) GetTeeTime(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, errors.Wrap(domain.ErrValidation, "invalid tee time id"))
		return
	}
	t, err := h.ledger.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := toTeeTimeResponse(*t)
	if pending, err := h.repo.PendingTradeForTeeTime(r.Context(), id); err == nil {
		resp.PendingTradeID = &pending.ID
	} else if domain.Kind(err) != "not_found" {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) CancelTeeTime(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, errors.Wrap(domain.ErrValidation, "invalid tee time id"))
		return
	}
	if err := h.ledger.Cancel(r.Context(), id, userID(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
