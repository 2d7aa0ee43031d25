package http

import (
	"encoding/json"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/teetimex/tee-time-exchange/internal/domain"
)

type createTradeRequest struct {
	TeeTimeID uuid.UUID `json:"tee_time_id"`
	OfferedTo uuid.UUID `json:"offered_to_id"`
}

func (h *Handlers) CreateTrade(w http.ResponseWriter, r *http.Request) {
	key, done := h.replayStored(w, r)
	if done {
		return
	}
	var req createTradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Wrap(domain.ErrValidation, "invalid request body"))
		return
	}
	t, err := h.exchange.Offer(r.Context(), req.TeeTimeID, userID(r.Context()), req.OfferedTo)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := toTradeResponse(*t)
	h.storeResponse(r, key, http.StatusCreated, resp)
	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handlers) ListTrades(w http.ResponseWriter, r *http.Request) {
	trades, err := h.exchange.ListForUser(r.Context(), userID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]tradeResponse, 0, len(trades))
	for _, t := range trades {
		out = append(out, toTradeResponse(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) GetTrade(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, errors.Wrap(domain.ErrValidation, "invalid trade id"))
		return
	}
	t, err := h.exchange.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	caller := userID(r.Context())
	if t.OfferedBy != caller && t.OfferedTo != caller {
		writeError(w, errors.Wrap(domain.ErrNotAuthorized, "not a party to this trade"))
		return
	}
	writeJSON(w, http.StatusOK, toTradeResponse(*t))
}

type respondTradeRequest struct {
	Status string `json:"status"`
}

func (h *Handlers) RespondTrade(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, errors.Wrap(domain.ErrValidation, "invalid trade id"))
		return
	}
	var req respondTradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Wrap(domain.ErrValidation, "invalid request body"))
		return
	}
	decision, err := domain.ParseDecision(req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	t, err := h.exchange.Respond(r.Context(), id, userID(r.Context()), decision)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTradeResponse(*t))
}

func (h *Handlers) CancelTrade(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, errors.Wrap(domain.ErrValidation, "invalid trade id"))
		return
	}
	if err := h.exchange.CancelOffer(r.Context(), id, userID(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := h.dashboard.Summarize(r.Context(), userID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
