package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/teetimex/tee-time-exchange/internal/adapters/crdb"
	mongoadapter "github.com/teetimex/tee-time-exchange/internal/adapters/mongo"
	"github.com/teetimex/tee-time-exchange/internal/auth"
	"github.com/teetimex/tee-time-exchange/internal/config"
	"github.com/teetimex/tee-time-exchange/internal/domain"
	"github.com/teetimex/tee-time-exchange/internal/exchange"
	"github.com/teetimex/tee-time-exchange/internal/idempotency"
	"github.com/teetimex/tee-time-exchange/internal/ledger"
	"github.com/teetimex/tee-time-exchange/internal/observability"
	"github.com/teetimex/tee-time-exchange/internal/readmodel"
)

type Handlers struct {
	cfg       *config.Config
	repo      *crdb.Repository
	ledger    *ledger.Ledger
	exchange  *exchange.Exchange
	dashboard *readmodel.Dashboard
	registry  *mongoadapter.CourseRegistry
	tokens    *auth.Tokens
	idemp     *idempotency.Idempotency
	logger    observability.Logger
}

func NewHandlers(
	cfg *config.Config,
	repo *crdb.Repository,
	ldg *ledger.Ledger,
	exch *exchange.Exchange,
	dashboard *readmodel.Dashboard,
	registry *mongoadapter.CourseRegistry,
	tokens *auth.Tokens,
	idemp *idempotency.Idempotency,
	logger observability.Logger,
) *Handlers {
	return &Handlers{
		cfg:       cfg,
		repo:      repo,
		ledger:    ldg,
		exchange:  exch,
		dashboard: dashboard,
		registry:  registry,
		tokens:    tokens,
		idemp:     idemp,
		logger:    logger,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, _ := json.Marshal(v)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError maps the domain error taxonomy onto HTTP statuses. Missing or
// invalid credentials are handled in the auth middleware with 401; a resolved
// caller lacking rights gets 403 here.
func writeError(w http.ResponseWriter, err error) {
	kind := domain.Kind(err)
	status := http.StatusInternalServerError
	switch kind {
	case "validation_error":
		status = http.StatusBadRequest
	case "not_authorized":
		status = http.StatusForbidden
	case "not_found":
		status = http.StatusNotFound
	case "invalid_state", "conflict":
		status = http.StatusConflict
	default:
		kind = "internal"
	}
	writeJSON(w, status, map[string]string{"error": kind, "detail": err.Error()})
}

// replayStored serves a previously stored idempotent response. Returns true
// when the request was already handled.
func (h *Handlers) replayStored(w http.ResponseWriter, r *http.Request) (string, bool) {
	key := r.Header.Get("Idempotency-Key")
	existing, err := h.idemp.Get(r.Context(), key)
	if err != nil {
		writeError(w, err)
		return key, true
	}
	if existing != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(existing.Status)
		w.Write(existing.Result)
		return key, true
	}
	return key, false
}

func (h *Handlers) storeResponse(r *http.Request, key string, status int, v interface{}) {
	data, _ := json.Marshal(v)
	h.idemp.Set(r.Context(), key, idempotency.Response{Status: status, Result: data})
}

type userResponse struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	FullName    string    `json:"full_name"`
	Handicap    *int      `json:"handicap"`
	NotifyPrefs []string  `json:"notification_preferences"`
	CreatedAt   time.Time `json:"created_at"`
}

func toUserResponse(u domain.User) userResponse {
	return userResponse{
		ID:          u.ID,
		Email:       u.Email,
		FullName:    u.FullName,
		Handicap:    u.Handicap,
		NotifyPrefs: u.NotifyPrefs,
		CreatedAt:   u.CreatedAt,
	}
}

type teeTimeResponse struct {
	ID             uuid.UUID  `json:"id"`
	CourseID       uuid.UUID  `json:"course_id"`
	Date           string     `json:"date"`
	Time           string     `json:"time"`
	Players        int        `json:"number_of_players"`
	Status         string     `json:"status"`
	HolderID       *uuid.UUID `json:"holder_id"`
	PendingTradeID *uuid.UUID `json:"pending_trade_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func toTeeTimeResponse(t domain.TeeTime) teeTimeResponse {
	return teeTimeResponse{
		ID:        t.ID,
		CourseID:  t.CourseID,
		Date:      t.Date.Format("2006-01-02"),
		Time:      t.TimeOfDay,
		Players:   t.Players,
		Status:    string(t.Status),
		HolderID:  t.HolderID,
		CreatedAt: t.CreatedAt,
	}
}

type tradeResponse struct {
	ID        uuid.UUID `json:"id"`
	TeeTimeID uuid.UUID `json:"tee_time_id"`
	OfferedBy uuid.UUID `json:"offered_by_id"`
	OfferedTo uuid.UUID `json:"offered_to_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toTradeResponse(t domain.Trade) tradeResponse {
	return tradeResponse{
		ID:        t.ID,
		TeeTimeID: t.TeeTimeID,
		OfferedBy: t.OfferedBy,
		OfferedTo: t.OfferedTo,
		Status:    string(t.Status),
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}
