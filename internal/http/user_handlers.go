package http

import (
	"encoding/json"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/teetimex/tee-time-exchange/internal/auth"
	"github.com/teetimex/tee-time-exchange/internal/domain"
)

type registerRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
	Handicap *int   `json:"handicap"`
}

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Wrap(domain.ErrValidation, "invalid request body"))
		return
	}
	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	u, err := domain.NewUser(req.Email, req.FullName, hashed, req.Handicap)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.repo.CreateUser(r.Context(), u); err != nil {
		if domain.Kind(err) == "conflict" {
			writeError(w, errors.Wrap(domain.ErrConflict, "email already registered"))
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserResponse(u))
}

// tokenRequest accepts the credential under either key; older clients send
// the email in the username field.
type tokenRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r tokenRequest) email() string {
	if r.Email != "" {
		return r.Email
	}
	return r.Username
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (h *Handlers) Token(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Wrap(domain.ErrValidation, "invalid request body"))
		return
	}
	u, err := h.repo.GetUserByEmail(r.Context(), req.email())
	if err != nil || !auth.CheckPassword(u.HashedPassword, req.Password) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"error":  "not_authorized",
			"detail": "incorrect email or password",
		})
		return
	}
	token, err := h.tokens.Issue(u.ID, u.Email)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer"})
}

func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.repo.GetUser(r.Context(), userID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(*u))
}

type updateMeRequest struct {
	FullName    *string  `json:"full_name"`
	Handicap    *int     `json:"handicap"`
	NotifyPrefs []string `json:"notification_preferences"`
}

func (h *Handlers) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req updateMeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Wrap(domain.ErrValidation, "invalid request body"))
		return
	}
	u, err := h.repo.GetUser(r.Context(), userID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	if req.FullName != nil {
		u.FullName = *req.FullName
	}
	if req.Handicap != nil {
		if err := domain.ValidateHandicap(req.Handicap); err != nil {
			writeError(w, err)
			return
		}
		u.Handicap = req.Handicap
	}
	if req.NotifyPrefs != nil {
		if err := domain.ValidateNotifyPrefs(req.NotifyPrefs); err != nil {
			writeError(w, err)
			return
		}
		u.NotifyPrefs = req.NotifyPrefs
	}
	if err := h.repo.UpdateUser(r.Context(), *u); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(*u))
}

func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.repo.ListUsers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	writeJSON(w, http.StatusOK, out)
}
