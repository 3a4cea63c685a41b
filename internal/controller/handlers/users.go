package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"castplane/internal/identity"
	"castplane/internal/plan"
	"castplane/internal/store"
	"castplane/pkg/api"

	"github.com/google/uuid"
)

// CreateUser handles POST /admin/users (Admin Only).
// It generates a new API token, hashes it for storage, and returns the raw token ONCE.
func (h *Handlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		h.httpError(w, "Name is required", http.StatusBadRequest)
		return
	}
	if req.RateLimit < 0 || req.RateLimitBurst < 0 {
		h.httpError(w, "Rate limit must not be negative", http.StatusBadRequest)
		return
	}
	plans, err := normalizePlans(req.Plans)
	if err != nil {
		h.httpError(w, err.Error(), http.StatusBadRequest)
		return
	}

	token, err := identity.GenerateToken()
	if err != nil {
		h.httpError(w, "Entropy failure", http.StatusInternalServerError)
		return
	}

	user := &store.User{
		ID:             uuid.New(),
		Name:           req.Name,
		Plans:          plans,
		RateLimit:      req.RateLimit,
		RateLimitBurst: req.RateLimitBurst,
		CreatedAt:      time.Now().UTC(),
	}

	if err := h.store.CreateUser(ctx, user, identity.HashToken(token)); err != nil {
		h.logActionError(r, http.StatusInternalServerError, err)
		h.httpError(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	h.respondJson(w, http.StatusCreated, api.CreateUserResponse{
		Success: true,
		ID:      user.ID.String(),
		Name:    user.Name,
		Plans:   plans,
		Token:   token,
	})
}

// SetUserPlans handles PUT /admin/users/{id}/plans (Admin Only).
// Billing calls it when a subscription changes.
func (h *Handlers) SetUserPlans(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.httpError(w, "Invalid user id", http.StatusBadRequest)
		return
	}

	var req api.SetPlansRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	plans, err := normalizePlans(req.Plans)
	if err != nil {
		h.httpError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.store.SetUserPlans(r.Context(), userID, plans); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.httpError(w, "User not found", http.StatusNotFound)
			return
		}
		h.logActionError(r, http.StatusInternalServerError, err)
		h.httpError(w, "Failed to update plans", http.StatusInternalServerError)
		return
	}

	h.respondJson(w, http.StatusOK, api.SuccessResponse{Success: true})
}

// normalizePlans lowercases claims and rejects unknown ones. "free" is
// implied and dropped.
func normalizePlans(claims []string) ([]string, error) {
	out := []string{}
	seen := make(map[plan.Tier]bool)
	for _, c := range claims {
		t, err := plan.ParseTier(strings.ToLower(strings.TrimSpace(c)))
		if err != nil {
			return nil, err
		}
		if t == plan.TierFree || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t.String())
	}
	return out, nil
}
