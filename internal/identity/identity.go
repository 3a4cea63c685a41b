// Package identity authenticates API tokens and exposes the caller's plan
// claims to the entitlement resolver.
package identity

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"castplane/internal/plan"
	"castplane/internal/store"
)

// ErrUnauthenticated is returned when no valid identity accompanies a request.
var ErrUnauthenticated = errors.New("unauthenticated")

// TokenPrefix marks castplane API tokens.
const TokenPrefix = "cp_"

// Identity is an authenticated caller.
type Identity struct {
	UserID string
	Name   string

	// RateLimit is requests per second; 0 means unlimited.
	RateLimit      float64
	RateLimitBurst int

	has plan.Capability
}

// New builds an identity whose entitlement is answered by has.
// A nil has makes Tier fail with plan.ErrEntitlementUnavailable.
func New(userID string, has plan.Capability) *Identity {
	return &Identity{UserID: userID, has: has}
}

// FromUser builds an identity from a stored user and its plan claims.
func FromUser(u *store.User) *Identity {
	return &Identity{
		UserID:         u.ID.String(),
		Name:           u.Name,
		RateLimit:      u.RateLimit,
		RateLimitBurst: u.RateLimitBurst,
		has:            ClaimsCapability(u.Plans),
	}
}

// Tier resolves the caller's current entitlement tier.
func (i *Identity) Tier() (plan.Tier, error) {
	if i == nil || i.UserID == "" {
		return plan.TierFree, ErrUnauthenticated
	}
	return plan.ResolveTier(i.has)
}

// ClaimsCapability answers plan claims from a list such as ["pro"].
// Claims are matched case-insensitively; unknown claims are ignored.
func ClaimsCapability(claims []string) plan.Capability {
	held := make(map[plan.Tier]bool, len(claims))
	for _, c := range claims {
		if t, err := plan.ParseTier(strings.ToLower(strings.TrimSpace(c))); err == nil {
			held[t] = true
		}
	}
	return func(claim plan.Tier) bool {
		return held[claim]
	}
}

// Provider authenticates a bearer token.
type Provider interface {
	Identify(ctx context.Context, token string) (*Identity, error)
}

// StoreProvider looks tokens up by hash in the users table.
type StoreProvider struct {
	users store.UserStore
}

// NewStoreProvider returns a Provider backed by users.
func NewStoreProvider(users store.UserStore) *StoreProvider {
	return &StoreProvider{users: users}
}

// Identify returns ErrUnauthenticated for empty or unknown tokens.
func (p *StoreProvider) Identify(ctx context.Context, token string) (*Identity, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrUnauthenticated
	}

	user, err := p.users.GetUserByTokenHash(ctx, HashToken(token))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("failed to look up token: %w", err)
	}
	if user == nil {
		return nil, ErrUnauthenticated
	}
	return FromUser(user), nil
}

// HashToken returns a SHA-256 hash of the token.
func HashToken(token string) string {
	token = strings.TrimSpace(token)

	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// GenerateToken returns a new random API token.
func GenerateToken() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("entropy failure: %w", err)
	}
	return TokenPrefix + hex.EncodeToString(raw), nil
}

type identityKey struct{}

// NewContext returns a copy of ctx carrying id.
func NewContext(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the identity stored in ctx, if any.
func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*Identity)
	return id, ok && id != nil
}
