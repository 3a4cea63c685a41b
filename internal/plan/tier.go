// Package plan holds the subscription tiers, the artifacts each tier entitles,
// and the pure reconciliation logic that works out what still has to be generated
// for a project.
package plan

import (
	"errors"
	"fmt"
)

// Tier is a subscription tier. Tiers are totally ordered: free < pro < ultra.
type Tier int

const (
	TierFree Tier = iota
	TierPro
	TierUltra
)

// ErrEntitlementUnavailable is returned when no capability check is available
// for an identity. Unknown entitlement is never treated as free.
var ErrEntitlementUnavailable = errors.New("entitlement check unavailable")

// Tiers lists every tier from lowest to highest.
var Tiers = []Tier{TierFree, TierPro, TierUltra}

func (t Tier) String() string {
	switch t {
	case TierFree:
		return "free"
	case TierPro:
		return "pro"
	case TierUltra:
		return "ultra"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// Valid reports whether t is one of the known tiers.
func (t Tier) Valid() bool {
	return t >= TierFree && t <= TierUltra
}

// AtLeast reports whether t is the same as or above other.
func (t Tier) AtLeast(other Tier) bool {
	return t >= other
}

// ParseTier parses a wire name ("free", "pro", "ultra").
func ParseTier(s string) (Tier, error) {
	switch s {
	case "free":
		return TierFree, nil
	case "pro":
		return TierPro, nil
	case "ultra":
		return TierUltra, nil
	}
	return TierFree, fmt.Errorf("unknown plan %q", s)
}

// MarshalText encodes the tier by its wire name.
func (t Tier) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid tier %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText decodes a wire name.
func (t *Tier) UnmarshalText(b []byte) error {
	parsed, err := ParseTier(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Capability answers whether the identity holds the given tier claim.
type Capability func(claim Tier) bool

// ResolveTier returns the highest tier the capability check grants, checking
// ultra before pro. A holder of no paid claim resolves to free. A nil
// capability yields ErrEntitlementUnavailable.
func ResolveTier(has Capability) (Tier, error) {
	if has == nil {
		return TierFree, ErrEntitlementUnavailable
	}
	for i := len(Tiers) - 1; i > 0; i-- {
		if has(Tiers[i]) {
			return Tiers[i], nil
		}
	}
	return TierFree, nil
}
