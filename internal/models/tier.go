package models

import (
	"strings"

	appErr "github.com/autostack/gateway/pkg/errors"
)

// Tier is a subscription tier. Tiers are totally ordered by Ordinal.
type Tier string

const (
	TierFree       Tier = "free"
	TierStarter    Tier = "starter"
	TierPro        Tier = "pro"
	TierEnterprise Tier = "enterprise"
)

// Unlimited is the quota value for tiers without a limit.
const Unlimited = -1

var tierOrdinals = map[Tier]int{
	TierFree:       0,
	TierStarter:    1,
	TierPro:        2,
	TierEnterprise: 3,
}

// ParseTier converts s into a Tier, rejecting unknown names.
func ParseTier(s string) (Tier, error) {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := tierOrdinals[t]; !ok {
		return "", appErr.New(appErr.CodeInvalid, "unknown subscription tier").WithMeta("tier", s)
	}
	return t, nil
}

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	_, ok := tierOrdinals[t]
	return ok
}

// Ordinal returns the position of t in the tier order. Unknown tiers rank below free.
func (t Tier) Ordinal() int {
	if o, ok := tierOrdinals[t]; ok {
		return o
	}
	return -1
}

// AtLeast reports whether t ranks at or above required.
func (t Tier) AtLeast(required Tier) bool {
	return t.Ordinal() >= required.Ordinal()
}

// ProjectQuota is the number of projects a user on t may own.
func (t Tier) ProjectQuota() int {
	switch t {
	case TierFree:
		return 5
	case TierStarter:
		return 20
	case TierPro, TierEnterprise:
		return Unlimited
	default:
		return 0
	}
}

// CheckTier returns a tier_required error when current ranks below required.
func CheckTier(current, required Tier) error {
	if current.AtLeast(required) {
		return nil
	}
	return appErr.New(appErr.CodeTierRequired, "subscription upgrade required").
		WithMeta("required_tier", string(required)).
		WithMeta("current_tier", string(current))
}
