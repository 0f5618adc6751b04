// Package quota contains the domain model for daily usage accounting:
// visitor tiers, cap policies, day buckets, and search chains.
package quota

import "encoding/json"

// Tier is a named usage class controlling the daily cap. It is held
// client-side and is not backed by verified authentication; treat it as a
// hint, never as proof of identity.
type Tier string

const (
	TierGuest  Tier = "guest"
	TierSigned Tier = "signed"
	TierFree   Tier = "free"
	TierPaid   Tier = "paid"
)

// ParseTier normalizes a raw tier string, defaulting to guest on anything
// unrecognized or malformed.
func ParseTier(s string) Tier {
	switch Tier(s) {
	case TierGuest, TierSigned, TierFree, TierPaid:
		return Tier(s)
	default:
		return TierGuest
	}
}

// BetaFlags are the optional unlock flags granted by the beta program
// (survey completion, email signup). Each flag raises the cap to a fixed
// value rather than stacking additively.
type BetaFlags struct {
	Beta1 bool `json:"beta1"`
	Beta2 bool `json:"beta2"`
}

// Cap is a daily limit on chargeable operations. The Unlimited sentinel
// means no cap applies.
type Cap int

// Unlimited marks a tier with no daily cap.
const Unlimited Cap = -1

// IsUnlimited reports whether the cap is the Unlimited sentinel.
func (c Cap) IsUnlimited() bool { return c == Unlimited }

// Allows reports whether one more chargeable operation fits under the cap
// given the current count.
func (c Cap) Allows(count int) bool {
	return c.IsUnlimited() || count < int(c)
}

// Remaining returns how many chargeable operations are left today.
// Unlimited caps stay unlimited.
func (c Cap) Remaining(count int) Cap {
	if c.IsUnlimited() {
		return Unlimited
	}
	if r := int(c) - count; r > 0 {
		return Cap(r)
	}
	return 0
}

// MarshalJSON renders Unlimited as the string "unlimited" so API consumers
// never see the sentinel value.
func (c Cap) MarshalJSON() ([]byte, error) {
	if c.IsUnlimited() {
		return json.Marshal("unlimited")
	}
	return json.Marshal(int(c))
}

// UnmarshalJSON accepts either an integer or the string "unlimited".
func (c *Cap) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "unlimited" {
			*c = Unlimited
		}
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*c = Cap(n)
	return nil
}

// CapPolicy maps a tier plus optional beta flags to a daily cap.
type CapPolicy interface {
	CapFor(tier Tier, flags BetaFlags) Cap
}

// BetaFlagPolicy is the server-observed cap table: 5 searches per day,
// unlocked to 10 by beta1 and 15 by beta2. Paid is always unlimited.
type BetaFlagPolicy struct{}

// CapFor implements CapPolicy.
func (BetaFlagPolicy) CapFor(tier Tier, flags BetaFlags) Cap {
	if tier == TierPaid {
		return Unlimited
	}
	cap := Cap(5)
	if flags.Beta1 {
		cap = 10
	}
	if flags.Beta2 {
		cap = 15
	}
	return cap
}

// NamedTierPolicy is the client-local cap table: guest 5, free 10, paid
// unlimited. It ignores beta flags. Both tables exist in the product and are
// kept as distinct variants because their call sites differ.
type NamedTierPolicy struct{}

// CapFor implements CapPolicy.
func (NamedTierPolicy) CapFor(tier Tier, _ BetaFlags) Cap {
	switch tier {
	case TierPaid:
		return Unlimited
	case TierFree, TierSigned:
		return 10
	default:
		return 5
	}
}
