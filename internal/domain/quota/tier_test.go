package quota

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTier(t *testing.T) {
	assert.Equal(t, TierGuest, ParseTier("guest"))
	assert.Equal(t, TierPaid, ParseTier("paid"))
	assert.Equal(t, TierSigned, ParseTier("signed"))
	assert.Equal(t, TierFree, ParseTier("free"))

	// Anything unrecognized falls back to guest
	assert.Equal(t, TierGuest, ParseTier(""))
	assert.Equal(t, TierGuest, ParseTier("admin"))
	assert.Equal(t, TierGuest, ParseTier("PAID"))
}

func TestBetaFlagPolicy(t *testing.T) {
	policy := BetaFlagPolicy{}

	tests := []struct {
		name  string
		tier  Tier
		flags BetaFlags
		want  Cap
	}{
		{"guest base", TierGuest, BetaFlags{}, 5},
		{"guest beta1", TierGuest, BetaFlags{Beta1: true}, 10},
		{"guest beta1+beta2", TierGuest, BetaFlags{Beta1: true, Beta2: true}, 15},
		{"beta2 without beta1 still unlocks", TierGuest, BetaFlags{Beta2: true}, 15},
		{"signed follows the same ladder", TierSigned, BetaFlags{}, 5},
		{"paid is unconditionally unlimited", TierPaid, BetaFlags{}, Unlimited},
		{"paid ignores flags", TierPaid, BetaFlags{Beta1: true, Beta2: true}, Unlimited},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.CapFor(tt.tier, tt.flags))
		})
	}
}

func TestBetaFlagPolicyMonotonicity(t *testing.T) {
	policy := BetaFlagPolicy{}

	base := policy.CapFor(TierGuest, BetaFlags{})
	beta1 := policy.CapFor(TierGuest, BetaFlags{Beta1: true})
	both := policy.CapFor(TierGuest, BetaFlags{Beta1: true, Beta2: true})

	assert.True(t, int(beta1) > int(base))
	assert.True(t, int(both) > int(beta1))
	assert.True(t, policy.CapFor(TierPaid, BetaFlags{}).IsUnlimited())
}

func TestNamedTierPolicy(t *testing.T) {
	policy := NamedTierPolicy{}

	assert.Equal(t, Cap(5), policy.CapFor(TierGuest, BetaFlags{}))
	assert.Equal(t, Cap(10), policy.CapFor(TierFree, BetaFlags{}))
	assert.Equal(t, Unlimited, policy.CapFor(TierPaid, BetaFlags{}))

	// Beta flags do not apply to the named-tier table
	assert.Equal(t, Cap(5), policy.CapFor(TierGuest, BetaFlags{Beta1: true, Beta2: true}))
}

func TestCapAllowsAndRemaining(t *testing.T) {
	cap := Cap(5)
	assert.True(t, cap.Allows(0))
	assert.True(t, cap.Allows(4))
	assert.False(t, cap.Allows(5))
	assert.False(t, cap.Allows(6))

	assert.Equal(t, Cap(5), cap.Remaining(0))
	assert.Equal(t, Cap(1), cap.Remaining(4))
	assert.Equal(t, Cap(0), cap.Remaining(5))
	assert.Equal(t, Cap(0), cap.Remaining(9))

	assert.True(t, Unlimited.Allows(1_000_000))
	assert.Equal(t, Unlimited, Unlimited.Remaining(1_000_000))
}

func TestCapJSON(t *testing.T) {
	data, err := json.Marshal(Cap(5))
	assert.NoError(t, err)
	assert.Equal(t, "5", string(data))

	data, err = json.Marshal(Unlimited)
	assert.NoError(t, err)
	assert.Equal(t, `"unlimited"`, string(data))

	var c Cap
	assert.NoError(t, json.Unmarshal([]byte(`"unlimited"`), &c))
	assert.Equal(t, Unlimited, c)
	assert.NoError(t, json.Unmarshal([]byte(`7`), &c))
	assert.Equal(t, Cap(7), c)
}
