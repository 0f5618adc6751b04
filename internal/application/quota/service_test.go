package quota

import (
	"errors"
	"testing"
	"time"

	domquota "github.com/rekomendr/rekomendr/internal/domain/quota"
	"github.com/rekomendr/rekomendr/internal/infrastructure/quota/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var errStoreDown = errors.New("store down")

// brokenStore fails every operation, for exercising the fail-closed paths.
type brokenStore struct{}

func (brokenStore) GetCount(string, string) (int, error)  { return 0, errStoreDown }
func (brokenStore) Increment(string, string) (int, error) { return 0, errStoreDown }
func (brokenStore) ResetDay(string, string) error         { return errStoreDown }
func (brokenStore) MarkChainCounted(string, string, string) (bool, error) {
	return false, errStoreDown
}
func (brokenStore) AllowAndIncrement(string, string, domquota.Cap) (bool, int, error) {
	return false, 0, errStoreDown
}
func (brokenStore) EndChain(string, string, string, domquota.Cap) (bool, int, error) {
	return false, 0, errStoreDown
}

// countingRecorder captures metric callbacks.
type countingRecorder struct {
	allowed int
	denied  int
	counted int
}

func (r *countingRecorder) QuotaDecision(allowed bool) {
	if allowed {
		r.allowed++
	} else {
		r.denied++
	}
}
func (r *countingRecorder) ChainCounted() { r.counted++ }

func newTestService(t *testing.T) (*Service, *memory.Store, *countingRecorder) {
	t.Helper()
	store := memory.NewStore()
	rec := &countingRecorder{}
	svc := NewService(store, store, domquota.BetaFlagPolicy{}, rec, zaptest.NewLogger(t))
	return svc, store, rec
}

func TestEndChainAndCountIdempotent(t *testing.T) {
	svc, _, rec := newTestService(t)

	first, err := svc.EndChainAndCount("rex_abc", domquota.TierGuest, domquota.BetaFlags{}, "ch_one")
	require.NoError(t, err)
	assert.True(t, first.Counted)
	assert.Equal(t, 1, first.CountToday)
	assert.Equal(t, domquota.Cap(4), first.Remaining)

	// A retried end request reports the same usage without counting
	second, err := svc.EndChainAndCount("rex_abc", domquota.TierGuest, domquota.BetaFlags{}, "ch_one")
	require.NoError(t, err)
	assert.False(t, second.Counted)
	assert.Equal(t, 1, second.CountToday)

	assert.Equal(t, 1, rec.counted)
}

func TestCanSearchNowDeniesAtCap(t *testing.T) {
	svc, _, _ := newTestService(t)

	for i := 1; i <= 5; i++ {
		res, err := svc.EndChainAndCount("rex_abc", domquota.TierGuest, domquota.BetaFlags{}, "ch_"+string(rune('a'+i)))
		require.NoError(t, err)
		assert.True(t, res.Counted)
	}

	gate := svc.CanSearchNow("rex_abc", domquota.TierGuest, domquota.BetaFlags{})
	assert.False(t, gate.Allowed)
	assert.Equal(t, 5, gate.Count)
	assert.Equal(t, domquota.Cap(5), gate.Limit)
	assert.Equal(t, domquota.TierGuest, gate.Tier)

	// The sixth end is refused at the store, count stays pinned
	res, err := svc.EndChainAndCount("rex_abc", domquota.TierGuest, domquota.BetaFlags{}, "ch_extra")
	require.NoError(t, err)
	assert.False(t, res.Counted)
	assert.Equal(t, 5, res.CountToday)
	assert.Equal(t, domquota.Cap(0), res.Remaining)
}

func TestPaidTierIsNeverWalled(t *testing.T) {
	svc, _, _ := newTestService(t)

	for i := 0; i < 40; i++ {
		res, err := svc.EndChainAndCount("rex_vip", domquota.TierPaid, domquota.BetaFlags{}, domquota.NewChainID())
		require.NoError(t, err)
		assert.True(t, res.Counted)
		assert.Equal(t, domquota.Unlimited, res.Cap)
	}

	gate := svc.CanSearchNow("rex_vip", domquota.TierPaid, domquota.BetaFlags{})
	assert.True(t, gate.Allowed)
}

func TestBetaFlagsRaiseTheWall(t *testing.T) {
	svc, _, _ := newTestService(t)
	flags := domquota.BetaFlags{Beta1: true}

	for i := 0; i < 10; i++ {
		res, err := svc.EndChainAndCount("rex_abc", domquota.TierGuest, flags, domquota.NewChainID())
		require.NoError(t, err)
		assert.True(t, res.Counted)
	}
	gate := svc.CanSearchNow("rex_abc", domquota.TierGuest, flags)
	assert.False(t, gate.Allowed)

	// The same visitor with beta2 on gets headroom again
	gate = svc.CanSearchNow("rex_abc", domquota.TierGuest, domquota.BetaFlags{Beta1: true, Beta2: true})
	assert.True(t, gate.Allowed)
	assert.Equal(t, domquota.Cap(15), gate.Limit)
}

func TestFailClosedOnStoreErrors(t *testing.T) {
	store := memory.NewStore()
	svc := NewService(brokenStore{}, store, domquota.BetaFlagPolicy{}, nil, zaptest.NewLogger(t))

	gate := svc.CanSearchNow("rex_abc", domquota.TierGuest, domquota.BetaFlags{})
	assert.False(t, gate.Allowed)

	gate = svc.GateAndMaybeIncrement("rex_abc", domquota.TierGuest, domquota.BetaFlags{})
	assert.False(t, gate.Allowed)

	begin := svc.BeginChain("rex_abc", domquota.TierGuest, domquota.BetaFlags{}, "movies", "heist films")
	assert.False(t, begin.Gate.Allowed)
	assert.Nil(t, begin.Chain)

	_, err := svc.EndChainAndCount("rex_abc", domquota.TierGuest, domquota.BetaFlags{}, "ch_one")
	assert.Error(t, err)

	_, err = svc.Usage("rex_abc", domquota.TierGuest, domquota.BetaFlags{})
	assert.Error(t, err)
}

func TestDayRollover(t *testing.T) {
	svc, _, _ := newTestService(t)

	current := time.Date(2025, 6, 1, 23, 0, 0, 0, time.UTC)
	svc.WithClock(func() time.Time { return current })

	for i := 0; i < 5; i++ {
		res, err := svc.EndChainAndCount("rex_abc", domquota.TierGuest, domquota.BetaFlags{}, domquota.NewChainID())
		require.NoError(t, err)
		assert.True(t, res.Counted)
	}
	assert.False(t, svc.CanSearchNow("rex_abc", domquota.TierGuest, domquota.BetaFlags{}).Allowed)

	// Midnight UTC opens a fresh bucket
	current = current.Add(2 * time.Hour)
	gate := svc.CanSearchNow("rex_abc", domquota.TierGuest, domquota.BetaFlags{})
	assert.True(t, gate.Allowed)
	assert.Equal(t, 0, gate.Count)

	usage, err := svc.Usage("rex_abc", domquota.TierGuest, domquota.BetaFlags{})
	require.NoError(t, err)
	assert.Equal(t, "2025-06-02", usage.Day)
	assert.Equal(t, 0, usage.CountToday)
}

func TestBeginChainConsumesQuotaAndSetsPointer(t *testing.T) {
	svc, _, _ := newTestService(t)

	res := svc.BeginChain("rex_abc", domquota.TierGuest, domquota.BetaFlags{}, "wine", "bold reds under $30")
	assert.True(t, res.Gate.Allowed)
	assert.Equal(t, 1, res.Gate.Count)
	require.NotNil(t, res.Chain)
	assert.Equal(t, "wine", res.Chain.Vertical)

	active := svc.ActiveChain("rex_abc")
	require.NotNil(t, active)
	assert.Equal(t, res.Chain.ID, active.ID)

	// A second begin supersedes the first pointer
	res2 := svc.BeginChain("rex_abc", domquota.TierGuest, domquota.BetaFlags{}, "movies", "heist films")
	require.NotNil(t, res2.Chain)
	assert.Equal(t, res2.Chain.ID, svc.ActiveChain("rex_abc").ID)
}

func TestBeginChainDeniedAtCap(t *testing.T) {
	svc, _, _ := newTestService(t)

	for i := 0; i < 5; i++ {
		res := svc.BeginChain("rex_abc", domquota.TierGuest, domquota.BetaFlags{}, "tv", "sitcoms")
		assert.True(t, res.Gate.Allowed)
	}

	res := svc.BeginChain("rex_abc", domquota.TierGuest, domquota.BetaFlags{}, "tv", "sitcoms")
	assert.False(t, res.Gate.Allowed)
	assert.Nil(t, res.Chain)
	assert.Equal(t, 5, res.Gate.Count)
}

func TestRefineClampsAndNeverCounts(t *testing.T) {
	svc, store, _ := newTestService(t)

	begin := svc.BeginChain("rex_abc", domquota.TierGuest, domquota.BetaFlags{}, "books", "locked-room mysteries")
	require.NotNil(t, begin.Chain)

	results := make([]RefineResult, 0, 5)
	for i := 0; i < 5; i++ {
		results = append(results, svc.RecordRefine("rex_abc"))
	}
	assert.False(t, results[0].ReachedLimit)
	assert.False(t, results[1].ReachedLimit)
	assert.True(t, results[2].ReachedLimit)
	assert.True(t, results[4].ReachedLimit)
	assert.Equal(t, domquota.RefinesPerChainLimit, results[4].Chain.Refines)

	// Refines are free: the daily count still reflects only the begin
	count, err := store.GetCount("rex_abc", domquota.DayKey(time.Now()))
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRefineWithoutChainIsNoop(t *testing.T) {
	svc, _, _ := newTestService(t)

	res := svc.RecordRefine("rex_ghost")
	assert.Nil(t, res.Chain)
	assert.False(t, res.ReachedLimit)
}

func TestEndChainAndCountClearsMatchingPointer(t *testing.T) {
	svc, _, _ := newTestService(t)

	begin := svc.BeginChain("rex_abc", domquota.TierGuest, domquota.BetaFlags{}, "movies", "heist films")
	require.NotNil(t, begin.Chain)

	_, err := svc.EndChainAndCount("rex_abc", domquota.TierGuest, domquota.BetaFlags{}, begin.Chain.ID)
	require.NoError(t, err)
	assert.Nil(t, svc.ActiveChain("rex_abc"))

	// Ending a stale chainID leaves the live pointer alone
	begin2 := svc.BeginChain("rex_abc", domquota.TierGuest, domquota.BetaFlags{}, "tv", "sitcoms")
	_, err = svc.EndChainAndCount("rex_abc", domquota.TierGuest, domquota.BetaFlags{}, "ch_stale")
	require.NoError(t, err)
	require.NotNil(t, svc.ActiveChain("rex_abc"))
	assert.Equal(t, begin2.Chain.ID, svc.ActiveChain("rex_abc").ID)
}

func TestResetToday(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.EndChainAndCount("rex_abc", domquota.TierGuest, domquota.BetaFlags{}, "ch_one")
	require.NoError(t, err)

	require.NoError(t, svc.ResetToday("rex_abc"))

	usage, err := svc.Usage("rex_abc", domquota.TierGuest, domquota.BetaFlags{})
	require.NoError(t, err)
	assert.Equal(t, 0, usage.CountToday)
}

func TestClientIsolation(t *testing.T) {
	svc, _, _ := newTestService(t)

	for i := 0; i < 5; i++ {
		_, err := svc.EndChainAndCount("rex_heavy", domquota.TierGuest, domquota.BetaFlags{}, domquota.NewChainID())
		require.NoError(t, err)
	}

	assert.False(t, svc.CanSearchNow("rex_heavy", domquota.TierGuest, domquota.BetaFlags{}).Allowed)
	assert.True(t, svc.CanSearchNow("rex_light", domquota.TierGuest, domquota.BetaFlags{}).Allowed)
}
