// Package quota implements the soft-wall decision surface and the chain
// lifecycle on top of the quota store and cap policy.
//
// Counting semantics: the canonical flow counts a chain when it ends
// (EndChainAndCount), de-duplicated by chainID so retried requests never
// double count and abandoned chains cost nothing. The older
// count-at-chain-start flow (BeginChain) and the per-query gate
// (GateAndMaybeIncrement) are kept as separate named operations because
// existing UI branches depend on which one fired; they are never merged.
package quota

import (
	"time"

	"github.com/rekomendr/rekomendr/internal/domain/quota"
	"github.com/rekomendr/rekomendr/internal/ports/outbound"
	"go.uber.org/zap"
)

// Recorder receives quota decision events for metrics. Implementations must
// tolerate being called from concurrent requests.
type Recorder interface {
	QuotaDecision(allowed bool)
	ChainCounted()
}

// Gate is the soft-wall verdict. A denial is a normal value, not an error:
// it carries the numbers the UI needs to explain the wall.
type Gate struct {
	Allowed bool       `json:"allowed"`
	Count   int        `json:"count"`
	Limit   quota.Cap  `json:"limit"`
	Tier    quota.Tier `json:"tier"`
}

// Usage is the shape returned to the quota query endpoint.
type Usage struct {
	ClientID   string    `json:"clientId"`
	Day        string    `json:"day"`
	CountToday int       `json:"countToday"`
	Cap        quota.Cap `json:"cap"`
	Remaining  quota.Cap `json:"remaining"`
}

// EndResult is Usage plus whether the call actually incremented.
type EndResult struct {
	Usage
	Counted bool `json:"counted"`
}

// BeginResult is the gate verdict plus the new chain when allowed.
type BeginResult struct {
	Gate  Gate              `json:"gate"`
	Chain *quota.ChainState `json:"chain"`
}

// RefineResult reports the updated chain and whether the refine limit has
// been reached.
type RefineResult struct {
	Chain        *quota.ChainState `json:"chain"`
	ReachedLimit bool              `json:"reachedLimit"`
}

// Service composes the identity-keyed quota store with a cap policy.
type Service struct {
	store   outbound.QuotaStore
	chains  outbound.ChainStore
	policy  quota.CapPolicy
	metrics Recorder
	logger  *zap.Logger
	now     func() time.Time
}

// NewService creates the quota service. metrics may be nil.
func NewService(
	store outbound.QuotaStore,
	chains outbound.ChainStore,
	policy quota.CapPolicy,
	metrics Recorder,
	logger *zap.Logger,
) *Service {
	return &Service{
		store:   store,
		chains:  chains,
		policy:  policy,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// WithClock overrides the time source. Test utility.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) day() string { return quota.DayKey(s.now()) }

func (s *Service) recordDecision(allowed bool) {
	if s.metrics != nil {
		s.metrics.QuotaDecision(allowed)
	}
}

// CanSearchNow answers "may this visitor search now" without mutating
// anything. A store failure fails closed: this is an abuse gate, and
// failing open would mean unlimited free usage.
func (s *Service) CanSearchNow(clientID string, tier quota.Tier, flags quota.BetaFlags) Gate {
	cap := s.policy.CapFor(tier, flags)
	count, err := s.store.GetCount(clientID, s.day())
	if err != nil {
		s.logger.Error("quota store read failed, denying", zap.String("client_id", clientID), zap.Error(err))
		return Gate{Allowed: false, Count: 0, Limit: cap, Tier: tier}
	}
	gate := Gate{Allowed: cap.Allows(count), Count: count, Limit: cap, Tier: tier}
	s.recordDecision(gate.Allowed)
	return gate
}

// GateAndMaybeIncrement counts one query up-front when allowed. This is the
// per-query granularity, distinct from chain counting.
func (s *Service) GateAndMaybeIncrement(clientID string, tier quota.Tier, flags quota.BetaFlags) Gate {
	cap := s.policy.CapFor(tier, flags)
	allowed, count, err := s.store.AllowAndIncrement(clientID, s.day(), cap)
	if err != nil {
		s.logger.Error("quota store increment failed, denying", zap.String("client_id", clientID), zap.Error(err))
		return Gate{Allowed: false, Count: 0, Limit: cap, Tier: tier}
	}
	s.recordDecision(allowed)
	return Gate{Allowed: allowed, Count: count, Limit: cap, Tier: tier}
}

// Usage reads the current usage numbers for the UI nudges.
func (s *Service) Usage(clientID string, tier quota.Tier, flags quota.BetaFlags) (Usage, error) {
	day := s.day()
	cap := s.policy.CapFor(tier, flags)
	count, err := s.store.GetCount(clientID, day)
	if err != nil {
		return Usage{}, err
	}
	return Usage{
		ClientID:   clientID,
		Day:        day,
		CountToday: count,
		Cap:        cap,
		Remaining:  cap.Remaining(count),
	}, nil
}

// BeginChain starts a chain, consuming one quota unit at creation. On
// denial the visitor stays chainless and the gate carries count/limit/tier
// for messaging. A new chain supersedes any previous one.
func (s *Service) BeginChain(clientID string, tier quota.Tier, flags quota.BetaFlags, vertical, baseQuery string) BeginResult {
	cap := s.policy.CapFor(tier, flags)
	allowed, count, err := s.store.AllowAndIncrement(clientID, s.day(), cap)
	if err != nil {
		s.logger.Error("quota store unavailable, denying chain start", zap.String("client_id", clientID), zap.Error(err))
		return BeginResult{Gate: Gate{Allowed: false, Limit: cap, Tier: tier}}
	}
	gate := Gate{Allowed: allowed, Count: count, Limit: cap, Tier: tier}
	s.recordDecision(allowed)
	if !allowed {
		return BeginResult{Gate: gate}
	}

	chain := quota.NewChain(vertical, baseQuery, s.now())
	if err := s.chains.PutChain(clientID, chain); err != nil {
		s.logger.Error("failed to persist chain pointer", zap.String("client_id", clientID), zap.Error(err))
	}
	return BeginResult{Gate: gate, Chain: chain}
}

// RecordRefine increments the refine counter of the active chain, clamped
// at the per-chain limit. Refinements never touch the daily count. With no
// active chain this is a no-op.
func (s *Service) RecordRefine(clientID string) RefineResult {
	chain, err := s.chains.GetChain(clientID)
	if err != nil || chain == nil {
		return RefineResult{}
	}
	reached := chain.Refine()
	if err := s.chains.PutChain(clientID, chain); err != nil {
		s.logger.Error("failed to persist chain pointer", zap.String("client_id", clientID), zap.Error(err))
	}
	return RefineResult{Chain: chain, ReachedLimit: reached}
}

// ActiveChain returns the current chain pointer, nil when none.
func (s *Service) ActiveChain(clientID string) *quota.ChainState {
	chain, err := s.chains.GetChain(clientID)
	if err != nil {
		return nil
	}
	return chain
}

// EndChain clears the chain pointer. Ending an already-ended or unknown
// chain is a no-op, not an error.
func (s *Service) EndChain(clientID string) {
	if err := s.chains.DeleteChain(clientID); err != nil {
		s.logger.Warn("failed to clear chain pointer", zap.String("client_id", clientID), zap.Error(err))
	}
}

// EndChainAndCount counts one search for the chain, at most once per
// chainID per day even under retried requests. The store failure path fails
// closed: nothing is counted and the caller sees a zeroed denial.
func (s *Service) EndChainAndCount(clientID string, tier quota.Tier, flags quota.BetaFlags, chainID string) (EndResult, error) {
	day := s.day()
	cap := s.policy.CapFor(tier, flags)

	counted, count, err := s.store.EndChain(clientID, day, chainID, cap)
	if err != nil {
		s.logger.Error("quota store unavailable, not counting chain",
			zap.String("client_id", clientID),
			zap.String("chain_id", chainID),
			zap.Error(err),
		)
		return EndResult{}, err
	}
	if counted && s.metrics != nil {
		s.metrics.ChainCounted()
	}

	// Ending implicitly clears a matching active chain pointer.
	if active, _ := s.chains.GetChain(clientID); active != nil && active.ID == chainID {
		_ = s.chains.DeleteChain(clientID)
	}

	return EndResult{
		Usage: Usage{
			ClientID:   clientID,
			Day:        day,
			CountToday: count,
			Cap:        cap,
			Remaining:  cap.Remaining(count),
		},
		Counted: counted,
	}, nil
}

// ResetToday zeroes the caller's bucket for the current day. Dev/test
// utility mirrored from the original product.
func (s *Service) ResetToday(clientID string) error {
	return s.store.ResetDay(clientID, s.day())
}
