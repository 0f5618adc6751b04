package quota

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// RefinesPerChainLimit bounds how many free "more like this" refinements a
// single chain may record.
const RefinesPerChainLimit = 3

// ChainState is one in-progress multi-step search. A chain counts once
// against the daily quota no matter how many refinements happen inside it.
type ChainState struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"startedAt"`
	Vertical  string    `json:"vertical,omitempty"`
	BaseQuery string    `json:"baseQuery,omitempty"`
	Refines   int       `json:"refines"`
}

// NewChain creates a fresh chain for the given vertical and prompt.
func NewChain(vertical, baseQuery string, now time.Time) *ChainState {
	return &ChainState{
		ID:        NewChainID(),
		StartedAt: now,
		Vertical:  vertical,
		BaseQuery: baseQuery,
	}
}

// NewChainID generates an opaque chain token. Not cryptographically strong;
// it only needs to be unique enough to de-duplicate counting.
func NewChainID() string {
	return "ch_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:16]
}

// Refine records one refinement, clamped at RefinesPerChainLimit, and
// reports whether the limit has been reached. Refinements never touch the
// daily count.
func (c *ChainState) Refine() (reachedLimit bool) {
	if c.Refines < RefinesPerChainLimit {
		c.Refines++
	}
	return c.Refines >= RefinesPerChainLimit
}
