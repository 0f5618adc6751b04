package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNudgeReturnsLineFromVerticalPool(t *testing.T) {
	for _, vertical := range []string{"movies", "tv", "wine", "books"} {
		line := Nudge(vertical, nil)
		assert.Contains(t, nudgeFallbacks[vertical], line)
	}
}

func TestNudgeUnknownVerticalFallsBackToMovies(t *testing.T) {
	line := Nudge("podcasts", nil)
	assert.Contains(t, nudgeFallbacks["movies"], line)
}

func TestNudgeHistoryRules(t *testing.T) {
	tests := []struct {
		name     string
		vertical string
		history  []string
		want     string
	}{
		{
			"rom-com fatigue",
			"movies",
			[]string{"best rom-coms of the 90s", "romantic picks"},
			"Okay, enough rom-coms… how about an adventure?",
		},
		{
			"crime drama fatigue",
			"tv",
			[]string{"gritty detective shows"},
			"Enough crime drama — let's laugh instead.",
		},
		{
			"cabernet fatigue",
			"wine",
			[]string{"bold Cabernet under $40"},
			"Cabernet overload? Let's swirl into something new.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Rules pin the pool to one line, so this is deterministic
			for i := 0; i < 5; i++ {
				assert.Equal(t, tt.want, Nudge(tt.vertical, tt.history))
			}
		})
	}
}

func TestNudgeRulesAreVerticalScoped(t *testing.T) {
	// Crime history on the wine vertical leaves the wine pool untouched
	line := Nudge("wine", []string{"crime drama"})
	assert.Contains(t, nudgeFallbacks["wine"], line)
}
