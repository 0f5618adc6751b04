package recommend

import (
	"math/rand"
	"regexp"
	"strings"
)

// Canned nudges per vertical. Rule-based for now; the API surface stays the
// same if a model-backed picker replaces this.
var nudgeFallbacks = map[string][]string{
	"movies": {
		"Okay, enough rom-coms… how about an adventure?",
		"Too many explosions? Let's try something quieter.",
		"You've seen enough Oscar bait — want a guilty pleasure pick?",
	},
	"tv": {
		"Enough crime drama — let's laugh instead.",
		"Binge alert! Maybe something lighter this time?",
		"Reality check: how about some unscripted fun?",
	},
	"wine": {
		"Cabernet overload? Let's swirl into something new.",
		"You've been in France all night… how about Italy?",
		"Dry spell? Maybe something a little sweeter.",
	},
	"books": {
		"Plot twist: switch genres?",
		"Enough heavy reading — let's grab something breezy.",
		"Trade mystery for inspiration?",
	},
}

var (
	romComPattern = regexp.MustCompile(`rom.?com|romantic`)
	crimePattern  = regexp.MustCompile(`crime|detective|cop`)
	cabPattern    = regexp.MustCompile(`cabernet|\bcab\b`)
)

// Nudge picks a redirection line for the vertical, lightly steered by the
// visitor's recent queries.
func Nudge(vertical string, history []string) string {
	pool, ok := nudgeFallbacks[vertical]
	if !ok {
		vertical = "movies"
		pool = nudgeFallbacks["movies"]
	}

	lowerHist := strings.ToLower(strings.Join(history, " "))
	switch {
	case vertical == "movies" && romComPattern.MatchString(lowerHist):
		pool = []string{"Okay, enough rom-coms… how about an adventure?"}
	case vertical == "tv" && crimePattern.MatchString(lowerHist):
		pool = []string{"Enough crime drama — let's laugh instead."}
	case vertical == "wine" && cabPattern.MatchString(lowerHist):
		pool = []string{"Cabernet overload? Let's swirl into something new."}
	}

	return pool[rand.Intn(len(pool))]
}
