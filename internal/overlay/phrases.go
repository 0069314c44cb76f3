package overlay

import "time"

// PhraseInterval is how often the loading phrase rotates.
const PhraseInterval = 2 * time.Second

var loadingPhrases = []string{
	"Thinking...",
	"Reading your selection...",
	"Consulting agents...",
	"Checking your calendar...",
	"Searching your knowledge base...",
	"Almost there...",
}

// PhraseAt returns the loading phrase shown after tick rotations.
func PhraseAt(tick int) string {
	n := len(loadingPhrases)
	return loadingPhrases[((tick%n)+n)%n]
}
