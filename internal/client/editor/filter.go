package editor

import (
	"strings"

	"github.com/mkorchagin/quicknotes/internal/wire"
)

// Filter projects the dashboard view: the subsequence of notes whose
// title or content contains term, case-insensitively, in the order they
// were given. The empty term is the identity projection. The input is
// never mutated.
func Filter(notes []wire.Note, term string) []wire.Note {
	if term == "" {
		return notes
	}

	needle := strings.ToLower(term)
	out := make([]wire.Note, 0, len(notes))
	for _, n := range notes {
		if strings.Contains(strings.ToLower(n.Title), needle) ||
			strings.Contains(strings.ToLower(n.Content), needle) {
			out = append(out, n)
		}
	}
	return out
}
