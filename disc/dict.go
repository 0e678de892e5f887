package disc

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// A Dict answers lexicon membership queries. It wraps the frozen trie with
// the fail-open policy: an unavailable dictionary must never prevent
// scoring, only skip validation, so Lookup on an unloaded Dict returns
// true. Use Loaded to tell the two situations apart in diagnostics.
type Dict struct {
	trie        *FrozenTrie
	lexiconName string
	warnOnce    sync.Once
}

// NewDict wraps a loaded trie.
func NewDict(trie *FrozenTrie, lexiconName string) *Dict {
	return &Dict{trie: trie, lexiconName: lexiconName}
}

// Unloaded returns a Dict in fail-open mode.
func Unloaded(lexiconName string) *Dict {
	return &Dict{lexiconName: lexiconName}
}

// LexiconName returns the name of the lexicon this dict was built from.
func (d *Dict) LexiconName() string {
	return d.lexiconName
}

// Loaded reports whether a trie is actually backing this Dict.
func (d *Dict) Loaded() bool {
	return d != nil && d.trie != nil
}

// Lookup normalizes the word and reports whether it is in the lexicon.
// If the trie is not loaded, it fails open and returns true.
func (d *Dict) Lookup(word string) bool {
	if !d.Loaded() {
		d.warnOnce.Do(func() {
			log.Warn().
				Str("lexicon", d.lexiconName).
				Msg("dictionary not loaded; lookups fail open and words are not validated")
		})
		return true
	}
	return d.trie.lookup(Normalize(word))
}
