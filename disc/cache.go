package disc

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/escrabble-cat/duplicat/cache"
	"github.com/escrabble-cat/duplicat/config"
)

const CacheKeyPrefix = "disc:"

// artifact is the on-disk shape of a compiled dictionary: the trie
// topology bits, the rank-index directory bits, and the node count, all
// produced ahead of time by the lexicon build.
type artifact struct {
	Version   string `json:"version"`
	NodeCount uint32 `json:"nodeCount"`
	Trie      string `json:"trie"`
	Directory string `json:"directory"`
}

// CacheLoadFunc is the function that loads a dictionary into the global
// cache.
func CacheLoadFunc(cfg *config.Config, key string) (interface{}, error) {
	lexiconName := strings.TrimPrefix(key, CacheKeyPrefix)
	return LoadDict(cfg, filepath.Join(cfg.LexiconPath, "disc", lexiconName+".json"))
}

// LoadDict reads a dictionary artifact file and builds the frozen trie.
func LoadDict(cfg *config.Config, filename string) (*Dict, error) {
	log.Debug().Msgf("Loading %v ...", filename)
	file, err := cache.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	lexfile := filepath.Base(filename)
	lexname, found := strings.CutSuffix(lexfile, ".json")
	if !found {
		return nil, fmt.Errorf("filename %v not in correct format", filename)
	}

	var art artifact
	if err := json.NewDecoder(file).Decode(&art); err != nil {
		return nil, err
	}
	if art.NodeCount == 0 || art.Trie == "" || art.Directory == "" {
		return nil, fmt.Errorf("artifact %v is incomplete", filename)
	}

	log.Info().
		Str("lexicon", lexname).
		Str("version", art.Version).
		Uint32("node-count", art.NodeCount).
		Msg("loaded-dictionary")

	return NewDict(NewFrozenTrie(art.Trie, art.Directory, art.NodeCount), lexname), nil
}

// Get loads the named dictionary through the global object cache.
func Get(cfg *config.Config, name string) (*Dict, error) {
	obj, err := cache.Load(cfg, CacheKeyPrefix+name, CacheLoadFunc)
	if err != nil {
		return nil, err
	}
	ret, ok := obj.(*Dict)
	if !ok {
		return nil, fmt.Errorf("could not read dict from file")
	}
	return ret, nil
}

// GetOrFailOpen loads the named dictionary, or returns an unloaded
// fail-open Dict if the artifacts are unavailable. Gameplay continues
// either way; that is a deliberate policy, not an error path.
func GetOrFailOpen(cfg *config.Config, name string) *Dict {
	d, err := Get(cfg, name)
	if err != nil {
		log.Warn().Err(err).Str("lexicon", name).
			Msg("dictionary artifacts unavailable; continuing without validation")
		return Unloaded(name)
	}
	return d
}
