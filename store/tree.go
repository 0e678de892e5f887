package store

import (
	"encoding/json"
	"strings"
)

// The document tree is plain decoded JSON: map[string]interface{} nodes
// with leaves of whatever the writers marshaled.

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// toTree round-trips a value through JSON so the tree only ever holds
// decoded JSON types, regardless of what struct the caller handed us.
func toTree(value interface{}) (interface{}, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, err
	}
	return decoded, nil
}

// setAtPath writes value at the path inside root, creating intermediate
// maps, and returns the new root.
func setAtPath(root map[string]interface{}, segments []string, value interface{}) {
	node := root
	for _, seg := range segments[:len(segments)-1] {
		child, ok := node[seg].(map[string]interface{})
		if !ok {
			child = map[string]interface{}{}
			node[seg] = child
		}
		node = child
	}
	node[segments[len(segments)-1]] = value
}

// getAtPath returns the subtree at the path, or nil and false.
func getAtPath(root map[string]interface{}, segments []string) (interface{}, bool) {
	var node interface{} = root
	for _, seg := range segments {
		m, ok := node.(map[string]interface{})
		if !ok {
			return nil, false
		}
		node, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return node, true
}

// pathsOverlap reports whether one path is an ancestor of the other (or
// they are equal): a write at one then affects the value seen at the
// other.
func pathsOverlap(a, b []string) bool {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
