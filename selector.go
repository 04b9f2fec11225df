package docstore

import (
	"strconv"
	"strings"
)

// A selector is a dot-separated path into a document: each segment resolves
// against an object by key or against an array by numeric index. Resolution
// never fails: a missing key, a type mismatch or an out-of-range index all
// yield "absent", which is distinct from a stored JSON null.

// Lookup navigates doc along the selector. The second return value reports
// whether the path resolved; a resolved path may still carry a nil value
// (JSON null).
func Lookup(doc Document, selector string) (interface{}, bool) {
	var current interface{} = doc
	for _, segment := range strings.Split(selector, ".") {
		switch node := current.(type) {
		case map[string]interface{}:
			next, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = next
		case []interface{}:
			i, err := strconv.Atoi(segment)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			current = node[i]
		default:
			return nil, false
		}
	}
	return current, true
}
