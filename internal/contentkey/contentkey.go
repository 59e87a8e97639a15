// Package contentkey derives the cache key that identifies a set of
// requested files independently of request order.
//
// Two requests naming the same file set in any order (or with duplicates)
// produce the same key, which is what lets the download cache serve the
// second request from the first request's output.
package contentkey

import (
	"encoding/hex"
	"sort"
	"strings"

	"github.com/zeebo/blake3"
)

// KeyLength is the length of the hex-encoded key.
const KeyLength = 16

// Key computes the content key for a file-ID set: the truncated BLAKE3 hash
// of the sorted, de-duplicated IDs joined by commas. Returns the empty string
// for an empty set.
func Key(fileIDs []string) string {
	ids := sortedUnique(fileIDs)
	if len(ids) == 0 {
		return ""
	}
	sum := blake3.Sum256([]byte(strings.Join(ids, ",")))
	return hex.EncodeToString(sum[:])[:KeyLength]
}

func sortedUnique(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
