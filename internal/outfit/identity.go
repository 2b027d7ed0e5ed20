package outfit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// CombinationID derives the content-addressed identifier for a set of
// selected product ids. The same members always hash to the same id
// regardless of selection order.
//
// Duplicates are intentionally kept: a combination holding the same product
// twice keys differently from one holding it once, and existing cache keys
// depend on that.
func CombinationID(itemIDs []string) string {
	sorted := make([]string, len(itemIDs))
	copy(sorted, itemIDs)
	sort.Strings(sorted)

	digest := sha256.Sum256([]byte(strings.Join(sorted, "|")))
	h := hex.EncodeToString(digest[:])

	// First 32 hex chars grouped 8-4-4-4-12 so downstream systems that expect
	// UUID-shaped ids accept it. This is a hash, not a random UUID.
	return fmt.Sprintf("%s-%s-%s-%s-%s", h[0:8], h[8:12], h[12:16], h[16:20], h[20:32])
}
