package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"trustboard/internal/verification/models"
)

// Fingerprint is the canonical cache key for a query: a hash of its text and
// scope. Whitespace in the text is collapsed; requester, urgency and metadata
// do not affect it.
func Fingerprint(q models.VerificationQuery) string {
	// encoding/json sorts map keys, so the encoding is order-independent.
	canonical, _ := json.Marshal(map[string]any{
		"query":           strings.Join(strings.Fields(q.Query), " "),
		"board_id":        strings.TrimSpace(q.BoardID),
		"organization_id": strings.TrimSpace(q.OrganizationID),
		"anonymous":       q.Anonymous,
	})
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}
