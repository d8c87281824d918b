package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const idSuffixLen = 9

// NewID returns "<unix millis>-<9 random chars>", retrying until the id is
// not present in taken.
func NewID(now time.Time, taken map[string]struct{}) string {
	for {
		suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:idSuffixLen]
		id := fmt.Sprintf("%d-%s", now.UnixMilli(), suffix)
		if _, exists := taken[id]; !exists {
			return id
		}
	}
}
