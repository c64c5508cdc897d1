package object

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"docsum-backend/internal/shared/util"
)

// ErrNotFound is returned when a key has no stored object.
var ErrNotFound = errors.New("object not found")

// DefaultPresignTTL is used when callers pass a non-positive TTL.
const DefaultPresignTTL = time.Hour

// ObjectStore defines the contract for durable byte-blob storage keyed by an opaque path.
type ObjectStore interface {
	// Put stores data under key and returns the key it was stored under.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// NewKey builds a collision-resistant storage key from the original file name:
// <unix millis>-<random hex>_<sanitized name>.
func NewKey(fileName string, now time.Time) string {
	return fmt.Sprintf("%d-%s_%s", now.UnixMilli(), randomID(), util.SanitizeFileName(fileName))
}

func randomID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("%x", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}
