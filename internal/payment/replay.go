package payment

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/kopi-pos/internal/common"
)

// Replay remembers notification payloads that were processed so gateway
// redeliveries can be acknowledged without touching the database. A payload is
// only remembered after it was applied, so a failed attempt is retried in full.
type Replay struct {
	R      *redis.Client
	TTL    time.Duration
	Prefix string
}

func (r *Replay) enabled() bool {
	return r != nil && r.R != nil && r.TTL > 0
}

func (r *Replay) key(body []byte) string {
	prefix := r.Prefix
	if prefix == "" {
		prefix = "wh:midtrans:"
	}
	return prefix + common.Sha256Hex(string(body))
}

// Seen reports whether the exact payload was already processed.
func (r *Replay) Seen(ctx context.Context, body []byte) (bool, error) {
	if !r.enabled() {
		return false, nil
	}
	n, err := r.R.Exists(ctx, r.key(body)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Remember marks the payload as processed.
func (r *Replay) Remember(ctx context.Context, body []byte) error {
	if !r.enabled() {
		return nil
	}
	return r.R.Set(ctx, r.key(body), "1", r.TTL).Err()
}
