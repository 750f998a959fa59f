package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type throttleStateRecord struct {
	bun.BaseModel `bun:"table:gateway_throttle_state,alias:gts"`

	ID                string         `bun:"id,pk"`
	Upstream          string         `bun:"upstream,notnull"`
	BucketKey         string         `bun:"bucket_key,notnull"`
	RateLimit         int            `bun:"rate_limit,notnull"`
	Remaining         int            `bun:"remaining,notnull"`
	ResetAt           *time.Time     `bun:"reset_at,nullzero"`
	RetryAfterSeconds *int           `bun:"retry_after_seconds"`
	ThrottledUntil    *time.Time     `bun:"throttled_until,nullzero"`
	LastStatus        int            `bun:"last_status,notnull"`
	Attempts          int            `bun:"attempts,notnull"`
	Metadata          map[string]any `bun:"metadata,type:jsonb"`
	CreatedAt         time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt         time.Time      `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
