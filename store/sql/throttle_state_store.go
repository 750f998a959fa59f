package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-upstream-gateway/core"
	"github.com/goliatone/go-upstream-gateway/ratelimit"
)

// ThrottleStateStore persists upstream throttle windows so they survive a
// restart and are shared by every replica pointed at the same database.
type ThrottleStateStore struct {
	db   *bun.DB
	repo repository.Repository[*throttleStateRecord]
}

func NewThrottleStateStore(db *bun.DB) (*ThrottleStateStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*throttleStateRecord](db, throttleStateHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid throttle state repository wiring: %w", err)
		}
	}
	return &ThrottleStateStore{db: db, repo: repo}, nil
}

func (s *ThrottleStateStore) Get(ctx context.Context, key core.RateLimitKey) (ratelimit.State, error) {
	if s == nil || s.repo == nil {
		return ratelimit.State{}, fmt.Errorf("sqlstore: throttle state store is not configured")
	}
	key = normalizeKey(key)
	if err := validateKey(key); err != nil {
		return ratelimit.State{}, err
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("upstream", "=", key.Upstream),
		repository.SelectBy("bucket_key", "=", key.BucketKey),
		repository.OrderBy("updated_at DESC"),
	)
	if err != nil {
		return ratelimit.State{}, err
	}
	if len(records) == 0 {
		return ratelimit.State{}, ratelimit.ErrStateNotFound
	}
	return records[0].toState(), nil
}

func (s *ThrottleStateStore) Upsert(ctx context.Context, state ratelimit.State) error {
	if s == nil || s.db == nil || s.repo == nil {
		return fmt.Errorf("sqlstore: throttle state store is not configured")
	}
	state.Key = normalizeKey(state.Key)
	if err := validateKey(state.Key); err != nil {
		return err
	}
	if state.UpdatedAt.IsZero() {
		state.UpdatedAt = time.Now().UTC()
	}

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := findRecordTx(ctx, tx, state.Key)
		if err != nil {
			return err
		}
		if record == nil {
			record = &throttleStateRecord{
				ID:        uuid.NewString(),
				CreatedAt: state.UpdatedAt.UTC(),
			}
			record.apply(state)
			_, err := s.repo.CreateTx(ctx, tx, record)
			return err
		}
		record.apply(state)
		_, err = tx.NewUpdate().
			Model(record).
			WherePK().
			Exec(ctx)
		return err
	})
}

func findRecordTx(ctx context.Context, tx bun.Tx, key core.RateLimitKey) (*throttleStateRecord, error) {
	record := &throttleStateRecord{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.upstream = ?", key.Upstream).
		Where("?TableAlias.bucket_key = ?", key.BucketKey).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}

func (r *throttleStateRecord) apply(state ratelimit.State) {
	r.Upstream = state.Key.Upstream
	r.BucketKey = state.Key.BucketKey
	r.RateLimit = state.Limit
	r.Remaining = state.Remaining
	r.ResetAt = utcPointer(state.ResetAt)
	r.ThrottledUntil = utcPointer(state.ThrottledUntil)
	r.RetryAfterSeconds = secondsPointer(state.RetryAfter)
	r.LastStatus = state.LastStatus
	r.Attempts = state.Attempts
	r.Metadata = copyMetadata(state.Metadata)
	if r.Metadata == nil {
		r.Metadata = map[string]any{}
	}
	r.UpdatedAt = state.UpdatedAt.UTC()
}

func (r *throttleStateRecord) toState() ratelimit.State {
	if r == nil {
		return ratelimit.State{}
	}
	state := ratelimit.State{
		Key:            core.RateLimitKey{Upstream: r.Upstream, BucketKey: r.BucketKey},
		Limit:          r.RateLimit,
		Remaining:      r.Remaining,
		ResetAt:        utcPointer(r.ResetAt),
		ThrottledUntil: utcPointer(r.ThrottledUntil),
		LastStatus:     r.LastStatus,
		Attempts:       r.Attempts,
		UpdatedAt:      r.UpdatedAt.UTC(),
		Metadata:       copyMetadata(r.Metadata),
	}
	if r.RetryAfterSeconds != nil && *r.RetryAfterSeconds > 0 {
		value := time.Duration(*r.RetryAfterSeconds) * time.Second
		state.RetryAfter = &value
	}
	return state
}

func normalizeKey(key core.RateLimitKey) core.RateLimitKey {
	return core.RateLimitKey{
		Upstream:  strings.TrimSpace(strings.ToLower(key.Upstream)),
		BucketKey: strings.TrimSpace(strings.ToLower(key.BucketKey)),
	}
}

func validateKey(key core.RateLimitKey) error {
	if key.Upstream == "" {
		return fmt.Errorf("sqlstore: throttle state upstream is required")
	}
	if key.BucketKey == "" {
		return fmt.Errorf("sqlstore: throttle state bucket key is required")
	}
	return nil
}

func utcPointer(input *time.Time) *time.Time {
	if input == nil || input.IsZero() {
		return nil
	}
	value := input.UTC()
	return &value
}

// secondsPointer rounds sub-second delays up so a pending retry window is never
// stored as zero.
func secondsPointer(input *time.Duration) *int {
	if input == nil || *input <= 0 {
		return nil
	}
	seconds := int(input.Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	return &seconds
}

func copyMetadata(input map[string]any) map[string]any {
	if len(input) == 0 {
		return nil
	}
	out := make(map[string]any, len(input))
	for key, value := range input {
		out[key] = value
	}
	return out
}

var _ ratelimit.StateStore = (*ThrottleStateStore)(nil)
