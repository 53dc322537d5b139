package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"
	"github.com/shandysiswandi/otpgate/internal/otpauth/entity"
)

// reapBatch caps how many ids one reaper round reads from an index.
const reapBatch = 500

func (c *Cache) DeleteChallengesCreatedBefore(ctx context.Context, cutoff time.Time) (n int64, err error) {
	ctx, span := c.startSpan(ctx, "DeleteChallengesCreatedBefore")
	defer func() { c.endSpan(span, err) }()

	for {
		ids, err := c.client.ZRangeByScore(ctx, keyChallengeCreated, &redis.ZRangeBy{
			Min:   "-inf",
			Max:   "(" + scoreArg(cutoff),
			Count: reapBatch,
		}).Result()
		if err != nil {
			return n, c.mapError(err)
		}
		if len(ids) == 0 {
			return n, nil
		}

		deleted, err := c.removeChallenges(ctx, ids)
		n += deleted
		if err != nil {
			return n, c.mapError(err)
		}
		if len(ids) < reapBatch {
			return n, nil
		}
	}
}

func (c *Cache) removeChallenges(ctx context.Context, ids []string) (int64, error) {
	owners := make([]*redis.SliceCmd, len(ids))
	if _, err := c.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			owners[i] = pipe.HMGet(ctx, keyChallenge+id, "email", "purpose")
		}
		return nil
	}); err != nil {
		return 0, err
	}

	dels := make([]*redis.IntCmd, len(ids))
	if _, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			dels[i] = pipe.Del(ctx, keyChallenge+id)
			pipe.ZRem(ctx, keyChallengeCreated, id)

			vals := owners[i].Val()
			email, _ := vals[0].(string)
			raw, _ := vals[1].(string)
			if p, err := strconv.ParseInt(raw, 10, 16); err == nil && email != "" {
				pipe.ZRem(ctx, challengeIndexKey(entity.Purpose(p), email), id)
			}
		}
		return nil
	}); err != nil {
		return 0, err
	}

	return lo.SumBy(dels, func(d *redis.IntCmd) int64 { return d.Val() }), nil
}

func (c *Cache) DeleteSessionsExpiredAt(ctx context.Context, now time.Time) (n int64, err error) {
	ctx, span := c.startSpan(ctx, "DeleteSessionsExpiredAt")
	defer func() { c.endSpan(span, err) }()

	for {
		hashes, err := c.client.ZRangeByScore(ctx, keySessionExpiry, &redis.ZRangeBy{
			Min:   "-inf",
			Max:   scoreArg(now),
			Count: reapBatch,
		}).Result()
		if err != nil {
			return n, c.mapError(err)
		}
		if len(hashes) == 0 {
			return n, nil
		}

		deleted, err := c.removeSessions(ctx, hashes)
		n += deleted
		if err != nil {
			return n, c.mapError(err)
		}
		if len(hashes) < reapBatch {
			return n, nil
		}
	}
}
