package cache

import (
	"context"
	"errors"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/otpgate/internal/otpauth/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

func (c *Cache) CreateChallenge(ctx context.Context, ch entity.Challenge) (err error) {
	ctx, span := c.startSpan(ctx, "CreateChallenge")
	defer func() { c.endSpan(span, err) }()

	key := challengeKey(ch.ID)
	idxKey := challengeIndexKey(ch.Purpose, ch.Email)
	member := strconv.FormatInt(ch.ID, 10)

	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, newChallengeRecord(ch).values()...)
		pipe.Expire(ctx, key, c.retention)

		// the index is scored by expiry so a read only sees unexpired ids
		pipe.ZRemRangeByScore(ctx, idxKey, "-inf", scoreArg(ch.CreatedAt))
		pipe.ZAdd(ctx, idxKey, redis.Z{Score: score(ch.ExpiresAt), Member: member})
		pipe.Expire(ctx, idxKey, c.retention)

		pipe.ZAdd(ctx, keyChallengeCreated, redis.Z{Score: score(ch.CreatedAt), Member: member})
		return nil
	})

	return c.mapError(err)
}

func (c *Cache) VerifyChallenge(ctx context.Context, in entity.VerifyAttempt) (res *entity.VerifyResult, err error) {
	ctx, span := c.startSpan(ctx, "VerifyChallenge")
	defer func() { c.endSpan(span, err) }()

	idxKey := challengeIndexKey(in.Purpose, in.Email)

	err = c.withTx(ctx, func(ctx context.Context) error {
		var txErr error
		res, txErr = c.verifyOnce(ctx, idxKey, in)
		return txErr
	})
	if err != nil {
		return nil, c.mapError(err)
	}

	return res, nil
}

func (c *Cache) verifyOnce(ctx context.Context, idxKey string, in entity.VerifyAttempt) (*entity.VerifyResult, error) {
	res := &entity.VerifyResult{}

	err := c.client.Watch(ctx, func(tx *redis.Tx) error {
		ids, err := tx.ZRangeByScore(ctx, idxKey, &redis.ZRangeBy{
			Min: "(" + scoreArg(in.Now),
			Max: "+inf",
		}).Result()
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}

		keys := make([]string, 0, len(ids))
		for _, id := range ids {
			keys = append(keys, keyChallenge+id)
		}
		if err := tx.Watch(ctx, keys...).Err(); err != nil {
			return err
		}

		candidates := make([]entity.Challenge, 0, len(keys))
		for _, key := range keys {
			var rec challengeRecord
			err := readHash(ctx, tx, key, &rec)
			if errors.Is(err, goerror.ErrNotFound) {
				// reaped while indexed
				continue
			}
			if err != nil {
				return err
			}
			candidates = append(candidates, rec.entity())
		}

		res.Decision = entity.DecideVerify(candidates, in.Now, in.Match)

		switch res.Decision.Status {
		case entity.VerifyNoActive:
			return nil

		case entity.VerifyMatched:
			sess := in.Session
			sess.Email = in.Email
			sess.Purpose = in.Purpose

			_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.HSet(ctx, challengeKey(res.Decision.MatchedID), "verified", true)
				c.putSession(ctx, pipe, sess)
				return nil
			})
			if err != nil {
				return err
			}

			res.Session = &sess
			return nil

		default:
			_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				for _, ch := range res.Decision.Bumped {
					pipe.HSet(ctx, challengeKey(ch.ID), "attempts", ch.Attempts)
				}
				return nil
			})
			return err
		}
	}, idxKey)
	if err != nil {
		return nil, err
	}

	return res, nil
}
