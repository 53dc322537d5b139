package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"
	"github.com/shandysiswandi/otpgate/internal/otpauth/entity"
)

// putSession keeps the hash past ExpiresAt so reads report an expired
// session rather than a missing one until the reaper removes it.
func (c *Cache) putSession(ctx context.Context, pipe redis.Pipeliner, s entity.Session) {
	key := sessionKey(s.TokenHash)

	pipe.HSet(ctx, key, newSessionRecord(s).values()...)
	pipe.PExpireAt(ctx, key, s.ExpiresAt.Add(c.retention))
	pipe.HSet(ctx, keySessionOwner, s.TokenHash, sessionOwner(s.Email, s.UserID))
	pipe.SAdd(ctx, sessionEmailKey(s.Email), s.TokenHash)
	if s.HasUser() {
		pipe.SAdd(ctx, sessionUserKey(s.UserID), s.TokenHash)
	}
	pipe.ZAdd(ctx, keySessionExpiry, redis.Z{Score: score(s.ExpiresAt), Member: s.TokenHash})
}

func (c *Cache) GetSession(ctx context.Context, tokenHash string) (sess *entity.Session, err error) {
	ctx, span := c.startSpan(ctx, "GetSession")
	defer func() { c.endSpan(span, err) }()

	var rec sessionRecord
	if err = readHash(ctx, c.client, sessionKey(tokenHash), &rec); err != nil {
		return nil, c.mapError(err)
	}

	out := rec.entity()
	return &out, nil
}

func (c *Cache) BindSessionUser(ctx context.Context, tokenHash string, userID int64, now time.Time) (err error) {
	ctx, span := c.startSpan(ctx, "BindSessionUser")
	defer func() { c.endSpan(span, err) }()

	key := sessionKey(tokenHash)

	err = c.withTx(ctx, func(ctx context.Context) error {
		return c.client.Watch(ctx, func(tx *redis.Tx) error {
			var rec sessionRecord
			if err := readHash(ctx, tx, key, &rec); err != nil {
				return err
			}

			sess := rec.entity()
			if err := sess.CheckBind(userID, now); err != nil {
				return err
			}
			if sess.HasUser() {
				return nil
			}

			_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.HSet(ctx, key, "user_id", userID)
				pipe.HSet(ctx, keySessionOwner, tokenHash, sessionOwner(sess.Email, userID))
				pipe.SAdd(ctx, sessionUserKey(userID), tokenHash)
				return nil
			})
			return err
		}, key)
	})

	return c.mapError(err)
}

func (c *Cache) DeleteSession(ctx context.Context, tokenHash string) (err error) {
	ctx, span := c.startSpan(ctx, "DeleteSession")
	defer func() { c.endSpan(span, err) }()

	_, err = c.removeSessions(ctx, []string{tokenHash})
	return c.mapError(err)
}

func (c *Cache) DeleteSessionsByEmail(ctx context.Context, email string) (n int64, err error) {
	ctx, span := c.startSpan(ctx, "DeleteSessionsByEmail")
	defer func() { c.endSpan(span, err) }()

	setKey := sessionEmailKey(email)

	hashes, err := c.client.SMembers(ctx, setKey).Result()
	if err != nil {
		return 0, c.mapError(err)
	}

	n, err = c.removeSessions(ctx, hashes)
	if err != nil {
		return 0, c.mapError(err)
	}

	return n, c.mapError(c.client.Del(ctx, setKey).Err())
}

func (c *Cache) DeleteSessionsByUser(ctx context.Context, userID int64) (n int64, err error) {
	ctx, span := c.startSpan(ctx, "DeleteSessionsByUser")
	defer func() { c.endSpan(span, err) }()

	setKey := sessionUserKey(userID)

	hashes, err := c.client.SMembers(ctx, setKey).Result()
	if err != nil {
		return 0, c.mapError(err)
	}

	n, err = c.removeSessions(ctx, hashes)
	if err != nil {
		return 0, c.mapError(err)
	}

	return n, c.mapError(c.client.Del(ctx, setKey).Err())
}

// removeSessions deletes sessions and their index entries. It returns how
// many sessions were still indexed, whether or not the hash had already
// expired.
func (c *Cache) removeSessions(ctx context.Context, tokenHashes []string) (int64, error) {
	tokenHashes = lo.Uniq(lo.Compact(tokenHashes))
	if len(tokenHashes) == 0 {
		return 0, nil
	}

	owners, err := c.client.HMGet(ctx, keySessionOwner, tokenHashes...).Result()
	if err != nil {
		return 0, err
	}

	dels := make([]*redis.IntCmd, len(tokenHashes))
	if _, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, th := range tokenHashes {
			pipe.Del(ctx, sessionKey(th))
			pipe.ZRem(ctx, keySessionExpiry, th)
			dels[i] = pipe.HDel(ctx, keySessionOwner, th)

			raw, ok := owners[i].(string)
			if !ok {
				continue
			}
			email, uid := parseSessionOwner(raw)
			if email != "" {
				pipe.SRem(ctx, sessionEmailKey(email), th)
			}
			if uid != 0 {
				pipe.SRem(ctx, sessionUserKey(uid), th)
			}
		}
		return nil
	}); err != nil {
		return 0, err
	}

	return lo.SumBy(dels, func(d *redis.IntCmd) int64 { return d.Val() }), nil
}
