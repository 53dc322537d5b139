package cache

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"
	"github.com/shandysiswandi/otpgate/internal/otpauth/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// maxTxRetries bounds how often an optimistic transaction is replayed after
// a WATCH conflict.
const maxTxRetries = 25

const (
	keyChallenge        = "otp:ch:"
	keyChallengeIndex   = "otp:ch:idx:"
	keyChallengeCreated = "otp:ch:created"
	keySession          = "otp:sess:"
	keySessionByEmail   = "otp:sess:email:"
	keySessionByUser    = "otp:sess:user:"
	keySessionExpiry    = "otp:sess:expiry"
	keySessionOwner     = "otp:sess:owner"
)

// Cache stores challenges and sessions in Redis. Multi-key invariants are
// kept with WATCH/MULTI/EXEC.
type Cache struct {
	client    *redis.Client
	ins       instrument.Instrumentation
	retention time.Duration
}

// NewCache builds the store. retention is the lifetime of a challenge hash
// and how long a session hash is kept past its expiry for the reaper.
func NewCache(client *redis.Client, ins instrument.Instrumentation, retention time.Duration) *Cache {
	return &Cache{client: client, ins: ins, retention: retention}
}

func (c *Cache) mapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, redis.Nil) {
		return goerror.ErrNotFound
	}

	return err
}

func (c *Cache) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return c.ins.Tracer("otpauth.outbound.cache").Start(ctx, name)
}

func (c *Cache) endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, goerror.ErrNotFound) && !errors.Is(err, goerror.ErrConflict) &&
		!errors.Is(err, entity.ErrSessionExpired) && !errors.Is(err, entity.ErrIdentityConflict) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// withTx replays fn while EXEC reports a WATCH conflict.
func (c *Cache) withTx(ctx context.Context, fn func(ctx context.Context) error) error {
	b := retry.NewExponential(2 * time.Millisecond)
	b = retry.WithJitterPercent(50, b)
	b = retry.WithCappedDuration(50*time.Millisecond, b)
	b = retry.WithMaxRetries(maxTxRetries, b)

	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := fn(ctx)
		if errors.Is(err, redis.TxFailedErr) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func challengeKey(id int64) string {
	return keyChallenge + strconv.FormatInt(id, 10)
}

func challengeIndexKey(p entity.Purpose, email string) string {
	return keyChallengeIndex + p.String() + ":" + email
}

func sessionKey(tokenHash string) string {
	return keySession + tokenHash
}

func sessionEmailKey(email string) string {
	return keySessionByEmail + email
}

func sessionUserKey(userID int64) string {
	return keySessionByUser + strconv.FormatInt(userID, 10)
}

// sessionOwner is the otp:sess:owner field value of a session. It outlives
// the session hash so the reaper can still clear the email and user sets.
func sessionOwner(email string, userID int64) string {
	return email + "|" + strconv.FormatInt(userID, 10)
}

func parseSessionOwner(v string) (email string, userID int64) {
	i := strings.LastIndexByte(v, '|')
	if i < 0 {
		return v, 0
	}
	userID, _ = strconv.ParseInt(v[i+1:], 10, 64)
	return v[:i], userID
}

func score(t time.Time) float64 {
	return float64(t.UnixMicro())
}

func scoreArg(t time.Time) string {
	return strconv.FormatInt(t.UnixMicro(), 10)
}

type challengeRecord struct {
	ID          int64  `redis:"id"`
	Email       string `redis:"email"`
	Purpose     int16  `redis:"purpose"`
	CodeHash    string `redis:"code_hash"`
	Verified    bool   `redis:"verified"`
	Attempts    int32  `redis:"attempts"`
	MaxAttempts int32  `redis:"max_attempts"`
	CreatedAt   int64  `redis:"created_at"`
	ExpiresAt   int64  `redis:"expires_at"`
}

func newChallengeRecord(ch entity.Challenge) challengeRecord {
	return challengeRecord{
		ID:          ch.ID,
		Email:       ch.Email,
		Purpose:     int16(ch.Purpose),
		CodeHash:    ch.CodeHash,
		Verified:    ch.Verified,
		Attempts:    ch.Attempts,
		MaxAttempts: ch.MaxAttempts,
		CreatedAt:   ch.CreatedAt.UnixMicro(),
		ExpiresAt:   ch.ExpiresAt.UnixMicro(),
	}
}

func (r challengeRecord) values() []any {
	return []any{
		"id", r.ID,
		"email", r.Email,
		"purpose", r.Purpose,
		"code_hash", r.CodeHash,
		"verified", r.Verified,
		"attempts", r.Attempts,
		"max_attempts", r.MaxAttempts,
		"created_at", r.CreatedAt,
		"expires_at", r.ExpiresAt,
	}
}

func (r challengeRecord) entity() entity.Challenge {
	return entity.Challenge{
		ID:          r.ID,
		Email:       r.Email,
		Purpose:     entity.Purpose(r.Purpose),
		CodeHash:    r.CodeHash,
		Verified:    r.Verified,
		Attempts:    r.Attempts,
		MaxAttempts: r.MaxAttempts,
		CreatedAt:   time.UnixMicro(r.CreatedAt).UTC(),
		ExpiresAt:   time.UnixMicro(r.ExpiresAt).UTC(),
	}
}

type sessionRecord struct {
	ID         int64  `redis:"id"`
	TokenHash  string `redis:"token_hash"`
	Email      string `redis:"email"`
	UserID     int64  `redis:"user_id"`
	Purpose    int16  `redis:"purpose"`
	VerifiedAt int64  `redis:"verified_at"`
	ExpiresAt  int64  `redis:"expires_at"`
}

func newSessionRecord(s entity.Session) sessionRecord {
	return sessionRecord{
		ID:         s.ID,
		TokenHash:  s.TokenHash,
		Email:      s.Email,
		UserID:     s.UserID,
		Purpose:    int16(s.Purpose),
		VerifiedAt: s.VerifiedAt.UnixMicro(),
		ExpiresAt:  s.ExpiresAt.UnixMicro(),
	}
}

func (r sessionRecord) values() []any {
	return []any{
		"id", r.ID,
		"token_hash", r.TokenHash,
		"email", r.Email,
		"user_id", r.UserID,
		"purpose", r.Purpose,
		"verified_at", r.VerifiedAt,
		"expires_at", r.ExpiresAt,
	}
}

func (r sessionRecord) entity() entity.Session {
	return entity.Session{
		ID:         r.ID,
		TokenHash:  r.TokenHash,
		Email:      r.Email,
		UserID:     r.UserID,
		Purpose:    entity.Purpose(r.Purpose),
		VerifiedAt: time.UnixMicro(r.VerifiedAt).UTC(),
		ExpiresAt:  time.UnixMicro(r.ExpiresAt).UTC(),
	}
}

type hashReader interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

// readHash scans a hash into dst. A missing key is goerror.ErrNotFound.
func readHash(ctx context.Context, c hashReader, key string, dst any) error {
	cmd := c.HGetAll(ctx, key)
	if err := cmd.Err(); err != nil {
		return err
	}
	if len(cmd.Val()) == 0 {
		return goerror.ErrNotFound
	}
	return cmd.Scan(dst)
}
