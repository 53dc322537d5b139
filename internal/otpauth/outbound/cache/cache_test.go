package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/otpgate/internal/otpauth/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewCache(client, instrument.NewNoop(), 24*time.Hour), mr
}

func testNow() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func challenge(id int64, codeHash string, now time.Time) entity.Challenge {
	return entity.Challenge{
		ID:          id,
		Email:       "a@b.com",
		Purpose:     entity.PurposeLogin,
		CodeHash:    codeHash,
		MaxAttempts: 3,
		CreatedAt:   now,
		ExpiresAt:   now.Add(5 * time.Minute),
	}
}

func attempt(code string, now time.Time, tokenHash string) entity.VerifyAttempt {
	return entity.VerifyAttempt{
		Email:   "a@b.com",
		Purpose: entity.PurposeLogin,
		Now:     now,
		Match:   func(h string) bool { return h == code },
		Session: entity.Session{
			ID:         99,
			TokenHash:  tokenHash,
			VerifiedAt: now,
			ExpiresAt:  now.Add(30 * time.Minute),
		},
	}
}

func TestCache_VerifyChallenge(t *testing.T) {
	ctx := context.Background()

	t.Run("match promotes to session", func(t *testing.T) {
		// Arrange
		c, mr := newTestCache(t)
		now := testNow()
		if err := c.CreateChallenge(ctx, challenge(1, "h1", now)); err != nil {
			t.Fatalf("CreateChallenge() err = %v", err)
		}

		// Act
		res, err := c.VerifyChallenge(ctx, attempt("h1", now.Add(time.Second), "tok"))

		// Assert
		if err != nil {
			t.Fatalf("VerifyChallenge() err = %v", err)
		}
		if res.Decision.Status != entity.VerifyMatched || res.Session == nil {
			t.Fatalf("decision = %+v, want matched with session", res.Decision)
		}
		if got := mr.HGet(challengeKey(1), "verified"); got != "1" {
			t.Fatalf("verified field = %q, want 1", got)
		}
		sess, err := c.GetSession(ctx, "tok")
		if err != nil {
			t.Fatalf("GetSession() err = %v", err)
		}
		if sess.Email != "a@b.com" || sess.Purpose != entity.PurposeLogin {
			t.Fatalf("session = %+v", sess)
		}

		res, err = c.VerifyChallenge(ctx, attempt("h1", now.Add(2*time.Second), "tok2"))
		if err != nil {
			t.Fatalf("second VerifyChallenge() err = %v", err)
		}
		if res.Decision.Status != entity.VerifyNoActive {
			t.Fatalf("second status = %s, want no_active", res.Decision.Status)
		}
	})

	t.Run("wrong codes exhaust", func(t *testing.T) {
		// Arrange
		c, mr := newTestCache(t)
		now := testNow()
		if err := c.CreateChallenge(ctx, challenge(1, "h1", now)); err != nil {
			t.Fatalf("CreateChallenge() err = %v", err)
		}

		want := []entity.VerifyStatus{entity.VerifyMismatch, entity.VerifyMismatch, entity.VerifyExhausted, entity.VerifyNoActive}
		for i, w := range want {
			// Act
			res, err := c.VerifyChallenge(ctx, attempt("nope", now, "tok"))

			// Assert
			if err != nil {
				t.Fatalf("call %d err = %v", i, err)
			}
			if res.Decision.Status != w {
				t.Fatalf("call %d status = %s, want %s", i, res.Decision.Status, w)
			}
		}
		if got := mr.HGet(challengeKey(1), "attempts"); got != "3" {
			t.Fatalf("attempts = %q, want 3", got)
		}
	})

	t.Run("expired challenge is not a candidate", func(t *testing.T) {
		// Arrange
		c, _ := newTestCache(t)
		now := testNow()
		if err := c.CreateChallenge(ctx, challenge(1, "h1", now)); err != nil {
			t.Fatalf("CreateChallenge() err = %v", err)
		}

		// Act
		res, err := c.VerifyChallenge(ctx, attempt("h1", now.Add(5*time.Minute+time.Second), "tok"))

		// Assert
		if err != nil {
			t.Fatalf("VerifyChallenge() err = %v", err)
		}
		if res.Decision.Status != entity.VerifyNoActive {
			t.Fatalf("status = %s, want no_active", res.Decision.Status)
		}
	})
}

func TestCache_BindSessionUser(t *testing.T) {
	// Arrange
	ctx := context.Background()
	c, _ := newTestCache(t)
	now := testNow()
	if err := c.CreateChallenge(ctx, challenge(1, "h1", now)); err != nil {
		t.Fatalf("CreateChallenge() err = %v", err)
	}
	if _, err := c.VerifyChallenge(ctx, attempt("h1", now, "tok")); err != nil {
		t.Fatalf("VerifyChallenge() err = %v", err)
	}

	// Act & Assert
	if err := c.BindSessionUser(ctx, "tok", 7, now); err != nil {
		t.Fatalf("BindSessionUser() err = %v", err)
	}
	if err := c.BindSessionUser(ctx, "tok", 7, now); err != nil {
		t.Fatalf("BindSessionUser() repeat err = %v", err)
	}
	if err := c.BindSessionUser(ctx, "tok", 8, now); !errors.Is(err, entity.ErrIdentityConflict) {
		t.Fatalf("BindSessionUser() other user err = %v, want ErrIdentityConflict", err)
	}
	if err := c.BindSessionUser(ctx, "missing", 7, now); !errors.Is(err, goerror.ErrNotFound) {
		t.Fatalf("BindSessionUser() missing err = %v, want ErrNotFound", err)
	}
	if err := c.BindSessionUser(ctx, "tok", 7, now.Add(time.Hour)); !errors.Is(err, entity.ErrSessionExpired) {
		t.Fatalf("BindSessionUser() expired err = %v, want ErrSessionExpired", err)
	}

	n, err := c.DeleteSessionsByUser(ctx, 7)
	if err != nil || n != 1 {
		t.Fatalf("DeleteSessionsByUser() = %d, %v; want 1, nil", n, err)
	}
	if _, err := c.GetSession(ctx, "tok"); !errors.Is(err, goerror.ErrNotFound) {
		t.Fatalf("GetSession() after cascade err = %v, want ErrNotFound", err)
	}
}

func TestCache_DeleteSessionsByEmail(t *testing.T) {
	// Arrange
	ctx := context.Background()
	c, _ := newTestCache(t)
	now := testNow()
	for i, tok := range []string{"t1", "t2"} {
		if err := c.CreateChallenge(ctx, challenge(int64(i+1), "h", now)); err != nil {
			t.Fatalf("CreateChallenge() err = %v", err)
		}
		if _, err := c.VerifyChallenge(ctx, attempt("h", now, tok)); err != nil {
			t.Fatalf("VerifyChallenge() err = %v", err)
		}
	}

	// Act
	n, err := c.DeleteSessionsByEmail(ctx, "a@b.com")

	// Assert
	if err != nil || n != 2 {
		t.Fatalf("DeleteSessionsByEmail() = %d, %v; want 2, nil", n, err)
	}
	if err := c.DeleteSession(ctx, "t1"); err != nil {
		t.Fatalf("DeleteSession() on missing err = %v", err)
	}
}

func TestCache_Reap(t *testing.T) {
	// Arrange
	ctx := context.Background()
	c, mr := newTestCache(t)
	now := testNow()

	old := challenge(1, "h", now.Add(-25*time.Hour))
	fresh := challenge(2, "h", now)
	for _, ch := range []entity.Challenge{old, fresh} {
		if err := c.CreateChallenge(ctx, ch); err != nil {
			t.Fatalf("CreateChallenge() err = %v", err)
		}
	}
	if _, err := c.VerifyChallenge(ctx, attempt("h", now, "tok")); err != nil {
		t.Fatalf("VerifyChallenge() err = %v", err)
	}

	// Act
	nc, err := c.DeleteChallengesCreatedBefore(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteChallengesCreatedBefore() err = %v", err)
	}
	ns, err := c.DeleteSessionsExpiredAt(ctx, now)
	if err != nil {
		t.Fatalf("DeleteSessionsExpiredAt() err = %v", err)
	}

	// Assert
	if nc != 1 {
		t.Fatalf("challenges deleted = %d, want 1", nc)
	}
	if ns != 0 {
		t.Fatalf("sessions deleted = %d, want 0", ns)
	}
	if mr.Exists(challengeKey(1)) || !mr.Exists(challengeKey(2)) {
		t.Fatalf("wrong challenge reaped")
	}

	ns, err = c.DeleteSessionsExpiredAt(ctx, now.Add(30*time.Minute))
	if err != nil || ns != 1 {
		t.Fatalf("DeleteSessionsExpiredAt() at expiry = %d, %v; want 1, nil", ns, err)
	}
}

func TestCache_ReapAfterRedisExpiry(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
	}{
		{name: "hash kept past expiry", elapsed: 31 * time.Minute},
		{name: "hash already evicted", elapsed: 30*time.Minute + 25*time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			ctx := context.Background()
			c, mr := newTestCache(t)
			now := testNow()
			if err := c.CreateChallenge(ctx, challenge(1, "h", now)); err != nil {
				t.Fatalf("CreateChallenge() err = %v", err)
			}
			if _, err := c.VerifyChallenge(ctx, attempt("h", now, "tok")); err != nil {
				t.Fatalf("VerifyChallenge() err = %v", err)
			}
			if err := c.BindSessionUser(ctx, "tok", 42, now); err != nil {
				t.Fatalf("BindSessionUser() err = %v", err)
			}
			mr.FastForward(tt.elapsed)

			// Act
			n, err := c.DeleteSessionsExpiredAt(ctx, now.Add(tt.elapsed))

			// Assert
			if err != nil || n != 1 {
				t.Fatalf("DeleteSessionsExpiredAt() = %d, %v; want 1, nil", n, err)
			}
			for _, key := range []string{sessionKey("tok"), sessionEmailKey("a@b.com"), sessionUserKey(42), keySessionOwner, keySessionExpiry} {
				if mr.Exists(key) {
					t.Fatalf("key %q still present after reap", key)
				}
			}
		})
	}
}

func TestCache_ExpiredSessionReadsAsExpired(t *testing.T) {
	// Arrange
	ctx := context.Background()
	c, mr := newTestCache(t)
	now := testNow()
	if err := c.CreateChallenge(ctx, challenge(1, "h", now)); err != nil {
		t.Fatalf("CreateChallenge() err = %v", err)
	}
	if _, err := c.VerifyChallenge(ctx, attempt("h", now, "tok")); err != nil {
		t.Fatalf("VerifyChallenge() err = %v", err)
	}
	later := now.Add(31 * time.Minute)
	mr.FastForward(31 * time.Minute)

	// Act
	sess, err := c.GetSession(ctx, "tok")

	// Assert
	if err != nil {
		t.Fatalf("GetSession() err = %v, want the expired session", err)
	}
	if err := sess.CheckAuthorize(entity.PurposeLogin, later); !errors.Is(err, entity.ErrSessionExpired) {
		t.Fatalf("CheckAuthorize() err = %v, want ErrSessionExpired", err)
	}
	if err := c.BindSessionUser(ctx, "tok", 7, later); !errors.Is(err, entity.ErrSessionExpired) {
		t.Fatalf("BindSessionUser() err = %v, want ErrSessionExpired", err)
	}
}
