package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/lo"
	"github.com/shandysiswandi/otpgate/internal/otpauth/entity"
)

func (s *DB) CreateChallenge(ctx context.Context, ch entity.Challenge) (err error) {
	ctx, span := s.startSpan(ctx, "CreateChallenge")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, queryInsertChallenge,
		ch.ID,
		ch.Email,
		int16(ch.Purpose),
		ch.CodeHash,
		ch.Verified,
		ch.Attempts,
		ch.MaxAttempts,
		ch.CreatedAt,
		ch.ExpiresAt,
	)
	return s.mapError(err)
}

// VerifyChallenge locks the live candidates of (email, purpose) and applies
// the decision in the same transaction, so concurrent guesses serialize on
// the challenge rows.
func (s *DB) VerifyChallenge(ctx context.Context, in entity.VerifyAttempt) (res *entity.VerifyResult, err error) {
	ctx, span := s.startSpan(ctx, "VerifyChallenge")
	defer func() { s.endSpan(span, err) }()

	res = &entity.VerifyResult{}

	err = s.inTx(ctx, func(tx pgx.Tx) error {
		*res = entity.VerifyResult{}

		rows, err := tx.Query(ctx, queryLockLiveChallenges,
			in.Email, int16(in.Purpose), in.Now, entity.MaxCandidates)
		if err != nil {
			return err
		}

		candidates, err := pgx.CollectRows(rows, scanChallenge)
		if err != nil {
			return err
		}

		res.Decision = entity.DecideVerify(candidates, in.Now, in.Match)

		switch res.Decision.Status {
		case entity.VerifyNoActive:
			return nil

		case entity.VerifyMatched:
			if _, err := tx.Exec(ctx, queryMarkChallengeVerified, res.Decision.MatchedID); err != nil {
				return err
			}

			sess := in.Session
			sess.Email = in.Email
			sess.Purpose = in.Purpose
			if err := insertSession(ctx, tx, sess); err != nil {
				return err
			}

			res.Session = &sess
			return nil

		default:
			ids := lo.Map(res.Decision.Bumped, func(c entity.Challenge, _ int) int64 { return c.ID })
			_, err := tx.Exec(ctx, queryIncrementChallengeAttempts, ids)
			return err
		}
	})
	if err != nil {
		return nil, s.mapError(err)
	}

	return res, nil
}

func (s *DB) DeleteChallengesCreatedBefore(ctx context.Context, cutoff time.Time) (n int64, err error) {
	ctx, span := s.startSpan(ctx, "DeleteChallengesCreatedBefore")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, queryDeleteChallengesCreatedBefore, cutoff)
	if err != nil {
		return 0, s.mapError(err)
	}

	return tag.RowsAffected(), nil
}

func scanChallenge(row pgx.CollectableRow) (entity.Challenge, error) {
	var (
		c       entity.Challenge
		purpose int16
	)

	err := row.Scan(
		&c.ID,
		&c.Email,
		&purpose,
		&c.CodeHash,
		&c.Verified,
		&c.Attempts,
		&c.MaxAttempts,
		&c.CreatedAt,
		&c.ExpiresAt,
	)
	if err != nil {
		return entity.Challenge{}, err
	}

	c.Purpose = entity.Purpose(purpose)
	c.CreatedAt = c.CreatedAt.UTC()
	c.ExpiresAt = c.ExpiresAt.UTC()

	return c, nil
}
