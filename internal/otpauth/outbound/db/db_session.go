package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shandysiswandi/otpgate/internal/otpauth/entity"
)

func insertSession(ctx context.Context, tx pgx.Tx, sess entity.Session) error {
	_, err := tx.Exec(ctx, queryInsertSession,
		sess.ID,
		sess.TokenHash,
		sess.Email,
		pgtype.Int8{Int64: sess.UserID, Valid: sess.HasUser()},
		int16(sess.Purpose),
		sess.VerifiedAt,
		sess.ExpiresAt,
	)
	return err
}

func scanSession(row pgx.Row) (*entity.Session, error) {
	var (
		sess    entity.Session
		userID  pgtype.Int8
		purpose int16
	)

	if err := row.Scan(
		&sess.ID,
		&sess.TokenHash,
		&sess.Email,
		&userID,
		&purpose,
		&sess.VerifiedAt,
		&sess.ExpiresAt,
	); err != nil {
		return nil, err
	}

	if userID.Valid {
		sess.UserID = userID.Int64
	}
	sess.Purpose = entity.Purpose(purpose)
	sess.VerifiedAt = sess.VerifiedAt.UTC()
	sess.ExpiresAt = sess.ExpiresAt.UTC()

	return &sess, nil
}

func (s *DB) GetSession(ctx context.Context, tokenHash string) (sess *entity.Session, err error) {
	ctx, span := s.startSpan(ctx, "GetSession")
	defer func() { s.endSpan(span, err) }()

	sess, err = scanSession(s.conn.QueryRow(ctx, querySelectSession, tokenHash))
	if err != nil {
		return nil, s.mapError(err)
	}

	return sess, nil
}

func (s *DB) BindSessionUser(ctx context.Context, tokenHash string, userID int64, now time.Time) (err error) {
	ctx, span := s.startSpan(ctx, "BindSessionUser")
	defer func() { s.endSpan(span, err) }()

	err = s.inTx(ctx, func(tx pgx.Tx) error {
		sess, err := scanSession(tx.QueryRow(ctx, queryLockSession, tokenHash))
		if err != nil {
			return err
		}

		if err := sess.CheckBind(userID, now); err != nil {
			return err
		}
		if sess.HasUser() {
			return nil
		}

		_, err = tx.Exec(ctx, queryBindSessionUser, sess.ID, userID)
		return err
	})

	return s.mapError(err)
}

func (s *DB) DeleteSession(ctx context.Context, tokenHash string) (err error) {
	ctx, span := s.startSpan(ctx, "DeleteSession")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, queryDeleteSession, tokenHash)
	return s.mapError(err)
}

func (s *DB) DeleteSessionsByEmail(ctx context.Context, email string) (n int64, err error) {
	ctx, span := s.startSpan(ctx, "DeleteSessionsByEmail")
	defer func() { s.endSpan(span, err) }()

	return s.exec(ctx, queryDeleteSessionsByEmail, email)
}

func (s *DB) DeleteSessionsByUser(ctx context.Context, userID int64) (n int64, err error) {
	ctx, span := s.startSpan(ctx, "DeleteSessionsByUser")
	defer func() { s.endSpan(span, err) }()

	return s.exec(ctx, queryDeleteSessionsByUser, userID)
}

func (s *DB) DeleteSessionsExpiredAt(ctx context.Context, now time.Time) (n int64, err error) {
	ctx, span := s.startSpan(ctx, "DeleteSessionsExpiredAt")
	defer func() { s.endSpan(span, err) }()

	return s.exec(ctx, queryDeleteSessionsExpired, now)
}

func (s *DB) exec(ctx context.Context, query string, args ...any) (int64, error) {
	tag, err := s.conn.Exec(ctx, query, args...)
	if err != nil {
		return 0, s.mapError(err)
	}
	return tag.RowsAffected(), nil
}
