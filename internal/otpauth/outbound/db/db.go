package db

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sethvargo/go-retry"
	"github.com/shandysiswandi/otpgate/internal/otpauth/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type DB struct {
	conn *pgxpool.Pool
	ins  instrument.Instrumentation
}

func NewDB(conn *pgxpool.Pool, ins instrument.Instrumentation) *DB {
	return &DB{
		conn: conn,
		ins:  ins,
	}
}

// maxTxRetries bounds how often a transaction aborted by a serialization
// failure or deadlock is replayed.
const maxTxRetries = 5

// mapError translates driver errors:
// - pgx.ErrNoRows → goerror.ErrNotFound
// - 23505 unique_violation → goerror.ErrConflict
//
// Anything else, including a 40001/40P01 that outlived the retries in inTx,
// is returned unchanged and reported by the usecase as transient.
func (s *DB) mapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return goerror.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return goerror.ErrConflict
	}

	return err
}

func (s *DB) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("otpauth.outbound.db").Start(ctx, name)
}

func (s *DB) endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, goerror.ErrNotFound) && !errors.Is(err, goerror.ErrConflict) &&
		!errors.Is(err, entity.ErrSessionExpired) && !errors.Is(err, entity.ErrIdentityConflict) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// isRetryable reports a serialization_failure (40001) or
// deadlock_detected (40P01); the whole transaction may be replayed.
func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && (pgErr.Code == "40001" || pgErr.Code == "40P01")
}

// inTx runs fn in a transaction that is committed only when fn succeeds.
// Transactions aborted by a serialization failure or deadlock are replayed.
func (s *DB) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	b := retry.NewExponential(5 * time.Millisecond)
	b = retry.WithJitterPercent(50, b)
	b = retry.WithMaxRetries(maxTxRetries, b)

	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := s.runTx(ctx, fn)
		if isRetryable(err) {
			slog.WarnContext(ctx, "transaction aborted, retrying", "error", err)
			return retry.RetryableError(err)
		}
		return err
	})
}

func (s *DB) runTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if rErr := tx.Rollback(ctx); rErr != nil && !errors.Is(rErr, pgx.ErrTxClosed) {
			slog.ErrorContext(ctx, "failed to rolback", "error", rErr)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
