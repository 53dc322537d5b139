package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "serialization failure", err: &pgconn.PgError{Code: "40001"}, want: true},
		{name: "deadlock", err: fmt.Errorf("update: %w", &pgconn.PgError{Code: "40P01"}), want: true},
		{name: "unique violation", err: &pgconn.PgError{Code: "23505"}, want: false},
		{name: "no rows", err: pgx.ErrNoRows, want: false},
		{name: "nil", err: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryable(tt.err); got != tt.want {
				t.Fatalf("isRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDB_MapError(t *testing.T) {
	s := &DB{}
	other := errors.New("boom")

	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "no rows", err: pgx.ErrNoRows, want: goerror.ErrNotFound},
		{name: "unique violation", err: &pgconn.PgError{Code: "23505"}, want: goerror.ErrConflict},
		{name: "deadlock passes through", err: &pgconn.PgError{Code: "40P01"}, want: nil},
		{name: "unknown passes through", err: other, want: other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.mapError(tt.err)
			if tt.want == nil {
				if got != tt.err {
					t.Fatalf("mapError() = %v, want %v unchanged", got, tt.err)
				}
				return
			}
			if !errors.Is(got, tt.want) {
				t.Fatalf("mapError() = %v, want %v", got, tt.want)
			}
		})
	}
}
