package inbound

import (
	"context"
	"net/http"

	"github.com/shandysiswandi/otpgate/internal/otpauth/usecase"
	"github.com/shandysiswandi/otpgate/internal/pkg/router"
)

type uc interface {
	RequestChallenge(ctx context.Context, in usecase.RequestChallengeInput) (*usecase.RequestChallengeOutput, error)
	Verify(ctx context.Context, in usecase.VerifyInput) (*usecase.VerifyOutput, error)

	Authorize(ctx context.Context, in usecase.AuthorizeInput) (*usecase.AuthorizeOutput, error)
	BindUser(ctx context.Context, in usecase.BindUserInput) error
	RevokeSession(ctx context.Context, in usecase.RevokeSessionInput) error
	ResetSessions(ctx context.Context, in usecase.ResetSessionsInput) error
	DeleteUserSessions(ctx context.Context, in usecase.DeleteUserSessionsInput) error
}

const (
	pathBind         = "/api/v1/otp/sessions/bind"
	pathUserSessions = "/api/v1/otp/users/:id/sessions"
)

// ProtectedRoutes lists the routes only trusted internal callers may reach.
// The router guards them with an API key.
func ProtectedRoutes() map[string]map[string]struct{} {
	return map[string]map[string]struct{}{
		http.MethodPost:   {pathBind: {}},
		http.MethodDelete: {pathUserSessions: {}},
	}
}

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	// Challenges
	r.POST("/api/v1/otp/challenges", end.RequestChallenge)
	r.POST("/api/v1/otp/challenges/verify", end.Verify)

	// Sessions
	r.POST("/api/v1/otp/sessions/authorize", end.Authorize)
	r.POST("/api/v1/otp/sessions/revoke", end.RevokeSession)
	r.POST("/api/v1/otp/sessions/reset", end.ResetSessions)
	r.POST(pathBind, end.BindUser) // need api key

	// Identity cascade (need api key)
	r.DELETE(pathUserSessions, end.DeleteUserSessions)
}
