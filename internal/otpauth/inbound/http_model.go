package inbound

import (
	"net/http"
	"time"
)

type RequestChallengeRequest struct {
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
}

// RequestChallengeResponse carries no data; the same message is returned
// whether or not a code was sent so callers cannot probe the cooldown.
type RequestChallengeResponse struct{}

func (RequestChallengeResponse) StatusCode() int { return http.StatusAccepted }

func (RequestChallengeResponse) Message() string {
	return "If the address can receive mail, a verification code is on its way."
}

type VerifyRequest struct {
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
	Code    string `json:"code"`
}

type VerifyResponse struct {
	Token     string    `json:"token"`
	Purpose   string    `json:"purpose"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (VerifyResponse) Message() string {
	return "Code verified"
}

type AuthorizeRequest struct {
	// Token may also be sent as "Authorization: Bearer <token>".
	Token           string `json:"token"`
	RequiredPurpose string `json:"required_purpose"`
}

type AuthorizeResponse struct {
	Email     string    `json:"email"`
	UserID    *int64    `json:"user_id,omitempty"`
	Purpose   string    `json:"purpose"`
	ExpiresAt time.Time `json:"expires_at"`
}

type BindUserRequest struct {
	Token  string `json:"token"`
	UserID int64  `json:"user_id"`
}

type BindUserResponse struct{}

func (BindUserResponse) Message() string {
	return "Session bound to user"
}

type RevokeSessionRequest struct {
	Token string `json:"token"`
}

type ResetSessionsRequest struct {
	Email string `json:"email"`
}

// NoContentResponse answers writes that return nothing.
type NoContentResponse struct{}

func (NoContentResponse) StatusCode() int { return http.StatusNoContent }
