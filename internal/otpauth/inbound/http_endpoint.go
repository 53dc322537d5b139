package inbound

import (
	"github.com/samber/lo"
	"github.com/shandysiswandi/otpgate/internal/otpauth/usecase"
	"github.com/shandysiswandi/otpgate/internal/pkg/router"
)

// HTTPEndpoint exposes HTTP handlers for OTP challenges and verified sessions.
type HTTPEndpoint struct {
	uc uc
}

// RequestChallenge issues a one-time code for an email and purpose.
// @Summary Request a one-time code
// @Tags OTP, Challenge
// @Accept json
// @Produce json
// @Param request body RequestChallengeRequest true "Challenge payload"
// @Success 202 {object} router.successResponse{data=RequestChallengeResponse}
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 503 {object} router.errorResponse "Store unavailable"
// @Router /api/v1/otp/challenges [post]
func (h *HTTPEndpoint) RequestChallenge(r *router.Request) (any, error) {
	var req RequestChallengeRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	if _, err := h.uc.RequestChallenge(r.Context(), usecase.RequestChallengeInput{
		Email:   req.Email,
		Purpose: req.Purpose,
	}); err != nil {
		return nil, err
	}

	// the plaintext code never leaves through this surface
	return RequestChallengeResponse{}, nil
}

// Verify consumes a code and returns a session token scoped to its purpose.
// @Summary Verify a one-time code
// @Tags OTP, Challenge
// @Accept json
// @Produce json
// @Param request body VerifyRequest true "Verify payload"
// @Success 200 {object} router.successResponse{data=VerifyResponse}
// @Failure 401 {object} router.errorResponse "Invalid or expired code"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 429 {object} router.errorResponse "Too many attempts"
// @Failure 503 {object} router.errorResponse "Store unavailable"
// @Router /api/v1/otp/challenges/verify [post]
func (h *HTTPEndpoint) Verify(r *router.Request) (any, error) {
	var req VerifyRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.Verify(r.Context(), usecase.VerifyInput{
		Email:   req.Email,
		Purpose: req.Purpose,
		Code:    req.Code,
	})
	if err != nil {
		return nil, err
	}

	return VerifyResponse{
		Token:     resp.Token,
		Purpose:   resp.Purpose.String(),
		ExpiresAt: resp.ExpiresAt,
	}, nil
}

// Authorize checks that a session token grants the required purpose.
// @Summary Authorize a purpose bound action
// @Tags OTP, Session
// @Accept json
// @Produce json
// @Param request body AuthorizeRequest true "Authorize payload"
// @Success 200 {object} router.successResponse{data=AuthorizeResponse}
// @Failure 401 {object} router.errorResponse "Session invalid or expired"
// @Failure 403 {object} router.errorResponse "Purpose mismatch"
// @Router /api/v1/otp/sessions/authorize [post]
func (h *HTTPEndpoint) Authorize(r *router.Request) (any, error) {
	var req AuthorizeRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}
	if req.Token == "" {
		req.Token = r.BearerToken()
	}

	resp, err := h.uc.Authorize(r.Context(), usecase.AuthorizeInput{
		Token:           req.Token,
		RequiredPurpose: req.RequiredPurpose,
	})
	if err != nil {
		return nil, err
	}

	return AuthorizeResponse{
		Email:     resp.Email,
		UserID:    lo.EmptyableToPtr(resp.UserID),
		Purpose:   resp.Purpose.String(),
		ExpiresAt: resp.ExpiresAt,
	}, nil
}

// BindUser attaches a user id to a verified session.
// @Summary Bind a user to a session
// @Tags OTP, Session
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body BindUserRequest true "Bind payload"
// @Success 200 {object} router.successResponse{data=BindUserResponse}
// @Failure 401 {object} router.errorResponse "Session invalid or expired"
// @Failure 409 {object} router.errorResponse "Bound to another user"
// @Router /api/v1/otp/sessions/bind [post]
func (h *HTTPEndpoint) BindUser(r *router.Request) (any, error) {
	var req BindUserRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	if err := h.uc.BindUser(r.Context(), usecase.BindUserInput{
		Token:  req.Token,
		UserID: req.UserID,
	}); err != nil {
		return nil, err
	}

	return BindUserResponse{}, nil
}

func (h *HTTPEndpoint) RevokeSession(r *router.Request) (any, error) {
	var req RevokeSessionRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}
	if req.Token == "" {
		req.Token = r.BearerToken()
	}

	if err := h.uc.RevokeSession(r.Context(), usecase.RevokeSessionInput{Token: req.Token}); err != nil {
		return nil, err
	}

	return NoContentResponse{}, nil
}

func (h *HTTPEndpoint) ResetSessions(r *router.Request) (any, error) {
	var req ResetSessionsRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	if err := h.uc.ResetSessions(r.Context(), usecase.ResetSessionsInput{Email: req.Email}); err != nil {
		return nil, err
	}

	return NoContentResponse{}, nil
}

func (h *HTTPEndpoint) DeleteUserSessions(r *router.Request) (any, error) {
	userID, err := r.GetParamInt64("id")
	if err != nil {
		return nil, err
	}

	if err := h.uc.DeleteUserSessions(r.Context(), usecase.DeleteUserSessionsInput{UserID: userID}); err != nil {
		return nil, err
	}

	return NoContentResponse{}, nil
}
