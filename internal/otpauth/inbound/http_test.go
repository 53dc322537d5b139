package inbound

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shandysiswandi/otpgate/internal/otpauth/entity"
	"github.com/shandysiswandi/otpgate/internal/otpauth/usecase"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/messaging"
	"github.com/shandysiswandi/otpgate/internal/pkg/router"
)

type fakeUC struct {
	requested  usecase.RequestChallengeInput
	authorized usecase.AuthorizeInput
	bound      usecase.BindUserInput
	deleted    usecase.DeleteUserSessionsInput
	verifyErr  error
	deleteErr  error
}

func (f *fakeUC) RequestChallenge(_ context.Context, in usecase.RequestChallengeInput) (*usecase.RequestChallengeOutput, error) {
	f.requested = in
	return &usecase.RequestChallengeOutput{Accepted: true, ChallengeID: 1, Code: "123456"}, nil
}

func (f *fakeUC) Verify(_ context.Context, _ usecase.VerifyInput) (*usecase.VerifyOutput, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return &usecase.VerifyOutput{
		Token:     "tok",
		Purpose:   entity.PurposeLogin,
		ExpiresAt: time.Date(2026, 1, 1, 0, 30, 0, 0, time.UTC),
	}, nil
}

func (f *fakeUC) Authorize(_ context.Context, in usecase.AuthorizeInput) (*usecase.AuthorizeOutput, error) {
	f.authorized = in
	return &usecase.AuthorizeOutput{Email: "a@b.com", Purpose: entity.PurposeLogin}, nil
}

func (f *fakeUC) BindUser(_ context.Context, in usecase.BindUserInput) error {
	f.bound = in
	return nil
}

func (f *fakeUC) RevokeSession(context.Context, usecase.RevokeSessionInput) error { return nil }

func (f *fakeUC) ResetSessions(context.Context, usecase.ResetSessionsInput) error { return nil }

func (f *fakeUC) DeleteUserSessions(_ context.Context, in usecase.DeleteUserSessionsInput) error {
	f.deleted = in
	return f.deleteErr
}

type fixedID string

func (f fixedID) Generate() string { return string(f) }

func newTestServer(t *testing.T, uc *fakeUC) http.Handler {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte(`
app:
  server:
    api_keys: "internal-key"
`))
	if err != nil {
		t.Fatalf("config err = %v", err)
	}
	t.Cleanup(func() { _ = cfg.Close() })

	r := router.NewRouter(router.Config{
		Config:     cfg,
		UUID:       fixedID("cid"),
		Instrument: instrument.NewNoop(),
		Protected:  ProtectedRoutes(),
	})
	RegisterHTTPEndpoint(r, uc)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHTTPEndpoint_RequestChallengeHidesCode(t *testing.T) {
	// Arrange
	uc := &fakeUC{}
	srv := newTestServer(t, uc)

	// Act
	rec := do(t, srv, http.MethodPost, "/api/v1/otp/challenges", `{"email":"a@b.com","purpose":"login"}`, nil)

	// Assert
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202; body %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "123456") {
		t.Fatalf("response leaked the code: %s", rec.Body.String())
	}
	if uc.requested.Email != "a@b.com" || uc.requested.Purpose != "login" {
		t.Fatalf("requested = %+v", uc.requested)
	}
}

func TestHTTPEndpoint_Verify(t *testing.T) {
	tests := []struct {
		name       string
		verifyErr  error
		wantStatus int
		wantField  string
	}{
		{
			name:       "success",
			wantStatus: http.StatusOK,
		},
		{
			name: "mismatch",
			verifyErr: goerror.NewBusinessWrap(entity.ErrCodeMismatch, "invalid or expired code",
				goerror.CodeUnauthorized, "attempts_remaining", "2"),
			wantStatus: http.StatusUnauthorized,
			wantField:  "attempts_remaining",
		},
		{
			name:       "exceeded",
			verifyErr:  goerror.NewBusinessWrap(entity.ErrAttemptsExceeded, "too many attempts", goerror.CodeTooManyRequest),
			wantStatus: http.StatusTooManyRequests,
		},
		{
			name:       "transient",
			verifyErr:  goerror.NewUnavailable(entity.ErrTransientStore),
			wantStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			srv := newTestServer(t, &fakeUC{verifyErr: tt.verifyErr})

			// Act
			rec := do(t, srv, http.MethodPost, "/api/v1/otp/challenges/verify",
				`{"email":"a@b.com","purpose":"login","code":"123456"}`, nil)

			// Assert
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d; body %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			var body struct {
				Data  map[string]any    `json:"data"`
				Error map[string]string `json:"error"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode err = %v", err)
			}
			if tt.wantStatus == http.StatusOK && body.Data["token"] != "tok" {
				t.Fatalf("data = %v", body.Data)
			}
			if tt.wantField != "" && body.Error[tt.wantField] == "" {
				t.Fatalf("error = %v, want field %s", body.Error, tt.wantField)
			}
		})
	}
}

func TestHTTPEndpoint_AuthorizeBearerToken(t *testing.T) {
	// Arrange
	uc := &fakeUC{}
	srv := newTestServer(t, uc)

	// Act
	rec := do(t, srv, http.MethodPost, "/api/v1/otp/sessions/authorize", `{"required_purpose":"login"}`,
		map[string]string{"Authorization": "Bearer from-header"})

	// Assert
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body %s", rec.Code, rec.Body.String())
	}
	if uc.authorized.Token != "from-header" {
		t.Fatalf("token = %q, want from-header", uc.authorized.Token)
	}
	if strings.Contains(rec.Body.String(), "user_id") {
		t.Fatalf("unbound session must omit user_id: %s", rec.Body.String())
	}
}

func TestHTTPEndpoint_ProtectedRoutes(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		key        string
		wantStatus int
	}{
		{"bind without key", http.MethodPost, "/api/v1/otp/sessions/bind", `{"token":"t","user_id":7}`, "", http.StatusUnauthorized},
		{"bind with key", http.MethodPost, "/api/v1/otp/sessions/bind", `{"token":"t","user_id":7}`, "internal-key", http.StatusOK},
		{"delete without key", http.MethodDelete, "/api/v1/otp/users/7/sessions", "", "wrong", http.StatusUnauthorized},
		{"delete with key", http.MethodDelete, "/api/v1/otp/users/7/sessions", "", "internal-key", http.StatusNoContent},
		{"delete bad id", http.MethodDelete, "/api/v1/otp/users/abc/sessions", "", "internal-key", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			uc := &fakeUC{}
			srv := newTestServer(t, uc)
			headers := map[string]string{}
			if tt.key != "" {
				headers[router.HeaderAPIKey] = tt.key
			}

			// Act
			rec := do(t, srv, tt.method, tt.path, tt.body, headers)

			// Assert
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d; body %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantStatus == http.StatusOK && uc.bound.UserID != 7 {
				t.Fatalf("bound = %+v", uc.bound)
			}
			if tt.wantStatus == http.StatusNoContent && uc.deleted.UserID != 7 {
				t.Fatalf("deleted = %+v", uc.deleted)
			}
		})
	}
}

func TestMQHandler_UserDeleted(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		deleteErr error
		wantDrop  bool
		wantErr   bool
	}{
		{name: "ok", body: `{"user_id":7}`},
		{name: "malformed", body: `{`, wantDrop: true, wantErr: true},
		{name: "invalid user", body: `{"user_id":0}`, deleteErr: goerror.NewInvalidInput(errors.New("user_id")), wantDrop: true, wantErr: true},
		{name: "transient", body: `{"user_id":7}`, deleteErr: goerror.NewUnavailable(entity.ErrTransientStore), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			h := &MQHandler{uc: &fakeUC{deleteErr: tt.deleteErr}, ins: instrument.NewNoop()}

			// Act
			err := h.UserDeleted(context.Background(), &messaging.Message{ID: "1", Body: []byte(tt.body)})

			// Assert
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if errors.Is(err, messaging.ErrDrop) != tt.wantDrop {
				t.Fatalf("drop = %v, want %v", errors.Is(err, messaging.ErrDrop), tt.wantDrop)
			}
		})
	}
}
