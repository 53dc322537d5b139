package otpauth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/otpgate/internal/notification"
	"github.com/shandysiswandi/otpgate/internal/otpauth"
	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/goroutine"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/mail"
	"github.com/shandysiswandi/otpgate/internal/pkg/messaging"
	"github.com/shandysiswandi/otpgate/internal/pkg/router"
	"github.com/shandysiswandi/otpgate/internal/pkg/scheduler"
	"github.com/shandysiswandi/otpgate/internal/pkg/uid"
	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
	"github.com/shandysiswandi/otpgate/internal/shared/event"
)

const moduleConfig = `
app:
  name: OTP Gate
  server:
    api_keys: "internal-key"
modules:
  otpauth:
    secret: "module-test-secret"
    code_digits: 6
    challenge_ttl_seconds: 300
    max_attempts: 3
    session_ttl_minutes: 30
    store:
      driver: redis
    delivery:
      driver: messaging
  notification:
    consumer_names: "otp_delivery_notification"
`

var codePattern = regexp.MustCompile(`\b\d{6}\b`)

type inboxMail struct {
	msgs chan mail.Message
}

func (m *inboxMail) Send(_ context.Context, msg mail.Message) error {
	m.msgs <- msg
	return nil
}

func (m *inboxMail) Close() error { return nil }

type envelope struct {
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Error   map[string]string `json:"error"`
}

type harness struct {
	srv    *httptest.Server
	inbox  *inboxMail
	broker *messaging.Memory
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())

	cfg, err := config.NewViperFromBytes("yaml", []byte(moduleConfig))
	if err != nil {
		t.Fatalf("config err = %v", err)
	}
	val, err := validator.NewV10Validator()
	if err != nil {
		t.Fatalf("validator err = %v", err)
	}
	sf, err := uid.NewSnowflake(1)
	if err != nil {
		t.Fatalf("snowflake err = %v", err)
	}
	sch, err := scheduler.New()
	if err != nil {
		t.Fatalf("scheduler err = %v", err)
	}

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	ins := instrument.NewNoop()
	broker := messaging.NewMemory(messaging.MemoryConfig{})
	broker.Subscribe(event.OTPDeliveryDestination, event.OTPDeliveryDestinationConsumerNotification)
	broker.Subscribe(event.UserDeletedDestination, event.UserDeletedDestinationConsumerOTPAuth)

	routine := goroutine.NewManager(8)
	inbox := &inboxMail{msgs: make(chan mail.Message, 4)}
	r := router.NewRouter(router.Config{
		Config:     cfg,
		UUID:       uid.NewUUID(),
		Instrument: ins,
		Protected:  otpauth.ProtectedRoutes(),
	})

	if err := otpauth.New(otpauth.Dependency{
		Ctx:        ctx,
		CacheConn:  rdb,
		Messaging:  broker,
		Config:     cfg,
		Instrument: ins,
		UID:        sf,
		Clock:      clock.New(),
		Goroutine:  routine,
		Scheduler:  sch,
		Validator:  val,
		Router:     r,
	}); err != nil {
		t.Fatalf("otpauth.New() err = %v", err)
	}

	if err := notification.New(notification.Dependency{
		Ctx:        ctx,
		Messaging:  broker,
		Config:     cfg,
		Instrument: ins,
		Clock:      clock.New(),
		Goroutine:  routine,
		Validator:  val,
		Mail:       inbox,
	}); err != nil {
		t.Fatalf("notification.New() err = %v", err)
	}

	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		srv.Close()
		cancel()
		if err := routine.Wait(); err != nil {
			t.Errorf("routine.Wait() err = %v", err)
		}
		_ = sch.Close()
		_ = rdb.Close()
		_ = cfg.Close()
	})

	return &harness{srv: srv, inbox: inbox, broker: broker}
}

func (h *harness) do(t *testing.T, method, path string, payload any, headers map[string]string) (int, envelope) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(payload); err != nil {
			t.Fatalf("encode json: %v", err)
		}
		body = buf
	}

	req, err := http.NewRequest(method, h.srv.URL+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := h.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	var env envelope
	if resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
			t.Fatalf("decode envelope: %v", err)
		}
	}

	return resp.StatusCode, env
}

func (h *harness) awaitCode(t *testing.T) string {
	t.Helper()

	select {
	case msg := <-h.inbox.msgs:
		code := codePattern.FindString(msg.TextBody)
		if code == "" {
			t.Fatalf("no code in mail body %q", msg.TextBody)
		}
		return code
	case <-time.After(5 * time.Second):
		t.Fatal("no otp mail delivered")
		return ""
	}
}

func TestModule_AccountCreationFlow(t *testing.T) {
	// Arrange
	h := newHarness(t)
	const email = "new-user@example.com"

	// Act & Assert
	status, _ := h.do(t, http.MethodPost, "/api/v1/otp/challenges",
		map[string]string{"email": email, "purpose": "account_creation"}, nil)
	if status != http.StatusAccepted {
		t.Fatalf("request challenge status = %d", status)
	}

	code := h.awaitCode(t)

	status, env := h.do(t, http.MethodPost, "/api/v1/otp/challenges/verify",
		map[string]string{"email": email, "purpose": "account_creation", "code": code}, nil)
	if status != http.StatusOK {
		t.Fatalf("verify status = %d message = %q", status, env.Message)
	}
	var verified struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(env.Data, &verified); err != nil || verified.Token == "" {
		t.Fatalf("verify data = %s, err = %v", env.Data, err)
	}

	status, _ = h.do(t, http.MethodPost, "/api/v1/otp/challenges/verify",
		map[string]string{"email": email, "purpose": "account_creation", "code": code}, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("replayed verify status = %d, want 401", status)
	}

	bearer := map[string]string{"Authorization": "Bearer " + verified.Token}
	status, _ = h.do(t, http.MethodPost, "/api/v1/otp/sessions/authorize",
		map[string]string{"required_purpose": "transaction"}, bearer)
	if status != http.StatusForbidden {
		t.Fatalf("authorize other purpose status = %d, want 403", status)
	}

	status, _ = h.do(t, http.MethodPost, "/api/v1/otp/sessions/bind",
		map[string]any{"token": verified.Token, "user_id": 77}, map[string]string{router.HeaderAPIKey: "internal-key"})
	if status != http.StatusOK {
		t.Fatalf("bind status = %d", status)
	}

	status, env = h.do(t, http.MethodPost, "/api/v1/otp/sessions/authorize",
		map[string]string{"required_purpose": "account_creation"}, bearer)
	if status != http.StatusOK {
		t.Fatalf("authorize status = %d message = %q", status, env.Message)
	}
	var authorized struct {
		UserID int64 `json:"user_id"`
	}
	if err := json.Unmarshal(env.Data, &authorized); err != nil || authorized.UserID != 77 {
		t.Fatalf("authorize data = %s, err = %v", env.Data, err)
	}

	msg, err := messaging.NewJSONMessage(context.Background(), "77", event.UserDeletedMessage{UserID: 77})
	if err != nil {
		t.Fatalf("NewJSONMessage() err = %v", err)
	}
	if err := h.broker.Publish(context.Background(), event.UserDeletedDestination, msg); err != nil {
		t.Fatalf("Publish() err = %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		status, _ = h.do(t, http.MethodPost, "/api/v1/otp/sessions/authorize",
			map[string]string{"required_purpose": "account_creation"}, bearer)
		if status == http.StatusUnauthorized {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("session still valid after user deletion, status = %d", status)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestModule_UnknownStoreDriver(t *testing.T) {
	// Arrange
	cfg, err := config.NewViperFromBytes("yaml", []byte(`
modules:
  otpauth:
    secret: s
    store:
      driver: cassandra
`))
	if err != nil {
		t.Fatalf("config err = %v", err)
	}
	val, err := validator.NewV10Validator()
	if err != nil {
		t.Fatalf("validator err = %v", err)
	}
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	sf, err := uid.NewSnowflake(1)
	if err != nil {
		t.Fatalf("snowflake err = %v", err)
	}

	// Act
	err = otpauth.New(otpauth.Dependency{
		CacheConn:  rdb,
		Messaging:  messaging.NewMemory(messaging.MemoryConfig{}),
		Config:     cfg,
		Instrument: instrument.NewNoop(),
		UID:        sf,
		Clock:      clock.New(),
		Validator:  val,
		Router:     router.NewRouter(router.Config{UUID: uid.NewUUID()}),
	})

	// Assert
	if err == nil {
		t.Fatal("otpauth.New() err = nil, want unknown store driver")
	}
}
