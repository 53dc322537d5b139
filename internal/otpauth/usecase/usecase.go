package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/otpgate/internal/otpauth/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/cooldown"
	"github.com/shandysiswandi/otpgate/internal/pkg/hash"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/otp"
	"github.com/shandysiswandi/otpgate/internal/pkg/uid"
	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/atomic"
)

const (
	defaultChallengeTTL = 5 * time.Minute
	defaultMaxAttempts  = 3
	defaultSessionTTL   = 30 * time.Minute
	defaultRetention    = 24 * time.Hour
	defaultStoreTimeout = 3 * time.Second
)

// Store persists challenges and sessions. Verify and bind are atomic per call.
type Store interface {
	CreateChallenge(ctx context.Context, ch entity.Challenge) error
	VerifyChallenge(ctx context.Context, in entity.VerifyAttempt) (*entity.VerifyResult, error)

	GetSession(ctx context.Context, tokenHash string) (*entity.Session, error)
	BindSessionUser(ctx context.Context, tokenHash string, userID int64, now time.Time) error

	DeleteSession(ctx context.Context, tokenHash string) error
	DeleteSessionsByEmail(ctx context.Context, email string) (int64, error)
	DeleteSessionsByUser(ctx context.Context, userID int64) (int64, error)

	DeleteChallengesCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteSessionsExpiredAt(ctx context.Context, now time.Time) (int64, error)
}

// Delivery hands a plaintext code to the outside world.
type Delivery interface {
	Send(ctx context.Context, d entity.CodeDelivery) error
}

type Usecase struct {
	store     Store
	delivery  Delivery
	cooldown  cooldown.Cooldown
	validator validator.Validator
	cfg       config.Config
	codeHash  hash.Hash
	tokenHash hash.Hash
	otp       otp.OTP
	uid       uid.NumberID
	token     uid.StringID
	clock     clock.Clocker
	ins       instrument.Instrumentation

	issued   metric.Int64Counter
	verified metric.Int64Counter
	reaped   metric.Int64Counter
	lastReap *atomic.Time
}

type Dependency struct {
	Store      Store
	Delivery   Delivery
	Cooldown   cooldown.Cooldown
	Validator  validator.Validator
	Config     config.Config
	CodeHash   hash.Hash
	TokenHash  hash.Hash
	OTP        otp.OTP
	UID        uid.NumberID
	Token      uid.StringID
	Clock      clock.Clocker
	Instrument instrument.Instrumentation
}

func New(dep Dependency) *Usecase {
	meter := dep.Instrument.Meter("otpauth.usecase")

	return &Usecase{
		store:     dep.Store,
		delivery:  dep.Delivery,
		cooldown:  dep.Cooldown,
		validator: dep.Validator,
		cfg:       dep.Config,
		codeHash:  dep.CodeHash,
		tokenHash: dep.TokenHash,
		otp:       dep.OTP,
		uid:       dep.UID,
		token:     dep.Token,
		clock:     dep.Clock,
		ins:       dep.Instrument,
		issued:    counter(meter, "otpauth.challenges.issued", "OTP challenges persisted"),
		verified:  counter(meter, "otpauth.verify.results", "Verify outcomes by result"),
		reaped:    counter(meter, "otpauth.reaper.deleted", "Rows removed by the reaper"),
		lastReap:  atomic.NewTime(time.Time{}),
	}
}

func counter(m metric.Meter, name, desc string) metric.Int64Counter {
	c, err := m.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		slog.Warn("failed to create counter, using noop", "name", name, "error", err)
		return noop.Int64Counter{}
	}
	return c
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("otpauth.usecase").Start(ctx, name)
}

// settings is the per-call view of the tunables; config may hot reload.
type settings struct {
	challengeTTL   time.Duration
	maxAttempts    int32
	sessionTTL     time.Duration
	retention      time.Duration
	resendCooldown time.Duration
	storeTimeout   time.Duration
}

func (s *Usecase) settings() settings {
	st := settings{
		challengeTTL:   s.cfg.GetSecond("modules.otpauth.challenge_ttl_seconds"),
		maxAttempts:    s.cfg.GetInt32("modules.otpauth.max_attempts"),
		sessionTTL:     s.cfg.GetMinute("modules.otpauth.session_ttl_minutes"),
		retention:      s.cfg.GetHour("modules.otpauth.retention_hours"),
		resendCooldown: s.cfg.GetSecond("modules.otpauth.resend_cooldown_seconds"),
		storeTimeout:   s.cfg.GetSecond("modules.otpauth.store.timeout_seconds"),
	}

	if st.challengeTTL <= 0 {
		st.challengeTTL = defaultChallengeTTL
	}
	if st.maxAttempts <= 0 {
		st.maxAttempts = defaultMaxAttempts
	}
	if st.sessionTTL <= 0 {
		st.sessionTTL = defaultSessionTTL
	}
	if st.retention <= 0 {
		st.retention = defaultRetention
	}
	if st.retention < st.challengeTTL {
		st.retention = st.challengeTTL
	}
	if st.storeTimeout <= 0 {
		st.storeTimeout = defaultStoreTimeout
	}

	return st
}

// storeCtx bounds a single store call.
func (s *Usecase) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.settings().storeTimeout)
}
