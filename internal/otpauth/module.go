package otpauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/otpgate/internal/otpauth/inbound"
	"github.com/shandysiswandi/otpgate/internal/otpauth/outbound/cache"
	"github.com/shandysiswandi/otpgate/internal/otpauth/outbound/db"
	"github.com/shandysiswandi/otpgate/internal/otpauth/outbound/email"
	"github.com/shandysiswandi/otpgate/internal/otpauth/outbound/mq"
	"github.com/shandysiswandi/otpgate/internal/otpauth/usecase"
	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/cooldown"
	"github.com/shandysiswandi/otpgate/internal/pkg/goroutine"
	"github.com/shandysiswandi/otpgate/internal/pkg/hash"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/mail"
	"github.com/shandysiswandi/otpgate/internal/pkg/messaging"
	"github.com/shandysiswandi/otpgate/internal/pkg/otp"
	"github.com/shandysiswandi/otpgate/internal/pkg/router"
	"github.com/shandysiswandi/otpgate/internal/pkg/scheduler"
	"github.com/shandysiswandi/otpgate/internal/pkg/uid"
	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverRedis    = "redis"

	DeliveryDriverMessaging = "messaging"
	DeliveryDriverMail      = "mail"

	defaultReapInterval = 10 * time.Minute
	defaultCodeDigits   = 6
)

var (
	ErrUnknownStoreDriver    = errors.New("otpauth: unknown store driver")
	ErrUnknownDeliveryDriver = errors.New("otpauth: unknown delivery driver")
	ErrMissingSecret         = errors.New("otpauth: modules.otpauth.secret is required")
)

type Dependency struct {
	// Ctx bounds the background consumer and the reaper; nil disables both.
	Ctx        context.Context
	DBConn     *pgxpool.Pool
	CacheConn  *redis.Client `validate:"required"`
	Messaging  messaging.Messaging
	Mail       mail.Mail
	Config     config.Config              `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	UID        uid.NumberID               `validate:"required"`
	Clock      clock.Clocker              `validate:"required"`
	Goroutine  *goroutine.Manager
	Scheduler  *scheduler.Scheduler
	Validator  validator.Validator `validate:"required"`
	Router     *router.Router      `validate:"required"`
}

// ProtectedRoutes is handed to the router so it can guard the internal
// endpoints before any module registers them.
func ProtectedRoutes() map[string]map[string]struct{} {
	return inbound.ProtectedRoutes()
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	cfg := dep.Config

	store, err := newStore(dep)
	if err != nil {
		return err
	}

	delivery, err := newDelivery(dep)
	if err != nil {
		return err
	}

	secret := cfg.GetString("modules.otpauth.secret")
	if strings.TrimSpace(secret) == "" {
		return ErrMissingSecret
	}
	codeHash, err := hash.NewDerivedHMACSHA256(secret, "otp-code")
	if err != nil {
		return err
	}
	tokenHash, err := hash.NewDerivedHMACSHA256(secret, "session-token")
	if err != nil {
		return err
	}

	digits := cfg.GetInt("modules.otpauth.code_digits")
	if digits == 0 {
		digits = defaultCodeDigits
	}
	gen, err := otp.NewNumeric(digits)
	if err != nil {
		return err
	}

	uc := usecase.New(usecase.Dependency{
		Store:      store,
		Delivery:   delivery,
		Cooldown:   cooldown.New(dep.CacheConn),
		Validator:  dep.Validator,
		Config:     cfg,
		CodeHash:   codeHash,
		TokenHash:  tokenHash,
		OTP:        gen,
		UID:        dep.UID,
		Token:      uid.NewToken(uid.DefaultTokenBytes),
		Clock:      dep.Clock,
		Instrument: dep.Instrument,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc)

	if dep.Ctx == nil {
		return nil
	}

	if dep.Goroutine != nil && dep.Messaging != nil {
		inbound.RegisterMQConsumer(dep.Ctx, cfg, dep.Goroutine, dep.Messaging, uc, dep.Instrument)
	}

	if dep.Scheduler != nil {
		interval := cfg.GetMinute("modules.otpauth.reaper.interval_minutes")
		if interval <= 0 {
			interval = defaultReapInterval
		}
		if err := dep.Scheduler.Every(dep.Ctx, "otpauth.reaper", interval, func(ctx context.Context) error {
			_, err := uc.Reap(ctx)
			return err
		}); err != nil {
			return fmt.Errorf("otpauth: schedule reaper: %w", err)
		}
	}

	return nil
}

func newStore(dep Dependency) (usecase.Store, error) {
	driver := strings.ToLower(strings.TrimSpace(dep.Config.GetString("modules.otpauth.store.driver")))

	switch driver {
	case StoreDriverPostgres, "":
		if dep.DBConn == nil {
			return nil, fmt.Errorf("%w: %s needs a database connection", ErrUnknownStoreDriver, StoreDriverPostgres)
		}
		return db.NewDB(dep.DBConn, dep.Instrument), nil
	case StoreDriverRedis:
		retention := dep.Config.GetHour("modules.otpauth.retention_hours")
		if retention <= 0 {
			retention = 24 * time.Hour
		}
		return cache.NewCache(dep.CacheConn, dep.Instrument, retention), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownStoreDriver, driver)
	}
}

func newDelivery(dep Dependency) (usecase.Delivery, error) {
	driver := strings.ToLower(strings.TrimSpace(dep.Config.GetString("modules.otpauth.delivery.driver")))

	switch driver {
	case DeliveryDriverMessaging, "":
		if dep.Messaging == nil {
			return nil, fmt.Errorf("%w: %s needs a broker", ErrUnknownDeliveryDriver, DeliveryDriverMessaging)
		}
		return mq.NewMessaging(dep.Messaging, dep.Config, dep.Instrument), nil
	case DeliveryDriverMail:
		if dep.Mail == nil {
			return nil, fmt.Errorf("%w: %s needs a mail client", ErrUnknownDeliveryDriver, DeliveryDriverMail)
		}
		slog.Info("otp codes are sent directly by mail")
		return email.New(dep.Mail, dep.Config, dep.Clock, dep.Instrument), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDeliveryDriver, driver)
	}
}
