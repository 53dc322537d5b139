package inbound

import (
	"context"

	"github.com/shandysiswandi/otpgate/internal/notification/usecase"
)

type uc interface {
	ConsumeOTPDelivery(ctx context.Context, in usecase.ConsumeOTPDeliveryInput) error
}
