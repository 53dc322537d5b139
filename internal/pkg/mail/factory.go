package mail

import (
	"errors"
	"strings"
)

const (
	DriverSMTP     = "smtp"
	DriverSendGrid = "sendgrid"
)

// ErrUnknownDriver is returned by NewFromDriver for an unsupported driver name.
var ErrUnknownDriver = errors.New("mail: unknown driver")

// FactoryOptions carries the settings of every driver; only the selected one is read.
type FactoryOptions struct {
	SMTP     SMTPConfig
	SendGrid SendGridConfig
}

// NewFromDriver builds the Mail implementation named by driver.
func NewFromDriver(driver string, opts FactoryOptions) (Mail, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverSMTP, "":
		return NewSMTP(opts.SMTP)
	case DriverSendGrid:
		return NewSendGrid(opts.SendGrid)
	default:
		return nil, ErrUnknownDriver
	}
}
