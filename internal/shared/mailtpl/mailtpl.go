// Package mailtpl renders the emails that carry one-time codes. It is shared
// by the direct mail delivery and the notification worker.
package mailtpl

import (
	"bytes"
	"cmp"
	_ "embed"
	htmltemplate "html/template"
	"strconv"
	texttemplate "text/template"
	"time"

	"github.com/shandysiswandi/otpgate/internal/pkg/mail"
)

var (
	//go:embed otp.html
	otpHTML string
	//go:embed otp.txt
	otpText string

	otpHTMLTpl = htmltemplate.Must(htmltemplate.New("otp_html").Option("missingkey=zero").Parse(otpHTML))
	otpTextTpl = texttemplate.Must(texttemplate.New("otp_text").Option("missingkey=zero").Parse(otpText))
)

// DefaultValidFor is shown when OTPData.ValidFor is not set. It matches the
// engine's default challenge ttl.
const DefaultValidFor = 5 * time.Minute

// OTPData is the input of OTP.
type OTPData struct {
	To          string
	Code        string
	Purpose     string
	ValidFor    time.Duration
	CompanyName string
	Now         time.Time
}

type otpView struct {
	Intro       string
	Code        string
	ValidFor    string
	CompanyName string
	Year        int
}

// OTP renders the message for a code issued for purpose.
func OTP(d OTPData) (mail.Message, error) {
	subject, intro := copyFor(d.Purpose)

	view := otpView{
		Intro:       intro,
		Code:        d.Code,
		ValidFor:    humanize(cmp.Or(max(d.ValidFor, 0), DefaultValidFor)),
		CompanyName: d.CompanyName,
		Year:        d.Now.Year(),
	}

	var html, text bytes.Buffer
	if err := otpHTMLTpl.Execute(&html, view); err != nil {
		return mail.Message{}, err
	}
	if err := otpTextTpl.Execute(&text, view); err != nil {
		return mail.Message{}, err
	}

	return mail.Message{
		To:       []string{d.To},
		Subject:  subject,
		TextBody: text.String(),
		HTMLBody: html.String(),
	}, nil
}

func copyFor(purpose string) (subject, intro string) {
	switch purpose {
	case "account_creation":
		return "Verify your new account", "Use this code to finish creating your account:"
	case "transaction":
		return "Confirm your transaction", "Use this code to confirm your transaction:"
	case "login":
		return "Your sign-in code", "Use this code to sign in:"
	default:
		return "Your verification code", "Your verification code is:"
	}
}

func humanize(d time.Duration) string {
	switch {
	case d <= 0:
		return "a few minutes"
	case d%time.Minute == 0:
		m := int(d / time.Minute)
		if m == 1 {
			return "1 minute"
		}
		return strconv.Itoa(m) + " minutes"
	default:
		return d.String()
	}
}
