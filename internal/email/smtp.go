package email

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"

	"github.com/hostbay/sitehost-api/pkg/circuitbreaker"
)

// SMTPConfig holds mail transport settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type smtpService struct {
	dialer  *gomail.Dialer
	from    string
	breaker *circuitbreaker.CircuitBreaker
	logger  zerolog.Logger
}

// NewSMTPService returns a Service backed by an SMTP relay via gomail.
// Sends go through a circuit breaker so a dead relay fails a sweep
// quickly instead of timing out once per recipient.
func NewSMTPService(cfg SMTPConfig, logger zerolog.Logger) Service {
	return &smtpService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		breaker: circuitbreaker.New(circuitbreaker.Settings{
			MaxFailures: 3,
			Cooldown:    time.Minute,
		}),
		logger: logger,
	}
}

func (s *smtpService) SendExpiryWarning(ctx context.Context, recipientEmail, siteName string, daysLeft int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", recipientEmail)
	m.SetHeader("Subject", fmt.Sprintf("Your subscription for %s expires in %d day(s)", siteName, daysLeft))
	m.SetBody("text/plain", fmt.Sprintf(
		"The subscription for your site %q ends in %d day(s). "+
			"Submit a renewal request from your dashboard to keep it online.",
		siteName, daysLeft,
	))

	err := s.breaker.Execute(func() error {
		return s.dialer.DialAndSend(m)
	})
	if err != nil {
		return fmt.Errorf("failed to send expiry warning: %w", err)
	}

	s.logger.Debug().
		Str("recipient", recipientEmail).
		Int("days_left", daysLeft).
		Msg("expiry warning sent")
	return nil
}
