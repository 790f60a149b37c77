package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"repurposer/internal/config"
)

const defaultMailTimeout = 20 * time.Second

type EmailService interface {
	// Configured reports whether mail can be sent at all.
	Configured() bool
	SendSignupOTP(ctx context.Context, email, code string) error
	SendPasswordResetOTP(ctx context.Context, email, code string) error
}

type emailService struct {
	deliver func(m *gomail.Message) error
	from    string
	dryRun  bool
	timeout time.Duration
	log     *logrus.Entry
}

// NewEmailService returns a gomail-backed mailer. Without an SMTP host and
// outside dry-run mode the mailer reports itself unconfigured and every send
// fails with ErrMailNotConfigured.
func NewEmailService(cfg config.EmailConfig) EmailService {
	s := &emailService{
		from:    cfg.FromEmail,
		dryRun:  cfg.DryRun,
		timeout: defaultMailTimeout,
		log:     logrus.WithField("component", "email"),
	}
	if cfg.HasSMTP() {
		dialer := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword)
		s.deliver = func(m *gomail.Message) error { return dialer.DialAndSend(m) }
	}
	return s
}

// NewEmailServiceWithSender delivers through an arbitrary gomail.Sender.
func NewEmailServiceWithSender(from string, sender gomail.Sender) EmailService {
	return &emailService{
		deliver: func(m *gomail.Message) error { return gomail.Send(sender, m) },
		from:    from,
		timeout: defaultMailTimeout,
		log:     logrus.WithField("component", "email"),
	}
}

func (s *emailService) Configured() bool {
	return s.dryRun || s.deliver != nil
}

func (s *emailService) SendSignupOTP(ctx context.Context, email, code string) error {
	body := fmt.Sprintf("Your signup OTP is %s. It expires in 10 minutes.", code)
	if err := s.send(ctx, email, "Your Signup OTP | AI Repurposer", body, code); err != nil {
		return fmt.Errorf("failed to send signup otp: %w", err)
	}
	return nil
}

func (s *emailService) SendPasswordResetOTP(ctx context.Context, email, code string) error {
	body := fmt.Sprintf("Your OTP is %s. It expires in 10 minutes.", code)
	if err := s.send(ctx, email, "Your AI Repurposer OTP", body, code); err != nil {
		return fmt.Errorf("failed to send password reset otp: %w", err)
	}
	return nil
}

func (s *emailService) send(ctx context.Context, to, subject, body, code string) error {
	if s.dryRun {
		s.log.WithFields(logrus.Fields{"to": to, "subject": subject, "code": code}).
			Info("[email][dry-run] message not sent")
		return nil
	}
	if s.deliver == nil {
		return ErrMailNotConfigured
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.deliver(m) }()

	select {
	case err := <-done:
		if err != nil {
			s.log.WithError(err).WithField("to", to).Warn("[email][send] delivery failed")
			return fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
		}
		return nil
	case <-ctx.Done():
		s.log.WithField("to", to).Warn("[email][send] delivery timed out")
		return fmt.Errorf("%w: %w", ErrUpstreamUnavailable, ctx.Err())
	}
}
