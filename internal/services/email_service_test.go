package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"repurposer/internal/config"
)

func TestEmailService_SendsThroughSender(t *testing.T) {
	var (
		gotFrom string
		gotTo   []string
		raw     bytes.Buffer
	)
	sender := gomail.SendFunc(func(from string, to []string, msg io.WriterTo) error {
		gotFrom, gotTo = from, to
		_, err := msg.WriteTo(&raw)
		return err
	})
	s := NewEmailServiceWithSender("no-reply@x.com", sender)
	require.True(t, s.Configured())

	require.NoError(t, s.SendSignupOTP(context.Background(), "a@x.com", "123456"))
	assert.Equal(t, "no-reply@x.com", gotFrom)
	assert.Equal(t, []string{"a@x.com"}, gotTo)
	assert.Contains(t, raw.String(), "Your signup OTP is 123456.")
	assert.Contains(t, raw.String(), "Subject: Your Signup OTP | AI Repurposer")
}

func TestEmailService_DeliveryFailureIsUpstream(t *testing.T) {
	boom := errors.New("smtp down")
	s := NewEmailServiceWithSender("no-reply@x.com", gomail.SendFunc(func(string, []string, io.WriterTo) error {
		return boom
	}))

	err := s.SendPasswordResetOTP(context.Background(), "a@x.com", "123456")
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.ErrorContains(t, err, "smtp down")
}

func TestEmailService_Unconfigured(t *testing.T) {
	s := NewEmailService(config.EmailConfig{FromEmail: "no-reply@x.com"})
	assert.False(t, s.Configured())
	assert.ErrorIs(t, s.SendSignupOTP(context.Background(), "a@x.com", "123456"), ErrMailNotConfigured)
}

func TestEmailService_DryRun(t *testing.T) {
	s := NewEmailService(config.EmailConfig{DryRun: true})
	assert.True(t, s.Configured())
	assert.NoError(t, s.SendPasswordResetOTP(context.Background(), "a@x.com", "123456"))
}

func TestEmailService_ConfiguredWithSMTPHost(t *testing.T) {
	s := NewEmailService(config.EmailConfig{SMTPHost: "smtp.example.com", SMTPPort: 587})
	assert.True(t, s.Configured())
}

func TestEmailService_ContextCancelled(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	s := NewEmailServiceWithSender("no-reply@x.com", gomail.SendFunc(func(string, []string, io.WriterTo) error {
		<-block
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.SendSignupOTP(ctx, "a@x.com", "123456")
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.ErrorIs(t, err, context.Canceled)
}
