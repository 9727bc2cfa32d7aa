package notifications

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakePublisher struct {
	inputs []*sns.PublishInput
	err    error
}

func (f *fakePublisher) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.inputs = append(f.inputs, params)
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{}, nil
}

func TestSNSSender_SendSMS(t *testing.T) {
	pub := &fakePublisher{}
	sender := &SNSSender{client: pub}

	require.NoError(t, sender.SendSMS(context.Background(), "+919800000000", "Your verification code is: 123456"))

	require.Len(t, pub.inputs, 1)
	assert.Equal(t, "+919800000000", *pub.inputs[0].PhoneNumber)
	assert.Equal(t, "Your verification code is: 123456", *pub.inputs[0].Message)
	assert.Equal(t, "Transactional", *pub.inputs[0].MessageAttributes["AWS.SNS.SMS.SMSType"].StringValue)

	pub.err = errors.New("throttled")
	err := sender.SendSMS(context.Background(), "+919800000000", "x")
	assert.ErrorContains(t, err, "sns publish")
}

func TestSMTPMailer_SendEmail(t *testing.T) {
	var (
		gotAddr string
		gotAuth smtp.Auth
		gotTo   []string
		gotMsg  string
	)
	mailer := NewSMTPMailer("mail.local", 2525, "noreply@backoffice.local", "", "")
	mailer.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotTo, gotMsg = addr, a, to, string(msg)
		return nil
	}

	require.NoError(t, mailer.SendEmail(context.Background(), "trader@example.com", "Your verification code", "<p>123456</p>"))

	assert.Equal(t, "mail.local:2525", gotAddr)
	assert.Nil(t, gotAuth)
	assert.Equal(t, []string{"trader@example.com"}, gotTo)
	assert.Contains(t, gotMsg, "Subject: Your verification code\r\n")
	assert.Contains(t, gotMsg, "Content-Type: text/html")
	assert.True(t, strings.HasSuffix(gotMsg, "\r\n\r\n<p>123456</p>"))
}

func TestSMTPMailer_SendEmailErrors(t *testing.T) {
	mailer := NewSMTPMailer("mail.local", 25, "noreply@backoffice.local", "user", "secret")
	var sawAuth bool
	mailer.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		sawAuth = a != nil
		return errors.New("connection refused")
	}

	err := mailer.SendEmail(context.Background(), "trader@example.com", "s", "b")
	assert.ErrorContains(t, err, "connection refused")
	assert.True(t, sawAuth)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, mailer.SendEmail(ctx, "trader@example.com", "s", "b"), context.Canceled)
}

type recordingSender struct {
	to, body string
}

func (r *recordingSender) SendSMS(ctx context.Context, to, message string) error {
	r.to, r.body = to, message
	return nil
}

func (r *recordingSender) SendEmail(ctx context.Context, to, subject, htmlBody string) error {
	r.to, r.body = to, htmlBody
	return nil
}

func TestNotifier(t *testing.T) {
	email, sms := &recordingSender{}, &recordingSender{}
	n := NewNotifier(email, sms)

	require.NoError(t, n.SendEmail(context.Background(), "a@example.com", "s", "<b>hi</b>"))
	require.NoError(t, n.SendSMS(context.Background(), "+1555", "hi"))
	assert.Equal(t, "a@example.com", email.to)
	assert.Equal(t, "+1555", sms.to)

	emailOnly := NewNotifier(email, nil)
	assert.Error(t, emailOnly.SendSMS(context.Background(), "+1555", "hi"))
}

func TestNewSMSSender(t *testing.T) {
	sender, err := NewSMSSender(context.Background(), SMSOptions{Provider: ProviderTwilio}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &TwilioSender{}, sender)

	_, err = NewSMSSender(context.Background(), SMSOptions{Provider: "pigeon"}, zap.NewNop())
	assert.ErrorContains(t, err, "unknown sms provider")
}

func TestTwilioSender_Unconfigured(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	sender := NewTwilioSender("", "", "", zap.New(core))

	require.NoError(t, sender.SendSMS(context.Background(), "+1555", "Your verification code is: 123456"))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "twilio not configured, sms not sent", entries[0].Message)
	for _, f := range entries[0].Context {
		assert.NotContains(t, f.String, "123456", "codes must not be logged")
	}
}
