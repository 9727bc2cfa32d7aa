package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/you/backoffice/domain"
	"github.com/you/backoffice/internal/metrics"
	"go.uber.org/zap"
)

// OTPServiceImpl implements domain.OTPService using Redis persistence
type OTPServiceImpl struct {
	notificationSvc domain.NotificationService
	phones          domain.PhoneResolver
	redisClient     *redis.Client
	config          OTPConfig
	logger          *zap.Logger
	metrics         *metrics.Metrics

	// background SMS deliveries
	wg sync.WaitGroup
}

type OTPConfig struct {
	Length int
	TTL    time.Duration
}

// NewOTPService creates a new Redis-based OTP service. phones may be nil, in
// which case codes are delivered by email only.
func NewOTPService(notificationSvc domain.NotificationService, phones domain.PhoneResolver, redisClient *redis.Client, config OTPConfig, logger *zap.Logger, m *metrics.Metrics) *OTPServiceImpl {
	if config.Length <= 0 {
		config.Length = 6
	}
	return &OTPServiceImpl{
		notificationSvc: notificationSvc,
		phones:          phones,
		redisClient:     redisClient,
		config:          config,
		logger:          logger,
		metrics:         m,
	}
}

func otpKey(otpContext, identifier string) string {
	return fmt.Sprintf("otp:%s:%s", otpContext, identifier)
}

// SendOTP implements domain.OTPService. A new code overwrites any code still
// stored for the same identifier and context.
func (s *OTPServiceImpl) SendOTP(ctx context.Context, identifier, otpContext string) error {
	code, err := s.generateSecureCode()
	if err != nil {
		return domain.Internal(fmt.Errorf("failed to generate OTP code: %w", err))
	}

	key := otpKey(otpContext, identifier)
	if err := s.redisClient.Set(ctx, key, code, s.config.TTL).Err(); err != nil {
		return domain.Internal(fmt.Errorf("failed to store OTP in Redis: %w", err))
	}

	if err := s.dispatch(ctx, identifier, otpContext, code); err != nil {
		// an undeliverable code is useless; do not leave it verifiable
		if delErr := s.redisClient.Del(ctx, key).Err(); delErr != nil {
			s.logger.Warn("failed to remove undelivered otp", zap.String("context", otpContext), zap.Error(delErr))
		}
		return err
	}

	s.metrics.IncOTPIssued(otpContext)
	return nil
}

// consumeOTPScript deletes KEYS[1] only while it still holds ARGV[1] and
// returns the number of keys removed.
var consumeOTPScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// VerifyOTP implements domain.OTPService. The compare and the delete run as
// one script, so a code replaced between them is never consumed and among
// concurrent callers only one succeeds.
func (s *OTPServiceImpl) VerifyOTP(ctx context.Context, identifier, otpContext, code string) error {
	if code == "" {
		s.metrics.IncOTPVerification(otpContext, metrics.ResultRejected)
		return domain.ErrOTPInvalid
	}

	deleted, err := consumeOTPScript.Run(ctx, s.redisClient, []string{otpKey(otpContext, identifier)}, code).Int64()
	if err != nil {
		return domain.Internal(fmt.Errorf("failed to consume OTP: %w", err))
	}
	if deleted != 1 {
		s.metrics.IncOTPVerification(otpContext, metrics.ResultRejected)
		return domain.ErrOTPInvalid
	}

	s.metrics.IncOTPVerification(otpContext, metrics.ResultSuccess)
	return nil
}

// ResendExistingOTP implements domain.OTPService. The stored code and its
// remaining TTL are left unchanged.
func (s *OTPServiceImpl) ResendExistingOTP(ctx context.Context, identifier, otpContext string) error {
	code, err := s.redisClient.Get(ctx, otpKey(otpContext, identifier)).Result()
	if errors.Is(err, redis.Nil) {
		return domain.ErrOTPInvalid
	}
	if err != nil {
		return domain.Internal(fmt.Errorf("failed to get OTP from Redis: %w", err))
	}
	return s.dispatch(ctx, identifier, otpContext, code)
}

// Wait blocks until background SMS deliveries have finished.
func (s *OTPServiceImpl) Wait() {
	s.wg.Wait()
}

// dispatch emails the code and, when a phone is on file, texts it in the
// background. Only the email outcome is returned.
func (s *OTPServiceImpl) dispatch(ctx context.Context, identifier, otpContext, code string) error {
	subject, body, err := renderOTPEmail(code, s.config.TTL)
	if err != nil {
		return domain.WithCause(domain.ErrOTPDeliveryFailed, err)
	}
	if err := s.notificationSvc.SendEmail(ctx, identifier, subject, body); err != nil {
		s.logger.Error("otp email delivery failed",
			zap.String("context", otpContext),
			zap.Error(err),
		)
		return domain.WithCause(domain.ErrOTPDeliveryFailed, err)
	}

	s.sendSMSAsync(context.WithoutCancel(ctx), identifier, otpContext, code)
	return nil
}

func (s *OTPServiceImpl) sendSMSAsync(ctx context.Context, identifier, otpContext, code string) {
	if s.phones == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		phone, err := s.phones.PhoneFor(ctx, identifier)
		if err != nil {
			s.logger.Warn("otp sms skipped: phone lookup failed", zap.String("context", otpContext), zap.Error(err))
			return
		}
		if phone == "" {
			return
		}

		message := fmt.Sprintf("Your verification code is: %s. Valid for %d minutes.", code, int(s.config.TTL.Minutes()))
		if err := s.notificationSvc.SendSMS(ctx, phone, message); err != nil {
			s.logger.Warn("otp sms delivery failed", zap.String("context", otpContext), zap.Error(err))
		}
	}()
}

// generateSecureCode draws a code uniformly from [10^(n-1), 10^n - 1].
func (s *OTPServiceImpl) generateSecureCode() (string, error) {
	low := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(s.config.Length-1)), nil)
	span := new(big.Int).Mul(low, big.NewInt(9))

	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", fmt.Errorf("failed to generate random code: %w", err)
	}
	return n.Add(n, low).String(), nil
}

var _ domain.OTPService = (*OTPServiceImpl)(nil)
