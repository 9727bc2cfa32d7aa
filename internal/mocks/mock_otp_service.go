package mocks

import (
	"context"

	"github.com/you/backoffice/domain"
)

// MockOTPService implements domain.OTPService interface for testing
type MockOTPService struct {
	SendOTPFunc           func(ctx context.Context, identifier, otpContext string) error
	VerifyOTPFunc         func(ctx context.Context, identifier, otpContext, code string) error
	ResendExistingOTPFunc func(ctx context.Context, identifier, otpContext string) error
}

// NewMockOTPService creates a new MockOTPService with default behaviors
func NewMockOTPService() *MockOTPService {
	return &MockOTPService{}
}

// SendOTP issues a code for the identifier
func (m *MockOTPService) SendOTP(ctx context.Context, identifier, otpContext string) error {
	if m.SendOTPFunc != nil {
		return m.SendOTPFunc(ctx, identifier, otpContext)
	}
	// Default behavior: success
	return nil
}

// VerifyOTP checks a submitted code
func (m *MockOTPService) VerifyOTP(ctx context.Context, identifier, otpContext, code string) error {
	if m.VerifyOTPFunc != nil {
		return m.VerifyOTPFunc(ctx, identifier, otpContext, code)
	}
	// Default behavior: accept "123456" as valid OTP
	if code != "123456" {
		return domain.ErrOTPInvalid
	}
	return nil
}

// ResendExistingOTP re-delivers the stored code
func (m *MockOTPService) ResendExistingOTP(ctx context.Context, identifier, otpContext string) error {
	if m.ResendExistingOTPFunc != nil {
		return m.ResendExistingOTPFunc(ctx, identifier, otpContext)
	}
	// Default behavior: success
	return nil
}

// Compile-time interface compliance verification
var _ domain.OTPService = (*MockOTPService)(nil)
