package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/peyk-chat/peyk-server/internal/store"
)

var (
	// ErrOTPNotExpired is returned when a new code is requested while a
	// previous one is still valid.
	ErrOTPNotExpired = errors.New("otp code is not expired yet")
	// ErrOTPExpired is returned when the submitted code has expired.
	ErrOTPExpired = errors.New("otp code expired")
	// ErrInvalidOTP is returned when the submitted code does not match.
	ErrInvalidOTP = errors.New("invalid otp code")
	// ErrUnauthorized is returned for any credential failure that must not
	// reveal more detail to the caller.
	ErrUnauthorized = errors.New("authorization failed, please retry")
)

// Service implements the two-phase phone+OTP login and access-token
// verification consumed by the realtime core.
type Service struct {
	store  store.UserStore
	tokens *TokenConfig
	now    func() time.Time
}

// NewService creates a new authentication service.
func NewService(userStore store.UserStore, tokens *TokenConfig) *Service {
	return &Service{
		store:  userStore,
		tokens: tokens,
		now:    time.Now,
	}
}

// OTPGrant is the result of requesting a code: the signed OTP token the client
// must present together with the code. Code delivery (SMS) is out of scope, so
// the code itself is handed back to the caller.
type OTPGrant struct {
	Token string
	Code  string
}

// Session is the result of a verified code.
type Session struct {
	UserID      int64
	Username    string
	AccessToken string
}

// SendOTP finds or registers the user behind the phone number and issues a
// fresh code. Only one code may be outstanding at a time.
func (s *Service) SendOTP(ctx context.Context, phone string) (*OTPGrant, error) {
	user, err := s.store.GetUserByPhone(ctx, phone)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("get user: %w", err)
		}
		user, err = s.store.CreateUser(ctx, phone)
		if err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
	}

	if user.OTPExpiresAt != nil && user.OTPExpiresAt.After(s.now()) {
		return nil, ErrOTPNotExpired
	}

	code, err := GenerateOTPCode()
	if err != nil {
		return nil, err
	}
	hash, err := HashOTPCode(code)
	if err != nil {
		return nil, err
	}

	expiresAt := s.now().Add(s.tokens.OTPTTL)
	if err := s.store.SetOTP(ctx, user.ID, hash, expiresAt); err != nil {
		return nil, fmt.Errorf("save otp: %w", err)
	}

	token, err := GenerateOTPToken(s.tokens, user.ID)
	if err != nil {
		return nil, fmt.Errorf("generate otp token: %w", err)
	}

	return &OTPGrant{Token: token, Code: code}, nil
}

// CheckOTP verifies the code against the OTP token and mints the long-lived
// access credential. The stored code is cleared on success.
func (s *Service) CheckOTP(ctx context.Context, token, code string) (*Session, error) {
	claims, err := VerifyOTPToken(s.tokens, token)
	if err != nil {
		return nil, ErrUnauthorized
	}

	user, err := s.store.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, ErrUnauthorized
	}

	if user.OTPHash == "" || user.OTPExpiresAt == nil {
		return nil, ErrUnauthorized
	}
	if user.OTPExpiresAt.Before(s.now()) {
		return nil, ErrOTPExpired
	}
	if CompareOTPCode(user.OTPHash, code) != nil {
		return nil, ErrInvalidOTP
	}

	if err := s.store.ClearOTP(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("clear otp: %w", err)
	}

	accessToken, err := GenerateAccessToken(s.tokens, user.ID)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	return &Session{
		UserID:      user.ID,
		Username:    user.Username,
		AccessToken: accessToken,
	}, nil
}

// Verify resolves an access token into the owning user. It is the single
// identity-verification entry point used by both the HTTP middleware and the
// websocket connection gate.
func (s *Service) Verify(ctx context.Context, token string) (*store.User, error) {
	claims, err := VerifyAccessToken(s.tokens, token)
	if err != nil {
		return nil, ErrUnauthorized
	}

	user, err := s.store.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, ErrUnauthorized
	}

	return user, nil
}
