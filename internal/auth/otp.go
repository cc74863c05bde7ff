package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/Jeffreasy/LaventeCareAuthSystems/internal/apperr"
	"github.com/Jeffreasy/LaventeCareAuthSystems/internal/models"
	"github.com/Jeffreasy/LaventeCareAuthSystems/internal/store"
)

const (
	otpTTL           = 10 * time.Minute
	otpSendWindow    = 5 * time.Minute
	otpSendMax       = 3
	otpResendCooldown = 60 * time.Second
	otpVerifyWindow  = 10 * time.Minute
	otpVerifyMax     = 5
)

// OtpService is C5: code generation, TTL storage, and the three layered
// rate limits (send window, resend cooldown, verify window) from
// spec.md §4.2.
type OtpService struct {
	otp   store.OtpStore
	rl    store.RateLimitStore
	email store.EmailGateway
}

func NewOtpService(otp store.OtpStore, rl store.RateLimitStore, email store.EmailGateway) *OtpService {
	return &OtpService{otp: otp, rl: rl, email: email}
}

// generateCode produces 6 decimal digits from a cryptographic RNG,
// zero-padded, grounded on the teacher's GenerateBackupCodes (crypto/rand +
// math/big numeric string generation) in mfa.go, repurposed here for
// email-delivered OTP codes rather than TOTP backup codes.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func sendWindowKey(userID string) string { return "rate_limit:otp:send:" + userID }
func resendCooldownKey(userID string) string {
	return "rate_limit:otp:resend_cooldown:" + userID
}
func verifyWindowKey(userID string) string { return "rate_limit:otp:verify:" + userID }

// send issues a fresh OTP code for userID, overwriting any prior record.
// isResend gates the resend cooldown lock; the send window counts both
// initial sends and resends together.
func (s *OtpService) send(ctx context.Context, userID, email string, isResend bool) error {
	if isResend {
		// SetIfAbsent (Redis SET NX) makes the cooldown lock atomic: two
		// concurrent resends can't both observe "no lock yet" and both
		// proceed, unlike a TTL-check followed by a separate Set.
		acquired, err := s.rl.SetIfAbsent(ctx, resendCooldownKey(userID), otpResendCooldown)
		if err != nil {
			return apperr.RedisErr(err)
		}
		if !acquired {
			seconds, _, _ := s.rl.TTL(ctx, resendCooldownKey(userID))
			return apperr.WithRetryAfter(apperr.TooManyRequests, "Please wait before requesting another code", seconds)
		}
	}

	count, err := s.rl.Incr(ctx, sendWindowKey(userID), otpSendWindow)
	if err != nil {
		return apperr.RedisErr(err)
	}
	if count > otpSendMax {
		seconds, _, _ := s.rl.TTL(ctx, sendWindowKey(userID))
		return apperr.WithRetryAfter(apperr.TooManyRequests, "Too many OTP requests", seconds)
	}

	code, err := generateCode()
	if err != nil {
		return apperr.InternalErr(err)
	}

	rec := models.OtpRecord{
		UserID:    userID,
		Code:      code,
		ExpiresAt: time.Now().Add(otpTTL),
		CreatedAt: time.Now(),
	}
	if err := s.otp.Set(ctx, rec); err != nil {
		return apperr.RedisErr(err)
	}

	if err := s.email.SendOTP(ctx, email, code); err != nil {
		// Failure is surfaced and the record rolled back (spec.md §4.8):
		// never leave an OTP code stored that the user cannot have
		// received.
		_ = s.otp.Delete(ctx, userID)
		return apperr.Wrap(apperr.Internal, "failed to send verification email", err)
	}

	if !isResend {
		// The initial Send doesn't go through the SetIfAbsent gate above,
		// so it must still start the cooldown clock itself — otherwise an
		// immediate first Resend would find no lock at all.
		_ = s.rl.Set(ctx, resendCooldownKey(userID), otpResendCooldown)
	}
	return nil
}

// Send issues the first OTP code for a newly-created user.
func (s *OtpService) Send(ctx context.Context, userID, email string) error {
	return s.send(ctx, userID, email, false)
}

// Resend reissues a code for a user re-registering while still pending_otp.
func (s *OtpService) Resend(ctx context.Context, userID, email string) error {
	return s.send(ctx, userID, email, true)
}

// Verify consumes one verify attempt and checks code against the stored
// record. On success it deletes the record and clears both the verify and
// send window counters. Error Kind/messages follow spec.md §4.1's
// VerifyEmail wording, the only caller of this method.
func (s *OtpService) Verify(ctx context.Context, userID, code string) error {
	count, err := s.rl.Incr(ctx, verifyWindowKey(userID), otpVerifyWindow)
	if err != nil {
		return apperr.RedisErr(err)
	}
	if count > otpVerifyMax {
		seconds, _, _ := s.rl.TTL(ctx, verifyWindowKey(userID))
		return apperr.WithRetryAfter(apperr.TooManyRequests, "Too many verification attempts", seconds)
	}

	rec, ok, err := s.otp.Get(ctx, userID)
	if err != nil {
		return apperr.RedisErr(err)
	}
	if !ok {
		return apperr.New(apperr.Unauthorized, "Invalid OTP code")
	}
	if time.Now().After(rec.ExpiresAt) {
		return apperr.New(apperr.Unauthorized, "OTP code has expired")
	}
	if !SecureCompareStrings(code, rec.Code) {
		return apperr.New(apperr.Unauthorized, "Invalid OTP code")
	}

	if err := s.otp.Delete(ctx, userID); err != nil {
		return apperr.RedisErr(err)
	}
	_ = s.rl.Delete(ctx, verifyWindowKey(userID))
	_ = s.rl.Delete(ctx, sendWindowKey(userID))
	return nil
}
