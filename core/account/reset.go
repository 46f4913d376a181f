package account

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/mail"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

var (
	ErrResetCodeInvalid     = errors.New("invalid reset code")
	ErrResetCodeExpired     = errors.New("reset code expired")
	ErrResetCodeNotVerified = errors.New("reset code not verified")
)

// generateResetCode returns a 4-digit code, zero-padded.
func generateResetCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%04d", n.Int64()), nil
}

// RequestPasswordReset issues a fresh reset code for the account and emails
// it. A new request supersedes any outstanding code, verified or not.
// Unknown emails return ErrNotFound; the rate limiter guards the endpoint
// against enumeration abuse.
func (svc *service) RequestPasswordReset(ctx context.Context, email string) error {
	acct, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	code, err := generateResetCode()
	if err != nil {
		return pkgerrors.Wrap(err, "generating reset code")
	}
	acct.ResetCode = code
	acct.ResetCodeExpires = time.Now().UTC().Add(svc.conf.ResetCodeTTL)
	acct.ResetCodeVerified = false

	if _, err = svc.repo.UpdateAccount(ctx, acct); err != nil {
		return pkgerrors.Wrap(err, "saving reset code")
	}

	mins := int(svc.conf.ResetCodeTTL.Minutes())
	svc.mailSvc.SendMessages(core.NewEmailMessage(
		mail.Address{Name: acct.DisplayName(), Address: acct.Email},
		"Password Reset Code",
		fmt.Sprintf("Hello %s,\n\nYour password reset code is: %s\n\nIt expires in %d minutes. If you did not request this, ignore this email.",
			acct.DisplayName(), code, mins),
		fmt.Sprintf("<p>Hello %s,</p><p>Your password reset code is: <strong>%s</strong></p><p>It expires in %d minutes. If you did not request this, ignore this email.</p>",
			acct.DisplayName(), code, mins),
	))
	return nil
}

// VerifyResetCode checks the submitted code against the outstanding
// challenge. A matching unexpired code marks the challenge verified; a
// matching expired code clears the challenge and returns
// ErrResetCodeExpired; a mismatch leaves the challenge untouched so the
// caller may retry until it expires.
func (svc *service) VerifyResetCode(ctx context.Context, email, code string) error {
	acct, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !acct.HasResetChallenge() || acct.ResetCode != code {
		return ErrResetCodeInvalid
	}
	if time.Now().UTC().After(acct.ResetCodeExpires) {
		acct.ClearResetChallenge()
		if _, err = svc.repo.UpdateAccount(ctx, acct); err != nil {
			return pkgerrors.Wrap(err, "clearing expired reset code")
		}
		return ErrResetCodeExpired
	}

	acct.ResetCodeVerified = true
	if _, err = svc.repo.UpdateAccount(ctx, acct); err != nil {
		return pkgerrors.Wrap(err, "marking reset code verified")
	}
	return nil
}

// ResetPassword sets a new password for an account whose reset challenge has
// been verified, then clears the challenge and sends a confirmation email.
func (svc *service) ResetPassword(ctx context.Context, email, newPassword string) error {
	if len(newPassword) < svc.conf.MinPasswordLen {
		return core.NewValidationError(nil, core.FieldError{
			Field: "password",
			Error: fmt.Sprintf("password must be at least %d characters", svc.conf.MinPasswordLen),
		})
	}

	acct, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !acct.HasResetChallenge() || !acct.ResetCodeVerified {
		return ErrResetCodeNotVerified
	}

	if err = acct.SetPassword(newPassword); err != nil {
		return pkgerrors.Wrap(err, "hashing password")
	}
	acct.ClearResetChallenge()

	if _, err = svc.repo.UpdateAccount(ctx, acct); err != nil {
		return pkgerrors.Wrap(err, "saving new password")
	}

	svc.mailSvc.SendMessages(core.NewEmailMessage(
		mail.Address{Name: acct.DisplayName(), Address: acct.Email},
		"Password Reset Successful",
		fmt.Sprintf("Hello %s,\n\nYour password has been reset. You can now log in with your new password: %s/login",
			acct.DisplayName(), svc.conf.FrontendBaseURL),
		fmt.Sprintf("<p>Hello %s,</p><p>Your password has been reset.</p><p><a href=%q>Log in</a> with your new password.</p>",
			acct.DisplayName(), svc.conf.FrontendBaseURL+"/login"),
	))
	return nil
}
