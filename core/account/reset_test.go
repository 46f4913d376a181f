package account_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/account"
	emailsvc "github.com/trezcool/shule/services/email"
)

// currentCode reads the outstanding reset code straight from the store.
func currentCode(t *testing.T, env *testEnv, email string) string {
	acct, err := env.acctRepo.GetAccountByEmail(context.Background(), email)
	require.NoError(t, err)
	require.True(t, acct.HasResetChallenge())
	return acct.ResetCode
}

func Test_service_PasswordReset_flow(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	email := "reset@test.cd"

	register(t, env, newStudent(email))
	emailsvc.ClearSentMessages()

	require.NoError(t, env.acctSvc.RequestPasswordReset(ctx, email))
	code := currentCode(t, env, email)
	assert.Len(t, code, 4)

	// the code is emailed to the account
	sent := emailsvc.GetSentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "Password Reset Code", sent[0].Subject)
	assert.Contains(t, sent[0].TextContent, code)

	// a wrong code is rejected and leaves the challenge intact
	wrong := "0000"
	if code == wrong {
		wrong = "1111"
	}
	err := env.acctSvc.VerifyResetCode(ctx, email, wrong)
	assert.ErrorIs(t, err, account.ErrResetCodeInvalid)
	assert.Equal(t, code, currentCode(t, env, email))

	// resetting before verification is refused
	err = env.acctSvc.ResetPassword(ctx, email, "N3wPassw0rd!")
	assert.ErrorIs(t, err, account.ErrResetCodeNotVerified)

	// the right code verifies, then the reset goes through
	require.NoError(t, env.acctSvc.VerifyResetCode(ctx, email, code))
	require.NoError(t, env.acctSvc.ResetPassword(ctx, email, "N3wPassw0rd!"))

	acct, err := env.acctRepo.GetAccountByEmail(ctx, email)
	require.NoError(t, err)
	assert.NoError(t, acct.CheckPassword("N3wPassw0rd!"))
	assert.Error(t, acct.CheckPassword("Str0ngPassw0rd"))
	assert.False(t, acct.HasResetChallenge())

	// the challenge is spent; a second reset needs a new request
	err = env.acctSvc.ResetPassword(ctx, email, "An0therPass!")
	assert.ErrorIs(t, err, account.ErrResetCodeNotVerified)
}

func Test_service_RequestPasswordReset_supersedes(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	email := "super@test.cd"

	register(t, env, newStudent(email))

	require.NoError(t, env.acctSvc.RequestPasswordReset(ctx, email))
	first := currentCode(t, env, email)
	require.NoError(t, env.acctSvc.VerifyResetCode(ctx, email, first))

	// a fresh request replaces the code and drops the verified mark
	require.NoError(t, env.acctSvc.RequestPasswordReset(ctx, email))
	acct, err := env.acctRepo.GetAccountByEmail(ctx, email)
	require.NoError(t, err)
	assert.False(t, acct.ResetCodeVerified)

	// the old code only works if the new draw happens to collide
	if first != acct.ResetCode {
		assert.ErrorIs(t, env.acctSvc.VerifyResetCode(ctx, email, first), account.ErrResetCodeInvalid)
	}
}

func Test_service_RequestPasswordReset_unknownEmail(t *testing.T) {
	env := setup(t)

	err := env.acctSvc.RequestPasswordReset(context.Background(), "nobody@test.cd")
	assert.ErrorIs(t, err, account.ErrNotFound)
}

func Test_service_VerifyResetCode_expired(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	email := "expired@test.cd"

	register(t, env, newStudent(email))
	require.NoError(t, env.acctSvc.RequestPasswordReset(ctx, email))

	// back-date the challenge expiry
	acct, err := env.acctRepo.GetAccountByEmail(ctx, email)
	require.NoError(t, err)
	code := acct.ResetCode
	acct.ResetCodeExpires = time.Now().UTC().Add(-time.Minute)
	_, err = env.acctRepo.UpdateAccount(ctx, acct)
	require.NoError(t, err)

	err = env.acctSvc.VerifyResetCode(ctx, email, code)
	assert.ErrorIs(t, err, account.ErrResetCodeExpired)

	// the expired challenge is cleared for good
	acct, err = env.acctRepo.GetAccountByEmail(ctx, email)
	require.NoError(t, err)
	assert.False(t, acct.HasResetChallenge())

	assert.ErrorIs(t, env.acctSvc.VerifyResetCode(ctx, email, code), account.ErrResetCodeInvalid)
}

func Test_service_ResetPassword_tooShort(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	email := "short@test.cd"

	register(t, env, newStudent(email))
	require.NoError(t, env.acctSvc.RequestPasswordReset(ctx, email))
	require.NoError(t, env.acctSvc.VerifyResetCode(ctx, email, currentCode(t, env, email)))

	err := env.acctSvc.ResetPassword(ctx, email, "short")
	require.Error(t, err)
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Len(t, vErr.Fields, 1)
	assert.Equal(t, "password", vErr.Fields[0].Field)
}
