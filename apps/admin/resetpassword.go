package main

import (
	"context"

	"github.com/trezcool/shule/core"
)

// resetPassword force-sets an account's password, skipping the coded
// challenge flow. Any outstanding challenge is dropped.
func (cli *commandLine) resetPassword(email, pwd string) error {
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)

	acct, err := cli.acctRepo.GetAccountByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err = acct.SetPassword(pwd); err != nil {
		return err
	}
	acct.ClearResetChallenge()
	_, err = cli.acctRepo.UpdateAccount(ctx, acct)
	return err
}
