package main

import (
	"context"
	"time"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/account"
)

// addAdmin creates an admin account directly in the store, bypassing the
// process-wide admin-signup flag. Used to bootstrap the first admin.
func (cli *commandLine) addAdmin(uname, email, pwd string) error {
	ctx := context.Background()
	uname = core.CleanString(uname)
	email = core.CleanString(email, true /* lower */)

	if err := cli.acctRepo.CheckEmailUniqueness(ctx, email); err != nil {
		return err
	}

	acct := account.Account{
		Role:      account.RoleAdmin,
		Username:  uname,
		Email:     email,
		AdminRole: "superadmin",
		CreatedAt: time.Now().UTC(),
	}
	if err := acct.SetPassword(pwd); err != nil {
		return err
	}
	_, err := cli.acctRepo.CreateAccount(ctx, acct)
	return err
}
