package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/shule/core/account"
)

type accountRepository struct {
	db *accountTable
}

var _ account.Repository = (*accountRepository)(nil) // interface compliance check

func NewAccountRepository(db *DB) *accountRepository {
	return &accountRepository{db: db.account}
}

// query returns live accounts; expired guests are filtered out.
func (repo *accountRepository) query() []account.Account {
	now := time.Now().UTC()
	accts := make([]account.Account, 0, len(repo.db.table))
	for _, a := range repo.db.table {
		if !a.HasExpired(now) {
			accts = append(accts, *a)
		}
	}
	sort.Slice(accts, func(i, j int) bool { return accts[i].CreatedAt.Before(accts[j].CreatedAt) })
	return accts
}

func (repo *accountRepository) CheckEmailUniqueness(_ context.Context, email string) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, a := range repo.query() {
		if a.Email == email {
			return account.ErrEmailExists
		}
	}
	return nil
}

func (repo *accountRepository) CreateAccount(_ context.Context, acct account.Account) (account.Account, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, a := range repo.query() {
		if a.Email == acct.Email {
			return account.Account{}, account.ErrEmailExists
		}
	}
	acct.ID = uuid.New().String()
	repo.db.table[acct.ID] = &acct
	return acct, nil
}

func (repo *accountRepository) GetAccountByID(_ context.Context, id string) (account.Account, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if a, ok := repo.db.table[id]; ok && !a.HasExpired(time.Now().UTC()) {
		return *a, nil
	}
	return account.Account{}, account.ErrNotFound
}

func (repo *accountRepository) GetAccountByEmail(_ context.Context, email string) (account.Account, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, a := range repo.query() {
		if a.Email == email {
			return a, nil
		}
	}
	return account.Account{}, account.ErrNotFound
}

func (repo *accountRepository) GetAccountByEmailAndRole(_ context.Context, email, role string) (account.Account, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, a := range repo.query() {
		if a.Email == email && a.Role == role {
			return a, nil
		}
	}
	return account.Account{}, account.ErrNotFound
}

func (repo *accountRepository) FilterAccounts(_ context.Context, filter account.QueryFilter) ([]account.Account, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	accts := make([]account.Account, 0)
	for _, a := range repo.query() {
		if filter.Role != "" && a.Role != filter.Role {
			continue
		}
		if filter.ExcludeID != "" && a.ID == filter.ExcludeID {
			continue
		}
		accts = append(accts, a)
	}
	return accts, nil
}

func (repo *accountRepository) UpdateAccount(_ context.Context, acct account.Account) (account.Account, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[acct.ID]
	if !ok {
		return account.Account{}, account.ErrNotFound
	}
	orig.Username = acct.Username
	orig.Email = acct.Email
	orig.PasswordHash = acct.PasswordHash
	orig.ResetCode = acct.ResetCode
	orig.ResetCodeExpires = acct.ResetCodeExpires
	orig.ResetCodeVerified = acct.ResetCodeVerified
	return *orig, nil
}

func (repo *accountRepository) CountAccountsCreatedSince(_ context.Context, since time.Time) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var count int
	sinceUTC := since.UTC()
	for _, a := range repo.query() {
		if a.CreatedAt.Equal(sinceUTC) || a.CreatedAt.After(sinceUTC) {
			count++
		}
	}
	return count, nil
}

func (repo *accountRepository) DeleteExpiredGuests(_ context.Context, now time.Time) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var count int
	for id, a := range repo.db.table {
		if a.IsGuest() && a.HasExpired(now) {
			delete(repo.db.table, id)
			count++
		}
	}
	return count, nil
}
