package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/account"
)

type accountRepository struct {
	db *sqlx.DB
}

var _ account.Repository = (*accountRepository)(nil) // interface compliance check

func NewAccountRepository(db *sqlx.DB) *accountRepository {
	return &accountRepository{db: db}
}

type accountRow struct {
	ID                string         `db:"id"`
	Role              string         `db:"role"`
	Username          string         `db:"username"`
	Email             string         `db:"email"`
	PasswordHash      []byte         `db:"password_hash"`
	CreatedAt         time.Time      `db:"created_at"`
	ExpiresAt         sql.NullTime   `db:"expires_at"`
	GradeID           sql.NullString `db:"grade_id"`
	DepartmentID      sql.NullString `db:"department_id"`
	Subject           string         `db:"subject"`
	TrainingArea      string         `db:"training_area"`
	AdminRole         string         `db:"admin_role"`
	ResetCode         string         `db:"reset_code"`
	ResetCodeExpires  sql.NullTime   `db:"reset_code_expires"`
	ResetCodeVerified bool           `db:"reset_code_verified"`
}

func toRow(acct account.Account) accountRow {
	return accountRow{
		ID:                acct.ID,
		Role:              acct.Role,
		Username:          acct.Username,
		Email:             acct.Email,
		PasswordHash:      acct.PasswordHash,
		CreatedAt:         acct.CreatedAt.UTC(),
		ExpiresAt:         nullTime(acct.ExpiresAt),
		GradeID:           sql.NullString{String: acct.GradeID, Valid: acct.GradeID != ""},
		DepartmentID:      sql.NullString{String: acct.DepartmentID, Valid: acct.DepartmentID != ""},
		Subject:           acct.Subject,
		TrainingArea:      acct.TrainingArea,
		AdminRole:         acct.AdminRole,
		ResetCode:         acct.ResetCode,
		ResetCodeExpires:  nullTime(acct.ResetCodeExpires),
		ResetCodeVerified: acct.ResetCodeVerified,
	}
}

func (r accountRow) toAccount() account.Account {
	return account.Account{
		ID:                r.ID,
		Role:              r.Role,
		Username:          r.Username,
		Email:             r.Email,
		PasswordHash:      r.PasswordHash,
		CreatedAt:         r.CreatedAt.UTC(),
		ExpiresAt:         fromNullTime(r.ExpiresAt),
		GradeID:           r.GradeID.String,
		DepartmentID:      r.DepartmentID.String,
		Subject:           r.Subject,
		TrainingArea:      r.TrainingArea,
		AdminRole:         r.AdminRole,
		ResetCode:         r.ResetCode,
		ResetCodeExpires:  fromNullTime(r.ResetCodeExpires),
		ResetCodeVerified: r.ResetCodeVerified,
	}
}

const accountColumns = `id, role, username, email, password_hash, created_at, expires_at,
grade_id, department_id, subject, training_area, admin_role,
reset_code, reset_code_expires, reset_code_verified`

// notExpired soft-filters guest accounts past their expiry; they stay in the
// table until the purge job removes them but are invisible to reads.
const notExpired = `(expires_at IS NULL OR expires_at > NOW())`

func (repo *accountRepository) CheckEmailUniqueness(ctx context.Context, email string) error {
	var exists bool
	err := repo.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM account WHERE email = $1 AND `+notExpired+`)`, email)
	if err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if exists {
		return account.ErrEmailExists
	}
	return nil
}

func (repo *accountRepository) CreateAccount(ctx context.Context, acct account.Account) (account.Account, error) {
	acct.ID = uuid.New().String()
	row := toRow(acct)
	_, err := repo.db.NamedExecContext(ctx,
		`INSERT INTO account (`+accountColumns+`) VALUES (
:id, :role, :username, :email, :password_hash, :created_at, :expires_at,
:grade_id, :department_id, :subject, :training_area, :admin_role,
:reset_code, :reset_code_expires, :reset_code_verified)`, row)
	if err != nil {
		if isUniqueViolation(err, "uq_account_email") {
			return account.Account{}, account.ErrEmailExists
		}
		return account.Account{}, errors.Wrap(err, "inserting account")
	}
	return acct, nil
}

func (repo *accountRepository) GetAccountByID(ctx context.Context, id string) (account.Account, error) {
	var row accountRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT `+accountColumns+` FROM account WHERE id = $1 AND `+notExpired, id)
	if err != nil {
		return account.Account{}, trapNoRowsErr(err, account.ErrNotFound, "getting account by id")
	}
	return row.toAccount(), nil
}

func (repo *accountRepository) GetAccountByEmail(ctx context.Context, email string) (account.Account, error) {
	var row accountRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT `+accountColumns+` FROM account WHERE email = $1 AND `+notExpired, email)
	if err != nil {
		return account.Account{}, trapNoRowsErr(err, account.ErrNotFound, "getting account by email")
	}
	return row.toAccount(), nil
}

func (repo *accountRepository) GetAccountByEmailAndRole(ctx context.Context, email, role string) (account.Account, error) {
	var row accountRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT `+accountColumns+` FROM account WHERE email = $1 AND role = $2 AND `+notExpired, email, role)
	if err != nil {
		return account.Account{}, trapNoRowsErr(err, account.ErrNotFound, "getting account by email and role")
	}
	return row.toAccount(), nil
}

func (repo *accountRepository) FilterAccounts(ctx context.Context, filter account.QueryFilter) ([]account.Account, error) {
	q := `SELECT ` + accountColumns + ` FROM account WHERE ` + notExpired
	args := make([]interface{}, 0, 2)
	if filter.Role != "" {
		args = append(args, filter.Role)
		q += ` AND role = $1`
	}
	if filter.ExcludeID != "" {
		args = append(args, filter.ExcludeID)
		if len(args) == 1 {
			q += ` AND id != $1`
		} else {
			q += ` AND id != $2`
		}
	}
	q += ` ORDER BY created_at`

	var rows []accountRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "filtering accounts")
	}
	accts := make([]account.Account, 0, len(rows))
	for _, r := range rows {
		accts = append(accts, r.toAccount())
	}
	return accts, nil
}

func (repo *accountRepository) UpdateAccount(ctx context.Context, acct account.Account) (account.Account, error) {
	row := toRow(acct)
	res, err := repo.db.NamedExecContext(ctx,
		`UPDATE account SET
username = :username, email = :email, password_hash = :password_hash,
reset_code = :reset_code, reset_code_expires = :reset_code_expires,
reset_code_verified = :reset_code_verified
WHERE id = :id`, row)
	if err != nil {
		return account.Account{}, errors.Wrap(err, "updating account")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return account.Account{}, account.ErrNotFound
	}
	return acct, nil
}

func (repo *accountRepository) CountAccountsCreatedSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := repo.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM account WHERE created_at >= $1 AND `+notExpired, since.UTC())
	if err != nil {
		return 0, errors.Wrap(err, "counting accounts")
	}
	return count, nil
}

func (repo *accountRepository) DeleteExpiredGuests(ctx context.Context, now time.Time) (int, error) {
	const expiredGuests = `SELECT id FROM account WHERE role = 'guest' AND expires_at IS NOT NULL AND expires_at <= $1`

	// notifications have no FK on account; drop them first, messages cascade
	_, err := repo.db.ExecContext(ctx,
		`DELETE FROM notification WHERE account_id IN (`+expiredGuests+`)`, now.UTC())
	if err != nil {
		return 0, errors.Wrap(err, "purging expired guest notifications")
	}

	res, err := repo.db.ExecContext(ctx,
		`DELETE FROM account WHERE id IN (`+expiredGuests+`)`, now.UTC())
	if err != nil {
		return 0, errors.Wrap(err, "purging expired guests")
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
