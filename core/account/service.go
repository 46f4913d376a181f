package account

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/notification"
	"github.com/trezcool/shule/core/taxonomy"
)

var (
	// errors
	ErrNotFound            = errors.New("account not found")
	ErrEmailExists         = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrAdminSignupDisabled = errors.New("admin registration disabled")
)

type (
	// QueryFilter selects accounts by role and/or excludes one account;
	// fields are ANDed.
	QueryFilter struct {
		Role      string
		ExcludeID string
	}

	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string) error
		CreateAccount(ctx context.Context, acct Account) (Account, error)
		GetAccountByID(ctx context.Context, id string) (Account, error)
		GetAccountByEmail(ctx context.Context, email string) (Account, error)
		GetAccountByEmailAndRole(ctx context.Context, email, role string) (Account, error)
		FilterAccounts(ctx context.Context, filter QueryFilter) ([]Account, error)
		UpdateAccount(ctx context.Context, acct Account) (Account, error)
		CountAccountsCreatedSince(ctx context.Context, since time.Time) (int, error)
		// DeleteExpiredGuests hard-removes guest accounts whose expiry
		// elapsed; reads already soft-filter them.
		DeleteExpiredGuests(ctx context.Context, now time.Time) (int, error)
	}

	ServiceInterface interface {
		Register(ctx context.Context, na NewAccount) (Account, error)
		Authenticate(ctx context.Context, email, password, role string) (Account, error)
		GetByID(ctx context.Context, id string) (Account, error)
		GetByEmail(ctx context.Context, email string) (Account, error)
		Teachers(ctx context.Context) ([]TeacherInfo, error)
		Admins(ctx context.Context) ([]Account, error)
		RegistrationStats(ctx context.Context) (RegistrationStats, error)
		PurgeExpiredGuests(ctx context.Context) (int, error)

		AdminSignupAllowed() bool
		SetAdminSignupAllowed(allow bool)

		// reset flow (reset.go)
		RequestPasswordReset(ctx context.Context, email string) error
		VerifyResetCode(ctx context.Context, email, code string) error
		ResetPassword(ctx context.Context, email, newPassword string) error
	}

	service struct {
		repo     Repository
		taxSvc   taxonomy.ServiceInterface
		notifSvc notification.ServiceInterface
		mailSvc  core.EmailService
		conf     *core.Config

		mu              sync.RWMutex
		adminSignupOpen bool
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(
	repo Repository,
	taxSvc taxonomy.ServiceInterface,
	notifSvc notification.ServiceInterface,
	mailSvc core.EmailService,
	conf *core.Config,
) ServiceInterface {
	return &service{
		repo:            repo,
		taxSvc:          taxSvc,
		notifSvc:        notifSvc,
		mailSvc:         mailSvc,
		conf:            conf,
		adminSignupOpen: true,
	}
}

// recipientDirectory adapts the account store for broadcast fan-out; it wraps
// the repository directly so the notification service needs no account service.
type recipientDirectory struct {
	repo Repository
}

var _ notification.RecipientDirectory = (*recipientDirectory)(nil)

func NewRecipientDirectory(repo Repository) notification.RecipientDirectory {
	return &recipientDirectory{repo: repo}
}

func (d *recipientDirectory) ListRecipients(ctx context.Context, excludeID string) ([]notification.Recipient, error) {
	accts, err := d.repo.FilterAccounts(ctx, QueryFilter{ExcludeID: excludeID})
	if err != nil {
		return nil, err
	}
	recipients := make([]notification.Recipient, 0, len(accts))
	for _, a := range accts {
		recipients = append(recipients, notification.Recipient{ID: a.ID, Email: a.Email})
	}
	return recipients, nil
}

// Register validates the role variant, enforces global email uniqueness,
// resolves the student taxonomy, persists the account and emits the welcome
// notification + best-effort email.
func (svc *service) Register(ctx context.Context, na NewAccount) (Account, error) {
	if na.Role == RoleAdmin && !svc.AdminSignupAllowed() {
		return Account{}, ErrAdminSignupDisabled
	}

	email := na.email()
	if err := svc.repo.CheckEmailUniqueness(ctx, email); err != nil {
		if pkgerrors.Cause(err) == ErrEmailExists {
			return Account{}, core.NewConflictError(ErrEmailExists)
		}
		return Account{}, pkgerrors.Wrap(err, "checking email uniqueness")
	}

	acct := Account{
		Role:      na.Role,
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}

	switch na.Role {
	case RoleStudent:
		ns := na.Student
		grade, err := svc.taxSvc.ResolveGrade(ctx, ns.GradeLevel, ns.GradeYear, ns.MasterType)
		if err != nil {
			return Account{}, err
		}
		dept, err := svc.taxSvc.ResolveDepartment(ctx, ns.DepartmentName, ns.GradeLevel, ns.MasterType)
		if err != nil {
			return Account{}, err
		}
		acct.Username = ns.Username
		acct.GradeID = grade.ID
		acct.DepartmentID = dept.ID
	case RoleTeacher:
		acct.Username = na.Teacher.Username
		acct.Subject = na.Teacher.Subject
	case RoleTrainer:
		acct.Username = na.Trainer.Username
		acct.TrainingArea = na.Trainer.TrainingArea
	case RoleAdmin:
		acct.Username = na.Admin.Username
		acct.AdminRole = na.Admin.AdminRole
	case RoleGuest:
		acct.ExpiresAt = acct.CreatedAt.Add(svc.conf.GuestAccountTTL)
	default:
		return Account{}, core.NewValidationError(nil, core.FieldError{Field: "role", Error: "invalid role"})
	}

	if err := acct.SetPassword(na.password()); err != nil {
		return Account{}, pkgerrors.Wrap(err, "hashing password")
	}

	acct, err := svc.repo.CreateAccount(ctx, acct)
	if err != nil {
		if pkgerrors.Cause(err) == ErrEmailExists {
			// lost a concurrent registration race on the same email
			return Account{}, core.NewConflictError(ErrEmailExists)
		}
		return Account{}, pkgerrors.Wrap(err, "creating account")
	}

	svc.sendWelcome(ctx, acct)
	return acct, nil
}

// sendWelcome emits the welcome notification + email; failures are logged by
// the mail service and never fail the registration.
func (svc *service) sendWelcome(ctx context.Context, acct Account) {
	title := "Welcome to " + svc.conf.AppName
	message := fmt.Sprintf("Welcome, %s! Your %s account is created.", acct.DisplayName(), acct.Role)
	html := fmt.Sprintf(
		"<h2>Welcome to %s!</h2><p>Hello %s,</p><p>Your %s account has been successfully created.</p><p>Start exploring now: <a href=%q>%s</a></p>",
		svc.conf.AppName, acct.DisplayName(), acct.Role, svc.conf.FrontendBaseURL, svc.conf.AppName,
	)
	_ = svc.notifSvc.NotifyAndMail(ctx, acct.ID, mail.Address{Name: acct.DisplayName(), Address: acct.Email}, title, message, html)
}

// Authenticate looks an account up by (email, role) and checks the password.
// Both failure modes collapse into ErrInvalidCredentials so callers cannot
// probe which part was wrong.
func (svc *service) Authenticate(ctx context.Context, email, password, role string) (Account, error) {
	acct, err := svc.repo.GetAccountByEmailAndRole(ctx, core.CleanString(email, true /* lower */), role)
	if err != nil {
		if pkgerrors.Cause(err) == ErrNotFound {
			return Account{}, ErrInvalidCredentials
		}
		return Account{}, pkgerrors.Wrap(err, "finding account by email and role")
	}
	if err := acct.CheckPassword(password); err != nil {
		return Account{}, ErrInvalidCredentials
	}
	return acct, nil
}

func (svc *service) GetByID(ctx context.Context, id string) (Account, error) {
	return svc.repo.GetAccountByID(ctx, id)
}

func (svc *service) GetByEmail(ctx context.Context, email string) (Account, error) {
	return svc.repo.GetAccountByEmail(ctx, core.CleanString(email, true /* lower */))
}

// Teachers lists the public teacher directory.
func (svc *service) Teachers(ctx context.Context) ([]TeacherInfo, error) {
	accts, err := svc.repo.FilterAccounts(ctx, QueryFilter{Role: RoleTeacher})
	if err != nil {
		return nil, err
	}
	infos := make([]TeacherInfo, 0, len(accts))
	for _, a := range accts {
		infos = append(infos, TeacherInfo{ID: a.ID, Username: a.Username, Subject: a.Subject})
	}
	return infos, nil
}

// Admins lists admin accounts, used to route platform alerts.
func (svc *service) Admins(ctx context.Context) ([]Account, error) {
	return svc.repo.FilterAccounts(ctx, QueryFilter{Role: RoleAdmin})
}

// RegistrationStats counts signups since the start of the day, week and month.
func (svc *service) RegistrationStats(ctx context.Context) (RegistrationStats, error) {
	now := time.Now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekStart := dayStart.AddDate(0, 0, -int(now.Weekday()))
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	var stats RegistrationStats
	var err error
	if stats.Daily, err = svc.repo.CountAccountsCreatedSince(ctx, dayStart); err != nil {
		return RegistrationStats{}, err
	}
	if stats.Weekly, err = svc.repo.CountAccountsCreatedSince(ctx, weekStart); err != nil {
		return RegistrationStats{}, err
	}
	if stats.Monthly, err = svc.repo.CountAccountsCreatedSince(ctx, monthStart); err != nil {
		return RegistrationStats{}, err
	}
	return stats, nil
}

// PurgeExpiredGuests hard-removes guest accounts past their expiry.
func (svc *service) PurgeExpiredGuests(ctx context.Context) (int, error) {
	return svc.repo.DeleteExpiredGuests(ctx, time.Now().UTC())
}

func (svc *service) AdminSignupAllowed() bool {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	return svc.adminSignupOpen
}

func (svc *service) SetAdminSignupAllowed(allow bool) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.adminSignupOpen = allow
}

