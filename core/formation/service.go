package formation

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/account"
	"github.com/trezcool/shule/core/notification"
)

var (
	ErrNotFound        = errors.New("formation not found")
	ErrFormationExists = errors.New("a formation with this name already exists for this year")
)

type (
	Repository interface {
		GetFormation(ctx context.Context, name string, year int) (Formation, error)
		CreateFormation(ctx context.Context, f Formation) (Formation, error)
		QueryAllFormations(ctx context.Context) ([]Formation, error)
	}

	ServiceInterface interface {
		Propose(ctx context.Context, nf NewFormation) (Formation, error)
		Query(ctx context.Context) ([]Formation, error)
	}

	service struct {
		repo     Repository
		acctSvc  account.ServiceInterface
		notifSvc notification.ServiceInterface
		conf     *core.Config
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository, acctSvc account.ServiceInterface, notifSvc notification.ServiceInterface, conf *core.Config) ServiceInterface {
	return &service{
		repo:     repo,
		acctSvc:  acctSvc,
		notifSvc: notifSvc,
		conf:     conf,
	}
}

// Propose records a formation proposal for the current calendar year.
// (name, year) is unique; a concurrent duplicate surfaces as a conflict.
// The trainer gets a confirmation and every admin an alert.
func (svc *service) Propose(ctx context.Context, nf NewFormation) (Formation, error) {
	trainer, err := svc.acctSvc.GetByID(ctx, nf.TrainerID)
	if err != nil {
		return Formation{}, err
	}

	if _, err = svc.repo.GetFormation(ctx, nf.Name, nf.Year); err == nil {
		return Formation{}, core.NewConflictError(ErrFormationExists)
	} else if pkgerrors.Cause(err) != ErrNotFound {
		return Formation{}, pkgerrors.Wrap(err, "finding formation")
	}

	f, err := svc.repo.CreateFormation(ctx, Formation{
		TrainerID: nf.TrainerID,
		Name:      nf.Name,
		Year:      nf.Year,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		if pkgerrors.Cause(err) == ErrFormationExists {
			return Formation{}, core.NewConflictError(ErrFormationExists)
		}
		return Formation{}, pkgerrors.Wrap(err, "creating formation")
	}

	_ = svc.notifSvc.NotifyAndMail(ctx, trainer.ID,
		mail.Address{Name: trainer.DisplayName(), Address: trainer.Email},
		"Formation Proposed",
		fmt.Sprintf("Your formation %q (%d) has been submitted for review.", f.Name, f.Year),
		fmt.Sprintf("<p>Hello %s,</p><p>Your formation <strong>%s</strong> (%d) has been submitted for review.</p>",
			trainer.DisplayName(), f.Name, f.Year),
	)

	admins, err := svc.acctSvc.Admins(ctx)
	if err != nil {
		// alert fan-out is best-effort; the proposal is already recorded
		return f, nil
	}
	for _, admin := range admins {
		_ = svc.notifSvc.NotifyAndMail(ctx, admin.ID,
			mail.Address{Name: admin.DisplayName(), Address: admin.Email},
			"New Formation Proposal",
			fmt.Sprintf("%s proposed a new formation: %s (%d).", trainer.DisplayName(), f.Name, f.Year),
			fmt.Sprintf("<p>Hello %s,</p><p><strong>%s</strong> proposed a new formation: <strong>%s</strong> (%d).</p><p><a href=%q>Review it on %s</a></p>",
				admin.DisplayName(), trainer.DisplayName(), f.Name, f.Year, svc.conf.FrontendBaseURL+"/formations", svc.conf.AppName),
		)
	}
	return f, nil
}

func (svc *service) Query(ctx context.Context) ([]Formation, error) {
	return svc.repo.QueryAllFormations(ctx)
}
