package formation_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/account"
	"github.com/trezcool/shule/core/formation"
	"github.com/trezcool/shule/core/notification"
	"github.com/trezcool/shule/core/taxonomy"
	emailsvc "github.com/trezcool/shule/services/email"
	inmemdb "github.com/trezcool/shule/storage/database/inmem"
)

type testEnv struct {
	formSvc   formation.ServiceInterface
	acctSvc   account.ServiceInterface
	notifRepo notification.Repository
	validate  *validator.Validate
}

func setup(t *testing.T) *testEnv {
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}

	conf := core.NewTestConfig()
	validate := validator.New()
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	core.InitValidators(validate, translator)

	emailsvc.ClearSentMessages()
	mailSvc := emailsvc.NewConsoleServiceMock(conf)

	acctRepo := inmemdb.NewAccountRepository(db)
	notifRepo := inmemdb.NewNotificationRepository(db)
	notifSvc := notification.NewService(notifRepo, account.NewRecipientDirectory(acctRepo), mailSvc, conf)
	acctSvc := account.NewService(acctRepo, taxonomy.NewService(inmemdb.NewTaxonomyRepository(db)), notifSvc, mailSvc, conf)
	formSvc := formation.NewService(inmemdb.NewFormationRepository(db), acctSvc, notifSvc, conf)

	return &testEnv{formSvc: formSvc, acctSvc: acctSvc, notifRepo: notifRepo, validate: validate}
}

func registerTrainer(t *testing.T, env *testEnv, uname, email string) account.Account {
	acct, err := env.acctSvc.Register(context.Background(), account.NewAccount{
		Role:    account.RoleTrainer,
		Trainer: &account.NewTrainer{Username: uname, Email: email, Password: "Str0ngPassw0rd", TrainingArea: "DevOps"},
	})
	require.NoError(t, err)
	return acct
}

func registerAdmin(t *testing.T, env *testEnv, uname, email string) account.Account {
	acct, err := env.acctSvc.Register(context.Background(), account.NewAccount{
		Role:  account.RoleAdmin,
		Admin: &account.NewAdmin{Username: uname, Email: email, Password: "Str0ngPassw0rd", AdminRole: "superadmin"},
	})
	require.NoError(t, err)
	return acct
}

func Test_service_Propose(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	year := time.Now().UTC().Year()

	trainer := registerTrainer(t, env, "coach", "coach@test.cd")
	admin := registerAdmin(t, env, "boss", "boss@test.cd")
	emailsvc.ClearSentMessages()

	f, err := env.formSvc.Propose(ctx, formation.NewFormation{TrainerID: trainer.ID, Name: "Intro to Go", Year: year})
	require.NoError(t, err)
	assert.NotEmpty(t, f.ID)
	assert.Equal(t, trainer.ID, f.TrainerID)
	assert.Equal(t, year, f.Year)

	// trainer confirmation, newest first
	trainerNotifs, err := env.notifRepo.QueryNotificationsByAccount(ctx, trainer.ID)
	require.NoError(t, err)
	assert.Equal(t, "Formation Proposed", trainerNotifs[0].Title)

	// every admin is alerted
	adminNotifs, err := env.notifRepo.QueryNotificationsByAccount(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, "New Formation Proposal", adminNotifs[0].Title)
	assert.Contains(t, adminNotifs[0].Message, "coach")

	sent := emailsvc.GetSentMessages()
	require.Len(t, sent, 2)
	gotTo := []string{sent[0].To[0].Address, sent[1].To[0].Address}
	assert.ElementsMatch(t, []string{"coach@test.cd", "boss@test.cd"}, gotTo)
}

func Test_service_Propose_duplicate(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	year := time.Now().UTC().Year()

	trainer := registerTrainer(t, env, "coach", "coach@test.cd")

	_, err := env.formSvc.Propose(ctx, formation.NewFormation{TrainerID: trainer.ID, Name: "Intro to Go", Year: year})
	require.NoError(t, err)

	// same name + year conflicts, regardless of proposer
	other := registerTrainer(t, env, "other", "other@test.cd")
	_, err = env.formSvc.Propose(ctx, formation.NewFormation{TrainerID: other.ID, Name: "Intro to Go", Year: year})
	require.Error(t, err)
	assert.True(t, core.IsConflict(err))

	// the same name next year is fine
	_, err = env.formSvc.Propose(ctx, formation.NewFormation{TrainerID: other.ID, Name: "Intro to Go", Year: year + 1})
	assert.NoError(t, err)
}

func Test_service_Propose_unknownTrainer(t *testing.T) {
	env := setup(t)

	_, err := env.formSvc.Propose(context.Background(), formation.NewFormation{
		TrainerID: "no-such-id", Name: "Ghost Course", Year: time.Now().UTC().Year(),
	})
	assert.ErrorIs(t, err, account.ErrNotFound)
}

func Test_NewFormation_Validate(t *testing.T) {
	env := setup(t)

	tests := []struct {
		name    string
		nf      formation.NewFormation
		wantErr bool
	}{
		{name: "ok", nf: formation.NewFormation{TrainerID: "t-1", Name: "Intro to Go", Year: 2026}},
		{name: "missing name", nf: formation.NewFormation{TrainerID: "t-1", Year: 2026}, wantErr: true},
		{name: "year too old", nf: formation.NewFormation{TrainerID: "t-1", Name: "Intro", Year: 1999}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.nf.Validate(env.validate)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func Test_service_Query(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	year := time.Now().UTC().Year()

	trainer := registerTrainer(t, env, "coach", "coach@test.cd")
	_, err := env.formSvc.Propose(ctx, formation.NewFormation{TrainerID: trainer.ID, Name: "First", Year: year})
	require.NoError(t, err)
	_, err = env.formSvc.Propose(ctx, formation.NewFormation{TrainerID: trainer.ID, Name: "Second", Year: year})
	require.NoError(t, err)

	fs, err := env.formSvc.Query(ctx)
	require.NoError(t, err)
	require.Len(t, fs, 2)
	// newest first
	assert.Equal(t, "Second", fs[0].Name)
}
