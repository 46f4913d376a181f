package messaging_test

import (
	"context"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/account"
	"github.com/trezcool/shule/core/messaging"
	"github.com/trezcool/shule/core/notification"
	"github.com/trezcool/shule/core/taxonomy"
	emailsvc "github.com/trezcool/shule/services/email"
	inmemdb "github.com/trezcool/shule/storage/database/inmem"
)

type testEnv struct {
	conf      *core.Config
	msgSvc    messaging.ServiceInterface
	acctSvc   account.ServiceInterface
	notifRepo notification.Repository
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
	taxSvc := taxonomy.NewService(inmemdb.NewTaxonomyRepository(db))
	notifSvc := notification.NewService(notifRepo, account.NewRecipientDirectory(acctRepo), mailSvc, conf)
	acctSvc := account.NewService(acctRepo, taxSvc, notifSvc, mailSvc, conf)
	msgSvc := messaging.NewService(inmemdb.NewMessageRepository(db), acctSvc, notifSvc, conf)

	return &testEnv{conf: conf, msgSvc: msgSvc, acctSvc: acctSvc, notifRepo: notifRepo}
}

func registerTeacher(t *testing.T, env *testEnv, uname, email string) account.Account {
	acct, err := env.acctSvc.Register(context.Background(), account.NewAccount{
		Role:    account.RoleTeacher,
		Teacher: &account.NewTeacher{Username: uname, Email: email, Password: "Str0ngPassw0rd", Subject: "Maths"},
	})
	require.NoError(t, err)
	return acct
}

func Test_service_Send(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	alice := registerTeacher(t, env, "alice", "alice@test.cd")
	bob := registerTeacher(t, env, "bob", "bob@test.cd")
	emailsvc.ClearSentMessages()

	msg, err := env.msgSvc.Send(ctx, alice.ID, bob.ID, "question", "When is the exam?")
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, alice.ID, msg.SenderID)
	assert.Equal(t, bob.ID, msg.RecipientID)
	assert.Equal(t, "question", msg.Category)
	assert.Empty(t, msg.Replies)

	// sender gets a confirmation notification, no email
	senderNotifs, err := env.notifRepo.QueryNotificationsByAccount(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, senderNotifs, 2) // welcome + confirmation, newest first
	assert.Equal(t, "Message Sent", senderNotifs[0].Title)

	// recipient gets an alert notification and an email
	recipNotifs, err := env.notifRepo.QueryNotificationsByAccount(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, recipNotifs, 2)
	assert.Equal(t, "New Message from alice", recipNotifs[0].Title)

	sent := emailsvc.GetSentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "bob@test.cd", sent[0].To[0].Address)
	assert.Equal(t, "New Message from alice", sent[0].Subject)
}

func Test_service_Send_unknownParties(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	alice := registerTeacher(t, env, "alice", "alice@test.cd")

	_, err := env.msgSvc.Send(ctx, alice.ID, "no-such-id", "question", "hello?")
	assert.ErrorIs(t, err, messaging.ErrRecipientNotFound)

	_, err = env.msgSvc.Send(ctx, "no-such-id", alice.ID, "question", "hello?")
	assert.ErrorIs(t, err, account.ErrNotFound)
}

func Test_service_Reply(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	alice := registerTeacher(t, env, "alice", "alice@test.cd")
	bob := registerTeacher(t, env, "bob", "bob@test.cd")
	carol := registerTeacher(t, env, "carol", "carol@test.cd")

	msg, err := env.msgSvc.Send(ctx, alice.ID, bob.ID, "question", "When is the exam?")
	require.NoError(t, err)
	emailsvc.ClearSentMessages()

	reply, err := env.msgSvc.Reply(ctx, msg.ID, bob.ID, "Next Monday.")
	require.NoError(t, err)
	assert.NotEmpty(t, reply.ID)
	assert.Equal(t, msg.ID, reply.MessageID)
	assert.Equal(t, bob.ID, reply.SenderID)

	// the original sender alone is alerted, with an email mirror
	aliceNotifs, err := env.notifRepo.QueryNotificationsByAccount(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "New Reply from bob", aliceNotifs[0].Title) // newest first

	sent := emailsvc.GetSentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "alice@test.cd", sent[0].To[0].Address)

	// a third party replying still alerts the original sender, not bob
	before, _ := env.notifRepo.QueryNotificationsByAccount(ctx, bob.ID)
	_, err = env.msgSvc.Reply(ctx, msg.ID, carol.ID, "Thanks!")
	require.NoError(t, err)
	after, _ := env.notifRepo.QueryNotificationsByAccount(ctx, bob.ID)
	assert.Len(t, after, len(before))

	// replies surface on the listed message, in arrival order
	msgs, err := env.msgSvc.ListMessages(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Len(t, msgs[0].Replies, 2)
	assert.Equal(t, "Next Monday.", msgs[0].Replies[0].Body)
	assert.Equal(t, "Thanks!", msgs[0].Replies[1].Body)
}

func Test_service_Reply_unknownMessage(t *testing.T) {
	env := setup(t)

	alice := registerTeacher(t, env, "alice", "alice@test.cd")
	_, err := env.msgSvc.Reply(context.Background(), "no-such-id", alice.ID, "hello?")
	assert.ErrorIs(t, err, messaging.ErrMessageNotFound)
}

func Test_service_ListMessages(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	alice := registerTeacher(t, env, "alice", "alice@test.cd")
	bob := registerTeacher(t, env, "bob", "bob@test.cd")
	carol := registerTeacher(t, env, "carol", "carol@test.cd")

	_, err := env.msgSvc.Send(ctx, alice.ID, bob.ID, "question", "one")
	require.NoError(t, err)
	_, err = env.msgSvc.Send(ctx, bob.ID, alice.ID, "general", "two")
	require.NoError(t, err)
	_, err = env.msgSvc.Send(ctx, bob.ID, carol.ID, "question", "three")
	require.NoError(t, err)

	// sent and received both count; the carol thread stays out
	msgs, err := env.msgSvc.ListMessages(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	msgs, err = env.msgSvc.ListMessages(ctx, carol.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "three", msgs[0].Body)
}
