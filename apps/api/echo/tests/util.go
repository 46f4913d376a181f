package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/shule/apps/api/echo"
	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/account"
	"github.com/trezcool/shule/core/formation"
	"github.com/trezcool/shule/core/messaging"
	"github.com/trezcool/shule/core/notification"
	"github.com/trezcool/shule/core/taxonomy"
	emailsvc "github.com/trezcool/shule/services/email"
	loggersvc "github.com/trezcool/shule/services/logger"
	ratelimitsvc "github.com/trezcool/shule/services/ratelimit"
	inmemdb "github.com/trezcool/shule/storage/database/inmem"
)

var (
	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
)

type testEnv struct {
	app       Server
	conf      *core.Config
	acctSvc   account.ServiceInterface
	msgSvc    messaging.ServiceInterface
	notifSvc  notification.ServiceInterface
	formSvc   formation.ServiceInterface
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
	formSvc := formation.NewService(inmemdb.NewFormationRepository(db), acctSvc, notifSvc, conf)

	app := NewServer(ServerDeps{
		Conf:           conf,
		Logger:         loggersvc.NewNopLogger(),
		AccountSvc:     acctSvc,
		MessageSvc:     msgSvc,
		NotifSvc:       notifSvc,
		FormSvc:        formSvc,
		Limiter:        ratelimitsvc.NewMemoryLimiter(),
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
	})

	return &testEnv{
		app:       app,
		conf:      conf,
		acctSvc:   acctSvc,
		msgSvc:    msgSvc,
		notifSvc:  notifSvc,
		formSvc:   formSvc,
		notifRepo: notifRepo,
	}
}

// account factories; every account shares the same test password

const testPassword = "Str0ngPassw0rd"

func (env *testEnv) createTeacher(t *testing.T, uname, email string) account.Account {
	return env.register(t, account.NewAccount{
		Role:    account.RoleTeacher,
		Teacher: &account.NewTeacher{Username: uname, Email: email, Password: testPassword, Subject: "Maths"},
	})
}

func (env *testEnv) createTrainer(t *testing.T, uname, email string) account.Account {
	return env.register(t, account.NewAccount{
		Role:    account.RoleTrainer,
		Trainer: &account.NewTrainer{Username: uname, Email: email, Password: testPassword, TrainingArea: "DevOps"},
	})
}

func (env *testEnv) createAdmin(t *testing.T, uname, email string) account.Account {
	return env.register(t, account.NewAccount{
		Role:  account.RoleAdmin,
		Admin: &account.NewAdmin{Username: uname, Email: email, Password: testPassword, AdminRole: "superadmin"},
	})
}

func (env *testEnv) createStudent(t *testing.T, uname, email string) account.Account {
	return env.register(t, account.NewAccount{
		Role: account.RoleStudent,
		Student: &account.NewStudent{
			Username:       uname,
			Email:          email,
			Password:       testPassword,
			GradeLevel:     taxonomy.LevelBachelor,
			GradeYear:      taxonomy.Year1,
			DepartmentName: "Computer Science",
		},
	})
}

func (env *testEnv) register(t *testing.T, na account.NewAccount) account.Account {
	acct, err := env.acctSvc.Register(context.Background(), na)
	if err != nil {
		t.Fatalf("register() failed: %v", err)
	}
	return acct
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func (env *testEnv) getToken(t *testing.T, acct account.Account) string {
	token, err := GenerateToken(GetAccountClaims(acct, env.conf), env.conf)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ObjectsAreEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
