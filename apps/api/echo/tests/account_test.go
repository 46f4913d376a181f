package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/shule/apps/api/echo"
	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/account"
	"github.com/trezcool/shule/core/taxonomy"
)

func Test_accountApi_register(t *testing.T) {
	env := setup(t)

	studentBody := marchallObj(t, map[string]string{
		"username":       "jdoe",
		"email":          "jdoe@test.cd",
		"password":       testPassword,
		"gradeLevel":     taxonomy.LevelBachelor,
		"gradeYear":      taxonomy.Year1,
		"departmentName": "Computer Science",
	})
	guestBody := marchallObj(t, map[string]string{"email": "guest@test.cd", "password": testPassword})

	t.Run("student is created", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/register/student", studentBody)
		env.app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)
		var resp RegisterResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.UserID)

		acct, err := env.acctSvc.GetByID(context.Background(), resp.UserID)
		require.NoError(t, err)
		assert.Equal(t, account.RoleStudent, acct.Role)
		assert.NotEmpty(t, acct.GradeID)
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/register/student", studentBody)
		env.app.ServeHTTP(rec, req)

		tt := httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "email already registered"})}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("guest is created", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/register/guest", guestBody)
		env.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("unknown role rejected", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/register/wizard", guestBody)
		env.app.ServeHTTP(rec, req)

		tt := httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"role": "invalid role"})}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("missing fields rejected", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/register/teacher", marchallObj(t, map[string]string{"email": "x@test.cd"}))
		env.app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var fldErrs map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fldErrs))
		assert.Contains(t, fldErrs, "username")
		assert.Contains(t, fldErrs, "password")
		assert.Contains(t, fldErrs, "subject")
	})

	t.Run("admin registration can be closed", func(t *testing.T) {
		env.acctSvc.SetAdminSignupAllowed(false)
		defer env.acctSvc.SetAdminSignupAllowed(true)

		body := marchallObj(t, map[string]string{
			"username": "boss", "email": "boss@test.cd", "password": testPassword, "adminRole": "superadmin",
		})
		req, rec := newRequest(http.MethodPost, "/register/admin", body)
		env.app.ServeHTTP(rec, req)

		tt := httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "admin registration disabled"})}
		checkCodeAndData(t, tt, rec)
	})
}

func Test_accountApi_login(t *testing.T) {
	env := setup(t)
	teacher := env.createTeacher(t, "prof", "prof@test.cd")

	t.Run("valid credentials", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"email": teacher.Email, "password": testPassword, "userType": account.RoleTeacher})
		req, rec := newRequest(http.MethodPost, "/auth/login", body)
		env.app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp LoginResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, teacher.ID, resp.UserID)
	})

	t.Run("wrong password", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"email": teacher.Email, "password": "nope", "userType": account.RoleTeacher})
		req, rec := newRequest(http.MethodPost, "/auth/login", body)
		env.app.ServeHTTP(rec, req)

		tt := httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Error: "invalid credentials"})}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("wrong role", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"email": teacher.Email, "password": testPassword, "userType": account.RoleStudent})
		req, rec := newRequest(http.MethodPost, "/auth/login", body)
		env.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func Test_accountApi_login_rateLimited(t *testing.T) {
	env := setup(t)
	env.conf.LoginRateLimit = core.WindowLimit{Max: 2, Window: time.Hour}

	body := marchallObj(t, map[string]string{"email": "x@test.cd", "password": "nope", "userType": account.RoleTeacher})
	for i := 0; i < 2; i++ {
		req, rec := newRequest(http.MethodPost, "/auth/login", body)
		env.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	req, rec := newRequest(http.MethodPost, "/auth/login", body)
	env.app.ServeHTTP(rec, req)
	tt := httpTest{wantCode: http.StatusTooManyRequests, wantData: marchallObj(t, httpErr{Error: "too many attempts, try again later"})}
	checkCodeAndData(t, tt, rec)
}

func Test_accountApi_passwordReset(t *testing.T) {
	env := setup(t)
	teacher := env.createTeacher(t, "prof", "prof@test.cd")
	success := func(msg string) []byte { return marchallObj(t, map[string]string{"success": msg}) }

	t.Run("forgot-password issues a code", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"email": teacher.Email})
		req, rec := newRequest(http.MethodPost, "/forgot-password", body)
		env.app.ServeHTTP(rec, req)

		tt := httpTest{wantCode: http.StatusOK, wantData: success("A reset code has been sent to your email address.")}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("unknown email", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"email": "ghost@test.cd"})
		req, rec := newRequest(http.MethodPost, "/forgot-password", body)
		env.app.ServeHTTP(rec, req)

		tt := httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})}
		checkCodeAndData(t, tt, rec)
	})

	// read the issued code back through the service layer
	acct, err := env.acctSvc.GetByEmail(context.Background(), teacher.Email)
	require.NoError(t, err)
	require.True(t, acct.HasResetChallenge())
	code := acct.ResetCode

	t.Run("wrong code rejected", func(t *testing.T) {
		wrong := "0000"
		if code == wrong {
			wrong = "1111"
		}
		body := marchallObj(t, map[string]string{"email": teacher.Email, "code": wrong})
		req, rec := newRequest(http.MethodPost, "/verify-code", body)
		env.app.ServeHTTP(rec, req)

		tt := httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "invalid reset code"})}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("reset before verification refused", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"email": teacher.Email, "newPassword": "N3wPassw0rd!"})
		req, rec := newRequest(http.MethodPost, "/reset-password", body)
		env.app.ServeHTTP(rec, req)

		tt := httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "reset code not verified"})}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("verify then reset", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"email": teacher.Email, "code": code})
		req, rec := newRequest(http.MethodPost, "/verify-code", body)
		env.app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusOK, wantData: success("Code verified.")}
		checkCodeAndData(t, tt, rec)

		body = marchallObj(t, map[string]string{"email": teacher.Email, "newPassword": "N3wPassw0rd!"})
		req, rec = newRequest(http.MethodPost, "/reset-password", body)
		env.app.ServeHTTP(rec, req)
		tt = httpTest{wantCode: http.StatusOK, wantData: success("Password has been reset with the new password.")}
		checkCodeAndData(t, tt, rec)

		_, err := env.acctSvc.Authenticate(context.Background(), teacher.Email, "N3wPassw0rd!", account.RoleTeacher)
		assert.NoError(t, err)
	})
}

func Test_accountApi_catalog(t *testing.T) {
	env := setup(t)

	t.Run("grade options", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/getGradeOptions")
		env.app.ServeHTTP(rec, req)

		tt := httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, taxonomy.GradeOptions())}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("department options", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/getDepartmentOptions?level=Bachelor")
		env.app.ServeHTTP(rec, req)

		tt := httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, taxonomy.DepartmentOptions(taxonomy.LevelBachelor, ""))}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("department options need a valid level", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/getDepartmentOptions?level=PhD")
		env.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("teacher directory", func(t *testing.T) {
		teacher := env.createTeacher(t, "prof", "prof@test.cd")

		req, rec := newRequest(http.MethodGet, "/getTeachers")
		env.app.ServeHTTP(rec, req)

		tt := httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, []account.TeacherInfo{
			{ID: teacher.ID, Username: "prof", Subject: "Maths"},
		})}
		checkCodeAndData(t, tt, rec)
	})
}

func Test_accountApi_adminEndpoints(t *testing.T) {
	env := setup(t)
	admin := env.createAdmin(t, "boss", "boss@test.cd")
	teacher := env.createTeacher(t, "prof", "prof@test.cd")
	adminToken := env.getToken(t, admin)
	teacherToken := env.getToken(t, teacher)

	tests := []httpTest{
		{
			name: "registration status is public", method: http.MethodGet, path: "/getAdminRegistrationStatus",
			wantCode: http.StatusOK, wantData: marchallObj(t, AdminRegistrationStatusResponse{Enabled: true}),
		},
		{
			name: "set status needs a token", method: http.MethodPost, path: "/setAdminRegistrationStatus",
			body:     marchallObj(t, AdminRegistrationStatusResponse{Enabled: false}),
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "set status needs the admin role", method: http.MethodPost, path: "/setAdminRegistrationStatus",
			body: marchallObj(t, AdminRegistrationStatusResponse{Enabled: false}), token: teacherToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "admin sets status", method: http.MethodPost, path: "/setAdminRegistrationStatus",
			body: marchallObj(t, AdminRegistrationStatusResponse{Enabled: false}), token: adminToken,
			wantCode: http.StatusOK, wantData: marchallObj(t, AdminRegistrationStatusResponse{Enabled: false}),
		},
		{
			name: "status reflects the change", method: http.MethodGet, path: "/getAdminRegistrationStatus",
			wantCode: http.StatusOK, wantData: marchallObj(t, AdminRegistrationStatusResponse{Enabled: false}),
		},
		{
			name: "dashboard stats are admin-only", method: http.MethodGet, path: "/getDashboardStats", token: teacherToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "admin reads dashboard stats", method: http.MethodGet, path: "/getDashboardStats", token: adminToken,
			wantCode: http.StatusOK, wantData: marchallObj(t, account.RegistrationStats{Daily: 2, Weekly: 2, Monthly: 2}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			env.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
