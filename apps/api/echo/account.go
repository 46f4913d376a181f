package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/account"
	"github.com/trezcool/shule/core/taxonomy"
)

type accountApi struct {
	svc      account.ServiceInterface
	limiter  core.RateLimiter
	validate *validator.Validate
	conf     *core.Config
}

func registerAccountAPI(app *echo.Echo, jwt echo.MiddlewareFunc, deps *ServerDeps) {
	api := accountApi{
		svc:      deps.AccountSvc,
		limiter:  deps.Limiter,
		validate: deps.Validate,
		conf:     deps.Conf,
	}

	// un-authed endpoints
	app.POST("/register/:role", api.register)
	app.POST("/auth/login", api.login)
	app.POST("/forgot-password", api.forgotPassword)
	app.POST("/verify-code", api.verifyCode)
	app.POST("/reset-password", api.resetPassword)

	// public catalog reads
	app.GET("/getGradeOptions", api.gradeOptions)
	app.GET("/getDepartmentOptions", api.departmentOptions)
	app.GET("/getTeachers", api.teachers)
	app.GET("/getAdminRegistrationStatus", api.adminRegistrationStatus)

	// admin endpoints
	app.POST("/setAdminRegistrationStatus", api.setAdminRegistrationStatus, jwt, roleMiddleware(account.RoleAdmin))
	app.GET("/getDashboardStats", api.dashboardStats, jwt, roleMiddleware(account.RoleAdmin))
}

// Handlers

func (api *accountApi) register(ctx echo.Context) error {
	na := account.NewAccount{Role: ctx.Param("role")}
	if !account.IsValidRole(na.Role) {
		return core.NewValidationError(nil, core.FieldError{Field: "role", Error: "invalid role"})
	}

	switch na.Role {
	case account.RoleStudent:
		na.Student = new(account.NewStudent)
		if err := ctx.Bind(na.Student); err != nil {
			return errors.Wrap(err, "binding to NewStudent")
		}
	case account.RoleTeacher:
		na.Teacher = new(account.NewTeacher)
		if err := ctx.Bind(na.Teacher); err != nil {
			return errors.Wrap(err, "binding to NewTeacher")
		}
	case account.RoleTrainer:
		na.Trainer = new(account.NewTrainer)
		if err := ctx.Bind(na.Trainer); err != nil {
			return errors.Wrap(err, "binding to NewTrainer")
		}
	case account.RoleAdmin:
		na.Admin = new(account.NewAdmin)
		if err := ctx.Bind(na.Admin); err != nil {
			return errors.Wrap(err, "binding to NewAdmin")
		}
	case account.RoleGuest:
		na.Guest = new(account.NewGuest)
		if err := ctx.Bind(na.Guest); err != nil {
			return errors.Wrap(err, "binding to NewGuest")
		}
	}
	if err := na.Validate(api.validate); err != nil {
		return err
	}

	acct, err := api.svc.Register(ctx.Request().Context(), na)
	if err != nil {
		return errors.Wrap(err, "registering account")
	}
	return ctx.JSON(http.StatusCreated, RegisterResponse{UserID: acct.ID})
}

func (api *accountApi) login(ctx echo.Context) error {
	if err := api.limiter.Allow(ctx.Request().Context(), "login", ctx.RealIP(), api.conf.LoginRateLimit); err != nil {
		return err
	}

	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	acct, err := api.svc.Authenticate(ctx.Request().Context(), data.Email, data.Password, data.UserType)
	if err != nil {
		return err
	}
	token, err := GenerateToken(GetAccountClaims(acct, api.conf), api.conf)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, UserID: acct.ID})
}

func (api *accountApi) forgotPassword(ctx echo.Context) error {
	if err := api.limiter.Allow(ctx.Request().Context(), "forgot-password", ctx.RealIP(), api.conf.ResetRateLimit); err != nil {
		return err
	}

	var data EmailRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EmailRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.RequestPasswordReset(ctx.Request().Context(), data.Email); err != nil {
		return errors.Wrap(err, "requesting password reset")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "A reset code has been sent to your email address."})
}

func (api *accountApi) verifyCode(ctx echo.Context) error {
	var data VerifyCodeRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to VerifyCodeRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.VerifyResetCode(ctx.Request().Context(), data.Email, data.Code); err != nil {
		return errors.Wrap(err, "verifying reset code")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Code verified."})
}

func (api *accountApi) resetPassword(ctx echo.Context) error {
	var data ResetPasswordRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetPasswordRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.ResetPassword(ctx.Request().Context(), data.Email, data.NewPassword); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}

func (api *accountApi) gradeOptions(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, taxonomy.GradeOptions())
}

func (api *accountApi) departmentOptions(ctx echo.Context) error {
	level := core.CleanString(ctx.QueryParam("level"))
	masterType := core.CleanString(ctx.QueryParam("masterType"))
	if err := taxonomy.ValidateLevel(level, masterType); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, taxonomy.DepartmentOptions(level, masterType))
}

func (api *accountApi) teachers(ctx echo.Context) error {
	teachers, err := api.svc.Teachers(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying teachers")
	}
	if teachers == nil {
		teachers = []account.TeacherInfo{}
	}
	return ctx.JSON(http.StatusOK, teachers)
}

func (api *accountApi) adminRegistrationStatus(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, AdminRegistrationStatusResponse{Enabled: api.svc.AdminSignupAllowed()})
}

func (api *accountApi) setAdminRegistrationStatus(ctx echo.Context) error {
	var data AdminRegistrationStatusResponse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AdminRegistrationStatusResponse")
	}
	api.svc.SetAdminSignupAllowed(data.Enabled)
	return ctx.JSON(http.StatusOK, data)
}

func (api *accountApi) dashboardStats(ctx echo.Context) error {
	stats, err := api.svc.RegistrationStats(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying registration stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

type (
	RegisterResponse struct {
		UserID string `json:"userId"`
	}

	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
		UserType string `json:"userType" validate:"required"`
	}

	LoginResponse struct {
		Token  string `json:"token"`
		UserID string `json:"userId"`
	}

	EmailRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	VerifyCodeRequest struct {
		Email string `json:"email" validate:"required,email"`
		Code  string `json:"code" validate:"required,len=4"`
	}

	ResetPasswordRequest struct {
		Email       string `json:"email" validate:"required,email"`
		NewPassword string `json:"newPassword" validate:"required"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}

	AdminRegistrationStatusResponse struct {
		Enabled bool `json:"enabled"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	lr.UserType = core.CleanString(lr.UserType, true)
	return validate.Struct(lr)
}

func (er *EmailRequest) Validate(validate *validator.Validate) error {
	er.Email = core.CleanString(er.Email, true /* lower */)
	return validate.Struct(er)
}

func (vr *VerifyCodeRequest) Validate(validate *validator.Validate) error {
	vr.Email = core.CleanString(vr.Email, true /* lower */)
	vr.Code = core.CleanString(vr.Code)
	return validate.Struct(vr)
}

func (rr *ResetPasswordRequest) Validate(validate *validator.Validate) error {
	rr.Email = core.CleanString(rr.Email, true /* lower */)
	return validate.Struct(rr)
}
