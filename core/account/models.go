package account

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/shule/core"
)

// Roles
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleTrainer = "trainer"
	RoleAdmin   = "admin"
	RoleGuest   = "guest"
)

var AllRoles = []string{RoleStudent, RoleTeacher, RoleTrainer, RoleAdmin, RoleGuest}

func IsValidRole(role string) bool {
	for _, r := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

type Account struct {
	ID           string    `json:"id"`
	Role         string    `json:"role"`
	Username     string    `json:"username,omitempty"` // empty for guests
	Email        string    `json:"email"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`           // UTC
	ExpiresAt    time.Time `json:"expires_at,omitempty"` // guests only

	// student
	GradeID      string `json:"grade_id,omitempty"`
	DepartmentID string `json:"department_id,omitempty"`
	// teacher
	Subject string `json:"subject,omitempty"`
	// trainer
	TrainingArea string `json:"training_area,omitempty"`
	// admin
	AdminRole string `json:"admin_role,omitempty"`

	// reset challenge; at most one live per account
	ResetCode         string    `json:"-"`
	ResetCodeExpires  time.Time `json:"-"`
	ResetCodeVerified bool      `json:"-"`
}

func (a *Account) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	a.PasswordHash = hash
	return nil
}

func (a *Account) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(pwd))
}

func (a *Account) IsStudent() bool { return a.Role == RoleStudent }
func (a *Account) IsTeacher() bool { return a.Role == RoleTeacher }
func (a *Account) IsTrainer() bool { return a.Role == RoleTrainer }
func (a *Account) IsAdmin() bool   { return a.Role == RoleAdmin }
func (a *Account) IsGuest() bool   { return a.Role == RoleGuest }

// HasExpired reports whether a guest account's lifetime elapsed.
// Accounts without an expiry never expire.
func (a *Account) HasExpired(now time.Time) bool {
	return !a.ExpiresAt.IsZero() && a.ExpiresAt.Before(now)
}

// DisplayName is the name used in notifications and emails.
func (a *Account) DisplayName() string {
	if a.Username == "" {
		return "Guest"
	}
	return a.Username
}

// HasResetChallenge reports whether a reset code is outstanding.
func (a *Account) HasResetChallenge() bool { return a.ResetCode != "" }

// ClearResetChallenge drops any outstanding reset code.
func (a *Account) ClearResetChallenge() {
	a.ResetCode = ""
	a.ResetCodeExpires = time.Time{}
	a.ResetCodeVerified = false
}

// Role-variant registration payloads. Each variant carries only the fields
// its role requires; NewAccount tags the variant with the role.

type (
	NewStudent struct {
		Username       string `json:"username" validate:"required"`
		Email          string `json:"email" validate:"required,email"`
		Password       string `json:"password" validate:"required,min=8"`
		GradeLevel     string `json:"gradeLevel" validate:"required"`
		GradeYear      string `json:"gradeYear" validate:"required"`
		MasterType     string `json:"masterType"`
		DepartmentName string `json:"departmentName" validate:"required"`
	}

	NewTeacher struct {
		Username string `json:"username" validate:"required"`
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=8"`
		Subject  string `json:"subject" validate:"required"`
	}

	NewTrainer struct {
		Username     string `json:"username" validate:"required"`
		Email        string `json:"email" validate:"required,email"`
		Password     string `json:"password" validate:"required,min=8"`
		TrainingArea string `json:"trainingArea" validate:"required"`
	}

	NewAdmin struct {
		Username  string `json:"username" validate:"required"`
		Email     string `json:"email" validate:"required,email"`
		Password  string `json:"password" validate:"required,min=8"`
		AdminRole string `json:"adminRole" validate:"required"`
	}

	NewGuest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=8"`
	}

	// NewAccount is the role-tagged registration payload; exactly one variant
	// matching Role must be set.
	NewAccount struct {
		Role    string
		Student *NewStudent
		Teacher *NewTeacher
		Trainer *NewTrainer
		Admin   *NewAdmin
		Guest   *NewGuest
	}
)

func (ns *NewStudent) clean() {
	ns.Username = core.CleanString(ns.Username)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.GradeLevel = core.CleanString(ns.GradeLevel)
	ns.GradeYear = core.CleanString(ns.GradeYear)
	ns.MasterType = core.CleanString(ns.MasterType)
	ns.DepartmentName = core.CleanString(ns.DepartmentName)
}

func (nt *NewTeacher) clean() {
	nt.Username = core.CleanString(nt.Username)
	nt.Email = core.CleanString(nt.Email, true)
	nt.Subject = core.CleanString(nt.Subject)
}

func (nt *NewTrainer) clean() {
	nt.Username = core.CleanString(nt.Username)
	nt.Email = core.CleanString(nt.Email, true)
	nt.TrainingArea = core.CleanString(nt.TrainingArea)
}

func (na *NewAdmin) clean() {
	na.Username = core.CleanString(na.Username)
	na.Email = core.CleanString(na.Email, true)
	na.AdminRole = core.CleanString(na.AdminRole)
}

func (ng *NewGuest) clean() {
	ng.Email = core.CleanString(ng.Email, true)
}

// Validate cleans and validates the variant selected by Role.
func (na *NewAccount) Validate(validate *validator.Validate) error {
	var variant interface{ clean() }
	switch na.Role {
	case RoleStudent:
		variant = na.Student
	case RoleTeacher:
		variant = na.Teacher
	case RoleTrainer:
		variant = na.Trainer
	case RoleAdmin:
		variant = na.Admin
	case RoleGuest:
		variant = na.Guest
	default:
		return core.NewValidationError(nil, core.FieldError{Field: "role", Error: "invalid role"})
	}
	if isNilVariant(na) {
		return core.NewValidationError(nil, core.FieldError{Field: "role", Error: "missing fields for role " + na.Role})
	}
	variant.clean()
	return validate.Struct(variant)
}

func isNilVariant(na *NewAccount) bool {
	switch na.Role {
	case RoleStudent:
		return na.Student == nil
	case RoleTeacher:
		return na.Teacher == nil
	case RoleTrainer:
		return na.Trainer == nil
	case RoleAdmin:
		return na.Admin == nil
	case RoleGuest:
		return na.Guest == nil
	}
	return true
}

// Email returns the variant's email; Validate must have succeeded.
func (na *NewAccount) email() string {
	switch na.Role {
	case RoleStudent:
		return na.Student.Email
	case RoleTeacher:
		return na.Teacher.Email
	case RoleTrainer:
		return na.Trainer.Email
	case RoleAdmin:
		return na.Admin.Email
	case RoleGuest:
		return na.Guest.Email
	}
	return ""
}

func (na *NewAccount) password() string {
	switch na.Role {
	case RoleStudent:
		return na.Student.Password
	case RoleTeacher:
		return na.Teacher.Password
	case RoleTrainer:
		return na.Trainer.Password
	case RoleAdmin:
		return na.Admin.Password
	case RoleGuest:
		return na.Guest.Password
	}
	return ""
}

// TeacherInfo is the public directory entry served to the messaging UI.
type TeacherInfo struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Subject  string `json:"subject"`
}

// RegistrationStats are the admin dashboard counters.
type RegistrationStats struct {
	Daily   int `json:"daily"`
	Weekly  int `json:"weekly"`
	Monthly int `json:"monthly"`
}
