package taxonomy

import (
	"context"
	"errors"

	pkgerrors "github.com/pkg/errors"
)

var (
	// errors
	ErrGradeNotFound      = errors.New("grade not found")
	ErrDepartmentNotFound = errors.New("department not found")
	// ErrGradeExists / ErrDepartmentExists signal a unique-key violation on
	// create; the resolver treats them as "someone else created it first".
	ErrGradeExists      = errors.New("a grade with this level, year and master type already exists")
	ErrDepartmentExists = errors.New("a department with this name, level and master type already exists")
)

type (
	Repository interface {
		GetGrade(ctx context.Context, level, year, masterType string) (Grade, error)
		CreateGrade(ctx context.Context, grade Grade) (Grade, error)
		GetDepartment(ctx context.Context, name, level, masterType string) (Department, error)
		CreateDepartment(ctx context.Context, dept Department) (Department, error)
	}

	ServiceInterface interface {
		ResolveGrade(ctx context.Context, level, year, masterType string) (Grade, error)
		ResolveDepartment(ctx context.Context, name, level, masterType string) (Department, error)
	}

	service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository) ServiceInterface {
	return &service{repo: repo}
}

// ResolveGrade returns the Grade row for the given natural key, creating it
// on first use. Find-or-create races resolve to the winning row; a given key
// is persisted at most once no matter how many registrations reference it.
func (svc *service) ResolveGrade(ctx context.Context, level, year, masterType string) (Grade, error) {
	if err := ValidateGrade(level, year, masterType); err != nil {
		return Grade{}, err
	}

	grade, err := svc.repo.GetGrade(ctx, level, year, masterType)
	if err == nil {
		return grade, nil
	}
	if pkgerrors.Cause(err) != ErrGradeNotFound {
		return Grade{}, pkgerrors.Wrap(err, "finding grade")
	}

	grade, err = svc.repo.CreateGrade(ctx, Grade{Level: level, Year: year, MasterType: masterType})
	if err != nil {
		if pkgerrors.Cause(err) == ErrGradeExists {
			// lost the race: fetch and reuse
			return svc.repo.GetGrade(ctx, level, year, masterType)
		}
		return Grade{}, pkgerrors.Wrap(err, "creating grade")
	}
	return grade, nil
}

// ResolveDepartment returns the Department row for the given natural key,
// creating it on first use; same race discipline as ResolveGrade.
func (svc *service) ResolveDepartment(ctx context.Context, name, level, masterType string) (Department, error) {
	if err := ValidateLevel(level, masterType); err != nil {
		return Department{}, err
	}
	if err := ValidateDepartment(name, level, masterType); err != nil {
		return Department{}, err
	}

	dept, err := svc.repo.GetDepartment(ctx, name, level, masterType)
	if err == nil {
		return dept, nil
	}
	if pkgerrors.Cause(err) != ErrDepartmentNotFound {
		return Department{}, pkgerrors.Wrap(err, "finding department")
	}

	dept, err = svc.repo.CreateDepartment(ctx, Department{Name: name, Level: level, MasterType: masterType})
	if err != nil {
		if pkgerrors.Cause(err) == ErrDepartmentExists {
			return svc.repo.GetDepartment(ctx, name, level, masterType)
		}
		return Department{}, pkgerrors.Wrap(err, "creating department")
	}
	return dept, nil
}
