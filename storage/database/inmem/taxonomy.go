package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/shule/core/taxonomy"
)

type taxonomyRepository struct {
	grades      *gradeTable
	departments *departmentTable
}

var _ taxonomy.Repository = (*taxonomyRepository)(nil) // interface compliance check

func NewTaxonomyRepository(db *DB) *taxonomyRepository {
	return &taxonomyRepository{grades: db.grade, departments: db.department}
}

func (repo *taxonomyRepository) GetGrade(_ context.Context, level, year, masterType string) (taxonomy.Grade, error) {
	repo.grades.RLock()
	defer repo.grades.RUnlock()

	for _, g := range repo.grades.table {
		if g.Level == level && g.Year == year && g.MasterType == masterType {
			return *g, nil
		}
	}
	return taxonomy.Grade{}, taxonomy.ErrGradeNotFound
}

func (repo *taxonomyRepository) CreateGrade(_ context.Context, grade taxonomy.Grade) (taxonomy.Grade, error) {
	repo.grades.Lock()
	defer repo.grades.Unlock()

	// the compound key is unique, same as the DB constraint
	for _, g := range repo.grades.table {
		if g.Level == grade.Level && g.Year == grade.Year && g.MasterType == grade.MasterType {
			return taxonomy.Grade{}, taxonomy.ErrGradeExists
		}
	}
	grade.ID = uuid.New().String()
	repo.grades.table[grade.ID] = &grade
	return grade, nil
}

func (repo *taxonomyRepository) GetDepartment(_ context.Context, name, level, masterType string) (taxonomy.Department, error) {
	repo.departments.RLock()
	defer repo.departments.RUnlock()

	for _, d := range repo.departments.table {
		if d.Name == name && d.Level == level && d.MasterType == masterType {
			return *d, nil
		}
	}
	return taxonomy.Department{}, taxonomy.ErrDepartmentNotFound
}

func (repo *taxonomyRepository) CreateDepartment(_ context.Context, dept taxonomy.Department) (taxonomy.Department, error) {
	repo.departments.Lock()
	defer repo.departments.Unlock()

	for _, d := range repo.departments.table {
		if d.Name == dept.Name && d.Level == dept.Level && d.MasterType == dept.MasterType {
			return taxonomy.Department{}, taxonomy.ErrDepartmentExists
		}
	}
	dept.ID = uuid.New().String()
	repo.departments.table[dept.ID] = &dept
	return dept, nil
}
