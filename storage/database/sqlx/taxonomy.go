package sqlxrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/taxonomy"
)

type taxonomyRepository struct {
	db *sqlx.DB
}

var _ taxonomy.Repository = (*taxonomyRepository)(nil) // interface compliance check

func NewTaxonomyRepository(db *sqlx.DB) *taxonomyRepository {
	return &taxonomyRepository{db: db}
}

type gradeRow struct {
	ID         string `db:"id"`
	Level      string `db:"level"`
	Year       string `db:"year"`
	MasterType string `db:"master_type"`
}

type departmentRow struct {
	ID         string `db:"id"`
	Name       string `db:"name"`
	Level      string `db:"level"`
	MasterType string `db:"master_type"`
}

func (r gradeRow) toGrade() taxonomy.Grade {
	return taxonomy.Grade{ID: r.ID, Level: r.Level, Year: r.Year, MasterType: r.MasterType}
}

func (r departmentRow) toDepartment() taxonomy.Department {
	return taxonomy.Department{ID: r.ID, Name: r.Name, Level: r.Level, MasterType: r.MasterType}
}

func (repo *taxonomyRepository) GetGrade(ctx context.Context, level, year, masterType string) (taxonomy.Grade, error) {
	var row gradeRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT id, level, year, master_type FROM grade WHERE level = $1 AND year = $2 AND master_type = $3`,
		level, year, masterType,
	)
	if err != nil {
		return taxonomy.Grade{}, trapNoRowsErr(err, taxonomy.ErrGradeNotFound, "getting grade")
	}
	return row.toGrade(), nil
}

func (repo *taxonomyRepository) CreateGrade(ctx context.Context, grade taxonomy.Grade) (taxonomy.Grade, error) {
	grade.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO grade (id, level, year, master_type) VALUES ($1, $2, $3, $4)`,
		grade.ID, grade.Level, grade.Year, grade.MasterType,
	)
	if err != nil {
		if isUniqueViolation(err, "uq_grade_key") {
			return taxonomy.Grade{}, taxonomy.ErrGradeExists
		}
		return taxonomy.Grade{}, errors.Wrap(err, "inserting grade")
	}
	return grade, nil
}

func (repo *taxonomyRepository) GetDepartment(ctx context.Context, name, level, masterType string) (taxonomy.Department, error) {
	var row departmentRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT id, name, level, master_type FROM department WHERE name = $1 AND level = $2 AND master_type = $3`,
		name, level, masterType,
	)
	if err != nil {
		return taxonomy.Department{}, trapNoRowsErr(err, taxonomy.ErrDepartmentNotFound, "getting department")
	}
	return row.toDepartment(), nil
}

func (repo *taxonomyRepository) CreateDepartment(ctx context.Context, dept taxonomy.Department) (taxonomy.Department, error) {
	dept.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO department (id, name, level, master_type) VALUES ($1, $2, $3, $4)`,
		dept.ID, dept.Name, dept.Level, dept.MasterType,
	)
	if err != nil {
		if isUniqueViolation(err, "uq_department_key") {
			return taxonomy.Department{}, taxonomy.ErrDepartmentExists
		}
		return taxonomy.Department{}, errors.Wrap(err, "inserting department")
	}
	return dept, nil
}
