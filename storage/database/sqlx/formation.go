package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/formation"
)

type formationRepository struct {
	db *sqlx.DB
}

var _ formation.Repository = (*formationRepository)(nil) // interface compliance check

func NewFormationRepository(db *sqlx.DB) *formationRepository {
	return &formationRepository{db: db}
}

type formationRow struct {
	ID        string    `db:"id"`
	TrainerID string    `db:"trainer_id"`
	Name      string    `db:"name"`
	Year      int       `db:"year"`
	CreatedAt time.Time `db:"created_at"`
}

func (r formationRow) toFormation() formation.Formation {
	return formation.Formation{
		ID:        r.ID,
		TrainerID: r.TrainerID,
		Name:      r.Name,
		Year:      r.Year,
		CreatedAt: r.CreatedAt.UTC(),
	}
}

func (repo *formationRepository) GetFormation(ctx context.Context, name string, year int) (formation.Formation, error) {
	var row formationRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT id, trainer_id, name, year, created_at FROM formation WHERE name = $1 AND year = $2`, name, year)
	if err != nil {
		return formation.Formation{}, trapNoRowsErr(err, formation.ErrNotFound, "getting formation")
	}
	return row.toFormation(), nil
}

func (repo *formationRepository) CreateFormation(ctx context.Context, f formation.Formation) (formation.Formation, error) {
	f.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO formation (id, trainer_id, name, year, created_at) VALUES ($1, $2, $3, $4, $5)`,
		f.ID, f.TrainerID, f.Name, f.Year, f.CreatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err, "uq_formation_name_year") {
			return formation.Formation{}, formation.ErrFormationExists
		}
		return formation.Formation{}, errors.Wrap(err, "inserting formation")
	}
	return f, nil
}

func (repo *formationRepository) QueryAllFormations(ctx context.Context) ([]formation.Formation, error) {
	var rows []formationRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT id, trainer_id, name, year, created_at FROM formation ORDER BY created_at DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "querying formations")
	}
	fs := make([]formation.Formation, 0, len(rows))
	for _, r := range rows {
		fs = append(fs, r.toFormation())
	}
	return fs, nil
}
