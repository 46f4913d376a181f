package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/shule/core/formation"
)

type formationRepository struct {
	db *formationTable
}

var _ formation.Repository = (*formationRepository)(nil) // interface compliance check

func NewFormationRepository(db *DB) *formationRepository {
	return &formationRepository{db: db.formation}
}

func (repo *formationRepository) GetFormation(_ context.Context, name string, year int) (formation.Formation, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, f := range repo.db.table {
		if f.Name == name && f.Year == year {
			return *f, nil
		}
	}
	return formation.Formation{}, formation.ErrNotFound
}

func (repo *formationRepository) CreateFormation(_ context.Context, f formation.Formation) (formation.Formation, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	// (name, year) is unique, same as the DB constraint
	for _, existing := range repo.db.table {
		if existing.Name == f.Name && existing.Year == f.Year {
			return formation.Formation{}, formation.ErrFormationExists
		}
	}
	f.ID = uuid.New().String()
	repo.db.table[f.ID] = &f
	return f, nil
}

func (repo *formationRepository) QueryAllFormations(_ context.Context) ([]formation.Formation, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	fs := make([]formation.Formation, 0, len(repo.db.table))
	for _, f := range repo.db.table {
		fs = append(fs, *f)
	}
	// newest first
	sort.Slice(fs, func(i, j int) bool { return fs[i].CreatedAt.After(fs[j].CreatedAt) })
	return fs, nil
}
