package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/hazard-Tom2004/TESA-API/core/material"
)

type materialRepository struct {
	db *materialTable
}

var _ material.Repository = (*materialRepository)(nil) // interface compliance check

func NewMaterialRepository(db *DB) material.Repository {
	return &materialRepository{db: db.material}
}

func (repo *materialRepository) CreateMaterial(ctx context.Context, mat *material.Material) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	cp := *mat
	repo.db.materials[mat.ID] = &cp
	return nil
}

func (repo *materialRepository) GetMaterialByID(ctx context.Context, id string) (material.Material, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if mat, ok := repo.db.materials[id]; ok {
		return *mat, nil
	}
	return material.Material{}, material.ErrNotFound
}

func (repo *materialRepository) QueryMaterialsByCourse(ctx context.Context, courseID string) ([]material.Material, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	return repo.query(func(mat material.Material) bool { return mat.CourseID == courseID }), nil
}

func (repo *materialRepository) QueryMaterialsByCategory(ctx context.Context, category string) ([]material.Material, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	return repo.query(func(mat material.Material) bool { return mat.Category == category }), nil
}

func (repo *materialRepository) SearchMaterials(ctx context.Context, query string) ([]material.Material, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	q := strings.ToLower(query)
	return repo.query(func(mat material.Material) bool {
		return strings.Contains(strings.ToLower(mat.Name), q) ||
			strings.Contains(strings.ToLower(mat.Description), q)
	}), nil
}

// query must be called with the table lock held.
func (repo *materialRepository) query(match func(material.Material) bool) []material.Material {
	materials := make([]material.Material, 0, len(repo.db.materials))
	for _, mat := range repo.db.materials {
		if match(*mat) {
			materials = append(materials, *mat)
		}
	}
	sort.Slice(materials, func(i, j int) bool { return materials[i].CreatedAt.Before(materials[j].CreatedAt) })
	return materials
}

func (repo *materialRepository) CreateSuggestion(ctx context.Context, sug *material.Suggestion) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	cp := *sug
	repo.db.suggestions[sug.ID] = &cp
	return nil
}

func (repo *materialRepository) GetSuggestionByID(ctx context.Context, id string) (material.Suggestion, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if sug, ok := repo.db.suggestions[id]; ok {
		return *sug, nil
	}
	return material.Suggestion{}, material.ErrSuggestionNotFound
}

func (repo *materialRepository) QuerySuggestionsByStatus(ctx context.Context, status string) ([]material.Suggestion, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	suggestions := make([]material.Suggestion, 0, len(repo.db.suggestions))
	for _, sug := range repo.db.suggestions {
		if sug.Status == status {
			suggestions = append(suggestions, *sug)
		}
	}
	sort.Slice(suggestions, func(i, j int) bool { return suggestions[i].CreatedAt.Before(suggestions[j].CreatedAt) })
	return suggestions, nil
}

func (repo *materialRepository) UpdateSuggestion(ctx context.Context, sug *material.Suggestion) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.suggestions[sug.ID]; !ok {
		return material.ErrSuggestionNotFound
	}
	cp := *sug
	repo.db.suggestions[sug.ID] = &cp
	return nil
}

func (repo *materialRepository) CountSuggestionsByStatus(ctx context.Context) (material.Stats, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var stats material.Stats
	for _, sug := range repo.db.suggestions {
		switch sug.Status {
		case material.StatusPending:
			stats.Pending++
		case material.StatusApproved:
			stats.Approved++
		case material.StatusRejected:
			stats.Rejected++
		}
	}
	return stats, nil
}
