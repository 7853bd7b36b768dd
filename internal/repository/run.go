// Package repository is the gorm data-access layer over internal/db's
// sqlite handle, following the teacher's internal/repository convention
// of one small struct per table with plain method-per-query access (no
// generic repository abstraction).
package repository

import (
	"gcsync/internal/db"
	"gcsync/internal/model"
)

type RunRepository struct{}

func NewRunRepository() *RunRepository {
	return &RunRepository{}
}

// Save persists one completed run. Callers build h from
// internal/engine.Result plus whatever fatal error Sync returned.
func (r *RunRepository) Save(h *model.RunHistory) error {
	return db.DB.Create(h).Error
}

func (r *RunRepository) GetRecent(limit int) ([]model.RunHistory, error) {
	var runs []model.RunHistory
	result := db.DB.Order("started_at desc").Limit(limit).Find(&runs)
	return runs, result.Error
}

func (r *RunRepository) GetFailed() ([]model.RunHistory, error) {
	var runs []model.RunHistory
	result := db.DB.Where("status = ?", model.RunStatusFailed).Order("started_at desc").Find(&runs)
	return runs, result.Error
}
