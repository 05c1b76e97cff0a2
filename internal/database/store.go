package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"actioncore/internal/condition"
	"actioncore/internal/models"
)

// EntityStore 基于 gorm 的实体查询，实现 condition.EntityStore
type EntityStore struct {
	db  *gorm.DB
	loc condition.Localizer
}

// NewEntityStore creates a store. loc localizes discovery check type names and may be nil.
func NewEntityStore(db *gorm.DB, loc condition.Localizer) *EntityStore {
	return &EntityStore{db: db, loc: loc}
}

// Get loads the entities of one category. Ids that do not exist are left out of the result.
func (s *EntityStore) Get(ctx context.Context, category condition.Category, ids []uint64) (map[uint64]condition.Entity, error) {
	result := make(map[uint64]condition.Entity, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	db := s.db.WithContext(ctx)

	switch category {
	case condition.CategoryHostGroup:
		var rows []models.HostGroup
		if err := db.Where("id IN ?", ids).Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, r := range rows {
			result[r.ID] = condition.Entity{ID: r.ID, Name: r.Name}
		}

	case condition.CategoryHost, condition.CategoryTemplate:
		var rows []models.Host
		isTemplate := category == condition.CategoryTemplate
		if err := db.Where("id IN ? AND is_template = ?", ids, isTemplate).Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, r := range rows {
			result[r.ID] = condition.Entity{ID: r.ID, Name: r.Name}
		}

	case condition.CategoryTrigger:
		var rows []models.Trigger
		if err := db.Preload("Host").Where("id IN ?", ids).Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, r := range rows {
			result[r.ID] = condition.Entity{ID: r.ID, Name: r.Description, Parent: r.Host.Name}
		}

	case condition.CategoryProxy:
		var rows []models.Proxy
		if err := db.Where("id IN ?", ids).Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, r := range rows {
			result[r.ID] = condition.Entity{ID: r.ID, Name: r.Name}
		}

	case condition.CategoryDRule:
		var rows []models.DRule
		if err := db.Where("id IN ?", ids).Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, r := range rows {
			result[r.ID] = condition.Entity{ID: r.ID, Name: r.Name}
		}

	case condition.CategoryDCheck:
		var rows []models.DCheck
		if err := db.Preload("DRule").Where("id IN ?", ids).Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, r := range rows {
			result[r.ID] = condition.Entity{
				ID:     r.ID,
				Name:   condition.DCheckLabel(s.loc, r.Type, r.Ports),
				Parent: r.DRule.Name,
			}
		}

	case condition.CategoryService:
		var rows []models.Service
		if err := db.Where("id IN ?", ids).Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, r := range rows {
			result[r.ID] = condition.Entity{ID: r.ID, Name: r.Name}
		}

	default:
		return nil, fmt.Errorf("unknown entity category: %s", category)
	}

	return result, nil
}
