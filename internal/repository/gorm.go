package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// NewGormStore wires every repository to one GORM handle.
func NewGormStore(db *gorm.DB) *Store {
	return &Store{
		Identities:    &gormIdentities{db: db},
		RefreshTokens: &gormRefreshTokens{db: db},
		Profiles:      &gormProfiles{db: db},
		Stages:        &gormStages{db: db},
		Workflows:     &gormWorkflows{db: db},
		Flows:         &gormFlows{db: db},
		Progress:      &gormProgress{db: db},
		Notes:         &gormNotes{db: db},
		Events:        &gormEvents{db: db},
	}
}

// translate maps GORM's sentinel errors onto the repository ones.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}

type countRow struct {
	Key   string
	Count int64
}

func groupCount(db *gorm.DB, model interface{}, column string) (map[string]int64, error) {
	var rows []countRow
	err := db.Model(model).
		Select(fmt.Sprintf("%s AS key, COUNT(*) AS count", column)).
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make(map[string]int64, len(rows))
	for _, r := range rows {
		result[r.Key] = r.Count
	}
	return result, nil
}
