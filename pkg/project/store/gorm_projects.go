package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/marmos91/refperm/pkg/access"
)

// ============================================
// PROJECT OPERATIONS
// ============================================

func byPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position")
}

// preloadConfig loads every child table of a project in declaration order.
func preloadConfig(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Sections", byPosition).
		Preload("Sections.Permissions", byPosition).
		Preload("Sections.Permissions.Rules", byPosition).
		Preload("Labels", byPosition).
		Preload("Labels.Values", func(db *gorm.DB) *gorm.DB { return db.Order("value") })
}

func (s *GORMStore) Load(ctx context.Context, name string) (*access.ProjectConfig, error) {
	var row projectRow
	err := preloadConfig(s.db.WithContext(ctx)).
		Where("name = ?", name).
		First(&row).Error
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, convertNotFoundError(err, ErrProjectNotFound))
	}
	return row.toConfig(), nil
}

func (s *GORMStore) Revision(ctx context.Context, name string) (string, error) {
	row, err := firstWhere[projectRow](s.db, ctx, "name", name, ErrProjectNotFound)
	if err != nil {
		return "", fmt.Errorf("revision %s: %w", name, err)
	}
	return row.Revision, nil
}

func (s *GORMStore) List(ctx context.Context) ([]string, error) {
	var names []string
	if err := s.db.WithContext(ctx).Model(&projectRow{}).Order("name").Pluck("name", &names).Error; err != nil {
		return nil, err
	}
	return names, nil
}

func (s *GORMStore) Create(ctx context.Context, cfg *access.ProjectConfig) error {
	if err := checkCommit(cfg); err != nil {
		return err
	}
	row := toRows(cfg, newRevision())
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateProject, cfg.Name)
		}
		return err
	}
	return nil
}

func (s *GORMStore) Commit(ctx context.Context, cfg *access.ProjectConfig, expectedRevision, _ string) (string, error) {
	if err := checkCommit(cfg); err != nil {
		return "", err
	}

	revision := newRevision()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current projectRow
		if err := tx.Where("name = ?", cfg.Name).First(&current).Error; err != nil {
			return convertNotFoundError(err, ErrProjectNotFound)
		}

		q := tx.Model(&projectRow{}).Where("name = ?", cfg.Name)
		if expectedRevision != "" {
			q = q.Where("revision = ?", expectedRevision)
		}
		res := q.Updates(map[string]any{
			"parent":      cfg.Parent,
			"description": cfg.Description,
			"state":       string(cfg.EffectiveStatus()),
			"revision":    revision,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &StaleRevisionError{Project: cfg.Name, Expected: expectedRevision, Actual: current.Revision}
		}

		if err := deleteChildren(tx, cfg.Name); err != nil {
			return err
		}
		row := toRows(cfg, revision)
		if len(row.Sections) > 0 {
			if err := tx.Create(&row.Sections).Error; err != nil {
				return err
			}
		}
		if len(row.Labels) > 0 {
			if err := tx.Create(&row.Labels).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("commit %s: %w", cfg.Name, err)
	}
	return revision, nil
}

func (s *GORMStore) SetParent(ctx context.Context, child, parent string) (string, error) {
	revision := newRevision()
	res := s.db.WithContext(ctx).Model(&projectRow{}).
		Where("name = ?", child).
		Updates(map[string]any{"parent": parent, "revision": revision})
	if res.Error != nil {
		return "", res.Error
	}
	if res.RowsAffected == 0 {
		return "", fmt.Errorf("%w: %s", ErrProjectNotFound, child)
	}
	return revision, nil
}

func (s *GORMStore) Delete(ctx context.Context, name string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteChildren(tx, name); err != nil {
			return err
		}
		err := deleteWhere[projectRow](tx, ctx, "name", name, ErrProjectNotFound)
		if err != nil {
			return fmt.Errorf("delete %s: %w", name, err)
		}
		return nil
	})
}

func (s *GORMStore) Rename(ctx context.Context, oldName, newName string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&projectRow{}).Where("name = ?", newName).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: %s", ErrDuplicateProject, newName)
		}

		res := tx.Model(&projectRow{}).Where("name = ?", oldName).
			Updates(map[string]any{"name": newName, "revision": newRevision()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", ErrProjectNotFound, oldName)
		}

		// SQLite does not enforce the cascades; PostgreSQL already applied them.
		if err := tx.Model(&sectionRow{}).Where("project = ?", oldName).Update("project", newName).Error; err != nil {
			return err
		}
		if err := tx.Model(&labelRow{}).Where("project = ?", oldName).Update("project", newName).Error; err != nil {
			return err
		}
		return tx.Model(&projectRow{}).Where("parent = ?", oldName).
			Updates(map[string]any{"parent": newName, "revision": newRevision()}).Error
	})
}

// deleteChildren removes every section, permission, rule and label of a
// project, leaving the project row.
func deleteChildren(tx *gorm.DB, project string) error {
	var sectionIDs, permissionIDs, labelIDs []string
	if err := tx.Model(&sectionRow{}).Where("project = ?", project).Pluck("id", &sectionIDs).Error; err != nil {
		return err
	}
	if len(sectionIDs) > 0 {
		if err := tx.Model(&permissionRow{}).Where("section_id IN ?", sectionIDs).Pluck("id", &permissionIDs).Error; err != nil {
			return err
		}
	}
	if len(permissionIDs) > 0 {
		if err := tx.Where("permission_id IN ?", permissionIDs).Delete(&ruleRow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("id IN ?", permissionIDs).Delete(&permissionRow{}).Error; err != nil {
			return err
		}
	}
	if len(sectionIDs) > 0 {
		if err := tx.Where("id IN ?", sectionIDs).Delete(&sectionRow{}).Error; err != nil {
			return err
		}
	}

	if err := tx.Model(&labelRow{}).Where("project = ?", project).Pluck("id", &labelIDs).Error; err != nil {
		return err
	}
	if len(labelIDs) > 0 {
		if err := tx.Where("label_id IN ?", labelIDs).Delete(&labelValueRow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("id IN ?", labelIDs).Delete(&labelRow{}).Error; err != nil {
			return err
		}
	}
	return nil
}
