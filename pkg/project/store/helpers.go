package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// withPreloads scopes db to ctx and eager-loads the named associations.
func withPreloads(db *gorm.DB, ctx context.Context, preloads []string) *gorm.DB {
	q := db.WithContext(ctx)
	for _, p := range preloads {
		q = q.Preload(p)
	}
	return q
}

// firstWhere loads the row of T whose column equals value. A missing row
// becomes notFound.
//
//	acct, err := firstWhere[accountRow](db, ctx, "username", "alice", identity.ErrUserNotFound, "Emails")
func firstWhere[T any](db *gorm.DB, ctx context.Context, column string, value any, notFound error, preloads ...string) (*T, error) {
	var row T
	if err := withPreloads(db, ctx, preloads).Where(column+" = ?", value).First(&row).Error; err != nil {
		return nil, convertNotFoundError(err, notFound)
	}
	return &row, nil
}

// findAll loads every row of T.
func findAll[T any](db *gorm.DB, ctx context.Context, preloads ...string) ([]*T, error) {
	var rows []*T
	if err := withPreloads(db, ctx, preloads).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// deleteWhere removes the rows of T whose column equals value, failing with
// notFound when there were none.
func deleteWhere[T any](db *gorm.DB, ctx context.Context, column string, value any, notFound error) error {
	res := db.WithContext(ctx).Where(column+" = ?", value).Delete(new(T))
	switch {
	case res.Error != nil:
		return res.Error
	case res.RowsAffected == 0:
		return notFound
	default:
		return nil
	}
}

// convertNotFoundError maps gorm.ErrRecordNotFound to a domain sentinel.
func convertNotFoundError(err, notFound error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return err
}
