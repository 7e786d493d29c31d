package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/marmos91/refperm/pkg/access"
	"github.com/marmos91/refperm/pkg/identity"
)

// Account and group errors.
var (
	ErrDuplicateAccount = errors.New("account already exists")
	ErrGroupNotFound    = errors.New("group not found")
	ErrDuplicateGroup   = errors.New("group already exists")
)

// ============================================
// ACCOUNT AND GROUP OPERATIONS
// ============================================

// LookupUser implements identity.Directory.
func (s *GORMStore) LookupUser(ctx context.Context, username string) (*identity.User, error) {
	row, err := firstWhere[accountRow](s.db, ctx, "username", username, identity.ErrUserNotFound, "Emails")
	if err != nil {
		return nil, err
	}

	u := &identity.User{ID: row.ID, Name: row.Username, Admin: row.Admin}
	for _, e := range row.Emails {
		u.Emails = append(u.Emails, e.Email)
	}

	var groups []string
	if err := s.db.WithContext(ctx).Model(&groupMemberRow{}).
		Where("account_id = ?", row.ID).
		Order("group_uuid").
		Pluck("group_uuid", &groups).Error; err != nil {
		return nil, err
	}
	for _, g := range groups {
		u.Groups = append(u.Groups, access.GroupUUID(g))
	}
	return u, nil
}

// GroupIncludes implements identity.Directory.
func (s *GORMStore) GroupIncludes(ctx context.Context) (map[access.GroupUUID][]access.GroupUUID, error) {
	var rows []groupMemberRow
	if err := s.db.WithContext(ctx).Where("include_uuid <> ''").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[access.GroupUUID][]access.GroupUUID)
	for _, r := range rows {
		g := access.GroupUUID(r.GroupUUID)
		out[g] = append(out[g], access.GroupUUID(r.IncludeUUID))
	}
	return out, nil
}

// CreateAccount stores an account with its emails. Group memberships in u
// are added as direct members of existing groups.
func (s *GORMStore) CreateAccount(ctx context.Context, u *identity.User) error {
	if u.ID <= 0 || u.Name == "" {
		return fmt.Errorf("account needs an id and a username")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := &accountRow{ID: u.ID, Username: u.Name, Admin: u.Admin}
		for _, e := range u.Emails {
			row.Emails = append(row.Emails, accountEmailRow{AccountID: u.ID, Email: e})
		}
		if err := tx.Create(row).Error; err != nil {
			if isUniqueConstraintError(err) {
				return fmt.Errorf("%w: %s", ErrDuplicateAccount, u.Name)
			}
			return err
		}
		for _, g := range u.Groups {
			id := u.ID
			if err := tx.Create(&groupMemberRow{GroupUUID: string(g), AccountID: &id}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// CreateGroup stores a group and returns its UUID. A new UUID is generated
// when groupUUID is empty.
func (s *GORMStore) CreateGroup(ctx context.Context, groupUUID access.GroupUUID, name, description string) (access.GroupUUID, error) {
	if groupUUID == "" {
		groupUUID = access.GroupUUID(uuid.NewString())
	}
	if identity.IsSystemGroup(groupUUID) {
		return "", fmt.Errorf("%s is a system group", groupUUID)
	}
	row := &groupRow{UUID: string(groupUUID), Name: name, Description: description}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		if isUniqueConstraintError(err) {
			return "", fmt.Errorf("%w: %s", ErrDuplicateGroup, name)
		}
		return "", err
	}
	return groupUUID, nil
}

// Groups returns every stored group.
func (s *GORMStore) Groups(ctx context.Context) ([]access.GroupReference, error) {
	rows, err := findAll[groupRow](s.db, ctx)
	if err != nil {
		return nil, err
	}
	out := make([]access.GroupReference, 0, len(rows))
	for _, r := range rows {
		out = append(out, access.GroupReference{UUID: access.GroupUUID(r.UUID), Name: r.Name})
	}
	return out, nil
}

// AddMember makes the account called username a direct member of group.
func (s *GORMStore) AddMember(ctx context.Context, group access.GroupUUID, username string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := firstWhere[groupRow](tx, ctx, "uuid", string(group), ErrGroupNotFound); err != nil {
			return err
		}
		acct, err := firstWhere[accountRow](tx, ctx, "username", username, identity.ErrUserNotFound)
		if err != nil {
			return err
		}
		return tx.Create(&groupMemberRow{GroupUUID: string(group), AccountID: &acct.ID}).Error
	})
}

// IncludeGroup makes every member of included a member of group.
func (s *GORMStore) IncludeGroup(ctx context.Context, group, included access.GroupUUID) error {
	if _, err := firstWhere[groupRow](s.db, ctx, "uuid", string(group), ErrGroupNotFound); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Create(&groupMemberRow{GroupUUID: string(group), IncludeUUID: string(included)}).Error
}
