package permissions

import (
	"fmt"
	"strings"

	"github.com/marmos91/refperm/pkg/access"
)

// RefPermission is an operation on a single ref.
type RefPermission int

const (
	RefRead RefPermission = iota + 1
	RefCreate
	RefDelete
	RefUpdate
	RefForceUpdate
	RefSetHead
	RefForgeAuthor
	RefForgeCommitter
	RefForgeServer
	RefMerge
	RefCreateChange
	RefCreateTag
	RefCreateSignedTag
	RefUpdateBySubmit
	RefReadPrivateChanges
	RefReadConfig
	RefWriteConfig
	RefSkipValidation
)

// AllRefPermissions lists every RefPermission in declaration order.
var AllRefPermissions = []RefPermission{
	RefRead, RefCreate, RefDelete, RefUpdate, RefForceUpdate, RefSetHead,
	RefForgeAuthor, RefForgeCommitter, RefForgeServer, RefMerge,
	RefCreateChange, RefCreateTag, RefCreateSignedTag, RefUpdateBySubmit,
	RefReadPrivateChanges, RefReadConfig, RefWriteConfig, RefSkipValidation,
}

var refPermissionNames = map[RefPermission]string{
	RefRead:               "READ",
	RefCreate:             "CREATE",
	RefDelete:             "DELETE",
	RefUpdate:             "UPDATE",
	RefForceUpdate:        "FORCE_UPDATE",
	RefSetHead:            "SET_HEAD",
	RefForgeAuthor:        "FORGE_AUTHOR",
	RefForgeCommitter:     "FORGE_COMMITTER",
	RefForgeServer:        "FORGE_SERVER",
	RefMerge:              "MERGE",
	RefCreateChange:       "CREATE_CHANGE",
	RefCreateTag:          "CREATE_TAG",
	RefCreateSignedTag:    "CREATE_SIGNED_TAG",
	RefUpdateBySubmit:     "UPDATE_BY_SUBMIT",
	RefReadPrivateChanges: "READ_PRIVATE_CHANGES",
	RefReadConfig:         "READ_CONFIG",
	RefWriteConfig:        "WRITE_CONFIG",
	RefSkipValidation:     "SKIP_VALIDATION",
}

// configNames maps ref permissions backed directly by one access
// permission to that permission's config name.
var configNames = map[RefPermission]string{
	RefRead:               access.Read,
	RefCreate:             access.Create,
	RefDelete:             access.Delete,
	RefUpdate:             access.Push,
	RefForgeAuthor:        access.ForgeAuthor,
	RefForgeCommitter:     access.ForgeCommitter,
	RefForgeServer:        access.ForgeServer,
	RefMerge:              access.PushMerge,
	RefCreateTag:          access.CreateTag,
	RefCreateSignedTag:    access.CreateSignedTag,
	RefReadPrivateChanges: access.ViewPrivateChanges,
}

var refAdvice = map[RefPermission]string{
	RefRead:               "You need 'Read' rights to fetch or clone this ref.",
	RefCreate:             "You need 'Create' rights to create new references.",
	RefDelete:             "You need 'Delete Reference' rights or 'Push' rights with the \n'Force Push' flag set to delete references.",
	RefUpdate:             "To push into this reference you need 'Push' rights.",
	RefForceUpdate:        "You need 'Push' rights with 'Force' flag set to do a non-fastforward push.",
	RefSetHead:            "You need 'Set HEAD' rights to set the default branch.",
	RefForgeAuthor:        "You need 'Forge Author' rights to push commits with another user as author.",
	RefForgeCommitter:     "You need 'Forge Committer' rights to push commits with another user as committer.",
	RefForgeServer:        "You need 'Forge Server' rights to push merge commits authored by the server.",
	RefMerge:              "You need 'Push Merge' in addition to 'Push' rights to push merge commits.",
	RefCreateChange:       "You need 'Create Change' rights to upload code review requests.\nVerify that you are pushing to the right branch.",
	RefCreateTag:          "You need 'Create Tag' rights to push a normal tag.",
	RefCreateSignedTag:    "You need 'Create Signed Tag' rights to push a signed tag.",
	RefUpdateBySubmit:     "You need 'Submit' rights on refs/for/ to submit changes during change upload.",
	RefReadPrivateChanges: "You need 'Read Private Changes' to see private changes.",
	RefReadConfig:         "You need 'Read' rights on refs/meta/config to see the configuration.",
	RefWriteConfig:        "You need 'Write' rights on refs/meta/config.",
	RefSkipValidation:     "You need 'Forge Author', 'Forge Server', 'Forge Committer'\nand 'Push Merge' rights to skip validation.",
}

const configUpdateAdvice = "Configuration changes can only be pushed by project owners\nwho also have 'Push' rights on " + RefsConfig

func (p RefPermission) String() string {
	if s, ok := refPermissionNames[p]; ok {
		return s
	}
	return fmt.Sprintf("RefPermission(%d)", int(p))
}

// IsValid reports whether p is a known permission.
func (p RefPermission) IsValid() bool {
	_, ok := refPermissionNames[p]
	return ok
}

// ParseRefPermission parses a permission name such as "FORCE_UPDATE" or
// "force-update", case-insensitively.
func ParseRefPermission(s string) (RefPermission, error) {
	norm := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	for p, name := range refPermissionNames {
		if name == norm {
			return p, nil
		}
	}
	return 0, &UnsupportedPermissionError{Permission: s}
}

// PermissionName returns the access permission that grants p, if p maps
// to exactly one.
func (p RefPermission) PermissionName() (string, bool) {
	name, ok := configNames[p]
	return name, ok
}

// Advice returns the hint shown when p is denied on ref.
func (p RefPermission) Advice(ref string) string {
	if p == RefUpdate && ref == RefsConfig {
		return configUpdateAdvice
	}
	return refAdvice[p]
}

// IsWrite reports whether p modifies the repository.
func (p RefPermission) IsWrite() bool {
	switch p {
	case RefRead, RefReadConfig, RefReadPrivateChanges:
		return false
	default:
		return true
	}
}
