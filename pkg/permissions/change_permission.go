package permissions

import (
	"fmt"
	"strings"
)

// ChangePermission is an operation on a change.
type ChangePermission int

const (
	ChangeRead ChangePermission = iota + 1
	ChangeAbandon
	ChangeRestore
	ChangeRebase
	ChangeAddPatchSet
	ChangeRemoveReviewer
	ChangeEditTopicName
	ChangeEditHashtags
	ChangeSubmit
	ChangeSubmitAs
	ChangeDelete
)

// AllChangePermissions lists every ChangePermission in declaration order.
var AllChangePermissions = []ChangePermission{
	ChangeRead, ChangeAbandon, ChangeRestore, ChangeRebase, ChangeAddPatchSet,
	ChangeRemoveReviewer, ChangeEditTopicName, ChangeEditHashtags,
	ChangeSubmit, ChangeSubmitAs, ChangeDelete,
}

var changePermissionNames = map[ChangePermission]string{
	ChangeRead:           "READ",
	ChangeAbandon:        "ABANDON",
	ChangeRestore:        "RESTORE",
	ChangeRebase:         "REBASE",
	ChangeAddPatchSet:    "ADD_PATCH_SET",
	ChangeRemoveReviewer: "REMOVE_REVIEWER",
	ChangeEditTopicName:  "EDIT_TOPIC_NAME",
	ChangeEditHashtags:   "EDIT_HASHTAGS",
	ChangeSubmit:         "SUBMIT",
	ChangeSubmitAs:       "SUBMIT_AS",
	ChangeDelete:         "DELETE",
}

func (p ChangePermission) String() string {
	if s, ok := changePermissionNames[p]; ok {
		return s
	}
	return fmt.Sprintf("ChangePermission(%d)", int(p))
}

// IsValid reports whether p is a known permission.
func (p ChangePermission) IsValid() bool {
	_, ok := changePermissionNames[p]
	return ok
}

// ParseChangePermission parses a permission name such as "ADD_PATCH_SET",
// case-insensitively.
func ParseChangePermission(s string) (ChangePermission, error) {
	norm := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	for p, name := range changePermissionNames {
		if name == norm {
			return p, nil
		}
	}
	return 0, &UnsupportedPermissionError{Permission: s}
}
