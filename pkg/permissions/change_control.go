package permissions

import (
	"slices"

	"github.com/marmos91/refperm/pkg/access"
)

// ChangeControl answers permission questions for one user on one change.
type ChangeControl struct {
	rc     *RefControl
	change *Change
}

// ForChange returns the control for change. The change's destination ref
// selects the rules.
func (pc *ProjectControl) ForChange(change *Change) *ChangeControl {
	return &ChangeControl{rc: pc.ForRef(change.Dest), change: change}
}

// RefControl returns the control for the destination ref.
func (cc *ChangeControl) RefControl() *RefControl { return cc.rc }

// Change returns the change being evaluated.
func (cc *ChangeControl) Change() *Change { return cc.change }

func (cc *ChangeControl) pc() *ProjectControl { return cc.rc.pc }

// IsOwner reports whether the caller owns the change.
func (cc *ChangeControl) IsOwner() bool {
	u := cc.pc().user
	return u.IsIdentified() && u.ID > 0 && u.ID == cc.change.Owner
}

// IsReviewer reports whether the caller is a reviewer of the change.
func (cc *ChangeControl) IsReviewer() bool {
	u := cc.pc().user
	return u.IsIdentified() && u.ID > 0 && slices.Contains(cc.change.Reviewers, u.ID)
}

// IsVisible reports whether the caller may read the change.
func (cc *ChangeControl) IsVisible() bool {
	pc := cc.pc()
	if pc.user.IsInternal() {
		return true
	}
	if cc.change.Private && !(cc.IsOwner() || cc.IsReviewer() || cc.rc.CanPerform(access.ViewPrivateChanges)) {
		return false
	}
	if cc.change.Status == StatusDraft && !cc.canSeeDrafts() {
		return false
	}
	return cc.rc.IsVisible()
}

func (cc *ChangeControl) canSeeDrafts() bool {
	return cc.IsOwner() || cc.IsReviewer() || cc.rc.CanPerform(access.ViewDrafts) || cc.pc().user.IsInternal()
}

func (cc *ChangeControl) isPatchSetVisible() bool {
	return !cc.change.PatchSet.Draft || cc.canSeeDrafts()
}

// IsPatchSetLocked reports whether a patch-set-lock label currently holds
// the change.
func (cc *ChangeControl) IsPatchSetLocked() bool {
	if cc.change.Status == StatusMerged {
		return false
	}
	for label, value := range cc.change.Approvals {
		if value != 1 {
			continue
		}
		if lt := cc.pc().LabelType(label); lt != nil && lt.IsPatchSetLock() {
			return true
		}
	}
	return false
}

// isManager covers the callers allowed to manage any change on the ref.
func (cc *ChangeControl) isManager() bool {
	pc := cc.pc()
	return cc.rc.IsOwner() || pc.IsOwner() || pc.IsAdmin()
}

func (cc *ChangeControl) canAbandon() bool {
	return (cc.IsOwner() || cc.isManager() || cc.rc.CanPerform(access.Abandon)) && !cc.IsPatchSetLocked()
}

func (cc *ChangeControl) canRestore() bool {
	return cc.canAbandon() && cc.rc.canUpload()
}

func (cc *ChangeControl) canRebase() bool {
	return (cc.IsOwner() || cc.rc.canSubmit(cc.IsOwner()) || cc.rc.CanPerform(access.Rebase)) &&
		cc.rc.canUpload() && !cc.IsPatchSetLocked()
}

func (cc *ChangeControl) canAddPatchSet() bool {
	if !cc.change.IsOpen() || !cc.rc.canUpload() || cc.IsPatchSetLocked() || !cc.isPatchSetVisible() {
		return false
	}
	return cc.IsOwner() || cc.rc.canAddPatchSet()
}

// CanRemoveReviewer reports whether the caller may remove reviewer, whose
// current vote is value, from the change.
func (cc *ChangeControl) CanRemoveReviewer(reviewer, value int) bool {
	if !cc.change.IsOpen() {
		return false
	}
	u := cc.pc().user
	if u.IsIdentified() && u.ID > 0 && u.ID == reviewer {
		return true
	}
	if cc.IsOwner() && value >= 0 {
		return true
	}
	return cc.rc.CanPerform(access.RemoveReviewer) || cc.isManager()
}

func (cc *ChangeControl) canEditTopicName() bool {
	if cc.change.IsOpen() {
		return cc.IsOwner() || cc.isManager() || cc.rc.CanPerform(access.EditTopicName)
	}
	return cc.rc.canForceEditTopicName()
}

func (cc *ChangeControl) canEditHashtags() bool {
	return cc.IsOwner() || cc.isManager() || cc.rc.CanPerform(access.EditHashtags)
}

func (cc *ChangeControl) canDelete() bool {
	if cc.change.Status == StatusMerged {
		return false
	}
	return cc.pc().IsAdmin() || cc.rc.canDeleteChanges(cc.IsOwner())
}

// CanVote reports whether the caller may cast value on label.
func (cc *ChangeControl) CanVote(label string, value int) bool {
	r, _ := cc.rc.Range(access.LabelPermission(label), cc.IsOwner())
	return r.Contains(value)
}

// LabelRanges returns the caller's vote ranges on the change.
func (cc *ChangeControl) LabelRanges() []access.PermissionRange {
	return cc.rc.LabelRanges(cc.IsOwner())
}

// Can evaluates a change permission. Only READ is possible on projects
// whose state does not permit writes. REMOVE_REVIEWER without a specific
// reviewer asks whether the caller may remove reviewers other than
// themselves; use CanRemoveReviewer for a concrete vote.
func (cc *ChangeControl) Can(perm ChangePermission) (bool, error) {
	if !perm.IsValid() {
		return false, &UnsupportedPermissionError{Permission: perm.String()}
	}
	if perm != ChangeRead && !cc.pc().state.StatePermitsWrite() {
		return false, nil
	}

	switch perm {
	case ChangeRead:
		return cc.IsVisible(), nil
	case ChangeAbandon:
		return cc.canAbandon(), nil
	case ChangeRestore:
		return cc.canRestore(), nil
	case ChangeRebase:
		return cc.canRebase(), nil
	case ChangeAddPatchSet:
		return cc.canAddPatchSet(), nil
	case ChangeRemoveReviewer:
		return cc.change.IsOpen() && (cc.rc.CanPerform(access.RemoveReviewer) || cc.isManager()), nil
	case ChangeEditTopicName:
		return cc.canEditTopicName(), nil
	case ChangeEditHashtags:
		return cc.canEditHashtags(), nil
	case ChangeSubmit:
		return cc.rc.canSubmit(cc.IsOwner()), nil
	case ChangeSubmitAs:
		return cc.rc.CanPerform(access.SubmitAs), nil
	case ChangeDelete:
		return cc.canDelete(), nil
	}
	return false, &UnsupportedPermissionError{Permission: perm.String()}
}
