package permissions

import (
	"fmt"
	"math"
	"slices"

	"github.com/marmos91/refperm/internal/logger"
	"github.com/marmos91/refperm/pkg/access"
	"github.com/marmos91/refperm/pkg/collector"
)

// Special refs.
const (
	// RefsConfig holds the project configuration itself.
	RefsConfig = "refs/meta/config"
	// RefsForPrefix is the magic namespace for uploading changes for review.
	RefsForPrefix = "refs/for/"
)

// RefControl answers permission questions for one user on one ref.
type RefControl struct {
	pc       *ProjectControl
	ref      string
	relevant *collector.Collection

	owner   *bool
	visible *bool
}

// Ref returns the ref name.
func (rc *RefControl) Ref() string { return rc.ref }

// ProjectControl returns the owning project control.
func (rc *RefControl) ProjectControl() *ProjectControl { return rc.pc }

// Collection returns the effective rules for the ref.
func (rc *RefControl) Collection() *collector.Collection { return rc.relevant }

// IsOwner reports whether the caller owns the ref, either by an "owner"
// grant on it or by owning the project.
func (rc *RefControl) IsOwner() bool {
	if rc.owner == nil {
		v := rc.CanPerform(access.Owner) || rc.pc.IsOwner()
		rc.owner = &v
	}
	return *rc.owner
}

// IsVisible reports whether the caller may see that the ref exists.
// Nothing in a hidden project is visible to regular callers.
func (rc *RefControl) IsVisible() bool {
	if rc.visible == nil {
		v := rc.pc.user.IsInternal() ||
			(rc.pc.state.StatePermitsRead() && rc.CanPerform(access.Read))
		rc.visible = &v
	}
	return *rc.visible
}

// CanPerform reports whether the caller holds the boolean permission.
func (rc *RefControl) CanPerform(permission string) bool {
	return rc.canPerform(permission, false, false)
}

// Range returns the votes the caller may cast for a ranged permission, or
// false if permission carries no range.
func (rc *RefControl) Range(permission string, isChangeOwner bool) (access.PermissionRange, bool) {
	if !access.HasRange(permission) {
		return access.PermissionRange{}, false
	}
	return rc.toRange(permission, isChangeOwner), true
}

// LabelRanges returns the vote range of every ranged permission with an
// effective rule on the ref, sorted by permission name.
func (rc *RefControl) LabelRanges(isChangeOwner bool) []access.PermissionRange {
	var out []access.PermissionRange
	for _, name := range rc.relevant.Names() {
		if r, ok := rc.Range(name, isChangeOwner); ok {
			out = append(out, r)
		}
	}
	return out
}

// Can evaluates a ref permission. Hidden projects refuse everything to
// non-internal callers, and write permissions are refused outright on
// projects whose state does not permit writes.
func (rc *RefControl) Can(perm RefPermission) (bool, error) {
	if !perm.IsValid() {
		return false, &UnsupportedPermissionError{Permission: perm.String()}
	}
	if !rc.pc.user.IsInternal() && !rc.pc.state.StatePermitsRead() {
		return false, nil
	}
	if perm.IsWrite() && !rc.pc.state.StatePermitsWrite() {
		return false, nil
	}

	switch perm {
	case RefRead:
		return rc.IsVisible(), nil
	case RefCreate, RefCreateTag, RefCreateSignedTag:
		name, _ := perm.PermissionName()
		return rc.CanPerform(name), nil
	case RefDelete:
		return rc.canDelete(), nil
	case RefUpdate:
		return rc.canUpdate(), nil
	case RefForceUpdate:
		return rc.canForceUpdate(), nil
	case RefSetHead:
		return rc.pc.IsOwner(), nil
	case RefForgeAuthor:
		return rc.CanPerform(access.ForgeAuthor), nil
	case RefForgeCommitter:
		return rc.CanPerform(access.ForgeCommitter), nil
	case RefForgeServer:
		return rc.CanPerform(access.ForgeServer), nil
	case RefMerge:
		return rc.canUploadMerges(), nil
	case RefCreateChange:
		return rc.canUpload(), nil
	case RefUpdateBySubmit:
		return rc.pc.ForRef(RefsForPrefix+rc.ref).canSubmit(true), nil
	case RefReadPrivateChanges:
		return rc.CanPerform(access.ViewPrivateChanges), nil
	case RefReadConfig:
		return rc.pc.ForRef(RefsConfig).CanPerform(access.Read), nil
	case RefWriteConfig:
		return rc.IsOwner(), nil
	case RefSkipValidation:
		return rc.CanPerform(access.ForgeAuthor) &&
			rc.CanPerform(access.ForgeCommitter) &&
			rc.CanPerform(access.ForgeServer) &&
			rc.canUploadMerges(), nil
	}
	return false, &UnsupportedPermissionError{Permission: perm.String()}
}

// Test evaluates every permission in perms and returns those allowed.
func (rc *RefControl) Test(perms ...RefPermission) ([]RefPermission, error) {
	var ok []RefPermission
	for _, p := range perms {
		allowed, err := rc.Can(p)
		if err != nil {
			return nil, err
		}
		if allowed {
			ok = append(ok, p)
		}
	}
	return ok, nil
}

// denialReason describes why perm is refused. It is only meaningful after
// Can returned false.
func (rc *RefControl) denialReason(perm RefPermission) string {
	st := rc.pc.state
	if !st.StatePermitsRead() || (perm.IsWrite() && !st.StatePermitsWrite()) {
		return fmt.Sprintf("project %s is %s", st.Name(), st.Status())
	}
	if rc.ref == RefsConfig && (perm == RefUpdate || perm == RefForceUpdate) && !rc.pc.IsOwner() {
		return "configuration changes require project ownership"
	}
	if name, ok := perm.PermissionName(); ok && rc.isBlocked(name, false, false) {
		return fmt.Sprintf("%s is blocked on %s", name, rc.ref)
	}
	return fmt.Sprintf("no rule grants %s on %s", perm, rc.ref)
}

func (rc *RefControl) canSubmit(isChangeOwner bool) bool {
	if rc.ref == RefsConfig {
		// Submitting to the config rewrites access rules, so it stays with
		// project owners.
		return rc.pc.IsOwner()
	}
	return rc.canPerform(access.Submit, isChangeOwner, false)
}

func (rc *RefControl) canAddPatchSet() bool {
	return rc.pc.ForRef(RefsForPrefix + rc.ref).CanPerform(access.AddPatchSet)
}

func (rc *RefControl) canForceEditTopicName() bool {
	return rc.canPerform(access.EditTopicName, false, true)
}

func (rc *RefControl) canDeleteChanges(isChangeOwner bool) bool {
	return rc.CanPerform(access.DeleteChanges) ||
		(isChangeOwner && rc.canPerform(access.DeleteOwnChanges, isChangeOwner, false))
}

func (rc *RefControl) canUpload() bool {
	return rc.pc.ForRef(RefsForPrefix + rc.ref).CanPerform(access.Push)
}

func (rc *RefControl) canUploadMerges() bool {
	return rc.pc.ForRef(RefsForPrefix + rc.ref).CanPerform(access.PushMerge)
}

func (rc *RefControl) canUpdate() bool {
	if rc.ref == RefsConfig && !rc.pc.IsOwner() {
		// Owner rights cannot be granted on the root project, so its
		// administrators may push configuration without them.
		if !(rc.pc.state.IsRoot() && rc.pc.IsAdmin()) {
			return false
		}
	}
	return rc.CanPerform(access.Push)
}

func (rc *RefControl) canForceUpdate() bool {
	return rc.canPushWithForce() ||
		(rc.IsOwner() && !rc.isBlocked(access.Push, false, true)) ||
		rc.pc.IsAdmin()
}

func (rc *RefControl) canPushWithForce() bool {
	if rc.ref == RefsConfig && !rc.pc.IsOwner() {
		return false
	}
	return rc.canPerform(access.Push, false, true)
}

func (rc *RefControl) canDelete() bool {
	// Owners may delete without force rights unless force push is blocked.
	return (rc.IsOwner() && !rc.isBlocked(access.Push, false, true)) ||
		rc.canPushWithForce() ||
		rc.CanPerform(access.Delete) ||
		rc.pc.IsAdmin()
}

func isAllowRule(r *access.Rule, withForce bool) bool {
	return r.IsAllow() && (r.Force || !withForce)
}

// isBlockRule reports whether r blocks. A forced block is weaker: it only
// blocks forced use of the permission.
func isBlockRule(r *access.Rule, withForce bool) bool {
	return r.IsBlock() && (!r.Force || withForce)
}

func (rc *RefControl) canPerform(permission string, isChangeOwner, withForce bool) bool {
	if rc.isBlocked(permission, isChangeOwner, withForce) {
		rc.trace(permission, withForce, false, "blocked")
		return false
	}
	for _, r := range rc.relevant.Rules(permission) {
		if isAllowRule(r.Rule, withForce) && rc.pc.match(r.Rule, isChangeOwner) {
			rc.trace(permission, withForce, true, "granted by "+r.Pattern)
			return true
		}
	}
	rc.trace(permission, withForce, false, "no matching rule")
	return false
}

func (rc *RefControl) trace(permission string, withForce, allowed bool, reason string) {
	logger.Debug("Ref permission evaluated",
		logger.User(rc.pc.user.LoggableName()),
		logger.KeyPermission, permission,
		"force", withForce,
		logger.Project(rc.pc.state.Name()),
		logger.Ref(rc.ref),
		logger.Decision(allowed),
		logger.Reason(reason))
}

// isBlocked walks the candidate permissions project by project, most
// specific section first. An exclusive grant matching the caller ends the
// walk for its project; otherwise a matching block holds unless an allow
// for the caller sits in the same permission.
func (rc *RefControl) isBlocked(permission string, isChangeOwner, withForce bool) bool {
	for _, perms := range rc.relevant.BlockRules(permission) {
		for _, p := range perms {
			if p.ExclusiveGroup && rc.anyRule(p, isChangeOwner, func(r *access.Rule) bool {
				return isAllowRule(r, withForce)
			}) {
				break
			}

			blocked := rc.anyRule(p, isChangeOwner, func(r *access.Rule) bool {
				if !withForce && r.Force {
					return false
				}
				return isBlockRule(r, withForce)
			})
			if blocked && rc.anyRule(p, isChangeOwner, func(r *access.Rule) bool {
				return isAllowRule(r, withForce)
			}) {
				blocked = false
			}
			if blocked {
				return true
			}
		}
	}
	return false
}

func (rc *RefControl) anyRule(p *access.Permission, isChangeOwner bool, pred func(*access.Rule) bool) bool {
	return slices.ContainsFunc(p.Rules, func(r *access.Rule) bool {
		return pred(r) && rc.pc.match(r, isChangeOwner)
	})
}

// toRange intersects the union of the caller's granted vote ranges with
// the ranges left open by blocks in each project.
func (rc *RefControl) toRange(permission string, isChangeOwner bool) access.PermissionRange {
	blockMin, blockMax := math.MinInt, math.MaxInt

	for _, perms := range rc.relevant.BlockRules(permission) {
		projMin, projMax := math.MinInt, math.MaxInt
		for _, p := range perms {
			if p.ExclusiveGroup && rc.anyRule(p, isChangeOwner, (*access.Rule).IsAllow) {
				projMin, projMax = math.MinInt, math.MaxInt
				break
			}

			blockFound := false
			for _, r := range p.Rules {
				if r.IsBlock() && rc.pc.match(r, isChangeOwner) {
					projMin, projMax = r.Min+1, r.Max-1
					blockFound = true
				}
			}
			if blockFound {
				for _, r := range p.Rules {
					if r.IsAllow() && rc.pc.match(r, isChangeOwner) {
						projMin, projMax = r.Min, r.Max
						break
					}
				}
				break
			}
		}
		blockMin = max(blockMin, projMin)
		blockMax = min(blockMax, projMax)
	}

	voteMin, voteMax := 0, 0
	for _, r := range rc.relevant.Rules(permission) {
		if r.IsAllow() && rc.pc.match(r.Rule, isChangeOwner) {
			voteMin = min(voteMin, r.Min)
			voteMax = max(voteMax, r.Max)
		}
	}
	return access.PermissionRange{
		Name: permission,
		Min:  max(voteMin, blockMin),
		Max:  min(voteMax, blockMax),
	}
}
