// Package permissions evaluates what a user may do on a project, a ref or
// a change.
//
// A Backend resolves the project hierarchy and the caller's groups and
// hands out per-request controls. ProjectControl, RefControl and
// ChangeControl then evaluate permissions against the collected access
// rules. Controls memoize results and are not safe for concurrent use;
// the Backend is.
//
// Every check fails closed: when the configuration cannot be loaded the
// returned Decision is a denial and the error explains why.
package permissions

import (
	"context"
	"fmt"
	"time"

	"github.com/marmos91/refperm/internal/logger"
	"github.com/marmos91/refperm/internal/telemetry"
	"github.com/marmos91/refperm/pkg/identity"
	"github.com/marmos91/refperm/pkg/project"
	"github.com/marmos91/refperm/pkg/specificity"
)

// Backend is the entry point for permission checks.
type Backend struct {
	hierarchy *project.Hierarchy
	sorter    *specificity.Sorter
	identity  identity.Provider
	metrics   *Metrics
}

// NewBackend creates a Backend. A nil sorter disables ordering memoization;
// metrics may be nil.
func NewBackend(h *project.Hierarchy, sorter *specificity.Sorter, ip identity.Provider, metrics *Metrics) *Backend {
	if sorter == nil {
		sorter, _ = specificity.NewSorter(0, nil)
	}
	return &Backend{hierarchy: h, sorter: sorter, identity: ip, metrics: metrics}
}

// Hierarchy returns the project hierarchy the backend reads.
func (b *Backend) Hierarchy() *project.Hierarchy { return b.hierarchy }

// ControlFor builds a ProjectControl for user on projectName.
func (b *Backend) ControlFor(ctx context.Context, user *identity.User, projectName string) (*ProjectControl, error) {
	if user == nil {
		user = identity.Anon()
	}
	chain, err := b.hierarchy.Ancestors(ctx, projectName)
	if err != nil {
		return nil, err
	}
	groups, err := b.identity.EffectiveGroups(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("resolve groups of %s: %w", user.LoggableName(), err)
	}
	admin, err := b.identity.IsAdministrator(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("resolve admin status of %s: %w", user.LoggableName(), err)
	}
	owners, err := b.hierarchy.AllOwnerGroups(ctx, projectName)
	if err != nil {
		return nil, err
	}
	labels, err := b.hierarchy.LabelTypes(ctx, projectName)
	if err != nil {
		return nil, err
	}
	return newProjectControl(user, groups, admin, chain, owners, labels, b.sorter), nil
}

// CheckRefPermission decides whether user may perform perm on ref.
func (b *Backend) CheckRefPermission(ctx context.Context, user *identity.User, projectName, ref string, perm RefPermission) (Decision, error) {
	start := time.Now()
	ctx, span := telemetry.StartCheckSpan(ctx, telemetry.SpanCheckRef, projectName, perm.String(),
		telemetry.Ref(ref), telemetry.Username(user.LoggableName()))
	defer span.End()
	ctx = withLogContext(ctx, "check_ref", user, projectName, ref)

	d, err := b.checkRef(ctx, user, projectName, ref, perm)
	b.finish(ctx, KindRef, d, err, start)
	return d, err
}

func (b *Backend) checkRef(ctx context.Context, user *identity.User, projectName, ref string, perm RefPermission) (Decision, error) {
	if !perm.IsValid() {
		err := &UnsupportedPermissionError{Permission: perm.String()}
		return denied(perm.String(), ref, err), err
	}
	pc, err := b.ControlFor(ctx, user, projectName)
	if err != nil {
		return denied(perm.String(), ref, err), err
	}
	rc := pc.ForRef(ref)
	ok, err := rc.Can(perm)
	if err != nil {
		return denied(perm.String(), ref, err), err
	}
	d := Decision{Allowed: ok, Permission: perm.String(), Target: ref}
	if !ok {
		d.Reason = rc.denialReason(perm)
		d.Advice = perm.Advice(ref)
	}
	return d, nil
}

// CheckChangePermission decides whether user may perform perm on change.
func (b *Backend) CheckChangePermission(ctx context.Context, user *identity.User, change *Change, perm ChangePermission) (Decision, error) {
	start := time.Now()
	ctx, span := telemetry.StartCheckSpan(ctx, telemetry.SpanCheckChange, change.Project, perm.String(),
		telemetry.Change(change.ID), telemetry.Ref(change.Dest), telemetry.Username(user.LoggableName()))
	defer span.End()
	ctx = withLogContext(ctx, "check_change", user, change.Project, change.Dest)

	target := changeTarget(change)
	d, err := b.checkChange(ctx, user, change, target, func(cc *ChangeControl) (bool, error) {
		return cc.Can(perm)
	}, perm.String())
	b.finish(ctx, KindChange, d, err, start, logger.Change(change.ID))
	return d, err
}

// CheckRemoveReviewer decides whether user may remove reviewer, currently
// voting value, from change.
func (b *Backend) CheckRemoveReviewer(ctx context.Context, user *identity.User, change *Change, reviewer, value int) (Decision, error) {
	start := time.Now()
	perm := ChangeRemoveReviewer.String()
	ctx, span := telemetry.StartCheckSpan(ctx, telemetry.SpanCheckChange, change.Project, perm,
		telemetry.Change(change.ID), telemetry.Ref(change.Dest), telemetry.Username(user.LoggableName()))
	defer span.End()
	ctx = withLogContext(ctx, "remove_reviewer", user, change.Project, change.Dest)

	d, err := b.checkChange(ctx, user, change, changeTarget(change), func(cc *ChangeControl) (bool, error) {
		return cc.CanRemoveReviewer(reviewer, value) && cc.pc().state.StatePermitsWrite(), nil
	}, perm)
	b.finish(ctx, KindChange, d, err, start, logger.Change(change.ID))
	return d, err
}

func (b *Backend) checkChange(ctx context.Context, user *identity.User, change *Change, target string, eval func(*ChangeControl) (bool, error), perm string) (Decision, error) {
	pc, err := b.ControlFor(ctx, user, change.Project)
	if err != nil {
		return denied(perm, target, err), err
	}
	ok, err := eval(pc.ForChange(change))
	if err != nil {
		return denied(perm, target, err), err
	}
	d := Decision{Allowed: ok, Permission: perm, Target: target}
	if !ok {
		d.Reason = fmt.Sprintf("%s not granted on %s", perm, target)
	}
	return d, nil
}

// IsProjectOwner reports whether user owns projectName.
func (b *Backend) IsProjectOwner(ctx context.Context, user *identity.User, projectName string) (bool, error) {
	return b.projectCheck(ctx, telemetry.SpanProjectOwner, "owner", user, projectName, (*ProjectControl).IsOwner)
}

// IsProjectVisible reports whether user may see projectName.
func (b *Backend) IsProjectVisible(ctx context.Context, user *identity.User, projectName string) (bool, error) {
	return b.projectCheck(ctx, telemetry.SpanProjectVisible, "visible", user, projectName, (*ProjectControl).IsVisible)
}

func (b *Backend) projectCheck(ctx context.Context, spanName, what string, user *identity.User, projectName string, eval func(*ProjectControl) bool) (bool, error) {
	start := time.Now()
	ctx, span := telemetry.StartProjectSpan(ctx, spanName, projectName, telemetry.Username(user.LoggableName()))
	defer span.End()
	ctx = withLogContext(ctx, what, user, projectName, "")

	d := Decision{Permission: what, Target: projectName}
	pc, err := b.ControlFor(ctx, user, projectName)
	if err == nil {
		d.Allowed = eval(pc)
	} else {
		d.Reason = err.Error()
	}
	b.finish(ctx, KindProject, d, err, start)
	return d.Allowed, err
}

func (b *Backend) finish(ctx context.Context, kind string, d Decision, err error, start time.Time, fields ...any) {
	b.metrics.ObserveCheck(kind, d.Allowed, err, time.Since(start))
	telemetry.SetAttributes(ctx, telemetry.Allowed(d.Allowed))

	fields = append(fields,
		logger.KeyPermission, d.Permission,
		logger.Decision(d.Allowed),
		logger.DurationMs(logger.Duration(start)))
	if err != nil {
		telemetry.RecordError(ctx, err)
		logger.WarnCtx(ctx, "Permission check failed", append(fields, logger.Err(err))...)
		return
	}
	if d.Reason != "" {
		fields = append(fields, logger.Reason(d.Reason))
	}
	logger.DebugCtx(ctx, "Permission check", fields...)
}

// withLogContext tags ctx so that log lines of one check carry the caller,
// the target and the trace.
func withLogContext(ctx context.Context, op string, user *identity.User, projectName, ref string) context.Context {
	lc := logger.NewLogContext(user.LoggableName()).
		WithOperation(op).
		WithTarget(projectName, ref).
		WithTrace(telemetry.TraceID(ctx), telemetry.SpanID(ctx))
	return logger.WithContext(ctx, lc)
}

func changeTarget(c *Change) string {
	return fmt.Sprintf("change %d", c.ID)
}
