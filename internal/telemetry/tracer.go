package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys used on permission spans.
const (
	// ========================================================================
	// Evaluation attributes
	// ========================================================================
	AttrPermission = "permission.name"
	AttrProject    = "project.name"
	AttrParent     = "project.parent"
	AttrRef        = "ref.name"
	AttrChange     = "change.id"
	AttrUsername   = "user.name"
	AttrAllowed    = "decision.allowed"
	AttrSections   = "sections.count"

	// ========================================================================
	// Cache attributes
	// ========================================================================
	AttrCacheHit   = "cache.hit"
	AttrGeneration = "cache.generation"
	AttrRevision   = "project.revision"

	// ========================================================================
	// Storage backend attributes
	// ========================================================================
	AttrStoreType = "store.type"
)

// Span names. Format: <component>.<operation>
const (
	SpanCheckRef       = "permissions.check_ref"
	SpanCheckChange    = "permissions.check_change"
	SpanProjectLoad    = "project.load"
	SpanSetParent      = "project.set_parent"
	SpanProjectOwner   = "permissions.is_owner"
	SpanProjectVisible = "permissions.is_visible"
)

// Permission returns an attribute for the checked permission.
func Permission(name string) attribute.KeyValue {
	return attribute.String(AttrPermission, name)
}

// Project returns an attribute for a project name.
func Project(name string) attribute.KeyValue {
	return attribute.String(AttrProject, name)
}

// Parent returns an attribute for a parent project name.
func Parent(name string) attribute.KeyValue {
	return attribute.String(AttrParent, name)
}

// Ref returns an attribute for a ref name.
func Ref(name string) attribute.KeyValue {
	return attribute.String(AttrRef, name)
}

// Change returns an attribute for a change ID.
func Change(id int) attribute.KeyValue {
	return attribute.Int(AttrChange, id)
}

// Username returns an attribute for username
func Username(name string) attribute.KeyValue {
	return attribute.String(AttrUsername, name)
}

// Allowed returns an attribute for the outcome of a check.
func Allowed(allowed bool) attribute.KeyValue {
	return attribute.Bool(AttrAllowed, allowed)
}

// Sections returns an attribute for the number of sections evaluated.
func Sections(n int) attribute.KeyValue {
	return attribute.Int(AttrSections, n)
}

// CacheHit returns an attribute for cache hit indicator
func CacheHit(hit bool) attribute.KeyValue {
	return attribute.Bool(AttrCacheHit, hit)
}

// Generation returns an attribute for the cache generation.
func Generation(gen int64) attribute.KeyValue {
	return attribute.Int64(AttrGeneration, gen)
}

// Revision returns an attribute for a config revision.
func Revision(rev string) attribute.KeyValue {
	return attribute.String(AttrRevision, rev)
}

// StoreType returns an attribute for the project store backend.
func StoreType(t string) attribute.KeyValue {
	return attribute.String(AttrStoreType, t)
}

// StartCheckSpan starts a span for a permission check on project.
func StartCheckSpan(ctx context.Context, name, project, permission string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		Project(project),
		Permission(permission),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, name, trace.WithAttributes(allAttrs...))
}

// StartProjectSpan starts a span for a project cache or hierarchy operation.
func StartProjectSpan(ctx context.Context, name, project string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		Project(project),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, name, trace.WithAttributes(allAttrs...))
}
