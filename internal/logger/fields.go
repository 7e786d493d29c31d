package logger

import (
	"fmt"
	"log/slog"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements for log aggregation and querying.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Permission Evaluation
	// ========================================================================
	KeyProject    = "project"    // Project name
	KeyParent     = "parent"     // Parent project name
	KeyRef        = "ref"        // Git reference being checked
	KeyPermission = "permission" // Ref or change permission being checked
	KeyUser       = "user"       // Loggable caller name
	KeyChange     = "change"     // Change number
	KeyPattern    = "pattern"    // Access section ref pattern
	KeyDecision   = "decision"   // allowed or denied
	KeyReason     = "reason"     // Why a decision was reached
	KeySections   = "sections"   // Number of matching access sections

	// ========================================================================
	// Project Cache
	// ========================================================================
	KeyGeneration = "generation" // Cache clock generation
	KeyRevision   = "revision"   // Store revision of a project config
	KeyCacheHit   = "cache_hit"  // Cache hit indicator
	KeyEvicted    = "evicted"    // Number of entries evicted
	KeyCount      = "count"      // Number of items

	// ========================================================================
	// Storage Backend
	// ========================================================================
	KeyStoreType = "store_type" // Store type: memory, sqlite, postgres, yaml
	KeyPath      = "path"       // File or directory path
	KeyKey       = "key"        // Key in the persisted cache

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyOperation  = "operation"   // Sub-operation type for complex operations
	KeyAddress    = "address"     // Listen address of a server
)

// ============================================================================
// Field constructors for type safety
// These functions provide type-safe construction of slog.Attr values.
// ============================================================================

// TraceID returns a slog.Attr for OpenTelemetry trace ID
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for OpenTelemetry span ID
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// Project returns a slog.Attr for a project name
func Project(name string) slog.Attr {
	return slog.String(KeyProject, name)
}

// Ref returns a slog.Attr for a Git reference
func Ref(name string) slog.Attr {
	return slog.String(KeyRef, name)
}

// Permission returns a slog.Attr for a permission name
func Permission(name fmt.Stringer) slog.Attr {
	return slog.String(KeyPermission, name.String())
}

// User returns a slog.Attr for the caller
func User(name string) slog.Attr {
	return slog.String(KeyUser, name)
}

// Pattern returns a slog.Attr for a ref pattern
func Pattern(p string) slog.Attr {
	return slog.String(KeyPattern, p)
}

// Decision returns a slog.Attr rendering allowed as "allowed" or "denied"
func Decision(allowed bool) slog.Attr {
	if allowed {
		return slog.String(KeyDecision, "allowed")
	}
	return slog.String(KeyDecision, "denied")
}

// Generation returns a slog.Attr for a cache generation
func Generation(g int64) slog.Attr {
	return slog.Int64(KeyGeneration, g)
}

// Revision returns a slog.Attr for a config revision
func Revision(r string) slog.Attr {
	return slog.String(KeyRevision, r)
}

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Operation returns a slog.Attr for sub-operation type
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Reason returns a slog.Attr explaining a decision
func Reason(r string) slog.Attr {
	return slog.String(KeyReason, r)
}

// Change returns a slog.Attr for a change number
func Change(id int) slog.Attr {
	return slog.Int(KeyChange, id)
}
