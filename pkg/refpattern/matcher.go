package refpattern

import (
	"fmt"
	"regexp"
	"strings"
)

// Identity is the view of a user needed to expand parameterized patterns.
type Identity interface {
	Username() string
	EmailAddresses() []string
	AccountID() int
}

// Matcher tests whether a concrete ref falls under a pattern.
type Matcher interface {
	// Match reports whether ref is covered. user may be nil; parameterized
	// patterns never match a nil or identity-less user.
	Match(ref string, user Identity) bool

	// Pattern returns the source pattern.
	Pattern() string

	// IsUserSpecific reports whether the result depends on user.
	IsUserSpecific() bool
}

// NewMatcher compiles pattern into a Matcher.
func NewMatcher(pattern string) (Matcher, error) {
	if IsParameterized(pattern) {
		return newParameterizedMatcher(pattern)
	}
	switch Classify(pattern) {
	case KindRegex:
		return newRegexMatcher(pattern)
	case KindPrefix:
		return &prefixMatcher{pattern: pattern, prefix: pattern[:len(pattern)-1]}, nil
	default:
		return &exactMatcher{pattern: pattern}, nil
	}
}

// MustMatcher is like NewMatcher but panics on error. Intended for tests and
// package-level patterns known to be valid.
func MustMatcher(pattern string) Matcher {
	m, err := NewMatcher(pattern)
	if err != nil {
		panic(err)
	}
	return m
}

// ============================================================================
// Plain matchers
// ============================================================================

type exactMatcher struct {
	pattern string
}

func (m *exactMatcher) Match(ref string, _ Identity) bool { return ref == m.pattern }
func (m *exactMatcher) Pattern() string                    { return m.pattern }
func (m *exactMatcher) IsUserSpecific() bool               { return false }

type prefixMatcher struct {
	pattern string
	prefix  string
}

func (m *prefixMatcher) Match(ref string, _ Identity) bool {
	return strings.HasPrefix(ref, m.prefix)
}
func (m *prefixMatcher) Pattern() string      { return m.pattern }
func (m *prefixMatcher) IsUserSpecific() bool { return false }

type regexMatcher struct {
	pattern string
	re      *regexp.Regexp
}

func newRegexMatcher(pattern string) (*regexMatcher, error) {
	re, err := regexp.Compile("^(?:" + regexBody(pattern) + ")$")
	if err != nil {
		return nil, invalid(pattern, "%v", err)
	}
	return &regexMatcher{pattern: pattern, re: re}, nil
}

func (m *regexMatcher) Match(ref string, _ Identity) bool { return m.re.MatchString(ref) }
func (m *regexMatcher) Pattern() string                    { return m.pattern }
func (m *regexMatcher) IsUserSpecific() bool               { return false }

// ============================================================================
// Parameterized matcher
// ============================================================================

// placeholderMarker stands in for parameters while computing the literal
// prefix of a regex template. ':' can never appear in a ref name.
const placeholderMarker = ":PLACEHOLDER:"

type parameterizedMatcher struct {
	pattern string
	isRegex bool
	prefix  string
	sharded bool
}

func newParameterizedMatcher(pattern string) (*parameterizedMatcher, error) {
	m := &parameterizedMatcher{
		pattern: pattern,
		isRegex: IsRegex(pattern),
		sharded: strings.Contains(pattern, ParamShardedUserID),
	}

	if m.isRegex {
		marked := strings.NewReplacer(ParamUsername, placeholderMarker, ParamShardedUserID, placeholderMarker).
			Replace(regexBody(pattern))
		a, err := CompileAutomaton(marked)
		if err != nil {
			return nil, invalid(pattern, "%v", err)
		}
		prefix := a.LiteralPrefix()
		if i := strings.Index(prefix, placeholderMarker); i >= 0 {
			prefix = prefix[:i]
		}
		m.prefix = prefix
	} else {
		m.prefix = pattern[:strings.Index(pattern, paramOpen)]
	}
	return m, nil
}

func (m *parameterizedMatcher) Pattern() string      { return m.pattern }
func (m *parameterizedMatcher) IsUserSpecific() bool { return true }

// Prefix returns the literal prefix every matching ref must carry.
func (m *parameterizedMatcher) Prefix() string { return m.prefix }

func (m *parameterizedMatcher) Match(ref string, user Identity) bool {
	if user == nil || !strings.HasPrefix(ref, m.prefix) {
		return false
	}

	var sharded string
	if m.sharded {
		id := user.AccountID()
		if id <= 0 {
			return false
		}
		sharded = ShardedUserID(id)
		if m.isRegex {
			sharded = regexp.QuoteMeta(sharded)
		}
	}

	for _, identity := range Identities(user) {
		value := identity
		if m.isRegex {
			value = regexp.QuoteMeta(identity)
		}
		expanded := strings.NewReplacer(ParamUsername, value, ParamShardedUserID, sharded).Replace(m.pattern)
		if IsParameterized(expanded) {
			continue
		}
		next, err := NewMatcher(expanded)
		if err != nil {
			continue
		}
		if next.Match(ref, user) {
			return true
		}
	}
	return false
}

// Identities lists the strings a parameterized pattern is expanded with:
// the username first, then every email address. Empty values are skipped.
func Identities(user Identity) []string {
	if user == nil {
		return nil
	}
	var out []string
	if u := user.Username(); u != "" {
		out = append(out, u)
	}
	for _, email := range user.EmailAddresses() {
		if email != "" {
			out = append(out, email)
		}
	}
	return out
}

// ShardedUserID formats an account id the way ${shardeduserid} expands:
// the last two digits, zero padded, then the full id.
func ShardedUserID(id int) string {
	return fmt.Sprintf("%02d/%d", id%100, id)
}

// ExpandForUser substitutes the first identity of user into pattern. It is
// used to probe user specific sections for visibility checks. ok is false
// when user has no identity.
func ExpandForUser(pattern string, user Identity) (expanded string, ok bool) {
	ids := Identities(user)
	if len(ids) == 0 {
		return "", false
	}
	value := ids[0]
	sharded := ""
	if user.AccountID() > 0 {
		sharded = ShardedUserID(user.AccountID())
	}
	if IsRegex(pattern) {
		value = regexp.QuoteMeta(value)
	}
	return strings.NewReplacer(ParamUsername, value, ParamShardedUserID, sharded).Replace(pattern), true
}
