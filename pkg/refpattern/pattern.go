package refpattern

import (
	"errors"
	"fmt"
	"strings"
)

// AllRefs is the wildcard pattern matching every ref. It is accepted by
// Validate even though "refs" on its own is not a valid ref name.
const AllRefs = "refs/*"

// Placeholders recognised in parameterized patterns.
const (
	ParamUsername       = "${username}"
	ParamShardedUserID  = "${shardeduserid}"
	paramOpen           = "${"
	regexPrefix         = "^"
	usernameToken       = "USERNAME"
	shardedUserIDToken  = "00/1000000"
	nulReplacement      = '-'
	prefixWildcard      = "/*"
	prefixExampleSuffix = "1"
)

// Kind is the syntactic category of a ref pattern.
type Kind int

const (
	KindExact Kind = iota
	KindPrefix
	KindRegex
	KindParameterized
)

func (k Kind) String() string {
	switch k {
	case KindExact:
		return "exact"
	case KindPrefix:
		return "prefix"
	case KindRegex:
		return "regex"
	case KindParameterized:
		return "parameterized"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ErrInvalidPattern is the sentinel wrapped by every pattern validation
// failure.
var ErrInvalidPattern = errors.New("invalid ref pattern")

// InvalidPatternError describes why a pattern was rejected.
type InvalidPatternError struct {
	Pattern string
	Reason  string
}

func (e *InvalidPatternError) Error() string {
	return fmt.Sprintf("invalid ref pattern %q: %s", e.Pattern, e.Reason)
}

func (e *InvalidPatternError) Unwrap() error {
	return ErrInvalidPattern
}

func invalid(pattern, format string, args ...any) error {
	return &InvalidPatternError{Pattern: pattern, Reason: fmt.Sprintf(format, args...)}
}

// Classify returns the kind of pattern. The checks are applied in order:
// a leading "^" makes a regex, a "${" placeholder makes a parameterized
// pattern, a trailing "/*" makes a prefix and anything else is exact.
//
// A parameterized regex (^refs/sb/${username}/.*) classifies as KindRegex;
// use IsParameterized to detect the placeholder independently.
func Classify(pattern string) Kind {
	switch {
	case IsRegex(pattern):
		return KindRegex
	case IsParameterized(pattern):
		return KindParameterized
	case strings.HasSuffix(pattern, prefixWildcard):
		return KindPrefix
	default:
		return KindExact
	}
}

// IsRegex reports whether pattern is a regular expression.
func IsRegex(pattern string) bool {
	return strings.HasPrefix(pattern, regexPrefix)
}

// IsParameterized reports whether pattern contains a placeholder.
func IsParameterized(pattern string) bool {
	return strings.Contains(pattern, paramOpen)
}

// regexBody strips the leading "^" and an unescaped trailing "$".
func regexBody(pattern string) string {
	body := strings.TrimPrefix(pattern, regexPrefix)
	if !strings.HasSuffix(body, "$") {
		return body
	}
	// The "$" is escaped only by an odd run of backslashes.
	rest := body[:len(body)-1]
	slashes := len(rest) - len(strings.TrimRight(rest, `\`))
	if slashes%2 == 0 {
		return rest
	}
	return body
}

// expandTokens substitutes fixed, ref-name-safe tokens for placeholders so
// that a parameterized pattern can be validated and measured like a plain one.
func expandTokens(pattern string) string {
	if !IsParameterized(pattern) {
		return pattern
	}
	r := strings.NewReplacer(ParamUsername, usernameToken, ParamShardedUserID, shardedUserIDToken)
	return r.Replace(pattern)
}

// ToAutomaton compiles a regex pattern (with or without its leading "^").
// Placeholders are replaced by fixed tokens first.
func ToAutomaton(pattern string) (*Automaton, error) {
	return CompileAutomaton(regexBody(expandTokens(pattern)))
}

// ShortestExample returns a representative ref accepted by pattern: the
// shortest string for a regex (NUL characters replaced by '-'), the prefix
// followed by "1" for a prefix pattern, and the pattern itself otherwise.
// Placeholders are replaced by fixed tokens.
func ShortestExample(pattern string) string {
	p := expandTokens(pattern)
	switch {
	case IsRegex(p):
		a, err := ToAutomaton(p)
		if err != nil {
			return p
		}
		s, ok := a.ShortestString()
		if !ok {
			return p
		}
		return strings.Map(func(r rune) rune {
			if r == 0 {
				return nulReplacement
			}
			return r
		}, s)
	case strings.HasSuffix(p, prefixWildcard):
		return p[:len(p)-1] + prefixExampleSuffix
	default:
		return p
	}
}

// Validate checks that pattern may be used as an access section name.
func Validate(pattern string) error {
	if pattern == "" {
		return invalid(pattern, "empty pattern")
	}
	if pattern == AllRefs {
		return nil
	}

	p := expandTokens(pattern)
	switch {
	case IsRegex(p):
		a, err := ToAutomaton(p)
		if err != nil {
			return invalid(pattern, "%v", err)
		}
		if _, ok := a.ShortestString(); !ok {
			return invalid(pattern, "regular expression matches nothing")
		}
		if example := ShortestExample(p); !IsValidRefName(example) {
			return invalid(pattern, "shortest example %q is not a valid ref name", example)
		}
	case strings.HasSuffix(p, prefixWildcard):
		if prefix := strings.TrimSuffix(p, prefixWildcard); !IsValidRefName(prefix) {
			return invalid(pattern, "prefix %q is not a valid ref name", prefix)
		}
	default:
		if !IsValidRefName(p) {
			return invalid(pattern, "not a valid ref name")
		}
	}
	return nil
}
