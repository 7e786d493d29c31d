package refpattern

import "strings"

const lockSuffix = ".lock"

// IsValidRefName reports whether name is a syntactically valid Git ref name.
//
// The rules follow git check-ref-format as applied to loose refs: at least
// two slash separated components, no empty component, no component starting
// with a dot, no "..", no "@{", no control characters, space or any of
// ~ ^ : ? [ * \ DEL, and no trailing "." or ".lock".
func IsValidRefName(name string) bool {
	n := len(name)
	if n == 0 {
		return false
	}
	if strings.HasSuffix(name, lockSuffix) {
		return false
	}

	components := 1
	var prev byte
	for i := 0; i < n; i++ {
		c := name[i]
		if c <= ' ' {
			return false
		}
		switch c {
		case '.':
			if prev == 0 || prev == '/' || prev == '.' {
				return false
			}
			if i == n-1 {
				return false
			}
		case '/':
			if i == 0 || i == n-1 || prev == '/' {
				return false
			}
			components++
		case '{':
			if prev == '@' {
				return false
			}
		case '~', '^', ':', '?', '[', '*', '\\', 0x7f:
			return false
		}
		prev = c
	}
	return components > 1
}
