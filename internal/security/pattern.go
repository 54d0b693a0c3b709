package security

import (
	"strings"
)

const pathSeparator = "/"

// AntMatch reports whether path matches the ant-style pattern.
//
//	?   matches one character inside a segment
//	*   matches zero or more characters inside a segment
//	**  matches zero or more whole segments
//
// Anything else matches literally and case-sensitively, so "/css" matches
// "/css" but neither "/css/" nor "/css/site.css".
func AntMatch(pattern, path string) bool {
	if strings.HasPrefix(pattern, pathSeparator) != strings.HasPrefix(path, pathSeparator) {
		return false
	}

	pattTokens := tokenizePath(pattern)
	pathTokens := tokenizePath(path)
	if !matchSegments(pattTokens, pathTokens) {
		return false
	}

	// a trailing "**" swallows the trailing separator too
	if len(pattTokens) > 0 && pattTokens[len(pattTokens)-1] == "**" {
		return true
	}
	return strings.HasSuffix(pattern, pathSeparator) == strings.HasSuffix(path, pathSeparator)
}

// tokenizePath splits on "/" and drops empty segments
func tokenizePath(p string) []string {
	parts := strings.Split(p, pathSeparator)
	tokens := parts[:0]
	for _, part := range parts {
		if part != "" {
			tokens = append(tokens, part)
		}
	}
	return tokens
}

// matchSegments matches pattern segments against path segments, expanding "**"
func matchSegments(patt, segs []string) bool {
	if len(patt) == 0 {
		return len(segs) == 0
	}

	if patt[0] == "**" {
		// Try every possible number of swallowed segments
		for i := 0; i <= len(segs); i++ {
			if matchSegments(patt[1:], segs[i:]) {
				return true
			}
		}
		return false
	}

	if len(segs) == 0 {
		return false
	}
	return matchWildcard(segs[0], patt[0]) && matchSegments(patt[1:], segs[1:])
}

// matchWildcard performs * and ? matching within a single segment
func matchWildcard(text, pattern string) bool {
	return matchWildcardRecursive(text, pattern, 0, 0)
}

func matchWildcardRecursive(text, pattern string, textIdx, patternIdx int) bool {
	if patternIdx == len(pattern) {
		return textIdx == len(text)
	}

	if pattern[patternIdx] == '*' {
		for i := textIdx; i <= len(text); i++ {
			if matchWildcardRecursive(text, pattern, i, patternIdx+1) {
				return true
			}
		}
		return false
	}

	if textIdx == len(text) {
		return false
	}

	if pattern[patternIdx] == '?' || pattern[patternIdx] == text[textIdx] {
		return matchWildcardRecursive(text, pattern, textIdx+1, patternIdx+1)
	}
	return false
}
