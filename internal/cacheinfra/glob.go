package cacheinfra

import (
	"strings"

	"github.com/gobwas/glob"
)

// compilePattern compiles a Redis MATCH pattern. Redis negates classes with
// [^...] and treats braces as literals; both are rewritten to glob syntax.
func compilePattern(pattern string) (glob.Glob, error) {
	var sb strings.Builder
	sb.Grow(len(pattern) + 8)

	inClass := false
	for i := 0; i < len(pattern); i++ {
		ch := pattern[i]
		switch {
		case ch == '\\' && i+1 < len(pattern):
			sb.WriteByte('\\')
			sb.WriteByte(pattern[i+1])
			i++
		case inClass:
			if ch == ']' {
				inClass = false
			}
			sb.WriteByte(ch)
		case ch == '[':
			inClass = true
			sb.WriteByte(ch)
			if i+1 < len(pattern) && pattern[i+1] == '^' {
				sb.WriteByte('!')
				i++
			}
		case ch == '{' || ch == '}' || ch == ',':
			sb.WriteByte('\\')
			sb.WriteByte(ch)
		default:
			sb.WriteByte(ch)
		}
	}

	return glob.Compile(sb.String())
}
