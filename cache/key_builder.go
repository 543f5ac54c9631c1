package cache

import (
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Key layout markers. Markers are numeric so they never collide with a
// qualified function name or a tag written by a caller.
const (
	TagMarker    = "00"
	FuncMarker   = "11"
	MarkerSep    = "="
	SegmentSep   = ":"
	ArgSeparator = "."
)

// Named marks a call argument as a keyword argument. Named values passed among
// positional arguments are rendered as name=value after the positional ones.
type Named struct {
	Name  string
	Value any
}

// Kw builds a Named keyword argument.
func Kw(name string, value any) Named {
	return Named{Name: name, Value: value}
}

// SplitArgs separates Named keyword arguments from positional ones.
// A repeated keyword name keeps the last value.
func SplitArgs(args []any) ([]any, map[string]any) {
	var kwargs map[string]any
	positional := make([]any, 0, len(args))
	for _, arg := range args {
		named, ok := arg.(Named)
		if !ok {
			positional = append(positional, arg)
			continue
		}
		if kwargs == nil {
			kwargs = make(map[string]any)
		}
		kwargs[named.Name] = named.Value
	}
	return positional, kwargs
}

// KeyOption configures a KeyBuilder.
type KeyOption func(*KeyBuilder)

// WithArgDigest replaces the rendered argument list with an xxhash digest when it
// is longer than maxLen characters. Zero disables digesting.
func WithArgDigest(maxLen int) KeyOption {
	return func(b *KeyBuilder) {
		b.maxArgsLen = maxLen
	}
}

// KeyBuilder derives cache keys of the form
//
//	{namespace}:{00=tag1:00=tag2}:11={function}({arg1}.{arg2}.{kw}={value})
//
// Keys are deterministic for equal arguments and the same function identity.
type KeyBuilder struct {
	namespace  string
	maxArgsLen int
	args       argSerializer
}

// NewKeyBuilder creates a KeyBuilder scoped to namespace.
func NewKeyBuilder(namespace string, opts ...KeyOption) *KeyBuilder {
	b := &KeyBuilder{namespace: namespace}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Namespace returns the namespace prefix used by the builder.
func (b *KeyBuilder) Namespace() string {
	return b.namespace
}

// Build returns the full cache key for a call. Tags may contain the segment
// separator but not a marker that follows it, such as ":00=" or ":11=".
func (b *KeyBuilder) Build(tags []string, function string, args []any, kwargs map[string]any) (string, error) {
	if err := validateTags(tags); err != nil {
		return "", err
	}
	funcSegment, err := b.FunctionSegment(function, args, kwargs)
	if err != nil {
		return "", err
	}
	return b.namespace + SegmentSep + b.TagSegment(tags) + SegmentSep + funcSegment, nil
}

// TagSegment renders tags in the order given. No tags yields an empty segment.
func (b *KeyBuilder) TagSegment(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	parts := make([]string, len(tags))
	for i, tag := range tags {
		parts[i] = TagMarker + MarkerSep + tag
	}
	return strings.Join(parts, SegmentSep)
}

// FunctionSegment renders 11={function}({args}).
func (b *KeyBuilder) FunctionSegment(function string, args []any, kwargs map[string]any) (string, error) {
	rendered, err := b.renderArgs(args, kwargs)
	if err != nil {
		return "", err
	}
	if b.maxArgsLen > 0 && len(rendered) > b.maxArgsLen {
		rendered = "#" + strconv.FormatUint(xxhash.Sum64String(rendered), 16)
	}
	return FuncMarker + MarkerSep + function + "(" + rendered + ")", nil
}

func (b *KeyBuilder) renderArgs(args []any, kwargs map[string]any) (string, error) {
	positional, named := SplitArgs(args)
	for name, value := range kwargs {
		if named == nil {
			named = make(map[string]any, len(kwargs))
		}
		named[name] = value
	}

	parts := make([]string, 0, len(positional)+len(named))
	for _, arg := range positional {
		text, err := b.args.Render(arg)
		if err != nil {
			return "", err
		}
		parts = append(parts, text)
	}

	names := make([]string, 0, len(named))
	for name := range named {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		text, err := b.args.Render(named[name])
		if err != nil {
			return "", err
		}
		parts = append(parts, name+MarkerSep+text)
	}

	return strings.Join(parts, ArgSeparator), nil
}

// NamespacePattern matches every key in the namespace.
func (b *KeyBuilder) NamespacePattern() string {
	return escapeGlob(b.namespace) + SegmentSep + "*"
}

// TagPattern returns a SCAN pattern that selects keys carrying tag. The pattern
// may over-match; use HasTag to confirm.
func (b *KeyBuilder) TagPattern(tag string) string {
	return escapeGlob(b.namespace) + SegmentSep + "*" + TagMarker + MarkerSep + escapeGlob(tag) + SegmentSep + "*"
}

// FunctionPattern returns a SCAN pattern that selects keys produced by function.
// A bare name without a package qualifier matches any package.
func (b *KeyBuilder) FunctionPattern(function string) string {
	prefix := escapeGlob(b.namespace) + SegmentSep + "*" + SegmentSep + FuncMarker + MarkerSep
	if isBareName(function) {
		return prefix + "*." + escapeGlob(function) + "(*"
	}
	return prefix + escapeGlob(function) + "(*"
}

// HasTag reports whether key carries tag in its tag segment.
func (b *KeyBuilder) HasTag(key, tag string) bool {
	parsed, ok := b.Parse(key)
	if !ok {
		return false
	}
	for _, t := range parsed.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// HasFunction reports whether key was produced by function.
func (b *KeyBuilder) HasFunction(key, function string) bool {
	parsed, ok := b.Parse(key)
	if !ok {
		return false
	}
	name := functionName(parsed.Function)
	if isBareName(function) {
		return strings.HasSuffix(name, "."+function)
	}
	return name == function
}

// functionName strips the argument list from a function segment. A "(" right
// after a "." opens a receiver, as in pkg.(*T).Method, not the argument list.
func functionName(segment string) string {
	for i := 0; i < len(segment); i++ {
		if segment[i] == '(' && (i == 0 || segment[i-1] != '.') {
			return segment[:i]
		}
	}
	return segment
}

// ParsedKey is the decomposed form of a cache key.
type ParsedKey struct {
	Namespace string
	Tags      []string
	// Function holds the function segment without its marker: name(args).
	Function string
}

// Parse splits key into its segments. It returns false for keys outside the
// builder namespace or without a function segment.
func (b *KeyBuilder) Parse(key string) (ParsedKey, bool) {
	rest, ok := strings.CutPrefix(key, b.namespace+SegmentSep)
	if !ok {
		return ParsedKey{}, false
	}

	funcPrefix := FuncMarker + MarkerSep
	var tagSegment, funcSegment string
	if after, found := strings.CutPrefix(rest, SegmentSep+funcPrefix); found {
		funcSegment = after
	} else {
		idx := strings.Index(rest, SegmentSep+funcPrefix)
		if idx < 0 {
			return ParsedKey{}, false
		}
		tagSegment = rest[:idx]
		funcSegment = rest[idx+len(SegmentSep+funcPrefix):]
	}

	parsed := ParsedKey{Namespace: b.namespace, Function: funcSegment}
	if tagSegment != "" {
		tags, found := strings.CutPrefix(tagSegment, TagMarker+MarkerSep)
		if !found {
			return ParsedKey{}, false
		}
		parsed.Tags = strings.Split(tags, SegmentSep+TagMarker+MarkerSep)
	}
	return parsed, true
}

// validateTags rejects tags that would make the tag segment ambiguous.
func validateTags(tags []string) error {
	for _, tag := range tags {
		for _, marker := range []string{TagMarker, FuncMarker} {
			if strings.Contains(tag, SegmentSep+marker+MarkerSep) {
				return invalidTag(tag)
			}
		}
	}
	return nil
}

func isBareName(function string) bool {
	return !strings.ContainsAny(function, "./")
}

// escapeGlob escapes Redis glob metacharacters.
func escapeGlob(s string) string {
	if !strings.ContainsAny(s, `*?[]\`) {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s) + 4)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '*', '?', '[', ']', '\\':
			sb.WriteByte('\\')
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}
