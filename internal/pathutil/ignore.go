package pathutil

import "strings"

// StoreFileName is the fixed hidden filename the local metadata store lives
// under, at the root of the sync tree. It is always ignored (spec §4.1, §6).
const StoreFileName = ".foldersync.db"

// fixedIgnoreNames is the small, fixed set of path components ignored in
// both scan and watch (spec §6 "Ignore list"). Unlike a provider-specific
// reserved-name list, this set is deliberately short: selective-sync filters
// beyond it are an explicit non-goal.
var fixedIgnoreNames = map[string]bool{
	".git":        true,
	"node_modules": true,
	StoreFileName: true,
}

// Filter decides whether a root-relative path should be excluded from
// scanning and watching. It layers the fixed ignore list (spec §6) under an
// optional set of supplemental glob-style matchers loaded from a
// .foldersyncignore.toml file (SPEC_FULL §2 DOMAIN STACK).
type Filter struct {
	extra []matcher
}

// matcher reports whether a root-relative path matches a supplemental
// ignore pattern.
type matcher interface {
	Match(relPath string) bool
}

// NewFilter constructs a Filter with no supplemental patterns. Use
// WithMatchers to layer in patterns loaded from a config ignore file.
func NewFilter() *Filter {
	return &Filter{}
}

// WithMatchers returns a copy of the filter with additional supplemental
// matchers appended.
func (f *Filter) WithMatchers(extra ...matcher) *Filter {
	return &Filter{extra: append(append([]matcher{}, f.extra...), extra...)}
}

// IsIgnored reports whether relPath (or any of its ancestor segments) is in
// the fixed ignore list, or matches a supplemental pattern. The sync root
// itself (relPath == "") is never ignored by this check; callers exclude it
// structurally by never emitting a record for it.
func (f *Filter) IsIgnored(relPath string) bool {
	if relPath == "" {
		return false
	}

	for _, seg := range strings.Split(relPath, "/") {
		if fixedIgnoreNames[seg] || IsReservedName(seg) {
			return true
		}
	}

	for _, m := range f.extra {
		if m.Match(relPath) {
			return true
		}
	}

	return false
}

// IsReservedName reports whether name is unusable on the remote service:
// empty, all dots/spaces, or containing a control character. Generalized,
// provider-agnostic version of the teacher's isValidOneDriveName family —
// kept deliberately narrow since this spec targets one remote service, not
// a family of reserved Windows device names.
func IsReservedName(name string) bool {
	if name == "" {
		return true
	}

	trimmed := strings.TrimRight(name, ". ")
	if trimmed == "" {
		return true
	}

	for _, r := range name {
		if r < 0x20 || r == 0x7f {
			return true
		}
	}

	return false
}
