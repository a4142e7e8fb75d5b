package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	gitignore "github.com/sabhiram/go-gitignore"
)

// IgnoreFileName is the supplemental, user-editable ignore-pattern file
// consulted alongside the fixed ignore list (spec §6). Unlike the fixed
// list, this is an optional richer format — gitignore-style glob patterns —
// layered on top, not a replacement for it.
const IgnoreFileName = ".foldersyncignore.toml"

// ignoreFileDoc is the on-disk shape of the supplemental ignore file.
type ignoreFileDoc struct {
	Patterns []string `toml:"patterns"`
}

// GitignoreMatcher adapts a compiled gitignore pattern set to the pathutil
// Filter's matcher interface (Match(relPath string) bool), satisfied
// structurally without either package importing the other's types.
type GitignoreMatcher struct {
	compiled *gitignore.GitIgnore
}

// Match reports whether relPath matches one of the loaded patterns.
func (g *GitignoreMatcher) Match(relPath string) bool {
	if g == nil || g.compiled == nil {
		return false
	}

	return g.compiled.MatchesPath(relPath)
}

// LoadIgnoreFile reads and compiles the supplemental ignore file at path.
// A missing file yields a no-op matcher, not an error.
func LoadIgnoreFile(path string) (*GitignoreMatcher, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &GitignoreMatcher{}, nil
		}

		return nil, fmt.Errorf("config: reading ignore file %s: %w", path, err)
	}

	var doc ignoreFileDoc
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return nil, fmt.Errorf("config: parsing ignore file %s: %w", path, err)
	}

	compiled := gitignore.CompileIgnoreLines(doc.Patterns...)

	return &GitignoreMatcher{compiled: compiled}, nil
}
