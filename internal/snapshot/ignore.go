package snapshot

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// Matcher decides which entries of a source tree are left out of a backup.
type Matcher interface {
	// Match reports whether the entry at rel (relative to the source root,
	// OS separators) is excluded.
	Match(rel string, isDir bool) bool
}

// gitignoreMatcher adapts a go-git gitignore matcher to Matcher.
type gitignoreMatcher struct {
	m gitignore.Matcher
}

func (g gitignoreMatcher) Match(rel string, isDir bool) bool {
	return g.m.Match(strings.Split(rel, string(filepath.Separator)), isDir)
}

// NewMatcher builds an exclusion matcher for source from gitignore-syntax
// patterns. When useGitignore is set, the .gitignore files found in source
// are honoured as well. It returns nil when nothing is excluded.
func NewMatcher(source string, useGitignore bool, patterns []string) (Matcher, error) {
	ps := make([]gitignore.Pattern, 0, len(patterns)+16)

	if useGitignore {
		err := filepath.WalkDir(source, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() && d.Name() == ".git" {
				return filepath.SkipDir
			}
			if d.Name() != ".gitignore" || d.IsDir() {
				return nil
			}

			relDir, err := filepath.Rel(source, filepath.Dir(path))
			if err != nil {
				return err
			}
			content, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read .gitignore at %s: %w", path, err)
			}

			var domain []string
			if relDir != "." {
				domain = strings.Split(relDir, string(filepath.Separator))
			}
			for _, line := range strings.Split(string(content), "\n") {
				line = strings.TrimSpace(line)
				if line == "" || strings.HasPrefix(line, "#") {
					continue
				}
				ps = append(ps, gitignore.ParsePattern(line, domain))
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		ps = append(ps, gitignore.ParsePattern(p, nil))
	}

	if len(ps) == 0 {
		return nil, nil
	}
	return gitignoreMatcher{m: gitignore.NewMatcher(ps)}, nil
}
