package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Source yields markdown documents by path.
type Source interface {
	Name() string
	List(ctx context.Context) ([]string, error)
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// Revisioner is implemented by sources that can report the revision being
// indexed, such as a commit SHA.
type Revisioner interface {
	Revision(ctx context.Context) (string, error)
}

// LocalSource reads files matching a glob. A "**" segment matches zero or
// more directories.
type LocalSource struct {
	pattern string
}

// NewLocalSource creates a source over pattern.
func NewLocalSource(pattern string) *LocalSource {
	return &LocalSource{pattern: pattern}
}

// Name returns the glob.
func (s *LocalSource) Name() string {
	return s.pattern
}

// List returns matching regular files in lexical order.
func (s *LocalSource) List(ctx context.Context) ([]string, error) {
	pattern := filepath.Clean(s.pattern)
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid glob %q: %w", s.pattern, err)
	}

	var matches []string
	root, rest, recursive := splitRecursive(pattern)
	if !recursive {
		found, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid glob %q: %w", s.pattern, err)
		}
		for _, m := range found {
			if info, err := os.Stat(m); err == nil && info.Mode().IsRegular() {
				matches = append(matches, m)
			}
		}
	} else {
		err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				if p == root && os.IsNotExist(err) {
					return fs.SkipAll
				}
				return err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if !d.Type().IsRegular() {
				return nil
			}
			rel, err := filepath.Rel(root, p)
			if err != nil {
				return err
			}
			if matchAnyDepth(rest, rel) {
				matches = append(matches, p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}

	sort.Strings(matches)
	return matches, nil
}

// Fetch reads one file.
func (s *LocalSource) Fetch(_ context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// splitRecursive splits "a/b/**/c/*.md" into ("a/b", "c/*.md", true).
func splitRecursive(pattern string) (root, rest string, ok bool) {
	sep := string(filepath.Separator)
	parts := strings.Split(pattern, sep)
	for i, part := range parts {
		if part != "**" {
			continue
		}
		root = strings.Join(parts[:i], sep)
		if root == "" {
			root = "."
			if filepath.IsAbs(pattern) {
				root = sep
			}
		}
		rest = strings.Join(parts[i+1:], sep)
		if rest == "" {
			rest = "*"
		}
		return root, rest, true
	}
	return "", "", false
}

// matchAnyDepth matches rel against pattern after dropping zero or more
// leading directories from rel.
func matchAnyDepth(pattern, rel string) bool {
	parts := strings.Split(rel, string(filepath.Separator))
	for i := range parts {
		candidate := strings.Join(parts[i:], string(filepath.Separator))
		if ok, _ := filepath.Match(pattern, candidate); ok {
			return true
		}
	}
	return false
}
